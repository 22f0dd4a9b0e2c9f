package tender

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func simService(t *testing.T) *SimulatedService {
	t.Helper()
	svc, err := NewSimulatedService(nil)
	require.NoError(t, err)
	return svc
}

func runSimPrompt(t *testing.T, svc *SimulatedService, prompt string) string {
	t.Helper()
	ctx := context.Background()
	h, err := svc.Submit(ctx, prompt, nil)
	require.NoError(t, err)

	status, err := svc.Poll(ctx, h)
	require.NoError(t, err)
	require.Equal(t, JobCompleted, status)

	text, err := svc.Fetch(ctx, h)
	require.NoError(t, err)
	return text
}

func TestSimulatedService_RegisterAndRelease(t *testing.T) {
	svc := simService(t)
	ctx := context.Background()

	ref, err := svc.RegisterDocument(ctx, "a.pdf", []byte("x"), "application/pdf")
	require.NoError(t, err)
	assert.NotEmpty(t, ref)

	require.NoError(t, svc.ReleaseDocument(ctx, ref))
	assert.Error(t, svc.ReleaseDocument(ctx, ref))
}

func TestSimulatedService_PromptRouting(t *testing.T) {
	svc := simService(t)
	p, err := DefaultPrompts()
	require.NoError(t, err)

	vars := map[string]any{
		"file_name":             "a.pdf",
		"partial_summaries":     "s",
		"dates_data":            "d",
		"sort_order":            "chronologically",
		"requirements_data":     "r",
		"folder_structure_data": "f",
		"client_info_data":      "c",
	}

	// Each pipeline prompt routes to a distinct, non-empty fixture section.
	tags := []string{PromptSummary, PromptFinalSummary}
	for _, c := range Categories {
		tags = append(tags, extractionPromptTag(c), synthesisPromptTag(c))
	}
	replies := make(map[string]string)
	for _, tag := range tags {
		prompt, err := p.Render(tag, vars)
		require.NoError(t, err)
		reply := runSimPrompt(t, svc, prompt)
		assert.NotEmpty(t, reply, tag)
		assert.NotEqual(t, "No response generated.", reply, tag)
		replies[tag] = reply
	}

	// Extraction and synthesis of the same category share a section, but
	// the four categories differ from each other and from the summary.
	assert.Equal(t, replies[extractionPromptTag(CategoryDates)], replies[synthesisPromptTag(CategoryDates)])
	assert.NotEqual(t, replies[string(CategoryDates)], replies[string(CategoryRequirements)])
	assert.NotEqual(t, replies[PromptSummary], replies[string(CategoryDates)])
	assert.Equal(t, replies[PromptSummary], replies[PromptFinalSummary])
}

func TestSimulatedService_UnknownPrompt(t *testing.T) {
	svc := simService(t)
	assert.Equal(t, "No response generated.", runSimPrompt(t, svc, "what is the weather"))
}

func TestSimulatedService_FetchReapsJob(t *testing.T) {
	svc := simService(t)
	ctx := context.Background()

	h, err := svc.Submit(ctx, "dates please", nil)
	require.NoError(t, err)
	_, err = svc.Fetch(ctx, h)
	require.NoError(t, err)

	_, err = svc.Fetch(ctx, h)
	assert.ErrorIs(t, err, ErrUnknownJob)
	_, err = svc.Poll(ctx, h)
	assert.ErrorIs(t, err, ErrUnknownJob)
}

func TestSimulatedService_EndToEnd(t *testing.T) {
	svc := simService(t)
	prompts, err := DefaultPrompts()
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Simulate = true
	a := NewAnalyzer(svc, prompts, cfg)

	doc, err := NewDocument("tender_main.pdf", []byte("%PDF-1.4 content"), 0)
	require.NoError(t, err)

	outcome, err := a.Analyze(context.Background(), []*Document{doc})
	require.NoError(t, err)

	require.Len(t, outcome.Results, 1)
	assert.NotEmpty(t, outcome.Summary)
	for _, c := range Categories {
		assert.NotEmpty(t, outcome.Synthesis[c], c)
	}

	report := BuildReport(outcome, true)
	assert.Contains(t, report, "# Tender Analysis Report")
	assert.Contains(t, report, "## Tender Summary")
}

func TestSplitFixtureSections(t *testing.T) {
	content := "# Top\nalpha\n\n## Sub One\nbeta\ngamma\n## Sub Two\ndelta\n"
	sections := splitFixtureSections(content)

	assert.Equal(t, "alpha", sections["Top"])
	assert.Equal(t, "beta\ngamma", sections["Sub One"])
	assert.Equal(t, "delta", sections["Sub Two"])
}
