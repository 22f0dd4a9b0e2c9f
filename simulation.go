package tender

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
)

//go:embed fixtures/mock_response.md
var fixtureFS embed.FS

// SimulatedService satisfies ExtractionService without touching the
// network. Registration hands out synthetic refs, and every submitted
// prompt completes immediately with a section of the canned fixture, so the
// orchestration above it cannot tell it apart from the live service.
type SimulatedService struct {
	log      *slog.Logger
	sections map[string]string

	mu    sync.Mutex
	files map[DocRef]string
	jobs  map[JobHandle]string
}

// NewSimulatedService loads the embedded fixture.
func NewSimulatedService(log *slog.Logger) (*SimulatedService, error) {
	if log == nil {
		log = slog.Default()
	}
	raw, err := fixtureFS.ReadFile("fixtures/mock_response.md")
	if err != nil {
		return nil, fmt.Errorf("load fixture: %w", err)
	}
	return &SimulatedService{
		log:      log,
		sections: splitFixtureSections(string(raw)),
		files:    make(map[DocRef]string),
		jobs:     make(map[JobHandle]string),
	}, nil
}

// Source implements ExtractionService.
func (s *SimulatedService) Source() string { return "Mock" }

// RegisterDocument returns a synthetic identifier; nothing leaves the
// process.
func (s *SimulatedService) RegisterDocument(ctx context.Context, name string, data []byte, mimeType string) (DocRef, error) {
	ref := DocRef("sim-" + uuid.NewString())
	s.mu.Lock()
	s.files[ref] = name
	s.mu.Unlock()
	s.log.Debug("registered simulated document", "name", name, "ref", ref)
	return ref, nil
}

// ReleaseDocument forgets the synthetic identifier.
func (s *SimulatedService) ReleaseDocument(ctx context.Context, ref DocRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[ref]; !ok {
		return fmt.Errorf("release %s: not registered", ref)
	}
	delete(s.files, ref)
	return nil
}

// Submit completes immediately; the canned answer is picked by matching the
// prompt text against the fixture's section labels.
func (s *SimulatedService) Submit(ctx context.Context, prompt string, refs []DocRef) (JobHandle, error) {
	handle := JobHandle(uuid.NewString())
	s.mu.Lock()
	s.jobs[handle] = s.cannedResponse(prompt)
	s.mu.Unlock()
	return handle, nil
}

// Poll implements ExtractionService; simulated jobs are always done.
func (s *SimulatedService) Poll(ctx context.Context, h JobHandle) (JobStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[h]; !ok {
		return "", fmt.Errorf("poll: %w (%s)", ErrUnknownJob, h)
	}
	return JobCompleted, nil
}

// Fetch implements ExtractionService.
func (s *SimulatedService) Fetch(ctx context.Context, h JobHandle) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, ok := s.jobs[h]
	if !ok {
		return "", fmt.Errorf("fetch: %w (%s)", ErrUnknownJob, h)
	}
	delete(s.jobs, h)
	return text, nil
}

// cannedResponse maps a prompt to a fixture section by keyword, most
// specific first. Synthesis prompts reuse the matching extraction section.
func (s *SimulatedService) cannedResponse(prompt string) string {
	lower := strings.ToLower(prompt)
	switch {
	case strings.Contains(lower, "partial summaries"),
		strings.Contains(lower, "summarize the tender"):
		return s.section("Tender Summary", "No summary found.")
	case strings.Contains(lower, "folder structure"):
		return s.section("Consolidated Required Folder Structure", "No folder structure found.")
	case strings.Contains(lower, "client"):
		return s.section("Client Information", "No client information found.")
	case strings.Contains(lower, "dates"):
		return s.section("All Important Dates and Milestones", "No dates found.")
	case strings.Contains(lower, "requirements"):
		return s.section("All Technical Requirements", "No requirements found.")
	}
	return "No response generated."
}

func (s *SimulatedService) section(name, fallback string) string {
	if text, ok := s.sections[name]; ok && text != "" {
		return text
	}
	return fallback
}

// splitFixtureSections carves the fixture into named chunks: top-level
// "# " headings open a section, "## " headings open a subsection that
// shadows it. Section names keep their text only, without the markers.
func splitFixtureSections(content string) map[string]string {
	sections := make(map[string]string)
	var name string
	var body []string

	flush := func() {
		if name != "" {
			sections[name] = strings.TrimSpace(strings.Join(body, "\n"))
		}
		body = nil
	}

	for _, line := range strings.Split(content, "\n") {
		switch {
		case strings.HasPrefix(line, "# "):
			flush()
			name = strings.TrimSpace(line[2:])
		case strings.HasPrefix(line, "## "):
			flush()
			name = strings.TrimSpace(line[3:])
		default:
			body = append(body, line)
		}
	}
	flush()
	return sections
}
