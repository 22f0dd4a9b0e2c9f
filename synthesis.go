package tender

import (
	"context"
	"fmt"
	"strings"
)

// synthesizeAll merges the per-file results of every session document into
// one text per category. Categories with no usable per-file data resolve to
// NoInfoFound without a service call; the folder structure is the one
// exception, since a sensible structure can be proposed from requirements
// alone.
func (a *Analyzer) synthesizeAll(ctx context.Context, refNames map[DocRef]string, tracker *progressTracker) (map[Category]string, error) {
	results := a.store.FileResults()
	out := make(map[Category]string, len(Categories))

	for _, c := range Categories {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tracker.note(fmt.Sprintf("Synthesizing %s", c.Title()))
		out[c] = a.synthesizeCategory(ctx, c, results, out, refNames)
		a.store.PutSynthesis(c, out[c])
	}
	return out, nil
}

func (a *Analyzer) synthesizeCategory(ctx context.Context, c Category, results []PerFileResult, done map[Category]string, refNames map[DocRef]string) string {
	data := categoryData(results, c)

	if data == "" {
		if c != CategoryFolderStructure || emptyOrSentinel(done[CategoryRequirements]) {
			return NoInfoFound
		}
	}

	vars := map[string]any{}
	switch c {
	case CategoryDates:
		vars["dates_data"] = data
		vars["sort_order"] = a.sortOrder()
	case CategoryRequirements:
		vars["requirements_data"] = data
	case CategoryFolderStructure:
		vars["folder_structure_data"] = data
		vars["requirements_data"] = done[CategoryRequirements]
	case CategoryClientInfo:
		vars["client_info_data"] = data
	}

	prompt, err := a.prompts.Render(synthesisPromptTag(c), vars)
	if err != nil {
		a.log.Error("prompt render failed", "category", c, "error", err)
		return fmt.Sprintf("Error synthesizing %s: %v", c.Title(), err)
	}

	task := fmt.Sprintf("%s synthesis", c.Title())
	text, err := a.client.RunPrompt(ctx, nil, prompt, task)
	if err != nil {
		a.log.Error("synthesis failed", "category", c, "error", err)
		return fmt.Sprintf("Error synthesizing %s: %v", c.Title(), err)
	}
	return ReplaceCitations(text, refNames, "")
}

// categoryData collects the usable per-file texts of one category into the
// block the synthesis prompts consume, in document order.
func categoryData(results []PerFileResult, c Category) string {
	var blocks []string
	for _, res := range results {
		text := res.Results[c]
		if emptyOrSentinel(text) {
			continue
		}
		blocks = append(blocks, fmt.Sprintf("File: %s\n%s", res.Document, text))
	}
	return strings.Join(blocks, "\n\n")
}

func (a *Analyzer) sortOrder() string {
	if a.cfg.DateSortAscending {
		return "chronologically"
	}
	return "reverse-chronologically"
}
