package tender

import (
	"fmt"
	"strings"
)

// BuildReport renders an analysis outcome as a Markdown document. Sections
// whose content is empty or NoInfoFound are omitted rather than printed as
// placeholders; per-file breakdowns are appended when includePerFile is set.
func BuildReport(outcome *AnalysisOutcome, includePerFile bool) string {
	var b strings.Builder
	b.WriteString("# Tender Analysis Report\n")

	writeSection(&b, "Client Information", outcome.Synthesis[CategoryClientInfo])
	writeSection(&b, "Tender Summary", outcome.Summary)
	writeSection(&b, "Important Dates", outcome.Synthesis[CategoryDates])
	writeSection(&b, "Requirements", outcome.Synthesis[CategoryRequirements])
	writeSection(&b, "Suggested Folder Structure", outcome.Synthesis[CategoryFolderStructure])

	if includePerFile && len(outcome.Results) > 0 {
		b.WriteString("\n## Per-File Results\n")
		for _, res := range outcome.Results {
			writeFileBreakdown(&b, res)
		}
	}
	return b.String()
}

func writeSection(b *strings.Builder, title, content string) {
	if emptyOrSentinel(content) {
		return
	}
	fmt.Fprintf(b, "\n## %s\n\n%s\n", title, strings.TrimSpace(content))
}

func writeFileBreakdown(b *strings.Builder, res PerFileResult) {
	fmt.Fprintf(b, "\n### %s\n", res.Document)
	for _, c := range Categories {
		text := res.Results[c]
		if emptyOrSentinel(text) {
			continue
		}
		title := c.Title()
		if c == CategoryDates && res.DatesSource == SourceFallback {
			title += " (fallback)"
		}
		fmt.Fprintf(b, "\n#### %s\n\n%s\n", title, strings.TrimSpace(text))
	}
}
