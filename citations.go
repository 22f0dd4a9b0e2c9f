package tender

import (
	"regexp"
	"sort"
	"strings"
)

var (
	citationMarkerRe = regexp.MustCompile(`【[^】]*】`)
	tempFileTokenRe  = regexp.MustCompile(`tmp\w+\.(?:pdf|docx)`)
	emphasisWordRe   = regexp.MustCompile(`\*\w+\*`)
)

// ReplaceCitations rewrites model-emitted citation markers and stray
// temporary-file tokens back to user-facing document names. idToName maps
// remote identifiers to display names. When intendedFileName is non-empty
// the text is known to belong to that document, and mentions of other known
// documents are corrected to it. The rewrite is idempotent: applying it to
// already-normalized text changes nothing.
func ReplaceCitations(text string, idToName map[DocRef]string, intendedFileName string) string {
	if len(idToName) == 0 {
		return text
	}

	text = citationMarkerRe.ReplaceAllStringFunc(text, func(marker string) string {
		for id, name := range idToName {
			if id != "" && strings.Contains(marker, string(id)) {
				return "【" + name + "】"
			}
		}
		if len(idToName) == 1 {
			for _, name := range idToName {
				return "【" + name + "】"
			}
		}
		return marker
	})

	// Residual temporary-file tokens only have one correct answer when we
	// know which document the text belongs to, or when there is just one.
	if replacement := tempTokenReplacement(idToName, intendedFileName); replacement != "" {
		text = tempFileTokenRe.ReplaceAllString(text, replacement)
	}

	text = stripSingleWordEmphasis(text)

	if intendedFileName != "" {
		for _, name := range sortedNames(idToName) {
			if name == intendedFileName {
				continue
			}
			wholeWord := regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\b`)
			text = wholeWord.ReplaceAllString(text, intendedFileName)
		}
	}

	return text
}

func tempTokenReplacement(idToName map[DocRef]string, intendedFileName string) string {
	if intendedFileName != "" {
		return intendedFileName
	}
	if len(idToName) == 1 {
		for _, name := range idToName {
			return name
		}
	}
	return ""
}

// stripSingleWordEmphasis removes solitary *word* emphasis pairs while
// leaving multi-word spans and **bold** markers untouched. Matches adjacent
// to another asterisk are skipped, which keeps the operation idempotent.
func stripSingleWordEmphasis(text string) string {
	locs := emphasisWordRe.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return text
	}
	var b strings.Builder
	b.Grow(len(text))
	prev := 0
	for _, loc := range locs {
		start, end := loc[0], loc[1]
		adjacentBefore := start > 0 && text[start-1] == '*'
		adjacentAfter := end < len(text) && text[end] == '*'
		b.WriteString(text[prev:start])
		if adjacentBefore || adjacentAfter {
			b.WriteString(text[start:end])
		} else {
			b.WriteString(text[start+1 : end-1])
		}
		prev = end
	}
	b.WriteString(text[prev:])
	return b.String()
}

func sortedNames(idToName map[DocRef]string) []string {
	names := make([]string, 0, len(idToName))
	for _, name := range idToName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
