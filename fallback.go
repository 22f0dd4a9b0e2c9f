package tender

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// The deterministic date extractor recovers milestones when the model
// reports NoInfoFound for a document. It runs the patterns below in order;
// a later pattern never re-claims a span an earlier one already consumed.

type datePatternKind int

const (
	patternDotted    datePatternKind = iota // DD.MM.YYYY[ at Hh]
	patternISO                              // YYYY-MM-DD
	patternDayMonth                         // D Month YYYY
	patternMonthYear                        // Month YYYY
	patternSlash                            // DD/MM/YYYY
)

type datePattern struct {
	re   *regexp.Regexp
	kind datePatternKind
}

const monthAlternation = `January|February|March|April|May|June|July|August|September|October|November|December`

// datePatterns is ordered by priority. Adding a format is one entry here
// plus a validation case below.
var datePatterns = []datePattern{
	{regexp.MustCompile(`(?i)\d{2}\.\d{2}\.\d{4}(?:\s+at\s+\d{1,2}h)?`), patternDotted},
	{regexp.MustCompile(`\d{4}-\d{2}-\d{2}`), patternISO},
	{regexp.MustCompile(`(?i)\d{1,2}\s+(?:` + monthAlternation + `)\s+\d{4}`), patternDayMonth},
	{regexp.MustCompile(`(?i)(?:` + monthAlternation + `)\s+\d{4}`), patternMonthYear},
	{regexp.MustCompile(`\d{1,2}/\d{1,2}/\d{4}`), patternSlash},
}

var monthNames = []string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

var monthTitleRe = func() []*regexp.Regexp {
	res := make([]*regexp.Regexp, len(monthNames))
	for i, m := range monthNames {
		res[i] = regexp.MustCompile(`(?i)\b` + m + `\b`)
	}
	return res
}()

var (
	punctClusterRe = regexp.MustCompile(`[.,!;"'()\[\]{}]+`)
	multiSpaceRe   = regexp.MustCompile(`\s+`)
)

type span struct{ start, end int }

func (s span) overlaps(start, end int) bool {
	return (s.start <= start && start < s.end) || (s.start < end && end <= s.end)
}

// ExtractDatesFallback scans text for dated milestones and renders one line
// per accepted date: "- {date}, {event}, Source: {fileName}". Output order
// follows pattern priority first and in-text position second, not
// chronology. Returns NoInfoFound when nothing matches.
func ExtractDatesFallback(text, fileName string) string {
	var lines []string
	var claimed []span

	for _, dp := range datePatterns {
		for _, loc := range dp.re.FindAllStringIndex(text, -1) {
			start, end := loc[0], loc[1]
			if overlapsAny(claimed, start, end) {
				continue
			}

			raw := text[start:end]
			if !validDateMatch(raw, dp.kind) {
				// An invalid "D Month YYYY" still consumes its span so
				// the looser "Month YYYY" pass cannot re-match part of it.
				if dp.kind == patternDayMonth {
					claimed = append(claimed, span{start, end})
				}
				continue
			}

			claimed = append(claimed, span{start, end})
			normalized := titleCaseMonths(raw)
			event := eventDescription(text, start, end, raw)
			if event != "" {
				lines = append(lines, fmt.Sprintf("- %s, %s, Source: %s", normalized, event, fileName))
			}
		}
	}

	if len(lines) == 0 {
		return NoInfoFound
	}
	return strings.Join(lines, "\n")
}

func overlapsAny(claimed []span, start, end int) bool {
	for _, s := range claimed {
		if s.overlaps(start, end) {
			return true
		}
	}
	return false
}

// validDateMatch rejects matches that do not denote a real calendar date,
// e.g. day 32 or month 13.
func validDateMatch(raw string, kind datePatternKind) bool {
	switch kind {
	case patternDotted:
		datePart := raw
		if i := strings.Index(datePart, " at "); i >= 0 {
			datePart = datePart[:i]
		}
		return validDMYFields(strings.Split(strings.ReplaceAll(datePart, ".", "/"), "/"))
	case patternSlash:
		return validDMYFields(strings.Split(raw, "/"))
	case patternISO:
		parts := strings.Split(raw, "-")
		if len(parts) != 3 {
			return false
		}
		y, errY := strconv.Atoi(parts[0])
		m, errM := strconv.Atoi(parts[1])
		d, errD := strconv.Atoi(parts[2])
		if errY != nil || errM != nil || errD != nil {
			return false
		}
		return validCalendarDate(y, m, d)
	case patternDayMonth:
		parts := strings.Fields(raw)
		if len(parts) != 3 {
			return false
		}
		d, errD := strconv.Atoi(parts[0])
		y, errY := strconv.Atoi(parts[2])
		if errD != nil || errY != nil {
			return false
		}
		m := monthNumber(parts[1])
		if m == 0 {
			return false
		}
		return validCalendarDate(y, m, d)
	case patternMonthYear:
		parts := strings.Fields(raw)
		if len(parts) != 2 {
			return false
		}
		y, err := strconv.Atoi(parts[1])
		if err != nil {
			return false
		}
		return y >= 1000 && y <= 9999
	}
	return false
}

func validDMYFields(parts []string) bool {
	if len(parts) != 3 {
		return false
	}
	d, errD := strconv.Atoi(parts[0])
	m, errM := strconv.Atoi(parts[1])
	y, errY := strconv.Atoi(parts[2])
	if errD != nil || errM != nil || errY != nil {
		return false
	}
	return validCalendarDate(y, m, d)
}

func validCalendarDate(year, month, day int) bool {
	if year < 1 || year > 9999 || month < 1 || month > 12 || day < 1 {
		return false
	}
	return day <= daysInMonth(year, month)
}

func daysInMonth(year, month int) int {
	switch month {
	case 1, 3, 5, 7, 8, 10, 12:
		return 31
	case 4, 6, 9, 11:
		return 30
	}
	if year%4 == 0 && (year%100 != 0 || year%400 == 0) {
		return 29
	}
	return 28
}

func monthNumber(name string) int {
	for i, m := range monthNames {
		if strings.EqualFold(m, name) {
			return i + 1
		}
	}
	return 0
}

// titleCaseMonths normalizes month names inside a matched date to title
// case, leaving the rest of the match intact.
func titleCaseMonths(date string) string {
	for i, re := range monthTitleRe {
		date = re.ReplaceAllString(date, monthNames[i])
	}
	return date
}

// eventDescription bounds a context window around the match: backward and
// forward to the nearest sentence terminator, falling back to line breaks
// when the terminator would cross one. The matched date itself is removed
// and punctuation clusters collapse to single spaces.
func eventDescription(text string, start, end int, rawMatch string) string {
	sentenceStart := strings.LastIndex(text[:start], ".")
	if sentenceStart == -1 || strings.Contains(text[sentenceStart:start], "\n") {
		sentenceStart = strings.LastIndex(text[:start], "\n")
	}
	if sentenceStart == -1 {
		sentenceStart = 0
	} else {
		sentenceStart++
	}

	sentenceEnd := indexFrom(text, ".", end)
	if sentenceEnd == -1 || strings.Contains(text[end:sentenceEnd], "\n") {
		sentenceEnd = indexFrom(text, "\n", end)
	}
	if sentenceEnd == -1 {
		sentenceEnd = len(text)
	}

	window := strings.TrimSpace(strings.ReplaceAll(text[sentenceStart:sentenceEnd], "\n", " "))
	event := strings.TrimSpace(strings.ReplaceAll(window, rawMatch, ""))
	event = strings.TrimSpace(punctClusterRe.ReplaceAllString(event, " "))
	event = strings.TrimSpace(multiSpaceRe.ReplaceAllString(event, " "))
	return event
}

// indexFrom is strings.Index starting the search at offset from.
func indexFrom(text, substr string, from int) int {
	if from >= len(text) {
		return -1
	}
	i := strings.Index(text[from:], substr)
	if i == -1 {
		return -1
	}
	return from + i
}
