package tender

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractDatesFallback_DottedDate(t *testing.T) {
	text := "The deadline is 21.04.2021 for submission."
	result := ExtractDatesFallback(text, "test.pdf")

	assert.Equal(t, "- 21.04.2021, The deadline is for submission, Source: test.pdf", result)
}

func TestExtractDatesFallback_DottedDateWithTime(t *testing.T) {
	text := "Offers must arrive by 15.03.2024 at 14h sharp\n"
	result := ExtractDatesFallback(text, "offer.pdf")

	assert.Contains(t, result, "15.03.2024 at 14h")
	assert.Contains(t, result, "Source: offer.pdf")
}

func TestExtractDatesFallback_ISODate(t *testing.T) {
	text := "Project kickoff scheduled for 2024-06-01 in Bern\n"
	result := ExtractDatesFallback(text, "plan.pdf")

	assert.Contains(t, result, "- 2024-06-01, Project kickoff scheduled for in Bern, Source: plan.pdf")
}

func TestExtractDatesFallback_DayMonthYear(t *testing.T) {
	text := "Questions accepted until 5 March 2024 via the portal\n"
	result := ExtractDatesFallback(text, "qa.pdf")

	assert.Contains(t, result, "5 March 2024")
	assert.Contains(t, result, "Questions accepted until via the portal")
}

func TestExtractDatesFallback_MonthCaseNormalized(t *testing.T) {
	text := "Delivery expected in JANUARY 2025 at the latest\n"
	result := ExtractDatesFallback(text, "delivery.pdf")

	assert.Contains(t, result, "January 2025")
	assert.NotContains(t, result, "JANUARY")
}

func TestExtractDatesFallback_SlashDate(t *testing.T) {
	text := "Contract starts 1/7/2024 after signing\n"
	result := ExtractDatesFallback(text, "contract.pdf")

	assert.Contains(t, result, "- 1/7/2024, Contract starts after signing, Source: contract.pdf")
}

func TestExtractDatesFallback_InvalidDatesRejected(t *testing.T) {
	cases := []struct {
		name string
		text string
	}{
		{"day 32", "Submit by 32.04.2021 at noon\n"},
		{"month 13", "Due 2021-13-01 absolutely\n"},
		{"day zero", "Meeting on 0 January 2021 maybe\n"},
		{"short year", "Sometime in January 999 historically\n"},
		{"nonexistent leap day", "Party on 30.02.2023 improbable\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, NoInfoFound, ExtractDatesFallback(tc.text, "test.pdf"))
		})
	}
}

func TestExtractDatesFallback_LeapDayAccepted(t *testing.T) {
	result := ExtractDatesFallback("Audit on 29.02.2024 confirmed\n", "audit.pdf")
	assert.Contains(t, result, "29.02.2024")
}

func TestExtractDatesFallback_NoDates(t *testing.T) {
	assert.Equal(t, NoInfoFound, ExtractDatesFallback("Nothing dated in here at all.", "test.pdf"))
	assert.Equal(t, NoInfoFound, ExtractDatesFallback("", "test.pdf"))
}

func TestExtractDatesFallback_NoDoubleCounting(t *testing.T) {
	// "5 March 2024" must not additionally surface as "March 2024".
	text := "Submission closes 5 March 2024 at the office\n"
	result := ExtractDatesFallback(text, "test.pdf")

	assert.Equal(t, 1, strings.Count(result, "March 2024"))
	assert.Contains(t, result, "5 March 2024")
}

func TestExtractDatesFallback_InvalidDayMonthConsumesSpan(t *testing.T) {
	// "45 March 2024" is not a date, and its month-year tail must not
	// resurface through the looser pattern.
	text := "Reference number 45 March 2024 appears here\n"
	result := ExtractDatesFallback(text, "test.pdf")

	assert.Equal(t, NoInfoFound, result)
}

func TestExtractDatesFallback_MultipleDates(t *testing.T) {
	text := "Phase one ends 01.02.2024 as planned.\nPhase two ends 01.03.2024 as well.\n"
	result := ExtractDatesFallback(text, "phases.pdf")

	lines := strings.Split(result, "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[0], "01.02.2024")
	assert.Contains(t, lines[1], "01.03.2024")
}

func TestExtractDatesFallback_Deterministic(t *testing.T) {
	text := "A on 2024-01-15 first.\nB in March 2024 second.\nC by 10/10/2024 third.\n"
	first := ExtractDatesFallback(text, "test.pdf")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ExtractDatesFallback(text, "test.pdf"))
	}
}

func TestExtractDatesFallback_EventStripsMatchAndPunctuation(t *testing.T) {
	text := "Deadline (final) 21.04.2021!\n"
	result := ExtractDatesFallback(text, "test.pdf")

	assert.Contains(t, result, "- 21.04.2021, Deadline final, Source: test.pdf")
}

func TestValidCalendarDate(t *testing.T) {
	cases := []struct {
		y, m, d int
		want    bool
	}{
		{2024, 2, 29, true},
		{2023, 2, 29, false},
		{1900, 2, 29, false},
		{2000, 2, 29, true},
		{2024, 4, 31, false},
		{2024, 12, 31, true},
		{2024, 0, 1, false},
		{2024, 13, 1, false},
		{0, 1, 1, false},
		{10000, 1, 1, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, validCalendarDate(tc.y, tc.m, tc.d),
			"%04d-%02d-%02d", tc.y, tc.m, tc.d)
	}
}
