package tender

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReplaceCitations_KnownMarker(t *testing.T) {
	idToName := map[DocRef]string{"files/abc123": "tender_main.pdf"}
	text := "The deadline appears in 【files/abc123†source】 on page 3."

	got := ReplaceCitations(text, idToName, "")
	assert.Equal(t, "The deadline appears in 【tender_main.pdf】 on page 3.", got)
}

func TestReplaceCitations_UnknownMarkerSingleDoc(t *testing.T) {
	// With exactly one document, an unrecognized marker can only mean it.
	idToName := map[DocRef]string{"files/abc123": "tender_main.pdf"}
	text := "See 【files/zzz999†source】 for details."

	got := ReplaceCitations(text, idToName, "")
	assert.Equal(t, "See 【tender_main.pdf】 for details.", got)
}

func TestReplaceCitations_UnknownMarkerMultipleDocs(t *testing.T) {
	// Ambiguous markers stay untouched rather than guessing.
	idToName := map[DocRef]string{
		"files/a": "one.pdf",
		"files/b": "two.pdf",
	}
	text := "See 【files/zzz999†source】 for details."

	got := ReplaceCitations(text, idToName, "")
	assert.Equal(t, text, got)
}

func TestReplaceCitations_TempFileToken(t *testing.T) {
	idToName := map[DocRef]string{"files/a": "tender_main.pdf"}
	text := "As stated in tmpa1b2c3.pdf, the budget is fixed."

	got := ReplaceCitations(text, idToName, "tender_main.pdf")
	assert.Equal(t, "As stated in tender_main.pdf, the budget is fixed.", got)
}

func TestReplaceCitations_TempTokenAmbiguousLeftAlone(t *testing.T) {
	idToName := map[DocRef]string{
		"files/a": "one.pdf",
		"files/b": "two.pdf",
	}
	text := "As stated in tmpa1b2c3.docx, see above."

	got := ReplaceCitations(text, idToName, "")
	assert.Equal(t, text, got)
}

func TestReplaceCitations_WrongNameCorrected(t *testing.T) {
	idToName := map[DocRef]string{
		"files/a": "annex.pdf",
		"files/b": "main.pdf",
	}
	text := "The requirement is defined in annex.pdf under section 2."

	got := ReplaceCitations(text, idToName, "main.pdf")
	assert.Equal(t, "The requirement is defined in main.pdf under section 2.", got)
}

func TestReplaceCitations_SingleWordEmphasisStripped(t *testing.T) {
	idToName := map[DocRef]string{"files/a": "main.pdf"}

	got := ReplaceCitations("The *deadline* is firm.", idToName, "")
	assert.Equal(t, "The deadline is firm.", got)
}

func TestReplaceCitations_BoldPreserved(t *testing.T) {
	idToName := map[DocRef]string{"files/a": "main.pdf"}
	text := "The **deadline** is *firm* today."

	got := ReplaceCitations(text, idToName, "")
	assert.Equal(t, "The **deadline** is firm today.", got)
}

func TestReplaceCitations_Idempotent(t *testing.T) {
	idToName := map[DocRef]string{
		"files/a": "annex.pdf",
		"files/b": "main.pdf",
	}
	text := "Per 【files/a†src】 and tmpxyz.pdf, the *budget* in annex.pdf is **fixed**."

	once := ReplaceCitations(text, idToName, "main.pdf")
	twice := ReplaceCitations(once, idToName, "main.pdf")
	assert.Equal(t, once, twice)
}

func TestReplaceCitations_EmptyMap(t *testing.T) {
	text := "Nothing changes 【files/a†src】 here."
	assert.Equal(t, text, ReplaceCitations(text, nil, ""))
}

func TestStripSingleWordEmphasis(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"*word*", "word"},
		{"**bold**", "**bold**"},
		{"*multi word* stays", "*multi word* stays"},
		{"a *b* c *d* e", "a b c d e"},
		{"no markers", "no markers"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, stripSingleWordEmphasis(tc.in), tc.in)
	}
}
