package textblock

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const (
	start = "<!-- setkeeper:begin -->"
	end   = "<!-- setkeeper:end -->"
)

func TestMerge_AppendToEmpty(t *testing.T) {
	got := Merge("", start, end, "\nbody\n")
	assert.Equal(t, start+"\nbody\n"+end, got)
}

func TestMerge_AppendAfterUserText(t *testing.T) {
	got := Merge("my photo notes", start, end, "\nbody\n")
	assert.Equal(t, "my photo notes\n\n"+start+"\nbody\n"+end, got)
}

func TestMerge_ReplacesExistingRegion(t *testing.T) {
	existing := "before\n\n" + start + "\nold\n" + end + "\nafter"
	got := Merge(existing, start, end, "\nnew\n")
	assert.Equal(t, "before\n\n"+start+"\nnew\n"+end+"\nafter", got)
}

func TestMerge_RoundTrip(t *testing.T) {
	cases := []struct {
		name string
		text string
		body string
	}{
		{"empty", "", "\ncontent\n"},
		{"user text only", "hand-written caption", "\ncontent\n"},
		{"existing region", "a\n" + start + "\nstale\n" + end + "\nb", "\ncontent\n"},
		{"empty body", "a", ""},
		{"region at start", start + "x" + end + " trailing", "y"},
		{"unterminated start", "notes with a stray " + start + " user words after it", "\ncontent\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			once := Merge(tc.text, start, end, tc.body)
			twice := Merge(once, start, end, tc.body)
			assert.Equal(t, once, twice, "second merge must be byte-identical")
		})
	}
}

func TestMerge_PreservesSurroundingText(t *testing.T) {
	existing := "prefix kept verbatim\n" + start + "old" + end + "\nsuffix kept verbatim"
	got := Merge(existing, start, end, "new")
	assert.Contains(t, got, "prefix kept verbatim\n")
	assert.Contains(t, got, "\nsuffix kept verbatim")
	assert.Equal(t, "prefix kept verbatim\n"+start+"new"+end+"\nsuffix kept verbatim", got)
}

func TestMerge_FirstStartPairsWithFirstEnd(t *testing.T) {
	existing := start + "one" + end + " middle " + start + "two" + end
	got := Merge(existing, start, end, "X")
	// Only the first region changes; the second start/end pair is user content
	// as far as the merge is concerned.
	assert.Equal(t, start+"X"+end+" middle "+start+"two"+end, got)
}

func TestMerge_UnterminatedStartStaysUserContent(t *testing.T) {
	existing := "text with a stray " + start + " user words after it"

	once := Merge(existing, start, end, "body")
	assert.Equal(t, "text with a stray "+start+"body"+end+"\n\n"+start+" user words after it", once)

	// The stray marker must not swallow the managed block's end marker on a
	// rerun; everything the user wrote survives unchanged.
	twice := Merge(once, start, end, "body")
	assert.Equal(t, once, twice)
	assert.Contains(t, twice, start+" user words after it")
}

func TestMerge_EmptyMarkersNoOp(t *testing.T) {
	assert.Equal(t, "abc", Merge("abc", "", end, "body"))
	assert.Equal(t, "abc", Merge("abc", start, "", "body"))
}

func TestManaged(t *testing.T) {
	assert.False(t, Managed("plain text", start, end))
	assert.False(t, Managed("has "+start+" only", start, end))
	assert.True(t, Managed(start+"x"+end, start, end))
	assert.True(t, Managed("a "+start+end+" b", start, end))
}
