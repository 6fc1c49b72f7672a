package keys

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"setkeeper/internal/remote"
)

func mtags(raws ...string) []remote.Tag {
	tags := make([]remote.Tag, len(raws))
	for i, r := range raws {
		tags[i] = remote.Tag{ID: r, Raw: r, Machine: true}
	}
	return tags
}

func TestParseMachineTag(t *testing.T) {
	cases := []struct {
		raw  string
		want MachineTag
		ok   bool
	}{
		{"ioc151:seq=100", MachineTag{"ioc151", "seq", "100"}, true},
		{"IOC151:Seq=100", MachineTag{"ioc151", "seq", "100"}, true},
		{`taxonomy:binomial="Corvus corax"`, MachineTag{"taxonomy", "binomial", "Corvus corax"}, true},
		{`ns:pred="say \"hi\""`, MachineTag{"ns", "pred", `say "hi"`}, true},
		{`ns:pred="back\\slash"`, MachineTag{"ns", "pred", `back\slash`}, true},
		{"plaintag", MachineTag{}, false},
		{"no:equals", MachineTag{}, false},
		{":pred=v", MachineTag{}, false},
		{"ns:=v", MachineTag{}, false},
	}
	for _, tc := range cases {
		got, ok := ParseMachineTag(tc.raw)
		assert.Equal(t, tc.ok, ok, tc.raw)
		if tc.ok {
			assert.Equal(t, tc.want, got, tc.raw)
		}
	}
}

func TestExtractor_DateSequence(t *testing.T) {
	e := NewExtractor(Predicates{})
	taken := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

	item := remote.Item{ID: "p1", Taken: taken, Tags: mtags("ioc151:seq=100")}
	date, seq, ok := e.DateSequence(item)
	require.True(t, ok)
	assert.Equal(t, "B0 - 2024/05/01", date)
	assert.Equal(t, 100, seq)

	// Determinism: identical attributes, identical key.
	date2, seq2, _ := e.DateSequence(item)
	assert.Equal(t, date, date2)
	assert.Equal(t, seq, seq2)
}

func TestExtractor_DateSequence_Malformed(t *testing.T) {
	e := NewExtractor(Predicates{})
	taken := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	t.Run("no taken date", func(t *testing.T) {
		_, _, ok := e.DateSequence(remote.Item{Tags: mtags("ioc151:seq=100")})
		assert.False(t, ok)
	})
	t.Run("no seq tag", func(t *testing.T) {
		_, _, ok := e.DateSequence(remote.Item{Taken: taken, Tags: mtags("ioc151:other=1")})
		assert.False(t, ok)
	})
	t.Run("unparseable seq", func(t *testing.T) {
		_, _, ok := e.DateSequence(remote.Item{Taken: taken, Tags: mtags("ioc151:seq=abc")})
		assert.False(t, ok)
	})
}

func TestExtractor_OrderKey(t *testing.T) {
	e := NewExtractor(Predicates{})

	item := remote.Item{Tags: mtags("ioc151:ordernum=31", "ioc151:order=PASSERIFORMES")}
	key, ok := e.OrderKey(item)
	require.True(t, ok)
	assert.Equal(t, "A0 - 1F - PASSERIFORMES", key)
}

func TestExtractor_OrderKey_Malformed(t *testing.T) {
	e := NewExtractor(Predicates{})
	cases := map[string][]remote.Tag{
		"missing number":   mtags("ioc151:order=PASSERIFORMES"),
		"missing name":     mtags("ioc151:ordernum=31"),
		"unparseable":      mtags("ioc151:ordernum=3x", "ioc151:order=PASSERIFORMES"),
		"out of hex range": mtags("ioc151:ordernum=300", "ioc151:order=PASSERIFORMES"),
		"negative":         mtags("ioc151:ordernum=-1", "ioc151:order=PASSERIFORMES"),
	}
	for name, tags := range cases {
		t.Run(name, func(t *testing.T) {
			_, ok := e.OrderKey(remote.Item{Tags: tags})
			assert.False(t, ok)
		})
	}
}

func TestExtractor_FamilyKey(t *testing.T) {
	e := NewExtractor(Predicates{})

	item := remote.Item{Tags: mtags("ioc151:familycode=1F.2", "ioc151:family=Corvidae")}
	key, ok := e.FamilyKey(item)
	require.True(t, ok)
	// The code is taken verbatim, not re-derived.
	assert.Equal(t, "A1 - 1F.2 - Corvidae", key)
}

func TestExtractor_CustomPredicates(t *testing.T) {
	e := NewExtractor(Predicates{Sequence: "sequence"})

	item := remote.Item{
		Taken: time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC),
		Tags:  mtags("x:sequence=7", "ioc151:seq=999"),
	}
	_, seq, ok := e.DateSequence(item)
	require.True(t, ok)
	assert.Equal(t, 7, seq)
}

func TestFormatters(t *testing.T) {
	assert.Equal(t, "A0 - 1F - PASSERIFORMES", FormatOrderKey(31, "PASSERIFORMES"))
	assert.Equal(t, "A0 - 05 - STRUTHIONIFORMES", FormatOrderKey(5, "STRUTHIONIFORMES"))
	assert.Equal(t, "A1 - 1F - Corvidae", FormatFamilyKey("1F", "Corvidae"))
	assert.Equal(t, "B0 - 2024/05/01", FormatDateKey(time.Date(2024, 5, 1, 23, 59, 0, 0, time.UTC)))
}

func TestMatcher_Defaults(t *testing.T) {
	m, err := NewMatcher(MatcherConfig{})
	require.NoError(t, err)

	assert.True(t, m.Match(CategoryOrder, "A0 - 1F - PASSERIFORMES"))
	assert.True(t, m.Match(CategoryFamily, "A1 - 1F.2 - Corvidae"))
	assert.True(t, m.Match(CategoryDate, "B0 - 2024/05/01"))
	assert.True(t, m.Match(CategoryCountry, "C0 - Brazil"))
	assert.True(t, m.Match(CategorySpecies, "Corvus corax"))
	assert.True(t, m.Match(CategorySpecies, "Turdus rufiventris juensis"))

	assert.False(t, m.Match(CategoryOrder, "B0 - 2024/05/01"))
	assert.False(t, m.Match(CategorySpecies, "my vacation photos"))
	assert.False(t, m.Match(CategoryDate, "B0 - 2024/5/1"))
}

func TestMatcher_InvalidPatternIsStartupError(t *testing.T) {
	_, err := NewMatcher(MatcherConfig{Order: "(unclosed"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "order")
}

func TestMatcher_FirstMatchSortsMemberships(t *testing.T) {
	m, err := NewMatcher(MatcherConfig{})
	require.NoError(t, err)

	// Two date sets on the same item: the lexicographically smaller title
	// must win no matter how the service ordered the memberships.
	memberships := []remote.Membership{
		{CollectionID: "2", Title: "B0 - 2024/06/02"},
		{CollectionID: "3", Title: "A0 - 1F - PASSERIFORMES"},
		{CollectionID: "1", Title: "B0 - 2024/05/01"},
	}
	got, ok := m.FirstMatch(memberships, CategoryDate)
	require.True(t, ok)
	assert.Equal(t, "B0 - 2024/05/01", got)

	reversed := []remote.Membership{memberships[2], memberships[1], memberships[0]}
	got2, _ := m.FirstMatch(reversed, CategoryDate)
	assert.Equal(t, got, got2)

	_, ok = m.FirstMatch(memberships, CategoryCountry)
	assert.False(t, ok)
}
