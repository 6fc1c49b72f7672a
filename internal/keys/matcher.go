package keys

import (
	"fmt"
	"regexp"
	"sort"

	"setkeeper/internal/remote"
)

// Category names a class of collection title the matcher can recognize.
type Category string

const (
	CategoryCountry Category = "country"
	CategoryOrder   Category = "order"
	CategoryFamily  Category = "family"
	CategorySpecies Category = "species"
	CategoryDate    Category = "date"
)

// Categories lists every category in the order description blocks render
// them.
var Categories = []Category{
	CategoryCountry,
	CategoryOrder,
	CategoryFamily,
	CategorySpecies,
	CategoryDate,
}

// MatcherConfig holds one pattern per category. Empty fields fall back to the
// defaults; a pattern that fails to compile is a startup error.
type MatcherConfig struct {
	Country string `yaml:"country"`
	Order   string `yaml:"order"`
	Family  string `yaml:"family"`
	Species string `yaml:"species"`
	Date    string `yaml:"date"`
}

// Default patterns follow the generated key templates, plus the binomial
// shape for hand-named species sets.
const (
	defaultCountryPattern = `^C0 - .+$`
	defaultOrderPattern   = `^A0 - [0-9A-F]{2} - .+$`
	defaultFamilyPattern  = `^A1 - [0-9A-F]{2}(?:\.[0-9]+)? - .+$`
	defaultSpeciesPattern = `^[A-Z][a-z]+ [a-z]+(?: [a-z]+)?$`
	defaultDatePattern    = `^B0 - [0-9]{4}/[0-9]{2}/[0-9]{2}$`
)

// Matcher classifies collection titles into categories.
type Matcher struct {
	patterns map[Category]*regexp.Regexp
}

// NewMatcher compiles the configured patterns. Compilation failures abort
// before any remote call is made.
func NewMatcher(cfg MatcherConfig) (*Matcher, error) {
	raw := map[Category]string{
		CategoryCountry: orDefault(cfg.Country, defaultCountryPattern),
		CategoryOrder:   orDefault(cfg.Order, defaultOrderPattern),
		CategoryFamily:  orDefault(cfg.Family, defaultFamilyPattern),
		CategorySpecies: orDefault(cfg.Species, defaultSpeciesPattern),
		CategoryDate:    orDefault(cfg.Date, defaultDatePattern),
	}

	patterns := make(map[Category]*regexp.Regexp, len(raw))
	for cat, pat := range raw {
		re, err := regexp.Compile(pat)
		if err != nil {
			return nil, fmt.Errorf("invalid %s pattern %q: %w", cat, pat, err)
		}
		patterns[cat] = re
	}
	return &Matcher{patterns: patterns}, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// Match reports whether title belongs to the category.
func (m *Matcher) Match(cat Category, title string) bool {
	re, ok := m.patterns[cat]
	return ok && re.MatchString(title)
}

// FirstMatch returns the first membership title matching the category.
// Memberships are sorted lexicographically by title before matching, so the
// result is deterministic regardless of the order the service returned them
// in.
func (m *Matcher) FirstMatch(memberships []remote.Membership, cat Category) (string, bool) {
	titles := make([]string, 0, len(memberships))
	for _, ms := range memberships {
		titles = append(titles, ms.Title)
	}
	sort.Strings(titles)

	for _, title := range titles {
		if m.Match(cat, title) {
			return title, true
		}
	}
	return "", false
}
