package reconcile

import (
	"fmt"
	"strings"

	"setkeeper/internal/keys"
	"setkeeper/internal/remote"
)

// Delimiters of the managed description block. Text outside them belongs to
// the account owner and is never modified.
const (
	BlockStart = "[[setkeeper]]"
	BlockEnd   = "[[/setkeeper]]"
)

var categoryLabels = map[keys.Category]string{
	keys.CategoryCountry: "Country",
	keys.CategoryOrder:   "Order",
	keys.CategoryFamily:  "Family",
	keys.CategorySpecies: "Species",
	keys.CategoryDate:    "Date",
}

// itemBlockBody renders the managed block for an item from its collection
// memberships: one line per matched category, first match per category wins
// (memberships sorted by title, so the winner is deterministic). Returns ""
// when nothing matched.
func itemBlockBody(m *keys.Matcher, memberships []remote.Membership) string {
	var lines []string
	for _, cat := range keys.Categories {
		title, ok := m.FirstMatch(memberships, cat)
		if !ok {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s", categoryLabels[cat], title))
	}
	if len(lines) == 0 {
		return ""
	}
	return "\n" + strings.Join(lines, "\n") + "\n"
}

// collectionBlockBody renders the managed block for a collection.
func collectionBlockBody(title string, itemCount int) string {
	noun := "photos"
	if itemCount == 1 {
		noun = "photo"
	}
	return fmt.Sprintf("\n%d %s grouped under %s. Maintained by setkeeper.\n", itemCount, noun, title)
}
