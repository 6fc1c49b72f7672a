package keys

import (
	"fmt"
	"strconv"
	"time"

	"setkeeper/internal/remote"
)

// Key templates. The letter-digit prefix orders the generated sets ahead of
// hand-made ones in an alphabetical set listing.
const (
	datePrefix   = "B0"
	orderPrefix  = "A0"
	familyPrefix = "A1"
)

// DateKeyPrefix is the template prefix shared by every date grouping key.
// Date sets in the wild often carry a trailing place name ("B0 - 2024/05/01
// Okavango"); resolvers use this prefix to match them against the bare key.
const DateKeyPrefix = datePrefix + " - "

// Predicates selects which machine-tag predicates carry each attribute.
// Namespaces are intentionally not constrained: the tagging convention has
// changed namespace across list revisions (e.g. ioc151) while keeping the
// predicates stable.
type Predicates struct {
	Sequence   string `yaml:"sequence"`
	OrderNum   string `yaml:"order_num"`
	OrderName  string `yaml:"order_name"`
	FamilyCode string `yaml:"family_code"`
	FamilyName string `yaml:"family_name"`
}

// DefaultPredicates returns the tagging convention's predicate names.
func DefaultPredicates() Predicates {
	return Predicates{
		Sequence:   "seq",
		OrderNum:   "ordernum",
		OrderName:  "order",
		FamilyCode: "familycode",
		FamilyName: "family",
	}
}

func (p Predicates) normalized() Predicates {
	d := DefaultPredicates()
	if p.Sequence == "" {
		p.Sequence = d.Sequence
	}
	if p.OrderNum == "" {
		p.OrderNum = d.OrderNum
	}
	if p.OrderName == "" {
		p.OrderName = d.OrderName
	}
	if p.FamilyCode == "" {
		p.FamilyCode = d.FamilyCode
	}
	if p.FamilyName == "" {
		p.FamilyName = d.FamilyName
	}
	return p
}

// Extractor maps an item's metadata to zero or more grouping keys.
type Extractor struct {
	preds Predicates
}

// NewExtractor builds an Extractor; zero-value predicate fields fall back to
// the defaults.
func NewExtractor(preds Predicates) *Extractor {
	return &Extractor{preds: preds.normalized()}
}

// tagValue returns the first machine-tag value with the given predicate,
// scanning tags in their stored order.
func (e *Extractor) tagValue(item remote.Item, predicate string) (string, bool) {
	for _, t := range item.Tags {
		mt, ok := ParseMachineTag(t.Raw)
		if !ok {
			continue
		}
		if mt.Predicate == predicate {
			return mt.Value, true
		}
	}
	return "", false
}

// Sequence returns the item's capture-sequence number from its machine tags.
func (e *Extractor) Sequence(item remote.Item) (int, bool) {
	v, ok := e.tagValue(item, e.preds.Sequence)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// DateKey derives the calendar-date grouping key from the date-taken
// attribute: "B0 - 2024/05/01". Items without a taken timestamp yield no key.
func (e *Extractor) DateKey(item remote.Item) (string, bool) {
	if item.Taken.IsZero() {
		return "", false
	}
	return FormatDateKey(item.Taken), true
}

// DateSequence derives the compound (date, sequence) key: the date key plus
// the sequence number. Both parts must be present and well-formed.
func (e *Extractor) DateSequence(item remote.Item) (date string, seq int, ok bool) {
	date, ok = e.DateKey(item)
	if !ok {
		return "", 0, false
	}
	seq, ok = e.Sequence(item)
	if !ok {
		return "", 0, false
	}
	return date, seq, true
}

// OrderKey derives the taxonomic-order grouping key from the order-number
// and order-name machine tags: "A0 - 1F - PASSERIFORMES". An unparseable
// order number or a missing name skips the key.
func (e *Extractor) OrderKey(item remote.Item) (string, bool) {
	numRaw, ok := e.tagValue(item, e.preds.OrderNum)
	if !ok {
		return "", false
	}
	name, ok := e.tagValue(item, e.preds.OrderName)
	if !ok || name == "" {
		return "", false
	}
	num, err := strconv.Atoi(numRaw)
	if err != nil || num < 0 || num > 0xFF {
		return "", false
	}
	return FormatOrderKey(num, name), true
}

// FamilyKey derives the taxonomic-family grouping key from the family-code
// and family-name machine tags: "A1 - 1F - Corvidae". The code is used
// verbatim.
func (e *Extractor) FamilyKey(item remote.Item) (string, bool) {
	code, ok := e.tagValue(item, e.preds.FamilyCode)
	if !ok || code == "" {
		return "", false
	}
	name, ok := e.tagValue(item, e.preds.FamilyName)
	if !ok || name == "" {
		return "", false
	}
	return FormatFamilyKey(code, name), true
}

// FormatDateKey formats a taken timestamp as a date grouping key.
func FormatDateKey(taken time.Time) string {
	return fmt.Sprintf("%s - %s", datePrefix, taken.Format("2006/01/02"))
}

// FormatOrderKey formats an order number and name as an order grouping key.
// The number renders as two-digit uppercase hex.
func FormatOrderKey(num int, name string) string {
	return fmt.Sprintf("%s - %02X - %s", orderPrefix, num, name)
}

// FormatFamilyKey formats a family hex code (verbatim) and family name.
func FormatFamilyKey(code, name string) string {
	return fmt.Sprintf("%s - %s - %s", familyPrefix, code, name)
}
