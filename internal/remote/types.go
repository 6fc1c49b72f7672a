// Package remote defines the photo-service capability the reconciliation
// engine runs against: the data model, the operation surface, and a uniform
// error classification. Implementations live in subpackages; tests use
// in-memory fakes.
package remote

import "time"

// Item is a photo (or similar media record) as the remote service reports it.
// Items are created remotely before this tool ever sees them; the tool only
// adds tags, adjusts descriptions, and places items into collections.
type Item struct {
	ID          string
	Owner       string
	Title       string
	Description string
	Tags        []Tag
	Memberships []Membership
	Uploaded    time.Time
	Taken       time.Time
}

// Tag is a single tag instance on an item. Raw preserves the original
// user-entered form, which for machine tags is "namespace:predicate=value".
type Tag struct {
	ID      string
	Raw     string
	Machine bool
}

// Membership records that an item belongs to a collection.
type Membership struct {
	CollectionID string
	Title        string
}

// Collection is a named, ordered group of items (a "set"/"album").
type Collection struct {
	ID          string
	Title       string
	Description string
	PrimaryID   string
	ItemCount   int
}

// PageInfo is the pagination metadata attached to every paged response. The
// remote service may revise Pages and Total between pages as items are added
// or removed mid-iteration; callers always trust the latest value.
type PageInfo struct {
	Page  int
	Pages int
	Total int
}

// TagMode selects how multiple search tags combine.
type TagMode string

const (
	TagModeAny TagMode = "any"
	TagModeAll TagMode = "all"
)

// SearchFilter scopes an item search. Zero values mean "unconstrained".
type SearchFilter struct {
	Tags           []string
	TagMode        TagMode
	Text           string
	Owner          string
	TakenAfter     time.Time
	TakenBefore    time.Time
	UploadedAfter  time.Time
	UploadedBefore time.Time
}
