package remote

import "context"

// Service is the abstract capability the reconciliation core needs from the
// photo host. All operations are blocking and honor ctx cancellation between
// network attempts. Failures are *Error values carrying a Class; benign
// duplicates (already-member, already-tagged) surface as ClassBenign errors
// so callers can normalize them to success.
type Service interface {
	// SearchItems returns one page of items matching the filter.
	SearchItems(ctx context.Context, filter SearchFilter, page, perPage int) ([]Item, PageInfo, error)

	// ListCollections returns one page of the account's collections.
	ListCollections(ctx context.Context, page, perPage int) ([]Collection, PageInfo, error)

	// GetCollectionItems returns one page of a collection's members.
	GetCollectionItems(ctx context.Context, collectionID string, page, perPage int) ([]Item, PageInfo, error)

	// CreateCollection creates a collection seeded with the mandatory
	// primary item and returns the created record.
	CreateCollection(ctx context.Context, title, primaryItemID string) (Collection, error)

	// AddItemToCollection adds an item to a collection. A duplicate add
	// returns an error matching ErrAlreadyMember.
	AddItemToCollection(ctx context.Context, collectionID, itemID string) error

	// AddTags adds tags to an item. Adding an existing tag is benign.
	AddTags(ctx context.Context, itemID string, tags []string) error

	// RemoveTag removes a single tag instance by its instance ID.
	RemoveTag(ctx context.Context, tagID string) error

	// SetItemDescription replaces an item's description. The service
	// requires the title alongside, so callers pass the current one.
	SetItemDescription(ctx context.Context, itemID, title, description string) error

	// SetCollectionDescription replaces a collection's description.
	SetCollectionDescription(ctx context.Context, collectionID, title, description string) error

	// GetItemTags returns every tag instance on an item.
	GetItemTags(ctx context.Context, itemID string) ([]Tag, error)

	// GetItemCollections returns the collections an item belongs to.
	GetItemCollections(ctx context.Context, itemID string) ([]Membership, error)
}
