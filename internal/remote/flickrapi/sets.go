package flickrapi

import (
	"context"

	"gopkg.in/masci/flickr.v3"
	"gopkg.in/masci/flickr.v3/photosets"

	"setkeeper/internal/remote"
)

// listUserID maps the "me" placeholder to the empty string the photosets
// helpers expect for the authenticated user.
func (c *Client) listUserID() string {
	if c.userID == "me" {
		return ""
	}
	return c.userID
}

// ListCollections runs flickr.photosets.getList. The page size is fixed by
// the service; perPage is accepted for interface symmetry and ignored.
func (c *Client) ListCollections(ctx context.Context, page, _ int) ([]remote.Collection, remote.PageInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, remote.PageInfo{}, err
	}

	resp, err := photosets.GetList(c.fc, true, c.listUserID(), page)
	if werr := c.wrap("collections.list", resp, err); werr != nil {
		return nil, remote.PageInfo{}, werr
	}

	cols := make([]remote.Collection, 0, len(resp.Photosets.Items))
	for _, ps := range resp.Photosets.Items {
		cols = append(cols, remote.Collection{
			ID:          ps.Id,
			Title:       ps.Title,
			Description: ps.Description,
			PrimaryID:   ps.Primary,
			ItemCount:   ps.Photos,
		})
	}
	info := remote.PageInfo{
		Page:  resp.Photosets.Page,
		Pages: resp.Photosets.Pages,
		Total: resp.Photosets.Total,
	}
	return cols, info, nil
}

// GetCollectionItems runs flickr.photosets.getPhotos.
func (c *Client) GetCollectionItems(ctx context.Context, collectionID string, page, _ int) ([]remote.Item, remote.PageInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, remote.PageInfo{}, err
	}

	resp, err := photosets.GetPhotos(c.fc, true, collectionID, c.listUserID(), page)
	if werr := c.wrap("collection.items", resp, err); werr != nil {
		return nil, remote.PageInfo{}, werr
	}

	items := make([]remote.Item, 0, len(resp.Photoset.Photos))
	for _, p := range resp.Photoset.Photos {
		items = append(items, remote.Item{ID: p.Id, Title: p.Title})
	}
	info := remote.PageInfo{
		Page:  resp.Photoset.Page,
		Pages: resp.Photoset.Pages,
		Total: resp.Photoset.Total,
	}
	return items, info, nil
}

// CreateCollection runs flickr.photosets.create. The service demands a
// primary photo at creation time, which is why the reconciler seeds every
// new set with its group's first item.
func (c *Client) CreateCollection(ctx context.Context, title, primaryItemID string) (remote.Collection, error) {
	if err := ctx.Err(); err != nil {
		return remote.Collection{}, err
	}

	resp, err := photosets.Create(c.fc, title, "", primaryItemID)
	if werr := c.wrap("collection.create", resp, err); werr != nil {
		return remote.Collection{}, werr
	}

	return remote.Collection{
		ID:        resp.Set.Id,
		Title:     title,
		PrimaryID: primaryItemID,
		ItemCount: 1,
	}, nil
}

// AddItemToCollection runs flickr.photosets.addPhoto. Duplicate adds come
// back classified benign and match remote.ErrAlreadyMember.
func (c *Client) AddItemToCollection(ctx context.Context, collectionID, itemID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	resp, err := photosets.AddPhoto(c.fc, collectionID, itemID)
	return c.wrap("collection.add", resp, err)
}

// SetCollectionDescription runs flickr.photosets.editMeta, which replaces
// title and description together.
func (c *Client) SetCollectionDescription(ctx context.Context, collectionID, title, description string) error {
	resp := &flickr.BasicResponse{}
	return c.call(ctx, "collection.describe", "flickr.photosets.editMeta", map[string]string{
		"photoset_id": collectionID,
		"title":       title,
		"description": description,
	}, resp, true)
}
