package flickrapi

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"gopkg.in/masci/flickr.v3"

	"setkeeper/internal/remote"
)

const takenLayout = "2006-01-02 15:04:05"

type searchResponse struct {
	flickr.BasicResponse
	Photos struct {
		Page  int           `xml:"page,attr"`
		Pages int           `xml:"pages,attr"`
		Total int           `xml:"total,attr"`
		Photo []searchPhoto `xml:"photo"`
	} `xml:"photos"`
}

type searchPhoto struct {
	ID          string `xml:"id,attr"`
	Owner       string `xml:"owner,attr"`
	Title       string `xml:"title,attr"`
	Tags        string `xml:"tags,attr"`
	DateTaken   string `xml:"datetaken,attr"`
	DateUpload  string `xml:"dateupload,attr"`
	Description struct {
		Text string `xml:",chardata"`
	} `xml:"description"`
}

// SearchItems runs flickr.photos.search scoped to the configured user,
// sorted by capture time so page order is stable across runs.
func (c *Client) SearchItems(ctx context.Context, filter remote.SearchFilter, page, perPage int) ([]remote.Item, remote.PageInfo, error) {
	args := map[string]string{
		"user_id":  c.userID,
		"page":     strconv.Itoa(page),
		"per_page": strconv.Itoa(perPage),
		"extras":   "description,date_upload,date_taken,tags",
		"sort":     "date-taken-asc",
	}
	if filter.Owner != "" {
		args["user_id"] = filter.Owner
	}
	if len(filter.Tags) > 0 {
		args["tags"] = strings.Join(filter.Tags, ",")
		mode := "any"
		if filter.TagMode == remote.TagModeAll {
			mode = "all"
		}
		args["tag_mode"] = mode
	}
	if filter.Text != "" {
		args["text"] = filter.Text
	}
	if !filter.TakenAfter.IsZero() {
		args["min_taken_date"] = filter.TakenAfter.Format(takenLayout)
	}
	if !filter.TakenBefore.IsZero() {
		args["max_taken_date"] = filter.TakenBefore.Format(takenLayout)
	}
	if !filter.UploadedAfter.IsZero() {
		args["min_upload_date"] = strconv.FormatInt(filter.UploadedAfter.Unix(), 10)
	}
	if !filter.UploadedBefore.IsZero() {
		args["max_upload_date"] = strconv.FormatInt(filter.UploadedBefore.Unix(), 10)
	}

	resp := &searchResponse{}
	if err := c.call(ctx, "items.search", "flickr.photos.search", args, resp, false); err != nil {
		return nil, remote.PageInfo{}, err
	}

	items := make([]remote.Item, 0, len(resp.Photos.Photo))
	for _, p := range resp.Photos.Photo {
		items = append(items, parseSearchPhoto(p))
	}
	info := remote.PageInfo{
		Page:  resp.Photos.Page,
		Pages: resp.Photos.Pages,
		Total: resp.Photos.Total,
	}
	return items, info, nil
}

func parseSearchPhoto(p searchPhoto) remote.Item {
	it := remote.Item{
		ID:          p.ID,
		Owner:       p.Owner,
		Title:       p.Title,
		Description: p.Description.Text,
	}
	if p.DateTaken != "" {
		if taken, err := time.Parse(takenLayout, p.DateTaken); err == nil {
			it.Taken = taken
		}
	}
	if p.DateUpload != "" {
		if secs, err := strconv.ParseInt(p.DateUpload, 10, 64); err == nil {
			it.Uploaded = time.Unix(secs, 0)
		}
	}
	// The search extras carry tags space-separated without instance ids.
	// Callers needing removable tag instances go through GetItemTags.
	for _, raw := range strings.Fields(p.Tags) {
		it.Tags = append(it.Tags, remote.Tag{
			Raw:     raw,
			Machine: strings.Contains(raw, ":") && strings.Contains(raw, "="),
		})
	}
	return it
}

// AddTags runs flickr.photos.addTags. Tags containing spaces are quoted so
// the service keeps them whole; re-adding an existing tag is a server-side
// no-op.
func (c *Client) AddTags(ctx context.Context, itemID string, tags []string) error {
	quoted := make([]string, len(tags))
	for i, t := range tags {
		if strings.Contains(t, " ") {
			t = `"` + t + `"`
		}
		quoted[i] = t
	}
	resp := &flickr.BasicResponse{}
	return c.call(ctx, "tags.add", "flickr.photos.addTags", map[string]string{
		"photo_id": itemID,
		"tags":     strings.Join(quoted, " "),
	}, resp, true)
}

// RemoveTag runs flickr.photos.removeTag on one tag instance. A tag the
// service no longer knows counts as already removed.
func (c *Client) RemoveTag(ctx context.Context, tagID string) error {
	resp := &flickr.BasicResponse{}
	err := c.call(ctx, "tags.remove", "flickr.photos.removeTag", map[string]string{
		"tag_id": tagID,
	}, resp, true)

	var re *remote.Error
	if errors.As(err, &re) && re.Code == 1 {
		return &remote.Error{Op: re.Op, Code: re.Code, Message: re.Message, Class: remote.ClassBenign}
	}
	return err
}

type photoTagsResponse struct {
	flickr.BasicResponse
	Photo struct {
		Tags struct {
			Tag []struct {
				ID      string `xml:"id,attr"`
				Raw     string `xml:"raw,attr"`
				Machine int    `xml:"machine_tag,attr"`
			} `xml:"tag"`
		} `xml:"tags"`
	} `xml:"photo"`
}

// GetItemTags runs flickr.tags.getListPhoto, returning tag instances with
// the ids RemoveTag needs.
func (c *Client) GetItemTags(ctx context.Context, itemID string) ([]remote.Tag, error) {
	resp := &photoTagsResponse{}
	err := c.call(ctx, "tags.list", "flickr.tags.getListPhoto", map[string]string{
		"photo_id": itemID,
	}, resp, false)
	if err != nil {
		return nil, err
	}

	tags := make([]remote.Tag, 0, len(resp.Photo.Tags.Tag))
	for _, t := range resp.Photo.Tags.Tag {
		tags = append(tags, remote.Tag{ID: t.ID, Raw: t.Raw, Machine: t.Machine == 1})
	}
	return tags, nil
}

type allContextsResponse struct {
	flickr.BasicResponse
	Sets []struct {
		ID    string `xml:"id,attr"`
		Title string `xml:"title,attr"`
	} `xml:"set"`
}

// GetItemCollections runs flickr.photos.getAllContexts. Pool memberships are
// ignored; only sets participate in description blocks.
func (c *Client) GetItemCollections(ctx context.Context, itemID string) ([]remote.Membership, error) {
	resp := &allContextsResponse{}
	err := c.call(ctx, "item.collections", "flickr.photos.getAllContexts", map[string]string{
		"photo_id": itemID,
	}, resp, false)
	if err != nil {
		return nil, err
	}

	out := make([]remote.Membership, 0, len(resp.Sets))
	for _, s := range resp.Sets {
		out = append(out, remote.Membership{CollectionID: s.ID, Title: s.Title})
	}
	return out, nil
}

// SetItemDescription runs flickr.photos.setMeta. The call replaces title and
// description together, so the caller passes the current title through.
func (c *Client) SetItemDescription(ctx context.Context, itemID, title, description string) error {
	resp := &flickr.BasicResponse{}
	return c.call(ctx, "item.describe", "flickr.photos.setMeta", map[string]string{
		"photo_id":    itemID,
		"title":       title,
		"description": description,
	}, resp, true)
}
