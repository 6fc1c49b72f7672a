package reconcile

import (
	"context"
	"fmt"
	"strings"

	"setkeeper/internal/remote"
)

// fakeService is an in-memory remote.Service that records mutations.
type fakeService struct {
	items       []remote.Item
	collections []remote.Collection
	members     map[string][]string // collection id -> member item ids, in add order

	nextID int

	createCalls int
	addCalls    []string // "colID/itemID", duplicates included
	descCalls   int

	failCreate    bool
	transientAdds map[string]int // "colID/itemID" -> transient failures to serve first
}

func newFakeService(items ...remote.Item) *fakeService {
	return &fakeService{
		items:         items,
		members:       make(map[string][]string),
		transientAdds: make(map[string]int),
	}
}

var _ remote.Service = (*fakeService)(nil)

func pageSlice[T any](all []T, page, perPage int) ([]T, remote.PageInfo) {
	total := len(all)
	pages := (total + perPage - 1) / perPage
	info := remote.PageInfo{Page: page, Pages: pages, Total: total}
	start := (page - 1) * perPage
	if start >= total {
		return nil, info
	}
	end := start + perPage
	if end > total {
		end = total
	}
	return all[start:end], info
}

func (f *fakeService) SearchItems(_ context.Context, filter remote.SearchFilter, page, perPage int) ([]remote.Item, remote.PageInfo, error) {
	matched := make([]remote.Item, 0, len(f.items))
	for _, it := range f.items {
		if matchesFilter(it, filter) {
			matched = append(matched, it)
		}
	}
	items, info := pageSlice(matched, page, perPage)
	return items, info, nil
}

func matchesFilter(it remote.Item, filter remote.SearchFilter) bool {
	if len(filter.Tags) == 0 {
		return true
	}
	have := make(map[string]bool, len(it.Tags))
	for _, t := range it.Tags {
		have[t.Raw] = true
	}
	if filter.TagMode == remote.TagModeAll {
		for _, want := range filter.Tags {
			if !have[want] {
				return false
			}
		}
		return true
	}
	for _, want := range filter.Tags {
		if have[want] {
			return true
		}
	}
	return false
}

func (f *fakeService) ListCollections(_ context.Context, page, perPage int) ([]remote.Collection, remote.PageInfo, error) {
	cols, info := pageSlice(f.collections, page, perPage)
	return cols, info, nil
}

func (f *fakeService) GetCollectionItems(_ context.Context, collectionID string, page, perPage int) ([]remote.Item, remote.PageInfo, error) {
	var items []remote.Item
	for _, id := range f.members[collectionID] {
		for _, it := range f.items {
			if it.ID == id {
				items = append(items, it)
			}
		}
	}
	out, info := pageSlice(items, page, perPage)
	return out, info, nil
}

func (f *fakeService) CreateCollection(_ context.Context, title, primaryItemID string) (remote.Collection, error) {
	f.createCalls++
	if f.failCreate {
		return remote.Collection{}, &remote.Error{
			Op: "collection.create", Code: 1, Message: "primary photo not found", Class: remote.ClassPermanent,
		}
	}
	f.nextID++
	col := remote.Collection{
		ID:        fmt.Sprintf("set-%d", f.nextID),
		Title:     title,
		PrimaryID: primaryItemID,
		ItemCount: 1,
	}
	f.collections = append(f.collections, col)
	f.members[col.ID] = []string{primaryItemID}
	return col, nil
}

func (f *fakeService) AddItemToCollection(_ context.Context, collectionID, itemID string) error {
	key := collectionID + "/" + itemID
	f.addCalls = append(f.addCalls, key)

	if n := f.transientAdds[key]; n > 0 {
		f.transientAdds[key] = n - 1
		return &remote.Error{Op: "collection.add", Code: 105, Message: "service unavailable", Class: remote.ClassTransient}
	}
	for _, id := range f.members[collectionID] {
		if id == itemID {
			return &remote.Error{Op: "collection.add", Code: 3, Message: "photo already in set", Class: remote.ClassBenign}
		}
	}
	f.members[collectionID] = append(f.members[collectionID], itemID)
	return nil
}

func (f *fakeService) AddTags(_ context.Context, itemID string, tags []string) error {
	for i := range f.items {
		if f.items[i].ID != itemID {
			continue
		}
		for _, raw := range tags {
			f.items[i].Tags = append(f.items[i].Tags, remote.Tag{
				ID:      itemID + "/" + raw,
				Raw:     raw,
				Machine: strings.Contains(raw, "="),
			})
		}
		return nil
	}
	return &remote.Error{Op: "tags.add", Code: 1, Message: "photo not found", Class: remote.ClassPermanent}
}

func (f *fakeService) RemoveTag(_ context.Context, tagID string) error {
	for i := range f.items {
		for j, tag := range f.items[i].Tags {
			if tag.ID == tagID {
				f.items[i].Tags = append(f.items[i].Tags[:j], f.items[i].Tags[j+1:]...)
				return nil
			}
		}
	}
	return &remote.Error{Op: "tags.remove", Code: 1, Message: "tag not found", Class: remote.ClassPermanent}
}

func (f *fakeService) SetItemDescription(_ context.Context, itemID, _, description string) error {
	f.descCalls++
	for i := range f.items {
		if f.items[i].ID == itemID {
			f.items[i].Description = description
			return nil
		}
	}
	return &remote.Error{Op: "item.describe", Code: 1, Message: "photo not found", Class: remote.ClassPermanent}
}

func (f *fakeService) SetCollectionDescription(_ context.Context, collectionID, _, description string) error {
	f.descCalls++
	for i := range f.collections {
		if f.collections[i].ID == collectionID {
			f.collections[i].Description = description
			return nil
		}
	}
	return &remote.Error{Op: "collection.describe", Code: 1, Message: "set not found", Class: remote.ClassPermanent}
}

func (f *fakeService) GetItemTags(_ context.Context, itemID string) ([]remote.Tag, error) {
	for _, it := range f.items {
		if it.ID == itemID {
			return append([]remote.Tag(nil), it.Tags...), nil
		}
	}
	return nil, &remote.Error{Op: "tags.list", Code: 1, Message: "photo not found", Class: remote.ClassPermanent}
}

func (f *fakeService) GetItemCollections(_ context.Context, itemID string) ([]remote.Membership, error) {
	var out []remote.Membership
	for _, col := range f.collections {
		for _, id := range f.members[col.ID] {
			if id == itemID {
				out = append(out, remote.Membership{CollectionID: col.ID, Title: col.Title})
			}
		}
	}
	return out, nil
}

// memberSet returns the member ids of the collection with the given title.
func (f *fakeService) memberSet(title string) []string {
	for _, col := range f.collections {
		if col.Title == title {
			return f.members[col.ID]
		}
	}
	return nil
}
