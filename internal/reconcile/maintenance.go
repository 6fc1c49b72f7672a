package reconcile

import (
	"context"
	"fmt"
	"regexp"

	"go.uber.org/zap"

	"setkeeper/internal/keys"
	"setkeeper/internal/paging"
	"setkeeper/internal/remote"
	"setkeeper/internal/retry"
	"setkeeper/internal/textblock"
)

// Maintenance flows: bulk tagging, tag pruning and description refreshes.
// They share the engine's retrier, pager and summary conventions with the
// reconciliation run.

// mergeCollectionBlock refreshes the managed block on a collection
// description, skipping the remote write when the merge changes nothing.
func (e *Engine) mergeCollectionBlock(ctx context.Context, col remote.Collection, title string, itemCount int, sum *RunSummary) {
	body := collectionBlockBody(title, itemCount)
	merged := textblock.Merge(col.Description, BlockStart, BlockEnd, body)
	if merged == col.Description {
		sum.TextUnchanged++
		return
	}
	if e.dryRun {
		sum.TextUpdated++
		return
	}
	err := e.retrier.Do(ctx, "collection.describe", func() error {
		return e.svc.SetCollectionDescription(ctx, col.ID, col.Title, merged)
	})
	if err != nil {
		e.log.Warn("collection description update failed",
			zap.String("collection", col.ID), zap.Error(err))
		sum.Failed++
		return
	}
	sum.TextUpdated++
}

// BulkTag adds tags to every item matching the filter. The service treats
// re-adding an existing tag as a no-op, so repeat runs are safe.
func (e *Engine) BulkTag(ctx context.Context, filter remote.SearchFilter, tags []string) (*RunSummary, error) {
	if len(tags) == 0 {
		return nil, fmt.Errorf("no tags given")
	}

	sum := newSummary()
	err := e.itemPager.Each(ctx, "items.search", e.searchFetch(filter), func(it remote.Item) error {
		sum.Processed++
		if e.dryRun {
			sum.TagsAdded += len(tags)
			return nil
		}
		err := e.retrier.Do(ctx, "tags.add", func() error {
			return e.svc.AddTags(ctx, it.ID, tags)
		})
		switch {
		case err == nil, remote.IsBenign(err):
			sum.TagsAdded += len(tags)
		default:
			e.log.Warn("tag add failed", zap.String("item", it.ID), zap.Error(err))
			sum.Failed++
		}
		return nil
	})
	sum.finish()
	e.log.Info("bulk tag complete", zap.String("summary", sum.String()))
	if err != nil {
		return sum, fmt.Errorf("search items: %w", err)
	}
	return sum, nil
}

// PruneTags removes every tag instance whose raw form matches pattern from
// the items matching the filter. An invalid pattern fails before any remote
// call.
func (e *Engine) PruneTags(ctx context.Context, filter remote.SearchFilter, pattern string) (*RunSummary, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid tag pattern %q: %w", pattern, err)
	}

	sum := newSummary()
	walkErr := e.itemPager.Each(ctx, "items.search", e.searchFetch(filter), func(it remote.Item) error {
		sum.Processed++

		tags, err := retry.Do(ctx, e.retrier, "tags.list", func() ([]remote.Tag, error) {
			return e.svc.GetItemTags(ctx, it.ID)
		})
		if err != nil {
			e.log.Warn("tag listing failed", zap.String("item", it.ID), zap.Error(err))
			sum.Failed++
			return nil
		}

		for _, tag := range tags {
			if !re.MatchString(tag.Raw) {
				continue
			}
			if e.dryRun {
				sum.TagsRemoved++
				continue
			}
			err := e.retrier.Do(ctx, "tags.remove", func() error {
				return e.svc.RemoveTag(ctx, tag.ID)
			})
			switch {
			case err == nil, remote.IsBenign(err):
				sum.TagsRemoved++
			default:
				e.log.Warn("tag removal failed",
					zap.String("item", it.ID), zap.String("tag", tag.Raw), zap.Error(err))
				sum.Failed++
			}
		}
		return nil
	})
	sum.finish()
	e.log.Info("tag prune complete", zap.String("summary", sum.String()))
	if walkErr != nil {
		return sum, fmt.Errorf("search items: %w", walkErr)
	}
	return sum, nil
}

// DescribeItems refreshes the managed description block on every item
// matching the filter, built from the item's collection memberships. Items
// whose memberships match no category are skipped; unchanged merges skip the
// remote write.
func (e *Engine) DescribeItems(ctx context.Context, filter remote.SearchFilter) (*RunSummary, error) {
	sum := newSummary()
	walkErr := e.itemPager.Each(ctx, "items.search", e.searchFetch(filter), func(it remote.Item) error {
		sum.Processed++

		memberships, err := retry.Do(ctx, e.retrier, "item.collections", func() ([]remote.Membership, error) {
			return e.svc.GetItemCollections(ctx, it.ID)
		})
		if err != nil {
			e.log.Warn("membership listing failed", zap.String("item", it.ID), zap.Error(err))
			sum.Failed++
			return nil
		}

		body := itemBlockBody(e.match, memberships)
		if body == "" {
			sum.Skipped++
			return nil
		}

		merged := textblock.Merge(it.Description, BlockStart, BlockEnd, body)
		if merged == it.Description {
			sum.TextUnchanged++
			return nil
		}
		if e.dryRun {
			sum.TextUpdated++
			return nil
		}

		err = e.retrier.Do(ctx, "item.describe", func() error {
			return e.svc.SetItemDescription(ctx, it.ID, it.Title, merged)
		})
		if err != nil {
			e.log.Warn("item description update failed", zap.String("item", it.ID), zap.Error(err))
			sum.Failed++
			return nil
		}
		sum.TextUpdated++
		return nil
	})
	sum.finish()
	e.log.Info("describe items complete", zap.String("summary", sum.String()))
	if walkErr != nil {
		return sum, fmt.Errorf("search items: %w", walkErr)
	}
	return sum, nil
}

// DescribeCollections refreshes the managed block on every generated-key
// collection (order, family and date sets).
func (e *Engine) DescribeCollections(ctx context.Context) (*RunSummary, error) {
	sum := newSummary()

	resolver := e.newResolver()
	if err := e.seedResolver(ctx, resolver); err != nil {
		sum.finish()
		return sum, fmt.Errorf("seed collection cache: %w", err)
	}

	for _, col := range resolver.Known() {
		if !e.generatedTitle(col.Title) {
			continue
		}
		sum.Processed++
		e.mergeCollectionBlock(ctx, col, col.Title, col.ItemCount, sum)
	}

	e.writeBackCache(ctx, resolver)
	sum.finish()
	e.log.Info("describe collections complete", zap.String("summary", sum.String()))
	return sum, nil
}

// ListCollections seeds from the live listing and returns every known
// collection sorted by title, refreshing the on-disk cache as a side effect.
func (e *Engine) ListCollections(ctx context.Context) ([]remote.Collection, error) {
	resolver := e.newResolver()
	if err := resolver.Seed(ctx); err != nil {
		return nil, err
	}
	e.writeBackCache(ctx, resolver)
	return resolver.Known(), nil
}

// CollectionItems returns every member of a collection, in set order.
func (e *Engine) CollectionItems(ctx context.Context, collectionID string) ([]remote.Item, error) {
	fetch := func(ctx context.Context, page, perPage int) ([]remote.Item, remote.PageInfo, error) {
		return e.svc.GetCollectionItems(ctx, collectionID, page, perPage)
	}
	return paging.Collect(ctx, e.itemPager, "collection.items", fetch)
}

func (e *Engine) searchFetch(filter remote.SearchFilter) func(context.Context, int, int) ([]remote.Item, remote.PageInfo, error) {
	return func(ctx context.Context, page, perPage int) ([]remote.Item, remote.PageInfo, error) {
		return e.svc.SearchItems(ctx, filter, page, perPage)
	}
}

// generatedTitle reports whether a collection title follows one of the
// generated key templates. Hand-made sets never get a managed block pushed
// onto them.
func (e *Engine) generatedTitle(title string) bool {
	for _, cat := range []keys.Category{keys.CategoryOrder, keys.CategoryFamily, keys.CategoryDate} {
		if e.match.Match(cat, title) {
			return true
		}
	}
	return false
}
