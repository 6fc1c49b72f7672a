// Package reconcile is the idempotent engine that makes remote state match
// the state derived from item metadata: collections exist for every grouping
// key, items are members of the right collections, and managed description
// blocks are current. Re-running against unchanged inputs performs no writes.
package reconcile

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"setkeeper/internal/paging"
	"setkeeper/internal/remote"
	"setkeeper/internal/retry"
)

// Resolver maps desired collection titles to remote collections, creating
// them on demand. One Resolver serves one run; its cache guarantees at most
// one create call per normalized title per run.
type Resolver struct {
	svc       remote.Service
	retrier   *retry.Retrier
	pager     *paging.Pager[remote.Collection]
	log       *zap.Logger
	normalize func(string) string

	cache   map[string]remote.Collection
	created int
}

// ResolverOption customizes a Resolver.
type ResolverOption func(*Resolver)

// WithNormalizer replaces title normalization. The default is identity:
// exact-title reconciliation.
func WithNormalizer(fn func(string) string) ResolverOption {
	return func(r *Resolver) { r.normalize = fn }
}

// PrefixNormalizer returns a normalizer for shorthand flows: a title starting
// with prefix is truncated to the prefix plus the first following word, so
// "B0 - 2024/05/01 favorites" and "B0 - 2024/05/01" resolve identically.
// Titles without the prefix pass through untouched.
func PrefixNormalizer(prefix string) func(string) string {
	return func(title string) string {
		if !strings.HasPrefix(title, prefix) {
			return title
		}
		rest := title[len(prefix):]
		if i := strings.IndexByte(rest, ' '); i >= 0 {
			rest = rest[:i]
		}
		return prefix + rest
	}
}

// NewResolver builds a Resolver.
func NewResolver(svc remote.Service, retrier *retry.Retrier, pageSize int, log *zap.Logger, opts ...ResolverOption) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Resolver{
		svc:       svc,
		retrier:   retrier,
		pager:     paging.New[remote.Collection](pageSize, retrier, log),
		log:       log,
		normalize: func(s string) string { return s },
		cache:     make(map[string]remote.Collection),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SeedEntry primes the cache with one known collection, e.g. from the
// on-disk cache of a previous run. Later seeds overwrite earlier ones.
func (r *Resolver) SeedEntry(c remote.Collection) {
	r.cache[r.normalize(c.Title)] = c
}

// Seed populates the cache from a full paginated listing of the account's
// collections. Live data overwrites anything pre-seeded.
func (r *Resolver) Seed(ctx context.Context) error {
	count := 0
	err := r.pager.Each(ctx, "collections.list", r.svc.ListCollections, func(c remote.Collection) error {
		r.cache[r.normalize(c.Title)] = c
		count++
		return nil
	})
	if err != nil {
		return err
	}
	r.log.Info("seeded collection cache", zap.Int("collections", count))
	return nil
}

// Lookup returns the cached collection for title, if any.
func (r *Resolver) Lookup(title string) (remote.Collection, bool) {
	c, ok := r.cache[r.normalize(title)]
	return c, ok
}

// Known returns every cached collection, sorted by title.
func (r *Resolver) Known() []remote.Collection {
	out := make([]remote.Collection, 0, len(r.cache))
	for _, c := range r.cache {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out
}

// Created returns how many collections this resolver created.
func (r *Resolver) Created() int { return r.created }

// IsNoop reports whether c is the sentinel returned when creation failed.
// Callers skip membership work on a no-op collection instead of aborting.
func IsNoop(c remote.Collection) bool { return c.ID == "" }

// Resolve returns the collection for title, creating it (seeded with the
// mandatory primary item) when absent. The second return reports whether a
// create happened this call. On creation failure the sentinel no-op
// collection is returned; the failure is logged, never propagated, so one
// bad key cannot sink the batch.
func (r *Resolver) Resolve(ctx context.Context, title, primaryItemID string) (remote.Collection, bool) {
	norm := r.normalize(title)
	if c, ok := r.cache[norm]; ok {
		return c, false
	}

	c, err := retry.Do(ctx, r.retrier, "collection.create", func() (remote.Collection, error) {
		return r.svc.CreateCollection(ctx, title, primaryItemID)
	})
	if err != nil {
		r.log.Error("create collection failed, skipping its items",
			zap.String("title", title),
			zap.String("primary", primaryItemID),
			zap.Error(err))
		return remote.Collection{}, false
	}

	r.cache[norm] = c
	r.created++
	r.log.Info("created collection",
		zap.String("id", c.ID),
		zap.String("title", c.Title),
		zap.String("primary", primaryItemID))
	return c, true
}
