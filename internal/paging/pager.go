// Package paging turns a page-at-a-time remote read into a lazy, resilient
// walk over the whole collection. Pages are fetched strictly in increasing
// order; a failed page is retried in place, never skipped.
package paging

import (
	"context"

	"go.uber.org/zap"

	"setkeeper/internal/remote"
	"setkeeper/internal/retry"
)

// MaxPageSize is the largest page the services this tool targets will serve.
const MaxPageSize = 500

// FetchFunc fetches one page. Implementations must return the latest
// pagination metadata the service reported: the pager re-reads the total on
// every page so collections that grow or shrink mid-iteration are walked to
// their current end, not to a snapshot taken at page one. Implementations
// must also normalize a bare single-record response to a one-element slice;
// the pager treats a nil slice as an empty page.
type FetchFunc[T any] func(ctx context.Context, page, perPage int) ([]T, remote.PageInfo, error)

// Pager streams items out of a paged remote read.
type Pager[T any] struct {
	perPage int
	retrier *retry.Retrier
	log     *zap.Logger
}

// New builds a Pager. perPage is clamped to 1..MaxPageSize; zero selects the
// maximum.
func New[T any](perPage int, r *retry.Retrier, log *zap.Logger) *Pager[T] {
	if perPage <= 0 || perPage > MaxPageSize {
		perPage = MaxPageSize
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Pager[T]{perPage: perPage, retrier: r, log: log}
}

// Each walks every item in page order, invoking fn for each one. A transient
// page failure is retried on the same page via the retrier; exhaustion aborts
// the walk. If the service's reported total-page count drops below the
// current cursor (concurrent deletions), the walk ends without error. An
// error from fn stops the walk immediately and is returned unwrapped.
func (p *Pager[T]) Each(ctx context.Context, op string, fetch FetchFunc[T], fn func(T) error) error {
	page := 1
	pages := 1

	for page <= pages {
		var items []T
		var info remote.PageInfo

		err := p.retrier.Do(ctx, op, func() error {
			var ferr error
			items, info, ferr = fetch(ctx, page, p.perPage)
			return ferr
		})
		if err != nil {
			return err
		}

		// Trust the freshest total the service reports. When it shrinks
		// below the cursor the loop condition ends the walk cleanly.
		pages = info.Pages

		p.log.Debug("fetched page",
			zap.String("op", op),
			zap.Int("page", page),
			zap.Int("pages", pages),
			zap.Int("items", len(items)))

		for _, item := range items {
			if err := fn(item); err != nil {
				return err
			}
		}
		page++
	}
	return nil
}

// Collect walks the whole paged read and returns every item in page order.
func Collect[T any](ctx context.Context, p *Pager[T], op string, fetch FetchFunc[T]) ([]T, error) {
	var out []T
	err := p.Each(ctx, op, fetch, func(item T) error {
		out = append(out, item)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
