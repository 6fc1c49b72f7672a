package paging

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"setkeeper/internal/remote"
	"setkeeper/internal/retry"
)

func testRetrier(t *testing.T) *retry.Retrier {
	t.Helper()
	return retry.New(retry.DefaultPolicy(), zap.NewNop(),
		retry.WithSleeper(func(context.Context, time.Duration) error { return nil }))
}

// pagedFixture serves a fixed set of pages and records fetch order.
type pagedFixture struct {
	pages   [][]string
	fetched []int
	// failures maps page -> number of transient errors to serve before
	// succeeding.
	failures map[int]int
}

func (f *pagedFixture) fetch(_ context.Context, page, _ int) ([]string, remote.PageInfo, error) {
	f.fetched = append(f.fetched, page)
	if n := f.failures[page]; n > 0 {
		f.failures[page] = n - 1
		return nil, remote.PageInfo{}, &remote.Error{Op: "search", Code: 105, Message: "service unavailable", Class: remote.ClassTransient}
	}
	if page > len(f.pages) {
		return nil, remote.PageInfo{Page: page, Pages: len(f.pages)}, nil
	}
	return f.pages[page-1], remote.PageInfo{Page: page, Pages: len(f.pages)}, nil
}

func makePages(sizes ...int) [][]string {
	pages := make([][]string, len(sizes))
	id := 0
	for i, n := range sizes {
		pages[i] = make([]string, n)
		for j := 0; j < n; j++ {
			pages[i][j] = fmt.Sprintf("item-%06d", id)
			id++
		}
	}
	return pages
}

func TestEach_VisitsEveryItemInPageOrder(t *testing.T) {
	fx := &pagedFixture{pages: makePages(500, 500, 137)}
	p := New[string](500, testRetrier(t), zap.NewNop())

	got, err := Collect(context.Background(), p, "search", fx.fetch)
	require.NoError(t, err)
	require.Len(t, got, 1137)

	// Page-order walk means the ids come out strictly ascending.
	for i := 1; i < len(got); i++ {
		assert.Less(t, got[i-1], got[i])
	}
	assert.Equal(t, []int{1, 2, 3}, fx.fetched)
}

func TestEach_RetriesFailedPageInPlace(t *testing.T) {
	fx := &pagedFixture{
		pages:    makePages(3, 2),
		failures: map[int]int{2: 2},
	}
	p := New[string](500, testRetrier(t), zap.NewNop())

	got, err := Collect(context.Background(), p, "search", fx.fetch)
	require.NoError(t, err)
	assert.Len(t, got, 5)
	// Page 2 fetched three times (two transient failures, then success),
	// never advanced past until it succeeded.
	assert.Equal(t, []int{1, 2, 2, 2}, fx.fetched)
}

func TestEach_ExhaustionAbortsWalk(t *testing.T) {
	fx := &pagedFixture{
		pages:    makePages(3, 2),
		failures: map[int]int{2: 100},
	}
	p := New[string](500, testRetrier(t), zap.NewNop())

	_, err := Collect(context.Background(), p, "search", fx.fetch)
	require.Error(t, err)
	assert.True(t, retry.IsExhausted(err))
}

func TestEach_StopsWhenTotalShrinksBelowCursor(t *testing.T) {
	// Service claims 5 pages at first, then revises down to 2 while we are
	// on page 2; the walk must end cleanly after page 2.
	calls := 0
	fetch := func(_ context.Context, page, _ int) ([]string, remote.PageInfo, error) {
		calls++
		switch page {
		case 1:
			return []string{"a", "b"}, remote.PageInfo{Page: 1, Pages: 5}, nil
		case 2:
			return []string{"c"}, remote.PageInfo{Page: 2, Pages: 2}, nil
		default:
			return nil, remote.PageInfo{}, errors.New("walk ran past the revised total")
		}
	}
	p := New[string](500, testRetrier(t), zap.NewNop())

	got, err := Collect(context.Background(), p, "search", fetch)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, got)
	assert.Equal(t, 2, calls)
}

func TestEach_GrowingTotalIsFollowed(t *testing.T) {
	fetch := func(_ context.Context, page, _ int) ([]string, remote.PageInfo, error) {
		switch page {
		case 1:
			return []string{"a"}, remote.PageInfo{Page: 1, Pages: 1}, nil
		default:
			return nil, remote.PageInfo{Page: page, Pages: 1}, nil
		}
	}
	p := New[string](500, testRetrier(t), zap.NewNop())
	got, err := Collect(context.Background(), p, "search", fetch)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, got)
}

func TestEach_EmptyResult(t *testing.T) {
	fetch := func(_ context.Context, page, _ int) ([]string, remote.PageInfo, error) {
		return nil, remote.PageInfo{Page: page, Pages: 0, Total: 0}, nil
	}
	p := New[string](500, testRetrier(t), zap.NewNop())

	got, err := Collect(context.Background(), p, "search", fetch)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestEach_CallbackErrorStopsWalk(t *testing.T) {
	fx := &pagedFixture{pages: makePages(3, 3)}
	p := New[string](500, testRetrier(t), zap.NewNop())

	boom := errors.New("downstream failure")
	seen := 0
	err := p.Each(context.Background(), "search", fx.fetch, func(string) error {
		seen++
		if seen == 2 {
			return boom
		}
		return nil
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, seen)
	assert.Equal(t, []int{1}, fx.fetched)
}

func TestNew_ClampsPageSize(t *testing.T) {
	var gotPerPage int
	fetch := func(_ context.Context, page, perPage int) ([]string, remote.PageInfo, error) {
		gotPerPage = perPage
		return nil, remote.PageInfo{Page: page, Pages: 1}, nil
	}

	for _, requested := range []int{0, -1, 9999} {
		p := New[string](requested, testRetrier(t), zap.NewNop())
		_, err := Collect(context.Background(), p, "search", fetch)
		require.NoError(t, err)
		assert.Equal(t, MaxPageSize, gotPerPage)
	}
}
