package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"setkeeper/internal/remote"
	"setkeeper/internal/retry"
)

func testRetrier() *retry.Retrier {
	return retry.New(retry.DefaultPolicy(), zap.NewNop(),
		retry.WithClassifier(remote.IsTransient),
		retry.WithSleeper(func(context.Context, time.Duration) error { return nil }))
}

func TestResolver_SingleCreationPerTitle(t *testing.T) {
	svc := newFakeService()
	r := NewResolver(svc, testRetrier(), 500, zap.NewNop())
	require.NoError(t, r.Seed(context.Background()))

	// Two items map to the identical grouping key: exactly one remote
	// create, the second resolve is a cache hit.
	c1, created1 := r.Resolve(context.Background(), "B0 - 2024/05/01", "p1")
	c2, created2 := r.Resolve(context.Background(), "B0 - 2024/05/01", "p2")

	assert.True(t, created1)
	assert.False(t, created2)
	assert.Equal(t, c1.ID, c2.ID)
	assert.Equal(t, 1, svc.createCalls)
	assert.Equal(t, 1, r.Created())
}

func TestResolver_SeedFindsExistingByExactTitle(t *testing.T) {
	svc := newFakeService()
	_, err := svc.CreateCollection(context.Background(), "B0 - 2024/05/01", "p0")
	require.NoError(t, err)
	svc.createCalls = 0

	r := NewResolver(svc, testRetrier(), 500, zap.NewNop())
	require.NoError(t, r.Seed(context.Background()))

	col, created := r.Resolve(context.Background(), "B0 - 2024/05/01", "p1")
	assert.False(t, created)
	assert.Equal(t, "B0 - 2024/05/01", col.Title)
	assert.Zero(t, svc.createCalls)
}

func TestResolver_CreateFailureReturnsNoopSentinel(t *testing.T) {
	svc := newFakeService()
	svc.failCreate = true

	r := NewResolver(svc, testRetrier(), 500, zap.NewNop())
	col, created := r.Resolve(context.Background(), "B0 - 2024/05/01", "p1")

	assert.False(t, created)
	assert.True(t, IsNoop(col))
	// Permanent failure: one attempt, no retries.
	assert.Equal(t, 1, svc.createCalls)
}

func TestResolver_PrefixNormalizer(t *testing.T) {
	norm := PrefixNormalizer("B0 - ")

	assert.Equal(t, "B0 - 2024/05/01", norm("B0 - 2024/05/01"))
	assert.Equal(t, "B0 - 2024/05/01", norm("B0 - 2024/05/01 favorites from the trip"))
	assert.Equal(t, "unrelated title", norm("unrelated title"))

	svc := newFakeService()
	_, err := svc.CreateCollection(context.Background(), "B0 - 2024/05/01 favorites", "p0")
	require.NoError(t, err)
	svc.createCalls = 0

	r := NewResolver(svc, testRetrier(), 500, zap.NewNop(), WithNormalizer(norm))
	require.NoError(t, r.Seed(context.Background()))

	// Shorthand lookup resolves to the long-titled existing set.
	col, created := r.Resolve(context.Background(), "B0 - 2024/05/01", "p1")
	assert.False(t, created)
	assert.Equal(t, "B0 - 2024/05/01 favorites", col.Title)
	assert.Zero(t, svc.createCalls)
}

func TestResolver_SeedEntryOverwrittenByLiveListing(t *testing.T) {
	svc := newFakeService()
	_, err := svc.CreateCollection(context.Background(), "A0 - 1F - PASSERIFORMES", "p0")
	require.NoError(t, err)

	r := NewResolver(svc, testRetrier(), 500, zap.NewNop())
	r.SeedEntry(remote.Collection{ID: "stale-id", Title: "A0 - 1F - PASSERIFORMES"})
	require.NoError(t, r.Seed(context.Background()))

	col, ok := r.Lookup("A0 - 1F - PASSERIFORMES")
	require.True(t, ok)
	assert.Equal(t, "set-1", col.ID)
}

func TestResolver_KnownSortedByTitle(t *testing.T) {
	svc := newFakeService()
	ctx := context.Background()
	for _, title := range []string{"C0 - Brazil", "A0 - 1F - PASSERIFORMES", "B0 - 2024/05/01"} {
		_, err := svc.CreateCollection(ctx, title, "p0")
		require.NoError(t, err)
	}

	r := NewResolver(svc, testRetrier(), 500, zap.NewNop())
	require.NoError(t, r.Seed(ctx))

	known := r.Known()
	require.Len(t, known, 3)
	assert.Equal(t, "A0 - 1F - PASSERIFORMES", known[0].Title)
	assert.Equal(t, "B0 - 2024/05/01", known[1].Title)
	assert.Equal(t, "C0 - Brazil", known[2].Title)
}
