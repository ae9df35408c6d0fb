package requirements

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func testCache(t *testing.T) *Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute)
}

func TestCacheFetchJSONPopulatesOnce(t *testing.T) {
	cache := testCache(t)
	ctx := context.Background()

	key, err := cache.SuggestionKey(ctx, 1)
	require.NoError(t, err)

	calls := 0
	loader := func(context.Context) (any, error) {
		calls++
		return map[string]int{"value": 42}, nil
	}

	var first, second map[string]int
	require.NoError(t, cache.FetchJSON(ctx, key, &first, loader))
	require.NoError(t, cache.FetchJSON(ctx, key, &second, loader))
	require.Equal(t, 1, calls)
	require.Equal(t, 42, second["value"])
}

func TestCacheBumpRotatesKey(t *testing.T) {
	cache := testCache(t)
	ctx := context.Background()

	before, err := cache.SuggestionKey(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, cache.Bump(ctx, 1))
	after, err := cache.SuggestionKey(ctx, 1)
	require.NoError(t, err)
	require.NotEqual(t, before, after)

	// other projects keep their version
	otherBefore, err := cache.SuggestionKey(ctx, 2)
	require.NoError(t, err)
	require.NoError(t, cache.Bump(ctx, 1))
	otherAfter, err := cache.SuggestionKey(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, otherBefore, otherAfter)
}

func TestNilCacheDegradesToLoader(t *testing.T) {
	var cache *Cache
	ctx := context.Background()

	calls := 0
	var out int
	for i := 0; i < 2; i++ {
		err := cache.FetchJSON(ctx, "whatever", &out, func(context.Context) (any, error) {
			calls++
			return 7, nil
		})
		require.NoError(t, err)
	}
	require.Equal(t, 2, calls)
	require.Equal(t, 7, out)
	require.NoError(t, cache.Bump(ctx, 1))
}

func TestSuggestedAmountServedFromCacheUntilBump(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, testCache(t), nil, slog.New(slog.DiscardHandler))
	ctx := context.Background()

	req := addRequirement(t, svc, 1, "5000", "0", FulfilmentFulfilled)

	amount, err := svc.SuggestedAmount(ctx, 1)
	require.NoError(t, err)
	require.True(t, amount.Equal(d("5000")))

	// snapshot lands without a bump: the cached value still serves
	repo.snapshots = append(repo.snapshots, invoiceSnapshot{
		projectID: 1, invoiceType: "project", status: "issued",
		requirementIDs: []int64{req.ID},
	})
	amount, err = svc.SuggestedAmount(ctx, 1)
	require.NoError(t, err)
	require.True(t, amount.Equal(d("5000")))

	require.NoError(t, svc.Bump(ctx, 1))
	amount, err = svc.SuggestedAmount(ctx, 1)
	require.NoError(t, err)
	require.True(t, amount.IsZero())
}
