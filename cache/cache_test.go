package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/clone-prom-team-2025/server/cache"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestKey(t *testing.T) {
	require.Equal(t, "verify:a@b.com", cache.Key(cache.PrefixVerifyEmail, "a@b.com"))
	require.Equal(t, "reset-pass-access-code:xyz", cache.Key(cache.PrefixResetAccess, "xyz"))
}

func TestMemoryCacheSetGetRemove(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemoryCache()

	_, ok, err := c.TryGet(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	v, ok, err := c.TryGet(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v", v)

	require.NoError(t, c.Remove(ctx, "k"))
	_, ok, err = c.TryGet(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, c.Remove(ctx, "k"))
}

func TestMemoryCacheReadDoesNotExtendTTL(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c := cache.NewMemoryCache(cache.WithNowTime(clock.Now))

	require.NoError(t, c.Set(ctx, "k", "v", 10*time.Minute))

	clock.Advance(9 * time.Minute)
	_, ok, err := c.TryGet(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)

	clock.Advance(2 * time.Minute)
	_, ok, err = c.TryGet(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok, "read must not have slid the expiry")
	require.Equal(t, 0, c.Len())
}

func TestMemoryCacheRewriteResetsTTL(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c := cache.NewMemoryCache(cache.WithNowTime(clock.Now))

	require.NoError(t, c.Set(ctx, "k", "v1", 10*time.Minute))
	clock.Advance(9 * time.Minute)
	require.NoError(t, c.Set(ctx, "k", "v2", 10*time.Minute))
	clock.Advance(9 * time.Minute)

	v, ok, err := c.TryGet(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v2", v)
}

func TestMemoryCacheCleanup(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c := cache.NewMemoryCache(cache.WithNowTime(clock.Now))

	require.NoError(t, c.Set(ctx, "short", "1", time.Minute))
	require.NoError(t, c.Set(ctx, "long", "2", time.Hour))
	clock.Advance(2 * time.Minute)

	require.Equal(t, 1, c.Cleanup())
	require.Equal(t, 1, c.Len())
	_, ok, _ := c.TryGet(ctx, "long")
	require.True(t, ok)
}

func TestMemoryCacheRunCleanupStopsOnCancel(t *testing.T) {
	c := cache.NewMemoryCache()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.RunCleanup(ctx, time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunCleanup did not return after cancel")
	}
}

func newRedisCache(t *testing.T) (*cache.RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return cache.NewRedisCache(rdb, "mp"), mr
}

func TestRedisCacheSetGetRemove(t *testing.T) {
	ctx := context.Background()
	c, mr := newRedisCache(t)

	require.NoError(t, c.Set(ctx, "verify:a@b.com", "AB12CD", 15*time.Minute))
	require.True(t, mr.Exists("mp:verify:a@b.com"))

	v, ok, err := c.TryGet(ctx, "verify:a@b.com")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "AB12CD", v)

	require.NoError(t, c.Remove(ctx, "verify:a@b.com"))
	_, ok, err = c.TryGet(ctx, "verify:a@b.com")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, mr := newRedisCache(t)

	require.NoError(t, c.Set(ctx, "k", "v", 15*time.Minute))
	mr.FastForward(14 * time.Minute)
	_, ok, err := c.TryGet(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Minute)
	_, ok, err = c.TryGet(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisCacheUnavailable(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	c := cache.NewRedisCache(rdb, "")
	mr.Close()

	err = c.Set(ctx, "k", "v", time.Minute)
	require.ErrorIs(t, err, cache.ErrRedisUnavailable)
	_, _, err = c.TryGet(ctx, "k")
	require.ErrorIs(t, err, cache.ErrRedisUnavailable)
}

func TestMemoryCacheRemoveIf(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c := cache.NewMemoryCache(cache.WithNowTime(clock.Now))
	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))

	removed, err := c.RemoveIf(ctx, "k", "other")
	require.NoError(t, err)
	require.False(t, removed, "a different value leaves the entry")
	_, ok, _ := c.TryGet(ctx, "k")
	require.True(t, ok)

	removed, err = c.RemoveIf(ctx, "k", "v")
	require.NoError(t, err)
	require.True(t, removed)

	removed, err = c.RemoveIf(ctx, "k", "v")
	require.NoError(t, err)
	require.False(t, removed, "second removal loses")

	require.NoError(t, c.Set(ctx, "e", "v", time.Minute))
	clock.Advance(2 * time.Minute)
	removed, err = c.RemoveIf(ctx, "e", "v")
	require.NoError(t, err)
	require.False(t, removed, "expired entries are absent")
}

func TestRedisCacheRemoveIf(t *testing.T) {
	ctx := context.Background()
	c, mr := newRedisCache(t)
	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))

	removed, err := c.RemoveIf(ctx, "k", "other")
	require.NoError(t, err)
	require.False(t, removed)
	require.True(t, mr.Exists("mp:k"))

	removed, err = c.RemoveIf(ctx, "k", "v")
	require.NoError(t, err)
	require.True(t, removed)
	require.False(t, mr.Exists("mp:k"))

	removed, err = c.RemoveIf(ctx, "k", "v")
	require.NoError(t, err)
	require.False(t, removed)
}
