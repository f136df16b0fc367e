package cache

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestCache(t *testing.T, ttl time.Duration) (*Memory, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	return NewMemory(ttl, WithClock(clock.Now)), clock
}

func TestMemorySetGet(t *testing.T) {
	cache, _ := newTestCache(t, time.Minute)

	cache.Set("page:home", "hello", SourceDatabase, 0)

	value, source, ok := cache.Get("page:home")
	require.True(t, ok)
	require.Equal(t, "hello", value)
	require.Equal(t, SourceDatabase, source)
}

func TestMemoryExpiryBoundary(t *testing.T) {
	cache, clock := newTestCache(t, time.Minute)

	cache.Set("page:home", "hello", SourceJSON, 5*time.Minute)

	// Exactly at the TTL the entry is still live.
	clock.Advance(5 * time.Minute)
	require.True(t, cache.Has("page:home"))

	// One nanosecond past the TTL it is gone.
	clock.Advance(time.Nanosecond)
	require.False(t, cache.Has("page:home"))

	_, _, ok := cache.Get("page:home")
	require.False(t, ok)
}

func TestMemoryDefaultTTL(t *testing.T) {
	cache, clock := newTestCache(t, 0) // falls back to DefaultTTL

	cache.Set("key", 1, SourceDatabase, 0)

	clock.Advance(DefaultTTL)
	require.True(t, cache.Has("key"))

	clock.Advance(time.Second)
	require.False(t, cache.Has("key"))
}

func TestMemoryDelete(t *testing.T) {
	cache, _ := newTestCache(t, time.Minute)

	cache.Set("key", 1, SourceDatabase, 0)
	require.True(t, cache.Delete("key"))
	require.False(t, cache.Delete("key"))
	require.False(t, cache.Has("key"))
}

func TestMemoryInvalidateBySource(t *testing.T) {
	cache, _ := newTestCache(t, time.Minute)

	cache.Set("page:a", 1, SourceDatabase, 0)
	cache.Set("page:b", 2, SourceDatabase, 0)
	cache.Set("page:c", 3, SourceJSON, 0)

	removed := cache.InvalidateBySource(SourceDatabase)
	require.Equal(t, 2, removed)

	require.False(t, cache.Has("page:a"))
	require.False(t, cache.Has("page:b"))
	require.True(t, cache.Has("page:c"))
}

func TestMemoryInvalidateByPattern(t *testing.T) {
	cache, _ := newTestCache(t, time.Minute)

	cache.Set("page:a", 1, SourceDatabase, 0)
	cache.Set("page:b", 2, SourceJSON, 0)
	cache.Set("other:c", 3, SourceDatabase, 0)

	removed := cache.InvalidateByPattern(regexp.MustCompile(`^page:`))
	require.Equal(t, 2, removed)

	require.False(t, cache.Has("page:a"))
	require.False(t, cache.Has("page:b"))
	require.True(t, cache.Has("other:c"))

	require.Equal(t, 0, cache.InvalidateByPattern(nil))
}

func TestMemoryCleanup(t *testing.T) {
	cache, clock := newTestCache(t, time.Minute)

	cache.Set("short", 1, SourceDatabase, time.Minute)
	cache.Set("long", 2, SourceDatabase, time.Hour)

	clock.Advance(2 * time.Minute)

	removed := cache.Cleanup()
	require.Equal(t, 1, removed)
	require.True(t, cache.Has("long"))
}

func TestMemoryGetOrSetCachesFactoryResult(t *testing.T) {
	cache, _ := newTestCache(t, time.Minute)

	calls := 0
	factory := func(ctx context.Context) (any, Source, error) {
		calls++
		return "value", SourceDatabase, nil
	}

	first, err := cache.GetOrSet(context.Background(), "key", factory, 0)
	require.NoError(t, err)
	require.False(t, first.FromCache)
	require.Equal(t, "value", first.Data)
	require.Equal(t, SourceDatabase, first.Source)

	second, err := cache.GetOrSet(context.Background(), "key", factory, 0)
	require.NoError(t, err)
	require.True(t, second.FromCache)
	require.Equal(t, 1, calls)
}

func TestMemoryGetOrSetFactoryErrorNotCached(t *testing.T) {
	cache, _ := newTestCache(t, time.Minute)

	boom := errors.New("boom")
	calls := 0
	factory := func(ctx context.Context) (any, Source, error) {
		calls++
		return nil, "", boom
	}

	_, err := cache.GetOrSet(context.Background(), "key", factory, 0)
	require.ErrorIs(t, err, boom)
	require.False(t, cache.Has("key"))

	_, err = cache.GetOrSet(context.Background(), "key", factory, 0)
	require.ErrorIs(t, err, boom)
	require.Equal(t, 2, calls)
}

func TestMemoryStats(t *testing.T) {
	cache, clock := newTestCache(t, time.Minute)

	cache.Set("a", 1, SourceDatabase, 0)

	_, _, ok := cache.Get("a")
	require.True(t, ok)
	_, _, ok = cache.Get("missing")
	require.False(t, ok)

	// An expired read counts as a miss.
	clock.Advance(2 * time.Minute)
	_, _, ok = cache.Get("a")
	require.False(t, ok)

	stats := cache.GetStats()
	require.Equal(t, 0, stats.TotalEntries)
	require.Equal(t, int64(1), stats.HitCount)
	require.Equal(t, int64(2), stats.MissCount)
	require.InDelta(t, 1.0/3.0, stats.HitRate, 1e-9)

	cache.Clear()
	stats = cache.GetStats()
	require.Zero(t, stats.HitCount)
	require.Zero(t, stats.MissCount)
	require.Zero(t, stats.HitRate)
}
