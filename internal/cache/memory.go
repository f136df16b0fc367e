package cache

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"time"
)

// Source identifies which backing store produced a cached value.
type Source string

// Known cache sources.
const (
	SourceDatabase Source = "database"
	SourceJSON     Source = "json"
)

// DefaultTTL is the fallback entry lifetime when none is configured.
const DefaultTTL = 5 * time.Minute

type memoryEntry struct {
	data      any
	source    Source
	timestamp time.Time
	ttl       time.Duration
}

func (e memoryEntry) expired(now time.Time) bool {
	return now.Sub(e.timestamp) > e.ttl
}

// Memory is an in-process TTL cache keyed by string. Entries carry a source
// tag so that everything derived from one origin can be invalidated together.
// Expiration is lazy: reads drop entries whose TTL has elapsed. Instances are
// constructed once at startup and injected; there is no package-level cache.
type Memory struct {
	mu         sync.RWMutex
	entries    map[string]memoryEntry
	defaultTTL time.Duration
	hits       int64
	misses     int64
	now        func() time.Time
}

// MemoryOption customises a Memory cache.
type MemoryOption func(*Memory)

// WithClock overrides the time source, primarily for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		if now != nil {
			m.now = now
		}
	}
}

// NewMemory constructs a Memory cache. A non-positive defaultTTL falls back to DefaultTTL.
func NewMemory(defaultTTL time.Duration, opts ...MemoryOption) *Memory {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}

	m := &Memory{
		entries:    make(map[string]memoryEntry),
		defaultTTL: defaultTTL,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Get returns the cached value and its source tag. Expired entries are removed
// and counted as misses.
func (m *Memory) Get(key string) (any, Source, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		m.misses++
		return nil, "", false
	}

	if entry.expired(m.now()) {
		delete(m.entries, key)
		m.misses++
		return nil, "", false
	}

	m.hits++
	return entry.data, entry.source, true
}

// Set inserts or replaces the entry for key. A non-positive ttl uses the
// cache-wide default.
func (m *Memory) Set(key string, value any, source Source, ttl time.Duration) {
	if ttl <= 0 {
		ttl = m.defaultTTL
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = memoryEntry{
		data:      value,
		source:    source,
		timestamp: m.now(),
		ttl:       ttl,
	}
}

// Has reports whether a live entry exists for key without touching hit/miss
// statistics. Expired entries are still removed.
func (m *Memory) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		return false
	}

	if entry.expired(m.now()) {
		delete(m.entries, key)
		return false
	}

	return true
}

// Delete removes a single key, reporting whether it existed.
func (m *Memory) Delete(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.entries[key]
	if ok {
		delete(m.entries, key)
	}
	return ok
}

// InvalidateBySource removes every entry tagged with the given source and
// returns the number removed. Entries from other sources are untouched.
func (m *Memory) InvalidateBySource(source Source) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, entry := range m.entries {
		if entry.source == source {
			delete(m.entries, key)
			removed++
		}
	}
	return removed
}

// InvalidateByPattern removes every entry whose key matches the expression and
// returns the number removed. Used after sync runs to drop all page keys.
func (m *Memory) InvalidateByPattern(pattern *regexp.Regexp) int {
	if pattern == nil {
		return 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key := range m.entries {
		if pattern.MatchString(key) {
			delete(m.entries, key)
			removed++
		}
	}
	return removed
}

// Cleanup eagerly sweeps expired entries. Reads already expire lazily, so this
// only matters for bounding memory between accesses.
func (m *Memory) Cleanup() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for key, entry := range m.entries {
		if entry.expired(now) {
			delete(m.entries, key)
			removed++
		}
	}
	return removed
}

// Clear drops all entries and resets statistics.
func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = make(map[string]memoryEntry)
	m.hits = 0
	m.misses = 0
}

// Result is the outcome of a GetOrSet call.
type Result struct {
	Data      any
	Source    Source
	FromCache bool
}

// Factory produces a value and its source tag on a cache miss.
type Factory func(ctx context.Context) (any, Source, error)

// GetOrSet returns the cached value for key, or invokes factory exactly once to
// populate it. Concurrent callers missing on the same key may each invoke the
// factory; the underlying reads are idempotent so the last write wins.
func (m *Memory) GetOrSet(ctx context.Context, key string, factory Factory, ttl time.Duration) (Result, error) {
	if factory == nil {
		return Result{}, errors.New("cache: factory is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if data, source, ok := m.Get(key); ok {
		return Result{Data: data, Source: source, FromCache: true}, nil
	}

	data, source, err := factory(ctx)
	if err != nil {
		return Result{}, err
	}

	m.Set(key, data, source, ttl)
	return Result{Data: data, Source: source, FromCache: false}, nil
}

// Stats reports cumulative cache effectiveness since the last Clear.
type Stats struct {
	TotalEntries int     `json:"total_entries"`
	HitCount     int64   `json:"hit_count"`
	MissCount    int64   `json:"miss_count"`
	HitRate      float64 `json:"hit_rate"`
}

// GetStats returns a snapshot of the cache counters.
func (m *Memory) GetStats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := Stats{
		TotalEntries: len(m.entries),
		HitCount:     m.hits,
		MissCount:    m.misses,
	}

	if total := m.hits + m.misses; total > 0 {
		stats.HitRate = float64(m.hits) / float64(total)
	}
	return stats
}
