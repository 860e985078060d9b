// Streamrelay - Personal Media Stream Relay and Viewing Analytics
// Copyright 2026 Streamrelay Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamrelay/streamrelay

package cache

import (
	"context"
	"sync"
	"time"

	"github.com/streamrelay/streamrelay/internal/logging"
	"github.com/streamrelay/streamrelay/internal/metrics"
	"github.com/streamrelay/streamrelay/internal/models"
)

// DefaultTTL matches the upstream URL expiry window.
const DefaultTTL = time.Hour

// entry is a cached value with its insertion time.
type entry struct {
	media      models.ResolvedMedia
	insertedAt time.Time
}

// Cache is a thread-safe in-memory store of resolved media with TTL
// expiry-on-read. Coarse locking is sufficient: correctness only requires
// last-write-wins on the underlying map.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time

	statsMu sync.Mutex
	stats   Stats
}

// Stats is a snapshot of cache performance counters.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Size      int
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock injects a clock for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// New creates a resolution cache with the given TTL. A non-positive TTL
// falls back to DefaultTTL. No background goroutine is started here; run
// Janitor under a supervisor if sweeping is wanted.
func New(ttl time.Duration, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key builds the cache key for an (identifier, quality) pair.
func Key(identifier, quality string) string {
	return identifier + "_" + quality
}

// Get returns the cached media for key if present and unexpired. An entry
// whose age has reached the TTL is logically gone: it is deleted on
// observation and reported as absent.
func (c *Cache) Get(key string) (models.ResolvedMedia, bool) {
	c.mu.RLock()
	e, exists := c.entries[key]
	c.mu.RUnlock()

	if !exists {
		c.recordMiss()
		return models.ResolvedMedia{}, false
	}

	if c.now().Sub(e.insertedAt) >= c.ttl {
		c.mu.Lock()
		// Re-check under the write lock; a concurrent Put may have
		// refreshed the entry.
		if cur, ok := c.entries[key]; ok && cur.insertedAt.Equal(e.insertedAt) {
			delete(c.entries, key)
			c.recordEvictions(1)
		}
		size := len(c.entries)
		c.mu.Unlock()

		metrics.SetCacheSize(size)
		c.recordMiss()
		return models.ResolvedMedia{}, false
	}

	c.recordHit()
	return e.media, true
}

// Put stores media under key, unconditionally overwriting any existing
// entry with a fresh insertion time.
func (c *Cache) Put(key string, media models.ResolvedMedia) {
	c.mu.Lock()
	c.entries[key] = entry{media: media, insertedAt: c.now()}
	size := len(c.entries)
	c.mu.Unlock()

	metrics.SetCacheSize(size)
}

// Clear empties the whole cache immediately, regardless of entry age.
func (c *Cache) Clear() {
	c.mu.Lock()
	evicted := len(c.entries)
	c.entries = make(map[string]entry)
	c.mu.Unlock()

	c.recordEvictions(evicted)
	metrics.SetCacheSize(0)
}

// Len returns the current number of entries, expired or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// GetStats returns a snapshot of the cache counters.
func (c *Cache) GetStats() Stats {
	c.statsMu.Lock()
	s := c.stats
	c.statsMu.Unlock()

	s.Size = c.Len()
	return s
}

// Janitor sweeps expired entries at the given interval until ctx is
// canceled. Lazy expiry on Get keeps reads correct without it; the sweep
// only bounds memory held by keys that are never read again.
func (c *Cache) Janitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if evicted := c.sweep(); evicted > 0 {
				logging.Debug().Int("evicted", evicted).Msg("Cache janitor sweep")
			}
		}
	}
}

// sweep removes all expired entries and returns how many were evicted.
func (c *Cache) sweep() int {
	now := c.now()

	c.mu.Lock()
	evicted := 0
	for key, e := range c.entries {
		if now.Sub(e.insertedAt) >= c.ttl {
			delete(c.entries, key)
			evicted++
		}
	}
	size := len(c.entries)
	c.mu.Unlock()

	if evicted > 0 {
		c.recordEvictions(evicted)
	}
	metrics.SetCacheSize(size)
	return evicted
}

func (c *Cache) recordHit() {
	c.statsMu.Lock()
	c.stats.Hits++
	c.statsMu.Unlock()
	metrics.RecordCacheHit()
}

func (c *Cache) recordMiss() {
	c.statsMu.Lock()
	c.stats.Misses++
	c.statsMu.Unlock()
	metrics.RecordCacheMiss()
}

func (c *Cache) recordEvictions(n int) {
	if n == 0 {
		return
	}
	c.statsMu.Lock()
	c.stats.Evictions += int64(n)
	c.statsMu.Unlock()
	metrics.RecordCacheEvictions(n)
}
