package analytics

import (
	"sync"
	"time"
)

// cacheEntry holds cached stats and metadata
type cacheEntry struct {
	stats       []Stats
	lastRefresh time.Time
}

// statsCache provides thread-safe caching for aggregated statistics
type statsCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry // key: scope ("" for per-API, else api id)
	ttl     time.Duration
}

func newStatsCache(ttl time.Duration) *statsCache {
	return &statsCache{
		entries: make(map[string]*cacheEntry),
		ttl:     ttl,
	}
}

// get returns cached stats for scope if present and fresh
func (c *statsCache) get(scope string) ([]Stats, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[scope]
	if !exists || time.Since(entry.lastRefresh) > c.ttl {
		return nil, false
	}
	return entry.stats, true
}

func (c *statsCache) set(scope string, stats []Stats) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[scope] = &cacheEntry{
		stats:       stats,
		lastRefresh: time.Now(),
	}
}

// invalidate clears all cached data
func (c *statsCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*cacheEntry)
}
