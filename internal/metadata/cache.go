package metadata

import (
	"sync"
	"time"
)

// Cache stores fetched metadata payloads between calls. Dataset catalogs
// change rarely, so the consumer caches whole endpoint responses rather
// than hitting the service on every download.
type Cache interface {
	// Get returns the cached value for key, or false if absent or expired.
	Get(key string) (any, bool)

	// Set stores a value under key.
	Set(key string, value any)
}

// -----------------------------------------------------------------------------
// TTL memory cache
// -----------------------------------------------------------------------------

type cacheEntry struct {
	value   any
	expires time.Time
}

// MemoryCache is an in-process Cache with per-entry expiry.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryCache creates a cache whose entries expire after ttl.
// A non-positive ttl keeps entries forever.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get implements Cache. Expired entries are dropped on access.
func (c *MemoryCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !e.expires.IsZero() && c.now().After(e.expires) {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

// Set implements Cache.
func (c *MemoryCache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := cacheEntry{value: value}
	if c.ttl > 0 {
		e.expires = c.now().Add(c.ttl)
	}
	c.entries[key] = e
}

var _ Cache = (*MemoryCache)(nil)

// nopCache disables caching.
type nopCache struct{}

func (nopCache) Get(string) (any, bool) { return nil, false }
func (nopCache) Set(string, any)        {}
