package cache

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// entry pairs a cached value with its optional expiry; Expires.IsZero()
// means no TTL was set for that key.
type entry struct {
	value   string
	expires time.Time
}

// LRUCache is the in-process CacheLayer implementation: capacity-bounded,
// LRU eviction on overflow, per-key optional TTL checked lazily on Get
// rather than with a background sweeper, since the cache is already
// capacity-bounded and a lazily-expired key is functionally identical to
// one evicted for space.
type LRUCache struct {
	statCounters
	mu    sync.Mutex
	inner *lru.Cache[string, entry]
}

// NewLRUCache builds an LRUCache with the given capacity (must be > 0).
func NewLRUCache(capacity int) (*LRUCache, error) {
	c := &LRUCache{}
	inner, err := lru.NewWithEvict[string, entry](capacity, func(key string, value entry) {
		c.recordEviction()
	})
	if err != nil {
		return nil, err
	}
	c.inner = inner
	return c, nil
}

// Get returns the value for key, or "" if absent or expired. Eviction
// policy on tie is deterministic (LRU + insertion order) because it's
// delegated entirely to hashicorp/golang-lru's own ordering, which evicts
// the least-recently-used entry and breaks ties by insertion order.
func (c *LRUCache) Get(ctx context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.inner.Get(key)
	if !ok {
		c.recordMiss()
		return "", nil
	}
	if !e.expires.IsZero() && time.Now().After(e.expires) {
		c.inner.Remove(key)
		c.recordMiss()
		return "", nil
	}
	c.recordHit()
	return e.value, nil
}

// Set stores value under key. ttl <= 0 means no expiry.
func (c *LRUCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expires time.Time
	if ttl > 0 {
		expires = time.Now().Add(ttl)
	}
	c.inner.Add(key, entry{value: value, expires: expires})
	return nil
}

// Delete removes key if present.
func (c *LRUCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inner.Remove(key)
	return nil
}

// DeletePattern removes every key for which glob matches, interpreting
// pattern the same way RedisCache's SCAN-based DeletePattern does: a
// trailing "*" wildcard, the common case for prefix invalidation
// (search.Coordinator.Invalidate's "search:<projectID>:*").
func (c *LRUCache) DeletePattern(ctx context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	prefix := pattern
	if len(pattern) > 0 && pattern[len(pattern)-1] == '*' {
		prefix = pattern[:len(pattern)-1]
	}
	for _, key := range c.inner.Keys() {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			c.inner.Remove(key)
		}
	}
	return nil
}

// Stats reports the uniform {hits, misses, evictions, size, hitRate}
// surface §4.15 requires.
func (c *LRUCache) Stats() Stats {
	c.mu.Lock()
	size := c.inner.Len()
	c.mu.Unlock()
	return c.statCounters.snapshot(size)
}
