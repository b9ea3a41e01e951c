package cache

import (
	"context"
	"sync/atomic"
	"time"
)

// Stats is the uniform statistics surface every CacheLayer implementation
// exposes, per §4.15.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Size      int
	HitRate   float64
}

// StatefulCache is the capability every cache implementation in this
// package satisfies, so callers can swap the in-process LRU for the
// Redis-backed cache without touching call sites beyond construction.
// Get returns "" for a miss, matching RedisCache's pre-existing contract
// (and search.ResultCache's, which this interface is a superset of).
type StatefulCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeletePattern(ctx context.Context, pattern string) error
	Stats() Stats
}

// statCounters is embedded by both cache implementations so Stats() is
// computed identically everywhere: a plain hits/(hits+misses) ratio, zero
// when nothing has been requested yet rather than NaN.
type statCounters struct {
	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

func (c *statCounters) recordHit()      { c.hits.Add(1) }
func (c *statCounters) recordMiss()     { c.misses.Add(1) }
func (c *statCounters) recordEviction() { c.evictions.Add(1) }

func (c *statCounters) snapshot(size int) Stats {
	hits, misses := c.hits.Load(), c.misses.Load()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total)
	}
	return Stats{
		Hits:      hits,
		Misses:    misses,
		Evictions: c.evictions.Load(),
		Size:      size,
		HitRate:   hitRate,
	}
}
