package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRUCache_SetThenGet_RoundTrips(t *testing.T) {
	c, err := NewLRUCache(4)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k1", "v1", 0))
	got, err := c.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, "v1", got)

	stats := c.Stats()
	assert.EqualValues(t, 1, stats.Hits)
	assert.EqualValues(t, 0, stats.Misses)
}

func TestLRUCache_Get_MissOnAbsentKey(t *testing.T) {
	c, err := NewLRUCache(4)
	require.NoError(t, err)

	got, err := c.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.Equal(t, "", got)
	assert.EqualValues(t, 1, c.Stats().Misses)
}

func TestLRUCache_EvictsLeastRecentlyUsedAtCapacity(t *testing.T) {
	c, err := NewLRUCache(2)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", "1", 0))
	require.NoError(t, c.Set(ctx, "b", "2", 0))
	// touch "a" so "b" becomes the least recently used entry
	_, _ = c.Get(ctx, "a")
	require.NoError(t, c.Set(ctx, "c", "3", 0))

	got, _ := c.Get(ctx, "b")
	assert.Equal(t, "", got, "b should have been evicted as least recently used")
	got, _ = c.Get(ctx, "a")
	assert.Equal(t, "1", got)
	got, _ = c.Get(ctx, "c")
	assert.Equal(t, "3", got)

	assert.EqualValues(t, 1, c.Stats().Evictions)
}

func TestLRUCache_Get_ExpiresEntryPastTTL(t *testing.T) {
	c, err := NewLRUCache(4)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k1", "v1", 10*time.Millisecond))
	time.Sleep(20 * time.Millisecond)

	got, err := c.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, "", got, "entry past its TTL must read back as a miss")
}

func TestLRUCache_Delete_RemovesEntry(t *testing.T) {
	c, err := NewLRUCache(4)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k1", "v1", 0))
	require.NoError(t, c.Delete(ctx, "k1"))

	got, _ := c.Get(ctx, "k1")
	assert.Equal(t, "", got)
}

func TestLRUCache_DeletePattern_RemovesMatchingPrefix(t *testing.T) {
	c, err := NewLRUCache(8)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "search:proj1:a", "x", 0))
	require.NoError(t, c.Set(ctx, "search:proj1:b", "y", 0))
	require.NoError(t, c.Set(ctx, "search:proj2:a", "z", 0))

	require.NoError(t, c.DeletePattern(ctx, "search:proj1:*"))

	got, _ := c.Get(ctx, "search:proj1:a")
	assert.Equal(t, "", got)
	got, _ = c.Get(ctx, "search:proj1:b")
	assert.Equal(t, "", got)
	got, _ = c.Get(ctx, "search:proj2:a")
	assert.Equal(t, "z", got)
}

func TestLRUCache_Stats_ComputesHitRate(t *testing.T) {
	c, err := NewLRUCache(4)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k1", "v1", 0))
	_, _ = c.Get(ctx, "k1")
	_, _ = c.Get(ctx, "k1")
	_, _ = c.Get(ctx, "missing")

	stats := c.Stats()
	assert.EqualValues(t, 2, stats.Hits)
	assert.EqualValues(t, 1, stats.Misses)
	assert.InDelta(t, 2.0/3.0, stats.HitRate, 0.001)
	assert.Equal(t, 1, stats.Size)
}

func TestLRUCache_ImplementsStatefulCache(t *testing.T) {
	var _ StatefulCache = (*LRUCache)(nil)
}
