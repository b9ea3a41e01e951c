// Package embedgateway provides a uniform embedding capability with a
// per-chunk cache and batched, retrying calls to a pluggable provider.
package embedgateway

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/rand"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kkkqkx123/codeforge-index/internal/errkind"
)

// Provider is the minimal capability a concrete embedding backend exposes.
// internal/embedding.VoyageClient satisfies this via the adapter in provider.go.
type Provider interface {
	Dimension() int
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Close() error
}

// Options configures batching, retry, and cache sizing.
type Options struct {
	BatchSize   int
	MaxRetries  int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	CacheSize   int
}

// DefaultOptions matches the teacher's EmbedBatched default batch size and
// adds the retry/cache knobs the teacher's VoyageClient lacks.
func DefaultOptions() Options {
	return Options{
		BatchSize:   128,
		MaxRetries:  5,
		BaseBackoff: 200 * time.Millisecond,
		MaxBackoff:  10 * time.Second,
		CacheSize:   10000,
	}
}

// Gateway wraps a Provider with a SHA-256(modelId, text)-keyed LRU cache,
// cache-miss-aware batching, and exponential backoff with jitter on
// provider error. It never returns a partial-failure for a batch: when a
// batch still fails after exhausting retries, every item in that batch is
// marked Deferred in the result rather than failing the whole call.
type Gateway struct {
	provider Provider
	modelID  string
	opts     Options
	cache    *lru.Cache[string, []float32]
	rng      *rand.Rand
}

// New builds a Gateway. modelID is folded into the cache key so switching
// models never serves a stale vector for the same text.
func New(provider Provider, modelID string, opts Options) (*Gateway, error) {
	if opts.BatchSize <= 0 {
		opts = DefaultOptions()
	}
	cache, err := lru.New[string, []float32](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("build embedding cache: %w", err)
	}
	return &Gateway{
		provider: provider,
		modelID:  modelID,
		opts:     opts,
		cache:    cache,
		rng:      rand.New(rand.NewSource(1)),
	}, nil
}

// Dimension passes through to the provider.
func (g *Gateway) Dimension() int { return g.provider.Dimension() }

// Close releases the underlying provider.
func (g *Gateway) Close() error { return g.provider.Close() }

// Item is one text to embed, tagged with an opaque caller id (typically a chunkId)
// so EmbedChunks can report which items were deferred.
type Item struct {
	ID   string
	Text string
}

// EmbedResult maps each Item.ID to its vector, or lists it in Deferred when
// every retry against the provider failed for the batch containing it.
type EmbedResult struct {
	Vectors  map[string][]float32
	Deferred []string
}

// EmbedQuery embeds a single piece of query text, reusing the same cache
// and retry path as EmbedChunks. Used by the search package's semantic
// backend, which has exactly one string to embed per call.
func (g *Gateway) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	result, err := g.EmbedChunks(ctx, []Item{{ID: "query", Text: text}})
	if err != nil {
		return nil, err
	}
	if vec, ok := result.Vectors["query"]; ok {
		return vec, nil
	}
	return nil, errkind.Wrap(errkind.TransientExternal, errDeferredQuery, "embed query")
}

var errDeferredQuery = errors.New("embedding provider deferred the query text after exhausting retries")

// EmbedChunks embeds items, serving cache hits directly and batching
// cache misses to the provider with retry. A batch that exhausts retries
// defers every item in that batch rather than failing the whole call,
// matching spec's "mark the chunk's embedding as deferred and proceed" contract.
func (g *Gateway) EmbedChunks(ctx context.Context, items []Item) (EmbedResult, error) {
	result := EmbedResult{Vectors: make(map[string][]float32, len(items))}

	var missItems []Item
	for _, it := range items {
		key := g.cacheKey(it.Text)
		if vec, ok := g.cache.Get(key); ok {
			result.Vectors[it.ID] = vec
			continue
		}
		missItems = append(missItems, it)
	}

	for start := 0; start < len(missItems); start += g.opts.BatchSize {
		end := start + g.opts.BatchSize
		if end > len(missItems) {
			end = len(missItems)
		}
		batch := missItems[start:end]

		texts := make([]string, len(batch))
		for i, it := range batch {
			texts[i] = it.Text
		}

		vectors, err := g.embedWithRetry(ctx, texts)
		if err != nil {
			for _, it := range batch {
				result.Deferred = append(result.Deferred, it.ID)
			}
			continue
		}

		for i, it := range batch {
			result.Vectors[it.ID] = vectors[i]
			g.cache.Add(g.cacheKey(it.Text), vectors[i])
		}
	}

	return result, nil
}

// embedWithRetry calls the provider, retrying transient failures with
// exponential backoff and full jitter up to MaxRetries times.
func (g *Gateway) embedWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error
	for attempt := 0; attempt <= g.opts.MaxRetries; attempt++ {
		vectors, err := g.provider.Embed(ctx, texts)
		if err == nil {
			return vectors, nil
		}
		lastErr = err

		if attempt == g.opts.MaxRetries {
			break
		}

		backoff := g.backoffFor(attempt)
		select {
		case <-ctx.Done():
			return nil, errkind.Wrap(errkind.TransientExternal, ctx.Err(), "embed cancelled after %d attempts", attempt+1)
		case <-time.After(backoff):
		}
	}
	return nil, errkind.Wrap(errkind.TransientExternal, lastErr, "embed failed after %d attempts", g.opts.MaxRetries+1)
}

// backoffFor returns exponential backoff with full jitter for attempt N (0-based).
func (g *Gateway) backoffFor(attempt int) time.Duration {
	max := g.opts.BaseBackoff * time.Duration(1<<uint(attempt))
	if max > g.opts.MaxBackoff {
		max = g.opts.MaxBackoff
	}
	if max <= 0 {
		return g.opts.BaseBackoff
	}
	return time.Duration(g.rng.Int63n(int64(max)))
}

func (g *Gateway) cacheKey(text string) string {
	sum := sha256.Sum256([]byte(g.modelID + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

// Stats reports the LRU cache's current entry count and configured
// capacity; it does not return CacheLayer's hits/misses/evictions shape.
func (g *Gateway) Stats() (length, capacity int) {
	return g.cache.Len(), g.opts.CacheSize
}
