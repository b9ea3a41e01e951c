package search

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Backend runs one retrieval strategy against a project for a query, bounded
// by the context's deadline. A backend that errors or times out is excluded
// from fusion rather than failing the whole search — per §4.12, "partial
// results are acceptable."
type Backend func(ctx context.Context, projectID, query string, filter map[string]interface{}, limit int) ([]BackendResult, error)

// ResultCache is the minimal cache surface SearchCoordinator needs, matched
// to internal/cache.RedisCache's method set so either it or an in-memory
// fake can back it in tests.
type ResultCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	DeletePattern(ctx context.Context, pattern string) error
}

// Coordinator classifies a query, fans it out to the backends its kind
// selects, fuses the independent result lists, and serves/populates a short
// TTL cache keyed by (projectId, queryText, backendSet, k, filterHash).
type Coordinator struct {
	classifier     *QueryClassifier
	backends       map[string]Backend
	cache          ResultCache
	cacheTTL       time.Duration
	backendTimeout time.Duration
	logger         *slog.Logger
}

// Options configures cache TTL and the per-backend timeout.
type Options struct {
	CacheTTL       time.Duration
	BackendTimeout time.Duration
}

// DefaultOptions matches §4.12's "TTL short (default 60s)" and a
// conservative per-backend timeout so one slow backend never stalls fusion.
func DefaultOptions() Options {
	return Options{CacheTTL: 60 * time.Second, BackendTimeout: 2 * time.Second}
}

// New builds a Coordinator. backends maps backend name (filename/path/
// extension/semantic/graph) to its implementation; cache may be nil to run
// uncached.
func New(backends map[string]Backend, cache ResultCache, opts Options, logger *slog.Logger) *Coordinator {
	if opts.BackendTimeout <= 0 {
		opts = DefaultOptions()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		classifier:     NewQueryClassifier(),
		backends:       backends,
		cache:          cache,
		cacheTTL:       opts.CacheTTL,
		backendTimeout: opts.BackendTimeout,
		logger:         logger,
	}
}

// Search runs one query end to end: classify, check cache, fan out to the
// selected backends, fuse, cache, and return.
func (c *Coordinator) Search(ctx context.Context, projectID, query string, filter map[string]interface{}, k int) ([]BackendResult, QueryKind, error) {
	return c.search(ctx, projectID, query, filter, k, c.classifier.Classify(query))
}

// SearchAs runs a query against a caller-forced QueryKind instead of the
// classifier's guess, for tool/HTTP callers that pass an explicit mode
// (semantic|keyword|hybrid|graph|filename per §6's tool surface) rather
// than free text the classifier should interpret.
func (c *Coordinator) SearchAs(ctx context.Context, projectID, query string, filter map[string]interface{}, k int, kind QueryKind) ([]BackendResult, QueryKind, error) {
	return c.search(ctx, projectID, query, filter, k, kind)
}

func (c *Coordinator) search(ctx context.Context, projectID, query string, filter map[string]interface{}, k int, kind QueryKind) ([]BackendResult, QueryKind, error) {
	backendNames := BackendSet(kind)
	weights := DefaultWeights(kind)

	cacheKey := c.resultCacheKey(projectID, query, backendNames, k, filter)
	if c.cache != nil {
		if cached, err := c.cache.Get(ctx, cacheKey); err == nil && cached != "" {
			var results []BackendResult
			if err := json.Unmarshal([]byte(cached), &results); err == nil {
				return results, kind, nil
			}
		}
	}

	perBackend := c.fanOut(ctx, projectID, query, filter, backendNames, k)
	fused := Fuse(perBackend, weights, k)

	if c.cache != nil {
		if encoded, err := json.Marshal(fused); err == nil {
			if err := c.cache.Set(ctx, cacheKey, string(encoded), c.cacheTTL); err != nil {
				c.logger.Warn("search result cache write failed", "error", err)
			}
		}
	}

	return fused, kind, nil
}

// Invalidate drops every cached result for a project, called on write-path
// operations (index, delete, hot reload) per §4.12's prefix-invalidation rule.
func (c *Coordinator) Invalidate(ctx context.Context, projectID string) error {
	if c.cache == nil {
		return nil
	}
	return c.cache.DeletePattern(ctx, fmt.Sprintf("search:%s:*", projectID))
}

func (c *Coordinator) fanOut(ctx context.Context, projectID, query string, filter map[string]interface{}, backendNames []string, k int) map[string][]BackendResult {
	results := make(map[string][]BackendResult, len(backendNames))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, name := range backendNames {
		backend, ok := c.backends[name]
		if !ok {
			continue
		}
		name, backend := name, backend
		wg.Add(1)
		go func() {
			defer wg.Done()
			backendCtx, cancel := context.WithTimeout(ctx, c.backendTimeout)
			defer cancel()

			r, err := backend(backendCtx, projectID, query, filter, k*2)
			if err != nil {
				c.logger.Warn("search backend failed", "backend", name, "error", err)
				return
			}
			sort.SliceStable(r, func(i, j int) bool { return r[i].Score > r[j].Score })

			mu.Lock()
			results[name] = r
			mu.Unlock()
		}()
	}
	wg.Wait()
	return results
}

func (c *Coordinator) resultCacheKey(projectID, query string, backendNames []string, k int, filter map[string]interface{}) string {
	h := sha256.New()
	h.Write([]byte(query))
	for _, b := range backendNames {
		h.Write([]byte("|" + b))
	}
	filterKeys := make([]string, 0, len(filter))
	for fk := range filter {
		filterKeys = append(filterKeys, fk)
	}
	sort.Strings(filterKeys)
	for _, fk := range filterKeys {
		h.Write([]byte(fmt.Sprintf("|%s=%v", fk, filter[fk])))
	}
	filterHash := hex.EncodeToString(h.Sum(nil))[:16]
	return fmt.Sprintf("search:%s:%s:%d", projectID, filterHash, k)
}
