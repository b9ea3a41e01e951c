// Package coordinator drives the per-project indexing pipeline as an
// explicit state machine with a bounded worker pool, generalizing the
// teacher's single-threaded walk-extract-embed-upsert loop into one that
// retries and rolls back a single file's writes without re-running the
// whole project.
package coordinator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kkkqkx123/codeforge-index/internal/chunk"
	"github.com/kkkqkx123/codeforge-index/internal/docs"
	"github.com/kkkqkx123/codeforge-index/internal/embedgateway"
	"github.com/kkkqkx123/codeforge-index/internal/errkind"
	"github.com/kkkqkx123/codeforge-index/internal/graph"
	"github.com/kkkqkx123/codeforge-index/internal/graphmap"
	"github.com/kkkqkx123/codeforge-index/internal/langdetect"
	"github.com/kkkqkx123/codeforge-index/internal/parser"
	"github.com/kkkqkx123/codeforge-index/internal/pattern"
	"github.com/kkkqkx123/codeforge-index/internal/resourceguard"
	"golang.org/x/sync/errgroup"
)

// State is one step of the per-project indexing state machine.
type State string

const (
	StateIdle        State = "idle"
	StateEnumerating State = "enumerating"
	StateHashing     State = "hashing"
	StateParsing     State = "parsing"
	StateWriting     State = "writing"
	StateVerifying   State = "verifying"
	StateReady       State = "ready"
	StateError       State = "error"
)

// VectorStore is the subset of store.QdrantStore the coordinator needs.
// Defined as an interface so tests can substitute an in-memory fake.
type VectorStore interface {
	EnsureCollection(ctx context.Context, name string, dim int) error
	UpsertChunks(ctx context.Context, collection string, chunks []chunk.Chunk) error
	DeleteByFile(ctx context.Context, collection, filePath string) error
}

// GraphWriter is the subset of graph writing the coordinator needs, behind
// the pure graphmap.Graph shape so the coordinator never imports the Neo4j
// driver directly.
type GraphWriter interface {
	EnsureDatabase(ctx context.Context, projectID string) error
	EnsureSchema(ctx context.Context, projectID string) error
	ApplyGraph(ctx context.Context, projectID string, g graphmap.Graph) error
	DeleteFile(ctx context.Context, projectID, filePath string) error
	UpsertPattern(ctx context.Context, projectID string, p graph.Pattern) error
	CreateRelationship(ctx context.Context, projectID string, rel graph.Relationship) error
}

// FileTask is one file discovered by enumeration.
type FileTask struct {
	RelativePath string
	AbsolutePath string
}

// Options configures the worker pool, retry budget, and embedding
// backpressure watermarks.
type Options struct {
	Workers            int
	MaxRetries         int
	EmbedHighWatermark int
	EmbedLowWatermark  int
}

// DefaultOptions mirrors spec's P = logical cores with a conservative
// embedding backpressure window.
func DefaultOptions(workers int) Options {
	if workers <= 0 {
		workers = 4
	}
	return Options{
		Workers:            workers,
		MaxRetries:         3,
		EmbedHighWatermark: workers * 4,
		EmbedLowWatermark:  workers,
	}
}

// Result summarizes one indexing cycle.
type Result struct {
	TotalFiles   int
	IndexedFiles int
	SkippedFiles int
	FailedFiles  int
	Errors       map[string]string // relativePath -> message
}

// Coordinator runs the per-project pipeline: detect -> parse -> chunk ->
// embed -> upsert(vector) -> map -> upsert(graph).
type Coordinator struct {
	projectID  string
	collection string
	dimension  int

	chunker    *chunk.Chunker
	detector   *langdetect.Detector
	patternDet *pattern.Detector
	embedder   *embedgateway.Gateway
	vectors    VectorStore
	graph      GraphWriter

	opts  Options
	gate  *watermarkGate
	state atomic.Value // State

	errThreshold  *resourceguard.ErrorThreshold
	pressureLevel atomic.Value // resourceguard.Level

	logger *slog.Logger
}

// New builds a Coordinator for one project. It wires its own chunker's
// onDegrade callback into the coordinator's current ErrorThreshold
// (ResourceGuard, §4.14). The per-project default New installs has
// maxErrors 0, so it counts degradations but never trips
// ShouldUseFallback; SetErrorThreshold swaps in one that does.
func New(projectID, collection string, dimension int, embedder *embedgateway.Gateway, vectors VectorStore, graphWriter GraphWriter, opts Options) *Coordinator {
	errThreshold := resourceguard.NewErrorThreshold(time.Minute, 0)

	c := &Coordinator{
		projectID:  projectID,
		collection: collection,
		dimension:  dimension,
		detector:   langdetect.New(langdetect.DefaultOptions()),
		patternDet: pattern.NewDetector(pattern.DetectorConfig{}),
		embedder:   embedder,
		vectors:    vectors,
		graph:      graphWriter,
		opts:       opts,
		gate:       newWatermarkGate(opts.EmbedHighWatermark, opts.EmbedLowWatermark),
		logger:     slog.Default(),

		errThreshold: errThreshold,
	}
	c.chunker = chunk.NewChunker(func(filePath string, fromStrategy chunk.Strategy, reason error) {
		c.errThreshold.RecordError()
		c.logger.Debug("chunk strategy degraded", "file", filePath, "from", fromStrategy, "reason", reason)
	})
	c.setState(StateIdle)
	c.pressureLevel.Store(resourceguard.LevelNormal)
	return c
}

// SetErrorThreshold replaces the coordinator's ErrorThreshold, e.g. with
// one shared across every project's MemoryGuard-driven degradation policy
// instead of the per-project default New creates.
func (c *Coordinator) SetErrorThreshold(e *resourceguard.ErrorThreshold) {
	c.errThreshold = e
}

// OnMemoryPressure is a resourceguard.MemoryGuard onPressure callback:
// wire it via NewMemoryGuard(opts, coordinator.OnMemoryPressure) so the
// guard's sampling loop can pause this coordinator's enumeration at
// LevelEmergency per §4.14's "consumed by IndexCoordinator" contract.
func (c *Coordinator) OnMemoryPressure(level resourceguard.Level) {
	c.pressureLevel.Store(level)
}

// waitForPressureToClear cooperatively pauses a file's pipeline while
// memory pressure is at LevelEmergency, polling at a short fixed interval
// rather than blocking indefinitely so ctx cancellation is still honored.
func (c *Coordinator) waitForPressureToClear(ctx context.Context) {
	for c.pressureLevel.Load().(resourceguard.Level) == resourceguard.LevelEmergency {
		select {
		case <-ctx.Done():
			return
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func (c *Coordinator) setState(s State) { c.state.Store(s) }

// State returns the coordinator's current state machine step.
func (c *Coordinator) State() State { return c.state.Load().(State) }

// IndexProject runs one full indexing cycle over the given file list,
// skipping files whose content hash matches priorHashes (incremental mode).
// It is the Idle -> Enumerating -> Hashing -> Parsing -> Writing ->
// Verifying -> Ready|Error state machine from spec's IndexCoordinator.
func (c *Coordinator) IndexProject(ctx context.Context, files []FileTask, priorHashes map[string]string) (*Result, error) {
	c.setState(StateEnumerating)
	result := &Result{TotalFiles: len(files), Errors: make(map[string]string)}

	if err := c.vectors.EnsureCollection(ctx, c.collection, c.dimension); err != nil {
		c.setState(StateError)
		return result, errkind.Wrap(errkind.TransientExternal, err, "ensure collection %s", c.collection)
	}
	if err := c.graph.EnsureDatabase(ctx, c.projectID); err != nil {
		c.setState(StateError)
		return result, errkind.Wrap(errkind.TransientExternal, err, "ensure graph database for %s", c.projectID)
	}
	if err := c.graph.EnsureSchema(ctx, c.projectID); err != nil {
		c.setState(StateError)
		return result, errkind.Wrap(errkind.TransientExternal, err, "ensure graph schema for %s", c.projectID)
	}

	c.setState(StateHashing)

	var mu sync.Mutex
	var allSymbols []parser.Symbol

	c.setState(StateParsing)

	var g errgroup.Group
	g.SetLimit(c.opts.Workers)

	for _, f := range files {
		f := f
		if ctx.Err() != nil {
			break
		}

		g.Go(func() error {
			outcome := c.processFile(ctx, f, priorHashes)

			mu.Lock()
			defer mu.Unlock()
			switch outcome.kind {
			case outcomeSkipped:
				result.SkippedFiles++
			case outcomeIndexed:
				result.IndexedFiles++
				allSymbols = append(allSymbols, outcome.symbols...)
			case outcomeFailed:
				result.FailedFiles++
				result.Errors[f.RelativePath] = outcome.err.Error()
			}
			return nil
		})
	}
	_ = g.Wait()

	c.detectAndUpsertPatterns(ctx, allSymbols)

	c.setState(StateVerifying)
	if result.FailedFiles == 0 {
		c.setState(StateReady)
	} else {
		c.setState(StateError)
	}
	return result, nil
}

// detectAndUpsertPatterns clusters this cycle's symbols into structural
// patterns (a class implementing the same method set as several others,
// e.g. a family of importers) and persists them as Pattern nodes with
// FOLLOWED_BY edges to their member files. Best-effort: a failure here
// doesn't fail the indexing cycle, since patterns are a derived enrichment
// of the graph, not a file's own indexed state.
func (c *Coordinator) detectAndUpsertPatterns(ctx context.Context, symbols []parser.Symbol) {
	if len(symbols) == 0 {
		return
	}
	for _, p := range c.patternDet.Detect(symbols) {
		gp := graph.Pattern{Name: p.Name, CanonicalFile: p.CanonicalFile, MemberCount: len(p.Members)}
		if err := c.graph.UpsertPattern(ctx, c.projectID, gp); err != nil {
			c.logger.Warn("upsert pattern failed", "pattern", p.Name, "error", err)
			continue
		}
		for _, member := range p.Members {
			rel := graph.Relationship{Type: graph.RelFollowedBy, SourceID: p.Name, TargetID: member}
			if err := c.graph.CreateRelationship(ctx, c.projectID, rel); err != nil {
				c.logger.Warn("link pattern to file failed", "pattern", p.Name, "file", member, "error", err)
			}
		}
	}
}

type outcomeKind int

const (
	outcomeSkipped outcomeKind = iota
	outcomeIndexed
	outcomeFailed
)

type fileOutcome struct {
	kind    outcomeKind
	err     error
	symbols []parser.Symbol
}

// processFile runs the full per-file pipeline with retry and rollback on
// partial dual-store failure, per spec's per-file logical atomicity: a file
// counts as indexed only once both the vector and graph stores accept it.
func (c *Coordinator) processFile(ctx context.Context, f FileTask, priorHashes map[string]string) fileOutcome {
	c.waitForPressureToClear(ctx)

	source, err := os.ReadFile(f.AbsolutePath)
	if err != nil {
		return fileOutcome{kind: outcomeFailed, err: errkind.Wrap(errkind.PermanentExternal, err, "read %s", f.RelativePath)}
	}

	contentHash := hashContent(source)
	if prior, ok := priorHashes[f.RelativePath]; ok && prior == contentHash {
		return fileOutcome{kind: outcomeSkipped}
	}

	detection := c.detector.Detect(f.RelativePath, source)

	var lastErr error
	for attempt := 0; attempt <= c.opts.MaxRetries; attempt++ {
		symbols, err := c.writeFile(ctx, f, source, detection)
		if err != nil {
			lastErr = err
			// best-effort rollback of whatever partially landed before retrying
			_ = c.vectors.DeleteByFile(ctx, c.collection, f.RelativePath)
			_ = c.graph.DeleteFile(ctx, c.projectID, f.RelativePath)
			continue
		}
		return fileOutcome{kind: outcomeIndexed, symbols: symbols}
	}

	// Final failure: delete any residue so a half-written file never looks indexed.
	_ = c.vectors.DeleteByFile(ctx, c.collection, f.RelativePath)
	_ = c.graph.DeleteFile(ctx, c.projectID, f.RelativePath)
	c.errThreshold.RecordError()
	return fileOutcome{kind: outcomeFailed, err: lastErr}
}

// writeFile runs chunk -> embed -> upsert(vector) -> map -> upsert(graph) for
// one file, applying the embedding backpressure gate around the embed step.
// On success it returns the file's parsed symbols, for the caller to
// accumulate into this cycle's cross-file pattern detection pass.
func (c *Coordinator) writeFile(ctx context.Context, f FileTask, source []byte, detection langdetect.Result) ([]parser.Symbol, error) {
	if detection.Language == "markdown" {
		return nil, c.writeDoc(ctx, f, source)
	}

	chunkResult := c.chunker.Chunk(c.projectID, f.RelativePath, "", source, detection)
	if len(chunkResult.Chunks) == 0 {
		return nil, nil
	}

	c.gate.acquire()
	defer c.gate.release()

	items := make([]embedgateway.Item, len(chunkResult.Chunks))
	for i, ch := range chunkResult.Chunks {
		items[i] = embedgateway.Item{ID: ch.ID, Text: embedText(ch)}
	}

	embedResult, err := c.embedder.EmbedChunks(ctx, items)
	if err != nil {
		return nil, errkind.Wrap(errkind.TransientExternal, err, "embed %s", f.RelativePath)
	}

	chunks := make([]chunk.Chunk, 0, len(chunkResult.Chunks))
	for _, ch := range chunkResult.Chunks {
		vec, ok := embedResult.Vectors[ch.ID]
		if !ok {
			continue // deferred: embedding failed after retries, skip this chunk this cycle
		}
		ch.Vector = vec
		chunks = append(chunks, ch)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("all chunks deferred for %s", f.RelativePath)
	}

	if err := c.vectors.UpsertChunks(ctx, c.collection, chunks); err != nil {
		return nil, errkind.Wrap(errkind.TransientExternal, err, "upsert vectors for %s", f.RelativePath)
	}

	symbols, relationships := extractSymbolsAndRelationships(source, f.RelativePath)
	g := graphmap.Map(c.projectID, f.RelativePath, symbols, relationships, chunks)
	if err := c.graph.ApplyGraph(ctx, c.projectID, g); err != nil {
		return nil, errkind.Wrap(errkind.TransientExternal, err, "upsert graph for %s", f.RelativePath)
	}

	return symbols, nil
}

// writeDoc indexes a markdown file as navigation chunks instead of running it
// through the code chunker: headings become retrieval units, weighted above
// ordinary code chunks so a README or AGENTS.md surfaces first for queries
// about project structure. It carries no symbols or relationships, so the
// graph side is untouched.
func (c *Coordinator) writeDoc(ctx context.Context, f FileTask, source []byte) error {
	doc, err := docs.ParseAgentsMD(source, f.RelativePath, c.projectID)
	if err != nil {
		return errkind.Wrap(errkind.PermanentExternal, err, "parse doc %s", f.RelativePath)
	}
	docChunks := doc.ToChunks()
	if len(docChunks) == 0 {
		return nil
	}

	c.gate.acquire()
	defer c.gate.release()

	items := make([]embedgateway.Item, len(docChunks))
	for i, ch := range docChunks {
		items[i] = embedgateway.Item{ID: ch.ID, Text: embedText(ch)}
	}

	embedResult, err := c.embedder.EmbedChunks(ctx, items)
	if err != nil {
		return errkind.Wrap(errkind.TransientExternal, err, "embed doc %s", f.RelativePath)
	}

	chunks := make([]chunk.Chunk, 0, len(docChunks))
	for _, ch := range docChunks {
		vec, ok := embedResult.Vectors[ch.ID]
		if !ok {
			continue
		}
		ch.Vector = vec
		chunks = append(chunks, ch)
	}
	if len(chunks) == 0 {
		return fmt.Errorf("all doc chunks deferred for %s", f.RelativePath)
	}

	if err := c.vectors.UpsertChunks(ctx, c.collection, chunks); err != nil {
		return errkind.Wrap(errkind.TransientExternal, err, "upsert doc vectors for %s", f.RelativePath)
	}
	return nil
}

// extractSymbolsAndRelationships parses a file independently of the chunk
// cascade when its language has tree-sitter support. An unsupported or
// low-confidence language simply yields no graph nodes beyond the File node,
// matching the AST strategy's own fallback gate in internal/chunk.
func extractSymbolsAndRelationships(source []byte, filePath string) ([]parser.Symbol, []parser.Relationship) {
	lang, ok := parser.DetectLanguage(filePath)
	if !ok {
		return nil, nil
	}
	p, err := parser.NewParser(lang)
	if err != nil {
		return nil, nil
	}
	result, err := p.ParseWithRelationships(source, filePath)
	if err != nil {
		return nil, nil
	}
	return result.Symbols, result.Relationships
}

func embedText(c chunk.Chunk) string {
	if c.ContextHeader != "" {
		return c.ContextHeader + "\n\n" + c.Content
	}
	return c.Content
}

func hashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// HashContent exposes the coordinator's own content-hash algorithm to
// callers that need to persist a FileIndexState matching what IndexProject
// compared priorHashes against, without duplicating the hash logic.
func HashContent(content []byte) string {
	return hashContent(content)
}
