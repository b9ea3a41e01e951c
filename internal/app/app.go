// Package app is the composition root that wires config, storage, the
// indexing and search coordinators, and the supporting ambient services
// into the three operations the MCP tool surface and HTTP gateway expose:
// create an index, search it, and report status.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/kkkqkx123/codeforge-index/internal/cache"
	"github.com/kkkqkx123/codeforge-index/internal/config"
	"github.com/kkkqkx123/codeforge-index/internal/coordinator"
	"github.com/kkkqkx123/codeforge-index/internal/embedding"
	"github.com/kkkqkx123/codeforge-index/internal/embedgateway"
	"github.com/kkkqkx123/codeforge-index/internal/graph"
	"github.com/kkkqkx123/codeforge-index/internal/hotreload"
	"github.com/kkkqkx123/codeforge-index/internal/ids"
	"github.com/kkkqkx123/codeforge-index/internal/ignore"
	"github.com/kkkqkx123/codeforge-index/internal/perfmon"
	"github.com/kkkqkx123/codeforge-index/internal/projectstate"
	"github.com/kkkqkx123/codeforge-index/internal/resourceguard"
	"github.com/kkkqkx123/codeforge-index/internal/search"
	"github.com/kkkqkx123/codeforge-index/internal/store"
	"github.com/kkkqkx123/codeforge-index/internal/walker"
)

// Service owns every long-lived dependency and exposes the operations named
// in the specification's MCP tool surface: codebase.index.create,
// codebase.index.search, codebase.status.get.
type Service struct {
	cfg    config.Config
	logger *slog.Logger

	state    *projectstate.Store
	vectors  *store.QdrantStore
	graphdb  *graph.Neo4jStore
	embedder *embedgateway.Gateway

	resultCache cache.StatefulCache

	memGuard     *resourceguard.MemoryGuard
	errThreshold *resourceguard.ErrorThreshold
	monitor      *perfmon.Monitor

	mu         sync.Mutex
	projects   map[string]*projectRuntime
}

// projectRuntime holds the per-project objects IndexCoordinator and
// SearchCoordinator need, created lazily on first use for that project.
type projectRuntime struct {
	coordinator *coordinator.Coordinator
	search      *search.Coordinator
	hotReload   *hotreload.Controller
}

// New builds a Service from a fully-resolved config. Secrets must already
// be resolved (config.Config.ResolveSecrets) before this is called.
func New(cfg config.Config, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}

	stateDBPath := cfg.Storage.StateDBPath
	if stateDBPath == "" {
		stateDBPath = "codeforge-state.db"
	}
	stateStore, err := projectstate.Open(stateDBPath)
	if err != nil {
		return nil, fmt.Errorf("open project state store: %w", err)
	}

	qdrant, err := store.NewQdrantStore(cfg.Storage.QdrantURL)
	if err != nil {
		return nil, fmt.Errorf("connect qdrant: %w", err)
	}

	neo4j, err := graph.NewNeo4jStore(cfg.Storage.Neo4jURL, cfg.Storage.Neo4jUser, cfg.Storage.Neo4jPass)
	if err != nil {
		return nil, fmt.Errorf("connect neo4j: %w", err)
	}

	voyage := embedding.NewVoyageClient(cfg.Embedding.APIKey, cfg.Embedding.Model)
	provider := embedgateway.NewVoyageProvider(voyage)
	gatewayOpts := embedgateway.DefaultOptions()
	if cfg.Cache.EmbedCacheCapacity > 0 {
		gatewayOpts.CacheSize = cfg.Cache.EmbedCacheCapacity
	}
	gateway, err := embedgateway.New(provider, cfg.Embedding.Model, gatewayOpts)
	if err != nil {
		return nil, fmt.Errorf("build embedding gateway: %w", err)
	}

	resultCache, err := buildCache(cfg.Storage.RedisURL, cfg.Cache.ResultCacheCapacity)
	if err != nil {
		return nil, fmt.Errorf("build result cache: %w", err)
	}

	errThreshold := resourceguard.NewErrorThreshold(
		time.Duration(cfg.ResourceGuard.ResetIntervalMs)*time.Millisecond,
		cfg.ResourceGuard.MaxErrors,
	)

	monitor := perfmon.New(perfmon.Options{Logger: logger})

	svc := &Service{
		cfg:          cfg,
		logger:       logger,
		state:        stateStore,
		vectors:      qdrant,
		graphdb:      neo4j,
		embedder:     gateway,
		resultCache:  resultCache,
		errThreshold: errThreshold,
		monitor:      monitor,
		projects:     make(map[string]*projectRuntime),
	}

	guardOpts := resourceguard.MemoryGuardOptions{
		CheckInterval: 5 * time.Second,
		WarnPct:       cfg.ResourceGuard.WarnPct,
		CriticalPct:   cfg.ResourceGuard.CriticalPct,
		EmergencyPct:  cfg.ResourceGuard.EmergencyPct,
		LimitBytes:    cfg.ResourceGuard.LimitBytes,
	}
	svc.memGuard = resourceguard.NewMemoryGuard(guardOpts, svc.onMemoryPressure)

	return svc, nil
}

func buildCache(redisURL string, capacity int) (cache.StatefulCache, error) {
	if redisURL != "" {
		return cache.NewRedisCache(redisURL)
	}
	return cache.NewLRUCache(capacity)
}

// onMemoryPressure fans MemoryGuard's level out to every active project's
// IndexCoordinator, since pressure is a process-wide fact even though
// indexing runs per project.
func (s *Service) onMemoryPressure(level resourceguard.Level) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.projects {
		p.coordinator.OnMemoryPressure(level)
	}
}

// Close releases every underlying connection.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.projects {
		if p.hotReload != nil {
			_ = p.hotReload.Toggle(context.Background(), false)
		}
	}
	_ = s.embedder.Close()
	_ = s.graphdb.Close(context.Background())
	_ = s.vectors.Close()
	_ = s.state.Close()
	s.memGuard.Stop()
	return nil
}

// StartBackgroundMonitors begins MemoryGuard's periodic sampling loop. It
// runs until ctx is cancelled or Stop/Close is called.
func (s *Service) StartBackgroundMonitors(ctx context.Context) {
	s.memGuard.Start(ctx)
}

// IndexCreateResult is codebase.index.create's return value.
type IndexCreateResult struct {
	ProjectID string
	Status    string
	Result    *coordinator.Result
}

// CreateIndex enumerates rootPath, builds (or reuses) the project's runtime,
// and runs one full IndexCoordinator cycle over every discovered file.
func (s *Service) CreateIndex(ctx context.Context, rootPath string) (*IndexCreateResult, error) {
	absRoot, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, fmt.Errorf("resolve project root %s: %w", rootPath, err)
	}
	projectID := ids.ProjectID(absRoot)

	now := time.Now().UTC()
	collection := store.CollectionName(absRoot)
	if err := s.state.UpsertProject(ctx, projectstate.Project{
		ProjectID:      projectID,
		Path:           absRoot,
		Name:           filepath.Base(absRoot),
		CreatedAt:      now,
		UpdatedAt:      now,
		Status:         projectstate.StatusIndexing,
		CollectionName: collection,
		SpaceName:      projectID,
	}); err != nil {
		return nil, fmt.Errorf("record project: %w", err)
	}

	rt, err := s.runtimeFor(projectID, absRoot, collection)
	if err != nil {
		return nil, err
	}

	ignoreEngine := ignore.NewEngine()
	_ = ignoreEngine.LoadRoot(absRoot)

	w := walker.New(absRoot, ignoreEngine, walker.DefaultOptions())
	var tasks []coordinator.FileTask
	walkErr := w.Walk(func(e walker.Entry) error {
		if e.IsDirectory {
			return nil
		}
		tasks = append(tasks, coordinator.FileTask{
			RelativePath: e.RelativePath,
			AbsolutePath: filepath.Join(absRoot, e.RelativePath),
		})
		return nil
	}, func(path string, err error) {
		s.logger.Warn("skipped unreadable entry during walk", "path", path, "error", err)
	})
	if walkErr != nil {
		return nil, fmt.Errorf("walk project tree: %w", walkErr)
	}

	priorHashes, err := s.state.PriorHashes(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("load prior hashes: %w", err)
	}

	stop := s.monitor.Track("index_project")
	result, err := rt.coordinator.IndexProject(ctx, tasks, priorHashes)
	stop()
	if err != nil {
		_ = s.state.UpdateProjectStatus(ctx, projectID, func(st *projectstate.ProjectStatus) {
			st.VectorStatus.State = projectstate.SubStateError
			st.VectorStatus.LastError = err.Error()
		})
		return nil, fmt.Errorf("index project: %w", err)
	}

	status := "ready"
	if result.FailedFiles > 0 {
		status = "partial"
	}
	if err := s.state.UpdateProjectStatus(ctx, projectID, func(st *projectstate.ProjectStatus) {
		st.VectorStatus.State = projectstate.SubStateReady
		st.GraphStatus.State = projectstate.SubStateReady
		st.TotalFiles = result.TotalFiles
		st.IndexedFiles = result.IndexedFiles
		st.FailedFiles = result.FailedFiles
	}); err != nil {
		s.logger.Warn("failed to persist post-index status", "project", projectID, "error", err)
	}
	if err := s.state.UpsertProject(ctx, projectstate.Project{
		ProjectID:      projectID,
		Path:           absRoot,
		Name:           filepath.Base(absRoot),
		CreatedAt:      now,
		UpdatedAt:      time.Now().UTC(),
		Status:         projectstate.StatusActive,
		CollectionName: collection,
		SpaceName:      projectID,
	}); err != nil {
		s.logger.Warn("failed to mark project active", "project", projectID, "error", err)
	}
	if err := rt.search.Invalidate(ctx, projectID); err != nil {
		s.logger.Warn("failed to invalidate search cache after reindex", "project", projectID, "error", err)
	}
	s.persistFileStates(ctx, projectID, tasks, result)

	return &IndexCreateResult{ProjectID: projectID, Status: status, Result: result}, nil
}

// persistFileStates records each successfully processed file's content hash
// so the next IndexProject call can skip it via priorHashes. IndexProject
// itself only reports aggregate counts, so the hash is recomputed here
// rather than threaded back out of the coordinator's internal worker loop.
func (s *Service) persistFileStates(ctx context.Context, projectID string, tasks []coordinator.FileTask, result *coordinator.Result) {
	now := time.Now().UTC()
	states := make([]projectstate.FileIndexState, 0, len(tasks))
	for _, t := range tasks {
		if _, failed := result.Errors[t.RelativePath]; failed {
			continue
		}
		content, err := os.ReadFile(t.AbsolutePath)
		if err != nil {
			continue
		}
		states = append(states, projectstate.FileIndexState{
			ProjectID:    projectID,
			RelativePath: t.RelativePath,
			ContentHash:  coordinator.HashContent(content),
			Size:         int64(len(content)),
			Status:       projectstate.FileStatusIndexed,
			LastModified: now,
			LastIndexed:  now,
		})
	}
	if err := s.state.UpsertFileStates(ctx, states); err != nil {
		s.logger.Warn("failed to persist file index states", "project", projectID, "error", err)
	}
}

// SearchResult is codebase.index.search's return value.
type SearchResult struct {
	Results   []search.BackendResult
	QueryKind search.QueryKind
	Total     int
}

// SearchOptions mirrors codebase.index.search's options argument (§6): an
// explicit limit, an optional mode that bypasses the classifier, and a
// backend filter map (languages/paths, passed through to backends verbatim).
type SearchOptions struct {
	Limit  int
	Mode   string
	Filter map[string]interface{}
}

// Search runs a query against a project that has already been indexed. An
// empty Mode lets SearchCoordinator classify the query text itself; a
// recognized Mode (semantic|keyword|hybrid|graph|filename) forces that
// retrieval strategy regardless of how the text would otherwise classify.
func (s *Service) Search(ctx context.Context, projectID, query string, opts SearchOptions) (*SearchResult, error) {
	rt, err := s.resolveRuntime(ctx, projectID)
	if err != nil {
		return nil, err
	}

	k := opts.Limit
	if k <= 0 {
		k = s.cfg.Search.DefaultK
	}

	stop := s.monitor.Track("query_execution")
	var results []search.BackendResult
	var kind search.QueryKind
	if forced, ok := search.ParseMode(opts.Mode); ok {
		results, kind, err = rt.search.SearchAs(ctx, projectID, query, opts.Filter, k, forced)
	} else {
		results, kind, err = rt.search.Search(ctx, projectID, query, opts.Filter, k)
	}
	stop()
	if err != nil {
		return nil, fmt.Errorf("search project %s: %w", projectID, err)
	}
	return &SearchResult{Results: results, QueryKind: kind, Total: len(results)}, nil
}

// SearchPage runs Search and slices the fused result set into one cursor
// page, for HTTP/CLI callers paging through a large result set instead of
// taking it all at once. Pass an empty cursor for the first page; each
// returned page's Cursor (when non-empty) fetches the next one. A cursor
// from a different query text is rejected, since it was minted against a
// different query hash.
func (s *Service) SearchPage(ctx context.Context, projectID, query string, opts SearchOptions, cursor string, pageSize int) (*search.PaginatedResults, error) {
	if pageSize <= 0 {
		pageSize = s.cfg.Search.DefaultK
	}
	queryHash := search.HashQuery(projectID, query, opts.Mode)

	offset := 0
	now := time.Now()
	if cursor != "" {
		decoded, err := search.DecodeCursor(cursor, now)
		if err != nil {
			return nil, fmt.Errorf("decode cursor: %w", err)
		}
		if decoded.QueryHash != queryHash {
			return nil, fmt.Errorf("cursor does not match this query")
		}
		offset = decoded.Offset
	}

	fullOpts := opts
	fullOpts.Limit = offset + pageSize + 1
	full, err := s.Search(ctx, projectID, query, fullOpts)
	if err != nil {
		return nil, err
	}

	page := search.Paginate(full.Results, offset, pageSize, queryHash, full.QueryKind, now)
	return &page, nil
}

// InvalidateCache drops every cached search result for a project, for
// callers (invalidate-file CLI, external reindex signals) that know a
// project's on-disk state changed outside IndexCoordinator's own write path.
func (s *Service) InvalidateCache(ctx context.Context, projectID string) error {
	rt, err := s.resolveRuntime(ctx, projectID)
	if err != nil {
		return err
	}
	return rt.search.Invalidate(ctx, projectID)
}

// DeleteProject tears down one project's index entirely: its vector
// collection, its graph database, its hot-reload watcher if running, and its
// persisted project/file-state rows. It does not fail if some of that state
// is already gone, since a caller retrying a partially-failed delete should
// converge rather than get stuck on "already deleted".
func (s *Service) DeleteProject(ctx context.Context, projectID string) error {
	proj, found, err := s.state.GetProject(ctx, projectID)
	if err != nil {
		return fmt.Errorf("look up project %s: %w", projectID, err)
	}
	if !found {
		return fmt.Errorf("project %s is not indexed", projectID)
	}

	s.mu.Lock()
	rt, ok := s.projects[projectID]
	delete(s.projects, projectID)
	s.mu.Unlock()
	if ok && rt.hotReload != nil {
		_ = rt.hotReload.Toggle(ctx, false)
	}

	if err := s.vectors.DeleteCollection(ctx, proj.CollectionName); err != nil {
		s.logger.Warn("delete vector collection failed", "project", projectID, "error", err)
	}
	if err := s.graphdb.DropDatabase(ctx, projectID); err != nil {
		s.logger.Warn("drop graph database failed", "project", projectID, "error", err)
	}
	if err := s.state.DeleteProject(ctx, projectID); err != nil {
		return fmt.Errorf("delete project state %s: %w", projectID, err)
	}
	return nil
}

// resolveRuntime returns a project's cached runtime, building it from
// persisted project state on first use after process restart.
func (s *Service) resolveRuntime(ctx context.Context, projectID string) (*projectRuntime, error) {
	s.mu.Lock()
	rt, ok := s.projects[projectID]
	s.mu.Unlock()
	if ok {
		return rt, nil
	}
	proj, found, err := s.state.GetProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("look up project %s: %w", projectID, err)
	}
	if !found {
		return nil, fmt.Errorf("project %s is not indexed", projectID)
	}
	return s.runtimeFor(projectID, proj.Path, proj.CollectionName)
}

// RelatedFile is one entry of SuggestContext's result: a file judged
// relevant to the content under edit, with the reason it surfaced.
type RelatedFile struct {
	Path   string
	Reason string
}

// SuggestContext ranks files related to a piece of content under edit, for
// an editor-hook caller deciding what else to load into context. It tries
// the graph first (direct structural relationships to filePath rank highest)
// and fills remaining slots with the embedder's nearest semantic neighbors,
// bypassing SearchCoordinator's query classifier since the input here is a
// file's own content rather than a search query.
func (s *Service) SuggestContext(ctx context.Context, projectID, filePath, content string, limit int) ([]RelatedFile, error) {
	proj, found, err := s.state.GetProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("look up project %s: %w", projectID, err)
	}
	if !found {
		return nil, fmt.Errorf("project %s is not indexed", projectID)
	}
	if limit <= 0 {
		limit = s.cfg.Search.DefaultK
	}

	related := make([]RelatedFile, 0, limit)
	seen := map[string]bool{filePath: true}

	if graphFiles, err := s.graphdb.FindRelatedFiles(ctx, projectID, filePath, limit); err == nil {
		for _, f := range graphFiles {
			if seen[f.Path] {
				continue
			}
			seen[f.Path] = true
			related = append(related, RelatedFile{Path: f.Path, Reason: "graph relationship"})
		}
	} else {
		s.logger.Warn("suggest-context graph lookup failed", "project", projectID, "error", err)
	}
	if len(related) >= limit {
		return related[:limit], nil
	}

	vector, err := s.embedder.EmbedQuery(ctx, truncateForEmbedding(content))
	if err != nil {
		return related, fmt.Errorf("embed content for suggestion: %w", err)
	}
	chunks, err := s.vectors.Search(ctx, proj.CollectionName, vector, (limit-len(related))*5, nil)
	if err != nil {
		return related, fmt.Errorf("semantic neighbor search: %w", err)
	}
	for _, c := range chunks {
		if seen[c.FilePath] {
			continue
		}
		seen[c.FilePath] = true
		related = append(related, RelatedFile{Path: c.FilePath, Reason: "semantically related"})
		if len(related) >= limit {
			break
		}
	}
	return related, nil
}

// truncateForEmbedding caps the text sent to the embedding provider, mirroring
// the CLI's original suggest-context hook which only ever looked at a file's
// opening section to decide what else was relevant.
func truncateForEmbedding(content string) string {
	const maxChars = 2000
	if len(content) <= maxChars {
		return content
	}
	return content[:maxChars]
}

// ProjectStatusReport is codebase.status.get's return value for one project.
type ProjectStatusReport struct {
	Project projectstate.Project
	Status  projectstate.ProjectStatus
	Found   bool
}

// Status reports one project's state, or every known project if projectID is empty.
func (s *Service) Status(ctx context.Context, projectID string) ([]ProjectStatusReport, error) {
	if projectID != "" {
		proj, found, err := s.state.GetProject(ctx, projectID)
		if err != nil || !found {
			return nil, err
		}
		status, _, err := s.state.GetProjectStatus(ctx, projectID)
		if err != nil {
			return nil, err
		}
		return []ProjectStatusReport{{Project: proj, Status: status, Found: true}}, nil
	}

	projects, err := s.state.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	reports := make([]ProjectStatusReport, 0, len(projects))
	for _, p := range projects {
		status, found, err := s.state.GetProjectStatus(ctx, p.ProjectID)
		if err != nil {
			return nil, err
		}
		reports = append(reports, ProjectStatusReport{Project: p, Status: status, Found: found})
	}
	return reports, nil
}

// SetHotReload toggles a project's HotReloadController, starting its
// fsnotify watcher when enabling.
func (s *Service) SetHotReload(ctx context.Context, projectID string, enabled bool) error {
	rt, err := s.resolveRuntime(ctx, projectID)
	if err != nil {
		return err
	}
	return rt.hotReload.Toggle(ctx, enabled)
}

// runtimeFor builds (or returns the cached) coordinator/search/hot-reload
// trio for one project, all sharing the service's storage connections.
func (s *Service) runtimeFor(projectID, rootPath, collection string) (*projectRuntime, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rt, ok := s.projects[projectID]; ok {
		return rt, nil
	}

	coordOpts := coordinator.DefaultOptions(s.cfg.Pipeline.WorkerPoolSize)
	coordOpts.MaxRetries = s.cfg.Pipeline.MaxRetries
	coordOpts.EmbedHighWatermark = s.cfg.Pipeline.EmbedQueueHighWatermark
	coordOpts.EmbedLowWatermark = s.cfg.Pipeline.EmbedQueueLowWatermark

	coord := coordinator.New(projectID, collection, s.embedder.Dimension(), s.embedder, s.vectors, s.graphdb, coordOpts)
	coord.SetErrorThreshold(s.errThreshold)

	lister := projectStateLister{store: s.state}
	backends := map[string]search.Backend{
		"filename":  search.FilenameBackend(lister),
		"path":      search.PathBackend(lister),
		"extension": search.ExtensionBackend(lister),
		"semantic":  search.SemanticBackend(embedderAdapter{s.embedder}, s.vectors, func(string) string { return collection }),
		"graph":     search.GraphBackend(s.graphdb),
	}
	searchOpts := search.DefaultOptions()
	searchOpts.CacheTTL = time.Duration(s.cfg.Cache.ResultCacheTTLSeconds) * time.Second
	searchOpts.BackendTimeout = time.Duration(s.cfg.Search.BackendTimeoutMs) * time.Millisecond
	searchCoord := search.New(backends, s.resultCache, searchOpts, s.logger)

	indexerAdapter := hotReloadIndexer{service: s, coordinator: coord, projectID: projectID}
	sink := statusSink{state: s.state, projectID: projectID}
	priorHashes := func() map[string]string {
		hashes, err := s.state.PriorHashes(context.Background(), projectID)
		if err != nil {
			return nil
		}
		return hashes
	}
	hrOpts := hotreload.Options{
		DebounceInterval: time.Duration(s.cfg.HotReload.DebounceIntervalMs) * time.Millisecond,
		MaxFileSize:      s.cfg.Pipeline.MaxFileSizeBytes,
		Logger:           s.logger,
	}
	hrController, err := hotreload.New(rootPath, indexerAdapter, sink, priorHashes, hrOpts)
	if err != nil {
		return nil, fmt.Errorf("build hot reload controller for %s: %w", projectID, err)
	}

	rt := &projectRuntime{coordinator: coord, search: searchCoord, hotReload: hrController}
	s.projects[projectID] = rt
	return rt, nil
}

// projectStateLister adapts projectstate.Store to search.FileLister.
type projectStateLister struct{ store *projectstate.Store }

func (l projectStateLister) IndexedPaths(ctx context.Context, projectID string) ([]string, error) {
	return l.store.IndexedPaths(ctx, projectID)
}

// embedderAdapter adapts embedgateway.Gateway to search.Embedder.
type embedderAdapter struct{ gateway *embedgateway.Gateway }

func (e embedderAdapter) Dimension() int { return e.gateway.Dimension() }

func (e embedderAdapter) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return e.gateway.EmbedQuery(ctx, text)
}

// hotReloadIndexer adapts coordinator.Coordinator to hotreload.Indexer, and
// records the new hashes after each run so the next debounced burst only
// reprocesses what actually changed.
type hotReloadIndexer struct {
	service     *Service
	coordinator *coordinator.Coordinator
	projectID   string
}

func (h hotReloadIndexer) IndexProject(ctx context.Context, files []coordinator.FileTask, priorHashes map[string]string) (*coordinator.Result, error) {
	result, err := h.coordinator.IndexProject(ctx, files, priorHashes)
	if err != nil {
		return result, err
	}
	h.service.persistFileStates(ctx, h.projectID, files, result)
	return result, nil
}

// statusSink adapts projectstate.Store to hotreload.StatusSink.
type statusSink struct {
	state     *projectstate.Store
	projectID string
}

func (s statusSink) OnToggle(enabled bool, at time.Time) {
	_ = s.state.UpdateProjectStatus(context.Background(), s.projectID, func(st *projectstate.ProjectStatus) {
		st.HotReloadEnabled = enabled
		if enabled {
			st.LastEnabled.Time, st.LastEnabled.Valid = at, true
		} else {
			st.LastDisabled.Time, st.LastDisabled.Valid = at, true
		}
	})
}

func (s statusSink) OnChangesDetected(n int) {
	_ = s.state.UpdateProjectStatus(context.Background(), s.projectID, func(st *projectstate.ProjectStatus) {
		st.ChangesDetected += n
	})
}

func (s statusSink) OnError(err error) {
	_ = s.state.UpdateProjectStatus(context.Background(), s.projectID, func(st *projectstate.ProjectStatus) {
		st.ErrorsCount++
	})
}
