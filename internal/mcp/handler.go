package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/kkkqkx123/codeforge-index/internal/app"
	"github.com/kkkqkx123/codeforge-index/internal/metrics"
	"github.com/kkkqkx123/codeforge-index/internal/search"
)

// ServiceHandler implements Handler over internal/app.Service, exposing the
// three logical tools of §6's tool protocol: codebase.index.create,
// codebase.index.search, codebase.status.get.
type ServiceHandler struct {
	service     *app.Service
	metrics     *metrics.Logger
	logger      *slog.Logger
	suggestions *search.SuggestionGenerator
}

// NewServiceHandler builds a ServiceHandler. metricsLogger may be nil, in
// which case search events are simply not recorded.
func NewServiceHandler(service *app.Service, metricsLogger *metrics.Logger, logger *slog.Logger) *ServiceHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ServiceHandler{
		service:     service,
		metrics:     metricsLogger,
		logger:      logger,
		suggestions: search.NewSuggestionGenerator(),
	}
}

// Close releases the handler's own resources. The underlying Service is
// owned by the caller of NewServiceHandler and closed separately.
func (h *ServiceHandler) Close() error {
	if h.metrics != nil {
		return h.metrics.Close()
	}
	return nil
}

func (h *ServiceHandler) ListTools() []Tool {
	return []Tool{
		{
			Name:        "codebase.index.create",
			Description: "Index a codebase, building its semantic vector index and structural graph index.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"path": {Type: "string", Description: "Absolute or relative path to the project root"},
				},
				Required: []string{"path"},
			},
		},
		{
			Name:        "codebase.index.search",
			Description: "Search an indexed codebase by natural language description, filename, path pattern, extension, or graph relationship.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"projectId": {Type: "string", Description: "Project identifier returned by codebase.index.create"},
					"query":     {Type: "string", Description: "Search query text"},
					"limit":     {Type: "number", Description: "Maximum number of results (default from config)"},
					"mode":      {Type: "string", Description: "Force a retrieval strategy instead of auto-classifying the query", Enum: []string{"semantic", "keyword", "hybrid", "graph", "filename"}},
				},
				Required: []string{"projectId", "query"},
			},
		},
		{
			Name:        "codebase.status.get",
			Description: "Report indexing and hot-reload status for one project, or every known project.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"projectId": {Type: "string", Description: "Project identifier; omit to list every project"},
				},
			},
		},
	}
}

func (h *ServiceHandler) CallTool(ctx context.Context, name string, args map[string]interface{}) (*CallToolResult, error) {
	switch name {
	case "codebase.index.create":
		return h.callIndexCreate(ctx, args)
	case "codebase.index.search":
		return h.callIndexSearch(ctx, args)
	case "codebase.status.get":
		return h.callStatusGet(ctx, args)
	default:
		return nil, fmt.Errorf("unknown tool %q", name)
	}
}

func (h *ServiceHandler) callIndexCreate(ctx context.Context, args map[string]interface{}) (*CallToolResult, error) {
	path, _ := args["path"].(string)
	if path == "" {
		return nil, fmt.Errorf("codebase.index.create requires a non-empty path")
	}
	result, err := h.service.CreateIndex(ctx, path)
	if err != nil {
		return nil, err
	}
	return jsonResult(map[string]interface{}{
		"projectId": result.ProjectID,
		"status":    result.Status,
		"totalFiles":   result.Result.TotalFiles,
		"indexedFiles": result.Result.IndexedFiles,
		"skippedFiles": result.Result.SkippedFiles,
		"failedFiles":  result.Result.FailedFiles,
	})
}

func (h *ServiceHandler) callIndexSearch(ctx context.Context, args map[string]interface{}) (*CallToolResult, error) {
	projectID, _ := args["projectId"].(string)
	query, _ := args["query"].(string)
	if projectID == "" || query == "" {
		return nil, fmt.Errorf("codebase.index.search requires projectId and query")
	}
	opts := app.SearchOptions{}
	if mode, ok := args["mode"].(string); ok {
		opts.Mode = mode
	}
	if limit, ok := args["limit"].(float64); ok {
		opts.Limit = int(limit)
	}
	if filters, ok := args["filters"].(map[string]interface{}); ok {
		opts.Filter = filters
	}

	start := time.Now()
	result, err := h.service.Search(ctx, projectID, query, opts)
	latencyMs := time.Since(start).Milliseconds()
	if err != nil {
		if h.metrics != nil {
			h.metrics.LogError("search", err.Error())
		}
		return nil, err
	}
	if h.metrics != nil {
		h.metrics.LogSearch(query, string(result.QueryKind), result.Total, latencyMs, false)
	}

	hits := make([]map[string]interface{}, len(result.Results))
	for i, r := range result.Results {
		hits[i] = map[string]interface{}{
			"id":        r.ID,
			"score":     r.Score,
			"filePath":  r.FilePath,
			"lineRange": r.LineRange,
			"snippet":   r.Snippet,
			"kind":      r.Kind,
		}
	}
	response := map[string]interface{}{
		"results":   hits,
		"total":     result.Total,
		"queryType": result.QueryKind,
	}
	if result.Total == 0 {
		if suggestions := h.suggestions.Generate(query); len(suggestions) > 0 {
			response["suggestions"] = suggestions
		}
	}
	return jsonResult(response)
}

func (h *ServiceHandler) callStatusGet(ctx context.Context, args map[string]interface{}) (*CallToolResult, error) {
	projectID, _ := args["projectId"].(string)
	reports, err := h.service.Status(ctx, projectID)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]interface{}, len(reports))
	for i, r := range reports {
		out[i] = map[string]interface{}{
			"projectId":        r.Project.ProjectID,
			"path":             r.Project.Path,
			"status":           r.Project.Status,
			"vectorStatus":     r.Status.VectorStatus.State,
			"graphStatus":      r.Status.GraphStatus.State,
			"totalFiles":       r.Status.TotalFiles,
			"indexedFiles":     r.Status.IndexedFiles,
			"failedFiles":      r.Status.FailedFiles,
			"hotReloadEnabled": r.Status.HotReloadEnabled,
			"changesDetected":  r.Status.ChangesDetected,
		}
	}
	return jsonResult(out)
}

// ListResources and ReadResource: the tool surface has no resource-backed
// artifacts (the dropped teacher concept was a placeholder the stub handler
// carried forward unused), so both return empty/not-found consistently with
// a server that only implements tools.
func (h *ServiceHandler) ListResources() []Resource {
	return []Resource{}
}

func (h *ServiceHandler) ReadResource(ctx context.Context, uri string) (*ReadResourceResult, error) {
	return nil, fmt.Errorf("resource %q not found: this server exposes no resources", uri)
}

func jsonResult(v interface{}) (*CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal tool result: %w", err)
	}
	return &CallToolResult{Content: []Content{{Type: "text", Text: string(data)}}}, nil
}
