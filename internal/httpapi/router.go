// Package httpapi is the debug/UI HTTP gateway: a thin chi adapter over
// internal/app.Service exposing the same three operations as the MCP tool
// surface (create index, search, status) plus project deletion and
// hot-reload controls, per the REST layout documented for the service.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kkkqkx123/codeforge-index/internal/app"
)

// Router wraps a chi.Mux configured with the gateway's routes and middleware.
type Router struct {
	service *app.Service
	logger  *slog.Logger
	mux     *chi.Mux
}

// NewRouter builds a Router over service. The caller owns service's
// lifecycle (New/Close) independently of this Router.
func NewRouter(service *app.Service, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Router{service: service, logger: logger, mux: chi.NewRouter()}
	r.mux.Use(chimiddleware.Recoverer)
	r.mux.Use(chimiddleware.Timeout(60 * time.Second))
	r.mux.Use(chimiddleware.Heartbeat("/healthz"))
	r.routes()
	return r
}

// Handler returns the configured http.Handler.
func (r *Router) Handler() http.Handler {
	return r.mux
}

func (r *Router) routes() {
	r.mux.Route("/api/v1", func(rtr chi.Router) {
		rtr.Route("/projects", func(pr chi.Router) {
			pr.Post("/", r.createProject)
			pr.Get("/", r.listProjects)
			pr.Route("/{id}", func(pid chi.Router) {
				pid.Get("/", r.getProject)
				pid.Delete("/", r.deleteProject)
				pid.Route("/hot-reload", func(hr chi.Router) {
					hr.Get("/", r.getHotReload)
					hr.Put("/", r.setHotReload)
					hr.Post("/toggle", r.toggleHotReload)
				})
			})
		})
		rtr.Post("/search", r.search)
	})
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// createProject handles POST /api/v1/projects: {"path": "..."} -> IndexCreateResult.
func (r *Router) createProject(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if body.Path == "" {
		writeError(w, http.StatusBadRequest, errors.New("path is required"))
		return
	}

	result, err := r.service.CreateIndex(req.Context(), body.Path)
	if err != nil {
		r.logger.Error("create index failed", "path", body.Path, "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// listProjects handles GET /api/v1/projects.
func (r *Router) listProjects(w http.ResponseWriter, req *http.Request) {
	reports, err := r.service.Status(req.Context(), "")
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

// getProject handles GET /api/v1/projects/:id.
func (r *Router) getProject(w http.ResponseWriter, req *http.Request) {
	id := chi.URLParam(req, "id")
	reports, err := r.service.Status(req.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if len(reports) == 0 || !reports[0].Found {
		writeError(w, http.StatusNotFound, errors.New("project not found"))
		return
	}
	writeJSON(w, http.StatusOK, reports[0])
}

// deleteProject handles DELETE /api/v1/projects/:id.
func (r *Router) deleteProject(w http.ResponseWriter, req *http.Request) {
	id := chi.URLParam(req, "id")
	if err := r.service.DeleteProject(req.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// search handles POST /api/v1/search: {"projectId", "query", "limit"?,
// "mode"?, "filters"?, "cursor"?, "pageSize"?} -> PaginatedResults when a
// cursor or pageSize is given, plain SearchResult otherwise.
func (r *Router) search(w http.ResponseWriter, req *http.Request) {
	var body struct {
		ProjectID string                 `json:"projectId"`
		Query     string                 `json:"query"`
		Limit     int                    `json:"limit"`
		Mode      string                 `json:"mode"`
		Filters   map[string]interface{} `json:"filters"`
		Cursor    string                 `json:"cursor"`
		PageSize  int                    `json:"pageSize"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if body.ProjectID == "" || body.Query == "" {
		writeError(w, http.StatusBadRequest, errors.New("projectId and query are required"))
		return
	}

	opts := app.SearchOptions{Limit: body.Limit, Mode: body.Mode, Filter: body.Filters}

	if body.Cursor != "" || body.PageSize > 0 {
		page, err := r.service.SearchPage(req.Context(), body.ProjectID, body.Query, opts, body.Cursor, body.PageSize)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, page)
		return
	}

	result, err := r.service.Search(req.Context(), body.ProjectID, body.Query, opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// getHotReload handles GET /api/v1/projects/:id/hot-reload.
func (r *Router) getHotReload(w http.ResponseWriter, req *http.Request) {
	id := chi.URLParam(req, "id")
	reports, err := r.service.Status(req.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if len(reports) == 0 || !reports[0].Found {
		writeError(w, http.StatusNotFound, errors.New("project not found"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"enabled":         reports[0].Status.HotReloadEnabled,
		"changesDetected": reports[0].Status.ChangesDetected,
	})
}

// setHotReload handles PUT /api/v1/projects/:id/hot-reload: {"enabled": bool}.
func (r *Router) setHotReload(w http.ResponseWriter, req *http.Request) {
	id := chi.URLParam(req, "id")
	var body struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := r.service.SetHotReload(req.Context(), id, body.Enabled); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// toggleHotReload handles POST /api/v1/projects/:id/hot-reload/toggle: flips
// the current state rather than requiring the caller to know it.
func (r *Router) toggleHotReload(w http.ResponseWriter, req *http.Request) {
	id := chi.URLParam(req, "id")
	reports, err := r.service.Status(req.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if len(reports) == 0 || !reports[0].Found {
		writeError(w, http.StatusNotFound, errors.New("project not found"))
		return
	}
	next := !reports[0].Status.HotReloadEnabled
	if err := r.service.SetHotReload(req.Context(), id, next); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"enabled": next})
}

// Serve runs the gateway on addr until ctx is canceled, then shuts down
// gracefully with a bounded timeout.
func Serve(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{Addr: addr, Handler: handler}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http gateway listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
