package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

// newTestRouter builds a Router without a live Service. This is only safe
// for requests that fail validation before touching the Service, which is
// all these tests exercise, since Service's own constructors dial real
// Qdrant/Neo4j connections that aren't available in a unit test.
func newTestRouter() *Router {
	return NewRouter(nil, nil)
}

func doJSON(t *testing.T, r *Router, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)
	return rec
}

func TestCreateProject_RejectsEmptyPath(t *testing.T) {
	r := newTestRouter()
	rec := doJSON(t, r, http.MethodPost, "/api/v1/projects", map[string]string{"path": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateProject_RejectsMalformedJSON(t *testing.T) {
	r := newTestRouter()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/projects", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearch_RejectsMissingQuery(t *testing.T) {
	r := newTestRouter()
	rec := doJSON(t, r, http.MethodPost, "/api/v1/search", map[string]string{"projectId": "p1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearch_RejectsMissingProjectID(t *testing.T) {
	r := newTestRouter()
	rec := doJSON(t, r, http.MethodPost, "/api/v1/search", map[string]string{"query": "auth"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHeartbeat_DoesNotRequireService(t *testing.T) {
	r := newTestRouter()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUnknownRoute_Returns404(t *testing.T) {
	r := newTestRouter()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/nonexistent", nil)
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
