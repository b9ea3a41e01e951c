package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kkkqkx123/codeforge-index/internal/projectstate"
)

func newTestState(t *testing.T) *projectstate.Store {
	t.Helper()
	s, err := projectstate.Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestProjectStateLister_ReturnsIndexedPaths(t *testing.T) {
	s := newTestState(t)
	ctx := context.Background()
	now := time.Now().UTC()
	require.NoError(t, s.UpsertProject(ctx, projectstate.Project{
		ProjectID: "proj_x", Path: "/repos/x", Name: "x",
		CreatedAt: now, UpdatedAt: now, Status: projectstate.StatusActive,
	}))
	require.NoError(t, s.UpsertFileStates(ctx, []projectstate.FileIndexState{
		{ProjectID: "proj_x", RelativePath: "main.go", ContentHash: "h1", LastModified: now, LastIndexed: now, Status: projectstate.FileStatusIndexed},
	}))

	lister := projectStateLister{store: s}
	paths, err := lister.IndexedPaths(ctx, "proj_x")
	require.NoError(t, err)
	assert.Equal(t, []string{"main.go"}, paths)
}

func TestStatusSink_OnToggle_PersistsHotReloadFlag(t *testing.T) {
	s := newTestState(t)
	ctx := context.Background()
	now := time.Now().UTC()
	require.NoError(t, s.UpsertProject(ctx, projectstate.Project{
		ProjectID: "proj_y", Path: "/repos/y", Name: "y",
		CreatedAt: now, UpdatedAt: now, Status: projectstate.StatusActive,
	}))

	sink := statusSink{state: s, projectID: "proj_y"}
	sink.OnToggle(true, now)

	status, found, err := s.GetProjectStatus(ctx, "proj_y")
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, status.HotReloadEnabled)
	assert.True(t, status.LastEnabled.Valid)
}

func TestStatusSink_OnChangesDetected_AccumulatesCount(t *testing.T) {
	s := newTestState(t)
	ctx := context.Background()
	now := time.Now().UTC()
	require.NoError(t, s.UpsertProject(ctx, projectstate.Project{
		ProjectID: "proj_z", Path: "/repos/z", Name: "z",
		CreatedAt: now, UpdatedAt: now, Status: projectstate.StatusActive,
	}))

	sink := statusSink{state: s, projectID: "proj_z"}
	sink.OnChangesDetected(3)
	sink.OnChangesDetected(2)

	status, _, err := s.GetProjectStatus(ctx, "proj_z")
	require.NoError(t, err)
	assert.Equal(t, 5, status.ChangesDetected)
}
