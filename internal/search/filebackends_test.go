package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLister struct{ paths []string }

func (f fakeLister) IndexedPaths(ctx context.Context, projectID string) ([]string, error) {
	return f.paths, nil
}

func TestFilenameBackend_ExactMatchRanksAboveSubstring(t *testing.T) {
	lister := fakeLister{paths: []string{"internal/server/handler.go", "internal/server/old_handler.go"}}
	backend := FilenameBackend(lister)

	results, err := backend(context.Background(), "proj", "handler.go", nil, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "internal/server/handler.go", results[0].FilePath)
}

func TestFilenameBackend_NoMatch(t *testing.T) {
	lister := fakeLister{paths: []string{"a.go"}}
	backend := FilenameBackend(lister)

	results, err := backend(context.Background(), "proj", "nonexistent.go", nil, 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestPathBackend_MatchesGlobPattern(t *testing.T) {
	lister := fakeLister{paths: []string{"internal/server/handler.go", "internal/cache/redis.go", "cmd/main.go"}}
	backend := PathBackend(lister)

	results, err := backend(context.Background(), "proj", "internal/**/*.go", nil, 10)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestExtensionBackend_MatchesWithOrWithoutDot(t *testing.T) {
	lister := fakeLister{paths: []string{"a.go", "b.py", "c.go"}}
	backend := ExtensionBackend(lister)

	results, err := backend(context.Background(), "proj", "go", nil, 10)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	results, err = backend(context.Background(), "proj", ".py", nil, 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestPathBackend_RespectsLimit(t *testing.T) {
	lister := fakeLister{paths: []string{"a/1.go", "a/2.go", "a/3.go"}}
	backend := PathBackend(lister)

	results, err := backend(context.Background(), "proj", "a/*.go", nil, 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}
