package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode_RecognizesAllToolSurfaceModes(t *testing.T) {
	cases := map[string]QueryKind{
		"semantic": KindSemanticDescription,
		"keyword":  KindKeyword,
		"hybrid":   KindHybrid,
		"graph":    KindGraphRelation,
		"filename": KindExactFilename,
	}
	for mode, want := range cases {
		got, ok := ParseMode(mode)
		assert.True(t, ok, mode)
		assert.Equal(t, want, got, mode)
	}
	_, ok := ParseMode("")
	assert.False(t, ok)
	_, ok = ParseMode("bogus")
	assert.False(t, ok)
}

func TestCoordinator_SearchAs_ForcesKeywordModeRegardlessOfClassifier(t *testing.T) {
	var filenameCalled, semanticCalled bool
	backends := map[string]Backend{
		"filename": func(ctx context.Context, projectID, query string, filter map[string]interface{}, limit int) ([]BackendResult, error) {
			filenameCalled = true
			return []BackendResult{{ID: "f1", Score: 0.5, FilePath: "x.go"}}, nil
		},
		"path": func(ctx context.Context, projectID, query string, filter map[string]interface{}, limit int) ([]BackendResult, error) {
			return nil, nil
		},
		"extension": func(ctx context.Context, projectID, query string, filter map[string]interface{}, limit int) ([]BackendResult, error) {
			return nil, nil
		},
		"semantic": func(ctx context.Context, projectID, query string, filter map[string]interface{}, limit int) ([]BackendResult, error) {
			semanticCalled = true
			return nil, nil
		},
	}
	coord := New(backends, nil, DefaultOptions(), nil)

	// "explain the retry logic" classifies as SEMANTIC_DESCRIPTION on its own,
	// but SearchAs with KindKeyword must route to the lexical backends instead.
	results, kind, err := coord.SearchAs(context.Background(), "proj1", "explain the retry logic", nil, 10, KindKeyword)
	require.NoError(t, err)
	assert.Equal(t, KindKeyword, kind)
	assert.True(t, filenameCalled)
	assert.False(t, semanticCalled)
	require.Len(t, results, 1)
	assert.Equal(t, "f1", results[0].ID)
}
