package embedgateway

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	dim       int
	calls     int32
	failUntil int32
	fail      bool
}

func (f *fakeProvider) Dimension() int { return f.dim }
func (f *fakeProvider) Close() error   { return nil }

func (f *fakeProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	n := atomic.AddInt32(&f.calls, 1)
	if f.fail || n <= f.failUntil {
		return nil, errors.New("provider unavailable")
	}
	vectors := make([][]float32, len(texts))
	for i, t := range texts {
		vectors[i] = []float32{float32(len(t))}
	}
	return vectors, nil
}

func fastOptions() Options {
	return Options{
		BatchSize:   2,
		MaxRetries:  3,
		BaseBackoff: time.Millisecond,
		MaxBackoff:  5 * time.Millisecond,
		CacheSize:   100,
	}
}

func TestGateway_CachesByModelAndText(t *testing.T) {
	fp := &fakeProvider{dim: 8}
	g, err := New(fp, "model-a", fastOptions())
	require.NoError(t, err)

	items := []Item{{ID: "c1", Text: "hello"}}
	_, err = g.EmbedChunks(context.Background(), items)
	require.NoError(t, err)

	_, err = g.EmbedChunks(context.Background(), items)
	require.NoError(t, err)

	assert.Equal(t, int32(1), fp.calls, "second call should be served from cache")
}

func TestGateway_RetriesTransientFailureThenSucceeds(t *testing.T) {
	fp := &fakeProvider{dim: 8, failUntil: 2}
	g, err := New(fp, "model-a", fastOptions())
	require.NoError(t, err)

	result, err := g.EmbedChunks(context.Background(), []Item{{ID: "c1", Text: "hello"}})
	require.NoError(t, err)
	assert.Empty(t, result.Deferred)
	assert.Contains(t, result.Vectors, "c1")
}

func TestGateway_DefersOnPersistentFailure(t *testing.T) {
	fp := &fakeProvider{dim: 8, fail: true}
	g, err := New(fp, "model-a", fastOptions())
	require.NoError(t, err)

	result, err := g.EmbedChunks(context.Background(), []Item{{ID: "c1", Text: "hello"}})
	require.NoError(t, err)
	assert.Contains(t, result.Deferred, "c1")
	assert.NotContains(t, result.Vectors, "c1")
}

func TestGateway_ModelChangeBustsCache(t *testing.T) {
	fp := &fakeProvider{dim: 8}
	ga, err := New(fp, "model-a", fastOptions())
	require.NoError(t, err)
	gb, err := New(fp, "model-b", fastOptions())
	require.NoError(t, err)

	items := []Item{{ID: "c1", Text: "hello"}}
	_, err = ga.EmbedChunks(context.Background(), items)
	require.NoError(t, err)
	_, err = gb.EmbedChunks(context.Background(), items)
	require.NoError(t, err)

	assert.Equal(t, int32(2), fp.calls)
}
