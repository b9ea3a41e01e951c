package hotreload

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kkkqkx123/codeforge-index/internal/coordinator"
)

type fakeIndexer struct {
	mu    sync.Mutex
	calls [][]coordinator.FileTask
}

func (f *fakeIndexer) IndexProject(ctx context.Context, files []coordinator.FileTask, priorHashes map[string]string) (*coordinator.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, files)
	return &coordinator.Result{TotalFiles: len(files), IndexedFiles: len(files)}, nil
}

func (f *fakeIndexer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeSink struct {
	mu              sync.Mutex
	toggles         []bool
	changesDetected int
	errs            []error
}

func (s *fakeSink) OnToggle(enabled bool, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toggles = append(s.toggles, enabled)
}

func (s *fakeSink) OnChangesDetected(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.changesDetected += n
}

func (s *fakeSink) OnError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, err)
}

func (s *fakeSink) toggleCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.toggles)
}

func (s *fakeSink) lastToggle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.toggles[len(s.toggles)-1]
}

func newTestController(t *testing.T, root string, idx *fakeIndexer, sink *fakeSink, priors map[string]string) *Controller {
	t.Helper()
	c, err := New(root, idx, sink, func() map[string]string { return priors }, Options{DebounceInterval: 30 * time.Millisecond})
	require.NoError(t, err)
	return c
}

func TestController_Toggle_IsIdempotent(t *testing.T) {
	dir := t.TempDir()
	idx := &fakeIndexer{}
	sink := &fakeSink{}
	c := newTestController(t, dir, idx, sink, nil)

	require.NoError(t, c.Toggle(context.Background(), true))
	require.NoError(t, c.Toggle(context.Background(), true)) // no-op, already enabled
	assert.True(t, c.Enabled())
	assert.Equal(t, 1, sink.toggleCount())

	require.NoError(t, c.Toggle(context.Background(), false))
	require.NoError(t, c.Toggle(context.Background(), false)) // no-op, already disabled
	assert.False(t, c.Enabled())
	assert.Equal(t, 2, sink.toggleCount())
}

func TestController_DetectsWriteAndIndexesIncrementally(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.py"), []byte("x = 1\n"), 0o644))

	idx := &fakeIndexer{}
	sink := &fakeSink{}
	c := newTestController(t, dir, idx, sink, map[string]string{})

	require.NoError(t, c.Toggle(context.Background(), true))
	defer c.Toggle(context.Background(), false)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.py"), []byte("y = 2\n"), 0o644))

	require.Eventually(t, func() bool {
		return idx.callCount() > 0
	}, 2*time.Second, 20*time.Millisecond, "expected the debounced write to trigger an incremental index call")

	assert.Greater(t, sink.changesDetected, 0)
}

func TestController_IgnoresExcludedPaths(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "node_modules"), 0o755))

	idx := &fakeIndexer{}
	sink := &fakeSink{}
	c := newTestController(t, dir, idx, sink, map[string]string{})

	require.NoError(t, c.Toggle(context.Background(), true))
	defer c.Toggle(context.Background(), false)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "node_modules", "pkg.js"), []byte("x"), 0o644))

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, 0, idx.callCount(), "a change under an ignored directory must not trigger indexing")
}

func TestController_DisableOnFatal_DoesNotPanicAndMarksDisabled(t *testing.T) {
	dir := t.TempDir()
	idx := &fakeIndexer{}
	sink := &fakeSink{}
	c := newTestController(t, dir, idx, sink, map[string]string{})

	require.NoError(t, c.Toggle(context.Background(), true))
	c.disableOnFatal(assert.AnError)

	assert.False(t, c.Enabled())
	assert.False(t, sink.lastToggle())
	assert.NotEmpty(t, sink.errs)
}
