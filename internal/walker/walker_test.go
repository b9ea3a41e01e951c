package walker

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kkkqkx123/codeforge-index/internal/ignore"
)

func writeFile(t *testing.T, path string, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestWalker_SkipsIgnoredAndCollectsFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "main.go"), "package main")
	writeFile(t, filepath.Join(dir, "node_modules", "left-pad", "index.js"), "module.exports = {}")
	writeFile(t, filepath.Join(dir, ".git", "HEAD"), "ref: refs/heads/main")

	eng := ignore.NewEngine()
	w := New(dir, eng, DefaultOptions())

	var files []string
	err := w.Walk(func(e Entry) error {
		if !e.IsDirectory {
			files = append(files, e.RelativePath)
		}
		return nil
	}, nil)
	require.NoError(t, err)

	sort.Strings(files)
	assert.Equal(t, []string{"main.go"}, files)
}

func TestWalker_MaxFileSizeSkipsOversizedFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "small.go"), "x")
	writeFile(t, filepath.Join(dir, "big.go"), string(make([]byte, 100)))

	opts := DefaultOptions()
	opts.MaxFileSize = 10
	w := New(dir, ignore.NewEngine(), opts)

	var files []string
	require.NoError(t, w.Walk(func(e Entry) error {
		if !e.IsDirectory {
			files = append(files, e.RelativePath)
		}
		return nil
	}, nil))

	assert.Equal(t, []string{"small.go"}, files)
}

func TestWalker_MaxDepthStopsDescent(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a", "b", "c", "deep.go"), "package c")
	writeFile(t, filepath.Join(dir, "top.go"), "package top")

	opts := DefaultOptions()
	opts.MaxDepth = 2
	w := New(dir, ignore.NewEngine(), opts)

	var files []string
	require.NoError(t, w.Walk(func(e Entry) error {
		if !e.IsDirectory {
			files = append(files, e.RelativePath)
		}
		return nil
	}, nil))

	sort.Strings(files)
	assert.Equal(t, []string{"top.go"}, files)
}

func TestWalker_FatalOnMissingRoot(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "missing"), ignore.NewEngine(), DefaultOptions())
	err := w.Walk(func(Entry) error { return nil }, nil)
	assert.Error(t, err)
}

func TestWalker_OnSkipNotCalledWhenAllEntriesReadable(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "ok.go"), "package ok")

	w := New(dir, ignore.NewEngine(), DefaultOptions())
	var skipped []string
	require.NoError(t, w.Walk(func(Entry) error { return nil }, func(path string, err error) {
		skipped = append(skipped, path)
	}))
	assert.Empty(t, skipped)
}
