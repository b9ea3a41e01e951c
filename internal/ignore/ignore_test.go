package ignore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_Defaults(t *testing.T) {
	e := NewEngine()
	assert.True(t, e.Excluded("node_modules/left-pad/index.js", false))
	assert.True(t, e.Excluded(".git/HEAD", false))
	assert.False(t, e.Excluded("internal/ids/ids.go", false))
}

func TestEngine_RootGitignoreNegation(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".gitignore"), []byte("*.log\n!important.log\n"), 0o644))

	e := NewEngine()
	require.NoError(t, e.LoadRoot(dir))

	assert.True(t, e.Excluded("debug.log", false))
	assert.False(t, e.Excluded("important.log", false))
}

func TestEngine_IndexIgnoreLayeredAfterGitignore(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".gitignore"), []byte("!fixtures/\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".indexignore"), []byte("fixtures/\n"), 0o644))

	e := NewEngine()
	require.NoError(t, e.LoadRoot(dir))
	require.NoError(t, e.LoadIndexIgnore(dir))

	assert.True(t, e.Excluded("fixtures", true))
}

func TestEngine_NestedGitignoreScopedToDomain(t *testing.T) {
	dir := t.TempDir()
	e := NewEngine()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "pkg"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pkg", ".gitignore"), []byte("testdata/\n"), 0o644))
	require.NoError(t, e.LoadNestedGitignore(dir, "pkg"))

	assert.True(t, e.Excluded("pkg/testdata", true))
	assert.False(t, e.Excluded("other/testdata", true))
}

func TestEngine_UserExcludesAppliedLast(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".gitignore"), []byte("!keep.tmp\n"), 0o644))

	e := NewEngine()
	require.NoError(t, e.LoadRoot(dir))
	e.AddUserExcludes([]string{"*.tmp"})

	assert.True(t, e.Excluded("keep.tmp", false))
}

func TestEngine_MissingFilesAreNotErrors(t *testing.T) {
	dir := t.TempDir()
	e := NewEngine()
	assert.NoError(t, e.LoadRoot(dir))
	assert.NoError(t, e.LoadIndexIgnore(dir))
}
