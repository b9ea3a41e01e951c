package chunk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kkkqkx123/codeforge-index/internal/langdetect"
)

func TestChunker_ASTStrategyForSupportedLanguage(t *testing.T) {
	c := NewChunker(nil)
	src := []byte("def foo():\n    return 1\n")
	detection := langdetect.Result{Language: "python", Confidence: 1.0}

	result := c.Chunk("proj", "foo.py", "foo", src, detection)
	require.NotEmpty(t, result.Chunks)
	assert.Equal(t, StrategyAST, result.StrategyUsed)
}

func TestChunker_FallsBackWhenNoASTSupport(t *testing.T) {
	var degraded []Strategy
	c := NewChunker(func(filePath string, fromStrategy Strategy, reason error) {
		degraded = append(degraded, fromStrategy)
	})
	src := []byte("fn main() {\n    println!(\"hi\");\n}\n")
	detection := langdetect.Result{Language: "rust", Confidence: 1.0}

	result := c.Chunk("proj", "main.rs", "main", src, detection)
	require.NotEmpty(t, result.Chunks)
	assert.Equal(t, StrategyBracketBalance, result.StrategyUsed)
	assert.Contains(t, degraded, StrategyAST)
}

func TestChunker_TextLanguageSkipsASTGoesToFallback(t *testing.T) {
	c := NewChunker(nil)
	src := []byte("just some prose\nwith multiple lines\n")
	detection := langdetect.Result{Language: "text", Confidence: 0.2}

	result := c.Chunk("proj", "notes.txt", "notes", src, detection)
	require.NotEmpty(t, result.Chunks)
	assert.NotEqual(t, StrategyAST, result.StrategyUsed)
}
