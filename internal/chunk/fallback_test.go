package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBracketBalanceSplit_OnlySplitsAtZeroDepth(t *testing.T) {
	src := []byte("func a() {\n  x := \"{ not a brace }\"\n  return x\n}\nfunc b() {\n  return 2\n}\n")
	opts := FallbackOptions{MaxChunkSize: 20, MaxLinesPerChunk: 200, ChunkOverlap: 0}

	chunks := BracketBalanceSplit("proj", "f.go", "go", src, opts)
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.Equal(t, StrategyBracketBalance, c.Strategy)
		assert.Equal(t, KindBlock, c.Kind)
	}
}

func TestBracketBalanceSplit_ReproducesBytes(t *testing.T) {
	src := []byte("func a() {\n  return 1\n}\nfunc b() {\n  return 2\n}\n")
	opts := FallbackOptions{MaxChunkSize: 5, MaxLinesPerChunk: 200, ChunkOverlap: 0}

	chunks := BracketBalanceSplit("proj", "f.go", "go", src, opts)
	var rebuilt strings.Builder
	for _, c := range chunks {
		rebuilt.WriteString(c.Content)
	}
	assert.Equal(t, string(src), rebuilt.String())
}

func TestBracketBalanceSplit_DeterministicIDs(t *testing.T) {
	src := []byte("func a() {\n  return 1\n}\n")
	opts := DefaultFallbackOptions()
	a := BracketBalanceSplit("proj", "f.go", "go", src, opts)
	b := BracketBalanceSplit("proj", "f.go", "go", src, opts)
	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].ID, b[i].ID)
	}
}

func TestLineSplit_ProducesOverlappingChunks(t *testing.T) {
	var lines []string
	for i := 0; i < 50; i++ {
		lines = append(lines, "line")
	}
	src := []byte(strings.Join(lines, "\n") + "\n")

	opts := FallbackOptions{MaxLinesPerChunk: 10, ChunkOverlap: 2}
	chunks := LineSplit("proj", "f.txt", "text", src, opts)
	require.True(t, len(chunks) > 1)
	assert.Equal(t, KindFallback, chunks[0].Kind)
	assert.Equal(t, StrategyLineSplit, chunks[0].Strategy)

	// consecutive chunks overlap by ChunkOverlap lines
	assert.Equal(t, chunks[1].StartLine, chunks[0].EndLine-opts.ChunkOverlap+1)
}

func TestLineSplit_EmptySourceProducesNoChunks(t *testing.T) {
	assert.Empty(t, LineSplit("proj", "f.txt", "text", []byte{}, DefaultFallbackOptions()))
}

func TestLineSplit_LastChunkClosedInterval(t *testing.T) {
	src := []byte("a\nb\nc\n")
	opts := FallbackOptions{MaxLinesPerChunk: 2, ChunkOverlap: 0}
	chunks := LineSplit("proj", "f.txt", "text", src, opts)
	last := chunks[len(chunks)-1]
	assert.Equal(t, 3, last.EndLine)
}
