package graphmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kkkqkx123/codeforge-index/internal/chunk"
	"github.com/kkkqkx123/codeforge-index/internal/parser"
)

func TestMap_FileNodeAndContainsEdges(t *testing.T) {
	symbols := []parser.Symbol{
		{Name: "processData", Kind: parser.SymbolFunction, FilePath: "helpers.py", StartLine: 10, EndLine: 25},
		{Name: "validateInput", Kind: parser.SymbolFunction, FilePath: "helpers.py", StartLine: 30, EndLine: 45},
	}

	g := Map("proj_abc", "helpers.py", symbols, nil, nil)

	require.Len(t, g.Nodes, 3) // 1 file + 2 symbols
	assert.Equal(t, NodeFile, g.Nodes[0].Kind)
	assert.Equal(t, "helpers.py", g.Nodes[0].Properties["path"])

	var containsEdges int
	for _, e := range g.Edges {
		if e.Kind == EdgeContains {
			containsEdges++
			assert.Equal(t, g.Nodes[0].ID, e.SourceID)
		}
	}
	assert.Equal(t, 2, containsEdges)
}

func TestMap_IsDeterministic(t *testing.T) {
	symbols := []parser.Symbol{
		{Name: "foo", Kind: parser.SymbolFunction, FilePath: "a.py", StartLine: 1, EndLine: 2},
	}

	g1 := Map("proj_abc", "a.py", symbols, nil, nil)
	g2 := Map("proj_abc", "a.py", symbols, nil, nil)

	require.Len(t, g1.Nodes, 2)
	require.Len(t, g2.Nodes, 2)
	assert.Equal(t, g1.Nodes[1].ID, g2.Nodes[1].ID)
}

func TestMap_CallsResolvedWithinFile(t *testing.T) {
	symbols := []parser.Symbol{
		{Name: "processData", Kind: parser.SymbolFunction, FilePath: "helpers.py", StartLine: 10, EndLine: 25},
		{Name: "validateInput", Kind: parser.SymbolFunction, FilePath: "helpers.py", StartLine: 30, EndLine: 45},
	}
	rels := []parser.Relationship{
		{Kind: parser.RelationshipCalls, SourceFile: "helpers.py", SourceName: "processData", SourceLine: 12, TargetName: "validateInput"},
	}

	g := Map("proj_abc", "helpers.py", symbols, rels, nil)

	var callEdge *Edge
	for i := range g.Edges {
		if g.Edges[i].Kind == EdgeCalls {
			callEdge = &g.Edges[i]
		}
	}
	require.NotNil(t, callEdge)
	assert.False(t, callEdge.Unresolved)
}

func TestMap_CallToExternalSymbolIsSkipped(t *testing.T) {
	symbols := []parser.Symbol{
		{Name: "processData", Kind: parser.SymbolFunction, FilePath: "helpers.py", StartLine: 10, EndLine: 25},
	}
	rels := []parser.Relationship{
		{Kind: parser.RelationshipCalls, SourceFile: "helpers.py", SourceName: "processData", SourceLine: 12, TargetName: "print"},
	}

	g := Map("proj_abc", "helpers.py", symbols, rels, nil)

	for _, e := range g.Edges {
		assert.NotEqual(t, EdgeCalls, e.Kind, "unresolved calls must not be stored as dangling edges")
	}
}

func TestMap_ImportEdge(t *testing.T) {
	rels := []parser.Relationship{
		{Kind: parser.RelationshipImports, SourceFile: "main.py", SourceLine: 1, TargetPath: "helpers"},
	}

	g := Map("proj_abc", "main.py", nil, rels, nil)

	require.Len(t, g.Edges, 1)
	assert.Equal(t, EdgeImports, g.Edges[0].Kind)
	assert.True(t, g.Edges[0].Unresolved)
}

func TestMap_ChunkNodesAndContainsEdges(t *testing.T) {
	chunks := []chunk.Chunk{
		{ID: "chunk:helpers.py:1-10:aaaaaaaa", FilePath: "helpers.py", StartLine: 1, EndLine: 10, Type: chunk.ChunkTypeCode, Kind: chunk.KindFunction},
		{ID: "chunk:helpers.py:11-20:bbbbbbbb", FilePath: "helpers.py", StartLine: 11, EndLine: 20, Type: chunk.ChunkTypeCode, Kind: chunk.KindFunction},
	}

	g := Map("proj_abc", "helpers.py", nil, nil, chunks)

	require.Len(t, g.Nodes, 3) // 1 file + 2 chunks
	var chunkNodes, containsEdges int
	for _, n := range g.Nodes {
		if n.Kind == NodeChunk {
			chunkNodes++
		}
	}
	for _, e := range g.Edges {
		if e.Kind == EdgeContains {
			containsEdges++
			assert.Equal(t, g.Nodes[0].ID, e.SourceID)
		}
	}
	assert.Equal(t, 2, chunkNodes)
	assert.Equal(t, 2, containsEdges)
}
