// Package graphmap derives graph nodes and edges from a file's parsed
// symbols and relationships. Map is a pure function: given the same inputs
// it always returns the same Graph, and it never talks to Neo4j or any other
// store directly — that decoupling is what lets IndexCoordinator retry a
// failed write without re-parsing, and lets this package be tested without a
// database.
package graphmap

import (
	"fmt"
	"path/filepath"

	"github.com/kkkqkx123/codeforge-index/internal/chunk"
	"github.com/kkkqkx123/codeforge-index/internal/ids"
	"github.com/kkkqkx123/codeforge-index/internal/parser"
)

// NodeKind distinguishes the kinds of nodes this package emits.
type NodeKind string

const (
	NodeFile   NodeKind = "file"
	NodeSymbol NodeKind = "symbol"
	NodeChunk  NodeKind = "chunk"
)

// Node is a graph vertex, deliberately storage-agnostic: Properties carries
// whatever a GraphStore adapter needs to MERGE it (property keys match the
// teacher's Cypher property names so the adapter layer is a thin copy).
type Node struct {
	ID         string
	Kind       NodeKind
	Properties map[string]interface{}
}

// EdgeKind mirrors parser.RelationshipKind plus the structural CONTAINS edge
// this package adds between a file and the symbols it defines.
type EdgeKind string

const (
	EdgeContains EdgeKind = "contains"
	EdgeImports  EdgeKind = "imports"
	EdgeCalls    EdgeKind = "calls"
	EdgeExtends  EdgeKind = "extends"
)

// Edge is a graph edge. Unresolved is true on IMPORTS edges, whose target
// is a module path Map does not resolve to an indexed file — GraphStore
// adapters should MERGE rather than MATCH+fail on these, or defer them.
// CALLS and EXTENDS edges whose target is not declared in the same file
// are not emitted at all.
type Edge struct {
	ID         string
	Kind       EdgeKind
	SourceID   string
	TargetID   string
	Unresolved bool
}

// Graph is the mapping output for one file.
type Graph struct {
	Nodes []Node
	Edges []Edge
}

// Map derives a Graph from one file's parsed symbols, relationships, and the
// chunks it was split into. filePath is expected project-relative (as
// produced by the walker), so the resulting file node id is stable across
// machines and re-runs.
func Map(projectID, filePath string, symbols []parser.Symbol, relationships []parser.Relationship, chunks []chunk.Chunk) Graph {
	filePath = filepath.ToSlash(filePath)
	fID := fileNodeID(projectID, filePath)

	g := Graph{}
	g.Nodes = append(g.Nodes, Node{
		ID:   fID,
		Kind: NodeFile,
		Properties: map[string]interface{}{
			"repo": projectID,
			"path": filePath,
		},
	})

	symbolID := make(map[string]string, len(symbols)) // name -> node id, last symbol with that name wins
	for _, sym := range symbols {
		sID := ids.ForSymbol(sym.Name, string(sym.Kind), filePath, sym.StartLine)
		symbolID[sym.Name] = sID

		g.Nodes = append(g.Nodes, Node{
			ID:   sID,
			Kind: NodeSymbol,
			Properties: map[string]interface{}{
				"repo":       projectID,
				"file_path":  filePath,
				"name":       sym.Name,
				"kind":       string(sym.Kind),
				"start_line": sym.StartLine,
				"end_line":   sym.EndLine,
				"signature":  sym.Signature,
			},
		})

		g.Edges = append(g.Edges, Edge{
			ID:       ids.ForRelationship(fID, sID, string(EdgeContains)),
			Kind:     EdgeContains,
			SourceID: fID,
			TargetID: sID,
		})
	}

	for _, ch := range chunks {
		g.Nodes = append(g.Nodes, Node{
			ID:   ch.ID,
			Kind: NodeChunk,
			Properties: map[string]interface{}{
				"repo":       projectID,
				"file_path":  filePath,
				"start_line": ch.StartLine,
				"end_line":   ch.EndLine,
				"type":       string(ch.Type),
				"kind":       ch.Kind,
			},
		})

		g.Edges = append(g.Edges, Edge{
			ID:       ids.ForRelationship(fID, ch.ID, string(EdgeContains)),
			Kind:     EdgeContains,
			SourceID: fID,
			TargetID: ch.ID,
		})
	}

	for _, rel := range relationships {
		switch rel.Kind {
		case parser.RelationshipImports:
			targetID := fmt.Sprintf("file:%s:%s", projectID, rel.TargetPath)
			g.Edges = append(g.Edges, Edge{
				ID:         ids.ForRelationship(fID, targetID, string(EdgeImports)),
				Kind:       EdgeImports,
				SourceID:   fID,
				TargetID:   targetID,
				Unresolved: true, // target module path is resolved to a file by the caller, not here
			})

		case parser.RelationshipCalls:
			sourceID, sourceOK := symbolID[rel.SourceName]
			if !sourceOK {
				sourceID = ids.ForSymbol(rel.SourceName, "", filePath, rel.SourceLine)
			}
			targetID, targetOK := symbolID[rel.TargetName]
			if !targetOK {
				// Calls to a symbol not declared in this file are skipped rather
				// than stored as a dangling edge; cross-file calls are not
				// recorded in the graph.
				continue
			}
			g.Edges = append(g.Edges, Edge{
				ID:       ids.ForRelationship(sourceID, targetID, string(EdgeCalls)),
				Kind:     EdgeCalls,
				SourceID: sourceID,
				TargetID: targetID,
			})

		case parser.RelationshipExtends:
			sourceID, sourceOK := symbolID[rel.SourceName]
			if !sourceOK {
				sourceID = ids.ForSymbol(rel.SourceName, "", filePath, rel.SourceLine)
			}
			targetID, targetOK := symbolID[rel.TargetName]
			if !targetOK {
				continue // same dangling-edge avoidance as CALLS
			}
			g.Edges = append(g.Edges, Edge{
				ID:       ids.ForRelationship(sourceID, targetID, string(EdgeExtends)),
				Kind:     EdgeExtends,
				SourceID: sourceID,
				TargetID: targetID,
			})
		}
	}

	return g
}

func fileNodeID(projectID, filePath string) string {
	return fmt.Sprintf("file:%s:%s", projectID, filePath)
}
