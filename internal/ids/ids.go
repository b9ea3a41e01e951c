// Package ids mints deterministic, typed-prefix string identifiers for
// files, chunks, symbols, relationships, and AST nodes. Every function here
// is a pure function of its inputs except SafeForAstNode's fallback branch.
package ids

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// ForFile returns the deterministic id for a file node: file:<projectId>:<relativePath>.
// absolutePath is canonicalized to a project-relative, slash-separated path.
func ForFile(projectID, projectRoot, absolutePath string) string {
	rel, err := filepath.Rel(projectRoot, absolutePath)
	if err != nil {
		rel = absolutePath
	}
	rel = filepath.ToSlash(rel)
	return fmt.Sprintf("file:%s:%s", projectID, rel)
}

// ForChunk returns the deterministic id for a chunk: chunk:<filePath>:<start>-<end>:<hash8>.
// hash8 is the first 8 hex characters of SHA-256 over the exact chunk text.
func ForChunk(filePath string, startLine, endLine int, content string) string {
	sum := sha256.Sum256([]byte(content))
	hash8 := hex.EncodeToString(sum[:])[:8]
	return fmt.Sprintf("chunk:%s:%d-%d:%s", filePath, startLine, endLine, hash8)
}

// ForRelationship returns the deterministic id for an edge: rel:<source>-><target>:<type>.
func ForRelationship(sourceID, targetID, relType string) string {
	return fmt.Sprintf("rel:%s->%s:%s", sourceID, targetID, relType)
}

// ForSymbol returns the deterministic id for a symbol: symbol:<name>:<kind>:<filePath>:<line>.
func ForSymbol(name, kind, filePath string, line int) string {
	return fmt.Sprintf("symbol:%s:%s:%s:%d", name, kind, filePath, line)
}

// ForAstNode returns the deterministic id for an AST node: ast:<kind>:<row>:<column>.
func ForAstNode(row, column int, kind string) string {
	return fmt.Sprintf("ast:%s:%d:%d", kind, row, column)
}

// AstNode is the minimal shape SafeForAstNode needs from a parsed node; it is
// satisfied by any parser's node wrapper that exposes a start position.
type AstNode interface {
	Row() int
	Column() int
}

// SafeForAstNode returns ForAstNode(node.Row(), node.Column(), fallbackKind) when node is
// non-nil. When node is nil, no stable structural key is available and it falls back to
// fallback:<kind>:<name>:<timestampMs> — the only non-deterministic id form this package
// produces. Callers must never rely on fallback ids for deduplication across runs.
func SafeForAstNode(node AstNode, fallbackKind, fallbackName string) string {
	if node != nil {
		return ForAstNode(node.Row(), node.Column(), fallbackKind)
	}
	return fmt.Sprintf("fallback:%s:%s:%d", fallbackKind, fallbackName, time.Now().UnixMilli())
}

// IsDeterministic reports whether id was produced without the fallback path.
func IsDeterministic(id string) bool {
	return !strings.Contains(id, "fallback:")
}

// ShortProjectID returns the first 12 hex chars of the SHA-256 over its
// input. Per-project vector collection and graph database names are built by
// prefixing it ("project_" in store.CollectionName, "project-" in
// graph.DatabaseName).
func ShortProjectID(canonicalPath string) string {
	sum := sha256.Sum256([]byte(canonicalPath))
	return hex.EncodeToString(sum[:])[:12]
}

// ProjectID derives the deterministic project identifier from its canonicalized
// absolute root path. (projectId, path) is 1:1 and stable across restarts.
func ProjectID(canonicalPath string) string {
	return "proj_" + ShortProjectID(canonicalPath)
}
