package search

import (
	"regexp"
	"strings"
)

// QueryKind is one of the six ways SearchCoordinator classifies an incoming
// query text, each routed to a different set of backends.
type QueryKind string

const (
	KindExactFilename       QueryKind = "EXACT_FILENAME"
	KindSemanticDescription QueryKind = "SEMANTIC_DESCRIPTION"
	KindPathPattern         QueryKind = "PATH_PATTERN"
	KindExtensionSearch     QueryKind = "EXTENSION_SEARCH"
	KindGraphRelation       QueryKind = "GRAPH_RELATION"
	KindHybrid              QueryKind = "HYBRID"

	// KindKeyword never comes out of Classify — it exists for tool/HTTP
	// callers that pass mode: "keyword" explicitly (§6), requesting the
	// lexical backends (filename/path/extension) as a group without the
	// classifier picking just one of them.
	KindKeyword QueryKind = "KEYWORD"
)

// ParseMode maps the tool surface's mode string (semantic|keyword|hybrid|
// graph|filename) to a QueryKind for SearchCoordinator.SearchAs. An empty or
// unrecognized mode returns ok=false so the caller falls back to Classify.
func ParseMode(mode string) (QueryKind, bool) {
	switch mode {
	case "semantic":
		return KindSemanticDescription, true
	case "keyword":
		return KindKeyword, true
	case "hybrid":
		return KindHybrid, true
	case "graph":
		return KindGraphRelation, true
	case "filename":
		return KindExactFilename, true
	default:
		return "", false
	}
}

var (
	// extensionOnlyRe matches a bare extension query: "*.py" or ".go".
	extensionOnlyRe = regexp.MustCompile(`^\*?\.[a-zA-Z0-9]{1,8}$`)
	extensionWordRe = regexp.MustCompile(`\.[a-zA-Z0-9]{1,8}\s+files?\b`)
	// filenameWholeRe matches when the ENTIRE query is a single bare
	// filename, e.g. "helpers.py" — the EXACT_FILENAME case.
	filenameWholeRe = regexp.MustCompile(`^[\w-]+\.[a-zA-Z0-9]{1,8}$`)
	// filenameTokenRe matches a filename-shaped token anywhere in the query,
	// e.g. inside "what imports helpers.py" — used only to detect a
	// structural target embedded in an otherwise relational sentence.
	filenameTokenRe = regexp.MustCompile(`\b[\w-]+\.[a-zA-Z0-9]{1,8}\b`)
	graphWords      = []string{
		"calls", "call", "calling", "called by",
		"callers of", "callees of",
		"imports", "import", "imported by",
		"extends", "implements", "overrides",
		"depends on", "dependency", "dependencies",
		"who calls", "what calls",
	}
)

// QueryClassifier assigns a deterministic QueryKind to query text using a
// small rule set over keywords, quoting, wildcards, and path separators —
// never a model call, so classification is reproducible and free.
type QueryClassifier struct{}

// NewQueryClassifier builds a QueryClassifier.
func NewQueryClassifier() *QueryClassifier { return &QueryClassifier{} }

// Classify determines the query's kind. Rules are checked in priority
// order; HYBRID only fires for the one genuinely mixed case this corpus of
// queries exhibits — a relational verb naming a specific file/symbol target
// within a natural-language sentence ("what imports helpers.py").
func (QueryClassifier) Classify(query string) QueryKind {
	trimmed := strings.TrimSpace(query)
	lower := strings.ToLower(trimmed)

	isExtensionOnly := extensionOnlyRe.MatchString(trimmed) || extensionWordRe.MatchString(lower)
	if isExtensionOnly {
		return KindExtensionSearch
	}

	if filenameWholeRe.MatchString(trimmed) {
		return KindExactFilename
	}

	hasGraphWord := containsAny(lower, graphWords)
	hasFilenameToken := filenameTokenRe.MatchString(trimmed)
	if hasGraphWord && hasFilenameToken {
		return KindHybrid
	}
	if hasGraphWord {
		return KindGraphRelation
	}

	isPath := strings.ContainsAny(trimmed, "/\\") || strings.Contains(trimmed, "**")
	hasWildcard := strings.ContainsAny(trimmed, "*?[")
	if isPath || hasWildcard {
		return KindPathPattern
	}

	return KindSemanticDescription
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

// BackendSet names the backends a QueryKind fans out to, per §4.12's
// "each selected backend runs with a per-query timeout and is independent"
// fan-out policy.
func BackendSet(kind QueryKind) []string {
	switch kind {
	case KindExactFilename:
		return []string{"filename"}
	case KindPathPattern:
		return []string{"path"}
	case KindExtensionSearch:
		return []string{"extension"}
	case KindGraphRelation:
		return []string{"graph", "semantic"}
	case KindHybrid:
		return []string{"filename", "path", "extension", "semantic", "graph"}
	case KindKeyword:
		return []string{"filename", "path", "extension"}
	default: // SEMANTIC_DESCRIPTION
		return []string{"semantic"}
	}
}
