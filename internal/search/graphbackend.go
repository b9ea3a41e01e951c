package search

import (
	"context"
	"strconv"
	"strings"

	"github.com/kkkqkx123/codeforge-index/internal/graph"
)

// SymbolExpander is graph.Neo4jStore narrowed to the symbol lookups the
// graph backend needs: resolve the query as a symbol name, then walk call
// and containment edges outward from it.
type SymbolExpander interface {
	FindSymbolByName(ctx context.Context, repo, name string) ([]graph.Symbol, error)
	ExpandFromSymbols(ctx context.Context, repo string, symbolNames []string, depth int, limit int) ([]graph.Symbol, error)
}

// graphExpandDepth bounds how many relationship hops ExpandFromSymbols
// walks out from the seed symbols the query resolves to.
const graphExpandDepth = 2

// GraphBackend treats the query text as a symbol name, resolves it within
// the project's graph namespace, and expands outward along call and
// containment edges, for §4.12's GRAPH_RELATION classification (queries like
// "callers of X" or "what does X call"). The seed symbols themselves are
// included ahead of their expansion so an exact name match always ranks
// above its neighborhood.
func GraphBackend(expander SymbolExpander) Backend {
	return func(ctx context.Context, projectID, query string, filter map[string]interface{}, limit int) ([]BackendResult, error) {
		name := strings.TrimSpace(query)
		seeds, err := expander.FindSymbolByName(ctx, projectID, name)
		if err != nil {
			return nil, err
		}
		if len(seeds) == 0 {
			return nil, nil
		}

		seedNames := make([]string, len(seeds))
		for i, s := range seeds {
			seedNames[i] = s.Name
		}

		expanded, err := expander.ExpandFromSymbols(ctx, projectID, seedNames, graphExpandDepth, limit)
		if err != nil {
			return nil, err
		}

		results := make([]BackendResult, 0, len(seeds)+len(expanded))
		seen := make(map[string]bool, len(seeds)+len(expanded))
		for _, s := range seeds {
			results = append(results, symbolResult(s, 1.0))
			seen[symbolKey(s)] = true
		}
		for _, s := range expanded {
			if seen[symbolKey(s)] {
				continue
			}
			seen[symbolKey(s)] = true
			results = append(results, symbolResult(s, 0.7))
			if len(results) >= limit {
				break
			}
		}
		return results, nil
	}
}

func symbolKey(s graph.Symbol) string {
	return s.FilePath + ":" + s.Name + ":" + strconv.Itoa(s.StartLine)
}

func symbolResult(s graph.Symbol, score float64) BackendResult {
	return BackendResult{
		ID:        symbolKey(s),
		Score:     score,
		Kind:      s.Kind,
		Snippet:   s.Signature,
		FilePath:  s.FilePath,
		LineRange: [2]int{s.StartLine, s.EndLine},
	}
}
