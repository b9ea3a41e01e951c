package search

import (
	"context"

	"github.com/kkkqkx123/codeforge-index/internal/chunk"
)

// Embedder is the minimal capability the semantic backend needs from
// embedgateway.Gateway: turn query text into the same vector space the
// chunks were indexed in.
type Embedder interface {
	Dimension() int
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorSearcher is store.QdrantStore narrowed to the single call the
// semantic backend needs. collectionFor resolves a projectID to the
// collection name IndexCoordinator wrote chunks into.
type VectorSearcher interface {
	Search(ctx context.Context, collection string, vector []float32, limit int, filter map[string]interface{}) ([]chunk.Chunk, error)
}

// SemanticBackend embeds the query text and runs a nearest-neighbor search
// against the project's Qdrant collection, for §4.12's SEMANTIC_DESCRIPTION
// classification ("find code that does X"). Qdrant's own cosine score is
// carried straight through as BackendResult.Score since it is already in
// [0,1] for the normalized embeddings the pipeline writes.
func SemanticBackend(embedder Embedder, searcher VectorSearcher, collectionFor func(projectID string) string) Backend {
	return func(ctx context.Context, projectID, query string, filter map[string]interface{}, limit int) ([]BackendResult, error) {
		vector, err := embedder.EmbedQuery(ctx, query)
		if err != nil {
			return nil, err
		}

		chunks, err := searcher.Search(ctx, collectionFor(projectID), vector, limit, filter)
		if err != nil {
			return nil, err
		}

		results := make([]BackendResult, len(chunks))
		for i, c := range chunks {
			results[i] = BackendResult{
				ID:        c.ID,
				Score:     float64(c.Score),
				Kind:      c.Kind,
				Snippet:   c.Content,
				FilePath:  c.FilePath,
				LineRange: [2]int{c.StartLine, c.EndLine},
			}
		}
		return results, nil
	}
}
