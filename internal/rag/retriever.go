package rag

import (
	"context"
	"fmt"

	"playbookwiz/internal/contextutil"
	"playbookwiz/internal/embeddings"
	"playbookwiz/internal/vectorstore"
)

const (
	// DefaultTopK is the passage count for baseline retrieval.
	DefaultTopK = 5
	// DefaultRelevanceFloor drops weakly related passages from
	// baseline retrieval.
	DefaultRelevanceFloor = 0.3
)

// Retriever embeds queries and searches the vector index.
type Retriever struct {
	provider embeddings.Provider
	index    vectorstore.Index
}

// NewRetriever creates a retriever over the given provider and index.
func NewRetriever(provider embeddings.Provider, index vectorstore.Index) *Retriever {
	return &Retriever{provider: provider, index: index}
}

// Retrieve returns the top passages for a query using the default
// relevance floor.
func (r *Retriever) Retrieve(ctx context.Context, query, ownerID string, topK int, documentIDs []string) ([]SearchResult, error) {
	return r.RetrieveWithFloor(ctx, query, ownerID, topK, documentIDs, DefaultRelevanceFloor)
}

// RetrieveWithFloor returns the top passages for a query, dropping hits
// scoring below the floor. Results stay ordered best first.
func (r *Retriever) RetrieveWithFloor(ctx context.Context, query, ownerID string, topK int, documentIDs []string, floor float64) ([]SearchResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if query == "" {
		return nil, fmt.Errorf("query is empty")
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	embedding, err := r.provider.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	hits, err := r.index.Search(ctx, vectorstore.SearchQuery{
		Vector:      embedding.Vector,
		Provider:    embedding.Provider,
		OwnerID:     ownerID,
		TopK:        topK,
		DocumentIDs: documentIDs,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search index: %w", err)
	}

	results := make([]SearchResult, 0, len(hits))
	for _, hit := range hits {
		if hit.Score < floor {
			continue
		}
		results = append(results, SearchResult{
			Passage:        hit.Passage,
			DocumentID:     hit.DocumentID,
			DocumentName:   hit.DocumentName,
			PageNumber:     hit.PageNumber,
			ChunkID:        hit.ChunkID,
			RelevanceScore: hit.Score,
		})
	}

	logger.InfoContext(ctx, "retrieval completed",
		"query_length", len(query),
		"hits", len(hits),
		"above_floor", len(results),
		"floor", floor,
	)
	return results, nil
}
