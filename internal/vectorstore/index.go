// Package vectorstore provides the vector index abstraction and its
// Qdrant and in-memory implementations.
package vectorstore

import (
	"context"

	"playbookwiz/internal/chunker"
)

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_index.go -package=mocks playbookwiz/internal/vectorstore Index

// Hit is a single similarity search result.
type Hit struct {
	ChunkID      string
	Passage      string
	DocumentID   string
	DocumentName string
	PageNumber   int
	// Score is similarity in [0, 1]; backends clamp before returning.
	Score float64
}

// SearchQuery describes one similarity search. Provider must match the
// tag stored with the vectors; entries embedded by other providers are
// excluded from the result set.
type SearchQuery struct {
	Vector   []float32
	Provider string
	OwnerID  string
	TopK     int
	// DocumentIDs optionally restricts the search to a document subset.
	DocumentIDs []string
}

// Index stores chunk vectors and serves owner-scoped similarity search.
type Index interface {
	// Upsert indexes chunks with their vectors. vectors[i] corresponds
	// to chunks[i]; re-upserting a chunk ID replaces the prior entry.
	Upsert(ctx context.Context, chunks []chunker.Chunk, vectors [][]float32, provider string) error

	// Search returns the top-k most similar chunks for the query,
	// ordered by score descending.
	Search(ctx context.Context, query SearchQuery) ([]Hit, error)

	// DeleteByDocument removes every chunk of one owner's document.
	DeleteByDocument(ctx context.Context, ownerID, documentID string) error

	// DeleteByOwner removes every chunk belonging to an owner.
	DeleteByOwner(ctx context.Context, ownerID string) error

	// CountDistinctDocuments reports how many documents an owner has indexed.
	CountDistinctDocuments(ctx context.Context, ownerID string) (int, error)

	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error

	Close() error
}
