// Package embeddings provides text embedding providers with a remote
// primary and a local fallback.
package embeddings

import "context"

// Embedding is a single query vector tagged with the provider that
// produced it. The tag travels with the vector so retrieval can filter
// out index entries embedded by a different provider, whose vector
// spaces are not comparable.
type Embedding struct {
	Vector   []float32
	Provider string
}

// BatchEmbedding is a batch of document vectors from one provider.
type BatchEmbedding struct {
	Vectors  [][]float32
	Provider string
}

// Provider generates embeddings for queries and documents. Some models
// embed queries and passages differently, so the two paths are separate.
type Provider interface {
	EmbedQuery(ctx context.Context, text string) (Embedding, error)
	EmbedDocuments(ctx context.Context, texts []string) (BatchEmbedding, error)
	Dimension() int
	ID() string
	Close() error
}
