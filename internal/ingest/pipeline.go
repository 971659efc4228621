// Package ingest runs the document indexing pipeline: chunking,
// embedding, and vector index updates.
package ingest

import (
	"context"
	"fmt"

	"playbookwiz/internal/chunker"
	"playbookwiz/internal/contextutil"
	"playbookwiz/internal/embeddings"
	"playbookwiz/internal/extract"
	"playbookwiz/internal/vectorstore"
)

// Pipeline stages, reported in StageError.
const (
	StageExtract = "extract"
	StageEmbed   = "embed"
	StageIndex   = "index"
)

// StageError reports which pipeline stage failed.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Request describes one document to ingest.
type Request struct {
	Pages        []extract.Page
	DocumentID   string
	DocumentName string
	OwnerID      string
}

// Result summarizes a completed ingestion.
type Result struct {
	ChunksIndexed int
	TokenCount    int
}

// Pipeline chunks, embeds, and indexes documents.
type Pipeline struct {
	chunker  *chunker.Chunker
	provider embeddings.Provider
	index    vectorstore.Index
}

// NewPipeline creates an ingestion pipeline.
func NewPipeline(c *chunker.Chunker, provider embeddings.Provider, index vectorstore.Index) *Pipeline {
	return &Pipeline{chunker: c, provider: provider, index: index}
}

// Ingest processes one document. Re-ingesting a document ID replaces its
// previous chunks. Embedding runs before the old chunks are deleted so an
// embedding failure leaves the index untouched.
func (p *Pipeline) Ingest(ctx context.Context, req Request) (Result, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if req.DocumentID == "" {
		return Result{}, &StageError{Stage: StageExtract, Err: fmt.Errorf("document_id is empty")}
	}
	if req.OwnerID == "" {
		return Result{}, &StageError{Stage: StageExtract, Err: fmt.Errorf("owner_id is empty")}
	}

	pages := extract.Normalize(req.Pages)
	chunks := p.chunker.CreateDocumentChunks(pages, req.DocumentID, req.DocumentName, req.OwnerID)

	if len(chunks) == 0 {
		// An empty document still replaces any earlier version.
		if err := p.index.DeleteByDocument(ctx, req.OwnerID, req.DocumentID); err != nil {
			return Result{}, &StageError{Stage: StageIndex, Err: err}
		}
		logger.InfoContext(ctx, "document had no indexable text", "document_id", req.DocumentID)
		return Result{}, nil
	}

	texts := make([]string, len(chunks))
	tokenCount := 0
	for i, chunk := range chunks {
		texts[i] = chunk.Text
		tokenCount += chunk.TokenCount
	}

	batch, err := p.provider.EmbedDocuments(ctx, texts)
	if err != nil {
		return Result{}, &StageError{Stage: StageEmbed, Err: err}
	}
	if len(batch.Vectors) != len(chunks) {
		return Result{}, &StageError{Stage: StageEmbed, Err: fmt.Errorf("expected %d vectors, got %d", len(chunks), len(batch.Vectors))}
	}

	if err := p.index.DeleteByDocument(ctx, req.OwnerID, req.DocumentID); err != nil {
		return Result{}, &StageError{Stage: StageIndex, Err: err}
	}
	if err := p.index.Upsert(ctx, chunks, batch.Vectors, batch.Provider); err != nil {
		return Result{}, &StageError{Stage: StageIndex, Err: err}
	}

	logger.InfoContext(ctx, "document ingested",
		"document_id", req.DocumentID,
		"owner_id", req.OwnerID,
		"chunks", len(chunks),
		"tokens", tokenCount,
		"provider", batch.Provider,
	)
	return Result{ChunksIndexed: len(chunks), TokenCount: tokenCount}, nil
}

// Remove deletes a document's chunks from the index.
func (p *Pipeline) Remove(ctx context.Context, ownerID, documentID string) error {
	if err := p.index.DeleteByDocument(ctx, ownerID, documentID); err != nil {
		return &StageError{Stage: StageIndex, Err: err}
	}
	return nil
}
