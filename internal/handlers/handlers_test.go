package handlers

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"playbookwiz/internal/chunker"
	"playbookwiz/internal/embeddings"
	"playbookwiz/internal/ingest"
	"playbookwiz/internal/llm"
	"playbookwiz/internal/rag"
	"playbookwiz/internal/storage"
	"playbookwiz/internal/vectorstore"
)

type wordTokenizer struct{}

func (wordTokenizer) Encode(text string) []int {
	return make([]int, len(strings.Fields(text)))
}
func (wordTokenizer) Decode(tokens []int) string { return "" }
func (wordTokenizer) Count(text string) int      { return len(strings.Fields(text)) }

// keywordProvider embeds text onto one of two axes so retrieval over
// the in-memory index behaves deterministically in tests.
type keywordProvider struct{}

func (keywordProvider) vector(text string) []float32 {
	if strings.Contains(strings.ToLower(text), "color") {
		return []float32{0, 1, 0}
	}
	return []float32{1, 0, 0}
}

func (p keywordProvider) EmbedQuery(ctx context.Context, text string) (embeddings.Embedding, error) {
	return embeddings.Embedding{Vector: p.vector(text), Provider: "test"}, nil
}

func (p keywordProvider) EmbedDocuments(ctx context.Context, texts []string) (embeddings.BatchEmbedding, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = p.vector(text)
	}
	return embeddings.BatchEmbedding{Vectors: vectors, Provider: "test"}, nil
}

func (keywordProvider) Dimension() int { return 3 }
func (keywordProvider) ID() string     { return "test" }
func (keywordProvider) Close() error   { return nil }

// scriptedBackend returns canned completions keyed on the request.
type scriptedBackend struct {
	fn func(req llm.CompletionRequest) (string, error)
}

func (b *scriptedBackend) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	return b.fn(req)
}

type testEnv struct {
	db        *sql.DB
	index     *vectorstore.MemoryIndex
	pipeline  *ingest.Pipeline
	retriever *rag.Retriever
	documents *storage.DocumentRepo
	chats     *storage.ChatRepo
	keys      *storage.KeyRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := storage.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := storage.Migrate(db); err != nil {
		t.Fatalf("migrating database: %v", err)
	}

	index := vectorstore.NewMemoryIndex()
	provider := keywordProvider{}
	pipeline := ingest.NewPipeline(chunker.New(wordTokenizer{}, 500, 50), provider, index)

	return &testEnv{
		db:        db,
		index:     index,
		pipeline:  pipeline,
		retriever: rag.NewRetriever(provider, index),
		documents: storage.NewDocumentRepo(db),
		chats:     storage.NewChatRepo(db),
		keys:      storage.NewKeyRepo(db),
	}
}

// router wires the handlers the way the API server does, so URL
// parameters resolve in tests.
func (e *testEnv) router(engine *rag.Engine) *chi.Mux {
	docs := NewDocumentsHandler(e.pipeline, e.documents)

	r := chi.NewRouter()
	r.Get("/health", NewHealthHandler(e.index).ServeHTTP)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/documents", docs.Upload)
		r.Get("/documents", docs.List)
		r.Delete("/documents/{id}", docs.Delete)
		r.Method("POST", "/search", NewSearchHandler(e.retriever))
		r.Method("GET", "/stats", NewStatsHandler(e.index, e.documents, e.chats))
		keys := NewKeysHandler(e.keys)
		r.Put("/keys", keys.Put)
		r.Delete("/keys/{provider}", keys.Delete)
		if engine != nil {
			ask := NewAskHandler(engine, e.keys, e.chats)
			r.Post("/ask", ask.Ask)
			r.Post("/ask/enhanced", ask.AskEnhanced)
		}
	})
	return r
}
