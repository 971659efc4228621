package main

import (
	"context"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"

	"playbookwiz/internal/chunker"
	"playbookwiz/internal/config"
	"playbookwiz/internal/embeddings"
	"playbookwiz/internal/http"
	"playbookwiz/internal/ingest"
	"playbookwiz/internal/llm"
	"playbookwiz/internal/rag"
	"playbookwiz/internal/storage"
	"playbookwiz/internal/vectorstore"
)

//go:generate swagger generate spec -o swagger.json

// General API information
//
// This API answers questions about brand guidelines using retrieval-augmented
// generation over documents uploaded per owner.
//
// swagger:meta
//
// ---
// swagger: '2.0'
// info:
//   title: PlaybookWiz API
//   description: |
//     Retrieval-augmented generation API for brand guideline documents.
//     Upload documents per owner, search them semantically, and ask
//     questions answered from the indexed content with quality evaluation.
//   version: 1.0.0
// schemes:
//   - http
//   - https
// consumes:
//   - application/json
// produces:
//   - application/json

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	// Initialize database
	db, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := storage.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)

	ctx := context.Background()

	// Initialize vector index
	var index vectorstore.Index
	switch cfg.IndexBackend {
	case "qdrant":
		qdrantIndex, err := vectorstore.NewQdrantIndex(cfg.QdrantURL, cfg.QdrantCollection)
		if err != nil {
			log.Fatalf("Failed to create Qdrant client: %v", err)
		}
		if err := qdrantIndex.EnsureCollection(ctx, cfg.VectorSize); err != nil {
			log.Fatalf("Failed to ensure Qdrant collection: %v", err)
		}
		slog.Info("Qdrant collection ready", "collection", cfg.QdrantCollection, "vector_size", cfg.VectorSize)
		index = qdrantIndex
	case "memory":
		slog.Warn("Using in-memory vector index; indexed documents are lost on restart")
		index = vectorstore.NewMemoryIndex()
	}
	defer func() {
		_ = index.Close()
	}()

	// Initialize embedding providers: remote primary with an optional
	// local fallback so ingestion and search survive API outages.
	var provider embeddings.Provider = embeddings.NewHTTPProvider(
		cfg.EmbeddingBaseURL, cfg.EmbeddingAPIKey, cfg.EmbeddingModel, cfg.VectorSize,
	)
	if cfg.LocalEmbeddingModel != "" {
		local, err := embeddings.NewFastEmbedProvider(embeddings.FastEmbedConfig{
			Model:    cfg.LocalEmbeddingModel,
			CacheDir: cfg.LocalEmbeddingCache,
		})
		if err != nil {
			slog.Warn("Local embedding fallback unavailable", "model", cfg.LocalEmbeddingModel, "error", err)
		} else {
			provider = embeddings.NewFallbackProvider(provider, local)
			slog.Info("Embedding fallback ready", "model", cfg.LocalEmbeddingModel)
		}
	}
	defer func() {
		_ = provider.Close()
	}()

	// Initialize tokenizer and chunker
	tokenizer, err := chunker.NewTiktokenTokenizer(cfg.TokenizerEncoding)
	if err != nil {
		log.Fatalf("Failed to load tokenizer encoding %q: %v", cfg.TokenizerEncoding, err)
	}
	docChunker := chunker.New(tokenizer, chunker.DefaultMaxTokens, chunker.DefaultOverlapTokens)

	// Create ingestion pipeline
	pipeline := ingest.NewPipeline(docChunker, provider, index)

	// Create default LLM backend
	backend, err := llm.NewBackend(llm.BackendConfig{
		Provider: cfg.LLMProvider,
		APIKey:   cfg.LLMAPIKey,
		Model:    cfg.LLMModel,
		BaseURL:  cfg.LLMBaseURL,
	})
	if err != nil {
		log.Fatalf("Failed to create LLM backend: %v", err)
	}

	// Create retriever and answering engine
	retriever := rag.NewRetriever(provider, index)
	engine := rag.NewEngine(retriever, backend, cfg.QualityThreshold, cfg.MaxImproveAttempts)
	slog.Info("Answer engine initialized",
		"provider", cfg.LLMProvider,
		"model", cfg.LLMModel,
		"quality_threshold", cfg.QualityThreshold,
		"max_attempts", cfg.MaxImproveAttempts,
	)

	// Create router with dependencies
	router := http.NewRouter(&http.Deps{
		Pipeline:  pipeline,
		Retriever: retriever,
		Engine:    engine,
		Index:     index,
		Documents: storage.NewDocumentRepo(db),
		Chats:     storage.NewChatRepo(db),
		Keys:      storage.NewKeyRepo(db),
	})

	// Start API server
	addr := ":" + cfg.APIPort
	slog.Info("Starting API server", "addr", addr)
	if err := nethttp.ListenAndServe(addr, router); err != nil {
		log.Fatalf("API server failed to start: %v", err)
	}
}
