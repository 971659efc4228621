package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"playbookwiz/internal/handlers"
	"playbookwiz/internal/ingest"
	"playbookwiz/internal/rag"
	"playbookwiz/internal/storage"
	"playbookwiz/internal/vectorstore"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	Pipeline  *ingest.Pipeline
	Retriever *rag.Retriever
	Engine    *rag.Engine
	Index     vectorstore.Index
	Documents storage.DocumentStore
	Chats     storage.ChatStore
	Keys      storage.KeyStore
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(LoggerMiddleware)
	r.Use(CORS)

	documentsHandler := handlers.NewDocumentsHandler(deps.Pipeline, deps.Documents)
	askHandler := handlers.NewAskHandler(deps.Engine, deps.Keys, deps.Chats)
	keysHandler := handlers.NewKeysHandler(deps.Keys)

	r.Method(http.MethodGet, "/health", handlers.NewHealthHandler(deps.Index))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/documents", documentsHandler.Upload)
		r.Get("/documents", documentsHandler.List)
		r.Delete("/documents/{id}", documentsHandler.Delete)

		r.Method(http.MethodPost, "/search", handlers.NewSearchHandler(deps.Retriever))

		r.Post("/ask", askHandler.Ask)
		r.Post("/ask/enhanced", askHandler.AskEnhanced)

		r.Method(http.MethodGet, "/stats", handlers.NewStatsHandler(deps.Index, deps.Documents, deps.Chats))

		r.Put("/keys", keysHandler.Put)
		r.Delete("/keys/{provider}", keysHandler.Delete)
	})

	return r
}
