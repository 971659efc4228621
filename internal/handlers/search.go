package handlers

import (
	"encoding/json"
	"net/http"

	"playbookwiz/internal/contextutil"
	"playbookwiz/internal/rag"
)

// SearchHandler serves raw semantic search over the owner's indexed chunks.
type SearchHandler struct {
	retriever *rag.Retriever
}

// NewSearchHandler creates a new SearchHandler.
func NewSearchHandler(retriever *rag.Retriever) *SearchHandler {
	return &SearchHandler{retriever: retriever}
}

// SearchRequest represents a semantic search payload.
//
// swagger:model SearchRequest
type SearchRequest struct {
	Query       string   `json:"query"`
	TopK        int      `json:"top_k,omitempty"`
	DocumentIDs []string `json:"document_ids,omitempty"`
}

// SearchResponse represents semantic search results.
//
// swagger:model SearchResponse
type SearchResponse struct {
	Query   string             `json:"query"`
	Results []rag.SearchResult `json:"results"`
}

// ServeHTTP handles semantic search requests.
//
// swagger:route POST /api/v1/search search
//
// # Search indexed documents
//
// Embeds the query and returns the most relevant passages from the
// owner's documents.
//
// ---
// consumes:
// - application/json
// produces:
// - application/json
// responses:
//
//	'200':
//	  description: Search results
//	  schema:
//	    "$ref": "#/definitions/SearchResponse"
//	'400':
//	  description: Invalid payload or missing owner header
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'502':
//	  description: Embedding service unavailable
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'503':
//	  description: Vector index unavailable
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *SearchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	topK := req.TopK
	if topK <= 0 {
		topK = rag.DefaultTopK
	}

	results, err := h.retriever.Retrieve(ctx, req.Query, owner, topK, req.DocumentIDs)
	if err != nil {
		handlePipelineError(ctx, w, err, "Failed to search documents")
		return
	}
	if results == nil {
		results = []rag.SearchResult{}
	}

	writeJSON(ctx, w, http.StatusOK, SearchResponse{Query: req.Query, Results: results})
}
