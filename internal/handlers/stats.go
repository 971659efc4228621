package handlers

import (
	"net/http"

	"playbookwiz/internal/contextutil"
	"playbookwiz/internal/storage"
	"playbookwiz/internal/vectorstore"
)

// StatsHandler reports per-owner usage statistics.
type StatsHandler struct {
	index     vectorstore.Index
	documents storage.DocumentStore
	chats     storage.ChatStore
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(index vectorstore.Index, documents storage.DocumentStore, chats storage.ChatStore) *StatsHandler {
	return &StatsHandler{index: index, documents: documents, chats: chats}
}

// StatsResponse represents an owner's usage statistics.
//
// swagger:model StatsResponse
type StatsResponse struct {
	Documents        int `json:"documents"`
	IndexedDocuments int `json:"indexed_documents"`
	ChatSessions     int `json:"chat_sessions"`
}

// ServeHTTP handles stats requests.
//
// swagger:route GET /api/v1/stats stats
//
// # Owner usage statistics
//
// ---
// produces:
// - application/json
// responses:
//
//	'200':
//	  description: Usage statistics
//	  schema:
//	    "$ref": "#/definitions/StatsResponse"
//	'400':
//	  description: Missing owner header
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'503':
//	  description: Vector index unavailable
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	docs, err := h.documents.CountByOwner(ctx, owner)
	if err != nil {
		logger.ErrorContext(ctx, "failed to count documents", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load statistics")
		return
	}

	chats, err := h.chats.CountByOwner(ctx, owner)
	if err != nil {
		logger.ErrorContext(ctx, "failed to count chat sessions", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load statistics")
		return
	}

	indexed, err := h.index.CountDistinctDocuments(ctx, owner)
	if err != nil {
		handlePipelineError(ctx, w, err, "Failed to load statistics")
		return
	}

	writeJSON(ctx, w, http.StatusOK, StatsResponse{
		Documents:        docs,
		IndexedDocuments: indexed,
		ChatSessions:     chats,
	})
}
