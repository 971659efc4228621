package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"playbookwiz/internal/contextutil"
	"playbookwiz/internal/llm"
	"playbookwiz/internal/rag"
	"playbookwiz/internal/storage"
)

// AskHandler answers questions over the owner's indexed documents.
type AskHandler struct {
	engine *rag.Engine
	keys   storage.KeyStore
	chats  storage.ChatStore
}

// NewAskHandler creates a new AskHandler.
func NewAskHandler(engine *rag.Engine, keys storage.KeyStore, chats storage.ChatStore) *AskHandler {
	return &AskHandler{engine: engine, keys: keys, chats: chats}
}

// AskRequest represents a question payload.
//
// swagger:model AskRequest
type AskRequest struct {
	Query string `json:"query"`
	// Provider optionally selects which of the owner's stored API keys
	// to answer with ("openai" or "anthropic").
	Provider    string   `json:"provider,omitempty"`
	DocumentIDs []string `json:"document_ids,omitempty"`
}

// AskResponse represents a generated answer.
//
// swagger:model AskResponse
type AskResponse struct {
	Answer           string             `json:"answer"`
	Confidence       float64            `json:"confidence"`
	Sources          []rag.SearchResult `json:"sources"`
	Query            string             `json:"query"`
	Outcome          string             `json:"outcome"`
	Reason           string             `json:"reason,omitempty"`
	Quality          *rag.Evaluation    `json:"quality,omitempty"`
	Attempts         int                `json:"attempts,omitempty"`
	ProcessingTimeMS int64              `json:"processing_time_ms"`
}

// Ask answers a question with single-pass retrieval and generation.
//
// swagger:route POST /api/v1/ask ask
//
// # Ask a question
//
// Retrieves relevant passages from the owner's documents and generates
// an answer grounded in them.
//
// ---
// consumes:
// - application/json
// produces:
// - application/json
// responses:
//
//	'200':
//	  description: Generated answer
//	  schema:
//	    "$ref": "#/definitions/AskResponse"
//	'400':
//	  description: Invalid payload or missing owner header
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'502':
//	  description: Embedding or LLM service unavailable
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'503':
//	  description: Vector index unavailable
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *AskHandler) Ask(w http.ResponseWriter, r *http.Request) {
	h.answer(w, r, h.engine.Answer)
}

// AskEnhanced answers a question with the quality improvement loop.
//
// swagger:route POST /api/v1/ask/enhanced askEnhanced
//
// # Ask a question with quality evaluation
//
// Generates an answer, scores it against quality dimensions, and
// retries with widened retrieval and reviewer feedback until the
// answer meets the quality threshold or attempts run out.
//
// ---
// consumes:
// - application/json
// produces:
// - application/json
// responses:
//
//	'200':
//	  description: Best generated answer with its quality assessment
//	  schema:
//	    "$ref": "#/definitions/AskResponse"
//	'400':
//	  description: Invalid payload or missing owner header
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'502':
//	  description: Embedding or LLM service unavailable
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'503':
//	  description: Vector index unavailable
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *AskHandler) AskEnhanced(w http.ResponseWriter, r *http.Request) {
	h.answer(w, r, h.engine.AnswerEnhanced)
}

type answerFunc func(ctx context.Context, req rag.AnswerRequest) (rag.Answer, error)

func (h *AskHandler) answer(w http.ResponseWriter, r *http.Request, run answerFunc) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	backend, err := h.ownerBackend(ctx, owner, req.Provider)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	answer, err := run(ctx, rag.AnswerRequest{
		Query:       req.Query,
		OwnerID:     owner,
		DocumentIDs: req.DocumentIDs,
		Backend:     backend,
	})
	if err != nil {
		handlePipelineError(ctx, w, err, "Failed to answer question")
		return
	}

	h.recordSession(ctx, owner, answer)

	writeJSON(ctx, w, http.StatusOK, AskResponse{
		Answer:           answer.Text,
		Confidence:       answer.Confidence,
		Sources:          answer.Sources,
		Query:            answer.Query,
		Outcome:          string(answer.Outcome),
		Reason:           answer.Reason,
		Quality:          answer.Quality,
		Attempts:         answer.Attempts,
		ProcessingTimeMS: answer.ProcessingTime.Milliseconds(),
	})
}

// ownerBackend resolves the backend for the request. When the owner has
// stored a key for the requested provider it takes precedence; a nil
// return means the engine's default backend is used.
func (h *AskHandler) ownerBackend(ctx context.Context, ownerID, provider string) (llm.Backend, error) {
	if provider == "" {
		return nil, nil
	}

	key, err := h.keys.Get(ctx, ownerID, provider)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("no API key stored for provider %q", provider)
		}
		return nil, fmt.Errorf("failed to load API key: %w", err)
	}

	return llm.NewBackend(llm.BackendConfig{
		Provider: key.Provider,
		APIKey:   key.APIKey,
		Model:    key.Model,
	})
}

// recordSession saves the exchange to chat history. Failures are logged
// and never surfaced to the caller.
func (h *AskHandler) recordSession(ctx context.Context, ownerID string, answer rag.Answer) {
	if h.chats == nil {
		return
	}
	err := h.chats.Insert(ctx, &storage.ChatSession{
		ID:         uuid.NewString(),
		OwnerID:    ownerID,
		Query:      answer.Query,
		Answer:     answer.Text,
		Confidence: answer.Confidence,
		Outcome:    string(answer.Outcome),
	})
	if err != nil {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "failed to record chat session", "error", err)
	}
}
