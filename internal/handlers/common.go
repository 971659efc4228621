// Package handlers contains the HTTP handlers for the API.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"playbookwiz/internal/contextutil"
)

// OwnerHeader identifies the requesting owner. Every data endpoint is
// scoped to it.
const OwnerHeader = "X-Owner-ID"

// ErrorResponse represents an error response.
//
// swagger:model ErrorResponse
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error: message,
	})
}

// writeJSON writes a JSON response with the given status.
func writeJSON(ctx context.Context, w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func ownerID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(OwnerHeader))
}

// requireOwner extracts the owner from the request header or writes a 400.
func requireOwner(w http.ResponseWriter, r *http.Request) (string, bool) {
	owner := ownerID(r)
	if owner == "" {
		writeError(w, http.StatusBadRequest, "X-Owner-ID header is required")
		return "", false
	}
	return owner, true
}

// handlePipelineError maps pipeline and engine errors to HTTP status codes.
func handlePipelineError(ctx context.Context, w http.ResponseWriter, err error, defaultMsg string) {
	logger := contextutil.LoggerFromContext(ctx)
	logger.ErrorContext(ctx, "request failed", "error", err)

	if err == nil {
		writeError(w, http.StatusInternalServerError, defaultMsg)
		return
	}

	errMsg := strings.ToLower(err.Error())

	// Vector index errors -> 503
	if strings.Contains(errMsg, "qdrant") ||
		strings.Contains(errMsg, "index stage") ||
		strings.Contains(errMsg, "failed to search") ||
		strings.Contains(errMsg, "failed to upsert") ||
		strings.Contains(errMsg, "failed to delete points") {
		writeError(w, http.StatusServiceUnavailable, "Vector index unavailable")
		return
	}

	// Embedding and LLM errors -> 502
	if strings.Contains(errMsg, "embed") ||
		strings.Contains(errMsg, "llm") ||
		strings.Contains(errMsg, "bad status") {
		writeError(w, http.StatusBadGateway, "External service error")
		return
	}

	writeError(w, http.StatusInternalServerError, defaultMsg)
}
