package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"playbookwiz/internal/contextutil"
	"playbookwiz/internal/storage"
)

// KeysHandler manages per-owner LLM API keys.
type KeysHandler struct {
	keys storage.KeyStore
}

// NewKeysHandler creates a new KeysHandler.
func NewKeysHandler(keys storage.KeyStore) *KeysHandler {
	return &KeysHandler{keys: keys}
}

// KeyRequest represents an API key payload.
//
// swagger:model KeyRequest
type KeyRequest struct {
	Provider string `json:"provider"`
	APIKey   string `json:"api_key"`
	Model    string `json:"model,omitempty"`
}

// Put stores or replaces an owner's API key for a provider.
//
// swagger:route PUT /api/v1/keys putKey
//
// # Store an API key
//
// ---
// consumes:
// - application/json
// produces:
// - application/json
// responses:
//
//	'200':
//	  description: Key stored
//	'400':
//	  description: Invalid payload or missing owner header
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *KeysHandler) Put(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	var req KeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Provider != "openai" && req.Provider != "anthropic" {
		writeError(w, http.StatusBadRequest, "provider must be \"openai\" or \"anthropic\"")
		return
	}
	if req.APIKey == "" {
		writeError(w, http.StatusBadRequest, "api_key is required")
		return
	}

	if err := h.keys.Upsert(ctx, &storage.APIKey{
		OwnerID:  owner,
		Provider: req.Provider,
		APIKey:   req.APIKey,
		Model:    req.Model,
	}); err != nil {
		logger.ErrorContext(ctx, "failed to store API key", "provider", req.Provider, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to store API key")
		return
	}

	writeJSON(ctx, w, http.StatusOK, map[string]string{"status": "stored", "provider": req.Provider})
}

// Delete removes an owner's API key for a provider. Deleting a key
// that was never stored is a no-op.
//
// swagger:route DELETE /api/v1/keys/{provider} deleteKey
//
// # Delete an API key
//
// ---
// produces:
// - application/json
// responses:
//
//	'200':
//	  description: Key deleted
//	'400':
//	  description: Missing owner header
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *KeysHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	provider := chi.URLParam(r, "provider")
	if provider == "" {
		writeError(w, http.StatusBadRequest, "provider is required")
		return
	}

	if err := h.keys.Delete(ctx, owner, provider); err != nil {
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "failed to delete API key", "provider", provider, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete API key")
		return
	}

	writeJSON(ctx, w, http.StatusOK, map[string]string{"status": "deleted", "provider": provider})
}
