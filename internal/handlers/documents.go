package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"playbookwiz/internal/contextutil"
	"playbookwiz/internal/extract"
	"playbookwiz/internal/ingest"
	"playbookwiz/internal/storage"
)

// DocumentsHandler handles document upload, listing, and deletion.
type DocumentsHandler struct {
	pipeline  *ingest.Pipeline
	markdown  *extract.MarkdownExtractor
	documents storage.DocumentStore
}

// NewDocumentsHandler creates a new DocumentsHandler.
func NewDocumentsHandler(pipeline *ingest.Pipeline, documents storage.DocumentStore) *DocumentsHandler {
	return &DocumentsHandler{
		pipeline:  pipeline,
		markdown:  extract.NewMarkdownExtractor(),
		documents: documents,
	}
}

// UploadRequest represents a document upload payload. Exactly one of
// Pages, Text, or Markdown supplies the content: Pages carries
// pre-extracted page text from binary formats, Text a plain-text body,
// Markdown a markdown body split into sections server-side.
//
// swagger:model UploadRequest
type UploadRequest struct {
	DocumentName string         `json:"document_name"`
	ContentType  string         `json:"content_type"`
	Pages        []extract.Page `json:"pages,omitempty"`
	Text         string         `json:"text,omitempty"`
	Markdown     string         `json:"markdown,omitempty"`
}

// UploadResponse represents the result of a document upload.
//
// swagger:model UploadResponse
type UploadResponse struct {
	DocumentID    string `json:"document_id"`
	DocumentName  string `json:"document_name"`
	PageCount     int    `json:"page_count"`
	ChunksIndexed int    `json:"chunks_indexed"`
	TokenCount    int    `json:"token_count"`
}

// DocumentResponse represents a stored document in list responses.
//
// swagger:model DocumentResponse
type DocumentResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	PageCount   int    `json:"page_count"`
	ChunkCount  int    `json:"chunk_count"`
	TokenCount  int    `json:"token_count"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
}

// Upload handles document uploads.
//
// swagger:route POST /api/v1/documents uploadDocument
//
// # Upload a document
//
// Extracts, chunks, embeds, and indexes a document for the requesting owner.
//
// ---
// consumes:
// - application/json
// produces:
// - application/json
// responses:
//
//	'201':
//	  description: Document indexed
//	  schema:
//	    "$ref": "#/definitions/UploadResponse"
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
func (h *DocumentsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	var req UploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.DocumentName == "" {
		writeError(w, http.StatusBadRequest, "document_name is required")
		return
	}

	var pages []extract.Page
	switch {
	case len(req.Pages) > 0:
		pages = extract.Normalize(req.Pages)
	case req.Markdown != "":
		pages = h.markdown.Extract([]byte(req.Markdown))
	case req.Text != "":
		pages = extract.FromText(req.Text)
	default:
		writeError(w, http.StatusBadRequest, "one of pages, text, or markdown is required")
		return
	}

	documentID := uuid.NewString()
	result, err := h.pipeline.Ingest(ctx, ingest.Request{
		Pages:        pages,
		DocumentID:   documentID,
		DocumentName: req.DocumentName,
		OwnerID:      owner,
	})
	if err != nil {
		handlePipelineError(ctx, w, err, "Failed to ingest document")
		return
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = "text/plain"
	}

	if err := h.documents.Upsert(ctx, &storage.Document{
		ID:          documentID,
		OwnerID:     owner,
		Name:        req.DocumentName,
		ContentType: contentType,
		PageCount:   len(pages),
		ChunkCount:  result.ChunksIndexed,
		TokenCount:  result.TokenCount,
		Status:      "indexed",
	}); err != nil {
		// The index holds the chunks already; surface the metadata
		// failure rather than leaving the two stores silently apart.
		logger.ErrorContext(ctx, "failed to record document metadata", "document_id", documentID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to record document")
		return
	}

	writeJSON(ctx, w, http.StatusCreated, UploadResponse{
		DocumentID:    documentID,
		DocumentName:  req.DocumentName,
		PageCount:     len(pages),
		ChunksIndexed: result.ChunksIndexed,
		TokenCount:    result.TokenCount,
	})
}

// List returns the owner's documents.
//
// swagger:route GET /api/v1/documents listDocuments
//
// # List documents
//
// ---
// produces:
// - application/json
// responses:
//
//	'200':
//	  description: The owner's documents
//	'400':
//	  description: Missing owner header
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *DocumentsHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	docs, err := h.documents.ListByOwner(ctx, owner)
	if err != nil {
		handlePipelineError(ctx, w, err, "Failed to list documents")
		return
	}

	resp := make([]DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		resp = append(resp, DocumentResponse{
			ID:          doc.ID,
			Name:        doc.Name,
			ContentType: doc.ContentType,
			PageCount:   doc.PageCount,
			ChunkCount:  doc.ChunkCount,
			TokenCount:  doc.TokenCount,
			Status:      doc.Status,
			CreatedAt:   doc.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		})
	}

	writeJSON(ctx, w, http.StatusOK, map[string]any{"documents": resp})
}

// Delete removes a document and its index entries.
//
// swagger:route DELETE /api/v1/documents/{id} deleteDocument
//
// # Delete a document
//
// ---
// produces:
// - application/json
// responses:
//
//	'200':
//	  description: Document deleted
//	'404':
//	  description: Document not found
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'503':
//	  description: Vector index unavailable
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *DocumentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	documentID := chi.URLParam(r, "id")
	if documentID == "" {
		writeError(w, http.StatusBadRequest, "document id is required")
		return
	}

	if _, err := h.documents.GetByID(ctx, owner, documentID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Document not found")
			return
		}
		handlePipelineError(ctx, w, err, "Failed to load document")
		return
	}

	// Remove index entries first so a failure leaves the metadata row
	// pointing at still-searchable chunks rather than orphaning them.
	if err := h.pipeline.Remove(ctx, owner, documentID); err != nil {
		handlePipelineError(ctx, w, err, "Failed to remove document from index")
		return
	}

	if err := h.documents.Delete(ctx, owner, documentID); err != nil && !errors.Is(err, storage.ErrNotFound) {
		handlePipelineError(ctx, w, err, "Failed to delete document")
		return
	}

	writeJSON(ctx, w, http.StatusOK, map[string]string{"status": "deleted", "document_id": documentID})
}
