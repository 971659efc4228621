package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_document_store.go -package=mocks playbookwiz/internal/storage DocumentStore

import (
	"context"
	"database/sql"
	"fmt"
)

// DocumentStore defines the interface for document metadata operations.
type DocumentStore interface {
	// Upsert inserts a document record or replaces it on re-upload.
	Upsert(ctx context.Context, doc *Document) error
	// GetByID gets a document scoped to its owner. Returns ErrNotFound if not found.
	GetByID(ctx context.Context, ownerID, id string) (*Document, error)
	// ListByOwner returns an owner's documents, newest first.
	ListByOwner(ctx context.Context, ownerID string) ([]Document, error)
	// Delete removes a document record. Returns ErrNotFound if not found.
	Delete(ctx context.Context, ownerID, id string) error
	// CountByOwner returns how many documents an owner has.
	CountByOwner(ctx context.Context, ownerID string) (int, error)
}

// DocumentRepo provides methods for document metadata operations.
// It implements the DocumentStore interface.
type DocumentRepo struct {
	db *sql.DB
}

// NewDocumentRepo creates a new DocumentRepo.
func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

// Upsert inserts a document record or replaces it on re-upload.
func (r *DocumentRepo) Upsert(ctx context.Context, doc *Document) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO documents (id, owner_id, name, content_type, page_count, chunk_count, token_count, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			content_type = excluded.content_type,
			page_count = excluded.page_count,
			chunk_count = excluded.chunk_count,
			token_count = excluded.token_count,
			status = excluded.status`,
		doc.ID, doc.OwnerID, doc.Name, doc.ContentType, doc.PageCount, doc.ChunkCount, doc.TokenCount, doc.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert document: %w", err)
	}
	return nil
}

// GetByID gets a document scoped to its owner. Returns ErrNotFound if not found.
func (r *DocumentRepo) GetByID(ctx context.Context, ownerID, id string) (*Document, error) {
	var doc Document
	err := r.db.QueryRowContext(ctx,
		`SELECT id, owner_id, name, content_type, page_count, chunk_count, token_count, status, created_at
		 FROM documents WHERE owner_id = ? AND id = ?`,
		ownerID, id,
	).Scan(&doc.ID, &doc.OwnerID, &doc.Name, &doc.ContentType, &doc.PageCount, &doc.ChunkCount, &doc.TokenCount, &doc.Status, &doc.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query document: %w", err)
	}

	return &doc, nil
}

// ListByOwner returns an owner's documents, newest first.
func (r *DocumentRepo) ListByOwner(ctx context.Context, ownerID string) ([]Document, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_id, name, content_type, page_count, chunk_count, token_count, status, created_at
		 FROM documents WHERE owner_id = ? ORDER BY created_at DESC, id`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var docs []Document
	for rows.Next() {
		var doc Document
		if err := rows.Scan(&doc.ID, &doc.OwnerID, &doc.Name, &doc.ContentType, &doc.PageCount, &doc.ChunkCount, &doc.TokenCount, &doc.Status, &doc.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return docs, nil
}

// Delete removes a document record. Returns ErrNotFound if not found.
func (r *DocumentRepo) Delete(ctx context.Context, ownerID, id string) error {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM documents WHERE owner_id = ? AND id = ?",
		ownerID, id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deleted rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountByOwner returns how many documents an owner has.
func (r *DocumentRepo) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM documents WHERE owner_id = ?",
		ownerID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return count, nil
}
