package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_chat_store.go -package=mocks playbookwiz/internal/storage ChatStore

import (
	"context"
	"database/sql"
	"fmt"
)

// ChatStore defines the interface for chat history operations.
type ChatStore interface {
	// Insert records a question and its answer.
	Insert(ctx context.Context, session *ChatSession) error
	// ListByOwner returns an owner's recent sessions, newest first.
	ListByOwner(ctx context.Context, ownerID string, limit int) ([]ChatSession, error)
	// CountByOwner returns how many sessions an owner has.
	CountByOwner(ctx context.Context, ownerID string) (int, error)
}

// ChatRepo provides methods for chat history operations.
// It implements the ChatStore interface.
type ChatRepo struct {
	db *sql.DB
}

// NewChatRepo creates a new ChatRepo.
func NewChatRepo(db *sql.DB) *ChatRepo {
	return &ChatRepo{db: db}
}

// Insert records a question and its answer.
func (r *ChatRepo) Insert(ctx context.Context, session *ChatSession) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO chat_sessions (id, owner_id, query, answer, confidence, outcome)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		session.ID, session.OwnerID, session.Query, session.Answer, session.Confidence, session.Outcome,
	)
	if err != nil {
		return fmt.Errorf("failed to insert chat session: %w", err)
	}
	return nil
}

// ListByOwner returns an owner's recent sessions, newest first.
func (r *ChatRepo) ListByOwner(ctx context.Context, ownerID string, limit int) ([]ChatSession, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_id, query, answer, confidence, outcome, created_at
		 FROM chat_sessions WHERE owner_id = ? ORDER BY created_at DESC, id LIMIT ?`,
		ownerID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query chat sessions: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var sessions []ChatSession
	for rows.Next() {
		var s ChatSession
		if err := rows.Scan(&s.ID, &s.OwnerID, &s.Query, &s.Answer, &s.Confidence, &s.Outcome, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat session: %w", err)
		}
		sessions = append(sessions, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return sessions, nil
}

// CountByOwner returns how many sessions an owner has.
func (r *ChatRepo) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM chat_sessions WHERE owner_id = ?",
		ownerID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count chat sessions: %w", err)
	}
	return count, nil
}
