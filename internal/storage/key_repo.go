package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_key_store.go -package=mocks playbookwiz/internal/storage KeyStore

import (
	"context"
	"database/sql"
	"fmt"
)

// KeyStore defines the interface for owner API key operations.
type KeyStore interface {
	// Upsert saves an owner's key for a provider, replacing any prior key.
	Upsert(ctx context.Context, key *APIKey) error
	// Get returns an owner's key for a provider. Returns ErrNotFound if not set.
	Get(ctx context.Context, ownerID, provider string) (*APIKey, error)
	// Delete removes an owner's key for a provider.
	Delete(ctx context.Context, ownerID, provider string) error
}

// KeyRepo provides methods for owner API key operations.
// It implements the KeyStore interface.
type KeyRepo struct {
	db *sql.DB
}

// NewKeyRepo creates a new KeyRepo.
func NewKeyRepo(db *sql.DB) *KeyRepo {
	return &KeyRepo{db: db}
}

// Upsert saves an owner's key for a provider, replacing any prior key.
func (r *KeyRepo) Upsert(ctx context.Context, key *APIKey) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO api_keys (owner_id, provider, api_key, model, updated_at)
		 VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(owner_id, provider) DO UPDATE SET
			api_key = excluded.api_key,
			model = excluded.model,
			updated_at = CURRENT_TIMESTAMP`,
		key.OwnerID, key.Provider, key.APIKey, key.Model,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert api key: %w", err)
	}
	return nil
}

// Get returns an owner's key for a provider. Returns ErrNotFound if not set.
func (r *KeyRepo) Get(ctx context.Context, ownerID, provider string) (*APIKey, error) {
	var key APIKey
	err := r.db.QueryRowContext(ctx,
		"SELECT owner_id, provider, api_key, model, updated_at FROM api_keys WHERE owner_id = ? AND provider = ?",
		ownerID, provider,
	).Scan(&key.OwnerID, &key.Provider, &key.APIKey, &key.Model, &key.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query api key: %w", err)
	}

	return &key, nil
}

// Delete removes an owner's key for a provider.
func (r *KeyRepo) Delete(ctx context.Context, ownerID, provider string) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM api_keys WHERE owner_id = ? AND provider = ?",
		ownerID, provider,
	)
	if err != nil {
		return fmt.Errorf("failed to delete api key: %w", err)
	}
	return nil
}
