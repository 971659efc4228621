package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a record is not found.
var ErrNotFound = errors.New("record not found")

// Document represents an uploaded document's metadata.
type Document struct {
	ID          string
	OwnerID     string
	Name        string
	ContentType string
	PageCount   int
	ChunkCount  int
	TokenCount  int
	Status      string
	CreatedAt   time.Time
}

// ChatSession records one question and its answer.
type ChatSession struct {
	ID         string
	OwnerID    string
	Query      string
	Answer     string
	Confidence float64
	Outcome    string
	CreatedAt  time.Time
}

// APIKey is an owner's LLM provider credential.
type APIKey struct {
	OwnerID   string
	Provider  string
	APIKey    string
	Model     string
	UpdatedAt time.Time
}
