// Package llm provides chat completion backends for answer generation
// and quality evaluation.
package llm

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_backend.go -package=mocks playbookwiz/internal/llm Backend

import (
	"context"
	"fmt"
)

// CompletionRequest is a single prompt to a chat model.
type CompletionRequest struct {
	System      string
	User        string
	Model       string
	MaxTokens   int
	Temperature float32
}

// Backend sends completion requests to an LLM provider.
type Backend interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// BackendConfig selects and configures a backend.
type BackendConfig struct {
	// Provider is "openai" or "anthropic".
	Provider string
	APIKey   string
	// Model is the default model; requests may override it.
	Model string
	// BaseURL overrides the provider's API endpoint, mainly for tests
	// and OpenAI-compatible local servers.
	BaseURL string
}

// NewBackend creates a backend for the configured provider.
func NewBackend(cfg BackendConfig) (Backend, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAIBackend(cfg), nil
	case "anthropic":
		return NewAnthropicBackend(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q", cfg.Provider)
	}
}
