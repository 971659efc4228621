package embeddings

import (
	"context"
	"fmt"

	"playbookwiz/internal/contextutil"
)

// FallbackProvider tries a primary provider and falls back to a secondary
// when the primary fails. Every result carries the id of the provider that
// actually produced it, so callers can keep vectors from different
// embedding spaces apart.
type FallbackProvider struct {
	primary   Provider
	secondary Provider
}

// NewFallbackProvider wraps primary with secondary as the fallback.
func NewFallbackProvider(primary, secondary Provider) *FallbackProvider {
	return &FallbackProvider{primary: primary, secondary: secondary}
}

// ID reports the primary provider's id. Individual results may carry the
// secondary's id when fallback occurred.
func (f *FallbackProvider) ID() string {
	return f.primary.ID()
}

// Dimension reports the primary provider's dimension.
func (f *FallbackProvider) Dimension() int {
	return f.primary.Dimension()
}

// EmbedQuery embeds via the primary, falling back to the secondary on error.
func (f *FallbackProvider) EmbedQuery(ctx context.Context, text string) (Embedding, error) {
	result, err := f.primary.EmbedQuery(ctx, text)
	if err == nil {
		return result, nil
	}

	logger := contextutil.LoggerFromContext(ctx)
	logger.WarnContext(ctx, "primary embedding provider failed, using fallback",
		"primary", f.primary.ID(),
		"fallback", f.secondary.ID(),
		"error", err)

	result, fallbackErr := f.secondary.EmbedQuery(ctx, text)
	if fallbackErr != nil {
		return Embedding{}, fmt.Errorf("both embedding providers failed: primary: %v, fallback: %w", err, fallbackErr)
	}
	return result, nil
}

// EmbedDocuments embeds via the primary, falling back to the secondary on
// error. Batches never mix providers: either all vectors come from the
// primary or all from the secondary.
func (f *FallbackProvider) EmbedDocuments(ctx context.Context, texts []string) (BatchEmbedding, error) {
	result, err := f.primary.EmbedDocuments(ctx, texts)
	if err == nil {
		return result, nil
	}

	logger := contextutil.LoggerFromContext(ctx)
	logger.WarnContext(ctx, "primary embedding provider failed, using fallback",
		"primary", f.primary.ID(),
		"fallback", f.secondary.ID(),
		"batch_size", len(texts),
		"error", err)

	result, fallbackErr := f.secondary.EmbedDocuments(ctx, texts)
	if fallbackErr != nil {
		return BatchEmbedding{}, fmt.Errorf("both embedding providers failed: primary: %v, fallback: %w", err, fallbackErr)
	}
	return result, nil
}

// Close closes both providers, returning the first error seen.
func (f *FallbackProvider) Close() error {
	primaryErr := f.primary.Close()
	if err := f.secondary.Close(); err != nil && primaryErr == nil {
		primaryErr = err
	}
	return primaryErr
}
