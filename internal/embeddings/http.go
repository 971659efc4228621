package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// HTTPProvider calls an OpenAI-compatible /v1/embeddings endpoint.
type HTTPProvider struct {
	baseURL      string
	apiKey       string
	model        string
	expectedSize int
	client       *http.Client
}

// NewHTTPProvider creates a provider for an OpenAI-compatible embeddings API.
// expectedSize is the configured vector size; every returned vector is
// validated against it before reaching the index.
func NewHTTPProvider(baseURL, apiKey, model string, expectedSize int) *HTTPProvider {
	return &HTTPProvider{
		baseURL:      baseURL,
		apiKey:       apiKey,
		model:        model,
		expectedSize: expectedSize,
		client:       http.DefaultClient,
	}
}

type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingData struct {
	Embedding []float64 `json:"embedding"`
}

type embeddingsResponse struct {
	Data []embeddingData `json:"data"`
}

// ID identifies this provider and model for vector tagging.
func (p *HTTPProvider) ID() string {
	return "remote/" + p.model
}

// Dimension returns the configured vector size.
func (p *HTTPProvider) Dimension() int {
	return p.expectedSize
}

// EmbedQuery embeds a single query string.
func (p *HTTPProvider) EmbedQuery(ctx context.Context, text string) (Embedding, error) {
	batch, err := p.embed(ctx, []string{text})
	if err != nil {
		return Embedding{}, err
	}
	return Embedding{Vector: batch[0], Provider: p.ID()}, nil
}

// EmbedDocuments embeds a batch of document passages.
func (p *HTTPProvider) EmbedDocuments(ctx context.Context, texts []string) (BatchEmbedding, error) {
	vectors, err := p.embed(ctx, texts)
	if err != nil {
		return BatchEmbedding{}, err
	}
	return BatchEmbedding{Vectors: vectors, Provider: p.ID()}, nil
}

func (p *HTTPProvider) embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("empty input array")
	}

	url := fmt.Sprintf("%s/v1/embeddings", p.baseURL)

	body, err := json.Marshal(embeddingsRequest{Model: p.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", p.apiKey))
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("bad status %d: %s", resp.StatusCode, string(raw))
	}

	var embeddingsResp embeddingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&embeddingsResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(embeddingsResp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(embeddingsResp.Data))
	}

	result := make([][]float32, len(embeddingsResp.Data))
	for i, data := range embeddingsResp.Data {
		if len(data.Embedding) != p.expectedSize {
			return nil, fmt.Errorf("embedding %d has size %d, expected %d", i, len(data.Embedding), p.expectedSize)
		}

		vec := make([]float32, len(data.Embedding))
		for j, v := range data.Embedding {
			vec[j] = float32(v)
		}
		result[i] = vec
	}

	return result, nil
}

// Close is a no-op; the underlying http.Client holds no resources.
func (p *HTTPProvider) Close() error {
	return nil
}
