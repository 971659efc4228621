package rag

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"

	"playbookwiz/internal/llm"
	llm_mocks "playbookwiz/internal/llm/mocks"
)

func sampleResults() []SearchResult {
	return []SearchResult{
		{Passage: "Primary color is navy #001F3F.", DocumentName: "guide.pdf", PageNumber: 3, ChunkID: "d_chunk_0", RelevanceScore: 0.8},
		{Passage: "Logo clear space equals the height of the wordmark.", DocumentName: "guide.pdf", PageNumber: 5, ChunkID: "d_chunk_1", RelevanceScore: 0.6},
		{Passage: "Headlines use Archivo Bold.", DocumentName: "type.pdf", PageNumber: 1, ChunkID: "t_chunk_0", RelevanceScore: 0.5},
		{Passage: "Accent coral is used sparingly.", DocumentName: "guide.pdf", PageNumber: 4, ChunkID: "d_chunk_2", RelevanceScore: 0.4},
	}
}

func TestGenerateNoContext(t *testing.T) {
	called := false
	generator := NewGenerator(&scriptedBackend{fn: func(req llm.CompletionRequest) (string, error) {
		called = true
		return "", nil
	}})

	answer := generator.Generate(context.Background(), "what colors", nil, "")

	if called {
		t.Error("backend must not be called without passages")
	}
	if answer.Outcome != OutcomeNoContext {
		t.Errorf("outcome = %q, want no_context", answer.Outcome)
	}
	if answer.Confidence != 0 {
		t.Errorf("confidence = %f, want 0", answer.Confidence)
	}
	if answer.Text == "" {
		t.Error("no-context answer must still carry helpful text")
	}
}

func TestGenerateUsesTopPassages(t *testing.T) {
	var gotUser string
	generator := NewGenerator(&scriptedBackend{fn: func(req llm.CompletionRequest) (string, error) {
		gotUser = req.User
		if req.MaxTokens != generationMaxTokens {
			t.Errorf("max tokens = %d, want %d", req.MaxTokens, generationMaxTokens)
		}
		return "Navy #001F3F is primary.", nil
	}})

	results := sampleResults()
	answer := generator.Generate(context.Background(), "what colors", results, "")

	if answer.Outcome != OutcomeAnswered {
		t.Fatalf("outcome = %q, want answered", answer.Outcome)
	}
	if !strings.Contains(gotUser, "navy #001F3F") {
		t.Error("prompt missing top passage")
	}
	if strings.Contains(gotUser, "coral") {
		t.Error("prompt must only include the top passages")
	}
	if len(answer.Sources) != len(results) {
		t.Errorf("sources = %d, want all %d retrieved passages", len(answer.Sources), len(results))
	}
}

func TestGenerateIncludesFeedback(t *testing.T) {
	var gotUser string
	generator := NewGenerator(&scriptedBackend{fn: func(req llm.CompletionRequest) (string, error) {
		gotUser = req.User
		return "better answer", nil
	}})

	generator.Generate(context.Background(), "q", sampleResults(), "quote the exact hex code")

	if !strings.Contains(gotUser, "quote the exact hex code") {
		t.Error("evaluator feedback not included in retry prompt")
	}
}

func TestGenerateConfidence(t *testing.T) {
	generator := NewGenerator(&scriptedBackend{fn: func(req llm.CompletionRequest) (string, error) {
		return "answer", nil
	}})

	t.Run("mean relevance scaled", func(t *testing.T) {
		results := []SearchResult{
			{Passage: "a", RelevanceScore: 0.5, ChunkID: "1"},
			{Passage: "b", RelevanceScore: 0.7, ChunkID: "2"},
		}
		answer := generator.Generate(context.Background(), "q", results, "")
		want := 0.6 * 1.2
		if math.Abs(answer.Confidence-want) > 1e-9 {
			t.Errorf("confidence = %f, want %f", answer.Confidence, want)
		}
	})

	t.Run("capped at 0.95", func(t *testing.T) {
		results := []SearchResult{{Passage: "a", RelevanceScore: 0.99, ChunkID: "1"}}
		answer := generator.Generate(context.Background(), "q", results, "")
		if answer.Confidence != 0.95 {
			t.Errorf("confidence = %f, want cap 0.95", answer.Confidence)
		}
	})
}

func TestGenerateDegradedOnBackendFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	backend := llm_mocks.NewMockBackend(ctrl)
	backend.EXPECT().Complete(gomock.Any(), gomock.Any()).Return("", errors.New("timeout"))

	generator := NewGenerator(backend)
	answer := generator.Generate(context.Background(), "what colors", sampleResults(), "")

	if answer.Outcome != OutcomeDegraded {
		t.Fatalf("outcome = %q, want degraded", answer.Outcome)
	}
	if answer.Reason == "" {
		t.Error("degraded answer must explain why")
	}
	if !strings.Contains(answer.Text, "navy") {
		t.Error("degraded answer should surface the retrieved passages")
	}
	if answer.Confidence != 0 {
		t.Errorf("degraded confidence = %f, want 0", answer.Confidence)
	}
}
