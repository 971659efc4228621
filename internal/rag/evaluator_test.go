package rag

import (
	"context"
	"errors"
	"testing"

	"playbookwiz/internal/llm"
)

// scriptedBackend routes completion calls through a function, letting
// tests script generation, evaluation, and rephrasing separately by
// inspecting the request.
type scriptedBackend struct {
	fn func(req llm.CompletionRequest) (string, error)
}

func (s *scriptedBackend) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	return s.fn(req)
}

func TestEvaluatorParsesResponse(t *testing.T) {
	backend := &scriptedBackend{fn: func(req llm.CompletionRequest) (string, error) {
		return `Here is my assessment:
{"quality_score": 0.92, "accuracy": 0.95, "completeness": 0.9, "relevance": 0.95, "specificity": 0.85, "source_usage": 0.9, "feedback": "solid"}`, nil
	}}

	evaluator := NewEvaluator(backend, 0.9)
	eval := evaluator.Evaluate(context.Background(), "what colors", Answer{Text: "Navy.", Sources: []SearchResult{}})

	if eval.QualityScore != 0.92 {
		t.Errorf("quality score = %f, want 0.92", eval.QualityScore)
	}
	if !eval.MeetsThreshold {
		t.Error("0.92 should meet the 0.9 threshold")
	}
	if eval.Feedback != "solid" {
		t.Errorf("feedback = %q", eval.Feedback)
	}
}

func TestEvaluatorAggregatesWhenScoreOmitted(t *testing.T) {
	backend := &scriptedBackend{fn: func(req llm.CompletionRequest) (string, error) {
		return `{"accuracy": 1.0, "completeness": 1.0, "relevance": 1.0, "specificity": 1.0, "source_usage": 1.0, "feedback": ""}`, nil
	}}

	evaluator := NewEvaluator(backend, 0.9)
	eval := evaluator.Evaluate(context.Background(), "q", Answer{Text: "a"})

	// Weighted mean of all-ones is 1.0.
	if eval.QualityScore < 0.999 {
		t.Errorf("aggregated score = %f, want 1.0", eval.QualityScore)
	}
	if !eval.MeetsThreshold {
		t.Error("perfect dimensions should meet threshold")
	}
}

func TestEvaluatorClampsScores(t *testing.T) {
	backend := &scriptedBackend{fn: func(req llm.CompletionRequest) (string, error) {
		return `{"quality_score": 1.7, "accuracy": -0.3, "completeness": 0.5, "relevance": 0.5, "specificity": 0.5, "source_usage": 2.0, "feedback": ""}`, nil
	}}

	evaluator := NewEvaluator(backend, 0.9)
	eval := evaluator.Evaluate(context.Background(), "q", Answer{Text: "a"})

	if eval.QualityScore != 1.0 {
		t.Errorf("quality score = %f, want clamped to 1.0", eval.QualityScore)
	}
	if eval.Accuracy != 0 {
		t.Errorf("accuracy = %f, want clamped to 0", eval.Accuracy)
	}
	if eval.SourceUsage != 1.0 {
		t.Errorf("source usage = %f, want clamped to 1.0", eval.SourceUsage)
	}
}

func TestEvaluatorNeutralOnBackendError(t *testing.T) {
	backend := &scriptedBackend{fn: func(req llm.CompletionRequest) (string, error) {
		return "", errors.New("model overloaded")
	}}

	evaluator := NewEvaluator(backend, 0.9)
	eval := evaluator.Evaluate(context.Background(), "q", Answer{Text: "a"})

	if eval.QualityScore != 0.5 {
		t.Errorf("quality score = %f, want neutral 0.5", eval.QualityScore)
	}
	if eval.MeetsThreshold {
		t.Error("neutral evaluation must not meet threshold")
	}
}

func TestEvaluatorNeutralOnGarbageResponse(t *testing.T) {
	backend := &scriptedBackend{fn: func(req llm.CompletionRequest) (string, error) {
		return "The answer looks fine to me!", nil
	}}

	evaluator := NewEvaluator(backend, 0.9)
	eval := evaluator.Evaluate(context.Background(), "q", Answer{Text: "a"})

	if eval.QualityScore != 0.5 {
		t.Errorf("quality score = %f, want neutral 0.5", eval.QualityScore)
	}
}

func TestEvaluatorDefaultThreshold(t *testing.T) {
	evaluator := NewEvaluator(&scriptedBackend{}, 0)
	if evaluator.Threshold() != DefaultQualityThreshold {
		t.Errorf("threshold = %f, want default", evaluator.Threshold())
	}
}
