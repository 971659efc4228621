package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"playbookwiz/internal/contextutil"
	"playbookwiz/internal/llm"
)

// DefaultQualityThreshold is the aggregate score an answer must reach
// to be accepted by the improvement loop.
const DefaultQualityThreshold = 0.9

var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

const evaluatorSystemPrompt = "You are a strict quality reviewer for answers about brand guidelines. " +
	"Respond with a single JSON object and nothing else."

// Evaluator scores answers across five quality dimensions using an LLM.
type Evaluator struct {
	backend   llm.Backend
	threshold float64
}

// NewEvaluator creates an evaluator with the given acceptance threshold.
// A non-positive threshold falls back to the default.
func NewEvaluator(backend llm.Backend, threshold float64) *Evaluator {
	if threshold <= 0 {
		threshold = DefaultQualityThreshold
	}
	return &Evaluator{backend: backend, threshold: threshold}
}

// Threshold returns the acceptance threshold.
func (e *Evaluator) Threshold() float64 {
	return e.threshold
}

type evaluationPayload struct {
	QualityScore *float64 `json:"quality_score"`
	Accuracy     float64  `json:"accuracy"`
	Completeness float64  `json:"completeness"`
	Relevance    float64  `json:"relevance"`
	Specificity  float64  `json:"specificity"`
	SourceUsage  float64  `json:"source_usage"`
	Feedback     string   `json:"feedback"`
}

// Evaluate scores an answer against its query and sources. A model or
// parse failure returns a neutral evaluation rather than an error so
// the answering flow never breaks on evaluation problems.
func (e *Evaluator) Evaluate(ctx context.Context, query string, answer Answer) Evaluation {
	logger := contextutil.LoggerFromContext(ctx)

	var sourcesBuilder strings.Builder
	for i, s := range answer.Sources {
		sourcesBuilder.WriteString(fmt.Sprintf("[%d] %s (page %d): %s\n", i+1, s.DocumentName, s.PageNumber, s.Passage))
	}

	user := fmt.Sprintf(`Evaluate this answer to a question about brand guidelines.

Question: %s

Answer: %s

Source excerpts:
%s
Score each dimension from 0.0 to 1.0 and reply with JSON only:
{"quality_score": 0.0, "accuracy": 0.0, "completeness": 0.0, "relevance": 0.0, "specificity": 0.0, "source_usage": 0.0, "feedback": "what specifically would improve this answer"}

accuracy: factual agreement with the excerpts.
completeness: covers every part of the question.
relevance: stays on the question asked.
specificity: concrete values over generalities.
source_usage: grounded in the excerpts rather than invented.`,
		query, answer.Text, sourcesBuilder.String())

	raw, err := e.backend.Complete(ctx, llm.CompletionRequest{
		System:      evaluatorSystemPrompt,
		User:        user,
		MaxTokens:   generationMaxTokens,
		Temperature: generationTemperature,
	})
	if err != nil {
		logger.WarnContext(ctx, "evaluation call failed, using neutral scores", "error", err)
		return e.neutralEvaluation("evaluation unavailable: " + err.Error())
	}

	evaluation, err := e.parseEvaluation(raw)
	if err != nil {
		logger.WarnContext(ctx, "evaluation response unparseable, using neutral scores", "error", err)
		return e.neutralEvaluation("evaluation response could not be parsed")
	}
	return evaluation
}

// parseEvaluation extracts the JSON object from a model response, which
// may be wrapped in prose or code fences.
func (e *Evaluator) parseEvaluation(raw string) (Evaluation, error) {
	match := jsonObjectPattern.FindString(raw)
	if match == "" {
		return Evaluation{}, fmt.Errorf("no JSON object in response")
	}

	var payload evaluationPayload
	if err := json.Unmarshal([]byte(match), &payload); err != nil {
		return Evaluation{}, fmt.Errorf("failed to decode evaluation: %w", err)
	}

	evaluation := Evaluation{
		Accuracy:     clamp01(payload.Accuracy),
		Completeness: clamp01(payload.Completeness),
		Relevance:    clamp01(payload.Relevance),
		Specificity:  clamp01(payload.Specificity),
		SourceUsage:  clamp01(payload.SourceUsage),
		Feedback:     payload.Feedback,
	}

	if payload.QualityScore != nil {
		evaluation.QualityScore = clamp01(*payload.QualityScore)
	} else {
		evaluation.QualityScore = aggregateScore(evaluation)
	}

	evaluation.MeetsThreshold = evaluation.QualityScore >= e.threshold
	return evaluation, nil
}

func (e *Evaluator) neutralEvaluation(feedback string) Evaluation {
	return Evaluation{
		QualityScore:   0.5,
		Accuracy:       0.5,
		Completeness:   0.5,
		Relevance:      0.5,
		Specificity:    0.5,
		SourceUsage:    0.5,
		Feedback:       feedback,
		MeetsThreshold: false,
	}
}

// aggregateScore weights the dimensions when the model omits an overall
// score. Accuracy matters most for guideline answers.
func aggregateScore(e Evaluation) float64 {
	return clamp01(0.30*e.Accuracy +
		0.25*e.Completeness +
		0.20*e.Relevance +
		0.15*e.Specificity +
		0.10*e.SourceUsage)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
