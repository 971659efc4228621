// Package rag implements retrieval-augmented answering over indexed
// brand guideline documents: retrieval, generation, quality evaluation,
// and the iterative improvement loop.
package rag

import "time"

// SearchResult is one retrieved passage with its provenance and score.
type SearchResult struct {
	Passage        string  `json:"passage"`
	DocumentID     string  `json:"document_id"`
	DocumentName   string  `json:"document_name"`
	PageNumber     int     `json:"page_number"`
	ChunkID        string  `json:"chunk_id"`
	RelevanceScore float64 `json:"relevance_score"`
}

// Outcome classifies how an answer was produced.
type Outcome string

const (
	// OutcomeAnswered means the answer was generated normally.
	OutcomeAnswered Outcome = "answered"
	// OutcomeNoContext means no relevant passages were found.
	OutcomeNoContext Outcome = "no_context"
	// OutcomeDegraded means generation failed and a fallback answer was
	// returned, or the improvement loop was cut short.
	OutcomeDegraded Outcome = "degraded"
	// OutcomeInsufficient means the improvement loop exhausted its
	// attempts without reaching the quality threshold.
	OutcomeInsufficient Outcome = "insufficient_quality"
)

// Evaluation is the quality assessment of one answer.
type Evaluation struct {
	QualityScore   float64 `json:"quality_score"`
	Accuracy       float64 `json:"accuracy"`
	Completeness   float64 `json:"completeness"`
	Relevance      float64 `json:"relevance"`
	Specificity    float64 `json:"specificity"`
	SourceUsage    float64 `json:"source_usage"`
	Feedback       string  `json:"feedback"`
	MeetsThreshold bool    `json:"meets_threshold"`
}

// Answer is the result of an answering request.
type Answer struct {
	Text           string         `json:"text"`
	Confidence     float64        `json:"confidence"`
	Sources        []SearchResult `json:"sources"`
	Query          string         `json:"query"`
	ProcessingTime time.Duration  `json:"processing_time"`
	Outcome        Outcome        `json:"outcome"`
	// Reason explains degraded and insufficient outcomes.
	Reason string `json:"reason,omitempty"`
	// Quality is set when the answer went through evaluation.
	Quality *Evaluation `json:"quality,omitempty"`
	// Attempts counts generation rounds in the improvement loop.
	Attempts int `json:"attempts,omitempty"`
}
