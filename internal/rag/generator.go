package rag

import (
	"context"
	"fmt"
	"strings"

	"playbookwiz/internal/contextutil"
	"playbookwiz/internal/llm"
)

const (
	// generationMaxTokens bounds answer length.
	generationMaxTokens = 500
	// generationTemperature keeps answers grounded in the sources.
	generationTemperature = 0.3
	// maxContextPassages limits how many passages enter the prompt.
	maxContextPassages = 3
	// maxConfidence caps reported confidence; retrieval scores alone
	// never justify full certainty.
	maxConfidence = 0.95
)

const noContextAnswer = "I couldn't find any relevant information in your brand guidelines to answer this question. Try uploading more documents or rephrasing your question."

const generatorSystemPrompt = "You are a brand guidelines expert. Answer questions using only the provided excerpts " +
	"from the user's brand documents. Be specific: quote exact values like color codes, font names, and spacing rules " +
	"when the excerpts contain them. If the excerpts do not contain enough information, say so plainly."

// Generator produces answers from retrieved passages via an LLM backend.
type Generator struct {
	backend llm.Backend
}

// NewGenerator creates a generator over the given backend.
func NewGenerator(backend llm.Backend) *Generator {
	return &Generator{backend: backend}
}

// Generate answers the query from the given passages. feedback, when
// non-empty, carries evaluator guidance from a prior attempt.
//
// Generate always returns a usable Answer: no passages yields a
// no-context answer, and a backend failure yields a degraded answer
// built from the passages themselves.
func (g *Generator) Generate(ctx context.Context, query string, results []SearchResult, feedback string) Answer {
	return g.generate(ctx, query, results, feedback, maxContextPassages)
}

// generate is Generate with an explicit passage budget. Improvement
// attempts pass a larger budget so the broadened retrieval set actually
// reaches the regeneration prompt.
func (g *Generator) generate(ctx context.Context, query string, results []SearchResult, feedback string, maxPassages int) Answer {
	logger := contextutil.LoggerFromContext(ctx)

	if len(results) == 0 {
		return Answer{
			Text:       noContextAnswer,
			Confidence: 0,
			Sources:    []SearchResult{},
			Query:      query,
			Outcome:    OutcomeNoContext,
		}
	}

	used := results
	if len(used) > maxPassages {
		used = used[:maxPassages]
	}

	var contextBuilder strings.Builder
	for i, result := range used {
		contextBuilder.WriteString(fmt.Sprintf("[%d] %s (page %d)\n%s\n\n",
			i+1, result.DocumentName, result.PageNumber, result.Passage))
	}

	var userBuilder strings.Builder
	userBuilder.WriteString(fmt.Sprintf("Question: %s\n\n", query))
	if feedback != "" {
		userBuilder.WriteString(fmt.Sprintf("A previous answer was judged insufficient. Reviewer feedback: %s\n\n", feedback))
	}
	userBuilder.WriteString("Excerpts from brand guidelines:\n\n")
	userBuilder.WriteString(contextBuilder.String())

	text, err := g.backend.Complete(ctx, llm.CompletionRequest{
		System:      generatorSystemPrompt,
		User:        userBuilder.String(),
		MaxTokens:   generationMaxTokens,
		Temperature: generationTemperature,
	})
	if err != nil {
		logger.WarnContext(ctx, "generation failed, returning degraded answer", "error", err)
		return Answer{
			Text:       degradedAnswer(used),
			Confidence: 0,
			Sources:    results,
			Query:      query,
			Outcome:    OutcomeDegraded,
			Reason:     fmt.Sprintf("answer generation failed: %v", err),
		}
	}

	return Answer{
		Text:       text,
		Confidence: confidenceFrom(used),
		Sources:    results,
		Query:      query,
		Outcome:    OutcomeAnswered,
	}
}

// confidenceFrom derives confidence from mean passage relevance.
func confidenceFrom(results []SearchResult) float64 {
	if len(results) == 0 {
		return 0
	}
	var sum float64
	for _, r := range results {
		sum += r.RelevanceScore
	}
	confidence := (sum / float64(len(results))) * 1.2
	if confidence > maxConfidence {
		confidence = maxConfidence
	}
	return confidence
}

// degradedAnswer lists the retrieved passages verbatim when the model
// is unavailable.
func degradedAnswer(results []SearchResult) string {
	var b strings.Builder
	b.WriteString("I found these relevant sections in your brand guidelines:\n\n")
	for i, r := range results {
		b.WriteString(fmt.Sprintf("%d. From %s (page %d): %s\n\n", i+1, r.DocumentName, r.PageNumber, r.Passage))
	}
	return strings.TrimSpace(b.String())
}
