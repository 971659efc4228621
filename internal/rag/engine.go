package rag

import (
	"context"
	"fmt"
	"sort"
	"time"

	"playbookwiz/internal/contextutil"
	"playbookwiz/internal/llm"
)

const (
	// DefaultMaxAttempts bounds the improvement loop.
	DefaultMaxAttempts = 3
	// improvedTopK widens retrieval per expanded query.
	improvedTopK = 20
	// looseFloor admits weaker passages than baseline retrieval; the
	// evaluator decides whether they helped.
	looseFloor = 0.2
	// maxCandidates caps the merged passage set across expanded queries.
	maxCandidates = 40
)

// AnswerRequest is a question scoped to one owner's documents.
type AnswerRequest struct {
	Query   string
	OwnerID string
	// DocumentIDs optionally restricts retrieval to a document subset.
	DocumentIDs []string
	// Backend overrides the engine's default backend, e.g. when the
	// owner configured their own API key.
	Backend llm.Backend
}

// Engine answers questions over indexed documents.
type Engine struct {
	retriever   *Retriever
	backend     llm.Backend
	threshold   float64
	maxAttempts int
}

// NewEngine creates an engine with the given default backend.
// threshold and maxAttempts fall back to defaults when non-positive.
func NewEngine(retriever *Retriever, backend llm.Backend, threshold float64, maxAttempts int) *Engine {
	if threshold <= 0 {
		threshold = DefaultQualityThreshold
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Engine{
		retriever:   retriever,
		backend:     backend,
		threshold:   threshold,
		maxAttempts: maxAttempts,
	}
}

func (e *Engine) backendFor(req AnswerRequest) llm.Backend {
	if req.Backend != nil {
		return req.Backend
	}
	return e.backend
}

// Answer runs single-pass retrieval and generation without evaluation.
func (e *Engine) Answer(ctx context.Context, req AnswerRequest) (Answer, error) {
	start := time.Now()

	if req.Query == "" {
		return Answer{}, fmt.Errorf("query is empty")
	}
	if req.OwnerID == "" {
		return Answer{}, fmt.Errorf("owner_id is empty")
	}

	results, err := e.retriever.Retrieve(ctx, req.Query, req.OwnerID, DefaultTopK, req.DocumentIDs)
	if err != nil {
		return Answer{}, err
	}

	generator := NewGenerator(e.backendFor(req))
	answer := generator.Generate(ctx, req.Query, results, "")
	answer.ProcessingTime = time.Since(start)
	return answer, nil
}

// AnswerEnhanced runs the improvement loop: generate, evaluate, and
// retry with widened retrieval and evaluator feedback until the answer
// meets the quality threshold or attempts run out. The best answer seen
// is always returned.
func (e *Engine) AnswerEnhanced(ctx context.Context, req AnswerRequest) (Answer, error) {
	logger := contextutil.LoggerFromContext(ctx)
	start := time.Now()

	if req.Query == "" {
		return Answer{}, fmt.Errorf("query is empty")
	}
	if req.OwnerID == "" {
		return Answer{}, fmt.Errorf("owner_id is empty")
	}

	backend := e.backendFor(req)
	generator := NewGenerator(backend)
	evaluator := NewEvaluator(backend, e.threshold)

	var best Answer
	var bestEval Evaluation
	haveBest := false
	feedback := ""

	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return e.cutShort(start, req.Query, best, bestEval, haveBest, attempt-1, err), nil
		}

		var results []SearchResult
		passageBudget := maxContextPassages
		if attempt == 1 {
			baseline, err := e.retriever.Retrieve(ctx, req.Query, req.OwnerID, DefaultTopK, req.DocumentIDs)
			if err != nil {
				return Answer{}, err
			}
			results = baseline
		} else {
			results = e.widenedRetrieve(ctx, backend, req, feedback)
			passageBudget = improvedTopK
		}

		answer := generator.generate(ctx, req.Query, results, feedback, passageBudget)
		answer.Attempts = attempt

		evaluation := evaluator.Evaluate(ctx, req.Query, answer)
		answer.Quality = &evaluation

		logger.InfoContext(ctx, "answer attempt evaluated",
			"attempt", attempt,
			"quality_score", evaluation.QualityScore,
			"meets_threshold", evaluation.MeetsThreshold,
			"sources", len(answer.Sources),
		)

		// Keep only strict improvements so retries never lose ground.
		if !haveBest || evaluation.QualityScore > bestEval.QualityScore {
			best, bestEval, haveBest = answer, evaluation, true
		}

		if evaluation.MeetsThreshold {
			best.Outcome = OutcomeAnswered
			best.ProcessingTime = time.Since(start)
			return best, nil
		}

		feedback = evaluation.Feedback
	}

	best.Outcome = OutcomeInsufficient
	best.Reason = fmt.Sprintf(
		"best quality score %.2f after %d attempts did not reach the %.2f threshold; consider uploading more detailed guidelines or narrowing the question",
		bestEval.QualityScore, e.maxAttempts, e.threshold)
	best.Attempts = e.maxAttempts
	best.ProcessingTime = time.Since(start)
	return best, nil
}

// widenedRetrieve merges loose-floor retrieval across expanded queries,
// deduplicating by chunk and keeping the highest score per chunk.
func (e *Engine) widenedRetrieve(ctx context.Context, backend llm.Backend, req AnswerRequest, feedback string) []SearchResult {
	logger := contextutil.LoggerFromContext(ctx)

	queries := ExpandQuery(ctx, backend, req.Query, feedback)

	byChunk := make(map[string]SearchResult)
	for _, query := range queries {
		if ctx.Err() != nil {
			break
		}
		results, err := e.retriever.RetrieveWithFloor(ctx, query, req.OwnerID, improvedTopK, req.DocumentIDs, looseFloor)
		if err != nil {
			logger.WarnContext(ctx, "expanded retrieval failed, skipping query", "error", err)
			continue
		}
		for _, result := range results {
			if existing, ok := byChunk[result.ChunkID]; !ok || result.RelevanceScore > existing.RelevanceScore {
				byChunk[result.ChunkID] = result
			}
		}
	}

	merged := make([]SearchResult, 0, len(byChunk))
	for _, result := range byChunk {
		merged = append(merged, result)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].RelevanceScore > merged[j].RelevanceScore
	})
	if len(merged) > maxCandidates {
		merged = merged[:maxCandidates]
	}

	logger.InfoContext(ctx, "widened retrieval completed",
		"queries", len(queries),
		"candidates", len(merged),
	)
	return merged
}

// cutShort packages the best answer so far when the context is done.
func (e *Engine) cutShort(start time.Time, query string, best Answer, bestEval Evaluation, haveBest bool, attempts int, cause error) Answer {
	if !haveBest {
		best = Answer{
			Text:    noContextAnswer,
			Sources: []SearchResult{},
			Query:   query,
		}
	}
	best.Outcome = OutcomeDegraded
	best.Reason = fmt.Sprintf("improvement loop stopped early: %v", cause)
	best.Attempts = attempts
	best.ProcessingTime = time.Since(start)
	return best
}
