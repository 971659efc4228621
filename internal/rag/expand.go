package rag

import (
	"context"
	"strings"

	"playbookwiz/internal/contextutil"
	"playbookwiz/internal/llm"
)

// maxExpandedQueries bounds retrieval fan-out in the improvement loop.
const maxExpandedQueries = 8

var queryPrefixes = []string{"brand ", "visual ", "design ", "marketing ", "identity "}

// brandLexicon maps guideline vocabulary to related search terms. When a
// query or evaluator feedback mentions a keyword, its variants join the
// expanded query set.
var brandLexicon = map[string][]string{
	"color":      {"color palette", "primary colors", "hex codes"},
	"colour":     {"colour palette", "primary colours", "hex codes"},
	"logo":       {"logo usage", "logo placement", "clear space"},
	"font":       {"typography", "typeface", "font family"},
	"typography": {"fonts", "typeface rules", "text styles"},
	"tone":       {"tone of voice", "brand voice", "messaging"},
	"voice":      {"tone of voice", "messaging guidelines"},
	"spacing":    {"clear space", "margins", "layout grid"},
	"imagery":    {"photography style", "image guidelines", "illustration"},
	"icon":       {"iconography", "icon style"},
}

const expandSystemPrompt = "You rewrite search queries. Reply with one rephrased query per line and nothing else."

// ExpandQuery produces variants of the query for widened retrieval. The
// original query always comes first; the rest is LLM rephrasings, lexicon
// variants triggered by the query and feedback, and prefixed forms. The
// result is deduplicated and capped.
func ExpandQuery(ctx context.Context, backend llm.Backend, query, feedback string) []string {
	logger := contextutil.LoggerFromContext(ctx)

	queries := []string{query}
	seen := map[string]struct{}{normalizeQuery(query): {}}

	add := func(q string) {
		q = strings.TrimSpace(q)
		if q == "" || len(queries) >= maxExpandedQueries {
			return
		}
		key := normalizeQuery(q)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		queries = append(queries, q)
	}

	raw, err := backend.Complete(ctx, llm.CompletionRequest{
		System:      expandSystemPrompt,
		User:        "Rephrase this brand-guidelines question in 3 different ways:\n" + query,
		MaxTokens:   generationMaxTokens,
		Temperature: 0.7,
	})
	if err != nil {
		logger.WarnContext(ctx, "query rephrasing failed, continuing without it", "error", err)
	} else {
		for _, line := range strings.Split(raw, "\n") {
			line = strings.TrimSpace(strings.TrimLeft(line, "-*0123456789. "))
			if line != "" {
				add(line)
			}
		}
	}

	haystack := strings.ToLower(query + " " + feedback)
	for keyword, variants := range brandLexicon {
		if !strings.Contains(haystack, keyword) {
			continue
		}
		for _, variant := range variants {
			add(variant)
		}
	}

	for _, prefix := range queryPrefixes {
		add(prefix + query)
	}

	return queries
}

func normalizeQuery(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}
