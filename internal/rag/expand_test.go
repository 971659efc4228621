package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"playbookwiz/internal/llm"
)

func TestExpandQueryOriginalFirst(t *testing.T) {
	backend := &scriptedBackend{fn: func(req llm.CompletionRequest) (string, error) {
		return "which colors define the brand\nwhat is the color scheme", nil
	}}

	queries := ExpandQuery(context.Background(), backend, "what are our colors", "")

	if len(queries) == 0 || queries[0] != "what are our colors" {
		t.Fatalf("original query must come first: %v", queries)
	}
	if len(queries) > maxExpandedQueries {
		t.Errorf("got %d queries, want at most %d", len(queries), maxExpandedQueries)
	}
}

func TestExpandQueryDeduplicates(t *testing.T) {
	backend := &scriptedBackend{fn: func(req llm.CompletionRequest) (string, error) {
		// Duplicates of the original, differing only in case and numbering.
		return "1. What are our colors\n2. WHAT ARE OUR COLORS", nil
	}}

	queries := ExpandQuery(context.Background(), backend, "what are our colors", "")

	seen := make(map[string]bool)
	for _, q := range queries {
		key := strings.ToLower(q)
		if seen[key] {
			t.Errorf("duplicate query %q", q)
		}
		seen[key] = true
	}
}

func TestExpandQueryLexiconFromFeedback(t *testing.T) {
	backend := &scriptedBackend{fn: func(req llm.CompletionRequest) (string, error) {
		return "", errors.New("unavailable")
	}}

	queries := ExpandQuery(context.Background(), backend, "what should headlines look like", "mention the typography rules")

	found := false
	for _, q := range queries {
		if strings.Contains(q, "typeface") || strings.Contains(q, "fonts") || strings.Contains(q, "text styles") {
			found = true
		}
	}
	if !found {
		t.Errorf("feedback keyword should trigger lexicon variants: %v", queries)
	}
}

func TestExpandQuerySurvivesBackendFailure(t *testing.T) {
	backend := &scriptedBackend{fn: func(req llm.CompletionRequest) (string, error) {
		return "", errors.New("unavailable")
	}}

	queries := ExpandQuery(context.Background(), backend, "logo rules", "")

	if queries[0] != "logo rules" {
		t.Fatalf("original query must survive backend failure: %v", queries)
	}
	// Prefixed and lexicon variants still apply.
	if len(queries) < 2 {
		t.Errorf("expected prefixed variants despite backend failure: %v", queries)
	}
}

func TestExpandQueryCap(t *testing.T) {
	backend := &scriptedBackend{fn: func(req llm.CompletionRequest) (string, error) {
		return strings.Repeat("another phrasing of the question about brand color logo font tone\n", 20), nil
	}}

	queries := ExpandQuery(context.Background(), backend, "color logo font tone imagery spacing", "")

	if len(queries) > maxExpandedQueries {
		t.Errorf("got %d queries, want at most %d", len(queries), maxExpandedQueries)
	}
}
