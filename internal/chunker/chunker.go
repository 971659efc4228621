// Package chunker splits extracted document pages into token-bounded,
// sentence-aware chunks suitable for embedding and retrieval.
package chunker

import (
	"fmt"
	"regexp"
	"strings"

	"playbookwiz/internal/extract"
)

const (
	// DefaultMaxTokens bounds a chunk to fit comfortably inside embedding
	// model context windows.
	DefaultMaxTokens = 500
	// DefaultOverlapTokens carries trailing context into the next chunk
	// when a single sentence has to be hard-split.
	DefaultOverlapTokens = 50
)

var sentencePattern = regexp.MustCompile(`[^.!?]+[.!?]`)

// Chunk is a retrievable unit of document text with its provenance.
type Chunk struct {
	ID           string         `json:"id"`
	Text         string         `json:"text"`
	DocumentID   string         `json:"document_id"`
	DocumentName string         `json:"document_name"`
	PageNumber   int            `json:"page_number"`
	ChunkIndex   int            `json:"chunk_index"`
	TokenCount   int            `json:"token_count"`
	OwnerID      string         `json:"owner_id"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// Chunker splits text into sentence-aware chunks bounded by token count.
type Chunker struct {
	tokenizer     Tokenizer
	maxTokens     int
	overlapTokens int
}

// New creates a chunker with the given bounds. Non-positive bounds fall
// back to the defaults; overlap is capped below maxTokens so hard splits
// always make forward progress.
func New(tokenizer Tokenizer, maxTokens, overlapTokens int) *Chunker {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	if overlapTokens < 0 {
		overlapTokens = DefaultOverlapTokens
	}
	if overlapTokens >= maxTokens {
		overlapTokens = maxTokens / 2
	}
	return &Chunker{
		tokenizer:     tokenizer,
		maxTokens:     maxTokens,
		overlapTokens: overlapTokens,
	}
}

// ChunkText splits a single text into chunks of at most maxTokens tokens.
// Sentences are kept whole when possible; a sentence that alone exceeds
// the budget is hard-split on token windows with overlap. Whitespace-only
// input yields no chunks.
func (c *Chunker) ChunkText(text string) []string {
	normalized := normalizeWhitespace(text)
	if normalized == "" {
		return nil
	}

	sentences := splitSentences(normalized)

	var chunks []string
	var current []string
	currentTokens := 0

	flush := func() {
		if len(current) > 0 {
			chunks = append(chunks, strings.Join(current, " "))
			current = current[:0]
			currentTokens = 0
		}
	}

	for _, sentence := range sentences {
		tokens := c.tokenizer.Count(sentence)

		if tokens > c.maxTokens {
			flush()
			chunks = append(chunks, c.splitByTokens(sentence)...)
			continue
		}

		if currentTokens+tokens > c.maxTokens {
			flush()
		}
		current = append(current, sentence)
		currentTokens += tokens
	}
	flush()

	return chunks
}

// splitByTokens hard-splits text into token windows of maxTokens with
// overlapTokens carried between consecutive windows.
func (c *Chunker) splitByTokens(text string) []string {
	tokens := c.tokenizer.Encode(text)

	var parts []string
	step := c.maxTokens - c.overlapTokens
	for start := 0; start < len(tokens); start += step {
		end := start + c.maxTokens
		if end > len(tokens) {
			end = len(tokens)
		}
		part := strings.TrimSpace(c.tokenizer.Decode(tokens[start:end]))
		if part != "" {
			parts = append(parts, part)
		}
		if end == len(tokens) {
			break
		}
	}
	return parts
}

// CreateDocumentChunks chunks every page of a document, assigning each
// chunk a document-wide monotonic index and a deterministic ID.
func (c *Chunker) CreateDocumentChunks(pages []extract.Page, documentID, documentName, ownerID string) []Chunk {
	var chunks []Chunk
	index := 0

	for _, page := range pages {
		for _, text := range c.ChunkText(page.Text) {
			chunks = append(chunks, Chunk{
				ID:           fmt.Sprintf("%s_chunk_%d", documentID, index),
				Text:         text,
				DocumentID:   documentID,
				DocumentName: documentName,
				PageNumber:   page.Number,
				ChunkIndex:   index,
				TokenCount:   c.tokenizer.Count(text),
				OwnerID:      ownerID,
			})
			index++
		}
	}
	return chunks
}

// normalizeWhitespace collapses all runs of whitespace to single spaces.
func normalizeWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// splitSentences splits text on sentence-ending punctuation. Trailing text
// without a terminator is kept as a final sentence.
func splitSentences(text string) []string {
	matches := sentencePattern.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return []string{text}
	}

	var sentences []string
	lastEnd := 0
	for _, m := range matches {
		sentence := strings.TrimSpace(text[m[0]:m[1]])
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
		lastEnd = m[1]
	}
	if tail := strings.TrimSpace(text[lastEnd:]); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}
