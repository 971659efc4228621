package chunker

import (
	"strings"
	"testing"

	"playbookwiz/internal/extract"
)

// wordTokenizer treats each whitespace-separated word as one token. Using
// it keeps tests hermetic: the real tiktoken encoding downloads its BPE
// vocabulary on first use.
type wordTokenizer struct{}

func (wordTokenizer) Encode(text string) []int {
	words := strings.Fields(text)
	tokens := make([]int, len(words))
	for i := range words {
		tokens[i] = i
	}
	return tokens
}

func (wordTokenizer) Decode(tokens []int) string {
	// Word identity is lost in Encode, so Decode is only meaningful
	// through splitByTokens where the caller holds the original text.
	// Tests that need round-trips use sliceTokenizer instead.
	return ""
}

func (wordTokenizer) Count(text string) int {
	return len(strings.Fields(text))
}

// sliceTokenizer round-trips words through token slices for hard-split tests.
type sliceTokenizer struct {
	words []string
}

func (s *sliceTokenizer) Encode(text string) []int {
	s.words = strings.Fields(text)
	tokens := make([]int, len(s.words))
	for i := range tokens {
		tokens[i] = i
	}
	return tokens
}

func (s *sliceTokenizer) Decode(tokens []int) string {
	parts := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if tok >= 0 && tok < len(s.words) {
			parts = append(parts, s.words[tok])
		}
	}
	return strings.Join(parts, " ")
}

func (s *sliceTokenizer) Count(text string) int {
	return len(strings.Fields(text))
}

func TestChunkText(t *testing.T) {
	c := New(wordTokenizer{}, 10, 2)

	t.Run("empty input yields no chunks", func(t *testing.T) {
		if got := c.ChunkText("   \n\t "); got != nil {
			t.Fatalf("ChunkText() = %v, want nil", got)
		}
	})

	t.Run("short text is a single chunk", func(t *testing.T) {
		got := c.ChunkText("Use the primary logo. Keep clear space.")
		if len(got) != 1 {
			t.Fatalf("ChunkText() returned %d chunks, want 1", len(got))
		}
	})

	t.Run("sentences are kept whole across chunk boundaries", func(t *testing.T) {
		// Each sentence is 6 tokens; two do not fit in a 10-token budget.
		text := "One two three four five six. Seven eight nine ten eleven twelve. Alpha beta gamma delta epsilon zeta."
		got := c.ChunkText(text)
		if len(got) != 3 {
			t.Fatalf("ChunkText() returned %d chunks, want 3: %v", len(got), got)
		}
		for _, chunk := range got {
			if n := len(strings.Fields(chunk)); n > 10 {
				t.Errorf("chunk exceeds token budget: %d tokens in %q", n, chunk)
			}
			if !strings.HasSuffix(chunk, ".") {
				t.Errorf("chunk does not end on a sentence boundary: %q", chunk)
			}
		}
	})

	t.Run("whitespace is normalized", func(t *testing.T) {
		got := c.ChunkText("Navy   blue\n\nis\tprimary.")
		if len(got) != 1 || got[0] != "Navy blue is primary." {
			t.Fatalf("ChunkText() = %v, want normalized single chunk", got)
		}
	})

	t.Run("text without terminator is kept", func(t *testing.T) {
		got := c.ChunkText("Brand voice is confident and warm")
		if len(got) != 1 {
			t.Fatalf("ChunkText() returned %d chunks, want 1", len(got))
		}
	})
}

func TestChunkTextHardSplit(t *testing.T) {
	c := New(&sliceTokenizer{}, 10, 2)

	// A single 25-word "sentence" must be windowed: 10 + 10 + remainder,
	// each window after the first starting 8 tokens later.
	words := make([]string, 25)
	for i := range words {
		words[i] = strings.Repeat("w", 1+i%3)
	}
	text := strings.Join(words, " ") + "."

	got := c.ChunkText(text)
	if len(got) < 3 {
		t.Fatalf("ChunkText() returned %d chunks, want at least 3 windows", len(got))
	}
	for _, chunk := range got {
		if n := len(strings.Fields(chunk)); n > 10 {
			t.Errorf("hard-split window exceeds budget: %d tokens", n)
		}
	}
}

func TestCreateDocumentChunks(t *testing.T) {
	c := New(wordTokenizer{}, 10, 2)

	pages := []extract.Page{
		{Text: "One two three four five six. Seven eight nine ten eleven twelve.", Number: 1},
		{Text: "Alpha beta gamma.", Number: 2},
	}

	chunks := c.CreateDocumentChunks(pages, "doc-1", "Brand Guidelines.pdf", "owner-a")

	if len(chunks) != 3 {
		t.Fatalf("CreateDocumentChunks() returned %d chunks, want 3", len(chunks))
	}

	for i, chunk := range chunks {
		if chunk.ChunkIndex != i {
			t.Errorf("chunk %d has index %d, want document-wide monotonic index", i, chunk.ChunkIndex)
		}
		wantID := "doc-1_chunk_" + string(rune('0'+i))
		if chunk.ID != wantID {
			t.Errorf("chunk ID = %q, want %q", chunk.ID, wantID)
		}
		if chunk.DocumentName != "Brand Guidelines.pdf" || chunk.OwnerID != "owner-a" {
			t.Errorf("chunk %d provenance not carried: %+v", i, chunk)
		}
		if chunk.TokenCount == 0 {
			t.Errorf("chunk %d has zero token count", i)
		}
	}

	if chunks[0].PageNumber != 1 || chunks[2].PageNumber != 2 {
		t.Errorf("page numbers not preserved: %d, %d", chunks[0].PageNumber, chunks[2].PageNumber)
	}
}

func TestCreateDocumentChunksEmpty(t *testing.T) {
	c := New(wordTokenizer{}, 10, 2)
	if chunks := c.CreateDocumentChunks(nil, "doc-1", "empty.pdf", "owner-a"); len(chunks) != 0 {
		t.Fatalf("CreateDocumentChunks() returned %d chunks for no pages, want 0", len(chunks))
	}
}
