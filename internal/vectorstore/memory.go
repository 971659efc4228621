package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"playbookwiz/internal/chunker"
)

type memoryEntry struct {
	chunk    chunker.Chunk
	vector   []float32
	provider string
}

// MemoryIndex is a brute-force cosine similarity index held in memory.
// It backs local development and tests where a Qdrant instance is not
// available; it persists nothing.
type MemoryIndex struct {
	mu      sync.RWMutex
	entries []memoryEntry
	byID    map[string]int
}

// NewMemoryIndex creates an empty in-memory index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{byID: make(map[string]int)}
}

// Upsert indexes chunks with their vectors, replacing entries that share
// a chunk ID.
func (m *MemoryIndex) Upsert(ctx context.Context, chunks []chunker.Chunk, vectors [][]float32, provider string) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunk count %d does not match vector count %d", len(chunks), len(vectors))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for i, chunk := range chunks {
		entry := memoryEntry{chunk: chunk, vector: vectors[i], provider: provider}
		if pos, ok := m.byID[chunk.ID]; ok {
			m.entries[pos] = entry
			continue
		}
		m.byID[chunk.ID] = len(m.entries)
		m.entries = append(m.entries, entry)
	}
	return nil
}

// Search performs brute-force cosine similarity over the owner's entries.
func (m *MemoryIndex) Search(ctx context.Context, query SearchQuery) ([]Hit, error) {
	if query.TopK <= 0 {
		return nil, fmt.Errorf("top_k must be greater than 0")
	}
	if query.OwnerID == "" {
		return nil, fmt.Errorf("owner_id is required")
	}

	docFilter := make(map[string]struct{}, len(query.DocumentIDs))
	for _, id := range query.DocumentIDs {
		docFilter[id] = struct{}{}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var hits []Hit
	for _, entry := range m.entries {
		if entry.chunk.OwnerID != query.OwnerID || entry.provider != query.Provider {
			continue
		}
		if len(docFilter) > 0 {
			if _, ok := docFilter[entry.chunk.DocumentID]; !ok {
				continue
			}
		}
		hits = append(hits, Hit{
			ChunkID:      entry.chunk.ID,
			Passage:      entry.chunk.Text,
			DocumentID:   entry.chunk.DocumentID,
			DocumentName: entry.chunk.DocumentName,
			PageNumber:   entry.chunk.PageNumber,
			Score:        clampScore(cosineSimilarity(entry.vector, query.Vector)),
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	if len(hits) > query.TopK {
		hits = hits[:query.TopK]
	}
	return hits, nil
}

// DeleteByDocument removes every chunk of one owner's document.
func (m *MemoryIndex) DeleteByDocument(ctx context.Context, ownerID, documentID string) error {
	m.deleteWhere(func(e memoryEntry) bool {
		return e.chunk.OwnerID == ownerID && e.chunk.DocumentID == documentID
	})
	return nil
}

// DeleteByOwner removes every chunk belonging to an owner.
func (m *MemoryIndex) DeleteByOwner(ctx context.Context, ownerID string) error {
	m.deleteWhere(func(e memoryEntry) bool {
		return e.chunk.OwnerID == ownerID
	})
	return nil
}

func (m *MemoryIndex) deleteWhere(match func(memoryEntry) bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.entries[:0]
	for _, entry := range m.entries {
		if !match(entry) {
			kept = append(kept, entry)
		}
	}
	m.entries = kept

	m.byID = make(map[string]int, len(m.entries))
	for i, entry := range m.entries {
		m.byID[entry.chunk.ID] = i
	}
}

// CountDistinctDocuments reports how many documents an owner has indexed.
func (m *MemoryIndex) CountDistinctDocuments(ctx context.Context, ownerID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, entry := range m.entries {
		if entry.chunk.OwnerID == ownerID {
			seen[entry.chunk.DocumentID] = struct{}{}
		}
	}
	return len(seen), nil
}

// Ping always succeeds for the in-memory index.
func (m *MemoryIndex) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op.
func (m *MemoryIndex) Close() error {
	return nil
}

func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
