package vectorstore

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"playbookwiz/internal/chunker"
	"playbookwiz/internal/contextutil"
)

// pointNamespace makes qdrant point IDs deterministic per chunk ID, so
// re-ingesting a document overwrites its points instead of duplicating them.
var pointNamespace = uuid.MustParse("9d3b6f2a-5f0c-4a41-8f0e-2c7a1d64be90")

// QdrantIndex implements Index backed by a Qdrant collection.
type QdrantIndex struct {
	client     *qdrant.Client
	collection string
}

// NewQdrantIndex creates a Qdrant-backed index.
// urlStr should be in the format "http://host:port" (e.g., "http://localhost:6333").
// The gRPC port (typically 6334) will be derived from the HTTP port.
func NewQdrantIndex(urlStr, collection string) (*QdrantIndex, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := parsedURL.Hostname()
	if host == "" {
		host = "localhost"
	}

	// Extract port from URL, default to 6333 for HTTP
	port := 6334 // Default gRPC port
	if parsedURL.Port() != "" {
		httpPort, err := strconv.Atoi(parsedURL.Port())
		if err == nil {
			// gRPC port is typically HTTP port + 1
			port = httpPort + 1
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Qdrant client: %w", err)
	}

	return &QdrantIndex{
		client:     client,
		collection: collection,
	}, nil
}

// EnsureCollection ensures the collection exists with the specified vector size.
// If the collection exists, validates that the vector size matches.
func (s *QdrantIndex) EnsureCollection(ctx context.Context, vectorSize int) error {
	logger := contextutil.LoggerFromContext(ctx)

	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}

	if !exists {
		logger.InfoContext(ctx, "creating collection", "collection", s.collection, "vector_size", vectorSize)
		err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: s.collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(vectorSize),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return fmt.Errorf("failed to create collection: %w", err)
		}
		logger.InfoContext(ctx, "collection created", "collection", s.collection, "vector_size", vectorSize)
		return nil
	}

	info, err := s.client.GetCollectionInfo(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to get collection info: %w", err)
	}

	config := info.Config
	if config == nil || config.Params == nil {
		return fmt.Errorf("collection config is invalid")
	}

	vectorsConfig := config.Params.GetVectorsConfig()
	if vectorsConfig == nil {
		return fmt.Errorf("collection vectors config is invalid")
	}

	params := vectorsConfig.GetParams()
	if params == nil {
		return fmt.Errorf("collection vector params are invalid")
	}

	if params.Size == 0 {
		return fmt.Errorf("could not determine collection vector size")
	}
	if int(params.Size) != vectorSize {
		return fmt.Errorf("collection vector size mismatch: expected %d, got %d", vectorSize, params.Size)
	}

	logger.InfoContext(ctx, "collection validated", "collection", s.collection, "vector_size", vectorSize)
	return nil
}

// Upsert indexes chunks with their vectors.
func (s *QdrantIndex) Upsert(ctx context.Context, chunks []chunker.Chunk, vectors [][]float32, provider string) error {
	logger := contextutil.LoggerFromContext(ctx)

	if len(chunks) == 0 {
		return nil
	}
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunk count %d does not match vector count %d", len(chunks), len(vectors))
	}

	points := make([]*qdrant.PointStruct, 0, len(chunks))
	for i, chunk := range chunks {
		// Chunk IDs like "doc_chunk_3" are not valid qdrant point IDs,
		// so derive a stable UUID and keep the chunk ID in the payload.
		pointID := uuid.NewSHA1(pointNamespace, []byte(chunk.ID)).String()

		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewID(pointID),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: qdrant.NewValueMap(map[string]any{
				"chunk_id":      chunk.ID,
				"text":          chunk.Text,
				"document_id":   chunk.DocumentID,
				"document_name": chunk.DocumentName,
				"page_number":   int64(chunk.PageNumber),
				"chunk_index":   int64(chunk.ChunkIndex),
				"token_count":   int64(chunk.TokenCount),
				"owner_id":      chunk.OwnerID,
				"provider":      provider,
			}),
		})
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         points,
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to upsert points", "collection", s.collection, "count", len(points), "error", err)
		return fmt.Errorf("failed to upsert points: %w", err)
	}

	logger.InfoContext(ctx, "upserted points", "collection", s.collection, "count", len(points))
	return nil
}

// Search performs owner-scoped similarity search.
func (s *QdrantIndex) Search(ctx context.Context, query SearchQuery) ([]Hit, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if query.TopK <= 0 {
		return nil, fmt.Errorf("top_k must be greater than 0")
	}
	if query.OwnerID == "" {
		return nil, fmt.Errorf("owner_id is required")
	}

	must := []*qdrant.Condition{
		qdrant.NewMatch("owner_id", query.OwnerID),
		qdrant.NewMatch("provider", query.Provider),
	}
	if len(query.DocumentIDs) > 0 {
		must = append(must, matchAnyKeyword("document_id", query.DocumentIDs))
	}

	limit := uint64(query.TopK)
	scoredPoints, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(query.Vector...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
		Filter:         &qdrant.Filter{Must: must},
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to search points", "collection", s.collection, "top_k", query.TopK, "error", err)
		return nil, fmt.Errorf("failed to search points: %w", err)
	}

	hits := make([]Hit, 0, len(scoredPoints))
	for _, point := range scoredPoints {
		payload := point.Payload

		hits = append(hits, Hit{
			ChunkID:      payloadString(payload, "chunk_id"),
			Passage:      payloadString(payload, "text"),
			DocumentID:   payloadString(payload, "document_id"),
			DocumentName: payloadString(payload, "document_name"),
			PageNumber:   int(payloadInt(payload, "page_number")),
			Score:        clampScore(float64(point.Score)),
		})
	}

	logger.InfoContext(ctx, "search completed", "collection", s.collection, "top_k", query.TopK, "results", len(hits))
	return hits, nil
}

// DeleteByDocument removes every chunk of one owner's document.
func (s *QdrantIndex) DeleteByDocument(ctx context.Context, ownerID, documentID string) error {
	return s.deleteByFilter(ctx, &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatch("owner_id", ownerID),
			qdrant.NewMatch("document_id", documentID),
		},
	})
}

// DeleteByOwner removes every chunk belonging to an owner.
func (s *QdrantIndex) DeleteByOwner(ctx context.Context, ownerID string) error {
	return s.deleteByFilter(ctx, &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatch("owner_id", ownerID),
		},
	})
}

func (s *QdrantIndex) deleteByFilter(ctx context.Context, filter *qdrant.Filter) error {
	logger := contextutil.LoggerFromContext(ctx)

	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{Filter: filter},
		},
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to delete points", "collection", s.collection, "error", err)
		return fmt.Errorf("failed to delete points: %w", err)
	}
	return nil
}

// CountDistinctDocuments scrolls the owner's points and counts distinct
// document IDs from payloads.
func (s *QdrantIndex) CountDistinctDocuments(ctx context.Context, ownerID string) (int, error) {
	filter := &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatch("owner_id", ownerID),
		},
	}

	seen := make(map[string]struct{})
	var offset *qdrant.PointId
	limit := uint32(256)

	for {
		points, nextOffset, err := s.client.ScrollAndOffset(ctx, &qdrant.ScrollPoints{
			CollectionName: s.collection,
			Filter:         filter,
			Limit:          &limit,
			Offset:         offset,
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil {
			return 0, fmt.Errorf("failed to scroll points: %w", err)
		}

		for _, point := range points {
			if docID := payloadString(point.Payload, "document_id"); docID != "" {
				seen[docID] = struct{}{}
			}
		}

		if nextOffset == nil || len(points) == 0 {
			break
		}
		offset = nextOffset
	}

	return len(seen), nil
}

// Ping checks connectivity by probing collection existence.
func (s *QdrantIndex) Ping(ctx context.Context) error {
	if _, err := s.client.CollectionExists(ctx, s.collection); err != nil {
		return fmt.Errorf("qdrant unreachable: %w", err)
	}
	return nil
}

// Close closes the underlying gRPC connection.
func (s *QdrantIndex) Close() error {
	return s.client.Close()
}

// matchAnyKeyword builds a condition matching any of the given values.
func matchAnyKeyword(field string, values []string) *qdrant.Condition {
	return &qdrant.Condition{
		ConditionOneOf: &qdrant.Condition_Field{
			Field: &qdrant.FieldCondition{
				Key: field,
				Match: &qdrant.Match{
					MatchValue: &qdrant.Match_Keywords{
						Keywords: &qdrant.RepeatedStrings{Strings: values},
					},
				},
			},
		},
	}
}

func payloadString(payload map[string]*qdrant.Value, key string) string {
	if payload == nil {
		return ""
	}
	if v, ok := payload[key]; ok {
		return v.GetStringValue()
	}
	return ""
}

func payloadInt(payload map[string]*qdrant.Value, key string) int64 {
	if payload == nil {
		return 0
	}
	if v, ok := payload[key]; ok {
		return v.GetIntegerValue()
	}
	return 0
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
