package rag

import (
	"context"
	"fmt"
	"time"

	"github.com/qdrant/go-client/qdrant"

	"github.com/54b3r/tealab-go/internal/domain"
)

// QdrantConfig holds connection parameters for a Qdrant instance.
type QdrantConfig struct {
	// Host is the Qdrant server hostname (default: localhost).
	Host string
	// Port is the Qdrant gRPC port (default: 6334).
	Port int
	// Collection is the collection holding knowledge chunks.
	Collection string
	// VectorSize is the embedding dimensionality used when creating the
	// collection.
	VectorSize uint64
	APIKey     string
	UseTLS     bool
}

const (
	payloadContent   = "content"
	payloadCreatedAt = "created_at"
)

// QdrantStore implements VectorStore on a Qdrant collection using cosine
// distance. Metadata fields are stored as top-level payload keys so filters
// can match on them directly.
type QdrantStore struct {
	client *qdrant.Client
	cfg    *QdrantConfig
}

// NewQdrantStore connects to Qdrant and creates the collection if missing.
func NewQdrantStore(ctx context.Context, cfg *QdrantConfig) (*QdrantStore, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	if cfg.Collection == "" {
		cfg.Collection = "tea_knowledge"
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to create client: %w", err)
	}

	s := &QdrantStore{client: client, cfg: cfg}
	if err := s.ensureCollection(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return s, nil
}

func (s *QdrantStore) ensureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.cfg.Collection)
	if err != nil {
		return fmt.Errorf("qdrant: failed to check collection existence: %w", err)
	}
	if exists {
		return nil
	}
	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.cfg.Collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     s.cfg.VectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("qdrant: failed to create collection %q: %w", s.cfg.Collection, err)
	}
	return nil
}

// Insert upserts chunks as new points keyed by their UUIDs.
func (s *QdrantStore) Insert(ctx context.Context, chunks []domain.KnowledgeChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	points := make([]*qdrant.PointStruct, 0, len(chunks))
	for _, c := range chunks {
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(c.ID),
			Vectors: qdrant.NewVectors(c.Embedding...),
			Payload: qdrant.NewValueMap(chunkPayload(c)),
		})
	}

	wait := true
	if _, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.cfg.Collection,
		Wait:           &wait,
		Points:         points,
	}); err != nil {
		return fmt.Errorf("qdrant: upsert failed: %w", err)
	}
	return nil
}

// MatchKnowledge runs a filtered cosine search with a score threshold.
func (s *QdrantStore) MatchKnowledge(ctx context.Context, embedding []float32, p MatchParams) ([]Match, error) {
	limit := uint64(p.Limit)
	threshold := p.Threshold
	q := &qdrant.QueryPoints{
		CollectionName: s.cfg.Collection,
		Query:          qdrant.NewQuery(embedding...),
		Limit:          &limit,
		ScoreThreshold: &threshold,
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if pairs := p.Filters.Pairs(); len(pairs) > 0 {
		must := make([]*qdrant.Condition, 0, len(pairs))
		for _, kv := range pairs {
			must = append(must, fieldMatch(kv[0], kv[1]))
		}
		q.Filter = &qdrant.Filter{Must: must}
	}

	results, err := s.client.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("qdrant: search failed: %w", err)
	}

	out := make([]Match, 0, len(results))
	for _, r := range results {
		out = append(out, Match{
			Chunk:      chunkFromPayload(r.GetId().GetUuid(), r.GetPayload()),
			Similarity: r.GetScore(),
		})
	}
	return out, nil
}

// Ping calls the Qdrant HealthCheck RPC.
func (s *QdrantStore) Ping(ctx context.Context) error {
	if _, err := s.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("qdrant: health check failed: %w", err)
	}
	return nil
}

// Close closes the underlying gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

func fieldMatch(key, value string) *qdrant.Condition {
	return &qdrant.Condition{
		ConditionOneOf: &qdrant.Condition_Field{
			Field: &qdrant.FieldCondition{
				Key: key,
				Match: &qdrant.Match{
					MatchValue: &qdrant.Match_Keyword{Keyword: value},
				},
			},
		},
	}
}

func chunkPayload(c domain.KnowledgeChunk) map[string]any {
	payload := map[string]any{
		payloadContent:   c.Content,
		payloadCreatedAt: c.CreatedAt.UTC().Format(time.RFC3339),
	}
	for k, v := range c.Metadata.Fields() {
		payload[k] = v
	}
	return payload
}

func chunkFromPayload(id string, p map[string]*qdrant.Value) domain.KnowledgeChunk {
	c := domain.KnowledgeChunk{ID: id}
	fields := make(map[string]string, len(p))
	for k, v := range p {
		switch k {
		case payloadContent:
			c.Content = v.GetStringValue()
		case payloadCreatedAt:
			c.CreatedAt, _ = time.Parse(time.RFC3339, v.GetStringValue())
		default:
			fields[k] = v.GetStringValue()
		}
	}
	c.Metadata = domain.MetadataFromFields(fields)
	return c
}
