package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/54b3r/tealab-go/internal/domain"
)

// knowledgeRow is the tea_knowledge_base table.
type knowledgeRow struct {
	ID        string          `gorm:"primaryKey;type:uuid"`
	Content   string          `gorm:"not null"`
	Metadata  []byte          `gorm:"type:jsonb;not null;default:'{}'"`
	Embedding pgvector.Vector `gorm:"type:vector"`
	CreatedAt time.Time       `gorm:"not null"`
}

func (knowledgeRow) TableName() string { return "tea_knowledge_base" }

type scoredRow struct {
	knowledgeRow
	Similarity float32
}

// PGVectorStore implements VectorStore on Postgres with the pgvector
// extension. Similarity is 1 - cosine distance (the <=> operator).
type PGVectorStore struct {
	db *gorm.DB
}

// NewPGVectorStore opens dsn, enables the vector extension and migrates the
// chunk table.
func NewPGVectorStore(ctx context.Context, dsn string) (*PGVectorStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("pgvector: failed to connect: %w", err)
	}
	db = db.WithContext(ctx)

	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return nil, fmt.Errorf("pgvector: failed to enable extension: %w", err)
	}
	if err := db.AutoMigrate(&knowledgeRow{}); err != nil {
		return nil, fmt.Errorf("pgvector: failed to migrate: %w", err)
	}
	return &PGVectorStore{db: db}, nil
}

// Insert appends chunks in one transaction.
func (s *PGVectorStore) Insert(ctx context.Context, chunks []domain.KnowledgeChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	rows := make([]knowledgeRow, 0, len(chunks))
	for _, c := range chunks {
		meta, err := json.Marshal(c.Metadata)
		if err != nil {
			return fmt.Errorf("pgvector: marshal metadata: %w", err)
		}
		rows = append(rows, knowledgeRow{
			ID:        c.ID,
			Content:   c.Content,
			Metadata:  meta,
			Embedding: pgvector.NewVector(c.Embedding),
			CreatedAt: c.CreatedAt,
		})
	}
	if err := s.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return fmt.Errorf("pgvector: insert failed: %w", err)
	}
	return nil
}

// MatchKnowledge orders by cosine distance and keeps rows at or above the
// similarity threshold.
func (s *PGVectorStore) MatchKnowledge(ctx context.Context, embedding []float32, p MatchParams) ([]Match, error) {
	vec := pgvector.NewVector(embedding)

	q := s.db.WithContext(ctx).
		Model(&knowledgeRow{}).
		Select("*, 1 - (embedding <=> ?) AS similarity", vec).
		Where("1 - (embedding <=> ?) >= ?", vec, p.Threshold)
	for _, kv := range p.Filters.Pairs() {
		q = q.Where("metadata->>? = ?", kv[0], kv[1])
	}

	var rows []scoredRow
	err := q.Order(clause.Expr{SQL: "embedding <=> ?", Vars: []any{vec}}).
		Limit(p.Limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("pgvector: search failed: %w", err)
	}

	out := make([]Match, 0, len(rows))
	for _, r := range rows {
		var meta domain.KnowledgeMetadata
		if len(r.Metadata) > 0 {
			if err := json.Unmarshal(r.Metadata, &meta); err != nil {
				return nil, fmt.Errorf("pgvector: decode metadata of %s: %w", r.ID, err)
			}
		}
		out = append(out, Match{
			Chunk: domain.KnowledgeChunk{
				ID:        r.ID,
				Content:   r.Content,
				Embedding: r.Embedding.Slice(),
				Metadata:  meta,
				CreatedAt: r.CreatedAt,
			},
			Similarity: r.Similarity,
		})
	}
	return out, nil
}

// Ping checks the underlying connection pool.
func (s *PGVectorStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("pgvector: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the connection pool.
func (s *PGVectorStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
