package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/54b3r/tealab-go/internal/domain"
	"github.com/54b3r/tealab-go/internal/rag"
)

// KnowledgeIndex is a rag.VectorStore over the knowledge_chunks table.
// Metadata filters run in SQL; cosine similarity is computed in process,
// which suits catalogs of a few thousand chunks.
type KnowledgeIndex struct {
	db *sql.DB
}

var _ rag.VectorStore = (*KnowledgeIndex)(nil)

// Knowledge returns the knowledge index sharing this store's database.
func (s *Store) Knowledge() *KnowledgeIndex {
	return &KnowledgeIndex{db: s.db}
}

// Insert appends chunks in one transaction.
func (k *KnowledgeIndex) Insert(ctx context.Context, chunks []domain.KnowledgeChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	tx, err := k.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: insert knowledge: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const q = `
INSERT INTO knowledge_chunks (id, content, metadata, tea_type, effect, compound, embedding, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	for _, c := range chunks {
		meta, err := json.Marshal(c.Metadata)
		if err != nil {
			return fmt.Errorf("store: insert knowledge %s: %w", c.ID, err)
		}
		created := c.CreatedAt
		if created.IsZero() {
			created = time.Now()
		}
		if _, err := tx.ExecContext(ctx, q, c.ID, c.Content, string(meta),
			c.Metadata.TeaType, c.Metadata.Effect, c.Metadata.Compound,
			encodeVector(c.Embedding), created.UTC().UnixMilli()); err != nil {
			return fmt.Errorf("store: insert knowledge %s: %w", c.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: insert knowledge: commit: %w", err)
	}
	return nil
}

// MatchKnowledge scores every chunk passing the metadata filters and returns
// the best p.Limit with similarity of at least p.Threshold. Equal scores keep
// insertion order.
func (k *KnowledgeIndex) MatchKnowledge(ctx context.Context, embedding []float32, p rag.MatchParams) ([]rag.Match, error) {
	q := `SELECT id, content, metadata, embedding, created_at FROM knowledge_chunks WHERE 1 = 1`
	var args []any
	for _, kv := range p.Filters.Pairs() {
		// Pairs only yields the fixed column names tea_type, effect and compound.
		q += ` AND ` + kv[0] + ` = ?`
		args = append(args, kv[1])
	}
	q += ` ORDER BY created_at, id`

	rows, err := k.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("store: match knowledge: %w", err)
	}
	defer rows.Close()

	var out []rag.Match
	for rows.Next() {
		var c domain.KnowledgeChunk
		var meta string
		var blob []byte
		var created int64
		if err := rows.Scan(&c.ID, &c.Content, &meta, &blob, &created); err != nil {
			return nil, fmt.Errorf("store: match knowledge scan: %w", err)
		}
		vec := decodeVector(blob)
		sim := cosine(embedding, vec)
		if sim < p.Threshold {
			continue
		}
		if err := json.Unmarshal([]byte(meta), &c.Metadata); err != nil {
			return nil, fmt.Errorf("store: match knowledge: decode metadata of %s: %w", c.ID, err)
		}
		c.Embedding = vec
		c.CreatedAt = time.UnixMilli(created).UTC()
		out = append(out, rag.Match{Chunk: c, Similarity: sim})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: match knowledge rows: %w", err)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	if p.Limit > 0 && len(out) > p.Limit {
		out = out[:p.Limit]
	}
	return out, nil
}

// Ping verifies the database is reachable.
func (k *KnowledgeIndex) Ping(ctx context.Context) error {
	return k.db.PingContext(ctx)
}

// Close is a no-op; the owning Store closes the database.
func (k *KnowledgeIndex) Close() error { return nil }

// Count returns the number of stored chunks.
func (k *KnowledgeIndex) Count(ctx context.Context) (int, error) {
	var n int
	if err := k.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM knowledge_chunks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count knowledge: %w", err)
	}
	return n, nil
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v
}

// cosine returns the cosine similarity of a and b, or 0 when their lengths
// differ or either is a zero vector.
func cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
