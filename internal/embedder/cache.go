package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultCacheTTL is how long a cached embedding stays valid.
const DefaultCacheTTL = 7 * 24 * time.Hour

// kv is the subset of *redis.Client used by the cache.
type kv interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// CachedEmbedder wraps an Embedder with a Redis lookaside cache keyed by the
// embedding model and a SHA-256 of the text. Redis failures are logged and
// treated as misses; the wrapped embedder stays authoritative.
type CachedEmbedder struct {
	next  Embedder
	rdb   kv
	model string
	ttl   time.Duration
	log   *slog.Logger
}

// NewCachedEmbedder returns an Embedder that consults rdb before next.
func NewCachedEmbedder(next Embedder, rdb kv, model string, ttl time.Duration, log *slog.Logger) *CachedEmbedder {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedEmbedder{next: next, rdb: rdb, model: model, ttl: ttl, log: log}
}

func (c *CachedEmbedder) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "tealab:emb:" + c.model + ":" + hex.EncodeToString(sum[:])
}

// Embed serves cached vectors and embeds only the misses, in one batch.
func (c *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string

	for i, t := range texts {
		if v, ok := c.lookup(ctx, t); ok {
			out[i] = v
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, t)
	}
	if len(missTexts) == 0 {
		return out, nil
	}

	vecs, err := c.next.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missTexts) {
		return nil, fmt.Errorf("embedder cache: expected %d embeddings, got %d", len(missTexts), len(vecs))
	}
	for j, i := range missIdx {
		out[i] = vecs[j]
		c.store(ctx, missTexts[j], vecs[j])
	}
	return out, nil
}

func (c *CachedEmbedder) lookup(ctx context.Context, text string) ([]float32, bool) {
	raw, err := c.rdb.Get(ctx, c.key(text)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("embedder cache: get failed", slog.String("error", err.Error()))
		}
		return nil, false
	}
	var v []float32
	if err := json.Unmarshal(raw, &v); err != nil || len(v) == 0 {
		return nil, false
	}
	return v, true
}

func (c *CachedEmbedder) store(ctx context.Context, text string, v []float32) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, c.key(text), b, c.ttl).Err(); err != nil {
		c.log.Warn("embedder cache: set failed", slog.String("error", err.Error()))
	}
}
