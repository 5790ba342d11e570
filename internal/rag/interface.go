// Package rag retrieves grounding knowledge for the engines. It defines the
// vector index contract satisfied by the SQLite, Qdrant and pgvector
// backends, and the Service that turns a question into matched chunks,
// prompt context or a cited answer.
package rag

import (
	"context"

	"github.com/54b3r/tealab-go/internal/domain"
	"github.com/54b3r/tealab-go/internal/llm"
)

const (
	// DefaultThreshold is the minimum cosine similarity of a match.
	DefaultThreshold float32 = 0.7
	// DefaultLimit caps the number of matches when the caller passes 0.
	DefaultLimit = 5
)

// MatchParams bounds a nearest-neighbour search.
type MatchParams struct {
	Threshold float32
	Limit     int
	Filters   domain.KnowledgeFilters
}

// Match is a stored chunk with its cosine similarity to the query.
type Match struct {
	Chunk      domain.KnowledgeChunk
	Similarity float32
}

// VectorStore persists knowledge chunks and searches them by embedding.
// Implementations must be safe to call from multiple goroutines.
type VectorStore interface {
	// Insert appends chunks; chunks are never updated in place.
	Insert(ctx context.Context, chunks []domain.KnowledgeChunk) error

	// MatchKnowledge returns at most p.Limit chunks with similarity of at
	// least p.Threshold whose metadata equals every set filter, ordered by
	// similarity descending.
	MatchKnowledge(ctx context.Context, embedding []float32, p MatchParams) ([]Match, error)

	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}

// Generator produces completion text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts llm.GenerateOptions) (string, error)
}

// TextEmbedder embeds a single text.
type TextEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
