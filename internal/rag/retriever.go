package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/54b3r/tealab-go/internal/budget"
	"github.com/54b3r/tealab-go/internal/domain"
	"github.com/54b3r/tealab-go/internal/llm"
	"github.com/54b3r/tealab-go/internal/prompts"
)

// queryTemperature is the sampling temperature for knowledge-base answers.
const queryTemperature = 0.7

// Options tunes a Service. Zero values select the package defaults.
type Options struct {
	// Threshold is the minimum similarity for a chunk to be used.
	Threshold float32
	// MaxContextTokens bounds the grounding context returned by
	// RetrieveContext. Zero selects budget.DefaultMaxContextTokens and a
	// negative value disables trimming.
	MaxContextTokens int
}

// Service answers questions from the knowledge base. It embeds queries with
// the text-generation client and delegates similarity search to the store.
type Service struct {
	gen       Generator
	embedder  TextEmbedder
	store     VectorStore
	threshold float32
	maxTokens int
	log       *slog.Logger
}

// NewService constructs a Service. gen may be nil when only retrieval is
// needed; Query then fails.
func NewService(gen Generator, embedder TextEmbedder, store VectorStore, opts Options, log *slog.Logger) (*Service, error) {
	if embedder == nil {
		return nil, fmt.Errorf("rag: embedder must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("rag: store must not be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultThreshold
	}
	if opts.MaxContextTokens == 0 {
		opts.MaxContextTokens = budget.DefaultMaxContextTokens
	}
	return &Service{
		gen:       gen,
		embedder:  embedder,
		store:     store,
		threshold: opts.Threshold,
		maxTokens: opts.MaxContextTokens,
		log:       log,
	}, nil
}

// Search embeds query and returns the matching chunks. If limit is 0
// DefaultLimit is used.
func (s *Service) Search(ctx context.Context, query string, limit int, filters domain.KnowledgeFilters) ([]Match, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("rag: embedding query failed: %w", err)
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("rag: embedder returned empty vector for query")
	}
	matches, err := s.store.MatchKnowledge(ctx, vec, MatchParams{
		Threshold: s.threshold,
		Limit:     limit,
		Filters:   filters,
	})
	if err != nil {
		return nil, domain.Upstream("rag: match knowledge", err)
	}
	return matches, nil
}

// RetrieveContext returns the contents of the chunks most similar to query,
// separated by blank lines and trimmed to the token budget. Retrieval is
// best effort: any failure is logged and yields the empty string.
func (s *Service) RetrieveContext(ctx context.Context, query string, limit int) string {
	matches, err := s.Search(ctx, query, limit, domain.KnowledgeFilters{})
	if err != nil {
		s.log.Warn("rag: context retrieval failed", "error", err, "query_len", len(query))
		return ""
	}
	if len(matches) == 0 {
		return ""
	}

	contents := make([]string, 0, len(matches))
	for _, m := range matches {
		contents = append(contents, m.Chunk.Content)
	}
	kept := budget.TrimSections(contents, 1, s.maxTokens)
	if len(kept) < len(contents) {
		s.log.Debug("rag: context trimmed to budget", "kept", len(kept), "matched", len(contents))
	}
	return strings.Join(kept, "\n\n")
}

// Query answers req.Query from the knowledge base and cites its sources.
// Unlike RetrieveContext, embedding and search failures are returned.
func (s *Service) Query(ctx context.Context, req domain.RAGQueryRequest) (*domain.RAGAnswer, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if s.gen == nil {
		return nil, errors.New("rag: no generator configured")
	}

	matches, err := s.Search(ctx, req.Query, req.Limit, req.Filters)
	if err != nil {
		return nil, err
	}

	blocks := make([]string, 0, len(matches))
	sources := make([]domain.RAGSource, 0, len(matches))
	for i, m := range matches {
		blocks = append(blocks, fmt.Sprintf("[Source %d]: %s", i+1, m.Chunk.Content))
		sources = append(sources, domain.RAGSource{
			Content:    m.Chunk.Content,
			Metadata:   m.Chunk.Metadata,
			Similarity: m.Similarity,
		})
	}

	answer, err := s.gen.Generate(ctx, prompts.RAGQuery(req.Query, strings.Join(blocks, "\n\n")),
		llm.GenerateOptions{Temperature: queryTemperature})
	if err != nil {
		return nil, err
	}

	var confidence float32
	if len(matches) > 0 {
		confidence = matches[0].Similarity
	}
	return &domain.RAGAnswer{
		Answer:     answer,
		Sources:    sources,
		Confidence: confidence,
	}, nil
}

// Ingest stores already-embedded chunks.
func (s *Service) Ingest(ctx context.Context, chunks []domain.KnowledgeChunk) error {
	if err := s.store.Insert(ctx, chunks); err != nil {
		return domain.Upstream("rag: insert knowledge", err)
	}
	return nil
}

// Ping reports whether the vector store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
