// Package ingestion implements the knowledge ingestion pipeline. Documents
// are split into paragraph-aligned chunks, each chunk is embedded and the
// results are appended to the vector store. The pipeline backs the
// `tealab ingest` command and POST /api/rag/ingest.
package ingestion

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/54b3r/tealab-go/internal/domain"
	"github.com/54b3r/tealab-go/internal/rag"
)

const (
	// MaxChunkChars is the soft cap on a chunk's length in characters. A
	// single paragraph longer than the cap becomes its own chunk.
	MaxChunkChars = 2000
	// MinChunkChars is the length below which a trimmed chunk is dropped.
	MinChunkChars = 100

	paragraphSep = "\n\n"

	// maxFetchBytes bounds the size of a fetched document.
	maxFetchBytes = 10 << 20
)

// Document is a unit of ingestion: raw text plus the metadata shared by all
// of its chunks.
type Document struct {
	Content  string                   `json:"content"`
	Metadata domain.KnowledgeMetadata `json:"metadata"`
}

// DocumentError records why one document of a batch failed.
type DocumentError struct {
	Index  int    `json:"index"`
	Source string `json:"source,omitempty"`
	Error  string `json:"error"`
}

// BulkResult summarises a batch ingestion. Failed documents never abort the
// batch.
type BulkResult struct {
	Documents int             `json:"documents"`
	Chunks    int             `json:"chunks"`
	Failed    []DocumentError `json:"failed,omitempty"`
}

// Config holds the configuration for the ingestion pipeline.
type Config struct {
	// HTTPTimeout is the timeout for each document fetch request.
	// Defaults to 30s if zero.
	HTTPTimeout time.Duration

	// UserAgent is the HTTP User-Agent header sent with fetch requests.
	UserAgent string

	// Progress, when set, receives one line per processed document.
	Progress func(msg string)
}

// Pipeline orchestrates the chunk → embed → insert flow.
type Pipeline struct {
	embedder   rag.TextEmbedder
	store      rag.VectorStore
	cfg        *Config
	httpClient *http.Client
	log        *slog.Logger

	// now and newID are replaced in tests.
	now   func() time.Time
	newID func() string
}

// NewPipeline constructs a Pipeline from the provided dependencies and config.
func NewPipeline(embedder rag.TextEmbedder, store rag.VectorStore, cfg *Config, log *slog.Logger) (*Pipeline, error) {
	if embedder == nil {
		return nil, fmt.Errorf("ingestion: embedder must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("ingestion: store must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "tealab/1.0 (tea knowledge ingestion)"
	}
	if cfg.Progress == nil {
		cfg.Progress = func(string) {}
	}
	if log == nil {
		log = slog.Default()
	}

	return &Pipeline{
		embedder: embedder,
		store:    store,
		cfg:      cfg,
		httpClient: &http.Client{
			Timeout: cfg.HTTPTimeout,
		},
		log:   log,
		now:   time.Now,
		newID: func() string { return uuid.NewString() },
	}, nil
}

// IngestDocument chunks content, embeds every chunk and stores it with meta.
// It returns the number of chunks stored; on error the chunks stored before
// the failure remain.
func (p *Pipeline) IngestDocument(ctx context.Context, content string, meta domain.KnowledgeMetadata) (int, error) {
	chunks := Chunk(content)
	stored := 0
	for i, text := range chunks {
		vec, err := p.embedder.Embed(ctx, text)
		if err != nil {
			return stored, fmt.Errorf("ingestion: embed chunk %d: %w", i, err)
		}
		chunk := domain.KnowledgeChunk{
			ID:        p.newID(),
			Content:   text,
			Embedding: vec,
			Metadata:  meta,
			CreatedAt: p.now().UTC(),
		}
		if err := p.store.Insert(ctx, []domain.KnowledgeChunk{chunk}); err != nil {
			return stored, domain.Upstream(fmt.Sprintf("ingestion: insert chunk %d", i), err)
		}
		stored++
	}
	p.log.Info("ingestion: document stored", "source", meta.Source, "chunks", stored)
	return stored, nil
}

// BulkIngest ingests docs sequentially. A failing document is logged and
// recorded in the result; the remaining documents are still processed.
func (p *Pipeline) BulkIngest(ctx context.Context, docs []Document) BulkResult {
	var res BulkResult
	for i, d := range docs {
		if err := ctx.Err(); err != nil {
			res.Failed = append(res.Failed, DocumentError{Index: i, Source: d.Metadata.Source, Error: err.Error()})
			continue
		}
		n, err := p.IngestDocument(ctx, d.Content, d.Metadata)
		res.Chunks += n
		if err != nil {
			p.log.Warn("ingestion: document failed", "index", i, "source", d.Metadata.Source, "error", err)
			res.Failed = append(res.Failed, DocumentError{Index: i, Source: d.Metadata.Source, Error: err.Error()})
			p.cfg.Progress(fmt.Sprintf("failed %s: %v", label(i, d), err))
			continue
		}
		res.Documents++
		p.cfg.Progress(fmt.Sprintf("ingested %d chunks from %s", n, label(i, d)))
	}
	return res
}

// LoadMarkdownDir reads every *.md file in dir as a Document. Source is the
// file name, Title the name without extension and Category the given
// category; tea type, effect and compound tags are inferred from the text.
func LoadMarkdownDir(dir, category string) ([]Document, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.md"))
	if err != nil {
		return nil, fmt.Errorf("ingestion: list %s: %w", dir, err)
	}
	sort.Strings(files)

	docs := make([]Document, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("ingestion: read %s: %w", f, err)
		}
		base := filepath.Base(f)
		title := strings.TrimSuffix(base, ".md")
		meta := Merge(domain.KnowledgeMetadata{
			Source:   base,
			Title:    title,
			Category: category,
		}, InferMetadata(title, string(data)))
		docs = append(docs, Document{Content: string(data), Metadata: meta})
	}
	return docs, nil
}

// FetchDocument retrieves the raw text content of a URL.
func (p *Pipeline) FetchDocument(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("ingestion: creating request: %w", err)
	}
	req.Header.Set("User-Agent", p.cfg.UserAgent)
	req.Header.Set("Accept", "text/plain, text/markdown, text/html")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ingestion: http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ingestion: unexpected status %d for %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return "", fmt.Errorf("ingestion: reading body: %w", err)
	}
	return string(body), nil
}

// Chunk splits content at blank-line paragraph boundaries. Paragraphs are
// accumulated until appending the next one, separator included, would push
// the buffer past MaxChunkChars; the buffer is then flushed and restarted
// with that paragraph. Chunks shorter than MinChunkChars after trimming are
// dropped. Lengths count characters, not bytes.
func Chunk(content string) []string {
	var (
		chunks []string
		buf    strings.Builder
		bufLen int
	)
	flush := func() {
		if text := strings.TrimSpace(buf.String()); utf8.RuneCountInString(text) >= MinChunkChars {
			chunks = append(chunks, text)
		}
		buf.Reset()
		bufLen = 0
	}

	sepLen := utf8.RuneCountInString(paragraphSep)
	for _, para := range strings.Split(content, paragraphSep) {
		if strings.TrimSpace(para) == "" {
			continue
		}
		n := utf8.RuneCountInString(para)
		if bufLen > 0 && bufLen+sepLen+n > MaxChunkChars {
			flush()
		}
		if bufLen > 0 {
			buf.WriteString(paragraphSep)
			bufLen += sepLen
		}
		buf.WriteString(para)
		bufLen += n
	}
	if bufLen > 0 {
		flush()
	}
	return chunks
}

func label(i int, d Document) string {
	if d.Metadata.Source != "" {
		return d.Metadata.Source
	}
	if d.Metadata.Title != "" {
		return d.Metadata.Title
	}
	return fmt.Sprintf("document %d", i)
}
