// Package llm is the text-generation client shared by the engines. It
// fronts an eino chat model for completions and an embedder for vectors,
// bounds every call with a fixed timeout, and classifies failures as
// upstream errors so callers can decide between fallback and failure.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"golang.org/x/sync/singleflight"

	"github.com/54b3r/tealab-go/internal/domain"
)

// DefaultTimeout bounds a single generate or embed call.
const DefaultTimeout = 2 * time.Minute

var (
	errNoChatModel = errors.New("no chat model configured")
	errNoEmbedder  = errors.New("no embedder configured")
)

// GenerateOptions tunes one completion. Zero values fall back to the chat
// model's configured defaults.
type GenerateOptions struct {
	Temperature float32
	MaxTokens   int
}

// BatchEmbedder converts a batch of texts into parallel embeddings.
type BatchEmbedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Config identifies the backing model for health checks and tracing.
type Config struct {
	// Backend is the provider name (ollama, openai, ...).
	Backend string
	// Model is the chat model name.
	Model string
	// OllamaHost enables the /api/tags health probe when Backend is ollama.
	OllamaHost string
	// Timeout overrides DefaultTimeout when positive.
	Timeout time.Duration
}

// Client generates text and embeddings. It is safe for concurrent use.
type Client struct {
	chat    model.BaseChatModel
	emb     BatchEmbedder
	cfg     Config
	timeout time.Duration
	http    *http.Client
	probes  singleflight.Group
	log     *slog.Logger
}

// New constructs a Client around a chat model and an embedder.
func New(chat model.BaseChatModel, emb BatchEmbedder, cfg Config, log *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		chat:    chat,
		emb:     emb,
		cfg:     cfg,
		timeout: timeout,
		http:    &http.Client{Timeout: 5 * time.Second},
		log:     log,
	}
}

// Generate sends prompt as a single user message and returns the completion
// text. Failures are returned as *domain.UpstreamError.
func (c *Client) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	if c.chat == nil {
		return "", domain.Upstream("llm: generate", errNoChatModel)
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ctx = callbacks.InitCallbacks(ctx, &callbacks.RunInfo{
		Name:      "tealab-generate",
		Type:      c.cfg.Backend,
		Component: components.ComponentOfChatModel,
	})

	var mopts []model.Option
	if opts.Temperature > 0 {
		mopts = append(mopts, model.WithTemperature(opts.Temperature))
	}
	if opts.MaxTokens > 0 {
		mopts = append(mopts, model.WithMaxTokens(opts.MaxTokens))
	}

	start := time.Now()
	resp, err := c.chat.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)}, mopts...)
	if err != nil {
		return "", domain.Upstream("llm: generate", err)
	}
	if resp == nil {
		return "", domain.Upstream("llm: generate", fmt.Errorf("empty response from %s", c.cfg.Model))
	}
	c.log.Debug("llm: generated",
		slog.String("model", c.cfg.Model),
		slog.Int("prompt_chars", len(prompt)),
		slog.Int("response_chars", len(resp.Content)),
		slog.Duration("elapsed", time.Since(start)),
	)
	return resp.Content, nil
}

// Embed returns the embedding vector for text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch returns embeddings parallel to texts.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if c.emb == nil {
		return nil, domain.Upstream("llm: embed", errNoEmbedder)
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	vecs, err := c.emb.Embed(ctx, texts)
	if err != nil {
		return nil, domain.Upstream("llm: embed", err)
	}
	if len(vecs) != len(texts) {
		return nil, domain.Upstream("llm: embed", fmt.Errorf("expected %d embeddings, got %d", len(texts), len(vecs)))
	}
	for i, v := range vecs {
		if len(v) == 0 {
			return nil, domain.Upstream("llm: embed", fmt.Errorf("embedding %d is empty", i))
		}
	}
	return vecs, nil
}

// Model returns the configured chat model name.
func (c *Client) Model() string { return c.cfg.Model }
