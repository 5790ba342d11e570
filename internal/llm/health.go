package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// probeTimeout bounds a shared Ollama health probe.
const probeTimeout = 5 * time.Second

type ollamaTags struct {
	Models []struct {
		Name  string `json:"name"`
		Model string `json:"model"`
	} `json:"models"`
}

// HealthCheck reports whether the text-generation service is reachable and
// the configured model is available. It never returns an error.
func (c *Client) HealthCheck(ctx context.Context) bool {
	return c.Ping(ctx) == nil
}

// Ping probes the backend. For Ollama it lists pulled models via /api/tags
// and confirms the configured one is present; hosted backends are assumed
// reachable once constructed. Concurrent probes share one request.
func (c *Client) Ping(ctx context.Context) error {
	if c.cfg.Backend != "ollama" || c.cfg.OllamaHost == "" {
		if c.chat == nil {
			return fmt.Errorf("llm: %w", errNoChatModel)
		}
		return nil
	}
	// The shared probe outlives any single caller, so it gets its own
	// deadline; each caller still stops waiting when its ctx ends.
	ch := c.probes.DoChan("tags", func() (any, error) {
		probeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), probeTimeout)
		defer cancel()
		return nil, c.probeOllama(probeCtx)
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) probeOllama(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(c.cfg.OllamaHost, "/")+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("llm: build health request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("llm: ollama unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("llm: ollama /api/tags returned HTTP %d", resp.StatusCode)
	}
	var tags ollamaTags
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return fmt.Errorf("llm: decode /api/tags: %w", err)
	}
	for _, m := range tags.Models {
		if modelMatches(m.Name, c.cfg.Model) || modelMatches(m.Model, c.cfg.Model) {
			return nil
		}
	}
	return fmt.Errorf("llm: model %q is not pulled, run: ollama pull %s", c.cfg.Model, c.cfg.Model)
}

// modelMatches compares an Ollama tag such as "mistral:latest" with a
// configured name that may omit the tag.
func modelMatches(tag, want string) bool {
	if tag == "" || want == "" {
		return false
	}
	if tag == want {
		return true
	}
	return !strings.Contains(want, ":") && strings.HasPrefix(tag, want+":")
}
