// Package server implements the HTTP API that exposes the tealab engines:
// recommendations, blend creation and optimization, knowledge-base
// questions and ingestion, catalog browsing, health and metrics.
// The server is started by the `tealab serve` CLI command.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/54b3r/tealab-go/internal/logging"
)

// New constructs a Server from the provided engines and config.
func New(deps Deps, cfg *Config) (*Server, error) {
	if deps.Recommender == nil || deps.Blender == nil || deps.Catalog == nil {
		return nil, fmt.Errorf("server: recommender, blender and catalog must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		// Generation calls are bounded at two minutes by the llm client.
		cfg.WriteTimeout = 3 * time.Minute
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.New()
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = defaultRateBurst
	}
	if cfg.GenerateBurst == 0 {
		cfg.GenerateBurst = defaultGenerateBurst
	}
	if cfg.MetricsRegistry == nil {
		reg := prometheus.NewRegistry()
		cfg.MetricsRegistry = reg
		cfg.MetricsGatherer = reg
	}
	if cfg.MetricsGatherer == nil {
		g, ok := cfg.MetricsRegistry.(prometheus.Gatherer)
		if !ok {
			return nil, fmt.Errorf("server: MetricsGatherer is required with a custom MetricsRegistry")
		}
		cfg.MetricsGatherer = g
	}

	s := &Server{
		deps:    deps,
		cfg:     cfg,
		log:     cfg.Logger,
		pingers: cfg.Pingers,
		metrics: newServerMetrics(cfg.MetricsRegistry),
	}

	rl, stop := newRateLimiter(cfg.RateLimit, s.log, func(class string) {
		s.metrics.rateLimitedTotal.WithLabelValues(class).Inc()
	})
	s.stopRL = stop

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      requestLogger(s.log, s.routes(rl)),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s, nil
}

// routes builds the API mux. Endpoints that reach the language model share
// the generate bucket per client IP; ingestion has its own.
func (s *Server) routes(rl *rateLimiter) http.Handler {
	generate := func(h http.HandlerFunc) http.Handler {
		return rl.limit(classGenerate, s.cfg.GenerateBurst, h)
	}

	mux := http.NewServeMux()
	mux.Handle("POST /api/recommendations", generate(s.handleRecommend))
	mux.Handle("POST /api/blends", generate(s.handleCreateBlend))
	mux.HandleFunc("GET /api/blends/{id}", s.handleGetBlend)
	mux.Handle("POST /api/blends/{id}/optimize", generate(s.handleOptimizeBlend))
	mux.Handle("POST /api/rag/query", generate(s.handleRAGQuery))
	mux.Handle("POST /api/rag/ingest", rl.limit(classIngest, s.cfg.RateBurst, http.HandlerFunc(s.handleIngest)))
	mux.HandleFunc("GET /api/teas", s.handleListTeas)
	mux.HandleFunc("GET /api/effects", s.handleListEffects)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/ready", s.handleReady)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.cfg.MetricsGatherer, promhttp.HandlerOpts{}))

	return s.instrument(mux)
}

// Handler returns the fully wrapped HTTP handler. Tests use it with
// httptest.NewServer.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Start begins listening and serving HTTP requests. It blocks until the
// context is cancelled, then performs a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	defer s.stopRL()

	errCh := make(chan error, 1)

	go func() {
		s.log.Info("tealab server listening", "addr", "http://"+s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: listen error: %w", err)
	case <-ctx.Done():
		s.log.Info("tealab server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: graceful shutdown failed: %w", err)
		}
		return nil
	}
}
