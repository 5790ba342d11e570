package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/54b3r/tealab-go/internal/domain"
	"github.com/54b3r/tealab-go/internal/ingestion"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response. It must
	// cover a full generation round trip.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.New] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on rate-limited
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP on ingestion.
	// Defaults to 20 if zero.
	RateBurst int
	// GenerateBurst is the burst per IP on routes that call the language
	// model. Defaults to 5 if zero.
	GenerateBurst int
	// MetricsRegistry receives the server's collectors. Defaults to a fresh
	// private registry.
	MetricsRegistry prometheus.Registerer
	// MetricsGatherer serves GET /metrics. Defaults to MetricsRegistry when
	// it is a *prometheus.Registry.
	MetricsGatherer prometheus.Gatherer
}

// Recommender ranks teas for a desired effect.
type Recommender interface {
	Recommend(ctx context.Context, req domain.RecommendationRequest) ([]domain.TeaRecommendation, error)
}

// Blender creates, loads and optimizes blends.
type Blender interface {
	CreateBlend(ctx context.Context, userID string, req domain.BlendCreationRequest) (domain.BlendCreationResponse, error)
	GetBlend(ctx context.Context, id int64) (*domain.BlendWithComponents, error)
	OptimizeBlend(ctx context.Context, blendID int64, feedback string) (domain.BlendOptimization, error)
}

// Answerer answers questions from the knowledge base.
type Answerer interface {
	Query(ctx context.Context, req domain.RAGQueryRequest) (*domain.RAGAnswer, error)
}

// Ingester adds documents to the knowledge base.
type Ingester interface {
	IngestDocument(ctx context.Context, content string, meta domain.KnowledgeMetadata) (int, error)
	BulkIngest(ctx context.Context, docs []ingestion.Document) ingestion.BulkResult
	FetchDocument(ctx context.Context, url string) (string, error)
}

// Catalog lists the browsable catalog.
type Catalog interface {
	ListTeaDetails(ctx context.Context, ids []int64) ([]domain.TeaDetail, error)
	ListEffects(ctx context.Context) ([]domain.Effect, error)
}

// Deps are the engines behind the API. Answerer and Ingester may be nil, in
// which case the knowledge endpoints answer 503.
type Deps struct {
	Recommender Recommender
	Blender     Blender
	Catalog     Catalog
	Answerer    Answerer
	Ingester    Ingester
}

// Server is the tealab HTTP API.
type Server struct {
	// deps are the engines the handlers delegate to.
	deps Deps
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds the Prometheus collectors.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// blendOptimizeRequest is the JSON body for POST /api/blends/{id}/optimize.
type blendOptimizeRequest struct {
	// Feedback is optional free-text feedback on the current blend.
	Feedback string `json:"feedback"`
}

// ingestRequest is the JSON body for POST /api/rag/ingest. Exactly one of
// Content, URL or Documents is expected.
type ingestRequest struct {
	// Content is the raw text of a single document.
	Content string `json:"content,omitempty"`
	// URL is fetched and ingested as a single document.
	URL string `json:"url,omitempty"`
	// Metadata applies to Content or URL.
	Metadata domain.KnowledgeMetadata `json:"metadata"`
	// Documents selects batch ingestion.
	Documents []ingestion.Document `json:"documents,omitempty"`
}

// ingestResponse is the JSON response for a single-document ingest.
type ingestResponse struct {
	Chunks int `json:"chunks"`
}

// errorResponse is the JSON body of every non-2xx API response.
type errorResponse struct {
	Error string `json:"error"`
}
