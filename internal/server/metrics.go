// metrics.go registers the Prometheus metrics owned by the HTTP server.

package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metric label values shared across registrations.
const (
	// labelHandler is the "handler" label value used to partition metrics by
	// the mux pattern rather than the raw URL path.
	labelHandler = "handler"

	outcomeOK       = "ok"
	outcomeFallback = "fallback"
	outcomeError    = "error"

	namespace = "tealab"
)

// serverMetrics holds all Prometheus metrics owned by the HTTP server.
// A single instance is created in New and stored on Server so that tests can
// inject a fresh prometheus.Registry without polluting the default one.
type serverMetrics struct {
	// recommendationsTotal counts /api/recommendations requests by outcome:
	// "ok", "fallback" or "error".
	recommendationsTotal *prometheus.CounterVec

	// blendsTotal counts /api/blends creations by outcome.
	blendsTotal *prometheus.CounterVec

	// ragQueriesTotal counts /api/rag/query requests by outcome.
	ragQueriesTotal *prometheus.CounterVec

	// rateLimitedTotal counts requests rejected with 429, by route class.
	rateLimitedTotal *prometheus.CounterVec

	// ingestedChunksTotal counts knowledge chunks stored through the API.
	ingestedChunksTotal prometheus.Counter

	// httpRequestsTotal counts all HTTP requests handled by the mux,
	// partitioned by method, path pattern, and status code.
	httpRequestsTotal *prometheus.CounterVec

	// httpDurationSeconds records the latency of all HTTP requests.
	httpDurationSeconds *prometheus.HistogramVec
}

// newServerMetrics registers all server metrics against reg and returns the
// populated serverMetrics.
func newServerMetrics(reg prometheus.Registerer) *serverMetrics {
	factory := promauto.With(reg)

	return &serverMetrics{
		recommendationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "recommend",
			Name:      "requests_total",
			Help:      "Total number of recommendation requests, partitioned by outcome.",
		}, []string{"outcome"}),

		blendsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "blend",
			Name:      "created_total",
			Help:      "Total number of blend creation requests, partitioned by outcome.",
		}, []string{"outcome"}),

		ragQueriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rag",
			Name:      "queries_total",
			Help:      "Total number of knowledge-base questions, partitioned by outcome.",
		}, []string{"outcome"}),

		rateLimitedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Total number of requests rejected by the per-IP rate limiter, partitioned by route class.",
		}, []string{"class"}),

		ingestedChunksTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rag",
			Name:      "ingested_chunks_total",
			Help:      "Total number of knowledge chunks stored through the API.",
		}),

		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled by the server, partitioned by method, handler, and status code.",
		}, []string{"method", labelHandler, "code"}),

		httpDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "duration_seconds",
			Help:      "Latency of HTTP requests handled by the server.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 120},
		}, []string{"method", labelHandler}),
	}
}
