package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/54b3r/tealab-go/internal/logging"
	"github.com/54b3r/tealab-go/internal/server"
	"github.com/54b3r/tealab-go/internal/tracing"
)

// NewServeCmd constructs the `tealab serve` command, which starts the HTTP
// JSON API.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the tealab HTTP API",
		Long: `Start the tealab HTTP API.

The server exposes recommendations, blend creation and optimization,
knowledge-base questions and ingestion, catalog browsing, health/readiness
probes and Prometheus metrics. The knowledge endpoints answer 503 when the
embedding backend or vector index cannot be initialised.

Examples:
  tealab serve
  tealab serve --port 9090
  MODEL_PROVIDER=openai VECTOR_BACKEND=qdrant tealab serve`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.FromContext(ctx)
			log.Info("serve starting", slog.String("provider", os.Getenv("MODEL_PROVIDER")))

			// Langfuse tracing is opt-in and a no-op when keys are absent.
			flush, ok := tracing.Setup(tracing.ConfigFromEnv())
			defer flush()
			if ok {
				log.Info("langfuse tracing enabled")
			} else {
				log.Info("langfuse tracing disabled", slog.String("reason", "LANGFUSE_PUBLIC_KEY not set"))
			}

			a, err := buildApp(ctx, log, appOptions{model: true, knowledge: true, knowledgeOptional: true})
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer a.Close()

			rec, err := a.recommender()
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			bl, err := a.blender()
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			deps := server.Deps{Recommender: rec, Blender: bl, Catalog: a.store}
			if a.rag != nil {
				deps.Answerer = a.rag
			}
			if a.ingest != nil {
				deps.Ingester = a.ingest
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)

			srv, err := server.New(deps, &server.Config{
				Host:            host,
				Port:            port,
				Logger:          log,
				Pingers:         a.pingers,
				RateLimit:       getEnvFloat("TEALAB_RATE_LIMIT", 0),
				RateBurst:       getEnvInt("TEALAB_RATE_BURST", 0),
				GenerateBurst:   getEnvInt("TEALAB_GENERATE_BURST", 0),
				MetricsRegistry: reg,
				MetricsGatherer: reg,
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", getEnvOrDefault("TEALAB_HOST", "127.0.0.1"), "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", getEnvInt("TEALAB_PORT", 8080), "TCP port to listen on")

	return cmd
}
