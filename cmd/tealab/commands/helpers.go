package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/redis/go-redis/v9"

	"github.com/54b3r/tealab-go/internal/blend"
	"github.com/54b3r/tealab-go/internal/embedder"
	"github.com/54b3r/tealab-go/internal/ingestion"
	"github.com/54b3r/tealab-go/internal/llm"
	"github.com/54b3r/tealab-go/internal/provider"
	"github.com/54b3r/tealab-go/internal/rag"
	"github.com/54b3r/tealab-go/internal/recommend"
	"github.com/54b3r/tealab-go/internal/server"
	"github.com/54b3r/tealab-go/internal/store"
)

// Vector backends selectable through VECTOR_BACKEND.
const (
	vectorSQLite   = "sqlite"
	vectorQdrant   = "qdrant"
	vectorPGVector = "pgvector"
)

// app bundles the long-lived dependencies a command runs against. Fields
// are nil when the command did not ask for them or when an optional
// dependency could not be initialised.
type app struct {
	log *slog.Logger

	store    *store.Store
	llm      *llm.Client
	hasModel bool
	rag      *rag.Service

	vectors rag.VectorStore
	ingest  *ingestion.Pipeline

	pingers []server.Pinger
	closers []func()
}

// appOptions selects which dependencies buildApp initialises.
type appOptions struct {
	// model builds the chat model and the text-generation client.
	model bool
	// knowledge builds the embedder, vector index and retrieval service.
	knowledge bool
	// knowledgeOptional downgrades knowledge failures to a warning.
	knowledgeOptional bool
}

// buildApp opens the catalog and initialises the requested dependencies.
// Callers must defer Close.
func buildApp(ctx context.Context, log *slog.Logger, opts appOptions) (*app, error) {
	a := &app{log: log}

	st, dbPath, err := openCatalog()
	if err != nil {
		return nil, err
	}
	a.store = st
	a.closers = append(a.closers, func() { _ = st.Close() })
	a.pingers = append(a.pingers, server.NewPinger("catalog", st))
	log.Info("catalog opened", slog.String("path", dbPath))

	var emb embedder.Embedder
	if opts.knowledge {
		emb, err = a.buildEmbedder(ctx)
		if err != nil {
			if !opts.knowledgeOptional {
				a.Close()
				return nil, err
			}
			log.Warn("knowledge base disabled", slog.Any("error", err))
			opts.knowledge = false
		}
	}

	if opts.model || opts.knowledge {
		chatCfg := provider.ConfigFromEnv()
		var chat model.BaseChatModel
		if opts.model {
			chat, err = provider.New(ctx, chatCfg)
			if err != nil {
				a.Close()
				return nil, fmt.Errorf("failed to initialise model provider: %w", err)
			}
			log.Info("provider initialised",
				slog.String("provider", string(chatCfg.Backend)),
				slog.String("model", chatCfg.ModelName()),
			)
		}
		// emb stays a nil interface when knowledge is off.
		var batch llm.BatchEmbedder
		if emb != nil {
			batch = emb
		}
		a.llm = llm.New(chat, batch, llm.Config{
			Backend:    string(chatCfg.Backend),
			Model:      chatCfg.ModelName(),
			OllamaHost: chatCfg.Ollama.Host,
		}, log)
		if opts.model {
			a.hasModel = true
			a.pingers = append(a.pingers, server.NewPinger("llm", a.llm))
		}
	}

	if opts.knowledge {
		if err := a.buildKnowledge(ctx); err != nil {
			if !opts.knowledgeOptional {
				a.Close()
				return nil, err
			}
			log.Warn("knowledge base disabled", slog.Any("error", err))
		}
	}

	return a, nil
}

// buildEmbedder validates the embedding configuration and wraps the embedder
// in the Redis cache when REDIS_URL is set.
func (a *app) buildEmbedder(ctx context.Context) (embedder.Embedder, error) {
	if err := embedder.Validate(a.log); err != nil {
		return nil, err
	}
	emb, err := embedder.NewFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to initialise embedder: %w", err)
	}
	backend := embedder.Backend()
	a.log.Info("embedder initialised",
		slog.String("provider", backend),
		slog.String("model", embedder.ModelName(backend)),
	)

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		return emb, nil
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opt)
	a.closers = append(a.closers, func() { _ = rdb.Close() })
	a.pingers = append(a.pingers, server.NewRedisPinger(rdb))

	if err := rdb.Ping(ctx).Err(); err != nil {
		// The cache treats Redis failures as misses, so keep going.
		a.log.Warn("embedding cache unreachable", slog.Any("error", err))
	}
	ttl := getEnvDuration("EMBEDDING_CACHE_TTL", embedder.DefaultCacheTTL)
	a.log.Info("embedding cache enabled", slog.Duration("ttl", ttl))
	return embedder.NewCachedEmbedder(emb, rdb, embedder.ModelName(backend), ttl, a.log), nil
}

// buildKnowledge opens the vector index selected by VECTOR_BACKEND and the
// retrieval service and ingestion pipeline on top of it.
func (a *app) buildKnowledge(ctx context.Context) error {
	vs, err := a.openVectorStore(ctx)
	if err != nil {
		return err
	}
	a.vectors = vs

	svc, err := rag.NewService(a.llm, a.llm, vs, rag.Options{
		Threshold:        float32(getEnvFloat("RAG_THRESHOLD", float64(rag.DefaultThreshold))),
		MaxContextTokens: getEnvInt("RAG_MAX_CONTEXT_TOKENS", 0),
	}, a.log)
	if err != nil {
		return err
	}
	a.rag = svc

	pipeline, err := ingestion.NewPipeline(a.llm, vs, &ingestion.Config{
		Progress: func(msg string) { a.log.Info(msg) },
	}, a.log)
	if err != nil {
		return fmt.Errorf("failed to create ingestion pipeline: %w", err)
	}
	a.ingest = pipeline
	return nil
}

func (a *app) openVectorStore(ctx context.Context) (rag.VectorStore, error) {
	backend := getEnvOrDefault("VECTOR_BACKEND", vectorSQLite)
	switch backend {
	case vectorSQLite:
		a.log.Info("vector index ready", slog.String("backend", backend))
		return a.store.Knowledge(), nil

	case vectorQdrant:
		host := getEnvOrDefault("QDRANT_HOST", "localhost")
		port := getEnvInt("QDRANT_PORT", 6334)
		collection := getEnvOrDefault("QDRANT_COLLECTION", "tealab-knowledge")
		vectorSize := uint64(embedder.DefaultDimensions(embedder.Backend())) //nolint:gosec // dimensions are bounded

		qs, err := rag.NewQdrantStore(ctx, &rag.QdrantConfig{
			Host:       host,
			Port:       port,
			Collection: collection,
			VectorSize: vectorSize,
			APIKey:     os.Getenv("QDRANT_API_KEY"),
			UseTLS:     os.Getenv("QDRANT_TLS") == "true",
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Qdrant at %s:%d: %w", host, port, err)
		}
		a.closers = append(a.closers, func() { _ = qs.Close() })
		a.pingers = append(a.pingers, server.NewPinger("qdrant", qs))
		a.log.Info("vector index ready",
			slog.String("backend", backend),
			slog.String("host", host),
			slog.Int("port", port),
			slog.String("collection", collection),
		)
		return qs, nil

	case vectorPGVector:
		dsn := os.Getenv("PGVECTOR_DSN")
		if dsn == "" {
			return nil, errors.New("PGVECTOR_DSN is required for the pgvector backend")
		}
		ps, err := rag.NewPGVectorStore(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to pgvector: %w", err)
		}
		a.closers = append(a.closers, func() { _ = ps.Close() })
		a.pingers = append(a.pingers, server.NewPinger("pgvector", ps))
		a.log.Info("vector index ready", slog.String("backend", backend))
		return ps, nil

	default:
		return nil, fmt.Errorf("unknown VECTOR_BACKEND %q, valid values: sqlite, qdrant, pgvector", backend)
	}
}

// recommender constructs the recommendation engine. The retriever is only
// set when a retrieval service exists, so the engine never sees a typed nil.
func (a *app) recommender() (*recommend.Engine, error) {
	var retriever recommend.Retriever
	if a.rag != nil {
		retriever = a.rag
	}
	var gen recommend.Generator
	if a.hasModel {
		gen = a.llm
	}
	return recommend.New(a.store, gen, retriever, a.log)
}

// blender constructs the blend engine.
func (a *app) blender() (*blend.Engine, error) {
	var retriever blend.Retriever
	if a.rag != nil {
		retriever = a.rag
	}
	var gen blend.Generator
	if a.hasModel {
		gen = a.llm
	}
	return blend.New(a.store, gen, retriever, a.log)
}

// Close releases every dependency in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// openCatalog opens the catalog database at TEALAB_DB, defaulting to
// ~/.tealab/tealab.db.
func openCatalog() (*store.Store, string, error) {
	dbPath := os.Getenv("TEALAB_DB")
	if dbPath == "" {
		var err error
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			return nil, "", err
		}
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open catalog: %w", err)
	}
	return st, dbPath, nil
}

// dataDir resolves the catalog data directory from a flag value,
// TEALAB_DATA_DIR, then ./data.
func dataDir(flag string) string {
	if flag != "" {
		return flag
	}
	return getEnvOrDefault("TEALAB_DATA_DIR", "data")
}

// printJSON writes v to w as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// getEnvOrDefault returns the value of the named environment variable, or
// fallback if the variable is unset or empty.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the integer value of the named environment variable, or
// fallback if the variable is unset, empty, or not parseable.
func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

// getEnvFloat returns the float value of the named environment variable, or
// fallback if the variable is unset, empty, or not parseable.
func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

// getEnvDuration parses a Go duration such as "168h".
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
