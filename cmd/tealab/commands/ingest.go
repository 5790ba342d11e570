package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/54b3r/tealab-go/internal/domain"
	"github.com/54b3r/tealab-go/internal/ingestion"
	"github.com/54b3r/tealab-go/internal/logging"
	"github.com/54b3r/tealab-go/internal/rag"
)

// chunkCounter is implemented by vector stores that can report their size.
type chunkCounter interface {
	Count(ctx context.Context) (int, error)
}

// NewIngestCmd constructs the `tealab ingest` command, which chunks, embeds
// and stores documents in the knowledge base.
func NewIngestCmd() *cobra.Command {
	var dir string
	var urls []string
	var meta domain.KnowledgeMetadata

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest tea literature into the knowledge base",
		Long: `Chunk, embed and store documents in the knowledge base used to ground
recommendations, blends and answers.

--dir ingests every *.md file of a directory; each file's name becomes its
title. --url fetches and ingests a page. Tea type, effect and compound tags
are inferred from the text unless set explicitly. Re-ingesting a document
adds new chunks; existing chunks are never updated.

Environment variables:
  VECTOR_BACKEND       sqlite (default), qdrant or pgvector
  EMBEDDING_PROVIDER   ollama, openai or azure (default: MODEL_PROVIDER)
  REDIS_URL            Optional embedding cache

Examples:
  tealab ingest --dir ./knowledge --category research
  tealab ingest --url https://example.com/matcha-guide --tea-type green`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			log := logging.FromContext(ctx)

			if dir == "" && len(urls) == 0 {
				return errors.New("ingest: one of --dir or --url is required")
			}

			a, err := buildApp(ctx, log, appOptions{knowledge: true})
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			defer a.Close()

			var docs []ingestion.Document
			if dir != "" {
				loaded, err := ingestion.LoadMarkdownDir(dir, meta.Category)
				if err != nil {
					return fmt.Errorf("ingest: %w", err)
				}
				for i := range loaded {
					loaded[i].Metadata = ingestion.Merge(meta, loaded[i].Metadata)
				}
				docs = append(docs, loaded...)
			}
			for _, u := range urls {
				content, err := a.ingest.FetchDocument(ctx, u)
				if err != nil {
					return fmt.Errorf("ingest: %w", err)
				}
				m := meta
				m.URL, m.Source = u, u
				docs = append(docs, ingestion.Document{
					Content:  content,
					Metadata: ingestion.Merge(m, ingestion.InferMetadata(m.Title, content)),
				})
			}

			log.Info("starting ingestion", slog.Int("documents", len(docs)))
			res := a.ingest.BulkIngest(ctx, docs)
			for _, f := range res.Failed {
				log.Warn("document failed",
					slog.Int("index", f.Index),
					slog.String("source", f.Source),
					slog.String("error", f.Error),
				)
			}
			log.Info("ingestion complete",
				slog.Int("documents", res.Documents),
				slog.Int("chunks", res.Chunks),
				slog.Int("failed", len(res.Failed)),
			)
			if len(res.Failed) > 0 && len(res.Failed) == len(docs) {
				return fmt.Errorf("ingest: all %d documents failed", len(docs))
			}
			return printIngestSummary(ctx, cmd.OutOrStdout(), a.vectors, res)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&dir, "dir", "d", "", "Directory of markdown documents to ingest")
	f.StringArrayVarP(&urls, "url", "u", nil, "URL to fetch and ingest (repeatable)")
	f.StringVar(&meta.Category, "category", "", "Category label for the documents")
	f.StringVar(&meta.Title, "title", "", "Title for URL documents")
	f.StringVar(&meta.TeaType, "tea-type", "", "Tea type tag, overrides inference")
	f.StringVar(&meta.Effect, "effect", "", "Effect tag, overrides inference")
	f.StringVar(&meta.Compound, "compound", "", "Compound tag, overrides inference")

	return cmd
}

// printIngestSummary reports what was stored and, when the vector store can
// count, the size of the knowledge base afterwards.
func printIngestSummary(ctx context.Context, w io.Writer, vs rag.VectorStore, res ingestion.BulkResult) error {
	if _, err := fmt.Fprintf(w, "ingested %d documents, %d chunks (%d failed)\n", res.Documents, res.Chunks, len(res.Failed)); err != nil {
		return err
	}
	counter, ok := vs.(chunkCounter)
	if !ok {
		return nil
	}
	total, err := counter.Count(ctx)
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	_, err = fmt.Fprintf(w, "knowledge base holds %d chunks\n", total)
	return err
}
