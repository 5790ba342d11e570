package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/54b3r/tealab-go/internal/domain"
	"github.com/54b3r/tealab-go/internal/logging"
)

// NewAskCmd constructs the `tealab ask` command, which answers a question
// from the knowledge base.
func NewAskCmd() *cobra.Command {
	var req domain.RAGQueryRequest
	var showSources bool

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question answered from the tea knowledge base",
		Long: `Answer a question from the ingested tea literature. The most similar
knowledge chunks are retrieved, optionally filtered by metadata, and passed
to the model as context.

Examples:
  tealab ask "how much caffeine is in matcha?"
  tealab ask --effect Relaxation "what does l-theanine do?"
  tealab ask --sources --tea-type oolong "how should oolong be brewed?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			req.Query = strings.Join(args, " ")

			a, err := buildApp(ctx, logging.FromContext(ctx), appOptions{model: true, knowledge: true})
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer a.Close()

			answer, err := a.rag.Query(ctx, req)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, answer.Answer)
			if showSources {
				fmt.Fprintf(out, "\nconfidence: %.2f\n", answer.Confidence)
				for i, src := range answer.Sources {
					fmt.Fprintf(out, "[%d] %.2f %s\n", i+1, src.Similarity, sourceLabel(src.Metadata))
				}
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&req.Filters.TeaType, "tea-type", "", "Only use knowledge about this tea type")
	f.StringVar(&req.Filters.Effect, "effect", "", "Only use knowledge about this effect")
	f.StringVar(&req.Filters.Compound, "compound", "", "Only use knowledge about this compound")
	f.IntVarP(&req.Limit, "limit", "n", 0, "Maximum knowledge chunks to retrieve")
	f.BoolVar(&showSources, "sources", false, "Print the cited sources")

	return cmd
}

// sourceLabel names a knowledge chunk by its most specific metadata.
func sourceLabel(m domain.KnowledgeMetadata) string {
	for _, v := range []string{m.Title, m.URL, m.Source} {
		if v != "" {
			return v
		}
	}
	return "(untitled)"
}
