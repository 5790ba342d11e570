package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/54b3r/tealab-go/internal/domain"
	"github.com/54b3r/tealab-go/internal/logging"
)

// NewRecommendCmd constructs the `tealab recommend` command.
func NewRecommendCmd() *cobra.Command {
	var req domain.RecommendationRequest
	var timeOfDay string
	var maxCaffeine float64

	cmd := &cobra.Command{
		Use:   "recommend <effect>",
		Short: "Recommend teas for a desired effect",
		Long: `Rank up to three teas from the catalog for a desired effect, taking the
time of day, recent caffeine and sensitivities into account. When the model
is unreachable or its reply cannot be used, the top catalog candidates are
returned instead and marked as fallback.

Examples:
  tealab recommend "Calm Focus" --time-of-day morning
  tealab recommend Relaxation --time-of-day evening --max-caffeine 0
  tealab recommend Energy --intensity 4 --sensitivity caffeine`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			req.DesiredEffect = args[0]
			req.TimeOfDay = domain.TimeOfDay(timeOfDay)
			if cmd.Flags().Changed("max-caffeine") {
				req.Preferences.MaxCaffeine = &maxCaffeine
			}

			a, err := buildApp(ctx, logging.FromContext(ctx), appOptions{model: true, knowledge: true, knowledgeOptional: true})
			if err != nil {
				return fmt.Errorf("recommend: %w", err)
			}
			defer a.Close()

			eng, err := a.recommender()
			if err != nil {
				return fmt.Errorf("recommend: %w", err)
			}
			recs, err := eng.Recommend(ctx, req)
			if err != nil {
				return fmt.Errorf("recommend: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), recs)
		},
	}

	f := cmd.Flags()
	f.StringVar(&timeOfDay, "time-of-day", string(domain.Morning), "morning, afternoon, evening or night")
	f.IntVar(&req.IntensityNeeded, "intensity", 0, "Desired intensity 1-5 (minimum 3 is always applied)")
	f.IntVar(&req.TimeAvailable, "time-available", 0, "Minutes until the effect is needed")
	f.Float64Var(&req.RecentCaffeine, "recent-caffeine", 0, "Caffeine consumed recently, in mg")
	f.StringArrayVar(&req.Sensitivities, "sensitivity", nil, "Compound to avoid (repeatable)")
	f.Float64Var(&maxCaffeine, "max-caffeine", 0, "Caffeine ceiling per cup in mg")
	f.StringVar(&req.Preferences.Taste, "taste", "", "Taste preference")
	f.StringVar(&req.Preferences.Temperature, "temperature", "", "Serving temperature preference (hot, iced)")

	return cmd
}
