package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/54b3r/tealab-go/internal/catalog"
	"github.com/54b3r/tealab-go/internal/logging"
)

// NewSeedCmd constructs the `tealab seed` command, which loads the catalog
// JSON files into the catalog database.
func NewSeedCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load compounds, effects and teas into the catalog",
		Long: `Load the catalog from a data directory holding compounds.json,
effects.json and teas/*.json. Records are upserted by name, so seeding is
repeatable. Timing problems are reported as warnings; run 'tealab validate'
for the full report.

Examples:
  tealab seed
  tealab seed --data-dir ./data
  TEALAB_DB=/var/lib/tealab/tealab.db tealab seed`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			log := logging.FromContext(ctx)

			c, err := catalog.LoadDir(dataDir(dir))
			if err != nil {
				return fmt.Errorf("seed: %w", err)
			}
			for _, v := range catalog.ValidateTimings(c) {
				log.Warn("timing violation", slog.String("tea", v.Tea), slog.String("effect", v.Effect), slog.String("issue", v.Issue))
			}

			st, dbPath, err := openCatalog()
			if err != nil {
				return fmt.Errorf("seed: %w", err)
			}
			defer func() { _ = st.Close() }()

			res, err := st.Seed(ctx, c)
			if err != nil {
				return fmt.Errorf("seed: %w", err)
			}
			for _, s := range res.Skipped {
				log.Warn("skipped", slog.String("reason", s))
			}
			log.Info("seed complete",
				slog.String("db", dbPath),
				slog.Int("compounds", res.Compounds),
				slog.Int("effects", res.Effects),
				slog.Int("teas", res.Teas),
				slog.Int("skipped", len(res.Skipped)),
			)
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d compounds, %d effects, %d teas into %s\n",
				res.Compounds, res.Effects, res.Teas, dbPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "data-dir", "", "Catalog data directory (default: $TEALAB_DATA_DIR or ./data)")

	return cmd
}
