package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/54b3r/tealab-go/internal/catalog"
)

// NewValidateCmd constructs the `tealab validate` command, which reports tea
// effects whose timing falls outside their effect's onset and duration
// ranges.
func NewValidateCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check catalog effect timings against effect ranges",
		Long: `Check every tea effect in the catalog data directory against its effect's
onset and duration ranges. Effects missing from effects.json are reported
too. The command fails when any violation is found.

Examples:
  tealab validate
  tealab validate --data-dir ./data`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := catalog.LoadDir(dataDir(dir))
			if err != nil {
				return fmt.Errorf("validate: %w", err)
			}

			violations := catalog.ValidateTimings(c)
			out := cmd.OutOrStdout()
			for _, v := range violations {
				fmt.Fprintln(out, v.String())
			}
			if len(violations) > 0 {
				return fmt.Errorf("validate: %d timing violations in %d teas", len(violations), len(c.Teas))
			}
			fmt.Fprintf(out, "%d teas, %d effects: all timings valid\n", len(c.Teas), len(c.Effects))
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "data-dir", "", "Catalog data directory (default: $TEALAB_DATA_DIR or ./data)")

	return cmd
}
