// Package commands defines all Cobra CLI commands for the tealab binary.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/54b3r/tealab-go/internal/audit"
	"github.com/54b3r/tealab-go/internal/config"
	"github.com/54b3r/tealab-go/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tealab",
		Short: "tealab: tea recommendations and custom blends grounded in compound data",
		Long: `tealab recommends teas for a desired effect and designs custom blends,
grounding a language model in a catalog of teas, compounds and effects plus
a knowledge base of tea literature.

Model provider is selected via the MODEL_PROVIDER environment variable
or a YAML config file (~/.tealab/config.yaml).
See 'tealab --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()

			// Env vars always override YAML values.
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}

			// Config may have changed LOG_LEVEL / LOG_FORMAT.
			log = logging.New()
			cmd.SetContext(logging.WithLogger(cmd.Context(), log))

			audit.LogCommandStart(cmd.Context(), log, cmd.Name(), path)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.tealab/config.yaml)")

	root.AddCommand(
		NewServeCmd(),
		NewRecommendCmd(),
		NewBlendCmd(),
		NewOptimizeCmd(),
		NewAskCmd(),
		NewIngestCmd(),
		NewSeedCmd(),
		NewValidateCmd(),
		NewVersionCmd(),
	)

	return root
}
