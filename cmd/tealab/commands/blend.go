package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/54b3r/tealab-go/internal/blend"
	"github.com/54b3r/tealab-go/internal/domain"
	"github.com/54b3r/tealab-go/internal/logging"
)

// NewBlendCmd constructs the `tealab blend` command.
func NewBlendCmd() *cobra.Command {
	var req domain.BlendCreationRequest
	var maxCaffeine, budget float64
	var userID string

	cmd := &cobra.Command{
		Use:   "blend",
		Short: "Design and save a custom blend",
		Long: `Design a custom blend for one or more target effects and save it to the
catalog. The generated recipe is repaired before saving: unknown teas are
dropped, ratios are rescaled to 100% and brewing parameters are clamped.
Every repair is listed in the "warnings" field of the output.

Examples:
  tealab blend --target "Calm Focus"
  tealab blend --target Energy --target Focus --max-caffeine 60 --budget 1.5
  tealab blend --target Relaxation --avoid Alertness --inventory 3 --inventory 7`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			if cmd.Flags().Changed("max-caffeine") {
				req.MaxCaffeineMg = &maxCaffeine
			}
			if cmd.Flags().Changed("budget") {
				req.BudgetPerCup = &budget
			}

			a, err := buildApp(ctx, logging.FromContext(ctx), appOptions{model: true, knowledge: true, knowledgeOptional: true})
			if err != nil {
				return fmt.Errorf("blend: %w", err)
			}
			defer a.Close()

			eng, err := a.blender()
			if err != nil {
				return fmt.Errorf("blend: %w", err)
			}
			resp, err := eng.CreateBlend(ctx, userID, req)
			if err != nil {
				return fmt.Errorf("blend: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}

	f := cmd.Flags()
	f.StringArrayVar(&req.TargetEffects, "target", nil, "Target effect (repeatable, required)")
	f.StringArrayVar(&req.AvoidEffects, "avoid", nil, "Effect to avoid (repeatable)")
	f.StringArrayVar(&req.FlavorProfile, "flavor", nil, "Flavor note (repeatable)")
	f.Float64Var(&maxCaffeine, "max-caffeine", 0, "Caffeine ceiling per cup in mg")
	f.Float64Var(&budget, "budget", 0, "Budget per cup")
	f.Int64SliceVar(&req.UserInventory, "inventory", nil, "Restrict to these tea ids (repeatable)")
	f.StringVar(&userID, "user", blend.AnonymousUser, "Owner of the saved blend")
	_ = cmd.MarkFlagRequired("target")

	return cmd
}

// NewOptimizeCmd constructs the `tealab optimize` command.
func NewOptimizeCmd() *cobra.Command {
	var feedback string

	cmd := &cobra.Command{
		Use:   "optimize <blend-id>",
		Short: "Suggest improvements to a saved blend",
		Long: `Ask the model for advice on improving a saved blend, optionally guided by
feedback. The blend itself is not changed.

Examples:
  tealab optimize 12
  tealab optimize 12 --feedback "too bitter, a bit more energy"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("optimize: invalid blend id %q", args[0])
			}

			a, err := buildApp(ctx, logging.FromContext(ctx), appOptions{model: true})
			if err != nil {
				return fmt.Errorf("optimize: %w", err)
			}
			defer a.Close()

			eng, err := a.blender()
			if err != nil {
				return fmt.Errorf("optimize: %w", err)
			}
			res, err := eng.OptimizeBlend(ctx, id, feedback)
			if err != nil {
				return fmt.Errorf("optimize: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}

	cmd.Flags().StringVarP(&feedback, "feedback", "f", "", "Free-text feedback on the blend")

	return cmd
}
