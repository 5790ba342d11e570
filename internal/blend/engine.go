// Package blend composes custom tea blends. The language model proposes a
// recipe, the engine repairs it against the catalog, aggregates compounds
// and effects from the catalog values, and persists the result.
package blend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/54b3r/tealab-go/internal/domain"
	"github.com/54b3r/tealab-go/internal/llm"
	"github.com/54b3r/tealab-go/internal/prompts"
)

const (
	// groundingChunks is the number of knowledge chunks requested.
	groundingChunks = 3
	// AnonymousUser owns blends created without a user id.
	AnonymousUser = "anonymous"

	temperature = 0.7
)

// Store is the catalog and blend persistence the engine needs.
type Store interface {
	ListTeaDetails(ctx context.Context, ids []int64) ([]domain.TeaDetail, error)
	InsertBlend(ctx context.Context, b domain.Blend) (domain.Blend, error)
	InsertBlendComponent(ctx context.Context, c domain.BlendComponent) (domain.BlendComponent, error)
	ReplacePredictedEffects(ctx context.Context, blendID int64, effects []domain.BlendPredictedEffect) error
	GetBlend(ctx context.Context, id int64) (*domain.BlendWithComponents, error)
}

// Generator produces completion text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts llm.GenerateOptions) (string, error)
}

// Retriever supplies best-effort grounding text.
type Retriever interface {
	RetrieveContext(ctx context.Context, query string, limit int) string
}

// Engine creates and optimizes blends. It holds no mutable state.
type Engine struct {
	store     Store
	gen       Generator
	retriever Retriever
	log       *slog.Logger
}

// New constructs an Engine. gen and retriever may be nil; without a
// generator every blend is the deterministic fallback recipe.
func New(store Store, gen Generator, retriever Retriever, log *slog.Logger) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("blend: store must not be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Engine{store: store, gen: gen, retriever: retriever, log: log}, nil
}

// CreateBlend proposes, repairs, aggregates and persists a blend for
// req.TargetEffects on behalf of userID.
func (e *Engine) CreateBlend(ctx context.Context, userID string, req domain.BlendCreationRequest) (domain.BlendCreationResponse, error) {
	if err := req.Validate(); err != nil {
		return domain.BlendCreationResponse{}, err
	}
	targets := req.Targets()

	teas, err := e.store.ListTeaDetails(ctx, req.UserInventory)
	if err != nil {
		return domain.BlendCreationResponse{}, domain.Upstream("blend: list teas", err)
	}
	relevant := Relevant(teas, targets)
	if len(relevant) == 0 {
		return domain.BlendCreationResponse{}, fmt.Errorf("blend: %w for %s", domain.ErrNoCandidates, strings.Join(targets, ", "))
	}

	ragContext := ""
	if e.retriever != nil {
		query := fmt.Sprintf("Creating tea blends for %s. Compound synergies and ratios. Optimal L-theanine:caffeine ratio is approximately 2:1.",
			strings.Join(targets, ", "))
		ragContext = e.retriever.RetrieveContext(ctx, query, groundingChunks)
	}

	text, rec, err := e.propose(ctx, req, targets, relevant, ragContext)
	if err != nil {
		e.log.Warn("blend: using fallback recipe",
			"targets", targets, "candidates", len(relevant), "reason", err)
		warnings := rec.Warnings
		rec = FallbackRecipe(relevant)
		rec.Warnings = warnings
	}
	for _, w := range rec.Warnings {
		e.log.Warn("blend: repaired generated recipe", "warning", w)
	}

	totals := Compounds(rec.Components)
	effects := Effects(rec.Components)
	if mc := req.MaxCaffeineMg; mc != nil && totals.CaffeineMg > *mc {
		rec.Warnings = append(rec.Warnings, fmt.Sprintf("blend caffeine %smg exceeds the requested maximum of %smg",
			formatPct(totals.CaffeineMg), formatPct(*mc)))
	}

	if userID = strings.TrimSpace(userID); userID == "" {
		userID = AnonymousUser
	}
	blend, components, err := e.persist(ctx, userID, targets, rec, effects, totals)
	if err != nil {
		return domain.BlendCreationResponse{}, err
	}

	warnings := rec.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	return domain.BlendCreationResponse{
		Blend:               blend,
		Components:          components,
		PredictedEffects:    effects,
		TotalCompounds:      totals,
		CostPerCup:          rec.CostPerCup,
		BrewingInstructions: rec.Instructions,
		Reasoning:           text,
		Warnings:            warnings,
		Fallback:            rec.Fallback,
	}, nil
}

// propose returns the raw generation and the repaired recipe. On error the
// returned recipe may still carry the warnings gathered before giving up.
func (e *Engine) propose(ctx context.Context, req domain.BlendCreationRequest, targets []string, relevant []domain.TeaDetail, ragContext string) (string, Recipe, error) {
	if e.gen == nil {
		return "", Recipe{}, errors.New("no generator configured")
	}
	prompt := prompts.BlendCreation(targets, req.AvoidEffects, prompts.BlendConstraints{
		MaxCaffeineMg: req.MaxCaffeineMg,
		FlavorProfile: req.FlavorProfile,
		BudgetPerCup:  req.BudgetPerCup,
	}, relevant, ragContext)

	text, err := e.gen.Generate(ctx, prompt, llm.GenerateOptions{Temperature: temperature})
	if err != nil {
		return "", Recipe{}, err
	}
	rec, err := ParseRecipe(text, relevant)
	if err != nil {
		return text, rec, err
	}
	if err := domain.CheckRatios(rec.blendComponents()); err != nil {
		return text, rec, fmt.Errorf("%w: %w", domain.ErrMalformedGeneration, err)
	}
	return text, rec, nil
}

func (e *Engine) persist(ctx context.Context, userID string, targets []string, rec Recipe,
	effects []domain.EffectProfile, totals domain.CompoundBreakdown,
) (domain.Blend, []domain.BlendComponent, error) {
	components := rec.blendComponents()
	if err := domain.CheckRatios(components); err != nil {
		return domain.Blend{}, nil, fmt.Errorf("blend: %w", err)
	}

	blend, err := e.store.InsertBlend(ctx, domain.Blend{
		UserID:        userID,
		Name:          rec.Name,
		Description:   rec.Instructions,
		TargetEffects: targets,
	})
	if err != nil {
		return domain.Blend{}, nil, domain.Upstream("blend: insert blend", err)
	}

	for i := range components {
		components[i].BlendID = blend.ID
		stored, err := e.store.InsertBlendComponent(ctx, components[i])
		if err != nil {
			return domain.Blend{}, nil, domain.Upstream("blend: insert component", err)
		}
		stored.TeaName = components[i].TeaName
		components[i] = stored
	}

	predicted := make([]domain.BlendPredictedEffect, 0, len(effects))
	for _, ef := range effects {
		predicted = append(predicted, domain.BlendPredictedEffect{
			BlendID:            blend.ID,
			EffectID:           ef.Effect.ID,
			EffectName:         ef.Effect.Name,
			PredictedIntensity: ef.Intensity,
			TotalCompoundMg:    totals,
		})
	}
	if err := e.store.ReplacePredictedEffects(ctx, blend.ID, predicted); err != nil {
		return domain.Blend{}, nil, domain.Upstream("blend: store predicted effects", err)
	}
	return blend, components, nil
}

// GetBlend loads a persisted blend with its components.
func (e *Engine) GetBlend(ctx context.Context, id int64) (*domain.BlendWithComponents, error) {
	b, err := e.store.GetBlend(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, domain.Upstream("blend: get", err)
	}
	return b, nil
}

// OptimizeBlend asks the model for advisory changes to a stored blend. The
// blend is not modified.
func (e *Engine) OptimizeBlend(ctx context.Context, blendID int64, feedback string) (domain.BlendOptimization, error) {
	b, err := e.GetBlend(ctx, blendID)
	if err != nil {
		return domain.BlendOptimization{}, err
	}
	if e.gen == nil {
		return domain.BlendOptimization{}, domain.Upstream("blend: optimize", errors.New("no generator configured"))
	}

	text, err := e.gen.Generate(ctx, prompts.OptimizeBlend(*b, feedback), llm.GenerateOptions{Temperature: temperature})
	if err != nil {
		return domain.BlendOptimization{}, domain.Upstream("blend: optimize", err)
	}
	return domain.BlendOptimization{
		Blend:       *b,
		Feedback:    strings.TrimSpace(feedback),
		Suggestions: text,
	}, nil
}

// Relevant keeps the teas with at least one effect whose name contains one
// of the targets, case-insensitively. Catalog order is preserved.
func Relevant(teas []domain.TeaDetail, targets []string) []domain.TeaDetail {
	lowered := make([]string, 0, len(targets))
	for _, t := range targets {
		lowered = append(lowered, strings.ToLower(t))
	}

	var out []domain.TeaDetail
	for _, tea := range teas {
	effects:
		for _, e := range tea.Effects {
			name := strings.ToLower(e.Name)
			for _, t := range lowered {
				if strings.Contains(name, t) {
					out = append(out, tea)
					break effects
				}
			}
		}
	}
	return out
}
