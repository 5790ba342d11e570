// Package recommend ranks catalog teas for a desired effect. Candidates come
// from the catalog store, the language model orders and explains them, and a
// deterministic ranking takes over whenever the generated reply cannot be
// used.
package recommend

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
	// MinIntensity is the weakest tea/effect junction considered a candidate.
	MinIntensity = 3
	// MaxResults caps the recommendations returned.
	MaxResults = 3
	// promptCandidates caps the candidates listed in the prompt.
	promptCandidates = 10
	// groundingChunks is the number of knowledge chunks requested.
	groundingChunks = 3
	// maxAlternatives caps the alternatives attached to a recommendation.
	maxAlternatives = 2

	temperature = 0.7
)

// Store is the catalog subset the engine reads.
type Store interface {
	FindEffectByName(ctx context.Context, name string) (domain.Effect, error)
	TeasForEffect(ctx context.Context, effectID int64, minIntensity int) ([]domain.TeaDetail, error)
}

// Generator produces completion text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts llm.GenerateOptions) (string, error)
}

// Retriever supplies best-effort grounding text. It never fails; an empty
// string means no context.
type Retriever interface {
	RetrieveContext(ctx context.Context, query string, limit int) string
}

// Engine produces tea recommendations. It holds no mutable state and is safe
// for concurrent use.
type Engine struct {
	store     Store
	gen       Generator
	retriever Retriever
	log       *slog.Logger
}

// New constructs an Engine. gen and retriever may be nil: without a
// generator every request takes the deterministic ranking, without a
// retriever prompts carry no grounding context.
func New(store Store, gen Generator, retriever Retriever, log *slog.Logger) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("recommend: store must not be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Engine{store: store, gen: gen, retriever: retriever, log: log}, nil
}

// Recommend returns at most MaxResults teas for req.DesiredEffect, in the
// order the model ranked them, or the candidate order when it falls back.
func (e *Engine) Recommend(ctx context.Context, req domain.RecommendationRequest) ([]domain.TeaRecommendation, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	effect, err := e.store.FindEffectByName(ctx, req.DesiredEffect)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, domain.Upstream("recommend: find effect", err)
	}

	minIntensity := MinIntensity
	if req.IntensityNeeded > minIntensity {
		minIntensity = req.IntensityNeeded
	}
	teas, err := e.store.TeasForEffect(ctx, effect.ID, minIntensity)
	if err != nil {
		return nil, domain.Upstream("recommend: teas for effect", err)
	}
	if len(teas) == 0 {
		return nil, fmt.Errorf("recommend: %w for effect %q", domain.ErrNoCandidates, effect.Name)
	}

	candidates := Filter(teas, req)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("recommend: %w for effect %q after applying constraints", domain.ErrNoCandidates, effect.Name)
	}

	ragContext := ""
	if e.retriever != nil {
		query := fmt.Sprintf("Effects of tea for %s. Compounds and mechanisms.", req.DesiredEffect)
		ragContext = e.retriever.RetrieveContext(ctx, query, groundingChunks)
	}

	recs, err := e.generate(ctx, req, candidates, ragContext)
	if err != nil {
		e.log.Warn("recommend: using fallback ranking",
			"effect", effect.Name, "candidates", len(candidates), "reason", err)
		recs = Fallback(candidates)
	}
	if len(recs) > MaxResults {
		recs = recs[:MaxResults]
	}
	return recs, nil
}

func (e *Engine) generate(ctx context.Context, req domain.RecommendationRequest, candidates []domain.TeaDetail, ragContext string) ([]domain.TeaRecommendation, error) {
	if e.gen == nil {
		return nil, errors.New("no generator configured")
	}

	state := prompts.UserState{
		BaselineEnergy: 7,
		BaselineFocus:  5,
		BaselineMood:   5,
		RecentCaffeine: req.RecentCaffeine,
		TimeOfDay:      req.TimeOfDay,
	}
	// A caffeine ceiling suggests a caffeine-sensitive or already stimulated user.
	if req.Preferences.MaxCaffeine != nil {
		state.BaselineEnergy = 5
	}

	listed := candidates
	if len(listed) > promptCandidates {
		listed = listed[:promptCandidates]
	}

	text, err := e.gen.Generate(ctx, prompts.EffectRecommendation(state, listed, ragContext),
		llm.GenerateOptions{Temperature: temperature})
	if err != nil {
		return nil, err
	}
	return Parse(text, candidates)
}

// Filter applies the request constraints in order: caffeine ceiling,
// compound sensitivities, then the iced rule. A tea failing any of them is
// excluded regardless of its rank.
func Filter(teas []domain.TeaDetail, req domain.RecommendationRequest) []domain.TeaDetail {
	var sensitivities []string
	for _, s := range req.Sensitivities {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			sensitivities = append(sensitivities, s)
		}
	}

	out := make([]domain.TeaDetail, 0, len(teas))
	for _, t := range teas {
		if ceiling := req.Preferences.MaxCaffeine; ceiling != nil && t.CompoundMg(domain.CompoundCaffeine) > *ceiling {
			continue
		}
		if hasSensitivity(t, sensitivities) {
			continue
		}
		// Pu-erh does not hold up iced.
		if req.Preferences.Temperature == "iced" && t.Type == domain.TeaPuErh {
			continue
		}
		out = append(out, t)
	}
	return out
}

func hasSensitivity(t domain.TeaDetail, sensitivities []string) bool {
	for _, c := range t.Compounds {
		name := strings.ToLower(c.Name)
		for _, s := range sensitivities {
			if strings.Contains(name, s) {
				return true
			}
		}
	}
	return false
}
