package recommend

import (
	"fmt"
	"math"
	"strings"

	"github.com/54b3r/tealab-go/internal/domain"
	"github.com/54b3r/tealab-go/internal/extract"
)

const (
	fallbackTiming  = "Consume 20-30 minutes before desired effect"
	defaultSteepSec = 180
	defaultAmountG  = 4
	waterML         = 150
)

// reply is the JSON shape requested by prompts.EffectRecommendation.
// Numbers are pointers so that absent values can take type defaults.
type reply struct {
	Recommendations []struct {
		Tea       string                 `json:"tea"`
		Reasoning string                 `json:"reasoning"`
		Compounds domain.CompoundAmounts `json:"compounds"`
		Timeline  struct {
			OnsetMin    *float64 `json:"onset_min"`
			PeakMin     *float64 `json:"peak_min"`
			DurationMin *float64 `json:"duration_min"`
		} `json:"timeline"`
		Brewing struct {
			TempC   *float64 `json:"temp_c"`
			TimeSec *float64 `json:"time_sec"`
			AmountG *float64 `json:"amount_g"`
		} `json:"brewing"`
		ExpectedEffects string `json:"expected_effects"`
	} `json:"recommendations"`
}

// Parse maps a generated reply onto the candidates. Each recommendation is
// matched to the first candidate whose name contains the recommended tea
// name, case-insensitively; unmatched entries are dropped. A reply without
// a JSON object, one that fails to decode, or one that matches no candidate
// yields an error wrapping domain.ErrMalformedGeneration.
func Parse(text string, candidates []domain.TeaDetail) ([]domain.TeaRecommendation, error) {
	var r reply
	if err := extract.Decode(text, &r); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrMalformedGeneration, err)
	}

	var out []domain.TeaRecommendation
	for _, rec := range r.Recommendations {
		tea, ok := matchCandidate(rec.Tea, candidates)
		if !ok {
			continue
		}

		brewing := defaultBrewing(tea.Type)
		if v := rec.Brewing.TempC; v != nil {
			brewing.TemperatureC = int(math.Round(*v))
		}
		if v := rec.Brewing.TimeSec; v != nil {
			brewing.SteepTimeSec = int(math.Round(*v))
		}
		if v := rec.Brewing.AmountG; v != nil {
			brewing.AmountG = *v
		}

		onset := 0
		if v := rec.Timeline.OnsetMin; v != nil {
			onset = int(math.Round(*v))
		} else if len(tea.Effects) > 0 {
			onset = tea.Effects[0].OnsetMinutes
		}

		var breakdown domain.CompoundBreakdown
		for _, name := range rec.Compounds.Keys() {
			mg, _ := rec.Compounds.Get(name)
			breakdown.Route(name, mg)
		}

		out = append(out, domain.TeaRecommendation{
			Tea:               tea.Tea,
			Reasoning:         rec.Reasoning,
			BrewingMethod:     brewing,
			ExpectedEffects:   expectedEffects(tea),
			TimingAdvice:      fmt.Sprintf("Best consumed %d minutes before needed effect", onset),
			Alternatives:      alternatives(tea, candidates),
			CompoundBreakdown: breakdown,
		})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no recommendation matched a candidate tea", domain.ErrMalformedGeneration)
	}
	return out, nil
}

// Fallback ranks the first MaxResults candidates without the model.
func Fallback(candidates []domain.TeaDetail) []domain.TeaRecommendation {
	n := min(len(candidates), MaxResults)
	out := make([]domain.TeaRecommendation, 0, n)
	for _, tea := range candidates[:n] {
		out = append(out, domain.TeaRecommendation{
			Tea: tea.Tea,
			Reasoning: fmt.Sprintf("%s is a %s tea known for its %s effects.",
				tea.Name, tea.Type, strings.Join(tea.EffectNames(), ", ")),
			BrewingMethod:     defaultBrewing(tea.Type),
			ExpectedEffects:   expectedEffects(tea),
			TimingAdvice:      fallbackTiming,
			Alternatives:      alternatives(tea, candidates),
			CompoundBreakdown: domain.BreakdownOf(tea),
			Fallback:          true,
		})
	}
	return out
}

func matchCandidate(name string, candidates []domain.TeaDetail) (domain.TeaDetail, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return domain.TeaDetail{}, false
	}
	for _, t := range candidates {
		if strings.Contains(strings.ToLower(t.Name), name) {
			return t, true
		}
	}
	return domain.TeaDetail{}, false
}

func defaultBrewing(t domain.TeaType) domain.BrewingParams {
	temp := 85
	if t == domain.TeaGreen {
		temp = 70
	}
	return domain.BrewingParams{
		TemperatureC: temp,
		SteepTimeSec: defaultSteepSec,
		AmountG:      defaultAmountG,
		WaterML:      waterML,
	}
}

func expectedEffects(t domain.TeaDetail) []domain.EffectProfile {
	out := make([]domain.EffectProfile, 0, len(t.Effects))
	for _, e := range t.Effects {
		out = append(out, domain.EffectProfile{
			Effect:          e.Effect,
			Intensity:       e.Intensity,
			OnsetMinutes:    e.OnsetMinutes,
			DurationMinutes: e.DurationMinutes,
		})
	}
	return out
}

func alternatives(t domain.TeaDetail, candidates []domain.TeaDetail) []domain.Tea {
	out := make([]domain.Tea, 0, maxAlternatives)
	for _, c := range candidates {
		if c.ID == t.ID {
			continue
		}
		out = append(out, c.Tea)
		if len(out) == maxAlternatives {
			break
		}
	}
	return out
}
