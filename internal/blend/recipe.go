package blend

import (
	"fmt"
	"math"
	"strings"

	"github.com/54b3r/tealab-go/internal/domain"
	"github.com/54b3r/tealab-go/internal/extract"
)

const (
	fallbackName         = "Custom Blend"
	fallbackInstructions = "Steep all ingredients together at 85°C for 3 minutes"

	defaultTempC   = 85
	defaultTimeSec = 180
	minTempC       = 60
	maxTempC       = 100
	minTimeSec     = 30
	maxTimeSec     = 900

	// ozPerCup converts a price per ounce into a price per cup.
	ozPerCup = 0.15
)

// fallbackRatios are the shares given to the top relevant teas when the
// generated recipe cannot be used.
var fallbackRatios = []float64{70, 30}

// Recipe is a blend proposal after repair, ready to aggregate and persist.
type Recipe struct {
	Name         string
	Components   []Component
	Instructions string
	CostPerCup   float64
	Warnings     []string
	Fallback     bool
}

// reply is the JSON shape requested by prompts.BlendCreation.
type reply struct {
	BlendName  string `json:"blend_name"`
	Components []struct {
		Tea          string   `json:"tea"`
		Ratio        *float64 `json:"ratio"`
		SteepTempC   *float64 `json:"steep_temp_c"`
		SteepTimeSec *float64 `json:"steep_time_sec"`
		Reasoning    string   `json:"reasoning"`
	} `json:"components"`
	BrewingInstructions string   `json:"brewing_instructions"`
	CostPerCup          *float64 `json:"cost_per_cup"`
}

// ParseRecipe decodes a generated reply and repairs it against the
// candidates. Components naming a tea outside the candidates or carrying a
// non-positive, non-finite or implausibly large ratio are dropped; the
// remaining ratios are rescaled to sum to 100, and any share that rounds to
// zero is dropped before rescaling again. Out-of-range brewing values are
// reset to the defaults. Every
// repair is reported in Recipe.Warnings. A reply without a usable component
// yields an error wrapping domain.ErrMalformedGeneration together with the
// warnings gathered so far.
func ParseRecipe(text string, candidates []domain.TeaDetail) (Recipe, error) {
	var r reply
	if err := extract.Decode(text, &r); err != nil {
		return Recipe{}, fmt.Errorf("%w: %w", domain.ErrMalformedGeneration, err)
	}

	var rec Recipe
	maxRatio := 100 * float64(len(r.Components))
	for i, c := range r.Components {
		tea, ok := resolve(c.Tea, candidates)
		if !ok {
			rec.Warnings = append(rec.Warnings, fmt.Sprintf("component %d: tea %q is not in the catalog; skipped", i+1, c.Tea))
			continue
		}
		if c.Ratio == nil || *c.Ratio <= 0 {
			rec.Warnings = append(rec.Warnings, fmt.Sprintf("component %d (%s): non-positive ratio; skipped", i+1, tea.Name))
			continue
		}
		if ratio := *c.Ratio; math.IsNaN(ratio) || math.IsInf(ratio, 0) || ratio > maxRatio {
			rec.Warnings = append(rec.Warnings, fmt.Sprintf("component %d (%s): ratio %g out of range; skipped", i+1, tea.Name, ratio))
			continue
		}

		temp := defaultTempC
		if c.SteepTempC != nil {
			temp = int(math.Round(*c.SteepTempC))
			if temp < minTempC || temp > maxTempC {
				rec.Warnings = append(rec.Warnings, fmt.Sprintf("%s: steep temperature %d°C outside %d-%d; reset to %d",
					tea.Name, temp, minTempC, maxTempC, defaultTempC))
				temp = defaultTempC
			}
		}
		secs := defaultTimeSec
		if c.SteepTimeSec != nil {
			secs = int(math.Round(*c.SteepTimeSec))
			if secs < minTimeSec || secs > maxTimeSec {
				rec.Warnings = append(rec.Warnings, fmt.Sprintf("%s: steep time %ds outside %d-%d; reset to %d",
					tea.Name, secs, minTimeSec, maxTimeSec, defaultTimeSec))
				secs = defaultTimeSec
			}
		}

		rec.Components = append(rec.Components, Component{
			Tea:          tea,
			Ratio:        *c.Ratio,
			SteepTempC:   temp,
			SteepTimeSec: secs,
			Reasoning:    c.Reasoning,
		})
	}
	rec.Components, rec.Warnings = rebalance(rec.Components, rec.Warnings)
	if len(rec.Components) == 0 {
		return rec, fmt.Errorf("%w: no usable blend component", domain.ErrMalformedGeneration)
	}

	rec.Name = strings.TrimSpace(r.BlendName)
	if rec.Name == "" {
		rec.Name = fallbackName
	}
	rec.Instructions = strings.TrimSpace(r.BrewingInstructions)
	if rec.Instructions == "" {
		rec.Instructions = fallbackInstructions
	}
	if r.CostPerCup != nil && *r.CostPerCup >= 0 {
		rec.CostPerCup = *r.CostPerCup
	} else {
		rec.CostPerCup = weightedCost(rec.Components)
	}
	return rec, nil
}

// blendComponents converts the recipe into unsaved blend components in
// recipe order.
func (r Recipe) blendComponents() []domain.BlendComponent {
	components := make([]domain.BlendComponent, 0, len(r.Components))
	for i, c := range r.Components {
		components = append(components, domain.BlendComponent{
			TeaID:        c.Tea.ID,
			TeaName:      c.Tea.Name,
			Ratio:        c.Ratio,
			SteepTimeSec: c.SteepTimeSec,
			SteepTempC:   c.SteepTempC,
			Notes:        c.Reasoning,
			OrderAdded:   i + 1,
		})
	}
	return components
}

// FallbackRecipe builds the deterministic recipe from the first relevant
// teas: 70/30 for two or more, 100 for a single tea.
func FallbackRecipe(relevant []domain.TeaDetail) Recipe {
	n := min(len(relevant), len(fallbackRatios))
	rec := Recipe{
		Name:         fallbackName,
		Instructions: fallbackInstructions,
		Fallback:     true,
	}
	for i, tea := range relevant[:n] {
		ratio := fallbackRatios[i]
		if n == 1 {
			ratio = 100
		}
		rec.Components = append(rec.Components, Component{
			Tea:          tea,
			Ratio:        ratio,
			SteepTempC:   defaultTempC,
			SteepTimeSec: defaultTimeSec,
			Reasoning:    fmt.Sprintf("Selected for its %s effects", strings.Join(tea.EffectNames(), ", ")),
		})
		rec.CostPerCup += tea.PricePerOz * ozPerCup
	}
	rec.CostPerCup = round2(rec.CostPerCup)
	return rec
}

func resolve(name string, candidates []domain.TeaDetail) (domain.TeaDetail, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.TeaDetail{}, false
	}
	for _, t := range candidates {
		if strings.EqualFold(t.Name, name) {
			return t, true
		}
	}
	return domain.TeaDetail{}, false
}

func ratioSum(components []Component) float64 {
	sum := 0.0
	for _, c := range components {
		sum += c.Ratio
	}
	return sum
}

// rebalance rescales the ratios to sum to 100 until every remaining share
// is positive. Components whose share rounds to zero or below are dropped
// with a warning. Each pass either stops or removes a component.
func rebalance(components []Component, warnings []string) ([]Component, []string) {
	for len(components) > 0 {
		sum := ratioSum(components)
		if math.Abs(sum-100) <= domain.RatioTolerance {
			return components, warnings
		}
		normalize(components, sum)
		warnings = append(warnings, fmt.Sprintf("component ratios summed to %s; rescaled to 100", formatPct(sum)))

		kept := components[:0]
		for _, c := range components {
			if c.Ratio <= 0 {
				warnings = append(warnings, fmt.Sprintf("%s: share rounds to %s%%; dropped", c.Tea.Name, formatPct(c.Ratio)))
				continue
			}
			kept = append(kept, c)
		}
		if len(kept) == len(components) {
			return kept, warnings
		}
		components = kept
	}
	return components, warnings
}

// normalize rescales the ratios to sum to 100, rounded to two decimals.
// The last component absorbs the rounding remainder.
func normalize(components []Component, sum float64) {
	acc := 0.0
	last := len(components) - 1
	for i := range components[:last] {
		components[i].Ratio = round2(components[i].Ratio * 100 / sum)
		acc += components[i].Ratio
	}
	components[last].Ratio = round2(100 - acc)
}

func weightedCost(components []Component) float64 {
	cost := 0.0
	for _, c := range components {
		cost += c.Tea.PricePerOz * ozPerCup * c.weight()
	}
	return round2(cost)
}

func formatPct(v float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
}
