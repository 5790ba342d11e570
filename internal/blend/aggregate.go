package blend

import (
	"math"
	"sort"
	"strings"

	"github.com/54b3r/tealab-go/internal/domain"
)

// Placeholder timeline attached to every predicted blend effect.
const (
	predictedOnsetMin    = 25
	predictedDurationMin = 200
)

// Component is a resolved tea at a percentage ratio.
type Component struct {
	Tea          domain.TeaDetail
	Ratio        float64
	SteepTempC   int
	SteepTimeSec int
	Reasoning    string
}

// weight returns the component's share of the cup.
func (c Component) weight() float64 { return c.Ratio / 100 }

// Compounds sums each tea's per-cup amounts weighted by its ratio. Totals
// are rounded to two decimals.
func Compounds(components []Component) domain.CompoundBreakdown {
	var raw domain.CompoundBreakdown
	for _, c := range components {
		w := c.weight()
		for _, cmp := range c.Tea.Compounds {
			raw.Route(cmp.Name, cmp.AmountMg*w)
		}
	}

	out := domain.CompoundBreakdown{
		CaffeineMg:  round2(raw.CaffeineMg),
		LTheanineMg: round2(raw.LTheanineMg),
		CatechinsMg: round2(raw.CatechinsMg),
	}
	for _, name := range raw.Other.Keys() {
		mg, _ := raw.Other.Get(name)
		out.Other.Add(name, round2(mg))
	}
	return out
}

// Effects adds up the ratio-weighted intensity of every effect the
// components produce, keyed by effect name. Contributions are summed, not
// averaged, and the total is rounded to the nearest integer. Results are
// ordered strongest first; ties keep first-seen order.
func Effects(components []Component) []domain.EffectProfile {
	type acc struct {
		effect domain.Effect
		sum    float64
	}
	var order []string
	byName := make(map[string]*acc)

	for _, c := range components {
		w := c.weight()
		for _, e := range c.Tea.Effects {
			key := strings.ToLower(e.Name)
			a, ok := byName[key]
			if !ok {
				a = &acc{effect: e.Effect}
				byName[key] = a
				order = append(order, key)
			}
			a.sum += float64(e.Intensity) * w
		}
	}

	out := make([]domain.EffectProfile, 0, len(order))
	for _, key := range order {
		a := byName[key]
		out = append(out, domain.EffectProfile{
			Effect:          a.effect,
			Intensity:       int(math.Round(a.sum)),
			OnsetMinutes:    predictedOnsetMin,
			DurationMinutes: predictedDurationMin,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Intensity > out[j].Intensity })
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
