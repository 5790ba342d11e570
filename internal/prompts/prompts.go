// Package prompts renders the text sent to the language model. Every
// template embeds its context inline and spells out the JSON shape it
// expects back; callers must still treat the reply as untrusted.
package prompts

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/54b3r/tealab-go/internal/domain"
)

// UserState is the estimated state of the person asking for a recommendation.
type UserState struct {
	BaselineEnergy int
	BaselineFocus  int
	BaselineMood   int
	RecentCaffeine float64
	TimeOfDay      domain.TimeOfDay
}

// BlendConstraints bounds a blend proposal. Nil pointers and an empty flavor
// profile render as the defaults: 100 mg caffeine, "any", $5.
type BlendConstraints struct {
	MaxCaffeineMg *float64
	FlavorProfile []string
	BudgetPerCup  *float64
}

const recommendationShape = `{
  "recommendations": [
    {
      "tea": "tea name",
      "reasoning": "detailed explanation",
      "compounds": {"caffeine": 30, "l-theanine": 45},
      "timeline": {"onset_min": 30, "peak_min": 60, "duration_min": 240},
      "brewing": {"temp_c": 70, "time_sec": 120, "amount_g": 3},
      "expected_effects": "what user will feel"
    }
  ]
}`

const blendShape = `{
  "blend_name": "descriptive name",
  "components": [
    {
      "tea": "tea name",
      "ratio": 60,
      "steep_temp_c": 85,
      "steep_time_sec": 180,
      "reasoning": "why this ingredient"
    }
  ],
  "total_compounds": {"caffeine": 30, "l-theanine": 60},
  "brewing_instructions": "step by step",
  "expected_effects": "detailed effect profile",
  "cost_per_cup": 2.50
}`

// EffectRecommendation asks for the top three teas for the user's state.
func EffectRecommendation(state UserState, teas []domain.TeaDetail, ragContext string) string {
	var sb strings.Builder
	sb.WriteString("You are a tea sommelier specializing in the neurochemistry and physiological effects of tea compounds.\n\n")

	sb.WriteString("## User Current State\n")
	fmt.Fprintf(&sb, "- Energy Level: %d/10\n", state.BaselineEnergy)
	fmt.Fprintf(&sb, "- Focus Level: %d/10\n", state.BaselineFocus)
	fmt.Fprintf(&sb, "- Mood: %d/10\n", state.BaselineMood)
	fmt.Fprintf(&sb, "- Recent Caffeine: %smg\n", num(state.RecentCaffeine))
	fmt.Fprintf(&sb, "- Time of Day: %s\n\n", state.TimeOfDay)

	sb.WriteString("## Available Teas\n")
	for _, t := range teas {
		fmt.Fprintf(&sb, "- %s (%s):\n", t.Name, t.Type)
		fmt.Fprintf(&sb, "  Caffeine: %smg\n", num(t.CompoundMg(domain.CompoundCaffeine)))
		fmt.Fprintf(&sb, "  L-theanine: %smg\n", num(t.CompoundMg(domain.CompoundLTheanine)))
		fmt.Fprintf(&sb, "  Effects: %s\n", strings.Join(t.EffectNames(), ", "))
	}

	sb.WriteString("\n## Research Context\n")
	sb.WriteString(orNone(ragContext))

	sb.WriteString(`

## Task
Recommend the TOP 3 teas for this user's current state, considering:
1. Compound profiles and synergies
2. Current energy/focus levels
3. Time of day and recent caffeine intake
4. Expected effect timelines

For EACH recommendation, provide:
- Tea name (exactly as listed above) and why it's perfect right now
- Key compounds and their amounts in mg
- Expected timeline (onset, peak, duration) in minutes
- Specific brewing instructions
- What to expect mentally and physically

Respond with JSON only, in this format:
`)
	sb.WriteString(recommendationShape)
	return sb.String()
}

// BlendCreation asks for a full blend recipe for the target effects.
func BlendCreation(targets, avoid []string, c BlendConstraints, teas []domain.TeaDetail, ragContext string) string {
	maxCaffeine := 100.0
	if c.MaxCaffeineMg != nil {
		maxCaffeine = *c.MaxCaffeineMg
	}
	budget := 5.0
	if c.BudgetPerCup != nil {
		budget = *c.BudgetPerCup
	}
	flavor := "any"
	if len(c.FlavorProfile) > 0 {
		flavor = strings.Join(c.FlavorProfile, ", ")
	}

	var sb strings.Builder
	sb.WriteString("You are an expert tea blender creating custom blends for specific effects.\n\n")

	sb.WriteString("## Target Effects\n")
	sb.WriteString(strings.Join(targets, ", "))
	sb.WriteString("\n\n")
	if len(avoid) > 0 {
		sb.WriteString("## Effects To Avoid\n")
		sb.WriteString(strings.Join(avoid, ", "))
		sb.WriteString("\n\n")
	}

	sb.WriteString("## Constraints\n")
	fmt.Fprintf(&sb, "- Max Caffeine: %smg\n", num(maxCaffeine))
	fmt.Fprintf(&sb, "- Flavor Profile: %s\n", flavor)
	fmt.Fprintf(&sb, "- Budget per cup: $%s\n\n", num(budget))

	sb.WriteString("## Available Teas\n")
	for _, t := range teas {
		fmt.Fprintf(&sb, "- %s: $%s/oz, %smg caffeine, %smg L-theanine\n",
			t.Name, num(t.PricePerOz),
			num(t.CompoundMg(domain.CompoundCaffeine)),
			num(t.CompoundMg(domain.CompoundLTheanine)))
	}

	sb.WriteString("\n## Research Context\n")
	sb.WriteString(orNone(ragContext))

	sb.WriteString(`

## Task
Create a custom tea blend to achieve the target effects while respecting constraints.

Consider:
1. Compound synergies (optimal L-theanine:Caffeine is 2:1)
2. Flavor harmony
3. Extraction temperatures (some compounds extract at different temps)
4. Steeping order (sequential vs simultaneous)
5. Cost efficiency

Use only teas from the list above, spelled exactly as listed. Ratios are
percentages and must sum to 100.

Respond with JSON only, in this format:
`)
	sb.WriteString(blendShape)
	return sb.String()
}

// RAGQuery asks for an answer grounded in the labelled sources.
func RAGQuery(question, sources string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Based on the following research and information, answer this question: %q\n\n", question)
	sb.WriteString("Research Context:\n")
	sb.WriteString(orNone(sources))
	sb.WriteString("\n\nProvide a detailed, accurate answer citing specific compounds, effects, and mechanisms when relevant. ")
	sb.WriteString("If the research does not contain enough information, say so and fall back to general tea knowledge.")
	return sb.String()
}

// OptimizeBlend asks for advisory improvements to an existing blend.
func OptimizeBlend(current domain.BlendWithComponents, feedback string) string {
	recipe, err := json.MarshalIndent(current, "", "  ")
	if err != nil {
		recipe = []byte(current.Name)
	}

	var sb strings.Builder
	sb.WriteString("You are optimizing a tea blend based on target effects and user feedback.\n\n")
	sb.WriteString("## Current Blend\n")
	sb.Write(recipe)
	sb.WriteString("\n\n## Target Effects\n")
	sb.WriteString(strings.Join(current.TargetEffects, ", "))
	sb.WriteString("\n\n")
	if fb := strings.TrimSpace(feedback); fb != "" {
		sb.WriteString("## User Feedback\n")
		sb.WriteString(fb)
		sb.WriteString("\n\n")
	}
	sb.WriteString(`## Task
Suggest adjustments to improve the blend:
1. Ratio adjustments
2. Temperature/time modifications
3. Additional ingredients
4. Sequential steeping changes

Explain the science behind each suggestion.

Format as JSON with clear before/after comparisons.`)
	return sb.String()
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "No research context available."
	}
	return s
}
