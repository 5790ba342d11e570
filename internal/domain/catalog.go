// Package domain holds the tealab data model: the tea/compound/effect
// catalog, blends and their components, knowledge chunks, the request and
// response shapes exchanged with the engines, and the error taxonomy shared
// by every layer.
package domain

import (
	"strings"
	"time"
)

// TeaType enumerates the supported tea families.
type TeaType string

const (
	TeaGreen  TeaType = "green"
	TeaBlack  TeaType = "black"
	TeaOolong TeaType = "oolong"
	TeaWhite  TeaType = "white"
	TeaPuErh  TeaType = "pu-erh"
	TeaHerbal TeaType = "herbal"
	TeaYellow TeaType = "yellow"
)

// TeaTypes lists every valid TeaType in display order.
var TeaTypes = []TeaType{TeaGreen, TeaBlack, TeaOolong, TeaWhite, TeaPuErh, TeaHerbal, TeaYellow}

// Valid reports whether t is one of the enumerated tea types.
func (t TeaType) Valid() bool {
	for _, v := range TeaTypes {
		if t == v {
			return true
		}
	}
	return false
}

// EffectCategory groups effects by the system they act on.
type EffectCategory string

const (
	CategoryMental    EffectCategory = "mental"
	CategoryPhysical  EffectCategory = "physical"
	CategoryEmotional EffectCategory = "emotional"
)

// DataSource tags where a TeaEffect record came from.
type DataSource string

const (
	SourceResearch     DataSource = "research"
	SourceUserReported DataSource = "user_reported"
	SourceAIInferred   DataSource = "ai_inferred"
)

// Tea is a single catalog entry.
type Tea struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Type        TeaType `json:"type"`
	Origin      string  `json:"origin,omitempty"`
	Description string  `json:"description,omitempty"`
	PricePerOz  float64 `json:"price_per_oz,omitempty"`
}

// Compound is a chemical constituent of tea.
type Compound struct {
	ID               int64   `json:"id"`
	Name             string  `json:"name"`
	ChemicalFormula  string  `json:"chemical_formula,omitempty"`
	Mechanism        string  `json:"mechanism,omitempty"`
	HalfLifeMinutes  int     `json:"half_life_minutes,omitempty"`
	SafeDailyLimitMg float64 `json:"safe_daily_limit_mg,omitempty"`
}

// TeaCompound is the junction between a tea and one of its compounds.
type TeaCompound struct {
	TeaID                  int64   `json:"tea_id"`
	CompoundID             int64   `json:"compound_id"`
	AmountMgPerCup         float64 `json:"amount_mg_per_cup"`
	OptimalExtractionTempC int     `json:"optimal_extraction_temp_c,omitempty"`
	OptimalSteepTimeSec    int     `json:"optimal_steep_time_sec,omitempty"`
}

// Effect is a named physiological or psychological outcome. The range
// fields bound the plausible onset and duration of any TeaEffect for it;
// a zero max means the range is unknown.
type Effect struct {
	ID               int64          `json:"id"`
	Name             string         `json:"name"`
	Category         EffectCategory `json:"category"`
	Description      string         `json:"description,omitempty"`
	Icon             string         `json:"icon,omitempty"`
	OnsetRangeMin    int            `json:"onset_range_min,omitempty"`
	OnsetRangeMax    int            `json:"onset_range_max,omitempty"`
	DurationRangeMin int            `json:"duration_range_min,omitempty"`
	DurationRangeMax int            `json:"duration_range_max,omitempty"`
}

// TeaEffect is the junction between a tea and an effect it produces.
type TeaEffect struct {
	TeaID           int64      `json:"tea_id"`
	EffectID        int64      `json:"effect_id"`
	Intensity       int        `json:"intensity"`
	OnsetMinutes    int        `json:"onset_minutes"`
	DurationMinutes int        `json:"duration_minutes"`
	ConfidenceScore float64    `json:"confidence_score"`
	DataSource      DataSource `json:"data_source"`
}

// CompoundAmount is a compound together with its per-cup amount for one tea.
type CompoundAmount struct {
	Compound
	AmountMg float64 `json:"amount_mg"`
}

// TeaEffectDetail is an effect together with the junction values for one tea.
type TeaEffectDetail struct {
	Effect
	Intensity       int        `json:"intensity"`
	OnsetMinutes    int        `json:"onset_minutes"`
	DurationMinutes int        `json:"duration_minutes"`
	ConfidenceScore float64    `json:"confidence_score"`
	DataSource      DataSource `json:"data_source,omitempty"`
}

// TeaDetail is a tea eagerly enriched with its compound and effect profile.
type TeaDetail struct {
	Tea
	Compounds []CompoundAmount  `json:"compounds"`
	Effects   []TeaEffectDetail `json:"effects"`
}

// CompoundMg returns the per-cup amount of the named compound, matched
// case-insensitively, or zero when the tea does not list it.
func (t TeaDetail) CompoundMg(name string) float64 {
	for _, c := range t.Compounds {
		if strings.EqualFold(c.Name, name) {
			return c.AmountMg
		}
	}
	return 0
}

// EffectNames returns the names of the tea's effects in stored order.
func (t TeaDetail) EffectNames() []string {
	names := make([]string, 0, len(t.Effects))
	for _, e := range t.Effects {
		names = append(names, e.Name)
	}
	return names
}

// Blend is a persisted mixture of teas.
type Blend struct {
	ID             int64     `json:"id"`
	UserID         string    `json:"user_id"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	TargetEffects  []string  `json:"target_effects"`
	IsPublic       bool      `json:"is_public"`
	TimesFavorited int       `json:"times_favorited"`
	AvgRating      *float64  `json:"avg_rating,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// BlendComponent is one tea within a blend.
type BlendComponent struct {
	ID           int64   `json:"id"`
	BlendID      int64   `json:"blend_id"`
	TeaID        int64   `json:"tea_id"`
	TeaName      string  `json:"tea_name,omitempty"`
	Ratio        float64 `json:"ratio"`
	SteepTimeSec int     `json:"steep_time_sec"`
	SteepTempC   int     `json:"steep_temp_c"`
	Notes        string  `json:"notes,omitempty"`
	OrderAdded   int     `json:"order_added"`
}

// BlendPredictedEffect is the derived effect intensity of a blend and the
// aggregate compound breakdown that produced it.
type BlendPredictedEffect struct {
	BlendID            int64             `json:"blend_id"`
	EffectID           int64             `json:"effect_id"`
	EffectName         string            `json:"effect_name"`
	PredictedIntensity int               `json:"predicted_intensity"`
	TotalCompoundMg    CompoundBreakdown `json:"total_compound_mg"`
	CalculatedAt       time.Time         `json:"calculated_at"`
}

// BlendWithComponents is a persisted blend with its components in
// insertion order.
type BlendWithComponents struct {
	Blend
	Components []BlendComponent `json:"components"`
}
