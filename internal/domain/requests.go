package domain

import "time"

// TimeOfDay is the part of the day a recommendation is for.
type TimeOfDay string

const (
	Morning   TimeOfDay = "morning"
	Afternoon TimeOfDay = "afternoon"
	Evening   TimeOfDay = "evening"
	Night     TimeOfDay = "night"
)

// Valid reports whether t is one of the enumerated times of day.
func (t TimeOfDay) Valid() bool {
	switch t {
	case Morning, Afternoon, Evening, Night:
		return true
	}
	return false
}

// Preferences narrows a recommendation. MaxCaffeine is a pointer so that an
// explicit ceiling of zero is distinguishable from no ceiling.
type Preferences struct {
	Taste       string   `json:"taste,omitempty"`
	Temperature string   `json:"temperature,omitempty"`
	MaxCaffeine *float64 `json:"max_caffeine,omitempty"`
}

// RecommendationRequest asks for teas that produce one desired effect.
type RecommendationRequest struct {
	DesiredEffect   string      `json:"desired_effect"`
	IntensityNeeded int         `json:"intensity_needed,omitempty"`
	TimeAvailable   int         `json:"time_available,omitempty"`
	TimeOfDay       TimeOfDay   `json:"time_of_day"`
	RecentCaffeine  float64     `json:"recent_caffeine,omitempty"`
	Sensitivities   []string    `json:"sensitivities,omitempty"`
	Preferences     Preferences `json:"preferences,omitempty"`
}

// BrewingParams describes how to brew one cup.
type BrewingParams struct {
	TemperatureC int     `json:"temperature_c"`
	SteepTimeSec int     `json:"steep_time_sec"`
	AmountG      float64 `json:"amount_g"`
	WaterML      int     `json:"water_ml"`
	Instructions string  `json:"instructions,omitempty"`
}

// EffectProfile is an expected effect with its timeline.
type EffectProfile struct {
	Effect          Effect `json:"effect"`
	Intensity       int    `json:"intensity"`
	OnsetMinutes    int    `json:"onset_minutes"`
	DurationMinutes int    `json:"duration_minutes"`
}

// TeaRecommendation is one ranked suggestion. Fallback marks results
// produced by the deterministic ranking instead of the language model.
type TeaRecommendation struct {
	Tea               Tea               `json:"tea"`
	Reasoning         string            `json:"reasoning"`
	BrewingMethod     BrewingParams     `json:"brewing_method"`
	ExpectedEffects   []EffectProfile   `json:"expected_effects"`
	TimingAdvice      string            `json:"timing_advice"`
	Alternatives      []Tea             `json:"alternatives"`
	CompoundBreakdown CompoundBreakdown `json:"compound_breakdown"`
	Fallback          bool              `json:"fallback"`
}

// BlendCreationRequest asks for a custom blend.
type BlendCreationRequest struct {
	TargetEffects []string `json:"target_effects"`
	AvoidEffects  []string `json:"avoid_effects,omitempty"`
	MaxCaffeineMg *float64 `json:"max_caffeine_mg,omitempty"`
	FlavorProfile []string `json:"flavor_profile,omitempty"`
	BudgetPerCup  *float64 `json:"budget_per_cup,omitempty"`
	UserInventory []int64  `json:"user_inventory,omitempty"`
}

// BlendCreationResponse is the outcome of a blend creation. Warnings lists
// every repair applied to the generated recipe, including components that
// were dropped because their tea could not be resolved.
type BlendCreationResponse struct {
	Blend               Blend             `json:"blend"`
	Components          []BlendComponent  `json:"components"`
	PredictedEffects    []EffectProfile   `json:"predicted_effects"`
	TotalCompounds      CompoundBreakdown `json:"total_compounds"`
	CostPerCup          float64           `json:"cost_per_cup"`
	BrewingInstructions string            `json:"brewing_instructions"`
	Reasoning           string            `json:"ai_reasoning"`
	Warnings            []string          `json:"warnings"`
	Fallback            bool              `json:"fallback"`
}

// BlendOptimization is the advisory result of optimizing a blend.
type BlendOptimization struct {
	Blend       BlendWithComponents `json:"blend"`
	Feedback    string              `json:"feedback,omitempty"`
	Suggestions string              `json:"suggestions"`
}

// KnowledgeMetadata is the source metadata attached to a knowledge chunk.
type KnowledgeMetadata struct {
	Source   string `json:"source,omitempty"`
	Title    string `json:"title,omitempty"`
	Category string `json:"category,omitempty"`
	URL      string `json:"url,omitempty"`
	TeaType  string `json:"tea_type,omitempty"`
	Effect   string `json:"effect,omitempty"`
	Compound string `json:"compound,omitempty"`
}

// Fields returns the non-empty metadata values keyed by their JSON name.
func (m KnowledgeMetadata) Fields() map[string]string {
	out := make(map[string]string, 7)
	set := func(k, v string) {
		if v != "" {
			out[k] = v
		}
	}
	set("source", m.Source)
	set("title", m.Title)
	set("category", m.Category)
	set("url", m.URL)
	set("tea_type", m.TeaType)
	set("effect", m.Effect)
	set("compound", m.Compound)
	return out
}

// MetadataFromFields is the inverse of KnowledgeMetadata.Fields.
func MetadataFromFields(f map[string]string) KnowledgeMetadata {
	return KnowledgeMetadata{
		Source:   f["source"],
		Title:    f["title"],
		Category: f["category"],
		URL:      f["url"],
		TeaType:  f["tea_type"],
		Effect:   f["effect"],
		Compound: f["compound"],
	}
}

// KnowledgeChunk is an embedded fragment of an ingested document.
type KnowledgeChunk struct {
	ID        string            `json:"id"`
	Content   string            `json:"content"`
	Embedding []float32         `json:"-"`
	Metadata  KnowledgeMetadata `json:"metadata"`
	CreatedAt time.Time         `json:"created_at"`
}

// KnowledgeFilters are equality filters over chunk metadata.
type KnowledgeFilters struct {
	TeaType  string `json:"tea_type,omitempty"`
	Effect   string `json:"effect,omitempty"`
	Compound string `json:"compound,omitempty"`
}

// Pairs returns the set filters as metadata key/value pairs in a fixed order.
func (f KnowledgeFilters) Pairs() [][2]string {
	var out [][2]string
	if f.TeaType != "" {
		out = append(out, [2]string{"tea_type", f.TeaType})
	}
	if f.Effect != "" {
		out = append(out, [2]string{"effect", f.Effect})
	}
	if f.Compound != "" {
		out = append(out, [2]string{"compound", f.Compound})
	}
	return out
}

// RAGQueryRequest is a question answered from the knowledge base.
type RAGQueryRequest struct {
	Query   string           `json:"query"`
	Filters KnowledgeFilters `json:"filters,omitempty"`
	Limit   int              `json:"limit,omitempty"`
}

// RAGSource is one knowledge chunk cited by an answer.
type RAGSource struct {
	Content    string            `json:"content"`
	Metadata   KnowledgeMetadata `json:"metadata"`
	Similarity float32           `json:"similarity"`
}

// RAGAnswer is the generated answer with its sources. Confidence is the
// similarity of the best match, or zero when nothing matched.
type RAGAnswer struct {
	Answer     string      `json:"answer"`
	Sources    []RAGSource `json:"sources"`
	Confidence float32     `json:"confidence"`
}
