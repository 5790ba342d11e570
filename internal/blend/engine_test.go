package blend

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/54b3r/tealab-go/internal/domain"
	"github.com/54b3r/tealab-go/internal/llm"
	"github.com/54b3r/tealab-go/internal/logging"
)

type fakeStore struct {
	teas      []domain.TeaDetail
	blends    map[int64]*domain.BlendWithComponents
	listErr   error
	insertErr error

	calls      []string
	gotIDs     []int64
	components []domain.BlendComponent
	predicted  []domain.BlendPredictedEffect
}

func (f *fakeStore) ListTeaDetails(_ context.Context, ids []int64) ([]domain.TeaDetail, error) {
	f.gotIDs = ids
	return f.teas, f.listErr
}

func (f *fakeStore) InsertBlend(_ context.Context, b domain.Blend) (domain.Blend, error) {
	f.calls = append(f.calls, "blend")
	if f.insertErr != nil {
		return domain.Blend{}, f.insertErr
	}
	b.ID = 42
	return b, nil
}

func (f *fakeStore) InsertBlendComponent(_ context.Context, c domain.BlendComponent) (domain.BlendComponent, error) {
	f.calls = append(f.calls, "component")
	c.ID = int64(100 + len(f.components))
	c.TeaName = ""
	f.components = append(f.components, c)
	return c, nil
}

func (f *fakeStore) ReplacePredictedEffects(_ context.Context, _ int64, effects []domain.BlendPredictedEffect) error {
	f.calls = append(f.calls, "predicted")
	f.predicted = effects
	return nil
}

func (f *fakeStore) GetBlend(_ context.Context, id int64) (*domain.BlendWithComponents, error) {
	if b, ok := f.blends[id]; ok {
		return b, nil
	}
	return nil, domain.NewNotFound("blend", "missing")
}

type fakeGen struct {
	reply     string
	err       error
	calls     int
	gotPrompt string
}

func (f *fakeGen) Generate(_ context.Context, prompt string, _ llm.GenerateOptions) (string, error) {
	f.calls++
	f.gotPrompt = prompt
	return f.reply, f.err
}

type emptyRetriever struct{ called bool }

func (r *emptyRetriever) RetrieveContext(context.Context, string, int) string {
	r.called = true
	return ""
}

var (
	calm  = domain.Effect{ID: 1, Name: "calm"}
	focus = domain.Effect{ID: 2, Name: "calm_focus"}
	alert = domain.Effect{ID: 3, Name: "alertness"}
)

func detail(id int64, name string, price float64, compounds []domain.CompoundAmount, effects ...domain.TeaEffectDetail) domain.TeaDetail {
	return domain.TeaDetail{
		Tea:       domain.Tea{ID: id, Name: name, Type: domain.TeaGreen, PricePerOz: price},
		Compounds: compounds,
		Effects:   effects,
	}
}

func mg(name string, amount float64) domain.CompoundAmount {
	return domain.CompoundAmount{Compound: domain.Compound{Name: name}, AmountMg: amount}
}

func eff(e domain.Effect, intensity int) domain.TeaEffectDetail {
	return domain.TeaEffectDetail{Effect: e, Intensity: intensity, OnsetMinutes: 20, DurationMinutes: 120}
}

func catalogTeas() []domain.TeaDetail {
	return []domain.TeaDetail{
		detail(1, "Gyokuro", 10, []domain.CompoundAmount{mg("caffeine", 40), mg("L-Theanine", 30), mg("EGCG", 50)},
			eff(calm, 4), eff(alert, 3)),
		detail(2, "Chamomile", 4, []domain.CompoundAmount{mg("caffeine", 10), mg("apigenin", 5)},
			eff(calm, 3)),
		detail(3, "Assam", 6, []domain.CompoundAmount{mg("caffeine", 80)},
			eff(alert, 5)),
	}
}

func newEngine(t *testing.T, st Store, gen Generator, r Retriever) *Engine {
	t.Helper()
	e, err := New(st, gen, r, logging.Discard())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestCompounds_RatioWeighted(t *testing.T) {
	t.Parallel()

	teas := catalogTeas()
	got := Compounds([]Component{{Tea: teas[0], Ratio: 70}, {Tea: teas[1], Ratio: 30}})

	if !near(got.CaffeineMg, 31) {
		t.Errorf("caffeine = %v, want 31", got.CaffeineMg)
	}
	if !near(got.LTheanineMg, 21) || !near(got.CatechinsMg, 35) {
		t.Errorf("theanine = %v catechins = %v, want 21 and 35", got.LTheanineMg, got.CatechinsMg)
	}
	if v, ok := got.Other.Get("apigenin_mg"); !ok || !near(v, 1.5) {
		t.Errorf("apigenin = %v (%v), want 1.5", v, ok)
	}
	if keys := got.Other.Keys(); len(keys) != 1 {
		t.Errorf("other keys = %v", keys)
	}
}

func TestEffects_AdditiveNotAveraged(t *testing.T) {
	t.Parallel()

	teas := catalogTeas()
	got := Effects([]Component{{Tea: teas[0], Ratio: 60}, {Tea: teas[1], Ratio: 40}})

	if len(got) != 2 {
		t.Fatalf("want 2 effects, got %+v", got)
	}
	// 4*0.6 + 3*0.4 = 3.6
	if got[0].Effect.Name != "calm" || got[0].Intensity != 4 {
		t.Errorf("calm = %+v, want intensity 4", got[0])
	}
	// 3*0.6 = 1.8
	if got[1].Effect.Name != "alertness" || got[1].Intensity != 2 {
		t.Errorf("alertness = %+v, want intensity 2", got[1])
	}
	for _, e := range got {
		if e.OnsetMinutes != 25 || e.DurationMinutes != 200 {
			t.Errorf("%s timeline = %d/%d, want 25/200", e.Effect.Name, e.OnsetMinutes, e.DurationMinutes)
		}
	}
}

func TestParseRecipe_Repairs(t *testing.T) {
	t.Parallel()

	teas := catalogTeas()
	tests := []struct {
		name       string
		reply      string
		wantRatios []float64
		wantTemps  []int
		wantTimes  []int
		warnings   []string
		wantErr    bool
	}{
		{
			name: "clean recipe",
			reply: `{"blend_name": "Evening Calm", "components": [
				{"tea": "gyokuro", "ratio": 60, "steep_temp_c": 70, "steep_time_sec": 120},
				{"tea": "Chamomile", "ratio": 40}],
				"brewing_instructions": "Steep gently.", "cost_per_cup": 1.2}`,
			wantRatios: []float64{60, 40},
			wantTemps:  []int{70, 85},
			wantTimes:  []int{120, 180},
		},
		{
			name: "unknown tea dropped and ratios rescaled",
			reply: `{"components": [
				{"tea": "Gyokuro", "ratio": 50},
				{"tea": "Yerba Mate", "ratio": 25},
				{"tea": "Chamomile", "ratio": 25}]}`,
			wantRatios: []float64{66.67, 33.33},
			wantTemps:  []int{85, 85},
			wantTimes:  []int{180, 180},
			warnings:   []string{`"Yerba Mate" is not in the catalog`, "summed to 75; rescaled"},
		},
		{
			name: "non-positive ratio skipped",
			reply: `{"components": [
				{"tea": "Gyokuro", "ratio": 100},
				{"tea": "Assam", "ratio": 0},
				{"tea": "Chamomile", "ratio": -5}]}`,
			wantRatios: []float64{100},
			wantTemps:  []int{85},
			wantTimes:  []int{180},
			warnings:   []string{"(Assam): non-positive ratio", "(Chamomile): non-positive ratio"},
		},
		{
			name: "brewing out of range reset",
			reply: `{"components": [
				{"tea": "Gyokuro", "ratio": 50, "steep_temp_c": 120, "steep_time_sec": 10},
				{"tea": "Assam", "ratio": 50, "steep_temp_c": 59.6, "steep_time_sec": 1200}]}`,
			wantRatios: []float64{50, 50},
			wantTemps:  []int{85, 60},
			wantTimes:  []int{180, 180},
			warnings:   []string{"120°C outside", "10s outside", "1200s outside"},
		},
		{
			name: "oversized ratios skipped",
			reply: `{"components": [
				{"tea": "Gyokuro", "ratio": 1e308},
				{"tea": "Chamomile", "ratio": 301},
				{"tea": "Assam", "ratio": 100}]}`,
			wantRatios: []float64{100},
			wantTemps:  []int{85},
			wantTimes:  []int{180},
			warnings:   []string{"(Gyokuro): ratio 1e+308 out of range", "(Chamomile): ratio 301 out of range"},
		},
		{
			name:     "no usable component",
			reply:    `{"components": [{"tea": "Rooibos", "ratio": 100}]}`,
			warnings: []string{`"Rooibos" is not in the catalog`},
			wantErr:  true,
		},
		{name: "no JSON", reply: "A lovely blend of green and chamomile.", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			rec, err := ParseRecipe(tc.reply, teas)
			if tc.wantErr {
				if !errors.Is(err, domain.ErrMalformedGeneration) {
					t.Fatalf("err = %v, want malformed generation", err)
				}
			} else if err != nil {
				t.Fatalf("ParseRecipe: %v", err)
			}

			if len(rec.Components) != len(tc.wantRatios) {
				t.Fatalf("got %d components, want %d", len(rec.Components), len(tc.wantRatios))
			}
			sum := 0.0
			for i, c := range rec.Components {
				sum += c.Ratio
				if !near(c.Ratio, tc.wantRatios[i]) {
					t.Errorf("component %d ratio = %v, want %v", i, c.Ratio, tc.wantRatios[i])
				}
				if c.SteepTempC != tc.wantTemps[i] || c.SteepTimeSec != tc.wantTimes[i] {
					t.Errorf("component %d brewing = %d°C/%ds", i, c.SteepTempC, c.SteepTimeSec)
				}
			}
			if len(rec.Components) > 0 && math.Abs(sum-100) > domain.RatioTolerance {
				t.Errorf("ratios sum to %v", sum)
			}

			if len(rec.Warnings) != len(tc.warnings) {
				t.Fatalf("warnings = %q, want %d", rec.Warnings, len(tc.warnings))
			}
			for i, w := range tc.warnings {
				if !strings.Contains(rec.Warnings[i], w) {
					t.Errorf("warning %d = %q, want it to contain %q", i, rec.Warnings[i], w)
				}
			}
		})
	}
}

// Rescaling rounds each share to two decimals with the last component taking
// the remainder; a share that ends at or below zero must be dropped and the
// rest rescaled rather than persisted.
func TestParseRecipe_DropsSharesRoundedAway(t *testing.T) {
	t.Parallel()

	teas := append(catalogTeas(), detail(4, "Sencha", 5, nil, eff(calm, 3)))
	tests := []struct {
		name    string
		reply   string
		want    []string
		dropped string
	}{
		{
			name: "negative remainder",
			reply: `{"components": [
				{"tea": "Gyokuro", "ratio": 66.672}, {"tea": "Chamomile", "ratio": 66.672},
				{"tea": "Assam", "ratio": 66.655}, {"tea": "Sencha", "ratio": 0.001}]}`,
			want:    []string{"Gyokuro", "Chamomile", "Assam"},
			dropped: "Sencha: share rounds to -0.01%; dropped",
		},
		{
			name: "zero share",
			reply: `{"components": [
				{"tea": "Gyokuro", "ratio": 50}, {"tea": "Chamomile", "ratio": 50.02},
				{"tea": "Assam", "ratio": 0.001}]}`,
			want:    []string{"Gyokuro", "Chamomile"},
			dropped: "Assam: share rounds to 0%; dropped",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			rec, err := ParseRecipe(tc.reply, teas)
			if err != nil {
				t.Fatalf("ParseRecipe: %v", err)
			}
			if len(rec.Components) != len(tc.want) {
				t.Fatalf("components = %+v, want %v", rec.Components, tc.want)
			}
			for i, c := range rec.Components {
				if c.Tea.Name != tc.want[i] || c.Ratio <= 0 {
					t.Errorf("component %d = %s at %v", i, c.Tea.Name, c.Ratio)
				}
			}
			if err := domain.CheckRatios(rec.blendComponents()); err != nil {
				t.Errorf("repaired ratios: %v", err)
			}
			found := false
			for _, w := range rec.Warnings {
				found = found || strings.Contains(w, tc.dropped)
			}
			if !found {
				t.Errorf("warnings = %q, want one containing %q", rec.Warnings, tc.dropped)
			}
		})
	}
}

func TestParseRecipe_Defaults(t *testing.T) {
	t.Parallel()

	rec, err := ParseRecipe(`{"components": [{"tea": "Gyokuro", "ratio": 50}, {"tea": "Chamomile", "ratio": 50}]}`, catalogTeas())
	if err != nil {
		t.Fatalf("ParseRecipe: %v", err)
	}
	if rec.Name != fallbackName || rec.Instructions != fallbackInstructions {
		t.Errorf("name %q instructions %q", rec.Name, rec.Instructions)
	}
	// (10*0.5 + 4*0.5) * 0.15
	if !near(rec.CostPerCup, 1.05) {
		t.Errorf("estimated cost = %v, want 1.05", rec.CostPerCup)
	}
	if rec.Fallback {
		t.Error("parsed recipe flagged as fallback")
	}
}

func TestFallbackRecipe(t *testing.T) {
	t.Parallel()

	teas := catalogTeas()
	rec := FallbackRecipe(teas)
	if len(rec.Components) != 2 || rec.Components[0].Ratio != 70 || rec.Components[1].Ratio != 30 {
		t.Fatalf("components = %+v", rec.Components)
	}
	if rec.Components[0].Reasoning != "Selected for its calm, alertness effects" {
		t.Errorf("reasoning = %q", rec.Components[0].Reasoning)
	}
	// (10 + 4) * 0.15
	if !near(rec.CostPerCup, 2.1) {
		t.Errorf("cost = %v, want 2.1", rec.CostPerCup)
	}

	single := FallbackRecipe(teas[:1])
	if len(single.Components) != 1 || single.Components[0].Ratio != 100 {
		t.Errorf("single tea fallback = %+v", single.Components)
	}
}

func TestCreateBlend_PersistsRepairedRecipe(t *testing.T) {
	t.Parallel()

	st := &fakeStore{teas: catalogTeas()}
	reply := "Here is your blend:\n" + `{"blend_name": "Quiet Focus", "components": [
		{"tea": "Gyokuro", "ratio": 70, "steep_temp_c": 70, "steep_time_sec": 90, "reasoning": "theanine {base}"},
		{"tea": "Chamomile", "ratio": 30, "reasoning": "softens"},
		{"tea": "Matcha", "ratio": 10}],
		"total_compounds": {"caffeine": 999},
		"brewing_instructions": "Steep Gyokuro first.", "cost_per_cup": 1.75}`
	gen := &fakeGen{reply: reply}
	r := &emptyRetriever{}
	e := newEngine(t, st, gen, r)

	maxCaffeine := 25.0
	resp, err := e.CreateBlend(context.Background(), "", domain.BlendCreationRequest{
		TargetEffects: []string{"calm", " "},
		MaxCaffeineMg: &maxCaffeine,
		UserInventory: []int64{1, 2, 3},
	})
	if err != nil {
		t.Fatalf("CreateBlend: %v", err)
	}

	if strings.Join(st.calls, ",") != "blend,component,component,predicted" {
		t.Errorf("persist order = %v", st.calls)
	}
	if len(st.gotIDs) != 3 {
		t.Errorf("inventory not passed to the store: %v", st.gotIDs)
	}
	if !r.called {
		t.Error("retriever not consulted")
	}
	if strings.Contains(gen.gotPrompt, "Assam") {
		t.Error("irrelevant tea offered to the model")
	}

	b := resp.Blend
	if b.ID != 42 || b.UserID != AnonymousUser || b.Name != "Quiet Focus" || b.IsPublic {
		t.Errorf("blend = %+v", b)
	}
	if b.Description != "Steep Gyokuro first." || len(b.TargetEffects) != 1 {
		t.Errorf("description %q targets %v", b.Description, b.TargetEffects)
	}

	if len(resp.Components) != 2 {
		t.Fatalf("components = %+v", resp.Components)
	}
	c0 := resp.Components[0]
	if c0.BlendID != 42 || c0.OrderAdded != 1 || c0.TeaName != "Gyokuro" || c0.Notes != "theanine {base}" {
		t.Errorf("first component = %+v", c0)
	}
	if err := domain.CheckRatios(st.components); err != nil {
		t.Errorf("persisted ratios: %v", err)
	}

	// Compounds come from the catalog, not the generated totals.
	if !near(resp.TotalCompounds.CaffeineMg, 31) {
		t.Errorf("caffeine = %v, want 31", resp.TotalCompounds.CaffeineMg)
	}
	if resp.CostPerCup != 1.75 || resp.Reasoning != reply || resp.Fallback {
		t.Errorf("cost %v fallback %v", resp.CostPerCup, resp.Fallback)
	}

	if len(resp.Warnings) != 2 ||
		!strings.Contains(resp.Warnings[0], `"Matcha"`) ||
		!strings.Contains(resp.Warnings[1], "exceeds the requested maximum of 25mg") {
		t.Errorf("warnings = %q", resp.Warnings)
	}

	if len(st.predicted) != 2 || st.predicted[0].EffectName != "calm" || st.predicted[0].EffectID != calm.ID {
		t.Fatalf("predicted = %+v", st.predicted)
	}
	// 4*0.7 + 3*0.3 = 3.7
	if st.predicted[0].PredictedIntensity != 4 || !near(st.predicted[0].TotalCompoundMg.CaffeineMg, 31) {
		t.Errorf("calm prediction = %+v", st.predicted[0])
	}
}

func TestCreateBlend_FallbackTriggers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		gen  Generator
	}{
		{name: "no JSON", gen: &fakeGen{reply: "Mix green tea with chamomile."}},
		{name: "decode error", gen: &fakeGen{reply: `{"components": "lots"}`}},
		{name: "no resolvable tea", gen: &fakeGen{reply: `{"components": [{"tea": "Rooibos", "ratio": 100}]}`}},
		{name: "generation error", gen: &fakeGen{err: errors.New("model offline")}},
		{name: "no generator", gen: nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			st := &fakeStore{teas: catalogTeas()}
			resp, err := newEngine(t, st, tc.gen, nil).CreateBlend(context.Background(), "u1",
				domain.BlendCreationRequest{TargetEffects: []string{"CALM"}})
			if err != nil {
				t.Fatalf("CreateBlend: %v", err)
			}
			if !resp.Fallback || resp.Blend.Name != fallbackName || resp.Blend.UserID != "u1" {
				t.Errorf("blend = %+v fallback %v", resp.Blend, resp.Fallback)
			}
			if len(resp.Components) != 2 || resp.Components[0].TeaName != "Gyokuro" || resp.Components[1].TeaName != "Chamomile" {
				t.Fatalf("components = %+v", resp.Components)
			}
			if resp.Components[0].SteepTempC != 85 || resp.Components[0].SteepTimeSec != 180 {
				t.Errorf("fallback brewing = %+v", resp.Components[0])
			}
			if resp.BrewingInstructions != fallbackInstructions || !near(resp.CostPerCup, 2.1) {
				t.Errorf("instructions %q cost %v", resp.BrewingInstructions, resp.CostPerCup)
			}
			if resp.Warnings == nil {
				t.Error("warnings must be an empty list, not nil")
			}
			if len(st.calls) != 4 {
				t.Errorf("fallback blend not persisted: %v", st.calls)
			}
		})
	}
}

func TestCreateBlend_RatioRepairNeverFails(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		reply        string
		wantFallback bool
		wantParts    int
	}{
		{
			name: "rounding remainder dropped",
			reply: `{"components": [
				{"tea": "Gyokuro", "ratio": 66.672}, {"tea": "Chamomile", "ratio": 66.655},
				{"tea": "Gyokuro", "ratio": 0.001}]}`,
			wantParts: 2,
		},
		{
			name: "overflowing ratios",
			reply: `{"components": [
				{"tea": "Gyokuro", "ratio": 1e308}, {"tea": "Chamomile", "ratio": 1e308}]}`,
			wantFallback: true,
			wantParts:    2,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			st := &fakeStore{teas: catalogTeas()}
			resp, err := newEngine(t, st, &fakeGen{reply: tc.reply}, nil).CreateBlend(context.Background(), "u1",
				domain.BlendCreationRequest{TargetEffects: []string{"calm"}})
			if err != nil {
				t.Fatalf("CreateBlend: %v", err)
			}
			if resp.Fallback != tc.wantFallback {
				t.Errorf("fallback = %v, want %v (warnings %q)", resp.Fallback, tc.wantFallback, resp.Warnings)
			}
			if len(st.components) != tc.wantParts {
				t.Fatalf("persisted %d components, want %d", len(st.components), tc.wantParts)
			}
			if err := domain.CheckRatios(st.components); err != nil {
				t.Errorf("persisted ratios: %v", err)
			}
			for _, c := range st.components {
				if math.IsNaN(c.Ratio) || c.Ratio <= 0 {
					t.Errorf("persisted ratio %v for %s", c.Ratio, c.TeaName)
				}
			}
			if math.IsNaN(resp.TotalCompounds.CaffeineMg) {
				t.Error("caffeine total is NaN")
			}
		})
	}
}

func TestCreateBlend_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		store *fakeStore
		req   domain.BlendCreationRequest
		want  error
	}{
		{
			name:  "no targets",
			store: &fakeStore{teas: catalogTeas()},
			req:   domain.BlendCreationRequest{TargetEffects: []string{"", "  "}},
			want:  domain.ErrValidation,
		},
		{
			name:  "no relevant tea",
			store: &fakeStore{teas: catalogTeas()},
			req:   domain.BlendCreationRequest{TargetEffects: []string{"sleep"}},
			want:  domain.ErrNoCandidates,
		},
		{
			name:  "catalog failure",
			store: &fakeStore{listErr: errors.New("database is locked")},
			req:   domain.BlendCreationRequest{TargetEffects: []string{"calm"}},
			want:  domain.ErrUpstreamUnavailable,
		},
		{
			name:  "blend insert failure",
			store: &fakeStore{teas: catalogTeas(), insertErr: errors.New("disk I/O error")},
			req:   domain.BlendCreationRequest{TargetEffects: []string{"calm"}},
			want:  domain.ErrUpstreamUnavailable,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := newEngine(t, tc.store, nil, nil).CreateBlend(context.Background(), "", tc.req)
			if !errors.Is(err, tc.want) {
				t.Errorf("err = %v, want %v", err, tc.want)
			}
			if tc.store.insertErr != nil && len(tc.store.components) != 0 {
				t.Error("components persisted after blend insert failed")
			}
		})
	}
}

func TestOptimizeBlend(t *testing.T) {
	t.Parallel()

	stored := &domain.BlendWithComponents{
		Blend: domain.Blend{ID: 7, Name: "Quiet Focus", TargetEffects: []string{"calm_focus"}},
		Components: []domain.BlendComponent{
			{TeaID: 1, TeaName: "Gyokuro", Ratio: 70},
			{TeaID: 2, TeaName: "Chamomile", Ratio: 30},
		},
	}
	st := &fakeStore{blends: map[int64]*domain.BlendWithComponents{7: stored}}

	gen := &fakeGen{reply: `{"suggestions": ["raise Gyokuro to 80%"]}`}
	e := newEngine(t, st, gen, nil)

	got, err := e.OptimizeBlend(context.Background(), 7, "  too sleepy  ")
	if err != nil {
		t.Fatalf("OptimizeBlend: %v", err)
	}
	if got.Suggestions != gen.reply || got.Feedback != "too sleepy" || got.Blend.ID != 7 {
		t.Errorf("optimization = %+v", got)
	}
	if !strings.Contains(gen.gotPrompt, "too sleepy") || !strings.Contains(gen.gotPrompt, `"tea_name": "Gyokuro"`) {
		t.Error("prompt missing feedback or current recipe")
	}
	if len(st.calls) != 0 {
		t.Errorf("optimize must not write: %v", st.calls)
	}

	if _, err := e.OptimizeBlend(context.Background(), 8, ""); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("missing blend err = %v", err)
	}

	failing := newEngine(t, st, &fakeGen{err: errors.New("timeout")}, nil)
	if _, err := failing.OptimizeBlend(context.Background(), 7, ""); !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Errorf("generation failure err = %v", err)
	}
}

func TestRelevant(t *testing.T) {
	t.Parallel()

	teas := []domain.TeaDetail{
		detail(1, "Gyokuro", 0, nil, eff(focus, 4)),
		detail(2, "Assam", 0, nil, eff(alert, 5)),
		detail(3, "Chamomile", 0, nil, eff(calm, 3)),
	}
	got := Relevant(teas, []string{"Calm"})
	if len(got) != 2 || got[0].Name != "Gyokuro" || got[1].Name != "Chamomile" {
		t.Errorf("Relevant = %+v", got)
	}
}
