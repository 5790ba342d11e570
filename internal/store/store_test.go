package store

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/54b3r/tealab-go/internal/catalog"
	"github.com/54b3r/tealab-go/internal/domain"
	"github.com/54b3r/tealab-go/internal/rag"
)

// openTestStore opens an in-memory Store for use in tests.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open in-memory store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func amounts(pairs ...any) domain.CompoundAmounts {
	var ca domain.CompoundAmounts
	for i := 0; i < len(pairs); i += 2 {
		ca.Add(pairs[i].(string), pairs[i+1].(float64))
	}
	return ca
}

func fixtureCatalog() *catalog.Catalog {
	return &catalog.Catalog{
		Compounds: []domain.Compound{
			{Name: "caffeine", ChemicalFormula: "C8H10N4O2", HalfLifeMinutes: 300, SafeDailyLimitMg: 400},
			{Name: "l-theanine", Mechanism: "increases alpha brain waves"},
			{Name: "EGCG"},
		},
		Effects: []domain.Effect{
			{Name: "calm_focus", Category: domain.CategoryMental, OnsetRangeMin: 15, OnsetRangeMax: 45, DurationRangeMin: 120, DurationRangeMax: 300},
			{Name: "alertness", Category: domain.CategoryMental},
			{Name: "relaxation", Category: domain.CategoryEmotional},
		},
		Teas: []catalog.Tea{
			{
				Name: "Gyokuro", Type: domain.TeaGreen, PricePerOz: 12,
				Compounds: amounts("caffeine", 35.0, "l-theanine", 42.0, "EGCG", 50.0),
				Brewing:   catalog.Brewing{TempC: 60, TimeSec: 120, AmountG: 5},
				Effects: []catalog.TeaEffect{
					{Effect: "calm_focus", Intensity: 5, OnsetMinutes: 20, DurationMinutes: 240},
					{Effect: "alertness", Intensity: 4, OnsetMinutes: 15, DurationMinutes: 180},
				},
			},
			{
				Name: "Sencha", Type: domain.TeaGreen, PricePerOz: 6,
				Compounds: amounts("caffeine", 30.0, "l-theanine", 20.0, "EGCG", 70.0),
				Brewing:   catalog.Brewing{TempC: 75, TimeSec: 90, AmountG: 4},
				Effects: []catalog.TeaEffect{
					{Effect: "alertness", Intensity: 4, OnsetMinutes: 15, DurationMinutes: 180},
					{Effect: "calm_focus", Intensity: 3, OnsetMinutes: 25, DurationMinutes: 200},
				},
			},
			{
				Name: "Chamomile", Type: domain.TeaHerbal, PricePerOz: 3,
				Effects: []catalog.TeaEffect{
					{Effect: "relaxation", Intensity: 5, OnsetMinutes: 30, DurationMinutes: 120},
					{Effect: "calm_focus", Intensity: 2, OnsetMinutes: 30, DurationMinutes: 120},
				},
			},
		},
	}
}

func seededStore(t *testing.T) *Store {
	t.Helper()
	s := openTestStore(t)
	if _, err := s.Seed(context.Background(), fixtureCatalog()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return s
}

func Test_Store_MigrateIdempotent(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	if err := s.migrate(); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func Test_Store_FindEffectByName(t *testing.T) {
	t.Parallel()
	s := seededStore(t)
	ctx := context.Background()

	e, err := s.FindEffectByName(ctx, "  CALM_Focus ")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if e.Name != "calm_focus" || e.OnsetRangeMax != 45 || e.Category != domain.CategoryMental {
		t.Errorf("unexpected effect: %+v", e)
	}

	_, err = s.FindEffectByName(ctx, "levitation")
	var nf *domain.NotFoundError
	if !errors.As(err, &nf) || nf.Kind != "effect" {
		t.Errorf("want NotFoundError for effect, got %v", err)
	}
}

func Test_Store_TeasForEffect(t *testing.T) {
	t.Parallel()
	s := seededStore(t)
	ctx := context.Background()

	e, err := s.FindEffectByName(ctx, "calm_focus")
	if err != nil {
		t.Fatalf("find: %v", err)
	}

	tests := []struct {
		name     string
		min      int
		wantTeas []string
	}{
		{name: "intensity 3 and up", min: 3, wantTeas: []string{"Gyokuro", "Sencha"}},
		{name: "all", min: 1, wantTeas: []string{"Gyokuro", "Sencha", "Chamomile"}},
		{name: "none", min: 6, wantTeas: nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			teas, err := s.TeasForEffect(ctx, e.ID, tc.min)
			if err != nil {
				t.Fatalf("teas for effect: %v", err)
			}
			if len(teas) != len(tc.wantTeas) {
				t.Fatalf("want %d teas, got %d", len(tc.wantTeas), len(teas))
			}
			for i, name := range tc.wantTeas {
				if teas[i].Name != name {
					t.Errorf("teas[%d] = %s, want %s", i, teas[i].Name, name)
				}
			}
		})
	}
}

func Test_Store_ListTeaDetails_Hydrated(t *testing.T) {
	t.Parallel()
	s := seededStore(t)
	ctx := context.Background()

	all, err := s.ListTeaDetails(ctx, nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("want 3 teas, got %d", len(all))
	}
	g := all[0]
	if g.Name != "Gyokuro" || g.Type != domain.TeaGreen {
		t.Fatalf("unexpected first tea: %+v", g.Tea)
	}
	if got := g.CompoundMg("caffeine"); got != 35 {
		t.Errorf("caffeine = %v, want 35", got)
	}
	if len(g.Effects) != 2 || g.Effects[0].Name != "calm_focus" || g.Effects[0].Intensity != 5 {
		t.Errorf("unexpected effects: %+v", g.Effects)
	}
	if g.Effects[0].ConfidenceScore != seedConfidence || g.Effects[0].DataSource != domain.SourceResearch {
		t.Errorf("unexpected junction metadata: %+v", g.Effects[0])
	}
	if len(all[2].Compounds) != 0 {
		t.Errorf("chamomile should have no compounds, got %+v", all[2].Compounds)
	}

	subset, err := s.ListTeaDetails(ctx, []int64{all[2].ID, all[0].ID})
	if err != nil {
		t.Fatalf("list subset: %v", err)
	}
	if len(subset) != 2 || subset[0].Name != "Gyokuro" || subset[1].Name != "Chamomile" {
		t.Errorf("unexpected subset: %+v", subset)
	}
}

func Test_Store_SeedIdempotentAndSkips(t *testing.T) {
	t.Parallel()
	s := seededStore(t)
	ctx := context.Background()

	c := fixtureCatalog()
	c.Teas[0].Compounds.Add("unobtainium", 1)
	c.Teas[0].Effects = append(c.Teas[0].Effects, catalog.TeaEffect{Effect: "flight", Intensity: 1})

	res, err := s.Seed(ctx, c)
	if err != nil {
		t.Fatalf("reseed: %v", err)
	}
	if res.Teas != 3 || res.Compounds != 3 || res.Effects != 3 {
		t.Errorf("unexpected counts: %+v", res)
	}
	if len(res.Skipped) != 2 {
		t.Errorf("want 2 skipped entries, got %v", res.Skipped)
	}

	teas, err := s.ListTeaDetails(ctx, nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(teas) != 3 || len(teas[0].Effects) != 2 || len(teas[0].Compounds) != 3 {
		t.Errorf("reseed duplicated rows: %d teas, first has %d effects %d compounds",
			len(teas), len(teas[0].Effects), len(teas[0].Compounds))
	}

	effects, err := s.ListEffects(ctx)
	if err != nil {
		t.Fatalf("list effects: %v", err)
	}
	if len(effects) != 3 {
		t.Errorf("want 3 effects, got %d", len(effects))
	}
}

func Test_Store_BlendRoundTrip(t *testing.T) {
	t.Parallel()
	s := seededStore(t)
	ctx := context.Background()

	teas, err := s.ListTeaDetails(ctx, nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	b, err := s.InsertBlend(ctx, domain.Blend{
		UserID: "anonymous", Name: "Morning Clarity",
		Description:   "Steep together at 80°C",
		TargetEffects: []string{"calm_focus"},
	})
	if err != nil {
		t.Fatalf("insert blend: %v", err)
	}
	if b.ID == 0 || b.CreatedAt.IsZero() {
		t.Fatalf("insert did not populate id/timestamps: %+v", b)
	}

	// Insert in reverse tea order to prove components come back by order_added.
	for i, tea := range []domain.TeaDetail{teas[1], teas[0]} {
		_, err := s.InsertBlendComponent(ctx, domain.BlendComponent{
			BlendID: b.ID, TeaID: tea.ID, Ratio: []float64{40, 60}[i],
			SteepTempC: 80, SteepTimeSec: 120, OrderAdded: i + 1,
		})
		if err != nil {
			t.Fatalf("insert component %d: %v", i, err)
		}
	}

	got, err := s.GetBlend(ctx, b.ID)
	if err != nil {
		t.Fatalf("get blend: %v", err)
	}
	if got.Name != "Morning Clarity" || got.IsPublic || len(got.TargetEffects) != 1 {
		t.Errorf("unexpected blend: %+v", got.Blend)
	}
	if len(got.Components) != 2 || got.Components[0].TeaName != "Sencha" || got.Components[1].Ratio != 60 {
		t.Errorf("unexpected components: %+v", got.Components)
	}
	if err := domain.CheckRatios(got.Components); err != nil {
		t.Errorf("ratios: %v", err)
	}

	_, err = s.GetBlend(ctx, 9999)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("want ErrNotFound, got %v", err)
	}
}

func Test_Store_ComponentRatioChecked(t *testing.T) {
	t.Parallel()
	s := seededStore(t)
	ctx := context.Background()

	b, err := s.InsertBlend(ctx, domain.Blend{UserID: "u", Name: "Bad"})
	if err != nil {
		t.Fatalf("insert blend: %v", err)
	}
	teas, _ := s.ListTeaDetails(ctx, nil)
	_, err = s.InsertBlendComponent(ctx, domain.BlendComponent{BlendID: b.ID, TeaID: teas[0].ID, Ratio: 150, OrderAdded: 1})
	if err == nil {
		t.Error("expected ratio CHECK violation")
	}
}

func Test_Store_ReplacePredictedEffects(t *testing.T) {
	t.Parallel()
	s := seededStore(t)
	ctx := context.Background()

	b, err := s.InsertBlend(ctx, domain.Blend{UserID: "u", Name: "Calm"})
	if err != nil {
		t.Fatalf("insert blend: %v", err)
	}
	calm, _ := s.FindEffectByName(ctx, "calm_focus")
	alert, _ := s.FindEffectByName(ctx, "alertness")

	var totals domain.CompoundBreakdown
	totals.Route("caffeine", 32)
	totals.Route("quercetin", 1.5)

	first := []domain.BlendPredictedEffect{
		{EffectID: calm.ID, EffectName: calm.Name, PredictedIntensity: 4, TotalCompoundMg: totals},
		{EffectID: alert.ID, EffectName: alert.Name, PredictedIntensity: 3, TotalCompoundMg: totals},
	}
	if err := s.ReplacePredictedEffects(ctx, b.ID, first); err != nil {
		t.Fatalf("replace #1: %v", err)
	}
	if err := s.ReplacePredictedEffects(ctx, b.ID, first[:1]); err != nil {
		t.Fatalf("replace #2: %v", err)
	}

	got, err := s.PredictedEffects(ctx, b.ID)
	if err != nil {
		t.Fatalf("predicted effects: %v", err)
	}
	if len(got) != 1 || got[0].EffectName != "calm_focus" || got[0].PredictedIntensity != 4 {
		t.Fatalf("predictions were appended, not replaced: %+v", got)
	}
	if got[0].TotalCompoundMg.CaffeineMg != 32 {
		t.Errorf("caffeine = %v", got[0].TotalCompoundMg.CaffeineMg)
	}
	if mg, ok := got[0].TotalCompoundMg.Other.Get("quercetin_mg"); !ok || mg != 1.5 {
		t.Errorf("other compounds lost: %v %v", mg, ok)
	}
}

func Test_KnowledgeIndex_Match(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	k := s.Knowledge()
	ctx := context.Background()

	chunks := []domain.KnowledgeChunk{
		{ID: "a", Content: "green tea theanine", Embedding: []float32{1, 0, 0}, Metadata: domain.KnowledgeMetadata{TeaType: "green", Compound: "l-theanine"}},
		{ID: "b", Content: "oolong digestion", Embedding: []float32{0.8, 0.6, 0}, Metadata: domain.KnowledgeMetadata{TeaType: "oolong"}},
		{ID: "c", Content: "unrelated", Embedding: []float32{0, 0, 1}},
	}
	if err := k.Insert(ctx, chunks); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if n, _ := k.Count(ctx); n != 3 {
		t.Fatalf("count = %d, want 3", n)
	}

	tests := []struct {
		name    string
		params  rag.MatchParams
		wantIDs []string
	}{
		{name: "threshold and order", params: rag.MatchParams{Threshold: 0.7, Limit: 5}, wantIDs: []string{"a", "b"}},
		{name: "limit", params: rag.MatchParams{Threshold: 0.7, Limit: 1}, wantIDs: []string{"a"}},
		{name: "filter", params: rag.MatchParams{Threshold: 0.5, Limit: 5, Filters: domain.KnowledgeFilters{TeaType: "oolong"}}, wantIDs: []string{"b"}},
		{name: "filter both", params: rag.MatchParams{Threshold: 0.5, Limit: 5, Filters: domain.KnowledgeFilters{TeaType: "green", Compound: "caffeine"}}, wantIDs: nil},
		{name: "high threshold", params: rag.MatchParams{Threshold: 0.99, Limit: 5}, wantIDs: []string{"a"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := k.MatchKnowledge(ctx, []float32{1, 0, 0}, tc.params)
			if err != nil {
				t.Fatalf("match: %v", err)
			}
			if len(got) != len(tc.wantIDs) {
				t.Fatalf("want %d matches, got %d", len(tc.wantIDs), len(got))
			}
			for i, id := range tc.wantIDs {
				if got[i].Chunk.ID != id {
					t.Errorf("match[%d] = %s, want %s", i, got[i].Chunk.ID, id)
				}
			}
		})
	}

	got, _ := k.MatchKnowledge(ctx, []float32{1, 0, 0}, rag.MatchParams{Threshold: 0.7, Limit: 5})
	if math.Abs(float64(got[1].Similarity)-0.8) > 1e-6 {
		t.Errorf("similarity of b = %v, want 0.8", got[1].Similarity)
	}
	if got[0].Chunk.Metadata.Compound != "l-theanine" {
		t.Errorf("metadata not restored: %+v", got[0].Chunk.Metadata)
	}
}

func Test_Cosine(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		a, b []float32
		want float32
	}{
		{name: "identical", a: []float32{1, 2}, b: []float32{1, 2}, want: 1},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 0},
		{name: "length mismatch", a: []float32{1}, b: []float32{1, 0}, want: 0},
		{name: "zero vector", a: []float32{0, 0}, b: []float32{1, 0}, want: 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := cosine(tc.a, tc.b); math.Abs(float64(got-tc.want)) > 1e-6 {
				t.Errorf("cosine = %v, want %v", got, tc.want)
			}
		})
	}

	v := []float32{0.25, -1.5, 3}
	round := decodeVector(encodeVector(v))
	for i := range v {
		if round[i] != v[i] {
			t.Errorf("vector codec mismatch at %d: %v != %v", i, round[i], v[i])
		}
	}
}
