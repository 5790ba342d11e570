package server

import (
	"net/http"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/54b3r/tealab-go/internal/domain"
	"github.com/54b3r/tealab-go/internal/logging"
)

// findMetric returns the gathered metric named name whose labels include
// every pair in labels, or nil.
func findMetric(t *testing.T, s *Server, name string, labels map[string]string) *dto.Metric {
	t.Helper()
	mfs, err := s.cfg.MetricsGatherer.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			matched := 0
			for _, lp := range m.GetLabel() {
				if v, ok := labels[lp.GetName()]; ok && v == lp.GetValue() {
					matched++
				}
			}
			if matched == len(labels) {
				return m
			}
		}
	}
	return nil
}

func Test_Metrics_EndpointServesText(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, nil)

	w := do(t, s, http.MethodGet, "/metrics", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("want text/plain content-type, got %q", ct)
	}
}

func Test_Metrics_RecommendationOutcomes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		rec     *fakeRecommender
		outcome string
	}{
		{"ok", &fakeRecommender{recs: []domain.TeaRecommendation{{}}}, outcomeOK},
		{"fallback", &fakeRecommender{recs: []domain.TeaRecommendation{{Fallback: true}}}, outcomeFallback},
		{"error", &fakeRecommender{err: domain.ErrNoCandidates}, outcomeError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := newTestServer(t, func(d *Deps) { d.Recommender = tt.rec })
			do(t, s, http.MethodPost, "/api/recommendations", `{"desired_effect":"Calm"}`, nil)

			m := findMetric(t, s, "tealab_recommend_requests_total", map[string]string{"outcome": tt.outcome})
			if m == nil {
				t.Fatalf("tealab_recommend_requests_total{outcome=%q} not found", tt.outcome)
			}
			if v := m.GetCounter().GetValue(); v != 1 {
				t.Errorf("want counter=1, got %v", v)
			}
		})
	}
}

func Test_Metrics_BlendFallback(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, func(d *Deps) {
		d.Blender = &fakeBlender{resp: domain.BlendCreationResponse{Fallback: true}}
	})
	do(t, s, http.MethodPost, "/api/blends", `{"target_effects":["Calm"]}`, nil)

	if m := findMetric(t, s, "tealab_blend_created_total", map[string]string{"outcome": outcomeFallback}); m == nil {
		t.Fatal("tealab_blend_created_total{outcome=\"fallback\"} not found")
	}
}

func Test_Metrics_HTTPRequestsUsePattern(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, nil)

	do(t, s, http.MethodGet, "/api/blends/12", "", nil)
	do(t, s, http.MethodGet, "/nope", "", nil)

	if m := findMetric(t, s, "tealab_http_requests_total", map[string]string{
		"method": "GET", labelHandler: "GET /api/blends/{id}", "code": "200",
	}); m == nil {
		t.Error("pattern-labelled request counter not found")
	}
	if m := findMetric(t, s, "tealab_http_requests_total", map[string]string{
		labelHandler: "unmatched", "code": "404",
	}); m == nil {
		t.Error("unmatched request counter not found")
	}
}

func Test_Metrics_IsolatedRegistries(t *testing.T) {
	t.Parallel()

	// Two servers must be constructible without duplicate registration.
	for range 2 {
		s, err := New(Deps{
			Recommender: &fakeRecommender{},
			Blender:     &fakeBlender{},
			Catalog:     &fakeCatalog{},
		}, &Config{MetricsRegistry: prometheus.NewRegistry()})
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		t.Cleanup(s.stopRL)
	}
}

func Test_Metrics_RateLimitedByClass(t *testing.T) {
	t.Parallel()
	s, err := New(Deps{
		Recommender: &fakeRecommender{},
		Blender:     &fakeBlender{},
		Catalog:     &fakeCatalog{},
	}, &Config{
		Logger:          logging.Discard(),
		MetricsRegistry: prometheus.NewRegistry(),
		RateLimit:       0.001,
		GenerateBurst:   1,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(s.stopRL)

	body := `{"target_effects":["Calm"]}`
	if w := do(t, s, http.MethodPost, "/api/blends", body, nil); w.Code != http.StatusCreated {
		t.Fatalf("first blend: got %d", w.Code)
	}
	if w := do(t, s, http.MethodPost, "/api/recommendations", `{"desired_effect":"Calm"}`, nil); w.Code != http.StatusTooManyRequests {
		t.Fatalf("generation routes share a bucket: got %d", w.Code)
	}
	// Ingestion keeps its own allowance; with no ingester it answers 503.
	if w := do(t, s, http.MethodPost, "/api/rag/ingest", `{"content":"x"}`, nil); w.Code != http.StatusServiceUnavailable {
		t.Errorf("ingest: got %d", w.Code)
	}

	m := findMetric(t, s, "tealab_http_rate_limited_total", map[string]string{"class": classGenerate})
	if m == nil {
		t.Fatal("tealab_http_rate_limited_total{class=\"generate\"} not found")
	}
	if v := m.GetCounter().GetValue(); v != 1 {
		t.Errorf("want counter=1, got %v", v)
	}
}
