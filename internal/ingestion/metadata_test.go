package ingestion

import (
	"testing"

	"github.com/54b3r/tealab-go/internal/domain"
)

func TestInferMetadata(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		title    string
		content  string
		teaType  string
		effect   string
		compound string
	}{
		{
			name:     "green tea focus",
			title:    "L-theanine and focus",
			content:  "Matcha and sencha deliver L-theanine alongside caffeine, promoting calm focus.",
			teaType:  "green",
			effect:   "calm_focus",
			compound: "l-theanine",
		},
		{
			name:     "herbal sleep",
			title:    "Chamomile",
			content:  "Apigenin in chamomile binds GABA receptors and may improve sleep. Sleep latency drops.",
			teaType:  "herbal",
			effect:   "sleep",
			compound: "apigenin",
		},
		{
			name:    "pu-erh spelling variants",
			title:   "",
			content: "Aged pu'er and ripe puerh support digestion after heavy meals.",
			teaType: "pu-erh",
			effect:  "digestion",
		},
		{
			name:    "title outweighs body",
			title:   "Oolong",
			content: "Compared with green tea, the oxidised leaf tastes roasted.",
			teaType: "oolong",
		},
		{
			name:    "no keywords",
			content: "Water temperature matters for extraction.",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := InferMetadata(tc.title, tc.content)
			if got.TeaType != tc.teaType {
				t.Errorf("TeaType = %q, want %q", got.TeaType, tc.teaType)
			}
			if got.Effect != tc.effect {
				t.Errorf("Effect = %q, want %q", got.Effect, tc.effect)
			}
			if got.Compound != tc.compound {
				t.Errorf("Compound = %q, want %q", got.Compound, tc.compound)
			}
		})
	}
}

func TestMerge_ExplicitWins(t *testing.T) {
	t.Parallel()

	got := Merge(
		domain.KnowledgeMetadata{Source: "notes.md", TeaType: "white"},
		domain.KnowledgeMetadata{TeaType: "green", Effect: "energy", Source: "ignored"},
	)
	want := domain.KnowledgeMetadata{Source: "notes.md", TeaType: "white", Effect: "energy"}
	if got != want {
		t.Errorf("Merge = %+v, want %+v", got, want)
	}
}
