package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/54b3r/tealab-go/internal/domain"
	"github.com/54b3r/tealab-go/internal/ingestion"
	"github.com/54b3r/tealab-go/internal/rag"
	"github.com/54b3r/tealab-go/internal/store"
	"github.com/54b3r/tealab-go/internal/version"
)

const (
	testCompounds = `[{"name": "caffeine"}, {"name": "l-theanine"}]`
	testEffects   = `[{"name": "calm_focus", "category": "mental", "onset_range_min": 15, "onset_range_max": 45, "duration_range_min": 120, "duration_range_max": 300}]`
)

func writeData(t *testing.T, teas string) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"compounds.json":  testCompounds,
		"effects.json":    testEffects,
		"teas/green.json": teas,
	}
	for name, body := range files {
		p := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func teaJSON(onset int) string {
	return `[{"name": "Gyokuro", "type": "green", "price_per_oz": 12,
  "compounds": {"caffeine": 35, "l-theanine": 42},
  "brewing": {"temp_c": 60, "time_sec": 120, "amount_g": 5},
  "effects": [{"effect": "calm_focus", "intensity": 5, "onset_minutes": ` + strconv.Itoa(onset) + `, "duration_minutes": 240}]}]`
}

// isolate points HOME and the catalog at temp locations so no real config
// or database is touched.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("TEALAB_CONFIG", "")
	t.Setenv("LOG_LEVEL", "error")
	db := filepath.Join(home, "tealab.db")
	t.Setenv("TEALAB_DB", db)
	return db
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	err := root.ExecuteContext(ctx)
	return out.String(), err
}

func TestVersionCmd(t *testing.T) {
	isolate(t)

	out, err := run(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if strings.TrimSpace(out) != version.String() {
		t.Errorf("version output = %q, want %q", out, version.String())
	}
}

func TestSeedCmd(t *testing.T) {
	db := isolate(t)
	dir := writeData(t, teaJSON(20))

	out, err := run(t, "seed", "--data-dir", dir)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if !strings.Contains(out, "seeded 2 compounds, 1 effects, 1 teas") {
		t.Errorf("unexpected seed output: %q", out)
	}
	if _, err := os.Stat(db); err != nil {
		t.Errorf("catalog database not created: %v", err)
	}

	// Seeding is an upsert, so a second run succeeds with the same counts.
	if _, err := run(t, "seed", "--data-dir", dir); err != nil {
		t.Fatalf("second seed: %v", err)
	}
}

func TestValidateCmd(t *testing.T) {
	tests := []struct {
		name     string
		onset    int
		wantErr  bool
		wantLine string
	}{
		{"valid", 20, false, "all timings valid"},
		{"onset too early", 5, true, "Gyokuro: calm_focus: onset 5 < min 15"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			dir := writeData(t, teaJSON(tt.onset))

			out, err := run(t, "validate", "--data-dir", dir)
			if (err != nil) != tt.wantErr {
				t.Fatalf("validate error = %v, wantErr %v", err, tt.wantErr)
			}
			if !strings.Contains(out, tt.wantLine) {
				t.Errorf("output %q does not contain %q", out, tt.wantLine)
			}
		})
	}
}

func TestDataDir(t *testing.T) {
	t.Setenv("TEALAB_DATA_DIR", "")
	if got := dataDir(""); got != "data" {
		t.Errorf("dataDir default = %q", got)
	}
	t.Setenv("TEALAB_DATA_DIR", "/srv/tealab/data")
	if got := dataDir(""); got != "/srv/tealab/data" {
		t.Errorf("dataDir env = %q", got)
	}
	if got := dataDir("./catalog"); got != "./catalog" {
		t.Errorf("dataDir flag = %q", got)
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("TEALAB_TEST_INT", "42")
	t.Setenv("TEALAB_TEST_FLOAT", "0.65")
	t.Setenv("TEALAB_TEST_DURATION", "24h")
	t.Setenv("TEALAB_TEST_BAD", "nope")

	if got := getEnvInt("TEALAB_TEST_INT", 1); got != 42 {
		t.Errorf("getEnvInt = %d", got)
	}
	if got := getEnvInt("TEALAB_TEST_BAD", 1); got != 1 {
		t.Errorf("getEnvInt fallback = %d", got)
	}
	if got := getEnvFloat("TEALAB_TEST_FLOAT", 0.7); got != 0.65 {
		t.Errorf("getEnvFloat = %v", got)
	}
	if got := getEnvDuration("TEALAB_TEST_DURATION", time.Hour); got != 24*time.Hour {
		t.Errorf("getEnvDuration = %v", got)
	}
	if got := getEnvDuration("TEALAB_TEST_BAD", time.Hour); got != time.Hour {
		t.Errorf("getEnvDuration fallback = %v", got)
	}
}

func TestIngestCmd_RequiresSource(t *testing.T) {
	isolate(t)

	_, err := run(t, "ingest")
	if err == nil || !strings.Contains(err.Error(), "--dir or --url") {
		t.Fatalf("expected missing source error, got %v", err)
	}
}

// uncountedStore is a vector store without a Count method.
type uncountedStore struct{ rag.VectorStore }

func TestPrintIngestSummary(t *testing.T) {
	ctx := context.Background()
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer st.Close()

	k := st.Knowledge()
	if err := k.Insert(ctx, []domain.KnowledgeChunk{
		{ID: "a", Content: "gyokuro shading", Embedding: []float32{1, 0}},
		{ID: "b", Content: "theanine", Embedding: []float32{0, 1}},
	}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	res := ingestion.BulkResult{Documents: 1, Chunks: 2}

	var out bytes.Buffer
	if err := printIngestSummary(ctx, &out, k, res); err != nil {
		t.Fatalf("summary: %v", err)
	}
	want := "ingested 1 documents, 2 chunks (0 failed)\nknowledge base holds 2 chunks\n"
	if out.String() != want {
		t.Errorf("summary = %q, want %q", out.String(), want)
	}

	out.Reset()
	if err := printIngestSummary(ctx, &out, uncountedStore{}, res); err != nil {
		t.Fatalf("summary: %v", err)
	}
	if strings.Contains(out.String(), "knowledge base holds") {
		t.Errorf("store without Count reported a total: %q", out.String())
	}
}
