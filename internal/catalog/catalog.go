// Package catalog loads the tea catalog seed data from disk and checks it
// for effect-timing consistency before it is written to the store.
//
// A catalog directory holds:
//
//	compounds.json   array of compounds
//	effects.json     array of effects, with onset/duration ranges
//	teas/*.json      arrays of teas with a compounds map, brewing block
//	                 and effects list
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/54b3r/tealab-go/internal/domain"
)

// Brewing is the recommended brewing block of a seed tea. Its temperature
// and time are recorded as the optimal extraction values of every compound.
type Brewing struct {
	TempC   int     `json:"temp_c"`
	TimeSec int     `json:"time_sec"`
	AmountG float64 `json:"amount_g"`
}

// TeaEffect is one effect entry of a seed tea.
type TeaEffect struct {
	Effect          string `json:"effect"`
	Intensity       int    `json:"intensity"`
	OnsetMinutes    int    `json:"onset_minutes"`
	DurationMinutes int    `json:"duration_minutes"`
}

// Tea is a seed tea as written in teas/*.json.
type Tea struct {
	Name        string                 `json:"name"`
	Type        domain.TeaType         `json:"type"`
	Origin      string                 `json:"origin,omitempty"`
	Description string                 `json:"description,omitempty"`
	PricePerOz  float64                `json:"price_per_oz,omitempty"`
	Compounds   domain.CompoundAmounts `json:"compounds"`
	Brewing     Brewing                `json:"brewing"`
	Effects     []TeaEffect            `json:"effects"`
}

// Catalog is the full seed data set.
type Catalog struct {
	Compounds []domain.Compound
	Effects   []domain.Effect
	Teas      []Tea
}

// LoadDir reads a catalog directory. Tea files are read in lexical order.
// A missing teas/ directory yields an empty tea list; missing compound or
// effect files are errors.
func LoadDir(dir string) (*Catalog, error) {
	var c Catalog
	if err := readJSON(filepath.Join(dir, "compounds.json"), &c.Compounds); err != nil {
		return nil, err
	}
	if err := readJSON(filepath.Join(dir, "effects.json"), &c.Effects); err != nil {
		return nil, err
	}

	files, err := filepath.Glob(filepath.Join(dir, "teas", "*.json"))
	if err != nil {
		return nil, fmt.Errorf("catalog: list tea files: %w", err)
	}
	sort.Strings(files)
	for _, f := range files {
		var teas []Tea
		if err := readJSON(f, &teas); err != nil {
			return nil, err
		}
		c.Teas = append(c.Teas, teas...)
	}

	if err := c.check(); err != nil {
		return nil, err
	}
	return &c, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("catalog: read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("catalog: decode %s: %w", path, err)
	}
	return nil
}

// check rejects records the store schema would refuse.
func (c *Catalog) check() error {
	var errs []error
	for i, e := range c.Effects {
		switch e.Category {
		case domain.CategoryMental, domain.CategoryPhysical, domain.CategoryEmotional:
		default:
			errs = append(errs, fmt.Errorf("effect %d (%s): unknown category %q", i, e.Name, e.Category))
		}
	}
	for _, t := range c.Teas {
		if strings.TrimSpace(t.Name) == "" {
			errs = append(errs, errors.New("tea with empty name"))
			continue
		}
		if !t.Type.Valid() {
			errs = append(errs, fmt.Errorf("tea %s: unknown type %q", t.Name, t.Type))
		}
		for _, e := range t.Effects {
			if e.Intensity < 1 || e.Intensity > 5 {
				errs = append(errs, fmt.Errorf("tea %s: effect %s: intensity %d outside 1-5", t.Name, e.Effect, e.Intensity))
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("catalog: %w", errors.Join(errs...))
	}
	return nil
}

// ValidateTimings reports every tea effect whose effect is missing from the
// catalog or whose onset or duration falls outside the effect's range.
func ValidateTimings(c *Catalog) []domain.TimingViolation {
	effects := make(map[string]domain.Effect, len(c.Effects))
	for _, e := range c.Effects {
		effects[e.Name] = e
	}

	var out []domain.TimingViolation
	for _, t := range c.Teas {
		for _, te := range t.Effects {
			meta, ok := effects[te.Effect]
			if !ok {
				out = append(out, domain.TimingViolation{Tea: t.Name, Effect: te.Effect, Issue: "missing effect metadata"})
				continue
			}
			out = append(out, domain.CheckTiming(t.Name, meta, te.OnsetMinutes, te.DurationMinutes)...)
		}
	}
	return out
}
