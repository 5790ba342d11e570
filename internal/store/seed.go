package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/54b3r/tealab-go/internal/catalog"
	"github.com/54b3r/tealab-go/internal/domain"
)

// seedConfidence is the confidence recorded for seeded tea effects.
const seedConfidence = 0.9

// SeedResult counts what Seed wrote. Skipped lists junction entries that
// referenced an unknown compound or effect.
type SeedResult struct {
	Compounds int
	Effects   int
	Teas      int
	Skipped   []string
}

// Seed upserts compounds and effects by name, then upserts each tea by name
// and rewrites its compound and effect junctions. It runs in one
// transaction, so a failure leaves the catalog unchanged.
func (s *Store) Seed(ctx context.Context, c *catalog.Catalog) (SeedResult, error) {
	var res SeedResult
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("store: seed: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const compoundQ = `
INSERT INTO compounds (name, chemical_formula, mechanism, half_life_minutes, safe_daily_limit_mg)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(name) DO UPDATE SET
    chemical_formula = excluded.chemical_formula,
    mechanism = excluded.mechanism,
    half_life_minutes = excluded.half_life_minutes,
    safe_daily_limit_mg = excluded.safe_daily_limit_mg`
	for _, cp := range c.Compounds {
		if _, err := tx.ExecContext(ctx, compoundQ, cp.Name, cp.ChemicalFormula, cp.Mechanism,
			cp.HalfLifeMinutes, cp.SafeDailyLimitMg); err != nil {
			return res, fmt.Errorf("store: seed compound %s: %w", cp.Name, err)
		}
		res.Compounds++
	}

	const effectQ = `
INSERT INTO effects (name, category, description, icon, onset_range_min, onset_range_max, duration_range_min, duration_range_max)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(name) DO UPDATE SET
    category = excluded.category,
    description = excluded.description,
    icon = excluded.icon,
    onset_range_min = excluded.onset_range_min,
    onset_range_max = excluded.onset_range_max,
    duration_range_min = excluded.duration_range_min,
    duration_range_max = excluded.duration_range_max`
	for _, e := range c.Effects {
		if _, err := tx.ExecContext(ctx, effectQ, e.Name, string(e.Category), e.Description, e.Icon,
			e.OnsetRangeMin, e.OnsetRangeMax, e.DurationRangeMin, e.DurationRangeMax); err != nil {
			return res, fmt.Errorf("store: seed effect %s: %w", e.Name, err)
		}
		res.Effects++
	}

	for _, t := range c.Teas {
		skipped, err := seedTea(ctx, tx, t)
		if err != nil {
			return res, err
		}
		res.Skipped = append(res.Skipped, skipped...)
		res.Teas++
	}

	if err := tx.Commit(); err != nil {
		return res, fmt.Errorf("store: seed: commit: %w", err)
	}
	return res, nil
}

func seedTea(ctx context.Context, tx *sql.Tx, t catalog.Tea) ([]string, error) {
	const teaQ = `
INSERT INTO teas (name, type, origin, description, price_per_oz)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(name) DO UPDATE SET
    type = excluded.type,
    origin = excluded.origin,
    description = excluded.description,
    price_per_oz = excluded.price_per_oz
RETURNING id`
	var teaID int64
	if err := tx.QueryRowContext(ctx, teaQ, t.Name, string(t.Type), t.Origin, t.Description, t.PricePerOz).Scan(&teaID); err != nil {
		return nil, fmt.Errorf("store: seed tea %s: %w", t.Name, err)
	}
	for _, q := range []string{`DELETE FROM tea_compounds WHERE tea_id = ?`, `DELETE FROM tea_effects WHERE tea_id = ?`} {
		if _, err := tx.ExecContext(ctx, q, teaID); err != nil {
			return nil, fmt.Errorf("store: seed tea %s: clear junctions: %w", t.Name, err)
		}
	}

	var skipped []string
	for _, name := range t.Compounds.Keys() {
		amount, _ := t.Compounds.Get(name)
		compoundID, err := lookupID(ctx, tx, "compounds", name)
		if errors.Is(err, sql.ErrNoRows) {
			skipped = append(skipped, fmt.Sprintf("%s: unknown compound %q", t.Name, name))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("store: seed tea %s: compound %s: %w", t.Name, name, err)
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO tea_compounds (tea_id, compound_id, amount_mg_per_cup, optimal_extraction_temp_c, optimal_steep_time_sec)
VALUES (?, ?, ?, ?, ?)`, teaID, compoundID, amount, t.Brewing.TempC, t.Brewing.TimeSec); err != nil {
			return nil, fmt.Errorf("store: seed tea %s: compound %s: %w", t.Name, name, err)
		}
	}

	for _, e := range t.Effects {
		effectID, err := lookupID(ctx, tx, "effects", e.Effect)
		if errors.Is(err, sql.ErrNoRows) {
			skipped = append(skipped, fmt.Sprintf("%s: unknown effect %q", t.Name, e.Effect))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("store: seed tea %s: effect %s: %w", t.Name, e.Effect, err)
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO tea_effects (tea_id, effect_id, intensity, onset_minutes, duration_minutes, confidence_score, data_source)
VALUES (?, ?, ?, ?, ?, ?, ?)`, teaID, effectID, e.Intensity, e.OnsetMinutes, e.DurationMinutes,
			seedConfidence, string(domain.SourceResearch)); err != nil {
			return nil, fmt.Errorf("store: seed tea %s: effect %s: %w", t.Name, e.Effect, err)
		}
	}
	return skipped, nil
}

// lookupID resolves a name in one of the name-keyed catalog tables.
func lookupID(ctx context.Context, tx *sql.Tx, table, name string) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, `SELECT id FROM `+table+` WHERE name = ? COLLATE NOCASE`, name).Scan(&id)
	return id, err
}
