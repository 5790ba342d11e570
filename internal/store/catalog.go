package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/54b3r/tealab-go/internal/domain"
)

const effectColumns = `id, name, category, description, icon,
    onset_range_min, onset_range_max, duration_range_min, duration_range_max`

type scanner interface {
	Scan(dest ...any) error
}

func scanEffect(row scanner) (domain.Effect, error) {
	var e domain.Effect
	var category string
	err := row.Scan(&e.ID, &e.Name, &category, &e.Description, &e.Icon,
		&e.OnsetRangeMin, &e.OnsetRangeMax, &e.DurationRangeMin, &e.DurationRangeMax)
	e.Category = domain.EffectCategory(category)
	return e, err
}

// FindEffectByName returns the effect whose name matches case-insensitively.
func (s *Store) FindEffectByName(ctx context.Context, name string) (domain.Effect, error) {
	q := `SELECT ` + effectColumns + ` FROM effects WHERE name = ? COLLATE NOCASE`
	e, err := scanEffect(s.db.QueryRowContext(ctx, q, strings.TrimSpace(name)))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Effect{}, domain.NewNotFound("effect", name)
	}
	if err != nil {
		return domain.Effect{}, fmt.Errorf("store: find effect: %w", err)
	}
	return e, nil
}

// ListEffects returns every effect ordered by id.
func (s *Store) ListEffects(ctx context.Context) ([]domain.Effect, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+effectColumns+` FROM effects ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("store: list effects: %w", err)
	}
	defer rows.Close()

	var out []domain.Effect
	for rows.Next() {
		e, err := scanEffect(rows)
		if err != nil {
			return nil, fmt.Errorf("store: list effects scan: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list effects rows: %w", err)
	}
	return out, nil
}

// TeasForEffect returns the teas producing effectID with a junction
// intensity of at least minIntensity, strongest first. Ties keep tea id order.
func (s *Store) TeasForEffect(ctx context.Context, effectID int64, minIntensity int) ([]domain.TeaDetail, error) {
	const q = `
SELECT t.id, t.name, t.type, t.origin, t.description, t.price_per_oz
FROM   teas t
JOIN   tea_effects te ON te.tea_id = t.id
WHERE  te.effect_id = ? AND te.intensity >= ?
ORDER  BY te.intensity DESC, t.id ASC`

	teas, err := s.queryTeas(ctx, q, effectID, minIntensity)
	if err != nil {
		return nil, fmt.Errorf("store: teas for effect: %w", err)
	}
	return s.hydrate(ctx, teas)
}

// ListTeaDetails returns the full catalog ordered by id, or only the teas
// whose ids are listed when ids is non-empty.
func (s *Store) ListTeaDetails(ctx context.Context, ids []int64) ([]domain.TeaDetail, error) {
	q := `SELECT id, name, type, origin, description, price_per_oz FROM teas`
	var args []any
	if len(ids) > 0 {
		marks, idArgs := placeholders(ids)
		q += ` WHERE id IN (` + marks + `)`
		args = idArgs
	}
	q += ` ORDER BY id`

	teas, err := s.queryTeas(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list teas: %w", err)
	}
	return s.hydrate(ctx, teas)
}

func (s *Store) queryTeas(ctx context.Context, q string, args ...any) ([]domain.TeaDetail, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.TeaDetail
	for rows.Next() {
		var t domain.TeaDetail
		var typ string
		if err := rows.Scan(&t.ID, &t.Name, &typ, &t.Origin, &t.Description, &t.PricePerOz); err != nil {
			return nil, err
		}
		t.Type = domain.TeaType(typ)
		out = append(out, t)
	}
	return out, rows.Err()
}

// hydrate loads the compound and effect profiles of teas in two queries.
func (s *Store) hydrate(ctx context.Context, teas []domain.TeaDetail) ([]domain.TeaDetail, error) {
	if len(teas) == 0 {
		return teas, nil
	}
	index := make(map[int64]int, len(teas))
	ids := make([]int64, len(teas))
	for i, t := range teas {
		index[t.ID] = i
		ids[i] = t.ID
	}
	marks, args := placeholders(ids)

	compoundRows, err := s.db.QueryContext(ctx, `
SELECT tc.tea_id, c.id, c.name, c.chemical_formula, c.mechanism, c.half_life_minutes,
       c.safe_daily_limit_mg, tc.amount_mg_per_cup
FROM   tea_compounds tc
JOIN   compounds c ON c.id = tc.compound_id
WHERE  tc.tea_id IN (`+marks+`)
ORDER  BY tc.tea_id, c.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("store: load compounds: %w", err)
	}
	for compoundRows.Next() {
		var teaID int64
		var c domain.CompoundAmount
		if err := compoundRows.Scan(&teaID, &c.ID, &c.Name, &c.ChemicalFormula, &c.Mechanism,
			&c.HalfLifeMinutes, &c.SafeDailyLimitMg, &c.AmountMg); err != nil {
			compoundRows.Close()
			return nil, fmt.Errorf("store: load compounds scan: %w", err)
		}
		i := index[teaID]
		teas[i].Compounds = append(teas[i].Compounds, c)
	}
	if err := compoundRows.Err(); err != nil {
		compoundRows.Close()
		return nil, fmt.Errorf("store: load compounds rows: %w", err)
	}
	compoundRows.Close()

	effectRows, err := s.db.QueryContext(ctx, `
SELECT te.tea_id, e.id, e.name, e.category, e.description, e.icon,
       e.onset_range_min, e.onset_range_max, e.duration_range_min, e.duration_range_max,
       te.intensity, te.onset_minutes, te.duration_minutes, te.confidence_score, te.data_source
FROM   tea_effects te
JOIN   effects e ON e.id = te.effect_id
WHERE  te.tea_id IN (`+marks+`)
ORDER  BY te.tea_id, te.intensity DESC, e.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("store: load effects: %w", err)
	}
	defer effectRows.Close()
	for effectRows.Next() {
		var teaID int64
		var d domain.TeaEffectDetail
		var category, source string
		if err := effectRows.Scan(&teaID, &d.ID, &d.Name, &category, &d.Description, &d.Icon,
			&d.OnsetRangeMin, &d.OnsetRangeMax, &d.DurationRangeMin, &d.DurationRangeMax,
			&d.Intensity, &d.OnsetMinutes, &d.DurationMinutes, &d.ConfidenceScore, &source); err != nil {
			return nil, fmt.Errorf("store: load effects scan: %w", err)
		}
		d.Category = domain.EffectCategory(category)
		d.DataSource = domain.DataSource(source)
		i := index[teaID]
		teas[i].Effects = append(teas[i].Effects, d)
	}
	if err := effectRows.Err(); err != nil {
		return nil, fmt.Errorf("store: load effects rows: %w", err)
	}
	return teas, nil
}
