package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/54b3r/tealab-go/internal/domain"
)

// InsertBlend persists b and returns it with its id and timestamps set.
func (s *Store) InsertBlend(ctx context.Context, b domain.Blend) (domain.Blend, error) {
	targets := b.TargetEffects
	if targets == nil {
		targets = []string{}
	}
	targetsJSON, err := json.Marshal(targets)
	if err != nil {
		return domain.Blend{}, fmt.Errorf("store: insert blend: %w", err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	const q = `
INSERT INTO blends (user_id, name, description, target_effects, is_public, times_favorited, avg_rating, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id`
	err = s.db.QueryRowContext(ctx, q, b.UserID, b.Name, b.Description, string(targetsJSON),
		b.IsPublic, b.TimesFavorited, b.AvgRating, now.Unix(), now.Unix()).Scan(&b.ID)
	if err != nil {
		return domain.Blend{}, fmt.Errorf("store: insert blend: %w", err)
	}
	b.TargetEffects = targets
	b.CreatedAt = now
	b.UpdatedAt = now
	return b, nil
}

// InsertBlendComponent persists c and returns it with its id set.
func (s *Store) InsertBlendComponent(ctx context.Context, c domain.BlendComponent) (domain.BlendComponent, error) {
	const q = `
INSERT INTO blend_components (blend_id, tea_id, ratio, steep_time_sec, steep_temp_c, notes, order_added)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING id`
	err := s.db.QueryRowContext(ctx, q, c.BlendID, c.TeaID, c.Ratio, c.SteepTimeSec,
		c.SteepTempC, c.Notes, c.OrderAdded).Scan(&c.ID)
	if err != nil {
		return domain.BlendComponent{}, fmt.Errorf("store: insert blend component: %w", err)
	}
	return c, nil
}

// ReplacePredictedEffects discards the stored predictions of blendID and
// writes effects in their place, in one transaction.
func (s *Store) ReplacePredictedEffects(ctx context.Context, blendID int64, effects []domain.BlendPredictedEffect) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: replace predicted effects: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM blend_predicted_effects WHERE blend_id = ?`, blendID); err != nil {
		return fmt.Errorf("store: replace predicted effects: delete: %w", err)
	}

	const q = `
INSERT INTO blend_predicted_effects (blend_id, effect_id, predicted_intensity, total_compound_mg, calculated_at)
VALUES (?, ?, ?, ?, ?)`
	now := time.Now().UTC().Unix()
	for _, e := range effects {
		totals, err := json.Marshal(e.TotalCompoundMg)
		if err != nil {
			return fmt.Errorf("store: replace predicted effects: encode %s: %w", e.EffectName, err)
		}
		if _, err := tx.ExecContext(ctx, q, blendID, e.EffectID, e.PredictedIntensity, string(totals), now); err != nil {
			return fmt.Errorf("store: replace predicted effects: insert %s: %w", e.EffectName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: replace predicted effects: commit: %w", err)
	}
	return nil
}

// PredictedEffects returns the stored predictions of blendID, strongest
// first.
func (s *Store) PredictedEffects(ctx context.Context, blendID int64) ([]domain.BlendPredictedEffect, error) {
	const q = `
SELECT p.blend_id, p.effect_id, e.name, p.predicted_intensity, p.total_compound_mg, p.calculated_at
FROM   blend_predicted_effects p
JOIN   effects e ON e.id = p.effect_id
WHERE  p.blend_id = ?
ORDER  BY p.predicted_intensity DESC, e.id`

	rows, err := s.db.QueryContext(ctx, q, blendID)
	if err != nil {
		return nil, fmt.Errorf("store: predicted effects: %w", err)
	}
	defer rows.Close()

	var out []domain.BlendPredictedEffect
	for rows.Next() {
		var p domain.BlendPredictedEffect
		var totals string
		var ts int64
		if err := rows.Scan(&p.BlendID, &p.EffectID, &p.EffectName, &p.PredictedIntensity, &totals, &ts); err != nil {
			return nil, fmt.Errorf("store: predicted effects scan: %w", err)
		}
		if err := json.Unmarshal([]byte(totals), &p.TotalCompoundMg); err != nil {
			return nil, fmt.Errorf("store: predicted effects decode: %w", err)
		}
		p.CalculatedAt = time.Unix(ts, 0).UTC()
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: predicted effects rows: %w", err)
	}
	return out, nil
}

// GetBlend returns the blend with its components in insertion order.
func (s *Store) GetBlend(ctx context.Context, id int64) (*domain.BlendWithComponents, error) {
	const q = `
SELECT id, user_id, name, description, target_effects, is_public, times_favorited, avg_rating, created_at, updated_at
FROM   blends WHERE id = ?`

	var b domain.BlendWithComponents
	var targets string
	var rating sql.NullFloat64
	var created, updated int64
	err := s.db.QueryRowContext(ctx, q, id).Scan(&b.ID, &b.UserID, &b.Name, &b.Description, &targets,
		&b.IsPublic, &b.TimesFavorited, &rating, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFound("blend", strconv.FormatInt(id, 10))
	}
	if err != nil {
		return nil, fmt.Errorf("store: get blend: %w", err)
	}
	if err := json.Unmarshal([]byte(targets), &b.TargetEffects); err != nil {
		return nil, fmt.Errorf("store: get blend: decode targets: %w", err)
	}
	if rating.Valid {
		b.AvgRating = &rating.Float64
	}
	b.CreatedAt = time.Unix(created, 0).UTC()
	b.UpdatedAt = time.Unix(updated, 0).UTC()

	const cq = `
SELECT bc.id, bc.blend_id, bc.tea_id, t.name, bc.ratio, bc.steep_time_sec, bc.steep_temp_c, bc.notes, bc.order_added
FROM   blend_components bc
JOIN   teas t ON t.id = bc.tea_id
WHERE  bc.blend_id = ?
ORDER  BY bc.order_added, bc.id`
	rows, err := s.db.QueryContext(ctx, cq, id)
	if err != nil {
		return nil, fmt.Errorf("store: get blend components: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var c domain.BlendComponent
		if err := rows.Scan(&c.ID, &c.BlendID, &c.TeaID, &c.TeaName, &c.Ratio,
			&c.SteepTimeSec, &c.SteepTempC, &c.Notes, &c.OrderAdded); err != nil {
			return nil, fmt.Errorf("store: get blend components scan: %w", err)
		}
		b.Components = append(b.Components, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: get blend components rows: %w", err)
	}
	return &b, nil
}
