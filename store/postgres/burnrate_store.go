package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gobii-run/agentcore/burnrate"
	"github.com/gobii-run/agentcore/internal/idgen"
)

// BurnRateStore is the pgx-backed burnrate.Store implementation.
type BurnRateStore struct {
	Pool *pgxpool.Pool
}

// NewBurnRateStore wires a BurnRateStore against an already-connected pool.
func NewBurnRateStore(pool *pgxpool.Pool) *BurnRateStore {
	return &BurnRateStore{Pool: pool}
}

func (s *BurnRateStore) Upsert(ctx context.Context, snap burnrate.BurnRateSnapshot) (burnrate.BurnRateSnapshot, error) {
	if snap.ID == "" {
		snap.ID = idgen.New("snap")
	}
	row := s.Pool.QueryRow(ctx, `
		INSERT INTO burn_rate_snapshots (id, scope_type, scope_id, window_minutes,
			total_credit_cost, projected_per_hour, projected_per_day, computed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (scope_type, scope_id, window_minutes) DO UPDATE SET
			total_credit_cost = EXCLUDED.total_credit_cost,
			projected_per_hour = EXCLUDED.projected_per_hour,
			projected_per_day = EXCLUDED.projected_per_day,
			computed_at = EXCLUDED.computed_at
		RETURNING id, scope_type, scope_id, window_minutes, total_credit_cost,
			projected_per_hour, projected_per_day, computed_at`,
		snap.ID, snap.ScopeType, snap.ScopeID, snap.WindowMinutes,
		snap.TotalCreditCost, snap.ProjectedPerHour, snap.ProjectedPerDay, snap.ComputedAt,
	)
	updated, err := scanBurnRateSnapshot(row)
	if err != nil {
		return burnrate.BurnRateSnapshot{}, fmt.Errorf("postgres: upsert burn rate snapshot: %w", err)
	}
	return updated, nil
}

func (s *BurnRateStore) Get(ctx context.Context, scope burnrate.ScopeType, scopeID string, windowMinutes int) (burnrate.BurnRateSnapshot, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT id, scope_type, scope_id, window_minutes, total_credit_cost,
			projected_per_hour, projected_per_day, computed_at
		FROM burn_rate_snapshots WHERE scope_type = $1 AND scope_id = $2 AND window_minutes = $3`,
		scope, scopeID, windowMinutes)
	snap, err := scanBurnRateSnapshot(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return burnrate.BurnRateSnapshot{}, burnrate.ErrNotFound
	}
	if err != nil {
		return burnrate.BurnRateSnapshot{}, fmt.Errorf("postgres: get burn rate snapshot: %w", err)
	}
	return snap, nil
}

func scanBurnRateSnapshot(row pgx.Row) (burnrate.BurnRateSnapshot, error) {
	var snap burnrate.BurnRateSnapshot
	if err := row.Scan(&snap.ID, &snap.ScopeType, &snap.ScopeID, &snap.WindowMinutes,
		&snap.TotalCreditCost, &snap.ProjectedPerHour, &snap.ProjectedPerDay, &snap.ComputedAt); err != nil {
		return burnrate.BurnRateSnapshot{}, err
	}
	return snap, nil
}
