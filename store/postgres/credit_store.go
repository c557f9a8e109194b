package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gobii-run/agentcore/credit"
)

// CreditConfigStore persists per-plan overrides of credit.Resolve's
// built-in defaults table (spec §3 DailyCreditConfig), for operators to
// tune soft-target bounds, burn-rate thresholds, and per-tool limits
// without a deploy.
type CreditConfigStore struct {
	Pool *pgxpool.Pool
}

// NewCreditConfigStore wires a CreditConfigStore against an
// already-connected pool.
func NewCreditConfigStore(pool *pgxpool.Pool) *CreditConfigStore {
	return &CreditConfigStore{Pool: pool}
}

// Resolve returns the override row for plan if one exists, else falls back
// to credit.Resolve's built-in defaults — the same two-tier lookup
// package credit documents for its own Resolve function.
func (s *CreditConfigStore) Resolve(ctx context.Context, plan credit.PlanKey) (credit.DailyCreditConfig, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT plan, soft_target_min, soft_target_max, burn_rate_threshold,
			burn_rate_window_minutes, hard_limit_multiplier, tools, browser_max_tasks_per_day
		FROM daily_credit_config_overrides WHERE plan = $1`, plan)

	var cfg credit.DailyCreditConfig
	var rawTools []byte
	var maxTasksPerDay int
	err := row.Scan(&cfg.Plan, &cfg.SoftTargetMin, &cfg.SoftTargetMax, &cfg.BurnRateThreshold,
		&cfg.BurnRateWindowMinutes, &cfg.HardLimitMultiplier, &rawTools, &maxTasksPerDay)
	if errors.Is(err, pgx.ErrNoRows) {
		return credit.Resolve(plan), nil
	}
	if err != nil {
		return credit.DailyCreditConfig{}, fmt.Errorf("postgres: resolve credit config override: %w", err)
	}
	if err := json.Unmarshal(rawTools, &cfg.Tools); err != nil {
		return credit.DailyCreditConfig{}, fmt.Errorf("postgres: unmarshal tool configs: %w", err)
	}
	cfg.Browser.MaxTasksPerDay = maxTasksPerDay
	return cfg, nil
}

// Exists reports whether an operator override row already exists for plan,
// distinguishing "no override yet, Resolve is using the built-in default"
// from "an override was already seeded" for idempotent seeding commands.
func (s *CreditConfigStore) Exists(ctx context.Context, plan credit.PlanKey) (bool, error) {
	var exists bool
	err := s.Pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM daily_credit_config_overrides WHERE plan = $1)`, plan,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("postgres: check credit config override existence: %w", err)
	}
	return exists, nil
}

// Upsert stores an operator override for plan.
func (s *CreditConfigStore) Upsert(ctx context.Context, cfg credit.DailyCreditConfig) error {
	tools, err := json.Marshal(cfg.Tools)
	if err != nil {
		return fmt.Errorf("postgres: marshal tool configs: %w", err)
	}
	_, err = s.Pool.Exec(ctx, `
		INSERT INTO daily_credit_config_overrides (plan, soft_target_min, soft_target_max,
			burn_rate_threshold, burn_rate_window_minutes, hard_limit_multiplier, tools,
			browser_max_tasks_per_day)
		VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8)
		ON CONFLICT (plan) DO UPDATE SET
			soft_target_min = EXCLUDED.soft_target_min,
			soft_target_max = EXCLUDED.soft_target_max,
			burn_rate_threshold = EXCLUDED.burn_rate_threshold,
			burn_rate_window_minutes = EXCLUDED.burn_rate_window_minutes,
			hard_limit_multiplier = EXCLUDED.hard_limit_multiplier,
			tools = EXCLUDED.tools,
			browser_max_tasks_per_day = EXCLUDED.browser_max_tasks_per_day`,
		cfg.Plan, cfg.SoftTargetMin, cfg.SoftTargetMax, cfg.BurnRateThreshold,
		cfg.BurnRateWindowMinutes, cfg.HardLimitMultiplier, tools, cfg.Browser.MaxTasksPerDay,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert credit config override: %w", err)
	}
	return nil
}
