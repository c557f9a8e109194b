package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gobii-run/agentcore/evalrun"
	"github.com/gobii-run/agentcore/internal/idgen"
)

// EvalRunStore is the pgx-backed evalrun.Store implementation.
type EvalRunStore struct {
	Pool *pgxpool.Pool
}

// NewEvalRunStore wires an EvalRunStore against an already-connected pool.
func NewEvalRunStore(pool *pgxpool.Pool) *EvalRunStore {
	return &EvalRunStore{Pool: pool}
}

func (s *EvalRunStore) SuiteBySlug(ctx context.Context, slug string) (evalrun.EvalSuite, error) {
	row := s.Pool.QueryRow(ctx, `SELECT id, slug, scenarios FROM eval_suites WHERE slug = $1`, slug)
	var suite evalrun.EvalSuite
	var rawScenarios []byte
	if err := row.Scan(&suite.ID, &suite.Slug, &rawScenarios); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return evalrun.EvalSuite{}, fmt.Errorf("postgres: suite %q: %w", slug, pgx.ErrNoRows)
		}
		return evalrun.EvalSuite{}, fmt.Errorf("postgres: get suite: %w", err)
	}
	if err := json.Unmarshal(rawScenarios, &suite.Scenarios); err != nil {
		return evalrun.EvalSuite{}, fmt.Errorf("postgres: unmarshal scenarios: %w", err)
	}
	return suite, nil
}

func (s *EvalRunStore) CreateRun(ctx context.Context, r evalrun.EvalRun) (evalrun.EvalRun, error) {
	if r.ID == "" {
		r.ID = idgen.New("evr")
	}
	suiteSlugs, err := json.Marshal(r.SuiteSlugs)
	if err != nil {
		return evalrun.EvalRun{}, fmt.Errorf("postgres: marshal suite slugs: %w", err)
	}
	row := s.Pool.QueryRow(ctx, `
		INSERT INTO eval_runs (id, suite_slugs, scenario_slug, agent_id, agent_strategy, run_type, status)
		VALUES ($1, $2::jsonb, $3, $4, $5, $6, $7)
		RETURNING id, suite_slugs, scenario_slug, agent_id, agent_strategy, run_type, status, created_at, finished_at`,
		r.ID, suiteSlugs, r.ScenarioSlug, r.AgentID, r.AgentStrategy, r.RunType, r.Status,
	)
	created, err := scanEvalRun(row)
	if err != nil {
		return evalrun.EvalRun{}, fmt.Errorf("postgres: create eval run: %w", err)
	}
	return created, nil
}

func (s *EvalRunStore) CreateTasks(ctx context.Context, tasks []evalrun.EvalTask) ([]evalrun.EvalTask, error) {
	out := make([]evalrun.EvalTask, 0, len(tasks))
	for _, t := range tasks {
		if t.ID == "" {
			t.ID = idgen.New("evt")
		}
		row := s.Pool.QueryRow(ctx, `
			INSERT INTO eval_tasks (id, eval_run_id, suite_slug, scenario_slug, status, agent_id, detail)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id, eval_run_id, suite_slug, scenario_slug, status, agent_id, detail, started_at, finished_at`,
			t.ID, t.EvalRunID, t.SuiteSlug, t.ScenarioSlug, t.Status, t.AgentID, t.Detail,
		)
		created, err := scanEvalTask(row)
		if err != nil {
			return nil, fmt.Errorf("postgres: create eval task: %w", err)
		}
		out = append(out, created)
	}
	return out, nil
}

func (s *EvalRunStore) UpdateTaskStatus(ctx context.Context, taskID string, status evalrun.TaskStatus, detail string, at time.Time) (evalrun.EvalTask, error) {
	var startedExpr, finishedExpr string
	switch status {
	case evalrun.TaskStatusRunning:
		startedExpr = "$4"
	default:
		startedExpr = "started_at"
	}
	switch status {
	case evalrun.TaskStatusPassed, evalrun.TaskStatusFailed, evalrun.TaskStatusError:
		finishedExpr = "$4"
	default:
		finishedExpr = "finished_at"
	}
	row := s.Pool.QueryRow(ctx, fmt.Sprintf(`
		UPDATE eval_tasks SET status = $2, detail = $3, started_at = %s, finished_at = %s
		WHERE id = $1
		RETURNING id, eval_run_id, suite_slug, scenario_slug, status, agent_id, detail, started_at, finished_at`,
		startedExpr, finishedExpr),
		taskID, status, detail, at,
	)
	updated, err := scanEvalTask(row)
	if err != nil {
		return evalrun.EvalTask{}, fmt.Errorf("postgres: update eval task status: %w", err)
	}
	return updated, nil
}

func (s *EvalRunStore) GetRun(ctx context.Context, id string) (evalrun.EvalRun, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT id, suite_slugs, scenario_slug, agent_id, agent_strategy, run_type, status, created_at, finished_at
		FROM eval_runs WHERE id = $1`, id)
	r, err := scanEvalRun(row)
	if err != nil {
		return evalrun.EvalRun{}, fmt.Errorf("postgres: get eval run: %w", err)
	}
	return r, nil
}

func (s *EvalRunStore) TasksForRun(ctx context.Context, runID string) ([]evalrun.EvalTask, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, eval_run_id, suite_slug, scenario_slug, status, agent_id, detail, started_at, finished_at
		FROM eval_tasks WHERE eval_run_id = $1`, runID)
	if err != nil {
		return nil, fmt.Errorf("postgres: query eval tasks: %w", err)
	}
	defer rows.Close()

	var out []evalrun.EvalTask
	for rows.Next() {
		t, err := scanEvalTask(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan eval task: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *EvalRunStore) FinishRun(ctx context.Context, id string, at time.Time) (evalrun.EvalRun, error) {
	row := s.Pool.QueryRow(ctx, `
		UPDATE eval_runs SET status = $2, finished_at = $3 WHERE id = $1
		RETURNING id, suite_slugs, scenario_slug, agent_id, agent_strategy, run_type, status, created_at, finished_at`,
		id, evalrun.RunStatusDone, at,
	)
	r, err := scanEvalRun(row)
	if err != nil {
		return evalrun.EvalRun{}, fmt.Errorf("postgres: finish eval run: %w", err)
	}
	return r, nil
}

func (s *EvalRunStore) RunsOlderThan(ctx context.Context, cutoff time.Time) ([]evalrun.EvalRun, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, suite_slugs, scenario_slug, agent_id, agent_strategy, run_type, status, created_at, finished_at
		FROM eval_runs WHERE finished_at IS NOT NULL AND finished_at < $1`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("postgres: query old eval runs: %w", err)
	}
	defer rows.Close()

	var out []evalrun.EvalRun
	for rows.Next() {
		r, err := scanEvalRun(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan eval run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *EvalRunStore) DeleteRun(ctx context.Context, id string) error {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin delete eval run: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM eval_tasks WHERE eval_run_id = $1`, id); err != nil {
		return fmt.Errorf("postgres: delete eval tasks: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM eval_runs WHERE id = $1`, id); err != nil {
		return fmt.Errorf("postgres: delete eval run: %w", err)
	}
	return tx.Commit(ctx)
}

func scanEvalRun(row pgx.Row) (evalrun.EvalRun, error) {
	var r evalrun.EvalRun
	var rawSlugs []byte
	var finishedAt *time.Time
	if err := row.Scan(&r.ID, &rawSlugs, &r.ScenarioSlug, &r.AgentID, &r.AgentStrategy, &r.RunType, &r.Status, &r.CreatedAt, &finishedAt); err != nil {
		return evalrun.EvalRun{}, err
	}
	if err := json.Unmarshal(rawSlugs, &r.SuiteSlugs); err != nil {
		return evalrun.EvalRun{}, err
	}
	if finishedAt != nil {
		r.FinishedAt = *finishedAt
	}
	return r, nil
}

func scanEvalTask(row pgx.Row) (evalrun.EvalTask, error) {
	var t evalrun.EvalTask
	var startedAt, finishedAt *time.Time
	if err := row.Scan(&t.ID, &t.EvalRunID, &t.SuiteSlug, &t.ScenarioSlug, &t.Status, &t.AgentID, &t.Detail, &startedAt, &finishedAt); err != nil {
		return evalrun.EvalTask{}, err
	}
	if startedAt != nil {
		t.StartedAt = *startedAt
	}
	if finishedAt != nil {
		t.FinishedAt = *finishedAt
	}
	return t, nil
}
