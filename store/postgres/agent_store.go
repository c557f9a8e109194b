package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gobii-run/agentcore/agent"
	"github.com/gobii-run/agentcore/internal/idgen"
)

// AgentStore is the pgx-backed agent.Store implementation.
type AgentStore struct {
	Pool *pgxpool.Pool
}

// NewAgentStore wires an AgentStore against an already-connected pool.
func NewAgentStore(pool *pgxpool.Pool) *AgentStore {
	return &AgentStore{Pool: pool}
}

const agentColumns = `id, owner_id, charter, schedule, life_state, is_active,
	preferred_contact_endpoint_id, daily_credit_soft_target, preferred_tier,
	last_interaction_at, last_proactive_trigger_at, last_expired_at,
	sent_expiration_email, schedule_snapshot, proactive_opt_in,
	proactive_min_interval_min, proactive_max_daily, created_at, updated_at`

func scanAgent(row pgx.Row) (agent.Agent, error) {
	var a agent.Agent
	var lastInteraction, lastProactive, lastExpired *time.Time
	if err := row.Scan(
		&a.ID, &a.OwnerID, &a.Charter, &a.Schedule, &a.LifeState, &a.IsActive,
		&a.PreferredContactEndpointID, &a.DailyCreditSoftTarget, &a.PreferredTier,
		&lastInteraction, &lastProactive, &lastExpired,
		&a.SentExpirationEmail, &a.ScheduleSnapshot, &a.ProactiveOptIn,
		&a.ProactiveMinIntervalMin, &a.ProactiveMaxDaily, &a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return agent.Agent{}, err
	}
	if lastInteraction != nil {
		a.LastInteractionAt = *lastInteraction
	}
	if lastProactive != nil {
		a.LastProactiveTriggerAt = *lastProactive
	}
	if lastExpired != nil {
		a.LastExpiredAt = *lastExpired
	}
	return a, nil
}

func (s *AgentStore) Get(ctx context.Context, id string) (agent.Agent, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+agentColumns+` FROM agents WHERE id = $1`, id)
	a, err := scanAgent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return agent.Agent{}, agent.ErrNotFound
	}
	if err != nil {
		return agent.Agent{}, fmt.Errorf("postgres: get agent: %w", err)
	}
	return a, nil
}

func (s *AgentStore) Create(ctx context.Context, a agent.Agent) (agent.Agent, error) {
	if err := a.Validate(); err != nil {
		return agent.Agent{}, err
	}
	if a.ID == "" {
		a.ID = idgen.New(idgen.PrefixAgent)
	}
	row := s.Pool.QueryRow(ctx, `
		INSERT INTO agents (id, owner_id, charter, schedule, life_state, is_active,
			preferred_contact_endpoint_id, daily_credit_soft_target, preferred_tier,
			proactive_opt_in, proactive_min_interval_min, proactive_max_daily)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING `+agentColumns,
		a.ID, a.OwnerID, a.Charter, a.Schedule, a.LifeState, a.IsActive,
		a.PreferredContactEndpointID, a.DailyCreditSoftTarget, a.PreferredTier,
		a.ProactiveOptIn, a.ProactiveMinIntervalMin, a.ProactiveMaxDaily,
	)
	created, err := scanAgent(row)
	if err != nil {
		return agent.Agent{}, fmt.Errorf("postgres: create agent: %w", err)
	}
	return created, nil
}

// UpdateLoopFields mirrors the in-memory store's write semantics exactly:
// timestamp fields only overwrite when non-zero, Schedule/ScheduleSnapshot
// and SentExpirationEmail are written unconditionally, and a LifeState
// transition is validated before the UPDATE commits.
func (s *AgentStore) UpdateLoopFields(ctx context.Context, id string, fields agent.LoopFields, expectedUpdatedAt time.Time) (agent.Agent, error) {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return agent.Agent{}, fmt.Errorf("postgres: begin update: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `SELECT `+agentColumns+` FROM agents WHERE id = $1 FOR UPDATE`, id)
	current, err := scanAgent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return agent.Agent{}, agent.ErrNotFound
	}
	if err != nil {
		return agent.Agent{}, fmt.Errorf("postgres: load agent for update: %w", err)
	}
	if !expectedUpdatedAt.IsZero() && !current.UpdatedAt.Equal(expectedUpdatedAt) {
		return agent.Agent{}, agent.ErrConcurrentUpdate
	}

	next := current
	if !fields.LastInteractionAt.IsZero() {
		next.LastInteractionAt = fields.LastInteractionAt
	}
	if !fields.LastProactiveTriggerAt.IsZero() {
		next.LastProactiveTriggerAt = fields.LastProactiveTriggerAt
	}
	if fields.LifeState != "" {
		if !current.CanTransition(fields.LifeState) {
			return agent.Agent{}, agent.ErrInvalidTransition
		}
		next.LifeState = fields.LifeState
	}
	next.ScheduleSnapshot = fields.ScheduleSnapshot
	next.Schedule = fields.Schedule
	if !fields.LastExpiredAt.IsZero() {
		next.LastExpiredAt = fields.LastExpiredAt
	}
	next.SentExpirationEmail = fields.SentExpirationEmail
	if err := next.Validate(); err != nil {
		return agent.Agent{}, err
	}

	row = tx.QueryRow(ctx, `
		UPDATE agents SET
			last_interaction_at = $2, last_proactive_trigger_at = $3, life_state = $4,
			schedule_snapshot = $5, schedule = $6, last_expired_at = $7,
			sent_expiration_email = $8, updated_at = now()
		WHERE id = $1
		RETURNING `+agentColumns,
		id, nullTime(next.LastInteractionAt), nullTime(next.LastProactiveTriggerAt), next.LifeState,
		next.ScheduleSnapshot, next.Schedule, nullTime(next.LastExpiredAt), next.SentExpirationEmail,
	)
	updated, err := scanAgent(row)
	if err != nil {
		return agent.Agent{}, fmt.Errorf("postgres: update agent: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return agent.Agent{}, fmt.Errorf("postgres: commit update: %w", err)
	}
	return updated, nil
}

// ApplyOperatorWrite mutates the agent row and appends a SYSTEM_DIRECTIVE
// SystemStep within the same transaction (spec §5 "operator writes").
func (s *AgentStore) ApplyOperatorWrite(ctx context.Context, id string, mutate func(*agent.Agent) error) (agent.Agent, error) {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return agent.Agent{}, fmt.Errorf("postgres: begin operator write: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `SELECT `+agentColumns+` FROM agents WHERE id = $1 FOR UPDATE`, id)
	a, err := scanAgent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return agent.Agent{}, agent.ErrNotFound
	}
	if err != nil {
		return agent.Agent{}, fmt.Errorf("postgres: load agent for operator write: %w", err)
	}

	if err := mutate(&a); err != nil {
		return agent.Agent{}, err
	}
	if err := a.Validate(); err != nil {
		return agent.Agent{}, err
	}

	row = tx.QueryRow(ctx, `
		UPDATE agents SET
			charter = $2, schedule = $3, life_state = $4, preferred_contact_endpoint_id = $5,
			daily_credit_soft_target = $6, preferred_tier = $7, proactive_opt_in = $8,
			proactive_min_interval_min = $9, proactive_max_daily = $10, updated_at = now()
		WHERE id = $1
		RETURNING `+agentColumns,
		id, a.Charter, a.Schedule, a.LifeState, a.PreferredContactEndpointID,
		a.DailyCreditSoftTarget, a.PreferredTier, a.ProactiveOptIn,
		a.ProactiveMinIntervalMin, a.ProactiveMaxDaily,
	)
	updated, err := scanAgent(row)
	if err != nil {
		return agent.Agent{}, fmt.Errorf("postgres: apply operator write: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO system_steps (id, agent_id, code, notes) VALUES ($1, $2, $3, '{}'::jsonb)`,
		idgen.New(idgen.PrefixSystemStep), id, agent.SystemStepSystemDirective,
	); err != nil {
		return agent.Agent{}, fmt.Errorf("postgres: record operator directive: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return agent.Agent{}, fmt.Errorf("postgres: commit operator write: %w", err)
	}
	return updated, nil
}

func (s *AgentStore) ProactiveCandidates(ctx context.Context, filter agent.ProactiveCandidateFilter) ([]agent.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents
		WHERE life_state = 'ACTIVE' AND proactive_opt_in`
	args := []any{}
	if filter.OwnerID != "" {
		args = append(args, filter.OwnerID)
		query += fmt.Sprintf(" AND owner_id = $%d", len(args))
	}
	query += ` ORDER BY last_proactive_trigger_at ASC NULLS FIRST, last_interaction_at ASC NULLS FIRST, created_at ASC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	return s.queryAgents(ctx, query, args...)
}

func (s *AgentStore) ExpirationCandidates(ctx context.Context, filter agent.ExpirationCandidateFilter) ([]agent.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents
		WHERE life_state = 'ACTIVE' AND schedule <> ''
			AND (last_interaction_at IS NULL OR last_interaction_at <= $1)
		ORDER BY last_interaction_at ASC NULLS FIRST`
	args := []any{filter.InactiveBefore}
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	return s.queryAgents(ctx, query, args...)
}

func (s *AgentStore) ActiveScheduled(ctx context.Context) ([]agent.Agent, error) {
	return s.queryAgents(ctx, `SELECT `+agentColumns+` FROM agents
		WHERE life_state = 'ACTIVE' AND schedule <> '' ORDER BY id ASC`)
}

func (s *AgentStore) queryAgents(ctx context.Context, query string, args ...any) ([]agent.Agent, error) {
	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: query agents: %w", err)
	}
	defer rows.Close()

	var out []agent.Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan agent: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *AgentStore) AppendStep(ctx context.Context, step agent.Step, calls []agent.ToolCall) (agent.Step, error) {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return agent.Step{}, fmt.Errorf("postgres: begin append step: %w", err)
	}
	defer tx.Rollback(ctx)

	if step.ID == "" {
		step.ID = idgen.New(idgen.PrefixStep)
	}
	row := tx.QueryRow(ctx, `
		INSERT INTO steps (id, agent_id, description, credit_cost, eval_run_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, agent_id, description, credit_cost, eval_run_id, created_at`,
		step.ID, step.AgentID, step.Description, step.CreditCost, step.EvalRunID,
	)
	if err := row.Scan(&step.ID, &step.AgentID, &step.Description, &step.CreditCost, &step.EvalRunID, &step.CreatedAt); err != nil {
		return agent.Step{}, fmt.Errorf("postgres: insert step: %w", err)
	}

	for i, call := range calls {
		if call.ID == "" {
			call.ID = idgen.New(idgen.PrefixToolCall)
		}
		params, err := json.Marshal(call.Params)
		if err != nil {
			return agent.Step{}, fmt.Errorf("postgres: marshal tool call params: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO tool_calls (id, step_id, tool_name, params, raw_result_text, ordinal, created_at)
			VALUES ($1, $2, $3, $4::jsonb, $5, $6, $7)`,
			call.ID, step.ID, call.ToolName, params, call.RawResultText, i, step.CreatedAt,
		); err != nil {
			return agent.Step{}, fmt.Errorf("postgres: insert tool call: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return agent.Step{}, fmt.Errorf("postgres: commit append step: %w", err)
	}
	return step, nil
}

func (s *AgentStore) AppendSystemStep(ctx context.Context, ss agent.SystemStep) (agent.SystemStep, error) {
	if ss.ID == "" {
		ss.ID = idgen.New(idgen.PrefixSystemStep)
	}
	notes, err := json.Marshal(ss.Notes)
	if err != nil {
		return agent.SystemStep{}, fmt.Errorf("postgres: marshal system step notes: %w", err)
	}
	row := s.Pool.QueryRow(ctx, `
		INSERT INTO system_steps (id, agent_id, code, notes, step_id)
		VALUES ($1, $2, $3, $4::jsonb, $5)
		RETURNING id, agent_id, code, notes, step_id, created_at`,
		ss.ID, ss.AgentID, ss.Code, notes, ss.StepID,
	)
	var rawNotes []byte
	if err := row.Scan(&ss.ID, &ss.AgentID, &ss.Code, &rawNotes, &ss.StepID, &ss.Created); err != nil {
		return agent.SystemStep{}, fmt.Errorf("postgres: insert system step: %w", err)
	}
	if len(rawNotes) > 0 {
		if err := json.Unmarshal(rawNotes, &ss.Notes); err != nil {
			return agent.SystemStep{}, fmt.Errorf("postgres: unmarshal system step notes: %w", err)
		}
	}
	return ss, nil
}

func (s *AgentStore) StepsOnLocalDay(ctx context.Context, agentID string, day time.Time, loc *time.Location) ([]agent.Step, error) {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := day.In(loc).Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 1)

	rows, err := s.Pool.Query(ctx, `
		SELECT id, agent_id, description, credit_cost, eval_run_id, created_at
		FROM steps WHERE agent_id = $1 AND created_at >= $2 AND created_at < $3
		ORDER BY created_at ASC`, agentID, start, end)
	if err != nil {
		return nil, fmt.Errorf("postgres: query steps on local day: %w", err)
	}
	defer rows.Close()

	var out []agent.Step
	for rows.Next() {
		var st agent.Step
		if err := rows.Scan(&st.ID, &st.AgentID, &st.Description, &st.CreditCost, &st.EvalRunID, &st.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan step: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *AgentStore) PendingSystemSteps(ctx context.Context, agentID string, code agent.SystemStepCode) ([]agent.SystemStep, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, agent_id, code, notes, step_id, created_at
		FROM system_steps WHERE agent_id = $1 AND code = $2 AND NOT consumed
		ORDER BY created_at DESC`, agentID, code)
	if err != nil {
		return nil, fmt.Errorf("postgres: query pending system steps: %w", err)
	}
	defer rows.Close()

	var out []agent.SystemStep
	for rows.Next() {
		var ss agent.SystemStep
		var rawNotes []byte
		if err := rows.Scan(&ss.ID, &ss.AgentID, &ss.Code, &rawNotes, &ss.StepID, &ss.Created); err != nil {
			return nil, fmt.Errorf("postgres: scan system step: %w", err)
		}
		if len(rawNotes) > 0 {
			if err := json.Unmarshal(rawNotes, &ss.Notes); err != nil {
				return nil, fmt.Errorf("postgres: unmarshal system step notes: %w", err)
			}
		}
		out = append(out, ss)
	}
	return out, rows.Err()
}

func (s *AgentStore) ConsumeSystemSteps(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := s.Pool.Exec(ctx, `UPDATE system_steps SET consumed = true WHERE id = ANY($1)`, ids); err != nil {
		return fmt.Errorf("postgres: consume system steps: %w", err)
	}
	return nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
