package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gobii-run/agentcore/compute"
	"github.com/gobii-run/agentcore/internal/idgen"
)

// ComputeStore is the pgx-backed compute.Store implementation.
type ComputeStore struct {
	Pool *pgxpool.Pool
}

// NewComputeStore wires a ComputeStore against an already-connected pool.
func NewComputeStore(pool *pgxpool.Pool) *ComputeStore {
	return &ComputeStore{Pool: pool}
}

func (s *ComputeStore) Get(ctx context.Context, agentID string) (compute.ComputeSession, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT agent_id, state, pod_name, pvc_name, last_activity_at, created_at
		FROM compute_sessions WHERE agent_id = $1`, agentID)
	cs, err := scanComputeSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return compute.ComputeSession{}, compute.ErrNotFound
	}
	if err != nil {
		return compute.ComputeSession{}, fmt.Errorf("postgres: get compute session: %w", err)
	}
	return cs, nil
}

func (s *ComputeStore) Upsert(ctx context.Context, cs compute.ComputeSession) (compute.ComputeSession, error) {
	if cs.ID == "" {
		cs.ID = idgen.New("cps")
	}
	row := s.Pool.QueryRow(ctx, `
		INSERT INTO compute_sessions (agent_id, state, pod_name, pvc_name, last_activity_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (agent_id) DO UPDATE SET
			state = EXCLUDED.state, pod_name = EXCLUDED.pod_name,
			pvc_name = EXCLUDED.pvc_name, last_activity_at = EXCLUDED.last_activity_at,
			updated_at = now()
		RETURNING agent_id, state, pod_name, pvc_name, last_activity_at, created_at`,
		cs.AgentID, cs.State, cs.PodName, cs.WorkspacePVC, nullTime(cs.LastActivityAt),
	)
	updated, err := scanComputeSession(row)
	if err != nil {
		return compute.ComputeSession{}, fmt.Errorf("postgres: upsert compute session: %w", err)
	}
	updated.ID = cs.ID
	return updated, nil
}

func (s *ComputeStore) IdleBefore(ctx context.Context, cutoff time.Time) ([]compute.ComputeSession, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT agent_id, state, pod_name, pvc_name, last_activity_at, created_at
		FROM compute_sessions WHERE state = 'RUNNING' AND last_activity_at < $1`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("postgres: query idle compute sessions: %w", err)
	}
	defer rows.Close()

	var out []compute.ComputeSession
	for rows.Next() {
		cs, err := scanComputeSession(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan compute session: %w", err)
		}
		out = append(out, cs)
	}
	return out, rows.Err()
}

func scanComputeSession(row pgx.Row) (compute.ComputeSession, error) {
	var cs compute.ComputeSession
	var lastActivity *time.Time
	if err := row.Scan(&cs.AgentID, &cs.State, &cs.PodName, &cs.WorkspacePVC, &lastActivity, &cs.CreatedAt); err != nil {
		return compute.ComputeSession{}, err
	}
	if lastActivity != nil {
		cs.LastActivityAt = *lastActivity
	}
	return cs, nil
}
