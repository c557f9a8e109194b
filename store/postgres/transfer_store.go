package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gobii-run/agentcore/transfer"
)

// TransferStore is the pgx-backed transfer.Store implementation.
type TransferStore struct {
	Pool *pgxpool.Pool
}

// NewTransferStore wires a TransferStore against an already-connected pool.
func NewTransferStore(pool *pgxpool.Pool) *TransferStore {
	return &TransferStore{Pool: pool}
}

func (s *TransferStore) Create(ctx context.Context, inv transfer.TransferInvite) (transfer.TransferInvite, error) {
	row := s.Pool.QueryRow(ctx, `
		INSERT INTO transfer_invites (id, agent_id, from_owner_id, to_email, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, agent_id, from_owner_id, to_email, status, created_at, resolved_at`,
		inv.ID, inv.AgentID, inv.FromOwnerID, inv.ToEmail, inv.Status,
	)
	created, err := scanTransferInvite(row)
	if err != nil {
		return transfer.TransferInvite{}, fmt.Errorf("postgres: create transfer invite: %w", err)
	}
	return created, nil
}

func (s *TransferStore) Get(ctx context.Context, id string) (transfer.TransferInvite, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT id, agent_id, from_owner_id, to_email, status, created_at, resolved_at
		FROM transfer_invites WHERE id = $1`, id)
	inv, err := scanTransferInvite(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return transfer.TransferInvite{}, transfer.ErrNotFound
	}
	if err != nil {
		return transfer.TransferInvite{}, fmt.Errorf("postgres: get transfer invite: %w", err)
	}
	return inv, nil
}

func (s *TransferStore) Resolve(ctx context.Context, id string, next transfer.Status, at time.Time) (transfer.TransferInvite, error) {
	row := s.Pool.QueryRow(ctx, `
		UPDATE transfer_invites SET status = $2, resolved_at = $3
		WHERE id = $1 AND status = $4
		RETURNING id, agent_id, from_owner_id, to_email, status, created_at, resolved_at`,
		id, next, at, transfer.StatusPending,
	)
	resolved, err := scanTransferInvite(row)
	if errors.Is(err, pgx.ErrNoRows) {
		if _, getErr := s.Get(ctx, id); getErr != nil {
			return transfer.TransferInvite{}, getErr
		}
		return transfer.TransferInvite{}, transfer.ErrNotPending
	}
	if err != nil {
		return transfer.TransferInvite{}, fmt.Errorf("postgres: resolve transfer invite: %w", err)
	}
	return resolved, nil
}

func (s *TransferStore) ListPendingForAgent(ctx context.Context, agentID string) ([]transfer.TransferInvite, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, agent_id, from_owner_id, to_email, status, created_at, resolved_at
		FROM transfer_invites WHERE agent_id = $1 AND status = $2`, agentID, transfer.StatusPending)
	if err != nil {
		return nil, fmt.Errorf("postgres: list pending transfer invites: %w", err)
	}
	defer rows.Close()

	var out []transfer.TransferInvite
	for rows.Next() {
		inv, err := scanTransferInvite(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan transfer invite: %w", err)
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func scanTransferInvite(row pgx.Row) (transfer.TransferInvite, error) {
	var inv transfer.TransferInvite
	var resolvedAt *time.Time
	if err := row.Scan(&inv.ID, &inv.AgentID, &inv.FromOwnerID, &inv.ToEmail, &inv.Status, &inv.CreatedAt, &resolvedAt); err != nil {
		return transfer.TransferInvite{}, err
	}
	if resolvedAt != nil {
		inv.ResolvedAt = *resolvedAt
	}
	return inv, nil
}
