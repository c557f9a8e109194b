// Package transfer implements agent-ownership transfer invites (spec §3
// TransferInvite, SPEC_FULL §3 "Agent transfer"): a pending invite to move
// an Agent to a different user's email, accepted, declined, or cancelled.
package transfer

import (
	"context"
	"errors"
	"time"

	"github.com/gobii-run/agentcore/internal/clock"
	"github.com/gobii-run/agentcore/internal/idgen"
)

// Status is a TransferInvite's state.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusAccepted  Status = "ACCEPTED"
	StatusDeclined  Status = "DECLINED"
	StatusCancelled Status = "CANCELLED"
)

// TransferInvite records one agent-ownership transfer request (spec §3
// TransferInvite).
type TransferInvite struct {
	ID          string
	AgentID     string
	FromOwnerID string
	ToEmail     string
	Status      Status
	CreatedAt   time.Time
	ResolvedAt  time.Time
}

// ErrNotPending is returned when Accept/Decline/Cancel is called on an
// invite no longer in StatusPending.
var ErrNotPending = errors.New("transfer: invite is not pending")

// ErrNotFound is returned when a lookup finds no matching invite.
var ErrNotFound = errors.New("transfer: not found")

// Store persists TransferInvites. A Postgres-backed implementation lives
// in store/postgres; NewMemoryStore provides an in-process implementation
// for tests.
type Store interface {
	Create(ctx context.Context, inv TransferInvite) (TransferInvite, error)
	Get(ctx context.Context, id string) (TransferInvite, error)
	// Resolve transitions a pending invite to next and records ResolvedAt,
	// returning ErrNotPending if the invite is already resolved.
	Resolve(ctx context.Context, id string, next Status, at time.Time) (TransferInvite, error)
	ListPendingForAgent(ctx context.Context, agentID string) ([]TransferInvite, error)
}

// Service applies the TransferInvite state machine on top of a Store,
// reusing the same (Store, Clock) seam every event-driven package in this
// module uses.
type Service struct {
	Store Store
	Clock clock.Clock
}

// NewService wires a Service; clock defaults to clock.Real when nil.
func NewService(store Store, c clock.Clock) *Service {
	if c == nil {
		c = clock.Real
	}
	return &Service{Store: store, Clock: c}
}

// Create opens a new pending invite.
func (s *Service) Create(ctx context.Context, agentID, fromOwnerID, toEmail string) (TransferInvite, error) {
	return s.Store.Create(ctx, TransferInvite{
		ID:          idgen.New("inv"),
		AgentID:     agentID,
		FromOwnerID: fromOwnerID,
		ToEmail:     toEmail,
		Status:      StatusPending,
		CreatedAt:   s.Clock.Now(),
	})
}

// Accept resolves a pending invite as accepted. Callers are responsible for
// actually re-pointing the Agent's OwnerID via agent.Store once this
// returns; the two writes are separate and are not made in one
// transaction.
func (s *Service) Accept(ctx context.Context, id string) (TransferInvite, error) {
	return s.Store.Resolve(ctx, id, StatusAccepted, s.Clock.Now())
}

// Decline resolves a pending invite as declined.
func (s *Service) Decline(ctx context.Context, id string) (TransferInvite, error) {
	return s.Store.Resolve(ctx, id, StatusDeclined, s.Clock.Now())
}

// Cancel resolves a pending invite as cancelled by its sender.
func (s *Service) Cancel(ctx context.Context, id string) (TransferInvite, error) {
	return s.Store.Resolve(ctx, id, StatusCancelled, s.Clock.Now())
}
