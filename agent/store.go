package agent

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a lookup finds no matching row.
var ErrNotFound = errors.New("agent: not found")

// ErrConcurrentUpdate is returned by UpdateLoopFields when the Agent row
// changed between read and write, so the lock holder's view was stale
// (spec §5 "Agent row written only by lock holder for loop-managed
// fields").
var ErrConcurrentUpdate = errors.New("agent: concurrent update")

// LoopFields are the subset of Agent fields the event loop's lock holder
// may update at the end of an invocation (spec §5 "Shared resources").
type LoopFields struct {
	LastInteractionAt      time.Time
	LastProactiveTriggerAt time.Time
	LifeState              LifeState
	ScheduleSnapshot       string
	Schedule               string
	LastExpiredAt          time.Time
	SentExpirationEmail    bool
}

// ProactiveCandidateFilter selects agents eligible for a proactive
// activation scan (spec §4.7 step 1).
type ProactiveCandidateFilter struct {
	OwnerID string
	Limit   int // caps the scan at spec §4.7's 50
}

// ExpirationCandidateFilter selects ACTIVE agents whose schedule is
// non-empty and whose last interaction is at or before the cutoff (spec
// §4.8 step 1). Agent carries no plan, so the filter does not restrict
// candidates to free-plan agents.
type ExpirationCandidateFilter struct {
	InactiveBefore time.Time
	Limit          int
}

// Store persists Agents and their Step/ToolCall/SystemStep history. A
// Postgres-backed implementation lives in store/postgres; NewMemoryStore
// provides an in-process implementation for tests.
type Store interface {
	Get(ctx context.Context, id string) (Agent, error)
	Create(ctx context.Context, a Agent) (Agent, error)

	// UpdateLoopFields applies the lock holder's end-of-invocation write
	// (spec §5). expectedUpdatedAt guards against a concurrent writer;
	// implementations return ErrConcurrentUpdate on mismatch.
	UpdateLoopFields(ctx context.Context, id string, fields LoopFields, expectedUpdatedAt time.Time) (Agent, error)

	// ApplyOperatorWrite updates charter/schedule/daily-credit-limit fields
	// from outside the loop (spec §5 "operator writes"). Implementations
	// must also append a SYSTEM_DIRECTIVE SystemStep as part of the same
	// write.
	ApplyOperatorWrite(ctx context.Context, id string, mutate func(*Agent) error) (Agent, error)

	ProactiveCandidates(ctx context.Context, filter ProactiveCandidateFilter) ([]Agent, error)
	ExpirationCandidates(ctx context.Context, filter ExpirationCandidateFilter) ([]Agent, error)

	// ActiveScheduled returns every ACTIVE agent with a non-empty Schedule,
	// the set `sync_schedules` (spec §6) reconciles against the scheduler
	// backend.
	ActiveScheduled(ctx context.Context) ([]Agent, error)

	AppendStep(ctx context.Context, s Step, calls []ToolCall) (Step, error)
	AppendSystemStep(ctx context.Context, s SystemStep) (SystemStep, error)

	// StepsOnLocalDay returns every Step for agentID whose CreatedAt falls
	// on the calendar day `day` (already resolved to the owning principal's
	// local calendar day by the caller) in loc (spec §4.1 "Daily credit
	// accounting").
	StepsOnLocalDay(ctx context.Context, agentID string, day time.Time, loc *time.Location) ([]Step, error)

	// PendingSystemSteps returns unconsumed SystemSteps of the given code
	// posted for agentID, newest first — used to detect a mid-loop
	// PROCESS_EVENTS marker (spec §4.1 step 4) and to decide re-entry.
	PendingSystemSteps(ctx context.Context, agentID string, code SystemStepCode) ([]SystemStep, error)

	// ConsumeSystemSteps marks the given SystemStep IDs consumed so a
	// future PendingSystemSteps call no longer returns them.
	ConsumeSystemSteps(ctx context.Context, ids []string) error
}
