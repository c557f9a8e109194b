// Package agent defines the persisted Agent entity and the event loop's
// per-invocation records (Step, ToolCall, SystemStep) that spec §3 and §4.1
// describe as the core of the engine. Types here carry only data and the
// invariants spec §3 states explicitly; the loop that drives them lives in
// package eventloop.
package agent

import (
	"errors"
	"time"
)

// LifeState is the Agent life-cycle state (spec §3 Agent, §4.6, §4.8).
type LifeState string

const (
	LifeStateActive  LifeState = "ACTIVE"
	LifeStatePaused  LifeState = "PAUSED"
	LifeStateExpired LifeState = "EXPIRED"
	LifeStateDeleted LifeState = "DELETED"
)

// TierKey selects which routing tier an agent prefers (spec §4.2).
type TierKey string

const (
	TierStandard TierKey = "standard"
	TierPremium  TierKey = "premium"
	TierMax      TierKey = "max"
)

// ErrInvalidTransition is returned by Store.UpdateLoopFields for a
// life-state change that Agent.CanTransition rejects.
var ErrInvalidTransition = errors.New("agent: invalid life-state transition")

// ErrScheduleRequiresActive is returned when a non-empty Schedule is set on
// an Agent whose LifeState is not ACTIVE (spec §3 Agent invariant).
var ErrScheduleRequiresActive = errors.New("agent: schedule requires ACTIVE life-state")

// ErrNegativeSoftTarget is returned when DailyCreditSoftTarget is set to a
// negative value (spec §3 Agent invariant: "non-negative int or null").
var ErrNegativeSoftTarget = errors.New("agent: daily credit soft target must be non-negative")

// Agent is the persisted unit of autonomous execution (spec §3 Agent).
type Agent struct {
	ID      string
	OwnerID string

	Charter  string
	Schedule string // cron expression; must be empty unless LifeState == ACTIVE

	LifeState LifeState
	IsActive  bool

	PreferredContactEndpointID string
	DailyCreditSoftTarget      *int // nil means unlimited
	PreferredTier              TierKey

	LastInteractionAt      time.Time
	LastProactiveTriggerAt time.Time
	LastExpiredAt          time.Time
	SentExpirationEmail    bool
	ScheduleSnapshot       string // schedule preserved across a soft expiration

	ProactiveOptIn          bool
	ProactiveMinIntervalMin int
	ProactiveMaxDaily       int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks the invariants spec §3 states for Agent explicitly.
func (a Agent) Validate() error {
	if a.Schedule != "" && a.LifeState != LifeStateActive {
		return ErrScheduleRequiresActive
	}
	if a.DailyCreditSoftTarget != nil && *a.DailyCreditSoftTarget < 0 {
		return ErrNegativeSoftTarget
	}
	return nil
}

// CanTransition reports whether moving from the receiver's LifeState to next
// is permitted. Spec §3: "life-state transitions monotonic except
// ACTIVE<->EXPIRED and hard-delete [from any state]".
func (a Agent) CanTransition(next LifeState) bool {
	if next == LifeStateDeleted {
		return true
	}
	if a.LifeState == next {
		return true
	}
	switch a.LifeState {
	case LifeStateActive:
		return next == LifeStatePaused || next == LifeStateExpired
	case LifeStatePaused:
		return next == LifeStateActive
	case LifeStateExpired:
		return next == LifeStateActive
	case LifeStateDeleted:
		return false
	default:
		return false
	}
}

// SystemStepCode identifies the kind of system-authored step (spec §3
// SystemStep, §4.1, §4.7, §4.8).
type SystemStepCode string

const (
	SystemStepProcessEvents    SystemStepCode = "PROCESS_EVENTS"
	SystemStepProactiveTrigger SystemStepCode = "PROACTIVE_TRIGGER"
	SystemStepSystemDirective  SystemStepCode = "SYSTEM_DIRECTIVE"
	SystemStepCreditLimitHit   SystemStepCode = "CREDIT_LIMIT_HIT"
)

// SystemStep is a system-authored marker in an agent's history: a posted
// mid-loop re-entry signal, a proactive trigger, an operator directive, or a
// credit-limit exit (spec §3 SystemStep).
type SystemStep struct {
	ID      string
	AgentID string
	Code    SystemStepCode
	Notes   map[string]any
	StepID  string // optional: the Step this marker is attached to, if any
	Created time.Time
}

// Step is one iteration of the event loop: the model's reasoning, its
// accumulated credit cost (LLM completion plus any tool-embedded LLM
// calls), and the ordered ToolCalls it issued. Steps are immutable once
// written (spec §3 Step).
type Step struct {
	ID          string
	AgentID     string
	Description string
	CreditCost  float64
	EvalRunID   string // optional
	CreatedAt   time.Time
}

// ToolCall is one dispatched tool invocation attributed to a Step, in the
// order the model declared it (spec §3 ToolCall, §5 ordering guarantee).
type ToolCall struct {
	ID            string
	StepID        string
	ToolName      string
	Params        map[string]any
	RawResultText string
	Ordinal       int
	CreatedAt     time.Time
}
