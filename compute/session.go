// Package compute models the per-agent sandbox state machine (spec §3
// ComputeSession, §5 "Sandbox idle sweep", SPEC_FULL §3 "Compute
// session/sandbox control"): CREATED -> RUNNING -> IDLE_STOPPING ->
// STOPPED|ERROR, plus the idle sweep that stops sessions past their TTL.
package compute

import (
	"context"
	"errors"
	"time"
)

// State is a ComputeSession's life-cycle state.
type State string

const (
	StateCreated      State = "CREATED"
	StateRunning      State = "RUNNING"
	StateIdleStopping State = "IDLE_STOPPING"
	StateStopped      State = "STOPPED"
	StateError        State = "ERROR"
)

// ErrInvalidTransition is returned when a requested state change is not
// permitted from the session's current state.
var ErrInvalidTransition = errors.New("compute: invalid state transition")

// ErrNotFound is returned when a lookup finds no matching session.
var ErrNotFound = errors.New("compute: not found")

// ComputeSession is one agent's sandbox: a pod plus a workspace volume
// (spec §3 ComputeSession "pod name + workspace PVC name").
type ComputeSession struct {
	ID             string
	AgentID        string
	State          State
	PodName        string
	WorkspacePVC   string
	LastActivityAt time.Time
	CreatedAt      time.Time
}

// DefaultIdleTTL is SANDBOX_IDLE_TTL_SECONDS's default (spec §5).
const DefaultIdleTTL = 3600 * time.Second

var transitions = map[State]map[State]bool{
	StateCreated:      {StateRunning: true, StateError: true},
	StateRunning:      {StateIdleStopping: true, StateError: true, StateStopped: true},
	StateIdleStopping: {StateStopped: true, StateRunning: true, StateError: true},
	StateStopped:      {StateRunning: true},
	StateError:        {},
}

// CanTransition reports whether moving from the receiver's State to next is
// permitted by the state machine above.
func (c ComputeSession) CanTransition(next State) bool {
	if c.State == next {
		return true
	}
	return transitions[c.State][next]
}

// SandboxController is the external sandbox provisioning/exec API (spec §6
// "blocking suspension points... MUST honor a per-operation timeout"); a
// real implementation talks to the cluster's pod/volume APIs. Not
// implemented in this module — callers inject a fake in tests and wire a
// concrete adapter at the deployment layer.
type SandboxController interface {
	Create(ctx context.Context, agentID string) (podName, workspacePVC string, err error)
	Stop(ctx context.Context, podName string) error
	Exec(ctx context.Context, podName string, command []string) (output string, err error)
}

// Store persists ComputeSessions.
type Store interface {
	Get(ctx context.Context, agentID string) (ComputeSession, error)
	Upsert(ctx context.Context, s ComputeSession) (ComputeSession, error)
	// IdleBefore returns RUNNING sessions whose LastActivityAt predates cutoff
	// (spec §5 "periodic task stops sessions whose last_activity_at older
	// than SANDBOX_IDLE_TTL_SECONDS").
	IdleBefore(ctx context.Context, cutoff time.Time) ([]ComputeSession, error)
}

// IdleSweep transitions every session IdleBefore(now-ttl) returns to
// IDLE_STOPPING, then asks ctrl to stop it and records STOPPED (or ERROR on
// failure). It returns the sessions it attempted to stop.
func IdleSweep(ctx context.Context, store Store, ctrl SandboxController, now time.Time, ttl time.Duration) ([]ComputeSession, error) {
	if ttl <= 0 {
		ttl = DefaultIdleTTL
	}
	idle, err := store.IdleBefore(ctx, now.Add(-ttl))
	if err != nil {
		return nil, err
	}

	stopped := make([]ComputeSession, 0, len(idle))
	for _, s := range idle {
		s.State = StateIdleStopping
		s, err = store.Upsert(ctx, s)
		if err != nil {
			return stopped, err
		}
		if err := ctrl.Stop(ctx, s.PodName); err != nil {
			s.State = StateError
		} else {
			s.State = StateStopped
		}
		s, err = store.Upsert(ctx, s)
		if err != nil {
			return stopped, err
		}
		stopped = append(stopped, s)
	}
	return stopped, nil
}
