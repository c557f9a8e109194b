// Package expiration implements spec §4.8: the hourly soft-expiration
// sweeper and the cron-invocation backoff that throttles scheduled runs on
// low-tier accounts gone quiet.
package expiration

import (
	"context"
	"fmt"
	"time"

	"github.com/gobii-run/agentcore/agent"
	"github.com/gobii-run/agentcore/internal/clock"
)

// DefaultInactivityThreshold is `inactivity_days` (spec §4.8): how long an
// active scheduled agent may go without an interaction before its schedule
// is suspended. Spec leaves the exact value to plan configuration; this
// package defaults to 14 days, and Sweeper.InactivityThreshold overrides it.
const DefaultInactivityThreshold = 14 * 24 * time.Hour

// GraceWindow is spec §4.8's "48-hour grace window after a plan downgrade".
const GraceWindow = 48 * time.Hour

// NotifyFunc sends the one-time sleep notification "via the preferred
// endpoint" (spec §4.8). Transport selection and delivery live in comms and
// the outbound transport adapters this package does not depend on.
type NotifyFunc func(ctx context.Context, a agent.Agent) error

// DowngradeFunc reports the most recent plan-downgrade time for an agent's
// owner, if any. Plan/billing history lives outside this module.
type DowngradeFunc func(ctx context.Context, ownerID string) (at time.Time, ok bool, err error)

// Sweeper drives the hourly soft-expiration sweep.
type Sweeper struct {
	Agents agent.Store
	Clock  clock.Clock

	// Notify defaults to a no-op when nil.
	Notify NotifyFunc
	// Downgrade defaults to "no recent downgrade" when nil.
	Downgrade DowngradeFunc

	InactivityThreshold time.Duration
}

func (s *Sweeper) clockNow() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock.Now()
}

func (s *Sweeper) inactivityThreshold() time.Duration {
	if s.InactivityThreshold > 0 {
		return s.InactivityThreshold
	}
	return DefaultInactivityThreshold
}

// Sweep runs one pass (spec §4.8 paragraph 1) and returns the agents it
// expired.
func (s *Sweeper) Sweep(ctx context.Context) ([]agent.Agent, error) {
	now := s.clockNow()
	candidates, err := s.Agents.ExpirationCandidates(ctx, agent.ExpirationCandidateFilter{
		InactiveBefore: now.Add(-s.inactivityThreshold()),
	})
	if err != nil {
		return nil, fmt.Errorf("expiration: fetch candidates: %w", err)
	}

	var expired []agent.Agent
	for _, a := range candidates {
		inGrace, err := s.inDowngradeGrace(ctx, a, now)
		if err != nil {
			return expired, fmt.Errorf("expiration: check downgrade grace for %s: %w", a.ID, err)
		}
		if inGrace {
			continue
		}

		sent := true
		if s.Notify != nil {
			if err := s.Notify(ctx, a); err != nil {
				// The error is dropped and the expiration transition
				// still happens, with SentExpirationEmail false. The
				// agent is no longer ACTIVE afterwards, so later passes
				// do not select it and the notification is not retried.
				sent = false
			}
		}

		updated, err := s.Agents.UpdateLoopFields(ctx, a.ID, agent.LoopFields{
			ScheduleSnapshot:    a.Schedule,
			Schedule:            "",
			LifeState:           agent.LifeStateExpired,
			LastExpiredAt:       now,
			SentExpirationEmail: sent,
		}, a.UpdatedAt)
		if err != nil {
			return expired, fmt.Errorf("expiration: transition %s: %w", a.ID, err)
		}
		expired = append(expired, updated)
	}
	return expired, nil
}

func (s *Sweeper) inDowngradeGrace(ctx context.Context, a agent.Agent, now time.Time) (bool, error) {
	if s.Downgrade == nil {
		return false, nil
	}
	at, ok, err := s.Downgrade(ctx, a.OwnerID)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	return now.Sub(at) < GraceWindow, nil
}

// RestoreOnInteraction implements spec §4.8's "any new inbound interaction
// clears sent_expiration_email and restores the schedule snapshot".
// Callers invoke this from wherever inbound Messages are persisted
// (package comms), once per interaction.
func (s *Sweeper) RestoreOnInteraction(ctx context.Context, agentID string) (agent.Agent, error) {
	a, err := s.Agents.Get(ctx, agentID)
	if err != nil {
		return agent.Agent{}, fmt.Errorf("expiration: load agent: %w", err)
	}

	fields := agent.LoopFields{
		LastInteractionAt:   s.clockNow(),
		SentExpirationEmail: false,
	}
	if a.LifeState == agent.LifeStateExpired && a.ScheduleSnapshot != "" {
		fields.LifeState = agent.LifeStateActive
		fields.Schedule = a.ScheduleSnapshot
		fields.ScheduleSnapshot = ""
	} else {
		fields.Schedule = a.Schedule
		fields.ScheduleSnapshot = a.ScheduleSnapshot
	}

	updated, err := s.Agents.UpdateLoopFields(ctx, agentID, fields, a.UpdatedAt)
	if err != nil {
		return agent.Agent{}, fmt.Errorf("expiration: restore %s: %w", agentID, err)
	}
	return updated, nil
}
