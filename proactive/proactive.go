// Package proactive implements the proactive activation scan (spec §4.7):
// a periodic task that picks eligible opted-in agents, one per user per
// tick, and posts a PROACTIVE_TRIGGER SystemStep for each so its event loop
// gets enqueued.
package proactive

import (
	"context"
	"fmt"
	"time"

	"github.com/gobii-run/agentcore/agent"
	"github.com/gobii-run/agentcore/internal/clock"
	"github.com/gobii-run/agentcore/internal/idgen"
)

// DefaultScanLimit is spec §4.7 step 1's "cap scan at 50".
const DefaultScanLimit = 50

// ActivityCooldown is spec §4.7 step 3's "now - last_interaction >= 3 days".
const ActivityCooldown = 3 * 24 * time.Hour

// DefaultGlobalWeeklyFloor is spec §4.7 step 4's "global weekly floor":
// the minimum trigger interval never falls below one week regardless of
// an agent's own configured interval.
const DefaultGlobalWeeklyFloor = 7 * 24 * time.Hour

// Metadata is the payload spec §4.7 step 6 asks the scan to build before
// persisting a trigger.
type Metadata struct {
	RecentInboundPreview string
	OpenBrowserTasks     int
	PendingCredentials   int
}

// MetadataFunc builds a Metadata payload for a triggered agent. Recent
// inbound preview, open browser task counts, and pending credential counts
// each live in systems this package does not otherwise depend on (comms,
// the browser automation tool, and the credential vault respectively), so
// assembling them is injected rather than hard-wired.
type MetadataFunc func(ctx context.Context, a agent.Agent) (Metadata, error)

// Triggered is one agent the scan activated this tick, with the metadata
// persisted alongside its trigger.
type Triggered struct {
	Agent    agent.Agent
	Metadata Metadata
}

// Runner drives one proactive-activation scan (spec §4.7).
type Runner struct {
	Agents agent.Store
	Gate   Gate
	Clock  clock.Clock

	// BuildMetadata defaults to an empty Metadata{} when nil.
	BuildMetadata MetadataFunc

	// ScanLimit defaults to DefaultScanLimit.
	ScanLimit int
	// GlobalWeeklyFloor defaults to DefaultGlobalWeeklyFloor.
	GlobalWeeklyFloor time.Duration
}

func (r *Runner) scanLimit() int {
	if r.ScanLimit > 0 {
		return r.ScanLimit
	}
	return DefaultScanLimit
}

func (r *Runner) globalWeeklyFloor() time.Duration {
	if r.GlobalWeeklyFloor > 0 {
		return r.GlobalWeeklyFloor
	}
	return DefaultGlobalWeeklyFloor
}

func (r *Runner) clockNow() time.Time {
	if r.Clock == nil {
		return time.Now()
	}
	return r.Clock.Now()
}

// effectiveInterval implements step 4: "max(agent's configured, global
// weekly floor)".
func (r *Runner) effectiveInterval(a agent.Agent) time.Duration {
	configured := time.Duration(a.ProactiveMinIntervalMin) * time.Minute
	floor := r.globalWeeklyFloor()
	if configured > floor {
		return configured
	}
	return floor
}

// Run executes one scan tick and returns the agents triggered, for the
// caller to enqueue their event loops.
func (r *Runner) Run(ctx context.Context) ([]Triggered, error) {
	candidates, err := r.Agents.ProactiveCandidates(ctx, agent.ProactiveCandidateFilter{Limit: r.scanLimit()})
	if err != nil {
		return nil, fmt.Errorf("proactive: fetch candidates: %w", err)
	}

	now := r.clockNow()
	chosenOwners := make(map[string]bool)
	var triggered []Triggered

	for _, a := range candidates {
		// Step 2: same user already chosen this tick.
		if chosenOwners[a.OwnerID] {
			continue
		}

		// Step 3: activity cooldown.
		if !a.LastInteractionAt.IsZero() && now.Sub(a.LastInteractionAt) < ActivityCooldown {
			continue
		}

		// Step 4: minimum trigger interval.
		interval := r.effectiveInterval(a)
		if !a.LastProactiveTriggerAt.IsZero() && now.Sub(a.LastProactiveTriggerAt) < interval {
			continue
		}

		// Step 5: per-user Redis gate; skip if already present.
		gateKey := "proactive_gate:" + a.OwnerID
		present, err := r.Gate.Exists(ctx, gateKey)
		if err != nil {
			return triggered, fmt.Errorf("proactive: check gate: %w", err)
		}
		if present {
			continue
		}

		// Step 6: metadata payload.
		meta, err := r.buildMetadata(ctx, a)
		if err != nil {
			return triggered, fmt.Errorf("proactive: build metadata for %s: %w", a.ID, err)
		}

		// Step 7: persist trigger + update proactive_last_trigger_at.
		if _, err := r.Agents.AppendSystemStep(ctx, agent.SystemStep{
			ID:      idgen.New(idgen.PrefixSystemStep),
			AgentID: a.ID,
			Code:    agent.SystemStepProactiveTrigger,
			Notes: map[string]any{
				"recent_inbound_preview": meta.RecentInboundPreview,
				"open_browser_tasks":     meta.OpenBrowserTasks,
				"pending_credentials":    meta.PendingCredentials,
			},
			Created: now,
		}); err != nil {
			return triggered, fmt.Errorf("proactive: persist trigger for %s: %w", a.ID, err)
		}
		// Schedule/ScheduleSnapshot are written unconditionally by
		// UpdateLoopFields (they have no "zero means unchanged" sentinel
		// the way the timestamp fields do), so this write must echo the
		// candidate's current values back rather than leave them zeroed.
		updated, err := r.Agents.UpdateLoopFields(ctx, a.ID, agent.LoopFields{
			LastProactiveTriggerAt: now,
			Schedule:               a.Schedule,
			ScheduleSnapshot:       a.ScheduleSnapshot,
		}, a.UpdatedAt)
		if err != nil {
			return triggered, fmt.Errorf("proactive: update trigger timestamp for %s: %w", a.ID, err)
		}

		// Step 8: set the user gate with TTL = effective interval.
		if err := r.Gate.Set(ctx, gateKey, interval); err != nil {
			return triggered, fmt.Errorf("proactive: set gate for %s: %w", a.ID, err)
		}

		chosenOwners[a.OwnerID] = true
		triggered = append(triggered, Triggered{Agent: updated, Metadata: meta})
	}

	return triggered, nil
}

func (r *Runner) buildMetadata(ctx context.Context, a agent.Agent) (Metadata, error) {
	if r.BuildMetadata == nil {
		return Metadata{}, nil
	}
	return r.BuildMetadata(ctx, a)
}
