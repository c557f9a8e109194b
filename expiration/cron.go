package expiration

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron"

	"github.com/gobii-run/agentcore/agent"
	"github.com/gobii-run/agentcore/internal/clock"
)

// Scheduler parses cron expressions and computes their next fire time. It
// backs both `sync_schedules` (reconciling Agent.Schedule strings against
// the scheduler backend) and CronThrottle's due-tick check (spec §4.8
// "scheduled (cron) invocations").
type Scheduler struct{}

// Next returns the next time expr fires strictly after `after`.
func (Scheduler) Next(expr string, after time.Time) (time.Time, error) {
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("expiration: parse cron expression %q: %w", expr, err)
	}
	return sched.Next(after), nil
}

// DefaultBaseBackoff is the initial skip interval CronThrottle applies
// after the first quiet scheduled tick.
const DefaultBaseBackoff = time.Hour

// DefaultMaxBackoff caps exponential growth so a long-quiet agent is still
// checked at least this often.
const DefaultMaxBackoff = 24 * time.Hour

// CronThrottle implements spec §4.8 paragraph 2: "for scheduled (cron)
// invocations on low-tier accounts, exponential backoff skips runs when the
// agent has no recent human interaction; backoff resets on interaction."
// Streak state is kept in-process per scheduler instance: spec's data model
// (§3) names no persisted throttle-state entity, so a multi-node deployment
// would need to either pin an agent's scheduled ticks to one node or move
// this state into the store.
type CronThrottle struct {
	Clock clock.Clock

	BaseBackoff time.Duration
	MaxBackoff  time.Duration

	mu    sync.Mutex
	state map[string]*throttleState
}

type throttleState struct {
	streak        int
	lastAttempt   time.Time
	lastSeenHuman time.Time
	seen          bool
}

func (c *CronThrottle) clockNow() time.Time {
	if c.Clock == nil {
		return time.Now()
	}
	return c.Clock.Now()
}

func (c *CronThrottle) baseBackoff() time.Duration {
	if c.BaseBackoff > 0 {
		return c.BaseBackoff
	}
	return DefaultBaseBackoff
}

func (c *CronThrottle) maxBackoff() time.Duration {
	if c.MaxBackoff > 0 {
		return c.MaxBackoff
	}
	return DefaultMaxBackoff
}

func (c *CronThrottle) entry(agentID string) *throttleState {
	if c.state == nil {
		c.state = make(map[string]*throttleState)
	}
	st, ok := c.state[agentID]
	if !ok {
		st = &throttleState{}
		c.state[agentID] = st
	}
	return st
}

// ShouldRun reports whether a scheduled tick for a should actually enqueue
// process_agent_events, and records the attempt. Only low-tier accounts
// (lowTier) are throttled at all; other tiers always run.
func (c *CronThrottle) ShouldRun(a agent.Agent, lowTier bool) bool {
	if !lowTier {
		return true
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.entry(a.ID)
	now := c.clockNow()

	// A human interaction newer than the last one this throttle observed
	// resets the backoff streak, including the very first tick seen for
	// this agent (spec "backoff resets on interaction").
	if !st.seen || a.LastInteractionAt.After(st.lastSeenHuman) {
		st.seen = true
		st.lastSeenHuman = a.LastInteractionAt
		st.streak = 0
		st.lastAttempt = now
		return true
	}

	backoff := c.baseBackoff() * time.Duration(1<<uint(st.streak))
	if backoff > c.maxBackoff() {
		backoff = c.maxBackoff()
	}
	if now.Sub(st.lastAttempt) < backoff {
		return false
	}
	st.streak++
	st.lastAttempt = now
	return true
}

// Reset clears an agent's backoff streak, used when a human interaction is
// observed outside of ShouldRun's own detection (e.g. immediately on
// inbound message receipt, ahead of the next scheduled tick).
func (c *CronThrottle) Reset(agentID string, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.entry(agentID)
	st.streak = 0
	st.lastSeenHuman = at
	st.seen = true
}
