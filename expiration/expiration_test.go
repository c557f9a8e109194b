package expiration_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gobii-run/agentcore/agent"
	"github.com/gobii-run/agentcore/expiration"
	"github.com/gobii-run/agentcore/internal/clock"
)

func makeAgent(t *testing.T, store agent.Store, lastInteraction time.Time, schedule string) agent.Agent {
	t.Helper()
	a, err := store.Create(context.Background(), agent.Agent{
		OwnerID:   "usr_1",
		LifeState: agent.LifeStateActive,
		Schedule:  schedule,
	})
	require.NoError(t, err)
	a, err = store.UpdateLoopFields(context.Background(), a.ID, agent.LoopFields{
		LastInteractionAt: lastInteraction,
		Schedule:          schedule,
	}, a.UpdatedAt)
	require.NoError(t, err)
	return a
}

func TestSweepExpiresInactiveScheduledAgent(t *testing.T) {
	t.Parallel()
	fixed := clock.Fixed{At: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)}
	store := agent.NewMemoryStore(fixed)
	a := makeAgent(t, store, fixed.At.Add(-20*24*time.Hour), "0 9 * * *")

	var notified []string
	s := &expiration.Sweeper{
		Agents: store,
		Clock:  fixed,
		Notify: func(_ context.Context, a agent.Agent) error {
			notified = append(notified, a.ID)
			return nil
		},
	}

	out, err := s.Sweep(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, agent.LifeStateExpired, out[0].LifeState)
	require.Equal(t, "0 9 * * *", out[0].ScheduleSnapshot)
	require.Empty(t, out[0].Schedule)
	require.True(t, out[0].SentExpirationEmail)
	require.Equal(t, fixed.At, out[0].LastExpiredAt)
	require.Equal(t, []string{a.ID}, notified)
}

func TestSweepSkipsAgentInDowngradeGrace(t *testing.T) {
	t.Parallel()
	fixed := clock.Fixed{At: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)}
	store := agent.NewMemoryStore(fixed)
	makeAgent(t, store, fixed.At.Add(-20*24*time.Hour), "0 9 * * *")

	s := &expiration.Sweeper{
		Agents: store,
		Clock:  fixed,
		Downgrade: func(context.Context, string) (time.Time, bool, error) {
			return fixed.At.Add(-24 * time.Hour), true, nil
		},
	}

	out, err := s.Sweep(context.Background())
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestSweepSkipsRecentlyActiveAgent(t *testing.T) {
	t.Parallel()
	fixed := clock.Fixed{At: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)}
	store := agent.NewMemoryStore(fixed)
	makeAgent(t, store, fixed.At.Add(-1*time.Hour), "0 9 * * *")

	s := &expiration.Sweeper{Agents: store, Clock: fixed}
	out, err := s.Sweep(context.Background())
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestRestoreOnInteractionReactivatesExpiredAgent(t *testing.T) {
	t.Parallel()
	fixed := clock.Fixed{At: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)}
	store := agent.NewMemoryStore(fixed)
	a := makeAgent(t, store, fixed.At.Add(-20*24*time.Hour), "0 9 * * *")

	s := &expiration.Sweeper{Agents: store, Clock: fixed}
	_, err := s.Sweep(context.Background())
	require.NoError(t, err)

	restored, err := s.RestoreOnInteraction(context.Background(), a.ID)
	require.NoError(t, err)
	require.Equal(t, agent.LifeStateActive, restored.LifeState)
	require.Equal(t, "0 9 * * *", restored.Schedule)
	require.Empty(t, restored.ScheduleSnapshot)
	require.False(t, restored.SentExpirationEmail)
}

func TestSchedulerNextComputesNextStandardFireTime(t *testing.T) {
	t.Parallel()
	var sched expiration.Scheduler
	after := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	next, err := sched.Next("0 9 * * *", after)
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC), next)
}

func TestCronThrottleSkipsQuietLowTierAgentThenAllowsAfterBackoff(t *testing.T) {
	t.Parallel()
	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	cur := start
	fakeClock := &advancingClock{now: &cur}

	a := agent.Agent{ID: "agt_1", LastInteractionAt: start.Add(-30 * 24 * time.Hour)}
	th := &expiration.CronThrottle{Clock: fakeClock, BaseBackoff: time.Hour, MaxBackoff: 4 * time.Hour}

	require.True(t, th.ShouldRun(a, true), "first quiet tick always runs")
	require.False(t, th.ShouldRun(a, true), "immediate retick within backoff is skipped")

	cur = cur.Add(2 * time.Hour)
	require.True(t, th.ShouldRun(a, true), "tick past backoff window runs")
}

func TestCronThrottleResetsOnHumanInteraction(t *testing.T) {
	t.Parallel()
	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	cur := start
	fakeClock := &advancingClock{now: &cur}

	a := agent.Agent{ID: "agt_1", LastInteractionAt: start.Add(-30 * 24 * time.Hour)}
	th := &expiration.CronThrottle{Clock: fakeClock}

	require.True(t, th.ShouldRun(a, true))
	require.False(t, th.ShouldRun(a, true))

	a.LastInteractionAt = cur
	require.True(t, th.ShouldRun(a, true), "fresh interaction resets the streak and runs immediately")
}

func TestCronThrottleAlwaysRunsNonLowTier(t *testing.T) {
	t.Parallel()
	th := &expiration.CronThrottle{}
	a := agent.Agent{ID: "agt_1"}
	require.True(t, th.ShouldRun(a, false))
	require.True(t, th.ShouldRun(a, false))
}

type advancingClock struct {
	now *time.Time
}

func (c *advancingClock) Now() time.Time                  { return *c.now }
func (c *advancingClock) Since(t time.Time) time.Duration  { return c.Now().Sub(t) }
func (c *advancingClock) After(d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- c.Now().Add(d)
	return ch
}
func (c *advancingClock) Sleep(time.Duration) {}
