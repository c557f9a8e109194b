package agent_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gobii-run/agentcore/agent"
	"github.com/gobii-run/agentcore/internal/clock"
)

func TestValidateRejectsScheduleOnNonActiveAgent(t *testing.T) {
	t.Parallel()
	a := agent.Agent{LifeState: agent.LifeStatePaused, Schedule: "0 * * * *"}
	require.ErrorIs(t, a.Validate(), agent.ErrScheduleRequiresActive)
}

func TestValidateRejectsNegativeSoftTarget(t *testing.T) {
	t.Parallel()
	neg := -5
	a := agent.Agent{LifeState: agent.LifeStateActive, DailyCreditSoftTarget: &neg}
	require.ErrorIs(t, a.Validate(), agent.ErrNegativeSoftTarget)
}

func TestCanTransitionAllowsActiveExpiredRoundTrip(t *testing.T) {
	t.Parallel()
	a := agent.Agent{LifeState: agent.LifeStateActive}
	require.True(t, a.CanTransition(agent.LifeStateExpired))

	a.LifeState = agent.LifeStateExpired
	require.True(t, a.CanTransition(agent.LifeStateActive))
}

func TestCanTransitionForbidsPausedToExpired(t *testing.T) {
	t.Parallel()
	a := agent.Agent{LifeState: agent.LifeStatePaused}
	require.False(t, a.CanTransition(agent.LifeStateExpired))
}

func TestCanTransitionAllowsHardDeleteFromAnyState(t *testing.T) {
	t.Parallel()
	for _, st := range []agent.LifeState{agent.LifeStateActive, agent.LifeStatePaused, agent.LifeStateExpired} {
		a := agent.Agent{LifeState: st}
		require.True(t, a.CanTransition(agent.LifeStateDeleted))
	}
}

func TestMemoryStoreCreateAndGet(t *testing.T) {
	t.Parallel()
	store := agent.NewMemoryStore(clock.Real)
	created, err := store.Create(context.Background(), agent.Agent{OwnerID: "usr_1", LifeState: agent.LifeStateActive})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	got, err := store.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, created.ID, got.ID)
}

func TestMemoryStoreUpdateLoopFieldsRejectsInvalidTransition(t *testing.T) {
	t.Parallel()
	store := agent.NewMemoryStore(clock.Real)
	created, err := store.Create(context.Background(), agent.Agent{OwnerID: "usr_1", LifeState: agent.LifeStatePaused})
	require.NoError(t, err)

	_, err = store.UpdateLoopFields(context.Background(), created.ID, agent.LoopFields{LifeState: agent.LifeStateExpired}, time.Time{})
	require.ErrorIs(t, err, agent.ErrInvalidTransition)
}

func TestMemoryStoreAppendStepIsListedOnLocalDay(t *testing.T) {
	t.Parallel()
	store := agent.NewMemoryStore(clock.Real)
	a, err := store.Create(context.Background(), agent.Agent{OwnerID: "usr_1", LifeState: agent.LifeStateActive})
	require.NoError(t, err)

	step, err := store.AppendStep(context.Background(), agent.Step{AgentID: a.ID, Description: "did things"}, []agent.ToolCall{
		{ToolName: "search"},
		{ToolName: "scrape"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, step.ID)

	steps, err := store.StepsOnLocalDay(context.Background(), a.ID, time.Now(), time.UTC)
	require.NoError(t, err)
	require.Len(t, steps, 1)
}

func TestMemoryStoreProactiveCandidatesOrdering(t *testing.T) {
	t.Parallel()
	store := agent.NewMemoryStore(clock.Real)
	now := time.Now()

	older, err := store.Create(context.Background(), agent.Agent{
		OwnerID: "usr_1", LifeState: agent.LifeStateActive, ProactiveOptIn: true,
		LastProactiveTriggerAt: now.Add(-48 * time.Hour),
	})
	require.NoError(t, err)
	_, err = store.Create(context.Background(), agent.Agent{
		OwnerID: "usr_1", LifeState: agent.LifeStateActive, ProactiveOptIn: true,
		LastProactiveTriggerAt: now.Add(-1 * time.Hour),
	})
	require.NoError(t, err)

	candidates, err := store.ProactiveCandidates(context.Background(), agent.ProactiveCandidateFilter{Limit: 50})
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	require.Equal(t, older.ID, candidates[0].ID)
}

func TestMemoryStoreExpirationCandidatesFiltersBySchedule(t *testing.T) {
	t.Parallel()
	store := agent.NewMemoryStore(clock.Real)
	cutoff := time.Now().Add(-30 * 24 * time.Hour)

	stale, err := store.Create(context.Background(), agent.Agent{
		OwnerID: "usr_1", LifeState: agent.LifeStateActive, Schedule: "0 9 * * *",
		LastInteractionAt: cutoff.Add(-time.Hour),
	})
	require.NoError(t, err)
	_, err = store.Create(context.Background(), agent.Agent{
		OwnerID: "usr_1", LifeState: agent.LifeStateActive, Schedule: "0 9 * * *",
		LastInteractionAt: cutoff.Add(time.Hour),
	})
	require.NoError(t, err)

	candidates, err := store.ExpirationCandidates(context.Background(), agent.ExpirationCandidateFilter{InactiveBefore: cutoff})
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	require.Equal(t, stale.ID, candidates[0].ID)
}

func TestMemoryStoreActiveScheduledFiltersByLifeStateAndSchedule(t *testing.T) {
	t.Parallel()
	store := agent.NewMemoryStore(clock.Real)

	scheduled, err := store.Create(context.Background(), agent.Agent{
		OwnerID: "usr_1", LifeState: agent.LifeStateActive, Schedule: "0 9 * * *",
	})
	require.NoError(t, err)
	_, err = store.Create(context.Background(), agent.Agent{
		OwnerID: "usr_1", LifeState: agent.LifeStateActive,
	})
	require.NoError(t, err)
	_, err = store.Create(context.Background(), agent.Agent{
		OwnerID: "usr_1", LifeState: agent.LifeStatePaused,
	})
	require.NoError(t, err)

	out, err := store.ActiveScheduled(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, scheduled.ID, out[0].ID)
}
