package evalrun_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gobii-run/agentcore/evalrun"
	"github.com/gobii-run/agentcore/internal/clock"
)

type fakeRunner struct{}

func (f *fakeRunner) RunScenario(_ context.Context, _, _, scenario string) (bool, string, error) {
	return scenario != "known_bad", "ran " + scenario, nil
}

func seedStore() evalrun.Store {
	return evalrun.NewMemoryStore([]evalrun.EvalSuite{
		{Slug: "browser-basics", Scenarios: []string{"search", "known_bad"}},
	})
}

func TestStartSyncRunsEveryScenario(t *testing.T) {
	t.Parallel()
	store := seedStore()
	d := evalrun.NewDispatcher(store, &fakeRunner{}, clock.Real)

	run, err := d.Start(context.Background(), evalrun.Request{
		SuiteSlugs: []string{"browser-basics"},
		RunType:    evalrun.RunTypeOneOff,
		Sync:       true,
	})
	require.NoError(t, err)
	require.Equal(t, evalrun.RunStatusDone, run.Status)

	tasks, err := store.TasksForRun(context.Background(), run.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	var sawFailed, sawPassed bool
	for _, task := range tasks {
		if task.ScenarioSlug == "known_bad" {
			require.Equal(t, evalrun.TaskStatusFailed, task.Status)
			sawFailed = true
		} else {
			require.Equal(t, evalrun.TaskStatusPassed, task.Status)
			sawPassed = true
		}
	}
	require.True(t, sawFailed)
	require.True(t, sawPassed)
}

func TestStartFiltersByScenarioSlug(t *testing.T) {
	t.Parallel()
	store := seedStore()
	d := evalrun.NewDispatcher(store, &fakeRunner{}, clock.Real)

	run, err := d.Start(context.Background(), evalrun.Request{
		SuiteSlugs:   []string{"browser-basics"},
		ScenarioSlug: "search",
		Sync:         true,
	})
	require.NoError(t, err)

	tasks, err := store.TasksForRun(context.Background(), run.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	require.Equal(t, "search", tasks[0].ScenarioSlug)
}

func TestStartAsyncLeavesTasksPending(t *testing.T) {
	t.Parallel()
	store := seedStore()
	d := evalrun.NewDispatcher(store, &fakeRunner{}, clock.Real)

	run, err := d.Start(context.Background(), evalrun.Request{SuiteSlugs: []string{"browser-basics"}})
	require.NoError(t, err)
	require.Equal(t, evalrun.RunStatusPending, run.Status)

	tasks, err := store.TasksForRun(context.Background(), run.ID)
	require.NoError(t, err)
	for _, task := range tasks {
		require.Equal(t, evalrun.TaskStatusPending, task.Status)
	}
}

func TestGCDeletesOnlyOldFinishedRuns(t *testing.T) {
	t.Parallel()
	store := seedStore()
	fixed := clock.Fixed{At: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	d := evalrun.NewDispatcher(store, &fakeRunner{}, fixed)

	run, err := d.Start(context.Background(), evalrun.Request{SuiteSlugs: []string{"browser-basics"}, Sync: true})
	require.NoError(t, err)

	laterClock := clock.Fixed{At: fixed.At.AddDate(0, 0, 40)}
	d2 := evalrun.NewDispatcher(store, &fakeRunner{}, laterClock)
	n, err := d2.GC(context.Background(), 30)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	_, err = store.GetRun(context.Background(), run.ID)
	require.ErrorIs(t, err, evalrun.ErrNotFound)
}
