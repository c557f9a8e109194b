package compute_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gobii-run/agentcore/compute"
)

type fakeController struct {
	stopped []string
	failPod string
}

func (f *fakeController) Create(_ context.Context, agentID string) (string, string, error) {
	return "pod-" + agentID, "pvc-" + agentID, nil
}
func (f *fakeController) Stop(_ context.Context, podName string) error {
	f.stopped = append(f.stopped, podName)
	if podName == f.failPod {
		return context.DeadlineExceeded
	}
	return nil
}
func (f *fakeController) Exec(context.Context, string, []string) (string, error) { return "", nil }

func TestCanTransitionHappyPath(t *testing.T) {
	t.Parallel()
	cs := compute.ComputeSession{State: compute.StateCreated}
	require.True(t, cs.CanTransition(compute.StateRunning))
	cs.State = compute.StateRunning
	require.True(t, cs.CanTransition(compute.StateIdleStopping))
	cs.State = compute.StateIdleStopping
	require.True(t, cs.CanTransition(compute.StateStopped))
}

func TestCanTransitionRejectsSkippingStates(t *testing.T) {
	t.Parallel()
	cs := compute.ComputeSession{State: compute.StateStopped}
	require.False(t, cs.CanTransition(compute.StateIdleStopping))
}

func TestIdleSweepStopsOnlyStaleRunningSessions(t *testing.T) {
	t.Parallel()
	store := compute.NewMemoryStore()
	now := time.Now()

	stale, err := store.Upsert(context.Background(), compute.ComputeSession{
		AgentID: "agt_1", State: compute.StateRunning, PodName: "pod-1",
		LastActivityAt: now.Add(-2 * time.Hour),
	})
	require.NoError(t, err)
	_, err = store.Upsert(context.Background(), compute.ComputeSession{
		AgentID: "agt_2", State: compute.StateRunning, PodName: "pod-2",
		LastActivityAt: now.Add(-5 * time.Minute),
	})
	require.NoError(t, err)

	ctrl := &fakeController{}
	stopped, err := compute.IdleSweep(context.Background(), store, ctrl, now, time.Hour)
	require.NoError(t, err)
	require.Len(t, stopped, 1)
	require.Equal(t, stale.PodName, stopped[0].PodName)
	require.Equal(t, compute.StateStopped, stopped[0].State)
}

func TestIdleSweepMarksErrorOnStopFailure(t *testing.T) {
	t.Parallel()
	store := compute.NewMemoryStore()
	now := time.Now()
	_, err := store.Upsert(context.Background(), compute.ComputeSession{
		AgentID: "agt_1", State: compute.StateRunning, PodName: "pod-1",
		LastActivityAt: now.Add(-2 * time.Hour),
	})
	require.NoError(t, err)

	ctrl := &fakeController{failPod: "pod-1"}
	stopped, err := compute.IdleSweep(context.Background(), store, ctrl, now, time.Hour)
	require.NoError(t, err)
	require.Len(t, stopped, 1)
	require.Equal(t, compute.StateError, stopped[0].State)
}
