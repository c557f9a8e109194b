package burnrate_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gobii-run/agentcore/burnrate"
)

func TestComputeSumsWithinWindowOnly(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	samples := []burnrate.UsageSample{
		{At: now.Add(-90 * time.Minute), CreditCost: 100}, // outside 60-min window
		{At: now.Add(-30 * time.Minute), CreditCost: 10},
		{At: now.Add(-5 * time.Minute), CreditCost: 5},
	}
	snap := burnrate.Compute(burnrate.ScopeAgent, "agt_1", 60, samples, now)
	require.Equal(t, 15.0, snap.TotalCreditCost)
	require.Equal(t, 15.0, snap.ProjectedPerHour)
	require.Equal(t, 360.0, snap.ProjectedPerDay)
}

func TestExceedsThreshold(t *testing.T) {
	t.Parallel()
	snap := burnrate.BurnRateSnapshot{ProjectedPerDay: 90}
	require.True(t, snap.ExceedsThreshold(100, 0.8))
	require.False(t, snap.ExceedsThreshold(200, 0.8))
}

func TestExceedsThresholdUnboundedSoftTarget(t *testing.T) {
	t.Parallel()
	snap := burnrate.BurnRateSnapshot{ProjectedPerDay: 1_000_000}
	require.False(t, snap.ExceedsThreshold(0, 0.8))
}

func TestMemoryStoreUpsertOverwritesSameScope(t *testing.T) {
	t.Parallel()
	store := burnrate.NewMemoryStore()
	first, err := store.Upsert(context.Background(), burnrate.BurnRateSnapshot{ScopeType: burnrate.ScopeAgent, ScopeID: "agt_1", WindowMinutes: 60, TotalCreditCost: 1})
	require.NoError(t, err)

	second, err := store.Upsert(context.Background(), burnrate.BurnRateSnapshot{ScopeType: burnrate.ScopeAgent, ScopeID: "agt_1", WindowMinutes: 60, TotalCreditCost: 2})
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	got, err := store.Get(context.Background(), burnrate.ScopeAgent, "agt_1", 60)
	require.NoError(t, err)
	require.Equal(t, 2.0, got.TotalCreditCost)
}
