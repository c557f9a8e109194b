package credit_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gobii-run/agentcore/agent"
	"github.com/gobii-run/agentcore/credit"
)

func TestResolveFallsBackToFreePlan(t *testing.T) {
	t.Parallel()
	cfg := credit.Resolve("nonexistent")
	require.Equal(t, credit.PlanFree, cfg.Plan)
}

func TestHardLimitUnboundedWithoutSoftTarget(t *testing.T) {
	t.Parallel()
	cfg := credit.Resolve(credit.PlanStandard)
	limit, unbounded := cfg.HardLimit(nil)
	require.True(t, unbounded)
	require.Zero(t, limit)
}

func TestHardLimitAppliesMultiplier(t *testing.T) {
	t.Parallel()
	cfg := credit.Resolve(credit.PlanStandard)
	soft := 100
	limit, unbounded := cfg.HardLimit(&soft)
	require.False(t, unbounded)
	require.Equal(t, 150.0, limit)
}

func TestRemainingCreditsClampsToZero(t *testing.T) {
	t.Parallel()
	soft := 10
	a := agent.Agent{DailyCreditSoftTarget: &soft}
	remaining, ok := credit.RemainingCredits(a, 15)
	require.True(t, ok)
	require.Zero(t, remaining)
}

func TestRemainingCreditsUnlimitedWithNilSoftTarget(t *testing.T) {
	t.Parallel()
	a := agent.Agent{}
	_, ok := credit.RemainingCredits(a, 1000)
	require.False(t, ok)
}

func TestToolLimitDefaultsToUnlimited(t *testing.T) {
	t.Parallel()
	cfg := credit.Resolve(credit.PlanFree)
	require.Zero(t, cfg.ToolLimit("search"))
}
