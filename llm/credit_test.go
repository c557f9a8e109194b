package llm_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gobii-run/agentcore/llm"
)

func TestNewCompletionComputesTotalCostFromUsage(t *testing.T) {
	t.Parallel()

	pricing := llm.Pricing{PromptPerToken: 0.000003, CompletionPerToken: 0.000015}
	c := llm.NewCompletion("claude-sonnet", 1000, 200, 0, pricing, 1.0, 1.0, time.Unix(0, 0))

	require.InDelta(t, 0.003+0.003, c.TotalCost, 1e-9)
	require.InDelta(t, c.TotalCost, c.CreditCost, 1e-9)
}

func TestNewCompletionAppliesPlanAndTierMultipliers(t *testing.T) {
	t.Parallel()

	pricing := llm.Pricing{PromptPerToken: 1.0}
	c := llm.NewCompletion("m", 10, 0, 0, pricing, 2.0, 1.5, time.Unix(0, 0))

	require.InDelta(t, 10.0, c.TotalCost, 1e-9)
	require.InDelta(t, 30.0, c.CreditCost, 1e-9)
}

func TestNewCompletionDefaultsZeroMultipliersToOne(t *testing.T) {
	t.Parallel()

	pricing := llm.Pricing{PromptPerToken: 1.0}
	c := llm.NewCompletion("m", 5, 0, 0, pricing, 0, 0, time.Unix(0, 0))
	require.InDelta(t, 5.0, c.CreditCost, 1e-9)
}

func TestAdaptVertexInjectsProcessDefaultsWhenProviderUnset(t *testing.T) {
	t.Parallel()

	prov := llm.Provider{Key: "google"}
	params, ok := llm.AdaptVertex(prov, "default-project", "us-central1")
	require.True(t, ok)
	require.Equal(t, "default-project", params.Project)
	require.Equal(t, "us-central1", params.Location)
}

func TestAdaptVertexPrefersProviderOwnSettings(t *testing.T) {
	t.Parallel()

	prov := llm.Provider{Key: "google", VertexProject: "custom", VertexLocation: "us-east4"}
	params, ok := llm.AdaptVertex(prov, "default-project", "us-central1")
	require.True(t, ok)
	require.Equal(t, "custom", params.Project)
	require.Equal(t, "us-east4", params.Location)
}

func TestAdaptVertexSkipsNonGoogleProviders(t *testing.T) {
	t.Parallel()

	prov := llm.Provider{Key: "anthropic"}
	_, ok := llm.AdaptVertex(prov, "p", "l")
	require.False(t, ok)
}
