package llm_test

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gobii-run/agentcore/llm"
)

func sampleProfile() llm.RoutingProfile {
	return llm.RoutingProfile{
		Name: "test",
		Providers: []llm.Provider{
			{Key: "anthropic", Enabled: true, APIKey: "sk-ant-test"},
			{Key: "openai", Enabled: true, APIKey: "sk-oai-test"},
			{Key: "fireworks", Enabled: true}, // no API key
		},
		Endpoints: []llm.Endpoint{
			{Key: "anthropic_sonnet", Provider: "anthropic", Model: "claude-sonnet", Enabled: true},
			{Key: "openai_gpt5", Provider: "openai", Model: "gpt-5", Enabled: true},
			{Key: "fireworks_qwen", Provider: "fireworks", Model: "qwen3", Enabled: true},
		},
		TokenRanges: []llm.TokenRangeTiers{
			{
				Range: llm.TokenRange{Name: "small", Min: 0, Max: 7500},
				Tiers: []llm.Tier{
					{Order: 1, CreditMultiplier: 1.0, Endpoints: []llm.TierEndpoint{
						{EndpointKey: "openai_gpt5", Weight: 0.9},
						{EndpointKey: "fireworks_qwen", Weight: 0.1}, // no key, should be skipped
					}},
					{Order: 2, CreditMultiplier: 1.2, Premium: true, Endpoints: []llm.TierEndpoint{
						{EndpointKey: "anthropic_sonnet", Weight: 1.0},
					}},
				},
			},
		},
	}
}

func TestRouteSelectsTokenRangeContainingPromptTokens(t *testing.T) {
	t.Parallel()

	r := llm.NewRouter(sampleProfile(), rand.New(rand.NewSource(1)))
	seq, err := r.Route(context.Background(), 100, llm.PreferredTierStandard)
	require.NoError(t, err)
	require.NotEmpty(t, seq)
	require.Equal(t, "openai_gpt5", seq[0].Endpoint.Key)
}

func TestRouteSkipsEndpointsWithoutAPIKey(t *testing.T) {
	t.Parallel()

	r := llm.NewRouter(sampleProfile(), rand.New(rand.NewSource(1)))
	seq, err := r.Route(context.Background(), 100, llm.PreferredTierStandard)
	require.NoError(t, err)
	for _, a := range seq {
		require.NotEqual(t, "fireworks_qwen", a.Endpoint.Key)
	}
}

func TestRouteStandardExcludesPremiumTiers(t *testing.T) {
	t.Parallel()

	r := llm.NewRouter(sampleProfile(), rand.New(rand.NewSource(1)))
	seq, err := r.Route(context.Background(), 100, llm.PreferredTierStandard)
	require.NoError(t, err)
	for _, a := range seq {
		require.False(t, a.Tier.Premium)
	}
}

func TestRoutePremiumIncludesPremiumFirstThenStandard(t *testing.T) {
	t.Parallel()

	r := llm.NewRouter(sampleProfile(), rand.New(rand.NewSource(1)))
	seq, err := r.Route(context.Background(), 100, llm.PreferredTierPremium)
	require.NoError(t, err)
	require.True(t, len(seq) >= 1)
	require.True(t, seq[0].Tier.Premium)
}

func TestRouteReturnsNoMatchingTokenRangeError(t *testing.T) {
	t.Parallel()

	r := llm.NewRouter(sampleProfile(), rand.New(rand.NewSource(1)))
	_, err := r.Route(context.Background(), 1_000_000, llm.PreferredTierStandard)
	require.ErrorIs(t, err, llm.ErrNoMatchingTokenRange)
}

func TestRouteReturnsTierExhaustionWhenNoEndpointEligible(t *testing.T) {
	t.Parallel()

	profile := llm.RoutingProfile{
		Providers: []llm.Provider{{Key: "openai", Enabled: false, APIKey: "sk"}},
		Endpoints: []llm.Endpoint{{Key: "ep", Provider: "openai", Enabled: true}},
		TokenRanges: []llm.TokenRangeTiers{{
			Range: llm.TokenRange{Name: "any", Min: 0, Max: 0},
			Tiers: []llm.Tier{{Order: 1, Endpoints: []llm.TierEndpoint{{EndpointKey: "ep", Weight: 1.0}}}},
		}},
	}
	r := llm.NewRouter(profile, rand.New(rand.NewSource(1)))
	_, err := r.Route(context.Background(), 10, llm.PreferredTierStandard)
	require.ErrorIs(t, err, llm.ErrTierExhaustion)
}

func TestTokenRangeUnboundedMaxContainsLargeCounts(t *testing.T) {
	t.Parallel()
	r := llm.TokenRange{Name: "large", Min: 20000, Max: 0}
	require.True(t, r.Contains(1_000_000))
	require.False(t, r.Contains(100))
}
