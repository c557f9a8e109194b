package llm

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
)

// ErrTierExhaustion indicates every endpoint in every tier applicable to a
// request failed (spec §5 "Tier exhaustion").
var ErrTierExhaustion = errors.New("llm: all tiers exhausted")

// ErrNoMatchingTokenRange indicates no token range in the active routing
// profile contains the requested prompt token count.
var ErrNoMatchingTokenRange = errors.New("llm: no token range contains prompt token count")

// ResolvedEndpoint is one candidate the router offers for an attempt: the
// concrete Endpoint plus the Tier it was drawn from (for credit-multiplier
// and premium/max bookkeeping).
type ResolvedEndpoint struct {
	Endpoint Endpoint
	Provider Provider
	Tier     Tier
}

// Attempt is a single endpoint offered by an Attempts sequence.
type Attempt = ResolvedEndpoint

// Router selects endpoints for LLM invocations per the active routing
// profile (spec §4.2).
type Router struct {
	profile RoutingProfile
	rng     *rand.Rand
}

// NewRouter constructs a Router over the given routing profile. rng may be
// nil, in which case a source seeded from math/rand's process-global
// generator is used; tests inject a seeded *rand.Rand for deterministic
// weighted-random selection.
func NewRouter(profile RoutingProfile, rng *rand.Rand) *Router {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &Router{profile: profile, rng: rng}
}

// Route returns the ordered fallback sequence of endpoints for a prompt of
// promptTokens tokens, filtered by preferredTier (spec §4.2 steps 1-4). The
// first element is the primary pick; callers iterate on failure until the
// sequence is exhausted, at which point ErrTierExhaustion applies.
func (r *Router) Route(_ context.Context, promptTokens int, preferredTier PreferredTier) ([]ResolvedEndpoint, error) {
	group, err := r.tokenRangeFor(promptTokens)
	if err != nil {
		return nil, err
	}

	tiers := filterTiersByPreference(group.Tiers, preferredTier)

	var sequence []ResolvedEndpoint
	for _, tier := range tiers {
		candidates := r.eligibleEndpoints(tier)
		for len(candidates) > 0 {
			idx := weightedPick(r.rng, candidates)
			picked := candidates[idx]
			resolved, err := r.resolve(tier, picked)
			if err == nil {
				sequence = append(sequence, resolved)
			}
			candidates = append(candidates[:idx], candidates[idx+1:]...)
		}
	}
	if len(sequence) == 0 {
		return nil, ErrTierExhaustion
	}
	return sequence, nil
}

func (r *Router) tokenRangeFor(promptTokens int) (TokenRangeTiers, error) {
	for _, group := range r.profile.TokenRanges {
		if group.Range.Contains(promptTokens) {
			return group, nil
		}
	}
	return TokenRangeTiers{}, ErrNoMatchingTokenRange
}

// filterTiersByPreference orders and filters tiers per spec §4.2 step 2:
// standard includes all non-premium/non-max tiers; premium includes premium
// tiers first then standard; max includes max tiers first then premium then
// standard.
func filterTiersByPreference(tiers []Tier, preferred PreferredTier) []Tier {
	standard := make([]Tier, 0, len(tiers))
	premium := make([]Tier, 0, len(tiers))
	max := make([]Tier, 0, len(tiers))
	for _, t := range tiers {
		switch {
		case t.Max:
			max = append(max, t)
		case t.Premium:
			premium = append(premium, t)
		default:
			standard = append(standard, t)
		}
	}
	byOrder := func(ts []Tier) []Tier {
		out := make([]Tier, len(ts))
		copy(out, ts)
		sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
		return out
	}
	standard, premium, max = byOrder(standard), byOrder(premium), byOrder(max)

	switch preferred {
	case PreferredTierMax:
		return concatTiers(max, premium, standard)
	case PreferredTierPremium:
		return concatTiers(premium, standard)
	default:
		return standard
	}
}

func concatTiers(groups ...[]Tier) []Tier {
	var out []Tier
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// eligibleEndpoints returns the TierEndpoints in tier with weight > 0 whose
// endpoint is enabled and whose provider is enabled and has an API key
// (spec §4.2 step 3).
func (r *Router) eligibleEndpoints(tier Tier) []TierEndpoint {
	out := make([]TierEndpoint, 0, len(tier.Endpoints))
	for _, te := range tier.Endpoints {
		if te.Weight <= 0 {
			continue
		}
		ep, err := r.profile.endpointByKey(te.EndpointKey)
		if err != nil || !ep.Enabled {
			continue
		}
		prov, err := r.profile.providerByKey(ep.Provider)
		if err != nil || !prov.Enabled || !prov.HasAPIKey() {
			continue
		}
		out = append(out, te)
	}
	return out
}

func (r *Router) resolve(tier Tier, te TierEndpoint) (ResolvedEndpoint, error) {
	ep, err := r.profile.endpointByKey(te.EndpointKey)
	if err != nil {
		return ResolvedEndpoint{}, err
	}
	prov, err := r.profile.providerByKey(ep.Provider)
	if err != nil {
		return ResolvedEndpoint{}, err
	}
	return ResolvedEndpoint{Endpoint: ep, Provider: prov, Tier: tier}, nil
}

// weightedPick selects an index from candidates by weighted random choice.
// Weights need not sum to 1 (spec §4.2 step 4 "normalize").
func weightedPick(rng *rand.Rand, candidates []TierEndpoint) int {
	total := 0.0
	for _, c := range candidates {
		total += c.Weight
	}
	if total <= 0 {
		return 0
	}
	target := rng.Float64() * total
	cursor := 0.0
	for i, c := range candidates {
		cursor += c.Weight
		if target < cursor {
			return i
		}
	}
	return len(candidates) - 1
}

// Provider returns the Provider record by key, for callers that need the
// resolved credential outside of a Route call (e.g. the vertex adapter).
func (r *Router) Provider(key string) (Provider, error) {
	return r.profile.providerByKey(key)
}

// String renders a ResolvedEndpoint for logging.
func (a ResolvedEndpoint) String() string {
	return fmt.Sprintf("%s/%s (tier %d)", a.Provider.Key, a.Endpoint.Model, a.Tier.Order)
}
