// Package llm implements the LLM tier router (spec §4.2): given a prompt's
// token count and a preferred tier, it resolves a primary endpoint plus a
// lazy fallback sequence drawn from the active routing profile, and records
// the credit cost of every attempt.
package llm

import (
	"errors"
	"strings"
)

// EndpointKind distinguishes the routing graphs a tier can belong to.
// Persistent is the main agent loop; Browser and Embeddings are independent
// routing graphs used by the browser automation tool and the duplicate
// guard / retrieval paths respectively (SPEC_FULL §3 "Browser-tier policy").
type EndpointKind string

const (
	EndpointKindPersistent EndpointKind = "persistent"
	EndpointKindBrowser    EndpointKind = "browser"
	EndpointKindEmbeddings EndpointKind = "embeddings"
	// EndpointKindFileHandler is the independent routing graph used for
	// tool-driven LLM calls such as vision-enabled file reads (spec §4.2
	// "tool-driven LLM calls... use the file-handler tier independently",
	// SPEC_FULL §3 "File-handler tier").
	EndpointKindFileHandler EndpointKind = "file_handler"
)

// PreferredTier is the caller-requested tier filter (spec §4.2 step 2).
type PreferredTier string

const (
	PreferredTierStandard PreferredTier = "standard"
	PreferredTierPremium  PreferredTier = "premium"
	PreferredTierMax      PreferredTier = "max"
)

// Provider is an LLM vendor account: an API key (from an encrypted store,
// with an environment-variable fallback) plus vertex adaptation fields for
// Google-backed endpoints (spec §4.2 "Vertex adaptation").
type Provider struct {
	Key            string
	DisplayName    string
	Enabled        bool
	EnvVarName     string
	VertexProject  string
	VertexLocation string

	// APIKey is the resolved secret. Resolve populates this from the
	// encrypted store when present, else from the environment variable
	// named by EnvVarName.
	APIKey string
}

// HasAPIKey reports whether the provider has a usable credential.
func (p Provider) HasAPIKey() bool {
	return p.APIKey != ""
}

// IsVertex reports whether this provider's key names a Vertex-backed
// provider (spec §4.2 "If the provider key contains 'google'...").
func (p Provider) IsVertex() bool {
	return strings.Contains(strings.ToLower(p.Key), "google")
}

// Endpoint is a concrete (provider, model) pair with capability flags the
// router and provider adapters must respect (spec §4.2 "Capability flags").
type Endpoint struct {
	Key         string
	Provider    string // Provider.Key
	Kind        EndpointKind
	Model       string
	BaseURL     string
	Enabled     bool
	Vision      bool

	SupportsToolChoice   bool
	UseParallelToolCalls bool
	SupportsTemperature  bool
	TemperatureOverride  *float64
}

// TokenRange is a half-open range `[Min, Max)` of prompt token counts; Max
// of 0 means unbounded (spec §4.2 step 1, §6 glossary "Token ranges are
// half-open... with max = infinity allowed").
type TokenRange struct {
	Name string
	Min  int
	Max  int // 0 means unbounded
}

// Contains reports whether promptTokens falls within [Min, Max).
func (r TokenRange) Contains(promptTokens int) bool {
	if promptTokens < r.Min {
		return false
	}
	return r.Max == 0 || promptTokens < r.Max
}

// Tier is an ordered group of TierEndpoints within a token range (persistent)
// or a policy (browser/embeddings), carrying the credit multiplier applied
// to every LLM invocation routed through it (spec §4.2 "Credit multiplier").
type Tier struct {
	Order            int
	Description      string
	Premium          bool
	Max              bool
	CreditMultiplier float64
	Endpoints        []TierEndpoint
}

// TierEndpoint pins an Endpoint to a Tier with a positive weight used for
// intra-tier weighted-random selection (spec §4.2 step 4).
type TierEndpoint struct {
	EndpointKey string
	Weight      float64
}

// RoutingProfile is the full LLM configuration graph: Provider -> Endpoint ->
// Tier -> TierEndpoint -> TokenRange (spec §6 glossary). Exactly one routing
// profile is active globally (spec §6 "LLM configuration graph" invariant).
type RoutingProfile struct {
	Name       string
	Providers  []Provider
	Endpoints  []Endpoint
	TokenRanges []TokenRangeTiers
}

// TokenRangeTiers groups the ordered tiers that apply within one token
// range of the persistent routing graph.
type TokenRangeTiers struct {
	Range TokenRange
	Tiers []Tier
}

var errProviderNotFound = errors.New("llm: provider not found")
var errEndpointNotFound = errors.New("llm: endpoint not found")

func (p RoutingProfile) providerByKey(key string) (Provider, error) {
	for _, prov := range p.Providers {
		if prov.Key == key {
			return prov, nil
		}
	}
	return Provider{}, errProviderNotFound
}

func (p RoutingProfile) endpointByKey(key string) (Endpoint, error) {
	for _, ep := range p.Endpoints {
		if ep.Key == key {
			return ep, nil
		}
	}
	return Endpoint{}, errEndpointNotFound
}
