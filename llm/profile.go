package llm

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// profileDocument is the YAML shape of a routing profile file (spec §4.2,
// mirroring the original's DB-seeded routing profile per
// SPEC_FULL §2 "LLM configuration graph loaded from a YAML routing-profile
// file").
type profileDocument struct {
	Name      string             `yaml:"name"`
	Providers []providerYAML     `yaml:"providers"`
	Endpoints []endpointYAML     `yaml:"endpoints"`
	TokenRanges []tokenRangeYAML `yaml:"token_ranges"`
}

type providerYAML struct {
	Key            string `yaml:"key"`
	DisplayName    string `yaml:"display_name"`
	Enabled        bool   `yaml:"enabled"`
	EnvVarName     string `yaml:"env_var_name"`
	VertexProject  string `yaml:"vertex_project"`
	VertexLocation string `yaml:"vertex_location"`
}

type endpointYAML struct {
	Key                  string   `yaml:"key"`
	Provider             string   `yaml:"provider"`
	Kind                 string   `yaml:"kind"`
	Model                string   `yaml:"model"`
	BaseURL              string   `yaml:"base_url"`
	Enabled              bool     `yaml:"enabled"`
	Vision               bool     `yaml:"vision"`
	SupportsToolChoice   bool     `yaml:"supports_tool_choice"`
	UseParallelToolCalls bool     `yaml:"use_parallel_tool_calls"`
	SupportsTemperature  bool     `yaml:"supports_temperature"`
	TemperatureOverride  *float64 `yaml:"temperature_override"`
}

type tokenRangeYAML struct {
	Name  string     `yaml:"name"`
	Min   int        `yaml:"min_tokens"`
	Max   int        `yaml:"max_tokens"`
	Tiers []tierYAML `yaml:"tiers"`
}

type tierYAML struct {
	Order            int              `yaml:"order"`
	Description      string           `yaml:"description"`
	Premium          bool             `yaml:"premium"`
	Max              bool             `yaml:"max"`
	CreditMultiplier float64          `yaml:"credit_multiplier"`
	Endpoints        []tierEndpointYAML `yaml:"endpoints"`
}

type tierEndpointYAML struct {
	Endpoint string  `yaml:"endpoint"`
	Weight   float64 `yaml:"weight"`
}

// LoadProfile reads and parses the routing profile YAML file at path (spec
// §6 "LLM configuration graph"; SPEC_FULL §2 gopkg.in/yaml.v3).
func LoadProfile(path string) (RoutingProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RoutingProfile{}, fmt.Errorf("llm: read routing profile %s: %w", path, err)
	}
	var doc profileDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return RoutingProfile{}, fmt.Errorf("llm: parse routing profile %s: %w", path, err)
	}
	return doc.toProfile(), nil
}

func (doc profileDocument) toProfile() RoutingProfile {
	profile := RoutingProfile{Name: doc.Name}

	for _, p := range doc.Providers {
		profile.Providers = append(profile.Providers, Provider{
			Key:            p.Key,
			DisplayName:    p.DisplayName,
			Enabled:        p.Enabled,
			EnvVarName:     p.EnvVarName,
			VertexProject:  p.VertexProject,
			VertexLocation: p.VertexLocation,
		})
	}

	for _, e := range doc.Endpoints {
		kind := EndpointKind(e.Kind)
		if kind == "" {
			kind = EndpointKindPersistent
		}
		profile.Endpoints = append(profile.Endpoints, Endpoint{
			Key:                  e.Key,
			Provider:             e.Provider,
			Kind:                 kind,
			Model:                e.Model,
			BaseURL:              e.BaseURL,
			Enabled:              e.Enabled,
			Vision:               e.Vision,
			SupportsToolChoice:   e.SupportsToolChoice,
			UseParallelToolCalls: e.UseParallelToolCalls,
			SupportsTemperature:  e.SupportsTemperature,
			TemperatureOverride:  e.TemperatureOverride,
		})
	}

	for _, tr := range doc.TokenRanges {
		group := TokenRangeTiers{Range: TokenRange{Name: tr.Name, Min: tr.Min, Max: tr.Max}}
		for _, t := range tr.Tiers {
			tier := Tier{
				Order:            t.Order,
				Description:      t.Description,
				Premium:          t.Premium,
				Max:              t.Max,
				CreditMultiplier: t.CreditMultiplier,
			}
			if tier.CreditMultiplier == 0 {
				tier.CreditMultiplier = 1.0
			}
			for _, te := range t.Endpoints {
				tier.Endpoints = append(tier.Endpoints, TierEndpoint{EndpointKey: te.Endpoint, Weight: te.Weight})
			}
			group.Tiers = append(group.Tiers, tier)
		}
		profile.TokenRanges = append(profile.TokenRanges, group)
	}

	return profile
}

// ResolveSecrets fills in each Provider's APIKey from secretStore (the
// encrypted credential store) or, when absent, the environment variable
// named by EnvVarName (spec §4.2 step 3 "from encrypted store or env
// fallback").
func ResolveSecrets(profile RoutingProfile, secretStore func(providerKey string) (string, bool)) RoutingProfile {
	for i, p := range profile.Providers {
		if secretStore != nil {
			if key, ok := secretStore(p.Key); ok && key != "" {
				profile.Providers[i].APIKey = key
				continue
			}
		}
		if p.EnvVarName != "" {
			profile.Providers[i].APIKey = os.Getenv(p.EnvVarName)
		}
	}
	return profile
}
