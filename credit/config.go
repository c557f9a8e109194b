// Package credit resolves per-plan daily credit configuration (spec §3
// DailyCreditConfig/ToolConfig/BrowserConfig) and computes the soft/hard
// daily limits the event loop's credit accounting (spec §4.1) checks
// against.
package credit

import "github.com/gobii-run/agentcore/agent"

// PlanKey identifies a billing plan; the zero value resolves to the free
// plan's configuration.
type PlanKey string

const (
	PlanFree     PlanKey = "free"
	PlanStandard PlanKey = "standard"
	PlanPro      PlanKey = "pro"
)

// ToolConfig bounds per-tool call rates for a plan (spec §3 ToolConfig).
type ToolConfig struct {
	ToolName   string
	MaxPerHour int
}

// BrowserConfig bounds browser-tier tool usage for a plan (spec §3
// BrowserConfig, SPEC_FULL §3 "Browser-tier policy").
type BrowserConfig struct {
	MaxTasksPerDay int
}

// DailyCreditConfig is the resolved per-plan configuration governing the
// daily credit soft-target slider bounds, burn-rate alert threshold, the
// hard-limit multiplier, and per-tool/browser limits (spec §3
// DailyCreditConfig).
type DailyCreditConfig struct {
	Plan PlanKey

	SoftTargetMin int
	SoftTargetMax int

	// BurnRateThreshold is the fraction of the soft target (0-1) that, if
	// crossed within BurnRateWindowMinutes, should raise a burn-rate alert
	// (spec §3 BurnRateSnapshot's consumer).
	BurnRateThreshold     float64
	BurnRateWindowMinutes int

	// HardLimitMultiplier computes the hard daily limit as
	// SoftTarget * HardLimitMultiplier (spec §4.1 "hard limit = soft_target
	// x hard_limit_multiplier").
	HardLimitMultiplier float64

	Tools   []ToolConfig
	Browser BrowserConfig
}

// defaults holds the built-in per-plan configuration table. A production
// deployment may override these from store/postgres; Resolve falls back to
// this table when no override is found.
var defaults = map[PlanKey]DailyCreditConfig{
	PlanFree: {
		Plan: PlanFree, SoftTargetMin: 0, SoftTargetMax: 50,
		BurnRateThreshold: 0.8, BurnRateWindowMinutes: 60,
		HardLimitMultiplier: 1.2,
		Browser:             BrowserConfig{MaxTasksPerDay: 1},
	},
	PlanStandard: {
		Plan: PlanStandard, SoftTargetMin: 0, SoftTargetMax: 500,
		BurnRateThreshold: 0.8, BurnRateWindowMinutes: 60,
		HardLimitMultiplier: 1.5,
		Browser:             BrowserConfig{MaxTasksPerDay: 25},
	},
	PlanPro: {
		Plan: PlanPro, SoftTargetMin: 0, SoftTargetMax: 5000,
		BurnRateThreshold: 0.9, BurnRateWindowMinutes: 60,
		HardLimitMultiplier: 2.0,
		Browser:             BrowserConfig{MaxTasksPerDay: 200},
	},
}

// Resolve returns the DailyCreditConfig for plan, falling back to the free
// plan's configuration when plan is unrecognized.
func Resolve(plan PlanKey) DailyCreditConfig {
	if cfg, ok := defaults[plan]; ok {
		return cfg
	}
	return defaults[PlanFree]
}

// HardLimit returns the hard daily credit limit derived from an agent's
// soft target and this config's multiplier, or 0 (meaning unbounded) when
// the agent has no soft target set (spec §4.1 "remaining_credits = ...
// or infinite if soft_target is null").
func (c DailyCreditConfig) HardLimit(softTarget *int) (limit float64, unbounded bool) {
	if softTarget == nil {
		return 0, true
	}
	return float64(*softTarget) * c.HardLimitMultiplier, false
}

// RemainingCredits computes spec §4.1 step 2's remaining_credits for the
// agent given how much it has already used today. A nil soft target means
// unlimited, represented by ok=false.
func RemainingCredits(a agent.Agent, usedToday float64) (remaining float64, ok bool) {
	if a.DailyCreditSoftTarget == nil {
		return 0, false
	}
	remaining = float64(*a.DailyCreditSoftTarget) - usedToday
	if remaining < 0 {
		remaining = 0
	}
	return remaining, true
}

// ToolLimit returns the configured hourly limit for toolName, or 0 (no
// limit enforced) when the tool has no plan-specific entry.
func (c DailyCreditConfig) ToolLimit(toolName string) int {
	for _, t := range c.Tools {
		if t.ToolName == toolName {
			return t.MaxPerHour
		}
	}
	return 0
}
