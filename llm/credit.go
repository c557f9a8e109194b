package llm

import "time"

// Pricing is the per-token cost schedule for an endpoint's underlying model,
// expressed in USD per token (spec §4.2 step 5 "pricing, total-cost").
type Pricing struct {
	PromptPerToken     float64
	CompletionPerToken float64
	CachedPerToken     float64
}

// Completion records one router attempt's usage and resolved cost (spec
// §4.2 step 5: "Record one Completion per attempt"). Credit decimals are
// fixed-point 6-dp in the original system; CreditCost here is the float64
// value a caller rounds to that precision before persisting.
type Completion struct {
	Model            string
	PromptTokens     int
	CompletionTokens int
	CachedTokens     int
	TotalCost        float64
	CreditCost       float64
	RecordedAt       time.Time
}

// NewCompletion computes TotalCost from pricing and usage, and CreditCost by
// applying the plan and tier multipliers (spec §4.2 step 5: "resolved
// credit cost = total_cost × plan_credit_multiplier × tier_credit_multiplier").
func NewCompletion(model string, promptTokens, completionTokens, cachedTokens int, pricing Pricing, planCreditMultiplier, tierCreditMultiplier float64, recordedAt time.Time) Completion {
	totalCost := float64(promptTokens)*pricing.PromptPerToken +
		float64(completionTokens)*pricing.CompletionPerToken +
		float64(cachedTokens)*pricing.CachedPerToken

	if planCreditMultiplier == 0 {
		planCreditMultiplier = 1.0
	}
	if tierCreditMultiplier == 0 {
		tierCreditMultiplier = 1.0
	}

	return Completion{
		Model:            model,
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		CachedTokens:     cachedTokens,
		TotalCost:        totalCost,
		CreditCost:       totalCost * planCreditMultiplier * tierCreditMultiplier,
		RecordedAt:       recordedAt,
	}
}
