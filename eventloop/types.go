// Package eventloop implements process_agent_events (spec §4.1): the
// single-flight, step-budgeted loop that drives one agent from "some event
// happened" to a stable rest state. It wires together the LLM tier router
// (package llm), the tool dispatcher (package tools), prompt assembly
// (package prompt), and the Agent/Step/SystemStep persistence contract
// (package agent).
package eventloop

import "time"

// ExitReason classifies why one process_agent_events invocation stopped
// (spec §4.1 steps 2-4, §7 error categories).
type ExitReason string

const (
	// ExitReasonStop is the normal path: the model asserted stop and no
	// mid-loop PROCESS_EVENTS marker arrived during the step.
	ExitReasonStop ExitReason = "stop"
	// ExitReasonCreditLimitHit covers both the hard-limit check made before
	// each step after the first (remaining_credits <= 0) and a mid-loop
	// crossing of the soft target after a step.
	ExitReasonCreditLimitHit ExitReason = "credit_limit_hit"
	// ExitReasonStepBudget fires when max_steps_per_invocation is exceeded.
	ExitReasonStepBudget ExitReason = "step_budget"
	// ExitReasonTierExhaustion fires when the LLM router exhausts every
	// endpoint in every applicable tier for one step (spec §7).
	ExitReasonTierExhaustion ExitReason = "tier_exhaustion"
	// ExitReasonLockContention means another invocation is already running;
	// this invocation only posted a mid-loop marker and returned.
	ExitReasonLockContention ExitReason = "lock_contention"
	// ExitReasonFatal covers configuration-absent / unrecoverable errors
	// (spec §7 "Fatal"): the loop aborts without a success step.
	ExitReasonFatal ExitReason = "fatal"
)

// Outcome is what one process_agent_events invocation reports to its
// caller (a queue worker, a CLI command, or a test).
type Outcome struct {
	AgentID string

	// StepsRun counts the step attempts made during this invocation, failed
	// ones included; it is the count the step budget bounds.
	StepsRun int

	ExitReason ExitReason

	// ReEnqueue is true when at least one mid-loop PROCESS_EVENTS marker
	// remains unconsumed at exit, so the caller must schedule a fresh
	// invocation (spec §4.1 step 4).
	ReEnqueue bool
}

// DefaultMaxStepsPerInvocation is spec §4.1's "max_steps_per_invocation is a
// small integer (≈30)".
const DefaultMaxStepsPerInvocation = 30

// DefaultLockTTL is the advisory lock's TTL, "slightly longer than the
// maximum single-step budget" (spec §4.1).
const DefaultLockTTL = 2 * time.Minute
