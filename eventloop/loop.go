package eventloop

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gobii-run/agentcore/agent"
	"github.com/gobii-run/agentcore/archive"
	"github.com/gobii-run/agentcore/credit"
	"github.com/gobii-run/agentcore/internal/clock"
	"github.com/gobii-run/agentcore/internal/idgen"
	"github.com/gobii-run/agentcore/llm"
	"github.com/gobii-run/agentcore/model"
	"github.com/gobii-run/agentcore/prompt"
	"github.com/gobii-run/agentcore/tools"
)

// ReservedReplyTokens is subtracted from an endpoint's context window to
// derive the token budget Assemble fits the prompt into (spec §4.4 "Token
// budget. token_budget = endpoint_context − reserved_reply").
const ReservedReplyTokens = 4096

// DefaultEndpointContextTokens is used when no EndpointContext resolver is
// configured; most current-generation endpoints offer at least this much
// context.
const DefaultEndpointContextTokens = 128_000

// PromptInputsFunc builds the system/user prompt inputs for one step. It is
// injected rather than assembled from a fixed set of collaborators because
// the narrative/filesystem/variable-catalog/allowlist inputs it draws from
// (spec §4.4 "Inputs") live across several packages this one does not
// otherwise depend on.
type PromptInputsFunc func(ctx context.Context, a agent.Agent) (prompt.SystemPromptInputs, prompt.UserPromptInputs, error)

// ToolViewFunc derives the tools.AgentView used for dispatch from the
// current Agent state (opt-in flags, etc.).
type ToolViewFunc func(a agent.Agent) tools.AgentView

// ModelResolver returns the model.Client that serves a resolved endpoint.
// Concrete wiring lives in llm/provider/{anthropic,openai,bedrock}; this
// package is oblivious to which adapter backs a given endpoint.
type ModelResolver func(ctx context.Context, endpoint llm.ResolvedEndpoint) (model.Client, error)

// PricingFunc resolves the per-token pricing schedule for an endpoint's
// underlying model (spec §4.2 step 5).
type PricingFunc func(endpoint llm.Endpoint) llm.Pricing

// CreditConfigFunc resolves an agent's plan's DailyCreditConfig. Plan
// membership is owner/billing state this package does not model directly.
type CreditConfigFunc func(ctx context.Context, a agent.Agent) (credit.DailyCreditConfig, error)

// PlanMultiplierFunc resolves the plan credit multiplier applied to every
// LLM invocation (spec §4.2 "resolved credit cost = total_cost ×
// plan_credit_multiplier × tier_credit_multiplier").
type PlanMultiplierFunc func(ctx context.Context, a agent.Agent) (float64, error)

// Runner drives process_agent_events for one agent at a time (spec §4.1).
// A single Runner is shared by every queue worker; callers invoke Run
// concurrently for different agents, and the Locker enforces single-flight
// per agent.
type Runner struct {
	Agents  agent.Store
	Router  *llm.Router
	Models  ModelResolver
	Pricing PricingFunc
	Tools   *tools.Dispatcher
	Archive archive.Store // optional: nil skips archival

	Prompts      PromptInputsFunc
	ToolView     ToolViewFunc
	CreditConfig CreditConfigFunc
	PlanMultiplier PlanMultiplierFunc

	// EndpointContextTokens resolves the context window for an endpoint,
	// used to derive the compaction token budget. Nil uses
	// DefaultEndpointContextTokens for every endpoint.
	EndpointContextTokens func(endpoint llm.Endpoint) int

	// Summarize backs prompt.Assemble's compaction step 2. Nil skips it.
	Summarize prompt.Summarizer

	Locker Locker
	Clock  clock.Clock

	// MaxSteps bounds one invocation (spec §4.1 "max_steps_per_invocation",
	// default DefaultMaxStepsPerInvocation).
	MaxSteps int
	// LockTTL is the advisory lock's TTL (default DefaultLockTTL).
	LockTTL time.Duration
}

func (r *Runner) clockNow() time.Time {
	if r.Clock == nil {
		return time.Now()
	}
	return r.Clock.Now()
}

func (r *Runner) maxSteps() int {
	if r.MaxSteps > 0 {
		return r.MaxSteps
	}
	return DefaultMaxStepsPerInvocation
}

func (r *Runner) lockTTL() time.Duration {
	if r.LockTTL > 0 {
		return r.LockTTL
	}
	return DefaultLockTTL
}

func (r *Runner) planMultiplier(ctx context.Context, a agent.Agent) (float64, error) {
	if r.PlanMultiplier == nil {
		return 1.0, nil
	}
	return r.PlanMultiplier(ctx, a)
}

func (r *Runner) pricing(endpoint llm.Endpoint) llm.Pricing {
	if r.Pricing == nil {
		return llm.Pricing{}
	}
	return r.Pricing(endpoint)
}

func (r *Runner) endpointContext(endpoint llm.Endpoint) int {
	if r.EndpointContextTokens == nil {
		return DefaultEndpointContextTokens
	}
	if n := r.EndpointContextTokens(endpoint); n > 0 {
		return n
	}
	return DefaultEndpointContextTokens
}

// Run executes process_agent_events(agentID) (spec §4.1 "Entry contract").
func (r *Runner) Run(ctx context.Context, agentID string) (Outcome, error) {
	out := Outcome{AgentID: agentID}
	lockKey := "agent_events:" + agentID

	token, acquired, err := r.Locker.TryAcquire(ctx, lockKey, r.lockTTL())
	if err != nil {
		out.ExitReason = ExitReasonFatal
		return out, fmt.Errorf("eventloop: acquire lock: %w", err)
	}
	if !acquired {
		if _, err := r.postMarker(ctx, agentID, agent.SystemStepProcessEvents, nil); err != nil {
			out.ExitReason = ExitReasonFatal
			return out, fmt.Errorf("eventloop: post contention marker: %w", err)
		}
		out.ExitReason = ExitReasonLockContention
		return out, nil
	}
	defer r.Locker.Release(ctx, lockKey, token)

	a, err := r.Agents.Get(ctx, agentID)
	if err != nil {
		out.ExitReason = ExitReasonFatal
		return out, fmt.Errorf("eventloop: load agent: %w", err)
	}

	cfg, err := r.resolveCreditConfig(ctx, a)
	if err != nil {
		out.ExitReason = ExitReasonFatal
		return out, fmt.Errorf("eventloop: resolve credit config: %w", err)
	}

	if exceeded, err := r.creditExhausted(ctx, a, cfg); err != nil {
		out.ExitReason = ExitReasonFatal
		return out, err
	} else if exceeded {
		_, _ = r.postMarker(ctx, agentID, agent.SystemStepCreditLimitHit, map[string]any{"reason": "daily_credit_limit_exhausted"})
		out.ExitReason = ExitReasonCreditLimitHit
		return out, nil
	}

	for out.StepsRun < r.maxSteps() {
		if out.StepsRun > 0 {
			// "hard limit at step start" (spec §4.1 daily credit
			// accounting): re-checked at the top of every iteration after
			// the first, which the entry check above already covered.
			if exceeded, err := r.creditExhausted(ctx, a, cfg); err != nil {
				out.ExitReason = ExitReasonFatal
				return out, err
			} else if exceeded {
				_, _ = r.postMarker(ctx, agentID, agent.SystemStepCreditLimitHit, map[string]any{"reason": "daily_credit_limit_exhausted"})
				out.ExitReason = ExitReasonCreditLimitHit
				break
			}
		}

		stepOut, stepErr := r.runStep(ctx, a)
		if stepErr != nil {
			if errors.Is(stepErr, llm.ErrTierExhaustion) {
				out.StepsRun++
				out.ExitReason = ExitReasonTierExhaustion
				break
			}
			// Spec §7 failure semantics: the error is dropped and the loop
			// continues for anything that is not tier exhaustion or a
			// budget condition. The
			// failed attempt still counts toward the step budget so a
			// persistently failing tool/model pairing cannot loop
			// forever within one invocation.
			out.StepsRun++
			continue
		}
		out.StepsRun++

		// Spec §4.1 "Daily credit accounting": crossing the soft target
		// mid-loop finishes the step that crossed it (already persisted
		// above) and then exits, distinct from the hard-limit check at
		// the top of the next iteration.
		if crossed, err := r.softTargetCrossed(ctx, a); err != nil {
			out.ExitReason = ExitReasonFatal
			return out, err
		} else if crossed {
			_, _ = r.postMarker(ctx, agentID, agent.SystemStepCreditLimitHit, map[string]any{"reason": "daily_credit_limit_mid_loop"})
			out.ExitReason = ExitReasonCreditLimitHit
			break
		}

		// A PROCESS_EVENTS marker posted during this step (spec §4.1 step
		// 4, "re-entry semantics") means the loop must continue past a
		// stop signal. The loop is sequential within one invocation
		// (spec §5), so any marker posted mid-step is still pending by
		// the time the step finishes.
		pending, err := r.Agents.PendingSystemSteps(ctx, agentID, agent.SystemStepProcessEvents)
		if err != nil {
			out.ExitReason = ExitReasonFatal
			return out, fmt.Errorf("eventloop: check pending markers: %w", err)
		}
		if len(pending) > 0 {
			if err := r.Agents.ConsumeSystemSteps(ctx, idsOf(pending)); err != nil {
				out.ExitReason = ExitReasonFatal
				return out, fmt.Errorf("eventloop: consume markers: %w", err)
			}
			continue
		}

		if stepOut.stop {
			out.ExitReason = ExitReasonStop
			break
		}
	}

	if out.ExitReason == "" {
		// Loop exited only because the step budget was exhausted.
		_, _ = r.postMarker(ctx, agentID, agent.SystemStepCreditLimitHit, map[string]any{"reason": "step_budget"})
		out.ExitReason = ExitReasonStepBudget
	}

	pending, err := r.Agents.PendingSystemSteps(ctx, agentID, agent.SystemStepProcessEvents)
	if err != nil {
		return out, fmt.Errorf("eventloop: check re-enqueue markers: %w", err)
	}
	out.ReEnqueue = len(pending) > 0
	return out, nil
}

func (r *Runner) postMarker(ctx context.Context, agentID string, code agent.SystemStepCode, notes map[string]any) (agent.SystemStep, error) {
	return r.Agents.AppendSystemStep(ctx, agent.SystemStep{
		ID:      idgen.New(idgen.PrefixSystemStep),
		AgentID: agentID,
		Code:    code,
		Notes:   notes,
		Created: r.clockNow(),
	})
}

func (r *Runner) resolveCreditConfig(ctx context.Context, a agent.Agent) (credit.DailyCreditConfig, error) {
	if r.CreditConfig == nil {
		return credit.Resolve(credit.PlanFree), nil
	}
	return r.CreditConfig(ctx, a)
}

// creditExhausted implements spec §4.1 step 2 (the entry check) and the
// "hard limit at step start" branch of the daily-credit-accounting
// paragraph: remaining_credits <= 0 against the soft target, OR today's
// usage has crossed the plan's hard limit.
func (r *Runner) creditExhausted(ctx context.Context, a agent.Agent, cfg credit.DailyCreditConfig) (bool, error) {
	usedToday, err := r.usedToday(ctx, a)
	if err != nil {
		return false, fmt.Errorf("eventloop: sum daily usage: %w", err)
	}
	if remaining, bounded := credit.RemainingCredits(a, usedToday); bounded && remaining <= 0 {
		return true, nil
	}
	if limit, unbounded := cfg.HardLimit(a.DailyCreditSoftTarget); !unbounded && usedToday >= limit {
		return true, nil
	}
	return false, nil
}

// softTargetCrossed implements the "mid-loop" branch: remaining_credits <=
// 0 against the soft target alone, checked after a step completes (spec
// §4.1 step 3f).
func (r *Runner) softTargetCrossed(ctx context.Context, a agent.Agent) (bool, error) {
	usedToday, err := r.usedToday(ctx, a)
	if err != nil {
		return false, fmt.Errorf("eventloop: sum daily usage: %w", err)
	}
	remaining, bounded := credit.RemainingCredits(a, usedToday)
	return bounded && remaining <= 0, nil
}

func (r *Runner) usedToday(ctx context.Context, a agent.Agent) (float64, error) {
	steps, err := r.Agents.StepsOnLocalDay(ctx, a.ID, r.clockNow(), time.UTC)
	if err != nil {
		return 0, err
	}
	var total float64
	for _, s := range steps {
		total += s.CreditCost
	}
	return total, nil
}

func idsOf(steps []agent.SystemStep) []string {
	ids := make([]string, len(steps))
	for i, s := range steps {
		ids[i] = s.ID
	}
	return ids
}

type stepOutcome struct {
	stop bool
}

// runStep executes loop iterations 3a-3e of spec §4.1 once: assemble the
// prompt, route and invoke the LLM, dispatch any declared tool calls in
// order, and persist one Step with its ToolCalls.
func (r *Runner) runStep(ctx context.Context, a agent.Agent) (stepOutcome, error) {
	sysIn, usrIn, err := r.Prompts(ctx, a)
	if err != nil {
		return stepOutcome{}, fmt.Errorf("eventloop: build prompt inputs: %w", err)
	}

	promptTokens := prompt.EstimateTokens(prompt.AssembleSystemPrompt(sysIn)) + prompt.EstimateTokens(prompt.AssembleUserPrompt(usrIn))
	preferredTier := llm.PreferredTier(a.PreferredTier)
	if preferredTier == "" {
		preferredTier = llm.PreferredTierStandard
	}

	sequence, err := r.Router.Route(ctx, promptTokens, preferredTier)
	if err != nil {
		return stepOutcome{}, err
	}

	budget := r.endpointContext(sequence[0].Endpoint) - ReservedReplyTokens
	render, err := prompt.Assemble(ctx, sysIn, usrIn, budget, r.Summarize)
	if err != nil {
		return stepOutcome{}, fmt.Errorf("eventloop: assemble prompt: %w", err)
	}

	stepID := idgen.New(idgen.PrefixStep)

	resp, resolved, planMult, err := r.completeWithFallback(ctx, sequence, render, a)
	if err != nil {
		// Tier exhaustion: still record a failed Step so the agent's
		// history shows the attempt (spec §7 "Record a failed step").
		if _, appendErr := r.Agents.AppendStep(ctx, agent.Step{
			ID:          stepID,
			AgentID:     a.ID,
			Description: "tier exhaustion: " + err.Error(),
			CreatedAt:   r.clockNow(),
		}, nil); appendErr != nil {
			return stepOutcome{}, appendErr
		}
		return stepOutcome{}, err
	}

	completion := llm.NewCompletion(
		resolved.Endpoint.Model,
		resp.Usage.InputTokens,
		resp.Usage.OutputTokens,
		resp.Usage.CacheReadTokens,
		r.pricing(resolved.Endpoint),
		planMult,
		resolved.Tier.CreditMultiplier,
		r.clockNow(),
	)

	reasoning := reasoningText(resp)
	view := r.toolView(a)

	calls := make([]agent.ToolCall, 0, len(resp.ToolCalls))
	for i, tc := range resp.ToolCalls {
		var params map[string]any
		if len(tc.Payload) > 0 {
			if err := json.Unmarshal(tc.Payload, &params); err != nil {
				params = map[string]any{}
			}
		}
		toolCallID := idgen.New(idgen.PrefixToolCall)
		dispatchResult, err := r.Tools.Dispatch(ctx, view, tc.Name, params, stepHex(stepID), toolCallID)
		if err != nil {
			return stepOutcome{}, fmt.Errorf("eventloop: dispatch %s: %w", tc.Name, err)
		}
		calls = append(calls, agent.ToolCall{
			ID:            toolCallID,
			StepID:        stepID,
			ToolName:      tc.Name,
			Params:        params,
			RawResultText: encodeResultText(dispatchResult.Payload),
			Ordinal:       i,
			CreatedAt:     r.clockNow(),
		})
	}

	if _, err := r.Agents.AppendStep(ctx, agent.Step{
		ID:          stepID,
		AgentID:     a.ID,
		Description: reasoning,
		CreditCost:  completion.CreditCost,
		CreatedAt:   r.clockNow(),
	}, calls); err != nil {
		return stepOutcome{}, fmt.Errorf("eventloop: persist step: %w", err)
	}

	if r.Archive != nil {
		if _, err := prompt.ArchiveRender(ctx, r.Archive, a.ID, stepID, render); err != nil {
			return stepOutcome{}, fmt.Errorf("eventloop: archive render: %w", err)
		}
	}

	return stepOutcome{stop: len(resp.ToolCalls) == 0}, nil
}

// completeWithFallback tries each resolved endpoint in sequence order until
// one Complete call succeeds (spec §4.2 step 4's per-attempt fallback).
func (r *Runner) completeWithFallback(ctx context.Context, sequence []llm.ResolvedEndpoint, render prompt.Render, a agent.Agent) (*model.Response, llm.ResolvedEndpoint, float64, error) {
	planMult, err := r.planMultiplier(ctx, a)
	if err != nil {
		return nil, llm.ResolvedEndpoint{}, 0, fmt.Errorf("eventloop: resolve plan multiplier: %w", err)
	}

	req := &model.Request{
		Messages: []*model.Message{
			{Role: model.ConversationRoleSystem, Parts: []model.Part{model.TextPart{Text: render.SystemPrompt}}},
			{Role: model.ConversationRoleUser, Parts: []model.Part{model.TextPart{Text: render.UserPrompt}}},
		},
	}

	var lastErr error
	for _, resolved := range sequence {
		req.Model = resolved.Endpoint.Model
		if !resolved.Endpoint.SupportsTemperature {
			req.Temperature = 0
		}

		client, err := r.Models(ctx, resolved)
		if err != nil {
			lastErr = err
			continue
		}
		resp, err := client.Complete(ctx, req)
		if err != nil {
			lastErr = err
			continue
		}
		return resp, resolved, planMult, nil
	}
	if lastErr == nil {
		lastErr = llm.ErrTierExhaustion
	}
	return nil, llm.ResolvedEndpoint{}, 0, fmt.Errorf("%w: %v", llm.ErrTierExhaustion, lastErr)
}

func (r *Runner) toolView(a agent.Agent) tools.AgentView {
	if r.ToolView != nil {
		return r.ToolView(a)
	}
	return tools.AgentView{AgentID: a.ID, OwnerID: a.OwnerID}
}

func reasoningText(resp *model.Response) string {
	var out string
	for _, msg := range resp.Content {
		for _, part := range msg.Parts {
			if tp, ok := part.(model.TextPart); ok {
				if out != "" {
					out += "\n"
				}
				out += tp.Text
			}
		}
	}
	return out
}

// stepHex derives the short hex token spec §4.3's variable-naming scheme
// calls step_hex, from a step ID that is not itself a hex integer (this
// module's Step IDs are UUID-prefixed, not incrementing integers).
func stepHex(stepID string) string {
	sum := sha256.Sum256([]byte(stepID))
	return hex.EncodeToString(sum[:])[:8]
}

func encodeResultText(payload map[string]any) string {
	enc, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf("%v", payload)
	}
	return string(enc)
}
