package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gobii-run/agentcore/digest"
	"github.com/gobii-run/agentcore/variables"
)

// DefaultRateLimitWindow is the trailing window spec §4.3 step 4 measures
// "hourly limit" calls over.
const DefaultRateLimitWindow = time.Hour

// Dispatcher runs the full tool invocation pipeline (spec §4.3): resolve
// variables, check schema/visibility, run guards, check the rate limit,
// execute, adapt the result, variableize it, and record the call.
type Dispatcher struct {
	Registry         *Registry
	Variables        variables.Store
	RateLimiter      RateLimiter
	Recorder         Recorder
	MinVariableBytes int
}

// NewDispatcher wires a Dispatcher from its required collaborators.
// rateLimiter and recorder may be nil: a nil rate limiter skips step 4
// entirely, and a nil recorder skips step 8.
func NewDispatcher(registry *Registry, store variables.Store, rateLimiter RateLimiter, recorder Recorder, minVariableBytes int) *Dispatcher {
	return &Dispatcher{
		Registry:         registry,
		Variables:        store,
		RateLimiter:      rateLimiter,
		Recorder:         recorder,
		MinVariableBytes: minVariableBytes,
	}
}

// Dispatch runs the pipeline for one tool call. stepHex and toolCallID feed
// the deterministic variable-naming scheme (spec §4.3 "Variable naming")
// and the recorded ToolCallRecord.
func (d *Dispatcher) Dispatch(ctx context.Context, agent AgentView, toolName string, rawParams map[string]any, stepHex, toolCallID string) (DispatchResult, error) {
	tool, ok := d.Registry.Visible(toolName, agent)
	if !ok {
		return DispatchResult{
			Status:  StatusNotFound,
			Payload: map[string]any{"error": fmt.Sprintf("tool %q is not available", toolName)},
		}, nil
	}

	// Step 1: resolve variables.
	resolved, _, err := variables.ResolveParams(ctx, d.Variables, agent.AgentID, rawParams)
	if err != nil {
		var resErr *variables.ResolutionError
		if errors.As(err, &resErr) {
			return DispatchResult{
				Status:  StatusError,
				Payload: map[string]any{"error": resErr.Error()},
			}, nil
		}
		return DispatchResult{}, err
	}
	params, ok := resolved.(map[string]any)
	if !ok {
		params = map[string]any{}
	}

	// Step 2: schema check (visibility already checked above).
	if err := ValidateParams(tool.Schema, params); err != nil {
		return DispatchResult{
			Status:  StatusError,
			Payload: map[string]any{"error": err.Error()},
		}, nil
	}

	// Step 3: parameter guards, in registration order.
	for _, guard := range tool.Guards {
		if rejection := guard(ctx, agent, params); rejection != nil {
			return DispatchResult{
				Status:  StatusError,
				Payload: map[string]any{"error": rejection.Message},
			}, nil
		}
	}

	// Step 4: rate limit.
	if d.RateLimiter != nil && tool.RateLimit != nil {
		allowed, err := d.RateLimiter.Allow(ctx, agent.OwnerID, tool.Name, tool.RateLimit.MaxPerHour, DefaultRateLimitWindow)
		if err != nil {
			return DispatchResult{}, err
		}
		if !allowed {
			return DispatchResult{
				Status:  StatusError,
				Payload: map[string]any{"error": fmt.Sprintf("rate limit exceeded for %q: %d calls/hour", tool.Name, tool.RateLimit.MaxPerHour)},
			}, nil
		}
	}

	// Step 5: execute. A handler error here is reserved for conditions
	// fatal to the step (spec §7), so it propagates rather than becoming a
	// StatusError result.
	result, err := tool.Handler(ctx, agent, params)
	if err != nil {
		return DispatchResult{}, err
	}

	payload := result.Payload
	if payload == nil {
		payload = map[string]any{}
	}

	rawResultText := encodeResultText(payload)

	// Step 6: adapt bulk content into a compact skeleton/digest.
	payload = d.adapt(tool, payload)

	// Step 7: variableize.
	cleaned, cfg := variables.ExtractVariableizeConfig(payload)
	var sideEffects []SideEffect
	if d.Variables != nil {
		created, err := variables.FromConfig(ctx, d.Variables, agent.AgentID, tool.Name, stepHex, toolCallID, cleaned, cfg)
		if err != nil {
			return DispatchResult{}, err
		}
		for _, v := range created {
			sideEffects = append(sideEffects, SideEffect{Kind: SideEffectVariableCreated, Detail: v.Name})
		}

		if full, err := variables.FromFullResult(ctx, d.Variables, agent.AgentID, tool.Name, stepHex, toolCallID, rawResultText, d.minVariableBytes()); err != nil {
			return DispatchResult{}, err
		} else if full != nil {
			sideEffects = append(sideEffects, SideEffect{Kind: SideEffectVariableCreated, Detail: full.Name})
		}
	}
	payload = cleaned

	// Step 8: record.
	if d.Recorder != nil {
		if err := d.Recorder.RecordToolCall(ctx, ToolCallRecord{
			ToolName:      tool.Name,
			Params:        params,
			RawResultText: rawResultText,
			Status:        result.Status,
		}); err != nil {
			return DispatchResult{}, err
		}
	}

	return DispatchResult{Status: result.Status, Payload: payload, SideEffects: sideEffects}, nil
}

func (d *Dispatcher) minVariableBytes() int {
	if d.MinVariableBytes > 0 {
		return d.MinVariableBytes
	}
	return 1024
}

// adapt applies the §4.5 result adapter a tool declares, replacing its raw
// content field with the compacted prompt-ready form.
func (d *Dispatcher) adapt(tool Tool, payload map[string]any) map[string]any {
	if tool.Adapt == AdaptNone {
		return payload
	}
	field := tool.RawContentField
	if field == "" {
		field = "content"
	}
	raw, ok := payload[field]
	if !ok {
		return payload
	}

	out := make(map[string]any, len(payload))
	for k, v := range payload {
		out[k] = v
	}

	switch tool.Adapt {
	case AdaptJSON:
		rawStr, _ := raw.(string)
		var digestResult digest.JSONDigest
		if rawStr != "" {
			digestResult = digest.JSONDigestor{}.DigestString(rawStr)
		} else {
			digestResult = digest.JSONDigestor{}.Digest(raw, "")
		}
		out[field] = digestResult.ToPrompt()

	case AdaptText:
		text, _ := raw.(string)
		out[field] = digest.TextDigestor{}.Digest(text).ToPrompt()

	case AdaptSERP:
		markdown, _ := raw.(string)
		title, _ := payload["query"].(string)
		skeleton := digest.ExtractSERPSkeleton(markdown, title)
		if rendered, err := skeleton.ToJSON(); err == nil {
			out[field] = rendered
		}
		if hint, ok := digest.ContextHint(skeleton); ok {
			out["context_hint"] = hint
		}

	case AdaptArticle:
		markdown, _ := raw.(string)
		title, _ := payload["title"].(string)
		skeleton := digest.ExtractArticleSkeleton(markdown, title)
		if rendered, err := skeleton.ToJSON(); err == nil {
			out[field] = rendered
		}
	}

	return out
}

// encodeResultText renders a handler's payload as the text step 8 persists
// verbatim, before any adaptation.
func encodeResultText(payload map[string]any) string {
	enc, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf("%v", payload)
	}
	return string(enc)
}
