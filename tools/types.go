// Package tools implements the tool dispatch pipeline (spec §4.3): variable
// resolution, schema/visibility checks, parameter guards, rate limiting,
// execution, result adaptation, variableization, and recording. Tools are
// registered as plain values in an in-memory map keyed by name (spec §9
// "Dynamic dispatch on tools → registry map"), not as a class hierarchy.
package tools

import (
	"context"
	"time"
)

// AgentView is the subset of agent state the dispatch pipeline needs:
// identity for variable/rate-limit scoping, and opt-in flags a tool's
// Visibility predicate may consult (spec §4.3 step 2, "some tools require
// opt-in flags such as sandbox access").
type AgentView struct {
	AgentID string
	OwnerID string
	Flags   map[string]bool
}

// HasFlag reports whether the agent has opted into the named capability.
func (a AgentView) HasFlag(name string) bool {
	return a.Flags != nil && a.Flags[name]
}

// VisibilityFunc decides whether a tool is exposed to a given agent (spec
// §6 "visibility predicate (agent → bool)").
type VisibilityFunc func(agent AgentView) bool

// VisibleToAll is the default Visibility for tools with no opt-in
// requirement.
func VisibleToAll(AgentView) bool { return true }

// RequiresFlag returns a Visibility predicate admitting only agents with
// the named flag set.
func RequiresFlag(flag string) VisibilityFunc {
	return func(agent AgentView) bool { return agent.HasFlag(flag) }
}

// GuardRejection is returned by a Guard to block execution before the tool
// handler runs (spec §4.3 step 3).
type GuardRejection struct {
	Message string
}

// Guard inspects the resolved params (and agent) before execution, and
// either lets the call through (returns nil) or rejects it. Guards run in
// registration order; the first rejection wins (spec §4.3 step 3).
type Guard func(ctx context.Context, agent AgentView, params map[string]any) *GuardRejection

// AdaptKind selects which §4.5 result adapter runs over a tool's raw result
// before it becomes next-iteration context (spec §4.3 step 6).
type AdaptKind string

const (
	AdaptNone    AdaptKind = ""
	AdaptJSON    AdaptKind = "json"
	AdaptText    AdaptKind = "text"
	AdaptSERP    AdaptKind = "serp"
	AdaptArticle AdaptKind = "article"
)

// RateLimit caps how often an agent's owner may invoke a tool (spec §4.3
// step 4, "per-plan hourly limit").
type RateLimit struct {
	MaxPerHour int
}

// Status is the outcome of a tool handler invocation (spec §6 "Tool
// invocation contract").
type Status string

const (
	StatusOK       Status = "ok"
	StatusError    Status = "error"
	StatusNotFound Status = "not_found"
)

// Result is what a tool handler returns. Payload carries the
// handler-specific fields (including an optional "_variableize" config and,
// for content-producing tools, a raw content field named by
// Tool.RawContentField).
type Result struct {
	Status  Status
	Payload map[string]any
}

// HandlerFunc executes a tool's side effect. A non-nil error is reserved
// for conditions the dispatcher must treat as fatal to the step (context
// cancellation, deadline exceeded); all other failures should be reported
// through Result{Status: StatusError} so the model can self-correct (spec
// §7 "Parameter-guard rejection ... the step continues").
type HandlerFunc func(ctx context.Context, agent AgentView, params map[string]any) (Result, error)

// Tool is the registry's unit of dispatch: name, schema, visibility,
// guards, and handler (spec §6 "Tool invocation contract").
type Tool struct {
	Name        string
	Description string
	Schema      map[string]any
	Visibility  VisibilityFunc
	Guards      []Guard
	RateLimit   *RateLimit
	Adapt       AdaptKind
	// RawContentField names the Payload key the adapter reads (and
	// replaces with the compacted form) when Adapt != AdaptNone. Defaults
	// to "content" when empty.
	RawContentField string
	Handler         HandlerFunc
}

// RateLimiter tracks per-owner, per-tool invocation counts over a sliding
// window (spec §4.3 step 4). Implementations must be safe for concurrent
// use.
type RateLimiter interface {
	// Allow records one invocation attempt and reports whether it is
	// within limit calls over the trailing window.
	Allow(ctx context.Context, ownerID, toolName string, limit int, window time.Duration) (bool, error)
}

// SideEffectKind classifies an entry in a DispatchResult's side-effect log.
type SideEffectKind string

const (
	SideEffectVariableCreated SideEffectKind = "variable_created"
)

// SideEffect records an ancillary action the dispatch pipeline took beyond
// returning a result, such as creating a Variable (spec §4.3 steps 7-8).
type SideEffect struct {
	Kind   SideEffectKind
	Detail string
}

// DispatchResult is the tool dispatcher's contract: `dispatch(agent,
// tool_name, params) → {status, payload, side_effects[]}` (spec §4.3
// "Contract").
type DispatchResult struct {
	Status      Status
	Payload     map[string]any
	SideEffects []SideEffect
}

// Recorder persists a completed tool invocation (spec §4.3 step 8,
// "Record"). The canonical implementation lives in a storage package not
// yet built in this module; dispatch runs without one when nil.
type Recorder interface {
	RecordToolCall(ctx context.Context, rec ToolCallRecord) error
}

// ToolCallRecord is what step 8 persists: the tool name, params after
// variable resolution, and the raw (pre-adaptation) result text.
type ToolCallRecord struct {
	ToolName      string
	Params        map[string]any
	RawResultText string
	Status        Status
}
