package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gobii-run/agentcore/tools"
)

// ToolDescriptor is the static shape of one MCP tool as advertised by a
// remote server: just enough for the registry's schema/visibility checks
// (spec §4.3 step 2), with actual invocation delegated to Caller.
type ToolDescriptor struct {
	Suite       string
	Tool        string
	Description string
	Schema      map[string]any
	Visibility  tools.VisibilityFunc
	RateLimit   *tools.RateLimit
	Adapt       tools.AdaptKind
}

// RegisterTool wraps one ToolDescriptor as a tools.Tool backed by caller
// and adds it to registry under "<suite>.<tool>", the same dotted naming
// the prompt assembler uses for every remote-sourced tool (spec §4.3
// "internal + remote MCP").
func RegisterTool(registry *tools.Registry, caller Caller, d ToolDescriptor) error {
	if d.Suite == "" || d.Tool == "" {
		return fmt.Errorf("mcp: ToolDescriptor.Suite and Tool are required")
	}
	name := d.Suite + "." + d.Tool
	return registry.Register(tools.Tool{
		Name:        name,
		Description: d.Description,
		Schema:      d.Schema,
		Visibility:  d.Visibility,
		RateLimit:   d.RateLimit,
		Adapt:       d.Adapt,
		Handler:     handlerFor(caller, d.Suite, d.Tool),
	})
}

// RegisterTools registers every descriptor the remote server reports,
// stopping at the first registration failure.
func RegisterTools(registry *tools.Registry, caller Caller, descriptors []ToolDescriptor) error {
	for _, d := range descriptors {
		if err := RegisterTool(registry, caller, d); err != nil {
			return err
		}
	}
	return nil
}

func handlerFor(caller Caller, suite, tool string) tools.HandlerFunc {
	return func(ctx context.Context, _ tools.AgentView, params map[string]any) (tools.Result, error) {
		payload, err := json.Marshal(params)
		if err != nil {
			return tools.Result{}, fmt.Errorf("mcp: marshal params for %s.%s: %w", suite, tool, err)
		}

		resp, err := caller.CallTool(ctx, CallRequest{Suite: suite, Tool: tool, Payload: payload})
		if err != nil {
			// Transport/protocol failures are reported as a tool-level
			// error so the model can see and react to them (spec §4.3
			// step 5 contract), not propagated as a fatal dispatch error.
			return tools.Result{
				Status:  tools.StatusError,
				Payload: map[string]any{"error": err.Error()},
			}, nil
		}

		out := map[string]any{}
		if len(resp.Result) > 0 {
			var decoded any
			if err := json.Unmarshal(resp.Result, &decoded); err != nil {
				out["content"] = string(resp.Result)
			} else if m, ok := decoded.(map[string]any); ok {
				out = m
			} else {
				out["content"] = decoded
			}
		}
		return tools.Result{Status: tools.StatusOK, Payload: out}, nil
	}
}
