package main

import (
	"context"
	"fmt"

	"github.com/gobii-run/agentcore/agent"
	"github.com/gobii-run/agentcore/archive"
	"github.com/gobii-run/agentcore/config"
	"github.com/gobii-run/agentcore/credit"
	"github.com/gobii-run/agentcore/eventloop"
	"github.com/gobii-run/agentcore/llm"
	"github.com/gobii-run/agentcore/llm/provider/anthropic"
	"github.com/gobii-run/agentcore/llm/provider/openai"
	"github.com/gobii-run/agentcore/model"
	"github.com/gobii-run/agentcore/prompt"
	"github.com/gobii-run/agentcore/tools"
	"github.com/gobii-run/agentcore/tools/mcp"
	"github.com/gobii-run/agentcore/variables"
)

// defaultScenarioRunnerPricing is applied uniformly across endpoints when no
// per-model pricing table is configured. The source loads pricing from a
// billing-owned table this module's Non-goals exclude; run_evals only needs
// pricing well-formed enough that credit accounting doesn't divide by zero.
var defaultScenarioRunnerPricing = llm.Pricing{
	PromptPerToken:     0.000003,
	CompletionPerToken: 0.000015,
	CachedPerToken:     0.0000003,
}

// buildScenarioRunner assembles the one concrete evalrun.ScenarioRunner
// wiring this CLI ships: it drives the real eventloop.Runner in-process
// (spec §4.1), the same engine a queue worker would call, against whatever
// routing profile and agent the run_evals invocation names. It is
// deliberately the simplest of the two dispatch paths eventloop exposes —
// TemporalEngine.Trigger durably wraps the identical Runner for production
// queue workers; a one-shot CLI invocation has no need for that durability.
func buildScenarioRunner(cfg *config.Config, agents agent.Store, archiveStore archive.Store) (*eventloopScenarioRunner, error) {
	profile, err := llm.LoadProfile(cfg.RoutingProfilePath)
	if err != nil {
		return nil, fmt.Errorf("load routing profile: %w", err)
	}

	registry := tools.NewRegistry()
	if cfg.MCPNexusBaseURL != "" {
		if err := registerRemoteMCPTools(registry, cfg); err != nil {
			return nil, fmt.Errorf("register remote mcp tools: %w", err)
		}
	}

	runner := &eventloop.Runner{
		Agents:  agents,
		Router:  llm.NewRouter(profile, nil),
		Models:  resolveModelClient,
		Pricing: func(llm.Endpoint) llm.Pricing { return defaultScenarioRunnerPricing },
		Tools: tools.NewDispatcher(registry, variables.NewMemoryStore(nil),
			tools.NewInMemoryRateLimiter(nil), nil, cfg.MinVariableBytes),
		Archive: archiveStore,
		Prompts: func(_ context.Context, a agent.Agent) (prompt.SystemPromptInputs, prompt.UserPromptInputs, error) {
			sys := prompt.SystemPromptInputs{Identity: prompt.Identity{AgentID: a.ID, Charter: a.Charter}}
			return sys, prompt.UserPromptInputs{}, nil
		},
		ToolView: func(a agent.Agent) tools.AgentView {
			return tools.AgentView{AgentID: a.ID, OwnerID: a.OwnerID}
		},
		CreditConfig: func(context.Context, agent.Agent) (credit.DailyCreditConfig, error) {
			return credit.Resolve(credit.PlanFree), nil
		},
		PlanMultiplier: func(context.Context, agent.Agent) (float64, error) { return 1.0, nil },
		Locker:         eventloop.NewMemoryLocker(nil),
		MaxSteps:       cfg.MaxStepsPerInvocation,
		LockTTL:        cfg.AgentLockTTL,
	}
	return &eventloopScenarioRunner{runner: runner}, nil
}

// registerRemoteMCPTools wires every name in cfg.MCPTools as a remote tool
// backed by one NexusCaller against cfg.MCPNexusBaseURL (spec §4.3
// "internal + remote MCP"). This module has no MCP tools/list discovery
// call wired, so the operator enumerates tool names explicitly rather than
// the registry populating itself from a runtime catalog fetch.
func registerRemoteMCPTools(registry *tools.Registry, cfg *config.Config) error {
	caller, err := mcp.NewNexusCaller(mcp.NexusOptions{
		BaseURL: cfg.MCPNexusBaseURL,
		Service: cfg.MCPNexusService,
	})
	if err != nil {
		return err
	}
	descriptors := make([]mcp.ToolDescriptor, 0, len(cfg.MCPTools))
	for _, name := range cfg.MCPTools {
		descriptors = append(descriptors, mcp.ToolDescriptor{
			Suite:      cfg.MCPNexusService,
			Tool:       name,
			Visibility: tools.VisibleToAll,
		})
	}
	return mcp.RegisterTools(registry, caller, descriptors)
}

// resolveModelClient adapts a routed endpoint to a concrete model.Client.
// Anthropic- and OpenAI-keyed providers (including OpenAI-compatible
// proxies addressed by BaseURL, e.g. Fireworks/OpenRouter per SPEC_FULL §2)
// are supported directly; a Bedrock-keyed provider needs an AWS credential
// chain this CLI does not build (the module carries no aws-sdk-go-v2/config
// dependency), so it errors rather than silently no-op.
func resolveModelClient(_ context.Context, ep llm.ResolvedEndpoint) (model.Client, error) {
	switch ep.Provider.Key {
	case "anthropic":
		return anthropic.NewFromAPIKey(ep.Provider.APIKey, anthropic.Options{
			DefaultModel:        ep.Endpoint.Model,
			MaxTokens:           4096,
			SupportsTemperature: ep.Endpoint.SupportsTemperature,
			SupportsToolChoice:  ep.Endpoint.SupportsToolChoice,
		})
	case "bedrock":
		return nil, fmt.Errorf("run_evals: bedrock-backed endpoint %q: CLI has no AWS credential wiring", ep.Endpoint.Key)
	default:
		return openai.NewFromAPIKey(ep.Provider.APIKey, ep.Endpoint.BaseURL, openai.Options{
			DefaultModel:        ep.Endpoint.Model,
			MaxTokens:           4096,
			SupportsTemperature: ep.Endpoint.SupportsTemperature,
			SupportsToolChoice:  ep.Endpoint.SupportsToolChoice,
		})
	}
}

// eventloopScenarioRunner implements evalrun.ScenarioRunner by invoking
// process_agent_events once per scenario and reading the Outcome back.
// Scenario fixtures (inputs the agent should react to) are out of scope for
// this CLI's default wiring: a suite's Scenarios are slugs the Store
// resolves to pre-seeded Steps/Messages, not inline payloads the CLI reads.
type eventloopScenarioRunner struct {
	runner *eventloop.Runner
}

func (r *eventloopScenarioRunner) RunScenario(ctx context.Context, agentID, suiteSlug, scenarioSlug string) (bool, string, error) {
	out, err := r.runner.Run(ctx, agentID)
	if err != nil {
		return false, "", fmt.Errorf("%s/%s: %w", suiteSlug, scenarioSlug, err)
	}
	detail := fmt.Sprintf("exit_reason=%s steps_run=%d re_enqueue=%t", out.ExitReason, out.StepsRun, out.ReEnqueue)
	switch out.ExitReason {
	case eventloop.ExitReasonStop:
		return true, detail, nil
	default:
		return false, detail, nil
	}
}
