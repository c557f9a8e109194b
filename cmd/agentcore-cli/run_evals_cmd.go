package main

import (
	"context"
	"fmt"

	"github.com/gobii-run/agentcore/agent"
	archivepkg "github.com/gobii-run/agentcore/archive"
	"github.com/gobii-run/agentcore/config"
	"github.com/gobii-run/agentcore/evalrun"
	"github.com/gobii-run/agentcore/store/postgres"
)

// RunEvalsCmd runs one or more eval suites against an agent (spec §6
// "run_evals"). Suite may repeat; Scenario, when set, filters every
// requested suite down to one scenario slug.
type RunEvalsCmd struct {
	Suite         []string `name:"suite" required:"" help:"Eval suite slug to run; may be repeated."`
	Scenario      string   `help:"Restrict the run to this scenario slug within each suite."`
	AgentID       string   `name:"agent-id" help:"Existing agent to run against (required for --agent-strategy reuse_agent)."`
	AgentStrategy string   `name:"agent-strategy" enum:"ephemeral_per_scenario,reuse_agent" default:"ephemeral_per_scenario" help:"How the run provisions the agent."`
	Sync          bool     `help:"Run every task before returning and report pass/fail inline."`
	RunType       string   `name:"run-type" enum:"one_off,official" default:"one_off" help:"Whether this run counts as an official, tracked benchmark."`
	Official      bool     `help:"Shorthand for --run-type official."`
}

func (c *RunEvalsCmd) Run(cfg *config.Config) error {
	strategy := evalrun.AgentStrategy(c.AgentStrategy)
	runType := evalrun.RunType(c.RunType)
	if c.Official {
		runType = evalrun.RunTypeOfficial
	}
	if strategy == evalrun.AgentStrategyReuseAgent && c.AgentID == "" {
		return invalidArgument("run_evals: --agent-id is required with --agent-strategy reuse_agent")
	}

	ctx := context.Background()
	pool, err := openPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("run_evals: %w", err)
	}
	defer pool.Close()

	agents := postgres.NewAgentStore(pool)
	agentID := c.AgentID
	if strategy == evalrun.AgentStrategyEphemeralPerScenario && agentID == "" {
		created, err := agents.Create(ctx, agent.Agent{
			OwnerID:   "eval-harness",
			Charter:   fmt.Sprintf("Ephemeral eval agent for suites %v", c.Suite),
			LifeState: agent.LifeStateActive,
		})
		if err != nil {
			return fmt.Errorf("run_evals: create ephemeral agent: %w", err)
		}
		agentID = created.ID
	}

	var archiveStore archivepkg.Store
	if cfg.MongoURL != "" {
		store, closeStore, err := openArchiveStore(ctx, cfg)
		if err != nil {
			return fmt.Errorf("run_evals: %w", err)
		}
		defer closeStore(ctx)
		archiveStore = store
	}

	scenarioRunner, err := buildScenarioRunner(cfg, agents, archiveStore)
	if err != nil {
		return fmt.Errorf("run_evals: %w", err)
	}

	evalStore := postgres.NewEvalRunStore(pool)
	dispatcher := evalrun.NewDispatcher(evalStore, scenarioRunner, nil)
	runReq := evalrun.Request{
		SuiteSlugs:    c.Suite,
		ScenarioSlug:  c.Scenario,
		AgentID:       agentID,
		AgentStrategy: strategy,
		RunType:       runType,
		Sync:          c.Sync,
	}

	started, err := dispatcher.Start(ctx, runReq)
	if err != nil {
		return invalidArgument("run_evals: %w", err)
	}

	if !c.Sync {
		fmt.Printf("run_evals: queued run %s (%d suite(s)), drain asynchronously\n", started.ID, len(c.Suite))
		return nil
	}

	tasks, err := evalStore.TasksForRun(ctx, started.ID)
	if err != nil {
		return fmt.Errorf("run_evals: load run %s tasks: %w", started.ID, err)
	}

	failed := 0
	for _, t := range tasks {
		fmt.Printf("run_evals: %s/%s -> %s (%s)\n", t.SuiteSlug, t.ScenarioSlug, t.Status, t.Detail)
		if t.Status == evalrun.TaskStatusFailed || t.Status == evalrun.TaskStatusError {
			failed++
		}
	}
	if failed > 0 {
		return partialFailure("run_evals: %d of %d scenario(s) did not pass", failed, len(tasks))
	}
	return nil
}
