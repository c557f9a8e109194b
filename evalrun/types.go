// Package evalrun implements the eval harness (SPEC_FULL §3 "Eval
// harness"): EvalSuite/EvalRun/EvalTask entities, run dispatch, and
// garbage collection of old runs. The run_evals CLI command (spec §6)
// drives this package.
package evalrun

import (
	"context"
	"time"
)

// AgentStrategy selects how an EvalRun provisions the agent each scenario
// runs against.
type AgentStrategy string

const (
	// AgentStrategyEphemeralPerScenario creates a fresh Agent for every
	// scenario and tears it down after.
	AgentStrategyEphemeralPerScenario AgentStrategy = "ephemeral_per_scenario"
	// AgentStrategyReuseAgent runs every scenario in the suite against one
	// pre-existing Agent.
	AgentStrategyReuseAgent AgentStrategy = "reuse_agent"
)

// RunType distinguishes an ad hoc developer run from an official,
// tracked benchmark run.
type RunType string

const (
	RunTypeOneOff   RunType = "one_off"
	RunTypeOfficial RunType = "official"
)

// TaskStatus is an EvalTask's execution status.
type TaskStatus string

const (
	TaskStatusPending TaskStatus = "PENDING"
	TaskStatusRunning TaskStatus = "RUNNING"
	TaskStatusPassed  TaskStatus = "PASSED"
	TaskStatusFailed  TaskStatus = "FAILED"
	TaskStatusError   TaskStatus = "ERROR"
)

// RunStatus is an EvalRun's aggregate status.
type RunStatus string

const (
	RunStatusPending RunStatus = "PENDING"
	RunStatusRunning RunStatus = "RUNNING"
	RunStatusDone    RunStatus = "DONE"
)

// EvalSuite groups named scenarios under one slug (e.g. "browser-basics").
type EvalSuite struct {
	ID        string
	Slug      string
	Scenarios []string
}

// EvalRun is one invocation of one or more suites.
type EvalRun struct {
	ID            string
	SuiteSlugs    []string
	ScenarioSlug  string // optional filter
	AgentID       string // set when AgentStrategy is reuse_agent
	AgentStrategy AgentStrategy
	RunType       RunType
	Status        RunStatus
	CreatedAt     time.Time
	FinishedAt    time.Time
}

// EvalTask is one scenario's execution within an EvalRun.
type EvalTask struct {
	ID           string
	EvalRunID    string
	SuiteSlug    string
	ScenarioSlug string
	Status       TaskStatus
	AgentID      string
	Detail       string
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Store persists EvalSuites, EvalRuns, and EvalTasks.
type Store interface {
	SuiteBySlug(ctx context.Context, slug string) (EvalSuite, error)
	CreateRun(ctx context.Context, r EvalRun) (EvalRun, error)
	CreateTasks(ctx context.Context, tasks []EvalTask) ([]EvalTask, error)
	UpdateTaskStatus(ctx context.Context, taskID string, status TaskStatus, detail string, at time.Time) (EvalTask, error)
	GetRun(ctx context.Context, id string) (EvalRun, error)
	TasksForRun(ctx context.Context, runID string) ([]EvalTask, error)
	FinishRun(ctx context.Context, id string, at time.Time) (EvalRun, error)
	// RunsOlderThan returns finished runs older than cutoff, for GC.
	RunsOlderThan(ctx context.Context, cutoff time.Time) ([]EvalRun, error)
	DeleteRun(ctx context.Context, id string) error
}

// ScenarioRunner executes one scenario against an agent and reports
// pass/fail. A concrete implementation drives the event loop against the
// scenario's fixture inputs; tests substitute a fake.
type ScenarioRunner interface {
	RunScenario(ctx context.Context, agentID, suiteSlug, scenarioSlug string) (passed bool, detail string, err error)
}
