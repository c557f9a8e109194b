package evalrun

import (
	"context"
	"fmt"

	"github.com/gobii-run/agentcore/internal/clock"
	"github.com/gobii-run/agentcore/internal/idgen"
)

// Request describes one run_evals invocation (spec §6 CLI flags: --suite,
// --scenario, --agent-id, --agent-strategy, --sync, --run-type).
type Request struct {
	SuiteSlugs    []string
	ScenarioSlug  string
	AgentID       string
	AgentStrategy AgentStrategy
	RunType       RunType
	Sync          bool
}

// Dispatcher creates EvalRuns/EvalTasks and drives them through a
// ScenarioRunner, grounded on the same (Store, Clock) wiring every
// event-driven package in this module shares.
type Dispatcher struct {
	Store  Store
	Runner ScenarioRunner
	Clock  clock.Clock
}

// NewDispatcher wires a Dispatcher; clock defaults to clock.Real when nil.
func NewDispatcher(store Store, runner ScenarioRunner, c clock.Clock) *Dispatcher {
	if c == nil {
		c = clock.Real
	}
	return &Dispatcher{Store: store, Runner: runner, Clock: c}
}

// Start creates the EvalRun and its EvalTasks (one per scenario across the
// requested suites, filtered to ScenarioSlug when set). When req.Sync is
// true it runs every task before returning; otherwise it returns
// immediately after creating PENDING tasks for a caller to drain
// asynchronously with Drain.
func (d *Dispatcher) Start(ctx context.Context, req Request) (EvalRun, error) {
	run, err := d.Store.CreateRun(ctx, EvalRun{
		ID:            idgen.New("evr"),
		SuiteSlugs:    req.SuiteSlugs,
		ScenarioSlug:  req.ScenarioSlug,
		AgentID:       req.AgentID,
		AgentStrategy: req.AgentStrategy,
		RunType:       req.RunType,
		Status:        RunStatusPending,
		CreatedAt:     d.Clock.Now(),
	})
	if err != nil {
		return EvalRun{}, err
	}

	var tasks []EvalTask
	for _, slug := range req.SuiteSlugs {
		suite, err := d.Store.SuiteBySlug(ctx, slug)
		if err != nil {
			return EvalRun{}, fmt.Errorf("evalrun: suite %q: %w", slug, err)
		}
		for _, scenario := range suite.Scenarios {
			if req.ScenarioSlug != "" && scenario != req.ScenarioSlug {
				continue
			}
			tasks = append(tasks, EvalTask{
				ID:           idgen.New("evt"),
				EvalRunID:    run.ID,
				SuiteSlug:    slug,
				ScenarioSlug: scenario,
				Status:       TaskStatusPending,
				AgentID:      req.AgentID,
			})
		}
	}
	if _, err := d.Store.CreateTasks(ctx, tasks); err != nil {
		return EvalRun{}, err
	}

	if req.Sync {
		if err := d.Drain(ctx, run.ID); err != nil {
			return EvalRun{}, err
		}
		return d.Store.GetRun(ctx, run.ID)
	}
	return run, nil
}

// Drain runs every PENDING task for runID to completion and finishes the
// run once no pending tasks remain.
func (d *Dispatcher) Drain(ctx context.Context, runID string) error {
	tasks, err := d.Store.TasksForRun(ctx, runID)
	if err != nil {
		return err
	}
	for _, t := range tasks {
		if t.Status != TaskStatusPending {
			continue
		}
		if _, err := d.Store.UpdateTaskStatus(ctx, t.ID, TaskStatusRunning, "", d.Clock.Now()); err != nil {
			return err
		}
		passed, detail, runErr := d.Runner.RunScenario(ctx, t.AgentID, t.SuiteSlug, t.ScenarioSlug)
		status := TaskStatusFailed
		switch {
		case runErr != nil:
			status = TaskStatusError
			detail = runErr.Error()
		case passed:
			status = TaskStatusPassed
		}
		if _, err := d.Store.UpdateTaskStatus(ctx, t.ID, status, detail, d.Clock.Now()); err != nil {
			return err
		}
	}
	_, err = d.Store.FinishRun(ctx, runID, d.Clock.Now())
	return err
}

// GC deletes finished runs older than cutoff (SPEC_FULL §3 "GC of old
// runs").
func (d *Dispatcher) GC(ctx context.Context, cutoffDays int) (int, error) {
	cutoff := d.Clock.Now().AddDate(0, 0, -cutoffDays)
	stale, err := d.Store.RunsOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	for _, r := range stale {
		if err := d.Store.DeleteRun(ctx, r.ID); err != nil {
			return 0, err
		}
	}
	return len(stale), nil
}
