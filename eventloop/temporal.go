package eventloop

import (
	"context"
	"fmt"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	temporalotel "go.temporal.io/sdk/contrib/opentelemetry"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"
)

// WorkflowName is the Temporal workflow type that durably executes one
// process_agent_events invocation.
const WorkflowName = "ProcessAgentEventsWorkflow"

// activityName is the Temporal activity type the workflow schedules. The
// activity, not the workflow function, does the actual work: process_agent_events
// makes LLM calls, tool-handler network/subprocess calls, and database
// writes throughout its loop (spec §5 "Suspension points"), none of which
// are safe to run directly inside a deterministic workflow function.
const activityName = "ProcessAgentEventsActivity"

// TemporalEngine runs process_agent_events as a single durable activity
// invocation per agent event, using Temporal as the durable execution
// backend (SPEC_FULL §3 "Durable engine backend"). The workflow itself is a
// thin, deterministic wrapper: its only job is to schedule the activity and
// return its result, so that Temporal's retry/visibility/history machinery
// covers invocations that crash mid-loop (a worker process dying between
// steps) without this package reimplementing that bookkeeping.
type TemporalEngine struct {
	Client    client.Client
	TaskQueue string
	Runner    *Runner

	// ActivityTimeout bounds one process_agent_events invocation's activity
	// execution, inclusive of every step inside the loop. Defaults to 30
	// minutes.
	ActivityTimeout time.Duration
}

func (e *TemporalEngine) activityTimeout() time.Duration {
	if e.ActivityTimeout > 0 {
		return e.ActivityTimeout
	}
	return 30 * time.Minute
}

// RegisterWith registers the workflow and activity definitions on w. Call
// this once per worker process before w.Start / worker.Run.
func (e *TemporalEngine) RegisterWith(w worker.Worker) {
	w.RegisterWorkflowWithOptions(e.workflow, workflow.RegisterOptions{Name: WorkflowName})
	w.RegisterActivityWithOptions(e.runActivity, activity.RegisterOptions{Name: activityName})
}

// NewWorker constructs a Temporal worker bound to TaskQueue and registers
// this engine's workflow/activity on it.
func (e *TemporalEngine) NewWorker(opts worker.Options) worker.Worker {
	w := worker.New(e.Client, e.TaskQueue, opts)
	e.RegisterWith(w)
	return w
}

// Trigger starts (or, for a still-running prior invocation, relies on
// Temporal's WorkflowIDReusePolicy to no-op against) a workflow execution
// for agentID, and waits for it to complete.
func (e *TemporalEngine) Trigger(ctx context.Context, agentID string) (Outcome, error) {
	workflowID := "process-agent-events:" + agentID
	run, err := e.Client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:                       workflowID,
		TaskQueue:                e.TaskQueue,
		WorkflowExecutionTimeout: e.activityTimeout() + time.Minute,
	}, WorkflowName, agentID)
	if err != nil {
		return Outcome{AgentID: agentID}, fmt.Errorf("eventloop: start workflow: %w", err)
	}

	var out Outcome
	if err := run.Get(ctx, &out); err != nil {
		return Outcome{AgentID: agentID}, fmt.Errorf("eventloop: await workflow: %w", err)
	}
	return out, nil
}

// workflow is the deterministic Temporal workflow function: it schedules
// exactly one activity execution and returns its result.
func (e *TemporalEngine) workflow(ctx workflow.Context, agentID string) (Outcome, error) {
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: e.activityTimeout(),
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	})

	var out Outcome
	err := workflow.ExecuteActivity(ctx, activityName, agentID).Get(ctx, &out)
	return out, err
}

// runActivity is the Temporal activity handler: it performs the actual
// process_agent_events invocation via the wrapped Runner.
func (e *TemporalEngine) runActivity(ctx context.Context, agentID string) (Outcome, error) {
	return e.Runner.Run(ctx, agentID)
}

// InstrumentClientOptions installs the OTEL tracing interceptor and metrics
// handler onto opts, so that every workflow/activity this engine runs emits
// spans and metrics without each caller wiring that up by hand. tracing and
// metrics are both optional: a zero-value TracerOptions/MetricsHandlerOptions
// is valid and uses the contrib package's defaults.
func InstrumentClientOptions(opts client.Options, tracerOpts temporalotel.TracerOptions, metricsOpts temporalotel.MetricsHandlerOptions) (client.Options, error) {
	tracer, err := temporalotel.NewTracingInterceptor(tracerOpts)
	if err != nil {
		return opts, fmt.Errorf("eventloop: configure temporal tracing interceptor: %w", err)
	}
	opts.Interceptors = append(opts.Interceptors, tracer)
	if opts.MetricsHandler == nil {
		opts.MetricsHandler = temporalotel.NewMetricsHandler(metricsOpts)
	}
	return opts, nil
}

// InstrumentWorkerOptions installs the same OTEL tracing interceptor on a
// worker.Options so activity/workflow executions on this worker are traced
// consistently with the client side.
func InstrumentWorkerOptions(opts worker.Options, tracerOpts temporalotel.TracerOptions) (worker.Options, error) {
	tracer, err := temporalotel.NewTracingInterceptor(tracerOpts)
	if err != nil {
		return opts, fmt.Errorf("eventloop: configure temporal tracing interceptor: %w", err)
	}
	opts.Interceptors = append(opts.Interceptors, tracer)
	return opts, nil
}
