package eventloop_test

import (
	"context"
	"encoding/json"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gobii-run/agentcore/agent"
	"github.com/gobii-run/agentcore/eventloop"
	"github.com/gobii-run/agentcore/internal/clock"
	"github.com/gobii-run/agentcore/llm"
	"github.com/gobii-run/agentcore/model"
	"github.com/gobii-run/agentcore/prompt"
	"github.com/gobii-run/agentcore/tools"
	"github.com/gobii-run/agentcore/variables"
)

func testProfile() llm.RoutingProfile {
	return llm.RoutingProfile{
		Name: "test",
		Providers: []llm.Provider{
			{Key: "anthropic", Enabled: true, APIKey: "sk-test"},
		},
		Endpoints: []llm.Endpoint{
			{Key: "claude-standard", Provider: "anthropic", Kind: llm.EndpointKindPersistent, Model: "claude-test", Enabled: true, SupportsTemperature: true},
		},
		TokenRanges: []llm.TokenRangeTiers{
			{
				Range: llm.TokenRange{Name: "small", Min: 0, Max: 0},
				Tiers: []llm.Tier{
					{
						Order:            0,
						CreditMultiplier: 1,
						Endpoints:        []llm.TierEndpoint{{EndpointKey: "claude-standard", Weight: 1}},
					},
				},
			},
		},
	}
}

func testRouter() *llm.Router {
	return llm.NewRouter(testProfile(), rand.New(rand.NewSource(1)))
}

// fakeModel answers fixed responses in sequence. When responses run out it
// repeats the last response (success or error) on every further call,
// letting tests exercise tier exhaustion by providing only failures.
type fakeModel struct {
	calls     int
	responses []fakeResponse
}

type fakeResponse struct {
	resp *model.Response
	err  error
}

func (f *fakeModel) Complete(_ context.Context, _ *model.Request) (*model.Response, error) {
	i := f.calls
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}
	f.calls++
	r := f.responses[i]
	return r.resp, r.err
}

func (f *fakeModel) Stream(context.Context, *model.Request) (model.Streamer, error) {
	panic("not used in these tests")
}

func stopResponse(text string) *model.Response {
	return &model.Response{
		Content: []model.Message{{
			Role:  model.ConversationRoleAssistant,
			Parts: []model.Part{model.TextPart{Text: text}},
		}},
		Usage: model.TokenUsage{InputTokens: 100, OutputTokens: 50},
	}
}

func toolCallResponse(toolName string, params map[string]any) *model.Response {
	payload, _ := json.Marshal(params)
	return &model.Response{
		Content:   []model.Message{{Role: model.ConversationRoleAssistant, Parts: []model.Part{model.TextPart{Text: "invoking " + toolName}}}},
		ToolCalls: []model.ToolCall{{Name: toolName, Payload: payload}},
		Usage:     model.TokenUsage{InputTokens: 100, OutputTokens: 50},
	}
}

func testDispatcher(t *testing.T, handler tools.HandlerFunc) *tools.Dispatcher {
	t.Helper()
	reg := tools.NewRegistry()
	require.NoError(t, reg.Register(tools.Tool{
		Name:    "noop",
		Handler: handler,
	}))
	return tools.NewDispatcher(reg, variables.NewMemoryStore(clock.Real), nil, nil, 0)
}

func echoToolHandler(_ context.Context, _ tools.AgentView, params map[string]any) (tools.Result, error) {
	return tools.Result{Status: tools.StatusOK, Payload: params}, nil
}

func baseRunner(t *testing.T, fm *fakeModel, dispatcher *tools.Dispatcher, locker eventloop.Locker, store agent.Store) *eventloop.Runner {
	t.Helper()
	return &eventloop.Runner{
		Agents: store,
		Router: testRouter(),
		Models: func(context.Context, llm.ResolvedEndpoint) (model.Client, error) { return fm, nil },
		Pricing: func(llm.Endpoint) llm.Pricing {
			return llm.Pricing{PromptPerToken: 0.000001, CompletionPerToken: 0.000002}
		},
		Tools: dispatcher,
		Prompts: func(context.Context, agent.Agent) (prompt.SystemPromptInputs, prompt.UserPromptInputs, error) {
			return prompt.SystemPromptInputs{Identity: prompt.Identity{Name: "test agent"}},
				prompt.UserPromptInputs{Narrative: []prompt.NarrativeEntry{{Speaker: "user", Text: "hello", Timestamp: time.Now()}}},
				nil
		},
		Locker: locker,
		Clock:  clock.Real,
	}
}

func newTestAgent(t *testing.T, store agent.Store) agent.Agent {
	t.Helper()
	a, err := store.Create(context.Background(), agent.Agent{LifeState: agent.LifeStateActive})
	require.NoError(t, err)
	return a
}

func TestRunStopsOnFirstNoToolCallResponse(t *testing.T) {
	t.Parallel()
	store := agent.NewMemoryStore(clock.Real)
	a := newTestAgent(t, store)

	fm := &fakeModel{responses: []fakeResponse{{resp: stopResponse("done")}}}
	r := baseRunner(t, fm, testDispatcher(t, echoToolHandler), eventloop.NewMemoryLocker(nil), store)

	out, err := r.Run(context.Background(), a.ID)
	require.NoError(t, err)
	require.Equal(t, eventloop.ExitReasonStop, out.ExitReason)
	require.Equal(t, 1, out.StepsRun)
	require.False(t, out.ReEnqueue)

	steps, err := store.StepsOnLocalDay(context.Background(), a.ID, time.Now(), time.UTC)
	require.NoError(t, err)
	require.Len(t, steps, 1)
}

func TestRunDispatchesDeclaredToolCallsThenStops(t *testing.T) {
	t.Parallel()
	store := agent.NewMemoryStore(clock.Real)
	a := newTestAgent(t, store)

	fm := &fakeModel{responses: []fakeResponse{
		{resp: toolCallResponse("noop", map[string]any{"x": 1.0})},
		{resp: stopResponse("done")},
	}}
	r := baseRunner(t, fm, testDispatcher(t, echoToolHandler), eventloop.NewMemoryLocker(nil), store)

	out, err := r.Run(context.Background(), a.ID)
	require.NoError(t, err)
	require.Equal(t, eventloop.ExitReasonStop, out.ExitReason)
	require.Equal(t, 2, out.StepsRun)
}

func TestRunReturnsLockContentionWithoutRunningSteps(t *testing.T) {
	t.Parallel()
	store := agent.NewMemoryStore(clock.Real)
	a := newTestAgent(t, store)
	locker := eventloop.NewMemoryLocker(nil)

	// Pre-acquire the lock to simulate a concurrent invocation already
	// holding it.
	_, acquired, err := locker.TryAcquire(context.Background(), "agent_events:"+a.ID, time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)

	fm := &fakeModel{responses: []fakeResponse{{resp: stopResponse("unused")}}}
	r := baseRunner(t, fm, testDispatcher(t, echoToolHandler), locker, store)

	out, err := r.Run(context.Background(), a.ID)
	require.NoError(t, err)
	require.Equal(t, eventloop.ExitReasonLockContention, out.ExitReason)
	require.Equal(t, 0, out.StepsRun)

	pending, err := store.PendingSystemSteps(context.Background(), a.ID, agent.SystemStepProcessEvents)
	require.NoError(t, err)
	require.Len(t, pending, 1)
}

func TestRunContinuesPastStopWhenMarkerPostedMidStep(t *testing.T) {
	t.Parallel()
	store := agent.NewMemoryStore(clock.Real)
	a := newTestAgent(t, store)

	handlerCalls := 0
	handler := func(ctx context.Context, view tools.AgentView, params map[string]any) (tools.Result, error) {
		handlerCalls++
		if handlerCalls == 1 {
			// Simulate a concurrent event arriving mid-step.
			_, err := store.AppendSystemStep(ctx, agent.SystemStep{
				AgentID: view.AgentID,
				Code:    agent.SystemStepProcessEvents,
			})
			require.NoError(t, err)
		}
		return tools.Result{Status: tools.StatusOK, Payload: params}, nil
	}

	fm := &fakeModel{responses: []fakeResponse{
		{resp: toolCallResponse("noop", map[string]any{"x": 1.0})},
		{resp: stopResponse("done")},
	}}
	r := baseRunner(t, fm, testDispatcher(t, handler), eventloop.NewMemoryLocker(nil), store)

	out, err := r.Run(context.Background(), a.ID)
	require.NoError(t, err)
	require.Equal(t, eventloop.ExitReasonStop, out.ExitReason)
	require.Equal(t, 2, out.StepsRun)
	require.False(t, out.ReEnqueue)

	pending, err := store.PendingSystemSteps(context.Background(), a.ID, agent.SystemStepProcessEvents)
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestRunExitsOnStepBudget(t *testing.T) {
	t.Parallel()
	store := agent.NewMemoryStore(clock.Real)
	a := newTestAgent(t, store)

	fm := &fakeModel{responses: []fakeResponse{
		{resp: toolCallResponse("noop", map[string]any{"x": 1.0})},
	}}
	r := baseRunner(t, fm, testDispatcher(t, echoToolHandler), eventloop.NewMemoryLocker(nil), store)
	r.MaxSteps = 3

	out, err := r.Run(context.Background(), a.ID)
	require.NoError(t, err)
	require.Equal(t, eventloop.ExitReasonStepBudget, out.ExitReason)
	require.Equal(t, 3, out.StepsRun)
}

func TestRunExitsOnTierExhaustion(t *testing.T) {
	t.Parallel()
	store := agent.NewMemoryStore(clock.Real)
	a := newTestAgent(t, store)

	fm := &fakeModel{responses: []fakeResponse{{err: context.DeadlineExceeded}}}
	r := baseRunner(t, fm, testDispatcher(t, echoToolHandler), eventloop.NewMemoryLocker(nil), store)

	out, err := r.Run(context.Background(), a.ID)
	require.NoError(t, err)
	require.Equal(t, eventloop.ExitReasonTierExhaustion, out.ExitReason)
	require.Equal(t, 1, out.StepsRun)

	steps, err := store.StepsOnLocalDay(context.Background(), a.ID, time.Now(), time.UTC)
	require.NoError(t, err)
	require.Len(t, steps, 1, "a failed step is still recorded on tier exhaustion")
}

func TestRunExitsOnCreditLimitAtEntry(t *testing.T) {
	t.Parallel()
	store := agent.NewMemoryStore(clock.Real)
	zero := 0
	a, err := store.Create(context.Background(), agent.Agent{
		LifeState:             agent.LifeStateActive,
		DailyCreditSoftTarget: &zero,
	})
	require.NoError(t, err)

	fm := &fakeModel{responses: []fakeResponse{{resp: stopResponse("unused")}}}
	r := baseRunner(t, fm, testDispatcher(t, echoToolHandler), eventloop.NewMemoryLocker(nil), store)

	out, err := r.Run(context.Background(), a.ID)
	require.NoError(t, err)
	require.Equal(t, eventloop.ExitReasonCreditLimitHit, out.ExitReason)
	require.Equal(t, 0, out.StepsRun)

	pending, err := store.PendingSystemSteps(context.Background(), a.ID, agent.SystemStepCreditLimitHit)
	require.NoError(t, err)
	require.Len(t, pending, 1)
}

func TestRunExitsOnCreditLimitMidLoop(t *testing.T) {
	t.Parallel()
	store := agent.NewMemoryStore(clock.Real)
	one := 1
	a, err := store.Create(context.Background(), agent.Agent{
		LifeState:             agent.LifeStateActive,
		DailyCreditSoftTarget: &one,
	})
	require.NoError(t, err)

	fm := &fakeModel{responses: []fakeResponse{
		{resp: toolCallResponse("noop", map[string]any{"x": 1.0})},
		{resp: stopResponse("unreached")},
	}}
	r := baseRunner(t, fm, testDispatcher(t, echoToolHandler), eventloop.NewMemoryLocker(nil), store)
	// A very expensive per-token price guarantees the first step alone
	// crosses the soft target of 1 credit.
	r.Pricing = func(llm.Endpoint) llm.Pricing {
		return llm.Pricing{PromptPerToken: 10, CompletionPerToken: 10}
	}

	out, err := r.Run(context.Background(), a.ID)
	require.NoError(t, err)
	require.Equal(t, eventloop.ExitReasonCreditLimitHit, out.ExitReason)
	require.Equal(t, 1, out.StepsRun)
}
