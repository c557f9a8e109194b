package lifecycle_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gobii-run/agentcore/internal/telemetry"
	"github.com/gobii-run/agentcore/lifecycle"
)

type recordingHandler struct {
	mu    sync.Mutex
	name  string
	calls []lifecycle.Reason
	err   error
}

func (h *recordingHandler) Name() string { return h.name }

func (h *recordingHandler) Handle(_ context.Context, _ string, reason lifecycle.Reason, _ map[string]any) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, reason)
	return h.err
}

func (h *recordingHandler) seen() []lifecycle.Reason {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]lifecycle.Reason(nil), h.calls...)
}

func TestShutdown_FansOutToAllReasonHandler(t *testing.T) {
	t.Parallel()

	reg := lifecycle.New(telemetry.NewNoopLogger())
	h := &recordingHandler{name: "all"}
	require.NoError(t, reg.Register(h))

	reg.Shutdown(context.Background(), "agt_1", lifecycle.ReasonPause, nil)
	require.Equal(t, []lifecycle.Reason{lifecycle.ReasonPause}, h.seen())
}

func TestShutdown_FiltersByReason(t *testing.T) {
	t.Parallel()

	reg := lifecycle.New(telemetry.NewNoopLogger())
	h := &recordingHandler{name: "narrow"}
	require.NoError(t, reg.RegisterFor(h, []lifecycle.Reason{lifecycle.ReasonHardDelete, lifecycle.ReasonSoftExpire}))

	reg.Shutdown(context.Background(), "agt_1", lifecycle.ReasonPause, nil)
	require.Empty(t, h.seen())

	reg.Shutdown(context.Background(), "agt_1", lifecycle.ReasonHardDelete, nil)
	require.Equal(t, []lifecycle.Reason{lifecycle.ReasonHardDelete}, h.seen())
}

func TestShutdown_OneHandlerErrorDoesNotBlockSiblings(t *testing.T) {
	t.Parallel()

	reg := lifecycle.New(telemetry.NewNoopLogger())
	failing := &recordingHandler{name: "failing", err: errors.New("boom")}
	ok := &recordingHandler{name: "ok"}
	require.NoError(t, reg.Register(failing))
	require.NoError(t, reg.Register(ok))

	reg.Shutdown(context.Background(), "agt_1", lifecycle.ReasonCronDisabled, nil)
	require.Equal(t, []lifecycle.Reason{lifecycle.ReasonCronDisabled}, failing.seen())
	require.Equal(t, []lifecycle.Reason{lifecycle.ReasonCronDisabled}, ok.seen())
}

func TestRegister_RequiresName(t *testing.T) {
	t.Parallel()

	reg := lifecycle.New(telemetry.NewNoopLogger())
	err := reg.Register(&recordingHandler{})
	require.ErrorIs(t, err, lifecycle.ErrHandlerNameRequired)
}

func TestShutdown_IdempotentAcrossCalls(t *testing.T) {
	t.Parallel()

	reg := lifecycle.New(telemetry.NewNoopLogger())
	h := &recordingHandler{name: "idempotent"}
	require.NoError(t, reg.Register(h))

	reg.Shutdown(context.Background(), "agt_1", lifecycle.ReasonHardDelete, nil)
	reg.Shutdown(context.Background(), "agt_1", lifecycle.ReasonHardDelete, nil)
	require.Len(t, h.seen(), 2)
}
