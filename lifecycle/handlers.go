package lifecycle

import "context"

// IntegrationSessionStore marks pending remote-integration sessions (e.g.
// OAuth device-code flows) as errored when an agent goes away mid-flow.
// Narrow interface; the concrete store lives outside this module (spec §1:
// "OAuth and credential storage" is an external collaborator).
type IntegrationSessionStore interface {
	ErrorPendingSessions(ctx context.Context, agentID string) error
}

// ExternalUserDeleter removes the agent's remote external-user record at an
// integration provider. Narrow interface; provider API calls are external.
type ExternalUserDeleter interface {
	DeleteExternalUser(ctx context.Context, agentID string) error
}

// SandboxTerminator stops any running compute session for an agent.
// Narrow interface over the compute package's state machine.
type SandboxTerminator interface {
	TerminateSession(ctx context.Context, agentID string) error
}

// pendingSessionsHandler implements the built-in "mark pending
// remote-integration sessions as errored" handler, fired for every reason.
type pendingSessionsHandler struct{ store IntegrationSessionStore }

// NewPendingSessionsHandler builds the built-in handler that errors out any
// pending remote-integration session when an agent shuts down, for any
// reason.
func NewPendingSessionsHandler(store IntegrationSessionStore) Handler {
	return pendingSessionsHandler{store: store}
}

func (pendingSessionsHandler) Name() string { return "pending_integration_sessions" }

func (h pendingSessionsHandler) Handle(ctx context.Context, agentID string, _ Reason, _ map[string]any) error {
	return h.store.ErrorPendingSessions(ctx, agentID)
}

// externalUserHandler implements "delete the remote external-user record",
// which fires only on HARD_DELETE or SOFT_EXPIRE.
type externalUserHandler struct{ deleter ExternalUserDeleter }

// NewExternalUserHandler builds the built-in handler that deletes the
// agent's remote external-user record. Register it with
// RegisterFor(h, []Reason{ReasonHardDelete, ReasonSoftExpire}).
func NewExternalUserHandler(deleter ExternalUserDeleter) Handler {
	return externalUserHandler{deleter: deleter}
}

func (externalUserHandler) Name() string { return "external_user_deletion" }

func (h externalUserHandler) Handle(ctx context.Context, agentID string, _ Reason, _ map[string]any) error {
	return h.deleter.DeleteExternalUser(ctx, agentID)
}

// sandboxHandler implements "terminate any running sandbox compute
// session", fired for every reason.
type sandboxHandler struct{ terminator SandboxTerminator }

// NewSandboxHandler builds the built-in handler that stops a running
// compute session when its owning agent shuts down.
func NewSandboxHandler(terminator SandboxTerminator) Handler {
	return sandboxHandler{terminator: terminator}
}

func (sandboxHandler) Name() string { return "sandbox_termination" }

func (h sandboxHandler) Handle(ctx context.Context, agentID string, _ Reason, _ map[string]any) error {
	return h.terminator.TerminateSession(ctx, agentID)
}
