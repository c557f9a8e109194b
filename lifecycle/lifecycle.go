// Package lifecycle implements the shutdown-hook registry (spec §4.6): a
// set of handlers fanned out when an agent is hard-deleted, paused,
// disabled by its cron schedule, or soft-expired. Handlers register against
// one or more reasons (or every reason) and run after the triggering
// database transaction has committed, so a handler never observes
// in-flight state.
package lifecycle

import (
	"context"
	"errors"
	"sync"

	"github.com/gobii-run/agentcore/internal/telemetry"
)

// Reason identifies why a shutdown was triggered.
type Reason string

const (
	ReasonHardDelete   Reason = "hard_delete"
	ReasonPause        Reason = "pause"
	ReasonCronDisabled Reason = "cron_disabled"
	ReasonSoftExpire   Reason = "soft_expire"
)

// ErrHandlerNameRequired is returned by Register when name is empty.
var ErrHandlerNameRequired = errors.New("lifecycle: handler name is required")

// Handler is invoked once per matching shutdown. Implementations must be
// idempotent. An error returned by Handle is logged by the registry and not
// propagated, so one handler's error never prevents its siblings from
// running.
type Handler interface {
	// Name identifies the handler for logging.
	Name() string
	// Handle reacts to a shutdown. Errors are logged by the registry and
	// otherwise ignored.
	Handle(ctx context.Context, agentID string, reason Reason, meta map[string]any) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc struct {
	FuncName string
	Func     func(ctx context.Context, agentID string, reason Reason, meta map[string]any) error
}

func (h HandlerFunc) Name() string { return h.FuncName }
func (h HandlerFunc) Handle(ctx context.Context, agentID string, reason Reason, meta map[string]any) error {
	return h.Func(ctx, agentID, reason, meta)
}

type registration struct {
	handler Handler
	reasons map[Reason]bool // nil means "all reasons"
}

// Registry fans out shutdown notifications to registered handlers. The zero
// value is not usable; construct with New.
type Registry struct {
	logger telemetry.Logger

	mu   sync.RWMutex
	regs []registration
}

// New constructs an empty Registry. Pass telemetry.NewNoopLogger() if no
// logger is configured.
func New(logger telemetry.Logger) *Registry {
	return &Registry{logger: logger}
}

// Register adds a handler that fires for every reason.
func (r *Registry) Register(h Handler) error {
	return r.RegisterFor(h, nil)
}

// RegisterFor adds a handler that fires only for the given reasons. An empty
// reasons slice is equivalent to Register (fires for every reason).
func (r *Registry) RegisterFor(h Handler, reasons []Reason) error {
	if h.Name() == "" {
		return ErrHandlerNameRequired
	}
	var set map[Reason]bool
	if len(reasons) > 0 {
		set = make(map[Reason]bool, len(reasons))
		for _, reason := range reasons {
			set[reason] = true
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.regs = append(r.regs, registration{handler: h, reasons: set})
	return nil
}

// Shutdown fans out to every handler registered for reason. It must be
// called only after the triggering transaction has committed. Each
// handler's error is logged; Shutdown never returns an error itself, since
// per spec §7 no shutdown handler failure may block its siblings.
//
// Shutdown itself is idempotent in effect: handlers are required to be
// idempotent, so calling Shutdown twice for the same (agentID, reason) is
// safe even though the registry keeps no record of past calls.
func (r *Registry) Shutdown(ctx context.Context, agentID string, reason Reason, meta map[string]any) {
	r.mu.RLock()
	regs := make([]registration, len(r.regs))
	copy(regs, r.regs)
	r.mu.RUnlock()

	for _, reg := range regs {
		if reg.reasons != nil && !reg.reasons[reason] {
			continue
		}
		if err := reg.handler.Handle(ctx, agentID, reason, meta); err != nil {
			r.logger.Error(ctx, "lifecycle: shutdown handler failed",
				"handler", reg.handler.Name(), "agent_id", agentID, "reason", string(reason), "error", err)
		}
	}
}
