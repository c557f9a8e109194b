package llm

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/time/rate"

	"github.com/gobii-run/agentcore/model"
)

// EndpointLimiter applies a per-endpoint tokens-per-minute budget with an
// AIMD backoff/recovery strategy: a rate-limited response halves the
// effective budget, and each clean response nudges it back up toward the
// configured ceiling. Grounded on the teacher's adaptive rate limiter
// (SPEC_FULL §2 golang.org/x/time/rate), minus its replicated-map clustering
// (the Pulse dependency that backed is dropped, see DESIGN.md).
type EndpointLimiter struct {
	mu sync.Mutex

	limiter *rate.Limiter

	currentTPM   float64
	minTPM       float64
	maxTPM       float64
	recoveryRate float64
}

// NewEndpointLimiter constructs a limiter with an initial and maximum
// tokens-per-minute budget.
func NewEndpointLimiter(initialTPM, maxTPM float64) *EndpointLimiter {
	if initialTPM <= 0 {
		initialTPM = 60000
	}
	if maxTPM <= 0 || maxTPM < initialTPM {
		maxTPM = initialTPM
	}
	minTPM := initialTPM * 0.1
	if minTPM < 1 {
		minTPM = 1
	}
	recoveryRate := initialTPM * 0.05
	if recoveryRate < 1 {
		recoveryRate = 1
	}
	return &EndpointLimiter{
		limiter:      rate.NewLimiter(rate.Limit(initialTPM/60.0), int(initialTPM)),
		currentTPM:   initialTPM,
		minTPM:       minTPM,
		maxTPM:       maxTPM,
		recoveryRate: recoveryRate,
	}
}

// Wait blocks until tokens capacity is available for a request of the given
// estimated token size.
func (l *EndpointLimiter) Wait(ctx context.Context, estimatedTokens int) error {
	if estimatedTokens < 1 {
		estimatedTokens = 1
	}
	return l.limiter.WaitN(ctx, estimatedTokens)
}

// Observe adjusts the effective budget based on the outcome of a completed
// request: backs off on model.ErrRateLimited, probes upward otherwise.
func (l *EndpointLimiter) Observe(err error) {
	l.mu.Lock()
	current := l.currentTPM
	l.mu.Unlock()

	if err == nil {
		l.setTPM(current + l.recoveryRate)
		return
	}
	if errors.Is(err, model.ErrRateLimited) {
		l.setTPM(current * 0.5)
	}
}

func (l *EndpointLimiter) setTPM(next float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if next < l.minTPM {
		next = l.minTPM
	}
	if next > l.maxTPM {
		next = l.maxTPM
	}
	if next == l.currentTPM {
		return
	}
	l.currentTPM = next
	l.limiter.SetLimit(rate.Limit(next / 60.0))
	l.limiter.SetBurst(int(next))
}
