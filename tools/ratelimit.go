package tools

import (
	"context"
	"sync"
	"time"
)

// InMemoryRateLimiter tracks invocation timestamps per (ownerID, toolName)
// in process memory. It satisfies RateLimiter for single-process
// deployments and tests; a cluster-wide deployment needs a shared store
// behind the same interface (spec §4.3 step 4, "per-plan hourly limit"),
// not yet built in this module.
type InMemoryRateLimiter struct {
	mu         sync.Mutex
	callsByKey map[string][]time.Time
	now        func() time.Time
}

// NewInMemoryRateLimiter returns a ready-to-use limiter. now defaults to
// time.Now when nil, letting tests supply a deterministic clock.
func NewInMemoryRateLimiter(now func() time.Time) *InMemoryRateLimiter {
	if now == nil {
		now = time.Now
	}
	return &InMemoryRateLimiter{callsByKey: make(map[string][]time.Time), now: now}
}

// Allow records the current call and reports whether the owner's call
// count for toolName over the trailing window is within limit.
func (l *InMemoryRateLimiter) Allow(_ context.Context, ownerID, toolName string, limit int, window time.Duration) (bool, error) {
	if limit <= 0 {
		return true, nil
	}

	key := ownerID + "\x00" + toolName
	now := l.now()
	cutoff := now.Add(-window)

	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.callsByKey[key][:0]
	for _, t := range l.callsByKey[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	kept = append(kept, now)
	l.callsByKey[key] = kept

	return len(kept) <= limit, nil
}
