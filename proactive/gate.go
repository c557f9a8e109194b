package proactive

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Gate is the per-user dedupe gate spec §4.7 steps 5 and 8 describe: check
// presence before triggering, then set with a TTL equal to the effective
// trigger interval so the same user cannot trigger again before it expires.
type Gate interface {
	Exists(ctx context.Context, key string) (bool, error)
	Set(ctx context.Context, key string, ttl time.Duration) error
}

// memoryGate is an in-process Gate for tests and single-node deployments.
type memoryGate struct {
	mu      sync.Mutex
	clock   func() time.Time
	expires map[string]time.Time
}

// NewMemoryGate returns an in-process Gate. now defaults to time.Now when
// nil.
func NewMemoryGate(now func() time.Time) Gate {
	if now == nil {
		now = time.Now
	}
	return &memoryGate{clock: now, expires: make(map[string]time.Time)}
}

func (g *memoryGate) Exists(_ context.Context, key string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	exp, ok := g.expires[key]
	if !ok {
		return false, nil
	}
	if g.clock().After(exp) {
		delete(g.expires, key)
		return false, nil
	}
	return true, nil
}

func (g *memoryGate) Set(_ context.Context, key string, ttl time.Duration) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.expires[key] = g.clock().Add(ttl)
	return nil
}

// redisGate is the production Gate, grounded on spec §4.7's own wording
// ("a Redis gate... TTL = effective interval").
type redisGate struct {
	client *redis.Client
}

// NewRedisGate wraps an existing redis.Client as a Gate.
func NewRedisGate(client *redis.Client) Gate {
	return &redisGate{client: client}
}

func (g *redisGate) Exists(ctx context.Context, key string) (bool, error) {
	n, err := g.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (g *redisGate) Set(ctx context.Context, key string, ttl time.Duration) error {
	return g.client.Set(ctx, key, "1", ttl).Err()
}
