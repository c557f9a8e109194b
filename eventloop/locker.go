package eventloop

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker is the single-flight advisory lock spec §4.1 requires: "a named
// advisory lock keyed on the agent ID (e.g. a Redis SET NX PX with TTL
// slightly longer than the maximum single-step budget, or a DB advisory
// lock)". TryAcquire returns a token that must be presented to Release so a
// holder can never release a lock it no longer owns (e.g. after its TTL
// already expired and a new invocation acquired it).
type Locker interface {
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (token string, acquired bool, err error)
	Release(ctx context.Context, key, token string) error
}

// memoryLocker is an in-process Locker backed by a mutex-guarded map, for
// tests and single-process deployments.
type memoryLocker struct {
	mu      sync.Mutex
	clock   func() time.Time
	holders map[string]memoryLockEntry
}

type memoryLockEntry struct {
	token   string
	expires time.Time
}

// NewMemoryLocker returns an in-process Locker. now defaults to time.Now
// when nil; tests inject a fixed/advancing clock to exercise TTL expiry.
func NewMemoryLocker(now func() time.Time) Locker {
	if now == nil {
		now = time.Now
	}
	return &memoryLocker{clock: now, holders: make(map[string]memoryLockEntry)}
}

func (l *memoryLocker) TryAcquire(_ context.Context, key string, ttl time.Duration) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	if entry, ok := l.holders[key]; ok && now.Before(entry.expires) {
		return "", false, nil
	}
	token := uuid.NewString()
	l.holders[key] = memoryLockEntry{token: token, expires: now.Add(ttl)}
	return token, true, nil
}

func (l *memoryLocker) Release(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if entry, ok := l.holders[key]; ok && entry.token == token {
		delete(l.holders, key)
	}
	return nil
}

// releaseScript deletes the lock key only if it still holds the token this
// holder set, so a holder whose TTL already expired (and was reacquired by
// another invocation) cannot release someone else's lock.
const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`

// redisLocker is the production Locker, grounded on spec §4.1's own
// suggestion ("a Redis SET NX PX with TTL"). It wraps go-redis/v9.
type redisLocker struct {
	client *redis.Client
}

// NewRedisLocker wraps an existing redis.Client as a Locker.
func NewRedisLocker(client *redis.Client) Locker {
	return &redisLocker{client: client}
}

func (l *redisLocker) TryAcquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

func (l *redisLocker) Release(ctx context.Context, key, token string) error {
	return l.client.Eval(ctx, releaseScript, []string{key}, token).Err()
}
