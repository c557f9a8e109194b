package burnrate

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/gobii-run/agentcore/internal/idgen"
)

// ErrNotFound is returned when a lookup finds no matching snapshot.
var ErrNotFound = errors.New("burnrate: not found")

type memoryStore struct {
	mu   sync.Mutex
	byID map[string]BurnRateSnapshot
}

// NewMemoryStore returns a Store backed by an in-process map, for tests and
// the periodic refresher's default wiring before store/postgres is
// configured.
func NewMemoryStore() Store {
	return &memoryStore{byID: make(map[string]BurnRateSnapshot)}
}

func snapKey(scope ScopeType, scopeID string, windowMinutes int) string {
	return string(scope) + "\x00" + scopeID + "\x00" + strconv.Itoa(windowMinutes)
}

func (s *memoryStore) Upsert(_ context.Context, snap BurnRateSnapshot) (BurnRateSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := snapKey(snap.ScopeType, snap.ScopeID, snap.WindowMinutes)
	if existing, ok := s.byID[k]; ok {
		snap.ID = existing.ID
	} else {
		snap.ID = idgen.New("snap")
	}
	s.byID[k] = snap
	return snap, nil
}

func (s *memoryStore) Get(_ context.Context, scope ScopeType, scopeID string, windowMinutes int) (BurnRateSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.byID[snapKey(scope, scopeID, windowMinutes)]
	if !ok {
		return BurnRateSnapshot{}, ErrNotFound
	}
	return snap, nil
}
