package variables

import (
	"context"
	"sort"
	"sync"

	"github.com/gobii-run/agentcore/internal/clock"
	"github.com/gobii-run/agentcore/internal/idgen"
)

// memoryStore is an in-process Store suitable for tests and single-node
// development, grounded on the mutex-guarded map store used throughout the
// teacher's in-memory workflow engine (runtime/agent/engine/inmem). It is
// not durable, and store/postgres has no variables Store.
type memoryStore struct {
	mu    sync.Mutex
	clock clock.Clock
	byKey map[string]Variable // agentID + "\x00" + name -> Variable
}

// NewMemoryStore returns a Store backed by an in-process map.
func NewMemoryStore(c clock.Clock) Store {
	if c == nil {
		c = clock.Real
	}
	return &memoryStore{clock: c, byKey: make(map[string]Variable)}
}

func key(agentID, name string) string { return agentID + "\x00" + name }

func (s *memoryStore) GetOrCreate(_ context.Context, agentID, name string, value any, toolCallID, summary string) (Variable, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(agentID, name)
	if existing, ok := s.byKey[k]; ok {
		return existing, false, nil
	}

	text, isJSON, sizeBytes, err := serializeValue(value)
	if err != nil {
		return Variable{}, false, err
	}

	v := Variable{
		ID:         idgen.New(idgen.PrefixVariable),
		AgentID:    agentID,
		Name:       name,
		Value:      text,
		IsJSON:     isJSON,
		SizeBytes:  sizeBytes,
		ToolCallID: toolCallID,
		Summary:    summary,
		CreatedAt:  s.clock.Now(),
	}
	s.byKey[k] = v
	s.evictOverCap(agentID)
	return v, true, nil
}

func (s *memoryStore) Get(_ context.Context, agentID, name string) (Variable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.byKey[key(agentID, name)]
	if !ok {
		return Variable{}, ErrNotFound
	}
	return v, nil
}

func (s *memoryStore) List(_ context.Context, agentID string) ([]Variable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listLocked(agentID), nil
}

func (s *memoryStore) listLocked(agentID string) []Variable {
	var out []Variable
	for _, v := range s.byKey {
		if v.AgentID == agentID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// evictOverCap drops the oldest rows for agentID past MaxPerAgent. Must be
// called with s.mu held.
func (s *memoryStore) evictOverCap(agentID string) {
	rows := s.listLocked(agentID)
	if len(rows) <= MaxPerAgent {
		return
	}
	for _, stale := range rows[MaxPerAgent:] {
		delete(s.byKey, key(stale.AgentID, stale.Name))
	}
}
