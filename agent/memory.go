package agent

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gobii-run/agentcore/internal/clock"
	"github.com/gobii-run/agentcore/internal/idgen"
)

// memoryStore is an in-process Store for tests and single-node
// development, grounded on the same mutex-guarded map pattern as
// variables.NewMemoryStore. The production store lives in store/postgres.
type memoryStore struct {
	mu sync.Mutex

	clock clock.Clock

	agents       map[string]Agent
	stepsByAgent map[string][]Step
	callsByStep  map[string][]ToolCall
	sysSteps     map[string]SystemStep
	consumed     map[string]bool
}

// NewMemoryStore returns a Store backed by in-process maps.
func NewMemoryStore(c clock.Clock) Store {
	if c == nil {
		c = clock.Real
	}
	return &memoryStore{
		clock:        c,
		agents:       make(map[string]Agent),
		stepsByAgent: make(map[string][]Step),
		callsByStep:  make(map[string][]ToolCall),
		sysSteps:     make(map[string]SystemStep),
		consumed:     make(map[string]bool),
	}
}

func (s *memoryStore) Get(_ context.Context, id string) (Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.agents[id]
	if !ok {
		return Agent{}, ErrNotFound
	}
	return a, nil
}

func (s *memoryStore) Create(_ context.Context, a Agent) (Agent, error) {
	if err := a.Validate(); err != nil {
		return Agent{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == "" {
		a.ID = idgen.New(idgen.PrefixAgent)
	}
	now := s.clock.Now()
	a.CreatedAt, a.UpdatedAt = now, now
	s.agents[a.ID] = a
	return a, nil
}

func (s *memoryStore) UpdateLoopFields(_ context.Context, id string, fields LoopFields, expectedUpdatedAt time.Time) (Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.agents[id]
	if !ok {
		return Agent{}, ErrNotFound
	}
	if !expectedUpdatedAt.IsZero() && !a.UpdatedAt.Equal(expectedUpdatedAt) {
		return Agent{}, ErrConcurrentUpdate
	}
	if !fields.LastInteractionAt.IsZero() {
		a.LastInteractionAt = fields.LastInteractionAt
	}
	if !fields.LastProactiveTriggerAt.IsZero() {
		a.LastProactiveTriggerAt = fields.LastProactiveTriggerAt
	}
	if fields.LifeState != "" {
		if !a.CanTransition(fields.LifeState) {
			return Agent{}, ErrInvalidTransition
		}
		a.LifeState = fields.LifeState
	}
	a.ScheduleSnapshot = fields.ScheduleSnapshot
	a.Schedule = fields.Schedule
	if !fields.LastExpiredAt.IsZero() {
		a.LastExpiredAt = fields.LastExpiredAt
	}
	a.SentExpirationEmail = fields.SentExpirationEmail
	if err := a.Validate(); err != nil {
		return Agent{}, err
	}
	a.UpdatedAt = s.clock.Now()
	s.agents[id] = a
	return a, nil
}

func (s *memoryStore) ApplyOperatorWrite(_ context.Context, id string, mutate func(*Agent) error) (Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.agents[id]
	if !ok {
		return Agent{}, ErrNotFound
	}
	if err := mutate(&a); err != nil {
		return Agent{}, err
	}
	if err := a.Validate(); err != nil {
		return Agent{}, err
	}
	a.UpdatedAt = s.clock.Now()
	s.agents[id] = a

	s.sysSteps[idgen.New(idgen.PrefixSystemStep)] = SystemStep{
		ID:      idgen.New(idgen.PrefixSystemStep),
		AgentID: id,
		Code:    SystemStepSystemDirective,
		Created: s.clock.Now(),
	}
	return a, nil
}

func (s *memoryStore) ProactiveCandidates(_ context.Context, filter ProactiveCandidateFilter) ([]Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Agent
	for _, a := range s.agents {
		if !a.ProactiveOptIn || a.LifeState != LifeStateActive {
			continue
		}
		if filter.OwnerID != "" && a.OwnerID != filter.OwnerID {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastProactiveTriggerAt.Equal(out[j].LastProactiveTriggerAt) {
			return out[i].LastProactiveTriggerAt.Before(out[j].LastProactiveTriggerAt)
		}
		if !out[i].LastInteractionAt.Equal(out[j].LastInteractionAt) {
			return out[i].LastInteractionAt.Before(out[j].LastInteractionAt)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *memoryStore) ExpirationCandidates(_ context.Context, filter ExpirationCandidateFilter) ([]Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Agent
	for _, a := range s.agents {
		if a.LifeState != LifeStateActive || a.Schedule == "" {
			continue
		}
		if a.LastInteractionAt.After(filter.InactiveBefore) {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastInteractionAt.Before(out[j].LastInteractionAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *memoryStore) ActiveScheduled(_ context.Context) ([]Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Agent
	for _, a := range s.agents {
		if a.LifeState == LifeStateActive && a.Schedule != "" {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memoryStore) AppendStep(_ context.Context, step Step, calls []ToolCall) (Step, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if step.ID == "" {
		step.ID = idgen.New(idgen.PrefixStep)
	}
	if step.CreatedAt.IsZero() {
		step.CreatedAt = s.clock.Now()
	}
	s.stepsByAgent[step.AgentID] = append(s.stepsByAgent[step.AgentID], step)

	ordered := make([]ToolCall, len(calls))
	copy(ordered, calls)
	for i := range ordered {
		if ordered[i].ID == "" {
			ordered[i].ID = idgen.New(idgen.PrefixToolCall)
		}
		ordered[i].StepID = step.ID
		ordered[i].Ordinal = i
		if ordered[i].CreatedAt.IsZero() {
			ordered[i].CreatedAt = step.CreatedAt
		}
	}
	s.callsByStep[step.ID] = ordered
	return step, nil
}

func (s *memoryStore) AppendSystemStep(_ context.Context, ss SystemStep) (SystemStep, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ss.ID == "" {
		ss.ID = idgen.New(idgen.PrefixSystemStep)
	}
	if ss.Created.IsZero() {
		ss.Created = s.clock.Now()
	}
	s.sysSteps[ss.ID] = ss
	return ss, nil
}

func (s *memoryStore) StepsOnLocalDay(_ context.Context, agentID string, day time.Time, loc *time.Location) ([]Step, error) {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := day.In(loc).Date()

	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Step
	for _, st := range s.stepsByAgent[agentID] {
		ly, lm, ld := st.CreatedAt.In(loc).Date()
		if ly == y && lm == m && ld == d {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *memoryStore) PendingSystemSteps(_ context.Context, agentID string, code SystemStepCode) ([]SystemStep, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []SystemStep
	for _, ss := range s.sysSteps {
		if ss.AgentID != agentID || ss.Code != code || s.consumed[ss.ID] {
			continue
		}
		out = append(out, ss)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Created.After(out[j].Created) })
	return out, nil
}

func (s *memoryStore) ConsumeSystemSteps(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.consumed[id] = true
	}
	return nil
}
