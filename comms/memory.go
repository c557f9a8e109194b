package comms

import (
	"context"
	"sort"
	"sync"

	"github.com/gobii-run/agentcore/internal/clock"
	"github.com/gobii-run/agentcore/internal/idgen"
)

type memoryStore struct {
	mu sync.Mutex

	clock clock.Clock

	endpoints     map[string]CommsEndpoint // channel+"\x00"+normalizedAddress -> endpoint
	conversations map[string]Conversation  // agentID+"\x00"+channel+"\x00"+address -> conversation
	seqByConv     map[string]int64
	messages      map[string][]Message // conversationID -> messages
	manualAllow   map[string]map[string]bool
}

// NewMemoryStore returns a Store backed by in-process maps.
func NewMemoryStore(c clock.Clock) Store {
	if c == nil {
		c = clock.Real
	}
	return &memoryStore{
		clock:         c,
		endpoints:     make(map[string]CommsEndpoint),
		conversations: make(map[string]Conversation),
		seqByConv:     make(map[string]int64),
		messages:      make(map[string][]Message),
		manualAllow:   make(map[string]map[string]bool),
	}
}

func normalizeAddr(address string) string {
	return CommsEndpoint{Address: address}.NormalizedAddress()
}

func endpointKey(channel Channel, address string) string {
	return string(channel) + "\x00" + normalizeAddr(address)
}

func (s *memoryStore) UpsertEndpoint(_ context.Context, e CommsEndpoint) (CommsEndpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := endpointKey(e.Channel, e.Address)
	if existing, ok := s.endpoints[k]; ok {
		return existing, nil
	}
	if e.ID == "" {
		e.ID = idgen.New("ep")
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock.Now()
	}
	s.endpoints[k] = e
	return e, nil
}

func convKey(agentID string, channel Channel, address string) string {
	return agentID + "\x00" + string(channel) + "\x00" + normalizeAddr(address)
}

func (s *memoryStore) ConversationFor(_ context.Context, agentID string, channel Channel, address string) (Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := convKey(agentID, channel, address)
	if existing, ok := s.conversations[k]; ok {
		return existing, nil
	}
	c := Conversation{
		ID:              idgen.New("conv"),
		AgentID:         agentID,
		Channel:         channel,
		Address:         address,
		AllowlistPolicy: AllowlistPolicyDefault,
		CreatedAt:       s.clock.Now(),
	}
	s.conversations[k] = c
	return c, nil
}

func (s *memoryStore) SetAllowlistPolicy(_ context.Context, conversationID string, policy AllowlistPolicy, manualEntries []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, c := range s.conversations {
		if c.ID != conversationID {
			continue
		}
		c.AllowlistPolicy = policy
		s.conversations[k] = c
		if policy == AllowlistPolicyManual {
			set := make(map[string]bool, len(manualEntries))
			for _, e := range manualEntries {
				set[normalizeAddr(e)] = true
			}
			s.manualAllow[conversationID] = set
		}
		return nil
	}
	return ErrNotFound
}

func (s *memoryStore) allowed(conversationID string, c Conversation, toAddress string) bool {
	switch c.AllowlistPolicy {
	case AllowlistPolicyManual:
		return s.manualAllow[conversationID][normalizeAddr(toAddress)]
	default:
		// DEFAULT: owner and existing contacts only. An in-memory
		// approximation treats any address that already appears in this
		// conversation's history as an existing contact.
		for _, m := range s.messages[conversationID] {
			if normalizeAddr(m.ToEndpointID) == normalizeAddr(toAddress) {
				return true
			}
		}
		return len(s.messages[conversationID]) == 0 // first outbound reply to an inbound thread
	}
}

func (s *memoryStore) AppendInbound(_ context.Context, m Message) (Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendLocked(m)
}

func (s *memoryStore) AppendOutbound(_ context.Context, m Message) (Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var conv Conversation
	found := false
	for _, c := range s.conversations {
		if c.ID == m.ConversationID {
			conv, found = c, true
			break
		}
	}
	if found && !s.allowed(m.ConversationID, conv, m.ToEndpointID) {
		return Message{}, ErrNotAllowlisted
	}
	return s.appendLocked(m)
}

func (s *memoryStore) appendLocked(m Message) (Message, error) {
	if m.ID == "" {
		m.ID = idgen.New("msg")
	}
	s.seqByConv[m.ConversationID]++
	m.Seq = s.seqByConv[m.ConversationID]
	if m.Timestamp.IsZero() {
		m.Timestamp = s.clock.Now()
	}
	s.messages[m.ConversationID] = append(s.messages[m.ConversationID], m)
	return m, nil
}

func (s *memoryStore) Narrative(_ context.Context, conversationID string, sinceSeq int64) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Message
	for _, m := range s.messages[conversationID] {
		if m.Seq > sinceSeq {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].Seq < out[j].Seq
	})
	return out, nil
}
