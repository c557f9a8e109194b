package archive

import (
	"context"
	"sync"
	"time"

	"github.com/gobii-run/agentcore/internal/clock"
	"github.com/gobii-run/agentcore/internal/idgen"
)

type blob struct {
	system string
	user   string
	refs   int
}

// memoryStore is a process-local Store, used by tests and by any deployment
// that has not wired the Mongo-backed implementation.
type memoryStore struct {
	mu    sync.Mutex
	clock clock.Clock
	blobs map[string]*blob
	byID  map[string]PromptArchive
}

// NewMemoryStore returns an in-memory Store. A nil clock defaults to
// clock.Real.
func NewMemoryStore(c clock.Clock) Store {
	if c == nil {
		c = clock.Real
	}
	return &memoryStore{
		clock: c,
		blobs: make(map[string]*blob),
		byID:  make(map[string]PromptArchive),
	}
}

func (s *memoryStore) Archive(ctx context.Context, req Request) (PromptArchive, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hash := ContentHash(req.SystemPrompt, req.UserPrompt)
	b, ok := s.blobs[hash]
	if !ok {
		b = &blob{system: req.SystemPrompt, user: req.UserPrompt}
		s.blobs[hash] = b
	}
	b.refs++

	row := PromptArchive{
		ID:           idgen.New(idgen.PrefixArchive),
		AgentID:      req.AgentID,
		StepID:       req.StepID,
		ContentHash:  hash,
		StorageKey:   StorageKey(hash),
		TokensBefore: req.TokensBefore,
		TokensAfter:  req.TokensAfter,
		TokensSaved:  req.TokensSaved(),
		RenderedAt:   s.clock.Now().UTC(),
	}
	s.byID[row.ID] = row
	return row, nil
}

func (s *memoryStore) Load(ctx context.Context, id string) (string, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.byID[id]
	if !ok {
		return "", "", ErrNotFound
	}
	b, ok := s.blobs[row.ContentHash]
	if !ok {
		return "", "", ErrNotFound
	}
	return b.system, b.user, nil
}

func (s *memoryStore) PruneOlderThan(ctx context.Context, cutoff time.Time, dryRun bool) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	found := 0
	deleted := 0
	for id, row := range s.byID {
		if !row.RenderedAt.Before(cutoff) {
			continue
		}
		found++
		if dryRun {
			continue
		}
		delete(s.byID, id)
		if b, ok := s.blobs[row.ContentHash]; ok {
			b.refs--
			if b.refs <= 0 {
				delete(s.blobs, row.ContentHash)
			}
		}
		deleted++
	}
	return found, deleted, nil
}
