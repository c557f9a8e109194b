package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/gobii-run/agentcore/archive"
	clientsmongo "github.com/gobii-run/agentcore/archive/mongo/clients/mongo"
	"github.com/gobii-run/agentcore/internal/idgen"
)

// Options configures the Store wrapper.
type Options struct {
	Client clientsmongo.Client
}

// Store implements archive.Store by delegating to the Mongo client.
type Store struct {
	client clientsmongo.Client
}

// NewStore builds a Mongo-backed archive store using the provided client.
func NewStore(opts Options) (*Store, error) {
	if opts.Client == nil {
		return nil, errors.New("client is required")
	}
	return &Store{client: opts.Client}, nil
}

// NewStoreFromMongo is a helper that instantiates the underlying client using
// the given connection options.
func NewStoreFromMongo(opts clientsmongo.Options) (*Store, error) {
	client, err := clientsmongo.New(opts)
	if err != nil {
		return nil, err
	}
	return NewStore(Options{Client: client})
}

func (s *Store) Archive(ctx context.Context, req archive.Request) (archive.PromptArchive, error) {
	hash := archive.ContentHash(req.SystemPrompt, req.UserPrompt)
	key := archive.StorageKey(hash)

	if err := s.client.UpsertBlob(ctx, hash, key, req.SystemPrompt, req.UserPrompt); err != nil {
		return archive.PromptArchive{}, err
	}

	row := archive.PromptArchive{
		ID:           idgen.New(idgen.PrefixArchive),
		AgentID:      req.AgentID,
		StepID:       req.StepID,
		ContentHash:  hash,
		StorageKey:   key,
		TokensBefore: req.TokensBefore,
		TokensAfter:  req.TokensAfter,
		TokensSaved:  req.TokensSaved(),
		RenderedAt:   time.Now().UTC(),
	}
	if err := s.client.InsertArchive(ctx, row); err != nil {
		return archive.PromptArchive{}, err
	}
	return row, nil
}

func (s *Store) Load(ctx context.Context, id string) (string, string, error) {
	row, err := s.client.LoadArchive(ctx, id)
	if err != nil {
		return "", "", err
	}
	return s.client.LoadBlob(ctx, row.ContentHash)
}

func (s *Store) PruneOlderThan(ctx context.Context, cutoff time.Time, dryRun bool) (int, int, error) {
	rows, err := s.client.ArchivesOlderThan(ctx, cutoff)
	if err != nil {
		return 0, 0, err
	}

	found := len(rows)
	if dryRun {
		return found, 0, nil
	}

	deleted := 0
	for _, row := range rows {
		hash, err := s.client.DeleteArchive(ctx, row.ID)
		if err != nil {
			if errors.Is(err, archive.ErrNotFound) {
				continue
			}
			return found, deleted, err
		}
		if err := s.client.ReleaseBlob(ctx, hash); err != nil {
			return found, deleted, err
		}
		deleted++
	}
	return found, deleted, nil
}
