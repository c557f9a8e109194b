package variables

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a lookup by name finds no Variable.
var ErrNotFound = errors.New("variables: not found")

// Store persists and resolves per-agent Variables. Implementations must
// make GetOrCreate idempotent under concurrent callers: two callers racing
// to create the same (agentID, name) observe exactly one winner.
type Store interface {
	// GetOrCreate inserts a Variable if (agentID, name) does not already
	// exist, otherwise returns the existing row unchanged. Returns whether
	// this call created the row. Enforces MaxPerAgent via LRU eviction by
	// CreatedAt on creation.
	GetOrCreate(ctx context.Context, agentID, name string, value any, toolCallID, summary string) (v Variable, created bool, err error)

	// Get looks up a Variable by (agentID, name). Returns ErrNotFound if
	// absent.
	Get(ctx context.Context, agentID, name string) (Variable, error)

	// List returns an agent's Variables ordered most-recently-created first.
	List(ctx context.Context, agentID string) ([]Variable, error)
}
