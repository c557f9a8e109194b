// Package archive implements the PromptArchive content-addressed store and
// its retention job (spec §4.4 "Archival"). Each rendered step's system and
// user prompt is hashed and persisted alongside the token accounting that
// motivated compaction, so the exact text submitted to a model can be
// recovered for debugging without keeping every render in the relational
// store.
package archive

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

// ErrNotFound is returned when a lookup finds no matching PromptArchive.
var ErrNotFound = errors.New("archive: not found")

// PromptArchive is one archived render (spec §3 PromptArchive).
type PromptArchive struct {
	ID           string
	AgentID      string
	StepID       string
	ContentHash  string
	StorageKey   string
	TokensBefore int
	TokensAfter  int
	TokensSaved  int
	RenderedAt   time.Time
}

// Request describes a render to archive.
type Request struct {
	AgentID      string
	StepID       string
	SystemPrompt string
	UserPrompt   string
	TokensBefore int
	TokensAfter  int
}

// TokensSaved is the accounting convenience used by callers that build a
// Request before the after-compaction token count is final.
func (r Request) TokensSaved() int {
	saved := r.TokensBefore - r.TokensAfter
	if saved < 0 {
		return 0
	}
	return saved
}

// ContentHash computes the content-addressing key for a rendered prompt pair
// (spec §4.4: "prompt_content_hash = sha256(system_prompt + \"\\0\" + user_prompt)").
// Identical system/user prompt text — the common case once the system prompt
// stabilizes — hashes identically, so the blob is written once regardless of
// how many steps render it.
func ContentHash(systemPrompt, userPrompt string) string {
	sum := sha256.Sum256([]byte(systemPrompt + "\x00" + userPrompt))
	return hex.EncodeToString(sum[:])
}

// StorageKey derives the content-addressed blob key from a content hash,
// bucketing by the first two hex characters to keep any single directory- or
// shard-like grouping from growing unbounded.
func StorageKey(contentHash string) string {
	if len(contentHash) < 2 {
		return "prompts/" + contentHash
	}
	return "prompts/" + contentHash[:2] + "/" + contentHash
}

// Store persists PromptArchive rows and their blob bodies, and prunes rows
// older than a retention cutoff (spec §4.4 "Retention job").
type Store interface {
	// Archive writes (or, for a repeated content hash, reuses) the blob body
	// and inserts a new PromptArchive row recording this render's token
	// accounting. Archiving is per-step: two steps that render identical
	// prompt text still get two rows, one per StepID, sharing one blob.
	Archive(ctx context.Context, req Request) (PromptArchive, error)

	// Load retrieves a previously archived render's prompt bodies by ID.
	Load(ctx context.Context, id string) (system, user string, err error)

	// PruneOlderThan deletes archive rows (and, when no other row still
	// references the blob, the blob body) rendered before cutoff. With
	// dryRun set no deletion happens; found still reports what would be
	// deleted. Returns (found, deleted) counts for logging/metrics, matching
	// the original pruning command's accounting.
	PruneOlderThan(ctx context.Context, cutoff time.Time, dryRun bool) (found, deleted int, err error)
}
