package comms

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a lookup finds no matching row.
var ErrNotFound = errors.New("comms: not found")

// ErrNotAllowlisted is returned by Store.AppendOutbound when the
// destination address is not permitted by the conversation's allowlist
// policy (spec §3 Conversation "allowlist policy").
var ErrNotAllowlisted = errors.New("comms: destination not allowlisted")

// Store persists CommsEndpoints, Conversations, Participants, and Messages.
// A Postgres-backed implementation lives in store/postgres; NewMemoryStore
// provides an in-process implementation for tests.
type Store interface {
	// UpsertEndpoint returns the existing CommsEndpoint for (channel,
	// address) case-insensitively, creating one if absent.
	UpsertEndpoint(ctx context.Context, e CommsEndpoint) (CommsEndpoint, error)

	// ConversationFor returns the Conversation for (agentID, channel,
	// address), creating one with AllowlistPolicyDefault if absent.
	ConversationFor(ctx context.Context, agentID string, channel Channel, address string) (Conversation, error)

	SetAllowlistPolicy(ctx context.Context, conversationID string, policy AllowlistPolicy, manualEntries []string) error

	// AppendInbound persists an inbound Message, assigning the next Seq for
	// its conversation (spec §5 "monotonically increasing seq per
	// conversation").
	AppendInbound(ctx context.Context, m Message) (Message, error)

	// AppendOutbound persists an outbound Message after checking the
	// destination against the conversation's allowlist policy. Core calls
	// this before invoking the outbound transport (spec §6 "core persists
	// Message first, then calls transport").
	AppendOutbound(ctx context.Context, m Message) (Message, error)

	// Narrative returns Messages for a conversation ordered by timestamp
	// then seq (spec §5 "prompt assembler orders by timestamp then seq"),
	// since sinceSeq exclusive.
	Narrative(ctx context.Context, conversationID string, sinceSeq int64) ([]Message, error)
}
