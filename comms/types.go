// Package comms models inbound/outbound Messages, the CommsEndpoints they
// flow through, and the Conversations that group them (spec §3 Message,
// CommsEndpoint, Conversation, Participant).
package comms

import (
	"strings"
	"time"
)

// Channel identifies the transport a Message or CommsEndpoint uses.
type Channel string

const (
	ChannelEmail   Channel = "email"
	ChannelSMS     Channel = "sms"
	ChannelSlack   Channel = "slack"
	ChannelDiscord Channel = "discord"
	ChannelWeb     Channel = "web"
	ChannelOther   Channel = "other"
)

// Direction distinguishes inbound (received) from outbound (sent) Messages.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// ParticipantRole distinguishes the agent side of a Conversation from the
// external party it is talking to.
type ParticipantRole string

const (
	ParticipantRoleAgent    ParticipantRole = "AGENT"
	ParticipantRoleExternal ParticipantRole = "EXTERNAL"
)

// AllowlistPolicy controls which addresses an agent may message (spec §3
// Conversation, §4.4 "Communication allowlist").
type AllowlistPolicy string

const (
	// AllowlistPolicyDefault permits only the agent owner and its existing
	// contacts (prior conversation participants).
	AllowlistPolicyDefault AllowlistPolicy = "DEFAULT"
	// AllowlistPolicyManual permits only explicitly listed entries.
	AllowlistPolicyManual AllowlistPolicy = "MANUAL"
)

// CommsEndpoint is a (channel, address) pair, optionally owned by an agent
// (spec §3 CommsEndpoint). Address uniqueness within a channel is
// case-insensitive.
type CommsEndpoint struct {
	ID      string
	Channel Channel
	Address string
	AgentID string // empty when this endpoint is an external party's

	CreatedAt time.Time
}

// NormalizedAddress returns Address lower-cased, the form the store indexes
// uniqueness on (spec §3 "unique case-insensitively").
func (e CommsEndpoint) NormalizedAddress() string {
	return strings.ToLower(strings.TrimSpace(e.Address))
}

// Conversation groups Messages exchanged by one agent over one
// (channel, address) pair (spec §3 Conversation).
type Conversation struct {
	ID              string
	AgentID         string
	Channel         Channel
	Address         string
	AllowlistPolicy AllowlistPolicy
	CreatedAt       time.Time
}

// Participant is one party to a Conversation.
type Participant struct {
	ID             string
	ConversationID string
	EndpointID     string
	Role           ParticipantRole
}

// Attachment is a file reference carried by a Message.
type Attachment struct {
	Name        string
	ContentType string
	URI         string
	SizeBytes   int
}

// Message is one inbound or outbound communication (spec §3 Message). Seq
// is a monotonically increasing per-conversation sequence number assigned
// at persist time (spec §5 "Ordering guarantees").
type Message struct {
	ID             string
	ConversationID string
	Direction      Direction
	Channel        Channel
	FromEndpointID string
	ToEndpointID   string
	Subject        string
	Body           string
	Attachments    []Attachment
	Seq            int64
	Timestamp      time.Time
}
