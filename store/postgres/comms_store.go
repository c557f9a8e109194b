package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gobii-run/agentcore/comms"
	"github.com/gobii-run/agentcore/internal/idgen"
)

// CommsStore is the pgx-backed comms.Store implementation.
type CommsStore struct {
	Pool *pgxpool.Pool
}

// NewCommsStore wires a CommsStore against an already-connected pool.
func NewCommsStore(pool *pgxpool.Pool) *CommsStore {
	return &CommsStore{Pool: pool}
}

func (s *CommsStore) UpsertEndpoint(ctx context.Context, e comms.CommsEndpoint) (comms.CommsEndpoint, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT id, channel, address, agent_id, created_at FROM comms_endpoints
		WHERE channel = $1 AND lower(address) = lower($2)`, e.Channel, e.Address)
	var existing comms.CommsEndpoint
	err := row.Scan(&existing.ID, &existing.Channel, &existing.Address, &existing.AgentID, &existing.CreatedAt)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return comms.CommsEndpoint{}, fmt.Errorf("postgres: lookup endpoint: %w", err)
	}

	if e.ID == "" {
		e.ID = idgen.New("ep")
	}
	row = s.Pool.QueryRow(ctx, `
		INSERT INTO comms_endpoints (id, channel, address, agent_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (channel, lower(address)) DO UPDATE SET channel = EXCLUDED.channel
		RETURNING id, channel, address, agent_id, created_at`,
		e.ID, e.Channel, e.Address, e.AgentID,
	)
	if err := row.Scan(&e.ID, &e.Channel, &e.Address, &e.AgentID, &e.CreatedAt); err != nil {
		return comms.CommsEndpoint{}, fmt.Errorf("postgres: upsert endpoint: %w", err)
	}
	return e, nil
}

func (s *CommsStore) ConversationFor(ctx context.Context, agentID string, channel comms.Channel, address string) (comms.Conversation, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT id, agent_id, channel, address, allowlist_policy, created_at FROM conversations
		WHERE agent_id = $1 AND channel = $2 AND lower(address) = lower($3)`, agentID, channel, address)
	var c comms.Conversation
	err := row.Scan(&c.ID, &c.AgentID, &c.Channel, &c.Address, &c.AllowlistPolicy, &c.CreatedAt)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return comms.Conversation{}, fmt.Errorf("postgres: lookup conversation: %w", err)
	}

	row = s.Pool.QueryRow(ctx, `
		INSERT INTO conversations (id, agent_id, channel, address, allowlist_policy)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (agent_id, channel, lower(address)) DO UPDATE SET agent_id = EXCLUDED.agent_id
		RETURNING id, agent_id, channel, address, allowlist_policy, created_at`,
		idgen.New("conv"), agentID, channel, address, comms.AllowlistPolicyDefault,
	)
	if err := row.Scan(&c.ID, &c.AgentID, &c.Channel, &c.Address, &c.AllowlistPolicy, &c.CreatedAt); err != nil {
		return comms.Conversation{}, fmt.Errorf("postgres: create conversation: %w", err)
	}
	return c, nil
}

func (s *CommsStore) SetAllowlistPolicy(ctx context.Context, conversationID string, policy comms.AllowlistPolicy, manualEntries []string) error {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin set allowlist: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `UPDATE conversations SET allowlist_policy = $2 WHERE id = $1`, conversationID, policy); err != nil {
		return fmt.Errorf("postgres: update allowlist policy: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM allowlist_entries WHERE conversation_id = $1`, conversationID); err != nil {
		return fmt.Errorf("postgres: clear allowlist entries: %w", err)
	}
	for _, addr := range manualEntries {
		if _, err := tx.Exec(ctx, `INSERT INTO allowlist_entries (conversation_id, address) VALUES ($1, $2)
			ON CONFLICT DO NOTHING`, conversationID, addr); err != nil {
			return fmt.Errorf("postgres: insert allowlist entry: %w", err)
		}
	}
	return tx.Commit(ctx)
}

// manualAllowlist returns the manual entries for a conversation, used by
// AppendOutbound to enforce comms.ErrNotAllowlisted.
func (s *CommsStore) manualAllowlist(ctx context.Context, conversationID string) ([]string, error) {
	rows, err := s.Pool.Query(ctx, `SELECT address FROM allowlist_entries WHERE conversation_id = $1`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var addr string
		if err := rows.Scan(&addr); err != nil {
			return nil, err
		}
		out = append(out, addr)
	}
	return out, rows.Err()
}

func (s *CommsStore) appendMessage(ctx context.Context, m comms.Message) (comms.Message, error) {
	if m.ID == "" {
		m.ID = idgen.New("msg")
	}
	attachments, err := json.Marshal(m.Attachments)
	if err != nil {
		return comms.Message{}, fmt.Errorf("postgres: marshal attachments: %w", err)
	}

	row := s.Pool.QueryRow(ctx, `
		INSERT INTO messages (id, conversation_id, direction, channel, from_endpoint_id,
			to_endpoint_id, subject, body, attachments, seq)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb,
			COALESCE((SELECT MAX(seq) FROM messages WHERE conversation_id = $2), 0) + 1)
		RETURNING id, conversation_id, direction, channel, from_endpoint_id, to_endpoint_id,
			subject, body, attachments, seq, "timestamp"`,
		m.ID, m.ConversationID, m.Direction, m.Channel, m.FromEndpointID,
		m.ToEndpointID, m.Subject, m.Body, attachments,
	)
	var rawAttachments []byte
	if err := row.Scan(&m.ID, &m.ConversationID, &m.Direction, &m.Channel, &m.FromEndpointID,
		&m.ToEndpointID, &m.Subject, &m.Body, &rawAttachments, &m.Seq, &m.Timestamp); err != nil {
		return comms.Message{}, fmt.Errorf("postgres: insert message: %w", err)
	}
	if len(rawAttachments) > 0 {
		if err := json.Unmarshal(rawAttachments, &m.Attachments); err != nil {
			return comms.Message{}, fmt.Errorf("postgres: unmarshal attachments: %w", err)
		}
	}
	return m, nil
}

func (s *CommsStore) AppendInbound(ctx context.Context, m comms.Message) (comms.Message, error) {
	m.Direction = comms.DirectionInbound
	return s.appendMessage(ctx, m)
}

// AppendOutbound enforces the conversation's allowlist policy before
// persisting (spec §6 "core persists Message first, then calls
// transport"). Under AllowlistPolicyManual, the destination endpoint's
// address must match an allowlist_entries row (case-insensitively). Under
// AllowlistPolicyDefault no destination check is made here: neither the
// owner's endpoint nor prior participant rows are consulted.
func (s *CommsStore) AppendOutbound(ctx context.Context, m comms.Message) (comms.Message, error) {
	var policy comms.AllowlistPolicy
	if err := s.Pool.QueryRow(ctx, `SELECT allowlist_policy FROM conversations WHERE id = $1`, m.ConversationID).Scan(&policy); err != nil {
		return comms.Message{}, fmt.Errorf("postgres: load conversation policy: %w", err)
	}

	if policy == comms.AllowlistPolicyManual {
		entries, err := s.manualAllowlist(ctx, m.ConversationID)
		if err != nil {
			return comms.Message{}, fmt.Errorf("postgres: load allowlist entries: %w", err)
		}
		row := s.Pool.QueryRow(ctx, `SELECT address FROM comms_endpoints WHERE id = $1`, m.ToEndpointID)
		var addr string
		if err := row.Scan(&addr); err != nil {
			return comms.Message{}, fmt.Errorf("postgres: load destination endpoint: %w", err)
		}
		allowed := false
		for _, e := range entries {
			if strings.EqualFold(e, addr) {
				allowed = true
				break
			}
		}
		if !allowed {
			return comms.Message{}, comms.ErrNotAllowlisted
		}
	}

	m.Direction = comms.DirectionOutbound
	return s.appendMessage(ctx, m)
}

func (s *CommsStore) Narrative(ctx context.Context, conversationID string, sinceSeq int64) ([]comms.Message, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, conversation_id, direction, channel, from_endpoint_id, to_endpoint_id,
			subject, body, attachments, seq, "timestamp"
		FROM messages WHERE conversation_id = $1 AND seq > $2
		ORDER BY "timestamp" ASC, seq ASC`, conversationID, sinceSeq)
	if err != nil {
		return nil, fmt.Errorf("postgres: query narrative: %w", err)
	}
	defer rows.Close()

	var out []comms.Message
	for rows.Next() {
		var m comms.Message
		var rawAttachments []byte
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Direction, &m.Channel, &m.FromEndpointID,
			&m.ToEndpointID, &m.Subject, &m.Body, &rawAttachments, &m.Seq, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("postgres: scan message: %w", err)
		}
		if len(rawAttachments) > 0 {
			if err := json.Unmarshal(rawAttachments, &m.Attachments); err != nil {
				return nil, fmt.Errorf("postgres: unmarshal attachments: %w", err)
			}
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
