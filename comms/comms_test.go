package comms_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gobii-run/agentcore/comms"
	"github.com/gobii-run/agentcore/internal/clock"
)

func TestUpsertEndpointIsCaseInsensitive(t *testing.T) {
	t.Parallel()
	store := comms.NewMemoryStore(clock.Real)

	first, err := store.UpsertEndpoint(context.Background(), comms.CommsEndpoint{Channel: comms.ChannelEmail, Address: "User@Example.com"})
	require.NoError(t, err)

	second, err := store.UpsertEndpoint(context.Background(), comms.CommsEndpoint{Channel: comms.ChannelEmail, Address: "user@example.com"})
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
}

func TestAppendInboundAssignsMonotonicSeq(t *testing.T) {
	t.Parallel()
	store := comms.NewMemoryStore(clock.Real)
	conv, err := store.ConversationFor(context.Background(), "agt_1", comms.ChannelEmail, "user@example.com")
	require.NoError(t, err)

	m1, err := store.AppendInbound(context.Background(), comms.Message{ConversationID: conv.ID, Direction: comms.DirectionInbound, Body: "hi"})
	require.NoError(t, err)
	m2, err := store.AppendInbound(context.Background(), comms.Message{ConversationID: conv.ID, Direction: comms.DirectionInbound, Body: "again"})
	require.NoError(t, err)

	require.Equal(t, int64(1), m1.Seq)
	require.Equal(t, int64(2), m2.Seq)
}

func TestAppendOutboundRejectsManualAllowlistMiss(t *testing.T) {
	t.Parallel()
	store := comms.NewMemoryStore(clock.Real)
	conv, err := store.ConversationFor(context.Background(), "agt_1", comms.ChannelEmail, "user@example.com")
	require.NoError(t, err)
	require.NoError(t, store.SetAllowlistPolicy(context.Background(), conv.ID, comms.AllowlistPolicyManual, []string{"ok@example.com"}))

	_, err = store.AppendOutbound(context.Background(), comms.Message{ConversationID: conv.ID, Direction: comms.DirectionOutbound, ToEndpointID: "stranger@example.com"})
	require.ErrorIs(t, err, comms.ErrNotAllowlisted)

	_, err = store.AppendOutbound(context.Background(), comms.Message{ConversationID: conv.ID, Direction: comms.DirectionOutbound, ToEndpointID: "ok@example.com"})
	require.NoError(t, err)
}

func TestNarrativeOrdersByTimestampThenSeq(t *testing.T) {
	t.Parallel()
	store := comms.NewMemoryStore(clock.Real)
	conv, err := store.ConversationFor(context.Background(), "agt_1", comms.ChannelEmail, "user@example.com")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := store.AppendInbound(context.Background(), comms.Message{ConversationID: conv.ID, Body: "msg"})
		require.NoError(t, err)
	}

	narrative, err := store.Narrative(context.Background(), conv.ID, 1)
	require.NoError(t, err)
	require.Len(t, narrative, 2)
	require.Equal(t, int64(2), narrative[0].Seq)
	require.Equal(t, int64(3), narrative[1].Seq)
}
