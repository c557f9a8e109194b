package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPartMarshalJSONIncludesKind(t *testing.T) {
	cases := []struct {
		name string
		part Part
		kind string
	}{
		{
			name: "thinking",
			part: ThinkingPart{Text: "think", Signature: "sig", Index: 1, Final: true},
			kind: "thinking",
		},
		{name: "text", part: TextPart{Text: "hello"}, kind: "text"},
		{name: "tool_use", part: ToolUsePart{Name: "send_email", Input: map[string]any{"to": "u@example.com"}}, kind: "tool_use"},
		{name: "tool_result", part: ToolResultPart{ToolUseID: "tu", Content: map[string]any{"status": "ok"}}, kind: "tool_result"},
		{name: "cache_checkpoint", part: CacheCheckpointPart{}, kind: "cache_checkpoint"},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := json.Marshal(tt.part)
			require.NoError(t, err)
			var obj map[string]json.RawMessage
			require.NoError(t, json.Unmarshal(raw, &obj))

			var kind string
			require.NoError(t, json.Unmarshal(obj["Kind"], &kind))
			require.Equal(t, tt.kind, kind)
		})
	}
}

func TestThinkingPartRoundTripPreservesSignature(t *testing.T) {
	orig := ThinkingPart{
		Text:      "let me think",
		Signature: "signed-by-provider",
		Redacted:  []byte{0x01, 0x02},
		Index:     3,
		Final:     true,
	}

	raw, err := json.Marshal(orig)
	require.NoError(t, err)

	part, err := decodeMessagePart(raw)
	require.NoError(t, err)

	got, ok := part.(ThinkingPart)
	require.True(t, ok)
	require.Equal(t, orig.Text, got.Text)
	require.Equal(t, orig.Signature, got.Signature)
	require.Equal(t, orig.Index, got.Index)
	require.Equal(t, orig.Final, got.Final)
	require.Equal(t, orig.Redacted, got.Redacted)
}

func TestMessageRoundTripPreservesPartOrder(t *testing.T) {
	orig := Message{
		Role: ConversationRoleAssistant,
		Parts: []Part{
			ThinkingPart{Text: "checking calendar", Final: true},
			ToolUsePart{ID: "tu1", Name: "send_email", Input: map[string]any{"to": "u@example.com"}},
		},
		Meta: map[string]any{"step_id": "stp_1"},
	}

	raw, err := json.Marshal(orig)
	require.NoError(t, err)

	var got Message
	require.NoError(t, json.Unmarshal(raw, &got))

	require.Equal(t, orig.Role, got.Role)
	require.Len(t, got.Parts, 2)
	require.IsType(t, ThinkingPart{}, got.Parts[0])
	use, ok := got.Parts[1].(ToolUsePart)
	require.True(t, ok)
	require.Equal(t, "send_email", use.Name)
}

func TestDecodeMessagePartRejectsUnknownShape(t *testing.T) {
	_, err := decodeMessagePart([]byte(`{"Foo":"bar"}`))
	require.Error(t, err)
}

func TestBuildMessagesFromTranscriptSkipsEmptyRoles(t *testing.T) {
	msgs := BuildMessagesFromTranscript([]TranscriptEntry{
		{Role: "", Parts: []Part{TextPart{Text: "dropped"}}},
		{Role: ConversationRoleUser, Parts: []Part{TextPart{Text: "hello"}}},
	})
	require.Len(t, msgs, 1)
	require.Equal(t, ConversationRoleUser, msgs[0].Role)
}
