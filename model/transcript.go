package model

// TranscriptEntry represents a single ordered entry in a flattened
// transcript. The prompt assembler builds a transcript from the agent's
// conversation history (spec §4.4 "chronological narrative of events since
// the last step boundary") and converts it to Messages with this helper.
type TranscriptEntry struct {
	Role  ConversationRole
	Parts []Part
}

// BuildMessagesFromTranscript constructs Messages from a flat transcript.
// It preserves the provided order without synthesis. Only TextPart,
// ThinkingPart, ToolUsePart and ToolResultPart are kept; other part types
// are dropped, as are entries with an empty role or with no kept parts.
// Callers are responsible for provider-specific invariants
// (e.g., place ThinkingPart before ToolUsePart in an assistant message when
// tools are used).
func BuildMessagesFromTranscript(entries []TranscriptEntry) []*Message {
	if len(entries) == 0 {
		return nil
	}
	out := make([]*Message, 0, len(entries))
	for _, e := range entries {
		if e.Role == "" {
			continue
		}
		msg := &Message{
			Role:  e.Role,
			Parts: make([]Part, 0, len(e.Parts)),
		}
		for _, p := range e.Parts {
			switch v := p.(type) {
			case TextPart:
				msg.Parts = append(msg.Parts, v)
			case ThinkingPart:
				msg.Parts = append(msg.Parts, v)
			case ToolUsePart:
				msg.Parts = append(msg.Parts, v)
			case ToolResultPart:
				msg.Parts = append(msg.Parts, v)
			default:
				continue
			}
		}
		if len(msg.Parts) == 0 {
			continue
		}
		out = append(out, msg)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
