// This file defines per-type MarshalJSON methods so individual Part values
// (not just whole Messages) carry a Kind discriminator when serialized
// directly, e.g. a single ToolResultPart archived as a ToolCall's raw
// result (spec §3 ToolCall.raw_result).
package model

import "encoding/json"

func (p ThinkingPart) MarshalJSON() ([]byte, error) {
	type alias ThinkingPart
	return json.Marshal(struct {
		Kind string `json:"Kind"` //nolint:tagliatelle
		alias
	}{Kind: "thinking", alias: alias(p)})
}

func (p TextPart) MarshalJSON() ([]byte, error) {
	type alias TextPart
	return json.Marshal(struct {
		Kind string `json:"Kind"` //nolint:tagliatelle
		alias
	}{Kind: "text", alias: alias(p)})
}

func (p ToolUsePart) MarshalJSON() ([]byte, error) {
	type alias ToolUsePart
	return json.Marshal(struct {
		Kind string `json:"Kind"` //nolint:tagliatelle
		alias
	}{Kind: "tool_use", alias: alias(p)})
}

func (p ToolResultPart) MarshalJSON() ([]byte, error) {
	type alias ToolResultPart
	return json.Marshal(struct {
		Kind string `json:"Kind"` //nolint:tagliatelle
		alias
	}{Kind: "tool_result", alias: alias(p)})
}

func (p CacheCheckpointPart) MarshalJSON() ([]byte, error) {
	type alias CacheCheckpointPart
	return json.Marshal(struct {
		Kind string `json:"Kind"` //nolint:tagliatelle
		alias
	}{Kind: "cache_checkpoint", alias: alias(p)})
}
