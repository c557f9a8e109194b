package variables

import (
	"context"
	"encoding/json"
	"fmt"
)

// VariableizeConfig is the optional `_variableize` block a tool result may
// carry: {fields?: [string], prefix?: string} (spec §4.3 step 7).
type VariableizeConfig struct {
	Fields []string
	Prefix string
}

// ExtractVariableizeConfig pops a `_variableize` key out of a tool result
// map, returning the cleaned result and the parsed config, if any.
func ExtractVariableizeConfig(result map[string]any) (map[string]any, *VariableizeConfig) {
	raw, ok := result["_variableize"]
	if !ok {
		return result, nil
	}

	cleaned := make(map[string]any, len(result)-1)
	for k, v := range result {
		if k == "_variableize" {
			continue
		}
		cleaned[k] = v
	}

	cfgMap, ok := raw.(map[string]any)
	if !ok {
		return cleaned, nil
	}

	cfg := &VariableizeConfig{}
	if fields, ok := cfgMap["fields"].([]any); ok {
		for _, f := range fields {
			if s, ok := f.(string); ok {
				cfg.Fields = append(cfg.Fields, s)
			}
		}
	}
	if prefix, ok := cfgMap["prefix"].(string); ok {
		cfg.Prefix = prefix
	}
	return cleaned, cfg
}

// FromConfig creates one Variable per field named in cfg that is present in
// result, using the deterministic name derived from toolName/stepHex/field.
// A field a tool names but never produces is silently skipped, matching the
// "never block the loop over auxiliary bookkeeping" posture of the tool
// dispatch pipeline.
func FromConfig(ctx context.Context, store Store, agentID, toolName, stepHex, toolCallID string, result map[string]any, cfg *VariableizeConfig) ([]Variable, error) {
	if cfg == nil {
		return nil, nil
	}

	var created []Variable
	for _, field := range cfg.Fields {
		value, present := result[field]
		if !present {
			continue
		}
		name := GenerateName(toolName, stepHex, field, cfg.Prefix)
		v, wasCreated, err := store.GetOrCreate(ctx, agentID, name, value, toolCallID,
			fmt.Sprintf("%s field %q", toolName, field))
		if err != nil {
			return created, err
		}
		if wasCreated {
			created = append(created, v)
		}
	}
	return created, nil
}

// FromFullResult creates a single "full result" Variable when the
// serialized value is at least minBytes (spec §4.3 step 7, default 1024 via
// config.Config.MinVariableBytes). A string result that happens to parse as
// JSON is stored with its decoded structure, matching the dispatcher's
// convention of round-tripping string tool results that are themselves
// JSON-encoded.
func FromFullResult(ctx context.Context, store Store, agentID, toolName, stepHex, toolCallID string, value any, minBytes int) (*Variable, error) {
	parsed := value
	if s, ok := value.(string); ok {
		var decoded any
		if err := json.Unmarshal([]byte(s), &decoded); err == nil {
			parsed = decoded
		}
	}

	_, _, sizeBytes, err := serializeValue(parsed)
	if err != nil {
		return nil, err
	}
	if sizeBytes < minBytes {
		return nil, nil
	}

	name := GenerateName(toolName, stepHex, "", "")
	v, _, err := store.GetOrCreate(ctx, agentID, name, parsed, toolCallID, fmt.Sprintf("%s result", toolName))
	if err != nil {
		return nil, err
	}
	return &v, nil
}
