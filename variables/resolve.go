package variables

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var varRefPattern = regexp.MustCompile(`^\$([A-Za-z0-9_-]+)$`)

// ResolutionError is returned when a tool param references a variable that
// does not exist for the agent (spec §4.3 step 1, §7 "Variable-resolution
// failure").
type ResolutionError struct {
	Name string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("Variable $%s not found", e.Name)
}

// ResolveParams walks params recursively; any string exactly matching
// `$NAME` is replaced with the resolved Variable's value (JSON-decoded when
// flagged). Returns the resolved tree and the set of variable names used.
func ResolveParams(ctx context.Context, store Store, agentID string, params any) (any, map[string]bool, error) {
	used := map[string]bool{}
	resolved, err := resolveValue(ctx, store, agentID, params, used)
	if err != nil {
		return nil, nil, err
	}
	return resolved, used, nil
}

func resolveValue(ctx context.Context, store Store, agentID string, value any, used map[string]bool) (any, error) {
	switch v := value.(type) {
	case string:
		m := varRefPattern.FindStringSubmatch(strings.TrimSpace(v))
		if m == nil {
			return v, nil
		}
		name := m[1]
		variable, err := store.Get(ctx, agentID, name)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, &ResolutionError{Name: name}
			}
			return nil, err
		}
		used[name] = true
		return DeserializeValue(variable), nil

	case map[string]any:
		out := make(map[string]any, len(v))
		for k, child := range v {
			resolvedChild, err := resolveValue(ctx, store, agentID, child, used)
			if err != nil {
				return nil, err
			}
			out[k] = resolvedChild
		}
		return out, nil

	case []any:
		out := make([]any, len(v))
		for i, child := range v {
			resolvedChild, err := resolveValue(ctx, store, agentID, child, used)
			if err != nil {
				return nil, err
			}
			out[i] = resolvedChild
		}
		return out, nil

	default:
		return v, nil
	}
}
