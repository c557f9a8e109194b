package tools

import (
	"context"
	"fmt"
	"strings"
)

// BlockURLSuffix rejects a string param ending in any of the given
// suffixes, case-insensitively — e.g. blocking PDF URLs for a scrape tool
// that only handles HTML (spec §4.3 step 3, "parameter guards").
func BlockURLSuffix(field string, suffixes ...string) Guard {
	return func(_ context.Context, _ AgentView, params map[string]any) *GuardRejection {
		raw, ok := params[field].(string)
		if !ok {
			return nil
		}
		lower := strings.ToLower(raw)
		for _, suffix := range suffixes {
			if strings.HasSuffix(lower, strings.ToLower(suffix)) {
				return &GuardRejection{Message: fmt.Sprintf("%s: URLs ending in %q are not supported", field, suffix)}
			}
		}
		return nil
	}
}

// CapBatchSize rejects a call whose array-valued param holds more than max
// items — e.g. capping a search tool's query batch (spec §4.3 step 3).
func CapBatchSize(field string, max int) Guard {
	return func(_ context.Context, _ AgentView, params map[string]any) *GuardRejection {
		raw, ok := params[field].([]any)
		if !ok {
			return nil
		}
		if len(raw) > max {
			return &GuardRejection{Message: fmt.Sprintf("%s: batch of %d exceeds the limit of %d", field, len(raw), max)}
		}
		return nil
	}
}

// RequireNonEmptyString rejects a call missing a required string param, or
// where it is present but blank.
func RequireNonEmptyString(field string) Guard {
	return func(_ context.Context, _ AgentView, params map[string]any) *GuardRejection {
		raw, ok := params[field].(string)
		if !ok || strings.TrimSpace(raw) == "" {
			return &GuardRejection{Message: fmt.Sprintf("%s is required", field)}
		}
		return nil
	}
}
