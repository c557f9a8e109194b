package variables

import (
	"regexp"
	"strings"
)

var invalidNameChars = regexp.MustCompile(`[^A-Za-z0-9_]+`)

// sanitize replaces runs of characters outside [A-Za-z0-9_] with a single
// underscore and trims leading/trailing underscores, falling back to "var"
// when nothing survives.
func sanitize(part string) string {
	cleaned := invalidNameChars.ReplaceAllString(part, "_")
	cleaned = trimUnderscores(cleaned)
	if cleaned == "" {
		return "var"
	}
	return cleaned
}

func trimUnderscores(s string) string {
	start := 0
	for start < len(s) && s[start] == '_' {
		start++
	}
	end := len(s)
	for end > start && s[end-1] == '_' {
		end--
	}
	return s[start:end]
}

// GenerateName builds the deterministic variable name for a tool call
// field (spec §4.3 "Variable naming"):
// sanitize(prefix or toolName) + "_" + stepHex + "_" + sanitize(field or "result"),
// lowercased and truncated to MaxNameLen.
func GenerateName(toolName, stepHex, field, prefix string) string {
	base := prefix
	if base == "" {
		base = toolName
	}
	fieldPart := field
	if fieldPart == "" {
		fieldPart = "result"
	}

	parts := []string{strings.ToLower(sanitize(base)), strings.ToLower(sanitize(stepHex)), strings.ToLower(sanitize(fieldPart))}
	var name string
	for _, p := range parts {
		if p == "" {
			continue
		}
		if name != "" {
			name += "_"
		}
		name += p
	}

	if len(name) > MaxNameLen {
		name = name[:MaxNameLen]
	}
	return name
}
