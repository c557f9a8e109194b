package variables

import (
	"fmt"
	"strings"
)

// Describe renders a one-line-per-variable catalog for the assembled
// prompt (spec §4.4 "variable catalog ... one line per variable with
// approximate size and summary").
func Describe(vars []Variable) string {
	lines := make([]string, 0, len(vars))
	for _, v := range vars {
		summary := v.Summary
		if summary == "" {
			summary = "Text"
			if v.IsJSON {
				summary = "JSON"
			}
		}
		sizeKB := float64(v.SizeBytes) / 1024
		lines = append(lines, fmt.Sprintf("$%s — %s (~%.1f KB)", v.Name, summary, sizeKB))
	}
	return strings.Join(lines, "\n")
}
