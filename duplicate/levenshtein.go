package duplicate

import (
	"github.com/agext/levenshtein"
)

var levenshteinParams = levenshtein.NewParams()

// LevenshteinRatio returns the classic edit-distance similarity ratio
// (|a|+|b|-dist)/(|a|+|b|), used as the fallback comparator when no
// embeddings endpoint is reachable (spec §4.3.1). The edit distance itself
// comes from agext/levenshtein; only the final ratio is computed here, to
// match the original guard's exact formula rather than that library's own
// (differently normalized) Match/Similarity helpers.
func LevenshteinRatio(a, b string) float64 {
	if a == b {
		return 1.0
	}
	total := len(a) + len(b)
	if total == 0 {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}

	dist := levenshtein.Distance(a, b, levenshteinParams)
	return float64(total-dist) / float64(total)
}
