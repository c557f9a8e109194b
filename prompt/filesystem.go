package prompt

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// FileEntry is one file in the agent's filespace (spec §4.4 inputs:
// "filesystem listing (most-recent-updated 30 files, path + size + mime +
// updated-at)").
type FileEntry struct {
	Path      string
	SizeBytes int64
	MimeType  string
	UpdatedAt time.Time
}

const (
	maxFilesystemEntries = 30
	maxFilesystemBytes   = 30_000
)

// RenderFilesystemListing renders the most-recently-updated files, capped at
// maxFilesystemEntries and maxFilesystemBytes. A truncation notice is
// appended when the byte cap is hit; files beyond the entry cap are dropped
// without a notice. Grounded on get_agent_filesystem_prompt's
// byte-budget truncation shape, re-ordered by recency per the expanded
// filesystem-listing input and extended with an updated-at column.
func RenderFilesystemListing(files []FileEntry) string {
	if len(files) == 0 {
		return "No files available in the agent filesystem."
	}

	sorted := make([]FileEntry, len(files))
	copy(sorted, files)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].UpdatedAt.After(sorted[j].UpdatedAt)
	})
	if len(sorted) > maxFilesystemEntries {
		sorted = sorted[:maxFilesystemEntries]
	}

	var lines []string
	totalBytes := 0
	for _, f := range sorted {
		mime := f.MimeType
		if mime == "" {
			mime = "?"
		}
		line := fmt.Sprintf("- %s (size: %s, type: %s, updated: %s)",
			f.Path, humanFileSize(f.SizeBytes), mime, f.UpdatedAt.UTC().Format(time.RFC3339))

		lineLen := len(line)
		if len(lines) > 0 {
			lineLen++
		}
		if totalBytes+lineLen > maxFilesystemBytes {
			lines = append(lines, "... (truncated - files listing exceeds 30KB limit)")
			break
		}
		lines = append(lines, line)
		totalBytes += lineLen
	}

	return strings.Join(lines, "\n")
}

func humanFileSize(n int64) string {
	if n < 0 {
		return "?"
	}
	units := []string{"B", "KB", "MB", "GB", "TB"}
	size := float64(n)
	idx := 0
	for size >= 1024 && idx < len(units)-1 {
		size /= 1024
		idx++
	}
	return fmt.Sprintf("%.1f %s", size, units[idx])
}
