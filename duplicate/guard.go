// Package duplicate implements the outbound message duplicate guard (spec
// §4.3.1): given a candidate outbound message, compare it against the most
// recent outbound on the same channel (optionally scoped to an address or
// conversation) and reject exact or near-duplicate sends.
package duplicate

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// DefaultThreshold is the default similarity rejection threshold, overridable
// per plan.
const DefaultThreshold = 0.97

// Reason identifies why a candidate was flagged as a duplicate.
type Reason string

const (
	ReasonExact      Reason = "exact"
	ReasonSimilarity Reason = "similarity"
)

// PreviousMessage is the most recent outbound message a candidate is
// compared against.
type PreviousMessage struct {
	ID        string
	Body      string
	Timestamp time.Time
}

// Result is the outcome of a positive duplicate detection.
type Result struct {
	Reason     Reason
	Previous   PreviousMessage
	Similarity float64 // zero for ReasonExact
}

// ErrorPayload renders the rejection the tool dispatcher returns to the
// agent, matching the original guard's two human-readable phrasings.
func (r Result) ErrorPayload() map[string]any {
	detail := "is highly similar to"
	instruction := "Consider if this message should have been sent at all. If so, please revise before sending again."
	if r.Reason == ReasonExact {
		detail = "matches"
		instruction = "Do not attempt to send this message again."
	}

	payload := map[string]any{
		"status":              "error",
		"message":             fmt.Sprintf("Message blocked: content %s the previous message and may be a duplicate. %s", detail, instruction),
		"duplicate_detected":  true,
		"duplicate_reason":    string(r.Reason),
		"auto_sleep_ok":       true,
		"duplicate_timestamp": r.Previous.Timestamp.UTC().Format(time.RFC3339),
	}
	if r.Reason == ReasonSimilarity {
		payload["duplicate_similarity"] = r.Similarity
	}
	return payload
}

// EmbeddingScorer computes a [0,1] similarity between two strings by routing
// through the embeddings tier sequence (spec §4.3.1: "routed via the
// embeddings tier sequence"). ok is false when no embedding endpoint was
// reachable, triggering the Levenshtein fallback. Injected so this package
// does not depend on the LLM router.
type EmbeddingScorer func(ctx context.Context, a, b string) (similarity float64, ok bool)

// Detect compares candidateBody against previous (the most recent outbound
// on the relevant channel/address/conversation, already looked up by the
// caller) and returns a non-nil Result when it judges the candidate a
// duplicate. A nil previous means there is nothing to compare against.
func Detect(ctx context.Context, candidateBody string, previous *PreviousMessage, threshold float64, embed EmbeddingScorer) (*Result, error) {
	if candidateBody == "" || previous == nil {
		return nil, nil
	}

	current := strings.TrimSpace(candidateBody)
	prior := strings.TrimSpace(previous.Body)
	if prior == "" {
		return nil, nil
	}

	if prior == current {
		return &Result{Reason: ReasonExact, Previous: *previous}, nil
	}

	similarity, ok := 0.0, false
	if embed != nil {
		similarity, ok = embed(ctx, prior, current)
	}
	if !ok {
		similarity = LevenshteinRatio(prior, current)
	}

	if similarity >= threshold {
		return &Result{Reason: ReasonSimilarity, Previous: *previous, Similarity: similarity}, nil
	}
	return nil, nil
}
