// Package variables implements the per-agent named value store (spec §3
// Variable, §4.3 step 7 "Variableize"): deterministic naming, idempotent
// get-or-create, and an LRU cap of 50 values per agent.
package variables

import "time"

// Variable is a per-agent named immutable value. Once created it is never
// mutated — a later write under the same name is a no-op that returns the
// existing row (get-or-create idempotence).
type Variable struct {
	ID         string
	AgentID    string
	Name       string
	Value      string
	IsJSON     bool
	SizeBytes  int
	ToolCallID string // empty when not attributed to a tool call
	Summary    string
	CreatedAt  time.Time
}

// MaxPerAgent bounds how many Variables an agent may hold at once (spec §3
// Variable invariant, §8 "variable cap" testable property). Inserting past
// the cap evicts the oldest rows by CreatedAt.
const MaxPerAgent = 50

// MaxNameLen is the longest a sanitized Variable name may be.
const MaxNameLen = 128
