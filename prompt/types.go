package prompt

import "time"

// Identity is the agent-specific context threaded into the system prompt.
type Identity struct {
	AgentID        string
	Name           string
	Charter        string
	CapabilityHint string
	SafetyNotes    string
	PlanGuidance   string
}

// ToolSchema is one tool's schema as rendered into the system prompt,
// already filtered by visibility for the current plan/allowlist (spec §4.4
// inputs: "tool schemas filtered by visibility").
type ToolSchema struct {
	Name        string
	Description string
	ParamsJSON  string
}

// AllowlistEntry is one entry of the outbound communication allowlist
// snapshot rendered into the system prompt.
type AllowlistEntry struct {
	Kind    string
	Pattern string
}

// NarrativeEntry is one event in the chronological narrative the user
// prompt is built from: a message, a tool call and its (possibly
// digested/skeletonized) result, or a synthesized summary entry.
type NarrativeEntry struct {
	Speaker   string
	Text      string
	Timestamp time.Time
	// Compactable marks an entry that compaction step 1 is allowed to
	// replace with a digest/skeleton summary line. Steps 2 and 3 (collapse
	// into a prior summary, drop oldest) apply to every entry whatever its
	// Compactable value.
	Compactable bool
}

// SystemPromptInputs bundles everything used to compose the system prompt.
type SystemPromptInputs struct {
	Identity    Identity
	Filesystem  []FileEntry
	Variables   string // pre-rendered variable catalog (variables.Describe)
	Allowlist   []AllowlistEntry
	Tools       []ToolSchema
}

// UserPromptInputs bundles everything used to compose the user prompt.
type UserPromptInputs struct {
	Narrative []NarrativeEntry
	// PriorSummary is a previously synthesized "prior conversation summary"
	// (spec §4.4 compaction step 2), prepended ahead of the narrative when
	// set.
	PriorSummary string
}
