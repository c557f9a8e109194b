package prompt

import (
	"fmt"
	"strings"
)

// staticPreamble is the fixed boilerplate every system prompt opens with.
// Kept literal and stable (spec §4.4 "System prompt text is canonical and
// stable so it content-hashes well") so unrelated per-agent changes don't
// perturb the archive's content hash.
const staticPreamble = "You are an autonomous agent operating under a charter. Follow the charter, use the tools provided, and respect the communication allowlist."

// AssembleSystemPrompt composes the system prompt from static sections, the
// charter, capability hints, safety notes, the filesystem listing, the
// variable catalog, the allowlist snapshot, and visibility-filtered tool
// schemas (spec §4.4 "System prompt").
func AssembleSystemPrompt(in SystemPromptInputs) string {
	var b strings.Builder

	b.WriteString(staticPreamble)
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "## Charter\n%s\n", in.Identity.Charter)
	if in.Identity.CapabilityHint != "" {
		fmt.Fprintf(&b, "\n## Capabilities\n%s\n", in.Identity.CapabilityHint)
	}
	if in.Identity.SafetyNotes != "" {
		fmt.Fprintf(&b, "\n## Safety notes\n%s\n", in.Identity.SafetyNotes)
	}
	if in.Identity.PlanGuidance != "" {
		fmt.Fprintf(&b, "\n## Plan guidance\n%s\n", in.Identity.PlanGuidance)
	}

	b.WriteString("\n## Filesystem\n")
	b.WriteString(RenderFilesystemListing(in.Filesystem))
	b.WriteString("\n")

	if in.Variables != "" {
		b.WriteString("\n## Variables\n")
		b.WriteString(in.Variables)
		b.WriteString("\n")
	}

	if len(in.Allowlist) > 0 {
		b.WriteString("\n## Communication allowlist\n")
		for _, a := range in.Allowlist {
			fmt.Fprintf(&b, "- %s: %s\n", a.Kind, a.Pattern)
		}
	}

	if len(in.Tools) > 0 {
		b.WriteString("\n## Tools\n")
		for _, t := range in.Tools {
			fmt.Fprintf(&b, "### %s\n%s\n%s\n", t.Name, t.Description, t.ParamsJSON)
		}
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

// AssembleUserPrompt composes the user prompt from the prior-conversation
// summary (if any) followed by the chronological narrative since the last
// step boundary (spec §4.4 "User prompt").
func AssembleUserPrompt(in UserPromptInputs) string {
	var b strings.Builder

	if in.PriorSummary != "" {
		b.WriteString("## Prior conversation summary\n")
		b.WriteString(in.PriorSummary)
		b.WriteString("\n\n")
	}

	for _, e := range in.Narrative {
		fmt.Fprintf(&b, "[%s] %s: %s\n", e.Timestamp.UTC().Format("15:04:05"), e.Speaker, e.Text)
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}
