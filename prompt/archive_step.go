package prompt

import (
	"context"

	"github.com/gobii-run/agentcore/archive"
)

// ArchiveRender writes the rendered step to the PromptArchive store (spec
// §4.4 "Archival"). Callers invoke this once per step after Assemble
// succeeds; the archive store itself handles content-addressed dedup of the
// blob body.
func ArchiveRender(ctx context.Context, store archive.Store, agentID, stepID string, r Render) (archive.PromptArchive, error) {
	return store.Archive(ctx, archive.Request{
		AgentID:      agentID,
		StepID:       stepID,
		SystemPrompt: r.SystemPrompt,
		UserPrompt:   r.UserPrompt,
		TokensBefore: r.TokensBefore,
		TokensAfter:  r.TokensAfter,
	})
}
