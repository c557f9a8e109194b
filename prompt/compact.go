package prompt

import (
	"context"
	"encoding/json"

	"github.com/gobii-run/agentcore/digest"
)

// digestExcerptThreshold is the narrative-entry text length above which
// compaction step 1 considers replacing the entry with its digest/skeleton
// summary line instead of the full text.
const digestExcerptThreshold = 500

// Summarizer synthesizes a "prior conversation summary" from the oldest
// narrative entries, using the summarizer tier (spec §4.4 compaction step 2:
// "uses the summarizer tier; its cost counts against the agent"). Injected
// so this package does not depend on the LLM router.
type Summarizer func(ctx context.Context, entries []NarrativeEntry) (string, error)

// Render is a fully assembled, budget-fitting prompt pair plus the
// accounting needed to archive it.
type Render struct {
	SystemPrompt string
	UserPrompt   string
	TokensBefore int
	TokensAfter  int
	Compacted    bool
}

// Assemble renders the system/user prompt and applies the deterministic
// compaction order from spec §4.4 until the result fits budget:
//  1. replace large tool-result excerpts with their digest/skeleton summary,
//  2. collapse older history into a single synthesized summary,
//  3. drop oldest conversation entries first.
//
// summarize may be nil, in which case step 2 is skipped. If the prompt
// still does not fit once every narrative entry is dropped (the system
// prompt alone exceeds budget), the over-budget Render is returned without
// an error.
func Assemble(ctx context.Context, sys SystemPromptInputs, usr UserPromptInputs, budget int, summarize Summarizer) (Render, error) {
	systemPrompt := AssembleSystemPrompt(sys)
	userPrompt := AssembleUserPrompt(usr)
	before := EstimateTokens(systemPrompt) + EstimateTokens(userPrompt)

	if Fits(systemPrompt, userPrompt, budget) {
		return Render{SystemPrompt: systemPrompt, UserPrompt: userPrompt, TokensBefore: before, TokensAfter: before}, nil
	}

	narrative := digestExcerpts(usr.Narrative)
	usr.Narrative = narrative
	userPrompt = AssembleUserPrompt(usr)
	if Fits(systemPrompt, userPrompt, budget) {
		after := EstimateTokens(systemPrompt) + EstimateTokens(userPrompt)
		return Render{SystemPrompt: systemPrompt, UserPrompt: userPrompt, TokensBefore: before, TokensAfter: after, Compacted: true}, nil
	}

	if summarize != nil {
		collapsed, err := collapseOldest(ctx, usr, summarize)
		if err != nil {
			return Render{}, err
		}
		usr = collapsed
		userPrompt = AssembleUserPrompt(usr)
		if Fits(systemPrompt, userPrompt, budget) {
			after := EstimateTokens(systemPrompt) + EstimateTokens(userPrompt)
			return Render{SystemPrompt: systemPrompt, UserPrompt: userPrompt, TokensBefore: before, TokensAfter: after, Compacted: true}, nil
		}
	}

	for len(usr.Narrative) > 0 && !Fits(systemPrompt, userPrompt, budget) {
		usr.Narrative = usr.Narrative[1:]
		userPrompt = AssembleUserPrompt(usr)
	}

	after := EstimateTokens(systemPrompt) + EstimateTokens(userPrompt)
	return Render{SystemPrompt: systemPrompt, UserPrompt: userPrompt, TokensBefore: before, TokensAfter: after, Compacted: true}, nil
}

// digestExcerpts replaces compactable, oversized narrative entries with
// their digest/skeleton summary line (spec §4.4 compaction step 1).
func digestExcerpts(entries []NarrativeEntry) []NarrativeEntry {
	out := make([]NarrativeEntry, len(entries))
	copy(out, entries)
	for i, e := range out {
		if !e.Compactable || len(e.Text) <= digestExcerptThreshold {
			continue
		}
		out[i].Text = summaryLineFor(e.Text)
	}
	return out
}

func summaryLineFor(text string) string {
	var decoded any
	if err := json.Unmarshal([]byte(text), &decoded); err == nil {
		d := (digest.JSONDigestor{}).Digest(decoded, text)
		return d.SummaryLine()
	}
	d := (digest.TextDigestor{}).Digest(text)
	return d.SummaryLine()
}

// collapseOldest replaces the older half of the narrative (everything
// before the midpoint) with one synthesized summary entry, keeping the more
// recent half verbatim (spec §4.4 compaction step 2).
func collapseOldest(ctx context.Context, in UserPromptInputs, summarize Summarizer) (UserPromptInputs, error) {
	if len(in.Narrative) < 2 {
		return in, nil
	}
	mid := len(in.Narrative) / 2
	older, recent := in.Narrative[:mid], in.Narrative[mid:]

	summary, err := summarize(ctx, older)
	if err != nil {
		return in, err
	}

	in.PriorSummary = summary
	in.Narrative = recent
	return in, nil
}
