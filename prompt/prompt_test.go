package prompt_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gobii-run/agentcore/archive"
	"github.com/gobii-run/agentcore/internal/clock"
	"github.com/gobii-run/agentcore/prompt"
)

func TestTokenBudgetSubtractsReservedReply(t *testing.T) {
	t.Parallel()
	require.Equal(t, 900, prompt.TokenBudget(1000, 100))
	require.Equal(t, -50, prompt.TokenBudget(50, 100))
}

func TestEstimateTokensRoundsUp(t *testing.T) {
	t.Parallel()
	require.Equal(t, 0, prompt.EstimateTokens(""))
	require.Equal(t, 1, prompt.EstimateTokens("abc"))
	require.Equal(t, 1, prompt.EstimateTokens("abcd"))
	require.Equal(t, 2, prompt.EstimateTokens("abcde"))
}

func TestRenderFilesystemListingOrdersByRecencyAndCaps(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	files := make([]prompt.FileEntry, 0, 35)
	for i := 0; i < 35; i++ {
		files = append(files, prompt.FileEntry{
			Path:      "file" + string(rune('a'+i%26)),
			SizeBytes: 100,
			MimeType:  "text/plain",
			UpdatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}

	out := prompt.RenderFilesystemListing(files)
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 30)
	require.Contains(t, lines[0], "file"+string(rune('a'+34%26)))
}

func TestRenderFilesystemListingEmpty(t *testing.T) {
	t.Parallel()
	require.Equal(t, "No files available in the agent filesystem.", prompt.RenderFilesystemListing(nil))
}

func TestAssembleSystemPromptIncludesCharterAndTools(t *testing.T) {
	t.Parallel()

	out := prompt.AssembleSystemPrompt(prompt.SystemPromptInputs{
		Identity: prompt.Identity{Charter: "Be helpful."},
		Tools:    []prompt.ToolSchema{{Name: "send_email", Description: "Sends email.", ParamsJSON: "{}"}},
	})
	require.Contains(t, out, "Be helpful.")
	require.Contains(t, out, "send_email")
}

func TestAssembleUserPromptOrdersSummaryBeforeNarrative(t *testing.T) {
	t.Parallel()

	out := prompt.AssembleUserPrompt(prompt.UserPromptInputs{
		PriorSummary: "earlier events happened",
		Narrative: []prompt.NarrativeEntry{
			{Speaker: "user", Text: "hello", Timestamp: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)},
		},
	})
	require.True(t, strings.Index(out, "earlier events happened") < strings.Index(out, "hello"))
}

func TestAssembleFitsWithoutCompactionWhenSmall(t *testing.T) {
	t.Parallel()

	sys := prompt.SystemPromptInputs{Identity: prompt.Identity{Charter: "short"}}
	usr := prompt.UserPromptInputs{Narrative: []prompt.NarrativeEntry{{Speaker: "user", Text: "hi", Timestamp: time.Now()}}}

	r, err := prompt.Assemble(context.Background(), sys, usr, 100_000, nil)
	require.NoError(t, err)
	require.False(t, r.Compacted)
	require.Equal(t, r.TokensBefore, r.TokensAfter)
}

func TestAssembleDigestsOversizedCompactableEntries(t *testing.T) {
	t.Parallel()

	big := strings.Repeat("x", 2000)
	sys := prompt.SystemPromptInputs{Identity: prompt.Identity{Charter: "c"}}
	usr := prompt.UserPromptInputs{Narrative: []prompt.NarrativeEntry{
		{Speaker: "tool", Text: big, Timestamp: time.Now(), Compactable: true},
	}}

	budget := prompt.EstimateTokens(big) // force compaction: big alone already exceeds a budget this tight
	r, err := prompt.Assemble(context.Background(), sys, usr, budget-10, nil)
	require.NoError(t, err)
	require.True(t, r.Compacted)
	require.Less(t, len(r.UserPrompt), len(big))
}

func TestAssembleCollapsesOldestViaSummarizerBeforeDropping(t *testing.T) {
	t.Parallel()

	var narrative []prompt.NarrativeEntry
	for i := 0; i < 10; i++ {
		narrative = append(narrative, prompt.NarrativeEntry{
			Speaker:   "user",
			Text:      strings.Repeat("word ", 20),
			Timestamp: time.Now(),
		})
	}
	sys := prompt.SystemPromptInputs{Identity: prompt.Identity{Charter: "c"}}
	usr := prompt.UserPromptInputs{Narrative: narrative}

	full := prompt.AssembleUserPrompt(usr)
	tightBudget := prompt.EstimateTokens(full) - 5

	called := false
	summarizer := func(ctx context.Context, entries []prompt.NarrativeEntry) (string, error) {
		called = true
		return "summary of older entries", nil
	}

	r, err := prompt.Assemble(context.Background(), sys, usr, tightBudget, summarizer)
	require.NoError(t, err)
	require.True(t, called)
	require.True(t, r.Compacted)
	require.Contains(t, r.UserPrompt, "summary of older entries")
}

func TestAssembleDropsOldestWhenStillOverBudget(t *testing.T) {
	t.Parallel()

	var narrative []prompt.NarrativeEntry
	for i := 0; i < 5; i++ {
		narrative = append(narrative, prompt.NarrativeEntry{
			Speaker:   "user",
			Text:      strings.Repeat("z", 50),
			Timestamp: time.Now(),
		})
	}
	sys := prompt.SystemPromptInputs{Identity: prompt.Identity{Charter: "c"}}
	usr := prompt.UserPromptInputs{Narrative: narrative}

	r, err := prompt.Assemble(context.Background(), sys, usr, 5, nil)
	require.NoError(t, err)
	require.True(t, r.Compacted)
	require.LessOrEqual(t, r.TokensAfter, r.TokensBefore)
}

func TestArchiveRenderWritesToStore(t *testing.T) {
	t.Parallel()

	store := archive.NewMemoryStore(clock.Real)
	r := prompt.Render{SystemPrompt: "sys", UserPrompt: "usr", TokensBefore: 10, TokensAfter: 8}

	row, err := prompt.ArchiveRender(context.Background(), store, "agt_1", "stp_1", r)
	require.NoError(t, err)
	require.Equal(t, "agt_1", row.AgentID)
	require.Equal(t, 2, row.TokensSaved)

	system, user, err := store.Load(context.Background(), row.ID)
	require.NoError(t, err)
	require.Equal(t, "sys", system)
	require.Equal(t, "usr", user)
}
