package archive_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gobii-run/agentcore/archive"
	"github.com/gobii-run/agentcore/internal/clock"
	"github.com/gobii-run/agentcore/internal/telemetry"
)

func TestContentHashIsDeterministicAndOrderSensitive(t *testing.T) {
	t.Parallel()

	h1 := archive.ContentHash("system", "user")
	h2 := archive.ContentHash("system", "user")
	require.Equal(t, h1, h2)

	h3 := archive.ContentHash("user", "system")
	require.NotEqual(t, h1, h3)
}

func TestStorageKeyBucketsByHashPrefix(t *testing.T) {
	t.Parallel()

	hash := archive.ContentHash("a", "b")
	key := archive.StorageKey(hash)
	require.Contains(t, key, "prompts/"+hash[:2]+"/"+hash)
}

func TestArchiveSharesBlobForIdenticalPromptText(t *testing.T) {
	t.Parallel()

	store := archive.NewMemoryStore(clock.Real)
	ctx := context.Background()

	r1, err := store.Archive(ctx, archive.Request{
		AgentID: "agt_1", StepID: "stp_1",
		SystemPrompt: "system", UserPrompt: "user A",
		TokensBefore: 100, TokensAfter: 80,
	})
	require.NoError(t, err)
	require.Equal(t, 20, r1.TokensSaved)

	r2, err := store.Archive(ctx, archive.Request{
		AgentID: "agt_1", StepID: "stp_2",
		SystemPrompt: "system", UserPrompt: "user A",
		TokensBefore: 100, TokensAfter: 80,
	})
	require.NoError(t, err)

	require.NotEqual(t, r1.ID, r2.ID, "distinct steps get distinct rows")
	require.Equal(t, r1.ContentHash, r2.ContentHash, "identical prompt text shares one blob")
	require.Equal(t, r1.StorageKey, r2.StorageKey)
}

func TestLoadRetrievesArchivedPromptText(t *testing.T) {
	t.Parallel()

	store := archive.NewMemoryStore(clock.Real)
	ctx := context.Background()

	row, err := store.Archive(ctx, archive.Request{
		AgentID: "agt_1", StepID: "stp_1",
		SystemPrompt: "sys text", UserPrompt: "usr text",
	})
	require.NoError(t, err)

	system, user, err := store.Load(ctx, row.ID)
	require.NoError(t, err)
	require.Equal(t, "sys text", system)
	require.Equal(t, "usr text", user)
}

func TestLoadUnknownIDReturnsNotFound(t *testing.T) {
	t.Parallel()

	store := archive.NewMemoryStore(clock.Real)
	_, _, err := store.Load(context.Background(), "arc_missing")
	require.ErrorIs(t, err, archive.ErrNotFound)
}

func TestPruneOlderThanDeletesOnlyStaleRows(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fc := &clock.Fixed{At: base}
	store := archive.NewMemoryStore(fc)
	ctx := context.Background()

	fc.At = base.AddDate(0, 0, -30)
	old, err := store.Archive(ctx, archive.Request{AgentID: "agt_1", StepID: "stp_old", SystemPrompt: "s", UserPrompt: "u1"})
	require.NoError(t, err)

	fc.At = base.AddDate(0, 0, -5)
	recent, err := store.Archive(ctx, archive.Request{AgentID: "agt_1", StepID: "stp_recent", SystemPrompt: "s", UserPrompt: "u2"})
	require.NoError(t, err)

	cutoff := base.AddDate(0, 0, -14)
	found, deleted, err := store.PruneOlderThan(ctx, cutoff, false)
	require.NoError(t, err)
	require.Equal(t, 1, found)
	require.Equal(t, 1, deleted)

	_, _, err = store.Load(ctx, old.ID)
	require.ErrorIs(t, err, archive.ErrNotFound)

	_, _, err = store.Load(ctx, recent.ID)
	require.NoError(t, err)
}

func TestPruneOlderThanDryRunDeletesNothing(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fc := &clock.Fixed{At: base.AddDate(0, 0, -30)}
	store := archive.NewMemoryStore(fc)
	ctx := context.Background()

	row, err := store.Archive(ctx, archive.Request{AgentID: "agt_1", StepID: "stp_1", SystemPrompt: "s", UserPrompt: "u"})
	require.NoError(t, err)

	found, deleted, err := store.PruneOlderThan(ctx, base, true)
	require.NoError(t, err)
	require.Equal(t, 1, found)
	require.Equal(t, 0, deleted)

	_, _, err = store.Load(ctx, row.ID)
	require.NoError(t, err)
}

func TestPruneReleasesSharedBlobOnlyAfterLastReference(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fc := &clock.Fixed{At: base.AddDate(0, 0, -30)}
	store := archive.NewMemoryStore(fc)
	ctx := context.Background()

	a, err := store.Archive(ctx, archive.Request{AgentID: "agt_1", StepID: "stp_a", SystemPrompt: "s", UserPrompt: "shared"})
	require.NoError(t, err)
	fc.At = base.AddDate(0, 0, -5)
	b, err := store.Archive(ctx, archive.Request{AgentID: "agt_1", StepID: "stp_b", SystemPrompt: "s", UserPrompt: "shared"})
	require.NoError(t, err)
	require.Equal(t, a.ContentHash, b.ContentHash)

	found, deleted, err := store.PruneOlderThan(ctx, base.AddDate(0, 0, -14), false)
	require.NoError(t, err)
	require.Equal(t, 1, found)
	require.Equal(t, 1, deleted)

	_, _, err = store.Load(ctx, a.ID)
	require.ErrorIs(t, err, archive.ErrNotFound)
	_, _, err = store.Load(ctx, b.ID)
	require.NoError(t, err, "the remaining row still references the shared blob")
}

func TestPruneSkipsWhenRetentionIsNegative(t *testing.T) {
	t.Parallel()

	store := archive.NewMemoryStore(clock.Real)
	log := telemetry.NewNoopLogger()

	found, deleted, err := archive.Prune(context.Background(), store, log, time.Now(), -1, false)
	require.NoError(t, err)
	require.Equal(t, 0, found)
	require.Equal(t, 0, deleted)
}

func TestPruneRunsAgainstConfiguredRetentionWindow(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	fc := &clock.Fixed{At: now.AddDate(0, 0, -40)}
	store := archive.NewMemoryStore(fc)
	ctx := context.Background()
	log := telemetry.NewNoopLogger()

	_, err := store.Archive(ctx, archive.Request{AgentID: "agt_1", StepID: "stp_1", SystemPrompt: "s", UserPrompt: "u"})
	require.NoError(t, err)

	found, deleted, err := archive.Prune(ctx, store, log, now, 30, false)
	require.NoError(t, err)
	require.Equal(t, 1, found)
	require.Equal(t, 1, deleted)
}

func TestSummaryFormatsDryRunAndCommitted(t *testing.T) {
	t.Parallel()

	require.Contains(t, archive.Summary(3, 0, 14, true), "[DRY RUN]")
	require.Contains(t, archive.Summary(3, 3, 14, false), "3 archives inspected, 3 deleted")
}
