package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/gobii-run/agentcore/internal/telemetry"
)

// Prune runs the retention job for a given retention window and logs the
// outcome as structured fields (dry_run, found, deleted, cutoff,
// retention_days). The agentcore-cli prune_prompt_archives command does not
// go through Prune; it calls Store.PruneOlderThan directly. A negative
// retentionDays is treated as "disabled"
// and the prune is skipped entirely, matching the original command's guard
// against a misconfigured negative retention window.
func Prune(ctx context.Context, store Store, log telemetry.Logger, now time.Time, retentionDays int, dryRun bool) (found, deleted int, err error) {
	if retentionDays < 0 {
		log.Warn(ctx, "prompt archive retention is negative, skipping prune", "retention_days", retentionDays)
		return 0, 0, nil
	}

	cutoff := now.Add(-time.Duration(retentionDays) * 24 * time.Hour)
	found, deleted, err = store.PruneOlderThan(ctx, cutoff, dryRun)
	if err != nil {
		log.Error(ctx, "prompt archive prune failed", "error", err, "cutoff", cutoff)
		return found, deleted, err
	}

	log.Info(ctx, "prompt archive prune finished",
		"dry_run", dryRun,
		"found", found,
		"deleted", deleted,
		"cutoff", cutoff,
		"retention_days", retentionDays,
	)
	return found, deleted, nil
}

// Summary renders a human-readable one-line summary of a prune, worded
// differently for a dry run and a committed run. The agentcore-cli
// prune_prompt_archives command prints its own key=value line and does not
// use Summary.
func Summary(found, deleted, retentionDays int, dryRun bool) string {
	if dryRun {
		return fmt.Sprintf("[DRY RUN] Prompt archive prune completed. %d archives older than %d day(s) identified.", found, retentionDays)
	}
	return fmt.Sprintf("Prompt archive prune completed. %d archives inspected, %d deleted.", found, deleted)
}
