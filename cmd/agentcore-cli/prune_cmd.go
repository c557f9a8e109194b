package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gobii-run/agentcore/config"
)

// PrunePromptArchivesCmd deletes PromptArchive rows (and, once
// unreferenced, their blob bodies) rendered before a retention cutoff
// (spec §4.4 "Archival"). ChunkSize is accepted for CLI-surface parity with
// the original batched command; archive.Store.PruneOlderThan issues one
// pass over the candidate set rather than chunking, so the flag is parsed
// but unused here.
type PrunePromptArchivesCmd struct {
	Days      int  `help:"Age in days beyond which archives are eligible for deletion." default:"30"`
	DryRun    bool `name:"dry-run" help:"Report what would be deleted without deleting."`
	ChunkSize int  `name:"chunk-size" help:"Accepted for parity with the source command; unused." default:"500"`
}

func (c *PrunePromptArchivesCmd) Run(cfg *config.Config) error {
	if c.Days < 0 {
		return invalidArgument("prune_prompt_archives: --days must be >= 0, got %d", c.Days)
	}
	if c.ChunkSize <= 0 {
		return invalidArgument("prune_prompt_archives: --chunk-size must be > 0, got %d", c.ChunkSize)
	}

	ctx := context.Background()
	store, closeStore, err := openArchiveStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("prune_prompt_archives: %w", err)
	}
	defer closeStore(ctx)

	cutoff := time.Now().UTC().AddDate(0, 0, -c.Days)
	found, deleted, err := store.PruneOlderThan(ctx, cutoff, c.DryRun)
	if err != nil {
		return partialFailure("prune_prompt_archives: %w", err)
	}

	fmt.Printf("prune_prompt_archives: cutoff=%s dry_run=%t found=%d deleted=%d\n",
		cutoff.Format(time.RFC3339), c.DryRun, found, deleted)
	return nil
}
