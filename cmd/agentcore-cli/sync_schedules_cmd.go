package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gobii-run/agentcore/config"
	"github.com/gobii-run/agentcore/expiration"
	"github.com/gobii-run/agentcore/store/postgres"
)

// SyncSchedulesCmd reconciles every ACTIVE agent's Schedule cron expression
// against the scheduler backend (spec §6 "sync_schedules"). This module
// keeps no separate scheduler-side table; reconciliation here means
// confirming every Schedule still parses and reporting its next fire time,
// so a corrupt expression is caught before a scheduled tick silently never
// fires.
type SyncSchedulesCmd struct{}

func (c *SyncSchedulesCmd) Run(cfg *config.Config) error {
	ctx := context.Background()
	pool, err := openPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("sync_schedules: %w", err)
	}
	defer pool.Close()

	agents, err := postgres.NewAgentStore(pool).ActiveScheduled(ctx)
	if err != nil {
		return fmt.Errorf("sync_schedules: list active scheduled agents: %w", err)
	}

	var scheduler expiration.Scheduler
	now := time.Now().UTC()
	invalid := 0
	for _, a := range agents {
		next, err := scheduler.Next(a.Schedule, now)
		if err != nil {
			invalid++
			fmt.Printf("sync_schedules: %s schedule %q invalid: %v\n", a.ID, a.Schedule, err)
			continue
		}
		fmt.Printf("sync_schedules: %s schedule %q next=%s\n", a.ID, a.Schedule, next.Format(time.RFC3339))
	}

	fmt.Printf("sync_schedules: checked %d agent(s), %d invalid\n", len(agents), invalid)
	if invalid > 0 {
		return partialFailure("sync_schedules: %d agent(s) have an unparseable schedule", invalid)
	}
	return nil
}
