package main

import (
	"context"
	"fmt"

	"github.com/gobii-run/agentcore/config"
	"github.com/gobii-run/agentcore/expiration"
	"github.com/gobii-run/agentcore/store/postgres"
)

// SoftExpireAgentsCmd runs one pass of the hourly soft-expiration sweep
// (spec §4.8, spec §6 "soft_expire_agents"). --async is accepted for
// CLI-surface parity with the source command, which enqueues the sweep
// onto a task queue; this CLI always runs the sweep inline and reports its
// result before exiting; the flag changes nothing else.
type SoftExpireAgentsCmd struct {
	Async bool `help:"Accepted for parity with the source command; the sweep always runs inline here."`
}

func (c *SoftExpireAgentsCmd) Run(cfg *config.Config) error {
	ctx := context.Background()
	pool, err := openPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("soft_expire_agents: %w", err)
	}
	defer pool.Close()

	sweeper := &expiration.Sweeper{Agents: postgres.NewAgentStore(pool)}
	expired, err := sweeper.Sweep(ctx)
	if err != nil {
		return partialFailure("soft_expire_agents: %w", err)
	}

	fmt.Printf("soft_expire_agents: expired %d agent(s)\n", len(expired))
	for _, a := range expired {
		fmt.Printf("soft_expire_agents: %s sent_expiration_email=%t\n", a.ID, a.SentExpirationEmail)
	}
	return nil
}
