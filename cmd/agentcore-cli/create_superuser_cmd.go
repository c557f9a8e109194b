package main

import (
	"context"
	"fmt"

	"github.com/gobii-run/agentcore/config"
	"github.com/gobii-run/agentcore/credit"
	"github.com/gobii-run/agentcore/store/postgres"
)

// CreateInitialSuperuserCmd is a scoped-down reinterpretation of the source
// command of the same name. The source creates a Django auth superuser
// account; this module has no User/auth model at all (spec's Non-goals
// exclude OAuth/credential storage and any human-facing console), so there
// is no equivalent entity to create. What this module does carry is the
// per-plan DailyCreditConfig override table (store/postgres's
// CreditConfigStore), which starts empty and falls back to credit.Resolve's
// built-in defaults until an operator seeds it. Reusing this command's slot
// to seed that table idempotently is the closest real, useful analogue:
// both commands exist to give a freshly-migrated deployment its first
// piece of operator-controlled configuration before anyone can use it.
type CreateInitialSuperuserCmd struct{}

func (c *CreateInitialSuperuserCmd) Run(cfg *config.Config) error {
	ctx := context.Background()
	pool, err := openPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("create_initial_superuser: %w", err)
	}
	defer pool.Close()

	store := postgres.NewCreditConfigStore(pool)
	seeded := 0
	for _, plan := range []credit.PlanKey{credit.PlanFree, credit.PlanStandard, credit.PlanPro} {
		exists, err := store.Exists(ctx, plan)
		if err != nil {
			return fmt.Errorf("create_initial_superuser: check plan %q: %w", plan, err)
		}
		if exists {
			continue
		}
		if err := store.Upsert(ctx, credit.Resolve(plan)); err != nil {
			return fmt.Errorf("create_initial_superuser: seed plan %q: %w", plan, err)
		}
		seeded++
	}

	fmt.Printf("create_initial_superuser: seeded %d default plan override(s)\n", seeded)
	return nil
}
