// Command agentcore-cli is the administrative CLI (spec §6): the five
// operator commands that, in the source system, run as Django management
// commands (prune_prompt_archives, run_evals, soft_expire_agents,
// sync_schedules, create_initial_superuser). Each is a kong subcommand
// sharing the process Config; each command that needs Postgres opens and
// closes its own pool.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/gobii-run/agentcore/config"
)

// CLI is the top-level kong command tree. Config is loaded once in main
// before kong.Parse and threaded to every subcommand's Run method, the same
// shape hector's CLI struct uses for its shared --config/--log-* fields.
type CLI struct {
	PruneArchives          PrunePromptArchivesCmd    `cmd:"" name:"prune_prompt_archives" help:"Delete prompt archive rows (and unreferenced blobs) rendered before a retention cutoff."`
	RunEvals               RunEvalsCmd               `cmd:"" name:"run_evals" help:"Run eval suites against an agent and report pass/fail."`
	SoftExpireAgents       SoftExpireAgentsCmd       `cmd:"" name:"soft_expire_agents" help:"Soft-expire inactive scheduled agents past their inactivity threshold."`
	SyncSchedules          SyncSchedulesCmd          `cmd:"" name:"sync_schedules" help:"Validate every active agent's cron schedule against the scheduler backend."`
	CreateInitialSuperuser CreateInitialSuperuserCmd `cmd:"" name:"create_initial_superuser" help:"Seed default per-plan credit configuration overrides, idempotently."`
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "agentcore-cli:", err)
		return 2
	}

	cli := CLI{}
	parser, err := kong.New(&cli,
		kong.Name("agentcore-cli"),
		kong.Description("Administrative commands for the agent core (spec §6)."),
		kong.UsageOnError(),
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, "agentcore-cli:", err)
		return 2
	}

	kctx, err := parser.Parse(args)
	if err != nil {
		parser.Errorf("%s", err)
		return 2
	}

	return exitCode(kctx.Run(cfg))
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		fmt.Fprintln(os.Stderr, cmdErr.Error())
		return cmdErr.Code
	}
	fmt.Fprintln(os.Stderr, err)
	return 1
}
