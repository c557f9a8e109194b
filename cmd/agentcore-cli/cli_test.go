package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gobii-run/agentcore/evalrun"
)

func TestExitCode(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil is success", nil, 0},
		{"partial failure maps to 1", partialFailure("%d of %d failed", 2, 5), 1},
		{"invalid argument maps to 2", invalidArgument("bad --days %d", -1), 2},
		{"wrapped command error still unwraps", errWrap(partialFailure("inner")), 1},
		{"untyped error defaults to 1", errors.New("boom"), 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := exitCode(tc.err); got != tc.want {
				t.Fatalf("exitCode(%v) = %d, want %d", tc.err, got, tc.want)
			}
		})
	}
}

func errWrap(err error) error {
	return fmt.Errorf("context: %w", err)
}

func TestRunEvalsCmd_ReuseAgentRequiresAgentID(t *testing.T) {
	cmd := &RunEvalsCmd{
		Suite:         []string{"core"},
		AgentStrategy: string(evalrun.AgentStrategyReuseAgent),
	}

	err := cmd.Run(nil)
	if err == nil {
		t.Fatal("expected an error when --agent-strategy reuse_agent is given without --agent-id")
	}
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("expected a *CommandError, got %T: %v", err, err)
	}
	if cmdErr.Code != 2 {
		t.Fatalf("expected exit code 2 (invalid argument), got %d", cmdErr.Code)
	}
}

func TestRunEvalsCmd_OfficialOverridesRunType(t *testing.T) {
	cmd := &RunEvalsCmd{
		Suite:         []string{"core"},
		AgentID:       "agent-1",
		AgentStrategy: string(evalrun.AgentStrategyReuseAgent),
		RunType:       string(evalrun.RunTypeOneOff),
		Official:      true,
	}

	runType := evalrun.RunType(cmd.RunType)
	if cmd.Official {
		runType = evalrun.RunTypeOfficial
	}
	if runType != evalrun.RunTypeOfficial {
		t.Fatalf("expected --official to force RunTypeOfficial, got %v", runType)
	}
}
