package tools

import (
	"context"
	"testing"

	"github.com/coderunner/agentcore/internal/execcore"
	"github.com/coderunner/agentcore/internal/sandbox"
)

func TestExecRunnerRunsPlainCommand(t *testing.T) {
	runner := NewExecRunner(&execcore.ExecSupervisor{Kind: sandbox.None})

	res, err := runner.Run(context.Background(), "exec", map[string]any{
		"command": []any{"echo", "hello"},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Error != "" {
		t.Fatalf("unexpected error result: %s", res.Error)
	}
	if res.Output != "hello\n" {
		t.Errorf("Output = %q", res.Output)
	}
}

func TestExecRunnerRejectsUnsupportedTool(t *testing.T) {
	runner := NewExecRunner(&execcore.ExecSupervisor{Kind: sandbox.None})
	res, err := runner.Run(context.Background(), "bash", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Error == "" {
		t.Errorf("expected an error result for the wrong tool name")
	}
}

func TestExecRunnerRejectsMissingCommand(t *testing.T) {
	runner := NewExecRunner(&execcore.ExecSupervisor{Kind: sandbox.None})
	res, err := runner.Run(context.Background(), "exec", map[string]any{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Error == "" {
		t.Errorf("expected an error result for a missing command")
	}
}

func TestParamsStringSliceAcceptsStringScript(t *testing.T) {
	got, ok := paramsStringSlice("echo hi")
	if !ok {
		t.Fatalf("expected ok=true")
	}
	want := []string{"bash", "-lc", "echo hi"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
