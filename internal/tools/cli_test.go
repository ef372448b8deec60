package tools

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/coderunner/agentcore/internal/readcode"
	"github.com/coderunner/agentcore/internal/turnstate"
)

func TestReadCodeRunnerRunsHandle(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.go")
	if err := os.WriteFile(path, []byte("package main\n\nfunc main() {}\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	runner := NewReadCodeRunner(
		&readcode.Tool{WorkspaceRoot: dir},
		turnstate.NewSessionState(),
		turnstate.NewTurnState(),
	)

	res, err := runner.Run(context.Background(), "read_code", map[string]any{"path": "file.go"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Error != "" {
		t.Fatalf("unexpected error result: %s", res.Error)
	}
	if res.Output == "" {
		t.Errorf("expected non-empty output")
	}
}

func TestReadCodeRunnerRejectsUnsupportedTool(t *testing.T) {
	runner := NewReadCodeRunner(&readcode.Tool{}, turnstate.NewSessionState(), turnstate.NewTurnState())
	res, err := runner.Run(context.Background(), "edit_file", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Error == "" {
		t.Errorf("expected an error result for the wrong tool name")
	}
}
