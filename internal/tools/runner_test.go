package tools

import (
	"context"
	"testing"
)

type stubRunner struct {
	tools []string
}

func (s *stubRunner) Run(ctx context.Context, tool string, params map[string]any) (*Result, error) {
	return &Result{Output: "ran " + tool}, nil
}

func (s *stubRunner) SupportedTools() []string {
	return s.tools
}

func TestMultiRunnerDispatchesByName(t *testing.T) {
	mr := NewMultiRunner()
	mr.RegisterRunner("exec", &stubRunner{tools: []string{"exec"}})
	mr.RegisterRunner("read_code", &stubRunner{tools: []string{"read_code"}})

	res, err := mr.Run(context.Background(), "exec", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Output != "ran exec" {
		t.Errorf("Output = %q", res.Output)
	}
}

func TestMultiRunnerUnsupportedTool(t *testing.T) {
	mr := NewMultiRunner()
	res, err := mr.Run(context.Background(), "nope", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Error == "" {
		t.Errorf("expected an error result for unsupported tool")
	}
}

func TestMultiRunnerSupportedTools(t *testing.T) {
	mr := NewMultiRunner()
	mr.RegisterRunner("exec", &stubRunner{tools: []string{"exec"}})
	mr.RegisterRunner("read_code", &stubRunner{tools: []string{"read_code"}})

	got := map[string]bool{}
	for _, name := range mr.SupportedTools() {
		got[name] = true
	}
	if !got["exec"] || !got["read_code"] {
		t.Errorf("SupportedTools() = %v", mr.SupportedTools())
	}
}
