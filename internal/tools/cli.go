package tools

import (
	"context"
	"encoding/json"

	"github.com/coderunner/agentcore/internal/readcode"
	"github.com/coderunner/agentcore/internal/turnstate"
)

// ReadCodeRunner adapts readcode.Tool to the Runner interface.
type ReadCodeRunner struct {
	Tool    *readcode.Tool
	Session *turnstate.SessionState
	Turn    *turnstate.TurnState
}

func NewReadCodeRunner(tool *readcode.Tool, session *turnstate.SessionState, turn *turnstate.TurnState) *ReadCodeRunner {
	return &ReadCodeRunner{Tool: tool, Session: session, Turn: turn}
}

func (rr *ReadCodeRunner) Run(ctx context.Context, tool string, params map[string]any) (*Result, error) {
	if tool != "read_code" {
		return &Result{Error: "unsupported tool: " + tool}, nil
	}

	argsJSON, err := json.Marshal(params)
	if err != nil {
		return &Result{Error: "failed to encode arguments: " + err.Error()}, nil
	}

	output, err := rr.Tool.Handle(string(argsJSON), rr.Session, rr.Turn)
	if err != nil {
		return &Result{Error: err.Error()}, nil
	}
	return &Result{Output: output}, nil
}

func (rr *ReadCodeRunner) SupportedTools() []string {
	return []string{"read_code"}
}
