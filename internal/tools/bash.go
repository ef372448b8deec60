package tools

import (
	"context"

	"github.com/coderunner/agentcore/internal/execcore"
)

// ExecRunner adapts execcore.ExecSupervisor to the Runner interface so it
// can sit behind a MultiRunner alongside ReadCodeRunner.
type ExecRunner struct {
	Supervisor *execcore.ExecSupervisor
}

func NewExecRunner(supervisor *execcore.ExecSupervisor) *ExecRunner {
	return &ExecRunner{Supervisor: supervisor}
}

func (er *ExecRunner) Run(ctx context.Context, tool string, params map[string]any) (*Result, error) {
	if tool != "exec" {
		return &Result{Error: "unsupported tool: " + tool}, nil
	}

	command, ok := paramsStringSlice(params["command"])
	if !ok || len(command) == 0 {
		return &Result{Error: "missing or invalid 'command' parameter"}, nil
	}

	cwd, _ := params["cwd"].(string)

	res, err := er.Supervisor.Run(ctx, execcore.ExecParams{Command: command, Cwd: cwd}, nil)
	if res == nil {
		return &Result{Error: err.Error()}, nil
	}
	result := &Result{Output: res.Aggregated.Text}
	if err != nil {
		result.Error = err.Error()
	}
	return result, nil
}

func (er *ExecRunner) SupportedTools() []string {
	return []string{"exec"}
}

func paramsStringSlice(v any) ([]string, bool) {
	switch val := v.(type) {
	case []string:
		return val, true
	case []any:
		out := make([]string, 0, len(val))
		for _, elem := range val {
			s, ok := elem.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	case string:
		return []string{"bash", "-lc", val}, true
	default:
		return nil, false
	}
}
