// Package readcode implements the read-code tool: a line-range file reader
// that consults a session-scoped ledger so a model is never re-shown lines
// it has already been given, and that never exceeds a turn's output budget.
package readcode

import (
	"encoding/json"
	"fmt"

	"github.com/coderunner/agentcore/internal/coreerr"
	"github.com/coderunner/agentcore/internal/turnstate"
)

// Args is the wire shape of a read-code tool call.
type Args struct {
	Path     string  `json:"path"`
	Lines    *Lines  `json:"lines,omitempty"`
	Context  *uint32 `json:"context,omitempty"`
	MaxBytes *int    `json:"maxBytes,omitempty"`
	Symbol   *string `json:"symbol,omitempty"`
}

// Lines accepts any of the three shapes the tool schema allows: a bare
// [start, end] pair, an {start, end?} object, or a single-element list of
// pairs (multi-range requests are rejected — see tool_read_code.rs's
// LinesArg::Ranges arm).
type Lines struct {
	pair    *[2]int
	object  *linesObject
	ranges  *[][2]int
}

type linesObject struct {
	Start int  `json:"start"`
	End   *int `json:"end,omitempty"`
}

func (l *Lines) UnmarshalJSON(data []byte) error {
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return err
	}

	switch v := generic.(type) {
	case map[string]any:
		var obj linesObject
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		l.object = &obj
		return nil

	case []any:
		if isNumberPair(v) {
			var pair [2]int
			if err := json.Unmarshal(data, &pair); err != nil {
				return err
			}
			l.pair = &pair
			return nil
		}
		var ranges [][2]int
		if err := json.Unmarshal(data, &ranges); err != nil {
			return fmt.Errorf("lines must be a [start,end] pair, an object with start/end, or a list of pairs")
		}
		l.ranges = &ranges
		return nil

	default:
		return fmt.Errorf("lines must be a [start,end] pair, an object with start/end, or a list of pairs")
	}
}

// isNumberPair reports whether v is exactly two JSON numbers, i.e. the bare
// [start, end] form rather than a list of pairs.
func isNumberPair(v []any) bool {
	if len(v) != 2 {
		return false
	}
	for _, elem := range v {
		if _, ok := elem.(float64); !ok {
			return false
		}
	}
	return true
}

// ToRanges resolves a Lines value into the single (start, end) range the
// tool currently supports. Multiple ranges in one call are rejected, matching
// the reference implementation's "not supported yet" guard.
func (l *Lines) ToRanges() ([]turnstate.Range, error) {
	switch {
	case l == nil:
		return nil, nil
	case l.pair != nil:
		return []turnstate.Range{{Lo: l.pair[0], Hi: l.pair[1]}}, nil
	case l.object != nil:
		end := l.object.Start
		if l.object.End != nil {
			end = *l.object.End
		}
		return []turnstate.Range{{Lo: l.object.Start, Hi: end}}, nil
	case l.ranges != nil:
		rs := *l.ranges
		if len(rs) == 0 {
			return nil, coreerr.NewRespondToModel("lines must include at least one range")
		}
		if len(rs) > 1 {
			return nil, coreerr.NewRespondToModel(
				"multiple line ranges are not supported yet; provide a single [start, end] range")
		}
		return []turnstate.Range{{Lo: rs[0][0], Hi: rs[0][1]}}, nil
	default:
		return nil, nil
	}
}

// ParseArgs decodes and lightly validates a read-code tool call's raw JSON
// arguments.
func ParseArgs(raw string) (*Args, error) {
	var args Args
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, coreerr.NewRespondToModel("failed to parse function arguments: %v", err)
	}
	if isBlank(args.Path) {
		return nil, coreerr.NewRespondToModel("path must not be empty")
	}
	if args.Symbol != nil {
		return nil, coreerr.NewRespondToModel(
			"symbol lookups are not yet supported; request an explicit line range instead")
	}
	return &args, nil
}

func isBlank(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}
