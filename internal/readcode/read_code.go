package readcode

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/coderunner/agentcore/internal/coreerr"
	"github.com/coderunner/agentcore/internal/turnstate"
)

const (
	// DefaultMaxLines is the line cap for files that don't qualify for the
	// small-file allowance.
	DefaultMaxLines = 160
	// DefaultMaxBytes is the byte cap for files that don't qualify for the
	// small-file allowance.
	DefaultMaxBytes = 8 * 1024
	// SmallFileMaxLines is the line cap granted to small files.
	SmallFileMaxLines = 400
	// SmallFileMaxBytes is both the file-size threshold for the small-file
	// allowance and the byte cap it grants.
	SmallFileMaxBytes = 16 * 1024
)

// ledger is satisfied by *turnstate.SessionState: the read-code tool
// consults and updates the session-scoped served-range index, not the
// per-turn one, so repeated reads across a turn boundary still dedupe.
type ledger interface {
	ComputeUnservedCodeRanges(path string, ranges []turnstate.Range) ([]turnstate.Range, bool)
	RecordServedCodeRanges(path string, ranges []turnstate.Range)
}

// outputBudget is satisfied by *turnstate.TurnState.
type outputBudget interface {
	ReserveToolOutput(desiredBytes, noticeLen int) turnstate.Decision
}

// Tool implements the read-code function call: a line-range file reader
// that resolves paths against a workspace root, applies context expansion
// and the session's served-range ledger, and caps output to both a
// per-call byte budget and the turn's aggregate output budget.
type Tool struct {
	WorkspaceRoot string

	// DefaultMaxLines/SmallFileMaxLines override the package constants of
	// the same name when set from CoreConfig; zero means "use the default".
	DefaultMaxLines   int
	SmallFileMaxLines int
}

func (t *Tool) defaultMaxLines() int {
	if t.DefaultMaxLines > 0 {
		return t.DefaultMaxLines
	}
	return DefaultMaxLines
}

func (t *Tool) smallFileMaxLines() int {
	if t.SmallFileMaxLines > 0 {
		return t.SmallFileMaxLines
	}
	return SmallFileMaxLines
}

// Handle runs one read-code tool call. session supplies the served-range
// ledger; turn supplies the output budget. Errors are always either
// *coreerr.InvalidInputError or *coreerr.RespondToModelError — both are
// meant to be relayed back to the model as the failed call's result, never
// to abort the turn.
func (t *Tool) Handle(argsJSON string, session ledger, turn outputBudget) (string, error) {
	args, err := ParseArgs(argsJSON)
	if err != nil {
		return "", err
	}

	resolved, relPath, err := t.resolvePath(args.Path)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return "", coreerr.NewRespondToModel("failed to read metadata for %s: %v", args.Path, err)
	}
	if !info.Mode().IsRegular() {
		return "", coreerr.NewRespondToModel("%s is not a regular file", args.Path)
	}

	raw, err := os.ReadFile(resolved)
	if err != nil {
		return "", coreerr.NewRespondToModel("failed to read %s: %v", args.Path, err)
	}
	if len(raw) == 0 {
		return fmt.Sprintf("path: %s\n[notice] file is empty", relPath), nil
	}

	lineSlices := splitInclusive(string(raw))
	lineCount := len(lineSlices)

	requestedRanges, err := args.Lines.ToRanges()
	if err != nil {
		return "", err
	}
	if len(requestedRanges) == 0 {
		n := lineCount
		if n < 1 {
			n = 1
		}
		requestedRanges = []turnstate.Range{{Lo: 1, Hi: n}}
	}

	if err := normalizeRanges(requestedRanges); err != nil {
		return "", err
	}

	context := 0
	if args.Context != nil {
		context = int(*args.Context)
	}
	contextualized := applyContext(requestedRanges, context, lineCount)
	if len(contextualized) == 0 {
		return "", coreerr.NewRespondToModel("requested lines are outside the file")
	}

	requestedLineTotal := rangesLineTotal(contextualized)

	smallFileAllowance := int(info.Size()) <= SmallFileMaxBytes && lineCount <= t.smallFileMaxLines()
	maxLines := t.defaultMaxLines()
	maxBytesCap := DefaultMaxBytes
	if smallFileAllowance {
		maxLines = t.smallFileMaxLines()
		maxBytesCap = SmallFileMaxBytes
	}

	requestedMaxBytes := DefaultMaxBytes
	if args.MaxBytes != nil {
		requestedMaxBytes = *args.MaxBytes
	}
	maxBytesLimit := requestedMaxBytes
	if maxBytesLimit > maxBytesCap {
		maxBytesLimit = maxBytesCap
	}

	uncoveredRanges, hadOverlap := session.ComputeUnservedCodeRanges(relPath, contextualized)
	if len(uncoveredRanges) == 0 {
		return fmt.Sprintf(
			"path: %s\n[notice] all requested lines were already provided earlier in this session; nothing new to show",
			relPath,
		), nil
	}

	uncoveredLineTotal := rangesLineTotal(uncoveredRanges)
	overlapLines := requestedLineTotal - uncoveredLineTotal
	if overlapLines < 0 {
		overlapLines = 0
	}

	lineLimitedRanges, truncatedByLines := enforceLineCap(uncoveredRanges, maxLines)
	if len(lineLimitedRanges) == 0 {
		return "", coreerr.NewRespondToModel(
			"requested slice exceeds the %d-line limit; narrow the range or request /relax", maxLines)
	}

	var notices []string
	if hadOverlap && overlapLines > 0 {
		notices = append(notices, fmt.Sprintf(
			"trimmed %d line(s) that were already served earlier in this session", overlapLines))
	}
	if truncatedByLines {
		notices = append(notices, fmt.Sprintf(
			"truncated to %d line(s); request /relax for a temporary increase", maxLines))
	}

	content, servedRanges, truncatedByBytes := buildContent(lineLimitedRanges, lineSlices, maxBytesLimit)
	if len(servedRanges) == 0 {
		return fmt.Sprintf(
			"path: %s\n[notice] byte budget exhausted before any new lines could be served; narrow the range or request /relax",
			relPath,
		), nil
	}

	if truncatedByBytes {
		notices = append(notices, fmt.Sprintf(
			"truncated to %d byte(s); request /relax for a temporary increase", maxBytesLimit))
	}

	var header strings.Builder
	header.WriteString("path: ")
	header.WriteString(relPath)
	header.WriteByte('\n')
	for _, n := range notices {
		header.WriteString("[notice] ")
		header.WriteString(n)
		header.WriteByte('\n')
	}

	output := header.String()
	if content != "" {
		if !strings.HasSuffix(output, "\n") {
			output += "\n"
		}
		output += "\n" + content
	}

	session.RecordServedCodeRanges(relPath, servedRanges)

	decision := turn.ReserveToolOutput(len(output), len(turnstate.TurnOutputTruncationNotice))
	if decision.Truncated {
		output = truncateToBytes(output, decision.AllowedContentBytes)
		notice := truncateToBytes(turnstate.TurnOutputTruncationNotice, decision.NoticeBytes)
		if notice != "" {
			if !strings.HasSuffix(output, "\n") {
				output += "\n"
			}
			output += notice
		}
	}

	return output, nil
}

// resolvePath resolves path against the workspace root and rejects escapes.
// The containment check is a raw string prefix test on the cleaned path,
// matching tool_read_code.rs's validate_within_workspace exactly rather than
// a separator-aware "is descendant of" check — see DESIGN.md.
func (t *Tool) resolvePath(path string) (resolved, relPath string, err error) {
	root := t.WorkspaceRoot
	if root == "" {
		root, err = os.Getwd()
		if err != nil {
			return "", "", coreerr.NewRespondToModel("failed to resolve workspace root: %v", err)
		}
	}

	joined := path
	if !filepath.IsAbs(joined) {
		joined = filepath.Join(root, joined)
	}
	joined = filepath.Clean(joined)
	root = filepath.Clean(root)

	if !strings.HasPrefix(joined, root) {
		return "", "", coreerr.NewRespondToModel("paths outside the workspace are not allowed")
	}

	rel, err := filepath.Rel(root, joined)
	if err != nil {
		rel = joined
	}
	return joined, rel, nil
}

// splitInclusive splits s into lines, each retaining its trailing '\n'
// (the final line keeps none if the file doesn't end with one).
func splitInclusive(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i+1])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}
