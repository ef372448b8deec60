package readcode

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/coderunner/agentcore/internal/turnstate"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func newFixture(t *testing.T) (dir string, session *turnstate.SessionState, turn *turnstate.TurnState) {
	t.Helper()
	dir = t.TempDir()
	return dir, turnstate.NewSessionState(), turnstate.NewTurnState()
}

func tenLineFile() string {
	var b strings.Builder
	for i := 1; i <= 10; i++ {
		b.WriteString("line")
		b.WriteString(strconv.Itoa(i))
		b.WriteByte('\n')
	}
	return b.String()
}

func TestHandleReadsFullFileByDefault(t *testing.T) {
	dir, session, turn := newFixture(t)
	writeTempFile(t, dir, "a.go", tenLineFile())
	tool := &Tool{WorkspaceRoot: dir}

	out, err := tool.Handle(`{"path":"a.go"}`, session, turn)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !strings.Contains(out, "path: a.go") {
		t.Errorf("output missing path header: %q", out)
	}
	if !strings.Contains(out, "lines 1-10:") {
		t.Errorf("output missing full-range label: %q", out)
	}
	if !strings.Contains(out, "line1\n") || !strings.Contains(out, "line10") {
		t.Errorf("output missing line content: %q", out)
	}
}

func TestHandleReportsEmptyFile(t *testing.T) {
	dir, session, turn := newFixture(t)
	writeTempFile(t, dir, "empty.go", "")
	tool := &Tool{WorkspaceRoot: dir}

	out, err := tool.Handle(`{"path":"empty.go"}`, session, turn)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !strings.Contains(out, "[notice] file is empty") {
		t.Errorf("output = %q", out)
	}
}

func TestHandleRejectsPathOutsideWorkspace(t *testing.T) {
	dir, session, turn := newFixture(t)
	tool := &Tool{WorkspaceRoot: dir}

	if _, err := tool.Handle(`{"path":"../etc/passwd"}`, session, turn); err == nil {
		t.Fatal("expected error for path escaping workspace")
	}
}

func TestHandleAppliesRequestedLineRange(t *testing.T) {
	dir, session, turn := newFixture(t)
	writeTempFile(t, dir, "a.go", tenLineFile())
	tool := &Tool{WorkspaceRoot: dir}

	out, err := tool.Handle(`{"path":"a.go","lines":[3,5]}`, session, turn)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !strings.Contains(out, "lines 3-5:") {
		t.Errorf("output = %q", out)
	}
	if strings.Contains(out, "line1\n") {
		t.Errorf("output should not include line 1: %q", out)
	}
}

func TestHandleSecondReadOfSameRangeReportsAlreadyServed(t *testing.T) {
	dir, session, turn := newFixture(t)
	writeTempFile(t, dir, "a.go", tenLineFile())
	tool := &Tool{WorkspaceRoot: dir}

	if _, err := tool.Handle(`{"path":"a.go","lines":[1,10]}`, session, turn); err != nil {
		t.Fatalf("first Handle: %v", err)
	}
	out, err := tool.Handle(`{"path":"a.go","lines":[1,10]}`, session, turn)
	if err != nil {
		t.Fatalf("second Handle: %v", err)
	}
	if !strings.Contains(out, "nothing new to show") {
		t.Errorf("output = %q", out)
	}
}

func TestHandlePartialOverlapNoticesTrimmedLines(t *testing.T) {
	dir, session, turn := newFixture(t)
	writeTempFile(t, dir, "a.go", tenLineFile())
	tool := &Tool{WorkspaceRoot: dir}

	if _, err := tool.Handle(`{"path":"a.go","lines":[1,5]}`, session, turn); err != nil {
		t.Fatalf("first Handle: %v", err)
	}
	out, err := tool.Handle(`{"path":"a.go","lines":[3,8]}`, session, turn)
	if err != nil {
		t.Fatalf("second Handle: %v", err)
	}
	if !strings.Contains(out, "trimmed") {
		t.Errorf("expected trimmed-overlap notice, got %q", out)
	}
	if !strings.Contains(out, "lines 6-8:") {
		t.Errorf("expected only the unserved tail, got %q", out)
	}
}

func TestHandleRejectsSymbolLookup(t *testing.T) {
	dir, session, turn := newFixture(t)
	writeTempFile(t, dir, "a.go", tenLineFile())
	tool := &Tool{WorkspaceRoot: dir}

	if _, err := tool.Handle(`{"path":"a.go","symbol":"Foo"}`, session, turn); err == nil {
		t.Fatal("expected error for symbol lookup")
	}
}

func TestHandleRejectsMissingFile(t *testing.T) {
	dir, session, turn := newFixture(t)
	tool := &Tool{WorkspaceRoot: dir}

	if _, err := tool.Handle(`{"path":"missing.go"}`, session, turn); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestHandleRejectsDirectoryPath(t *testing.T) {
	dir, session, turn := newFixture(t)
	if err := os.Mkdir(filepath.Join(dir, "subdir"), 0755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	tool := &Tool{WorkspaceRoot: dir}

	if _, err := tool.Handle(`{"path":"subdir"}`, session, turn); err == nil {
		t.Fatal("expected error for directory path")
	}
}

func TestHandleHonorsSmallTurnOutputBudget(t *testing.T) {
	dir, session, _ := newFixture(t)
	writeTempFile(t, dir, "a.go", tenLineFile())
	tinyTurn := turnstate.NewTurnStateWithBudget(8)
	tool := &Tool{WorkspaceRoot: dir}

	out, err := tool.Handle(`{"path":"a.go"}`, session, tinyTurn)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(out) > 8+len(turnstate.TurnOutputTruncationNotice) {
		t.Errorf("output exceeds turn budget plus notice allowance: %d bytes", len(out))
	}
}

func TestHandleSmallFileWithoutMaxBytesDefaultsToDefaultMaxBytes(t *testing.T) {
	dir, session, turn := newFixture(t)
	var b strings.Builder
	for i := 1; i <= 300; i++ {
		b.WriteString("0123456789012345678901234567\n") // 29 bytes/line, 8700 bytes total
	}
	content := b.String()
	if len(content) <= DefaultMaxBytes || len(content) > SmallFileMaxBytes {
		t.Fatalf("fixture size %d not between DefaultMaxBytes and SmallFileMaxBytes", len(content))
	}
	writeTempFile(t, dir, "a.go", content)
	tool := &Tool{WorkspaceRoot: dir}

	out, err := tool.Handle(`{"path":"a.go"}`, session, turn)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !strings.Contains(out, "truncated to 8192 byte(s)") {
		t.Errorf("expected truncation at DefaultMaxBytes (8192) for a small file with no max_bytes, got %q", out)
	}
}

func TestHandleRejectsZeroLineEndpoint(t *testing.T) {
	dir, session, turn := newFixture(t)
	writeTempFile(t, dir, "a.go", tenLineFile())
	tool := &Tool{WorkspaceRoot: dir}

	if _, err := tool.Handle(`{"path":"a.go","lines":[0,5]}`, session, turn); err == nil {
		t.Fatal("expected error for zero line endpoint")
	}
}
