package execcore

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/coderunner/agentcore/internal/coreerr"
	"github.com/coderunner/agentcore/internal/logger"
	"github.com/coderunner/agentcore/internal/sandbox"
	"golang.org/x/sync/errgroup"
)

const (
	sigKillCode         = 9
	timeoutCode         = 64
	exitCodeSignalBase  = 128 // conventional shell: 128 + signal
	execTimeoutExitCode = 124 // conventional timeout exit code
)

// TimeoutError is returned when the command ran past its timeout. Output
// is still populated (with whatever was captured before the kill) so the
// caller can surface a partial transcript alongside the failure.
type TimeoutError struct {
	Output *ExecResult
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("command timed out after %dms", e.Output.DurationMS)
}

// SignalError is returned when the child was terminated by a signal that
// isn't our own synthetic timeout/interrupt marker — i.e. something killed
// it out from under us.
type SignalError struct {
	Signal int
}

func (e *SignalError) Error() string {
	return fmt.Sprintf("command terminated by signal %d", e.Signal)
}

// SandboxDeniedError is returned when a sandboxed command's failure looks
// like the sandbox blocked it rather than the command failing on its own
// merits. See isLikelySandboxDenied for the heuristic.
type SandboxDeniedError struct {
	Output *ExecResult
}

func (e *SandboxDeniedError) Error() string {
	return fmt.Sprintf("sandbox likely denied the command (exit code %d)", e.Output.ExitCode)
}

// ExecSupervisor spawns one subprocess per Run call under the configured
// sandbox backend, races its completion against the call's timeout and the
// process's own interrupt signal, and classifies the outcome.
type ExecSupervisor struct {
	Kind           sandbox.Kind
	Policy         sandbox.Policy
	SandboxExePath string // required when Kind == sandbox.Linux
	Log            *logger.Logger

	// GenericMaxBytes/RipgrepMaxBytes override the package defaults
	// (GenericExecOutputMaxBytes/RipgrepExecOutputMaxBytes) when set from
	// CoreConfig; zero means "use the default".
	GenericMaxBytes int
	RipgrepMaxBytes int
	// DefaultTimeout overrides the package DefaultTimeout for calls that
	// don't set ExecParams.TimeoutMS; zero means "use the default".
	DefaultTimeout time.Duration
}

func (s *ExecSupervisor) outputLimit(command []string) OutputLimit {
	generic := s.GenericMaxBytes
	if generic == 0 {
		generic = GenericExecOutputMaxBytes
	}
	ripgrep := s.RipgrepMaxBytes
	if ripgrep == 0 {
		ripgrep = RipgrepExecOutputMaxBytes
	}
	return outputLimitForCommand(command, generic, ripgrep)
}

func (s *ExecSupervisor) timeoutFor(params ExecParams) time.Duration {
	if params.TimeoutMS != nil {
		return params.TimeoutDuration()
	}
	if s.DefaultTimeout > 0 {
		return s.DefaultTimeout
	}
	return params.TimeoutDuration()
}

// Run executes params.Command to completion (or timeout, or interrupt),
// capturing stdout/stderr/aggregated output up to the command-appropriate
// limit. sub, if non-nil, receives live delta events as output arrives.
func (s *ExecSupervisor) Run(ctx context.Context, params ExecParams, sub *Subscriber) (*ExecResult, error) {
	if len(params.Command) == 0 {
		return nil, coreerr.NewInvalidInput("exec: command must not be empty")
	}
	if s.Kind == sandbox.Linux && s.SandboxExePath == "" {
		return nil, coreerr.ErrSandboxExecutableNotProvided
	}

	limit := s.outputLimit(params.Command)
	timeout := s.timeoutFor(params)

	sb, err := sandbox.New(s.Kind, s.Policy, s.SandboxExePath)
	if err != nil {
		return nil, err
	}
	defer func() {
		if derr := sb.Destroy(); derr != nil {
			s.logf("exec: sandbox destroy failed: %v", derr)
		}
	}()

	env := buildEnvSlice(params.Env)
	cmd, err := sb.Exec(ctx, params.Command[0], params.Command[1:], params.Cwd, env)
	if err != nil {
		return nil, fmt.Errorf("exec: spawn: %w", err)
	}

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("exec: stdout pipe: %w", err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("exec: stderr pipe: %w", err)
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("exec: start: %w", err)
	}
	if err := sb.PostStart(cmd.Process.Pid); err != nil {
		s.logf("exec: post-start hook failed: %v", err)
	}

	agg := newAggregator(limit.AggregatedMaxBytes)
	budget := newDeltaBudget(MaxExecOutputDeltas)

	var group errgroup.Group
	var stdoutOut, stderrOut StreamOutput[[]byte]
	group.Go(func() error {
		stdoutOut = drainStream(stdoutPipe, streamCapperOptions{
			Kind: StreamStdout, Subscriber: sub, Budget: budget, Aggregator: agg, MaxBytes: limit.StreamMaxBytes,
		})
		return nil
	})
	group.Go(func() error {
		stderrOut = drainStream(stderrPipe, streamCapperOptions{
			Kind: StreamStderr, Subscriber: sub, Budget: budget, Aggregator: agg, MaxBytes: limit.StreamMaxBytes,
		})
		return nil
	})

	waitErr, timedOut, interrupted := raceWait(cmd, timeout)
	_ = group.Wait() // drain goroutines never return an error

	duration := time.Since(start)

	exitCode, sig, signaled := classifyExit(waitErr, timedOut, interrupted)
	if timedOut {
		exitCode = execTimeoutExitCode
	}

	result := &ExecResult{
		ExitCode:   exitCode,
		Signal:     sig,
		Stdout:     appendNoticeIfTruncated(FromUTF8Lossy(stdoutOut), limit.TruncationNotice),
		Stderr:     appendNoticeIfTruncated(FromUTF8Lossy(stderrOut), limit.TruncationNotice),
		Aggregated: appendNoticeIfTruncated(FromUTF8Lossy(agg.result()), limit.TruncationNotice),
		DurationMS: duration.Milliseconds(),
	}
	if stdoutOut.TruncatedAfterBytes || stderrOut.TruncatedAfterBytes {
		result.Aggregated.TruncatedAfterBytes = true
	}

	switch {
	case timedOut:
		result.Outcome = OutcomeTimedOut
		return result, &TimeoutError{Output: result}
	case signaled && !interrupted:
		result.Outcome = OutcomeSignaled
		return result, &SignalError{Signal: sig}
	}

	result.Outcome = OutcomeExited
	if exitCode != 0 && isLikelySandboxDenied(s.Kind, exitCode) {
		result.Outcome = OutcomeSandboxDenied
		return result, &SandboxDeniedError{Output: result}
	}
	return result, nil
}

// raceWait waits for cmd to exit, racing it against timeout and the
// process's own SIGINT/SIGTERM. On timeout or interrupt it kills the
// child; waitErr is the error cmd.Wait() returned (possibly nil).
func raceWait(cmd *exec.Cmd, timeout time.Duration) (waitErr error, timedOut, interrupted bool) {
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	var timeoutCh <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case waitErr = <-done:
		return waitErr, false, false
	case <-timeoutCh:
		_ = cmd.Process.Kill()
		<-done
		return nil, true, false
	case <-sigCh:
		_ = cmd.Process.Kill()
		<-done
		return nil, false, true
	}
}

// classifyExit turns a cmd.Wait() result into (exitCode, signal, signaled).
// A nil waitErr with timedOut/interrupted set means we killed the process
// ourselves; interrupted is reported as SIGKILL (9) as that's how we killed
// it, matching the conventional 128+signal shell exit-code scheme.
func classifyExit(waitErr error, timedOut, interrupted bool) (exitCode, sig int, signaled bool) {
	if interrupted {
		return exitCodeSignalBase + sigKillCode, sigKillCode, true
	}
	if timedOut {
		return exitCodeSignalBase + timeoutCode, 0, false
	}
	if waitErr == nil {
		return 0, 0, false
	}
	if exitErr, ok := waitErr.(*exec.ExitError); ok {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
			return exitCodeSignalBase + int(status.Signal()), int(status.Signal()), true
		}
		return exitErr.ExitCode(), 0, false
	}
	return -1, 0, false
}

// isLikelySandboxDenied applies the conservative heuristic the reference
// implementation uses: there's no fully deterministic way to tell whether
// a nonzero exit came from the sandbox blocking a syscall or from the
// command itself failing (a broken .bashrc can fail for reasons that have
// nothing to do with the sandbox). Exit code 127 ("command not found") is
// never attributed to the sandbox; everything else nonzero, when actually
// sandboxed, is treated as a possible denial.
func isLikelySandboxDenied(kind sandbox.Kind, exitCode int) bool {
	if kind == sandbox.None {
		return false
	}
	if exitCode == 127 {
		return false
	}
	return true
}

func appendNoticeIfTruncated(out StreamOutput[string], notice string) StreamOutput[string] {
	if !out.TruncatedAfterBytes {
		return out
	}
	if out.Text != "" && !strings.HasSuffix(out.Text, "\n") {
		out.Text += "\n"
	}
	out.Text += notice
	return out
}

func buildEnvSlice(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}

func (s *ExecSupervisor) logf(format string, args ...any) {
	if s.Log == nil {
		return
	}
	s.Log.Warnf(format, args...)
}
