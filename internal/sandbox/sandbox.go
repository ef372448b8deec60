// Package sandbox spawns tool-call subprocesses under OS-level isolation.
//
// Three backends are supported, selected by Kind: None (no isolation beyond
// cwd/env scoping), Mac (Apple Containers via the "container" CLI), and
// Linux (user/mount/pid namespaces plus a seccomp filter). There is no
// silent cross-backend fallback: if the requested Kind cannot be enforced
// on the current platform, New returns an error and the caller decides
// whether to run unsandboxed.
package sandbox

import (
	"context"
	"fmt"
	"os/exec"
	"time"
)

// Kind selects the isolation backend a command is executed under.
type Kind int

const (
	None Kind = iota
	Mac
	Linux
)

func (k Kind) String() string {
	switch k {
	case None:
		return "none"
	case Mac:
		return "mac"
	case Linux:
		return "linux"
	default:
		return "unknown"
	}
}

// Sandbox provides isolated execution of commands. A Sandbox is created
// once per exec call and destroyed after the call completes.
type Sandbox interface {
	// Exec builds (but does not start) the command to run inside the
	// sandbox. cwd and env (KEY=VALUE pairs), when non-empty, override the
	// backend's defaults. Callers are responsible for wiring
	// Stdout/Stderr/Stdin and calling Start/Wait themselves.
	Exec(ctx context.Context, name string, args []string, cwd string, env []string) (*exec.Cmd, error)
	// PostStart applies limits that can only be set once the process
	// exists (rlimits, cgroup membership). A no-op for backends that
	// enforce everything at Exec time.
	PostStart(pid int) error
	Destroy() error
}

// Mount describes a filesystem mount made available inside the sandbox.
type Mount struct {
	Source   string
	Target   string
	ReadOnly bool
}

// Policy holds the isolation parameters for one sandboxed command.
type Policy struct {
	Isolation Level
	Mounts    []Mount
	Deny      []string // paths to mask entirely (e.g. ~/.ssh)
	DenyWrite []string // paths to bind read-only
	Timeout   time.Duration
	CPULimit  time.Duration // RLIMIT_CPU (0 = not limited)
	MemLimit  uint64        // RLIMIT_AS in bytes (0 = not limited)
	MaxFDs    uint32        // RLIMIT_NOFILE (0 = not limited)

	// AllowedDomains is a domain allowlist for the Network isolation level.
	// No backend reads it: none of them starts a DomainProxy or routes the
	// command's traffic through one, so it does not restrict connections.
	AllowedDomains []string
}

// EnforcementError is returned when the requested Kind cannot be enforced
// on the running platform. There is no silent fallback to a weaker
// backend: the caller must retry with a different Kind or surface the
// error to the operator.
type EnforcementError struct {
	Kind     Kind
	Reason   string
	Platform string
}

func (e *EnforcementError) Error() string {
	msg := fmt.Sprintf("sandbox kind %s unavailable: %s", e.Kind, e.Reason)
	if e.Platform != "" {
		msg += ". " + e.Platform
	}
	return msg
}

// New creates a Sandbox for kind. sandboxExePath is only consulted for
// Kind == Linux, where it must name the re-exec helper binary that
// installs namespaces and the seccomp filter before running the command
// (see cmd/agentcore-linux-sandbox). Passing an empty path for Linux is a
// caller error, not something New silently works around.
func New(kind Kind, policy Policy, sandboxExePath string) (Sandbox, error) {
	switch kind {
	case None:
		return newNone(policy), nil
	case Mac:
		s, err := newApple(policy)
		if err != nil {
			return nil, &EnforcementError{Kind: kind, Reason: err.Error(), Platform: "macOS: requires Apple Containers (macOS 26+, 'container' CLI)"}
		}
		return s, nil
	case Linux:
		s, err := newLinux(policy, sandboxExePath)
		if err != nil {
			return nil, &EnforcementError{Kind: kind, Reason: err.Error(), Platform: "Linux: requires unprivileged user namespaces or CAP_SYS_ADMIN"}
		}
		return s, nil
	default:
		return nil, &EnforcementError{Kind: kind, Reason: "unknown sandbox kind"}
	}
}
