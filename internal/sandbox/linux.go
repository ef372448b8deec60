//go:build linux

package sandbox

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"
)

// No default resource limits — only apply when explicitly configured.
// Interpreters need real virtual address space for JIT/heap, and
// interactive sessions shouldn't have a CPU time limit imposed by default.

// Dangerous syscalls to deny via seccomp once namespace setup is complete.
var deniedSyscalls = []uint32{
	unix.SYS_MOUNT,
	unix.SYS_UMOUNT2,
	unix.SYS_REBOOT,
	unix.SYS_SWAPON,
	unix.SYS_SWAPOFF,
	unix.SYS_KEXEC_LOAD,
	unix.SYS_INIT_MODULE,
	unix.SYS_FINIT_MODULE,
	unix.SYS_DELETE_MODULE,
	unix.SYS_PIVOT_ROOT,
	unix.SYS_PTRACE,
}

type linuxSandbox struct {
	policy     Policy
	tmpDir     string
	exePath    string
}

// newLinux tries to create a namespace+seccomp sandbox. exePath must name
// the re-exec helper binary (built from cmd/agentcore-linux-sandbox) that
// performs mount setup and seccomp installation as the namespace's root
// before dropping privileges and exec'ing the real command; an empty
// exePath is rejected so the caller cannot silently run without isolation.
func newLinux(policy Policy, exePath string) (Sandbox, error) {
	if exePath == "" {
		return nil, fmt.Errorf("linux sandbox: no sandbox executable provided")
	}
	if !hasNamespaceCapability() {
		return nil, fmt.Errorf("linux sandbox: need root, CAP_SYS_ADMIN, or unprivileged user namespaces")
	}

	dir, err := os.MkdirTemp("", "agentcore-sandbox-*")
	if err != nil {
		return nil, fmt.Errorf("create sandbox tmpdir: %w", err)
	}
	log.Printf("sandbox: linux namespace sandbox created tmpdir=%s isolation=%s", dir, policy.Isolation)
	return &linuxSandbox{policy: policy, tmpDir: dir, exePath: exePath}, nil
}

func hasNamespaceCapability() bool {
	if os.Geteuid() == 0 {
		return true
	}
	// VERSION_1 covers caps 0-31, which includes CAP_SYS_ADMIN (cap 21).
	var hdr unix.CapUserHeader
	var data unix.CapUserData
	hdr.Version = unix.LINUX_CAPABILITY_VERSION_1
	hdr.Pid = 0
	if err := unix.Capget(&hdr, &data); err == nil {
		if data.Effective&(1<<unix.CAP_SYS_ADMIN) != 0 {
			return true
		}
	}
	if val, err := os.ReadFile("/proc/sys/kernel/unprivileged_userns_clone"); err == nil {
		return strings.TrimSpace(string(val)) == "1"
	}
	return probeUserNamespace()
}

// probeUserNamespace spawns a trivial child in a new user namespace to test support.
func probeUserNamespace() bool {
	cmd := exec.Command("true")
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Cloneflags: syscall.CLONE_NEWUSER,
		UidMappings: []syscall.SysProcIDMap{{
			ContainerID: os.Getuid(),
			HostID:      os.Getuid(),
			Size:        1,
		}},
		GidMappings: []syscall.SysProcIDMap{{
			ContainerID: os.Getgid(),
			HostID:      os.Getgid(),
			Size:        1,
		}},
	}
	return cmd.Run() == nil
}

func (s *linuxSandbox) Exec(ctx context.Context, name string, args []string, cwd string, env []string) (*exec.Cmd, error) {
	var writablePaths []string
	for _, m := range s.policy.Mounts {
		if !m.ReadOnly {
			writablePaths = append(writablePaths, m.Source)
		}
	}

	uid := os.Getuid()
	gid := os.Getgid()
	logPath := filepath.Join(s.tmpDir, "sandbox_init.log")
	wrapArgs := []string{
		"--uid", fmt.Sprintf("%d", uid),
		"--gid", fmt.Sprintf("%d", gid),
		"--log", logPath,
	}
	for _, d := range s.policy.Deny {
		wrapArgs = append(wrapArgs, "--deny", d)
	}
	for _, d := range s.policy.DenyWrite {
		wrapArgs = append(wrapArgs, "--deny-write", d)
	}
	home, _ := os.UserHomeDir()
	if home != "" {
		wrapArgs = append(wrapArgs, "--home", home)
	}
	for _, p := range writablePaths {
		wrapArgs = append(wrapArgs, "--writable", p)
	}
	wrapArgs = append(wrapArgs, "--")
	wrapArgs = append(wrapArgs, name)
	wrapArgs = append(wrapArgs, args...)

	cmd := exec.CommandContext(ctx, s.exePath, wrapArgs...)
	if cwd != "" {
		cmd.Dir = cwd
	} else {
		cmd.Dir = s.tmpDir
	}
	if len(env) > 0 {
		cmd.Env = env
	} else {
		cmd.Env = s.buildEnv()
	}

	attr := s.sysProcAttr()
	// The wrapper itself stays out of the PID namespace: it needs host
	// /proc valid to write uid_map for the nested CLONE_NEWUSER it creates
	// around the real command. It establishes CLONE_NEWPID around that
	// nested exec instead (see SandboxInit).
	attr.Cloneflags &^= syscall.CLONE_NEWPID
	cmd.SysProcAttr = attr
	return cmd, nil
}

// PostStart applies resource limits to the sandboxed process via prlimit.
func (s *linuxSandbox) PostStart(pid int) error {
	for _, rl := range s.rlimits() {
		lim := unix.Rlimit{Cur: rl.value, Max: rl.value}
		if err := unix.Prlimit(pid, rl.resource, &lim, nil); err != nil {
			log.Printf("sandbox: linux prlimit(%d, %d, %d) failed: %v", pid, rl.resource, rl.value, err)
		}
	}
	return nil
}

func (s *linuxSandbox) Destroy() error {
	return os.RemoveAll(s.tmpDir)
}

func (s *linuxSandbox) buildEnv() []string {
	return []string{
		"PATH=/usr/bin:/bin",
		"HOME=" + s.tmpDir,
		"TMPDIR=" + s.tmpDir,
	}
}

func (s *linuxSandbox) sysProcAttr() *syscall.SysProcAttr {
	flags := s.cloneFlags()
	attr := &syscall.SysProcAttr{Cloneflags: flags}

	if os.Geteuid() != 0 {
		attr.Cloneflags |= syscall.CLONE_NEWUSER
		uid := os.Getuid()
		gid := os.Getgid()
		// The wrapper needs CAP_SYS_ADMIN for mounts, so it runs as
		// uid 0 inside its own namespace; it drops to the real uid via a
		// nested user namespace before exec'ing the command (SandboxInit).
		attr.UidMappings = []syscall.SysProcIDMap{{ContainerID: 0, HostID: uid, Size: 1}}
		attr.GidMappings = []syscall.SysProcIDMap{{ContainerID: 0, HostID: gid, Size: 1}}
	}
	return attr
}

// cloneFlags returns namespace clone flags based on the isolation level.
func (s *linuxSandbox) cloneFlags() uintptr {
	flags := uintptr(syscall.CLONE_NEWNS | syscall.CLONE_NEWPID | syscall.CLONE_NEWNET)
	if s.policy.Isolation >= Network {
		flags &^= syscall.CLONE_NEWNET
	}
	return flags
}

// rlimits returns resource limits for the sandboxed process. Only applies
// limits when explicitly configured — no defaults.
func (s *linuxSandbox) rlimits() []rlimitPair {
	var pairs []rlimitPair
	if s.policy.CPULimit > 0 {
		pairs = append(pairs, rlimitPair{unix.RLIMIT_CPU, uint64(s.policy.CPULimit.Seconds())})
	}
	if s.policy.MemLimit > 0 {
		// RLIMIT_AS limits virtual address space, not physical RAM. JIT
		// runtimes reserve large chunks of virtual address space up front,
		// so enforce a 512MB floor to avoid spurious startup OOMs.
		mem := s.policy.MemLimit
		const minVAS = 512 * 1024 * 1024
		if mem < minVAS {
			mem = minVAS
		}
		pairs = append(pairs, rlimitPair{unix.RLIMIT_AS, mem})
	}
	if s.policy.MaxFDs > 0 {
		pairs = append(pairs, rlimitPair{unix.RLIMIT_NOFILE, uint64(s.policy.MaxFDs)})
	}
	return pairs
}

type rlimitPair struct {
	resource int
	value    uint64
}

// buildSeccompFilter constructs a BPF program that denies dangerous
// syscalls, returning SECCOMP_RET_ERRNO(EPERM) for denied calls and
// SECCOMP_RET_ALLOW otherwise.
func buildSeccompFilter() []unix.SockFilter {
	all := append(append([]uint32{}, deniedSyscalls...), deniedSyscallsArch...)
	nDenied := len(all)
	if nDenied == 0 {
		return nil
	}

	prog := make([]unix.SockFilter, 0, nDenied+3)
	prog = append(prog, unix.SockFilter{
		Code: unix.BPF_LD | unix.BPF_W | unix.BPF_ABS,
		K:    0, // offsetof(struct seccomp_data, nr)
	})

	for i, nr := range all {
		jmpToDeny := uint8(nDenied - i)
		prog = append(prog, unix.SockFilter{
			Code: unix.BPF_JMP | unix.BPF_JEQ | unix.BPF_K,
			Jt:   jmpToDeny,
			Jf:   0,
			K:    nr,
		})
	}

	prog = append(prog, unix.SockFilter{Code: unix.BPF_RET | unix.BPF_K, K: seccompRetAllow})
	prog = append(prog, unix.SockFilter{Code: unix.BPF_RET | unix.BPF_K, K: seccompRetErrno | uint32(unix.EPERM)})
	return prog
}

const (
	seccompRetAllow = 0x7fff0000
	seccompRetErrno = 0x00050000
)
