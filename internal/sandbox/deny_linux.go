//go:build linux

package sandbox

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

// SandboxInit is the entry point for the re-exec'd sandbox helper binary
// (cmd/agentcore-linux-sandbox). It runs as root (uid 0) inside the outer
// user namespace created by linuxSandbox.Exec, so it can:
//
//  1. Mount tmpfs over denied paths to hide their contents.
//  2. Bind-mount deny-write paths read-only.
//  3. Make HOME read-only, punching writable holes for the configured
//     mount sources.
//  4. Install a seccomp filter so the command can't undo any of the above
//     via mount/umount.
//
// It then spawns the real command in a nested CLONE_NEWUSER (uid drop) +
// CLONE_NEWPID (pid isolation) namespace and waits for it, forwarding its
// exit code.
//
// Args format:
//
//	--uid UID --gid GID [--log PATH] [--deny PATH...] [--deny-write PATH...]
//	[--home PATH] [--writable PATH...] -- CMD ARGS...
func SandboxInit(args []string) {
	var denyPaths, denyWritePaths, writablePaths []string
	var home, logPath string
	var uid, gid int
	cmdStart := -1

	for i := 0; i < len(args); i++ {
		if args[i] == "--" {
			cmdStart = i + 1
			break
		}
		if i+1 >= len(args) {
			continue
		}
		switch args[i] {
		case "--deny":
			denyPaths = append(denyPaths, args[i+1])
			i++
		case "--deny-write":
			denyWritePaths = append(denyWritePaths, args[i+1])
			i++
		case "--writable":
			writablePaths = append(writablePaths, args[i+1])
			i++
		case "--home":
			home = args[i+1]
			i++
		case "--log":
			logPath = args[i+1]
			i++
		case "--uid":
			uid, _ = strconv.Atoi(args[i+1])
			i++
		case "--gid":
			gid, _ = strconv.Atoi(args[i+1])
			i++
		}
	}

	if logPath != "" {
		if f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err == nil {
			log.SetOutput(f)
			defer f.Close()
		}
	}
	if cmdStart < 0 || cmdStart >= len(args) {
		log.Fatal("sandbox init: missing -- separator or command")
	}

	// Make this namespace's mounts private so bind mounts don't leak back
	// into the parent namespace's mount table.
	if err := unix.Mount("", "/", "", unix.MS_PRIVATE|unix.MS_REC, ""); err != nil {
		log.Printf("sandbox init: make root private: %v", err)
	}

	if home != "" && len(writablePaths) > 0 && !containsPath(writablePaths, home) {
		setupReadonlyHome(home, writablePaths)
	}

	for _, p := range denyPaths {
		if err := os.MkdirAll(p, 0755); err != nil {
			log.Printf("sandbox init: mkdir %s: %v", p, err)
			continue
		}
		if err := unix.Mount("tmpfs", p, "tmpfs", unix.MS_RDONLY|unix.MS_NOSUID|unix.MS_NODEV, "size=0"); err != nil {
			log.Printf("sandbox init: mount deny %s: %v", p, err)
		}
	}

	for _, p := range denyWritePaths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := unix.Mount(p, p, "", unix.MS_BIND, ""); err != nil {
			log.Printf("sandbox init: bind deny-write %s: %v", p, err)
			continue
		}
		if err := unix.Mount("", p, "", unix.MS_REMOUNT|unix.MS_BIND|unix.MS_RDONLY, ""); err != nil {
			log.Printf("sandbox init: remount deny-write ro %s: %v", p, err)
		}
	}

	// Seccomp goes in last: SYS_MOUNT is in the deny list and the filter
	// is inherited by the nested command.
	if err := installSeccomp(); err != nil {
		log.Printf("sandbox init: seccomp: %v (continuing without)", err)
	}

	cmdArgs := args[cmdStart:]
	cmd := exec.Command(cmdArgs[0], cmdArgs[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = os.Environ()

	cmd.SysProcAttr = &syscall.SysProcAttr{Cloneflags: syscall.CLONE_NEWPID}
	if uid != 0 {
		cmd.SysProcAttr.Cloneflags |= syscall.CLONE_NEWUSER
		cmd.SysProcAttr.UidMappings = []syscall.SysProcIDMap{{ContainerID: uid, HostID: 0, Size: 1}}
		cmd.SysProcAttr.GidMappings = []syscall.SysProcIDMap{{ContainerID: gid, HostID: 0, Size: 1}}
	}

	if err := cmd.Start(); err != nil {
		log.Fatalf("sandbox init: start command: %v", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)
	go func() {
		for sig := range sigCh {
			cmd.Process.Signal(sig)
		}
	}()

	if err := cmd.Wait(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			os.Exit(exitErr.ExitCode())
		}
		log.Printf("sandbox init: wait: %v", err)
		os.Exit(1)
	}
	os.Exit(0)
}

// setupReadonlyHome bind-mounts HOME, punches writable holes for the
// configured mount sources, then remounts HOME read-only. New file
// creation directly under HOME (outside the writable holes) is blocked;
// existing files inside a writable hole may still be modified.
func setupReadonlyHome(home string, writablePaths []string) {
	if err := unix.Mount(home, home, "", unix.MS_BIND|unix.MS_REC, ""); err != nil {
		log.Printf("sandbox init: bind HOME %s: %v (write isolation skipped)", home, err)
		return
	}
	for _, p := range writablePaths {
		if err := os.MkdirAll(p, 0755); err != nil {
			log.Printf("sandbox init: mkdir writable %s: %v", p, err)
			continue
		}
		if err := unix.Mount(p, p, "", unix.MS_BIND, ""); err != nil {
			log.Printf("sandbox init: bind writable %s: %v", p, err)
		}
	}
	if err := unix.Mount("", home, "", unix.MS_REMOUNT|unix.MS_BIND|unix.MS_RDONLY, ""); err != nil {
		log.Printf("sandbox init: remount HOME ro: %v", err)
	} else {
		log.Printf("sandbox init: write isolation: HOME=%s ro, %d writable paths", home, len(writablePaths))
	}
}

// installSeccomp installs a BPF seccomp filter that denies dangerous
// syscalls. Must be called after all mounts are complete; the filter is
// inherited by child processes via fork/exec.
func installSeccomp() error {
	prog := buildSeccompFilter()
	if prog == nil {
		return nil
	}
	if _, _, errno := unix.RawSyscall(unix.SYS_PRCTL, unix.PR_SET_NO_NEW_PRIVS, 1, 0); errno != 0 {
		return fmt.Errorf("prctl(NO_NEW_PRIVS): %v", errno)
	}
	bpfProg := unix.SockFprog{Len: uint16(len(prog)), Filter: &prog[0]}
	// SECCOMP_SET_MODE_FILTER = 1
	if _, _, errno := unix.RawSyscall(unix.SYS_SECCOMP, 1, 0, uintptr(unsafe.Pointer(&bpfProg))); errno != 0 {
		return fmt.Errorf("seccomp(SET_MODE_FILTER): %v", errno)
	}
	log.Printf("sandbox init: seccomp installed (%d denied syscalls)", len(prog)-3)
	return nil
}

func containsPath(paths []string, target string) bool {
	for _, p := range paths {
		if p == target {
			return true
		}
	}
	return false
}
