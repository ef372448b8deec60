//go:build linux && arm64

package sandbox

// No x86-only syscalls to deny on arm64.
var deniedSyscallsArch = []uint32{}
