//go:build linux

// Command agentcore-linux-sandbox is the re-exec helper spawned by
// sandbox.linuxSandbox.Exec. It runs as root inside the outer user
// namespace and applies mount/seccomp isolation before handing off to the
// real command; see sandbox.SandboxInit for the argument format and what
// it sets up.
package main

import (
	"os"

	"github.com/coderunner/agentcore/internal/sandbox"
)

func main() {
	sandbox.SandboxInit(os.Args[1:])
}
