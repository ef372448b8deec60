//go:build !linux

package sandbox

import "fmt"

func newLinux(policy Policy, exePath string) (Sandbox, error) {
	return nil, fmt.Errorf("linux namespace sandbox is only available on linux")
}
