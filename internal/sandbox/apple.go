//go:build darwin

package sandbox

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

type appleSandbox struct {
	policy Policy
	name   string
}

// containerNamePrefix is the prefix used for all Apple Container sandbox names.
const containerNamePrefix = "ac-"

// newApple creates an Apple Containers sandbox. Returns an error if the
// container CLI is not available.
func newApple(policy Policy) (Sandbox, error) {
	if _, err := exec.LookPath("container"); err != nil {
		return nil, fmt.Errorf("apple containers not available: %w", err)
	}

	name := containerNamePrefix + uuid.New().String()

	initArgs := []string{"init", "--name", name}
	for _, m := range buildMounts(policy) {
		initArgs = append(initArgs, "--mount", m)
	}
	if policy.Isolation >= Network {
		initArgs = append(initArgs, "--network")
	}

	out, err := exec.Command("container", initArgs...).CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("container init: %s: %w", string(out), err)
	}

	log.Printf("sandbox: apple container created name=%s isolation=%s", name, policy.Isolation)
	return &appleSandbox{policy: policy, name: name}, nil
}

func (s *appleSandbox) Exec(ctx context.Context, name string, args []string, cwd string, env []string) (*exec.Cmd, error) {
	execArgs := []string{"exec"}
	if cwd != "" {
		execArgs = append(execArgs, "--cwd", cwd)
	}
	for _, kv := range env {
		execArgs = append(execArgs, "--env", kv)
	}
	execArgs = append(execArgs, s.name, "--", name)
	execArgs = append(execArgs, args...)
	cmd := exec.CommandContext(ctx, "container", execArgs...)
	return cmd, nil
}

func (s *appleSandbox) PostStart(pid int) error {
	return nil // Apple Containers enforces resource limits at the container level.
}

func (s *appleSandbox) Destroy() error {
	if out, err := exec.Command("container", "stop", s.name).CombinedOutput(); err != nil {
		return fmt.Errorf("container stop %s: %s: %w", s.name, string(out), err)
	}
	if out, err := exec.Command("container", "rm", s.name).CombinedOutput(); err != nil {
		return fmt.Errorf("container rm %s: %s: %w", s.name, string(out), err)
	}
	log.Printf("sandbox: apple container destroyed name=%s", s.name)
	return nil
}

// buildMounts returns mount flag values based on isolation level and policy.
// When deny paths are set and a mount source is a parent of a denied path,
// the mount is expanded to individual child dirs minus denied ones.
func buildMounts(policy Policy) []string {
	var mounts []string
	for _, m := range policy.Mounts {
		ro := m.ReadOnly || policy.Isolation == Strict

		expanded := expandMountDeny(m.Source, m.Target, policy.Deny)
		if len(expanded) > 0 {
			for _, em := range expanded {
				spec := em.source + ":" + em.target
				if ro {
					spec += ":ro"
				}
				mounts = append(mounts, spec)
			}
		} else {
			spec := m.Source + ":" + m.Target
			if ro {
				spec += ":ro"
			}
			mounts = append(mounts, spec)
		}
	}
	return mounts
}

type expandedMount struct {
	source string
	target string
}

// expandMountDeny checks if any deny path is a child of source. If so, it
// enumerates the immediate children of source and returns mounts for each
// non-denied child.
func expandMountDeny(source, target string, deny []string) []expandedMount {
	if len(deny) == 0 {
		return nil
	}

	absSource, err := filepath.Abs(source)
	if err != nil {
		return nil
	}

	hasDeny := false
	denySet := make(map[string]bool)
	for _, d := range deny {
		absD, err := filepath.Abs(d)
		if err != nil {
			continue
		}
		if strings.HasPrefix(absD, absSource+"/") || absD == absSource {
			hasDeny = true
			denySet[absD] = true
		}
	}
	if !hasDeny {
		return nil
	}

	entries, err := os.ReadDir(absSource)
	if err != nil {
		return nil
	}

	var result []expandedMount
	for _, e := range entries {
		childPath := filepath.Join(absSource, e.Name())
		if denySet[childPath] {
			continue
		}
		childTarget := filepath.Join(target, e.Name())
		result = append(result, expandedMount{source: childPath, target: childTarget})
	}
	return result
}

// validContainerName checks that a container name has the expected format.
func validContainerName(name string) bool {
	if !strings.HasPrefix(name, containerNamePrefix) {
		return false
	}
	suffix := name[len(containerNamePrefix):]
	_, err := uuid.Parse(suffix)
	return err == nil
}
