//go:build !darwin

package sandbox

import "fmt"

func newApple(policy Policy) (Sandbox, error) {
	return nil, fmt.Errorf("apple container sandbox is only available on darwin")
}
