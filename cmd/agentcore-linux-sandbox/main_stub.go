//go:build !linux

package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Fprintln(os.Stderr, "agentcore-linux-sandbox: only runs on linux")
	os.Exit(1)
}
