// Idiomatic entrypoint for the Cobra CLI that delegates to the root
// command in cmd/root.go.

package main

import (
	"github.com/AsyncFlow-Sim/AsyncFlow/cmd"
)

func main() {
	cmd.Execute()
}
