// Command beacon replays a recorded call queue through the analytics
// pipeline and prints every envelope the destinations receive.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
