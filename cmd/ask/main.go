// Command ask answers a question from the terminal.
//
// Usage:
//
//	ask what is the capital of France
//	ask --provider openai "explain SSE in one paragraph"
//	ask config
package main

import (
	"os"

	"github.com/fatih/color"
)

func main() {
	if err := Execute(); err != nil {
		red := color.New(color.FgRed)
		red.Fprintf(os.Stderr, "  ✗ %v\n", err)
		os.Exit(1)
	}
}
