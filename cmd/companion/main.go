// Package main provides the entry point for the companion CLI.
package main

import (
	"fmt"
	"os"

	"github.com/opencode-ai/companion/cmd/companion/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
