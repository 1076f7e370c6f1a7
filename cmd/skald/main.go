// Package main provides the entry point for the skald CLI.
package main

import (
	"fmt"
	"os"

	"github.com/skald-ai/skald/cmd/skald/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
