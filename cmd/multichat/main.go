// Package main provides the entry point for the multichat CLI.
package main

import (
	"fmt"
	"os"

	"github.com/multichat-ai/multichat/cmd/multichat/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
