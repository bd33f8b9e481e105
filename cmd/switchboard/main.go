// cmd/switchboard/main.go
//
// Entry point for the switchboard CLI. Every subcommand boots the project
// in the current (or --project) directory, runs the startup phases and then
// reports on or drives the result.

package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
