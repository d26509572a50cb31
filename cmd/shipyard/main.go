// Package main is the entry point for the shipyard CLI.
//
// shipyard deploys containerized workloads to a single cloud instance:
// it starts the instance, syncs code over SSH, executes the configured
// commands, collects artifacts, and stops the instance again.
//
// Commands: install, connect, run, startRun, stopRun.
//
// For detailed usage information, run:
//
//	shipyard --help
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/imamik/shipyard/cmd/shipyard/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)

	// First interrupt cancels the operation so cleanup can run; a second
	// one kills the process the default way.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := commands.Root().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "shipyard: %v\n", err)
		os.Exit(1)
	}
}
