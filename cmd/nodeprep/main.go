// Package main is the entry point for the nodeprep CLI.
//
// nodeprep prepares a bare-metal GPU compute node for workload scheduling:
// durable data storage, base packages, the GPU driver, the container
// toolkit and a final GPU validation pass. Progress is persisted after
// every step, so interrupted runs resume where they stopped.
//
// Commands: provision, storage, status, reset.
//
// For detailed usage information, run:
//
//	nodeprep --help
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/imamik/nodeprep/cmd/nodeprep/commands"
	"github.com/imamik/nodeprep/cmd/nodeprep/handlers"
	"github.com/imamik/nodeprep/internal/state"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Exit codes let the boot hook and orchestration scripts distinguish
// transient contention from real failures.
const (
	exitFailure   = 1
	exitPreflight = 2
	exitLocked    = 3
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		switch {
		case errors.Is(err, state.ErrLocked):
			os.Exit(exitLocked)
		case errors.Is(err, handlers.ErrPreflight):
			os.Exit(exitPreflight)
		default:
			os.Exit(exitFailure)
		}
	}
}
