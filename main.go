package main

import (
	"os"

	"github.com/agentsync-labs/agentsync/internal/cli"
	"github.com/agentsync-labs/agentsync/internal/errors"
)

// version, commit, and date are set via ldflags at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := cli.Execute(version, commit, date); err != nil {
		os.Exit(errors.ExitCode(err))
	}
}
