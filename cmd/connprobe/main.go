// Command connprobe probes backend connectors and reports their health.
package main

import (
	"os"

	"github.com/turtacn/connprobe/internal/interfaces/cli"
)

// Build-time variables injected via ldflags.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func init() {
	cli.Version = version
	cli.GitCommit = commit
	cli.BuildDate = buildDate
}

func main() {
	os.Exit(cli.ExitCode(cli.Execute()))
}

//Personal.AI order the ending
