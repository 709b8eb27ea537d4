// Package main provides the vendorsummary CLI.
package main

import (
	"os"

	"github.com/leapstack-labs/vendorsummary/internal/cli"
)

// Set at build time with -ldflags "-X main.version=...".
var (
	version   = ""
	buildDate = ""
	gitCommit = ""
)

func main() {
	os.Exit(run())
}

func run() int {
	if version != "" {
		cli.Version = version
	}
	if buildDate != "" {
		cli.BuildDate = buildDate
	}
	if gitCommit != "" {
		cli.GitCommit = gitCommit
	}

	if err := cli.Execute(); err != nil {
		return 1
	}
	return 0
}
