// Package main is the entry point for ollama-pull, which waits for the
// Ollama API and pulls the embedding model into the Ollama container.
package main

import (
	"github.com/memmachine/memmachine-stack/internal/cli"
)

// version, commit, and date are set at build time via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.Version = version
	cli.Commit = commit
	cli.Date = date

	cli.Execute(cli.NewPullCommand())
}
