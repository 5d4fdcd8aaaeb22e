// Package model defines the domain types shared across the memmachine-stack
// tools.
//
// This package contains pure data structures with no external dependencies.
// The tools own no persistent state: containers, volumes and service health
// all live in the container runtime and are only observed. The types here
// are transient views reconstructed from runtime queries.
//
// The package also defines exit codes (ExitCode) and a custom error type
// (CLIError) that carries exit codes for proper OS process exit handling.
package model
