// Package stack implements the MemMachine stack controller: the start
// sequence (preflight checks, compose up, sequential health waits) and the
// stop, restart, logs, clean and status operations.
//
// All interaction with the outside world goes through the Runtime
// capability interface, so the orchestration logic is exercised in tests
// with a fake runtime and never spawns real processes. DockerRuntime is the
// production implementation built on internal/docker.
package stack
