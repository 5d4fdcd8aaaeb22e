// Package docker provides the container runtime integration for the
// memmachine-stack tools.
//
// This package handles:
//   - Docker client initialization with automatic socket detection
//     (Linux, macOS, Windows) and daemon liveness checks
//   - Compose tool discovery: either the "docker compose" plugin or the
//     legacy standalone "docker-compose" binary is acceptable
//   - Compose lifecycle operations: up, down, restart, logs
//   - Running readiness commands inside named containers
//   - Listing the containers that belong to a compose project
//
// The package uses github.com/docker/docker/client as the underlying
// Docker SDK, with version negotiation enabled for broad compatibility.
// Compose has no SDK, so it is driven as a child process.
package docker
