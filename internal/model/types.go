package model

import (
	"fmt"
	"strings"
)

// ContainerState is the runtime state of a single stack container as
// reported by the Docker API ("running", "exited", ...).
type ContainerState string

const (
	// StateRunning indicates the container's main process is running.
	StateRunning ContainerState = "running"

	// StateExited indicates the container stopped.
	StateExited ContainerState = "exited"

	// StateCreated indicates the container exists but was never started.
	StateCreated ContainerState = "created"

	// StateRestarting indicates the runtime is restarting the container,
	// usually because it keeps crashing.
	StateRestarting ContainerState = "restarting"
)

// String returns the string representation of ContainerState.
func (s ContainerState) String() string {
	return string(s)
}

// IsRunning reports whether the state counts as up for status output.
func (s ContainerState) IsRunning() bool {
	return s == StateRunning
}

// ParseContainerState normalizes a runtime state string. Unknown states are
// kept verbatim since newer Docker versions may add states.
func ParseContainerState(s string) ContainerState {
	return ContainerState(strings.ToLower(strings.TrimSpace(s)))
}

// ContainerInfo holds runtime information about a Docker container.
// This data is fetched dynamically from the Docker API, not persisted.
type ContainerInfo struct {
	// ContainerID is the unique Docker container identifier.
	ContainerID string `json:"containerId"`

	// ContainerName is the human-readable Docker container name.
	ContainerName string `json:"containerName"`

	// ServiceName is the Compose service name from the
	// com.docker.compose.service label.
	ServiceName string `json:"serviceName,omitempty"`

	// Image is the image reference the container was created from.
	Image string `json:"image,omitempty"`

	// State is the Docker container state.
	State ContainerState `json:"state"`

	// Status is Docker's human readable status ("Up 3 minutes (healthy)").
	Status string `json:"status,omitempty"`

	// Labels is the full set of Docker labels on the container.
	Labels map[string]string `json:"labels,omitempty"`
}

// ServiceEndpoint is one line of the service information printed once the
// stack is up: a named URL or address an operator can use.
type ServiceEndpoint struct {
	// Name is the display name ("MemMachine API", "Neo4j Browser", ...).
	Name string `json:"name"`

	// URL is the address, either an http URL or a host:port pair.
	URL string `json:"url"`
}

// Credential is a username/password pair printed for a backing database.
type Credential struct {
	// Service is the owning service ("PostgreSQL", "Neo4j").
	Service string `json:"service"`

	// Username is the login name.
	Username string `json:"username"`

	// Password is the login secret. Printed as-is because the operator
	// chose it in .env.
	Password string `json:"password"`

	// Database is the database name, empty when not applicable.
	Database string `json:"database,omitempty"`
}

// ExecResult is the outcome of a command run inside a container. A nonzero
// ExitCode is a normal result, not an error.
type ExecResult struct {
	// ExitCode is the exit status of the command inside the container.
	ExitCode int `json:"exitCode"`

	// Stdout holds the command's standard output.
	Stdout string `json:"stdout,omitempty"`

	// Stderr holds the command's standard error.
	Stderr string `json:"stderr,omitempty"`
}

// OK reports whether the command exited with status zero.
func (r ExecResult) OK() bool {
	return r.ExitCode == 0
}

// ExitCode defines CLI exit codes. The operator contract only distinguishes
// success from failure, so every fatal condition maps to ExitGeneralError
// and the remaining codes describe the cause for programmatic callers that
// inspect CLIError directly.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully, including
	// the deliberate pause after a configuration file was created from
	// its template.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates a fatal precondition, tool absence, or
	// health-check timeout.
	ExitGeneralError ExitCode = 1
)

// Cause classifies a CLIError for callers that need more than the exit code.
type Cause string

const (
	// CausePrecondition marks a missing tool, runtime or template file.
	CausePrecondition Cause = "precondition"

	// CauseTimeout marks a service that never became ready.
	CauseTimeout Cause = "timeout"

	// CauseCommand marks an external command that ran and failed.
	CauseCommand Cause = "command"
)

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate domain errors into
// appropriate process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Cause classifies the failure. Empty for generic errors.
	Cause Cause

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}

// PreconditionError reports a missing tool, runtime or template.
func PreconditionError(message string, err error) *CLIError {
	return &CLIError{Code: ExitGeneralError, Cause: CausePrecondition, Message: message, Err: err}
}

// TimeoutError reports a service that did not become ready in time.
func TimeoutError(message string, err error) *CLIError {
	return &CLIError{Code: ExitGeneralError, Cause: CauseTimeout, Message: message, Err: err}
}
