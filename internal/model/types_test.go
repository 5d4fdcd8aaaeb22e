package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestContainerState_String verifies that ContainerState values produce
// the expected string representations for CLI output and JSON serialization.
func TestContainerState_String(t *testing.T) {
	tests := []struct {
		state    ContainerState
		expected string
	}{
		{StateRunning, "running"},
		{StateExited, "exited"},
		{StateCreated, "created"},
		{StateRestarting, "restarting"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.state.String())
		})
	}
}

// TestParseContainerState verifies case and whitespace normalization.
// Unknown states must pass through untouched.
func TestParseContainerState(t *testing.T) {
	tests := []struct {
		input    string
		expected ContainerState
	}{
		{"running", StateRunning},
		{"RUNNING", StateRunning},
		{" exited\n", StateExited},
		{"paused", ContainerState("paused")},
		{"", ContainerState("")},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseContainerState(tt.input))
		})
	}
}

// TestContainerState_IsRunning checks that only the running state counts as up.
func TestContainerState_IsRunning(t *testing.T) {
	assert.True(t, StateRunning.IsRunning())
	assert.False(t, StateExited.IsRunning())
	assert.False(t, StateRestarting.IsRunning())
	assert.False(t, ContainerState("").IsRunning())
}

func TestExecResult_OK(t *testing.T) {
	assert.True(t, ExecResult{ExitCode: 0}.OK())
	assert.False(t, ExecResult{ExitCode: 1}.OK())
	assert.False(t, ExecResult{ExitCode: 127, Stderr: "not found"}.OK())
}

// TestCLIError verifies the custom error type used for exit code mapping.
func TestCLIError(t *testing.T) {
	t.Run("simple error", func(t *testing.T) {
		err := NewCLIError(ExitGeneralError, "docker is not installed")
		assert.Equal(t, ExitGeneralError, err.Code)
		assert.Equal(t, "docker is not installed", err.Error())
		assert.Nil(t, err.Unwrap())
	})

	t.Run("wrapped error", func(t *testing.T) {
		inner := errors.New("connection refused")
		err := WrapCLIError(ExitGeneralError, "Docker daemon is not running", inner)
		assert.Equal(t, ExitGeneralError, err.Code)
		assert.Contains(t, err.Error(), "connection refused")
		assert.Equal(t, inner, err.Unwrap())
	})

	// Verify errors.Is works with unwrapped errors (Go 1.13+ error chain).
	t.Run("errors.Is chain", func(t *testing.T) {
		inner := errors.New("connection refused")
		err := WrapCLIError(ExitGeneralError, "Docker daemon is not running", inner)
		assert.True(t, errors.Is(err, inner))
	})

	t.Run("precondition and timeout causes", func(t *testing.T) {
		pre := PreconditionError("template missing", nil)
		assert.Equal(t, CausePrecondition, pre.Cause)
		assert.Equal(t, ExitGeneralError, pre.Code)

		inner := errors.New("deadline")
		to := TimeoutError("PostgreSQL did not become ready", inner)
		assert.Equal(t, CauseTimeout, to.Cause)
		assert.Equal(t, ExitGeneralError, to.Code)
		assert.True(t, errors.Is(to, inner))
	})
}
