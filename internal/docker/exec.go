package docker

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/memmachine/memmachine-stack/internal/model"
)

// Exec runs cmd inside the named container, like `docker exec`, copying the
// demultiplexed output to stdout and stderr (either may be nil). It returns
// the command's exit code; a nonzero code is not an error. Errors mean the
// exec could not be created or attached, typically because the container
// does not exist or is not running yet.
func (c *Client) Exec(ctx context.Context, containerName string, cmd []string, stdout, stderr io.Writer) (int, error) {
	created, err := c.inner.ContainerExecCreate(ctx, containerName, container.ExecOptions{
		Cmd:          cmd,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return -1, fmt.Errorf("failed to create exec in %s: %w", containerName, err)
	}

	attach, err := c.inner.ContainerExecAttach(ctx, created.ID, container.ExecAttachOptions{})
	if err != nil {
		return -1, fmt.Errorf("failed to attach exec in %s: %w", containerName, err)
	}
	defer attach.Close()

	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	// Without a TTY the stream is multiplexed; StdCopy splits it and
	// returns when the command exits.
	if _, err := stdcopy.StdCopy(stdout, stderr, attach.Reader); err != nil {
		return -1, fmt.Errorf("failed to read exec output from %s: %w", containerName, err)
	}

	inspect, err := c.inner.ContainerExecInspect(ctx, created.ID)
	if err != nil {
		return -1, fmt.Errorf("failed to inspect exec in %s: %w", containerName, err)
	}
	return inspect.ExitCode, nil
}

// ExecCapture runs cmd inside the container and returns its captured output.
func (c *Client) ExecCapture(ctx context.Context, containerName string, cmd []string) (model.ExecResult, error) {
	var stdout, stderr bytes.Buffer
	code, err := c.Exec(ctx, containerName, cmd, &stdout, &stderr)
	if err != nil {
		return model.ExecResult{ExitCode: code}, err
	}
	return model.ExecResult{
		ExitCode: code,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}, nil
}
