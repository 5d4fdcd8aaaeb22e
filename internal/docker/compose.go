// compose.go drives the compose tool as a child process. Two spellings are
// accepted: the "docker compose" CLI plugin and the legacy standalone
// "docker-compose" binary. Either one is sufficient.
//
// Every command runs in the project directory so compose resolves the
// compose file, .env and relative bind mounts the same way it would for an
// operator typing the command by hand.
package docker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/memmachine/memmachine-stack/internal/model"
)

// ErrComposeNotFound is wrapped by DetectCompose when neither compose
// spelling is installed.
var ErrComposeNotFound = errors.New("neither 'docker compose' nor 'docker-compose' is available")

// CommandRunner runs an external command. Tests substitute a recorder.
type CommandRunner interface {
	Run(ctx context.Context, spec CommandSpec) error
}

// CommandSpec describes one child process invocation.
type CommandSpec struct {
	// Name is the binary, resolved through PATH.
	Name string
	Args []string

	// Dir is the working directory. Empty means the current directory.
	Dir string

	// Env holds extra KEY=VALUE pairs appended to the inherited environment.
	Env []string

	// Stdout and Stderr stream the child's output. A nil Stdout switches
	// to captured mode, where output only appears in the error.
	Stdout io.Writer
	Stderr io.Writer
	Stdin  io.Reader
}

// ExecRunner is the production CommandRunner backed by os/exec.
type ExecRunner struct{}

// Run starts the command and waits for it. When no Stdout is given the
// combined output is captured and included in the returned error.
func (ExecRunner) Run(ctx context.Context, spec CommandSpec) error {
	// CommandContext kills the child when ctx is cancelled, which is how
	// Ctrl-C ends a followed "logs -f".
	cmd := exec.CommandContext(ctx, spec.Name, spec.Args...)
	cmd.Dir = spec.Dir

	// Inherit the current environment so DOCKER_HOST and friends reach the
	// child. Later entries win, so spec.Env overrides inherited values.
	cmd.Env = append(os.Environ(), spec.Env...)
	cmd.Stdin = spec.Stdin

	// Captured mode: compose prints its own diagnostics, and surfacing them
	// in the error is more useful than a bare exit status.
	if spec.Stdout == nil {
		output, err := cmd.CombinedOutput()
		if err != nil {
			return fmt.Errorf("%s %s: %s: %w",
				spec.Name, strings.Join(spec.Args, " "), strings.TrimSpace(string(output)), err)
		}
		return nil
	}

	cmd.Stdout = spec.Stdout
	cmd.Stderr = spec.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %s: %w", spec.Name, strings.Join(spec.Args, " "), err)
	}
	return nil
}

// LookPathFunc matches exec.LookPath.
type LookPathFunc func(file string) (string, error)

// DetectCompose returns the command prefix for the installed compose tool:
// ["docker", "compose"] when the plugin answers "version", otherwise
// ["docker-compose"] when the legacy binary is on PATH.
func DetectCompose(ctx context.Context, lookPath LookPathFunc, runner CommandRunner) ([]string, error) {
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	if runner == nil {
		runner = ExecRunner{}
	}

	// The plugin ships inside the docker binary, so finding "docker" on PATH
	// is not enough. Ask it for "compose version" to be sure.
	if _, err := lookPath("docker"); err == nil {
		var out bytes.Buffer
		err := runner.Run(ctx, CommandSpec{
			Name:   "docker",
			Args:   []string{"compose", "version"},
			Stdout: &out,
			Stderr: &out,
		})
		if err == nil {
			return []string{"docker", "compose"}, nil
		}
	}

	// Fall back to the standalone v1/v2 binary.
	if _, err := lookPath("docker-compose"); err == nil {
		return []string{"docker-compose"}, nil
	}

	return nil, model.PreconditionError("Docker Compose is not installed", ErrComposeNotFound)
}

// Compose runs lifecycle commands against one compose project.
type Compose struct {
	// Command is the tool prefix returned by DetectCompose.
	Command []string

	// ProjectDir is where the compose file and .env live.
	ProjectDir string

	// ProjectName sets COMPOSE_PROJECT_NAME. Empty leaves compose's default.
	ProjectName string

	// Runner executes the commands. Defaults to ExecRunner.
	Runner CommandRunner
}

// NewCompose creates a Compose for the given tool prefix and project.
func NewCompose(command []string, projectDir, projectName string) *Compose {
	return &Compose{
		Command:     command,
		ProjectDir:  projectDir,
		ProjectName: projectName,
		Runner:      ExecRunner{},
	}
}

// Args builds the full argument vector for a compose sub-command, with the
// tool prefix split into binary name and leading arguments.
func (c *Compose) Args(sub ...string) (string, []string) {
	// A zero Compose behaves like the plugin invocation.
	if len(c.Command) == 0 {
		return "docker", append([]string{"compose"}, sub...)
	}
	args := make([]string, 0, len(c.Command)-1+len(sub))
	args = append(args, c.Command[1:]...)
	args = append(args, sub...)
	return c.Command[0], args
}

// Up starts the stack in detached mode. The -d flag returns as soon as the
// containers are created; readiness is checked separately.
func (c *Compose) Up(ctx context.Context) error {
	return c.run(ctx, nil, nil, "up", "-d")
}

// Down stops and removes the stack's containers and networks. With
// removeVolumes the named volumes go too, which deletes all stored data.
func (c *Compose) Down(ctx context.Context, removeVolumes bool) error {
	sub := []string{"down"}

	// Optionally remove volumes for a full reset.
	if removeVolumes {
		sub = append(sub, "-v")
	}
	return c.run(ctx, nil, nil, sub...)
}

// Restart restarts every service in place.
func (c *Compose) Restart(ctx context.Context) error {
	return c.run(ctx, nil, nil, "restart")
}

// Logs streams service logs to stdout/stderr. With follow it blocks until
// the context is cancelled (Ctrl-C).
func (c *Compose) Logs(ctx context.Context, follow bool, services []string, stdout, stderr io.Writer) error {
	sub := []string{"logs"}
	if follow {
		sub = append(sub, "-f")
	}
	sub = append(sub, services...)
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	return c.run(ctx, stdout, stderr, sub...)
}

// run executes one compose sub-command in ProjectDir. Output is streamed
// when stdout is set and captured otherwise. Any failure is wrapped as a
// command CLIError naming the sub-command.
func (c *Compose) run(ctx context.Context, stdout, stderr io.Writer, sub ...string) error {
	name, args := c.Args(sub...)

	// COMPOSE_PROJECT_NAME takes precedence over the compose file's
	// top-level name, which is how --project targets another stack.
	var env []string
	if c.ProjectName != "" {
		env = append(env, "COMPOSE_PROJECT_NAME="+c.ProjectName)
	}

	runner := c.Runner
	if runner == nil {
		runner = ExecRunner{}
	}

	err := runner.Run(ctx, CommandSpec{
		Name:   name,
		Args:   args,
		Dir:    c.ProjectDir,
		Env:    env,
		Stdout: stdout,
		Stderr: stderr,
	})
	if err != nil {
		return &model.CLIError{
			Code:    model.ExitGeneralError,
			Cause:   model.CauseCommand,
			Message: fmt.Sprintf("compose %s failed", sub[0]),
			Err:     err,
		}
	}
	return nil
}
