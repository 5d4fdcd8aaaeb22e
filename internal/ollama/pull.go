package ollama

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/memmachine/memmachine-stack/internal/model"
	"github.com/memmachine/memmachine-stack/internal/poll"
)

// ServiceTimeout is how long the puller waits for the daemon's API.
const ServiceTimeout = 60 * time.Second

// State is a step of the pull workflow.
type State int

const (
	// StateWaitingForService polls /api/tags until the daemon answers.
	StateWaitingForService State = iota

	// StatePulling runs the one-shot pull inside the container.
	StatePulling

	// StateDone means the pull command exited 0.
	StateDone

	// StateFailed means the daemon never became ready or the pull failed.
	StateFailed
)

// String returns the state's name for logs.
func (s State) String() string {
	switch s {
	case StateWaitingForService:
		return "WAITING_FOR_SERVICE"
	case StatePulling:
		return "PULLING"
	case StateDone:
		return "DONE"
	case StateFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ContainerExecer runs a command inside a named container and returns its
// exit code. *docker.Client satisfies it.
type ContainerExecer interface {
	Exec(ctx context.Context, containerName string, cmd []string, stdout, stderr io.Writer) (int, error)
}

// Puller waits for the daemon and pulls one model.
type Puller struct {
	Client    *Client
	Exec      ContainerExecer
	Poller    *poll.Poller
	Container string
	Model     string
	Out       io.Writer
	ErrOut    io.Writer

	state State
}

// State returns the workflow's current (or final) state.
func (p *Puller) State() State {
	return p.state
}

// Run executes WAITING_FOR_SERVICE → PULLING → DONE | FAILED. The pull is
// attempted exactly once; there is no retry on that step.
func (p *Puller) Run(ctx context.Context) error {
	out := p.Out
	if out == nil {
		out = io.Discard
	}
	errOut := p.ErrOut
	if errOut == nil {
		errOut = out
	}

	p.state = StateWaitingForService
	fmt.Fprintf(out, "Waiting for Ollama at %s...\n", p.Client.BaseURL())

	if _, err := p.Poller.Wait(ctx, "Ollama", p.Client.Ready); err != nil {
		p.state = StateFailed
		if errors.Is(err, poll.ErrTimeout) {
			return model.TimeoutError(
				fmt.Sprintf("Ollama did not become ready within %s", p.Poller.Timeout()), err)
		}
		// Cancellation (Ctrl-C) is passed through so callers can tell it
		// apart from the readiness deadline.
		return err
	}
	fmt.Fprintln(out, "Ollama is ready.")

	p.state = StatePulling
	fmt.Fprintf(out, "Pulling model %s in container %s...\n", p.Model, p.Container)

	code, err := p.Exec.Exec(ctx, p.Container, []string{"ollama", "pull", p.Model}, out, errOut)
	if err != nil {
		p.state = StateFailed
		return &model.CLIError{
			Code:    model.ExitGeneralError,
			Cause:   model.CauseCommand,
			Message: fmt.Sprintf("failed to pull model %s", p.Model),
			Err:     err,
		}
	}
	if code != 0 {
		p.state = StateFailed
		return &model.CLIError{
			Code:    model.ExitGeneralError,
			Cause:   model.CauseCommand,
			Message: fmt.Sprintf("failed to pull model %s: ollama pull exited with status %d", p.Model, code),
		}
	}

	p.state = StateDone
	fmt.Fprintf(out, "Model %s pulled successfully.\n", p.Model)

	// Informational only: a listing failure never changes the outcome.
	if ok, err := p.Client.HasModel(ctx, p.Model); err == nil && ok {
		fmt.Fprintf(out, "Model %s is available in Ollama.\n", p.Model)
	}
	return nil
}
