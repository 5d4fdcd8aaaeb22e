package stack

import (
	"context"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/memmachine/memmachine-stack/internal/docker"
	"github.com/memmachine/memmachine-stack/internal/model"
)

// Runtime is everything the controller needs from the host: the container
// runtime, the compose tool, and plain HTTP.
type Runtime interface {
	// CheckRuntime verifies the container runtime and a compose tool are
	// present and reachable.
	CheckRuntime(ctx context.Context) error

	// ComposeUp starts the stack detached.
	ComposeUp(ctx context.Context) error

	// ComposeDown removes the stack; removeVolumes also deletes its data.
	ComposeDown(ctx context.Context, removeVolumes bool) error

	// ComposeRestart restarts all services.
	ComposeRestart(ctx context.Context) error

	// ComposeLogs streams service logs to the terminal.
	ComposeLogs(ctx context.Context, follow bool, services []string) error

	// Exec runs a command in a named container.
	Exec(ctx context.Context, containerName string, cmd []string) (model.ExecResult, error)

	// HTTPGet issues a GET and returns the response status code.
	HTTPGet(ctx context.Context, url string) (int, error)

	// ListContainers returns the stack's containers.
	ListContainers(ctx context.Context) ([]model.ContainerInfo, error)
}

// httpProbeTimeout bounds one readiness GET.
const httpProbeTimeout = 5 * time.Second

// DockerRuntime implements Runtime with the Docker SDK for exec and listing
// and the compose CLI for lifecycle. The Docker client and the compose tool
// are resolved once, on first use.
type DockerRuntime struct {
	projectDir  string
	projectName string
	http        *http.Client
	stdout      io.Writer
	stderr      io.Writer

	once    sync.Once
	initErr error
	client  *docker.Client
	compose *docker.Compose
}

// NewDockerRuntime creates a runtime for the compose project in projectDir.
func NewDockerRuntime(projectDir, projectName string) *DockerRuntime {
	readinessClient := &http.Client{
		Timeout: httpProbeTimeout,
		// Readiness is judged on the endpoint's own answer. Following a
		// redirect would report the target's status instead.
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return &DockerRuntime{
		projectDir:  projectDir,
		projectName: projectName,
		http:        readinessClient,
		stdout:      os.Stdout,
		stderr:      os.Stderr,
	}
}

func (r *DockerRuntime) init(ctx context.Context) error {
	r.once.Do(func() {
		command, err := docker.DetectCompose(ctx, nil, nil)
		if err != nil {
			r.initErr = err
			return
		}
		r.compose = docker.NewCompose(command, r.projectDir, r.projectName)

		client, err := docker.NewClient()
		if err != nil {
			r.initErr = err
			return
		}
		if err := client.Ping(ctx); err != nil {
			_ = client.Close()
			r.initErr = err
			return
		}
		r.client = client
	})
	return r.initErr
}

// CheckRuntime resolves the compose tool and pings the Docker daemon.
func (r *DockerRuntime) CheckRuntime(ctx context.Context) error {
	return r.init(ctx)
}

// ComposeUp runs "compose up -d".
func (r *DockerRuntime) ComposeUp(ctx context.Context) error {
	if err := r.init(ctx); err != nil {
		return err
	}
	return r.compose.Up(ctx)
}

// ComposeDown runs "compose down", with "-v" when removeVolumes is set.
func (r *DockerRuntime) ComposeDown(ctx context.Context, removeVolumes bool) error {
	if err := r.init(ctx); err != nil {
		return err
	}
	return r.compose.Down(ctx, removeVolumes)
}

// ComposeRestart runs "compose restart".
func (r *DockerRuntime) ComposeRestart(ctx context.Context) error {
	if err := r.init(ctx); err != nil {
		return err
	}
	return r.compose.Restart(ctx)
}

// ComposeLogs runs "compose logs", streaming to the terminal.
func (r *DockerRuntime) ComposeLogs(ctx context.Context, follow bool, services []string) error {
	if err := r.init(ctx); err != nil {
		return err
	}
	return r.compose.Logs(ctx, follow, services, r.stdout, r.stderr)
}

// Exec runs cmd inside containerName and captures its output.
func (r *DockerRuntime) Exec(ctx context.Context, containerName string, cmd []string) (model.ExecResult, error) {
	if err := r.init(ctx); err != nil {
		return model.ExecResult{ExitCode: -1}, err
	}
	return r.client.ExecCapture(ctx, containerName, cmd)
}

// HTTPGet returns the status code of a GET to url. Redirects are not
// followed, so a 3xx is returned as-is. The body is discarded.
func (r *DockerRuntime) HTTPGet(ctx context.Context, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := r.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

// ListContainers lists the compose project's containers.
func (r *DockerRuntime) ListContainers(ctx context.Context) ([]model.ContainerInfo, error) {
	if err := r.init(ctx); err != nil {
		return nil, err
	}
	return r.client.ListProjectContainers(ctx, r.projectName)
}

// Close releases the Docker client, if one was created.
func (r *DockerRuntime) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}
