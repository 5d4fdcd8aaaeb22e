package stack

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memmachine/memmachine-stack/internal/config"
	"github.com/memmachine/memmachine-stack/internal/model"
	"github.com/memmachine/memmachine-stack/internal/poll"
	"github.com/memmachine/memmachine-stack/internal/poll/polltest"
	"github.com/memmachine/memmachine-stack/internal/port"
)

// fakeRuntime records every call as a short string such as
// "exec memmachine-postgres pg_isready" or "http http://.../docs".
type fakeRuntime struct {
	calls      []string
	checkErr   error
	upErr      error
	execFn     func(containerName string, cmd []string) (model.ExecResult, error)
	httpFn     func(url string) (int, error)
	containers []model.ContainerInfo
}

func (f *fakeRuntime) CheckRuntime(context.Context) error {
	f.calls = append(f.calls, "check")
	return f.checkErr
}

func (f *fakeRuntime) ComposeUp(context.Context) error {
	f.calls = append(f.calls, "up")
	return f.upErr
}

func (f *fakeRuntime) ComposeDown(_ context.Context, removeVolumes bool) error {
	if removeVolumes {
		f.calls = append(f.calls, "down -v")
	} else {
		f.calls = append(f.calls, "down")
	}
	return nil
}

func (f *fakeRuntime) ComposeRestart(context.Context) error {
	f.calls = append(f.calls, "restart")
	return nil
}

func (f *fakeRuntime) ComposeLogs(_ context.Context, follow bool, services []string) error {
	call := "logs"
	if follow {
		call += " -f"
	}
	if len(services) > 0 {
		call += " " + strings.Join(services, " ")
	}
	f.calls = append(f.calls, call)
	return nil
}

func (f *fakeRuntime) Exec(_ context.Context, containerName string, cmd []string) (model.ExecResult, error) {
	f.calls = append(f.calls, "exec "+containerName+" "+cmd[0])
	if f.execFn != nil {
		return f.execFn(containerName, cmd)
	}
	return model.ExecResult{}, nil
}

func (f *fakeRuntime) HTTPGet(_ context.Context, url string) (int, error) {
	f.calls = append(f.calls, "http "+url)
	if f.httpFn != nil {
		return f.httpFn(url)
	}
	return 200, nil
}

func (f *fakeRuntime) ListContainers(context.Context) ([]model.ContainerInfo, error) {
	f.calls = append(f.calls, "list")
	return f.containers, nil
}

// count returns how many recorded calls start with prefix.
func (f *fakeRuntime) count(prefix string) int {
	n := 0
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

// fakePrompter answers Confirm with a fixed value and counts prompts.
type fakePrompter struct {
	confirm      bool
	confirmCalls int
	enterCalls   int
}

func (p *fakePrompter) Confirm(string) (bool, error) {
	p.confirmCalls++
	return p.confirm, nil
}

func (p *fakePrompter) WaitForEnter(string) error {
	p.enterCalls++
	return nil
}

type fakePorts struct{ busy []port.Busy }

func (f fakePorts) BusyPorts(map[string]int) []port.Busy { return f.busy }

const (
	envTemplate    = "POSTGRES_USER=memmachine\nPOSTGRES_PASSWORD=memmachine_password\n"
	composeFile    = "services:\n  postgres:\n    image: pgvector/pgvector:pg16\n"
	configTemplate = "embedder:\n  e:\n    name: ollama\n    config:\n      model: nomic-embed-text\n"
)

// testEnv is a working directory with templates and a controller wired to
// fakes and a manual clock.
type testEnv struct {
	dir      string
	cfg      *config.Config
	rt       *fakeRuntime
	prompter *fakePrompter
	clock    *polltest.Clock
	ctrl     *Controller
	out      *bytes.Buffer
	errOut   *bytes.Buffer
}

func newTestEnv(t *testing.T, withEnv, withConfig bool) *testEnv {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sample_configs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.EnvTemplateName), []byte(envTemplate), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.ConfigTemplateName), []byte(configTemplate), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "docker-compose.yml"), []byte(composeFile), 0o644))
	if withEnv {
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(envTemplate), 0o644))
	}
	if withConfig {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "configuration.yml"), []byte(configTemplate), 0o644))
	}

	cfg, err := config.Load(config.Options{
		Dir:       dir,
		LookupEnv: func(string) (string, bool) { return "", false },
	})
	require.NoError(t, err)

	env := &testEnv{
		dir:      dir,
		cfg:      cfg,
		rt:       &fakeRuntime{},
		prompter: &fakePrompter{},
		clock:    polltest.NewClock(),
		out:      &bytes.Buffer{},
		errOut:   &bytes.Buffer{},
	}
	env.ctrl = &Controller{
		Runtime:  env.rt,
		Config:   cfg,
		Prompter: env.prompter,
		Poller:   poll.NewWithClock(env.clock, HealthTimeout, poll.DefaultInterval),
		Out:      env.out,
		Err:      env.errOut,
	}
	return env
}

// TestStart_EnvMissing verifies .env is created as an exact template copy
// and start exits cleanly without starting anything.
func TestStart_EnvMissing(t *testing.T) {
	env := newTestEnv(t, false, false)

	outcome, err := env.ctrl.Start(context.Background())

	require.NoError(t, err)
	assert.Equal(t, OutcomeEnvCreated, outcome)

	data, err := os.ReadFile(filepath.Join(env.dir, ".env"))
	require.NoError(t, err)
	assert.Equal(t, envTemplate, string(data))

	assert.Equal(t, 0, env.rt.count("up"), "no service may be started")
	assert.NoFileExists(t, filepath.Join(env.dir, "configuration.yml"), "stops before the config step")
	assert.Contains(t, env.out.String(), "Edit .env")
}

// TestStart_ConfigMissing verifies configuration.yml is created from its
// template and the health waits are never reached.
func TestStart_ConfigMissing(t *testing.T) {
	env := newTestEnv(t, true, false)

	outcome, err := env.ctrl.Start(context.Background())

	require.NoError(t, err)
	assert.Equal(t, OutcomeConfigCreated, outcome)

	data, err := os.ReadFile(filepath.Join(env.dir, "configuration.yml"))
	require.NoError(t, err)
	assert.Equal(t, configTemplate, string(data))

	assert.Equal(t, []string{"check"}, env.rt.calls)
}

// TestStart_AllHealthy verifies the full happy path and the order of the
// four health checks.
func TestStart_AllHealthy(t *testing.T) {
	env := newTestEnv(t, true, true)

	outcome, err := env.ctrl.Start(context.Background())

	require.NoError(t, err)
	assert.Equal(t, OutcomeStarted, outcome)
	assert.Equal(t, []string{
		"check",
		"up",
		"exec memmachine-postgres pg_isready",
		"exec memmachine-neo4j cypher-shell",
		"http http://localhost:11434/api/tags",
		"http http://localhost:8080/docs",
	}, env.rt.calls)
	assert.Equal(t, 0, env.prompter.enterCalls, "no placeholders, no prompt")
	assert.Contains(t, env.out.String(), "MemMachine is ready.")
}

// TestStart_DatabaseNeverReady verifies the first failed check is fatal:
// exit after ~120s and no later check is attempted.
func TestStart_DatabaseNeverReady(t *testing.T) {
	env := newTestEnv(t, true, true)
	env.rt.execFn = func(containerName string, cmd []string) (model.ExecResult, error) {
		return model.ExecResult{ExitCode: 2, Stdout: "/var/run/postgresql:5432 - no response"}, nil
	}
	start := env.clock.Now()

	_, err := env.ctrl.Start(context.Background())

	require.Error(t, err)
	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitGeneralError, cliErr.Code)
	assert.Equal(t, model.CauseTimeout, cliErr.Cause)
	assert.Contains(t, err.Error(), "PostgreSQL")
	assert.Contains(t, err.Error(), "no response")

	elapsed := env.clock.Now().Sub(start)
	assert.GreaterOrEqual(t, elapsed, HealthTimeout)
	assert.LessOrEqual(t, elapsed, HealthTimeout+poll.DefaultInterval)

	assert.Equal(t, 0, env.rt.count("exec memmachine-neo4j"))
	assert.Equal(t, 0, env.rt.count("http"))
}

// TestStart_LaterCheckFails verifies checks after a successful one still
// run and a failing HTTP probe stops the sequence.
func TestStart_LaterCheckFails(t *testing.T) {
	env := newTestEnv(t, true, true)
	env.rt.httpFn = func(url string) (int, error) {
		if strings.HasSuffix(url, "/api/tags") {
			return 503, nil
		}
		return 200, nil
	}

	_, err := env.ctrl.Start(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Ollama")
	assert.Equal(t, 1, env.rt.count("exec memmachine-postgres"))
	assert.Equal(t, 1, env.rt.count("exec memmachine-neo4j"))
	assert.Equal(t, 0, env.rt.count("http http://localhost:8080/docs"))
}

func TestStart_ServiceBecomesReady(t *testing.T) {
	env := newTestEnv(t, true, true)
	attempts := 0
	env.rt.execFn = func(containerName string, cmd []string) (model.ExecResult, error) {
		if containerName == "memmachine-neo4j" {
			attempts++
			if attempts < 4 {
				return model.ExecResult{}, errors.New("container is restarting")
			}
		}
		return model.ExecResult{}, nil
	}

	outcome, err := env.ctrl.Start(context.Background())

	require.NoError(t, err)
	assert.Equal(t, OutcomeStarted, outcome)
	assert.Equal(t, 4, env.rt.count("exec memmachine-neo4j"), "exactly N probes for success on attempt N")
}

func TestStart_RuntimeMissing(t *testing.T) {
	env := newTestEnv(t, false, false)
	env.rt.checkErr = model.PreconditionError("Docker Compose is not installed", nil)

	_, err := env.ctrl.Start(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Docker Compose")
	assert.NoFileExists(t, filepath.Join(env.dir, ".env"), "fails before touching files")
}

func TestStart_ComposeFileMissing(t *testing.T) {
	env := newTestEnv(t, false, false)
	require.NoError(t, os.Remove(filepath.Join(env.dir, "docker-compose.yml")))
	env.cfg.Paths.ComposeFile = ""

	_, err := env.ctrl.Start(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no compose file found")
	assert.NoFileExists(t, filepath.Join(env.dir, ".env"))
}

func TestStart_TemplateMissing(t *testing.T) {
	env := newTestEnv(t, false, false)
	require.NoError(t, os.Remove(filepath.Join(env.dir, config.EnvTemplateName)))

	_, err := env.ctrl.Start(context.Background())

	require.Error(t, err)
	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.CausePrecondition, cliErr.Cause)
	assert.Equal(t, 0, env.rt.count("up"))
}

// TestStart_PlaceholderWarning verifies placeholders produce a warning and
// an Enter prompt but never block the start.
func TestStart_PlaceholderWarning(t *testing.T) {
	env := newTestEnv(t, true, true)
	require.NoError(t, os.WriteFile(filepath.Join(env.dir, ".env"),
		[]byte("OPENAI_API_KEY=your_openai_api_key_here\n"), 0o644))

	outcome, err := env.ctrl.Start(context.Background())

	require.NoError(t, err)
	assert.Equal(t, OutcomeStarted, outcome)
	assert.Equal(t, 1, env.prompter.enterCalls)
	assert.Contains(t, env.errOut.String(), "your_openai_api_key_here")
	assert.Equal(t, 1, env.rt.count("up"))
}

func TestStart_PortWarning(t *testing.T) {
	env := newTestEnv(t, true, true)
	env.ctrl.Ports = fakePorts{busy: []port.Busy{{Service: "postgres", Port: 5432}}}

	_, err := env.ctrl.Start(context.Background())

	require.NoError(t, err)
	assert.Contains(t, env.errOut.String(), "postgres (port 5432)")
	assert.Equal(t, 1, env.rt.count("up"), "busy ports only warn")
}

func TestStart_ComposeUpFails(t *testing.T) {
	env := newTestEnv(t, true, true)
	env.rt.upErr = errors.New("compose up failed")

	_, err := env.ctrl.Start(context.Background())

	require.Error(t, err)
	assert.Equal(t, 0, env.rt.count("exec"))
}

// TestClean_Confirmation verifies the destructive command runs if and only
// if the answer is exactly "y" or "Y".
func TestClean_Confirmation(t *testing.T) {
	tests := []struct {
		input   string
		removed bool
	}{
		{"y\n", true},
		{"Y\n", true},
		{"y\r\n", true},
		{"Y", true},
		{"n\n", false},
		{"yes\n", false},
		{" y\n", false},
		{"\n", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			env := newTestEnv(t, true, true)
			env.ctrl.Prompter = NewReaderPrompter(strings.NewReader(tt.input), env.out)

			removed, err := env.ctrl.Clean(context.Background(), false)

			require.NoError(t, err)
			assert.Equal(t, tt.removed, removed)
			if tt.removed {
				assert.Equal(t, 1, env.rt.count("down -v"))
			} else {
				assert.Empty(t, env.rt.calls, "declining takes no action")
				assert.Contains(t, env.out.String(), "Cleanup cancelled.")
			}
		})
	}
}

func TestClean_SkipConfirm(t *testing.T) {
	env := newTestEnv(t, true, true)

	removed, err := env.ctrl.Clean(context.Background(), true)

	require.NoError(t, err)
	assert.True(t, removed)
	assert.Equal(t, 0, env.prompter.confirmCalls)
	assert.Equal(t, []string{"check", "down -v"}, env.rt.calls)
}

func TestStopRestartLogs(t *testing.T) {
	env := newTestEnv(t, true, true)
	ctx := context.Background()

	require.NoError(t, env.ctrl.Stop(ctx))
	require.NoError(t, env.ctrl.Restart(ctx))
	require.NoError(t, env.ctrl.Logs(ctx, true, []string{"memmachine"}))
	require.NoError(t, env.ctrl.Logs(ctx, false, nil))

	assert.Equal(t, []string{
		"check", "down",
		"check", "restart",
		"check", "logs -f memmachine",
		"check", "logs",
	}, env.rt.calls)
}

func TestStop_RuntimeMissing(t *testing.T) {
	env := newTestEnv(t, true, true)
	env.rt.checkErr = errors.New("docker not found")

	require.Error(t, env.ctrl.Stop(context.Background()))
	assert.Equal(t, []string{"check"}, env.rt.calls)
}

func TestStatus(t *testing.T) {
	env := newTestEnv(t, true, true)
	env.rt.containers = []model.ContainerInfo{
		{ContainerName: "memmachine-postgres", ServiceName: "postgres", State: model.StateRunning},
	}

	containers, err := env.ctrl.Status(context.Background())

	require.NoError(t, err)
	require.Len(t, containers, 1)
	assert.Equal(t, "postgres", containers[0].ServiceName)
}

func TestEnsureFile(t *testing.T) {
	dir := t.TempDir()
	tmpl := filepath.Join(dir, "tmpl")
	target := filepath.Join(dir, "target")
	require.NoError(t, os.WriteFile(tmpl, []byte("A=1\n"), 0o600))

	created, err := EnsureFile(target, tmpl)
	require.NoError(t, err)
	assert.True(t, created)

	info, err := os.Stat(target)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm(), "template permissions are kept")

	// An existing file is never overwritten.
	require.NoError(t, os.WriteFile(target, []byte("edited\n"), 0o600))
	created, err = EnsureFile(target, tmpl)
	require.NoError(t, err)
	assert.False(t, created)
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "edited\n", string(data))
}
