// controller.go implements the stack lifecycle behind each subcommand.
//
// The Controller owns the ordering rules: preflight checks run before any
// container is touched, and the four health waits run one at a time in a
// fixed order so that a dependency failure is reported against the first
// service that did not come up. All side effects go through Runtime and
// Prompter, so tests drive the whole sequence with fakes.
package stack

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/memmachine/memmachine-stack/internal/config"
	"github.com/memmachine/memmachine-stack/internal/model"
	"github.com/memmachine/memmachine-stack/internal/poll"
	"github.com/memmachine/memmachine-stack/internal/port"
	"github.com/memmachine/memmachine-stack/internal/secrets"
)

// HealthTimeout is the per-service readiness budget during start.
const HealthTimeout = 120 * time.Second

// Outcome says how Start finished without error.
type Outcome int

const (
	// OutcomeStarted means every service passed its health check.
	OutcomeStarted Outcome = iota

	// OutcomeEnvCreated means .env was created from its template and the
	// operator must edit it before starting again.
	OutcomeEnvCreated

	// OutcomeConfigCreated is the same pause for configuration.yml.
	OutcomeConfigCreated
)

// PortChecker reports host ports that are already bound.
type PortChecker interface {
	BusyPorts(ports map[string]int) []port.Busy
}

// Controller runs stack lifecycle operations.
type Controller struct {
	// Runtime performs every container and compose side effect.
	Runtime Runtime

	// Config is the loaded, read-only configuration record.
	Config *config.Config

	// Prompter asks the operator questions. Nil means no terminal is
	// available: warnings never block and clean refuses to run unconfirmed.
	Prompter Prompter

	// Poller paces the health waits. Its timeout applies to each service
	// separately, not to the whole sequence.
	Poller *poll.Poller

	// Ports, when set, enables the host-port preflight warning.
	Ports PortChecker

	// Out receives progress; Err receives warnings.
	Out io.Writer
	Err io.Writer
}

// NewController wires a controller with the 120s health budget and the
// real host port scanner. Tests build a Controller literal instead so they
// can inject a fake clock and fake ports.
func NewController(rt Runtime, cfg *config.Config, prompter Prompter, out, errOut io.Writer) *Controller {
	return &Controller{
		Runtime:  rt,
		Config:   cfg,
		Prompter: prompter,
		Poller:   poll.New(HealthTimeout, poll.DefaultInterval),
		Ports:    port.NewScanner(),
		Out:      out,
		Err:      errOut,
	}
}

// out returns the progress writer, discarding output when none is set.
func (c *Controller) out() io.Writer {
	if c.Out == nil {
		return io.Discard
	}
	return c.Out
}

// errOut returns the warning writer, falling back to the progress writer.
func (c *Controller) errOut() io.Writer {
	if c.Err == nil {
		return c.out()
	}
	return c.Err
}

// Start runs the ordered, fail-fast start sequence:
//  1. container runtime, compose tool and compose file present
//  2. .env present, else created from its template (pause, exit 0)
//  3. configuration.yml present, else created from its template (pause)
//  4. placeholder secrets: warn and wait for Enter, never fail
//  5. host ports already bound: warn only
//  6. compose up -d
//  7. PostgreSQL, Neo4j, Ollama, MemMachine readiness, one at a time;
//     the first timeout aborts the rest
func (c *Controller) Start(ctx context.Context) (Outcome, error) {
	cfg := c.Config
	out := c.out()

	// Step 1: Verify the runtime and compose tooling before touching any
	// file, so a missing Docker install never leaves a fresh .env behind.
	fmt.Fprintln(out, "Checking container runtime...")
	if err := c.Runtime.CheckRuntime(ctx); err != nil {
		return OutcomeStarted, err
	}

	// Load records the compose file it found. An empty path means none
	// existed at load time; look again in case it was created since.
	if cfg.Paths.ComposeFile == "" {
		if _, err := config.FindComposeFile(cfg.Paths.WorkDir); err != nil {
			return OutcomeStarted, err
		}
	}

	// Step 2: Bootstrap .env. A freshly copied template still holds sample
	// values, so stop here and let the operator edit it first.
	created, err := EnsureFile(cfg.Paths.EnvFile, cfg.Paths.EnvTemplate)
	if err != nil {
		return OutcomeStarted, err
	}
	if created {
		fmt.Fprintf(out, "Created %s from %s.\n", rel(cfg, cfg.Paths.EnvFile), rel(cfg, cfg.Paths.EnvTemplate))
		fmt.Fprintf(out, "Edit %s with your settings, then run start again.\n", rel(cfg, cfg.Paths.EnvFile))
		return OutcomeEnvCreated, nil
	}

	// Step 3: Same for configuration.yml. Only one file is created per run.
	created, err = EnsureFile(cfg.Paths.ConfigFile, cfg.Paths.ConfigTemplate)
	if err != nil {
		return OutcomeStarted, err
	}
	if created {
		fmt.Fprintf(out, "Created %s from %s.\n", rel(cfg, cfg.Paths.ConfigFile), rel(cfg, cfg.Paths.ConfigTemplate))
		fmt.Fprintf(out, "Edit %s with your settings, then run start again.\n", rel(cfg, cfg.Paths.ConfigFile))
		return OutcomeConfigCreated, nil
	}

	// Step 4: Warn about placeholder credentials. This only pauses; the
	// operator may still start a stack that does not need those services.
	if err := c.checkPlaceholders(); err != nil {
		return OutcomeStarted, err
	}

	// Step 5: Warn about bound host ports. A running stack holds its own
	// ports, so a conflict here is not necessarily fatal.
	c.checkPorts()

	// Step 6: Bring the services up detached. Compose handles container
	// creation order and network setup.
	fmt.Fprintln(out, "Starting services...")
	if err := c.Runtime.ComposeUp(ctx); err != nil {
		return OutcomeStarted, err
	}

	// Step 7: Wait for each service in dependency order.
	if err := c.WaitForServices(ctx); err != nil {
		return OutcomeStarted, err
	}
	return OutcomeStarted, nil
}

// WaitForServices runs the health checks sequentially. Checks never run
// concurrently and the first failure is fatal.
func (c *Controller) WaitForServices(ctx context.Context) error {
	out := c.out()
	for _, hc := range HealthChecks(c.Runtime, c.Config) {
		fmt.Fprintf(out, "Waiting for %s...\n", hc.Name)
		if _, err := c.Poller.Wait(ctx, hc.Name, hc.Probe); err != nil {
			// Only the deadline becomes a timeout error. Cancellation is
			// returned as is so the CLI can report an interrupt.
			if errors.Is(err, poll.ErrTimeout) {
				return model.TimeoutError(
					fmt.Sprintf("%s failed to become ready within %s", hc.Name, c.Poller.Timeout()), err)
			}
			return err
		}
		fmt.Fprintf(out, "%s is ready.\n", hc.Name)
	}
	return nil
}

// checkPlaceholders scans .env and configuration.yml for sample
// credentials. Findings are printed with paths relative to the working
// directory, then the operator is asked to press Enter. Without a prompter
// the warning is printed and start continues.
func (c *Controller) checkPlaceholders() error {
	findings, err := secrets.ScanFiles(c.Config.Paths.EnvFile, c.Config.Paths.ConfigFile)
	if err != nil {
		return err
	}
	if len(findings) == 0 {
		return nil
	}

	w := c.errOut()
	fmt.Fprintln(w, "Warning: placeholder values found in your configuration:")
	for _, f := range findings {
		fmt.Fprintf(w, "  %s:%d: %s\n", rel(c.Config, f.File), f.Line, f.Placeholder)
	}
	fmt.Fprintln(w, "Services that need these credentials will not work until they are replaced.")

	if c.Prompter == nil {
		return nil
	}
	return c.Prompter.WaitForEnter("Press Enter to continue anyway, or Ctrl-C to abort... ")
}

// checkPorts prints a warning listing published host ports that are
// already bound. It never fails the start.
func (c *Controller) checkPorts() {
	if c.Ports == nil {
		return
	}
	busy := c.Ports.BusyPorts(c.Config.HostPorts())
	if len(busy) == 0 {
		return
	}
	w := c.errOut()
	fmt.Fprintln(w, "Warning: these host ports are already in use (the stack may already be running):")
	for _, b := range busy {
		fmt.Fprintf(w, "  %s\n", b)
	}
}

// Stop removes the stack's containers, keeping volumes.
func (c *Controller) Stop(ctx context.Context) error {
	if err := c.Runtime.CheckRuntime(ctx); err != nil {
		return err
	}
	fmt.Fprintln(c.out(), "Stopping services...")
	return c.Runtime.ComposeDown(ctx, false)
}

// Restart restarts every service in place.
func (c *Controller) Restart(ctx context.Context) error {
	if err := c.Runtime.CheckRuntime(ctx); err != nil {
		return err
	}
	fmt.Fprintln(c.out(), "Restarting services...")
	return c.Runtime.ComposeRestart(ctx)
}

// Logs streams service logs.
func (c *Controller) Logs(ctx context.Context, follow bool, services []string) error {
	if err := c.Runtime.CheckRuntime(ctx); err != nil {
		return err
	}
	return c.Runtime.ComposeLogs(ctx, follow, services)
}

// Clean removes containers and volumes, deleting all stored data. Unless
// skipConfirm is set the operator must answer exactly "y" or "Y"; any other
// answer prints a cancellation message and does nothing. The returned bool
// reports whether the destructive command ran.
func (c *Controller) Clean(ctx context.Context, skipConfirm bool) (bool, error) {
	// Confirmation comes before the runtime check so a declined clean does
	// nothing at all, not even a daemon ping.
	if !skipConfirm {
		if c.Prompter == nil {
			return false, model.PreconditionError("clean requires confirmation but no prompt is available", nil)
		}
		fmt.Fprintln(c.errOut(), "This will remove all containers and volumes. All stored memories will be lost.")
		ok, err := c.Prompter.Confirm("Remove all containers and volumes?")
		if err != nil {
			return false, err
		}
		if !ok {
			fmt.Fprintln(c.out(), "Cleanup cancelled.")
			return false, nil
		}
	}

	if err := c.Runtime.CheckRuntime(ctx); err != nil {
		return false, err
	}
	fmt.Fprintln(c.out(), "Removing containers and volumes...")
	if err := c.Runtime.ComposeDown(ctx, true); err != nil {
		return false, err
	}
	return true, nil
}

// Status lists the stack's containers.
func (c *Controller) Status(ctx context.Context) ([]model.ContainerInfo, error) {
	if err := c.Runtime.CheckRuntime(ctx); err != nil {
		return nil, err
	}
	return c.Runtime.ListContainers(ctx)
}

// EnsureFile copies template to path byte-for-byte when path does not
// exist. It reports whether the file was created. A missing template is a
// precondition error. An existing path is never overwritten.
func EnsureFile(path, template string) (bool, error) {
	// An existing file always wins, even if it is empty.
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("failed to check %s: %w", path, err)
	}

	data, err := os.ReadFile(template)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, model.PreconditionError(
				fmt.Sprintf("%s is missing and its template %s was not found", filepath.Base(path), template), err)
		}
		return false, fmt.Errorf("failed to read template %s: %w", template, err)
	}

	// Keep the template's permissions so a 0600 .env.example stays private.
	mode := fs.FileMode(0o644)
	if info, err := os.Stat(template); err == nil {
		mode = info.Mode().Perm()
	}

	// O_EXCL closes the window between the Stat above and the create, so a
	// file written concurrently is never clobbered.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, mode)
	if err != nil {
		return false, fmt.Errorf("failed to create %s: %w", path, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return false, fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return true, nil
}

// rel shortens path relative to the working directory for messages.
func rel(cfg *config.Config, path string) string {
	if r, err := filepath.Rel(cfg.Paths.WorkDir, path); err == nil {
		return r
	}
	return path
}
