package stack

import (
	"context"
	"fmt"
	"strings"

	"github.com/memmachine/memmachine-stack/internal/config"
	"github.com/memmachine/memmachine-stack/internal/poll"
)

// HealthCheck is one dependency the start sequence waits for.
type HealthCheck struct {
	// Name is shown to the operator ("PostgreSQL").
	Name string

	// Probe reports readiness.
	Probe poll.Probe
}

// HealthChecks returns the four readiness checks in the order the start
// sequence runs them: PostgreSQL, Neo4j, Ollama, then the MemMachine API.
func HealthChecks(rt Runtime, cfg *config.Config) []HealthCheck {
	return []HealthCheck{
		{
			Name: "PostgreSQL",
			Probe: ExecProbe(rt, cfg.Containers.Postgres,
				"pg_isready", "-U", cfg.Postgres.User, "-d", cfg.Postgres.Database),
		},
		{
			Name: "Neo4j",
			Probe: ExecProbe(rt, cfg.Containers.Neo4j,
				"cypher-shell", "-u", cfg.Neo4j.User, "-p", cfg.Neo4j.Password, "RETURN 1"),
		},
		{
			Name:  "Ollama",
			Probe: HTTPProbe(rt, cfg.OllamaURL()+"/api/tags"),
		},
		{
			Name:  "MemMachine",
			Probe: HTTPProbe(rt, cfg.ServerURL()+"/docs"),
		},
	}
}

// ExecProbe is ready when cmd exits 0 inside the container.
func ExecProbe(rt Runtime, containerName string, cmd ...string) poll.Probe {
	return func(ctx context.Context) error {
		res, err := rt.Exec(ctx, containerName, cmd)
		if err != nil {
			return err
		}
		if !res.OK() {
			detail := strings.TrimSpace(res.Stderr)
			if detail == "" {
				detail = strings.TrimSpace(res.Stdout)
			}
			if detail != "" {
				return fmt.Errorf("%s exited with status %d: %s", cmd[0], res.ExitCode, detail)
			}
			return fmt.Errorf("%s exited with status %d", cmd[0], res.ExitCode)
		}
		return nil
	}
}

// HTTPProbe is ready only on a 2xx response.
func HTTPProbe(rt Runtime, url string) poll.Probe {
	return func(ctx context.Context) error {
		status, err := rt.HTTPGet(ctx, url)
		if err != nil {
			return err
		}
		if status < 200 || status > 299 {
			return fmt.Errorf("GET %s: status %d", url, status)
		}
		return nil
	}
}
