// stop.go implements the "memmachine-stack stop" and
// "memmachine-stack restart" commands.
//
// Stop removes the stack's containers with "compose down" and keeps the
// data volumes, so the next start picks up where it left off. Restart
// restarts the running services in place.
package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// NewStopCommand creates the "stop" cobra command.
func NewStopCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop all services, keeping their data",
		Long: `Stop and remove the stack's containers. Volumes are kept, so
PostgreSQL, Neo4j and Ollama data survive until "clean" is run.

Examples:
  memmachine-stack stop
  memmachine-stack stop --json`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runLifecycle(cmd, "stopped")
		},
	}

	return cmd
}

// NewRestartCommand creates the "restart" cobra command.
func NewRestartCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restart",
		Short: "Restart all services",
		Long: `Restart every service of the stack in place.

Examples:
  memmachine-stack restart`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runLifecycle(cmd, "restarted")
		},
	}

	return cmd
}

// runLifecycle runs stop or restart, selected by action.
func runLifecycle(cmd *cobra.Command, action string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctrl, closeFn := newController(cmd, cfg)
	defer closeFn()

	if action == "restarted" {
		err = ctrl.Restart(cmd.Context())
	} else {
		err = ctrl.Stop(cmd.Context())
	}
	if err != nil {
		return err
	}

	printLifecycleResult(cmd.OutOrStdout(), cfg.ProjectName, action)
	return nil
}

// printLifecycleResult outputs the result in text or JSON format.
func printLifecycleResult(w io.Writer, project, action string) {
	if IsJSONOutput() {
		printJSON(w, map[string]interface{}{
			"project": project,
			"action":  action,
		})
		return
	}
	fmt.Fprintf(w, "Services %s (project %q).\n", action, project)
}
