// status.go implements the "memmachine-stack status" command.
//
// The status command lists the compose project's containers by querying
// Docker for the com.docker.compose.project label, and prints them as a
// text table or JSON document depending on the --json flag.
package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/memmachine/memmachine-stack/internal/docker"
	"github.com/memmachine/memmachine-stack/internal/model"
)

// NewStatusCommand creates the "status" cobra command.
func NewStatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the state of the stack's containers",
		Long: `List every container of the compose project with its state.

Examples:
  memmachine-stack status
  memmachine-stack status --json`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd)
		},
	}

	return cmd
}

func runStatus(cmd *cobra.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctrl, closeFn := newController(cmd, cfg)
	defer closeFn()

	containers, err := ctrl.Status(cmd.Context())
	if err != nil {
		return err
	}
	VerboseLog("Found %d containers for project %q", len(containers), cfg.ProjectName)

	printStatusResult(cmd.OutOrStdout(), cfg.ProjectName, containers)
	return nil
}

// printStatusResult outputs the container list in text or JSON format.
func printStatusResult(w io.Writer, project string, containers []model.ContainerInfo) {
	if IsJSONOutput() {
		printStatusResultJSON(w, project, containers)
	} else {
		printStatusResultText(w, project, containers)
	}
}

// statusContainerJSON is the JSON form of one container. Labels are left
// out; they are noise for an operator.
type statusContainerJSON struct {
	Service string `json:"service"`
	Name    string `json:"name"`
	Image   string `json:"image"`
	State   string `json:"state"`
	Status  string `json:"status"`
}

func printStatusResultJSON(w io.Writer, project string, containers []model.ContainerInfo) {
	type resultJSON struct {
		Project    string                `json:"project"`
		Running    int                   `json:"running"`
		Containers []statusContainerJSON `json:"containers"`
	}

	result := resultJSON{
		Project: project,
		Running: docker.CountRunning(containers),
		// An empty slice keeps the JSON output [] instead of null.
		Containers: make([]statusContainerJSON, 0, len(containers)),
	}
	for _, c := range containers {
		result.Containers = append(result.Containers, statusContainerJSON{
			Service: c.ServiceName,
			Name:    c.ContainerName,
			Image:   c.Image,
			State:   c.State.String(),
			Status:  c.Status,
		})
	}
	printJSON(w, result)
}

// printStatusResultText outputs the containers as a fixed-width table:
//
//	SERVICE      CONTAINER             STATE     STATUS
//	postgres     memmachine-postgres   running   Up 2 minutes (healthy)
func printStatusResultText(w io.Writer, project string, containers []model.ContainerInfo) {
	if len(containers) == 0 {
		fmt.Fprintf(w, "No containers found for project %q. Run \"memmachine-stack start\".\n", project)
		return
	}

	fmt.Fprintf(w, "%-12s %-22s %-10s %s\n", "SERVICE", "CONTAINER", "STATE", "STATUS")
	for _, c := range containers {
		service := c.ServiceName
		if service == "" {
			service = "-"
		}
		fmt.Fprintf(w, "%-12s %-22s %-10s %s\n", service, c.ContainerName, c.State.String(), c.Status)
	}
	fmt.Fprintf(w, "\n%d of %d containers running.\n", docker.CountRunning(containers), len(containers))
}
