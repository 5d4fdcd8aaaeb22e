// start.go implements the "memmachine-stack start" command.
//
// Start is also what the root command runs when no subcommand is given.
// The heavy lifting lives in stack.Controller.Start; this file only loads
// the configuration, maps the outcome to output, and prints the service
// information once every health check has passed.
package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/memmachine/memmachine-stack/internal/model"
	"github.com/memmachine/memmachine-stack/internal/stack"
)

// NewStartCommand creates the "start" cobra command.
func NewStartCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start all services and wait until they are ready",
		Long: `Start PostgreSQL, Neo4j, Ollama and MemMachine with Docker Compose.

On first run .env and configuration.yml are created from the templates in
sample_configs/ and the command stops so they can be edited. Once both files
exist, the stack is started and each service is given 120 seconds to become
ready.

Examples:
  memmachine-stack
  memmachine-stack start
  memmachine-stack start --json`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runStart(cmd)
		},
	}

	return cmd
}

// runStart is the main logic function for the start command.
func runStart(cmd *cobra.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctrl, closeFn := newController(cmd, cfg)
	defer closeFn()

	outcome, err := ctrl.Start(cmd.Context())
	if err != nil {
		return err
	}

	// A freshly created file is a benign stop: the operator edits it and
	// runs start again.
	switch outcome {
	case stack.OutcomeEnvCreated:
		printStartPaused(cmd.OutOrStdout(), "env_created", cfg.Paths.EnvFile)
		return nil
	case stack.OutcomeConfigCreated:
		printStartPaused(cmd.OutOrStdout(), "config_created", cfg.Paths.ConfigFile)
		return nil
	}

	info := stack.BuildServiceInfo(cfg)
	if IsJSONOutput() {
		printJSON(cmd.OutOrStdout(), startResultJSON{
			Status:      "running",
			Project:     cfg.ProjectName,
			Endpoints:   info.Endpoints,
			Credentials: info.Credentials,
			Model:       info.Model,
		})
		return nil
	}
	printServiceInfoText(cmd.OutOrStdout(), info)
	return nil
}

// startResultJSON is the --json document printed by start.
type startResultJSON struct {
	Status      string                  `json:"status"`
	Project     string                  `json:"project,omitempty"`
	File        string                  `json:"file,omitempty"`
	Endpoints   []model.ServiceEndpoint `json:"endpoints,omitempty"`
	Credentials []model.Credential      `json:"credentials,omitempty"`
	Model       string                  `json:"model,omitempty"`
}

// printStartPaused reports a created file in JSON mode. The text message
// was already printed by the controller.
func printStartPaused(w io.Writer, status, file string) {
	if IsJSONOutput() {
		printJSON(w, startResultJSON{Status: status, File: file})
	}
}

// printServiceInfoText outputs the endpoints, credentials and operator
// hints shown once the stack is ready.
//
// The format is:
//
//	MemMachine is running.
//
//	Services:
//	  MemMachine API   http://localhost:8080
//	  ...
func printServiceInfoText(w io.Writer, info stack.ServiceInfo) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "MemMachine is running.")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Services:")
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	for _, e := range info.Endpoints {
		fmt.Fprintf(tw, "  %s\t%s\n", e.Name, e.URL)
	}
	_ = tw.Flush()
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Credentials:")
	tw = tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	for _, c := range info.Credentials {
		line := fmt.Sprintf("  %s\tuser=%s\tpassword=%s", c.Service, c.Username, c.Password)
		if c.Database != "" {
			line += "\tdatabase=" + c.Database
		}
		fmt.Fprintln(tw, line)
	}
	_ = tw.Flush()
	fmt.Fprintln(w)

	if info.Model != "" {
		fmt.Fprintf(w, "Embedding model: %s\n", info.Model)
		fmt.Fprintln(w, "  (run ollama-pull if the model has not been downloaded yet)")
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "Useful commands:")
	fmt.Fprintln(w, "  memmachine-stack logs      Follow service logs")
	fmt.Fprintln(w, "  memmachine-stack status    Show container state")
	fmt.Fprintln(w, "  memmachine-stack stop      Stop all services")
	fmt.Fprintln(w, "  memmachine-stack clean     Remove containers and all data")
}
