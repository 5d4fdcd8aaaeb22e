// Package cli implements the cobra-based commands for the memmachine-stack
// and ollama-pull binaries.
//
// Each memmachine-stack subcommand (start, stop, restart, logs, clean,
// status) is defined in its own file within this package. This file defines
// the root command, the global flags shared by every subcommand, and the
// error-to-exit-code mapping.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/memmachine/memmachine-stack/internal/config"
	"github.com/memmachine/memmachine-stack/internal/model"
)

// Global flag variables shared across all subcommands.
// These are bound to cobra persistent flags on the root command,
// which makes them available to every subcommand automatically.
var (
	// jsonOutput controls whether command output is formatted as JSON.
	// Progress messages move to stderr so stdout stays machine readable.
	jsonOutput bool

	// verbose enables detailed logging output for debugging.
	// When true, every poll attempt and resolved setting is printed to stderr.
	verbose bool

	// workDir is the directory holding docker-compose.yml, .env and
	// configuration.yml. Empty means the current directory.
	workDir string

	// projectName overrides the compose project name.
	projectName string
)

// Version, Commit, and Date are set at build time via ldflags.
// They are injected from the main package to display version information.
var (
	// Version is the semantic version of the binary (e.g., "1.0.0").
	Version = "dev"

	// Commit is the Git commit hash the binary was built from.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// NewRootCommand creates the memmachine-stack root command.
//
// Running the root command with no subcommand is the same as "start".
// Any other positional argument is an unknown command and exits 1.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "memmachine-stack",
		Short: "Run the MemMachine service stack with Docker Compose",
		Long: `memmachine-stack brings up the MemMachine memory server together with
PostgreSQL, Neo4j and Ollama, and waits until every service is ready.

Running it without a subcommand is the same as "memmachine-stack start".`,

		// A bare positional argument that is not a subcommand ends up here.
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return model.NewCLIError(model.ExitGeneralError,
					fmt.Sprintf("unknown command %q\nRun '%s help' for usage.", args[0], cmd.CommandPath()))
			}
			return nil
		},

		RunE: func(cmd *cobra.Command, args []string) error {
			return runStart(cmd)
		},

		// SilenceUsage prevents cobra from printing usage on every error.
		// We handle error output ourselves for cleaner UX.
		SilenceUsage: true,

		// SilenceErrors prevents cobra from printing errors automatically.
		// We format errors ourselves (text or JSON based on --json flag).
		SilenceErrors: true,

		Version: versionString(),
	}

	addGlobalFlags(rootCmd)

	rootCmd.AddCommand(NewStartCommand())
	rootCmd.AddCommand(NewStopCommand())
	rootCmd.AddCommand(NewRestartCommand())
	rootCmd.AddCommand(NewLogsCommand())
	rootCmd.AddCommand(NewCleanCommand())
	rootCmd.AddCommand(NewStatusCommand())

	return rootCmd
}

// addGlobalFlags registers the persistent flags both binaries share.
func addGlobalFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	cmd.PersistentFlags().StringVarP(&workDir, "dir", "C", "",
		"Directory containing docker-compose.yml, .env and configuration.yml (default: current directory)")
	cmd.PersistentFlags().StringVarP(&projectName, "project", "p", "",
		"Compose project name (default: COMPOSE_PROJECT_NAME or \"memmachine\")")
}

func versionString() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date)
}

// Execute runs rootCmd with a context that is cancelled on SIGINT or
// SIGTERM, then exits the process with the code mapped from the error.
// This is the main entry point called from main.go.
func Execute(rootCmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		reportError(os.Stderr, err)
	}
	os.Exit(int(ExitCodeFor(err)))
}

// ExitCodeFor maps a command error to the process exit code. CLIError
// carries its own code; any other error is a general failure.
func ExitCodeFor(err error) model.ExitCode {
	if err == nil {
		return model.ExitSuccess
	}
	var cliErr *model.CLIError
	if errors.As(err, &cliErr) {
		return cliErr.Code
	}
	return model.ExitGeneralError
}

// reportError prints err in the format selected by --json.
func reportError(w io.Writer, err error) {
	var cliErr *model.CLIError
	if errors.As(err, &cliErr) {
		printError(w, cliErr.Message, cliErr.Err)
		return
	}
	if errors.Is(err, context.Canceled) {
		printError(w, "interrupted", nil)
		return
	}
	printError(w, err.Error(), nil)
}

// printError outputs an error message in the appropriate format
// (JSON or text) based on the --json global flag.
func printError(w io.Writer, message string, underlying error) {
	if jsonOutput {
		errObj := map[string]interface{}{
			"error": map[string]interface{}{
				"message": message,
			},
		}
		if underlying != nil {
			if errMap, ok := errObj["error"].(map[string]interface{}); ok {
				errMap["detail"] = underlying.Error()
			}
		}
		// Errors go to stderr even in JSON mode; stdout is reserved for
		// successful command output.
		data, _ := json.MarshalIndent(errObj, "", "  ")
		fmt.Fprintln(w, string(data))
		return
	}

	if underlying != nil {
		fmt.Fprintf(w, "Error: %s: %v\n", message, underlying)
	} else {
		fmt.Fprintf(w, "Error: %s\n", message)
	}
}

// VerboseLog prints a message to stderr only when verbose mode is enabled.
func VerboseLog(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, "[verbose] "+format+"\n", args...)
	}
}

// verboseAttempt is a poll.Poller OnAttempt hook that logs failed probes.
func verboseAttempt(name string, attempt int, elapsed time.Duration, err error) {
	if err != nil {
		VerboseLog("%s attempt %d after %s: %v", name, attempt, elapsed.Round(time.Second), err)
	}
}

// IsJSONOutput returns whether the --json flag is set.
// Subcommands use this to decide their output format.
func IsJSONOutput() bool {
	return jsonOutput
}

// loadConfig builds the configuration record for the selected directory
// and applies the --project override.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(config.Options{Dir: workDir, ProjectName: projectName})
	if err != nil {
		return nil, model.PreconditionError("failed to load configuration", err)
	}
	VerboseLog("Working directory: %s", cfg.Paths.WorkDir)
	VerboseLog("Compose project: %s", cfg.ProjectName)
	if !cfg.EnvFileLoaded {
		VerboseLog("%s not found, using environment and defaults", config.EnvFileName)
	}
	return cfg, nil
}

// progressWriter is where human progress messages go: stdout normally,
// stderr in JSON mode.
func progressWriter(cmd *cobra.Command) io.Writer {
	if IsJSONOutput() {
		return cmd.ErrOrStderr()
	}
	return cmd.OutOrStdout()
}

// printJSON writes v as indented JSON to w.
func printJSON(w io.Writer, v interface{}) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Fprintln(w, string(data))
}
