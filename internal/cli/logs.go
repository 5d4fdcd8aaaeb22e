// logs.go implements the "memmachine-stack logs" command.
package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
)

// logsFlags holds the flag values for the logs command.
type logsFlags struct {
	// noFollow prints the current logs and exits instead of streaming.
	noFollow bool
}

// NewLogsCommand creates the "logs" cobra command.
func NewLogsCommand() *cobra.Command {
	flags := &logsFlags{}

	cmd := &cobra.Command{
		Use:   "logs [service...]",
		Short: "Follow service logs",
		Long: `Stream the logs of every service, or only of the named services.
Press Ctrl-C to stop following.

Examples:
  memmachine-stack logs
  memmachine-stack logs memmachine
  memmachine-stack logs --no-follow postgres neo4j`,

		Args: cobra.ArbitraryArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogs(cmd, flags, args)
		},
	}

	cmd.Flags().BoolVar(&flags.noFollow, "no-follow", false, "Print current logs and exit")

	return cmd
}

// runLogs streams compose logs until the command exits or the operator
// interrupts it. An interrupt while following is a normal way to stop.
func runLogs(cmd *cobra.Command, flags *logsFlags, services []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctrl, closeFn := newController(cmd, cfg)
	defer closeFn()

	err = ctrl.Logs(cmd.Context(), !flags.noFollow, services)
	if err != nil && !flags.noFollow && errors.Is(cmd.Context().Err(), context.Canceled) {
		return nil
	}
	return err
}
