// clean.go implements the "memmachine-stack clean" command.
//
// Clean is the only destructive command: it removes the containers and
// their volumes, deleting every stored memory. It asks first, and only an
// answer of exactly "y" or "Y" proceeds.
package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// cleanFlags holds the flag values for the clean command.
type cleanFlags struct {
	// yes skips the confirmation prompt.
	yes bool
}

// NewCleanCommand creates the "clean" cobra command.
func NewCleanCommand() *cobra.Command {
	flags := &cleanFlags{}

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove all containers and volumes (deletes all data)",
		Long: `Remove the stack's containers and volumes. All data stored in
PostgreSQL, Neo4j and Ollama is deleted.

The command asks for confirmation; only "y" or "Y" proceeds.

Examples:
  memmachine-stack clean
  memmachine-stack clean --yes`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runClean(cmd, flags)
		},
	}

	cmd.Flags().BoolVarP(&flags.yes, "yes", "y", false, "Skip the confirmation prompt")

	return cmd
}

// runClean asks for confirmation and removes containers and volumes.
// Declining is not an error.
func runClean(cmd *cobra.Command, flags *cleanFlags) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctrl, closeFn := newController(cmd, cfg)
	defer closeFn()

	removed, err := ctrl.Clean(cmd.Context(), flags.yes)
	if err != nil {
		return err
	}

	printCleanResult(cmd.OutOrStdout(), cfg.ProjectName, removed)
	return nil
}

// printCleanResult outputs the clean result in text or JSON format.
func printCleanResult(w io.Writer, project string, removed bool) {
	if IsJSONOutput() {
		action := "cancelled"
		if removed {
			action = "cleaned"
		}
		printJSON(w, map[string]interface{}{
			"project": project,
			"action":  action,
		})
		return
	}
	if removed {
		fmt.Fprintf(w, "Removed containers and volumes for project %q.\n", project)
	}
}
