// controller.go wires the stack controller to the Docker
// runtime and the terminal.
package cli

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/memmachine/memmachine-stack/internal/config"
	"github.com/memmachine/memmachine-stack/internal/stack"
)

// newController builds a stack controller backed by Docker for cfg. The
// returned func releases the Docker client and must be deferred.
func newController(cmd *cobra.Command, cfg *config.Config) (*stack.Controller, func()) {
	rt := stack.NewDockerRuntime(cfg.Paths.WorkDir, cfg.ProjectName)
	out := progressWriter(cmd)

	ctrl := stack.NewController(rt, cfg,
		newPrompter(cmd.InOrStdin(), out),
		out, cmd.ErrOrStderr())
	ctrl.Poller.OnAttempt = verboseAttempt

	return ctrl, func() { _ = rt.Close() }
}

// newPrompter reads answers from in. When in is a file that is not a
// terminal (CI, a pipe), the "press Enter" pause is skipped so an
// unattended start never hangs; confirmations are still read, so
// "echo y | memmachine-stack clean" works.
func newPrompter(in io.Reader, out io.Writer) stack.Prompter {
	p := stack.NewReaderPrompter(in, out)
	if f, ok := in.(*os.File); ok && !isTerminal(f) {
		VerboseLog("stdin is not a terminal, not pausing for Enter")
		return unattendedPrompter{p}
	}
	return p
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// unattendedPrompter confirms through the wrapped Prompter but never waits
// for Enter.
type unattendedPrompter struct {
	stack.Prompter
}

func (unattendedPrompter) WaitForEnter(string) error {
	return nil
}
