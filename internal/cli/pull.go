// pull.go implements the ollama-pull command.
//
// ollama-pull waits for the Ollama HTTP API to answer and then runs
// "ollama pull <model>" once inside the Ollama container. It is its own
// binary so it can run as a one-shot job next to the stack.
package cli

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/memmachine/memmachine-stack/internal/config"
	"github.com/memmachine/memmachine-stack/internal/docker"
	"github.com/memmachine/memmachine-stack/internal/model"
	"github.com/memmachine/memmachine-stack/internal/ollama"
	"github.com/memmachine/memmachine-stack/internal/poll"
)

// pullFlags holds the flag values for the ollama-pull command.
type pullFlags struct {
	url       string
	model     string
	container string
	timeout   time.Duration
	interval  time.Duration
}

// pullOptions is the resolved input of one pull run.
type pullOptions struct {
	URL       string
	Model     string
	Container string
	Timeout   time.Duration
	Interval  time.Duration
}

// NewPullCommand creates the ollama-pull root command.
func NewPullCommand() *cobra.Command {
	flags := &pullFlags{}

	cmd := &cobra.Command{
		Use:   "ollama-pull",
		Short: "Wait for Ollama and pull the embedding model",
		Long: `ollama-pull polls the Ollama API every 2 seconds for up to 60 seconds,
then runs "ollama pull <model>" once inside the Ollama container.

The model defaults to OLLAMA_MODEL, then the Ollama embedder declared in
configuration.yml, then nomic-embed-text.

Examples:
  ollama-pull
  ollama-pull --model mxbai-embed-large
  ollama-pull --url http://localhost:11434 --container memmachine-ollama`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runPull(cmd, flags)
		},

		SilenceUsage:  true,
		SilenceErrors: true,

		Version: versionString(),
	}

	addGlobalFlags(cmd)

	cmd.Flags().StringVar(&flags.url, "url", "", "Ollama base URL (default: http://$OLLAMA_HOST:$OLLAMA_PORT)")
	cmd.Flags().StringVarP(&flags.model, "model", "m", "", "Model to pull")
	cmd.Flags().StringVar(&flags.container, "container", "", "Ollama container name (default: $OLLAMA_CONTAINER or memmachine-ollama)")
	cmd.Flags().DurationVar(&flags.timeout, "timeout", ollama.ServiceTimeout, "How long to wait for the Ollama API")
	cmd.Flags().DurationVar(&flags.interval, "interval", poll.DefaultInterval, "Delay between readiness checks")

	return cmd
}

// resolvePullOptions fills unset flags from the configuration record.
func resolvePullOptions(cfg *config.Config, flags *pullFlags) (pullOptions, error) {
	opts := pullOptions{
		URL:       flags.url,
		Model:     flags.model,
		Container: flags.container,
		Timeout:   flags.timeout,
		Interval:  flags.interval,
	}
	if opts.URL == "" {
		opts.URL = cfg.OllamaURL()
	}
	if opts.Model == "" {
		opts.Model = cfg.Ollama.Model
	}
	if opts.Container == "" {
		opts.Container = cfg.Containers.Ollama
	}
	if opts.Timeout <= 0 {
		return opts, model.NewCLIError(model.ExitGeneralError,
			"--timeout must be positive, got "+strconv.Quote(opts.Timeout.String()))
	}
	if opts.Interval <= 0 {
		opts.Interval = poll.DefaultInterval
	}
	return opts, nil
}

func runPull(cmd *cobra.Command, flags *pullFlags) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	opts, err := resolvePullOptions(cfg, flags)
	if err != nil {
		return err
	}
	VerboseLog("Pull options: %s", opts)
	VerboseLog("Model from configuration.yml: %t", cfg.EmbedderFromFile)

	dc, err := docker.NewClient()
	if err != nil {
		return err
	}
	defer func() { _ = dc.Close() }()

	poller := poll.New(opts.Timeout, opts.Interval)
	poller.OnAttempt = verboseAttempt

	out := progressWriter(cmd)
	puller := &ollama.Puller{
		Client:    ollama.NewClient(opts.URL, &http.Client{Timeout: 5 * time.Second}),
		Exec:      dc,
		Poller:    poller,
		Container: opts.Container,
		Model:     opts.Model,
		Out:       out,
		ErrOut:    cmd.ErrOrStderr(),
	}

	err = puller.Run(cmd.Context())
	if IsJSONOutput() {
		printJSON(cmd.OutOrStdout(), map[string]interface{}{
			"model":     opts.Model,
			"container": opts.Container,
			"state":     puller.State().String(),
		})
	}
	if err != nil {
		return err
	}
	VerboseLog("Pull finished in state %s", puller.State())
	return nil
}

// String describes the options on one line for verbose output.
func (o pullOptions) String() string {
	return fmt.Sprintf("model=%s container=%s url=%s timeout=%s interval=%s",
		o.Model, o.Container, o.URL, o.Timeout, o.Interval)
}
