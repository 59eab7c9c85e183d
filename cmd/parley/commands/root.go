package commands

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "parley",
	Short: "Real-time multi-persona generation gateway",
	Long: `parley - a real-time gateway that drives text generation against
heterogeneous LLM backends over a single WebSocket connection and
coordinates turn-taking among simulated personas.

Supported providers:
  cloud-chat           hosted chat-completion API
  local-llama-server   local llama-style inference server
  openai-compatible    any generic OpenAI-compatible endpoint
  mock                 deterministic offline responses

Examples:
  # Serve on the default address with seed configs
  parley serve --seed-dir ./configs

  # Development without any upstream
  parley serve --mock-delay 50ms`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(*cobra.Command, []string) {
		if verbose {
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			})))
		}
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
