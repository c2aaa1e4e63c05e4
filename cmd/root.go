package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/relayforge/relayforge/pkg/config"
)

var cfgFile string
var verbose bool

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "relayforge",
	Short: "RelayForge - chat-driven CI job orchestrator",
	Long: `RelayForge turns chat messages into autonomous CI build jobs and turns CI
completion events back into chat notifications and pipeline continuations.

It serves two webhook receivers (Telegram and GitHub), talks to an LLM for
free-form conversation, and decides automatically whether a finished job
should chain into the next one based on the confidence score extracted from
the job's output.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(setupLogging)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "C", "", "config file (default is /etc/relayforge/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// setupLogging installs a text handler for interactive CLI use. The serve
// command replaces it with a JSON handler for log shipping.
func setupLogging() {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel()})
	slog.SetDefault(slog.New(handler))
}

func logLevel() slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// loadConfig wires viper's sources and returns the validated configuration.
func loadConfig() (*config.Config, error) {
	if err := config.Init(cfgFile); err != nil {
		return nil, err
	}
	return config.Load()
}
