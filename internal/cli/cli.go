package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"forexcal/internal/config"
	"forexcal/internal/logger"
)

const (
	ExitSuccess = 0
	ExitError   = 1
)

var (
	flagConfig  string
	flagVerbose bool
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forexcal",
		Short: "Scrape the economic calendar and persist it to configured sinks",
		Long: `forexcal turns the loosely structured economic calendar of a forex news
site into normalized event records: it renders the page, maps markup classes
to fields, converts times into a target timezone, filters by currency and
impact, and writes the result to CSV files and databases.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to YAML config file")
	cmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Enable verbose logging")

	cmd.AddCommand(newScrapeCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}

// Execute runs the CLI
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitError)
	}
}

// setupLogger installs the process-wide logger at the requested verbosity.
func setupLogger() *logger.Logger {
	level := logger.LevelInfo
	if flagVerbose {
		level = logger.LevelDebug
	}
	log := logger.New(level, os.Stderr)
	logger.SetDefault(log)
	return log
}

func loadConfig() (*config.Config, error) {
	return config.Load(flagConfig)
}
