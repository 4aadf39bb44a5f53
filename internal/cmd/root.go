// Package cmd implements the samplem-bridge CLI commands using Cobra.
// It runs samplem repack jobs, streams their output, and keeps a history
// of past runs with their transcripts.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/binjac/samplem-bridge/internal/config"
	"github.com/binjac/samplem-bridge/internal/slogger"
)

// appConfig holds the loaded application configuration.
var appConfig *config.Config

// configLoader is used for reading and writing configuration.
var configLoader *config.Loader

var rootCmd = &cobra.Command{
	Use:   "samplem-bridge",
	Short: "Run samplem and stream its output",
	Long: `samplem-bridge launches the samplem sample-library tool, streams every line
it prints as it happens, and reports how it exited.

Each run gets a human-readable name, a transcript on disk, and an entry in
the run history.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, err := cmd.Flags().GetCount("verbose")
		if err != nil {
			return fmt.Errorf("get verbose flag: %w", err)
		}

		ctx := cmd.Context()
		ctx = slogger.WithLogger(ctx, slogger.New(slogger.Config{
			Verbosity: verbosity,
			Output:    cmd.ErrOrStderr(),
		}))
		ctx = WithConfig(ctx, appConfig)
		ctx = WithLoader(ctx, configLoader)
		cmd.SetContext(ctx)

		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// An interrupt or termination signal cancels the command's context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return rootCmd.ExecuteContext(ctx)
}

// Main runs the CLI and returns the process exit code. A repack run exits
// with the child's exit code.
func Main() int {
	err := Execute()
	if err == nil {
		return 0
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return 1
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().CountP("verbose", "v", "increase log verbosity (-v info, -vv debug)")
}

func initConfig() {
	loader, err := config.NewLoader()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize config: %v\n", err)
		return
	}

	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
		configLoader = loader
		return
	}

	appConfig = cfg
	configLoader = loader
}
