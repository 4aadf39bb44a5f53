package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/binjac/samplem-bridge/internal/history"
	"github.com/binjac/samplem-bridge/internal/logging"
)

var logsCmd = &cobra.Command{
	Use:   "logs <run>",
	Short: "View the transcript of a run",
	Long: `View the transcript of a run by name or ID.

The transcript holds every line samplem printed, in the order it was
delivered. Use -f to keep following a run that is still in progress; following
stops once the run finishes.`,
	Example: `  # View recent output (last 100 lines)
  samplem-bridge logs focused_turing

  # Follow a run in progress
  samplem-bridge logs focused_turing -f

  # Show entire transcript
  samplem-bridge logs focused_turing --full`,
	Args: cobra.ExactArgs(1),
	RunE: runLogsCmd,
}

func runLogsCmd(cmd *cobra.Command, args []string) error {
	follow, err := cmd.Flags().GetBool("follow")
	if err != nil {
		return fmt.Errorf("get follow flag: %w", err)
	}

	lines, err := cmd.Flags().GetInt("lines")
	if err != nil {
		return fmt.Errorf("get lines flag: %w", err)
	}

	full, err := cmd.Flags().GetBool("full")
	if err != nil {
		return fmt.Errorf("get full flag: %w", err)
	}

	ctx := cmd.Context()
	cfg, err := requireConfig(ctx)
	if err != nil {
		return err
	}

	store := history.NewStore(cfg.Storage.History)
	run, err := getRun(ctx, store, args[0])
	if err != nil {
		return err
	}

	pathMgr := logging.NewPathManager(cfg.Storage.Logs)
	if !pathMgr.LogExists(run.ID) {
		return fmt.Errorf("no transcript found for run %s", run.Name)
	}
	reader := logging.NewReader(pathMgr)

	if follow {
		err := reader.FollowWithHistory(ctx, run.ID, cmd.OutOrStdout(), lines, logging.FollowOptions{
			PollInterval: logging.DefaultPollInterval,
			Finished:     runFinished(ctx, store, run.ID),
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	return outputLogs(cmd.OutOrStdout(), reader, run.ID, lines, full)
}

// runFinished reports whether the run has left the running state. Lookup
// errors count as finished so a removed run does not block a follower.
func runFinished(ctx context.Context, store history.Store, id string) func() bool {
	return func() bool {
		run, err := store.Get(ctx, id)
		return err != nil || run.Status.Finished()
	}
}

func outputLogs(out io.Writer, reader *logging.Reader, runID string, lines int, full bool) error {
	var logLines []string
	var err error

	if full {
		logLines, err = reader.ReadAll(runID)
	} else {
		logLines, err = reader.ReadLastN(runID, lines)
	}

	if err != nil {
		return fmt.Errorf("read log: %w", err)
	}

	for _, line := range logLines {
		fmt.Fprintln(out, line)
	}

	return nil
}

func init() {
	rootCmd.AddCommand(logsCmd)

	logsCmd.Flags().BoolP("follow", "f", false, "follow a run in progress")
	logsCmd.Flags().IntP("lines", "n", logging.DefaultTailLines, "number of lines to show")
	logsCmd.Flags().Bool("full", false, "show entire transcript")
}
