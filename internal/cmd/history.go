package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/binjac/samplem-bridge/internal/history"
	"github.com/binjac/samplem-bridge/internal/logging"
	"github.com/binjac/samplem-bridge/internal/prompt"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past runs",
	Long: `List past runs, oldest first.

Runs that are still in progress show as "running".`,
	Example: `  # List every run
  samplem-bridge history

  # Only the last 5 runs of one folder
  samplem-bridge history --path ~/Samples/Drums -n 5`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := requireConfig(ctx)
		if err != nil {
			return err
		}

		filter := history.ListFilter{}
		if filter.Path, err = cmd.Flags().GetString("path"); err != nil {
			return fmt.Errorf("get path flag: %w", err)
		}
		status, err := cmd.Flags().GetString("status")
		if err != nil {
			return fmt.Errorf("get status flag: %w", err)
		}
		filter.Status = history.Status(status)
		if filter.Limit, err = cmd.Flags().GetInt("limit"); err != nil {
			return fmt.Errorf("get limit flag: %w", err)
		}

		runs, err := history.NewStore(cfg.Storage.History).List(ctx, filter)
		if err != nil {
			return fmt.Errorf("list runs: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(runs) == 0 {
			fmt.Fprintln(out, "No runs found")
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		if _, err := fmt.Fprintln(w, "NAME\tSTATUS\tEXIT\tLINES\tDURATION\tOPTIONS\tPATH"); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		for _, r := range runs {
			exit := "-"
			if r.Status == history.StatusExited || r.Status == history.StatusExitedNoCode {
				exit = fmt.Sprint(r.ExitCode)
			}
			var took time.Duration
			if !r.FinishedAt.IsZero() {
				took = r.FinishedAt.Sub(r.StartedAt)
			}
			if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
				r.Name, r.Status, exit, r.Lines, formatDuration(took), formatOptions(r.Invocation), r.Invocation.Path); err != nil {
				return fmt.Errorf("write run: %w", err)
			}
		}
		if err := w.Flush(); err != nil {
			return fmt.Errorf("flush output: %w", err)
		}

		return nil
	},
}

var historyRmCmd = &cobra.Command{
	Use:   "rm <run>",
	Short: "Remove a run and its transcript",
	Example: `  # Remove with confirmation prompt
  samplem-bridge history rm focused_turing

  # Remove without confirmation
  samplem-bridge history rm focused_turing --force`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		force, err := cmd.Flags().GetBool("force")
		if err != nil {
			return fmt.Errorf("get force flag: %w", err)
		}

		cfg, err := requireConfig(ctx)
		if err != nil {
			return err
		}

		store := history.NewStore(cfg.Storage.History)
		run, err := getRun(ctx, store, args[0])
		if err != nil {
			return err
		}

		if run.Status == history.StatusRunning && !force {
			return fmt.Errorf("run %s is still in progress (use --force to remove it anyway)", run.Name)
		}

		if !force {
			ok, err := prompt.New().Confirm(
				fmt.Sprintf("Remove run %s?", run.Name),
				"The run record and its transcript will be deleted.",
				false,
			)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "Canceled")
				return nil
			}
		}

		if err := logging.NewPathManager(cfg.Storage.Logs).RemoveRunLog(run.ID); err != nil {
			return err
		}
		if err := store.Remove(ctx, run.ID); err != nil {
			return fmt.Errorf("remove run: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Removed run %s\n", run.Name)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyRmCmd)

	historyCmd.Flags().String("path", "", "only runs of this sample folder")
	historyCmd.Flags().String("status", "", "only runs with this status (e.g. exited, canceled)")
	historyCmd.Flags().IntP("limit", "n", 0, "show only the most recent N runs")
	historyRmCmd.Flags().BoolP("force", "f", false, "skip confirmation prompt")
}
