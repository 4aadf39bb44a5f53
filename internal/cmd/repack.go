package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/binjac/samplem-bridge/internal/bridge"
	"github.com/binjac/samplem-bridge/internal/config"
	"github.com/binjac/samplem-bridge/internal/event"
	"github.com/binjac/samplem-bridge/internal/history"
	"github.com/binjac/samplem-bridge/internal/invocation"
	"github.com/binjac/samplem-bridge/internal/logging"
	"github.com/binjac/samplem-bridge/internal/names"
	"github.com/binjac/samplem-bridge/internal/prompt"
	"github.com/binjac/samplem-bridge/internal/slogger"
	"github.com/binjac/samplem-bridge/internal/spinner"
)

// closeTimeout bounds how long queued lines may take to reach listeners
// after samplem exits.
const closeTimeout = 10 * time.Second

var repackCmd = &cobra.Command{
	Use:   "repack [path]",
	Short: "Repack a sample folder with samplem",
	Long: `Run "samplem repack" on a sample folder and stream its output.

Every line samplem prints is shown as soon as it is produced; lines from
stderr are prefixed with "[stderr]". When samplem finishes its exit code is
printed and samplem-bridge exits with the same code (1 if samplem was killed
by a signal).

Options not given as flags come from the defaults section of the config.
The full output is kept as a transcript that can be viewed later with
"samplem-bridge logs".`,
	Example: `  # Repack with configured defaults
  samplem-bridge repack ~/Samples/Drums

  # Trim silence, keep the folder structure
  samplem-bridge repack ~/Samples/Drums --trim --layout keep

  # Choose every option interactively
  samplem-bridge repack -i

  # Show only the latest line next to a spinner
  samplem-bridge repack ~/Samples/Drums --spinner`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRepackCmd,
}

func runRepackCmd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := requireConfig(ctx)
	if err != nil {
		return err
	}

	inv, err := invocationFromFlags(cmd, args, cfg)
	if err != nil {
		return err
	}

	interactive, err := cmd.Flags().GetBool("interactive")
	if err != nil {
		return fmt.Errorf("get interactive flag: %w", err)
	}
	if interactive {
		inv, err = prompt.AskInvocation(prompt.New(), inv)
		if err != nil {
			return err
		}
	}
	if inv.Path == "" {
		return errors.New("a sample folder is required: pass it as an argument or use --interactive")
	}

	useSpinner, err := cmd.Flags().GetBool("spinner")
	if err != nil {
		return fmt.Errorf("get spinner flag: %w", err)
	}
	noLog, err := cmd.Flags().GetBool("no-log")
	if err != nil {
		return fmt.Errorf("get no-log flag: %w", err)
	}

	store := history.NewStore(cfg.Storage.History)
	name, err := names.GenerateUnique(func(n string) bool { return store.Exists(ctx, n) }, 0)
	if err != nil {
		return err
	}

	run := history.Run{
		ID:         uuid.NewString(),
		Name:       name,
		Invocation: inv,
		Status:     history.StatusRunning,
		StartedAt:  time.Now(),
	}
	ctx = slogger.With(ctx, "run", name)
	log := slogger.L(ctx)

	var listeners []event.Listener
	if useSpinner {
		spin := spinner.New(cmd.ErrOrStderr())
		listeners = append(listeners, spin)

		spinDone := make(chan struct{})
		go func() {
			defer close(spinDone)
			if err := spin.Start(); err != nil {
				log.Debug("spinner stopped", "error", err)
			}
		}()
		defer func() {
			spin.Stop()
			<-spinDone
		}()
	} else {
		listeners = append(listeners, linePrinter{out: cmd.OutOrStdout()})
	}

	if !noLog {
		pathMgr := logging.NewPathManager(cfg.Storage.Logs)
		logPath, err := pathMgr.EnsureRunLog(run.ID)
		if err != nil {
			return err
		}
		transcript, err := logging.NewTranscriptListener(logPath)
		if err != nil {
			return err
		}
		defer transcript.Close()

		run.LogPath = logPath
		listeners = append(listeners, transcript)
	}

	if err := store.Add(ctx, run); err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	bus := event.NewBus(run.ID, listeners, event.WithQueueSize(cfg.Events.QueueSize))
	log.Info("starting run", "id", bus.RunID(), "path", inv.Path)

	res, runErr := newRunner(cfg).Run(ctx, inv, bus)

	// The run may have been canceled, but queued lines and the history
	// update must still land.
	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
	defer cancel()
	if err := bus.Close(closeCtx); err != nil {
		log.Warn("listeners did not drain", "error", err)
	}
	stats := bus.Stats()
	if stats.Dropped > 0 || stats.Failed > 0 {
		log.Warn("lines lost", "dropped", stats.Dropped, "failed", stats.Failed)
	}

	recordOutcome(&run, res, stats, runErr)
	if err := store.Update(closeCtx, run); err != nil {
		log.Error("failed to record run", "error", err)
	}

	switch {
	case res.State == bridge.StateCanceled:
		fmt.Fprintf(cmd.ErrOrStderr(), "Run %s canceled\n", name)
		return &ExitError{Code: 130}
	case runErr != nil:
		return runErr
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Exit code: %d\n", res.ExitCode)
	if code := processExitCode(res.ExitCode); code != 0 {
		return &ExitError{Code: code}
	}
	return nil
}

// recordOutcome copies a finished run's result into its history record.
// Lines counts what samplem wrote, whether or not a listener kept it.
func recordOutcome(run *history.Run, res *bridge.Result, stats event.Stats, runErr error) {
	run.Executable = res.Executable
	run.PID = res.PID
	run.Status = statusOf(res.State)
	run.ExitCode = res.ExitCode
	run.Lines = res.Lines()
	run.Dropped = res.Undecodable + int(stats.Dropped)
	run.FinishedAt = time.Now()
	if runErr != nil {
		run.Error = runErr.Error()
	}
}

// invocationFromFlags starts from the configured defaults and applies the
// path argument and any flags the user set.
func invocationFromFlags(cmd *cobra.Command, args []string, cfg *config.Config) (invocation.Invocation, error) {
	inv := invocation.Invocation{
		Normalize: cfg.Defaults.Normalize,
		Trim:      cfg.Defaults.Trim,
		Layout:    cfg.Defaults.Layout,
	}
	if len(args) > 0 {
		inv.Path = args[0]
	}

	flags := cmd.Flags()
	var err error
	if flags.Changed("normalize") {
		if inv.Normalize, err = flags.GetBool("normalize"); err != nil {
			return inv, fmt.Errorf("get normalize flag: %w", err)
		}
	}
	if flags.Changed("trim") {
		if inv.Trim, err = flags.GetBool("trim"); err != nil {
			return inv, fmt.Errorf("get trim flag: %w", err)
		}
	}
	if flags.Changed("layout") {
		if inv.Layout, err = flags.GetString("layout"); err != nil {
			return inv, fmt.Errorf("get layout flag: %w", err)
		}
	}

	return inv, nil
}

func init() {
	rootCmd.AddCommand(repackCmd)
	addRepackFlags(repackCmd)
}

func addRepackFlags(c *cobra.Command) {
	c.Flags().Bool("normalize", true, "peak-normalize samples (default from config)")
	c.Flags().Bool("trim", false, "trim leading and trailing silence (default from config)")
	c.Flags().String("layout", invocation.LayoutFlat, "output layout: keep, flat-prefix or flat (default from config)")
	c.Flags().BoolP("interactive", "i", false, "choose options interactively")
	c.Flags().Bool("spinner", false, "show only the latest line next to a spinner")
	c.Flags().Bool("no-log", false, "do not keep a transcript")
}
