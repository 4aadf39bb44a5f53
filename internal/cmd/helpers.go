package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/binjac/samplem-bridge/internal/bridge"
	"github.com/binjac/samplem-bridge/internal/config"
	"github.com/binjac/samplem-bridge/internal/event"
	"github.com/binjac/samplem-bridge/internal/exec"
	"github.com/binjac/samplem-bridge/internal/history"
	"github.com/binjac/samplem-bridge/internal/invocation"
)

// ExitError carries a process exit code out of a command without printing
// an error message.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

func defaultDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, config.DefaultDataDir), nil
}

// requireConfig returns the loaded config, or built-in defaults when the
// config file could not be loaded.
func requireConfig(ctx context.Context) (*config.Config, error) {
	if cfg := ConfigFromContext(ctx); cfg != nil {
		return cfg, nil
	}

	dataDir, err := defaultDataDir()
	if err != nil {
		return nil, err
	}
	return &config.Config{
		Executable: config.ExecutableConfig{
			Name:          bridge.DefaultExecutable,
			FallbackPaths: bridge.DefaultFallbackPaths,
			WaitDelay:     bridge.DefaultWaitDelay,
		},
		Defaults: config.DefaultsConfig{Normalize: true, Layout: invocation.LayoutFlat},
		Events:   config.EventsConfig{QueueSize: event.DefaultQueueSize},
		Storage: config.StorageConfig{
			History: filepath.Join(dataDir, "history.json"),
			Logs:    filepath.Join(dataDir, "logs"),
		},
	}, nil
}

func newRunner(cfg *config.Config) *bridge.Runner {
	return bridge.NewRunner(exec.New(), bridge.RunnerConfig{
		Executable:    cfg.Executable.Name,
		FallbackPaths: cfg.Executable.FallbackPaths,
		WaitDelay:     cfg.Executable.WaitDelay,
	})
}

// getRun looks up a run by ID or name.
func getRun(ctx context.Context, store history.Store, ref string) (*history.Run, error) {
	run, err := store.Get(ctx, ref)
	if err != nil {
		if errors.Is(err, history.ErrNotFound) {
			return nil, fmt.Errorf("no run named %q", ref)
		}
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// statusOf maps a bridge state to the recorded history status.
func statusOf(state bridge.State) history.Status {
	switch state {
	case bridge.StateExited:
		return history.StatusExited
	case bridge.StateExitedNoCode:
		return history.StatusExitedNoCode
	case bridge.StateSpawnFailed:
		return history.StatusSpawnFailed
	case bridge.StateWaitFailed:
		return history.StatusWaitFailed
	case bridge.StateCanceled:
		return history.StatusCanceled
	default:
		return history.StatusRunning
	}
}

// processExitCode maps a run's exit code to this process's exit code.
func processExitCode(code int) int {
	if code == bridge.ExitNoCode {
		return 1
	}
	return code
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return d.Round(100 * time.Millisecond).String()
}

func formatOptions(inv invocation.Invocation) string {
	var opts []string
	if inv.Normalize {
		opts = append(opts, "normalize")
	}
	if inv.Trim {
		opts = append(opts, "trim")
	}
	opts = append(opts, inv.Layout)
	return strings.Join(opts, ",")
}
