// Package bridge runs the samplem executable and streams its output.
//
// A run resolves the executable, starts it with both output streams captured,
// drains each stream on its own goroutine into an event.Sink one line at a
// time, and resolves to the child's exit code. Both streams are fully drained
// before Run returns, so every line has been handed to the sink by then.
package bridge

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/binjac/samplem-bridge/internal/event"
	"github.com/binjac/samplem-bridge/internal/exec"
	"github.com/binjac/samplem-bridge/internal/invocation"
	"github.com/binjac/samplem-bridge/internal/slogger"
)

// ExitNoCode is the exit code reported when the child terminated without one.
const ExitNoCode = exec.NoExitCode

// DefaultWaitDelay bounds output draining after the child exits or the run is
// cancelled, in case a grandchild keeps the output pipes open.
const DefaultWaitDelay = 5 * time.Second

// RunnerConfig configures a Runner.
type RunnerConfig struct {
	Executable    string        // Name or path of samplem (default DefaultExecutable)
	FallbackPaths []string      // Absolute locations tried when not on PATH
	WaitDelay     time.Duration // Output drain bound (default DefaultWaitDelay)
}

// Result describes a finished run.
type Result struct {
	State       State
	ExitCode    int    // Exit code, or ExitNoCode
	Executable  string // Resolved executable path
	PID         int
	StdoutLines int // Lines emitted from stdout
	StderrLines int // Lines emitted from stderr
	Undecodable int // Lines dropped because they were not valid UTF-8
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Lines returns the number of lines emitted from both streams.
func (r *Result) Lines() int {
	return r.StdoutLines + r.StderrLines
}

// Runner launches samplem and bridges its output to a sink.
// A Runner holds no per-run state and is safe for concurrent use.
type Runner struct {
	executor  exec.Executor
	resolver  *Resolver
	waitDelay time.Duration
	now       func() time.Time
}

// NewRunner creates a Runner.
func NewRunner(executor exec.Executor, cfg RunnerConfig) *Runner {
	waitDelay := cfg.WaitDelay
	if waitDelay <= 0 {
		waitDelay = DefaultWaitDelay
	}
	return &Runner{
		executor:  executor,
		resolver:  NewResolver(executor, cfg.Executable, cfg.FallbackPaths),
		waitDelay: waitDelay,
		now:       time.Now,
	}
}

// Resolver returns the executable resolver used by the Runner.
func (r *Runner) Resolver() *Resolver {
	return r.resolver
}

// Run executes one invocation, emitting every output line to sink, and
// returns once the child has terminated and both streams are drained.
//
// The returned Result is never nil. A spawn failure returns a *SpawnError
// and emits nothing. A failure to wait returns a *WaitError. If ctx ends
// first the child is killed, the lines it already wrote are still emitted
// and the error wraps ctx.Err(). A non-zero exit
// code, including ExitNoCode, is not an error.
func (r *Runner) Run(ctx context.Context, inv invocation.Invocation, sink event.Sink) (*Result, error) {
	log := slogger.L(ctx)
	res := &Result{State: StateBuilt, ExitCode: ExitNoCode}
	args := inv.Args()

	path, err := r.resolver.Resolve()
	if err != nil {
		res.State = StateSpawnFailed
		log.Debug("samplem not found", "name", r.resolver.Name(), "error", err)
		return res, err
	}
	res.Executable = path

	proc, err := r.executor.Start(ctx, &exec.StartOptions{
		Name:      path,
		Args:      args,
		WaitDelay: r.waitDelay,
	})
	if err != nil {
		res.State = StateSpawnFailed
		return res, &SpawnError{Executable: path, Err: err}
	}

	res.State = StateSpawned
	res.PID = proc.PID
	res.StartedAt = r.now()
	log.Debug("samplem started", "pid", proc.PID, "path", path, "args", args)

	stdout := newPump(event.Stdout, proc.Stdout, sink)
	stderr := newPump(event.Stderr, proc.Stderr, sink)

	var g errgroup.Group
	g.Go(func() error { return stdout.run(ctx) })
	g.Go(func() error { return stderr.run(ctx) })
	res.State = StateRunning

	code, waitErr := proc.Wait()
	_ = g.Wait()

	res.FinishedAt = r.now()
	res.ExitCode = code
	res.StdoutLines = stdout.lines
	res.StderrLines = stderr.lines
	res.Undecodable = stdout.undecodable + stderr.undecodable

	// A child that exits on its own keeps its code even if ctx ends while
	// the streams drain.
	switch {
	case code == ExitNoCode && ctx.Err() != nil:
		res.State = StateCanceled
		res.ExitCode = ExitNoCode
		log.Info("samplem run canceled", "pid", proc.PID, "error", ctx.Err())
		return res, fmt.Errorf("run canceled: %w", ctx.Err())
	case waitErr != nil:
		res.State = StateWaitFailed
		res.ExitCode = ExitNoCode
		return res, &WaitError{PID: proc.PID, Err: waitErr}
	case code == ExitNoCode:
		res.State = StateExitedNoCode
	default:
		res.State = StateExited
	}

	log.Info("samplem exited", "pid", proc.PID, "code", code, "lines", res.Lines(),
		"duration", res.FinishedAt.Sub(res.StartedAt))
	return res, nil
}
