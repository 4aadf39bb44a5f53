// Package exec provides an abstraction over executing external commands.
package exec

import (
	"context"
	"io"
	"time"
)

// NoExitCode is reported when the platform cannot supply an exit code,
// for example because the process was terminated by a signal.
const NoExitCode = -1

// Result holds the output from a completed command.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// RunOptions configures command execution.
type RunOptions struct {
	Name   string    // Command name or path (required)
	Args   []string  // Command arguments
	Dir    string    // Working directory (empty = current)
	Env    []string  // Additional environment variables (KEY=VALUE format)
	Stdin  io.Reader // Stdin source (nil = no input)
	Stdout io.Writer // If set, streams stdout here instead of capturing
	Stderr io.Writer // If set, streams stderr here instead of capturing
}

// StartOptions configures a command whose output is consumed while it runs.
type StartOptions struct {
	Name string   // Command name or path (required)
	Args []string // Command arguments
	Dir  string   // Working directory (empty = current)
	Env  []string // Additional environment variables (KEY=VALUE format)

	// WaitDelay bounds how long Wait keeps draining output after the process
	// exits or the context is cancelled. Zero waits for the output pipes to
	// be closed by every process holding them.
	WaitDelay time.Duration
}

// Process is a started command with captured output.
//
// Stdout and Stderr must be read until EOF, concurrently with Wait: output
// is handed over synchronously, so Wait does not return while unread output
// is pending. Both readers reach EOF once Wait returns.
type Process struct {
	PID    int
	Stdout io.ReadCloser
	Stderr io.ReadCloser

	wait func() (int, error)
}

// NewProcess assembles a Process from its parts. wait must block until the
// process has exited and return its exit code as Process.Wait documents.
func NewProcess(pid int, stdout, stderr io.ReadCloser, wait func() (int, error)) *Process {
	return &Process{PID: pid, Stdout: stdout, Stderr: stderr, wait: wait}
}

// Wait blocks until the process exits and its output has been handed over.
// It returns the exit code, or NoExitCode when none is available. A non-zero
// exit is not an error; the error is reserved for failures to wait at all.
func (p *Process) Wait() (int, error) {
	return p.wait()
}

// Executor runs external commands.
type Executor interface {
	// Run executes a command and returns its output.
	// If Stdout/Stderr writers are set in opts, output streams there and
	// Result.Stdout/Stderr will be nil.
	// Returns os/exec.ExitError on non-zero exit (use errors.As to extract).
	Run(ctx context.Context, opts *RunOptions) (*Result, error)

	// Start launches a command with stdout and stderr captured as readers.
	// The command is killed if ctx is cancelled before it exits.
	Start(ctx context.Context, opts *StartOptions) (*Process, error)

	// LookPath searches for an executable in PATH.
	// Returns the full path if found, or an error if not.
	LookPath(name string) (string, error)
}
