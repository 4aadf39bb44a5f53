// Package history provides persistent storage for samplem run records.
package history

import (
	"context"
	"errors"
	"time"

	"github.com/binjac/samplem-bridge/internal/invocation"
)

// Sentinel errors for history operations.
var (
	ErrNotFound      = errors.New("run not found")
	ErrAlreadyExists = errors.New("run already exists")
	ErrLockTimeout   = errors.New("failed to acquire history lock")
)

// Status is the recorded outcome of a run.
type Status string

const (
	StatusRunning      Status = "running"
	StatusExited       Status = "exited"
	StatusExitedNoCode Status = "exited-no-code"
	StatusSpawnFailed  Status = "spawn-failed"
	StatusWaitFailed   Status = "wait-failed"
	StatusCanceled     Status = "canceled"
)

// Finished reports whether the run has ended.
func (s Status) Finished() bool {
	return s != StatusRunning && s != ""
}

// Run is a persisted run record.
type Run struct {
	ID         string                `json:"id"`
	Name       string                `json:"name"` // Human-readable name (e.g., "focused_turing")
	Invocation invocation.Invocation `json:"invocation"`
	Executable string                `json:"executable,omitempty"` // Resolved samplem path
	PID        int                   `json:"pid,omitempty"`
	Status     Status                `json:"status"`
	ExitCode   int                   `json:"exit_code"`
	Lines      int                   `json:"lines"`   // Lines read from samplem
	Dropped    int                   `json:"dropped"` // Lines lost to undecodable output or a full queue
	Error      string                `json:"error,omitempty"`
	LogPath    string                `json:"log_path,omitempty"`
	StartedAt  time.Time             `json:"started_at"`
	FinishedAt time.Time             `json:"finished_at,omitzero"`
}

// ListFilter filters history queries.
type ListFilter struct {
	Status Status // Filter by status (empty = all)
	Path   string // Filter by target path (empty = all)
	Limit  int    // Keep only the most recent N runs (0 = all)
}

// Store provides persistent storage for run records.
type Store interface {
	// Add records a new run.
	// Returns ErrAlreadyExists if a run with the same ID or Name exists.
	Add(ctx context.Context, run Run) error

	// Get retrieves a run by ID or Name.
	// Returns ErrNotFound if not found.
	Get(ctx context.Context, ref string) (*Run, error)

	// Update replaces an existing run.
	// Returns ErrNotFound if not found.
	Update(ctx context.Context, run Run) error

	// Remove deletes a run by ID or Name.
	// Returns ErrNotFound if not found.
	Remove(ctx context.Context, ref string) error

	// List returns runs matching the filter, oldest first.
	List(ctx context.Context, filter ListFilter) ([]Run, error)

	// Exists reports whether a run with the given ID or Name exists.
	Exists(ctx context.Context, ref string) bool
}
