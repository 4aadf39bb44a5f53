package bridge

import (
	"errors"
	"fmt"
)

// Sentinel errors for bridge operations.
var (
	ErrSpawn              = errors.New("spawn failed")
	ErrWait               = errors.New("wait failed")
	ErrExecutableNotFound = errors.New("executable not found")
)

// SpawnError describes an executable that could not be located or started.
// No output is streamed for a run that fails this way.
type SpawnError struct {
	Executable string
	Err        error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn %s: %v", e.Executable, e.Err)
}

func (e *SpawnError) Unwrap() []error {
	return []error{ErrSpawn, e.Err}
}

// WaitError describes an operating-system failure while waiting for the
// child to terminate.
type WaitError struct {
	PID int
	Err error
}

func (e *WaitError) Error() string {
	return fmt.Sprintf("wait for pid %d: %v", e.PID, e.Err)
}

func (e *WaitError) Unwrap() []error {
	return []error{ErrWait, e.Err}
}
