package bridge

import "fmt"

// State is the lifecycle state of one run.
type State int

const (
	// StateBuilt means the argument list exists but nothing was launched.
	StateBuilt State = iota
	// StateSpawnFailed means the executable could not be located or started.
	StateSpawnFailed
	// StateSpawned means the child was started but its output is not yet drained.
	StateSpawned
	// StateRunning means the child's output is being drained.
	StateRunning
	// StateExited means the child exited with a code.
	StateExited
	// StateExitedNoCode means the child terminated without a code, e.g. by a signal.
	StateExitedNoCode
	// StateWaitFailed means waiting for the child failed.
	StateWaitFailed
	// StateCanceled means the run's context ended before the child finished.
	StateCanceled
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateBuilt:
		return "built"
	case StateSpawnFailed:
		return "spawn-failed"
	case StateSpawned:
		return "spawned"
	case StateRunning:
		return "running"
	case StateExited:
		return "exited"
	case StateExitedNoCode:
		return "exited-no-code"
	case StateWaitFailed:
		return "wait-failed"
	case StateCanceled:
		return "canceled"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	switch s {
	case StateSpawnFailed, StateExited, StateExitedNoCode, StateWaitFailed, StateCanceled:
		return true
	default:
		return false
	}
}
