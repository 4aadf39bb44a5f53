// Package event delivers lines produced by a samplem run to listeners.
//
// A Bus is created per run. Stream pumps call Emit from their own goroutines;
// a single consumer goroutine owned by the Bus hands each event to the
// listeners in the order it was queued. Emit never blocks: when the queue is
// full the line is dropped and counted.
package event

import (
	"fmt"
	"time"
)

// Name is the identifier attached to every line notification.
const Name = "samplem-log"

// Source identifies the output channel a line was read from.
type Source int

const (
	// Stdout is the child's standard output.
	Stdout Source = iota
	// Stderr is the child's standard error.
	Stderr
)

// String returns the stream name.
func (s Source) String() string {
	switch s {
	case Stdout:
		return "stdout"
	case Stderr:
		return "stderr"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// LogLine is one complete line of child output, without its terminator.
type LogLine struct {
	Source Source
	Text   string
}

// Event is a LogLine as delivered to listeners.
type Event struct {
	Name  string    // Always Name
	RunID string    // Run that produced the line
	Seq   uint64    // 1-based position within its source; gaps mean dropped lines
	Line  LogLine   // The line itself
	Time  time.Time // When the line was emitted
}

// Sink accepts lines from stream pumps. Implementations must be safe for
// concurrent use and must not block the caller on a slow consumer.
type Sink interface {
	Emit(line LogLine)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(line LogLine)

// Emit calls f(line).
func (f SinkFunc) Emit(line LogLine) {
	f(line)
}

// Listener receives events from a Bus. Handle is only ever called from the
// Bus consumer goroutine, so listeners need no locking of their own.
type Listener interface {
	Handle(ev Event) error
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(ev Event) error

// Handle calls f(ev).
func (f ListenerFunc) Handle(ev Event) error {
	return f(ev)
}
