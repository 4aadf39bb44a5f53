package event

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultQueueSize is the number of lines a Bus buffers for its consumer.
const DefaultQueueSize = 1024

// ErrClosed is returned when closing a Bus that is already closed.
var ErrClosed = errors.New("event bus closed")

// Stats counts what happened to the lines offered to a Bus.
type Stats struct {
	Emitted   uint64 // Lines accepted into the queue
	Delivered uint64 // Events handed to every listener
	Dropped   uint64 // Lines rejected because the queue was full or closed
	Failed    uint64 // Listener calls that returned an error or panicked
}

// Bus is a Sink that forwards lines to listeners through a bounded queue.
type Bus struct {
	runID     string
	listeners []Listener
	now       func() time.Time

	mu     sync.RWMutex // guards queue sends against close
	closed bool
	queue  chan Event
	done   chan struct{}

	seq [2]atomic.Uint64

	emitted   atomic.Uint64
	delivered atomic.Uint64
	dropped   atomic.Uint64
	failed    atomic.Uint64
}

// Option configures a Bus.
type Option func(*busOptions)

type busOptions struct {
	queueSize int
	now       func() time.Time
}

// WithQueueSize sets the queue capacity. Values <= 0 are ignored.
func WithQueueSize(size int) Option {
	return func(o *busOptions) {
		if size > 0 {
			o.queueSize = size
		}
	}
}

// WithClock overrides the time source used to stamp events.
func WithClock(now func() time.Time) Option {
	return func(o *busOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// NewBus starts a Bus for the given run. The consumer goroutine runs until
// Close is called.
func NewBus(runID string, listeners []Listener, opts ...Option) *Bus {
	o := busOptions{queueSize: DefaultQueueSize, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	b := &Bus{
		runID:     runID,
		listeners: listeners,
		now:       o.now,
		queue:     make(chan Event, o.queueSize),
		done:      make(chan struct{}),
	}
	go b.consume()
	return b
}

// RunID returns the run this Bus delivers lines for.
func (b *Bus) RunID() string {
	return b.runID
}

// Emit queues a line for delivery. It never blocks; if the queue is full or
// the Bus is closed the line is dropped.
func (b *Bus) Emit(line LogLine) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		b.dropped.Add(1)
		return
	}

	ev := Event{
		Name:  Name,
		RunID: b.runID,
		Line:  line,
		Time:  b.now(),
	}
	if line.Source == Stdout || line.Source == Stderr {
		ev.Seq = b.seq[line.Source].Add(1)
	}

	select {
	case b.queue <- ev:
		b.emitted.Add(1)
	default:
		b.dropped.Add(1)
	}
}

// Close stops accepting lines and waits for queued events to be delivered,
// or until ctx is done.
func (b *Bus) Close(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	b.closed = true
	close(b.queue)
	b.mu.Unlock()

	select {
	case <-b.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("drain event queue: %w", ctx.Err())
	}
}

// Stats returns a snapshot of the delivery counters.
func (b *Bus) Stats() Stats {
	return Stats{
		Emitted:   b.emitted.Load(),
		Delivered: b.delivered.Load(),
		Dropped:   b.dropped.Load(),
		Failed:    b.failed.Load(),
	}
}

func (b *Bus) consume() {
	defer close(b.done)

	for ev := range b.queue {
		for _, l := range b.listeners {
			if err := deliver(l, ev); err != nil {
				b.failed.Add(1)
			}
		}
		b.delivered.Add(1)
	}
}

// deliver calls the listener, converting a panic into an error.
func deliver(l Listener, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener panic: %v", r)
		}
	}()
	return l.Handle(ev)
}
