package event

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder collects delivered events.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Handle(ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) texts(src Source) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, ev := range r.events {
		if ev.Line.Source == src {
			out = append(out, ev.Line.Text)
		}
	}
	return out
}

func closeBus(t *testing.T, b *Bus) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, b.Close(ctx))
}

func TestSource_String(t *testing.T) {
	assert.Equal(t, "stdout", Stdout.String())
	assert.Equal(t, "stderr", Stderr.String())
	assert.Equal(t, "unknown(7)", Source(7).String())
}

func TestBus_DeliversTaggedEvents(t *testing.T) {
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	rec := &recorder{}
	b := NewBus("run-1", []Listener{rec}, WithClock(func() time.Time { return fixed }))
	assert.Equal(t, "run-1", b.RunID())

	b.Emit(LogLine{Source: Stdout, Text: "Scanning 120 files"})
	b.Emit(LogLine{Source: Stderr, Text: "warning"})
	b.Emit(LogLine{Source: Stdout, Text: "done"})
	closeBus(t, b)

	require.Len(t, rec.events, 3)
	for _, ev := range rec.events {
		assert.Equal(t, Name, ev.Name)
		assert.Equal(t, "run-1", ev.RunID)
		assert.Equal(t, fixed, ev.Time)
	}
	assert.Equal(t, uint64(1), rec.events[0].Seq)
	assert.Equal(t, uint64(1), rec.events[1].Seq)
	assert.Equal(t, uint64(2), rec.events[2].Seq)

	stats := b.Stats()
	assert.Equal(t, Stats{Emitted: 3, Delivered: 3}, stats)
}

func TestBus_PreservesOrderPerSource(t *testing.T) {
	rec := &recorder{}
	b := NewBus("run", []Listener{rec}, WithQueueSize(10000))

	const n = 2000
	var wg sync.WaitGroup
	for _, src := range []Source{Stdout, Stderr} {
		wg.Add(1)
		go func(src Source) {
			defer wg.Done()
			for i := range n {
				b.Emit(LogLine{Source: src, Text: fmt.Sprintf("%s-%d", src, i)})
			}
		}(src)
	}
	wg.Wait()
	closeBus(t, b)

	for _, src := range []Source{Stdout, Stderr} {
		got := rec.texts(src)
		require.Len(t, got, n)
		for i, text := range got {
			assert.Equal(t, fmt.Sprintf("%s-%d", src, i), text)
		}
	}
}

func TestBus_DropsWhenQueueFull(t *testing.T) {
	release := make(chan struct{})
	var delivered []string
	slow := ListenerFunc(func(ev Event) error {
		<-release
		delivered = append(delivered, ev.Line.Text)
		return nil
	})
	b := NewBus("run", []Listener{slow}, WithQueueSize(2))

	// The consumer holds at most one event in hand and two in the queue.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := range 10 {
			b.Emit(LogLine{Source: Stdout, Text: fmt.Sprint(i)})
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Emit blocked on a slow listener")
	}

	close(release)
	closeBus(t, b)

	stats := b.Stats()
	assert.Equal(t, uint64(10), stats.Emitted+stats.Dropped)
	assert.Positive(t, stats.Dropped)
	assert.Len(t, delivered, int(stats.Emitted))
	assert.Equal(t, "0", delivered[0])
}

func TestBus_SwallowsListenerFailures(t *testing.T) {
	rec := &recorder{}
	failing := ListenerFunc(func(Event) error { return errors.New("listener gone") })
	panicking := ListenerFunc(func(Event) error { panic("boom") })
	b := NewBus("run", []Listener{failing, panicking, rec})

	b.Emit(LogLine{Source: Stdout, Text: "a"})
	b.Emit(LogLine{Source: Stdout, Text: "b"})
	closeBus(t, b)

	assert.Equal(t, []string{"a", "b"}, rec.texts(Stdout))
	stats := b.Stats()
	assert.Equal(t, uint64(4), stats.Failed)
	assert.Equal(t, uint64(2), stats.Delivered)
}

func TestBus_NoListeners(t *testing.T) {
	b := NewBus("run", nil)
	b.Emit(LogLine{Source: Stdout, Text: "nobody listening"})
	closeBus(t, b)

	assert.Equal(t, uint64(1), b.Stats().Delivered)
}

func TestBus_Close(t *testing.T) {
	t.Run("emit after close is dropped", func(t *testing.T) {
		rec := &recorder{}
		b := NewBus("run", []Listener{rec})
		closeBus(t, b)

		b.Emit(LogLine{Source: Stdout, Text: "late"})

		assert.Empty(t, rec.events)
		assert.Equal(t, uint64(1), b.Stats().Dropped)
	})

	t.Run("second close returns ErrClosed", func(t *testing.T) {
		b := NewBus("run", nil)
		closeBus(t, b)

		err := b.Close(context.Background())
		assert.ErrorIs(t, err, ErrClosed)
	})

	t.Run("close honours context while draining", func(t *testing.T) {
		block := make(chan struct{})
		defer close(block)
		stuck := ListenerFunc(func(Event) error {
			<-block
			return nil
		})
		b := NewBus("run", []Listener{stuck})
		b.Emit(LogLine{Source: Stdout, Text: "x"})

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		err := b.Close(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestBus_IsolatesRuns(t *testing.T) {
	recA, recB := &recorder{}, &recorder{}
	a := NewBus("a", []Listener{recA})
	b := NewBus("b", []Listener{recB})

	a.Emit(LogLine{Source: Stdout, Text: "from a"})
	b.Emit(LogLine{Source: Stdout, Text: "from b"})
	closeBus(t, a)
	closeBus(t, b)

	assert.Equal(t, []string{"from a"}, recA.texts(Stdout))
	assert.Equal(t, []string{"from b"}, recB.texts(Stdout))
}

func TestSinkFunc(t *testing.T) {
	var got LogLine
	var s Sink = SinkFunc(func(l LogLine) { got = l })
	s.Emit(LogLine{Source: Stderr, Text: "x"})
	assert.Equal(t, LogLine{Source: Stderr, Text: "x"}, got)
}
