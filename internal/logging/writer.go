package logging

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/binjac/samplem-bridge/internal/event"
)

// TranscriptListener is an event.Listener that appends each line of a run,
// newline terminated, to the run's transcript file. Lines from both
// streams land in the one file in delivery order.
type TranscriptListener struct {
	mu   sync.Mutex
	file *os.File
}

// NewTranscriptListener creates or truncates the transcript at path.
func NewTranscriptListener(path string) (*TranscriptListener, error) {
	//nolint:gosec // G304: path is constructed from trusted PathManager, not arbitrary user input
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create run log file: %w", err)
	}
	return &TranscriptListener{file: f}, nil
}

// Handle implements event.Listener.
func (l *TranscriptListener) Handle(ev event.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return fmt.Errorf("write transcript line: %w", os.ErrClosed)
	}
	if _, err := io.WriteString(l.file, ev.Line.Text+"\n"); err != nil {
		return fmt.Errorf("write transcript line: %w", err)
	}
	return nil
}

// Close closes the transcript file. Closing twice is a no-op.
func (l *TranscriptListener) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	if err != nil {
		return fmt.Errorf("close run log file: %w", err)
	}
	return nil
}
