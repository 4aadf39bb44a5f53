package cmd

import (
	"fmt"
	"io"

	"github.com/binjac/samplem-bridge/internal/event"
)

// stderrPrefix marks lines samplem wrote to stderr.
const stderrPrefix = "[stderr] "

// linePrinter is an event.Listener writing every line to a single stream,
// so lines from both sources appear in delivery order.
type linePrinter struct {
	out io.Writer
}

func (p linePrinter) Handle(ev event.Event) error {
	prefix := ""
	if ev.Line.Source == event.Stderr {
		prefix = stderrPrefix
	}
	_, err := fmt.Fprintln(p.out, prefix+ev.Line.Text)
	return err
}
