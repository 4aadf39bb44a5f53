package bridge

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"unicode/utf8"

	"github.com/binjac/samplem-bridge/internal/event"
	"github.com/binjac/samplem-bridge/internal/slogger"
)

// pump turns one output stream into LogLines.
//
// A pump always reads its stream to EOF, even after ctx is done: the child's
// output is handed over synchronously, so a pump that stopped reading would
// stall the process wait. Every line the child wrote before it was killed
// is still emitted.
type pump struct {
	source event.Source
	r      io.ReadCloser
	sink   event.Sink

	lines       int // emitted
	undecodable int // dropped because they were not valid UTF-8
}

func newPump(source event.Source, r io.ReadCloser, sink event.Sink) *pump {
	return &pump{source: source, r: r, sink: sink}
}

// run reads until EOF or a read fault. A fault ends the pump without failing
// the run; the reader is closed so the writing side is released.
func (p *pump) run(ctx context.Context) error {
	defer p.r.Close()

	br := bufio.NewReader(p.r)
	for {
		line, err := br.ReadBytes('\n')
		if len(line) > 0 {
			p.emit(line)
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				slogger.L(ctx).Debug("output stream read failed", "stream", p.source, "error", err)
			}
			return nil
		}
	}
}

func (p *pump) emit(raw []byte) {
	raw = bytes.TrimSuffix(raw, []byte("\n"))
	raw = bytes.TrimSuffix(raw, []byte("\r"))

	if !utf8.Valid(raw) {
		p.undecodable++
		return
	}

	p.sink.Emit(event.LogLine{Source: p.source, Text: string(raw)})
	p.lines++
}
