// Package spinner shows a spinner next to the latest samplem line, updating in
// place instead of scrolling the terminal.
package spinner

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/binjac/samplem-bridge/internal/event"
)

// Spinner is an event.Listener that renders each line as the spinner status.
type Spinner struct {
	mu      sync.Mutex
	program *tea.Program
	stopped bool

	lineCh chan string
	done   chan struct{}
	stop   sync.Once
	output io.Writer
}

// New creates a new Spinner that writes to the given output (typically os.Stderr).
// If output is nil, os.Stderr is used.
func New(output io.Writer) *Spinner {
	if output == nil {
		output = os.Stderr
	}

	return &Spinner{
		lineCh: make(chan string, 16),
		done:   make(chan struct{}),
		output: output,
	}
}

// Handle implements event.Listener. Only the latest line is shown, so lines
// arriving faster than the display refreshes are skipped.
func (s *Spinner) Handle(ev event.Event) error {
	text := strings.TrimSpace(ev.Line.Text)
	if text == "" {
		return nil
	}
	if ev.Line.Source == event.Stderr {
		text = "[stderr] " + text
	}

	select {
	case s.lineCh <- text:
	case <-s.done:
	default:
	}
	return nil
}

// Start runs the display until Stop is called. It blocks, so callers run it
// on its own goroutine.
func (s *Spinner) Start() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.program = tea.NewProgram(newModel(s.lineCh, s.done, width(s.output)),
		tea.WithOutput(s.output),
		tea.WithInput(nil),
		tea.WithoutSignalHandler(), // Let parent handle signals
	)
	program := s.program
	s.mu.Unlock()

	_, err := program.Run()
	return err
}

// Stop clears the spinner line and ends Start.
func (s *Spinner) Stop() {
	s.stop.Do(func() {
		close(s.done)

		s.mu.Lock()
		defer s.mu.Unlock()
		s.stopped = true
		if s.program != nil {
			s.program.Quit()
		}
	})
}

// width returns the terminal width of output, or 80 when it is not a terminal.
func width(output io.Writer) int {
	if f, ok := output.(*os.File); ok {
		if fd := int(f.Fd()); term.IsTerminal(fd) {
			if w, _, err := term.GetSize(fd); err == nil && w > 0 {
				return w
			}
		}
	}
	return 80
}

// model is the bubbletea model for the spinner.
type model struct {
	spinner    spinner.Model
	statusLine string
	width      int
	lineCh     <-chan string
	done       <-chan struct{}
	quitting   bool
}

// lineMsg carries the next status line.
type lineMsg string

// newModel creates a new spinner model.
func newModel(lineCh <-chan string, done <-chan struct{}, width int) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return model{
		spinner:    s,
		statusLine: "",
		width:      width,
		lineCh:     lineCh,
		done:       done,
	}
}

// Init implements tea.Model.
//
//nolint:gocritic // hugeParam: tea.Model interface requires value receiver
func (m model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		waitForLine(m.lineCh, m.done),
	)
}

// Update implements tea.Model.
//
//nolint:gocritic // hugeParam: tea.Model interface requires value receiver
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Allow ctrl+c to quit
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case lineMsg:
		m.statusLine = string(msg)
		return m, waitForLine(m.lineCh, m.done)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.QuitMsg:
		m.quitting = true
		return m, nil
	}

	return m, nil
}

// View implements tea.Model.
//
//nolint:gocritic // hugeParam: tea.Model interface requires value receiver
func (m model) View() string {
	if m.quitting {
		return "" // Clear the line on exit
	}

	// Spinner glyph plus a space.
	maxLineWidth := max(m.width-3, 10)

	line := truncate(m.statusLine, maxLineWidth)
	return m.spinner.View() + " " + line
}

// waitForLine returns a command that waits for the next line, or quits once
// the spinner is stopped.
func waitForLine(lineCh <-chan string, done <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		select {
		case line := <-lineCh:
			return lineMsg(line)
		case <-done:
			return tea.Quit()
		}
	}
}

// truncate shortens a string to fit within maxWidth.
// If truncated, it adds "..." at the end.
func truncate(s string, maxWidth int) string {
	if maxWidth <= 3 {
		return ""
	}
	r := []rune(s)
	if len(r) <= maxWidth {
		return s
	}
	return string(r[:maxWidth-3]) + "..."
}
