package logging

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// DefaultTailLines is the default number of lines to read when tailing.
const DefaultTailLines = 100

// DefaultPollInterval is how often Follow checks for new transcript content.
const DefaultPollInterval = 100 * time.Millisecond

// FollowOptions configures Follow.
type FollowOptions struct {
	// PollInterval determines how frequently to check for new content.
	PollInterval time.Duration

	// Finished, if set, is checked on every poll. Once it reports true the
	// remaining content is written and Follow returns nil.
	Finished func() bool
}

// Reader provides functionality to read run transcripts.
type Reader struct {
	pathMgr *PathManager
}

// NewReader creates a new Reader with the given PathManager.
func NewReader(pathMgr *PathManager) *Reader {
	return &Reader{pathMgr: pathMgr}
}

// ReadAll reads the entire transcript of a run.
func (r *Reader) ReadAll(runID string) ([]string, error) {
	return readAllLines(r.pathMgr.RunLogPath(runID))
}

// ReadLastN reads the last n lines of a run's transcript.
// If n <= 0, uses DefaultTailLines.
func (r *Reader) ReadLastN(runID string, n int) ([]string, error) {
	if n <= 0 {
		n = DefaultTailLines
	}
	return readLastNLines(r.pathMgr.RunLogPath(runID), n)
}

// Follow streams new transcript lines to out as they are appended, like
// `tail -f`. It blocks until ctx is cancelled or opts.Finished reports true.
func (r *Reader) Follow(ctx context.Context, runID string, out io.Writer, opts FollowOptions) error {
	file, err := os.Open(r.pathMgr.RunLogPath(runID))
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("seek to end: %w", err)
	}

	return follow(ctx, bufio.NewReader(file), out, opts)
}

// FollowWithHistory writes the last n lines and then follows new output,
// like `tail -n N -f`.
func (r *Reader) FollowWithHistory(ctx context.Context, runID string, out io.Writer, n int, opts FollowOptions) error {
	lines, err := r.ReadLastN(runID, n)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	for _, line := range lines {
		if _, err := fmt.Fprintln(out, line); err != nil {
			return fmt.Errorf("write history: %w", err)
		}
	}

	return r.Follow(ctx, runID, out, opts)
}

func follow(ctx context.Context, reader *bufio.Reader, out io.Writer, opts FollowOptions) error {
	interval := opts.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			// Sample before draining so content written just before the
			// run finished is not missed.
			finished := opts.Finished != nil && opts.Finished()
			if err := drain(reader, out); err != nil {
				return err
			}
			if finished {
				return nil
			}
		}
	}
}

// drain copies everything currently readable to out.
func drain(reader *bufio.Reader, out io.Writer) error {
	for {
		line, err := reader.ReadBytes('\n')
		// Always write any data we received, even with EOF
		if len(line) > 0 {
			if _, werr := out.Write(line); werr != nil {
				return fmt.Errorf("write output: %w", werr)
			}
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("read line: %w", err)
		}
	}
}

// readAllLines reads all lines from a file.
func readAllLines(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan log file: %w", err)
	}

	return lines, nil
}

// readLastNLines reads the last n lines from a file using a ring buffer.
func readLastNLines(path string, n int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	ring := make([]string, n)
	idx := 0
	count := 0

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		ring[idx] = scanner.Text()
		idx = (idx + 1) % n
		count++
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan log file: %w", err)
	}

	if count == 0 {
		return nil, nil
	}

	if count < n {
		return ring[:count], nil
	}

	result := make([]string, n)
	for i := range n {
		result[i] = ring[(idx+i)%n]
	}
	return result, nil
}
