// Package logging stores and reads the transcripts of samplem runs.
//
// Each run writes its stdout and stderr lines, in delivery order, to a single
// file named after the run ID under the logs directory.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

const logExt = ".log"

// PathManager handles transcript path construction and directory management.
type PathManager struct {
	baseDir string
}

// NewPathManager creates a new PathManager with the given base directory.
// The base directory is typically ~/.local/share/samplem-bridge/logs.
func NewPathManager(baseDir string) *PathManager {
	return &PathManager{baseDir: baseDir}
}

// BaseDir returns the base log directory.
func (p *PathManager) BaseDir() string {
	return p.baseDir
}

// RunLogPath returns the transcript path for a run.
// Path format: <baseDir>/<runID>.log
func (p *PathManager) RunLogPath(runID string) string {
	return filepath.Join(p.baseDir, runID+logExt)
}

// EnsureRunLog creates the log directory if needed and returns the
// transcript path for a run.
func (p *PathManager) EnsureRunLog(runID string) (string, error) {
	if err := os.MkdirAll(p.baseDir, 0o750); err != nil {
		return "", fmt.Errorf("create log directory: %w", err)
	}
	return p.RunLogPath(runID), nil
}

// LogExists checks if a transcript exists for the given run.
func (p *PathManager) LogExists(runID string) bool {
	_, err := os.Stat(p.RunLogPath(runID))
	return err == nil
}

// RemoveRunLog removes a run's transcript if it exists.
func (p *PathManager) RemoveRunLog(runID string) error {
	if err := os.Remove(p.RunLogPath(runID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove run log: %w", err)
	}
	return nil
}

// ListRunLogs returns the sorted IDs of runs that have a transcript.
func (p *PathManager) ListRunLogs() ([]string, error) {
	entries, err := os.ReadDir(p.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read log directory: %w", err)
	}

	var runs []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if filepath.Ext(name) == logExt {
			runs = append(runs, name[:len(name)-len(logExt)])
		}
	}
	sort.Strings(runs)
	return runs, nil
}
