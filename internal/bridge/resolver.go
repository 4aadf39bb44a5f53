package bridge

import (
	"fmt"
	"os"
	"strings"

	"github.com/binjac/samplem-bridge/internal/exec"
)

// DefaultExecutable is the name looked up on PATH.
const DefaultExecutable = "samplem"

// DefaultFallbackPaths are tried when the executable is not on PATH, which
// is common for applications launched outside a login shell.
var DefaultFallbackPaths = []string{
	"/opt/homebrew/bin/samplem",
	"/usr/local/bin/samplem",
}

// Attempt records one location tried while resolving the executable.
type Attempt struct {
	Path string
	Err  error // nil if the location is usable
}

// Resolver locates the samplem executable.
type Resolver struct {
	name      string
	fallbacks []string
	lookPath  func(string) (string, error)
	stat      func(string) (os.FileInfo, error)
}

// NewResolver creates a Resolver. A name containing a path separator is used
// as is; otherwise it is searched on PATH and then in fallbacks.
func NewResolver(executor exec.Executor, name string, fallbacks []string) *Resolver {
	if name == "" {
		name = DefaultExecutable
	}
	return &Resolver{
		name:      name,
		fallbacks: fallbacks,
		lookPath:  executor.LookPath,
		stat:      os.Stat,
	}
}

// Name returns the configured executable name.
func (r *Resolver) Name() string {
	return r.name
}

// Resolve returns the path of the first usable executable.
// Returns a *SpawnError wrapping ErrExecutableNotFound if there is none.
func (r *Resolver) Resolve() (string, error) {
	attempts := r.Explain()
	for _, a := range attempts {
		if a.Err == nil {
			return a.Path, nil
		}
	}
	last := attempts[len(attempts)-1]
	return "", &SpawnError{
		Executable: r.name,
		Err:        fmt.Errorf("%w: %w", ErrExecutableNotFound, last.Err),
	}
}

// Explain tries every candidate location in order and reports the outcome
// of each. Resolution stops at the first usable candidate.
func (r *Resolver) Explain() []Attempt {
	if strings.ContainsRune(r.name, os.PathSeparator) {
		return []Attempt{{Path: r.name, Err: r.checkExecutable(r.name)}}
	}

	attempts := make([]Attempt, 0, len(r.fallbacks)+1)

	path, err := r.lookPath(r.name)
	if err == nil {
		return append(attempts, Attempt{Path: path})
	}
	attempts = append(attempts, Attempt{Path: "$PATH/" + r.name, Err: err})

	for _, fb := range r.fallbacks {
		err := r.checkExecutable(fb)
		attempts = append(attempts, Attempt{Path: fb, Err: err})
		if err == nil {
			break
		}
	}
	return attempts
}

// checkExecutable verifies path is a regular file with an execute bit set.
func (r *Resolver) checkExecutable(path string) error {
	info, err := r.stat(path)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s: not a regular file", path)
	}
	if info.Mode().Perm()&0o111 == 0 {
		return fmt.Errorf("%s: not executable", path)
	}
	return nil
}
