package history

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"syscall"
	"time"
)

const (
	lockTimeout = 5 * time.Second
	fileMode    = 0644
	dirMode     = 0755
)

// historyFile represents the on-disk history format.
type historyFile struct {
	Version int   `json:"version"`
	Runs    []Run `json:"runs"`
}

func (hf *historyFile) find(ref string) int {
	for i := range hf.Runs {
		if hf.Runs[i].ID == ref || hf.Runs[i].Name == ref {
			return i
		}
	}
	return -1
}

type jsonStore struct {
	path string
	mu   sync.RWMutex
}

// NewStore creates a new JSON-backed history store.
func NewStore(path string) *jsonStore {
	return &jsonStore{path: path}
}

func (s *jsonStore) Add(ctx context.Context, run Run) error {
	return s.withExclusiveLock(ctx, func(hf *historyFile) error {
		if hf.find(run.ID) >= 0 || (run.Name != "" && hf.find(run.Name) >= 0) {
			return ErrAlreadyExists
		}

		hf.Runs = append(hf.Runs, run)
		return nil
	})
}

func (s *jsonStore) Get(ctx context.Context, ref string) (*Run, error) {
	var result *Run

	err := s.withSharedLock(ctx, func(hf *historyFile) error {
		i := hf.find(ref)
		if i < 0 {
			return ErrNotFound
		}
		run := hf.Runs[i]
		result = &run
		return nil
	})

	return result, err
}

func (s *jsonStore) Update(ctx context.Context, run Run) error {
	return s.withExclusiveLock(ctx, func(hf *historyFile) error {
		for i := range hf.Runs {
			if hf.Runs[i].ID == run.ID {
				hf.Runs[i] = run
				return nil
			}
		}
		return ErrNotFound
	})
}

func (s *jsonStore) Remove(ctx context.Context, ref string) error {
	return s.withExclusiveLock(ctx, func(hf *historyFile) error {
		i := hf.find(ref)
		if i < 0 {
			return ErrNotFound
		}
		hf.Runs = append(hf.Runs[:i], hf.Runs[i+1:]...)
		return nil
	})
}

func (s *jsonStore) List(ctx context.Context, filter ListFilter) ([]Run, error) {
	var result []Run

	err := s.withSharedLock(ctx, func(hf *historyFile) error {
		for _, r := range hf.Runs {
			if filter.Status != "" && r.Status != filter.Status {
				continue
			}
			if filter.Path != "" && r.Invocation.Path != filter.Path {
				continue
			}
			result = append(result, r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].StartedAt.Before(result[j].StartedAt)
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[len(result)-filter.Limit:]
	}
	return result, nil
}

func (s *jsonStore) Exists(ctx context.Context, ref string) bool {
	_, err := s.Get(ctx, ref)
	return err == nil
}

// withSharedLock executes fn with a shared (read) lock.
func (s *jsonStore) withSharedLock(ctx context.Context, fn func(*historyFile) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hf, file, err := s.openAndLock(ctx, false)
	if err != nil {
		return err
	}
	defer s.unlockAndClose(file)

	return fn(hf)
}

// withExclusiveLock executes fn with an exclusive (write) lock.
// Changes made by fn are persisted to disk.
func (s *jsonStore) withExclusiveLock(ctx context.Context, fn func(*historyFile) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	hf, file, err := s.openAndLock(ctx, true)
	if err != nil {
		return err
	}
	defer s.unlockAndClose(file)

	if err := fn(hf); err != nil {
		return err
	}

	return s.save(hf)
}

// openAndLock opens the history file and acquires a lock.
func (s *jsonStore) openAndLock(ctx context.Context, exclusive bool) (*historyFile, *os.File, error) {
	if err := os.MkdirAll(filepath.Dir(s.path), dirMode); err != nil {
		return nil, nil, fmt.Errorf("create history directory: %w", err)
	}

	lockType := syscall.LOCK_SH
	if exclusive {
		lockType = syscall.LOCK_EX
	}

	var file *os.File
	for {
		f, err := os.OpenFile(s.path, os.O_RDWR|os.O_CREATE, fileMode)
		if err != nil {
			return nil, nil, fmt.Errorf("open history file: %w", err)
		}

		if err := s.acquireLock(ctx, f, lockType); err != nil {
			f.Close()
			return nil, nil, err
		}

		// save replaces the file by rename, so a lock taken on the old inode
		// while another writer held it is stale.
		if current(f, s.path) {
			file = f
			break
		}
		s.unlockAndClose(f)
	}

	hf, err := s.load(file)
	if err != nil {
		s.unlockAndClose(file)
		return nil, nil, err
	}

	return hf, file, nil
}

// acquireLock attempts to acquire a file lock with timeout.
func (s *jsonStore) acquireLock(ctx context.Context, file *os.File, lockType int) error {
	deadline := time.Now().Add(lockTimeout)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := syscall.Flock(int(file.Fd()), lockType|syscall.LOCK_NB)
		if err == nil {
			return nil
		}

		if err != syscall.EWOULDBLOCK {
			return fmt.Errorf("acquire file lock: %w", err)
		}

		if time.Now().After(deadline) {
			return ErrLockTimeout
		}

		time.Sleep(10 * time.Millisecond)
	}
}

// current reports whether f still refers to the file at path.
func current(f *os.File, path string) bool {
	held, err := f.Stat()
	if err != nil {
		return false
	}
	onDisk, err := os.Stat(path)
	if err != nil {
		return false
	}
	return os.SameFile(held, onDisk)
}

// unlockAndClose releases the lock and closes the file.
func (s *jsonStore) unlockAndClose(file *os.File) {
	syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
	file.Close()
}

// load reads and parses the history file.
func (s *jsonStore) load(file *os.File) (*historyFile, error) {
	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat history file: %w", err)
	}

	if info.Size() == 0 {
		return &historyFile{Version: 1, Runs: []Run{}}, nil
	}

	if _, err := file.Seek(0, 0); err != nil {
		return nil, fmt.Errorf("seek history file: %w", err)
	}

	var hf historyFile
	if err := json.NewDecoder(file).Decode(&hf); err != nil {
		return nil, fmt.Errorf("decode history file: %w", err)
	}

	return &hf, nil
}

// save writes the history to disk atomically.
func (s *jsonStore) save(hf *historyFile) error {
	hf.Version = 1

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "history-*.json.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	defer func() {
		if tmpPath != "" {
			os.Remove(tmpPath)
		}
	}()

	encoder := json.NewEncoder(tmp)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(hf); err != nil {
		tmp.Close()
		return fmt.Errorf("encode history: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("rename history file: %w", err)
	}

	tmpPath = ""
	return nil
}
