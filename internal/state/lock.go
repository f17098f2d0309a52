package state

import (
	"encoding/json"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/mergerstool/mergers/internal/errors"
)

// lockFile is the on-disk shape of the sibling PID lock.
type lockFile struct {
	PID       int       `json:"pid"`
	Hostname  string    `json:"hostname"`
	StartedAt time.Time `json:"started_at"`
}

// LockGuard represents a held per-repository lock. Release is idempotent
// and best-effort: it is safe to call multiple times, including from a
// deferred call after a panic, and it never returns an error the caller
// must check.
type LockGuard struct {
	path string
	pid  int
}

// Acquire implements the PID-file locking protocol:
//  1. If the lock file does not exist, write our PID and return Acquired.
//  2. If it exists, probe the recorded PID. A live process means Busy.
//  3. A dead process means the lock is stale: unlink it and retry from (1).
//  4. After writing, re-read and verify the PID is ours; a mismatch (lost
//     a race against a concurrent acquirer) means Busy.
//
// Acquire retries the stale-unlink path at most once; a lock file that
// keeps reappearing indicates genuine contention, not staleness.
func Acquire(lockPath string) (*LockGuard, error) {
	for attempt := 0; attempt < 2; attempt++ {
		if existing, err := readLock(lockPath); err == nil {
			if processAlive(existing.PID) {
				return nil, errors.Wrap(errors.ErrLockHeld,
					fmt.Sprintf("lock held by pid %d on %s", existing.PID, existing.Hostname))
			}
			if rmErr := os.Remove(lockPath); rmErr != nil && !os.IsNotExist(rmErr) {
				return nil, errors.NewLockError("remove stale lock", rmErr)
			}
			continue
		} else if !os.IsNotExist(err) {
			// Unparsable lock: stale (see readLock). Unlink it and create ours.
			if rmErr := os.Remove(lockPath); rmErr != nil && !os.IsNotExist(rmErr) {
				return nil, errors.NewLockError("remove stale lock", rmErr)
			}
		}

		guard, err := writeLock(lockPath)
		if err != nil {
			if os.IsExist(err) {
				// Lost a race against a concurrent acquirer; loop back to
				// probe whichever lock is there now.
				continue
			}
			return nil, errors.NewLockError("create lock file", err)
		}

		// Re-read and verify we actually own it (guards against a
		// concurrent acquirer winning a race the O_EXCL check missed on
		// some filesystems).
		verify, err := readLock(lockPath)
		if err != nil || verify.PID != guard.pid {
			return nil, errors.Wrap(errors.ErrLockHeld, "lost race acquiring lock")
		}
		return guard, nil
	}
	return nil, errors.NewLockError("exceeded stale-lock retry budget", nil)
}

func writeLock(lockPath string) (*LockGuard, error) {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	rec := lockFile{PID: os.Getpid(), Hostname: hostname, StartedAt: time.Now().UTC()}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal lock: %w", err)
	}

	f, err := os.OpenFile(lockPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		os.Remove(lockPath)
		return nil, fmt.Errorf("write lock file: %w", err)
	}
	return &LockGuard{path: lockPath, pid: rec.PID}, nil
}

func readLock(lockPath string) (*lockFile, error) {
	data, err := os.ReadFile(lockPath)
	if err != nil {
		return nil, err
	}
	var rec lockFile
	if err := json.Unmarshal(data, &rec); err != nil {
		// A corrupt lock file is treated as stale rather than fatal: it
		// cannot name a live holder we'd be wrong to evict.
		return nil, fmt.Errorf("parse lock file: %w", err)
	}
	return &rec, nil
}

// processAlive reports whether pid names a live process, via the null
// signal (Unix kill(pid, 0) semantics).
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

// Release removes the lock file if and only if it still names our PID.
// Errors are swallowed: release is best-effort on every code path,
// including a deferred call after a panic.
func (g *LockGuard) Release() {
	if g == nil || g.path == "" {
		return
	}
	existing, err := readLock(g.path)
	if err != nil {
		return
	}
	if existing.PID != g.pid {
		return
	}
	_ = os.Remove(g.path)
}

// IsLocked reports whether lockPath names a live holder without acquiring
// the lock.
func IsLocked(lockPath string) (pid int, busy bool) {
	existing, err := readLock(lockPath)
	if err != nil {
		return 0, false
	}
	return existing.PID, processAlive(existing.PID)
}
