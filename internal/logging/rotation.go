// Package logging provides structured logging for mergers runs.
package logging

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// RotationConfig bounds how much log history a repository accumulates.
type RotationConfig struct {
	// MaxSizeMB is the size a log file may reach before it is rotated
	// into a numbered generation. 0 disables rotation entirely.
	MaxSizeMB int
	// MaxBackups is how many rotated generations to keep. 0 keeps none:
	// a rotation simply truncates history.
	MaxBackups int
	// Compress gzips each generation as it is rotated out.
	Compress bool
}

// DefaultRotationConfig keeps three 10 MB generations, uncompressed.
func DefaultRotationConfig() RotationConfig {
	return RotationConfig{MaxSizeMB: 10, MaxBackups: 3, Compress: false}
}

// RotatingWriter is an append-only file writer that rotates the file into
// numbered generations ("<path>.1" newest, "<path>.N" oldest, optionally
// gzipped) once it would grow past the configured size. Safe for
// concurrent use; every merge-run goroutine logs through one of these.
type RotatingWriter struct {
	mu sync.Mutex

	path       string
	limit      int64 // rotation threshold in bytes; 0 means never rotate
	maxBackups int
	compress   bool

	f    *os.File
	size int64
}

// NewRotatingWriter opens (or creates) the log file at path, creating
// parent directories as needed.
func NewRotatingWriter(path string, config RotationConfig) (*RotatingWriter, error) {
	rw := &RotatingWriter{
		path:       path,
		limit:      int64(config.MaxSizeMB) << 20,
		maxBackups: config.MaxBackups,
		compress:   config.Compress,
	}
	if err := rw.open(); err != nil {
		return nil, err
	}
	return rw, nil
}

// open (re)opens the active log file for appending and records its size.
// Callers hold the mutex.
func (rw *RotatingWriter) open() error {
	if err := os.MkdirAll(filepath.Dir(rw.path), 0o755); err != nil {
		return fmt.Errorf("logging: create log directory: %w", err)
	}
	f, err := os.OpenFile(rw.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("logging: open log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("logging: stat log file: %w", err)
	}
	rw.f = f
	rw.size = info.Size()
	return nil
}

// Write appends p, rotating first if the write would push the file past
// the limit. A failed rotation is reported to stderr but never drops the
// record: the write still lands in the current file.
func (rw *RotatingWriter) Write(p []byte) (int, error) {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	if rw.f == nil {
		return 0, fmt.Errorf("logging: write to closed log file %s", rw.path)
	}

	if rw.limit > 0 && rw.size+int64(len(p)) > rw.limit {
		if err := rw.rotate(); err != nil {
			fmt.Fprintf(os.Stderr, "mergers: log rotation of %s failed: %v\n", rw.path, err)
		}
	}

	n, err := rw.f.Write(p)
	rw.size += int64(n)
	return n, err
}

// rotate closes the active file, shifts existing generations up one slot,
// moves the closed file into slot 1 (or removes it when no generations
// are kept), and reopens a fresh active file.
// Callers hold the mutex.
func (rw *RotatingWriter) rotate() error {
	if err := rw.f.Sync(); err != nil {
		return fmt.Errorf("sync before rotation: %w", err)
	}
	if err := rw.f.Close(); err != nil {
		return fmt.Errorf("close before rotation: %w", err)
	}
	rw.f = nil

	rw.shiftGenerations()

	if rw.maxBackups <= 0 {
		// No generations are kept: the full file is discarded.
		if err := os.Remove(rw.path); err != nil {
			if reopenErr := rw.open(); reopenErr != nil {
				return fmt.Errorf("remove failed and reopen failed: %w", reopenErr)
			}
			return fmt.Errorf("remove full log file: %w", err)
		}
		return rw.open()
	}

	if err := os.Rename(rw.path, rw.generation(1)); err != nil {
		// Could not move the full file aside; reopen it and keep
		// appending rather than losing records.
		if reopenErr := rw.open(); reopenErr != nil {
			return fmt.Errorf("rename failed and reopen failed: %w", reopenErr)
		}
		return fmt.Errorf("rename to generation 1: %w", err)
	}

	if rw.compress {
		if err := compressGeneration(rw.generation(1)); err != nil {
			fmt.Fprintf(os.Stderr, "mergers: compress rotated log %s failed: %v\n", rw.generation(1), err)
		}
	}

	return rw.open()
}

// shiftGenerations renames "<path>.n" to "<path>.n+1" from oldest to
// newest, dropping whatever falls off the end. Each slot may hold either
// a plain or a gzipped generation.
func (rw *RotatingWriter) shiftGenerations() {
	if rw.maxBackups <= 0 {
		os.Remove(rw.generation(1))
		os.Remove(rw.generation(1) + ".gz")
		return
	}

	os.Remove(rw.generation(rw.maxBackups))
	os.Remove(rw.generation(rw.maxBackups) + ".gz")

	for gen := rw.maxBackups - 1; gen >= 1; gen-- {
		from, to := rw.generation(gen), rw.generation(gen+1)
		if _, err := os.Stat(from + ".gz"); err == nil {
			os.Rename(from+".gz", to+".gz")
		} else if _, err := os.Stat(from); err == nil {
			os.Rename(from, to)
		}
	}
}

func (rw *RotatingWriter) generation(n int) string {
	return fmt.Sprintf("%s.%d", rw.path, n)
}

// compressGeneration streams path into "<path>.gz" and removes the
// original only once the compressed copy is fully written. Runs under the
// writer's lock, so a reader never observes both copies racing.
func compressGeneration(path string) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	gzPath := path + ".gz"
	dst, err := os.Create(gzPath)
	if err != nil {
		return err
	}

	zw := gzip.NewWriter(dst)
	if _, err := io.Copy(zw, src); err != nil {
		dst.Close()
		os.Remove(gzPath)
		return err
	}
	if err := zw.Close(); err != nil {
		dst.Close()
		os.Remove(gzPath)
		return err
	}
	if err := dst.Close(); err != nil {
		os.Remove(gzPath)
		return err
	}

	return os.Remove(path)
}

// Sync flushes the active file to disk.
func (rw *RotatingWriter) Sync() error {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	if rw.f == nil {
		return nil
	}
	return rw.f.Sync()
}

// Close syncs and closes the active file. Idempotent.
func (rw *RotatingWriter) Close() error {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	if rw.f == nil {
		return nil
	}
	if err := rw.f.Sync(); err != nil {
		return fmt.Errorf("logging: sync log file: %w", err)
	}
	if err := rw.f.Close(); err != nil {
		return fmt.Errorf("logging: close log file: %w", err)
	}
	rw.f = nil
	return nil
}

// CurrentSize reports the active file's size in bytes.
func (rw *RotatingWriter) CurrentSize() int64 {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	return rw.size
}
