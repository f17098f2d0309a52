package conflict

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mergerstool/mergers/internal/logging"
)

// debounceWindow coalesces bursts of filesystem events (an editor save
// typically fires several) into a single wake-up.
const debounceWindow = 250 * time.Millisecond

// Watcher wakes a waiting caller whenever files change inside a repository
// working tree. `merge status --watch` uses it to re-probe conflict
// resolution only when the operator has actually touched something,
// instead of polling on a fixed interval. It carries no engine semantics:
// `continue` always re-runs the authoritative `git ls-files -u` check.
type Watcher struct {
	fsw    *fsnotify.Watcher
	logger *logging.Logger
	events chan struct{}
}

// NewWatcher watches repo's working tree recursively, skipping .git
// internals. logger may be nil.
func NewWatcher(repo string, logger *logging.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{fsw: fsw, logger: logger, events: make(chan struct{}, 1)}

	err = filepath.WalkDir(repo, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable subtrees are skipped, not fatal
		}
		if !d.IsDir() {
			return nil
		}
		if d.Name() == ".git" || strings.Contains(path, string(filepath.Separator)+".git"+string(filepath.Separator)) {
			return filepath.SkipDir
		}
		return fsw.Add(path)
	})
	if err != nil {
		fsw.Close()
		return nil, err
	}

	go w.pump()
	return w, nil
}

func (w *Watcher) pump() {
	var timer *time.Timer
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if strings.Contains(ev.Name, string(filepath.Separator)+".git"+string(filepath.Separator)) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounceWindow, func() {
				select {
				case w.events <- struct{}{}:
				default:
				}
			})
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			if w.logger != nil {
				w.logger.Warn("watch error", "error", err)
			}
		}
	}
}

// Wait blocks until the working tree changes or ctx is done. It returns
// true when woken by filesystem activity.
func (w *Watcher) Wait(ctx context.Context) bool {
	select {
	case <-w.events:
		return true
	case <-ctx.Done():
		return false
	}
}

// Close stops watching. Safe to call once.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
