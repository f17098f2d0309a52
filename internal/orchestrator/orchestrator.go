// Package orchestrator ties the merge phases together: it owns the
// state file and lock for the duration of a verb, drives
// selection, repository setup, the cherry-pick engine, and the post-merge
// executor, and maps every outcome onto the stable exit-code taxonomy.
package orchestrator

import (
	"fmt"

	"github.com/mergerstool/mergers/internal/cherrypick"
	"github.com/mergerstool/mergers/internal/config"
	"github.com/mergerstool/mergers/internal/errors"
	"github.com/mergerstool/mergers/internal/events"
	"github.com/mergerstool/mergers/internal/gitdriver"
	"github.com/mergerstool/mergers/internal/hooks"
	"github.com/mergerstool/mergers/internal/logging"
	"github.com/mergerstool/mergers/internal/platform"
	"github.com/mergerstool/mergers/internal/selection"
	"github.com/mergerstool/mergers/internal/state"
)

// RunResult is what every verb returns to its front-end.
type RunResult struct {
	ExitCode      errors.ExitCode
	Message       string
	StateFilePath string
}

// Orchestrator drives one verb invocation. It is single-use: construct,
// call one entry point, then Close.
type Orchestrator struct {
	settings *config.Settings
	client   platform.Client
	driver   gitdriver.Driver
	sink     events.Sink
	hooks    *hooks.Runner
	logger   *logging.Logger
	clock    selection.Clock

	// cloneCleanup removes the clone-mode temp directory. It is armed by
	// setup and disarmed once state is persisted for a non-terminal phase;
	// from then on the directory's lifetime belongs to the operator
	// (recovered via `abort`).
	cloneCleanup   func()
	statePersisted bool
}

// New assembles an Orchestrator. hooks and logger may be nil; clock
// defaults to UTC wall-clock.
func New(settings *config.Settings, client platform.Client, driver gitdriver.Driver, sink events.Sink, hookRunner *hooks.Runner, logger *logging.Logger) *Orchestrator {
	if hookRunner == nil {
		hookRunner = hooks.New(nil, nil, sink, false, logger)
	}
	return &Orchestrator{
		settings: settings,
		client:   client,
		driver:   driver,
		sink:     sink,
		hooks:    hookRunner,
		logger:   logger,
		clock:    selection.UTCNow,
	}
}

// WithClock overrides the clock, for deterministic tests.
func (o *Orchestrator) WithClock(clock selection.Clock) *Orchestrator {
	o.clock = clock
	return o
}

// Close releases the clone-mode temp directory unless its lifetime was
// handed to the operator (state persisted in a non-terminal phase).
func (o *Orchestrator) Close() {
	if o.cloneCleanup != nil && !o.statePersisted {
		o.cloneCleanup()
		o.cloneCleanup = nil
	}
}

// repoKeyPath returns the path the per-repository state file and lock are
// keyed on: the operator-provided local repository path. When none is set
// it returns a validation error.
func (o *Orchestrator) repoKeyPath() (string, error) {
	if o.settings.LocalRepoPath != "" {
		return o.settings.LocalRepoPath, nil
	}
	return "", errors.NewValidationError("a repository path is required to locate merge state (pass --local-repo or the positional path)").
		WithField("local_repo")
}

// loadLocked resolves paths, loads the state file, and acquires the lock,
// in that order. Callers must Release the returned guard.
func (o *Orchestrator) loadLocked() (state.Paths, *state.MergeStateFile, *state.LockGuard, error) {
	keyPath, err := o.repoKeyPath()
	if err != nil {
		return state.Paths{}, nil, nil, err
	}
	paths, err := state.ResolvePaths(keyPath)
	if err != nil {
		return state.Paths{}, nil, nil, err
	}
	s, err := state.Load(paths.StateFile)
	if err != nil {
		return paths, nil, nil, err
	}
	guard, err := state.Acquire(paths.LockFile)
	if err != nil {
		return paths, nil, nil, err
	}
	return paths, s, guard, nil
}

// failure converts err into a RunResult, emitting an Error event so the
// stream mirrors what the exit code reports.
func (o *Orchestrator) failure(err error, stateFilePath string) RunResult {
	code := errors.CodeFor(err)
	o.sink.Emit(events.ErrorEvent{Message: err.Error(), Code: fmt.Sprintf("%d", code)})
	if o.logger != nil {
		o.logger.Error("verb failed", "error", err, "exit_code", int(code))
	}
	return RunResult{ExitCode: code, Message: err.Error(), StateFilePath: stateFilePath}
}

// cherryPickExit maps the state after an engine pass onto run/continue's
// exit semantics: Conflict when halted, otherwise a Complete event plus
// Success or PartialSuccess from the item counts.
func (o *Orchestrator) cherryPickExit(s *state.MergeStateFile, stateFilePath string) RunResult {
	if s.Phase == state.PhaseAwaitingConflictResolution {
		return RunResult{
			ExitCode: errors.ExitConflict,
			Message: fmt.Sprintf("cherry-pick conflict in %s; resolve and stage the files, then run `mergers merge continue %s`",
				s.RepoPath, o.settings.LocalRepoPath),
			StateFilePath: stateFilePath,
		}
	}

	counts := cherrypick.Count(s)
	o.sink.Emit(events.CompleteEvent{
		Successful: counts.Success,
		Failed:     counts.Failed,
		Skipped:    counts.Skipped,
	})

	if counts.Failed > 0 || counts.Skipped > 0 {
		return RunResult{
			ExitCode: errors.ExitPartialSuccess,
			Message: fmt.Sprintf("%d of %d cherry-picks applied; run `mergers merge complete` to tag and transition",
				counts.Success, len(s.CherryPickItems)),
			StateFilePath: stateFilePath,
		}
	}
	return RunResult{
		ExitCode:      errors.ExitSuccess,
		Message:       "all cherry-picks applied; run `mergers merge complete` to tag and transition",
		StateFilePath: stateFilePath,
	}
}
