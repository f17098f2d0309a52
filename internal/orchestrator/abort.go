package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/mergerstool/mergers/internal/errors"
	"github.com/mergerstool/mergers/internal/events"
	"github.com/mergerstool/mergers/internal/hooks"
	"github.com/mergerstool/mergers/internal/state"
)

// Abort cancels an in-flight merge from any non-terminal phase: abort
// the pending cherry-pick, tear down the worktree, and mark the state
// file Aborted.
func (o *Orchestrator) Abort(ctx context.Context) RunResult {
	paths, s, guard, err := o.loadLocked()
	if err != nil {
		return o.failure(err, paths.StateFile)
	}
	defer guard.Release()

	if s.Phase.Terminal() {
		return o.failure(errors.NewStateError(
			fmt.Sprintf("the merge is already %s; nothing to abort", s.Phase),
			errors.ErrPhaseInvalid, errors.ExitInvalidPhase), paths.StateFile)
	}

	base := ""
	if s.IsWorktree {
		base = s.BaseRepoPath
	}
	cleanupErr := o.driver.CleanupCherryPick(ctx, base, s.RepoPath, s.Version, s.TargetBranch)
	if cleanupErr != nil && o.logger != nil {
		o.logger.Warn("working tree cleanup failed during abort", "error", cleanupErr)
	}

	now := time.Now().UTC()
	s.Phase = state.PhaseAborted
	s.FinalStatus = state.FinalAborted
	s.CompletedAt = &now
	s.ConflictedFiles = nil
	if err := o.persist(s, paths.StateFile); err != nil {
		return o.failure(err, paths.StateFile)
	}

	ev := events.AbortedEvent{Success: cleanupErr == nil}
	if cleanupErr != nil {
		ev.Message = fmt.Sprintf("state aborted, but working tree cleanup failed: %v", cleanupErr)
	}
	o.sink.Emit(ev)

	o.hooks.Fire(ctx, hooks.TriggerAfterAbort, s.RepoPath)

	msg := "merge aborted; the state file can be removed with `mergers cleanup`"
	if cleanupErr != nil {
		msg = ev.Message
	}
	return RunResult{ExitCode: errors.ExitSuccess, Message: msg, StateFilePath: paths.StateFile}
}
