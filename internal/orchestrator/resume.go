package orchestrator

import (
	"context"
	"fmt"

	"github.com/mergerstool/mergers/internal/cherrypick"
	"github.com/mergerstool/mergers/internal/errors"
	"github.com/mergerstool/mergers/internal/hooks"
	"github.com/mergerstool/mergers/internal/state"
)

// Continue resumes a merge halted in AwaitingConflictResolution: verify
// conflicts are resolved, mark the halted item Success, advance the
// cursor, and hand back to the cherry-pick engine.
func (o *Orchestrator) Continue(ctx context.Context) RunResult {
	paths, s, guard, err := o.loadLocked()
	if err != nil {
		return o.failure(err, paths.StateFile)
	}
	defer guard.Release()

	if s.Phase != state.PhaseAwaitingConflictResolution {
		return o.failure(errors.NewStateError(
			fmt.Sprintf("continue requires phase awaiting_conflict_resolution, but the merge is in %s", s.Phase),
			errors.ErrPhaseInvalid, errors.ExitInvalidPhase), paths.StateFile)
	}

	resolved, err := o.driver.CheckConflictsResolved(ctx, s.RepoPath)
	if err != nil {
		return o.failure(err, paths.StateFile)
	}
	if !resolved {
		// State is deliberately untouched: the operator re-runs continue
		// once every conflicted file is resolved and staged.
		return RunResult{
			ExitCode: errors.ExitConflict,
			Message: fmt.Sprintf("conflicts in %s are not fully resolved; stage the resolved files and re-run continue",
				s.RepoPath),
			StateFilePath: paths.StateFile,
		}
	}

	if head, err := o.driver.RevParse(ctx, s.RepoPath, "origin/"+s.DevBranch); err == nil &&
		s.SourceBranchHead != "" && head != s.SourceBranchHead && o.logger != nil {
		// Items resolved to fixed commit ids at selection time, so drift
		// in dev_branch cannot corrupt the resumed run.
		o.logger.Info("dev branch has moved since selection",
			"selected_at", s.SourceBranchHead, "now", head)
	}

	s.CherryPickItems[s.CurrentIndex].Status = state.StatusSuccess
	s.CurrentIndex++
	s.ConflictedFiles = nil
	s.Phase = state.PhaseCherryPicking
	if err := o.persist(s, paths.StateFile); err != nil {
		return o.failure(err, paths.StateFile)
	}

	engine := cherrypick.New(o.driver, o.sink, o.saver(paths.StateFile), o.logger)
	if err := engine.Process(ctx, s); err != nil {
		return o.failure(err, paths.StateFile)
	}

	o.hooks.Fire(ctx, hooks.TriggerAfterCherryPick, s.RepoPath)

	return o.cherryPickExit(s, paths.StateFile)
}
