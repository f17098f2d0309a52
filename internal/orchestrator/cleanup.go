package orchestrator

import (
	"context"
	"fmt"

	"github.com/mergerstool/mergers/internal/errors"
	"github.com/mergerstool/mergers/internal/state"
)

// Cleanup removes the state file of a finished merge; removal happens
// only by explicit cleanup after Completed or Aborted. The worktree and
// patch branch are removed as well in worktree mode, so the base
// repository is left as the operator found it.
func (o *Orchestrator) Cleanup(ctx context.Context) RunResult {
	keyPath, err := o.repoKeyPath()
	if err != nil {
		return o.failure(err, "")
	}
	paths, err := state.ResolvePaths(keyPath)
	if err != nil {
		return o.failure(err, "")
	}
	s, err := state.Load(paths.StateFile)
	if err != nil {
		return o.failure(err, paths.StateFile)
	}

	if !s.Phase.Terminal() {
		return o.failure(errors.NewStateError(
			fmt.Sprintf("cleanup requires a finished merge, but the merge is in %s; continue it or run `mergers merge abort`", s.Phase),
			errors.ErrPhaseInvalid, errors.ExitInvalidPhase), paths.StateFile)
	}

	guard, err := state.Acquire(paths.LockFile)
	if err != nil {
		return o.failure(err, paths.StateFile)
	}
	defer guard.Release()

	if s.IsWorktree {
		if err := o.driver.ForceRemoveWorktree(ctx, s.BaseRepoPath, s.Version); err != nil && o.logger != nil {
			o.logger.Warn("worktree removal failed during cleanup", "error", err)
		}
		branch := fmt.Sprintf("patch/%s-%s", s.TargetBranch, s.Version)
		if err := o.driver.ForceDeleteBranch(ctx, s.BaseRepoPath, branch); err != nil && o.logger != nil {
			o.logger.Warn("branch removal failed during cleanup", "error", err)
		}
	}

	if err := state.Remove(paths.StateFile); err != nil {
		return o.failure(err, paths.StateFile)
	}

	return RunResult{
		ExitCode: errors.ExitSuccess,
		Message:  fmt.Sprintf("removed state file %s", paths.StateFile),
	}
}
