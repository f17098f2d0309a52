package orchestrator

import (
	"context"
	"fmt"

	"github.com/mergerstool/mergers/internal/cherrypick"
	"github.com/mergerstool/mergers/internal/errors"
	"github.com/mergerstool/mergers/internal/events"
	"github.com/mergerstool/mergers/internal/hooks"
	"github.com/mergerstool/mergers/internal/platform"
	"github.com/mergerstool/mergers/internal/selection"
	"github.com/mergerstool/mergers/internal/state"
)

// Run starts a fresh merge train: validate, lock, fetch and filter PRs,
// set up the repository, persist the initial state, and drive
// the cherry-pick engine until done or halted on a conflict.
func (o *Orchestrator) Run(ctx context.Context) RunResult {
	set := o.settings

	if errs := set.ValidateForRun(); len(errs) > 0 {
		return o.failure(errors.Wrap(errors.ErrConfigInvalid, errs.Error()), "")
	}
	if err := selection.ValidateVersionTag(set.Version); err != nil {
		return o.failure(err, "")
	}

	since, err := selection.ParseSince(set.Since, o.clock)
	if err != nil {
		return o.failure(err, "")
	}
	states := set.ParseSelectByState()

	// Worktree mode can key the lock before any work; clone mode works in
	// a fresh private directory, so its lock is taken after the clone
	// exists.
	var guard *state.LockGuard
	var paths state.Paths
	if set.LocalRepoPath != "" {
		paths, err = state.ResolvePaths(set.LocalRepoPath)
		if err != nil {
			return o.failure(err, "")
		}
		if state.Exists(paths.StateFile) {
			return o.failure(errors.NewStateError(
				fmt.Sprintf("a merge is already in progress for this repository (state file %s); continue, abort, or clean it up first", paths.StateFile),
				errors.ErrPhaseInvalid, errors.ExitInvalidPhase), paths.StateFile)
		}
		guard, err = state.Acquire(paths.LockFile)
		if err != nil {
			return o.failure(err, "")
		}
		defer guard.Release()
	}

	prs, err := o.fetchAndSelect(ctx, states, since)
	if err != nil {
		return o.failure(err, "")
	}
	selected := selection.Selected(prs)
	if len(selected) == 0 {
		return RunResult{
			ExitCode: errors.ExitNoPRsMatched,
			Message:  "no pull requests matched the selection criteria; nothing to merge",
		}
	}

	s := state.New()
	s.Organization, s.Project, s.Repository = set.Organization, set.Project, set.Repository
	s.DevBranch, s.TargetBranch = set.DevBranch, set.TargetBranch
	s.Version = set.Version
	s.TagPrefix = set.TagPrefix
	s.WorkItemState = set.WorkItemState
	s.RunHooks = set.RunHooks
	s.SelectionFilter = &state.SelectionFilter{WorkItemStates: states, Since: set.Since}
	for _, pr := range selected {
		ids := make([]int, len(pr.WorkItems))
		for i, w := range pr.WorkItems {
			ids[i] = w.ID
		}
		s.CherryPickItems = append(s.CherryPickItems, state.CherryPickItem{
			CommitID:    pr.PullRequest.LastMergeCommit,
			PRID:        pr.PullRequest.ID,
			PRTitle:     pr.PullRequest.Title,
			Status:      state.StatusPending,
			WorkItemIDs: ids,
		})
	}

	if err := o.setupRepository(ctx, s); err != nil {
		return o.failure(err, "")
	}

	// Clone mode: the state file is keyed by the fresh working directory.
	if guard == nil {
		paths, err = state.ResolvePaths(s.RepoPath)
		if err != nil {
			return o.failure(err, "")
		}
		guard, err = state.Acquire(paths.LockFile)
		if err != nil {
			return o.failure(err, "")
		}
		defer guard.Release()
	}

	s.Phase = state.PhaseCherryPicking

	// Start is emitted before the first save so the event stream is
	// self-describing from its first line.
	o.sink.Emit(events.StartEvent{
		TotalPRs:     len(s.CherryPickItems),
		Version:      s.Version,
		TargetBranch: s.TargetBranch,
	})
	if err := o.persist(s, paths.StateFile); err != nil {
		return o.failure(err, paths.StateFile)
	}

	o.hooks.Fire(ctx, hooks.TriggerBeforeCherryPick, s.RepoPath)

	engine := cherrypick.New(o.driver, o.sink, o.saver(paths.StateFile), o.logger)
	if err := engine.Process(ctx, s); err != nil {
		return o.failure(err, paths.StateFile)
	}

	o.hooks.Fire(ctx, hooks.TriggerAfterCherryPick, s.RepoPath)

	return o.cherryPickExit(s, paths.StateFile)
}

// fetchAndSelect pulls completed PRs on dev_branch, resolves their work
// items, and applies the selection filters.
func (o *Orchestrator) fetchAndSelect(ctx context.Context, states []string, since selection.Cutoff) ([]platform.PullRequestWithWorkItems, error) {
	set := o.settings

	raw, err := platform.ListAllPullRequests(ctx, o.client,
		set.Organization, set.Project, set.Repository, set.DevBranch, platform.PRStatusCompleted)
	if err != nil {
		return nil, err
	}
	prs, err := platform.ResolveWorkItems(ctx, o.client, set.Organization, set.Project, set.Repository, raw)
	if err != nil {
		return nil, err
	}

	selection.SelectByWorkItemStates(prs, states)
	selection.FilterSince(prs, since)
	if dropped := selection.DeselectWithoutMergeCommit(prs); len(dropped) > 0 && o.logger != nil {
		o.logger.Warn("pull requests without a merge commit were de-selected", "pr_ids", dropped)
	}
	return prs, nil
}

// persist saves s and marks the clone-mode temp directory as owned by the
// operator for as long as the state is non-terminal.
func (o *Orchestrator) persist(s *state.MergeStateFile, path string) error {
	if err := s.Save(path); err != nil {
		return err
	}
	o.statePersisted = !s.Phase.Terminal()
	return nil
}

// saver adapts persist to the engine's Saver contract.
func (o *Orchestrator) saver(path string) cherrypick.Saver {
	return func(s *state.MergeStateFile) error { return o.persist(s, path) }
}
