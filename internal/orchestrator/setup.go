package orchestrator

import (
	"context"
	"fmt"

	"github.com/mergerstool/mergers/internal/state"
)

// setupRepository prepares the working tree: worktree mode when a local
// repository was provided, shallow-clone mode otherwise.
// It records repository identity on s and creates the cherry-pick branch
// from the fresh HEAD.
func (o *Orchestrator) setupRepository(ctx context.Context, s *state.MergeStateFile) error {
	set := o.settings

	if set.LocalRepoPath != "" {
		path, err := o.driver.CreateWorktree(ctx, set.LocalRepoPath, set.TargetBranch, set.Version, set.RunHooks)
		if err != nil {
			return err
		}
		s.RepoPath = path
		s.BaseRepoPath = set.LocalRepoPath
		s.IsWorktree = true
	} else {
		url := o.remoteURL()
		path, cleanup, err := o.driver.ShallowClone(ctx, url, set.TargetBranch, set.RunHooks)
		if err != nil {
			return err
		}
		o.cloneCleanup = cleanup
		s.RepoPath = path
		s.IsWorktree = false
	}

	// Record where dev_branch pointed at selection time; purely
	// informational for `status`, so a failure here is not fatal.
	if head, err := o.driver.RevParse(ctx, s.RepoPath, "origin/"+set.DevBranch); err == nil {
		s.SourceBranchHead = head
	}

	branch := fmt.Sprintf("patch/%s-%s", set.TargetBranch, set.Version)
	return o.driver.CreateBranch(ctx, s.RepoPath, branch)
}

// remoteURL derives the platform clone URL from the coordinates.
func (o *Orchestrator) remoteURL() string {
	return fmt.Sprintf("https://%s@dev.azure.com/%s/%s/_git/%s",
		o.settings.PAT, o.settings.Organization, o.settings.Project, o.settings.Repository)
}
