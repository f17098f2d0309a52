// Package gitdriver shells out to the local git binary to implement the
// driver operations the merge engine requires: worktree and clone setup,
// branch creation, single-commit cherry-pick, conflict probing, and
// cleanup. Nothing embeds a git implementation; every operation here is a
// CommandExecutor invocation against the real `git` CLI.
package gitdriver

import "context"

// Outcome is the result of attempting a single cherry-pick.
type Outcome int

const (
	// OutcomeSuccess means the commit applied cleanly.
	OutcomeSuccess Outcome = iota
	// OutcomeConflict means the commit left unmerged paths; ConflictedFiles
	// on the CherryPickResult names them.
	OutcomeConflict
	// OutcomeFailed means the commit failed for a reason other than a
	// content conflict (e.g. "nothing to commit").
	OutcomeFailed
)

// CherryPickResult carries the outcome of CherryPickCommit plus whatever
// detail accompanies it.
type CherryPickResult struct {
	Outcome         Outcome
	ConflictedFiles []string
	FailureMessage  string
}

// Driver is the capability set the orchestrator, cherry-pick engine, and
// repository setup consume. A production Driver shells real git; a test
// double records calls and returns scripted results.
type Driver interface {
	// ShallowClone clones url at targetBranch (--depth 1 --single-branch
	// --no-tags) into a fresh temporary directory and returns its path
	// plus a cleanup function the caller must invoke once the directory's
	// lifetime ends.
	ShallowClone(ctx context.Context, url, targetBranch string, runHooks bool) (path string, cleanup func(), err error)

	// CreateWorktree creates a worktree named "next-<version>" rooted at
	// "origin/<targetBranch>" under base, removing any pre-existing
	// worktree of that name first, and returns the new worktree's path.
	CreateWorktree(ctx context.Context, base, targetBranch, version string, runHooks bool) (path string, err error)

	// CreateBranch creates branch name from the current HEAD of repo.
	CreateBranch(ctx context.Context, repo, name string) error

	// CherryPickCommit applies a single commit onto repo's current branch.
	CherryPickCommit(ctx context.Context, repo, commitID string) (CherryPickResult, error)

	// CheckConflictsResolved reports whether `git ls-files -u` returns no
	// output, i.e. every conflict marker has been resolved and staged.
	CheckConflictsResolved(ctx context.Context, repo string) (bool, error)

	// RevParse resolves ref to a full commit id in repo.
	RevParse(ctx context.Context, repo, ref string) (string, error)

	// IsAncestor reports whether commit is an ancestor of ref
	// (`git merge-base --is-ancestor`).
	IsAncestor(ctx context.Context, repo, commit, ref string) (bool, error)

	// CleanupCherryPick aborts any in-progress cherry-pick and removes the
	// worktree/branch created for this run. base is empty in clone mode.
	CleanupCherryPick(ctx context.Context, base, worktree, version, targetBranch string) error

	// ForceDeleteBranch deletes name even if unmerged.
	ForceDeleteBranch(ctx context.Context, repo, name string) error

	// ForceRemoveWorktree removes the worktree named "next-<version>",
	// falling back to `worktree prune` plus a manual directory removal if
	// the direct remove fails.
	ForceRemoveWorktree(ctx context.Context, repo, version string) error
}
