package gitdriver

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/mergerstool/mergers/internal/errors"
	"github.com/mergerstool/mergers/internal/logging"
)

// CLIDriver implements Driver by shelling out to the `git` binary.
type CLIDriver struct {
	exec   CommandExecutor
	logger *logging.Logger
}

// NewCLIDriver returns a production Driver. logger may be nil.
func NewCLIDriver(logger *logging.Logger) *CLIDriver {
	return &CLIDriver{exec: NewCLIExecutor(), logger: logger}
}

// NewCLIDriverWithExecutor is primarily for tests that substitute a
// scripted CommandExecutor.
func NewCLIDriverWithExecutor(exec CommandExecutor, logger *logging.Logger) *CLIDriver {
	return &CLIDriver{exec: exec, logger: logger}
}

func (d *CLIDriver) run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	out, err := d.exec.Run(ctx, dir, name, args...)
	if d.logger != nil {
		d.logger.Debug("git command", "dir", dir, "args", args)
	}
	return out, err
}

func (d *CLIDriver) ShallowClone(ctx context.Context, url, targetBranch string, runHooks bool) (string, func(), error) {
	base := os.TempDir()
	path := filepath.Join(base, fmt.Sprintf("mergers-clone-%s", freshCloneID()))

	args := []string{"clone", "--depth", "1", "--single-branch", "--branch", targetBranch, "--no-tags", url, path}
	if !runHooks {
		args = append(args, "--config", "core.hooksPath=/dev/null")
	}

	out, err := d.run(ctx, "", "git", args...)
	if err != nil {
		return "", nil, errors.NewGitError("shallow clone failed", err).
			WithRepository(url).WithBranch(targetBranch).WithGitOutput(string(out))
	}

	cleanup := func() { _ = os.RemoveAll(path) }
	return path, cleanup, nil
}

func (d *CLIDriver) CreateWorktree(ctx context.Context, base, targetBranch, version string, runHooks bool) (string, error) {
	name := fmt.Sprintf("next-%s", version)
	path := filepath.Join(base, "..", name)
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	if out, err := d.run(ctx, base, "git", "worktree", "list", "--porcelain"); err == nil {
		if strings.Contains(string(out), path) {
			if err := d.ForceRemoveWorktree(ctx, base, version); err != nil {
				return "", err
			}
		}
	}

	ref := "origin/" + targetBranch
	out, err := d.run(ctx, base, "git", "worktree", "add", path, ref)
	if err != nil {
		return "", errors.NewGitError("create worktree failed", err).
			WithRepository(base).WithBranch(targetBranch).WithGitOutput(string(out))
	}
	_ = runHooks // hooks are executed by internal/hooks, gated on the same flag
	return path, nil
}

func (d *CLIDriver) CreateBranch(ctx context.Context, repo, name string) error {
	out, err := d.run(ctx, repo, "git", "checkout", "-b", name)
	if err != nil {
		return errors.NewGitError("create branch failed", err).
			WithRepository(repo).WithBranch(name).WithGitOutput(string(out))
	}
	return nil
}

func (d *CLIDriver) CherryPickCommit(ctx context.Context, repo, commitID string) (CherryPickResult, error) {
	out, err := d.run(ctx, repo, "git", "cherry-pick", commitID)
	if err == nil {
		return CherryPickResult{Outcome: OutcomeSuccess}, nil
	}

	output := string(out)
	if strings.Contains(output, "CONFLICT") || strings.Contains(output, "conflict") {
		files, ferr := d.conflictedFiles(ctx, repo)
		if ferr != nil {
			return CherryPickResult{}, ferr
		}
		return CherryPickResult{Outcome: OutcomeConflict, ConflictedFiles: files}, nil
	}

	if strings.Contains(output, "nothing to commit") || strings.Contains(output, "The previous cherry-pick is now empty") {
		return CherryPickResult{Outcome: OutcomeFailed, FailureMessage: "nothing to commit"}, nil
	}

	return CherryPickResult{Outcome: OutcomeFailed, FailureMessage: strings.TrimSpace(output)}, nil
}

// conflictedFiles maps stderr containing "conflict"/"CONFLICT" to the file
// list via `git diff --name-only --diff-filter=U`.
func (d *CLIDriver) conflictedFiles(ctx context.Context, repo string) ([]string, error) {
	out, err := d.run(ctx, repo, "git", "diff", "--name-only", "--diff-filter=U")
	if err != nil {
		return nil, errors.NewGitError("list conflicted files failed", err).WithRepository(repo).WithGitOutput(string(out))
	}
	return splitNonEmptyLines(string(out)), nil
}

func (d *CLIDriver) CheckConflictsResolved(ctx context.Context, repo string) (bool, error) {
	out, err := d.run(ctx, repo, "git", "ls-files", "-u")
	if err != nil {
		return false, errors.NewGitError("check unmerged files failed", err).WithRepository(repo).WithGitOutput(string(out))
	}
	return strings.TrimSpace(string(out)) == "", nil
}

func (d *CLIDriver) RevParse(ctx context.Context, repo, ref string) (string, error) {
	out, err := d.run(ctx, repo, "git", "rev-parse", ref)
	if err != nil {
		return "", errors.NewGitError("rev-parse failed", err).
			WithRepository(repo).WithBranch(ref).WithGitOutput(string(out))
	}
	return strings.TrimSpace(string(out)), nil
}

func (d *CLIDriver) IsAncestor(ctx context.Context, repo, commit, ref string) (bool, error) {
	out, err := d.run(ctx, repo, "git", "merge-base", "--is-ancestor", commit, ref)
	if err == nil {
		return true, nil
	}
	// Exit status 1 means "not an ancestor"; anything else is a failure.
	if ee, ok := err.(*exec.ExitError); ok && ee.ExitCode() == 1 {
		return false, nil
	}
	return false, errors.NewGitError("merge-base --is-ancestor failed", err).
		WithRepository(repo).WithGitOutput(string(out))
}

func (d *CLIDriver) CleanupCherryPick(ctx context.Context, base, worktree, version, targetBranch string) error {
	cherryPickHead := filepath.Join(worktree, ".git", "CHERRY_PICK_HEAD")
	if _, err := os.Stat(cherryPickHead); err == nil {
		if out, err := d.run(ctx, worktree, "git", "cherry-pick", "--abort"); err != nil {
			return errors.NewGitError("abort cherry-pick failed", err).WithRepository(worktree).WithGitOutput(string(out))
		}
	}
	if base == "" {
		// Clone mode: the temp directory is removed by ShallowClone's
		// cleanup closure, not here.
		return nil
	}
	return d.ForceRemoveWorktree(ctx, base, version)
}

func (d *CLIDriver) ForceDeleteBranch(ctx context.Context, repo, name string) error {
	out, err := d.run(ctx, repo, "git", "branch", "-D", name)
	if err != nil && !strings.Contains(string(out), "not found") {
		return errors.NewGitError("force delete branch failed", err).WithRepository(repo).WithBranch(name).WithGitOutput(string(out))
	}
	return nil
}

func (d *CLIDriver) ForceRemoveWorktree(ctx context.Context, repo, version string) error {
	name := fmt.Sprintf("next-%s", version)
	path := filepath.Join(repo, "..", name)

	out, err := d.run(ctx, repo, "git", "worktree", "remove", "--force", name)
	if err == nil {
		return nil
	}
	if d.logger != nil {
		d.logger.Warn("worktree remove --force failed, falling back to prune", "name", name, "output", string(out))
	}

	if _, pruneErr := d.run(ctx, repo, "git", "worktree", "prune"); pruneErr != nil {
		return errors.NewGitError("worktree prune failed", pruneErr).WithRepository(repo)
	}
	if rmErr := os.RemoveAll(path); rmErr != nil {
		return errors.NewGitError("remove worktree directory failed", rmErr).WithRepository(path)
	}
	return nil
}

// freshCloneID produces a unique suffix for clone-mode temp directories so
// concurrent runs against distinct repositories never collide.
func freshCloneID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("pid%d", os.Getpid())
	}
	return hex.EncodeToString(b[:])
}

func splitNonEmptyLines(s string) []string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil
	}
	var out []string
	for _, line := range strings.Split(trimmed, "\n") {
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
