package cli

import (
	"github.com/spf13/cobra"

	"github.com/mergerstool/mergers/internal/conflict"
	"github.com/mergerstool/mergers/internal/errors"
	"github.com/mergerstool/mergers/internal/orchestrator"
	"github.com/mergerstool/mergers/internal/state"
)

// newStatusCmd builds the status subcommand. With --watch, a merge halted
// on a conflict is re-probed whenever the working tree changes, and the
// command returns once every conflict is resolved and staged — so an
// operator can chain `mergers merge status --watch && mergers merge
// continue`.
func newStatusCmd() *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "status [local-repo]",
		Short: "Show the current merge state without locking",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := buildDeps(cmd, args)
			if err != nil {
				return err
			}
			o := orchestrator.New(d.settings, d.client, d.driver, d.formatter, d.hooks, d.logger)
			defer o.Close()

			res := o.Status(cmd.Context())
			if !watch || res.ExitCode != errors.ExitSuccess {
				return finish(d, res)
			}
			return finish(d, watchUntilResolved(cmd, d, res))
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "wait for conflict resolution, re-showing status on working-tree changes")
	return cmd
}

// watchUntilResolved blocks on filesystem activity in the working tree,
// re-emitting the status snapshot after each change, until the
// authoritative `git ls-files -u` probe reports resolution or the context
// is cancelled. The watcher is purely a wake-up; resolution is always
// decided by the git probe.
func watchUntilResolved(cmd *cobra.Command, d *deps, last orchestrator.RunResult) orchestrator.RunResult {
	ctx := cmd.Context()

	// Conflicts live in the working tree recorded in the state file (the
	// worktree in worktree mode), not the base repository.
	s, err := state.Load(last.StateFilePath)
	if err != nil {
		return orchestrator.RunResult{ExitCode: errors.CodeFor(err), Message: err.Error()}
	}
	repoPath := s.RepoPath
	if repoPath == "" || s.Phase != state.PhaseAwaitingConflictResolution {
		return last
	}

	resolved, err := conflict.Resolved(ctx, d.driver, repoPath)
	if err != nil {
		return orchestrator.RunResult{ExitCode: errors.CodeFor(err), Message: err.Error()}
	}
	if resolved {
		return last
	}

	watcher, err := conflict.NewWatcher(repoPath, d.logger)
	if err != nil {
		return orchestrator.RunResult{ExitCode: errors.ExitGeneralError, Message: err.Error()}
	}
	defer watcher.Close()

	for {
		if !watcher.Wait(ctx) {
			return orchestrator.RunResult{ExitCode: errors.ExitConflict, Message: "interrupted while waiting for conflict resolution"}
		}

		o := orchestrator.New(d.settings, d.client, d.driver, d.formatter, d.hooks, d.logger)
		last = o.Status(ctx)
		o.Close()

		resolved, err := conflict.Resolved(ctx, d.driver, repoPath)
		if err != nil {
			return orchestrator.RunResult{ExitCode: errors.CodeFor(err), Message: err.Error()}
		}
		if resolved {
			return last
		}
	}
}
