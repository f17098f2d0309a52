package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mergerstool/mergers/internal/errors"
	"github.com/mergerstool/mergers/internal/migrate"
	"github.com/mergerstool/mergers/internal/orchestrator"
	"github.com/mergerstool/mergers/internal/selection"
)

// registerMigrate adds the migrate verb: analyse which PRs are already in
// the target branch, then optionally tag them.
func registerMigrate(root *cobra.Command) {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Analyse PRs already present in the target branch",
	}

	migrateCmd.AddCommand(
		&cobra.Command{
			Use:   "plan [local-repo]",
			Short: "List PRs whose merge commits are ancestors of the target branch",
			Args:  cobra.MaximumNArgs(1),
			RunE:  migrateVerb(false),
		},
		&cobra.Command{
			Use:   "apply [local-repo]",
			Short: "Tag the already-present PRs (never touches work items)",
			Args:  cobra.MaximumNArgs(1),
			RunE:  migrateVerb(true),
		},
	)

	root.AddCommand(migrateCmd)
}

func migrateVerb(apply bool) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		d, err := buildDeps(cmd, args)
		if err != nil {
			return err
		}
		if d.settings.LocalRepoPath == "" {
			return finish(d, orchestrator.RunResult{
				ExitCode: errors.ExitGeneralError,
				Message:  "migrate needs a local repository to check commit ancestry (pass --local-repo or the positional path)",
			})
		}
		if errs := d.settings.ValidateForRun(); len(errs) > 0 {
			return finish(d, orchestrator.RunResult{
				ExitCode: errors.ExitGeneralError,
				Message:  errs.Error(),
			})
		}

		analyzer := migrate.New(d.settings, d.client, d.driver, d.formatter, d.logger)
		plan, err := analyzer.BuildPlan(cmd.Context(), d.settings.LocalRepoPath, selection.UTCNow)
		if err != nil {
			return finish(d, orchestrator.RunResult{
				ExitCode: errors.CodeFor(err),
				Message:  err.Error(),
			})
		}

		if !apply {
			printPlan(plan)
			return finish(d, orchestrator.RunResult{ExitCode: errors.ExitSuccess})
		}

		_, failed := analyzer.Apply(cmd.Context(), plan)
		res := orchestrator.RunResult{ExitCode: errors.ExitSuccess}
		if failed > 0 {
			res = orchestrator.RunResult{
				ExitCode: errors.ExitPartialSuccess,
				Message:  fmt.Sprintf("%d migration tags failed", failed),
			}
		}
		return finish(d, res)
	}
}

func printPlan(plan *migrate.Plan) {
	eligible := plan.Present()
	fmt.Fprintf(os.Stderr, "%d of %d PRs are already present in %s\n",
		len(eligible), len(plan.Candidates), plan.TargetBranch)
	for _, c := range eligible {
		fmt.Fprintf(os.Stderr, "  #%d %s -> %s\n", c.PR.ID, c.PR.Title, c.TagName)
	}
}
