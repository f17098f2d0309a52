package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/mergerstool/mergers/internal/orchestrator"
)

// registerMerge adds the merge verb and its subcommands. A bare `mergers`
// or `mergers merge` starts a fresh run.
func registerMerge(root *cobra.Command) {
	mergeCmd := &cobra.Command{
		Use:   "merge [local-repo]",
		Short: "Start a merge train (default verb)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runMergeRun,
	}

	mergeCmd.AddCommand(
		&cobra.Command{
			Use:   "continue [local-repo]",
			Short: "Resume a merge halted on a conflict",
			Args:  cobra.MaximumNArgs(1),
			RunE:  mergeVerb((*orchestrator.Orchestrator).Continue),
		},
		&cobra.Command{
			Use:   "abort [local-repo]",
			Short: "Abort an in-flight merge and clean the working tree",
			Args:  cobra.MaximumNArgs(1),
			RunE:  mergeVerb((*orchestrator.Orchestrator).Abort),
		},
		newStatusCmd(),
		&cobra.Command{
			Use:   "complete [local-repo]",
			Short: "Tag merged PRs and transition their work items",
			Args:  cobra.MaximumNArgs(1),
			RunE:  mergeVerb((*orchestrator.Orchestrator).Complete),
		},
	)

	root.AddCommand(mergeCmd)
}

func runMergeRun(cmd *cobra.Command, args []string) error {
	if create, _ := cmd.Flags().GetBool("create-config"); create {
		return createConfig(cmd)
	}
	return mergeVerb((*orchestrator.Orchestrator).Run)(cmd, args)
}

// mergeVerb adapts an orchestrator entry point into a cobra handler.
func mergeVerb(verb func(*orchestrator.Orchestrator, context.Context) orchestrator.RunResult) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		d, err := buildDeps(cmd, args)
		if err != nil {
			return err
		}
		o := orchestrator.New(d.settings, d.client, d.driver, d.formatter, d.hooks, d.logger)
		defer o.Close()
		return finish(d, verb(o, cmd.Context()))
	}
}
