package cli

import (
	"github.com/spf13/cobra"

	"github.com/mergerstool/mergers/internal/orchestrator"
)

// registerCleanup adds the cleanup verb: remove the state file (and
// worktree remnants) of a finished merge.
func registerCleanup(root *cobra.Command) {
	root.AddCommand(&cobra.Command{
		Use:   "cleanup [local-repo]",
		Short: "Remove the state file of a completed or aborted merge",
		Args:  cobra.MaximumNArgs(1),
		RunE:  mergeVerb((*orchestrator.Orchestrator).Cleanup),
	})
}
