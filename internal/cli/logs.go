package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mergerstool/mergers/internal/config"
	"github.com/mergerstool/mergers/internal/logging"
	"github.com/mergerstool/mergers/internal/state"
)

// registerLogs adds the logs verb: show the tail of the active
// repository's structured log.
func registerLogs(root *cobra.Command) {
	var tail int
	logsCmd := &cobra.Command{
		Use:   "logs [local-repo]",
		Short: "Show recent log entries for a repository's merges",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repoPath, _ := cmd.Flags().GetString("local-repo")
			if repoPath == "" && len(args) == 1 {
				repoPath = args[0]
			}
			if repoPath == "" {
				return fmt.Errorf("logs needs a repository path (pass --local-repo or the positional path)")
			}

			hash, err := state.RepoHash(repoPath)
			if err != nil {
				return err
			}
			dir, err := config.StateDir()
			if err != nil {
				return err
			}

			entries, err := logging.AggregateLogs(dir+"/logs", hash)
			if err != nil {
				return err
			}
			if len(entries) > tail {
				entries = entries[len(entries)-tail:]
			}
			for _, e := range entries {
				fmt.Fprintf(os.Stdout, "%s %-5s %s\n", e.Timestamp.Format("2006-01-02 15:04:05"), e.Level, e.Message)
			}
			return nil
		},
	}
	logsCmd.Flags().IntVar(&tail, "tail", 100, "number of trailing entries to show")
	root.AddCommand(logsCmd)
}
