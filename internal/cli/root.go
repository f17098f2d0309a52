// Package cli wires the mergers command tree: `merge` (the default verb)
// with its continue/abort/status/complete subcommands, `migrate` with
// plan/apply, and `cleanup`. Each leaf builds a single-use orchestrator
// from loaded settings and maps its RunResult onto the process exit code.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mergerstool/mergers/internal/config"
	"github.com/mergerstool/mergers/internal/errors"
	"github.com/mergerstool/mergers/internal/gitdriver"
	"github.com/mergerstool/mergers/internal/hooks"
	"github.com/mergerstool/mergers/internal/logging"
	"github.com/mergerstool/mergers/internal/orchestrator"
	"github.com/mergerstool/mergers/internal/platform"
	"github.com/mergerstool/mergers/internal/state"
)

var rootCmd = &cobra.Command{
	Use:   "mergers [local-repo]",
	Short: "Release-train merge orchestrator",
	Long: `mergers drives release-train merges for a hosted code-review platform:
it selects completed pull requests by work-item state, cherry-picks them
onto a fresh branch of the target release branch, halts cleanly on
conflicts for human resolution, and finally tags the PRs and transitions
their work items.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.MaximumNArgs(1),
	RunE:          runMergeRun,
}

// exitError carries a taxonomy exit code through cobra's error return.
type exitError struct {
	code errors.ExitCode
}

func (e exitError) Error() string { return fmt.Sprintf("exit code %d", e.code) }

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	if ee, ok := err.(exitError); ok {
		return int(ee.code)
	}
	fmt.Fprintln(os.Stderr, err)
	return int(errors.ExitGeneralError)
}

func init() {
	pf := rootCmd.PersistentFlags()

	pf.String("organization", "", "platform organization")
	pf.String("project", "", "platform project")
	pf.String("repository", "", "platform repository")
	pf.String("pat", "", "personal access token")
	pf.String("dev-branch", "dev", "source branch PRs were merged into")
	pf.String("target-branch", "next", "release branch to merge onto")
	pf.String("local-repo", "", "path to a local clone (enables worktree mode)")
	pf.String("version", "", "version tag for this merge train, e.g. v1.2.3")
	pf.String("tag-prefix", "merged-", "prefix for the PR tag")
	pf.String("work-item-state", "Next Merged", "state work items transition to on complete")
	pf.String("select-by-state", "", "comma-separated work-item states selecting PRs")
	pf.String("since", "", "only PRs closed after this date or window (Nd|Nw|Nmo|Ny)")
	pf.Int("max-concurrent-network", 100, "bound on concurrent platform calls")
	pf.Int("max-concurrent-processing", 10, "bound on concurrent local work")
	pf.String("output", "text", "output format: text, json, or ndjson")
	pf.BoolP("quiet", "q", false, "suppress per-item progress")
	pf.BoolP("non-interactive", "n", false, "never prompt; fail instead")
	pf.Bool("run-hooks", false, "execute configured lifecycle hooks")
	pf.String("config", "", "config file (default: mergers.yaml in . or in <user config dir>/mergers)")
	pf.Bool("create-config", false, "write a starter config file and exit")

	registerMerge(rootCmd)
	registerMigrate(rootCmd)
	registerCleanup(rootCmd)
	registerLogs(rootCmd)
}

// deps bundles everything a verb handler needs.
type deps struct {
	settings  *config.Settings
	formatter Formatter
	logger    *logging.Logger
	client    platform.Client
	driver    gitdriver.Driver
	hooks     *hooks.Runner
}

// buildDeps loads settings (flags > env > auto-detect > config file >
// defaults), applies the positional repository path, and constructs the
// shared collaborators.
func buildDeps(cmd *cobra.Command, args []string) (*deps, error) {
	configFile, _ := cmd.Flags().GetString("config")
	settings, err := config.Load(cmd.Flags(), configFile)
	if err != nil {
		return nil, err
	}
	if len(args) == 1 && settings.LocalRepoPath == "" {
		settings.LocalRepoPath = args[0]
	}

	formatter := NewFormatter(settings.Output, os.Stdout, os.Stderr, settings.Quiet)
	if settings.Quiet || settings.Output != config.OutputText {
		color.NoColor = true
	}

	logger := newRunLogger(settings)

	d := &deps{
		settings:  settings,
		formatter: formatter,
		logger:    logger,
		client:    platform.NewHTTPClient(settings.PAT, logger),
		driver:    gitdriver.NewCLIDriver(logger),
	}
	d.hooks = hooks.New(hookCommands(settings), nil, formatter, settings.RunHooks, logger)
	return d, nil
}

// newRunLogger opens the per-repository JSON log under the state
// directory. Logging is best-effort: any failure degrades to a no-op
// logger rather than blocking the merge.
func newRunLogger(settings *config.Settings) *logging.Logger {
	dir, err := config.StateDir()
	if err != nil {
		return logging.NopLogger()
	}
	hash := "default"
	if settings.LocalRepoPath != "" {
		if h, err := state.RepoHash(settings.LocalRepoPath); err == nil {
			hash = h
		}
	}
	logger, err := logging.NewLogger(dir+"/logs", hash, logging.LevelInfo, false)
	if err != nil {
		return logging.NopLogger()
	}
	return logger.WithRepository(hash)
}

// hookCommands converts the config-file hook map onto typed triggers.
func hookCommands(settings *config.Settings) map[hooks.Trigger][]string {
	if len(settings.Hooks) == 0 {
		return nil
	}
	out := make(map[hooks.Trigger][]string, len(settings.Hooks))
	for name, cmds := range settings.Hooks {
		out[hooks.Trigger(name)] = cmds
	}
	return out
}

// finish renders the result, flushes the formatter, and converts the exit
// code into cobra's error channel.
func finish(d *deps, res orchestrator.RunResult) error {
	if res.Message != "" && d.settings.Output == config.OutputText {
		fmt.Fprintln(os.Stderr, res.Message)
	}
	d.formatter.Flush()
	if d.logger != nil {
		_ = d.logger.Close()
	}
	if res.ExitCode == errors.ExitSuccess {
		return nil
	}
	return exitError{code: res.ExitCode}
}
