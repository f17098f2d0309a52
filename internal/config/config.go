// Package config defines the Settings record the merge engine consumes and
// the loader that assembles it from flags, environment variables, an
// optional config file, and git-remote auto-detection.
//
// Precedence (highest to lowest): CLI flags > MERGERS_* environment
// variables > auto-detected values (git remote) > config file > built-in
// defaults.
package config

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// OutputFormat selects how progress events are rendered.
type OutputFormat string

const (
	OutputText   OutputFormat = "text"
	OutputJSON   OutputFormat = "json"
	OutputNDJSON OutputFormat = "ndjson"
)

// Settings is the input record consumed by the orchestrator. It is built
// once per invocation by Load and is immutable thereafter.
type Settings struct {
	// Platform coordinates.
	Organization string `mapstructure:"organization"`
	Project      string `mapstructure:"project"`
	Repository   string `mapstructure:"repository"`
	PAT          string `mapstructure:"pat"`

	// Branches.
	DevBranch    string `mapstructure:"dev_branch"`
	TargetBranch string `mapstructure:"target_branch"`

	// Version tag applied to merged PRs, e.g. "v1.2.3".
	Version string `mapstructure:"version"`

	TagPrefix     string `mapstructure:"tag_prefix"`
	WorkItemState string `mapstructure:"work_item_state"`

	// LocalRepoPath, when set, selects worktree mode over clone mode.
	LocalRepoPath string `mapstructure:"local_repo"`

	// SelectByState is a comma-separated list of work-item states used to
	// filter which PRs are selected; empty means no state filter.
	SelectByState string `mapstructure:"select_by_state"`

	// Since is an ISO-8601 date or relative window (Nd|Nw|Nmo|Ny); empty
	// means no time-window filter.
	Since string `mapstructure:"since"`

	MaxConcurrentNetwork    int `mapstructure:"max_concurrent_network"`
	MaxConcurrentProcessing int `mapstructure:"max_concurrent_processing"`

	Output OutputFormat `mapstructure:"output"`
	Quiet  bool         `mapstructure:"quiet"`

	NonInteractive bool `mapstructure:"non_interactive"`
	RunHooks       bool `mapstructure:"run_hooks"`

	// Hooks maps lifecycle trigger names to command lists. Config-file
	// only; there is no flag or environment form.
	Hooks map[string][]string `mapstructure:"hooks"`
}

// Default returns a Settings populated with the documented defaults.
func Default() *Settings {
	return &Settings{
		DevBranch:               "dev",
		TargetBranch:            "next",
		TagPrefix:               "merged-",
		WorkItemState:           "Next Merged",
		MaxConcurrentNetwork:    100,
		MaxConcurrentProcessing: 10,
		Output:                  OutputText,
	}
}

// SetDefaults registers every Settings field's default with viper so that
// Load's Unmarshal sees them when no flag, env var, or config file entry
// supplies a value.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("dev_branch", d.DevBranch)
	v.SetDefault("target_branch", d.TargetBranch)
	v.SetDefault("tag_prefix", d.TagPrefix)
	v.SetDefault("work_item_state", d.WorkItemState)
	v.SetDefault("max_concurrent_network", d.MaxConcurrentNetwork)
	v.SetDefault("max_concurrent_processing", d.MaxConcurrentProcessing)
	v.SetDefault("output", string(d.Output))
}

// Load assembles Settings from, in increasing precedence: built-in
// defaults, an optional config file, git-remote auto-detection,
// MERGERS_*-prefixed environment variables, and the CLI flags in flags
// (looked up by the dashed form of each settings key and bound here).
func Load(flags *pflag.FlagSet, configFile string) (*Settings, error) {
	v := viper.New()
	SetDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: read %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("mergers")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "mergers"))
		}
		// A missing optional config file is not an error.
		_ = v.ReadInConfig()
	}

	if org, repo := detectFromGitRemote(); org != "" {
		// Merged into the config layer so it overrides the config file but
		// stays below env and flags.
		if err := v.MergeConfigMap(map[string]any{"organization": org, "repository": repo}); err != nil {
			return nil, fmt.Errorf("config: apply git remote values: %w", err)
		}
	}

	v.SetEnvPrefix("MERGERS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	for _, key := range settingsKeys {
		_ = v.BindEnv(key)
	}

	if flags != nil {
		// Flags are spelled with dashes, settings keys with underscores;
		// bind each pair explicitly.
		for _, key := range settingsKeys {
			if f := flags.Lookup(strings.ReplaceAll(key, "_", "-")); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("config: bind flag %s: %w", f.Name, err)
				}
			}
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return &s, nil
}

// settingsKeys lists every mapstructure key so BindEnv can wire each one
// even when a flag of the same name was never registered.
var settingsKeys = []string{
	"organization", "project", "repository", "pat",
	"dev_branch", "target_branch", "version",
	"tag_prefix", "work_item_state", "local_repo",
	"select_by_state", "since",
	"max_concurrent_network", "max_concurrent_processing",
	"output", "quiet", "non_interactive", "run_hooks",
}

// gitRemoteURLPattern extracts "org/repo" out of common SSH/HTTPS remote
// URL shapes (github.com, dev.azure.com, and bare host:org/repo forms).
var gitRemoteURLPattern = regexp.MustCompile(`[:/]([\w.-]+)/([\w.-]+?)(?:\.git)?$`)

// detectFromGitRemote shells out to `git remote get-url origin` in the
// current working directory and best-effort parses an "org/repo" pair out
// of it. Any failure yields empty strings rather than an error — this is
// purely a convenience default, never a required input.
func detectFromGitRemote() (org, repo string) {
	out, err := exec.Command("git", "remote", "get-url", "origin").Output()
	if err != nil {
		return "", ""
	}
	url := strings.TrimSpace(string(out))
	m := gitRemoteURLPattern.FindStringSubmatch(url)
	if len(m) != 3 {
		return "", ""
	}
	return m[1], m[2]
}

// StateDir returns the directory the state file & lock live in, honoring
// MERGERS_STATE_DIR, falling back to a platform-conventional per-user state
// directory under a "mergers" subdirectory.
func StateDir() (string, error) {
	if dir := os.Getenv("MERGERS_STATE_DIR"); dir != "" {
		return dir, nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		home, herr := os.UserHomeDir()
		if herr != nil {
			return "", fmt.Errorf("config: resolve state dir: %w", err)
		}
		base = filepath.Join(home, ".cache")
	}
	return filepath.Join(base, "mergers"), nil
}

