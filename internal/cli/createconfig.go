package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// starterConfig is the document --create-config writes. Hook lists are
// left empty but present, so operators discover the knob.
type starterConfig struct {
	Organization  string              `yaml:"organization"`
	Project       string              `yaml:"project"`
	Repository    string              `yaml:"repository"`
	DevBranch     string              `yaml:"dev_branch"`
	TargetBranch  string              `yaml:"target_branch"`
	TagPrefix     string              `yaml:"tag_prefix"`
	WorkItemState string              `yaml:"work_item_state"`
	Hooks         map[string][]string `yaml:"hooks"`
}

// createConfig writes a starter YAML config and reports its path. An
// existing file is never overwritten.
func createConfig(cmd *cobra.Command) error {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return fmt.Errorf("resolve config directory: %w", err)
		}
		path = filepath.Join(dir, "mergers", "mergers.yaml")
	}

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file %s already exists; not overwriting", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	starter := starterConfig{
		Organization:  "my-org",
		Project:       "my-project",
		Repository:    "my-repo",
		DevBranch:     "dev",
		TargetBranch:  "next",
		TagPrefix:     "merged-",
		WorkItemState: "Next Merged",
		Hooks: map[string][]string{
			"before_cherry_pick": {},
			"after_complete":     {},
		},
	}

	data, err := yaml.Marshal(starter)
	if err != nil {
		return fmt.Errorf("marshal starter config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	fmt.Fprintf(os.Stderr, "wrote starter config to %s\n", path)
	return nil
}
