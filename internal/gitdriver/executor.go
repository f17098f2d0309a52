package gitdriver

import (
	"context"
	"os/exec"
)

// CommandExecutor abstracts process execution so tests can substitute a
// scripted double for the real `git` binary without shelling out.
type CommandExecutor interface {
	// Run executes name with args in dir and returns combined stdout+stderr.
	Run(ctx context.Context, dir, name string, args ...string) ([]byte, error)
}

// CLIExecutor runs commands via os/exec.
type CLIExecutor struct{}

// NewCLIExecutor returns the production CommandExecutor.
func NewCLIExecutor() *CLIExecutor { return &CLIExecutor{} }

func (e *CLIExecutor) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	return cmd.CombinedOutput()
}
