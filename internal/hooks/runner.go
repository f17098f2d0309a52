// Package hooks runs operator-configured shell commands around merge
// lifecycle boundaries. Triggers map to command lists in the config file
// (hooks.before_cherry_pick: [...]); each command runs in the repository
// working tree through the same executor abstraction the git driver uses.
// Hook failures are reported on the event channel and logged, never fatal
// to the merge itself.
package hooks

import (
	"context"
	"os/exec"

	"github.com/mergerstool/mergers/internal/events"
	"github.com/mergerstool/mergers/internal/logging"
)

// Trigger names a lifecycle boundary hooks can attach to.
type Trigger string

const (
	TriggerBeforeCherryPick Trigger = "before_cherry_pick"
	TriggerAfterCherryPick  Trigger = "after_cherry_pick"
	TriggerBeforeComplete   Trigger = "before_complete"
	TriggerAfterComplete    Trigger = "after_complete"
	TriggerAfterAbort       Trigger = "after_abort"
)

// CommandExecutor runs one shell command line in dir. It mirrors
// gitdriver.CommandExecutor but takes a single command string, since hook
// lines are operator-authored shell.
type CommandExecutor interface {
	RunShell(ctx context.Context, dir, command string) (exitCode int, err error)
}

// ShellExecutor is the production CommandExecutor: `sh -c <command>`.
type ShellExecutor struct{}

func (ShellExecutor) RunShell(ctx context.Context, dir, command string) (int, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = dir
	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	if ee, ok := err.(*exec.ExitError); ok {
		return ee.ExitCode(), err
	}
	return -1, err
}

// Runner holds the configured trigger -> commands map and executes it.
type Runner struct {
	commands map[Trigger][]string
	exec     CommandExecutor
	sink     events.Sink
	logger   *logging.Logger
	enabled  bool
}

// New builds a Runner. enabled mirrors Settings.RunHooks: when false,
// Fire is a no-op that emits nothing. logger may be nil.
func New(commands map[Trigger][]string, exec CommandExecutor, sink events.Sink, enabled bool, logger *logging.Logger) *Runner {
	if exec == nil {
		exec = ShellExecutor{}
	}
	return &Runner{commands: commands, exec: exec, sink: sink, logger: logger, enabled: enabled}
}

// Fire runs every command configured for trigger, in order, inside dir.
// The first failing command stops the trigger's remaining commands and
// emits HookFailed; a fully clean run emits HookComplete. Fire never
// returns an error to its caller: hook failures must not break the merge.
func (r *Runner) Fire(ctx context.Context, trigger Trigger, dir string) {
	if !r.enabled {
		return
	}
	cmds := r.commands[trigger]
	if len(cmds) == 0 {
		return
	}

	r.sink.Emit(events.HookStartEvent{Trigger: string(trigger)})

	for _, cmd := range cmds {
		r.sink.Emit(events.HookCommandStartEvent{Trigger: string(trigger), Command: cmd})

		code, err := r.exec.RunShell(ctx, dir, cmd)
		r.sink.Emit(events.HookCommandCompleteEvent{Trigger: string(trigger), Command: cmd, ExitCode: code})

		if err != nil {
			r.sink.Emit(events.HookFailedEvent{Trigger: string(trigger), Command: cmd, Error: err.Error()})
			if r.logger != nil {
				r.logger.Warn("hook command failed", "trigger", string(trigger), "command", cmd, "error", err)
			}
			return
		}
	}

	r.sink.Emit(events.HookCompleteEvent{Trigger: string(trigger)})
}
