package hooks

import (
	"context"
	"fmt"
	"testing"

	"github.com/mergerstool/mergers/internal/events"
)

type fakeExec struct {
	ran  []string
	fail map[string]bool
}

func (f *fakeExec) RunShell(ctx context.Context, dir, command string) (int, error) {
	f.ran = append(f.ran, command)
	if f.fail[command] {
		return 1, fmt.Errorf("exit status 1")
	}
	return 0, nil
}

func TestFireRunsCommandsInOrder(t *testing.T) {
	exec := &fakeExec{}
	sink := &events.CollectingSink{}
	r := New(map[Trigger][]string{
		TriggerBeforeCherryPick: {"make lint", "make test"},
	}, exec, sink, true, nil)

	r.Fire(context.Background(), TriggerBeforeCherryPick, "/repo")

	if len(exec.ran) != 2 || exec.ran[0] != "make lint" || exec.ran[1] != "make test" {
		t.Fatalf("ran = %v", exec.ran)
	}

	evs := sink.Events()
	if _, ok := evs[0].(events.HookStartEvent); !ok {
		t.Errorf("first event = %+v", evs[0])
	}
	if _, ok := evs[len(evs)-1].(events.HookCompleteEvent); !ok {
		t.Errorf("last event = %+v", evs[len(evs)-1])
	}
}

func TestFireStopsOnFirstFailure(t *testing.T) {
	exec := &fakeExec{fail: map[string]bool{"make lint": true}}
	sink := &events.CollectingSink{}
	r := New(map[Trigger][]string{
		TriggerBeforeCherryPick: {"make lint", "make test"},
	}, exec, sink, true, nil)

	r.Fire(context.Background(), TriggerBeforeCherryPick, "/repo")

	if len(exec.ran) != 1 {
		t.Fatalf("ran = %v, want only the failing command", exec.ran)
	}
	last := sink.Events()[len(sink.Events())-1]
	failed, ok := last.(events.HookFailedEvent)
	if !ok {
		t.Fatalf("last event = %+v", last)
	}
	if failed.Command != "make lint" {
		t.Errorf("failed command = %q", failed.Command)
	}
}

func TestFireDisabledIsSilent(t *testing.T) {
	exec := &fakeExec{}
	sink := &events.CollectingSink{}
	r := New(map[Trigger][]string{TriggerAfterComplete: {"notify"}}, exec, sink, false, nil)

	r.Fire(context.Background(), TriggerAfterComplete, "/repo")

	if len(exec.ran) != 0 || len(sink.Events()) != 0 {
		t.Errorf("disabled runner did work: ran=%v events=%d", exec.ran, len(sink.Events()))
	}
}

func TestFireUnconfiguredTriggerIsSilent(t *testing.T) {
	sink := &events.CollectingSink{}
	r := New(nil, &fakeExec{}, sink, true, nil)
	r.Fire(context.Background(), TriggerAfterAbort, "/repo")
	if len(sink.Events()) != 0 {
		t.Errorf("events = %d", len(sink.Events()))
	}
}

func TestShellExecutorRuns(t *testing.T) {
	code, err := ShellExecutor{}.RunShell(context.Background(), t.TempDir(), "true")
	if err != nil || code != 0 {
		t.Fatalf("true: code=%d err=%v", code, err)
	}
	code, err = ShellExecutor{}.RunShell(context.Background(), t.TempDir(), "exit 3")
	if err == nil || code != 3 {
		t.Fatalf("exit 3: code=%d err=%v", code, err)
	}
}
