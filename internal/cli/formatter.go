package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/mergerstool/mergers/internal/config"
	"github.com/mergerstool/mergers/internal/events"
)

// Formatter renders the engine's event stream in one of the three
// --output modes. Flush is called once, after the verb returns.
type Formatter interface {
	events.Sink
	Flush()
}

// NewFormatter selects the formatter for the configured output mode.
// text writes human-readable progress to errOut (stderr); ndjson streams
// one event per line to out (stdout); json buffers everything and emits a
// single aggregate document on Flush.
func NewFormatter(format config.OutputFormat, out, errOut io.Writer, quiet bool) Formatter {
	switch format {
	case config.OutputNDJSON:
		return &ndjsonFormatter{out: out}
	case config.OutputJSON:
		return &jsonFormatter{out: out}
	default:
		return &textFormatter{out: errOut, quiet: quiet}
	}
}

// -----------------------------------------------------------------------------
// text
// -----------------------------------------------------------------------------

var (
	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
	failColor = color.New(color.FgRed)
	infoColor = color.New(color.FgCyan)
)

type textFormatter struct {
	mu    sync.Mutex
	out   io.Writer
	quiet bool
}

func (f *textFormatter) Emit(e events.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch ev := e.(type) {
	case events.StartEvent:
		fmt.Fprintf(f.out, "Merging %d PRs into %s (%s)\n", ev.TotalPRs, ev.TargetBranch, ev.Version)
	case events.CherryPickStartEvent:
		if !f.quiet {
			fmt.Fprintf(f.out, "  [%d/%d] cherry-picking PR #%d (%s)\n", ev.Index+1, ev.Total, ev.PRID, shortCommit(ev.CommitID))
		}
	case events.CherryPickSuccessEvent:
		if !f.quiet {
			fmt.Fprintf(f.out, "  %s PR #%d\n", okColor.Sprint("applied"), ev.PRID)
		}
	case events.CherryPickConflictEvent:
		fmt.Fprintf(f.out, "  %s PR #%d — unresolved files:\n", failColor.Sprint("conflict"), ev.PRID)
		for _, file := range ev.ConflictedFiles {
			fmt.Fprintf(f.out, "    %s\n", file)
		}
		fmt.Fprintf(f.out, "  resolve in %s, stage the files, then run `mergers merge continue`\n", ev.RepoPath)
	case events.CherryPickFailedEvent:
		fmt.Fprintf(f.out, "  %s PR #%d: %s\n", failColor.Sprint("failed"), ev.PRID, ev.Error)
	case events.CherryPickSkippedEvent:
		reason := ev.Reason
		if reason == "" {
			reason = "skipped"
		}
		fmt.Fprintf(f.out, "  %s PR #%d: %s\n", warnColor.Sprint("skipped"), ev.PRID, reason)
	case events.PostMergeStartEvent:
		fmt.Fprintf(f.out, "Running %d post-merge tasks\n", ev.TaskCount)
	case events.PostMergeProgressEvent:
		if ev.Status == events.PostMergeTaskFailed {
			fmt.Fprintf(f.out, "  %s %s %d: %s\n", failColor.Sprint("failed"), ev.TaskType, ev.TargetID, ev.Error)
		} else if !f.quiet {
			fmt.Fprintf(f.out, "  %s %s %d\n", okColor.Sprint(string(ev.Status)), ev.TaskType, ev.TargetID)
		}
	case events.CompleteEvent:
		fmt.Fprintf(f.out, "Done: %d succeeded, %d failed, %d skipped\n", ev.Successful, ev.Failed, ev.Skipped)
	case events.StatusEvent:
		f.printStatus(ev.StatusInfo)
	case events.AbortedEvent:
		if ev.Success {
			fmt.Fprintf(f.out, "%s\n", warnColor.Sprint("Merge aborted"))
		} else {
			fmt.Fprintf(f.out, "%s: %s\n", failColor.Sprint("Abort incomplete"), ev.Message)
		}
	case events.ErrorEvent:
		fmt.Fprintf(f.out, "%s: %s\n", failColor.Sprint("error"), ev.Message)
	case events.HookStartEvent:
		if !f.quiet {
			fmt.Fprintf(f.out, "Running %s hooks\n", ev.Trigger)
		}
	case events.HookCommandCompleteEvent:
		if !f.quiet {
			fmt.Fprintf(f.out, "  %s exited %d\n", ev.Command, ev.ExitCode)
		}
	case events.HookFailedEvent:
		fmt.Fprintf(f.out, "  %s hook %q: %s\n", failColor.Sprint("hook failed"), ev.Command, ev.Error)
	}
}

func (f *textFormatter) printStatus(info events.StatusInfo) {
	fmt.Fprintf(f.out, "Phase:   %s\n", infoColor.Sprint(info.Phase))
	fmt.Fprintf(f.out, "Version: %s -> %s\n", info.Version, info.TargetBranch)
	fmt.Fprintf(f.out, "Repo:    %s\n", info.RepoPath)
	fmt.Fprintf(f.out, "Items:   %d total, %d completed, %d pending\n",
		info.Progress.Total, info.Progress.Completed, info.Progress.Pending)
	if info.Conflict != nil {
		fmt.Fprintf(f.out, "%s PR #%d:\n", failColor.Sprint("Conflict in"), info.Conflict.PRID)
		for _, file := range info.Conflict.ConflictedFiles {
			fmt.Fprintf(f.out, "  %s\n", file)
		}
	}
	if !f.quiet {
		for _, item := range info.Items {
			fmt.Fprintf(f.out, "  #%d %-9s %s\n", item.PRID, item.Status, shortCommit(item.CommitID))
		}
	}
}

func (f *textFormatter) Flush() {}

func shortCommit(commit string) string {
	if len(commit) > 8 {
		return commit[:8]
	}
	return commit
}

// -----------------------------------------------------------------------------
// ndjson
// -----------------------------------------------------------------------------

type ndjsonFormatter struct {
	mu  sync.Mutex
	out io.Writer
}

func (f *ndjsonFormatter) Emit(e events.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := json.Marshal(e)
	if err != nil {
		return
	}
	fmt.Fprintln(f.out, string(data))
}

func (f *ndjsonFormatter) Flush() {}

// -----------------------------------------------------------------------------
// json (buffered aggregate)
// -----------------------------------------------------------------------------

type jsonFormatter struct {
	mu     sync.Mutex
	out    io.Writer
	buffer []events.Event
}

func (f *jsonFormatter) Emit(e events.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buffer = append(f.buffer, e)
}

// Flush emits one aggregate document: the full event list plus a summary
// of final counts pulled from the last Complete event, if any.
func (f *jsonFormatter) Flush() {
	f.mu.Lock()
	defer f.mu.Unlock()

	var parts []string
	for _, e := range f.buffer {
		data, err := json.Marshal(e)
		if err != nil {
			continue
		}
		parts = append(parts, "    "+string(data))
	}

	summary := "null"
	for i := len(f.buffer) - 1; i >= 0; i-- {
		if c, ok := f.buffer[i].(events.CompleteEvent); ok {
			if data, err := json.Marshal(c); err == nil {
				summary = string(data)
			}
			break
		}
	}

	fmt.Fprintf(f.out, "{\n  \"events\": [\n%s\n  ],\n  \"summary\": %s\n}\n",
		strings.Join(parts, ",\n"), summary)
}
