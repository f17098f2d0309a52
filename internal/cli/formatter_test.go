package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/mergerstool/mergers/internal/config"
	"github.com/mergerstool/mergers/internal/events"
)

func TestTextFormatterWritesToErrOut(t *testing.T) {
	color.NoColor = true
	var out, errOut bytes.Buffer
	f := NewFormatter(config.OutputText, &out, &errOut, false)

	f.Emit(events.StartEvent{TotalPRs: 3, Version: "v1.2.3", TargetBranch: "next"})
	f.Emit(events.CherryPickSuccessEvent{PRID: 101, CommitID: "aaaa"})
	f.Emit(events.CompleteEvent{Successful: 3})
	f.Flush()

	if out.Len() != 0 {
		t.Errorf("text mode wrote to stdout: %q", out.String())
	}
	got := errOut.String()
	for _, want := range []string{"Merging 3 PRs into next (v1.2.3)", "applied PR #101", "Done: 3 succeeded"} {
		if !strings.Contains(got, want) {
			t.Errorf("stderr missing %q in:\n%s", want, got)
		}
	}
}

func TestTextFormatterQuietSuppressesPerItemLines(t *testing.T) {
	color.NoColor = true
	var out, errOut bytes.Buffer
	f := NewFormatter(config.OutputText, &out, &errOut, true)

	f.Emit(events.CherryPickSuccessEvent{PRID: 101, CommitID: "aaaa"})
	f.Emit(events.CherryPickConflictEvent{PRID: 102, ConflictedFiles: []string{"a.go"}, RepoPath: "/r"})
	f.Flush()

	got := errOut.String()
	if strings.Contains(got, "applied") {
		t.Errorf("quiet mode printed per-item success:\n%s", got)
	}
	if !strings.Contains(got, "conflict") {
		t.Errorf("quiet mode swallowed the conflict:\n%s", got)
	}
}

func TestNDJSONFormatterStreamsTaggedLines(t *testing.T) {
	var out, errOut bytes.Buffer
	f := NewFormatter(config.OutputNDJSON, &out, &errOut, false)

	f.Emit(events.StartEvent{TotalPRs: 2, Version: "v1", TargetBranch: "next"})
	f.Emit(events.CompleteEvent{Successful: 2})
	f.Flush()

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d: %q", len(lines), out.String())
	}
	for i, line := range lines {
		ev, err := events.Unmarshal([]byte(line))
		if err != nil {
			t.Fatalf("line %d does not round-trip: %v", i, err)
		}
		if i == 0 {
			if start, ok := ev.(events.StartEvent); !ok || start.TotalPRs != 2 {
				t.Errorf("line 0 = %+v", ev)
			}
		}
	}
}

func TestJSONFormatterBuffersAggregate(t *testing.T) {
	var out, errOut bytes.Buffer
	f := NewFormatter(config.OutputJSON, &out, &errOut, false)

	f.Emit(events.StartEvent{TotalPRs: 1, Version: "v1", TargetBranch: "next"})
	if out.Len() != 0 {
		t.Fatal("json mode emitted before Flush")
	}
	f.Emit(events.CompleteEvent{Successful: 1})
	f.Flush()

	var doc struct {
		Events  []json.RawMessage `json:"events"`
		Summary *struct {
			Successful int `json:"successful"`
		} `json:"summary"`
	}
	if err := json.Unmarshal(out.Bytes(), &doc); err != nil {
		t.Fatalf("aggregate document invalid: %v\n%s", err, out.String())
	}
	if len(doc.Events) != 2 {
		t.Errorf("events = %d", len(doc.Events))
	}
	if doc.Summary == nil || doc.Summary.Successful != 1 {
		t.Errorf("summary = %+v", doc.Summary)
	}
}
