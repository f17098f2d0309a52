package events

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	cases := []Event{
		StartEvent{TotalPRs: 3, Version: "v1.2.3", TargetBranch: "release/1.2"},
		CherryPickStartEvent{PRID: 101, CommitID: "a1b2c3d4e5f60708a1b2c3d4e5f60708a1b2c3d4", Index: 0, Total: 3},
		CherryPickSuccessEvent{PRID: 101, CommitID: "a1b2c3d4e5f60708a1b2c3d4e5f60708a1b2c3d4"},
		CherryPickConflictEvent{PRID: 102, ConflictedFiles: []string{"src/a.rs"}, RepoPath: "/repo"},
		CherryPickFailedEvent{PRID: 102, Error: "merge: nothing to commit"},
		CherryPickSkippedEvent{PRID: 103, Reason: "no last-merge-commit"},
		PostMergeStartEvent{TaskCount: 6},
		PostMergeProgressEvent{TaskType: "tag", TargetID: 101, Status: PostMergeTaskSuccess},
		PostMergeProgressEvent{TaskType: "transition_work_item", TargetID: 55, Status: PostMergeTaskFailed, Error: "404"},
		CompleteEvent{Successful: 3, Failed: 0, Skipped: 0},
		AbortedEvent{Success: true},
		AbortedEvent{Success: false, Message: "cherry-pick --abort failed"},
		ErrorEvent{Message: "lock held", Code: "locked"},
		HookStartEvent{Trigger: "pre_cherry_pick"},
		HookCommandStartEvent{Trigger: "pre_cherry_pick", Command: "make lint"},
		HookCommandCompleteEvent{Trigger: "pre_cherry_pick", Command: "make lint", ExitCode: 0},
		HookCompleteEvent{Trigger: "pre_cherry_pick"},
		HookFailedEvent{Trigger: "pre_cherry_pick", Command: "make lint", Error: "exit status 1"},
		StatusEvent{StatusInfo{
			Phase:        "cherry_picking",
			Version:      "v1.2.3",
			TargetBranch: "release/1.2",
			RepoPath:     "/repo",
			Progress:     Progress{Total: 3, Completed: 1, Pending: 1, CurrentIndex: 1},
			Conflict: &ConflictInfo{
				PRID:            102,
				ConflictedFiles: []string{"src/a.rs"},
				RepoPath:        "/repo",
			},
			Items: []SummaryItem{{PRID: 101, Status: "success", CommitID: "abc"}},
		}},
	}

	for _, original := range cases {
		data, err := json.Marshal(original)
		if err != nil {
			t.Fatalf("marshal %T: %v", original, err)
		}

		decoded, err := Unmarshal(data)
		if err != nil {
			t.Fatalf("unmarshal %T: %v", original, err)
		}

		if !reflect.DeepEqual(original, decoded) {
			t.Errorf("round trip mismatch for %T:\n  original: %#v\n  decoded:  %#v", original, original, decoded)
		}
	}
}

func TestExternalEventTag(t *testing.T) {
	data, err := json.Marshal(CherryPickConflictEvent{PRID: 102, ConflictedFiles: []string{"a.go"}, RepoPath: "/repo"})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal raw failed: %v", err)
	}

	if raw["event"] != "cherry_pick_conflict" {
		t.Errorf(`expected event tag "cherry_pick_conflict", got %v`, raw["event"])
	}
	if raw["pr_id"] != float64(102) {
		t.Errorf("expected pr_id 102, got %v", raw["pr_id"])
	}
}

func TestOptionalFieldsOmittedWhenAbsent(t *testing.T) {
	data, err := json.Marshal(CherryPickSkippedEvent{PRID: 103})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal raw failed: %v", err)
	}

	if _, present := raw["reason"]; present {
		t.Error("expected absent reason field to be omitted")
	}
}

func TestUnmarshalUnrecognizedTag(t *testing.T) {
	if _, err := Unmarshal([]byte(`{"event":"not_a_real_event"}`)); err == nil {
		t.Error("expected error for unrecognized event tag")
	}
}

func TestUnmarshalMissingTag(t *testing.T) {
	if _, err := Unmarshal([]byte(`{"pr_id":1}`)); err == nil {
		t.Error("expected error for missing event tag")
	}
}

func TestCollectingSinkPreservesOrder(t *testing.T) {
	sink := &CollectingSink{}
	sink.Emit(StartEvent{TotalPRs: 1})
	sink.Emit(CherryPickStartEvent{PRID: 1, Index: 0, Total: 1})
	sink.Emit(CompleteEvent{Successful: 1})

	events := sink.Events()
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[0].EventType() != TypeStart {
		t.Errorf("events[0] type = %s, want %s", events[0].EventType(), TypeStart)
	}
	if events[2].EventType() != TypeComplete {
		t.Errorf("events[2] type = %s, want %s", events[2].EventType(), TypeComplete)
	}
}

func TestChannelSinkCloseIsIdempotent(t *testing.T) {
	sink := NewChannelSink(4)
	sink.Emit(StartEvent{TotalPRs: 1})
	sink.Close()
	sink.Close() // must not panic
	sink.Emit(CompleteEvent{Successful: 1}) // must not panic after close

	var received []Event
	for e := range sink.Events() {
		received = append(received, e)
	}
	if len(received) != 1 {
		t.Fatalf("expected 1 buffered event, got %d", len(received))
	}
}
