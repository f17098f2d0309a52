package cherrypick

import (
	"context"
	"testing"

	"github.com/mergerstool/mergers/internal/events"
	"github.com/mergerstool/mergers/internal/gitdriver"
	"github.com/mergerstool/mergers/internal/state"
)

func newState(items ...state.CherryPickItem) *state.MergeStateFile {
	s := state.New()
	s.RepoPath = "/work/repo"
	s.Phase = state.PhaseCherryPicking
	s.CherryPickItems = items
	return s
}

func pendingItem(prID int, commit string) state.CherryPickItem {
	return state.CherryPickItem{CommitID: commit, PRID: prID, Status: state.StatusPending}
}

func noopSave(saves *int) Saver {
	return func(*state.MergeStateFile) error {
		if saves != nil {
			*saves++
		}
		return nil
	}
}

func TestProcessAllSuccess(t *testing.T) {
	s := newState(pendingItem(101, "aaaa"), pendingItem(102, "bbbb"), pendingItem(103, "cccc"))
	sink := &events.CollectingSink{}
	driver := &gitdriver.MockDriver{}

	engine := New(driver, sink, noopSave(nil), nil)
	if err := engine.Process(context.Background(), s); err != nil {
		t.Fatalf("Process: %v", err)
	}

	if s.Phase != state.PhaseReadyForCompletion {
		t.Errorf("phase = %s", s.Phase)
	}
	if s.CurrentIndex != 3 {
		t.Errorf("current_index = %d", s.CurrentIndex)
	}
	for i, item := range s.CherryPickItems {
		if item.Status != state.StatusSuccess {
			t.Errorf("item %d status = %s", i, item.Status)
		}
	}

	evs := sink.Events()
	if len(evs) != 6 {
		t.Fatalf("event count = %d", len(evs))
	}
	// Strictly increasing index order: start(0), success, start(1), success, ...
	for i := 0; i < 3; i++ {
		start, ok := evs[2*i].(events.CherryPickStartEvent)
		if !ok || start.Index != i {
			t.Errorf("event %d = %+v, want start index %d", 2*i, evs[2*i], i)
		}
		if _, ok := evs[2*i+1].(events.CherryPickSuccessEvent); !ok {
			t.Errorf("event %d = %+v, want success", 2*i+1, evs[2*i+1])
		}
	}
}

func TestProcessHaltsOnConflict(t *testing.T) {
	s := newState(pendingItem(101, "aaaa"), pendingItem(102, "bbbb"), pendingItem(103, "cccc"))
	sink := &events.CollectingSink{}
	driver := &gitdriver.MockDriver{
		CherryPickFunc: func(ctx context.Context, repo, commitID string) (gitdriver.CherryPickResult, error) {
			if commitID == "bbbb" {
				return gitdriver.CherryPickResult{
					Outcome:         gitdriver.OutcomeConflict,
					ConflictedFiles: []string{"src/a.go"},
				}, nil
			}
			return gitdriver.CherryPickResult{Outcome: gitdriver.OutcomeSuccess}, nil
		},
	}

	engine := New(driver, sink, noopSave(nil), nil)
	if err := engine.Process(context.Background(), s); err != nil {
		t.Fatalf("Process: %v", err)
	}

	if s.Phase != state.PhaseAwaitingConflictResolution {
		t.Errorf("phase = %s", s.Phase)
	}
	if s.CurrentIndex != 1 {
		t.Errorf("cursor advanced past conflict: %d", s.CurrentIndex)
	}
	if s.CherryPickItems[1].Status != state.StatusConflict {
		t.Errorf("item 1 status = %s", s.CherryPickItems[1].Status)
	}
	if len(s.ConflictedFiles) != 1 || s.ConflictedFiles[0] != "src/a.go" {
		t.Errorf("conflicted_files = %v", s.ConflictedFiles)
	}
	if s.CherryPickItems[2].Status != state.StatusPending {
		t.Errorf("item 2 should remain pending, got %s", s.CherryPickItems[2].Status)
	}

	evs := sink.Events()
	last, ok := evs[len(evs)-1].(events.CherryPickConflictEvent)
	if !ok {
		t.Fatalf("last event = %+v", evs[len(evs)-1])
	}
	if last.PRID != 102 || last.RepoPath != "/work/repo" {
		t.Errorf("conflict event = %+v", last)
	}

	// The halted state still passes every state-file invariant.
	if err := s.Validate(); err != nil {
		t.Errorf("halted state invalid: %v", err)
	}
}

func TestProcessRecordsFailureAndContinues(t *testing.T) {
	s := newState(pendingItem(101, "aaaa"), pendingItem(102, "bbbb"), pendingItem(103, "cccc"))
	sink := &events.CollectingSink{}
	driver := &gitdriver.MockDriver{
		CherryPickFunc: func(ctx context.Context, repo, commitID string) (gitdriver.CherryPickResult, error) {
			if commitID == "bbbb" {
				return gitdriver.CherryPickResult{
					Outcome:        gitdriver.OutcomeFailed,
					FailureMessage: "merge: nothing to commit",
				}, nil
			}
			return gitdriver.CherryPickResult{Outcome: gitdriver.OutcomeSuccess}, nil
		},
	}

	engine := New(driver, sink, noopSave(nil), nil)
	if err := engine.Process(context.Background(), s); err != nil {
		t.Fatalf("Process: %v", err)
	}

	if s.Phase != state.PhaseReadyForCompletion {
		t.Errorf("phase = %s", s.Phase)
	}
	if s.CherryPickItems[1].Status != state.StatusFailed {
		t.Errorf("item 1 status = %s", s.CherryPickItems[1].Status)
	}
	if s.CherryPickItems[1].FailureMessage != "merge: nothing to commit" {
		t.Errorf("failure message = %q", s.CherryPickItems[1].FailureMessage)
	}
	if s.CherryPickItems[2].Status != state.StatusSuccess {
		t.Errorf("item 2 status = %s", s.CherryPickItems[2].Status)
	}

	var sawFailed bool
	for _, ev := range sink.Events() {
		if f, ok := ev.(events.CherryPickFailedEvent); ok {
			sawFailed = true
			if f.PRID != 102 {
				t.Errorf("failed event pr = %d", f.PRID)
			}
		}
	}
	if !sawFailed {
		t.Error("no CherryPickFailed event emitted")
	}
}

func TestProcessPastEndIsNoOp(t *testing.T) {
	s := newState(pendingItem(101, "aaaa"))
	s.CherryPickItems[0].Status = state.StatusSuccess
	s.CurrentIndex = 1
	s.Phase = state.PhaseReadyForCompletion

	saves := 0
	sink := &events.CollectingSink{}
	engine := New(&gitdriver.MockDriver{}, sink, noopSave(&saves), nil)
	if err := engine.Process(context.Background(), s); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(sink.Events()) != 0 {
		t.Errorf("no-op emitted %d events", len(sink.Events()))
	}
	if saves != 0 {
		t.Errorf("no-op saved %d times", saves)
	}
}

func TestProcessEmptyListGoesStraightToReady(t *testing.T) {
	s := newState()
	sink := &events.CollectingSink{}
	engine := New(&gitdriver.MockDriver{}, sink, noopSave(nil), nil)
	if err := engine.Process(context.Background(), s); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if s.Phase != state.PhaseReadyForCompletion {
		t.Errorf("phase = %s", s.Phase)
	}
	if len(sink.Events()) != 0 {
		t.Errorf("empty list emitted %d events", len(sink.Events()))
	}
}

func TestProcessSkipsAlreadyResolvedItems(t *testing.T) {
	s := newState(pendingItem(101, "aaaa"), pendingItem(102, "bbbb"))
	s.CherryPickItems[0].Status = state.StatusSuccess
	s.CurrentIndex = 0 // cursor behind a non-pending item; engine must pass over it

	driver := &gitdriver.MockDriver{}
	engine := New(driver, &events.CollectingSink{}, noopSave(nil), nil)
	if err := engine.Process(context.Background(), s); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(driver.Calls) != 1 || driver.Calls[0] != "CherryPickCommit:bbbb" {
		t.Errorf("driver calls = %v", driver.Calls)
	}
}

func TestCountsAndFinalStatus(t *testing.T) {
	tests := []struct {
		name string
		c    Counts
		want state.FinalStatus
	}{
		{"all success", Counts{Success: 3}, state.FinalSuccess},
		{"empty run", Counts{}, state.FinalSuccess},
		{"one failed", Counts{Success: 2, Failed: 1}, state.FinalPartialSuccess},
		{"one skipped", Counts{Success: 2, Skipped: 1}, state.FinalPartialSuccess},
		{"all failed", Counts{Failed: 2}, state.FinalFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.c.FinalStatus(); got != tt.want {
				t.Errorf("FinalStatus() = %s, want %s", got, tt.want)
			}
		})
	}
}
