package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newValidState() *MergeStateFile {
	s := New()
	s.RepoPath = "/tmp/repo"
	s.Phase = PhaseCherryPicking
	s.CherryPickItems = []CherryPickItem{
		{CommitID: "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", PRID: 101, Status: StatusSuccess},
		{CommitID: "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb", PRID: 102, Status: StatusPending},
	}
	s.CurrentIndex = 1
	return s
}

func TestValidate_Valid(t *testing.T) {
	if err := newValidState().Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestValidate_SchemaMismatch(t *testing.T) {
	s := newValidState()
	s.SchemaVersion = 99
	if err := s.Validate(); err == nil {
		t.Fatal("Validate() = nil, want schema mismatch error")
	}
}

func TestValidate_CurrentIndexOutOfRange(t *testing.T) {
	s := newValidState()
	s.CurrentIndex = 5
	if err := s.Validate(); err == nil {
		t.Fatal("Validate() = nil, want out-of-range error")
	}
}

func TestValidate_PendingBeforeCursor(t *testing.T) {
	s := newValidState()
	s.CherryPickItems[0].Status = StatusPending
	if err := s.Validate(); err == nil {
		t.Fatal("Validate() = nil, want pending-before-cursor error")
	}
}

func TestValidate_ConflictPhaseRequiresFiles(t *testing.T) {
	s := newValidState()
	s.Phase = PhaseAwaitingConflictResolution
	s.CherryPickItems[1].Status = StatusConflict
	if err := s.Validate(); err == nil {
		t.Fatal("Validate() = nil, want missing conflicted_files error")
	}
	s.ConflictedFiles = []string{"src/a.go"}
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil once conflicted_files is set", err)
	}
}

func TestValidate_TerminalRequiresFinalStatus(t *testing.T) {
	s := newValidState()
	s.Phase = PhaseCompleted
	if err := s.Validate(); err == nil {
		t.Fatal("Validate() = nil, want terminal-without-final-status error")
	}
	now := time.Now().UTC()
	s.CompletedAt = &now
	s.FinalStatus = FinalSuccess
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil once terminal fields are set", err)
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "merge-test.json")

	s := newValidState()
	if err := s.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.RepoPath != s.RepoPath {
		t.Errorf("RepoPath = %q, want %q", loaded.RepoPath, s.RepoPath)
	}
	if len(loaded.CherryPickItems) != len(s.CherryPickItems) {
		t.Errorf("CherryPickItems len = %d, want %d", len(loaded.CherryPickItems), len(s.CherryPickItems))
	}
	if loaded.CurrentIndex != s.CurrentIndex {
		t.Errorf("CurrentIndex = %d, want %d", loaded.CurrentIndex, s.CurrentIndex)
	}
}

func TestSave_NoPartialFileOnSuccess(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "merge-test.json")
	if err := newValidState().Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("dir contains %d entries, want exactly the final state file (no leftover tmp): %v", len(entries), entries)
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.json"))
	if err == nil {
		t.Fatal("Load() = nil error, want ErrStateMissing")
	}
}

func TestLoad_UnknownFieldRejected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "merge-test.json")
	if err := os.WriteFile(path, []byte(`{"schema_version":1,"phase":"setup","totally_unknown_field":true}`), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load() = nil error, want rejection of unknown field")
	}
}

func TestLoad_SchemaMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "merge-test.json")
	if err := os.WriteFile(path, []byte(`{"schema_version":99,"phase":"setup","current_index":0}`), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load() = nil error, want schema mismatch")
	}
}

func TestRemove(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "merge-test.json")
	if err := newValidState().Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := Remove(path); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if Exists(path) {
		t.Error("Exists() = true after Remove()")
	}
	// Idempotent.
	if err := Remove(path); err != nil {
		t.Fatalf("Remove() on already-removed file error = %v, want nil", err)
	}
}

func TestPhase_Terminal(t *testing.T) {
	for _, p := range []Phase{PhaseCompleted, PhaseAborted} {
		if !p.Terminal() {
			t.Errorf("%v.Terminal() = false, want true", p)
		}
	}
	for _, p := range []Phase{PhaseLoading, PhaseSetup, PhaseCherryPicking, PhaseAwaitingConflictResolution, PhaseReadyForCompletion, PhaseCompleting} {
		if p.Terminal() {
			t.Errorf("%v.Terminal() = true, want false", p)
		}
	}
}
