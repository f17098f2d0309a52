package state

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mergerstool/mergers/internal/errors"
)

// SchemaVersion is the running code's expectation for MergeStateFile's
// schema_version field. A state file with a different value is rejected
// outright.
const SchemaVersion = 1

// Phase is the coarse-grained position of a merge operation in its
// lifecycle.
type Phase string

const (
	PhaseLoading                    Phase = "loading"
	PhaseSetup                      Phase = "setup"
	PhaseCherryPicking              Phase = "cherry_picking"
	PhaseAwaitingConflictResolution Phase = "awaiting_conflict_resolution"
	PhaseReadyForCompletion         Phase = "ready_for_completion"
	PhaseCompleting                 Phase = "completing"
	PhaseCompleted                  Phase = "completed"
	PhaseAborted                    Phase = "aborted"
)

// Terminal reports whether p admits no further mutation.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseAborted
}

// ItemStatus is the outcome of cherry-picking a single commit.
type ItemStatus string

const (
	StatusPending  ItemStatus = "pending"
	StatusSuccess  ItemStatus = "success"
	StatusConflict ItemStatus = "conflict"
	StatusSkipped  ItemStatus = "skipped"
	StatusFailed   ItemStatus = "failed"
)

// FinalStatus summarizes a terminal run.
type FinalStatus string

const (
	FinalSuccess        FinalStatus = "success"
	FinalPartialSuccess FinalStatus = "partial_success"
	FinalAborted        FinalStatus = "aborted"
	FinalFailed         FinalStatus = "failed"
)

// CherryPickItem is one commit queued for application onto the patch
// branch, tracked through its lifecycle.
type CherryPickItem struct {
	CommitID    string     `json:"commit_id"`
	PRID        int        `json:"pr_id"`
	PRTitle     string     `json:"pr_title"`
	Status      ItemStatus `json:"status"`
	WorkItemIDs []int      `json:"work_item_ids"`
	// FailureMessage is populated only when Status == StatusFailed.
	FailureMessage string `json:"failure_message,omitempty"`
	// LabelsApplied records which tag names the post-merge executor has
	// already attached to this PR, so a `complete` re-run after a crash
	// between Completing and Completed does not double-tag.
	LabelsApplied []string `json:"labels_applied,omitempty"`
}

// SelectionFilter is the resolved PR-selection criteria persisted alongside
// the items they produced, so `status` can show operators why a PR was or
// wasn't selected and `migrate` can reuse the same parser output.
type SelectionFilter struct {
	WorkItemStates []string `json:"work_item_states,omitempty"`
	Since          string   `json:"since,omitempty"`
}

// MergeStateFile is the single JSON document persisted per repository.
// Load checks the invariants (see Validate); Save writes without checking
// them.
type MergeStateFile struct {
	SchemaVersion int       `json:"schema_version"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	RepoPath     string `json:"repo_path"`
	BaseRepoPath string `json:"base_repo_path,omitempty"`
	IsWorktree   bool   `json:"is_worktree"`

	Organization string `json:"organization"`
	Project      string `json:"project"`
	Repository   string `json:"repository"`
	DevBranch    string `json:"dev_branch"`
	TargetBranch string `json:"target_branch"`
	Version      string `json:"version"`

	CherryPickItems []CherryPickItem `json:"cherry_pick_items"`
	CurrentIndex    int              `json:"current_index"`

	// SelectionFilter records the criteria that produced CherryPickItems.
	SelectionFilter *SelectionFilter `json:"selection_filter,omitempty"`
	// SourceBranchHead is the dev_branch commit observed at selection
	// time. Items resolve to fixed commit IDs, so drift here is
	// informational only — `continue` flags it but never fails on it.
	SourceBranchHead string `json:"source_branch_head,omitempty"`

	Phase           Phase    `json:"phase"`
	ConflictedFiles []string `json:"conflicted_files,omitempty"`

	WorkItemState string `json:"work_item_state"`
	TagPrefix     string `json:"tag_prefix"`
	RunHooks      bool   `json:"run_hooks"`

	CompletedAt *time.Time  `json:"completed_at,omitempty"`
	FinalStatus FinalStatus `json:"final_status,omitempty"`
}

// New builds a fresh MergeStateFile for a new `run`, with phase Setup and
// timestamps set to now. Callers fill in CherryPickItems and RepoPath
// before the first Save.
func New() *MergeStateFile {
	now := time.Now().UTC()
	return &MergeStateFile{
		SchemaVersion: SchemaVersion,
		CreatedAt:     now,
		UpdatedAt:     now,
		Phase:         PhaseSetup,
	}
}

// Validate runs every state-file invariant against s. It returns the
// first violation found, wrapped as a StateError so callers can surface a
// consistent "corrupted, run `merge abort` or delete the file" message.
func (s *MergeStateFile) Validate() error {
	if s.SchemaVersion != SchemaVersion {
		return errors.NewStateError(
			fmt.Sprintf("schema_version %d does not match running code's %d; this requires a migration tool, not `merge abort`", s.SchemaVersion, SchemaVersion),
			errors.ErrSchemaMismatch, errors.ExitGeneralError)
	}
	if s.CurrentIndex < 0 || s.CurrentIndex > len(s.CherryPickItems) {
		return s.corrupted(fmt.Sprintf("current_index %d out of range [0, %d]", s.CurrentIndex, len(s.CherryPickItems)))
	}
	if s.Phase == PhaseAwaitingConflictResolution {
		if len(s.ConflictedFiles) == 0 {
			return s.corrupted("phase is awaiting_conflict_resolution but conflicted_files is empty")
		}
		if s.CurrentIndex >= len(s.CherryPickItems) || s.CherryPickItems[s.CurrentIndex].Status != StatusConflict {
			return s.corrupted("phase is awaiting_conflict_resolution but current item status is not conflict")
		}
	}
	if s.Phase == PhaseCompleted {
		if s.FinalStatus == "" || s.CompletedAt == nil {
			return s.corrupted("phase is completed but final_status or completed_at is unset")
		}
	}
	if s.Phase.Terminal() && (s.FinalStatus == "" || s.CompletedAt == nil) {
		return s.corrupted("phase is terminal but final_status or completed_at is unset")
	}
	for i := 0; i < s.CurrentIndex && i < len(s.CherryPickItems); i++ {
		if s.CherryPickItems[i].Status == StatusPending {
			return s.corrupted(fmt.Sprintf("item %d precedes current_index but is still pending", i))
		}
	}
	return nil
}

func (s *MergeStateFile) corrupted(reason string) error {
	return errors.NewStateError(
		fmt.Sprintf("%s; run `merge abort` or delete the state file manually", reason),
		errors.ErrStateCorrupted, errors.ExitGeneralError)
}

// Save serializes s to pretty JSON and atomically replaces path: write to
// a ".merge-*.tmp" file in path's directory, fsync, rename onto path. UpdatedAt is refreshed on every
// call. Parent directories are created as needed.
func (s *MergeStateFile) Save(path string) error {
	s.UpdatedAt = time.Now().UTC()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.NewStateError("create state directory", err, errors.ExitGeneralError).WithStateFile(path)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return errors.NewStateError("marshal state file", err, errors.ExitGeneralError).WithStateFile(path)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(path), ".merge-*.tmp")
	if err != nil {
		return errors.NewStateError("create temp state file", err, errors.ExitGeneralError).WithStateFile(path)
	}
	tmpPath := tmp.Name()
	cleanTmp := true
	defer func() {
		if cleanTmp {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.NewStateError("write temp state file", err, errors.ExitGeneralError).WithStateFile(path)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.NewStateError("fsync temp state file", err, errors.ExitGeneralError).WithStateFile(path)
	}
	if err := tmp.Close(); err != nil {
		return errors.NewStateError("close temp state file", err, errors.ExitGeneralError).WithStateFile(path)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return errors.NewStateError("rename temp state file onto final path", err, errors.ExitGeneralError).WithStateFile(path)
	}
	cleanTmp = false
	return nil
}

// Load reads, parses, and validates the state file at path, rejecting
// unknown fields so forward-incompatible schema changes are caught rather
// than silently truncated.
func Load(path string) (*MergeStateFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrStateMissing, path)
		}
		return nil, errors.NewStateError("read state file", err, errors.ExitGeneralError).WithStateFile(path)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var s MergeStateFile
	if err := dec.Decode(&s); err != nil {
		return nil, s.corrupted(fmt.Sprintf("parse failure: %v", err))
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Exists reports whether a state file is present at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Remove deletes the state file at path. Called only by explicit
// `cleanup` after Completed or Aborted.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.NewStateError("remove state file", err, errors.ExitGeneralError).WithStateFile(path)
	}
	return nil
}
