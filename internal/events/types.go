// Package events defines the closed algebra of progress events the merge
// engine emits, and the sink interface formatters consume them through.
// Every concrete event type serializes to JSON with an external "event" tag
// in snake_case, so the wire shape is self-describing and stable across the
// text/json/ndjson output formatters.
package events

import (
	"encoding/json"
	"fmt"
)

// EventType identifies which concrete event a wire record carries.
type EventType string

const (
	TypeStart               EventType = "start"
	TypeCherryPickStart     EventType = "cherry_pick_start"
	TypeCherryPickSuccess   EventType = "cherry_pick_success"
	TypeCherryPickConflict  EventType = "cherry_pick_conflict"
	TypeCherryPickFailed    EventType = "cherry_pick_failed"
	TypeCherryPickSkipped   EventType = "cherry_pick_skipped"
	TypePostMergeStart      EventType = "post_merge_start"
	TypePostMergeProgress   EventType = "post_merge_progress"
	TypeComplete            EventType = "complete"
	TypeStatus              EventType = "status"
	TypeAborted             EventType = "aborted"
	TypeError               EventType = "error"
	TypeHookStart           EventType = "hook_start"
	TypeHookCommandStart    EventType = "hook_command_start"
	TypeHookCommandComplete EventType = "hook_command_complete"
	TypeHookComplete        EventType = "hook_complete"
	TypeHookFailed          EventType = "hook_failed"
)

// Event is implemented by every concrete event struct in this package.
type Event interface {
	// EventType returns the external tag used to identify this event on
	// the wire.
	EventType() EventType
	json.Marshaler
}

// -----------------------------------------------------------------------------
// Run lifecycle events
// -----------------------------------------------------------------------------

// StartEvent opens an engine run, naming how many PRs were selected.
type StartEvent struct {
	TotalPRs     int    `json:"total_prs"`
	Version      string `json:"version"`
	TargetBranch string `json:"target_branch"`
}

func (e StartEvent) EventType() EventType { return TypeStart }

func (e StartEvent) MarshalJSON() ([]byte, error) {
	type alias StartEvent
	return marshalTagged(TypeStart, alias(e))
}

// CompleteEvent is the last PR-level event of a successful (or
// partially-successful) run.
type CompleteEvent struct {
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
	Skipped    int `json:"skipped"`
}

func (e CompleteEvent) EventType() EventType { return TypeComplete }

func (e CompleteEvent) MarshalJSON() ([]byte, error) {
	type alias CompleteEvent
	return marshalTagged(TypeComplete, alias(e))
}

// AbortedEvent reports the outcome of an explicit abort.
type AbortedEvent struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func (e AbortedEvent) EventType() EventType { return TypeAborted }

func (e AbortedEvent) MarshalJSON() ([]byte, error) {
	type alias AbortedEvent
	return marshalTagged(TypeAborted, alias(e))
}

// ErrorEvent carries a terminal error surfaced to the caller.
type ErrorEvent struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func (e ErrorEvent) EventType() EventType { return TypeError }

func (e ErrorEvent) MarshalJSON() ([]byte, error) {
	type alias ErrorEvent
	return marshalTagged(TypeError, alias(e))
}

// -----------------------------------------------------------------------------
// Cherry-pick events
// -----------------------------------------------------------------------------

// CherryPickStartEvent announces that a single cherry-pick is beginning.
type CherryPickStartEvent struct {
	PRID     int    `json:"pr_id"`
	CommitID string `json:"commit_id"`
	Index    int    `json:"index"`
	Total    int    `json:"total"`
}

func (e CherryPickStartEvent) EventType() EventType { return TypeCherryPickStart }

func (e CherryPickStartEvent) MarshalJSON() ([]byte, error) {
	type alias CherryPickStartEvent
	return marshalTagged(TypeCherryPickStart, alias(e))
}

// CherryPickSuccessEvent reports a clean cherry-pick application.
type CherryPickSuccessEvent struct {
	PRID     int    `json:"pr_id"`
	CommitID string `json:"commit_id"`
}

func (e CherryPickSuccessEvent) EventType() EventType { return TypeCherryPickSuccess }

func (e CherryPickSuccessEvent) MarshalJSON() ([]byte, error) {
	type alias CherryPickSuccessEvent
	return marshalTagged(TypeCherryPickSuccess, alias(e))
}

// CherryPickConflictEvent reports unresolved conflicts; the engine halts
// here until the operator resolves them and calls continue.
type CherryPickConflictEvent struct {
	PRID            int      `json:"pr_id"`
	ConflictedFiles []string `json:"conflicted_files"`
	RepoPath        string   `json:"repo_path"`
}

func (e CherryPickConflictEvent) EventType() EventType { return TypeCherryPickConflict }

func (e CherryPickConflictEvent) MarshalJSON() ([]byte, error) {
	type alias CherryPickConflictEvent
	return marshalTagged(TypeCherryPickConflict, alias(e))
}

// CherryPickFailedEvent reports a cherry-pick that failed for a reason
// other than a content conflict (e.g. "nothing to commit").
type CherryPickFailedEvent struct {
	PRID  int    `json:"pr_id"`
	Error string `json:"error"`
}

func (e CherryPickFailedEvent) EventType() EventType { return TypeCherryPickFailed }

func (e CherryPickFailedEvent) MarshalJSON() ([]byte, error) {
	type alias CherryPickFailedEvent
	return marshalTagged(TypeCherryPickFailed, alias(e))
}

// CherryPickSkippedEvent reports a PR deliberately excluded from the run.
type CherryPickSkippedEvent struct {
	PRID   int    `json:"pr_id"`
	Reason string `json:"reason,omitempty"`
}

func (e CherryPickSkippedEvent) EventType() EventType { return TypeCherryPickSkipped }

func (e CherryPickSkippedEvent) MarshalJSON() ([]byte, error) {
	type alias CherryPickSkippedEvent
	return marshalTagged(TypeCherryPickSkipped, alias(e))
}

// -----------------------------------------------------------------------------
// Post-merge events
// -----------------------------------------------------------------------------

// PostMergeTaskStatus is the outcome of a single post-merge task.
type PostMergeTaskStatus string

const (
	PostMergeTaskPending PostMergeTaskStatus = "pending"
	PostMergeTaskSuccess PostMergeTaskStatus = "success"
	PostMergeTaskFailed  PostMergeTaskStatus = "failed"
	PostMergeTaskSkipped PostMergeTaskStatus = "skipped"
)

// PostMergeStartEvent announces the total number of tag/transition tasks
// about to run.
type PostMergeStartEvent struct {
	TaskCount int `json:"task_count"`
}

func (e PostMergeStartEvent) EventType() EventType { return TypePostMergeStart }

func (e PostMergeStartEvent) MarshalJSON() ([]byte, error) {
	type alias PostMergeStartEvent
	return marshalTagged(TypePostMergeStart, alias(e))
}

// PostMergeProgressEvent reports one task's outcome. TaskType is "tag" or
// "transition_work_item"; TargetID is the PR or work-item identifier it
// acted on.
type PostMergeProgressEvent struct {
	TaskType string              `json:"task_type"`
	TargetID int                 `json:"target_id"`
	Status   PostMergeTaskStatus `json:"status"`
	Error    string              `json:"error,omitempty"`
}

func (e PostMergeProgressEvent) EventType() EventType { return TypePostMergeProgress }

func (e PostMergeProgressEvent) MarshalJSON() ([]byte, error) {
	type alias PostMergeProgressEvent
	return marshalTagged(TypePostMergeProgress, alias(e))
}

// -----------------------------------------------------------------------------
// Status snapshot
// -----------------------------------------------------------------------------

// Progress summarizes cursor position across the cherry-pick item list.
type Progress struct {
	Total        int `json:"total"`
	Completed    int `json:"completed"`
	Pending      int `json:"pending"`
	CurrentIndex int `json:"current_index"`
}

// ConflictInfo describes the item currently blocking progress.
type ConflictInfo struct {
	PRID            int      `json:"pr_id"`
	ConflictedFiles []string `json:"conflicted_files"`
	RepoPath        string   `json:"repo_path"`
}

// SummaryItem is a condensed per-PR row for the status verb.
type SummaryItem struct {
	PRID     int    `json:"pr_id"`
	Status   string `json:"status"`
	CommitID string `json:"commit_id"`
}

// StatusInfo is the full snapshot rendered by the status verb.
type StatusInfo struct {
	Phase        string        `json:"phase"`
	Status       string        `json:"status,omitempty"`
	Version      string        `json:"version"`
	TargetBranch string        `json:"target_branch"`
	RepoPath     string        `json:"repo_path"`
	Progress     Progress      `json:"progress"`
	Conflict     *ConflictInfo `json:"conflict,omitempty"`
	Items        []SummaryItem `json:"items,omitempty"`
}

// StatusEvent wraps a StatusInfo snapshot for emission on the event channel.
type StatusEvent struct {
	StatusInfo
}

func (e StatusEvent) EventType() EventType { return TypeStatus }

func (e StatusEvent) MarshalJSON() ([]byte, error) {
	type alias StatusEvent
	return marshalTagged(TypeStatus, alias(e))
}

// -----------------------------------------------------------------------------
// Hook lifecycle events
// -----------------------------------------------------------------------------

// HookStartEvent announces a hook trigger beginning to fire (e.g.
// "before_cherry_pick").
type HookStartEvent struct {
	Trigger string `json:"trigger"`
}

func (e HookStartEvent) EventType() EventType { return TypeHookStart }

func (e HookStartEvent) MarshalJSON() ([]byte, error) {
	type alias HookStartEvent
	return marshalTagged(TypeHookStart, alias(e))
}

// HookCommandStartEvent announces a single hook command beginning.
type HookCommandStartEvent struct {
	Trigger string `json:"trigger"`
	Command string `json:"command"`
}

func (e HookCommandStartEvent) EventType() EventType { return TypeHookCommandStart }

func (e HookCommandStartEvent) MarshalJSON() ([]byte, error) {
	type alias HookCommandStartEvent
	return marshalTagged(TypeHookCommandStart, alias(e))
}

// HookCommandCompleteEvent reports a single hook command's exit.
type HookCommandCompleteEvent struct {
	Trigger  string `json:"trigger"`
	Command  string `json:"command"`
	ExitCode int    `json:"exit_code"`
}

func (e HookCommandCompleteEvent) EventType() EventType { return TypeHookCommandComplete }

func (e HookCommandCompleteEvent) MarshalJSON() ([]byte, error) {
	type alias HookCommandCompleteEvent
	return marshalTagged(TypeHookCommandComplete, alias(e))
}

// HookCompleteEvent reports that every command for a trigger ran
// successfully.
type HookCompleteEvent struct {
	Trigger string `json:"trigger"`
}

func (e HookCompleteEvent) EventType() EventType { return TypeHookComplete }

func (e HookCompleteEvent) MarshalJSON() ([]byte, error) {
	type alias HookCompleteEvent
	return marshalTagged(TypeHookComplete, alias(e))
}

// HookFailedEvent reports that a hook command for a trigger failed. Hook
// failures are logged and do not abort the merge run.
type HookFailedEvent struct {
	Trigger string `json:"trigger"`
	Command string `json:"command"`
	Error   string `json:"error"`
}

func (e HookFailedEvent) EventType() EventType { return TypeHookFailed }

func (e HookFailedEvent) MarshalJSON() ([]byte, error) {
	type alias HookFailedEvent
	return marshalTagged(TypeHookFailed, alias(e))
}

// -----------------------------------------------------------------------------
// Wire encoding helpers
// -----------------------------------------------------------------------------

// marshalTagged renders payload (a plain struct with no MarshalJSON method
// of its own — callers pass a locally declared alias type to avoid
// recursing back into their own MarshalJSON) as a JSON object with an
// "event" field set to tag, merged with payload's own fields.
func marshalTagged(tag EventType, payload any) ([]byte, error) {
	fields, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("events: marshal %s payload: %w", tag, err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(fields, &raw); err != nil {
		return nil, fmt.Errorf("events: decode %s payload: %w", tag, err)
	}

	tagBytes, _ := json.Marshal(tag)
	raw["event"] = tagBytes

	return json.Marshal(raw)
}

// Unmarshal decodes a single tagged event record into its concrete type.
// It returns an error if the "event" field is missing or unrecognized.
func Unmarshal(data []byte) (Event, error) {
	var probe struct {
		Event EventType `json:"event"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("events: decode tag: %w", err)
	}

	switch probe.Event {
	case TypeStart:
		var e StartEvent
		return e, json.Unmarshal(data, &e)
	case TypeCherryPickStart:
		var e CherryPickStartEvent
		return e, json.Unmarshal(data, &e)
	case TypeCherryPickSuccess:
		var e CherryPickSuccessEvent
		return e, json.Unmarshal(data, &e)
	case TypeCherryPickConflict:
		var e CherryPickConflictEvent
		return e, json.Unmarshal(data, &e)
	case TypeCherryPickFailed:
		var e CherryPickFailedEvent
		return e, json.Unmarshal(data, &e)
	case TypeCherryPickSkipped:
		var e CherryPickSkippedEvent
		return e, json.Unmarshal(data, &e)
	case TypePostMergeStart:
		var e PostMergeStartEvent
		return e, json.Unmarshal(data, &e)
	case TypePostMergeProgress:
		var e PostMergeProgressEvent
		return e, json.Unmarshal(data, &e)
	case TypeComplete:
		var e CompleteEvent
		return e, json.Unmarshal(data, &e)
	case TypeStatus:
		var e StatusEvent
		return e, json.Unmarshal(data, &e)
	case TypeAborted:
		var e AbortedEvent
		return e, json.Unmarshal(data, &e)
	case TypeError:
		var e ErrorEvent
		return e, json.Unmarshal(data, &e)
	case TypeHookStart:
		var e HookStartEvent
		return e, json.Unmarshal(data, &e)
	case TypeHookCommandStart:
		var e HookCommandStartEvent
		return e, json.Unmarshal(data, &e)
	case TypeHookCommandComplete:
		var e HookCommandCompleteEvent
		return e, json.Unmarshal(data, &e)
	case TypeHookComplete:
		var e HookCompleteEvent
		return e, json.Unmarshal(data, &e)
	case TypeHookFailed:
		var e HookFailedEvent
		return e, json.Unmarshal(data, &e)
	default:
		return nil, fmt.Errorf("events: unrecognized event tag %q", probe.Event)
	}
}
