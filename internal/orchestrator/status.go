package orchestrator

import (
	"context"

	"github.com/mergerstool/mergers/internal/errors"
	"github.com/mergerstool/mergers/internal/events"
	"github.com/mergerstool/mergers/internal/state"
)

// Status emits a single snapshot of the merge state. It is read-only and
// takes no lock, so it works while another process holds the repository.
func (o *Orchestrator) Status(ctx context.Context) RunResult {
	keyPath, err := o.repoKeyPath()
	if err != nil {
		return o.failure(err, "")
	}
	paths, err := state.ResolvePaths(keyPath)
	if err != nil {
		return o.failure(err, "")
	}
	s, err := state.Load(paths.StateFile)
	if err != nil {
		return o.failure(err, paths.StateFile)
	}

	o.sink.Emit(events.StatusEvent{StatusInfo: BuildStatusInfo(s)})
	return RunResult{ExitCode: errors.ExitSuccess, StateFilePath: paths.StateFile}
}

// BuildStatusInfo projects a state file into the status snapshot
// rendered by the status verb. A Conflict item contributes to neither
// completed nor pending; it is represented by the conflict block instead.
func BuildStatusInfo(s *state.MergeStateFile) events.StatusInfo {
	var completed, pending int
	items := make([]events.SummaryItem, len(s.CherryPickItems))
	for i, item := range s.CherryPickItems {
		switch item.Status {
		case state.StatusSuccess, state.StatusFailed, state.StatusSkipped:
			completed++
		case state.StatusPending:
			pending++
		}
		items[i] = events.SummaryItem{
			PRID:     item.PRID,
			Status:   string(item.Status),
			CommitID: item.CommitID,
		}
	}

	info := events.StatusInfo{
		Phase:        string(s.Phase),
		Status:       string(s.FinalStatus),
		Version:      s.Version,
		TargetBranch: s.TargetBranch,
		RepoPath:     s.RepoPath,
		Progress: events.Progress{
			Total:        len(s.CherryPickItems),
			Completed:    completed,
			Pending:      pending,
			CurrentIndex: s.CurrentIndex,
		},
		Items: items,
	}

	if s.Phase == state.PhaseAwaitingConflictResolution && s.CurrentIndex < len(s.CherryPickItems) {
		info.Conflict = &events.ConflictInfo{
			PRID:            s.CherryPickItems[s.CurrentIndex].PRID,
			ConflictedFiles: s.ConflictedFiles,
			RepoPath:        s.RepoPath,
		}
	}
	return info
}
