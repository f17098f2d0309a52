// Package cherrypick drives the sequence of cherry-picks a merge run
// performs. It owns the cursor over the state file's item
// list, maps git driver outcomes onto item statuses and phase transitions,
// and halts without advancing when a conflict needs a human.
package cherrypick

import (
	"context"

	"github.com/mergerstool/mergers/internal/events"
	"github.com/mergerstool/mergers/internal/gitdriver"
	"github.com/mergerstool/mergers/internal/logging"
	"github.com/mergerstool/mergers/internal/state"
)

// Saver persists the state file. The engine saves before every git
// mutation so a crash mid-pick always leaves a resumable file, and after
// every status change so the file reflects what actually happened.
type Saver func(*state.MergeStateFile) error

// Engine advances a merge state through its pending cherry-pick items.
type Engine struct {
	driver gitdriver.Driver
	sink   events.Sink
	save   Saver
	logger *logging.Logger
}

// New builds an Engine. logger may be nil.
func New(driver gitdriver.Driver, sink events.Sink, save Saver, logger *logging.Logger) *Engine {
	return &Engine{driver: driver, sink: sink, save: save, logger: logger}
}

// Process iterates s.CherryPickItems from s.CurrentIndex while each item
// is Pending, invoking the git driver and mapping each outcome onto an
// item status and phase transition:
//
//	Success  -> item Success, cursor advances, CherryPicking
//	Conflict -> item Conflict, cursor stays,  AwaitingConflictResolution, return
//	Failed   -> item Failed,  cursor advances, CherryPicking
//
// The driver has no Skipped outcome, so Process never marks an item
// Skipped. When no pending items remain the phase becomes
// ReadyForCompletion. Calling Process with the cursor already past the
// last item emits no events; it only sets and saves that phase if it is
// not already set.
func (e *Engine) Process(ctx context.Context, s *state.MergeStateFile) error {
	total := len(s.CherryPickItems)

	// Already past the end with the transition applied: a strict no-op.
	if s.CurrentIndex >= total && s.Phase == state.PhaseReadyForCompletion {
		return nil
	}

	for s.CurrentIndex < total {
		item := &s.CherryPickItems[s.CurrentIndex]
		if item.Status != state.StatusPending {
			s.CurrentIndex++
			continue
		}

		e.sink.Emit(events.CherryPickStartEvent{
			PRID:     item.PRID,
			CommitID: item.CommitID,
			Index:    s.CurrentIndex,
			Total:    total,
		})

		// Persist before mutating the working tree: if the process dies
		// inside git, the file still names the item being attempted.
		if err := e.save(s); err != nil {
			return err
		}

		result, err := e.driver.CherryPickCommit(ctx, s.RepoPath, item.CommitID)
		if err != nil {
			return err
		}

		switch result.Outcome {
		case gitdriver.OutcomeSuccess:
			item.Status = state.StatusSuccess
			s.CurrentIndex++
			if err := e.save(s); err != nil {
				return err
			}
			e.sink.Emit(events.CherryPickSuccessEvent{PRID: item.PRID, CommitID: item.CommitID})
			if e.logger != nil {
				e.logger.Info("cherry-pick applied", "pr_id", item.PRID, "commit", item.CommitID)
			}

		case gitdriver.OutcomeConflict:
			item.Status = state.StatusConflict
			s.Phase = state.PhaseAwaitingConflictResolution
			s.ConflictedFiles = result.ConflictedFiles
			if err := e.save(s); err != nil {
				return err
			}
			e.sink.Emit(events.CherryPickConflictEvent{
				PRID:            item.PRID,
				ConflictedFiles: result.ConflictedFiles,
				RepoPath:        s.RepoPath,
			})
			if e.logger != nil {
				e.logger.Warn("cherry-pick conflict", "pr_id", item.PRID, "files", result.ConflictedFiles)
			}
			return nil

		case gitdriver.OutcomeFailed:
			item.Status = state.StatusFailed
			item.FailureMessage = result.FailureMessage
			s.CurrentIndex++
			if err := e.save(s); err != nil {
				return err
			}
			e.sink.Emit(events.CherryPickFailedEvent{PRID: item.PRID, Error: result.FailureMessage})
			if e.logger != nil {
				e.logger.Error("cherry-pick failed", "pr_id", item.PRID, "error", result.FailureMessage)
			}
		}
	}

	s.Phase = state.PhaseReadyForCompletion
	s.ConflictedFiles = nil
	return e.save(s)
}

// Counts tallies item outcomes for the Complete event and final-status
// computation.
type Counts struct {
	Success int
	Failed  int
	Skipped int
}

// Count returns the outcome tallies over s's items.
func Count(s *state.MergeStateFile) Counts {
	var c Counts
	for _, item := range s.CherryPickItems {
		switch item.Status {
		case state.StatusSuccess:
			c.Success++
		case state.StatusFailed:
			c.Failed++
		case state.StatusSkipped:
			c.Skipped++
		}
	}
	return c
}

// FinalStatus maps outcome counts onto a terminal status: Success when
// nothing failed or was skipped, PartialSuccess when at least one item
// succeeded, otherwise Failed.
func (c Counts) FinalStatus() state.FinalStatus {
	switch {
	case c.Failed == 0 && c.Skipped == 0:
		return state.FinalSuccess
	case c.Success > 0:
		return state.FinalPartialSuccess
	default:
		return state.FinalFailed
	}
}
