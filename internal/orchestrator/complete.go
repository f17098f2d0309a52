package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/mergerstool/mergers/internal/cherrypick"
	"github.com/mergerstool/mergers/internal/errors"
	"github.com/mergerstool/mergers/internal/events"
	"github.com/mergerstool/mergers/internal/hooks"
	"github.com/mergerstool/mergers/internal/postmerge"
	"github.com/mergerstool/mergers/internal/state"
)

// Complete finishes a merge whose cherry-picks are done: tag every
// successfully picked PR, transition its work items, and mark the state
// file terminal with the computed final status.
func (o *Orchestrator) Complete(ctx context.Context) RunResult {
	paths, s, guard, err := o.loadLocked()
	if err != nil {
		return o.failure(err, paths.StateFile)
	}
	defer guard.Release()

	if s.Phase != state.PhaseReadyForCompletion {
		return o.failure(errors.NewStateError(
			fmt.Sprintf("complete requires phase ready_for_completion, but the merge is in %s", s.Phase),
			errors.ErrPhaseInvalid, errors.ExitInvalidPhase), paths.StateFile)
	}

	// Work items transition to the state configured for this invocation.
	if o.settings.WorkItemState != "" {
		s.WorkItemState = o.settings.WorkItemState
	}
	s.Phase = state.PhaseCompleting
	if err := o.persist(s, paths.StateFile); err != nil {
		return o.failure(err, paths.StateFile)
	}

	o.hooks.Fire(ctx, hooks.TriggerBeforeComplete, s.RepoPath)

	executor := postmerge.New(o.client, o.sink, o.settings.MaxConcurrentNetwork, o.logger)
	tasks := postmerge.BuildTasks(s)
	results := executor.Execute(ctx, s, tasks)
	postmerge.ApplyTagResults(s, results)

	counts := cherrypick.Count(s)
	finalStatus := counts.FinalStatus()
	if postmerge.Failed(results) > 0 && finalStatus == state.FinalSuccess {
		finalStatus = state.FinalPartialSuccess
	}

	now := time.Now().UTC()
	s.Phase = state.PhaseCompleted
	s.FinalStatus = finalStatus
	s.CompletedAt = &now
	if err := o.persist(s, paths.StateFile); err != nil {
		return o.failure(err, paths.StateFile)
	}

	o.sink.Emit(events.CompleteEvent{
		Successful: counts.Success,
		Failed:     counts.Failed,
		Skipped:    counts.Skipped,
	})

	o.hooks.Fire(ctx, hooks.TriggerAfterComplete, s.RepoPath)

	switch finalStatus {
	case state.FinalSuccess:
		return RunResult{
			ExitCode:      errors.ExitSuccess,
			Message:       fmt.Sprintf("merge complete: %d PRs tagged and transitioned", counts.Success),
			StateFilePath: paths.StateFile,
		}
	case state.FinalPartialSuccess:
		return RunResult{
			ExitCode: errors.ExitPartialSuccess,
			Message: fmt.Sprintf("merge completed with issues: %d succeeded, %d failed, %d skipped, %d post-merge failures",
				counts.Success, counts.Failed, counts.Skipped, postmerge.Failed(results)),
			StateFilePath: paths.StateFile,
		}
	default:
		return RunResult{
			ExitCode:      errors.ExitGeneralError,
			Message:       "merge completed but no cherry-pick succeeded",
			StateFilePath: paths.StateFile,
		}
	}
}
