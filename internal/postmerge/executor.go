// Package postmerge executes the tasks that follow a finished
// cherry-pick sequence: tagging every successfully picked PR and
// transitioning its linked work items. Tasks are generated once from the
// state file and run under a bounded-concurrency fan-out; a failed task is
// reported and counted, never fatal.
package postmerge

import (
	"context"
	"sync"

	"github.com/mergerstool/mergers/internal/events"
	"github.com/mergerstool/mergers/internal/logging"
	"github.com/mergerstool/mergers/internal/platform"
	"github.com/mergerstool/mergers/internal/state"
)

// TaskType distinguishes the two kinds of post-merge work.
type TaskType string

const (
	TaskTag        TaskType = "tag"
	TaskTransition TaskType = "transition_work_item"
)

// Task is one unit of post-merge work against a single target.
type Task struct {
	Type     TaskType
	TargetID int // PR id for tag tasks, work-item id for transitions
	// TagName is set on tag tasks; PRID on transition tasks records which
	// PR linked the work item (for logging only).
	TagName string
	PRID    int
}

// Result pairs a task with its outcome.
type Result struct {
	Task   Task
	Status events.PostMergeTaskStatus
	Err    error
}

// Executor runs post-merge tasks against the platform.
type Executor struct {
	client      platform.Client
	sink        events.Sink
	logger      *logging.Logger
	maxInFlight int
}

// New builds an Executor bounded at maxInFlight concurrent platform calls.
func New(client platform.Client, sink events.Sink, maxInFlight int, logger *logging.Logger) *Executor {
	if maxInFlight < 1 {
		maxInFlight = 1
	}
	return &Executor{client: client, sink: sink, logger: logger, maxInFlight: maxInFlight}
}

// BuildTasks generates the task list from s: one tag task per successfully
// cherry-picked PR whose tag is not already recorded in LabelsApplied, and
// one transition task per distinct linked work item. The same target never
// yields two tasks of the same type.
func BuildTasks(s *state.MergeStateFile) []Task {
	tag := s.TagPrefix + s.Version
	var tasks []Task
	seenWorkItems := make(map[int]bool)

	for _, item := range s.CherryPickItems {
		if item.Status != state.StatusSuccess {
			continue
		}

		alreadyTagged := false
		for _, l := range item.LabelsApplied {
			if l == tag {
				alreadyTagged = true
				break
			}
		}
		if !alreadyTagged {
			tasks = append(tasks, Task{Type: TaskTag, TargetID: item.PRID, TagName: tag, PRID: item.PRID})
		}

		for _, wi := range item.WorkItemIDs {
			if seenWorkItems[wi] {
				continue
			}
			seenWorkItems[wi] = true
			tasks = append(tasks, Task{Type: TaskTransition, TargetID: wi, PRID: item.PRID})
		}
	}
	return tasks
}

// Execute runs tasks with the executor's concurrency bound, emitting
// PostMergeStart once and PostMergeProgress per task as it completes.
// The returned results carry every outcome; the slice order is unspecified
// (no inter-task ordering is guaranteed).
func (e *Executor) Execute(ctx context.Context, s *state.MergeStateFile, tasks []Task) []Result {
	e.sink.Emit(events.PostMergeStartEvent{TaskCount: len(tasks)})
	if len(tasks) == 0 {
		return nil
	}

	results := make([]Result, len(tasks))
	sem := make(chan struct{}, e.maxInFlight)
	var wg sync.WaitGroup

	for i, task := range tasks {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, task Task) {
			defer wg.Done()
			defer func() { <-sem }()

			err := e.runTask(ctx, s, task)
			res := Result{Task: task, Status: events.PostMergeTaskSuccess}
			if err != nil {
				res.Status = events.PostMergeTaskFailed
				res.Err = err
				if e.logger != nil {
					e.logger.Error("post-merge task failed",
						"type", string(task.Type), "target", task.TargetID, "error", err)
				}
			}
			results[i] = res

			ev := events.PostMergeProgressEvent{
				TaskType: string(task.Type),
				TargetID: task.TargetID,
				Status:   res.Status,
			}
			if err != nil {
				ev.Error = err.Error()
			}
			e.sink.Emit(ev)
		}(i, task)
	}
	wg.Wait()
	return results
}

func (e *Executor) runTask(ctx context.Context, s *state.MergeStateFile, task Task) error {
	switch task.Type {
	case TaskTag:
		return e.client.CreateLabel(ctx, s.Organization, s.Project, s.Repository, task.TargetID, task.TagName)
	case TaskTransition:
		_, err := e.client.UpdateWorkItem(ctx, s.Organization, s.Project, task.TargetID,
			platform.StateReplacePatch(s.WorkItemState))
		return err
	}
	return nil
}

// ApplyTagResults records successful tag tasks in the matching items'
// LabelsApplied, so a crash between Completing and Completed does not
// double-tag on the next `complete`.
func ApplyTagResults(s *state.MergeStateFile, results []Result) {
	for _, r := range results {
		if r.Task.Type != TaskTag || r.Status != events.PostMergeTaskSuccess {
			continue
		}
		for i := range s.CherryPickItems {
			item := &s.CherryPickItems[i]
			if item.PRID == r.Task.TargetID {
				item.LabelsApplied = append(item.LabelsApplied, r.Task.TagName)
			}
		}
	}
}

// Failed counts results that did not succeed.
func Failed(results []Result) int {
	n := 0
	for _, r := range results {
		if r.Status == events.PostMergeTaskFailed {
			n++
		}
	}
	return n
}
