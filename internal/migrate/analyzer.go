// Package migrate analyses which PRs merged into the dev branch are
// already present in a target branch, to plan and apply migration tagging
// without any cherry-picking. A PR counts as present when its last merge
// commit is an ancestor of the target branch's HEAD.
package migrate

import (
	"context"

	"github.com/mergerstool/mergers/internal/config"
	"github.com/mergerstool/mergers/internal/events"
	"github.com/mergerstool/mergers/internal/gitdriver"
	"github.com/mergerstool/mergers/internal/logging"
	"github.com/mergerstool/mergers/internal/platform"
	"github.com/mergerstool/mergers/internal/selection"
)

// Candidate is one PR the analysis classified.
type Candidate struct {
	PR       platform.PullRequest
	Present  bool // last merge commit is an ancestor of target branch
	TagName  string
	HasLabel bool // already carries the tag
}

// Plan is the full analysis result.
type Plan struct {
	TargetBranch string
	Candidates   []Candidate
}

// Present returns the candidates eligible for tagging: present in the
// target branch and not already labelled.
func (p *Plan) Present() []Candidate {
	var out []Candidate
	for _, c := range p.Candidates {
		if c.Present && !c.HasLabel {
			out = append(out, c)
		}
	}
	return out
}

// Analyzer computes and applies migration plans.
type Analyzer struct {
	settings *config.Settings
	client   platform.Client
	driver   gitdriver.Driver
	sink     events.Sink
	logger   *logging.Logger
}

// New builds an Analyzer. logger may be nil.
func New(settings *config.Settings, client platform.Client, driver gitdriver.Driver, sink events.Sink, logger *logging.Logger) *Analyzer {
	return &Analyzer{settings: settings, client: client, driver: driver, sink: sink, logger: logger}
}

// BuildPlan fetches completed PRs on dev_branch (applying the same
// optional since window as a merge run) and checks each PR's last merge
// commit for ancestry against the target branch inside repo.
func (a *Analyzer) BuildPlan(ctx context.Context, repo string, clock selection.Clock) (*Plan, error) {
	set := a.settings
	tag := set.TagPrefix + set.Version

	since, err := selection.ParseSince(set.Since, clock)
	if err != nil {
		return nil, err
	}

	raw, err := platform.ListAllPullRequests(ctx, a.client,
		set.Organization, set.Project, set.Repository, set.DevBranch, platform.PRStatusCompleted)
	if err != nil {
		return nil, err
	}

	plan := &Plan{TargetBranch: set.TargetBranch}
	for _, pr := range raw {
		if pr.LastMergeCommit == "" {
			continue
		}
		if !since.IsZero() && pr.ClosedDate != nil && pr.ClosedDate.Before(since.Time) {
			continue
		}

		present, err := a.driver.IsAncestor(ctx, repo, pr.LastMergeCommit, set.TargetBranch)
		if err != nil {
			return nil, err
		}

		hasLabel := false
		for _, l := range pr.Labels {
			if l == tag {
				hasLabel = true
				break
			}
		}
		plan.Candidates = append(plan.Candidates, Candidate{
			PR: pr, Present: present, TagName: tag, HasLabel: hasLabel,
		})
	}
	return plan, nil
}

// Apply tags every eligible candidate. Migration tagging only retags; it
// never touches work-item state. Progress flows through the same
// post-merge event shapes a merge run uses, so output consumers need no
// second schema.
func (a *Analyzer) Apply(ctx context.Context, plan *Plan) (succeeded, failed int) {
	eligible := plan.Present()
	a.sink.Emit(events.PostMergeStartEvent{TaskCount: len(eligible)})

	set := a.settings
	for _, c := range eligible {
		err := a.client.CreateLabel(ctx, set.Organization, set.Project, set.Repository, c.PR.ID, c.TagName)
		ev := events.PostMergeProgressEvent{
			TaskType: "tag",
			TargetID: c.PR.ID,
			Status:   events.PostMergeTaskSuccess,
		}
		if err != nil {
			ev.Status = events.PostMergeTaskFailed
			ev.Error = err.Error()
			failed++
			if a.logger != nil {
				a.logger.Error("migration tag failed", "pr_id", c.PR.ID, "error", err)
			}
		} else {
			succeeded++
		}
		a.sink.Emit(ev)
	}

	a.sink.Emit(events.CompleteEvent{Successful: succeeded, Failed: failed})
	return succeeded, failed
}
