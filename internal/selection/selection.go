// Package selection implements PR selection and filtering for a merge
// run: work-item-state selection, time-window filtering, and the
// version-tag validation applied before a run is allowed to start.
package selection

import (
	"github.com/mergerstool/mergers/internal/platform"
)

// SelectByWorkItemStates marks each PR selected iff it has at least one
// linked work item whose state exactly matches one of states. An empty
// states list selects everything.
func SelectByWorkItemStates(prs []platform.PullRequestWithWorkItems, states []string) {
	if len(states) == 0 {
		for i := range prs {
			prs[i].Selected = true
		}
		return
	}
	match := make(map[string]bool, len(states))
	for _, s := range states {
		match[s] = true
	}
	for i := range prs {
		prs[i].Selected = false
		for _, w := range prs[i].WorkItems {
			if match[w.State] {
				prs[i].Selected = true
				break
			}
		}
	}
}

// FilterSince de-selects PRs whose closed date precedes the cutoff. PRs
// with no closed date are left untouched (their recency is unknown, and
// excluding them silently would hide work from the operator).
func FilterSince(prs []platform.PullRequestWithWorkItems, cutoff Cutoff) {
	if cutoff.IsZero() {
		return
	}
	for i := range prs {
		closed := prs[i].PullRequest.ClosedDate
		if closed != nil && closed.Before(cutoff.Time) {
			prs[i].Selected = false
		}
	}
}

// DeselectWithoutMergeCommit de-selects PRs lacking a last-merge-commit;
// there is nothing to cherry-pick for them. It returns the PR IDs it
// de-selected so callers can warn the operator.
func DeselectWithoutMergeCommit(prs []platform.PullRequestWithWorkItems) []int {
	var dropped []int
	for i := range prs {
		if prs[i].Selected && prs[i].PullRequest.LastMergeCommit == "" {
			prs[i].Selected = false
			dropped = append(dropped, prs[i].PullRequest.ID)
		}
	}
	return dropped
}

// Selected returns the subset of prs with Selected set, preserving order.
func Selected(prs []platform.PullRequestWithWorkItems) []platform.PullRequestWithWorkItems {
	var out []platform.PullRequestWithWorkItems
	for _, pr := range prs {
		if pr.Selected {
			out = append(out, pr)
		}
	}
	return out
}
