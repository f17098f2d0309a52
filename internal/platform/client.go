package platform

import "context"

// Client is the capability set the engine requires of the review
// platform. Every operation is context-aware and fallible. A
// production implementation wraps the platform's REST API; a mock records
// calls and returns scripted responses.
type Client interface {
	// GetPullRequests lists PRs targeting targetRef, filtered by status,
	// paginated with top/skip.
	GetPullRequests(ctx context.Context, org, project, repo, targetRef string, status PRStatus, top, skip int) ([]PullRequest, error)

	// GetPullRequest fetches a single PR by identifier.
	GetPullRequest(ctx context.Context, org, project, repo string, id int) (PullRequest, error)

	// CreateLabel attaches a label (tag) to a PR. Attaching a label that
	// already exists on the PR is not an error.
	CreateLabel(ctx context.Context, org, project, repo string, prID int, name string) error

	// ListPRWorkItems returns references to the work items linked to a PR.
	ListPRWorkItems(ctx context.Context, org, project, repo string, prID int) ([]ResourceRef, error)

	// GetWorkItems resolves work-item references to full records,
	// restricted to the named fields.
	GetWorkItems(ctx context.Context, org, project string, ids []int, fields []string) ([]WorkItem, error)

	// UpdateWorkItem applies a JSON-Patch document to a work item and
	// returns the updated record.
	UpdateWorkItem(ctx context.Context, org, project string, id int, patch []PatchOperation) (WorkItem, error)
}
