package platform

import "context"

// defaultPageSize is the $top used when paginating PR listings.
const defaultPageSize = 100

// ListAllPullRequests pages through GetPullRequests until a short page is
// returned, concatenating results.
func ListAllPullRequests(ctx context.Context, c Client, org, project, repo, targetRef string, status PRStatus) ([]PullRequest, error) {
	var all []PullRequest
	for skip := 0; ; skip += defaultPageSize {
		page, err := c.GetPullRequests(ctx, org, project, repo, targetRef, status, defaultPageSize, skip)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < defaultPageSize {
			return all, nil
		}
	}
}

// ResolveWorkItems bundles each PR with its linked work-item records,
// fetched via ListPRWorkItems + one batched GetWorkItems per PR. The
// fields fetched are the two the engine reads.
func ResolveWorkItems(ctx context.Context, c Client, org, project, repo string, prs []PullRequest) ([]PullRequestWithWorkItems, error) {
	fields := []string{"System.Title", "System.State"}
	out := make([]PullRequestWithWorkItems, 0, len(prs))
	for _, pr := range prs {
		refs, err := c.ListPRWorkItems(ctx, org, project, repo, pr.ID)
		if err != nil {
			return nil, err
		}
		ids := make([]int, len(refs))
		for i, r := range refs {
			ids[i] = r.ID
		}
		var items []WorkItem
		if len(ids) > 0 {
			items, err = c.GetWorkItems(ctx, org, project, ids, fields)
			if err != nil {
				return nil, err
			}
		}
		out = append(out, PullRequestWithWorkItems{PullRequest: pr, WorkItems: items})
	}
	return out, nil
}
