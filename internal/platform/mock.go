package platform

import (
	"context"
	"fmt"
	"sync"
)

// MockClient is a scripted test double for Client. Unset funcs fall back
// to the scripted data fields; every call is recorded in Calls.
type MockClient struct {
	mu    sync.Mutex
	Calls []string

	PullRequests  []PullRequest
	WorkItemLinks map[int][]ResourceRef // pr id -> refs
	WorkItems     map[int]WorkItem      // work item id -> record

	GetPullRequestsFunc func(ctx context.Context, org, project, repo, targetRef string, status PRStatus, top, skip int) ([]PullRequest, error)
	GetPullRequestFunc  func(ctx context.Context, org, project, repo string, id int) (PullRequest, error)
	CreateLabelFunc     func(ctx context.Context, org, project, repo string, prID int, name string) error
	ListPRWorkItemsFunc func(ctx context.Context, org, project, repo string, prID int) ([]ResourceRef, error)
	GetWorkItemsFunc    func(ctx context.Context, org, project string, ids []int, fields []string) ([]WorkItem, error)
	UpdateWorkItemFunc  func(ctx context.Context, org, project string, id int, patch []PatchOperation) (WorkItem, error)

	// LabelsCreated and StatesSet record mutations for assertions.
	LabelsCreated map[int][]string
	StatesSet     map[int]string
}

var _ Client = (*MockClient)(nil)

func (m *MockClient) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, call)
}

func (m *MockClient) GetPullRequests(ctx context.Context, org, project, repo, targetRef string, status PRStatus, top, skip int) ([]PullRequest, error) {
	m.record(fmt.Sprintf("GetPullRequests:%s:%d:%d", targetRef, top, skip))
	if m.GetPullRequestsFunc != nil {
		return m.GetPullRequestsFunc(ctx, org, project, repo, targetRef, status, top, skip)
	}
	if skip >= len(m.PullRequests) {
		return nil, nil
	}
	end := skip + top
	if end > len(m.PullRequests) {
		end = len(m.PullRequests)
	}
	return m.PullRequests[skip:end], nil
}

func (m *MockClient) GetPullRequest(ctx context.Context, org, project, repo string, id int) (PullRequest, error) {
	m.record(fmt.Sprintf("GetPullRequest:%d", id))
	if m.GetPullRequestFunc != nil {
		return m.GetPullRequestFunc(ctx, org, project, repo, id)
	}
	for _, pr := range m.PullRequests {
		if pr.ID == id {
			return pr, nil
		}
	}
	return PullRequest{}, fmt.Errorf("mock: no pull request %d", id)
}

func (m *MockClient) CreateLabel(ctx context.Context, org, project, repo string, prID int, name string) error {
	m.record(fmt.Sprintf("CreateLabel:%d:%s", prID, name))
	if m.CreateLabelFunc != nil {
		return m.CreateLabelFunc(ctx, org, project, repo, prID, name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LabelsCreated == nil {
		m.LabelsCreated = make(map[int][]string)
	}
	m.LabelsCreated[prID] = append(m.LabelsCreated[prID], name)
	return nil
}

func (m *MockClient) ListPRWorkItems(ctx context.Context, org, project, repo string, prID int) ([]ResourceRef, error) {
	m.record(fmt.Sprintf("ListPRWorkItems:%d", prID))
	if m.ListPRWorkItemsFunc != nil {
		return m.ListPRWorkItemsFunc(ctx, org, project, repo, prID)
	}
	return m.WorkItemLinks[prID], nil
}

func (m *MockClient) GetWorkItems(ctx context.Context, org, project string, ids []int, fields []string) ([]WorkItem, error) {
	m.record(fmt.Sprintf("GetWorkItems:%v", ids))
	if m.GetWorkItemsFunc != nil {
		return m.GetWorkItemsFunc(ctx, org, project, ids, fields)
	}
	var out []WorkItem
	for _, id := range ids {
		if w, ok := m.WorkItems[id]; ok {
			out = append(out, w)
		}
	}
	return out, nil
}

func (m *MockClient) UpdateWorkItem(ctx context.Context, org, project string, id int, patch []PatchOperation) (WorkItem, error) {
	m.record(fmt.Sprintf("UpdateWorkItem:%d", id))
	if m.UpdateWorkItemFunc != nil {
		return m.UpdateWorkItemFunc(ctx, org, project, id, patch)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.WorkItems[id]
	if !ok {
		return WorkItem{}, fmt.Errorf("mock: no work item %d", id)
	}
	for _, op := range patch {
		if op.Op == "replace" && op.Path == "/fields/System.State" {
			if s, ok := op.Value.(string); ok {
				w.State = s
				if m.StatesSet == nil {
					m.StatesSet = make(map[int]string)
				}
				m.StatesSet[id] = s
			}
		}
	}
	if m.WorkItems == nil {
		m.WorkItems = make(map[int]WorkItem)
	}
	m.WorkItems[id] = w
	return w, nil
}
