package gitdriver

import (
	"context"
	"fmt"
)

// MockDriver is a scripted test double for Driver.
type MockDriver struct {
	CloneFunc           func(ctx context.Context, url, targetBranch string, runHooks bool) (string, func(), error)
	CreateWorktreeFunc  func(ctx context.Context, base, targetBranch, version string, runHooks bool) (string, error)
	CreateBranchFunc    func(ctx context.Context, repo, name string) error
	CherryPickFunc      func(ctx context.Context, repo, commitID string) (CherryPickResult, error)
	ConflictsResolvedFn func(ctx context.Context, repo string) (bool, error)
	RevParseFunc        func(ctx context.Context, repo, ref string) (string, error)
	IsAncestorFunc      func(ctx context.Context, repo, commit, ref string) (bool, error)
	CleanupFunc         func(ctx context.Context, base, worktree, version, targetBranch string) error
	ForceDeleteFunc     func(ctx context.Context, repo, name string) error
	ForceRemoveFunc     func(ctx context.Context, repo, version string) error

	Calls []string
}

var _ Driver = (*MockDriver)(nil)

func (m *MockDriver) ShallowClone(ctx context.Context, url, targetBranch string, runHooks bool) (string, func(), error) {
	m.Calls = append(m.Calls, "ShallowClone")
	if m.CloneFunc != nil {
		return m.CloneFunc(ctx, url, targetBranch, runHooks)
	}
	return "/tmp/mock-clone", func() {}, nil
}

func (m *MockDriver) CreateWorktree(ctx context.Context, base, targetBranch, version string, runHooks bool) (string, error) {
	m.Calls = append(m.Calls, "CreateWorktree")
	if m.CreateWorktreeFunc != nil {
		return m.CreateWorktreeFunc(ctx, base, targetBranch, version, runHooks)
	}
	return fmt.Sprintf("%s/../next-%s", base, version), nil
}

func (m *MockDriver) CreateBranch(ctx context.Context, repo, name string) error {
	m.Calls = append(m.Calls, "CreateBranch")
	if m.CreateBranchFunc != nil {
		return m.CreateBranchFunc(ctx, repo, name)
	}
	return nil
}

func (m *MockDriver) CherryPickCommit(ctx context.Context, repo, commitID string) (CherryPickResult, error) {
	m.Calls = append(m.Calls, "CherryPickCommit:"+commitID)
	if m.CherryPickFunc != nil {
		return m.CherryPickFunc(ctx, repo, commitID)
	}
	return CherryPickResult{Outcome: OutcomeSuccess}, nil
}

func (m *MockDriver) CheckConflictsResolved(ctx context.Context, repo string) (bool, error) {
	m.Calls = append(m.Calls, "CheckConflictsResolved")
	if m.ConflictsResolvedFn != nil {
		return m.ConflictsResolvedFn(ctx, repo)
	}
	return true, nil
}

func (m *MockDriver) RevParse(ctx context.Context, repo, ref string) (string, error) {
	m.Calls = append(m.Calls, "RevParse:"+ref)
	if m.RevParseFunc != nil {
		return m.RevParseFunc(ctx, repo, ref)
	}
	return "0000000000000000000000000000000000000000", nil
}

func (m *MockDriver) IsAncestor(ctx context.Context, repo, commit, ref string) (bool, error) {
	m.Calls = append(m.Calls, "IsAncestor:"+commit)
	if m.IsAncestorFunc != nil {
		return m.IsAncestorFunc(ctx, repo, commit, ref)
	}
	return false, nil
}

func (m *MockDriver) CleanupCherryPick(ctx context.Context, base, worktree, version, targetBranch string) error {
	m.Calls = append(m.Calls, "CleanupCherryPick")
	if m.CleanupFunc != nil {
		return m.CleanupFunc(ctx, base, worktree, version, targetBranch)
	}
	return nil
}

func (m *MockDriver) ForceDeleteBranch(ctx context.Context, repo, name string) error {
	m.Calls = append(m.Calls, "ForceDeleteBranch")
	if m.ForceDeleteFunc != nil {
		return m.ForceDeleteFunc(ctx, repo, name)
	}
	return nil
}

func (m *MockDriver) ForceRemoveWorktree(ctx context.Context, repo, version string) error {
	m.Calls = append(m.Calls, "ForceRemoveWorktree")
	if m.ForceRemoveFunc != nil {
		return m.ForceRemoveFunc(ctx, repo, version)
	}
	return nil
}
