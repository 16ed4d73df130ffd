package usecase_test

import (
	"context"
	"sync"

	"github.com/m-mizutani/buildgate/pkg/domain/model"
)

// MockChangesetSource is a mock implementation of ChangesetSource
type MockChangesetSource struct {
	changesetFunc func(ctx context.Context, update *model.BranchUpdate) ([]*model.Commit, error)
	mu            sync.Mutex
	calls         []*model.BranchUpdate
}

func (m *MockChangesetSource) Changeset(ctx context.Context, update *model.BranchUpdate) ([]*model.Commit, error) {
	m.mu.Lock()
	m.calls = append(m.calls, update)
	m.mu.Unlock()
	return m.changesetFunc(ctx, update)
}

// MockRecorder records metrics calls
type MockRecorder struct {
	mu        sync.Mutex
	decisions []model.DecisionReason
	failOpen  []string
	sizes     []int
}

func (m *MockRecorder) IncDecision(reason model.DecisionReason, _ bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decisions = append(m.decisions, reason)
}

func (m *MockRecorder) ObserveChangesetSize(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sizes = append(m.sizes, n)
}

func (m *MockRecorder) IncFailOpen(cause string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failOpen = append(m.failOpen, cause)
}

// MockBuildTrigger records triggered builds
type MockBuildTrigger struct {
	err   error
	calls []*model.Decision
}

func (m *MockBuildTrigger) TriggerBuild(_ context.Context, _ *model.BranchUpdate, decision *model.Decision) error {
	m.calls = append(m.calls, decision)
	return m.err
}

// MockNotifier records skipped builds
type MockNotifier struct {
	err     error
	updates []*model.BranchUpdate
}

func (m *MockNotifier) NotifySkipped(_ context.Context, update *model.BranchUpdate, _ *model.Decision) error {
	m.updates = append(m.updates, update)
	return m.err
}

func testUpdate() *model.BranchUpdate {
	return &model.BranchUpdate{
		Owner:  "acme",
		Repo:   "api",
		Branch: "main",
		Before: "1111111111111111111111111111111111111111",
		After:  "2222222222222222222222222222222222222222",
	}
}
