package pricing

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/estimate-cli/internal/model"
	"github.com/sells-group/estimate-cli/pkg/scopestack"
)

type mockScopeStack struct {
	scopestack.Client
	mock.Mock
}

func (m *mockScopeStack) GetProject(ctx context.Context, id string) (*model.Project, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Project), args.Error(1)
}

func (m *mockScopeStack) ListProjectServices(ctx context.Context, projectID string) ([]model.ProjectService, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ProjectService), args.Error(1)
}
