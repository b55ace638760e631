package resolver

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/estimate-cli/internal/model"
	"github.com/sells-group/estimate-cli/pkg/scopestack"
)

// mockScopeStack implements the client methods the resolver calls. The
// embedded interface panics on anything else.
type mockScopeStack struct {
	scopestack.Client
	mock.Mock
}

func (m *mockScopeStack) SearchClients(ctx context.Context, term string) ([]model.Client, error) {
	args := m.Called(ctx, term)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Client), args.Error(1)
}

func (m *mockScopeStack) CreateClient(ctx context.Context, accountID, name string) (*model.Client, error) {
	args := m.Called(ctx, accountID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Client), args.Error(1)
}

func (m *mockScopeStack) SearchSalesExecutives(ctx context.Context, term string) ([]model.SalesExecutive, error) {
	args := m.Called(ctx, term)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.SalesExecutive), args.Error(1)
}
