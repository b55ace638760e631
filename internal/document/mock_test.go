package document

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

func (m *mockScopeStack) ListDocumentTemplates(ctx context.Context) ([]model.DocumentTemplate, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.DocumentTemplate), args.Error(1)
}

func (m *mockScopeStack) CreateProjectDocument(ctx context.Context, req scopestack.CreateDocumentRequest) (*model.ProjectDocument, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ProjectDocument), args.Error(1)
}

func (m *mockScopeStack) ListProjectDocuments(ctx context.Context, projectID string) ([]model.ProjectDocument, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ProjectDocument), args.Error(1)
}
