package pipeline

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/estimate-cli/internal/model"
	"github.com/sells-group/estimate-cli/pkg/scopestack"
)

// --- ScopeStack Mock ---

type mockScopeStack struct {
	scopestack.Client
	mock.Mock
}

func (m *mockScopeStack) Me(ctx context.Context) (*model.Account, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}

func (m *mockScopeStack) ListRateTables(ctx context.Context) ([]model.RateTable, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.RateTable), args.Error(1)
}

func (m *mockScopeStack) ListPaymentTerms(ctx context.Context) ([]model.PaymentTerm, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.PaymentTerm), args.Error(1)
}

func (m *mockScopeStack) GetQuestionnaire(ctx context.Context, id string) (*model.Questionnaire, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Questionnaire), args.Error(1)
}

func (m *mockScopeStack) CreateClient(ctx context.Context, accountID, name string) (*model.Client, error) {
	args := m.Called(ctx, accountID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Client), args.Error(1)
}

func (m *mockScopeStack) CreateProject(ctx context.Context, req scopestack.CreateProjectRequest) (*model.Project, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Project), args.Error(1)
}

func (m *mockScopeStack) GetProject(ctx context.Context, id string) (*model.Project, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Project), args.Error(1)
}

func (m *mockScopeStack) CreateProjectContact(ctx context.Context, projectID string, contact model.Contact) (*model.Contact, error) {
	args := m.Called(ctx, projectID, contact)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Contact), args.Error(1)
}

func (m *mockScopeStack) CreateSurvey(ctx context.Context, req scopestack.CreateSurveyRequest) (*model.Survey, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Survey), args.Error(1)
}

func (m *mockScopeStack) CalculateSurvey(ctx context.Context, id string) (*model.Survey, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Survey), args.Error(1)
}

func (m *mockScopeStack) GetSurvey(ctx context.Context, id string) (*model.Survey, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Survey), args.Error(1)
}

func (m *mockScopeStack) ApplySurvey(ctx context.Context, id string) ([]model.Recommendation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Recommendation), args.Error(1)
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

func (m *mockScopeStack) ListProjectServices(ctx context.Context, projectID string) ([]model.ProjectService, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ProjectService), args.Error(1)
}

// --- Completer Mock ---

type mockCompleter struct {
	mock.Mock
}

func (m *mockCompleter) Provider() string { return "mock" }

func (m *mockCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}
