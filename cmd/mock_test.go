package main

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/estimate-cli/internal/model"
	"github.com/sells-group/estimate-cli/internal/pipeline"
)

type mockEstimator struct{ mock.Mock }

func (m *mockEstimator) Run(ctx context.Context, acct pipeline.Account, req pipeline.Request, notify pipeline.StatusFunc) (*model.Estimate, error) {
	args := m.Called(ctx, acct, req, notify)
	est, _ := args.Get(0).(*model.Estimate)
	return est, args.Error(1)
}

func (m *mockEstimator) Regenerate(ctx context.Context, req pipeline.RegenerateRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

type mockSearcher struct{ mock.Mock }

func (m *mockSearcher) SearchClients(ctx context.Context, term string) ([]model.Client, error) {
	args := m.Called(ctx, term)
	clients, _ := args.Get(0).([]model.Client)
	return clients, args.Error(1)
}

func (m *mockSearcher) SearchExecutives(ctx context.Context, term string) ([]model.SalesExecutive, error) {
	args := m.Called(ctx, term)
	execs, _ := args.Get(0).([]model.SalesExecutive)
	return execs, args.Error(1)
}

type mockQuestionnaires struct{ mock.Mock }

func (m *mockQuestionnaires) ListQuestionnaires(ctx context.Context, tag string) ([]model.Questionnaire, error) {
	args := m.Called(ctx, tag)
	list, _ := args.Get(0).([]model.Questionnaire)
	return list, args.Error(1)
}

func (m *mockQuestionnaires) GetQuestionnaire(ctx context.Context, id string) (*model.Questionnaire, error) {
	args := m.Called(ctx, id)
	q, _ := args.Get(0).(*model.Questionnaire)
	return q, args.Error(1)
}

type mockRuns struct{ mock.Mock }

func (m *mockRuns) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	args := m.Called(ctx, runID)
	run, _ := args.Get(0).(*model.Run)
	return run, args.Error(1)
}

func (m *mockRuns) ListPhases(ctx context.Context, runID string) ([]model.RunPhase, error) {
	args := m.Called(ctx, runID)
	phases, _ := args.Get(0).([]model.RunPhase)
	return phases, args.Error(1)
}

type mockTemplates struct{ mock.Mock }

func (m *mockTemplates) Current(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *mockTemplates) Save(ctx context.Context, tmpl string) error {
	return m.Called(ctx, tmpl).Error(0)
}

func (m *mockTemplates) Reset(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}
