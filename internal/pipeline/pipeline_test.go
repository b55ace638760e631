package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/estimate-cli/internal/config"
	"github.com/sells-group/estimate-cli/internal/model"
	"github.com/sells-group/estimate-cli/internal/resolver"
	"github.com/sells-group/estimate-cli/internal/store"
	"github.com/sells-group/estimate-cli/internal/summary"
	"github.com/sells-group/estimate-cli/pkg/scopestack"
)

func testConfig() *config.Config {
	return &config.Config{
		Workflow: config.WorkflowConfig{
			SurveyPollInterval:   time.Millisecond,
			SurveyMaxAttempts:    5,
			SurveyTimeout:        time.Second,
			DocumentPollInterval: time.Millisecond,
			DocumentMaxAttempts:  10,
			DocumentTimeout:      5 * time.Second,
		},
	}
}

func testStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "pipeline.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { _ = st.Close() })
	return st
}

type harness struct {
	ss        *mockScopeStack
	completer *mockCompleter
	store     *store.SQLiteStore
	pipeline  *Pipeline
	statuses  []string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		ss:        &mockScopeStack{},
		completer: &mockCompleter{},
		store:     testStore(t),
	}
	gen := summary.NewGenerator(h.completer, summary.GeneratorConfig{MaxAttempts: 1})
	h.pipeline = New(testConfig(), h.store, h.ss, resolver.New(h.ss), gen,
		summary.NewTemplates(store.NewSettings(h.store)))
	return h
}

func (h *harness) notify(s string) { h.statuses = append(h.statuses, s) }

func testAccount() Account {
	return Account{AccountID: "acct-1", AccountSlug: "acme-msp", PaymentTermID: "pt-1", RateTableID: "rt-1"}
}

func testQuestionnaire() *model.Questionnaire {
	return &model.Questionnaire{
		ID: "qn-1",
		Questions: []model.Question{
			{ID: "101", Slug: "industry", Question: "Industry", Required: true},
		},
	}
}

func testRequest() Request {
	return Request{
		ProjectName:      "Rollout",
		ClientName:       "Acme",
		Contact:          model.Contact{Name: "Ann Lee", Email: "ann@acme.com"},
		SalesExecutiveID: "se-1",
		QuestionnaireID:  "qn-1",
		Answers:          model.Answers{"industry": "Retail"},
	}
}

var services = []model.ProjectService{
	{ID: "ps-2", Name: "Cutover", Quantity: 1, TotalHours: 8, Position: 2},
	{ID: "ps-1", Name: "Assessment", Quantity: 1, TotalHours: 16, Position: 1},
}

// expectProvisioning wires the mock through the document stage.
func (h *harness) expectProvisioning() []*mock.Call {
	responses := []model.SurveyResponse{{QuestionID: "101", Question: "Industry", Answer: "Retail"}}
	return []*mock.Call{
		h.ss.On("GetQuestionnaire", mock.Anything, "qn-1").Return(testQuestionnaire(), nil).Once(),
		h.ss.On("CreateClient", mock.Anything, "acct-1", "Acme").Return(&model.Client{ID: "c-1", Name: "Acme"}, nil).Once(),
		h.ss.On("CreateProject", mock.Anything, scopestack.CreateProjectRequest{
			Name:             "Rollout",
			AccountID:        "acct-1",
			ClientID:         "c-1",
			PaymentTermID:    "pt-1",
			RateTableID:      "rt-1",
			SalesExecutiveID: "se-1",
		}).Return(&model.Project{ID: "p-1", Name: "Rollout"}, nil).Once(),
		h.ss.On("CreateProjectContact", mock.Anything, "p-1", model.Contact{Name: "Ann Lee", Email: "ann@acme.com"}).
			Return(&model.Contact{ID: "pc-1", Name: "Ann Lee"}, nil).Once(),
		h.ss.On("CreateSurvey", mock.Anything, scopestack.CreateSurveyRequest{
			Name:            "Rollout",
			AccountID:       "acct-1",
			ProjectID:       "p-1",
			QuestionnaireID: "qn-1",
			Responses:       responses,
		}).Return(&model.Survey{ID: "s-1", Status: model.SurveyStatusCreated}, nil).Once(),
		h.ss.On("CalculateSurvey", mock.Anything, "s-1").Return(&model.Survey{ID: "s-1", Status: model.SurveyStatusCalculating}, nil).Once(),
		h.ss.On("GetSurvey", mock.Anything, "s-1").Return(&model.Survey{ID: "s-1", Status: model.SurveyStatusCalculating}, nil).Once(),
		h.ss.On("GetSurvey", mock.Anything, "s-1").Return(&model.Survey{ID: "s-1", Status: model.SurveyStatusCompleted}, nil).Once(),
		h.ss.On("ApplySurvey", mock.Anything, "s-1").Return([]model.Recommendation{{ID: "r-1"}}, nil).Once(),
		h.ss.On("ListDocumentTemplates", mock.Anything).Return([]model.DocumentTemplate{{ID: "t-1", Active: true}}, nil).Once(),
		h.ss.On("CreateProjectDocument", mock.Anything, mock.Anything).Return(&model.ProjectDocument{ID: "d-1"}, nil).Once(),
		h.ss.On("ListProjectDocuments", mock.Anything, "p-1").Return([]model.ProjectDocument{{ID: "d-1", Status: model.DocumentStatusPending}}, nil).Once(),
	}
}

func (h *harness) expectDocumentReady() *mock.Call {
	return h.ss.On("ListProjectDocuments", mock.Anything, "p-1").Return([]model.ProjectDocument{
		{ID: "d-1", Status: model.DocumentStatusFinished, URL: "https://docs.example.com/sow.pdf"},
	}, nil).Once()
}

func revenue(v float64) *float64 { return &v }

func TestPipeline_Run_FullFlow(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	calls := h.expectProvisioning()
	calls = append(calls,
		h.expectDocumentReady(),
		h.ss.On("GetProject", mock.Anything, "p-1").Return(&model.Project{
			ID: "p-1", Pricing: &model.Pricing{Revenue: revenue(24000), Cost: revenue(15000), Margin: revenue(37.5)},
		}, nil).Once(),
		h.ss.On("ListProjectServices", mock.Anything, "p-1").Return(services, nil).Once(),
	)
	mock.InOrder(calls...)
	h.completer.On("Complete", mock.Anything, mock.MatchedBy(func(prompt string) bool {
		first, second := strings.Index(prompt, "Service: Assessment"), strings.Index(prompt, "Service: Cutover")
		return strings.Contains(prompt, "Client Name: Acme") &&
			strings.Contains(prompt, "QUESTION: Industry\nANSWER: Retail") &&
			first >= 0 && first < second
	})).Return("Acme is modernizing.", nil).Once()

	est, err := h.pipeline.Run(ctx, testAccount(), testRequest(), h.notify)
	require.NoError(t, err)

	assert.Equal(t, "c-1", est.ClientID)
	assert.Equal(t, "p-1", est.ProjectID)
	assert.Equal(t, "pc-1", est.ContactID)
	assert.Equal(t, "s-1", est.SurveyID)
	assert.Equal(t, "d-1", est.DocumentID)
	assert.Equal(t, "https://docs.example.com/sow.pdf", est.DocumentURL)
	assert.Equal(t, 37.5, *est.Pricing.Margin)
	assert.Len(t, est.Services, 2)
	assert.Equal(t, "Acme is modernizing.", est.Summary)
	assert.Equal(t, model.SummaryGenerated, est.SummaryState)
	assert.Equal(t, StatusComplete, est.Status)

	assert.Equal(t, []string{
		StatusResolvingClient,
		StatusProjectCreated,
		StatusSurvey,
		StatusDocument,
		StatusDocumentReady,
		StatusComplete,
	}, h.statuses)

	var names []string
	for _, ph := range est.Phases {
		names = append(names, ph.Name)
		assert.Equal(t, model.PhaseStatusComplete, ph.Status, ph.Name)
	}
	assert.Equal(t, []string{"validate", "client", "project", "survey", "document", "pricing", "services", "summary"}, names)

	run, err := h.store.GetRun(ctx, est.RunID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, run.Status)
	require.NotNil(t, run.Result)
	assert.Equal(t, "p-1", run.Result.ProjectID)

	h.ss.AssertExpectations(t)
	h.completer.AssertNumberOfCalls(t, "Complete", 1)
}

func TestPipeline_Run_ValidationBeforeRemoteCalls(t *testing.T) {
	h := newHarness(t)

	req := testRequest()
	req.ProjectName = ""
	req.SalesExecutiveID = ""
	acct := testAccount()
	acct.RateTableID = ""

	est, err := h.pipeline.Run(context.Background(), acct, req, h.notify)
	assert.Nil(t, est)
	var ve *model.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.ElementsMatch(t, []string{"rate_table_id", "project_name", "sales_executive_id"}, ve.Fields)

	assert.Empty(t, h.ss.Calls)
	runs, err := h.store.ListRuns(context.Background(), store.RunFilter{})
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestPipeline_Run_DataIntegrityStopsBeforeClient(t *testing.T) {
	h := newHarness(t)
	deleted := time.Now()
	q := testQuestionnaire()
	q.Questions = append(q.Questions, model.Question{ID: "102", Slug: "legacy", Question: "Legacy", DeletedAt: &deleted})

	req := testRequest()
	req.Questionnaire = q
	req.Answers["legacy"] = "yes"

	est, err := h.pipeline.Run(context.Background(), testAccount(), req, h.notify)
	var die *model.DataIntegrityError
	require.ErrorAs(t, err, &die)
	var se *model.StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, model.StageValidate, se.Stage)

	assert.Nil(t, est)
	h.ss.AssertNotCalled(t, "CreateClient", mock.Anything, mock.Anything, mock.Anything)
	h.ss.AssertNotCalled(t, "GetQuestionnaire", mock.Anything, mock.Anything)

	runs, err := h.store.ListRuns(context.Background(), store.RunFilter{})
	require.NoError(t, err)
	assert.Empty(t, runs, "rejected answers leave no run")
}

func TestPipeline_Run_MissingRequiredAnswerLeavesNoRun(t *testing.T) {
	h := newHarness(t)
	h.ss.On("GetQuestionnaire", mock.Anything, "qn-1").Return(testQuestionnaire(), nil).Once()

	req := testRequest()
	req.Answers = model.Answers{}

	est, err := h.pipeline.Run(context.Background(), testAccount(), req, h.notify)
	assert.Nil(t, est)
	var ve *model.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Empty(t, h.statuses)

	runs, err := h.store.ListRuns(context.Background(), store.RunFilter{})
	require.NoError(t, err)
	assert.Empty(t, runs)
	h.ss.AssertExpectations(t)
}

func TestPipeline_Run_DocumentTimeout(t *testing.T) {
	h := newHarness(t)
	h.expectProvisioning()
	h.ss.On("ListProjectDocuments", mock.Anything, "p-1").Return([]model.ProjectDocument{{ID: "d-1", Status: model.DocumentStatusPending}}, nil)

	est, err := h.pipeline.Run(context.Background(), testAccount(), testRequest(), h.notify)
	var te *model.TimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, model.StageDocument, te.Stage)
	assert.Equal(t, 10, te.Attempts)
	h.ss.AssertNumberOfCalls(t, "ListProjectDocuments", 10)

	require.NotNil(t, est)
	assert.Equal(t, "p-1", est.ProjectID, "created resources stay recorded")
	assert.Equal(t, StatusFailed, est.Status)
	assert.NotEmpty(t, est.Error)

	h.ss.AssertNotCalled(t, "GetProject", mock.Anything, mock.Anything)
	h.ss.AssertNotCalled(t, "ListProjectServices", mock.Anything, mock.Anything)
	h.completer.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)

	run, err := h.store.GetRun(context.Background(), est.RunID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, run.Status)
}

func TestPipeline_Run_EmptyServicesSkipsSummary(t *testing.T) {
	h := newHarness(t)
	h.expectProvisioning()
	h.expectDocumentReady()
	h.ss.On("GetProject", mock.Anything, "p-1").Return(&model.Project{ID: "p-1"}, nil).Once()
	h.ss.On("ListProjectServices", mock.Anything, "p-1").Return([]model.ProjectService{}, nil).Once()

	est, err := h.pipeline.Run(context.Background(), testAccount(), testRequest(), h.notify)
	require.NoError(t, err)
	assert.Equal(t, summary.NoServicesPlaceholder, est.Summary)
	assert.Equal(t, model.PhaseStatusSkipped, est.Phases[len(est.Phases)-1].Status)
	h.completer.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestPipeline_Run_SummaryFailureIsDegraded(t *testing.T) {
	h := newHarness(t)
	h.expectProvisioning()
	h.expectDocumentReady()
	h.ss.On("GetProject", mock.Anything, "p-1").Return(&model.Project{ID: "p-1"}, nil).Once()
	h.ss.On("ListProjectServices", mock.Anything, "p-1").Return(services, nil).Once()
	h.completer.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("invalid api key")).Once()

	est, err := h.pipeline.Run(context.Background(), testAccount(), testRequest(), h.notify)
	require.NoError(t, err)
	assert.Equal(t, summary.FailedPlaceholder, est.Summary)
	assert.Equal(t, StatusComplete, est.Status)

	last := est.Phases[len(est.Phases)-1]
	assert.Equal(t, "summary", last.Name)
	assert.Equal(t, model.PhaseStatusFailed, last.Status)
}

func TestPipeline_Run_UsesSavedTemplate(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, store.NewSettings(h.store).SaveTemplate(context.Background(), "Summarize {{projectName}} for {{clientName}}"))

	h.expectProvisioning()
	h.expectDocumentReady()
	h.ss.On("GetProject", mock.Anything, "p-1").Return(&model.Project{ID: "p-1"}, nil).Once()
	h.ss.On("ListProjectServices", mock.Anything, "p-1").Return(services, nil).Once()
	h.completer.On("Complete", mock.Anything, "Summarize Rollout for Acme").Return("ok", nil).Once()

	est, err := h.pipeline.Run(context.Background(), testAccount(), testRequest(), h.notify)
	require.NoError(t, err)
	assert.Equal(t, "ok", est.Summary)
}

func TestPipeline_Run_ProjectFailure(t *testing.T) {
	h := newHarness(t)
	h.ss.On("GetQuestionnaire", mock.Anything, "qn-1").Return(testQuestionnaire(), nil).Once()
	h.ss.On("CreateClient", mock.Anything, "acct-1", "Acme").Return(&model.Client{ID: "c-1", Name: "Acme"}, nil).Once()
	h.ss.On("CreateProject", mock.Anything, mock.Anything).
		Return(nil, &scopestack.RemoteError{Op: "create project", StatusCode: 422, Body: `{"errors":[]}`}).Once()

	est, err := h.pipeline.Run(context.Background(), testAccount(), testRequest(), h.notify)
	var re *scopestack.RemoteError
	require.ErrorAs(t, err, &re)
	var se *model.StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, model.StageProject, se.Stage)

	assert.Equal(t, "c-1", est.ClientID)
	assert.Empty(t, est.ProjectID)
	assert.Equal(t, []string{StatusResolvingClient, StatusFailed}, h.statuses)
	h.ss.AssertNotCalled(t, "CreateSurvey", mock.Anything, mock.Anything)
}

func TestPipeline_Run_SelectedClientNoContact(t *testing.T) {
	h := newHarness(t)
	req := testRequest()
	req.Client = &model.Client{ID: "c-9", Name: "Globex"}
	req.ClientName = ""
	req.Contact = model.Contact{}

	h.ss.On("GetQuestionnaire", mock.Anything, "qn-1").Return(testQuestionnaire(), nil).Once()
	h.ss.On("CreateProject", mock.Anything, mock.MatchedBy(func(r scopestack.CreateProjectRequest) bool {
		return r.ClientID == "c-9"
	})).Return(nil, errors.New("stop here")).Once()

	est, err := h.pipeline.Run(context.Background(), testAccount(), req, nil)
	require.Error(t, err)
	assert.Equal(t, "c-9", est.ClientID)
	assert.Equal(t, "Globex", est.ClientName)
	h.ss.AssertNotCalled(t, "CreateClient", mock.Anything, mock.Anything, mock.Anything)
	h.ss.AssertNotCalled(t, "CreateProjectContact", mock.Anything, mock.Anything, mock.Anything)
}

func TestPipeline_Regenerate(t *testing.T) {
	h := newHarness(t)
	h.ss.On("GetProject", mock.Anything, "p-1").Return(&model.Project{ID: "p-1", Name: "Rollout"}, nil).Once()
	h.ss.On("ListProjectServices", mock.Anything, "p-1").Return(services, nil).Twice()
	h.completer.On("Complete", mock.Anything, "Rollout / Acme").Return("v1", nil).Once()
	h.completer.On("Complete", mock.Anything, "Rollout / Acme").Return("v2", nil).Once()

	req := RegenerateRequest{ProjectID: "p-1", ClientName: "Acme", Template: "{{projectName}} / {{clientName}}"}
	got, err := h.pipeline.Regenerate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "v1", got)

	req.ProjectName = "Rollout"
	got, err = h.pipeline.Regenerate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "v2", got, "manual regeneration is never suppressed")
}

func TestPipeline_Regenerate_RequiresProject(t *testing.T) {
	h := newHarness(t)
	_, err := h.pipeline.Regenerate(context.Background(), RegenerateRequest{})
	var ve *model.ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestPipeline_Regenerate_ConcurrentSameProjectRejected(t *testing.T) {
	h := newHarness(t)
	h.ss.On("ListProjectServices", mock.Anything, "p-1").Return(services, nil).Twice()

	started := make(chan struct{})
	release := make(chan struct{})
	h.completer.On("Complete", mock.Anything, "Rollout").Run(func(mock.Arguments) {
		close(started)
		<-release
	}).Return("v1", nil).Once()

	req := RegenerateRequest{ProjectID: "p-1", ProjectName: "Rollout", Template: "{{projectName}}"}
	first := make(chan error, 1)
	go func() {
		_, err := h.pipeline.Regenerate(context.Background(), req)
		first <- err
	}()
	<-started

	_, err := h.pipeline.Regenerate(context.Background(), req)
	assert.ErrorIs(t, err, summary.ErrRegenerating)

	close(release)
	require.NoError(t, <-first)
	h.completer.AssertNumberOfCalls(t, "Complete", 1)
}

func TestPipeline_Regenerate_OtherProjectsIndependent(t *testing.T) {
	h := newHarness(t)
	h.ss.On("ListProjectServices", mock.Anything, mock.Anything).Return(services, nil)

	started := make(chan struct{})
	release := make(chan struct{})
	h.completer.On("Complete", mock.Anything, "P1").Run(func(mock.Arguments) {
		close(started)
		<-release
	}).Return("one", nil).Once()
	h.completer.On("Complete", mock.Anything, "P2").Return("two", nil).Once()

	first := make(chan error, 1)
	go func() {
		_, err := h.pipeline.Regenerate(context.Background(), RegenerateRequest{ProjectID: "p-1", ProjectName: "P1", Template: "{{projectName}}"})
		first <- err
	}()
	<-started

	got, err := h.pipeline.Regenerate(context.Background(), RegenerateRequest{ProjectID: "p-2", ProjectName: "P2", Template: "{{projectName}}"})
	require.NoError(t, err)
	assert.Equal(t, "two", got)

	close(release)
	require.NoError(t, <-first)
}
