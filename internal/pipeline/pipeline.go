// Package pipeline drives an estimate submission through client resolution,
// project creation, survey, document, pricing and summary stages.
//
// Stages run strictly in order and each needs its predecessor's output. A
// fatal error stops forward progress; resources already created remotely
// are left in place. Summary generation is the one stage whose failure does
// not fail the run.
package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/estimate-cli/internal/config"
	"github.com/sells-group/estimate-cli/internal/document"
	"github.com/sells-group/estimate-cli/internal/model"
	"github.com/sells-group/estimate-cli/internal/pricing"
	"github.com/sells-group/estimate-cli/internal/resolver"
	"github.com/sells-group/estimate-cli/internal/store"
	"github.com/sells-group/estimate-cli/internal/summary"
	"github.com/sells-group/estimate-cli/internal/survey"
	"github.com/sells-group/estimate-cli/pkg/scopestack"
)

// Status lines surfaced to the caller at stage boundaries.
const (
	StatusResolvingClient = "Resolving client..."
	StatusProjectCreated  = "Project created..."
	StatusSurvey          = "Creating and processing survey..."
	StatusDocument        = "Generating document..."
	StatusDocumentReady   = "Document ready!"
	StatusPricing         = "Fetching pricing..."
	StatusSummary         = "Generating executive summary..."
	StatusComplete        = "Estimate complete."
	StatusFailed          = "Estimate failed."
)

// Summary sessions are kept per project so manual regeneration shares the
// latch of the submission that created the project.
const (
	sessionCacheSize = 256
	sessionTTL       = 2 * time.Hour
)

// StatusFunc receives each status line as it occurs.
type StatusFunc func(status string)

// Pipeline orchestrates the estimate workflow.
type Pipeline struct {
	client    scopestack.Client
	store     store.Store
	resolver  *resolver.Resolver
	surveys   *survey.Pipeline
	documents *document.Pipeline
	pricing   *pricing.Fetcher
	generator *summary.Generator
	templates *summary.Templates

	sessionMu sync.Mutex
	sessions  *expirable.LRU[string, *summary.Session]
}

// New creates a Pipeline with all dependencies. gen may be nil, in which
// case summaries degrade to a placeholder.
func New(
	cfg *config.Config,
	st store.Store,
	client scopestack.Client,
	res *resolver.Resolver,
	gen *summary.Generator,
	templates *summary.Templates,
) *Pipeline {
	if templates == nil {
		templates = summary.NewTemplates(nil)
	}
	return &Pipeline{
		client:   client,
		store:    st,
		resolver: res,
		surveys: survey.New(client, survey.Config{
			PollInterval: cfg.Workflow.SurveyPollInterval,
			MaxAttempts:  cfg.Workflow.SurveyMaxAttempts,
			Timeout:      cfg.Workflow.SurveyTimeout,
		}),
		documents: document.New(client, document.Config{
			PollInterval: cfg.Workflow.DocumentPollInterval,
			MaxAttempts:  cfg.Workflow.DocumentMaxAttempts,
			Timeout:      cfg.Workflow.DocumentTimeout,
			TemplateID:   cfg.ScopeStack.DocumentTemplateID,
		}),
		pricing:   pricing.New(client),
		generator: gen,
		templates: templates,
		sessions:  expirable.NewLRU[string, *summary.Session](sessionCacheSize, nil, sessionTTL),
	}
}

// session returns the summary session of a project, starting one if none
// is held.
func (p *Pipeline) session(projectID string) *summary.Session {
	p.sessionMu.Lock()
	defer p.sessionMu.Unlock()
	if s, ok := p.sessions.Get(projectID); ok {
		return s
	}
	s := summary.NewSession(p.generator)
	p.sessions.Add(projectID, s)
	return s
}

// checkAnswers maps the submitted answers onto the questionnaire's active
// questions. It reads the questionnaire when the request does not carry it.
func (p *Pipeline) checkAnswers(ctx context.Context, req Request) ([]model.SurveyResponse, error) {
	q := req.Questionnaire
	if q == nil {
		var err error
		q, err = p.client.GetQuestionnaire(ctx, req.QuestionnaireID)
		if err != nil {
			return nil, eris.Wrapf(err, "pipeline: get questionnaire %s", req.QuestionnaireID)
		}
	}
	return survey.BuildResponses(*q, req.Answers)
}

// Run executes the full workflow for one submission. Requests that fail
// validation or the answer check return a nil estimate and leave no run.
// Otherwise the returned estimate records every id created so far,
// including on failure.
func (p *Pipeline) Run(ctx context.Context, acct Account, req Request, notify StatusFunc) (*model.Estimate, error) {
	if err := Validate(acct, req); err != nil {
		return nil, err
	}
	if notify == nil {
		notify = func(string) {}
	}

	clientName := req.DisplayClientName()
	log := zap.L().With(zap.String("project", req.ProjectName), zap.String("client", clientName))
	log.Info("pipeline: starting estimate")

	responses, err := p.checkAnswers(ctx, req)
	if err != nil {
		log.Warn("pipeline: answers rejected", zap.Error(err))
		return nil, &model.StageError{Stage: model.StageValidate, Err: err}
	}

	run, err := p.store.CreateRun(ctx, req.ProjectName, clientName)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create run")
	}

	result := &model.Estimate{
		RunID:        run.ID,
		AccountID:    acct.AccountID,
		ClientName:   clientName,
		ProjectName:  req.ProjectName,
		SummaryState: model.SummaryNotGenerated,
		Phases:       []model.PhaseResult{},
	}

	setStatus := func(status model.RunStatus, line string) {
		if statusErr := p.store.UpdateRunStatus(ctx, run.ID, status); statusErr != nil {
			log.Warn("pipeline: failed to update status", zap.Error(statusErr))
		}
		if line != "" {
			result.Status = line
			notify(line)
		}
	}

	trackPhase := func(stage model.Stage, fn func() (*model.PhaseResult, error)) error {
		name := string(stage)
		phase, phaseErr := p.store.CreatePhase(ctx, run.ID, name)
		if phaseErr != nil {
			log.Warn("pipeline: failed to create phase", zap.String("phase", name), zap.Error(phaseErr))
		}

		start := time.Now()
		phaseResult, fnErr := fn()
		duration := time.Since(start).Milliseconds()

		if phaseResult == nil {
			phaseResult = &model.PhaseResult{}
		}
		phaseResult.Name = name
		phaseResult.Duration = duration

		if fnErr != nil {
			phaseResult.Status = model.PhaseStatusFailed
			phaseResult.Error = fnErr.Error()
			log.Error("pipeline: phase failed",
				zap.String("phase", name),
				zap.Int64("duration_ms", duration),
				zap.Error(fnErr),
			)
		} else {
			if phaseResult.Status == "" {
				phaseResult.Status = model.PhaseStatusComplete
			}
			log.Info("pipeline: phase complete",
				zap.String("phase", name),
				zap.Int64("duration_ms", duration),
			)
		}

		if phase != nil {
			if err := p.store.CompletePhase(ctx, phase.ID, phaseResult); err != nil {
				log.Warn("pipeline: failed to complete phase", zap.String("phase", name), zap.Error(err))
			}
		}
		result.Phases = append(result.Phases, *phaseResult)

		if fnErr != nil {
			return &model.StageError{Stage: stage, Err: fnErr}
		}
		return nil
	}

	fail := func(err error) (*model.Estimate, error) {
		result.Error = err.Error()
		setStatus(model.RunStatusFailed, StatusFailed)
		if saveErr := p.store.UpdateRunResult(ctx, run.ID, model.RunStatusFailed, result); saveErr != nil {
			log.Warn("pipeline: failed to save result", zap.Error(saveErr))
		}
		return result, err
	}

	// ===== Validate =====
	if err := trackPhase(model.StageValidate, func() (*model.PhaseResult, error) {
		return &model.PhaseResult{Metadata: map[string]any{"responses": len(responses)}}, nil
	}); err != nil {
		return fail(err)
	}
	result.Responses = responses

	// ===== Client =====
	setStatus(model.RunStatusResolvingClient, StatusResolvingClient)
	var client *model.Client
	if err := trackPhase(model.StageClient, func() (*model.PhaseResult, error) {
		var err error
		client, err = p.resolver.ResolveOrCreateClient(ctx, req.ClientName, acct.AccountID, req.Client)
		if err != nil {
			return nil, err
		}
		return &model.PhaseResult{Metadata: map[string]any{"client_id": client.ID}}, nil
	}); err != nil {
		return fail(err)
	}
	result.ClientID = client.ID
	if client.Name != "" {
		result.ClientName = client.Name
	}

	// ===== Project =====
	setStatus(model.RunStatusCreatingProject, "")
	if err := trackPhase(model.StageProject, func() (*model.PhaseResult, error) {
		project, err := p.client.CreateProject(ctx, scopestack.CreateProjectRequest{
			Name:             req.ProjectName,
			MSADate:          req.MSADate,
			AccountID:        acct.AccountID,
			ClientID:         client.ID,
			PaymentTermID:    acct.PaymentTermID,
			RateTableID:      acct.RateTableID,
			SalesExecutiveID: req.SalesExecutiveID,
		})
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: create project")
		}
		result.ProjectID = project.ID

		meta := map[string]any{"project_id": project.ID}
		if strings.TrimSpace(req.Contact.Name) != "" {
			contact, err := p.client.CreateProjectContact(ctx, project.ID, req.Contact)
			if err != nil {
				return nil, eris.Wrap(err, "pipeline: create project contact")
			}
			result.ContactID = contact.ID
			meta["contact_id"] = contact.ID
		}
		return &model.PhaseResult{Metadata: meta}, nil
	}); err != nil {
		return fail(err)
	}
	setStatus(model.RunStatusCreatingProject, StatusProjectCreated)

	// ===== Survey =====
	setStatus(model.RunStatusProcessingSurvey, StatusSurvey)
	if err := trackPhase(model.StageSurvey, func() (*model.PhaseResult, error) {
		res, err := p.surveys.Run(ctx, survey.Request{
			Name:            req.ProjectName,
			AccountID:       acct.AccountID,
			ProjectID:       result.ProjectID,
			QuestionnaireID: req.QuestionnaireID,
			Responses:       responses,
		})
		if err != nil {
			return nil, err
		}
		result.SurveyID = res.Survey.ID
		return &model.PhaseResult{Metadata: map[string]any{
			"survey_id":       res.Survey.ID,
			"recommendations": len(res.Recommendations),
		}}, nil
	}); err != nil {
		return fail(err)
	}

	// ===== Document =====
	setStatus(model.RunStatusGeneratingDocument, StatusDocument)
	if err := trackPhase(model.StageDocument, func() (*model.PhaseResult, error) {
		doc, err := p.documents.Run(ctx, result.ProjectID)
		if err != nil {
			return nil, err
		}
		result.DocumentID = doc.ID
		result.DocumentURL = doc.URL
		return &model.PhaseResult{Metadata: map[string]any{"document_id": doc.ID}}, nil
	}); err != nil {
		return fail(err)
	}
	setStatus(model.RunStatusGeneratingDocument, StatusDocumentReady)

	// ===== Pricing & services =====
	setStatus(model.RunStatusFetchingPricing, "")
	if err := trackPhase(model.StagePricing, func() (*model.PhaseResult, error) {
		pr, err := p.pricing.FetchPricing(ctx, result.ProjectID)
		if err != nil {
			return nil, err
		}
		result.Pricing = pr
		return nil, nil
	}); err != nil {
		return fail(err)
	}
	if err := trackPhase(model.StageServices, func() (*model.PhaseResult, error) {
		services, err := p.pricing.FetchServices(ctx, result.ProjectID)
		if err != nil {
			return nil, err
		}
		result.Services = services
		return &model.PhaseResult{Metadata: map[string]any{"services": len(services)}}, nil
	}); err != nil {
		return fail(err)
	}

	// ===== Summary (degraded on failure) =====
	setStatus(model.RunStatusGeneratingSummary, "")
	session := p.session(result.ProjectID)
	summaryErr := trackPhase(model.StageSummary, func() (*model.PhaseResult, error) {
		if len(result.Services) == 0 {
			result.Summary, _ = session.Auto(ctx, "", summary.Input{})
			return &model.PhaseResult{Status: model.PhaseStatusSkipped}, nil
		}
		tmpl, err := p.templates.Current(ctx)
		if err != nil {
			log.Warn("pipeline: falling back to default template", zap.Error(err))
			tmpl = summary.DefaultTemplate
		}
		text, err := session.Auto(ctx, tmpl, summary.Input{
			ClientName:  result.ClientName,
			ProjectName: result.ProjectName,
			Responses:   responses,
			Services:    result.Services,
		})
		result.Summary = text
		return nil, err
	})
	result.SummaryState = session.State()
	if summaryErr != nil {
		var aiErr *model.AIGenerationError
		if !errors.As(summaryErr, &aiErr) {
			return fail(summaryErr)
		}
		log.Warn("pipeline: summary degraded", zap.Error(summaryErr))
	}

	setStatus(model.RunStatusComplete, StatusComplete)
	if err := p.store.UpdateRunResult(ctx, run.ID, model.RunStatusComplete, result); err != nil {
		log.Warn("pipeline: failed to save result", zap.Error(err))
	}
	log.Info("pipeline: estimate complete",
		zap.String("project_id", result.ProjectID),
		zap.String("document_url", result.DocumentURL),
	)
	return result, nil
}

// RegenerateRequest identifies the project whose summary is regenerated.
type RegenerateRequest struct {
	ProjectID   string                 `json:"project_id" validate:"required"`
	ClientName  string                 `json:"client_name"`
	ProjectName string                 `json:"project_name"`
	Responses   []model.SurveyResponse `json:"responses,omitempty"`
	Template    string                 `json:"template,omitempty"`
}

// Regenerate re-fetches the project's services and generates a new summary
// with the stored (or supplied) template. It is user-initiated and never
// suppressed by the automatic latch, but a second regeneration of the same
// project while one is in flight returns summary.ErrRegenerating. Missing
// names are filled from the project.
func (p *Pipeline) Regenerate(ctx context.Context, req RegenerateRequest) (string, error) {
	if strings.TrimSpace(req.ProjectID) == "" {
		return "", &model.ValidationError{Fields: []string{"project_id"}}
	}

	if req.ProjectName == "" {
		project, err := p.client.GetProject(ctx, req.ProjectID)
		if err != nil {
			return "", eris.Wrapf(err, "pipeline: get project %s", req.ProjectID)
		}
		req.ProjectName = project.Name
	}

	services, err := p.pricing.FetchServices(ctx, req.ProjectID)
	if err != nil {
		return "", err
	}

	tmpl := req.Template
	if strings.TrimSpace(tmpl) == "" {
		if tmpl, err = p.templates.Current(ctx); err != nil {
			return "", err
		}
	}

	return p.session(req.ProjectID).Regenerate(ctx, tmpl, summary.Input{
		ClientName:  req.ClientName,
		ProjectName: req.ProjectName,
		Responses:   req.Responses,
		Services:    services,
	})
}
