// Package survey submits questionnaire answers to ScopeStack and drives the
// resulting survey through calculation and recommendation apply.
//
// A survey moves created -> calculating -> completed -> applied. Calculation
// is asynchronous on the server; AwaitCompletion polls it with a bounded
// attempt count and wall-clock budget.
package survey

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/estimate-cli/internal/model"
	"github.com/sells-group/estimate-cli/internal/resilience"
	"github.com/sells-group/estimate-cli/pkg/scopestack"
)

// Config bounds the calculation poll.
type Config struct {
	PollInterval time.Duration
	MaxAttempts  int
	Timeout      time.Duration
}

// DefaultConfig polls every 2s for at most 150 attempts or 5 minutes.
func DefaultConfig() Config {
	return Config{
		PollInterval: 2 * time.Second,
		MaxAttempts:  150,
		Timeout:      5 * time.Minute,
	}
}

// Pipeline runs the survey stage against a ScopeStack client.
type Pipeline struct {
	client scopestack.Client
	cfg    Config
}

// New creates a Pipeline. Zero fields in cfg take their defaults.
func New(client scopestack.Client, cfg Config) *Pipeline {
	def := DefaultConfig()
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	return &Pipeline{client: client, cfg: cfg}
}

// Request is the input of a full survey run.
type Request struct {
	Name            string
	AccountID       string
	ProjectID       string
	QuestionnaireID string
	Responses       []model.SurveyResponse
}

// Result is the outcome of a full survey run.
type Result struct {
	Survey          *model.Survey
	Recommendations []model.Recommendation
}

// BuildResponses turns answers into one response per answered question, in
// the questionnaire's presentation order. Deleted questions are never
// included. An answer keyed by a slug outside the active question set is a
// *model.DataIntegrityError; an unanswered required question is a
// *model.ValidationError.
func BuildResponses(q model.Questionnaire, answers model.Answers) ([]model.SurveyResponse, error) {
	active := q.ActiveQuestions()
	known := make(map[string]struct{}, len(active))
	for _, question := range active {
		known[question.Slug] = struct{}{}
	}

	slugs := make([]string, 0, len(answers))
	for slug := range answers {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)
	for _, slug := range slugs {
		if _, ok := known[slug]; !ok {
			return nil, &model.DataIntegrityError{Slug: slug}
		}
	}

	var (
		responses []model.SurveyResponse
		missing   []string
	)
	for _, question := range active {
		answer, ok := answers[question.Slug]
		if !ok || strings.TrimSpace(answer) == "" {
			if question.Required {
				missing = append(missing, question.Slug)
			}
			continue
		}
		responses = append(responses, model.SurveyResponse{
			QuestionID: question.ID,
			Question:   question.Question,
			Answer:     answer,
		})
	}
	if len(missing) > 0 {
		return nil, &model.ValidationError{Fields: missing}
	}
	return responses, nil
}

// Create submits a new survey with all responses.
func (p *Pipeline) Create(ctx context.Context, req Request) (*model.Survey, error) {
	s, err := p.client.CreateSurvey(ctx, scopestack.CreateSurveyRequest{
		Name:            req.Name,
		AccountID:       req.AccountID,
		ProjectID:       req.ProjectID,
		QuestionnaireID: req.QuestionnaireID,
		Responses:       req.Responses,
	})
	if err != nil {
		return nil, eris.Wrap(err, "survey: create")
	}
	zap.L().Info("survey: created",
		zap.String("survey_id", s.ID),
		zap.String("project_id", req.ProjectID),
		zap.Int("responses", len(req.Responses)),
	)
	return s, nil
}

// Calculate starts server-side calculation of recommendations.
func (p *Pipeline) Calculate(ctx context.Context, surveyID string) (*model.Survey, error) {
	s, err := p.client.CalculateSurvey(ctx, surveyID)
	if err != nil {
		return nil, eris.Wrapf(err, "survey: calculate %s", surveyID)
	}
	return s, nil
}

// AwaitCompletion polls the survey until its status leaves calculating. A
// failed status is fatal. Exhausting the poll budget returns a
// *model.TimeoutError.
func (p *Pipeline) AwaitCompletion(ctx context.Context, surveyID string) (*model.Survey, error) {
	log := zap.L().With(zap.String("survey_id", surveyID))

	s, err := resilience.Poll(ctx, resilience.PollConfig{
		Interval:    p.cfg.PollInterval,
		MaxAttempts: p.cfg.MaxAttempts,
		Timeout:     p.cfg.Timeout,
	}, func(ctx context.Context, attempt int) (*model.Survey, bool, error) {
		s, err := p.client.GetSurvey(ctx, surveyID)
		if err != nil {
			return nil, false, eris.Wrapf(err, "survey: get %s", surveyID)
		}
		log.Debug("survey: poll", zap.Int("attempt", attempt), zap.String("status", string(s.Status)))

		switch s.Status {
		case model.SurveyStatusCalculating:
			return nil, false, nil
		case model.SurveyStatusFailed:
			return nil, false, eris.Errorf("survey: calculation failed for %s", surveyID)
		default:
			return s, true, nil
		}
	})
	if err != nil {
		var exhausted *resilience.PollExhaustedError
		if errors.As(err, &exhausted) {
			return nil, &model.TimeoutError{
				Stage:    model.StageSurvey,
				Attempts: exhausted.Attempts,
				Elapsed:  exhausted.Elapsed,
				Err:      exhausted.Err,
			}
		}
		return nil, err
	}
	return s, nil
}

// Apply applies the calculated recommendations to the project.
func (p *Pipeline) Apply(ctx context.Context, surveyID string) ([]model.Recommendation, error) {
	recs, err := p.client.ApplySurvey(ctx, surveyID)
	if err != nil {
		return nil, eris.Wrapf(err, "survey: apply %s", surveyID)
	}
	zap.L().Info("survey: recommendations applied",
		zap.String("survey_id", surveyID),
		zap.Int("recommendations", len(recs)),
	)
	return recs, nil
}

// Run executes create, calculate, await and apply in order. Any failure
// aborts; resources already created remotely are left in place.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	created, err := p.Create(ctx, req)
	if err != nil {
		return nil, err
	}

	if _, err := p.Calculate(ctx, created.ID); err != nil {
		return nil, err
	}

	completed, err := p.AwaitCompletion(ctx, created.ID)
	if err != nil {
		return nil, err
	}

	recs, err := p.Apply(ctx, created.ID)
	if err != nil {
		return nil, err
	}
	completed.Status = model.SurveyStatusApplied
	return &Result{Survey: completed, Recommendations: recs}, nil
}
