// Package document generates the statement of work for a project and waits
// for ScopeStack to publish its URL.
package document

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/estimate-cli/internal/model"
	"github.com/sells-group/estimate-cli/internal/resilience"
	"github.com/sells-group/estimate-cli/pkg/scopestack"
)

var (
	// ErrNoTemplate is returned when the account has no active template.
	ErrNoTemplate = eris.New("document: no active document template")

	// ErrMissingURL is returned when a document finished without a URL.
	ErrMissingURL = eris.New("document: finished without a document url")
)

// Config bounds document generation.
type Config struct {
	PollInterval time.Duration
	MaxAttempts  int

	// Timeout is the wall-clock budget for the whole pipeline.
	Timeout time.Duration

	// TemplateID pins a template and skips template discovery.
	TemplateID string
}

// DefaultConfig polls every second for at most 10 attempts within 5 minutes.
func DefaultConfig() Config {
	return Config{
		PollInterval: time.Second,
		MaxAttempts:  10,
		Timeout:      5 * time.Minute,
	}
}

// Pipeline runs the document stage against a ScopeStack client.
type Pipeline struct {
	client scopestack.Client
	cfg    Config
}

// New creates a Pipeline. Zero durations and attempts take their defaults.
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

// SelectTemplate returns the configured template, or else the first active
// template the account lists.
func (p *Pipeline) SelectTemplate(ctx context.Context) (*model.DocumentTemplate, error) {
	if p.cfg.TemplateID != "" {
		return &model.DocumentTemplate{ID: p.cfg.TemplateID, Active: true}, nil
	}

	templates, err := p.client.ListDocumentTemplates(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "document: list templates")
	}
	for i := range templates {
		if templates[i].Active {
			return &templates[i], nil
		}
	}
	return nil, ErrNoTemplate
}

// Create requests SOW generation with forced regeneration and PDF output.
func (p *Pipeline) Create(ctx context.Context, projectID, templateID string) (*model.ProjectDocument, error) {
	doc, err := p.client.CreateProjectDocument(ctx, scopestack.CreateDocumentRequest{
		ProjectID:         projectID,
		TemplateID:        templateID,
		DocumentType:      scopestack.DocumentTypeSOW,
		ForceRegeneration: true,
		GeneratePDF:       true,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "document: create for project %s", projectID)
	}
	zap.L().Info("document: generation started",
		zap.String("project_id", projectID),
		zap.String("document_id", doc.ID),
		zap.String("template_id", templateID),
	)
	return doc, nil
}

// PollUntilReady fetches the project's documents until the generated one is
// finished with a URL. documentID picks the document to inspect; when it is
// absent from the listing the first document is used. Exhausting the poll
// budget returns a *model.TimeoutError.
func (p *Pipeline) PollUntilReady(ctx context.Context, projectID, documentID string) (*model.ProjectDocument, error) {
	log := zap.L().With(zap.String("project_id", projectID), zap.String("document_id", documentID))

	doc, err := resilience.Poll(ctx, resilience.PollConfig{
		Interval:    p.cfg.PollInterval,
		MaxAttempts: p.cfg.MaxAttempts,
	}, func(ctx context.Context, attempt int) (*model.ProjectDocument, bool, error) {
		docs, err := p.client.ListProjectDocuments(ctx, projectID)
		if err != nil {
			return nil, false, eris.Wrapf(err, "document: list for project %s", projectID)
		}
		d := pick(docs, documentID)
		if d == nil {
			log.Debug("document: poll", zap.Int("attempt", attempt), zap.String("status", "absent"))
			return nil, false, nil
		}
		log.Debug("document: poll", zap.Int("attempt", attempt), zap.String("status", string(d.Status)))

		switch d.Status {
		case model.DocumentStatusFinished:
			if d.URL == "" {
				return nil, false, eris.Wrapf(ErrMissingURL, "document %s", d.ID)
			}
			return d, true, nil
		case model.DocumentStatusFailed, model.DocumentStatusError:
			return nil, false, eris.Errorf("document: generation %s for %s", d.Status, d.ID)
		default:
			return nil, false, nil
		}
	})
	if err != nil {
		var exhausted *resilience.PollExhaustedError
		if errors.As(err, &exhausted) {
			return nil, &model.TimeoutError{
				Stage:    model.StageDocument,
				Attempts: exhausted.Attempts,
				Elapsed:  exhausted.Elapsed,
				Err:      exhausted.Err,
			}
		}
		return nil, err
	}
	return doc, nil
}

func pick(docs []model.ProjectDocument, id string) *model.ProjectDocument {
	if len(docs) == 0 {
		return nil
	}
	for i := range docs {
		if docs[i].ID == id {
			return &docs[i]
		}
	}
	return &docs[0]
}

// Run selects a template, starts generation and waits for the document,
// all within the configured wall-clock budget.
func (p *Pipeline) Run(ctx context.Context, projectID string) (*model.ProjectDocument, error) {
	start := time.Now()
	runCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	doc, err := p.run(runCtx, projectID)
	if err != nil && ctx.Err() == nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return nil, &model.TimeoutError{
			Stage:   model.StageDocument,
			Elapsed: time.Since(start),
			Err:     err,
		}
	}
	return doc, err
}

func (p *Pipeline) run(ctx context.Context, projectID string) (*model.ProjectDocument, error) {
	tmpl, err := p.SelectTemplate(ctx)
	if err != nil {
		return nil, err
	}
	created, err := p.Create(ctx, projectID, tmpl.ID)
	if err != nil {
		return nil, err
	}
	ready, err := p.PollUntilReady(ctx, projectID, created.ID)
	if err != nil {
		return nil, err
	}
	zap.L().Info("document: ready",
		zap.String("project_id", projectID),
		zap.String("document_id", ready.ID),
		zap.String("url", ready.URL),
	)
	return ready, nil
}
