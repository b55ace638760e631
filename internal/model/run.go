package model

import "time"

// RunStatus is the linear status of an estimate workflow run.
type RunStatus string

const (
	RunStatusQueued             RunStatus = "queued"
	RunStatusResolvingClient    RunStatus = "resolving_client"
	RunStatusCreatingProject    RunStatus = "creating_project"
	RunStatusProcessingSurvey   RunStatus = "processing_survey"
	RunStatusGeneratingDocument RunStatus = "generating_document"
	RunStatusFetchingPricing    RunStatus = "fetching_pricing"
	RunStatusGeneratingSummary  RunStatus = "generating_summary"
	RunStatusComplete           RunStatus = "complete"
	RunStatusFailed             RunStatus = "failed"
)

// Stage names a workflow step. Stages always execute in declaration order.
type Stage string

const (
	StageValidate Stage = "validate"
	StageClient   Stage = "client"
	StageProject  Stage = "project"
	StageSurvey   Stage = "survey"
	StageDocument Stage = "document"
	StagePricing  Stage = "pricing"
	StageServices Stage = "services"
	StageSummary  Stage = "summary"
)

// SummaryState tracks executive summary generation for one submission.
type SummaryState string

const (
	SummaryNotGenerated SummaryState = "not_generated"
	SummaryGenerated    SummaryState = "generated"
	SummaryRegenerating SummaryState = "regenerating"
)

// Run is the audit record of one workflow submission.
type Run struct {
	ID          string    `json:"id"`
	ProjectName string    `json:"project_name"`
	ClientName  string    `json:"client_name"`
	Status      RunStatus `json:"status"`
	Result      *Estimate `json:"result,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RunPhase is the persisted record of a single stage.
type RunPhase struct {
	ID        string       `json:"id"`
	RunID     string       `json:"run_id"`
	Name      string       `json:"name"`
	Status    PhaseStatus  `json:"status"`
	Result    *PhaseResult `json:"result,omitempty"`
	StartedAt time.Time    `json:"started_at"`
}

// PhaseStatus represents the current state of a workflow stage.
type PhaseStatus string

const (
	PhaseStatusRunning  PhaseStatus = "running"
	PhaseStatusComplete PhaseStatus = "complete"
	PhaseStatusFailed   PhaseStatus = "failed"
	PhaseStatusSkipped  PhaseStatus = "skipped"
)

// PhaseResult holds the outcome of a workflow stage.
type PhaseResult struct {
	Name     string         `json:"name"`
	Status   PhaseStatus    `json:"status"`
	Duration int64          `json:"duration_ms"`
	Error    string         `json:"error,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Estimate is the outcome of a workflow run. Remote ids are filled in as
// stages complete so a failed run still reports what was created.
type Estimate struct {
	RunID        string           `json:"run_id"`
	AccountID    string           `json:"account_id,omitempty"`
	ClientID     string           `json:"client_id,omitempty"`
	ClientName   string           `json:"client_name,omitempty"`
	ProjectID    string           `json:"project_id,omitempty"`
	ProjectName  string           `json:"project_name,omitempty"`
	ContactID    string           `json:"contact_id,omitempty"`
	SurveyID     string           `json:"survey_id,omitempty"`
	Responses    []SurveyResponse `json:"responses,omitempty"`
	DocumentID   string           `json:"document_id,omitempty"`
	DocumentURL  string           `json:"document_url,omitempty"`
	Pricing      *Pricing         `json:"pricing,omitempty"`
	Services     []ProjectService `json:"services,omitempty"`
	Summary      string           `json:"summary,omitempty"`
	SummaryState SummaryState     `json:"summary_state,omitempty"`
	Status       string           `json:"status"`
	Phases       []PhaseResult    `json:"phases"`
	Error        string           `json:"error,omitempty"`
}
