package model

import "time"

// Account identifies the ScopeStack account and user behind the credential.
type Account struct {
	AccountID   string `json:"account_id"`
	AccountSlug string `json:"account_slug"`
	UserName    string `json:"user_name"`
}

// Client is a customer record that projects are created against.
type Client struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	MSADate  string    `json:"msa_date,omitempty"`
	Contacts []Contact `json:"contacts,omitempty"`
}

// Contact is a person belonging to exactly one Client.
type Contact struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
	Title string `json:"title"`
}

// IsZero reports whether all four editable contact fields are empty.
func (c Contact) IsZero() bool {
	return c.Name == "" && c.Email == "" && c.Phone == "" && c.Title == ""
}

// ValueType is the input type of a questionnaire question.
type ValueType string

const (
	ValueTypeText   ValueType = "text"
	ValueTypeNumber ValueType = "number"
	ValueTypeSelect ValueType = "select"
)

// SelectOption is one choice of a select question.
type SelectOption struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Question is a single questionnaire prompt keyed by its slug.
type Question struct {
	ID            string         `json:"id"`
	Slug          string         `json:"slug"`
	Question      string         `json:"question"`
	Required      bool           `json:"required"`
	ValueType     ValueType      `json:"value_type"`
	SelectOptions []SelectOption `json:"select_options,omitempty"`
	DeletedAt     *time.Time     `json:"deleted_at,omitempty"`
}

// Deleted reports whether the question carries a deletion marker.
func (q Question) Deleted() bool {
	return q.DeletedAt != nil
}

// InputType returns the effective input type. Questions with options are
// always rendered as selects regardless of their declared value type.
func (q Question) InputType() ValueType {
	if len(q.SelectOptions) > 0 {
		return ValueTypeSelect
	}
	if q.ValueType == ValueTypeNumber {
		return ValueTypeNumber
	}
	return ValueTypeText
}

// Questionnaire groups the questions that drive a survey.
type Questionnaire struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Questions []Question `json:"questions,omitempty"`
}

// ActiveQuestions returns the questions without a deletion marker, in
// presentation order.
func (q Questionnaire) ActiveQuestions() []Question {
	out := make([]Question, 0, len(q.Questions))
	for _, question := range q.Questions {
		if question.Deleted() {
			continue
		}
		out = append(out, question)
	}
	return out
}

// Answers maps question slug to the submitted value.
type Answers map[string]string

// SurveyResponse is one (question-id, question-text, answer) triple.
type SurveyResponse struct {
	QuestionID string `json:"question-id"`
	Question   string `json:"question"`
	Answer     string `json:"answer"`
}

// SurveyStatus is the server-side calculation status of a survey.
type SurveyStatus string

const (
	SurveyStatusCreated     SurveyStatus = "created"
	SurveyStatusCalculating SurveyStatus = "calculating"
	SurveyStatusCompleted   SurveyStatus = "completed"
	SurveyStatusFailed      SurveyStatus = "failed"
	SurveyStatusApplied     SurveyStatus = "applied"
)

// Survey is a submitted answer set tied to a project.
type Survey struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Status    SurveyStatus     `json:"status"`
	Responses []SurveyResponse `json:"responses,omitempty"`
}

// Recommendation is a server-computed service suggestion derived from a survey.
type Recommendation struct {
	ID       string  `json:"id"`
	Type     string  `json:"type"`
	Name     string  `json:"name,omitempty"`
	Quantity float64 `json:"quantity,omitempty"`
}

// Project is the estimate container created by the workflow.
type Project struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	MSADate  string   `json:"msa_date,omitempty"`
	ClientID string   `json:"client_id,omitempty"`
	Pricing  *Pricing `json:"pricing,omitempty"`
}

// DocumentStatus is the generation status of a project document.
type DocumentStatus string

const (
	DocumentStatusPending  DocumentStatus = "pending"
	DocumentStatusFinished DocumentStatus = "finished"
	DocumentStatusFailed   DocumentStatus = "failed"
	DocumentStatusError    DocumentStatus = "error"
)

// DocumentTemplate is a document layout that can be generated for a project.
type DocumentTemplate struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// ProjectDocument is a generated document such as a statement of work.
type ProjectDocument struct {
	ID           string         `json:"id"`
	TemplateID   string         `json:"template_id,omitempty"`
	DocumentType string         `json:"document_type,omitempty"`
	Status       DocumentStatus `json:"status"`
	URL          string         `json:"url,omitempty"`
}

// ProjectService is a line item produced by applied recommendations.
type ProjectService struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Quantity    float64 `json:"quantity"`
	TotalHours  float64 `json:"total_hours"`
	Description string  `json:"description"`
	Position    int     `json:"position"`
}

// Pricing is a computed financial snapshot of a project. Missing figures stay nil.
type Pricing struct {
	Revenue *float64 `json:"revenue"`
	Cost    *float64 `json:"cost"`
	Margin  *float64 `json:"margin"`
}

// RateTable is a pricing configuration referenced by projects.
type RateTable struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Default bool   `json:"default"`
}

// PaymentTerm is a billing configuration referenced by projects.
type PaymentTerm struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Default bool   `json:"default"`
}

// SalesExecutive is the seller owning a project.
type SalesExecutive struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// ProjectVariable is a custom field defined on the account.
type ProjectVariable struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Label    string `json:"label"`
	Required bool   `json:"required"`
	Context  string `json:"context"`
}
