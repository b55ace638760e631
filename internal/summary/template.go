// Package summary renders the executive-summary prompt from workflow data
// and generates the summary text through an AI completion provider.
package summary

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/estimate-cli/internal/model"
)

// Placeholder keys recognized in prompt templates as {{key}}.
const (
	KeyClientName          = "clientName"
	KeyProjectName         = "projectName"
	KeySurveyContext       = "surveyContext"
	KeyServiceDescriptions = "serviceDescriptions"
)

// NoServicesPlaceholder is shown instead of a summary when the project has
// no services to summarize.
const NoServicesPlaceholder = "No services available to generate summary."

// DefaultTemplate is used when no custom template has been saved.
const DefaultTemplate = `Generate an executive summary for a professional services engagement. The summary should be concise yet comprehensive, clearly outlining the business objectives, key challenges, proposed solutions, and expected outcomes. Use the discovery questionnaire answers to provide specific insights into the client's needs, operational constraints, and strategic goals.

The summary should include the following sections:

Client Overview: briefly describe the client's business, industry, and relevant background.
Engagement Objectives: define the specific goals the client aims to achieve, linked to measurable business outcomes.
Key Findings from Discovery: highlight pain points, inefficiencies, or opportunities for improvement.
Proposed Solution & Approach: outline the recommended services and methodologies.
Business Impact & Success Metrics: explain the expected impact, KPIs, and success measures.
Next Steps & Timeline: summarize the implementation plan and key milestones.

Use a professional, results-oriented tone accessible to executive stakeholders.

Client Name: {{clientName}}
Project Name: {{projectName}}

Questionnaire Answers:
{{surveyContext}}

Recommended Services:
{{serviceDescriptions}}`

// Data holds placeholder values by key. Keys absent from Data leave their
// placeholder untouched.
type Data map[string]string

// Render substitutes every occurrence of each known placeholder present in
// data. Unknown or absent placeholders are left verbatim. Substituted values
// are not rescanned.
func Render(tmpl string, data Data) string {
	var pairs []string
	for _, key := range []string{KeyClientName, KeyProjectName, KeySurveyContext, KeyServiceDescriptions} {
		if v, ok := data[key]; ok {
			pairs = append(pairs, "{{"+key+"}}", v)
		}
	}
	if len(pairs) == 0 {
		return tmpl
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

// BuildSurveyContext formats responses as QUESTION/ANSWER pairs separated by
// blank lines, in presentation order.
func BuildSurveyContext(responses []model.SurveyResponse) string {
	blocks := make([]string, 0, len(responses))
	for _, r := range responses {
		blocks = append(blocks, "QUESTION: "+r.Question+"\nANSWER: "+r.Answer)
	}
	return strings.Join(blocks, "\n\n")
}

// BuildServiceDescriptions formats services ordered by position. Services
// with equal positions keep their fetch order.
func BuildServiceDescriptions(services []model.ProjectService) string {
	sorted := make([]model.ProjectService, len(services))
	copy(sorted, services)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Position < sorted[j].Position
	})

	blocks := make([]string, 0, len(sorted))
	for _, s := range sorted {
		var b strings.Builder
		b.WriteString("Service: " + s.Name)
		b.WriteString("\nQuantity: " + strconv.FormatFloat(s.Quantity, 'f', -1, 64))
		b.WriteString("\nHours: " + strconv.FormatFloat(s.TotalHours, 'f', -1, 64))
		if d := strings.TrimSpace(s.Description); d != "" {
			b.WriteString("\nDescription: " + d)
		}
		blocks = append(blocks, b.String())
	}
	return strings.Join(blocks, "\n\n")
}

// Input is everything needed to build a summary prompt.
type Input struct {
	ClientName  string
	ProjectName string
	Responses   []model.SurveyResponse
	Services    []model.ProjectService
}

// Data returns the placeholder values for in.
func (in Input) Data() Data {
	return Data{
		KeyClientName:          in.ClientName,
		KeyProjectName:         in.ProjectName,
		KeySurveyContext:       BuildSurveyContext(in.Responses),
		KeyServiceDescriptions: BuildServiceDescriptions(in.Services),
	}
}

// TemplateStore persists the user's prompt template.
type TemplateStore interface {
	LoadTemplate(ctx context.Context) (string, bool, error)
	SaveTemplate(ctx context.Context, tmpl string) error
	ResetTemplate(ctx context.Context) error
}

// Templates resolves the active prompt template.
type Templates struct {
	store TemplateStore
}

// NewTemplates wraps store. A nil store always yields DefaultTemplate.
func NewTemplates(store TemplateStore) *Templates {
	return &Templates{store: store}
}

// Current returns the saved template, or DefaultTemplate when none is saved.
func (t *Templates) Current(ctx context.Context) (string, error) {
	if t.store == nil {
		return DefaultTemplate, nil
	}
	tmpl, ok, err := t.store.LoadTemplate(ctx)
	if err != nil {
		return "", eris.Wrap(err, "summary: load template")
	}
	if !ok || strings.TrimSpace(tmpl) == "" {
		return DefaultTemplate, nil
	}
	return tmpl, nil
}

// Save persists tmpl. Blank templates are rejected.
func (t *Templates) Save(ctx context.Context, tmpl string) error {
	if strings.TrimSpace(tmpl) == "" {
		return &model.ValidationError{Fields: []string{"template"}}
	}
	if t.store == nil {
		return eris.New("summary: no template store configured")
	}
	return eris.Wrap(t.store.SaveTemplate(ctx, tmpl), "summary: save template")
}

// Reset drops the saved template so DefaultTemplate applies.
func (t *Templates) Reset(ctx context.Context) error {
	if t.store == nil {
		return nil
	}
	return eris.Wrap(t.store.ResetTemplate(ctx), "summary: reset template")
}
