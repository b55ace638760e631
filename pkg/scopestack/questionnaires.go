package scopestack

import (
	"context"
	"net/url"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/estimate-cli/internal/model"
)

type questionnaireAttributes struct {
	Name      string               `json:"name"`
	Questions []questionAttributes `json:"questions"`
}

type questionAttributes struct {
	ID            flexString           `json:"id"`
	Slug          string               `json:"slug"`
	Question      string               `json:"question"`
	Required      bool                 `json:"required"`
	ValueType     string               `json:"value-type"`
	SelectOptions []selectOptionRecord `json:"select-options"`
	DeletedAt     *time.Time           `json:"deleted-at"`
}

type selectOptionRecord struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ListQuestionnaires returns active, published questionnaires, optionally
// filtered by tag. Questions are not populated.
func (c *httpClient) ListQuestionnaires(ctx context.Context, tag string) ([]model.Questionnaire, error) {
	q := url.Values{}
	q.Set("filter[active]", "true")
	q.Set("filter[published]", "true")
	if tag != "" {
		q.Set("filter[tag-list]", tag)
	}
	doc, err := c.get(ctx, "list questionnaires", c.scoped("/questionnaires"), q)
	if err != nil {
		return nil, err
	}
	rs, err := doc.Many()
	if err != nil {
		return nil, eris.Wrap(err, "scopestack: list questionnaires")
	}
	out := make([]model.Questionnaire, 0, len(rs))
	for _, r := range rs {
		var attrs questionnaireAttributes
		if err := r.Decode(&attrs); err != nil {
			return nil, err
		}
		out = append(out, model.Questionnaire{ID: r.ID, Name: attrs.Name})
	}
	return out, nil
}

// GetQuestionnaire returns a questionnaire with its questions, including
// soft-deleted ones. Callers filter with Questionnaire.ActiveQuestions.
func (c *httpClient) GetQuestionnaire(ctx context.Context, id string) (*model.Questionnaire, error) {
	q := url.Values{}
	q.Set("include", "questions")
	doc, err := c.get(ctx, "get questionnaire", c.scoped("/questionnaires/"+url.PathEscape(id)), q)
	if err != nil {
		return nil, err
	}
	r, err := doc.One()
	if err != nil {
		return nil, eris.Wrap(err, "scopestack: get questionnaire")
	}
	var attrs questionnaireAttributes
	if err := r.Decode(&attrs); err != nil {
		return nil, err
	}

	questions := attrs.Questions
	if len(questions) == 0 {
		included := doc.includedIndex()
		for _, rid := range r.Related("questions") {
			inc, ok := included[rid.Type+"/"+rid.ID]
			if !ok {
				continue
			}
			var qa questionAttributes
			if err := inc.Decode(&qa); err != nil {
				return nil, err
			}
			if qa.ID == "" {
				qa.ID = flexString(inc.ID)
			}
			questions = append(questions, qa)
		}
	}

	out := &model.Questionnaire{ID: r.ID, Name: attrs.Name}
	for _, qa := range questions {
		question := model.Question{
			ID:        string(qa.ID),
			Slug:      qa.Slug,
			Question:  qa.Question,
			Required:  qa.Required,
			ValueType: model.ValueType(qa.ValueType),
			DeletedAt: qa.DeletedAt,
		}
		for _, opt := range qa.SelectOptions {
			question.SelectOptions = append(question.SelectOptions, model.SelectOption{Key: opt.Key, Value: opt.Value})
		}
		out.Questions = append(out.Questions, question)
	}
	return out, nil
}
