package scopestack

import (
	"context"
	"net/url"

	"github.com/rotisserie/eris"

	"github.com/sells-group/estimate-cli/internal/model"
)

// CreateSurveyRequest holds a survey submission. The survey is named after
// Name with a " Survey" suffix.
type CreateSurveyRequest struct {
	Name            string
	AccountID       string
	ProjectID       string
	QuestionnaireID string
	Responses       []model.SurveyResponse
}

type surveyAttributes struct {
	Name      string                 `json:"name"`
	Status    string                 `json:"status,omitempty"`
	Responses []model.SurveyResponse `json:"responses,omitempty"`
}

type recommendationAttributes struct {
	Name         string  `json:"name"`
	ServiceName  string  `json:"service-name"`
	Quantity     decimal `json:"quantity"`
	ItemQuantity decimal `json:"item-quantity"`
}

// CreateSurvey submits a survey with its responses against a project and
// questionnaire.
func (c *httpClient) CreateSurvey(ctx context.Context, req CreateSurveyRequest) (*model.Survey, error) {
	if req.ProjectID == "" || req.QuestionnaireID == "" {
		return nil, eris.New("scopestack: project and questionnaire are required for survey")
	}
	res, err := newResource("surveys", surveyAttributes{
		Name:      req.Name + " Survey",
		Responses: req.Responses,
	}, map[string]Identifier{
		"account":       {Type: "accounts", ID: req.AccountID},
		"questionnaire": {Type: "questionnaires", ID: req.QuestionnaireID},
		"project":       {Type: "projects", ID: req.ProjectID},
	})
	if err != nil {
		return nil, eris.Wrap(err, "scopestack: create survey")
	}
	doc, err := c.post(ctx, "create survey", c.scoped("/surveys"), res)
	if err != nil {
		return nil, err
	}
	return oneSurvey(doc, "create survey")
}

// CalculateSurvey asks the server to compute recommendations. The survey
// moves to the calculating state.
func (c *httpClient) CalculateSurvey(ctx context.Context, id string) (*model.Survey, error) {
	doc, err := c.put(ctx, "calculate survey", c.scoped("/surveys/"+url.PathEscape(id)+"/calculate"))
	if err != nil {
		return nil, err
	}
	if doc.Empty() {
		return &model.Survey{ID: id, Status: model.SurveyStatusCalculating}, nil
	}
	return oneSurvey(doc, "calculate survey")
}

// GetSurvey returns the survey and its current calculation status.
func (c *httpClient) GetSurvey(ctx context.Context, id string) (*model.Survey, error) {
	doc, err := c.get(ctx, "get survey", c.scoped("/surveys/"+url.PathEscape(id)), nil)
	if err != nil {
		return nil, err
	}
	return oneSurvey(doc, "get survey")
}

// ListSurveyRecommendations returns the recommendations computed for a survey.
func (c *httpClient) ListSurveyRecommendations(ctx context.Context, id string) ([]model.Recommendation, error) {
	doc, err := c.get(ctx, "list survey recommendations", c.scoped("/surveys/"+url.PathEscape(id)+"/recommendations"), nil)
	if err != nil {
		return nil, err
	}
	return recommendations(doc)
}

// ApplySurvey applies the calculated recommendations to the project and
// returns the applied set.
func (c *httpClient) ApplySurvey(ctx context.Context, id string) ([]model.Recommendation, error) {
	doc, err := c.put(ctx, "apply survey", c.scoped("/surveys/"+url.PathEscape(id)+"/apply"))
	if err != nil {
		return nil, err
	}
	return recommendations(doc)
}

func oneSurvey(doc *Document, op string) (*model.Survey, error) {
	r, err := doc.One()
	if err != nil {
		return nil, eris.Wrapf(err, "scopestack: %s", op)
	}
	var attrs surveyAttributes
	if err := r.Decode(&attrs); err != nil {
		return nil, err
	}
	return &model.Survey{
		ID:        r.ID,
		Name:      attrs.Name,
		Status:    model.SurveyStatus(attrs.Status),
		Responses: attrs.Responses,
	}, nil
}

// recommendations reads recommendation resources from the primary data, or
// from included resources when the primary data is the survey itself.
func recommendations(doc *Document) ([]model.Recommendation, error) {
	rs, err := doc.Many()
	if err != nil {
		return nil, eris.Wrap(err, "scopestack: decode recommendations")
	}
	if len(rs) == 1 && rs[0].Type == "surveys" {
		rs = doc.Included
	}
	out := make([]model.Recommendation, 0, len(rs))
	for _, r := range rs {
		var attrs recommendationAttributes
		if err := r.Decode(&attrs); err != nil {
			return nil, err
		}
		rec := model.Recommendation{ID: r.ID, Type: r.Type, Name: attrs.Name, Quantity: attrs.Quantity.Float()}
		if rec.Name == "" {
			rec.Name = attrs.ServiceName
		}
		if attrs.Quantity.Ptr() == nil {
			rec.Quantity = attrs.ItemQuantity.Float()
		}
		out = append(out, rec)
	}
	return out, nil
}
