package scopestack

import (
	"context"
	"net/url"

	"github.com/rotisserie/eris"

	"github.com/sells-group/estimate-cli/internal/model"
)

// CreateProjectRequest holds the fields and relationships of a new project.
type CreateProjectRequest struct {
	Name             string
	MSADate          string
	AccountID        string
	ClientID         string
	PaymentTermID    string
	RateTableID      string
	SalesExecutiveID string
}

type projectAttributes struct {
	ProjectName     string  `json:"project-name"`
	MSADate         *string `json:"msa-date"`
	ContractRevenue decimal `json:"contract-revenue"`
	ContractCost    decimal `json:"contract-cost"`
	ContractMargin  decimal `json:"contract-margin"`
}

type projectCreateAttributes struct {
	ProjectName string  `json:"project-name"`
	MSADate     *string `json:"msa-date"`
}

// CreateProject creates a project linked to the account, client, payment
// term, rate table and, when set, the sales executive.
func (c *httpClient) CreateProject(ctx context.Context, req CreateProjectRequest) (*model.Project, error) {
	attrs := projectCreateAttributes{ProjectName: req.Name}
	if req.MSADate != "" {
		attrs.MSADate = &req.MSADate
	}
	rels := map[string]Identifier{
		"account":      {Type: "accounts", ID: req.AccountID},
		"client":       {Type: "clients", ID: req.ClientID},
		"payment-term": {Type: "payment-terms", ID: req.PaymentTermID},
		"rate-table":   {Type: "rate-tables", ID: req.RateTableID},
	}
	if req.SalesExecutiveID != "" {
		rels["sales-executive"] = Identifier{Type: "sales-executives", ID: req.SalesExecutiveID}
	}
	res, err := newResource("projects", attrs, rels)
	if err != nil {
		return nil, eris.Wrap(err, "scopestack: create project")
	}
	doc, err := c.post(ctx, "create project", c.scoped("/projects"), res)
	if err != nil {
		return nil, err
	}
	r, err := doc.One()
	if err != nil {
		return nil, eris.Wrap(err, "scopestack: create project")
	}
	return toProject(r)
}

// GetProject returns a project including its computed contract financials.
func (c *httpClient) GetProject(ctx context.Context, id string) (*model.Project, error) {
	doc, err := c.get(ctx, "get project", c.scoped("/projects/"+url.PathEscape(id)), nil)
	if err != nil {
		return nil, err
	}
	r, err := doc.One()
	if err != nil {
		return nil, eris.Wrap(err, "scopestack: get project")
	}
	return toProject(r)
}

func toProject(r Resource) (*model.Project, error) {
	var attrs projectAttributes
	if err := r.Decode(&attrs); err != nil {
		return nil, err
	}
	p := &model.Project{
		ID:   r.ID,
		Name: attrs.ProjectName,
		Pricing: &model.Pricing{
			Revenue: attrs.ContractRevenue.Ptr(),
			Cost:    attrs.ContractCost.Ptr(),
			Margin:  attrs.ContractMargin.Ptr(),
		},
	}
	if attrs.MSADate != nil {
		p.MSADate = *attrs.MSADate
	}
	if ids := r.Related("client"); len(ids) > 0 {
		p.ClientID = ids[0].ID
	}
	return p, nil
}

// CreateProjectContact adds the primary customer contact to a project.
func (c *httpClient) CreateProjectContact(ctx context.Context, projectID string, contact model.Contact) (*model.Contact, error) {
	if projectID == "" {
		return nil, eris.New("scopestack: project id is required for contact")
	}
	active := true
	title := contact.Title
	if title == "" {
		title = "Primary Contact"
	}
	res, err := newResource("project-contacts", contactAttributes{
		Active:      &active,
		Name:        contact.Name,
		Email:       contact.Email,
		Phone:       contact.Phone,
		Title:       title,
		ContactType: "primary_customer_contact",
	}, map[string]Identifier{
		"project": {Type: "projects", ID: projectID},
	})
	if err != nil {
		return nil, eris.Wrap(err, "scopestack: create project contact")
	}
	doc, err := c.post(ctx, "create project contact", c.scoped("/project-contacts"), res)
	if err != nil {
		return nil, err
	}
	r, err := doc.One()
	if err != nil {
		return nil, eris.Wrap(err, "scopestack: create project contact")
	}
	var attrs contactAttributes
	if err := r.Decode(&attrs); err != nil {
		return nil, err
	}
	return &model.Contact{ID: r.ID, Name: attrs.Name, Email: attrs.Email, Phone: attrs.Phone, Title: attrs.Title}, nil
}
