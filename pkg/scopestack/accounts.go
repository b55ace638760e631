package scopestack

import (
	"context"
	"net/url"

	"github.com/rotisserie/eris"

	"github.com/sells-group/estimate-cli/internal/model"
)

type meAttributes struct {
	AccountID   flexString `json:"account-id"`
	AccountSlug string     `json:"account-slug"`
	Name        string     `json:"name"`
}

// Me returns the account and user bound to the current credential.
func (c *httpClient) Me(ctx context.Context) (*model.Account, error) {
	doc, err := c.get(ctx, "get current user", "/v1/me", nil)
	if err != nil {
		return nil, err
	}
	r, err := doc.One()
	if err != nil {
		return nil, eris.Wrap(err, "scopestack: get current user")
	}
	var attrs meAttributes
	if err := r.Decode(&attrs); err != nil {
		return nil, err
	}
	return &model.Account{
		AccountID:   string(attrs.AccountID),
		AccountSlug: attrs.AccountSlug,
		UserName:    attrs.Name,
	}, nil
}

type defaultableAttributes struct {
	Name    string `json:"name"`
	Default bool   `json:"default"`
}

// ListRateTables returns the active rate tables.
func (c *httpClient) ListRateTables(ctx context.Context) ([]model.RateTable, error) {
	q := url.Values{}
	q.Set("filter[active]", "true")
	doc, err := c.get(ctx, "list rate tables", c.scoped("/rate-tables"), q)
	if err != nil {
		return nil, err
	}
	rs, err := doc.Many()
	if err != nil {
		return nil, eris.Wrap(err, "scopestack: list rate tables")
	}
	out := make([]model.RateTable, 0, len(rs))
	for _, r := range rs {
		var attrs defaultableAttributes
		if err := r.Decode(&attrs); err != nil {
			return nil, err
		}
		out = append(out, model.RateTable{ID: r.ID, Name: attrs.Name, Default: attrs.Default})
	}
	return out, nil
}

// ListPaymentTerms returns the active payment terms.
func (c *httpClient) ListPaymentTerms(ctx context.Context) ([]model.PaymentTerm, error) {
	q := url.Values{}
	q.Set("filter[active]", "true")
	doc, err := c.get(ctx, "list payment terms", c.scoped("/payment-terms"), q)
	if err != nil {
		return nil, err
	}
	rs, err := doc.Many()
	if err != nil {
		return nil, eris.Wrap(err, "scopestack: list payment terms")
	}
	out := make([]model.PaymentTerm, 0, len(rs))
	for _, r := range rs {
		var attrs defaultableAttributes
		if err := r.Decode(&attrs); err != nil {
			return nil, err
		}
		out = append(out, model.PaymentTerm{ID: r.ID, Name: attrs.Name, Default: attrs.Default})
	}
	return out, nil
}

type salesExecutiveAttributes struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// SearchSalesExecutives returns active sales executives whose name matches term.
func (c *httpClient) SearchSalesExecutives(ctx context.Context, term string) ([]model.SalesExecutive, error) {
	q := url.Values{}
	q.Set("filter[active]", "true")
	if term != "" {
		q.Set("filter[name]", term)
	}
	doc, err := c.get(ctx, "search sales executives", c.scoped("/sales-executives"), q)
	if err != nil {
		return nil, err
	}
	rs, err := doc.Many()
	if err != nil {
		return nil, eris.Wrap(err, "scopestack: search sales executives")
	}
	out := make([]model.SalesExecutive, 0, len(rs))
	for _, r := range rs {
		var attrs salesExecutiveAttributes
		if err := r.Decode(&attrs); err != nil {
			return nil, err
		}
		out = append(out, model.SalesExecutive{ID: r.ID, Name: attrs.Name, Email: attrs.Email})
	}
	return out, nil
}

type projectVariableAttributes struct {
	Name            string `json:"name"`
	Label           string `json:"label"`
	Required        bool   `json:"required"`
	VariableContext string `json:"variable-context"`
}

// ListProjectVariables returns the active custom variables of the account.
func (c *httpClient) ListProjectVariables(ctx context.Context) ([]model.ProjectVariable, error) {
	q := url.Values{}
	q.Set("filter[active]", "true")
	doc, err := c.get(ctx, "list project variables", c.scoped("/project-variables"), q)
	if err != nil {
		return nil, err
	}
	rs, err := doc.Many()
	if err != nil {
		return nil, eris.Wrap(err, "scopestack: list project variables")
	}
	out := make([]model.ProjectVariable, 0, len(rs))
	for _, r := range rs {
		var attrs projectVariableAttributes
		if err := r.Decode(&attrs); err != nil {
			return nil, err
		}
		out = append(out, model.ProjectVariable{
			ID:       r.ID,
			Name:     attrs.Name,
			Label:    attrs.Label,
			Required: attrs.Required,
			Context:  attrs.VariableContext,
		})
	}
	return out, nil
}
