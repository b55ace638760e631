package scopestack

import (
	"context"
	"net/url"

	"github.com/rotisserie/eris"

	"github.com/sells-group/estimate-cli/internal/model"
)

type clientAttributes struct {
	Name    string `json:"name"`
	Active  *bool  `json:"active,omitempty"`
	MSADate string `json:"msa-date,omitempty"`
}

type contactAttributes struct {
	Active      *bool  `json:"active,omitempty"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Title       string `json:"title"`
	ContactType string `json:"contact-type,omitempty"`
}

// SearchClients returns active clients whose name matches term, with their
// contacts expanded.
func (c *httpClient) SearchClients(ctx context.Context, term string) ([]model.Client, error) {
	q := url.Values{}
	q.Set("filter[name]", term)
	q.Set("filter[active]", "true")
	q.Set("include", "contacts")
	doc, err := c.get(ctx, "search clients", c.scoped("/clients"), q)
	if err != nil {
		return nil, err
	}
	rs, err := doc.Many()
	if err != nil {
		return nil, eris.Wrap(err, "scopestack: search clients")
	}

	included := doc.includedIndex()
	out := make([]model.Client, 0, len(rs))
	for _, r := range rs {
		client, err := toClient(r)
		if err != nil {
			return nil, err
		}
		for _, id := range r.Related("contacts") {
			inc, ok := included[id.Type+"/"+id.ID]
			if !ok {
				continue
			}
			var attrs contactAttributes
			if err := inc.Decode(&attrs); err != nil {
				return nil, err
			}
			if attrs.Active != nil && !*attrs.Active {
				continue
			}
			client.Contacts = append(client.Contacts, model.Contact{
				ID:    inc.ID,
				Name:  attrs.Name,
				Email: attrs.Email,
				Phone: attrs.Phone,
				Title: attrs.Title,
			})
		}
		out = append(out, client)
	}
	return out, nil
}

// CreateClient creates an active client under the given account.
func (c *httpClient) CreateClient(ctx context.Context, accountID, name string) (*model.Client, error) {
	if accountID == "" {
		return nil, eris.New("scopestack: account id is required for client")
	}
	if name == "" {
		return nil, eris.New("scopestack: client name is required")
	}
	active := true
	res, err := newResource("clients", clientAttributes{Name: name, Active: &active}, map[string]Identifier{
		"account": {Type: "accounts", ID: accountID},
	})
	if err != nil {
		return nil, eris.Wrap(err, "scopestack: create client")
	}
	doc, err := c.post(ctx, "create client", c.scoped("/clients"), res)
	if err != nil {
		return nil, err
	}
	r, err := doc.One()
	if err != nil {
		return nil, eris.Wrap(err, "scopestack: create client")
	}
	client, err := toClient(r)
	if err != nil {
		return nil, err
	}
	return &client, nil
}

func toClient(r Resource) (model.Client, error) {
	var attrs clientAttributes
	if err := r.Decode(&attrs); err != nil {
		return model.Client{}, err
	}
	return model.Client{ID: r.ID, Name: attrs.Name, MSADate: attrs.MSADate}, nil
}
