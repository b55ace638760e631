package scopestack

import (
	"context"
	"net/url"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/estimate-cli/internal/model"
)

type projectServiceAttributes struct {
	Name               string  `json:"name"`
	Quantity           decimal `json:"quantity"`
	TotalHours         decimal `json:"total-hours"`
	ServiceDescription string  `json:"service-description"`
	Position           decimal `json:"position"`
}

// Page limits for paginated collections.
const (
	pageSize = 100
	maxPages = 50
)

// ListProjectServices returns every active service on a project in server
// order, following pagination. An empty slice is a valid result.
func (c *httpClient) ListProjectServices(ctx context.Context, projectID string) ([]model.ProjectService, error) {
	out := make([]model.ProjectService, 0)
	for page := 1; page <= maxPages; page++ {
		q := url.Values{}
		q.Set("filter[project]", projectID)
		q.Set("filter[active]", "true")
		q.Set("page[number]", strconv.Itoa(page))
		q.Set("page[size]", strconv.Itoa(pageSize))
		doc, err := c.get(ctx, "list project services", c.scoped("/project-services"), q)
		if err != nil {
			return nil, err
		}
		rs, err := doc.Many()
		if err != nil {
			return nil, eris.Wrap(err, "scopestack: list project services")
		}
		for _, r := range rs {
			var attrs projectServiceAttributes
			if err := r.Decode(&attrs); err != nil {
				return nil, err
			}
			out = append(out, model.ProjectService{
				ID:          r.ID,
				Name:        attrs.Name,
				Quantity:    attrs.Quantity.Float(),
				TotalHours:  attrs.TotalHours.Float(),
				Description: attrs.ServiceDescription,
				Position:    int(attrs.Position.Float()),
			})
		}
		if !doc.HasNext() || len(rs) < pageSize {
			return out, nil
		}
	}
	return nil, eris.Errorf("scopestack: project %s services exceed %d pages", projectID, maxPages)
}
