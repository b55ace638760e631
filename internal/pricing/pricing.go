// Package pricing reads a project's computed financials and its service
// line items once provisioning has finished.
package pricing

import (
	"context"
	"math"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/estimate-cli/internal/model"
	"github.com/sells-group/estimate-cli/pkg/scopestack"
)

// Fetcher reads pricing and services for a project.
type Fetcher struct {
	client scopestack.Client
}

// New creates a Fetcher.
func New(client scopestack.Client) *Fetcher {
	return &Fetcher{client: client}
}

// FetchPricing returns the project's revenue, cost and margin. Figures the
// server omits stay nil.
func (f *Fetcher) FetchPricing(ctx context.Context, projectID string) (*model.Pricing, error) {
	p, err := f.client.GetProject(ctx, projectID)
	if err != nil {
		return nil, eris.Wrapf(err, "pricing: get project %s", projectID)
	}
	if p.Pricing == nil {
		return &model.Pricing{}, nil
	}
	return p.Pricing, nil
}

// FetchServices returns the project's active services. An empty result is
// valid and returned as an empty slice.
func (f *Fetcher) FetchServices(ctx context.Context, projectID string) ([]model.ProjectService, error) {
	services, err := f.client.ListProjectServices(ctx, projectID)
	if err != nil {
		return nil, eris.Wrapf(err, "pricing: list services %s", projectID)
	}
	if services == nil {
		services = []model.ProjectService{}
	}
	zap.L().Debug("pricing: fetched services",
		zap.String("project_id", projectID),
		zap.Int("count", len(services)),
	)
	return services, nil
}

// Display is the human-readable form of a Pricing snapshot.
type Display struct {
	Revenue string `json:"revenue"`
	Cost    string `json:"cost"`
	Margin  string `json:"margin"`
}

const unavailable = "n/a"

var printer = message.NewPrinter(language.AmericanEnglish)

// Format renders revenue and cost as USD and margin as a percentage with
// two decimals. Margin is already expressed in percent.
func Format(p *model.Pricing) Display {
	if p == nil {
		p = &model.Pricing{}
	}
	return Display{
		Revenue: FormatCurrency(p.Revenue),
		Cost:    FormatCurrency(p.Cost),
		Margin:  FormatPercent(p.Margin),
	}
}

// FormatCurrency renders v as US dollars, e.g. "$12,500.00".
func FormatCurrency(v *float64) string {
	if v == nil || math.IsNaN(*v) {
		return unavailable
	}
	if *v < 0 {
		return printer.Sprintf("-$%.2f", -*v)
	}
	return printer.Sprintf("$%.2f", *v)
}

// FormatPercent renders a percentage figure, e.g. 35.5 -> "35.50%".
func FormatPercent(v *float64) string {
	if v == nil || math.IsNaN(*v) {
		return unavailable
	}
	return printer.Sprintf("%.2f%%", *v)
}
