package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/sells-group/estimate-cli/internal/model"
	"github.com/sells-group/estimate-cli/internal/pricing"
)

var (
	colorGreen  = lipgloss.Color("#8ec07c")
	colorRed    = lipgloss.Color("#fb4934")
	colorDim    = lipgloss.Color("#928374")
	colorHeader = lipgloss.Color("#fe8019")

	styleHeader = lipgloss.NewStyle().Foreground(colorHeader).Bold(true)
	styleLabel  = lipgloss.NewStyle().Foreground(colorDim).Width(12)
	styleOK     = lipgloss.NewStyle().Foreground(colorGreen)
	styleFail   = lipgloss.NewStyle().Foreground(colorRed)
	styleDim    = lipgloss.NewStyle().Foreground(colorDim)
	styleBox    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorDim).Padding(0, 1)
)

func header(text string) string {
	upper := strings.ToUpper(text)
	return fmt.Sprintf("%s\n%s", styleHeader.Render(upper), styleDim.Render(strings.Repeat("─", len(upper))))
}

func field(label, value string) string {
	if value == "" {
		value = styleDim.Render("-")
	}
	return styleLabel.Render(label) + " " + value
}

// renderEstimate formats est for a terminal.
func renderEstimate(est *model.Estimate) string {
	var b strings.Builder

	b.WriteString(header("Estimate"))
	b.WriteString("\n")
	for _, line := range []string{
		field("Client", est.ClientName),
		field("Project", est.ProjectName),
		field("Project ID", est.ProjectID),
		field("Survey ID", est.SurveyID),
		field("Document", est.DocumentURL),
	} {
		b.WriteString(line + "\n")
	}
	if est.Error != "" {
		b.WriteString(field("Status", styleFail.Render(est.Status)) + "\n")
		b.WriteString(field("Error", styleFail.Render(est.Error)) + "\n")
	} else {
		b.WriteString(field("Status", styleOK.Render(est.Status)) + "\n")
	}

	if est.Pricing != nil {
		d := pricing.Format(est.Pricing)
		b.WriteString("\n" + header("Pricing") + "\n")
		b.WriteString(field("Revenue", d.Revenue) + "\n")
		b.WriteString(field("Cost", d.Cost) + "\n")
		b.WriteString(field("Margin", d.Margin) + "\n")
	}

	if len(est.Services) > 0 {
		services := make([]model.ProjectService, len(est.Services))
		copy(services, est.Services)
		sort.SliceStable(services, func(i, j int) bool { return services[i].Position < services[j].Position })

		b.WriteString("\n" + header("Services") + "\n")
		for _, s := range services {
			fmt.Fprintf(&b, "%s %s\n", styleDim.Render(fmt.Sprintf("%3d.", s.Position)), s.Name)
			fmt.Fprintf(&b, "     qty %g · %g hrs\n", s.Quantity, s.TotalHours)
		}
	}

	if est.Summary != "" {
		b.WriteString("\n" + header("Executive Summary") + "\n")
		b.WriteString(styleBox.Render(est.Summary) + "\n")
	}
	return b.String()
}
