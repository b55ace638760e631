// Package export writes finished estimates to spreadsheet files.
package export

import (
	"io"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/estimate-cli/internal/model"
	"github.com/sells-group/estimate-cli/internal/pricing"
)

// Sheet names in the exported workbook.
const (
	SheetSummary   = "Summary"
	SheetServices  = "Services"
	SheetResponses = "Responses"
)

// Workbook builds the estimate workbook: a key/value summary sheet, the
// services in position order and the submitted survey answers.
func Workbook(est *model.Estimate) (*xlsx.File, error) {
	if est == nil {
		return nil, eris.New("export: nil estimate")
	}
	f := xlsx.NewFile()

	summary, err := f.AddSheet(SheetSummary)
	if err != nil {
		return nil, eris.Wrap(err, "export: add summary sheet")
	}
	display := pricing.Format(est.Pricing)
	for _, kv := range [][2]string{
		{"Client", est.ClientName},
		{"Project", est.ProjectName},
		{"Project ID", est.ProjectID},
		{"Document", est.DocumentURL},
		{"Revenue", display.Revenue},
		{"Cost", display.Cost},
		{"Margin", display.Margin},
		{"Status", est.Status},
		{"Executive Summary", est.Summary},
	} {
		addRow(summary, kv[0], kv[1])
	}

	services, err := f.AddSheet(SheetServices)
	if err != nil {
		return nil, eris.Wrap(err, "export: add services sheet")
	}
	addRow(services, "Position", "Service", "Quantity", "Hours", "Description")
	sorted := make([]model.ProjectService, len(est.Services))
	copy(sorted, est.Services)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Position < sorted[j].Position })
	var hours float64
	for _, s := range sorted {
		hours += s.TotalHours
		row := services.AddRow()
		row.AddCell().SetInt(s.Position)
		row.AddCell().SetString(s.Name)
		row.AddCell().SetFloat(s.Quantity)
		row.AddCell().SetFloat(s.TotalHours)
		row.AddCell().SetString(s.Description)
	}
	if len(sorted) > 0 {
		total := services.AddRow()
		total.AddCell()
		total.AddCell().SetString("Total")
		total.AddCell()
		total.AddCell().SetFloat(hours)
	}

	responses, err := f.AddSheet(SheetResponses)
	if err != nil {
		return nil, eris.Wrap(err, "export: add responses sheet")
	}
	addRow(responses, "Question ID", "Question", "Answer")
	for _, r := range est.Responses {
		addRow(responses, r.QuestionID, r.Question, r.Answer)
	}

	return f, nil
}

// WriteFile saves the estimate workbook to path.
func WriteFile(path string, est *model.Estimate) error {
	f, err := Workbook(est)
	if err != nil {
		return err
	}
	return eris.Wrapf(f.Save(path), "export: save %s", path)
}

// Write streams the estimate workbook to w.
func Write(w io.Writer, est *model.Estimate) error {
	f, err := Workbook(est)
	if err != nil {
		return err
	}
	return eris.Wrap(f.Write(w), "export: write workbook")
}

func addRow(sheet *xlsx.Sheet, values ...string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}
