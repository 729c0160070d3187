package invoice

import (
	"errors"
	"fmt"
	"image"
	_ "image/png"
	"os"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/angelofallars/sheetbill/internal/layout"
	"github.com/angelofallars/sheetbill/internal/timesheet"
)

var detailHeader = []string{"Date", "E", "H", "P", "T", "WID"}

var detailWidths = map[string]float64{
	"A": 30.6640625,
	"B": 4.33203125,
	"C": 4.1640625,
	"D": 3.5,
	"E": 4,
	"F": 37,
}

// Assembler turns a template workbook into one invoice and one detail sheet
// per project.
type Assembler struct {
	layout   layout.Layout
	logoPath string
	logger   *zap.Logger
}

func NewAssembler(l layout.Layout, logoPath string, logger *zap.Logger) *Assembler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assembler{layout: l, logoPath: logoPath, logger: logger}
}

// Assemble expects the template to be the first sheet of wb. The template is
// removed once every project has been written.
func (a *Assembler) Assemble(
	wb *excelize.File,
	matrix timesheet.HourMatrix,
	details timesheet.DetailList,
	invoiceDate time.Time,
) ([]ProjectSummary, error) {
	templateName := wb.GetSheetName(0)
	if templateName == "" {
		return nil, errors.New("template workbook has no sheets")
	}
	templateIndex, err := wb.GetSheetIndex(templateName)
	if err != nil {
		return nil, err
	}

	styles, err := newDetailStyles(wb)
	if err != nil {
		return nil, err
	}

	namer := NewSheetNamer(a.layout.SheetNameMax)
	namer.Reserve(templateName)

	summaries := make([]ProjectSummary, 0, len(matrix))
	for _, id := range matrix.Projects() {
		key, err := timesheet.ParseProjectID(id)
		if err != nil {
			return nil, err
		}
		hours := matrix[id]
		plan := Prune(hours, a.layout)

		invoiceName := namer.Name(id, InvoiceSuffix)
		if err := a.writeInvoice(wb, templateIndex, invoiceName, key, hours, plan, invoiceDate); err != nil {
			return nil, fmt.Errorf("invoice sheet for %s: %w", id, err)
		}

		detailName := namer.Name(id, DetailSuffix)
		if err := writeDetail(wb, detailName, details[id], styles); err != nil {
			return nil, fmt.Errorf("detail sheet for %s: %w", id, err)
		}

		summary := ProjectSummary{
			ProjectID:     id,
			Name:          key.Name,
			Number:        key.Number,
			Entries:       len(details[id]),
			Hours:         hours.Total(),
			ActivePhases:  plan.ActivePhases(a.layout),
			RemovedPhases: plan.RemovedPhases,
			InvoiceSheet:  invoiceName,
			DetailSheet:   detailName,
		}
		summaries = append(summaries, summary)

		a.logger.Debug("project sheets written",
			zap.String("project", id),
			zap.String("invoice_sheet", invoiceName),
			zap.String("detail_sheet", detailName),
			zap.Float64("hours", summary.Hours),
			zap.Strings("active_phases", summary.ActivePhases),
			zap.Int("rows_removed", len(plan.Rows)),
		)
	}

	if err := wb.DeleteSheet(templateName); err != nil {
		return nil, fmt.Errorf("remove template sheet: %w", err)
	}
	wb.SetActiveSheet(0)

	return summaries, nil
}

func (a *Assembler) writeInvoice(
	wb *excelize.File,
	templateIndex int,
	name string,
	key timesheet.ProjectKey,
	hours timesheet.Hours,
	plan Plan,
	invoiceDate time.Time,
) error {
	index, err := wb.NewSheet(name)
	if err != nil {
		return err
	}
	if err := wb.CopySheet(templateIndex, index); err != nil {
		return fmt.Errorf("copy template: %w", err)
	}

	if err := a.populate(wb, name, key, hours, invoiceDate); err != nil {
		return err
	}

	for _, row := range plan.Rows {
		if err := wb.RemoveRow(name, row); err != nil {
			return fmt.Errorf("remove row %d: %w", row, err)
		}
	}

	if err := a.decorate(wb, name); err != nil {
		return err
	}

	_, err = Rebuild(excelSheet{f: wb, name: name}, a.layout)
	return err
}

func (a *Assembler) populate(
	wb *excelize.File,
	sheet string,
	key timesheet.ProjectKey,
	hours timesheet.Hours,
	invoiceDate time.Time,
) error {
	l := a.layout
	values := []struct {
		row   int
		value any
	}{
		{l.Header.ProjectNameRow, key.Name},
		{l.Header.ProjectNumberRow, key.Number},
		{l.Header.InvoiceDateRow, FormatInvoiceDate(invoiceDate)},
		{l.Header.InvoiceNumberRow, key.Number + " INV ##"},
	}
	for _, v := range values {
		if v.row <= 0 {
			continue
		}
		if err := wb.SetCellValue(sheet, cellName(l.Columns.Value, v.row), v.value); err != nil {
			return err
		}
	}

	for _, phase := range l.Phases {
		if l.IsMeetings(phase.Code) {
			if len(phase.Tasks) > 0 {
				cell := cellName(l.Columns.Units, phase.Tasks[0].Row)
				if err := wb.SetCellValue(sheet, cell, hours.PhaseTotal(phase.Code)); err != nil {
					return err
				}
			}
			continue
		}
		for _, tr := range phase.Tasks {
			cell := cellName(l.Columns.Units, tr.Row)
			if err := wb.SetCellValue(sheet, cell, hours.Get(tr.Task, phase.Code)); err != nil {
				return err
			}
		}
	}
	return nil
}

// decorate applies the cosmetic adjustments made after pruning.
func (a *Assembler) decorate(wb *excelize.File, sheet string) error {
	l := a.layout

	if l.SpacerRow > 0 {
		if err := wb.InsertRows(sheet, l.SpacerRow, 1); err != nil {
			return fmt.Errorf("insert spacer row: %w", err)
		}
	}

	if err := hideGridLines(wb, sheet); err != nil {
		return err
	}

	if err := a.addLogo(wb, sheet); err != nil {
		return err
	}

	if l.Footer.Marker == "" || l.Footer.Height <= 0 {
		return nil
	}
	rows, err := wb.GetRows(sheet)
	if err != nil {
		return err
	}
	for i, row := range rows {
		for _, cell := range row {
			if strings.Contains(cell, l.Footer.Marker) {
				return wb.SetRowHeight(sheet, i+1, l.Footer.Height)
			}
		}
	}
	return nil
}

func (a *Assembler) addLogo(wb *excelize.File, sheet string) error {
	if a.logoPath == "" || a.layout.Logo.Cell == "" {
		return nil
	}
	f, err := os.Open(a.logoPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open logo: %w", err)
	}
	cfg, _, err := image.DecodeConfig(f)
	f.Close()
	if err != nil {
		a.logger.Warn("logo not attached", zap.String("path", a.logoPath), zap.Error(err))
		return nil
	}

	opts := &excelize.GraphicOptions{ScaleX: 1, ScaleY: 1}
	if w := a.layout.Logo.Width; w > 0 && cfg.Width > 0 {
		opts.ScaleX = float64(w) / float64(cfg.Width)
	}
	if h := a.layout.Logo.Height; h > 0 && cfg.Height > 0 {
		opts.ScaleY = float64(h) / float64(cfg.Height)
	}
	if err := wb.AddPicture(sheet, a.layout.Logo.Cell, a.logoPath, opts); err != nil {
		return fmt.Errorf("attach logo: %w", err)
	}
	return nil
}

func hideGridLines(wb *excelize.File, sheet string) error {
	show := false
	if err := wb.SetSheetView(sheet, 0, &excelize.ViewOptions{ShowGridLines: &show}); err != nil {
		return fmt.Errorf("hide gridlines: %w", err)
	}
	return nil
}

type detailStyles struct {
	header int
	total  int
}

func newDetailStyles(wb *excelize.File) (detailStyles, error) {
	header, err := wb.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"1F3864"}},
	})
	if err != nil {
		return detailStyles{}, err
	}
	total, err := wb.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return detailStyles{}, err
	}
	return detailStyles{header: header, total: total}, nil
}

func writeDetail(wb *excelize.File, name string, entries []timesheet.Entry, styles detailStyles) error {
	if _, err := wb.NewSheet(name); err != nil {
		return err
	}

	header := make([]any, len(detailHeader))
	for i, h := range detailHeader {
		header[i] = h
	}
	if err := wb.SetSheetRow(name, "A1", &header); err != nil {
		return err
	}
	if err := wb.SetCellStyle(name, "A1", "F1", styles.header); err != nil {
		return err
	}

	for i, e := range entries {
		date := ""
		if e.HasDate() {
			date = FormatDetailDate(e.Date)
		}
		row := []any{date, e.Employee, e.Hours, e.Phase, e.Task, e.WID}
		if err := wb.SetSheetRow(name, cellName("A", i+2), &row); err != nil {
			return err
		}
	}

	if len(entries) > 0 {
		totalRow := len(entries) + 2
		label, sum := cellName("A", totalRow), cellName("C", totalRow)
		if err := wb.SetCellValue(name, label, "Total"); err != nil {
			return err
		}
		if err := wb.SetCellFormula(name, sum, sumRange("C", 2, totalRow-1)); err != nil {
			return err
		}
		for _, cell := range []string{label, sum} {
			if err := wb.SetCellStyle(name, cell, cell, styles.total); err != nil {
				return err
			}
		}
	}

	for col, width := range detailWidths {
		if err := wb.SetColWidth(name, col, col, width); err != nil {
			return err
		}
	}
	return hideGridLines(wb, name)
}

// excelSheet adapts one sheet of an excelize workbook to Worksheet.
type excelSheet struct {
	f    *excelize.File
	name string
}

func (s excelSheet) Rows() ([][]string, error) {
	return s.f.GetRows(s.name, excelize.Options{RawCellValue: true})
}

func (s excelSheet) SetFormula(cell, expr string) error {
	return s.f.SetCellFormula(s.name, cell, expr)
}
