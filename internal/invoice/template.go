package invoice

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/angelofallars/sheetbill/internal/layout"
)

const templateSheetName = "Invoice"

// NewTemplate builds a blank invoice template matching l: captions, phase and
// task labels, the reimbursable block, the total line, the footer and the
// formulas. Rates are left for the user to fill in.
func NewTemplate(l layout.Layout) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), templateSheetName); err != nil {
		f.Close()
		return nil, err
	}

	if err := writeTemplate(f, templateSheetName, l); err != nil {
		f.Close()
		return nil, err
	}

	if _, err := Rebuild(excelSheet{f: f, name: templateSheetName}, l); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func writeTemplate(f *excelize.File, sheet string, l layout.Layout) error {
	c := l.Columns
	set := func(col string, row int, value any) error {
		if row <= 0 || col == "" {
			return nil
		}
		if err := f.SetCellValue(sheet, cellName(col, row), value); err != nil {
			return fmt.Errorf("template cell %s: %w", cellName(col, row), err)
		}
		return nil
	}

	captions := []struct {
		row  int
		text string
	}{
		{l.Header.ProjectNameRow, "Project Name:"},
		{l.Header.ProjectNumberRow, "Project Number:"},
		{l.Header.InvoiceDateRow, "Invoice Date:"},
		{l.Header.InvoiceNumberRow, "Invoice Number:"},
	}
	for _, caption := range captions {
		if err := set(c.Description, caption.row, caption.text); err != nil {
			return err
		}
	}

	for _, phase := range l.Phases {
		if err := set(c.Description, phase.Header, phase.Label); err != nil {
			return err
		}
		for _, tr := range phase.Tasks {
			label, _ := l.TaskLabel(tr.Task)
			if err := set(c.Description, tr.Row, label); err != nil {
				return err
			}
		}
	}

	if err := set(c.Description, l.OverallSubtotalRow, l.SubtotalLabel); err != nil {
		return err
	}

	r := l.Reimbursable
	if err := set(c.Description, r.HeaderRow, r.Label); err != nil {
		return err
	}
	for i, row := range r.Rows {
		if i >= len(r.CostLabels) {
			break
		}
		if err := set(c.Description, row, r.CostLabels[i]); err != nil {
			return err
		}
	}
	if r.HeaderRow > 0 {
		if err := set(c.Description, r.SubtotalRow, l.SubtotalLabel); err != nil {
			return err
		}
	}

	if err := set(c.TotalDueLabel, l.TotalDueRow, l.TotalDueLabel); err != nil {
		return err
	}

	footer := l.Footer.Text
	if footer == "" {
		footer = l.Footer.Marker
	}
	return set(c.Description, l.Footer.Row, footer)
}
