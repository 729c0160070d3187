package invoice

import (
	"fmt"
	"slices"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/angelofallars/sheetbill/internal/layout"
)

// Worksheet is the part of a sheet the rebuilder needs: its current cell
// text and a way to write formulas.
type Worksheet interface {
	Rows() ([][]string, error)
	SetFormula(cell, expr string) error
}

// Formula is an expression for one cell, without the leading "=".
type Formula struct {
	Cell string
	Expr string
}

func (f Formula) String() string { return f.Cell + ": =" + f.Expr }

// Section is a phase found in the sheet with its surviving task rows.
type Section struct {
	Label    string
	Header   int
	Tasks    []int
	Subtotal int
}

// Structure is the geometry of a sheet as found by Discover. Zero rows mean
// "not present".
type Structure struct {
	Sections             []Section
	OverallSubtotal      int
	ReimbursableHeader   int
	ReimbursableRows     []int
	ReimbursableSubtotal int
	TotalDue             int

	columns layout.Columns
}

// Discover classifies rows by the text in their description column and
// groups them into phase sections. It never relies on template positions,
// so it works on sheets whose rows were deleted or inserted.
func Discover(rows [][]string, l layout.Layout) Structure {
	s := Structure{columns: l.Columns}

	descCol := columnIndex(l.Columns.Description)
	dueCol := columnIndex(l.Columns.TotalDueLabel)
	phaseLabels := l.PhaseLabels()
	taskLabels := l.TaskLabels()
	costLabels := make(map[string]bool, len(l.Reimbursable.CostLabels))
	for _, label := range l.Reimbursable.CostLabels {
		costLabels[label] = true
	}

	var headers []int
	isTask := make(map[int]bool)
	inReimbursable := false

	for r := 1; r <= len(rows); r++ {
		desc := cellText(rows, r, descCol)

		switch {
		case desc == "":
		case phaseLabels[desc]:
			headers = append(headers, r)
		case taskLabels[desc]:
			isTask[r] = true
		case l.Reimbursable.Label != "" && desc == l.Reimbursable.Label:
			inReimbursable = true
			s.ReimbursableHeader = r
		case desc == l.SubtotalLabel:
			if inReimbursable {
				s.ReimbursableSubtotal = r
			} else {
				s.OverallSubtotal = r
			}
		case costLabels[desc]:
			s.ReimbursableRows = append(s.ReimbursableRows, r)
		}

		if l.TotalDueLabel != "" && strings.Contains(cellText(rows, r, dueCol), l.TotalDueLabel) {
			s.TotalDue = r
		}
	}

	for i, header := range headers {
		end := len(rows) + 1
		switch {
		case i+1 < len(headers):
			end = headers[i+1]
		case s.OverallSubtotal > header:
			end = s.OverallSubtotal
		}

		section := Section{Label: cellText(rows, header, descCol), Header: header}
		for r := header + 1; r < end; r++ {
			if isTask[r] {
				section.Tasks = append(section.Tasks, r)
				continue
			}
			if cellText(rows, r, descCol) == "" && len(section.Tasks) > 0 && section.Subtotal == 0 {
				section.Subtotal = r
			}
		}

		if len(section.Tasks) > 0 {
			s.Sections = append(s.Sections, section)
		}
	}

	return s
}

// TaskRows returns every task row of every section, ascending.
func (s Structure) TaskRows() []int {
	var rows []int
	for _, sec := range s.Sections {
		rows = append(rows, sec.Tasks...)
	}
	slices.Sort(rows)
	return rows
}

// Formulas derives every formula of the sheet from the structure alone.
func (s Structure) Formulas() []Formula {
	c := s.columns
	var out []Formula
	var subtotals []int

	for _, sec := range s.Sections {
		for _, r := range sec.Tasks {
			out = append(out, Formula{
				Cell: cellName(c.Cost, r),
				Expr: fmt.Sprintf("%s*%s", cellName(c.Units, r), cellName(c.Rate, r)),
			})
		}
		if sec.Subtotal > 0 {
			out = append(out, Formula{
				Cell: cellName(c.Total, sec.Subtotal),
				Expr: sumRange(c.Cost, slices.Min(sec.Tasks), slices.Max(sec.Tasks)),
			})
			subtotals = append(subtotals, sec.Subtotal)
		}
	}

	if s.OverallSubtotal > 0 {
		if tasks := s.TaskRows(); len(tasks) > 0 {
			out = append(out, Formula{Cell: cellName(c.Units, s.OverallSubtotal), Expr: sumList(c.Units, tasks)})
		}
		if len(subtotals) > 0 {
			slices.Sort(subtotals)
			out = append(out, Formula{Cell: cellName(c.Total, s.OverallSubtotal), Expr: sumList(c.Total, subtotals)})
		}
	}

	if s.ReimbursableSubtotal > 0 && len(s.ReimbursableRows) > 0 {
		out = append(out, Formula{
			Cell: cellName(c.Total, s.ReimbursableSubtotal),
			Expr: sumRange(c.Cost, slices.Min(s.ReimbursableRows), slices.Max(s.ReimbursableRows)),
		})
	}

	if s.TotalDue > 0 && s.OverallSubtotal > 0 {
		expr := cellName(c.Total, s.OverallSubtotal)
		if s.ReimbursableSubtotal > 0 {
			expr += "+" + cellName(c.Total, s.ReimbursableSubtotal)
		}
		out = append(out, Formula{Cell: cellName(c.Total, s.TotalDue), Expr: expr})
	}

	return out
}

// Rebuild rediscovers the sheet structure and writes fresh formulas.
// Running it again on its own output writes the same formulas.
func Rebuild(ws Worksheet, l layout.Layout) (Structure, error) {
	rows, err := ws.Rows()
	if err != nil {
		return Structure{}, fmt.Errorf("read sheet rows: %w", err)
	}

	s := Discover(rows, l)
	for _, f := range s.Formulas() {
		if err := ws.SetFormula(f.Cell, f.Expr); err != nil {
			return s, fmt.Errorf("write formula %s: %w", f, err)
		}
	}
	return s, nil
}

func cellName(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

func sumRange(col string, first, last int) string {
	return fmt.Sprintf("SUM(%s:%s)", cellName(col, first), cellName(col, last))
}

func sumList(col string, rows []int) string {
	parts := make([]string, 0, len(rows))
	for _, r := range rows {
		parts = append(parts, cellName(col, r))
	}
	return "SUM(" + strings.Join(parts, ",") + ")"
}

// columnIndex converts a column letter to its 1-based number, 0 if invalid.
func columnIndex(col string) int {
	if col == "" {
		return 0
	}
	n, err := excelize.ColumnNameToNumber(col)
	if err != nil {
		return 0
	}
	return n
}

// cellText returns the trimmed text at a 1-based row and column.
func cellText(rows [][]string, row, col int) string {
	if col < 1 || row < 1 || row > len(rows) {
		return ""
	}
	cells := rows[row-1]
	if col > len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[col-1])
}
