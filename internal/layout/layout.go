// Package layout describes the fixed geometry of the invoice template sheet.
//
// A Layout is the template's initial geometry, before any rows are removed.
// Row numbers are 1-based and columns use spreadsheet letters.
package layout

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// Layout is an immutable description of the invoice template.
type Layout struct {
	SheetNameMax int `yaml:"sheet_name_max"`

	Header  Header  `yaml:"header"`
	Columns Columns `yaml:"columns"`

	Tasks         []Task  `yaml:"tasks"`
	Phases        []Phase `yaml:"phases"`
	MeetingsPhase string  `yaml:"meetings_phase"`

	SubtotalLabel      string       `yaml:"subtotal_label"`
	OverallSubtotalRow int          `yaml:"overall_subtotal_row"`
	Reimbursable       Reimbursable `yaml:"reimbursable"`

	TotalDueLabel string `yaml:"total_due_label"`
	TotalDueRow   int    `yaml:"total_due_row"`

	Footer Footer `yaml:"footer"`
	Logo   Logo   `yaml:"logo"`

	// SpacerRow is where one blank row is inserted beneath the logo.
	SpacerRow int `yaml:"spacer_row"`
}

// Header holds the rows of the single-value fields above the line items.
type Header struct {
	ProjectNameRow   int `yaml:"project_name_row"`
	ProjectNumberRow int `yaml:"project_number_row"`
	InvoiceDateRow   int `yaml:"invoice_date_row"`
	InvoiceNumberRow int `yaml:"invoice_number_row"`
}

type Columns struct {
	Description string `yaml:"description"`
	Value       string `yaml:"value"`
	Units       string `yaml:"units"`
	Rate        string `yaml:"rate"`
	Cost        string `yaml:"cost"`
	Total       string `yaml:"total"`
	// TotalDueLabel is the column holding the "Total Amount Due" caption.
	TotalDueLabel string `yaml:"total_due_label"`
}

// Task is a billable task code and the description printed on its row.
type Task struct {
	Code  string `yaml:"code"`
	Label string `yaml:"label"`
}

// TaskRow places one task code inside a phase section.
type TaskRow struct {
	Task string `yaml:"task"`
	Row  int    `yaml:"row"`
}

type Phase struct {
	Code     string    `yaml:"code"`
	Label    string    `yaml:"label"`
	Header   int       `yaml:"header"`
	Tasks    []TaskRow `yaml:"tasks"`
	Subtotal int       `yaml:"subtotal"`
}

type Reimbursable struct {
	Label       string   `yaml:"label"`
	HeaderRow   int      `yaml:"header_row"`
	Rows        []int    `yaml:"rows"`
	CostLabels  []string `yaml:"cost_labels"`
	SubtotalRow int      `yaml:"subtotal_row"`
}

// Footer is located by Marker text and resized to Height points.
type Footer struct {
	Row    int     `yaml:"row"`
	Marker string  `yaml:"marker"`
	Text   string  `yaml:"text"`
	Height float64 `yaml:"height"`
}

type Logo struct {
	Cell   string `yaml:"cell"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}

var standardTasks = []string{"DP", "PM", "3-D", "D-D"}

func standardPhase(code, label string, header int) Phase {
	p := Phase{Code: code, Label: label, Header: header, Subtotal: header + len(standardTasks) + 1}
	for i, task := range standardTasks {
		p.Tasks = append(p.Tasks, TaskRow{Task: task, Row: header + 1 + i})
	}
	return p
}

// Default returns the geometry of the stock invoice template.
func Default() Layout {
	return Layout{
		SheetNameMax: 31,
		Header: Header{
			ProjectNameRow:   3,
			ProjectNumberRow: 4,
			InvoiceDateRow:   5,
			InvoiceNumberRow: 6,
		},
		Columns: Columns{
			Description:   "B",
			Value:         "C",
			Units:         "C",
			Rate:          "D",
			Cost:          "E",
			Total:         "F",
			TotalDueLabel: "D",
		},
		Tasks: []Task{
			{Code: "DP", Label: "Design Principal"},
			{Code: "PM", Label: "Project Management"},
			{Code: "3-D", Label: "3D Model"},
			{Code: "D-D", Label: "Design and Documentation"},
			{Code: "M", Label: "Meetings"},
		},
		Phases: []Phase{
			standardPhase("PD", "Pre-Design", 10),
			standardPhase("SD", "Schematic Design", 16),
			standardPhase("DD", "Design Development", 22),
			standardPhase("CD", "Construction Documents", 28),
			standardPhase("CA", "Construction Administration", 34),
			{
				Code:     "M",
				Label:    "Meetings w/ Client or Contractor",
				Header:   40,
				Tasks:    []TaskRow{{Task: "M", Row: 41}},
				Subtotal: 42,
			},
		},
		MeetingsPhase:      "M",
		SubtotalLabel:      "Subtotal",
		OverallSubtotalRow: 43,
		Reimbursable: Reimbursable{
			Label:       "Reimbursable",
			HeaderRow:   44,
			Rows:        []int{45, 46, 47},
			CostLabels:  []string{"CCI Engineering", "Phipps Printing", "In house plotting(s.f.)"},
			SubtotalRow: 48,
		},
		TotalDueLabel: "Total Amount Due",
		TotalDueRow:   50,
		Footer: Footer{
			Row:    52,
			Marker: "CCI Design Inc.",
			Text:   "Please make checks payable to CCI Design Inc. Payment is due within 30 days of the invoice date.",
			Height: 30,
		},
		Logo:      Logo{Cell: "A1", Width: 150, Height: 40},
		SpacerRow: 2,
	}
}

// Load reads a layout from a YAML file. Fields absent from the file keep
// their Default values.
func Load(path string) (Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Layout{}, fmt.Errorf("read layout: %w", err)
	}

	l := Default()
	if err := yaml.Unmarshal(data, &l); err != nil {
		return Layout{}, fmt.Errorf("parse layout %s: %w", path, err)
	}

	if err := l.Validate(); err != nil {
		return Layout{}, fmt.Errorf("layout %s: %w", path, err)
	}
	return l, nil
}

// Validate checks that the layout is internally consistent.
func (l Layout) Validate() error {
	var errs []error

	if l.SheetNameMax < 4 {
		errs = append(errs, fmt.Errorf("sheet_name_max must be at least 4, got %d", l.SheetNameMax))
	}
	if len(l.Phases) == 0 {
		errs = append(errs, errors.New("at least one phase is required"))
	}
	if l.Columns.Description == "" || l.Columns.Units == "" || l.Columns.Rate == "" ||
		l.Columns.Cost == "" || l.Columns.Total == "" {
		errs = append(errs, errors.New("description, units, rate, cost and total columns are required"))
	}

	seen := make(map[int]string)
	claim := func(row int, what string) {
		if row <= 0 {
			errs = append(errs, fmt.Errorf("%s: row must be positive, got %d", what, row))
			return
		}
		if prev, ok := seen[row]; ok {
			errs = append(errs, fmt.Errorf("%s: row %d already used by %s", what, row, prev))
			return
		}
		seen[row] = what
	}

	for _, p := range l.Phases {
		claim(p.Header, "phase "+p.Code+" header")
		if len(p.Tasks) == 0 {
			errs = append(errs, fmt.Errorf("phase %s has no task rows", p.Code))
		}
		for _, tr := range p.Tasks {
			if _, ok := l.TaskLabel(tr.Task); !ok {
				errs = append(errs, fmt.Errorf("phase %s references unknown task %q", p.Code, tr.Task))
			}
			claim(tr.Row, "phase "+p.Code+" task "+tr.Task)
		}
		claim(p.Subtotal, "phase "+p.Code+" subtotal")
	}
	if l.MeetingsPhase != "" && !slices.Contains(l.PhaseCodes(), l.MeetingsPhase) {
		errs = append(errs, fmt.Errorf("meetings phase %q is not a phase", l.MeetingsPhase))
	}
	claim(l.OverallSubtotalRow, "overall subtotal")

	return errors.Join(errs...)
}

// TaskCodes returns the billable task codes in declaration order.
func (l Layout) TaskCodes() []string {
	codes := make([]string, 0, len(l.Tasks))
	for _, t := range l.Tasks {
		codes = append(codes, t.Code)
	}
	return codes
}

// PhaseCodes returns the billable phase codes in template order.
func (l Layout) PhaseCodes() []string {
	codes := make([]string, 0, len(l.Phases))
	for _, p := range l.Phases {
		codes = append(codes, p.Code)
	}
	return codes
}

func (l Layout) TaskLabel(code string) (string, bool) {
	for _, t := range l.Tasks {
		if t.Code == code {
			return t.Label, true
		}
	}
	return "", false
}

// PhaseLabels is the vocabulary identifying phase header rows.
func (l Layout) PhaseLabels() map[string]bool {
	labels := make(map[string]bool, len(l.Phases))
	for _, p := range l.Phases {
		labels[p.Label] = true
	}
	return labels
}

// TaskLabels is the vocabulary identifying task rows.
func (l Layout) TaskLabels() map[string]bool {
	labels := make(map[string]bool, len(l.Tasks))
	for _, t := range l.Tasks {
		labels[t.Label] = true
	}
	return labels
}

func (l Layout) IsMeetings(phase string) bool {
	return l.MeetingsPhase != "" && phase == l.MeetingsPhase
}
