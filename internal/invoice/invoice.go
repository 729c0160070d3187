package invoice

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/angelofallars/sheetbill/internal/timesheet"
)

// Result is a generated invoice workbook and what went into it.
type Result struct {
	Workbook     *excelize.File
	ProjectCount int
	TotalHours   float64
	Period       time.Time
	Entries      []timesheet.Entry
	Excluded     int
	Projects     []ProjectSummary
}

// ProjectSummary describes the two sheets produced for one project.
type ProjectSummary struct {
	ProjectID     string
	Name          string
	Number        string
	Entries       int
	Hours         float64
	ActivePhases  []string
	RemovedPhases []string
	InvoiceSheet  string
	DetailSheet   string
}

// FileName is the suggested, unversioned output file name.
func (r *Result) FileName() string {
	return OutputFileName(r.Period)
}

func (r *Result) Bytes() ([]byte, error) {
	buf, err := r.Workbook.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Result) Save(path string) error {
	if err := r.Workbook.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	return nil
}

func (r *Result) Close() error {
	return r.Workbook.Close()
}
