package timesheet

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Columns maps entry fields to zero-based column indexes of the input table.
// Rows narrower than Width are skipped.
type Columns struct {
	ProjectID int
	Date      int
	Employee  int
	Hours     int
	Task      int
	Phase     int
	WID       int
	Width     int
}

var (
	// StandardColumns is the plain detail table:
	// Project ID, Date, Employee, Hours, Task, Phase, WID.
	StandardColumns = Columns{ProjectID: 0, Date: 1, Employee: 2, Hours: 3, Task: 4, Phase: 5, WID: 6, Width: 7}

	// AdjustedColumns is the editable detail table where Total Adjusted
	// Hours replaces the raw hours:
	// Project ID, Date, Employee, Hours, Hours Adjusted, Total Adjusted Hours, Task, Phase, WID.
	AdjustedColumns = Columns{ProjectID: 0, Date: 1, Employee: 2, Hours: 5, Task: 6, Phase: 7, WID: 8, Width: 9}
)

const adjustedHoursHeader = "total adjusted hours"

// EditSheet is the sheet of a monthly report workbook that holds the
// editable detail table. Invoices are generated from it when present.
const EditSheet = "3 Timesheet Detail (Edit)"

// DetectColumns picks the column variant from a header row.
func DetectColumns(header []any) Columns {
	for _, cell := range header {
		if strings.EqualFold(strings.TrimSpace(cellString(cell)), adjustedHoursHeader) {
			return AdjustedColumns
		}
	}
	return StandardColumns
}

// dateLayouts accepts one- or two-digit month and day, plus the ISO forms
// legacy .xls readers render date cells as.
var dateLayouts = []string{"1/2/2006", "2006-01-02", time.RFC3339}

// ReadEntries converts raw table rows into entries. The first row is the
// header.
func ReadEntries(rows [][]any, cols Columns) ([]Entry, error) {
	if len(rows) < 2 {
		return nil, ErrInputMissing
	}

	entries := make([]Entry, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) < cols.Width {
			continue
		}

		entries = append(entries, Entry{
			ProjectID: strings.TrimSpace(cellString(row[cols.ProjectID])),
			Date:      parseDate(row[cols.Date]),
			Employee:  strings.TrimSpace(cellString(row[cols.Employee])),
			Hours:     parseHours(row[cols.Hours]),
			Task:      strings.ToUpper(strings.TrimSpace(cellString(row[cols.Task]))),
			Phase:     strings.ToUpper(strings.TrimSpace(cellString(row[cols.Phase]))),
			WID:       strings.TrimSpace(cellString(row[cols.WID])),
		})
	}

	return entries, nil
}

func cellString(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func parseHours(v any) float64 {
	switch v := v.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// parseDate returns the zero time when v holds no recognizable date.
// Numbers, and numeric strings, are spreadsheet serial dates.
func parseDate(v any) time.Time {
	switch v := v.(type) {
	case time.Time:
		return dateOnly(v)
	case float64:
		return serialDate(v)
	case int:
		return serialDate(float64(v))
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return time.Time{}
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return dateOnly(t)
			}
		}
		if serial, err := strconv.ParseFloat(s, 64); err == nil {
			return serialDate(serial)
		}
	}
	return time.Time{}
}

func serialDate(serial float64) time.Time {
	if serial <= 0 {
		return time.Time{}
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return time.Time{}
	}
	return dateOnly(t)
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
