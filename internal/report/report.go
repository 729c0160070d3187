// Package report builds the monthly and weekly timesheet report workbooks
// from timesheet entries.
//
// The monthly workbook carries an editable detail sheet whose Total Adjusted
// Hours column feeds both its billable goals sheet and invoice generation.
// The weekly workbook is a project by employee summary of the month so far.
package report

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/angelofallars/sheetbill/internal/timesheet"
)

const (
	ViewSheet    = "1 Timesheet Detail (View)"
	EditSheet    = timesheet.EditSheet
	GoalsSheet   = "4 Billable Goals"
	SummarySheet = "Timesheet Summary"
	DetailSheet  = "Timesheet Detail"
)

var ErrNoEntries = errors.New("no timesheet entries in report period")

var (
	detailHeader = []string{"Project ID", "Date", "Employee", "Hours", "Task", "Phase", "WID"}
	editHeader   = []string{
		"Project ID", "Date", "Employee", "Hours",
		"Hours Adjusted", "Total Adjusted Hours",
		"Task", "Phase", "WID",
	}
	goalLabels = []string{
		"Billable goal",
		"Gross billable hours adjusted",
		"% of goal",
		"Non-project hours",
		"Net billable hours this period",
	}
)

// Period is an inclusive range of calendar days.
type Period struct {
	Start time.Time
	End   time.Time
}

// MonthPeriod spans the whole month containing month.
func MonthPeriod(month time.Time) Period {
	start := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
	return Period{Start: start, End: start.AddDate(0, 1, -1)}
}

// PreviousMonth is the month before the one containing now.
func PreviousMonth(now time.Time) Period {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return MonthPeriod(first.AddDate(0, -1, 0))
}

// MonthToDate spans the first of asOf's month through asOf.
func MonthToDate(asOf time.Time) Period {
	end := time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, time.UTC)
	return Period{Start: end.AddDate(0, 0, 1-end.Day()), End: end}
}

func (p Period) Contains(d time.Time) bool {
	return !d.Before(p.Start) && !d.After(p.End)
}

// MonthlyName is the unversioned name of a monthly report, keyed by the
// period's month.
func MonthlyName(p Period) string {
	return fmt.Sprintf("timesheet_monthly_report_%d_%02d", p.End.Year(), int(p.End.Month()))
}

// WeeklyName is the unversioned name of a weekly report, keyed by the
// period's last day.
func WeeklyName(p Period) string {
	return fmt.Sprintf("timesheet_weekly_report_%d_%02d_%02d", p.End.Year(), int(p.End.Month()), p.End.Day())
}

// Select returns the entries dated within p in date order, undated entries
// first. Undated entries are kept since no period can rule them out.
func Select(entries []timesheet.Entry, p Period) []timesheet.Entry {
	out := make([]timesheet.Entry, 0, len(entries))
	for _, e := range entries {
		if !e.HasDate() || p.Contains(e.Date) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// Monthly builds the three-sheet monthly workbook. nonProjects names the
// categories totalled on the billable goals sheet.
func Monthly(entries []timesheet.Entry, nonProjects []string) (*excelize.File, error) {
	if len(entries) == 0 {
		return nil, ErrNoEntries
	}

	f := excelize.NewFile()
	err := func() error {
		bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
		if err != nil {
			return err
		}
		if err := f.SetSheetName(f.GetSheetName(0), ViewSheet); err != nil {
			return err
		}
		if err := writeDetail(f, ViewSheet, entries, bold); err != nil {
			return fmt.Errorf("%s: %w", ViewSheet, err)
		}
		if _, err := f.NewSheet(EditSheet); err != nil {
			return err
		}
		if err := writeEdit(f, entries, bold); err != nil {
			return fmt.Errorf("%s: %w", EditSheet, err)
		}
		if _, err := f.NewSheet(GoalsSheet); err != nil {
			return err
		}
		if err := writeGoals(f, entries, nonProjects, bold); err != nil {
			return fmt.Errorf("%s: %w", GoalsSheet, err)
		}
		return nil
	}()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return f, nil
}

// Weekly builds the summary and detail workbook.
func Weekly(entries []timesheet.Entry) (*excelize.File, error) {
	if len(entries) == 0 {
		return nil, ErrNoEntries
	}

	f := excelize.NewFile()
	err := func() error {
		bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
		if err != nil {
			return err
		}
		if err := f.SetSheetName(f.GetSheetName(0), SummarySheet); err != nil {
			return err
		}
		if err := writeSummary(f, entries, bold); err != nil {
			return fmt.Errorf("%s: %w", SummarySheet, err)
		}
		if _, err := f.NewSheet(DetailSheet); err != nil {
			return err
		}
		if err := writeDetail(f, DetailSheet, entries, bold); err != nil {
			return fmt.Errorf("%s: %w", DetailSheet, err)
		}
		return nil
	}()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return f, nil
}

// detailRow is an entry as the report sheets print it.
func detailRow(e timesheet.Entry) []any {
	return []any{
		e.ProjectID,
		formatDate(e.Date),
		strings.ToUpper(e.Employee),
		e.Hours,
		strings.ToUpper(e.Task),
		strings.ToUpper(e.Phase),
		e.WID,
	}
}

// formatDate renders M/D/YYYY without padding, or "" for an undated entry.
func formatDate(d time.Time) string {
	if d.IsZero() {
		return ""
	}
	return d.Format("1/2/2006")
}

func writeHeader(f *excelize.File, sheet string, header []string, style int) error {
	row := make([]any, len(header))
	for i, h := range header {
		row[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &row); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", last, style)
}

func writeDetail(f *excelize.File, sheet string, entries []timesheet.Entry, bold int) error {
	if err := writeHeader(f, sheet, detailHeader, bold); err != nil {
		return err
	}
	for i, e := range entries {
		row := detailRow(e)
		if err := f.SetSheetRow(sheet, cell("A", i+2), &row); err != nil {
			return err
		}
	}
	return nil
}

// writeEdit leaves Hours Adjusted empty for the user. Total Adjusted Hours
// is a formula over Hours and Hours Adjusted, stored with the unadjusted
// hours as its cached value so readers that do not recalculate see them.
func writeEdit(f *excelize.File, entries []timesheet.Entry, bold int) error {
	if err := writeHeader(f, EditSheet, editHeader, bold); err != nil {
		return err
	}
	for i, e := range entries {
		r := i + 2
		d := detailRow(e)
		head, tail := d[:4], d[4:]
		if err := f.SetSheetRow(EditSheet, cell("A", r), &head); err != nil {
			return err
		}
		total := cell("F", r)
		if err := f.SetCellFloat(EditSheet, total, e.Hours, -1, 64); err != nil {
			return err
		}
		formula := fmt.Sprintf(`D%d+IF(E%d="",0,E%d)`, r, r, r)
		if err := f.SetCellFormula(EditSheet, total, formula); err != nil {
			return err
		}
		if err := f.SetSheetRow(EditSheet, cell("G", r), &tail); err != nil {
			return err
		}
	}
	return nil
}

// writeGoals lays out one column per employee plus a Total column, with
// every figure derived from the edit sheet by formula.
func writeGoals(f *excelize.File, entries []timesheet.Entry, nonProjects []string, bold int) error {
	employees := employeesOf(entries)

	header := append(append([]string{""}, employees...), "Total")
	if err := writeHeader(f, GoalsSheet, header, bold); err != nil {
		return err
	}

	lastData := len(entries) + 1
	editRange := func(col string) string {
		return fmt.Sprintf("'%s'!$%s$2:$%s$%d", EditSheet, col, col, lastData)
	}
	employeeRange, totalRange, projectRange := editRange("C"), editRange("F"), editRange("A")

	names := make([]string, len(nonProjects))
	copy(names, nonProjects)
	sort.Strings(names)

	firstCol, err := excelize.ColumnNumberToName(2)
	if err != nil {
		return err
	}
	lastCol, err := excelize.ColumnNumberToName(len(employees) + 1)
	if err != nil {
		return err
	}
	totalCol, err := excelize.ColumnNumberToName(len(employees) + 2)
	if err != nil {
		return err
	}

	perEmployee := map[int]func(col, employee string) string{
		3: func(col, employee string) string {
			return fmt.Sprintf(`SUMIF(%s,"%s",%s)`, employeeRange, employee, totalRange)
		},
		4: func(col, employee string) string {
			return fmt.Sprintf("IFERROR(%s3/%s2,0)", col, col)
		},
		5: func(col, employee string) string {
			parts := make([]string, len(names))
			for i, name := range names {
				parts[i] = fmt.Sprintf(`SUMIFS(%s,%s,"%s",%s,"%s:*")`,
					totalRange, employeeRange, employee, projectRange, name)
			}
			if len(parts) == 0 {
				return "0"
			}
			return strings.Join(parts, "+")
		},
		6: func(col, employee string) string {
			return fmt.Sprintf("%s3-%s5", col, col)
		},
	}

	for i, label := range goalLabels {
		r := i + 2
		if err := f.SetCellValue(GoalsSheet, cell("A", r), label); err != nil {
			return err
		}
		if build, ok := perEmployee[r]; ok {
			for j, employee := range employees {
				col, err := excelize.ColumnNumberToName(j + 2)
				if err != nil {
					return err
				}
				if err := f.SetCellFormula(GoalsSheet, cell(col, r), build(col, employee)); err != nil {
					return err
				}
			}
		}
		fn := "SUM"
		if r == 4 {
			fn = "AVERAGE"
		}
		total := fmt.Sprintf("%s(%s%d:%s%d)", fn, firstCol, r, lastCol, r)
		if err := f.SetCellFormula(GoalsSheet, cell(totalCol, r), total); err != nil {
			return err
		}
	}
	return nil
}

// writeSummary pivots hours into one row per project and one column per
// employee, closing with per-employee totals. Cells without hours stay
// empty.
func writeSummary(f *excelize.File, entries []timesheet.Entry, bold int) error {
	employees := employeesOf(entries)
	details := timesheet.GroupByProject(entries)

	projects := make([]string, 0, len(details))
	for id := range details {
		projects = append(projects, id)
	}
	sort.Strings(projects)

	hours := make(map[string]map[string]float64, len(projects))
	for _, e := range entries {
		if hours[e.ProjectID] == nil {
			hours[e.ProjectID] = make(map[string]float64)
		}
		hours[e.ProjectID][strings.ToUpper(e.Employee)] += e.Hours
	}

	header := append(append([]string{"Project ID"}, employees...), "Total")
	if err := writeHeader(f, SummarySheet, header, bold); err != nil {
		return err
	}

	columnTotals := make([]float64, len(employees))
	for i, project := range projects {
		r := i + 2
		if err := f.SetCellValue(SummarySheet, cell("A", r), project); err != nil {
			return err
		}
		for j, employee := range employees {
			h := hours[project][employee]
			columnTotals[j] += h
			if h <= 0 {
				continue
			}
			if err := setFloat(f, j+2, r, h); err != nil {
				return err
			}
		}
		if err := setFloat(f, len(employees)+2, r, details.Hours(project)); err != nil {
			return err
		}
	}

	totalRow := len(projects) + 2
	if err := f.SetCellValue(SummarySheet, cell("A", totalRow), "Total"); err != nil {
		return err
	}
	var grand float64
	for j, total := range columnTotals {
		grand += total
		if err := setFloat(f, j+2, totalRow, total); err != nil {
			return err
		}
	}
	return setFloat(f, len(employees)+2, totalRow, grand)
}

func setFloat(f *excelize.File, col, row int, v float64) error {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return f.SetCellFloat(SummarySheet, name, v, -1, 64)
}

// employeesOf returns the distinct upper-cased employees, sorted.
func employeesOf(entries []timesheet.Entry) []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range entries {
		name := strings.ToUpper(e.Employee)
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
