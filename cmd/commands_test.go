package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const timesheetCSV = "Project ID,Date,Employee,Hours,Task,Phase,WID\n" +
	"Alpha: 100,11/03/2025,Joe,4,DP,SD,w1\n" +
	"Alpha: 100,11/05/2025,Joe,1.5,M,M,w2\n" +
	"Beta: 200,11/04/2025,Ann,2,PM,PD,w3\n" +
	"Vacation,11/06/2025,Ann,8,,,\n"

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := SetupCommands()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--env", filepath.Join(t.TempDir(), "missing.env")}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestTemplateThenGenerate(t *testing.T) {
	dir := t.TempDir()
	templatePath := filepath.Join(dir, "templates", "invoice.xlsx")
	t.Setenv("SHEETBILL_TEMPLATE", templatePath)
	t.Setenv("SHEETBILL_LOGO", filepath.Join(dir, "no-logo.png"))

	out, err := run(t, "template", templatePath)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+templatePath)
	require.FileExists(t, templatePath)

	_, err = run(t, "template", templatePath)
	assert.ErrorContains(t, err, "already exists")

	input := filepath.Join(dir, "november.csv")
	require.NoError(t, os.WriteFile(input, []byte(timesheetCSV), 0o644))
	outDir := filepath.Join(dir, "out")

	out, err = run(t, "generate", input, "--out", outDir, "--invoice-date", "2025-12-01")
	require.NoError(t, err)
	want := filepath.Join(outDir, "invoices_2025_11_a.xlsx")
	assert.Contains(t, out, "Wrote "+want)
	assert.Contains(t, out, "2 project(s), 7.50 hours, 1 entries excluded")

	wb, err := excelize.OpenFile(want)
	require.NoError(t, err)
	defer wb.Close()
	assert.Len(t, wb.GetSheetList(), 4)

	out, err = run(t, "generate", input, "--out", outDir)
	require.NoError(t, err)
	assert.Contains(t, out, "invoices_2025_11_b.xlsx")
}

func TestGenerate_BadInvoiceDate(t *testing.T) {
	_, err := run(t, "generate", "whatever.csv", "--invoice-date", "12/01/2025")
	assert.ErrorContains(t, err, "expected YYYY-MM-DD")
}

func TestGenerate_ValidationDetails(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "bad.csv")
	csv := "Project ID,Date,Employee,Hours,Task,Phase,WID\n" +
		"NoColon,11/03/2025,Joe,1,DP,PD,w1\n" +
		"AlsoBad,11/03/2025,Joe,1,DP,PD,w1\n"
	require.NoError(t, os.WriteFile(input, []byte(csv), 0o644))

	_, err := run(t, "generate", input, "--out", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "'NoColon'")
	assert.Contains(t, err.Error(), "'AlsoBad'")
}

func TestReportMonthlyThenGenerate(t *testing.T) {
	dir := t.TempDir()
	templatePath := filepath.Join(dir, "invoice.xlsx")
	t.Setenv("SHEETBILL_TEMPLATE", templatePath)
	t.Setenv("SHEETBILL_LOGO", filepath.Join(dir, "no-logo.png"))
	_, err := run(t, "template", templatePath)
	require.NoError(t, err)

	input := filepath.Join(dir, "november.csv")
	require.NoError(t, os.WriteFile(input, []byte(timesheetCSV), 0o644))
	reports := filepath.Join(dir, "reports")

	out, err := run(t, "report", "monthly", input, "--month", "2025-11", "--out", reports)
	require.NoError(t, err)
	monthly := filepath.Join(reports, "timesheet_monthly_report_2025_11_a.xlsx")
	assert.Contains(t, out, "Wrote "+monthly)

	wb, err := excelize.OpenFile(monthly)
	require.NoError(t, err)
	assert.Equal(t, []string{"1 Timesheet Detail (View)", "3 Timesheet Detail (Edit)", "4 Billable Goals"}, wb.GetSheetList())
	require.NoError(t, wb.Close())

	out, err = run(t, "generate", monthly, "--out", filepath.Join(dir, "out"), "--invoice-date", "2025-12-01")
	require.NoError(t, err)
	assert.Contains(t, out, "invoices_2025_11_a.xlsx")
	assert.Contains(t, out, "2 project(s), 7.50 hours, 1 entries excluded")

	out, err = run(t, "report", "monthly", input, "--month", "2025-11", "--out", reports)
	require.NoError(t, err)
	assert.Contains(t, out, "timesheet_monthly_report_2025_11_b.xlsx")
}

func TestReportWeekly_MonthToDate(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "november.csv")
	require.NoError(t, os.WriteFile(input, []byte(timesheetCSV), 0o644))

	out, err := run(t, "report", "weekly", input, "--date", "2025-11-05", "--out", dir)
	require.NoError(t, err)
	weekly := filepath.Join(dir, "timesheet_weekly_report_2025_11_05_a.xlsx")
	assert.Contains(t, out, "Wrote "+weekly)

	wb, err := excelize.OpenFile(weekly)
	require.NoError(t, err)
	defer wb.Close()
	rows, err := wb.GetRows("Timesheet Summary")
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Project ID", "ANN", "JOE", "Total"},
		{"Alpha: 100", "", "5.5", "5.5"},
		{"Beta: 200", "2", "", "2"},
		{"Total", "2", "5.5", "7.5"},
	}, rows)
}

func TestReport_BadPeriodFlags(t *testing.T) {
	_, err := run(t, "report", "monthly", "whatever.csv", "--month", "11/2025")
	assert.ErrorContains(t, err, "expected YYYY-MM")
	_, err = run(t, "report", "weekly", "whatever.csv", "--date", "2025/11/05")
	assert.ErrorContains(t, err, "expected YYYY-MM-DD")
}
