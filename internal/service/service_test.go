package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelofallars/sheetbill/internal/invoice"
	"github.com/angelofallars/sheetbill/internal/layout"
	"github.com/angelofallars/sheetbill/internal/timesheet"
	"github.com/angelofallars/sheetbill/pkg/sheetio"
)

const timesheetCSV = "Project ID,Date,Employee,Hours,Task,Phase,WID\n" +
	"Alpha: 100,11/03/2025,Joe,4,DP,SD,w1\n" +
	"Beta: 200,11/04/2025,Ann,2,M,M,w2\n"

func newTestService(t *testing.T, maxJobs int) (*invoiceService, string) {
	t.Helper()
	dir := t.TempDir()

	tmpl, err := invoice.NewTemplate(layout.Default())
	require.NoError(t, err)
	templatePath := filepath.Join(dir, "template.xlsx")
	require.NoError(t, tmpl.SaveAs(templatePath))
	require.NoError(t, tmpl.Close())

	staging := filepath.Join(dir, "staging")
	require.NoError(t, os.Mkdir(staging, 0o755))

	engine := invoice.New(invoice.WithTemplatePath(templatePath), invoice.WithLogoPath(""))
	return NewInvoice(engine, maxJobs, nil).WithTempDir(staging), staging
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestGenerate(t *testing.T) {
	svc, staging := newTestService(t, 2)
	assert.True(t, svc.TemplateAvailable())

	res, err := svc.Generate(context.Background(), GenerateRequest{
		FileName:    "November.csv",
		File:        strings.NewReader(timesheetCSV),
		InvoiceDate: time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	defer res.Close()

	assert.Equal(t, 2, res.ProjectCount)
	assert.InDelta(t, 6.0, res.TotalHours, 1e-9)
	assertEmptyDir(t, staging)
}

func TestGenerate_ValidationFailureRemovesUpload(t *testing.T) {
	svc, staging := newTestService(t, 1)

	_, err := svc.Generate(context.Background(), GenerateRequest{
		FileName: "bad.csv",
		File:     strings.NewReader("Project ID,Date,Employee,Hours,Task,Phase,WID\nNoColon,,Joe,1,DP,PD,\n"),
	})
	assert.ErrorIs(t, err, timesheet.ErrInvalidProjectID)
	assertEmptyDir(t, staging)
}

func TestGenerate_UnsupportedFile(t *testing.T) {
	svc, staging := newTestService(t, 1)

	_, err := svc.Generate(context.Background(), GenerateRequest{
		FileName: "hours.numbers",
		File:     strings.NewReader("x"),
	})
	assert.ErrorIs(t, err, sheetio.ErrUnsupportedFormat)
	assertEmptyDir(t, staging)
}

func TestGenerate_WaitsForFreeSlot(t *testing.T) {
	svc, staging := newTestService(t, 1)
	require.True(t, svc.jobs.TryAcquire(1))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := svc.Generate(ctx, GenerateRequest{
		FileName: "November.csv",
		File:     strings.NewReader(timesheetCSV),
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assertEmptyDir(t, staging)

	svc.jobs.Release(1)
	res, err := svc.Generate(context.Background(), GenerateRequest{
		FileName: "November.csv",
		File:     strings.NewReader(timesheetCSV),
	})
	require.NoError(t, err)
	res.Close()
}
