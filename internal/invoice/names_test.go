package invoice

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSheetName(t *testing.T) {
	tests := []struct {
		id     string
		suffix string
		want   string
	}{
		{"Alpha: 100", InvoiceSuffix, "Alpha - 100 A"},
		{"Alpha: 100", DetailSuffix, "Alpha - 100 B"},
		{"A/B [test]: 7?", InvoiceSuffix, "A-B -test- - 7- A"},
		{"Riverside Community Center Renovation: 2024-017", InvoiceSuffix, "Riverside Community Center Re A"},
		{"Very Long Name Ending With Space : 1", DetailSuffix, "Very Long Name Ending With Sp B"},
		{"'Quoted Client: 1'", InvoiceSuffix, "-Quoted Client - 1' A"},
		{"'Solo'", "", "-Solo-"},
	}
	for _, tt := range tests {
		got := SheetName(tt.id, tt.suffix, 31)
		assert.Equal(t, tt.want, got, tt.id)
		assert.LessOrEqual(t, utf8.RuneCountInString(got), 31)
		assert.False(t, strings.ContainsAny(got, `:\/?*[]`), got)
		assert.False(t, strings.HasPrefix(got, "'") || strings.HasSuffix(got, "'"), got)
	}
}

func TestSheetName_TrimsTrailingSpaceBeforeSuffix(t *testing.T) {
	assert.Equal(t, "Alpha - B", SheetName("Alpha: 1234", DetailSuffix, 10))
}

func TestSheetNamer_DisambiguatesCollisions(t *testing.T) {
	n := NewSheetNamer(31)
	n.Reserve("Invoice")

	long := "Riverside Community Center Renovation: "
	first := n.Name(long+"1", InvoiceSuffix)
	second := n.Name(long+"2", InvoiceSuffix)
	third := n.Name(strings.ToUpper(long)+"3", InvoiceSuffix)

	assert.Equal(t, "Riverside Community Center Re A", first)
	assert.Equal(t, "Riverside Community Center ~2 A", second)
	assert.Equal(t, "RIVERSIDE COMMUNITY CENTER ~3 A", third)
	for _, name := range []string{first, second, third} {
		assert.LessOrEqual(t, utf8.RuneCountInString(name), 31)
	}
}

func TestSheetNamer_QuotedCollision(t *testing.T) {
	n := NewSheetNamer(31)
	assert.Equal(t, "-Quoted-", n.Name("'Quoted'", ""))
	assert.Equal(t, "-QUOTED' ~2", n.Name("'QUOTED'", ""))
}

func TestOutputFileName(t *testing.T) {
	assert.Equal(t, "invoices_2025_03.xlsx", OutputFileName(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)))
}

func TestNextOutputPath(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "output")
	period := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)

	path, err := NextOutputPath(dir, period)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "invoices_2025_11_a.xlsx"), path)

	require.NoError(t, os.WriteFile(path, nil, 0o600))
	path, err = NextOutputPath(dir, period)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "invoices_2025_11_b.xlsx"), path)
}

func TestNextOutputPath_Exhausted(t *testing.T) {
	dir := t.TempDir()
	period := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)
	for c := 'a'; c <= 'z'; c++ {
		name := filepath.Join(dir, "invoices_2025_11_"+string(c)+".xlsx")
		require.NoError(t, os.WriteFile(name, nil, 0o600))
	}

	_, err := NextOutputPath(dir, period)
	assert.ErrorIs(t, err, ErrTooManyOutputVersions)
}

func TestNextVersionedPath(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports", "monthly")

	path, err := NextVersionedPath(dir, "timesheet_monthly_report_2025_11")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "timesheet_monthly_report_2025_11_a.xlsx"), path)
	assert.DirExists(t, dir)
}

func TestFormatDates(t *testing.T) {
	assert.Equal(t, "December 3, 2025", FormatInvoiceDate(time.Date(2025, 12, 3, 9, 0, 0, 0, time.UTC)))
	assert.Equal(t, "Thursday, October 30th 2025", FormatDetailDate(time.Date(2025, 10, 30, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "Saturday, November 1st 2025", FormatDetailDate(time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "Tuesday, November 11th 2025", FormatDetailDate(time.Date(2025, 11, 11, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "Saturday, November 22nd 2025", FormatDetailDate(time.Date(2025, 11, 22, 0, 0, 0, 0, time.UTC)))
}
