// Package sheetio reads one worksheet of a tabular document into raw rows,
// whatever the container format: Office Open XML workbooks, legacy BIFF .xls
// workbooks and CSV text.
package sheetio

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// maxXLSRows bounds how many rows are pulled from a legacy workbook.
const maxXLSRows = 100000

var (
	ErrNotFound          = errors.New("document not found")
	ErrUnsupportedFormat = errors.New("unsupported document format")
	ErrNoSheet           = errors.New("document has no worksheet")
)

type Format int

const (
	FormatUnknown Format = iota
	FormatXLSX
	FormatXLS
	FormatCSV
)

func (f Format) String() string {
	switch f {
	case FormatXLSX:
		return "xlsx"
	case FormatXLS:
		return "xls"
	case FormatCSV:
		return "csv"
	default:
		return "unknown"
	}
}

// DetectFormat picks the format from a file name's extension.
func DetectFormat(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX
	case ".xls":
		return FormatXLS
	case ".csv":
		return FormatCSV
	default:
		return FormatUnknown
	}
}

// Supported reports whether name has an extension ReadFile understands.
func Supported(name string) bool {
	return DetectFormat(name) != FormatUnknown
}

// ReadFile reads the rows of the document at path. A missing file yields
// ErrNotFound. See Read for prefer.
func ReadFile(path string, prefer ...string) ([][]any, error) {
	format := DetectFormat(path)
	if format == FormatUnknown {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Base(path))
	}

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Read(f, format, prefer...)
}

// Read reads rows from r. Cells are returned as strings; numbers and dates
// keep their raw stored form so callers can interpret serial dates.
//
// An .xlsx workbook is read from the first sheet named in prefer that it
// contains, or from its first sheet. Legacy .xls workbooks yield the rows
// of every sheet in order.
//
// Rows narrower than the first row are padded with empty cells, since
// trailing empty cells are not stored. Empty rows stay empty.
func Read(r io.Reader, format Format, prefer ...string) ([][]any, error) {
	var (
		rows [][]any
		err  error
	)
	switch format {
	case FormatXLSX:
		rows, err = readXLSX(r, prefer)
	case FormatXLS:
		rows, err = readXLS(r)
	case FormatCSV:
		rows, err = readCSV(r)
	default:
		return nil, ErrUnsupportedFormat
	}
	if err != nil {
		return nil, err
	}
	return padRows(rows), nil
}

func readXLSX(r io.Reader, prefer []string) ([][]any, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheet := pickSheet(f.GetSheetList(), prefer)
	if sheet == "" {
		return nil, ErrNoSheet
	}
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	return toRows(rows), nil
}

func pickSheet(sheets, prefer []string) string {
	for _, want := range prefer {
		for _, name := range sheets {
			if strings.EqualFold(name, want) {
				return name
			}
		}
	}
	if len(sheets) == 0 {
		return ""
	}
	return sheets[0]
}

func readXLS(r io.Reader) ([][]any, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	if wb == nil || wb.NumSheets() == 0 {
		return nil, ErrNoSheet
	}
	return toRows(wb.ReadAllCells(maxXLSRows)), nil
}

func readCSV(r io.Reader) ([][]any, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) > 0 {
		records[0][0] = strings.TrimPrefix(records[0][0], "\ufeff")
	}
	return toRows(records), nil
}

func toRows(records [][]string) [][]any {
	rows := make([][]any, len(records))
	for i, record := range records {
		row := make([]any, len(record))
		for j, cell := range record {
			row[j] = cell
		}
		rows[i] = row
	}
	return rows
}

func padRows(rows [][]any) [][]any {
	if len(rows) == 0 {
		return rows
	}
	width := len(rows[0])
	for i, row := range rows {
		if len(row) == 0 || len(row) >= width {
			continue
		}
		for len(row) < width {
			row = append(row, "")
		}
		rows[i] = row
	}
	return rows
}
