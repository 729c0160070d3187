package invoice

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	InvoiceSuffix = " A"
	DetailSuffix  = " B"
)

var ErrTooManyOutputVersions = errors.New("too many output files exist")

var sheetNameReplacer = strings.NewReplacer(
	":", " -",
	`\`, "-",
	"/", "-",
	"?", "-",
	"*", "-",
	"[", "-",
	"]", "-",
)

// SheetName makes a valid sheet name from a project id: the separator
// becomes " -", illegal characters become "-", and the base is truncated so
// that base+suffix fits in max characters. A sheet name may not start or
// end with an apostrophe, so one at either edge becomes "-".
func SheetName(projectID, suffix string, max int) string {
	return quoteEdges(truncate(sheetNameReplacer.Replace(projectID), max-utf8.RuneCountInString(suffix)) + suffix)
}

func quoteEdges(name string) string {
	if strings.HasPrefix(name, "'") {
		name = "-" + name[1:]
	}
	if strings.HasSuffix(name, "'") {
		name = name[:len(name)-1] + "-"
	}
	return name
}

func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return strings.TrimRight(string([]rune(s)[:n]), " ")
}

// SheetNamer issues sheet names that are unique within one workbook.
// Sheet names compare case-insensitively, so two projects that sanitize to
// the same truncated base get " ~2", " ~3", ... appended to the base.
type SheetNamer struct {
	max  int
	used map[string]bool
}

func NewSheetNamer(max int) *SheetNamer {
	return &SheetNamer{max: max, used: make(map[string]bool)}
}

// Reserve marks an existing sheet name as taken.
func (n *SheetNamer) Reserve(name string) {
	n.used[strings.ToLower(name)] = true
}

func (n *SheetNamer) Name(projectID, suffix string) string {
	name := SheetName(projectID, suffix, n.max)
	base := sheetNameReplacer.Replace(projectID)
	for i := 2; n.used[strings.ToLower(name)]; i++ {
		marker := fmt.Sprintf(" ~%d", i)
		room := n.max - utf8.RuneCountInString(suffix) - len(marker)
		name = quoteEdges(truncate(base, room) + marker + suffix)
	}
	n.Reserve(name)
	return name
}

// OutputFileName is the unversioned file name for a billing period.
func OutputFileName(period time.Time) string {
	return fmt.Sprintf("invoices_%d_%02d.xlsx", period.Year(), int(period.Month()))
}

// NextOutputPath returns the first unused invoices_YYYY_MM_<letter>.xlsx in
// dir, creating dir if needed.
func NextOutputPath(dir string, period time.Time) (string, error) {
	return NextVersionedPath(dir, strings.TrimSuffix(OutputFileName(period), ".xlsx"))
}

// NextVersionedPath returns the first unused <base>_<letter>.xlsx in dir,
// trying letters a to z, creating dir if needed.
func NextVersionedPath(dir, base string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	for suffix := 'a'; suffix <= 'z'; suffix++ {
		path := filepath.Join(dir, fmt.Sprintf("%s_%c.xlsx", base, suffix))
		_, err := os.Stat(path)
		if errors.Is(err, os.ErrNotExist) {
			return path, nil
		}
		if err != nil {
			return "", fmt.Errorf("check %s: %w", path, err)
		}
	}
	return "", fmt.Errorf("%w for %s in %s", ErrTooManyOutputVersions, base, dir)
}

// FormatInvoiceDate renders "December 3, 2025".
func FormatInvoiceDate(d time.Time) string {
	return d.Format("January 2, 2006")
}

// FormatDetailDate renders "Thursday, October 30th 2025".
func FormatDetailDate(d time.Time) string {
	return fmt.Sprintf("%s, %s %d%s %d", d.Weekday(), d.Month(), d.Day(), ordinalSuffix(d.Day()), d.Year())
}

func ordinalSuffix(day int) string {
	if day >= 11 && day <= 13 {
		return "th"
	}
	switch day % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	default:
		return "th"
	}
}
