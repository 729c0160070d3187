// Package invoice turns aggregated timesheet hours into a multi-sheet
// invoice workbook built from a spreadsheet template.
package invoice

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/angelofallars/sheetbill/internal/layout"
	"github.com/angelofallars/sheetbill/internal/timesheet"
	"github.com/angelofallars/sheetbill/pkg/sheetio"
)

const (
	DefaultTemplatePath = "data/templates/invoice-template.xlsx"
	DefaultLogoPath     = "data/templates/logo.png"
)

// Engine generates invoice workbooks. It holds no per-call state and is safe
// for concurrent use.
type Engine struct {
	layout       layout.Layout
	templatePath string
	logoPath     string
	nonProjects  []string
	logger       *zap.Logger
	now          func() time.Time
	location     *time.Location
}

type Option func(*Engine)

func WithLayout(l layout.Layout) Option {
	return func(e *Engine) { e.layout = l }
}

func WithTemplatePath(path string) Option {
	return func(e *Engine) { e.templatePath = path }
}

// WithLogoPath sets the logo image. An empty path or a missing file leaves
// sheets without a logo.
func WithLogoPath(path string) Option {
	return func(e *Engine) { e.logoPath = path }
}

// WithNonProjectNames replaces the default overhead categories.
func WithNonProjectNames(names []string) Option {
	return func(e *Engine) { e.nonProjects = names }
}

func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLocation sets the zone used for the default invoice date.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.location = loc
		}
	}
}

func New(opts ...Option) *Engine {
	e := &Engine{
		layout:       layout.Default(),
		templatePath: DefaultTemplatePath,
		logoPath:     DefaultLogoPath,
		nonProjects:  timesheet.DefaultNonProjectNames,
		logger:       zap.NewNop(),
		now:          time.Now,
		location:     time.UTC,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Layout() layout.Layout { return e.layout }

func (e *Engine) TemplatePath() string { return e.templatePath }

// TemplateAvailable reports whether the template file exists.
func (e *Engine) TemplateAvailable() bool {
	info, err := os.Stat(e.templatePath)
	return err == nil && !info.IsDir()
}

// GenerateFile reads a timesheet export and generates its invoices.
func (e *Engine) GenerateFile(ctx context.Context, inputPath string, invoiceDate time.Time) (*Result, error) {
	entries, cols, err := ReadTimesheet(inputPath)
	if err != nil {
		return nil, err
	}
	e.logger.Info("timesheet read",
		zap.String("path", inputPath),
		zap.Int("entries", len(entries)),
		zap.Int("columns", cols.Width),
	)

	return e.GenerateEntries(ctx, entries, invoiceDate)
}

// ReadTimesheet reads the entries of a timesheet export, or of the edit
// sheet of a monthly report workbook.
func ReadTimesheet(path string) ([]timesheet.Entry, timesheet.Columns, error) {
	rows, err := sheetio.ReadFile(path, timesheet.EditSheet)
	if errors.Is(err, sheetio.ErrNotFound) {
		return nil, timesheet.Columns{}, fmt.Errorf("%w: %w", timesheet.ErrSourceNotFound, err)
	}
	if err != nil {
		return nil, timesheet.Columns{}, fmt.Errorf("%w: %w", timesheet.ErrUnreadableInput, err)
	}

	cols := timesheet.StandardColumns
	if len(rows) > 0 {
		cols = timesheet.DetectColumns(rows[0])
	}

	entries, err := timesheet.ReadEntries(rows, cols)
	if err != nil {
		return nil, cols, err
	}
	return entries, cols, nil
}

// GenerateEntries filters, validates and aggregates entries and assembles
// one invoice and one detail sheet per billable project. A zero invoiceDate
// means today. The caller owns the returned workbook and must Close it.
func (e *Engine) GenerateEntries(ctx context.Context, entries []timesheet.Entry, invoiceDate time.Time) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	billable, excluded := timesheet.ExcludeNonProjects(entries, e.nonProjects)
	billable = timesheet.ExcludeZeroHours(billable)
	if len(billable) == 0 {
		return nil, timesheet.ErrNoBillableData
	}

	if err := timesheet.ValidateProjectIDs(billable); err != nil {
		return nil, err
	}
	if err := timesheet.ValidateCodes(billable, e.layout.TaskCodes(), e.layout.PhaseCodes()); err != nil {
		return nil, err
	}

	matrix := timesheet.Aggregate(billable)
	if len(matrix) == 0 {
		return nil, timesheet.ErrNoBillableData
	}
	details := timesheet.GroupByProject(billable)

	e.logger.Info("timesheet aggregated",
		zap.Int("entries", len(billable)),
		zap.Int("excluded", excluded),
		zap.Int("projects", len(matrix)),
		zap.Float64("hours", matrix.Total()),
	)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	wb, err := e.openTemplate()
	if err != nil {
		return nil, err
	}

	if invoiceDate.IsZero() {
		invoiceDate = e.now().In(e.location)
	}

	summaries, err := NewAssembler(e.layout, e.logoPath, e.logger).Assemble(wb, matrix, details, invoiceDate)
	if err != nil {
		wb.Close()
		return nil, fmt.Errorf("assemble workbook: %w", err)
	}

	if err := ctx.Err(); err != nil {
		wb.Close()
		return nil, err
	}

	result := &Result{
		Workbook:     wb,
		ProjectCount: len(summaries),
		TotalHours:   matrix.Total(),
		Period:       timesheet.Period(billable, e.now().In(e.location)),
		Entries:      billable,
		Excluded:     excluded,
		Projects:     summaries,
	}
	e.logger.Info("invoices generated",
		zap.Int("projects", result.ProjectCount),
		zap.Float64("hours", result.TotalHours),
		zap.String("file", result.FileName()),
	)
	return result, nil
}

func (e *Engine) openTemplate() (*excelize.File, error) {
	wb, err := excelize.OpenFile(e.templatePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: invoice template %s", timesheet.ErrSourceNotFound, e.templatePath)
	}
	if err != nil {
		return nil, fmt.Errorf("open invoice template: %w", err)
	}
	return wb, nil
}
