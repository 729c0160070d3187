package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/angelofallars/sheetbill/app"
	"github.com/angelofallars/sheetbill/internal/audit"
	"github.com/angelofallars/sheetbill/internal/config"
	"github.com/angelofallars/sheetbill/internal/invoice"
	"github.com/angelofallars/sheetbill/internal/report"
	"github.com/angelofallars/sheetbill/internal/service"
	"github.com/angelofallars/sheetbill/internal/timesheet"
)

// cli holds what every command shares once the root command has run.
type cli struct {
	verbose bool
	envFile string

	cfg    *config.Config
	logger *zap.Logger
}

func SetupCommands() *cobra.Command {
	c := &cli{}

	// root command
	rootCmd := &cobra.Command{
		Use:           "sheetbill",
		Short:         "Turn timesheet exports into per-project invoice workbooks",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = c.logger.Sync()
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "log at debug level")
	rootCmd.PersistentFlags().StringVar(&c.envFile, "env", ".env", "environment file to load")

	var outDir, invoiceDate string

	// command for generating invoices from a timesheet on disk
	generateCmd := &cobra.Command{
		Use:   "generate [timesheet]",
		Short: "Generate an invoice workbook from a timesheet export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := parseInvoiceDate(invoiceDate)
			if err != nil {
				return err
			}
			if outDir == "" {
				outDir = c.cfg.OutputDir
			}
			return c.generate(cmd, args[0], outDir, date)
		},
	}
	generateCmd.Flags().StringVarP(&outDir, "out", "o", "", "output directory (default from config)")
	generateCmd.Flags().StringVar(&invoiceDate, "invoice-date", "", "invoice date as YYYY-MM-DD (default today)")

	// command for running the HTTP service
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the upload page and the generate API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.serve(cmd.Context())
		},
	}

	// command for writing a blank template from the configured layout
	templateCmd := &cobra.Command{
		Use:   "template [path]",
		Short: "Write a blank invoice template for the configured layout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.scaffold(cmd, args[0])
		},
	}

	var reportOut, month, asOf string

	// commands for writing timesheet report workbooks
	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Write monthly or weekly timesheet report workbooks",
	}
	reportCmd.PersistentFlags().StringVarP(&reportOut, "out", "o", "", "output directory (default <output dir>/reports)")

	monthlyCmd := &cobra.Command{
		Use:   "monthly [timesheet]",
		Short: "Write the monthly report with its editable detail and billable goals sheets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := parseMonth(month, time.Now())
			if err != nil {
				return err
			}
			return c.report(cmd, args[0], c.reportDir(reportOut, "monthly"), p, false)
		},
	}
	monthlyCmd.Flags().StringVar(&month, "month", "", "report month as YYYY-MM (default previous month)")

	weeklyCmd := &cobra.Command{
		Use:   "weekly [timesheet]",
		Short: "Write the month-to-date summary report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := parseAsOf(asOf, time.Now())
			if err != nil {
				return err
			}
			return c.report(cmd, args[0], c.reportDir(reportOut, "weekly"), p, true)
		},
	}
	weeklyCmd.Flags().StringVar(&asOf, "date", "", "last day covered as YYYY-MM-DD (default today)")

	reportCmd.AddCommand(monthlyCmd)
	reportCmd.AddCommand(weeklyCmd)

	// add commands
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(templateCmd)
	rootCmd.AddCommand(reportCmd)

	return rootCmd
}

func (c *cli) setup() error {
	var envFiles []string
	if c.envFile != "" {
		envFiles = append(envFiles, c.envFile)
	}
	cfg, err := config.Load(envFiles...)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	c.cfg = cfg

	zc := zap.NewProductionConfig()
	if c.verbose || cfg.Debug {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := zc.Build()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	c.logger = logger
	return nil
}

func (c *cli) engine() (*invoice.Engine, error) {
	l, err := c.cfg.Layout()
	if err != nil {
		return nil, err
	}
	return invoice.New(
		invoice.WithLayout(l),
		invoice.WithTemplatePath(c.cfg.TemplatePath),
		invoice.WithLogoPath(c.cfg.LogoPath),
		invoice.WithNonProjectNames(c.cfg.NonProjects),
		invoice.WithLocation(c.cfg.Location()),
		invoice.WithLogger(c.logger),
	), nil
}

func (c *cli) generate(cmd *cobra.Command, input, outDir string, date time.Time) error {
	engine, err := c.engine()
	if err != nil {
		return err
	}

	res, err := engine.GenerateFile(cmd.Context(), input, date)
	if err != nil {
		if details := timesheet.Details(err); timesheet.IsDataError(err) && len(details) > 1 {
			return fmt.Errorf("%w\n  %s", err, strings.Join(details, "\n  "))
		}
		return err
	}
	defer res.Close()

	path, err := invoice.NextOutputPath(outDir, res.Period)
	if err != nil {
		return err
	}
	if err := res.Save(path); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Wrote %s\n", path)
	fmt.Fprintf(out, "%d project(s), %.2f hours, %d entries excluded\n", res.ProjectCount, res.TotalHours, res.Excluded)
	for _, p := range res.Projects {
		fmt.Fprintf(out, "  %-32s %8.2f h  %s\n", p.InvoiceSheet, p.Hours, strings.Join(p.ActivePhases, ","))
	}
	return nil
}

func (c *cli) serve(ctx context.Context) error {
	engine, err := c.engine()
	if err != nil {
		return err
	}
	if !engine.TemplateAvailable() {
		c.logger.Warn("invoice template not found", zap.String("path", engine.TemplatePath()))
	}

	svcInvoice := service.NewInvoice(engine, c.cfg.MaxConcurrentJobs, c.logger)

	a := app.New(c.logger, svcInvoice).
		WithHost(c.cfg.Host).
		WithPort(uint(c.cfg.Port)).
		WithAPIKey(c.cfg.APIKey).
		WithMaxUploadBytes(c.cfg.MaxUploadBytes()).
		WithVersion(version)

	if c.cfg.AuditDB != "" {
		store, err := audit.Open(c.cfg.AuditDB, c.logger)
		if err != nil {
			return err
		}
		defer store.Close()
		a = a.WithAudit(store)
	}

	// Serve drains in-flight requests before returning, so the audit store
	// outlives every request that records to it.
	return a.Serve(ctx)
}

func (c *cli) scaffold(cmd *cobra.Command, path string) error {
	engine, err := c.engine()
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := invoice.NewTemplate(engine.Layout())
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save template: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}

func (c *cli) reportDir(out, kind string) string {
	if out != "" {
		return out
	}
	return filepath.Join(c.cfg.OutputDir, "reports", kind)
}

func (c *cli) report(cmd *cobra.Command, input, outDir string, p report.Period, weekly bool) error {
	entries, _, err := invoice.ReadTimesheet(input)
	if err != nil {
		return err
	}
	entries = report.Select(entries, p)

	var (
		f    *excelize.File
		name string
	)
	if weekly {
		f, err = report.Weekly(entries)
		name = report.WeeklyName(p)
	} else {
		f, err = report.Monthly(entries, c.cfg.NonProjects)
		name = report.MonthlyName(p)
	}
	if err != nil {
		return err
	}
	defer f.Close()

	path, err := invoice.NextVersionedPath(outDir, name)
	if err != nil {
		return err
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	c.logger.Info("report written",
		zap.String("path", path),
		zap.Int("entries", len(entries)),
	)

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}

func parseMonth(s string, now time.Time) (report.Period, error) {
	if s == "" {
		return report.PreviousMonth(now), nil
	}
	m, err := time.Parse("2006-01", s)
	if err != nil {
		return report.Period{}, fmt.Errorf("invalid --month %q: expected YYYY-MM", s)
	}
	return report.MonthPeriod(m), nil
}

func parseAsOf(s string, now time.Time) (report.Period, error) {
	if s == "" {
		return report.MonthToDate(now), nil
	}
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return report.Period{}, fmt.Errorf("invalid --date %q: expected YYYY-MM-DD", s)
	}
	return report.MonthToDate(d), nil
}

func parseInvoiceDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --invoice-date %q: expected YYYY-MM-DD", s)
	}
	return d, nil
}
