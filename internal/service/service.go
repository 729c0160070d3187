package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/angelofallars/sheetbill/internal/invoice"
	"github.com/angelofallars/sheetbill/pkg/sheetio"
)

type Invoice interface {
	Generate(ctx context.Context, req GenerateRequest) (*invoice.Result, error)
	TemplateAvailable() bool
}

type GenerateRequest struct {
	// FileName is the client's name for the upload; only its extension is
	// used.
	FileName string
	File     io.Reader
	// InvoiceDate overrides the printed invoice date when non-zero.
	InvoiceDate time.Time
}

type invoiceService struct {
	engine  *invoice.Engine
	jobs    *semaphore.Weighted
	tempDir string
	logger  *zap.Logger
}

func NewInvoice(engine *invoice.Engine, maxJobs int, logger *zap.Logger) *invoiceService {
	if maxJobs < 1 {
		maxJobs = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &invoiceService{
		engine: engine,
		jobs:   semaphore.NewWeighted(int64(maxJobs)),
		logger: logger,
	}
}

// WithTempDir sets where uploads are staged; the system default otherwise.
func (s *invoiceService) WithTempDir(dir string) *invoiceService {
	s.tempDir = dir
	return s
}

func (s *invoiceService) TemplateAvailable() bool {
	return s.engine.TemplateAvailable()
}

type outcome struct {
	result *invoice.Result
	err    error
}

// Generate stages the upload in a temporary file and runs the engine on it
// in its own job slot. The staged file is removed however the job ends.
// When ctx ends first, Generate returns its error and the job's workbook is
// discarded once the job finishes.
func (s *invoiceService) Generate(ctx context.Context, req GenerateRequest) (*invoice.Result, error) {
	ext := strings.ToLower(filepath.Ext(req.FileName))
	if !sheetio.Supported(req.FileName) {
		return nil, fmt.Errorf("%w: %q", sheetio.ErrUnsupportedFormat, ext)
	}

	if err := s.jobs.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("wait for job slot: %w", err)
	}

	path, err := s.stage(req.File, ext)
	if err != nil {
		s.jobs.Release(1)
		return nil, err
	}

	done := make(chan outcome, 1)
	go func() {
		defer s.jobs.Release(1)
		defer os.Remove(path)

		res, err := s.engine.GenerateFile(ctx, path, req.InvoiceDate)
		done <- outcome{result: res, err: err}
	}()

	select {
	case out := <-done:
		return out.result, out.err
	case <-ctx.Done():
		go func() {
			if out := <-done; out.result != nil {
				out.result.Close()
			}
		}()
		s.logger.Warn("invoice generation abandoned", zap.Error(ctx.Err()))
		return nil, ctx.Err()
	}
}

func (s *invoiceService) stage(r io.Reader, ext string) (string, error) {
	f, err := os.CreateTemp(s.tempDir, "upload-*"+ext)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	_, err = io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("stage upload: %w", err)
	}
	return f.Name(), nil
}
