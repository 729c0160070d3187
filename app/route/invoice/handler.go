package invoice

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/a-h/templ"
	"github.com/angelofallars/htmx-go"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/angelofallars/sheetbill/app/auth"
	"github.com/angelofallars/sheetbill/app/component"
	"github.com/angelofallars/sheetbill/app/header"
	"github.com/angelofallars/sheetbill/app/response"
	"github.com/angelofallars/sheetbill/internal/audit"
	"github.com/angelofallars/sheetbill/internal/service"
	"github.com/angelofallars/sheetbill/internal/timesheet"
	"github.com/angelofallars/sheetbill/pkg/sheetio"
)

const (
	GeneratePath = "/v1/invoices/generate"
	// DownloadPath serves workbooks generated for the upload page. The id in
	// the path is the only credential.
	DownloadPath = "/v1/invoices/download"

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	invoiceDateForm = "2006-01-02"

	// multipartMemory is how much of an upload is buffered in memory before
	// spilling to disk.
	multipartMemory = 8 << 20
	// multipartOverhead leaves room for boundaries and the other form fields
	// on top of the file itself.
	multipartOverhead = 1 << 20
)

type HandlerGroup struct {
	svcInvoice     service.Invoice
	recorder       audit.Recorder
	logger         *zap.Logger
	apiKey         string
	maxUploadBytes int64
	timeout        time.Duration
	downloads      *downloadStore
}

func NewHandlerGroup(svcInvoice service.Invoice, logger *zap.Logger) *HandlerGroup {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HandlerGroup{
		svcInvoice:     svcInvoice,
		logger:         logger,
		maxUploadBytes: 50 << 20,
		timeout:        2 * time.Minute,
		downloads:      newDownloadStore(downloadTTL),
	}
}

func (hg *HandlerGroup) WithAPIKey(key string) *HandlerGroup {
	hg.apiKey = key
	return hg
}

// WithRecorder enables the request audit log.
func (hg *HandlerGroup) WithRecorder(rec audit.Recorder) *HandlerGroup {
	hg.recorder = rec
	return hg
}

func (hg *HandlerGroup) WithMaxUploadBytes(n int64) *HandlerGroup {
	hg.maxUploadBytes = n
	return hg
}

func (hg *HandlerGroup) WithTimeout(d time.Duration) *HandlerGroup {
	hg.timeout = d
	return hg
}

func (hg *HandlerGroup) Mount(r chi.Router) {
	r.Handle("/", templ.Handler(component.FullPage(pageTitle, page(GeneratePath, hg.maxUploadBytes>>20))))
	r.Post(GeneratePath, auth.RequireAPIKey(hg.apiKey, hg.handleGenerate))
	r.Get(DownloadPath+"/{id}", hg.handleDownload)
}

func (hg *HandlerGroup) handleGenerate(w http.ResponseWriter, r *http.Request) {
	log := audit.NewRequestLog(GeneratePath, r.Method)
	log.ClientIP = clientIP(r)
	defer hg.record(r.Context(), log)

	fail := func(e *response.Error) {
		log.ErrorCode = e.Code
		log.ErrorMessage = e.Message
		for _, d := range e.Details {
			log.AddDetail(audit.DetailValidationError, d)
		}
		log.Finish(e.Status)
		response.WriteError(w, r, e)
	}

	r.Body = http.MaxBytesReader(w, r.Body, hg.maxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if isTooLarge(err) {
			fail(hg.tooLarge(0))
			return
		}
		fail(response.InvalidRequest("Invalid multipart form", err.Error()))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, fh, err := r.FormFile("file")
	if err != nil {
		fail(response.InvalidRequest("No file provided"))
		return
	}
	defer file.Close()

	log.FileName = fh.Filename
	log.FileSizeBytes = fh.Size

	if fh.Size > hg.maxUploadBytes {
		fail(hg.tooLarge(fh.Size))
		return
	}
	if !sheetio.Supported(fh.Filename) {
		fail(unsupported(fh.Filename))
		return
	}

	var invoiceDate time.Time
	if raw := strings.TrimSpace(r.FormValue("invoice_date")); raw != "" {
		log.InvoiceDateOverride = raw
		invoiceDate, err = time.Parse(invoiceDateForm, raw)
		if err != nil {
			fail(response.InvalidRequest("Invalid invoice_date format", "Expected format: YYYY-MM-DD"))
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), hg.timeout)
	defer cancel()

	res, err := hg.svcInvoice.Generate(ctx, service.GenerateRequest{
		FileName:    fh.Filename,
		File:        file,
		InvoiceDate: invoiceDate,
	})
	if err != nil {
		fail(hg.classify(err, fh.Filename))
		return
	}
	defer res.Close()

	data, err := res.Bytes()
	if err != nil {
		hg.logger.Error("failed to write workbook", zap.Error(err))
		fail(response.Internal("Internal server error"))
		return
	}

	log.ProjectsGenerated = res.ProjectCount
	log.TotalHours = res.TotalHours
	for _, p := range res.Projects {
		log.AddDetail(audit.DetailProjectProcessed, p.ProjectID)
	}
	if res.Excluded > 0 {
		log.AddDetail(audit.DetailWarning, fmt.Sprintf("%d non-project entries excluded", res.Excluded))
	}
	log.Finish(http.StatusOK)

	d := download{
		fileName: res.FileName(),
		data:     data,
		projects: res.ProjectCount,
		hours:    res.TotalHours,
	}

	// The upload page cannot save a response body, so it is sent to a
	// one-time download link instead.
	if htmx.IsHTMX(r) {
		id := hg.downloads.put(d)
		_ = htmx.NewResponse().Redirect(DownloadPath + "/" + id).Write(w)
		return
	}
	writeWorkbook(w, d)
}

func (hg *HandlerGroup) handleDownload(w http.ResponseWriter, r *http.Request) {
	d, ok := hg.downloads.take(chi.URLParam(r, "id"))
	if !ok {
		response.WriteError(w, r, response.New(http.StatusNotFound, response.CodeNotFound,
			"Download not found or expired"))
		return
	}
	writeWorkbook(w, d)
}

func writeWorkbook(w http.ResponseWriter, d download) {
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, d.fileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(d.data)))
	w.Header().Set(header.ProjectCount, strconv.Itoa(d.projects))
	w.Header().Set(header.TotalHours, strconv.FormatFloat(d.hours, 'f', 2, 64))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(d.data)
}

// classify maps a generation failure to its API error.
func (hg *HandlerGroup) classify(err error, fileName string) *response.Error {
	switch {
	case errors.Is(err, sheetio.ErrUnsupportedFormat):
		return unsupported(fileName)
	case errors.Is(err, timesheet.ErrNoBillableData):
		return response.New(http.StatusUnprocessableEntity, response.CodeNoBillableProjects,
			"No billable projects found in input file")
	case timesheet.IsDataError(err):
		return response.New(http.StatusUnprocessableEntity, response.CodeValidationError,
			"Timesheet validation failed", timesheet.Details(err)...)
	case errors.Is(err, timesheet.ErrSourceNotFound):
		hg.logger.Error("invoice template missing", zap.Error(err))
		return response.Internal("Server configuration error", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return response.New(http.StatusServiceUnavailable, response.CodeServiceUnavailable,
			"Server is busy, try again later")
	default:
		hg.logger.Error("invoice generation failed", zap.Error(err))
		return response.Internal("Internal server error")
	}
}

func (hg *HandlerGroup) tooLarge(size int64) *response.Error {
	e := response.New(http.StatusRequestEntityTooLarge, response.CodeFileTooLarge,
		fmt.Sprintf("File exceeds maximum size of %d MB", hg.maxUploadBytes>>20))
	if size > 0 {
		e.Details = []string{fmt.Sprintf("File size: %.1f MB", float64(size)/(1<<20))}
	}
	return e
}

func unsupported(fileName string) *response.Error {
	return response.New(http.StatusUnsupportedMediaType, response.CodeUnsupportedMediaType,
		"File is not a supported spreadsheet (.xlsx, .xlsm, .xls, .csv)",
		"Received: "+fileName)
}

func (hg *HandlerGroup) record(ctx context.Context, log *audit.RequestLog) {
	if hg.recorder == nil {
		return
	}
	_ = hg.recorder.Record(context.WithoutCancel(ctx), log)
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large")
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get(header.ForwardedFor); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
