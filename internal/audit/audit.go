// Package audit records every invoice API request in a SQLite database.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

const (
	createRequestsTableSQL = `
  CREATE TABLE IF NOT EXISTS api_requests (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  request_id TEXT UNIQUE NOT NULL,
  timestamp TEXT NOT NULL,
  endpoint TEXT NOT NULL,
  method TEXT NOT NULL,
  client_ip TEXT,
  file_size_bytes INTEGER,
  file_name TEXT,
  invoice_date_override TEXT,
  status_code INTEGER NOT NULL,
  error_code TEXT,
  error_message TEXT,
  processing_time_ms INTEGER NOT NULL,
  projects_generated INTEGER,
  total_hours REAL
  )`

	createDetailsTableSQL = `
  CREATE TABLE IF NOT EXISTS api_request_details (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  request_id TEXT NOT NULL,
  detail_type TEXT NOT NULL CHECK(detail_type IN ('validation_error', 'project_processed', 'warning')),
  message TEXT NOT NULL,
  FOREIGN KEY (request_id) REFERENCES api_requests(request_id)
  )`

	createTimestampIndexSQL = `CREATE INDEX IF NOT EXISTS idx_api_requests_timestamp ON api_requests(timestamp)`
	createStatusIndexSQL    = `CREATE INDEX IF NOT EXISTS idx_api_requests_status ON api_requests(status_code)`
	createDetailsIndexSQL   = `CREATE INDEX IF NOT EXISTS idx_api_request_details_request ON api_request_details(request_id)`

	insertRequestSQL = `
  INSERT INTO api_requests (
  request_id, timestamp, endpoint, method, client_ip,
  file_size_bytes, file_name, invoice_date_override,
  status_code, error_code, error_message, processing_time_ms,
  projects_generated, total_hours
  ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	insertDetailSQL = `INSERT INTO api_request_details (request_id, detail_type, message) VALUES (?, ?, ?)`
)

type DetailType string

const (
	DetailValidationError  DetailType = "validation_error"
	DetailProjectProcessed DetailType = "project_processed"
	DetailWarning          DetailType = "warning"
)

type Detail struct {
	Type    DetailType
	Message string
}

// RequestLog is one API request and its outcome. Zero-valued optional
// fields are stored as NULL.
type RequestLog struct {
	RequestID           string
	Timestamp           time.Time
	Endpoint            string
	Method              string
	ClientIP            string
	FileSizeBytes       int64
	FileName            string
	InvoiceDateOverride string
	StatusCode          int
	ErrorCode           string
	ErrorMessage        string
	ProcessingTime      time.Duration
	ProjectsGenerated   int
	TotalHours          float64
	Details             []Detail

	started time.Time
}

func NewRequestLog(endpoint, method string) *RequestLog {
	now := time.Now()
	return &RequestLog{
		RequestID: uuid.NewString(),
		Timestamp: now.UTC(),
		Endpoint:  endpoint,
		Method:    method,
		started:   now,
	}
}

func (l *RequestLog) AddDetail(t DetailType, message string) {
	l.Details = append(l.Details, Detail{Type: t, Message: message})
}

// Finish stamps the status code and the time elapsed since NewRequestLog.
func (l *RequestLog) Finish(status int) {
	l.StatusCode = status
	if !l.started.IsZero() {
		l.ProcessingTime = time.Since(l.started)
	}
}

// Recorder stores request logs.
type Recorder interface {
	Record(ctx context.Context, l *RequestLog) error
}

type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens or creates the database at path and migrates it.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db, logger: logger}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) runMigrations() error {
	statements := []string{
		createRequestsTableSQL,
		createDetailsTableSQL,
		createTimestampIndexSQL,
		createStatusIndexSQL,
		createDetailsIndexSQL,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to migrate: %w", err)
		}
	}

	return nil
}

// Record inserts the request and its details in one transaction. Failures
// are logged as well as returned; callers serving a request ignore them.
func (s *Store) Record(ctx context.Context, l *RequestLog) (err error) {
	defer func() {
		if err != nil {
			s.logger.Warn("failed to record request", zap.String("request_id", l.RequestID), zap.Error(err))
		}
	}()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, insertRequestSQL,
		l.RequestID,
		l.Timestamp.UTC().Format(time.RFC3339Nano),
		l.Endpoint,
		l.Method,
		nullString(l.ClientIP),
		nullInt(l.FileSizeBytes),
		nullString(l.FileName),
		nullString(l.InvoiceDateOverride),
		l.StatusCode,
		nullString(l.ErrorCode),
		nullString(l.ErrorMessage),
		l.ProcessingTime.Milliseconds(),
		nullInt(int64(l.ProjectsGenerated)),
		nullFloat(l.TotalHours),
	)
	if err != nil {
		return fmt.Errorf("insert request: %w", err)
	}

	for _, d := range l.Details {
		if _, err = tx.ExecContext(ctx, insertDetailSQL, l.RequestID, string(d.Type), d.Message); err != nil {
			return fmt.Errorf("insert detail: %w", err)
		}
	}

	return tx.Commit()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(n int64) sql.NullInt64 {
	return sql.NullInt64{Int64: n, Valid: n != 0}
}

func nullFloat(f float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: f, Valid: f != 0}
}
