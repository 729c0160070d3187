package audit

import (
	"context"
	"database/sql"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "db", "audit.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewRequestLog(t *testing.T) {
	l := NewRequestLog("/v1/invoices/generate", http.MethodPost)

	_, err := uuid.Parse(l.RequestID)
	assert.NoError(t, err)
	assert.False(t, l.Timestamp.IsZero())

	l.Finish(http.StatusOK)
	assert.Equal(t, http.StatusOK, l.StatusCode)
	assert.GreaterOrEqual(t, l.ProcessingTime.Nanoseconds(), int64(0))
}

func TestRecord_SuccessfulRequest(t *testing.T) {
	s := openTestStore(t)

	l := NewRequestLog("/v1/invoices/generate", http.MethodPost)
	l.ClientIP = "127.0.0.1"
	l.FileName = "hours.xlsx"
	l.FileSizeBytes = 2048
	l.ProjectsGenerated = 2
	l.TotalHours = 12.5
	l.AddDetail(DetailProjectProcessed, "Alpha: 100")
	l.AddDetail(DetailProjectProcessed, "Beta: 200")
	l.Finish(http.StatusOK)

	require.NoError(t, s.Record(context.Background(), l))

	var (
		status    int
		fileName  string
		errorCode sql.NullString
		hours     float64
	)
	err := s.db.QueryRow(
		`SELECT status_code, file_name, error_code, total_hours FROM api_requests WHERE request_id = ?`,
		l.RequestID,
	).Scan(&status, &fileName, &errorCode, &hours)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "hours.xlsx", fileName)
	assert.False(t, errorCode.Valid)
	assert.Equal(t, 12.5, hours)

	var details int
	require.NoError(t, s.db.QueryRow(
		`SELECT COUNT(*) FROM api_request_details WHERE request_id = ? AND detail_type = 'project_processed'`,
		l.RequestID,
	).Scan(&details))
	assert.Equal(t, 2, details)
}

func TestRecord_DuplicateRequestIDRollsBack(t *testing.T) {
	s := openTestStore(t)

	l := NewRequestLog("/v1/invoices/generate", http.MethodPost)
	l.Finish(http.StatusUnprocessableEntity)
	require.NoError(t, s.Record(context.Background(), l))

	l.AddDetail(DetailValidationError, "Invalid Task code 'X' for project 'Alpha: 1'")
	assert.Error(t, s.Record(context.Background(), l))

	var details int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM api_request_details`).Scan(&details))
	assert.Zero(t, details)
}

func TestOpen_IsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")

	first, err := Open(path, nil)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := Open(path, nil)
	require.NoError(t, err)
	require.NoError(t, second.Close())
}
