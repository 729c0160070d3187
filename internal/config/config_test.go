package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelofallars/sheetbill/internal/layout"
)

func TestLoad_Defaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", c.Host)
	assert.Equal(t, 8000, c.Port)
	assert.Equal(t, int64(50<<20), c.MaxUploadBytes())
	assert.Equal(t, 2, c.MaxConcurrentJobs)
	assert.Equal(t, "data/db/audit.db", c.AuditDB)
	assert.Equal(t, "America/New_York", c.Location().String())

	l, err := c.Layout()
	require.NoError(t, err)
	assert.Equal(t, layout.Default(), l)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("SHEETBILL_PORT", "9001")
	t.Setenv("SHEETBILL_API_KEY", "secret")
	t.Setenv("SHEETBILL_DEBUG", "true")
	t.Setenv("SHEETBILL_AUDIT_DB", "")
	t.Setenv("SHEETBILL_NON_PROJECTS", "Office, Training ,")
	t.Setenv("SHEETBILL_TIMEZONE", "UTC")

	c, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, 9001, c.Port)
	assert.Equal(t, "secret", c.APIKey)
	assert.True(t, c.Debug)
	assert.Empty(t, c.AuditDB)
	assert.Equal(t, []string{"office", "training"}, c.NonProjects)
	assert.Equal(t, time.UTC, c.Location())
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("SHEETBILL_MAX_UPLOAD_MB=5\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("SHEETBILL_MAX_UPLOAD_MB") })

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, c.MaxUploadMB)
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Setenv("SHEETBILL_PORT", "http")
	t.Setenv("SHEETBILL_DEBUG", "maybe")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHEETBILL_PORT")
	assert.Contains(t, err.Error(), "SHEETBILL_DEBUG")
}

func TestValidate(t *testing.T) {
	c := Default()
	c.Port = 0
	c.MaxConcurrentJobs = 0
	c.Timezone = "Mars/Olympus_Mons"

	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHEETBILL_PORT")
	assert.Contains(t, err.Error(), "SHEETBILL_MAX_CONCURRENT_JOBS")
	assert.Contains(t, err.Error(), "SHEETBILL_TIMEZONE")
}
