// Package config loads service settings from a .env file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"

	"github.com/angelofallars/sheetbill/internal/layout"
	"github.com/angelofallars/sheetbill/internal/timesheet"
)

const prefix = "SHEETBILL_"

type Config struct {
	Host   string
	Port   int
	APIKey string
	Debug  bool

	MaxUploadMB       int
	MaxConcurrentJobs int

	TemplatePath string
	LogoPath     string
	LayoutPath   string
	OutputDir    string
	AuditDB      string

	Timezone    string
	NonProjects []string
}

func Default() *Config {
	return &Config{
		Host:              "0.0.0.0",
		Port:              8000,
		MaxUploadMB:       50,
		MaxConcurrentJobs: 2,
		TemplatePath:      "data/templates/invoice-template.xlsx",
		LogoPath:          "data/templates/logo.png",
		OutputDir:         "output",
		AuditDB:           "data/db/audit.db",
		Timezone:          "America/New_York",
		NonProjects:       timesheet.DefaultNonProjectNames,
	}
}

// Load reads envFiles (".env" when none are given) into the environment,
// skipping files that do not exist, then builds a Config from it.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		if _, err := os.Stat(file); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			return nil, fmt.Errorf("load %s: %w", file, err)
		}
	}

	c := Default()
	var errs []error

	c.Host = str("HOST", c.Host)
	c.APIKey = str("API_KEY", c.APIKey)
	c.TemplatePath = str("TEMPLATE", c.TemplatePath)
	c.LogoPath = str("LOGO", c.LogoPath)
	c.LayoutPath = str("LAYOUT", c.LayoutPath)
	c.OutputDir = str("OUTPUT_DIR", c.OutputDir)
	c.Timezone = str("TIMEZONE", c.Timezone)
	if v, ok := os.LookupEnv(prefix + "AUDIT_DB"); ok {
		c.AuditDB = strings.TrimSpace(v)
	}
	if v := str("NON_PROJECTS", ""); v != "" {
		c.NonProjects = splitList(v)
	}

	var err error
	if c.Port, err = integer("PORT", c.Port); err != nil {
		errs = append(errs, err)
	}
	if c.MaxUploadMB, err = integer("MAX_UPLOAD_MB", c.MaxUploadMB); err != nil {
		errs = append(errs, err)
	}
	if c.MaxConcurrentJobs, err = integer("MAX_CONCURRENT_JOBS", c.MaxConcurrentJobs); err != nil {
		errs = append(errs, err)
	}
	if c.Debug, err = boolean("DEBUG", c.Debug); err != nil {
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate reports every out-of-range setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("%sPORT must be between 1 and 65535, got %d", prefix, c.Port))
	}
	if c.MaxUploadMB < 1 {
		errs = append(errs, fmt.Errorf("%sMAX_UPLOAD_MB must be positive, got %d", prefix, c.MaxUploadMB))
	}
	if c.MaxConcurrentJobs < 1 {
		errs = append(errs, fmt.Errorf("%sMAX_CONCURRENT_JOBS must be positive, got %d", prefix, c.MaxConcurrentJobs))
	}
	if c.TemplatePath == "" {
		errs = append(errs, fmt.Errorf("%sTEMPLATE must not be empty", prefix))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("%sTIMEZONE: %w", prefix, err))
	}
	return errors.Join(errs...)
}

func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Layout returns the configured template layout, the default one when no
// layout file is set.
func (c *Config) Layout() (layout.Layout, error) {
	if c.LayoutPath == "" {
		return layout.Default(), nil
	}
	return layout.Load(c.LayoutPath)
}

func str(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(prefix + key))
	if v == "" {
		return fallback
	}
	return v
}

func integer(key string, fallback int) (int, error) {
	v := str(key, "")
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback, fmt.Errorf("%s%s: %q is not an integer", prefix, key, v)
	}
	return n, nil
}

func boolean(key string, fallback bool) (bool, error) {
	v := str(key, "")
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback, fmt.Errorf("%s%s: %q is not a boolean", prefix, key, v)
	}
	return b, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, strings.ToLower(part))
		}
	}
	return out
}
