// Package timesheet reads, filters, validates and aggregates billable time
// entries.
package timesheet

import (
	"fmt"
	"strings"
	"time"
)

// Separator splits a project id into its name and number.
const Separator = ":"

// Entry is one timesheet row. The zero Date means the row had no usable date.
type Entry struct {
	ProjectID string
	Date      time.Time
	Employee  string
	Hours     float64
	Task      string
	Phase     string
	WID       string
}

func (e Entry) HasDate() bool { return !e.Date.IsZero() }

type ProjectKey struct {
	Name   string
	Number string
}

// ParseProjectID splits "Name: Number" on the first separator.
func ParseProjectID(projectID string) (ProjectKey, error) {
	name, number, ok := strings.Cut(projectID, Separator)
	if !ok {
		return ProjectKey{}, fmt.Errorf("%w: Project ID missing colon separator: '%s'", ErrInvalidProjectID, projectID)
	}
	return ProjectKey{
		Name:   strings.TrimSpace(name),
		Number: strings.TrimSpace(number),
	}, nil
}

// projectName is the lower-cased name part used for ordering and matching.
func projectName(projectID string) string {
	name, _, _ := strings.Cut(projectID, Separator)
	return strings.ToLower(strings.TrimSpace(name))
}

// Period is the billing month of a set of entries: the month of the first
// dated entry, or of now when none are dated.
func Period(entries []Entry, now time.Time) time.Time {
	for _, e := range entries {
		if e.HasDate() {
			return time.Date(e.Date.Year(), e.Date.Month(), 1, 0, 0, 0, 0, time.UTC)
		}
	}
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}
