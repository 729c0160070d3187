package timesheet

import (
	"fmt"
	"slices"
	"strings"
)

// DefaultNonProjectNames are categories that are never invoiced.
var DefaultNonProjectNames = []string{"office", "vacation", "holiday", "sick", "personal time"}

// IsNonProject reports whether projectID names one of the non-project
// categories, either alone or as "name:..." (case-insensitive).
func IsNonProject(projectID string, names []string) bool {
	id := strings.ToLower(projectID)
	for _, name := range names {
		name = strings.ToLower(name)
		if id == name || strings.HasPrefix(id, name+Separator) {
			return true
		}
	}
	return false
}

// ExcludeNonProjects drops non-project entries and reports how many were
// dropped.
func ExcludeNonProjects(entries []Entry, names []string) ([]Entry, int) {
	kept := make([]Entry, 0, len(entries))
	excluded := 0
	for _, e := range entries {
		if IsNonProject(e.ProjectID, names) {
			excluded++
			continue
		}
		kept = append(kept, e)
	}
	return kept, excluded
}

// ExcludeZeroHours drops entries with zero or negative hours.
func ExcludeZeroHours(entries []Entry) []Entry {
	kept := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.Hours > 0 {
			kept = append(kept, e)
		}
	}
	return kept
}

// ValidateProjectIDs reports each distinct project id without a separator
// once, in first-seen order.
func ValidateProjectIDs(entries []Entry) error {
	var messages []string
	seen := make(map[string]struct{})

	for _, e := range entries {
		if _, ok := seen[e.ProjectID]; ok {
			continue
		}
		seen[e.ProjectID] = struct{}{}

		if !strings.Contains(e.ProjectID, Separator) {
			messages = append(messages, fmt.Sprintf("Project ID missing colon separator: '%s'", e.ProjectID))
		}
	}

	if len(messages) > 0 {
		return newValidationError(ErrInvalidProjectID, messages)
	}
	return nil
}

// ValidateCodes checks every non-empty task and phase code against the
// billable sets. All violations are collected before failing.
func ValidateCodes(entries []Entry, taskCodes, phaseCodes []string) error {
	validTasks := sortedCopy(taskCodes)
	validPhases := sortedCopy(phaseCodes)

	var messages []string
	for _, e := range entries {
		if e.Task != "" && !slices.Contains(validTasks, e.Task) {
			messages = append(messages, fmt.Sprintf(
				"Invalid Task code '%s' for project '%s' (valid: %s)",
				e.Task, e.ProjectID, strings.Join(validTasks, ", ")))
		}
		if e.Phase != "" && !slices.Contains(validPhases, e.Phase) {
			messages = append(messages, fmt.Sprintf(
				"Invalid Phase code '%s' for project '%s' (valid: %s)",
				e.Phase, e.ProjectID, strings.Join(validPhases, ", ")))
		}
	}

	if len(messages) > 0 {
		return newValidationError(ErrInvalidCode, messages)
	}
	return nil
}

func sortedCopy(s []string) []string {
	out := slices.Clone(s)
	slices.Sort(out)
	return out
}
