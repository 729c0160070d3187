package timesheet

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	billableTasks  = []string{"DP", "PM", "3-D", "D-D", "M"}
	billablePhases = []string{"PD", "SD", "DD", "CD", "CA", "M"}
)

func TestExcludeNonProjects(t *testing.T) {
	entries := []Entry{
		{ProjectID: "Vacation"},
		{ProjectID: "HOLIDAY: 0000"},
		{ProjectID: "Personal Time: 1"},
		{ProjectID: "Officeville: 12"},
		{ProjectID: "Sickle Park: 7"},
		{ProjectID: "Smith House: 2301"},
	}

	kept, excluded := ExcludeNonProjects(entries, DefaultNonProjectNames)
	assert.Equal(t, 3, excluded)
	require.Len(t, kept, 3)
	assert.Equal(t, "Officeville: 12", kept[0].ProjectID)
	assert.Equal(t, "Sickle Park: 7", kept[1].ProjectID)
	assert.Equal(t, "Smith House: 2301", kept[2].ProjectID)
}

func TestExcludeZeroHours(t *testing.T) {
	entries := []Entry{{Hours: 0}, {Hours: -1}, {Hours: 0.25}}
	kept := ExcludeZeroHours(entries)
	require.Len(t, kept, 1)
	assert.Equal(t, 0.25, kept[0].Hours)
}

func TestValidateProjectIDs_ReportsEachIDOnce(t *testing.T) {
	entries := []Entry{
		{ProjectID: "NoColon"},
		{ProjectID: "A: 1"},
		{ProjectID: "NoColon"},
		{ProjectID: "Other"},
	}

	err := ValidateProjectIDs(entries)
	require.ErrorIs(t, err, ErrInvalidProjectID)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{
		"Project ID missing colon separator: 'NoColon'",
		"Project ID missing colon separator: 'Other'",
	}, verr.Messages())
}

func TestValidateProjectIDs_SingleInvalidID(t *testing.T) {
	err := ValidateProjectIDs([]Entry{{ProjectID: "NoColon", Hours: 1}})

	details := Details(err)
	require.Len(t, details, 1)
	assert.Contains(t, details[0], "NoColon")
	assert.True(t, IsDataError(err))
}

func TestValidateCodes_CollectsAllViolations(t *testing.T) {
	entries := []Entry{
		{ProjectID: "A: 1", Task: "PM", Phase: "SD"},
		{ProjectID: "A: 1", Task: "BD", Phase: "SD"},
		{ProjectID: "B: 2", Task: "NA", Phase: "XX"},
		{ProjectID: "B: 2", Task: "", Phase: ""},
	}

	err := ValidateCodes(entries, billableTasks, billablePhases)
	require.ErrorIs(t, err, ErrInvalidCode)

	details := Details(err)
	require.Len(t, details, 3)
	assert.Equal(t, "Invalid Task code 'BD' for project 'A: 1' (valid: 3-D, D-D, DP, M, PM)", details[0])
	assert.Equal(t, "Invalid Task code 'NA' for project 'B: 2' (valid: 3-D, D-D, DP, M, PM)", details[1])
	assert.Equal(t, "Invalid Phase code 'XX' for project 'B: 2' (valid: CA, CD, DD, M, PD, SD)", details[2])
	assert.Equal(t, 3, len(splitLines(err.Error())))
}

func TestValidateCodes_Valid(t *testing.T) {
	entries := []Entry{{ProjectID: "A: 1", Task: "M", Phase: "M"}, {ProjectID: "A: 1", Task: "3-D", Phase: "CA"}}
	assert.NoError(t, ValidateCodes(entries, billableTasks, billablePhases))
}

func TestIsDataError(t *testing.T) {
	assert.True(t, IsDataError(ErrNoBillableData))
	assert.True(t, IsDataError(ErrInputMissing))
	assert.True(t, IsDataError(fmt.Errorf("%w: zip: not a valid zip file", ErrUnreadableInput)))
	assert.False(t, IsDataError(ErrSourceNotFound))
	assert.False(t, IsDataError(errors.New("boom")))
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	return append(lines, s[start:])
}
