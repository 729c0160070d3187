package timesheet

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time { return time.Date(2025, 11, d, 0, 0, 0, 0, time.UTC) }

func TestAggregate_ScenarioZeroHourEntryDropped(t *testing.T) {
	entries := ExcludeZeroHours([]Entry{
		{ProjectID: "A:1", Hours: 8, Task: "PM", Phase: "SD"},
		{ProjectID: "A:1", Hours: 2, Task: "PM", Phase: "SD"},
		{ProjectID: "A:1", Hours: 0, Task: "DP", Phase: "PD"},
	})

	matrix := Aggregate(entries)
	want := HourMatrix{"A:1": Hours{{Task: "PM", Phase: "SD"}: 10}}
	if diff := cmp.Diff(want, matrix); diff != "" {
		t.Errorf("Aggregate() mismatch (-want +got):\n%s", diff)
	}
	assert.Zero(t, matrix["A:1"].Get("DP", "PD"))
	assert.Zero(t, matrix["A:1"].PhaseTotal("PD"))
}

func TestAggregate_SkipsEntriesMissingCodes(t *testing.T) {
	entries := []Entry{
		{ProjectID: "A: 1", Hours: 3, Task: "PM"},
		{ProjectID: "A: 1", Hours: 1, Phase: "SD"},
		{ProjectID: "B: 2", Hours: 4, Task: "M", Phase: "M"},
	}

	matrix := Aggregate(entries)
	assert.NotContains(t, matrix, "A: 1")
	assert.Equal(t, 4.0, matrix.Total())

	details := GroupByProject(entries)
	assert.Len(t, details["A: 1"], 2)
}

func TestHours_PhaseTotals(t *testing.T) {
	h := Hours{
		{Task: "PM", Phase: "SD"}: 2,
		{Task: "DP", Phase: "SD"}: 3,
		{Task: "M", Phase: "M"}:   1.5,
	}
	assert.Equal(t, map[string]float64{"SD": 5, "M": 1.5}, h.PhaseTotals())
	assert.Equal(t, 6.5, h.Total())
}

func TestHourMatrix_ProjectsSortedByName(t *testing.T) {
	m := HourMatrix{
		"zeta: 1":        {},
		"Alpha Barn: 9":  {},
		"alpha barn: 10": {},
		"Mid: 3":         {},
	}
	assert.Equal(t, []string{"Alpha Barn: 9", "alpha barn: 10", "Mid: 3", "zeta: 1"}, m.Projects())
}

func TestGroupByProject_SortsUndatedFirstAndKeepsInputOrder(t *testing.T) {
	entries := []Entry{
		{ProjectID: "A: 1", Date: day(5), WID: "late"},
		{ProjectID: "A: 1", WID: "undated"},
		{ProjectID: "A: 1", Date: day(2), WID: "early-1"},
		{ProjectID: "B: 2", Date: day(1), WID: "other"},
		{ProjectID: "A: 1", Date: day(2), WID: "early-2"},
	}

	grouped := GroupByProject(entries)
	require.Len(t, grouped["A: 1"], 4)

	var wids []string
	for _, e := range grouped["A: 1"] {
		wids = append(wids, e.WID)
	}
	assert.Equal(t, []string{"undated", "early-1", "early-2", "late"}, wids)
}

func TestAggregateRoundTrip(t *testing.T) {
	entries := []Entry{
		{ProjectID: "A: 1", Date: day(3), Hours: 1.25, Task: "PM", Phase: "SD"},
		{ProjectID: "A: 1", Date: day(1), Hours: 2, Task: "DP", Phase: "SD"},
		{ProjectID: "B: 2", Date: day(2), Hours: 4, Task: "M", Phase: "M"},
		{ProjectID: "B: 2", Hours: 0.5, Task: "3-D", Phase: "CD"},
		{ProjectID: "A: 1", Date: day(9), Hours: 3, Task: "PM", Phase: "SD"},
	}

	matrix := Aggregate(entries)
	details := GroupByProject(entries)

	direct := make(map[string]float64)
	for _, e := range entries {
		direct[e.ProjectID] += e.Hours
	}

	for id, total := range direct {
		assert.InDelta(t, total, details.Hours(id), 1e-9, id)
		assert.InDelta(t, total, matrix[id].Total(), 1e-9, id)
		assert.InDelta(t, matrix[id].Total(), Aggregate(details[id])[id].Total(), 1e-9, id)
	}
}
