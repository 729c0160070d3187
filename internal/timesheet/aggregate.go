package timesheet

import (
	"slices"
	"sort"
	"strings"
)

type TaskPhase struct {
	Task  string
	Phase string
}

// Hours holds one project's accumulated hours per (task, phase).
type Hours map[TaskPhase]float64

// Get returns the hours for a combination, zero when absent.
func (h Hours) Get(task, phase string) float64 {
	return h[TaskPhase{Task: task, Phase: phase}]
}

func (h Hours) add(task, phase string, hours float64) {
	key := TaskPhase{Task: task, Phase: phase}
	h[key] = h[key] + hours
}

// PhaseTotals sums hours per phase code.
func (h Hours) PhaseTotals() map[string]float64 {
	totals := make(map[string]float64)
	for key, hours := range h {
		totals[key.Phase] += hours
	}
	return totals
}

// PhaseTotal is the summed hours of one phase, zero when absent.
func (h Hours) PhaseTotal(phase string) float64 {
	var total float64
	for key, hours := range h {
		if key.Phase == phase {
			total += hours
		}
	}
	return total
}

func (h Hours) Total() float64 {
	var total float64
	for _, hours := range h {
		total += hours
	}
	return total
}

// HourMatrix maps project id to its per-(task, phase) hours.
type HourMatrix map[string]Hours

func (m HourMatrix) Total() float64 {
	var total float64
	for _, h := range m {
		total += h.Total()
	}
	return total
}

// Projects returns the project ids ordered by lower-cased project name, then
// by id.
func (m HourMatrix) Projects() []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b string) int {
		if c := strings.Compare(projectName(a), projectName(b)); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})
	return ids
}

// Aggregate sums hours for entries carrying both a task and a phase code.
func Aggregate(entries []Entry) HourMatrix {
	matrix := make(HourMatrix)
	for _, e := range entries {
		if e.Task == "" || e.Phase == "" {
			continue
		}
		hours, ok := matrix[e.ProjectID]
		if !ok {
			hours = make(Hours)
			matrix[e.ProjectID] = hours
		}
		hours.add(e.Task, e.Phase, e.Hours)
	}
	return matrix
}

// DetailList maps project id to its entries in chronological order.
type DetailList map[string][]Entry

// Hours sums the hours of one project's entries.
func (d DetailList) Hours(projectID string) float64 {
	var total float64
	for _, e := range d[projectID] {
		total += e.Hours
	}
	return total
}

// GroupByProject partitions entries by project, each partition sorted by
// date with undated entries first. Input order breaks ties.
func GroupByProject(entries []Entry) DetailList {
	grouped := make(DetailList)
	for _, e := range entries {
		grouped[e.ProjectID] = append(grouped[e.ProjectID], e)
	}
	for _, list := range grouped {
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Date.Before(list[j].Date)
		})
	}
	return grouped
}
