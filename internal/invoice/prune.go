package invoice

import (
	"slices"

	"github.com/angelofallars/sheetbill/internal/layout"
	"github.com/angelofallars/sheetbill/internal/timesheet"
)

// Plan lists the template rows to delete for one project.
type Plan struct {
	// Rows are template-relative and sorted descending, so deleting them in
	// order never shifts a row that is still pending.
	Rows []int
	// RemovedPhases are phases with no hours; their whole section goes.
	RemovedPhases []string
	// PrunedTasks lists, per kept phase, the task codes whose row goes.
	PrunedTasks map[string][]string
}

// Prune decides which template rows are empty for a project's hours.
// A phase without hours loses its header, task and subtotal rows. A phase
// with hours loses only its zero-hour task rows, except the meetings phase
// which keeps its single aggregate row.
func Prune(hours timesheet.Hours, l layout.Layout) Plan {
	plan := Plan{PrunedTasks: make(map[string][]string)}
	totals := hours.PhaseTotals()

	for _, phase := range l.Phases {
		if totals[phase.Code] == 0 {
			plan.RemovedPhases = append(plan.RemovedPhases, phase.Code)
			plan.Rows = append(plan.Rows, phase.Header, phase.Subtotal)
			for _, tr := range phase.Tasks {
				plan.Rows = append(plan.Rows, tr.Row)
			}
			continue
		}

		if l.IsMeetings(phase.Code) {
			continue
		}

		for _, tr := range phase.Tasks {
			if hours.Get(tr.Task, phase.Code) == 0 {
				plan.Rows = append(plan.Rows, tr.Row)
				plan.PrunedTasks[phase.Code] = append(plan.PrunedTasks[phase.Code], tr.Task)
			}
		}
	}

	slices.Sort(plan.Rows)
	slices.Reverse(plan.Rows)
	return plan
}

// ActivePhases returns the phases kept by the plan, in template order.
func (p Plan) ActivePhases(l layout.Layout) []string {
	var active []string
	for _, code := range l.PhaseCodes() {
		if !slices.Contains(p.RemovedPhases, code) {
			active = append(active, code)
		}
	}
	return active
}
