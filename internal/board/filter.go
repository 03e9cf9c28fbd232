package board

import (
	"strings"

	"github.com/spec-kit/support-desk/internal/domain"
)

// Mode selects which facet drives column inclusion.
type Mode string

const (
	ModeStatus   Mode = "status"
	ModePriority Mode = "priority"
)

// Filter narrows which tickets are rendered. Zero value shows everything in
// status mode.
type Filter struct {
	Priorities []domain.Priority
	Statuses   []domain.Status
	AssignedTo string
	Mode       Mode
}

// VisibleColumns returns the columns to render, in board order. In status
// mode only the selected statuses appear; in priority mode every column does.
func (f Filter) VisibleColumns() []domain.Status {
	if f.Mode == ModePriority || len(f.Statuses) == 0 {
		return append([]domain.Status{}, domain.Columns...)
	}
	selected := make(map[domain.Status]struct{}, len(f.Statuses))
	for _, s := range f.Statuses {
		selected[s] = struct{}{}
	}
	columns := make([]domain.Status, 0, len(f.Statuses))
	for _, c := range domain.Columns {
		if _, ok := selected[c]; ok {
			columns = append(columns, c)
		}
	}
	return columns
}

// Visible returns the tickets to render in the given column. Pure and
// non-destructive: the input slice is never mutated and applying the same
// filter twice yields the same subset.
func Visible(tickets []Ticket, f Filter, column domain.Status) []Ticket {
	query := strings.ToLower(strings.TrimSpace(f.AssignedTo))
	var result []Ticket
	for _, t := range tickets {
		if t.Status != column {
			continue
		}
		if f.Mode == ModePriority && !priorityMatches(t, f.Priorities) {
			continue
		}
		if !assigneeMatches(t, query) {
			continue
		}
		result = append(result, t)
	}
	return result
}

func priorityMatches(t Ticket, priorities []domain.Priority) bool {
	if len(priorities) == 0 {
		return false
	}
	priority := t.Priority
	if priority == "" {
		priority = domain.PriorityLow
	}
	for _, p := range priorities {
		if p == priority {
			return true
		}
	}
	return false
}

func assigneeMatches(t Ticket, query string) bool {
	if query == "" {
		return true
	}
	for _, m := range t.AssignedTo {
		if strings.Contains(strings.ToLower(m.Name), query) {
			return true
		}
	}
	return false
}
