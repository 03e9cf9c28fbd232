package domain

import "time"

// Status enumerates the board workflow states. The literals are part of the
// persisted and transmitted contract; history records store them as opaque
// strings, so they must never be renamed.
type Status string

const (
	StatusNew                      Status = "New"
	StatusAcknowledged             Status = "Acknowledged"
	StatusInvestigation            Status = "Investigation"
	StatusAwaitingCustomerResponse Status = "Awaiting_Customer_Response"
	StatusInProgress               Status = "In_Progress"
	StatusResolved                 Status = "Resolved"
	StatusClosed                   Status = "Closed"
)

// Columns lists statuses in board order. The workflow reads left to right but
// transitions between any two statuses are permitted.
var Columns = []Status{
	StatusNew,
	StatusAcknowledged,
	StatusInvestigation,
	StatusAwaitingCustomerResponse,
	StatusInProgress,
	StatusResolved,
	StatusClosed,
}

// StatusDescriptions carries the fixed UI hint for each status. Display only,
// never consulted for behavior.
var StatusDescriptions = map[Status]string{
	StatusNew:                      "Ticket has been created but not yet reviewed.",
	StatusAcknowledged:             "Support team has seen the ticket and confirmed receipt.",
	StatusInvestigation:            "Check what the issue is and make sure all the required documents/images/videos are present.",
	StatusAwaitingCustomerResponse: "Waiting for input or confirmation from the customer.",
	StatusInProgress:               "Work has started to resolve the issue - an engineer has to be assigned first.",
	StatusResolved:                 "Issue is fixed, pending customer confirmation. Should give feedback to the customer.",
	StatusClosed:                   "Customer has confirmed resolution or the time-out period has passed.",
}

// Valid reports whether the status is one of the seven workflow values.
func (s Status) Valid() bool {
	_, ok := StatusDescriptions[s]
	return ok
}

// Priority enumerates ticket urgency. Unordered for transition purposes.
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// Priorities lists all priority values.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

// Valid reports whether the priority is one of the defined values.
func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// Ticket is the aggregate for one customer-reported issue. A ticket belongs
// to exactly one tenant for its entire lifetime.
type Ticket struct {
	ID           string
	TenantID     string
	CustomerName string
	Product      string
	IssueType    string
	Description  string
	Whatsapp     string
	Status       Status
	Priority     Priority
	Assignees    []Member
	History      []HistoryRecord
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AssigneeIDs returns the member ids of the current assignment set.
func (t *Ticket) AssigneeIDs() []string {
	ids := make([]string, 0, len(t.Assignees))
	for _, m := range t.Assignees {
		ids = append(ids, m.ID)
	}
	return ids
}
