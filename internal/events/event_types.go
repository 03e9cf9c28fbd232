package events

import (
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated          EventType = "ticket_created"
	EventTicketStatusChanged    EventType = "ticket_status_changed"
	EventTicketPriorityChanged  EventType = "ticket_priority_changed"
	EventTicketAssigneesChanged EventType = "ticket_assignees_changed"
)

// Event represents a domain event emitted by services after a committed
// update.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TenantID  string    `json:"tenant_id"`
	TicketID  string    `json:"ticket_id"`
	Actor     string    `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	CustomerName string          `json:"customer_name"`
	Product      string          `json:"product"`
	IssueType    string          `json:"issue_type"`
	Priority     domain.Priority `json:"priority"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.Status `json:"old_status"`
	NewStatus domain.Status `json:"new_status"`
}

// TicketPriorityChangedPayload payload.
type TicketPriorityChangedPayload struct {
	OldPriority domain.Priority `json:"old_priority"`
	NewPriority domain.Priority `json:"new_priority"`
}

// TicketAssigneesChangedPayload payload.
type TicketAssigneesChangedPayload struct {
	OldMemberIDs []string `json:"old_member_ids"`
	NewMemberIDs []string `json:"new_member_ids"`
}
