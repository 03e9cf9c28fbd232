package dto

import (
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
)

// CreateTicketRequest payload. Field names follow the board client wire
// format, so validation errors are keyed the way callers sent them.
type CreateTicketRequest struct {
	CustomerName string          `json:"customerName" validate:"required"`
	Product      string          `json:"product" validate:"required"`
	IssueType    string          `json:"issueType" validate:"required"`
	Description  string          `json:"description" validate:"required"`
	Whatsapp     string          `json:"whatsapp" validate:"required,contact"`
	Priority     domain.Priority `json:"priority"`
}

// UpdateTicketRequest is a partial update; absent fields stay untouched.
type UpdateTicketRequest struct {
	CustomerName  *string          `json:"customerName"`
	Product       *string          `json:"product"`
	IssueType     *string          `json:"issueType"`
	Description   *string          `json:"description"`
	Whatsapp      *string          `json:"whatsapp"`
	Status        *domain.Status   `json:"status"`
	Priority      *domain.Priority `json:"priority"`
	AssignedToIDs []string         `json:"assignedMemberIds"`
}

// ToPatch converts the request into the domain patch shape.
func (r UpdateTicketRequest) ToPatch() domain.TicketPatch {
	return domain.TicketPatch{
		CustomerName: r.CustomerName,
		Product:      r.Product,
		IssueType:    r.IssueType,
		Description:  r.Description,
		Whatsapp:     r.Whatsapp,
		Status:       r.Status,
		Priority:     r.Priority,
		AssigneeIDs:  r.AssignedToIDs,
	}
}

// AssignRequest payload for the assignment endpoint.
type AssignRequest struct {
	TicketID  string   `json:"ticketId" validate:"required"`
	MemberIDs []string `json:"memberIds"`
}

// TicketResponse is the full ticket representation.
type TicketResponse struct {
	ID           string                 `json:"id"`
	CustomerName string                 `json:"customerName"`
	Product      string                 `json:"product"`
	IssueType    string                 `json:"issueType"`
	Description  string                 `json:"description"`
	Whatsapp     string                 `json:"whatsapp"`
	Status       domain.Status          `json:"status"`
	Priority     domain.Priority        `json:"priority"`
	AssignedTo   []MemberResponse       `json:"assignedTo"`
	History      []HistoryEntryResponse `json:"history,omitempty"`
	CreatedAt    time.Time              `json:"createdAt"`
	UpdatedAt    time.Time              `json:"updatedAt"`
}

// HistoryEntryResponse is one ledger entry. Before-values are absent on the
// birth record.
type HistoryEntryResponse struct {
	ID              string           `json:"id"`
	BeforeStatus    *domain.Status   `json:"beforeStatus,omitempty"`
	AfterStatus     *domain.Status   `json:"afterStatus,omitempty"`
	BeforePriority  *domain.Priority `json:"beforePriority,omitempty"`
	AfterPriority   *domain.Priority `json:"afterPriority,omitempty"`
	BeforeAssignees []string         `json:"beforeAssignees,omitempty"`
	AfterAssignees  []string         `json:"afterAssignees,omitempty"`
	ChangedBy       string           `json:"changedBy"`
	CreatedAt       time.Time        `json:"createdAt"`
}

// AssignResponse is the assignment endpoint's success shape.
type AssignResponse struct {
	Success    bool             `json:"success"`
	AssignedTo []MemberResponse `json:"assignedTo"`
}
