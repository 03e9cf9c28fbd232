package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/repository"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// LifecycleService is the single authority for mutating a ticket's fields and
// for deciding what belongs in the audit ledger.
type LifecycleService struct {
	tickets     repository.TicketRepository
	history     repository.HistoryRepository
	uow         repository.UnitOfWork
	assignments *AssignmentService
	dispatcher  events.Dispatcher
}

// LifecycleDependencies bundles collaborators for the lifecycle service.
type LifecycleDependencies struct {
	TicketRepo  repository.TicketRepository
	HistoryRepo repository.HistoryRepository
	UnitOfWork  repository.UnitOfWork
	Assignments *AssignmentService
	Dispatcher  events.Dispatcher
}

// TicketCreateInput describes the ticket intake payload. All fields except
// Priority are required; Priority defaults to Low.
type TicketCreateInput struct {
	CustomerName string
	Product      string
	IssueType    string
	Description  string
	Whatsapp     string
	Priority     domain.Priority
}

// BoardFilter narrows board listings.
type BoardFilter struct {
	Statuses   []domain.Status
	Priorities []domain.Priority
	Limit      int
	Offset     int
}

// NewLifecycleService constructs the service.
func NewLifecycleService(deps LifecycleDependencies) *LifecycleService {
	return &LifecycleService{
		tickets:     deps.TicketRepo,
		history:     deps.HistoryRepo,
		uow:         deps.UnitOfWork,
		assignments: deps.Assignments,
		dispatcher:  deps.Dispatcher,
	}
}

// CreateTicket validates intake fields, creates the ticket with status New
// and seeds its birth history record. The 400 response for missing fields
// lists each absent field in the error details.
func (s *LifecycleService) CreateTicket(ctx context.Context, tenantID, actor string, input TicketCreateInput) (*domain.Ticket, error) {
	if tenantID == "" {
		return nil, apperrors.NewUnauthorized("no active organization selected")
	}

	missing := map[string]any{}
	for field, value := range map[string]string{
		"customerName": input.CustomerName,
		"product":      input.Product,
		"issueType":    input.IssueType,
		"description":  input.Description,
		"whatsapp":     input.Whatsapp,
	} {
		if strings.TrimSpace(value) == "" {
			missing[field] = true
		}
	}
	if len(missing) > 0 {
		return nil, apperrors.NewValidationError("missing required fields", missing)
	}
	if !domain.ValidContactNumber(strings.TrimSpace(input.Whatsapp)) {
		return nil, apperrors.NewValidationError("invalid contact number", map[string]any{"whatsapp": input.Whatsapp})
	}

	priority := input.Priority
	if priority == "" {
		priority = domain.PriorityLow
	}
	if !priority.Valid() {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": priority})
	}

	ticket := &domain.Ticket{
		TenantID:     tenantID,
		CustomerName: strings.TrimSpace(input.CustomerName),
		Product:      strings.TrimSpace(input.Product),
		IssueType:    strings.TrimSpace(input.IssueType),
		Description:  strings.TrimSpace(input.Description),
		Whatsapp:     strings.TrimSpace(input.Whatsapp),
		Status:       domain.StatusNew,
		Priority:     priority,
	}

	// Birth event: after-values only, no before-values.
	birth := &domain.HistoryRecord{
		ChangedBy: actorName(actor),
	}
	err := s.uow.InTx(ctx, func(tickets repository.TicketRepository, history repository.HistoryRepository) error {
		if err := tickets.Create(ctx, ticket); err != nil {
			return err
		}
		birth.TicketID = ticket.ID
		birth.AfterStatus = statusPtr(ticket.Status)
		birth.AfterPriority = priorityPtr(ticket.Priority)
		return history.Create(ctx, birth)
	})
	if err != nil {
		return nil, apperrors.NewPersistenceFailure(err)
	}

	ticket.Assignees = []domain.Member{}
	ticket.History = []domain.HistoryRecord{*birth}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TenantID: tenantID,
		TicketID: ticket.ID,
		Actor:    actorName(actor),
		Payload: events.TicketCreatedPayload{
			CustomerName: ticket.CustomerName,
			Product:      ticket.Product,
			IssueType:    ticket.IssueType,
			Priority:     ticket.Priority,
		},
	})
	return ticket, nil
}

// ApplyUpdate applies a partial update to a ticket, staging at most one
// history record per call: a simultaneous status and priority change yields a
// single merged record. The ticket row and the ledger append are written as
// one transaction; if either fails the ticket is not updated. An
// assignedMemberIds patch is delegated to the assignment coordinator.
func (s *LifecycleService) ApplyUpdate(ctx context.Context, tenantID, ticketID string, patch domain.TicketPatch, actor string) (*domain.Ticket, error) {
	if err := validatePatch(patch); err != nil {
		return nil, err
	}

	ticket, err := s.tickets.GetByID(ctx, tenantID, ticketID)
	if err != nil {
		return nil, mapStoreError(err, "ticket", map[string]any{"ticket_id": ticketID})
	}

	if patch.AssigneeIDs != nil {
		if _, _, err := s.assignments.SetAssignees(ctx, tenantID, ticketID, patch.AssigneeIDs, actor); err != nil {
			return nil, err
		}
	}

	oldStatus := ticket.Status
	oldPriority := ticket.Priority

	record := &domain.HistoryRecord{
		TicketID:  ticket.ID,
		ChangedBy: actorName(actor),
	}
	if patch.Status != nil && *patch.Status != ticket.Status {
		record.BeforeStatus = statusPtr(ticket.Status)
		record.AfterStatus = patch.Status
		ticket.Status = *patch.Status
	}
	if patch.Priority != nil && *patch.Priority != ticket.Priority {
		record.BeforePriority = priorityPtr(ticket.Priority)
		record.AfterPriority = patch.Priority
		ticket.Priority = *patch.Priority
	}
	applyScalars(ticket, patch)

	err = s.uow.InTx(ctx, func(tickets repository.TicketRepository, history repository.HistoryRepository) error {
		if err := tickets.Update(ctx, ticket); err != nil {
			return err
		}
		if !record.Empty() {
			return history.Create(ctx, record)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.NewPersistenceFailure(err)
	}

	if record.AfterStatus != nil {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketStatusChanged,
			TenantID: tenantID,
			TicketID: ticket.ID,
			Actor:    actorName(actor),
			Payload: events.TicketStatusChangedPayload{
				OldStatus: oldStatus,
				NewStatus: ticket.Status,
			},
		})
	}
	if record.AfterPriority != nil {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketPriorityChanged,
			TenantID: tenantID,
			TicketID: ticket.ID,
			Actor:    actorName(actor),
			Payload: events.TicketPriorityChangedPayload{
				OldPriority: oldPriority,
				NewPriority: ticket.Priority,
			},
		})
	}

	return s.loadTicket(ctx, tenantID, ticket.ID)
}

// GetTicket returns a ticket with its assignment set and full ledger.
func (s *LifecycleService) GetTicket(ctx context.Context, tenantID, ticketID string) (*domain.Ticket, error) {
	if tenantID == "" {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	return s.loadTicket(ctx, tenantID, ticketID)
}

// ListTickets returns the tenant's tickets for the board, newest first. A
// caller with no active tenant sees an empty board, not an error.
func (s *LifecycleService) ListTickets(ctx context.Context, tenantID string, filter BoardFilter) ([]domain.Ticket, error) {
	if tenantID == "" {
		return []domain.Ticket{}, nil
	}
	tickets, err := s.tickets.ListWithFilter(ctx, repository.TicketFilter{
		TenantID:   tenantID,
		Statuses:   filter.Statuses,
		Priorities: filter.Priorities,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	})
	if err != nil {
		return nil, apperrors.NewPersistenceFailure(err)
	}
	for i := range tickets {
		assignees, err := s.tickets.ListAssignees(ctx, tickets[i].ID)
		if err != nil {
			return nil, apperrors.NewPersistenceFailure(err)
		}
		if assignees == nil {
			assignees = []domain.Member{}
		}
		tickets[i].Assignees = assignees
	}
	return tickets, nil
}

// ListHistory returns a ticket's ledger, newest first.
func (s *LifecycleService) ListHistory(ctx context.Context, tenantID, ticketID string) ([]domain.HistoryRecord, error) {
	if _, err := s.tickets.GetByID(ctx, tenantID, ticketID); err != nil {
		return nil, mapStoreError(err, "ticket", map[string]any{"ticket_id": ticketID})
	}
	records, err := s.history.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.NewPersistenceFailure(err)
	}
	return records, nil
}

// DeleteTicket removes a ticket. Administrative operation: it writes no
// history record.
func (s *LifecycleService) DeleteTicket(ctx context.Context, tenantID, ticketID string) error {
	if err := s.tickets.Delete(ctx, tenantID, ticketID); err != nil {
		return mapStoreError(err, "ticket", map[string]any{"ticket_id": ticketID})
	}
	return nil
}

func (s *LifecycleService) loadTicket(ctx context.Context, tenantID, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, tenantID, ticketID)
	if err != nil {
		return nil, mapStoreError(err, "ticket", map[string]any{"ticket_id": ticketID})
	}
	assignees, err := s.tickets.ListAssignees(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.NewPersistenceFailure(err)
	}
	if assignees == nil {
		assignees = []domain.Member{}
	}
	ticket.Assignees = assignees
	records, err := s.history.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.NewPersistenceFailure(err)
	}
	ticket.History = records
	return ticket, nil
}

func (s *LifecycleService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func validatePatch(patch domain.TicketPatch) error {
	if patch.Status != nil && !patch.Status.Valid() {
		return apperrors.NewValidationError("invalid status", map[string]any{"status": *patch.Status})
	}
	if patch.Priority != nil && !patch.Priority.Valid() {
		return apperrors.NewValidationError("invalid priority", map[string]any{"priority": *patch.Priority})
	}
	if patch.Whatsapp != nil && !domain.ValidContactNumber(strings.TrimSpace(*patch.Whatsapp)) {
		return apperrors.NewValidationError("invalid contact number", map[string]any{"whatsapp": *patch.Whatsapp})
	}
	return nil
}

func applyScalars(ticket *domain.Ticket, patch domain.TicketPatch) {
	if patch.CustomerName != nil {
		ticket.CustomerName = strings.TrimSpace(*patch.CustomerName)
	}
	if patch.Product != nil {
		ticket.Product = strings.TrimSpace(*patch.Product)
	}
	if patch.IssueType != nil {
		ticket.IssueType = strings.TrimSpace(*patch.IssueType)
	}
	if patch.Description != nil {
		ticket.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Whatsapp != nil {
		ticket.Whatsapp = strings.TrimSpace(*patch.Whatsapp)
	}
}

func mapStoreError(err error, resource string, details map[string]any) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound(resource, details)
	}
	return apperrors.NewPersistenceFailure(err)
}

func actorName(actor string) string {
	if strings.TrimSpace(actor) == "" {
		return "System"
	}
	return actor
}

func statusPtr(s domain.Status) *domain.Status {
	return &s
}

func priorityPtr(p domain.Priority) *domain.Priority {
	return &p
}
