package service

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/repository"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// MembershipValidator answers which candidate ids are valid members of a
// tenant. Backed by the member store, optionally through a cache.
type MembershipValidator interface {
	FindValidMembers(ctx context.Context, tenantID string, candidateIDs []string) ([]domain.Member, error)
}

// AssignmentService enforces that a ticket's assignee set never contains a
// non-member of its tenant, and keeps assignment changes auditable.
type AssignmentService struct {
	tickets    repository.TicketRepository
	members    MembershipValidator
	directory  repository.MemberRepository
	uow        repository.UnitOfWork
	dispatcher events.Dispatcher
}

// AssignmentDependencies bundles collaborators.
type AssignmentDependencies struct {
	TicketRepo repository.TicketRepository
	Members    MembershipValidator
	MemberRepo repository.MemberRepository
	UnitOfWork repository.UnitOfWork
	Dispatcher events.Dispatcher
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	return &AssignmentService{
		tickets:    deps.TicketRepo,
		members:    deps.Members,
		directory:  deps.MemberRepo,
		uow:        deps.UnitOfWork,
		dispatcher: deps.Dispatcher,
	}
}

// SetAssignees replaces the ticket's assignment set with exactly the
// requested members. Validation is all-or-nothing: if any requested id is not
// a member of the tenant the whole operation is rejected and the prior set is
// untouched. A call that leaves the set unchanged succeeds without writing a
// history record. Returns the persisted set resolved to display identity.
func (s *AssignmentService) SetAssignees(ctx context.Context, tenantID, ticketID string, memberIDs []string, actor string) (*domain.Ticket, []domain.Member, error) {
	requested := dedupe(memberIDs)

	valid, err := s.members.FindValidMembers(ctx, tenantID, requested)
	if err != nil {
		return nil, nil, apperrors.NewPersistenceFailure(err)
	}
	if len(valid) != len(requested) {
		return nil, nil, apperrors.NewInvalidAssignment(
			"some member ids are invalid or belong to a different organization",
			map[string]any{"rejected_ids": rejectedIDs(requested, valid)},
		)
	}

	ticket, err := s.tickets.GetByID(ctx, tenantID, ticketID)
	if err != nil {
		return nil, nil, mapStoreError(err, "ticket", map[string]any{"ticket_id": ticketID})
	}

	current, err := s.tickets.ListAssignees(ctx, ticket.ID)
	if err != nil {
		return nil, nil, apperrors.NewPersistenceFailure(err)
	}
	currentIDs := memberIDSet(current)
	if sameSet(currentIDs, requested) {
		ticket.Assignees = valid
		return ticket, valid, nil
	}

	record := &domain.HistoryRecord{
		TicketID:        ticket.ID,
		BeforeAssignees: sortedCopy(currentIDs),
		AfterAssignees:  sortedCopy(requested),
		ChangedBy:       actorName(actor),
	}
	err = s.uow.InTx(ctx, func(tickets repository.TicketRepository, history repository.HistoryRepository) error {
		if err := tickets.ReplaceAssignees(ctx, ticket.ID, requested); err != nil {
			return err
		}
		return history.Create(ctx, record)
	})
	if err != nil {
		return nil, nil, apperrors.NewPersistenceFailure(err)
	}

	ticket.Assignees = valid
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketAssigneesChanged,
		TenantID: tenantID,
		TicketID: ticket.ID,
		Actor:    actorName(actor),
		Payload: events.TicketAssigneesChangedPayload{
			OldMemberIDs: record.BeforeAssignees,
			NewMemberIDs: record.AfterAssignees,
		},
	})
	return ticket, valid, nil
}

// ListMembers returns the tenant's member directory for assignment pickers.
// A caller with no active tenant sees an empty list.
func (s *AssignmentService) ListMembers(ctx context.Context, tenantID string) ([]domain.Member, error) {
	if tenantID == "" {
		return []domain.Member{}, nil
	}
	members, err := s.directory.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, apperrors.NewPersistenceFailure(err)
	}
	if members == nil {
		members = []domain.Member{}
	}
	return members, nil
}

func (s *AssignmentService) publishEvent(ctx context.Context, event events.Event) {
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

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	result := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}

func memberIDSet(members []domain.Member) []string {
	ids := make([]string, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.ID)
	}
	return ids
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, id := range a {
		set[id] = struct{}{}
	}
	for _, id := range b {
		if _, ok := set[id]; !ok {
			return false
		}
	}
	return true
}

func sortedCopy(ids []string) []string {
	result := append([]string{}, ids...)
	sort.Strings(result)
	return result
}

func rejectedIDs(requested []string, valid []domain.Member) []string {
	validSet := make(map[string]struct{}, len(valid))
	for _, m := range valid {
		validSet[m.ID] = struct{}{}
	}
	var rejected []string
	for _, id := range requested {
		if _, ok := validSet[id]; !ok {
			rejected = append(rejected, id)
		}
	}
	return rejected
}
