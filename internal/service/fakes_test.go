package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/repository"
)

// fakeStore is a shared in-memory backend for the repository fakes. The
// unit-of-work fake snapshots and restores it, so transactional rollback
// behaves like the real store.
type fakeStore struct {
	mu        sync.Mutex
	tickets   map[string]domain.Ticket
	assignees map[string][]string
	history   []domain.HistoryRecord
	members   map[string]domain.Member

	failHistory bool

	seq  int
	base time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tickets:   map[string]domain.Ticket{},
		assignees: map[string][]string{},
		members:   map[string]domain.Member{},
		base:      time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (s *fakeStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%04d", prefix, s.seq)
}

func (s *fakeStore) tick() time.Time {
	s.seq++
	return s.base.Add(time.Duration(s.seq) * time.Second)
}

func (s *fakeStore) addMember(tenantID, id, name, email string) domain.Member {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := domain.Member{ID: id, TenantID: tenantID, UserID: "user-" + id, Name: name, Email: email}
	s.members[id] = m
	return m
}

type snapshot struct {
	tickets   map[string]domain.Ticket
	assignees map[string][]string
	history   []domain.HistoryRecord
}

func (s *fakeStore) snapshot() snapshot {
	tickets := make(map[string]domain.Ticket, len(s.tickets))
	for k, v := range s.tickets {
		tickets[k] = v
	}
	assignees := make(map[string][]string, len(s.assignees))
	for k, v := range s.assignees {
		assignees[k] = append([]string{}, v...)
	}
	return snapshot{
		tickets:   tickets,
		assignees: assignees,
		history:   append([]domain.HistoryRecord{}, s.history...),
	}
}

func (s *fakeStore) restore(snap snapshot) {
	s.tickets = snap.tickets
	s.assignees = snap.assignees
	s.history = snap.history
}

type fakeTicketRepo struct{ store *fakeStore }

func (r *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	ticket.ID = r.store.nextID("t")
	ticket.CreatedAt = r.store.tick()
	ticket.UpdatedAt = ticket.CreatedAt
	r.store.tickets[ticket.ID] = *ticket
	return nil
}

func (r *fakeTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	existing, ok := r.store.tickets[ticket.ID]
	if !ok || existing.TenantID != ticket.TenantID {
		return pgx.ErrNoRows
	}
	ticket.UpdatedAt = r.store.tick()
	r.store.tickets[ticket.ID] = *ticket
	return nil
}

func (r *fakeTicketRepo) GetByID(_ context.Context, tenantID, id string) (*domain.Ticket, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	ticket, ok := r.store.tickets[id]
	if !ok || ticket.TenantID != tenantID {
		return nil, pgx.ErrNoRows
	}
	found := ticket
	return &found, nil
}

func (r *fakeTicketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var result []domain.Ticket
	for _, t := range r.store.tickets {
		if t.TenantID != filter.TenantID {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, t.Status) {
			continue
		}
		if len(filter.Priorities) > 0 && !containsPriority(filter.Priorities, t.Priority) {
			continue
		}
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (r *fakeTicketRepo) ReplaceAssignees(_ context.Context, ticketID string, memberIDs []string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.assignees[ticketID] = append([]string{}, memberIDs...)
	return nil
}

func (r *fakeTicketRepo) ListAssignees(_ context.Context, ticketID string) ([]domain.Member, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var result []domain.Member
	for _, id := range r.store.assignees[ticketID] {
		if m, ok := r.store.members[id]; ok {
			result = append(result, m)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (r *fakeTicketRepo) Delete(_ context.Context, tenantID, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	ticket, ok := r.store.tickets[id]
	if !ok || ticket.TenantID != tenantID {
		return pgx.ErrNoRows
	}
	delete(r.store.tickets, id)
	delete(r.store.assignees, id)
	return nil
}

type fakeHistoryRepo struct{ store *fakeStore }

func (r *fakeHistoryRepo) Create(_ context.Context, record *domain.HistoryRecord) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.failHistory {
		return errors.New("ledger write refused")
	}
	record.ID = r.store.nextID("h")
	record.CreatedAt = r.store.tick()
	r.store.history = append(r.store.history, *record)
	return nil
}

func (r *fakeHistoryRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.HistoryRecord, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var result []domain.HistoryRecord
	for i := len(r.store.history) - 1; i >= 0; i-- {
		if r.store.history[i].TicketID == ticketID {
			result = append(result, r.store.history[i])
		}
	}
	return result, nil
}

type fakeMemberRepo struct{ store *fakeStore }

func (r *fakeMemberRepo) FindValidMembers(_ context.Context, tenantID string, candidateIDs []string) ([]domain.Member, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var result []domain.Member
	for _, id := range candidateIDs {
		if m, ok := r.store.members[id]; ok && m.TenantID == tenantID {
			result = append(result, m)
		}
	}
	return result, nil
}

func (r *fakeMemberRepo) ListByTenant(_ context.Context, tenantID string) ([]domain.Member, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var result []domain.Member
	for _, m := range r.store.members {
		if m.TenantID == tenantID {
			result = append(result, m)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// fakeUnitOfWork restores the store to its pre-transaction state when fn
// fails, mirroring a rolled back database transaction.
type fakeUnitOfWork struct{ store *fakeStore }

func (u *fakeUnitOfWork) InTx(_ context.Context, fn func(tickets repository.TicketRepository, history repository.HistoryRepository) error) error {
	u.store.mu.Lock()
	snap := u.store.snapshot()
	u.store.mu.Unlock()

	if err := fn(&fakeTicketRepo{store: u.store}, &fakeHistoryRepo{store: u.store}); err != nil {
		u.store.mu.Lock()
		u.store.restore(snap)
		u.store.mu.Unlock()
		return err
	}
	return nil
}

func containsStatus(list []domain.Status, s domain.Status) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsPriority(list []domain.Priority, p domain.Priority) bool {
	for _, v := range list {
		if v == p {
			return true
		}
	}
	return false
}

func newTestServices(store *fakeStore) (*LifecycleService, *AssignmentService) {
	ticketRepo := &fakeTicketRepo{store: store}
	historyRepo := &fakeHistoryRepo{store: store}
	memberRepo := &fakeMemberRepo{store: store}
	uow := &fakeUnitOfWork{store: store}

	assignments := NewAssignmentService(AssignmentDependencies{
		TicketRepo: ticketRepo,
		Members:    memberRepo,
		MemberRepo: memberRepo,
		UnitOfWork: uow,
	})
	lifecycle := NewLifecycleService(LifecycleDependencies{
		TicketRepo:  ticketRepo,
		HistoryRepo: historyRepo,
		UnitOfWork:  uow,
		Assignments: assignments,
	})
	return lifecycle, assignments
}
