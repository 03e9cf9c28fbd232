package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/api/http/handlers"
	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/observability"
	"github.com/spec-kit/support-desk/internal/repository"
	"github.com/spec-kit/support-desk/internal/service"
)

// memStore backs the repository fakes for transport-level tests.
type memStore struct {
	mu        sync.Mutex
	tickets   map[string]domain.Ticket
	assignees map[string][]string
	history   []domain.HistoryRecord
	members   map[string]domain.Member
	seq       int
}

func newMemStore() *memStore {
	return &memStore{
		tickets:   map[string]domain.Ticket{},
		assignees: map[string][]string{},
		members:   map[string]domain.Member{},
	}
}

func (s *memStore) addMember(tenantID, id, name, email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[id] = domain.Member{ID: id, TenantID: tenantID, UserID: "user-" + id, Name: name, Email: email}
}

type memTicketRepo struct{ s *memStore }

func (r *memTicketRepo) Create(_ context.Context, t *domain.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.seq++
	t.ID = fmt.Sprintf("t-%d", r.s.seq)
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	r.s.tickets[t.ID] = *t
	return nil
}

func (r *memTicketRepo) Update(_ context.Context, t *domain.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.tickets[t.ID]
	if !ok || existing.TenantID != t.TenantID {
		return pgx.ErrNoRows
	}
	r.s.tickets[t.ID] = *t
	return nil
}

func (r *memTicketRepo) GetByID(_ context.Context, tenantID, id string) (*domain.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tickets[id]
	if !ok || t.TenantID != tenantID {
		return nil, pgx.ErrNoRows
	}
	return &t, nil
}

func (r *memTicketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Ticket
	for _, t := range r.s.tickets {
		if t.TenantID == filter.TenantID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memTicketRepo) ReplaceAssignees(_ context.Context, ticketID string, memberIDs []string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.assignees[ticketID] = append([]string{}, memberIDs...)
	return nil
}

func (r *memTicketRepo) ListAssignees(_ context.Context, ticketID string) ([]domain.Member, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Member
	for _, id := range r.s.assignees[ticketID] {
		if m, ok := r.s.members[id]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *memTicketRepo) Delete(_ context.Context, tenantID, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tickets[id]
	if !ok || t.TenantID != tenantID {
		return pgx.ErrNoRows
	}
	delete(r.s.tickets, id)
	return nil
}

type memHistoryRepo struct{ s *memStore }

func (r *memHistoryRepo) Create(_ context.Context, rec *domain.HistoryRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.seq++
	rec.ID = fmt.Sprintf("h-%d", r.s.seq)
	rec.CreatedAt = time.Now()
	r.s.history = append(r.s.history, *rec)
	return nil
}

func (r *memHistoryRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.HistoryRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.HistoryRecord
	for i := len(r.s.history) - 1; i >= 0; i-- {
		if r.s.history[i].TicketID == ticketID {
			out = append(out, r.s.history[i])
		}
	}
	return out, nil
}

type memMemberRepo struct{ s *memStore }

func (r *memMemberRepo) FindValidMembers(_ context.Context, tenantID string, ids []string) ([]domain.Member, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Member
	for _, id := range ids {
		if m, ok := r.s.members[id]; ok && m.TenantID == tenantID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *memMemberRepo) ListByTenant(_ context.Context, tenantID string) ([]domain.Member, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Member
	for _, m := range r.s.members {
		if m.TenantID == tenantID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type memUnitOfWork struct{ s *memStore }

func (u *memUnitOfWork) InTx(_ context.Context, fn func(t repository.TicketRepository, h repository.HistoryRepository) error) error {
	return fn(&memTicketRepo{s: u.s}, &memHistoryRepo{s: u.s})
}

func newTestApp(t *testing.T, store *memStore) (*fiber.App, string) {
	t.Helper()

	ticketRepo := &memTicketRepo{s: store}
	historyRepo := &memHistoryRepo{s: store}
	memberRepo := &memMemberRepo{s: store}
	uow := &memUnitOfWork{s: store}

	assignments := service.NewAssignmentService(service.AssignmentDependencies{
		TicketRepo: ticketRepo,
		Members:    memberRepo,
		MemberRepo: memberRepo,
		UnitOfWork: uow,
	})
	lifecycle := service.NewLifecycleService(service.LifecycleDependencies{
		TicketRepo:  ticketRepo,
		HistoryRepo: historyRepo,
		UnitOfWork:  uow,
		Assignments: assignments,
	})

	tokens := auth.NewTokenManager("test-secret")
	token, _, err := tokens.GenerateToken("u-1", "Dana", "tenant-acme")
	require.NoError(t, err)

	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), observability.NewMetrics(), 5*time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:            handlers.NewHealthHandler("support-desk", "test", nil, nil),
		Tickets:           handlers.NewTicketsHandler(lifecycle),
		Support:           handlers.NewSupportHandler(lifecycle, assignments),
		Members:           handlers.NewMembersHandler(assignments),
		SessionMiddleware: auth.NewSessionMiddleware(tokens),
	})
	return app, token
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded map[string]any
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp, decoded
}

func createPayload() map[string]any {
	return map[string]any{
		"customerName": "Jordan Alvarez",
		"product":      "Meter Gateway",
		"issueType":    "No data since Monday",
		"description":  "Gateway stopped reporting after the last firmware push.",
		"whatsapp":     "+14155552671",
	}
}

func TestRoutesRequireSession(t *testing.T) {
	app, _ := newTestApp(t, newMemStore())

	resp, body := doJSON(t, app, http.MethodGet, "/api/tickets", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	errObj, ok := body["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "UNAUTHORIZED", errObj["code"])
}

func TestCreateTicketEndpoint(t *testing.T) {
	app, token := newTestApp(t, newMemStore())

	resp, body := doJSON(t, app, http.MethodPost, "/api/tickets", token, createPayload())
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	data := body["data"].(map[string]any)
	assert.Equal(t, "New", data["status"])
	assert.Equal(t, "Low", data["priority"])
	assert.Equal(t, "Jordan Alvarez", data["customerName"])

	history := data["history"].([]any)
	require.Len(t, history, 1)
	birth := history[0].(map[string]any)
	assert.Equal(t, "Dana", birth["changedBy"])
	assert.Equal(t, "New", birth["afterStatus"])
	assert.NotContains(t, birth, "beforeStatus")
}

func TestCreateTicketListsMissingFields(t *testing.T) {
	app, token := newTestApp(t, newMemStore())

	resp, body := doJSON(t, app, http.MethodPost, "/api/tickets", token, map[string]any{
		"customerName": "Jordan Alvarez",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	errObj := body["error"].(map[string]any)
	assert.Equal(t, "VALIDATION_FAILED", errObj["code"])
	details := errObj["details"].(map[string]any)
	for _, field := range []string{"product", "issueType", "description", "whatsapp"} {
		assert.Contains(t, details, field)
	}
}

func TestUpdateTicketEndpoint(t *testing.T) {
	app, token := newTestApp(t, newMemStore())

	_, created := doJSON(t, app, http.MethodPost, "/api/tickets", token, createPayload())
	id := created["data"].(map[string]any)["id"].(string)

	resp, body := doJSON(t, app, http.MethodPatch, "/api/tickets/"+id, token, map[string]any{
		"status":   "Acknowledged",
		"priority": "High",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	data := body["data"].(map[string]any)
	assert.Equal(t, "Acknowledged", data["status"])
	assert.Equal(t, "High", data["priority"])

	history := data["history"].([]any)
	require.Len(t, history, 2, "one update appends one merged ledger entry")
}

func TestAssignEndpointFlatContract(t *testing.T) {
	store := newMemStore()
	store.addMember("tenant-acme", "m-1", "Priya Nair", "priya@acme.test")
	store.addMember("tenant-beta", "m-9", "Kai Winters", "kai@beta.test")
	app, token := newTestApp(t, store)

	_, created := doJSON(t, app, http.MethodPost, "/api/tickets", token, createPayload())
	id := created["data"].(map[string]any)["id"].(string)

	resp, body := doJSON(t, app, http.MethodPost, "/api/support/assign", token, map[string]any{
		"ticketId":  id,
		"memberIds": []string{"m-1"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	assigned := body["assignedTo"].([]any)
	require.Len(t, assigned, 1)
	assert.Equal(t, "Priya Nair", assigned[0].(map[string]any)["name"])

	// A cross-tenant member fails the whole request with the flat error shape.
	resp, body = doJSON(t, app, http.MethodPost, "/api/support/assign", token, map[string]any{
		"ticketId":  id,
		"memberIds": []string{"m-1", "m-9"},
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	msg, ok := body["error"].(string)
	require.True(t, ok, "assignment errors use a flat string shape")
	assert.NotEmpty(t, msg)
}

func TestHistoryEndpoint(t *testing.T) {
	app, token := newTestApp(t, newMemStore())

	_, created := doJSON(t, app, http.MethodPost, "/api/tickets", token, createPayload())
	id := created["data"].(map[string]any)["id"].(string)

	_, _ = doJSON(t, app, http.MethodPatch, "/api/tickets/"+id, token, map[string]any{"status": "Acknowledged"})

	resp, body := doJSON(t, app, http.MethodGet, "/api/support/history?ticketId="+id, token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	history := body["history"].([]any)
	require.Len(t, history, 2)
	newest := history[0].(map[string]any)
	assert.Equal(t, "Acknowledged", newest["afterStatus"])

	resp, _ = doJSON(t, app, http.MethodGet, "/api/support/history", token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMembersEndpoint(t *testing.T) {
	store := newMemStore()
	store.addMember("tenant-acme", "m-1", "Priya Nair", "priya@acme.test")
	store.addMember("tenant-beta", "m-9", "Kai Winters", "kai@beta.test")
	app, token := newTestApp(t, store)

	resp, body := doJSON(t, app, http.MethodGet, "/api/members", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	data := body["data"].([]any)
	require.Len(t, data, 1, "only members of the active tenant are listed")
	assert.Equal(t, "Priya Nair", data[0].(map[string]any)["name"])
}

func TestDeleteTicketEndpoint(t *testing.T) {
	app, token := newTestApp(t, newMemStore())

	_, created := doJSON(t, app, http.MethodPost, "/api/tickets", token, createPayload())
	id := created["data"].(map[string]any)["id"].(string)

	resp, _ := doJSON(t, app, http.MethodDelete, "/api/tickets/"+id, token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, "/api/tickets/"+id, token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthLive(t *testing.T) {
	app, _ := newTestApp(t, newMemStore())

	resp, body := doJSON(t, app, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "alive", body["status"])
}

func TestHealthReadyReportsUnavailableDependencies(t *testing.T) {
	// The test app carries no postgres pool and no redis client, so readiness
	// must fail and name both dependencies.
	app, _ := newTestApp(t, newMemStore())

	resp, body := doJSON(t, app, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	errObj, ok := body["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "DEPENDENCY_UNAVAILABLE", errObj["code"])

	details := errObj["details"].(map[string]any)
	assert.Contains(t, details, "postgres")
	assert.Contains(t, details, "redis")
	assert.NotEqual(t, "ok", details["postgres"])
	assert.NotEqual(t, "ok", details["redis"])
}
