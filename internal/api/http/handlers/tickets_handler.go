package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/service"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// TicketsHandler manages ticket intake, board reads and ticket mutations.
type TicketsHandler struct {
	lifecycle *service.LifecycleService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(lifecycle *service.LifecycleService) *TicketsHandler {
	return &TicketsHandler{lifecycle: lifecycle}
}

// CreateTicket POST /api/tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("session required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if details := dto.Validate(req); details != nil {
		return apperrors.NewValidationError("missing or invalid fields", details)
	}

	input := service.TicketCreateInput{
		CustomerName: req.CustomerName,
		Product:      req.Product,
		IssueType:    req.IssueType,
		Description:  req.Description,
		Whatsapp:     req.Whatsapp,
		Priority:     req.Priority,
	}
	ticket, err := h.lifecycle.CreateTicket(c.Context(), session.TenantID, session.Name, input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": ticketResponse(ticket, true)})
}

// ListTickets GET /api/tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("session required")
	}
	filter := parseBoardQuery(c)
	tickets, err := h.lifecycle.ListTickets(c.Context(), session.TenantID, filter)
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketResponse(&tickets[i], false))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /api/tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("session required")
	}
	ticket, err := h.lifecycle.GetTicket(c.Context(), session.TenantID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket, true)})
}

// UpdateTicket PATCH /api/tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("session required")
	}
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	patch := req.ToPatch()
	if patch.Empty() {
		return apperrors.NewValidationError("no fields to update", nil)
	}
	ticket, err := h.lifecycle.ApplyUpdate(c.Context(), session.TenantID, c.Params("id"), patch, session.Name)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket, true)})
}

// DeleteTicket DELETE /api/tickets/:id.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("session required")
	}
	if err := h.lifecycle.DeleteTicket(c.Context(), session.TenantID, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func parseBoardQuery(c *fiber.Ctx) service.BoardFilter {
	filter := service.BoardFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.Status(strings.TrimSpace(part)))
		}
	}
	if priorityStr := c.Query("priority"); priorityStr != "" {
		for _, part := range strings.Split(priorityStr, ",") {
			filter.Priorities = append(filter.Priorities, domain.Priority(strings.TrimSpace(part)))
		}
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 100)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func ticketResponse(ticket *domain.Ticket, withHistory bool) dto.TicketResponse {
	resp := dto.TicketResponse{
		ID:           ticket.ID,
		CustomerName: ticket.CustomerName,
		Product:      ticket.Product,
		IssueType:    ticket.IssueType,
		Description:  ticket.Description,
		Whatsapp:     ticket.Whatsapp,
		Status:       ticket.Status,
		Priority:     ticket.Priority,
		AssignedTo:   memberResponses(ticket.Assignees),
		CreatedAt:    ticket.CreatedAt,
		UpdatedAt:    ticket.UpdatedAt,
	}
	if withHistory {
		resp.History = historyResponses(ticket.History)
	}
	return resp
}

func memberResponses(members []domain.Member) []dto.MemberResponse {
	resp := make([]dto.MemberResponse, 0, len(members))
	for _, m := range members {
		resp = append(resp, dto.MemberResponse{ID: m.ID, Name: m.Name, Email: m.Email})
	}
	return resp
}

func historyResponses(records []domain.HistoryRecord) []dto.HistoryEntryResponse {
	resp := make([]dto.HistoryEntryResponse, 0, len(records))
	for _, rec := range records {
		resp = append(resp, dto.HistoryEntryResponse{
			ID:              rec.ID,
			BeforeStatus:    rec.BeforeStatus,
			AfterStatus:     rec.AfterStatus,
			BeforePriority:  rec.BeforePriority,
			AfterPriority:   rec.AfterPriority,
			BeforeAssignees: rec.BeforeAssignees,
			AfterAssignees:  rec.AfterAssignees,
			ChangedBy:       rec.ChangedBy,
			CreatedAt:       rec.CreatedAt,
		})
	}
	return resp
}
