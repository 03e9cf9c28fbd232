package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/service"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// SupportHandler serves the board's support endpoints: assignment and the
// history ledger.
type SupportHandler struct {
	lifecycle   *service.LifecycleService
	assignments *service.AssignmentService
}

// NewSupportHandler constructs handler.
func NewSupportHandler(lifecycle *service.LifecycleService, assignments *service.AssignmentService) *SupportHandler {
	return &SupportHandler{lifecycle: lifecycle, assignments: assignments}
}

// Assign POST /api/support/assign. This endpoint keeps the board client's
// flat wire contract: {success, assignedTo} on success, {"error": message}
// on failure, so errors are rendered here instead of the global middleware.
func (h *SupportHandler) Assign(c *fiber.Ctx) error {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		return flatError(c, apperrors.NewUnauthorized("session required"))
	}
	var req dto.AssignRequest
	if err := c.BodyParser(&req); err != nil {
		return flatError(c, apperrors.NewValidationError("invalid payload", nil))
	}
	if details := dto.Validate(req); details != nil {
		return flatError(c, apperrors.NewValidationError("ticketId required", details))
	}

	_, members, err := h.assignments.SetAssignees(c.Context(), session.TenantID, req.TicketID, req.MemberIDs, session.Name)
	if err != nil {
		return flatError(c, err)
	}
	return c.JSON(dto.AssignResponse{
		Success:    true,
		AssignedTo: memberResponses(members),
	})
}

// History GET /api/support/history?ticketId=... returns the ticket's ledger,
// newest first.
func (h *SupportHandler) History(c *fiber.Ctx) error {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("session required")
	}
	ticketID := c.Query("ticketId")
	if ticketID == "" {
		return apperrors.NewValidationError("ticketId required", nil)
	}
	records, err := h.lifecycle.ListHistory(c.Context(), session.TenantID, ticketID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"history": historyResponses(records)})
}

func flatError(c *fiber.Ctx, err error) error {
	domainErr := apperrors.ToDomainError(err)
	return c.Status(domainErr.HTTPStatus).JSON(fiber.Map{"error": domainErr.Message})
}
