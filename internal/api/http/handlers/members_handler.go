package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/service"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// MembersHandler serves the tenant member directory.
type MembersHandler struct {
	assignments *service.AssignmentService
}

// NewMembersHandler constructs handler.
func NewMembersHandler(assignments *service.AssignmentService) *MembersHandler {
	return &MembersHandler{assignments: assignments}
}

// ListMembers GET /api/members.
func (h *MembersHandler) ListMembers(c *fiber.Ctx) error {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("session required")
	}
	members, err := h.assignments.ListMembers(c.Context(), session.TenantID)
	if err != nil {
		return err
	}
	items := make([]dto.MemberResponse, 0, len(members))
	for _, m := range members {
		items = append(items, dto.MemberResponse{ID: m.ID, Name: m.Name, Email: m.Email})
	}
	return c.JSON(fiber.Map{"data": items})
}
