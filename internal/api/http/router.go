package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/api/http/handlers"
	"github.com/spec-kit/support-desk/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health            *handlers.HealthHandler
	Tickets           *handlers.TicketsHandler
	Support           *handlers.SupportHandler
	Members           *handlers.MembersHandler
	SessionMiddleware *auth.SessionMiddleware
}

// RegisterRoutes wires HTTP routes. Everything under /api requires a session.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api", cfg.SessionMiddleware.Handle)

	api.Post("/tickets", cfg.Tickets.CreateTicket)
	api.Get("/tickets", cfg.Tickets.ListTickets)
	api.Get("/tickets/:id", cfg.Tickets.GetTicket)
	api.Patch("/tickets/:id", cfg.Tickets.UpdateTicket)
	api.Delete("/tickets/:id", cfg.Tickets.DeleteTicket)

	api.Post("/support/assign", cfg.Support.Assign)
	api.Get("/support/history", cfg.Support.History)

	api.Get("/members", cfg.Members.ListMembers)
}
