package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sav-service/internal/api/http/handlers"
	"github.com/spec-kit/sav-service/internal/auth"
	"github.com/spec-kit/sav-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	SLA            *handlers.SLAHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle, auth.RequireAnyRole())
	tickets.Post("", cfg.Tickets.CreateTicket)
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Get("/:id/history", auth.RequireStaff(), cfg.Tickets.ListHistory)
	tickets.Patch("/:id/status", auth.RequireStaff(), cfg.Tickets.UpdateStatus)
	tickets.Patch("/:id/priority", auth.RequireStaff(), cfg.Tickets.UpdatePriority)

	slaGroup := app.Group("/sla", cfg.AuthMiddleware.Handle, auth.RequireAnyRole())
	slaGroup.Get("/calendar", cfg.SLA.Calendar)
	slaGroup.Post("/preview", cfg.SLA.Preview)
	slaGroup.Get("/rules", auth.RequireStaff(), cfg.SLA.GetGlobalRule)
	slaGroup.Get("/rules/:client_id", auth.RequireStaff(), cfg.SLA.GetClientRule)
	slaGroup.Put("/rules", auth.RequireRole(domain.RoleAdmin), cfg.SLA.PutGlobalRule)
	slaGroup.Put("/rules/:client_id", auth.RequireRole(domain.RoleAdmin), cfg.SLA.PutClientRule)
}
