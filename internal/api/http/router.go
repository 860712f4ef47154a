package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-engine/internal/api/http/handlers"
	"github.com/spec-kit/ticket-engine/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Stats          *handlers.StatsHandler
	Logs           *handlers.LogsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes. Reads are public; lifecycle mutations
// require a bearer token.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/auth/login", cfg.Auth.Login)

	app.Get("/tickets", cfg.Tickets.ListTickets)
	app.Get("/tickets/:id", cfg.Tickets.GetTicket)
	app.Get("/channels/:channelId/ticket", cfg.Tickets.GetTicketByChannel)
	app.Get("/panels/:panel/working-hours", cfg.Tickets.WorkingHours)
	app.Get("/stats", cfg.Stats.Overview)

	app.Get("/logs", cfg.Logs.Recent)
	app.Get("/logs/ticket/:id", cfg.Logs.ByTicket)
	app.Get("/logs/type/:type", cfg.Logs.ByType)

	guard := cfg.AuthMiddleware.Handle
	app.Post("/tickets", guard, cfg.Tickets.CreateTicket)
	app.Post("/tickets/:id/claim", guard, cfg.Tickets.ClaimTicket)
	app.Post("/tickets/:id/unclaim", guard, cfg.Tickets.UnclaimTicket)
	app.Put("/tickets/:id/priority", guard, cfg.Tickets.SetPriority)
	app.Post("/tickets/:id/tags", guard, cfg.Tickets.AddTag)
	app.Delete("/tickets/:id/tags/:tag", guard, cfg.Tickets.RemoveTag)
	app.Post("/tickets/:id/messages", guard, cfg.Tickets.AddMessage)
	app.Post("/tickets/:id/close", guard, cfg.Tickets.CloseTicket)
	app.Post("/tickets/:id/reopen", guard, cfg.Tickets.ReopenTicket)
	app.Post("/tickets/:id/rating", guard, cfg.Tickets.SetRating)
	app.Delete("/tickets/:id", guard, cfg.Tickets.DeleteTicket)
}
