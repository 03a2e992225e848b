package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/guildtools/ticketbot/internal/api/http/handlers"
	"github.com/guildtools/ticketbot/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Interactions   *handlers.InteractionsHandler
	Tickets        *handlers.TicketsHandler
	Panel          *handlers.PanelHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	protected := app.Group("", cfg.AuthMiddleware.Handle)
	protected.Post("/interactions", cfg.Interactions.Handle)

	tickets := protected.Group("/tickets")
	tickets.Post("", cfg.Tickets.CreateTicket)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Post("/:id/close", cfg.Tickets.CloseTicket)

	admin := protected.Group("/guilds/:guildID", cfg.AuthMiddleware.RequireAdmin)
	admin.Get("/tickets", cfg.Tickets.ListOpenTickets)
	admin.Get("/panel", cfg.Panel.GetPanel)
	admin.Patch("/panel", cfg.Panel.UpdatePanel)
	admin.Post("/panel/publish", cfg.Panel.PublishPanel)
	admin.Post("/panel/buttons", cfg.Panel.AddButton)
	admin.Delete("/panel/buttons/:label", cfg.Panel.RemoveButton)
	admin.Delete("/panel/buttons", cfg.Panel.ClearButtons)
}
