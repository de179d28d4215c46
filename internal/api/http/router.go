package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/weaver-helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/weaver-helpdesk/internal/auth"
	"github.com/spec-kit/weaver-helpdesk/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	FAQs           *handlers.FAQsHandler
	Admin          *handlers.AdminHandler
	Review         *handlers.ReviewHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	app.Post("/auth/bridge/token", cfg.Auth.BridgeToken)

	authn := cfg.AuthMiddleware.Handle
	staff := auth.RequireStaffRole(domain.StaffRoleSupport)

	tickets := app.Group("/tickets", authn)
	tickets.Post("", auth.RequireUser(), cfg.Tickets.CreateTicket)
	tickets.Get("", staff, cfg.Tickets.ListTickets)
	tickets.Get("/stats", staff, cfg.Tickets.Stats)
	tickets.Get("/:id", auth.RequireAnyRole(), cfg.Tickets.GetTicket)
	tickets.Get("/:id/timeline", staff, cfg.Tickets.Timeline)
	tickets.Post("/:id/claim", staff, cfg.Tickets.ClaimTicket)
	tickets.Post("/:id/close", staff, cfg.Tickets.CloseTicket)
	tickets.Post("/:id/feedback", auth.RequireUser(), cfg.Tickets.SubmitFeedback)

	app.Get("/status", authn, staff, cfg.Tickets.Status)

	faqs := app.Group("/faqs", authn, auth.RequireAnyRole())
	faqs.Get("/search", cfg.FAQs.Search)
	faqs.Get("", cfg.FAQs.List)
	faqs.Get("/:id", cfg.FAQs.View)
	faqs.Post("/:id/vote", cfg.FAQs.Vote)

	admin := app.Group("/admin", authn, auth.RequireStaffRole(domain.StaffRoleAdmin))
	admin.Post("/faqs", cfg.Admin.CreateFAQ)
	admin.Patch("/faqs/:id", cfg.Admin.UpdateFAQ)
	admin.Delete("/faqs/:id", cfg.Admin.DeleteFAQ)
	admin.Post("/escalations/run", cfg.Admin.RunEscalations)

	review := app.Group("/review/tracked", authn, staff)
	review.Post("", cfg.Review.Track)
	review.Get("", cfg.Review.List)
	review.Get("/stats", cfg.Review.Stats)
	review.Get("/export-ready", cfg.Review.ExportReady)
	review.Get("/:ticketId", cfg.Review.Get)
	review.Patch("/:ticketId", cfg.Review.Update)
	review.Delete("/:ticketId", cfg.Review.Untrack)
	review.Post("/:ticketId/export", cfg.Review.Export)
}
