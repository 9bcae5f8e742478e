package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-booking-engine/internal/middleware"
	"github.com/iliyamo/event-booking-engine/internal/utils"
)

// RegisterAdmin registers organizer endpoints under /v1/admin.  All
// routes require a valid JWT and the ADMIN role.
func RegisterAdmin(e *echo.Echo, h Handlers, opt Options) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(opt.JWTSecret),
		middleware.RequireRole(utils.RoleAdmin),
		middleware.PurgeCache(opt.Cache, opt.Redis),
	)

	// ---- Events ----
	g.POST("/events", h.Events.CreateEvent)
	g.PUT("/events/:id", h.Events.UpdateEvent)
	g.POST("/events/:id/postpone", h.Events.PostponeEvent)
	g.DELETE("/events/:id", h.Events.DeleteEvent) // cascades to bookings
	g.GET("/events/:id/bookings", h.Events.EventBookings)

	// ---- Rewards ----
	g.POST("/rewards/daily", h.Credits.DailyRewards)
	g.POST("/rewards/monthly", h.Credits.MonthlyRewards)
	g.POST("/credits/award", h.Credits.AwardPoints)

	// ---- Reports ----
	g.GET("/reports/top-events", h.Credits.TopEvents)
	g.GET("/reports/top-attendees", h.Credits.TopAttendees)
}
