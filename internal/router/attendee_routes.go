package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-booking-engine/internal/middleware"
	"github.com/iliyamo/event-booking-engine/internal/utils"
)

// RegisterAttendee registers the endpoints of signed-in attendees under
// /v1.  Admins pass the role check as well.  Writes purge the public
// response cache so seat counts stay fresh.
func RegisterAttendee(e *echo.Echo, h Handlers, opt Options) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(opt.JWTSecret),
		middleware.RequireRole(utils.RoleAttendee, utils.RoleAdmin),
		middleware.RateLimit(opt.RateLimit, opt.Redis),
		middleware.PurgeCache(opt.Cache, opt.Redis),
	)

	// ---- Bookings ----
	g.POST("/events/:id/bookings", h.Bookings.Checkout)
	g.GET("/my-bookings", h.Bookings.MyBookings)
	g.GET("/bookings/:id", h.Bookings.GetBooking)
	g.DELETE("/bookings/:id", h.Bookings.CancelBooking)
	g.POST("/bookings/:id/partial-cancel", h.Bookings.PartialCancel)
	g.POST("/bookings/:id/refund-quote", h.Bookings.RefundQuote)

	// ---- Credits ----
	g.GET("/credits", h.Credits.GetCredits)
	g.POST("/credits/redeem", h.Credits.Redeem)

	// ---- Inbox ----
	g.GET("/notifications", h.Notifications.List)
	g.POST("/notifications/read-all", h.Notifications.MarkAllRead)
	g.POST("/notifications/:id/read", h.Notifications.MarkRead)
	g.DELETE("/notifications/:id", h.Notifications.Delete)
}
