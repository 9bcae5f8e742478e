// Package router wires the HTTP handlers onto echo routes and attaches
// the authentication, role, rate limit and cache middleware.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/event-booking-engine/internal/config"
	"github.com/iliyamo/event-booking-engine/internal/handler"
	"github.com/iliyamo/event-booking-engine/internal/middleware"
)

// Handlers bundles everything the routes dispatch to.
type Handlers struct {
	Health        echo.HandlerFunc
	Events        *handler.EventHandler
	Bookings      *handler.BookingHandler
	Credits       *handler.CreditHandler
	Notifications *handler.NotificationHandler
}

// Options carries the settings shared by the route groups.  Redis may
// be nil, in which case rate limiting and caching are disabled.
type Options struct {
	JWTSecret string
	RateLimit config.RateLimitConfig
	Cache     config.CacheConfig
	Redis     *redis.Client
}

// Register mounts every route on e.
func Register(e *echo.Echo, h Handlers, opt Options) {
	RegisterRoutes(e, h.Health)
	RegisterPublic(e, h, opt)
	RegisterAttendee(e, h, opt)
	RegisterAdmin(e, h, opt)
}

// RegisterRoutes registers routes that sit outside the versioned API.
func RegisterRoutes(e *echo.Echo, health echo.HandlerFunc) {
	if health == nil {
		health = handler.Health()
	}
	e.GET("/healthz", health)
}

// RegisterPublic registers the unauthenticated browse endpoints.  Their
// responses are cached in Redis when caching is enabled.
func RegisterPublic(e *echo.Echo, h Handlers, opt Options) {
	cache := middleware.ResponseCache(opt.Cache, opt.Redis)

	e.GET("/v1/events", h.Events.ListEvents, cache)
	e.GET("/v1/events/:id", h.Events.GetEvent, cache)
	// Seat maps change with every booking and are never cached.
	e.GET("/v1/events/:id/seats", h.Events.SeatMap)
	e.GET("/v1/event-types", h.Events.EventTypes, cache)

	e.GET("/v1/leaderboard/daily", h.Credits.DailyLeaderboard, cache)
	e.GET("/v1/leaderboard/monthly", h.Credits.MonthlyLeaderboard, cache)
}
