package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-booking-engine/internal/utils"
)

// Username returns the authenticated username, or "" for guests.
func Username(c echo.Context) string {
	s, _ := c.Get(CtxUsername).(string)
	return s
}

// Email returns the email claim of the authenticated user, if any.
func Email(c echo.Context) string {
	s, _ := c.Get(CtxEmail).(string)
	return s
}

// IsAdmin reports whether the authenticated user has the admin role.
func IsAdmin(c echo.Context) bool {
	role, _ := c.Get(CtxRole).(string)
	return role == utils.RoleAdmin
}

// identity names the caller for rate-limit keys.
func identity(c echo.Context) string {
	if u := Username(c); u != "" {
		return u
	}
	return "anon"
}
