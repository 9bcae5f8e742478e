package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Check is a named dependency probe, e.g. the database or Redis.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

// Health returns the handler for GET /healthz.  It answers 200 with
// "ok" for every dependency that responds within two seconds, and 503
// when any of them fails.
func Health(checks ...Check) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		status := http.StatusOK
		report := map[string]string{}
		for _, ch := range checks {
			if err := ch.Ping(ctx); err != nil {
				report[ch.Name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			report[ch.Name] = "ok"
		}
		state := "ok"
		if status != http.StatusOK {
			state = "degraded"
		}
		return c.JSON(status, echo.Map{"status": state, "checks": report})
	}
}
