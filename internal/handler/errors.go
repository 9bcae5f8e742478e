package handler // handler contains the echo HTTP handlers of the booking API

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/event-booking-engine/internal/model"
	"github.com/iliyamo/event-booking-engine/internal/scheduler"
)

// statusOf maps a domain error onto an HTTP status code.
func statusOf(err error) int {
	switch {
	case errors.Is(err, model.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, model.ErrSeatConflict),
		errors.Is(err, model.ErrNotAvailable),
		errors.Is(err, model.ErrAlreadyCancelled),
		errors.Is(err, scheduler.ErrAlreadyAwarded):
		return http.StatusConflict
	case errors.Is(err, model.ErrInsufficientPoints):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes {"error": reason}.  Internal failures are logged
// with their cause and answered with a generic message.
func respondError(c echo.Context, err error) error {
	status := statusOf(err)
	reason := model.Reason(err)
	if errors.Is(err, scheduler.ErrAlreadyAwarded) {
		reason = err.Error()
	}
	if status == http.StatusInternalServerError {
		c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
	}
	return c.JSON(status, echo.Map{"error": reason})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

// pathID parses a positive integer path parameter.
func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, model.Validation("invalid %s", name)
	}
	return id, nil
}

// queryInt returns the integer query parameter or def when it is absent.
func queryInt(c echo.Context, name string, def int) (int, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, model.Validation("invalid %s", name)
	}
	return n, nil
}

func queryDecimal(c echo.Context, name string) (*decimal.Decimal, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, model.Validation("invalid %s", name)
	}
	return &d, nil
}

// parseDay parses YYYY-MM-DD as midnight in loc.  An empty value yields
// def.
func parseDay(raw string, loc *time.Location, def time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	t, err := time.ParseInLocation("2006-01-02", raw, loc)
	if err != nil {
		return time.Time{}, model.Validation("invalid date %q, want YYYY-MM-DD", raw)
	}
	return t, nil
}

// parseMonth parses YYYY-MM as the first instant of the month in loc.
func parseMonth(raw string, loc *time.Location, def time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	t, err := time.ParseInLocation("2006-01", raw, loc)
	if err != nil {
		return time.Time{}, model.Validation("invalid month %q, want YYYY-MM", raw)
	}
	return t, nil
}
