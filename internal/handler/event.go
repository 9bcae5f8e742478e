package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-booking-engine/internal/model"
	"github.com/iliyamo/event-booking-engine/internal/service"
)

// EventHandler serves the public catalog and the organizer endpoints.
type EventHandler struct {
	Catalog  *service.CatalogService
	Bookings *service.BookingService
}

// NewEventHandler panics if any dependency is nil.
func NewEventHandler(catalog *service.CatalogService, bookings *service.BookingService) *EventHandler {
	if catalog == nil || bookings == nil {
		panic("nil service passed to NewEventHandler")
	}
	return &EventHandler{Catalog: catalog, Bookings: bookings}
}

// eventView adds the derived status and sales figures to an event.
type eventView struct {
	model.Event
	Status        string  `json:"status"`
	TicketsSold   int     `json:"tickets_sold"`
	OccupancyRate float64 `json:"occupancy_rate"`
}

func viewOf(e model.Event, today time.Time) eventView {
	return eventView{Event: e, Status: e.Status(today), TicketsSold: e.TicketsSold(), OccupancyRate: e.OccupancyRate()}
}

// ListEvents handles GET /v1/events?q=&type=&min_price=&max_price=.
func (h *EventHandler) ListEvents(c echo.Context) error {
	minPrice, err := queryDecimal(c, "min_price")
	if err != nil {
		return respondError(c, err)
	}
	maxPrice, err := queryDecimal(c, "max_price")
	if err != nil {
		return respondError(c, err)
	}
	events, err := h.Catalog.ListEvents(c.Request().Context(), model.EventFilter{
		Text:     c.QueryParam("q"),
		Type:     c.QueryParam("type"),
		MinPrice: minPrice,
		MaxPrice: maxPrice,
	})
	if err != nil {
		return respondError(c, err)
	}
	today := h.Catalog.Today()
	out := make([]eventView, 0, len(events))
	for _, e := range events {
		out = append(out, viewOf(e, today))
	}
	return c.JSON(http.StatusOK, echo.Map{"events": out, "count": len(out)})
}

// GetEvent handles GET /v1/events/:id.
func (h *EventHandler) GetEvent(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	ev, err := h.Catalog.GetEvent(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, viewOf(ev, h.Catalog.Today()))
}

// SeatMap handles GET /v1/events/:id/seats.
func (h *EventHandler) SeatMap(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	sm, err := h.Bookings.SeatMap(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"seat_map": sm, "available": sm.AvailableCount()})
}

// EventTypes handles GET /v1/event-types.
func (h *EventHandler) EventTypes(c echo.Context) error {
	types, err := h.Catalog.EventTypes(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	if types == nil {
		types = []string{}
	}
	return c.JSON(http.StatusOK, echo.Map{"types": types})
}

type eventBody struct {
	Name       *string  `json:"name"`
	Type       *string  `json:"type"`
	Date       *string  `json:"date"`
	Venue      *string  `json:"venue"`
	TotalSeats *int     `json:"total_seats"`
	Price      *float64 `json:"price"`
}

// apply overlays the supplied fields onto in.
func (b eventBody) apply(in *service.EventInput) error {
	if b.Name != nil {
		in.Name = *b.Name
	}
	if b.Type != nil {
		in.Type = *b.Type
	}
	if b.Venue != nil {
		in.Venue = *b.Venue
	}
	if b.TotalSeats != nil {
		in.TotalSeats = *b.TotalSeats
	}
	if b.Date != nil {
		d, err := parseDay(*b.Date, time.UTC, time.Time{})
		if err != nil {
			return err
		}
		in.Date = d
	}
	if b.Price != nil {
		p, err := model.ParseMoney(*b.Price)
		if err != nil {
			return err
		}
		in.Price = p
	}
	return nil
}

// CreateEvent handles POST /v1/admin/events.
func (h *EventHandler) CreateEvent(c echo.Context) error {
	var body eventBody
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	var in service.EventInput
	if err := body.apply(&in); err != nil {
		return respondError(c, err)
	}
	ev, err := h.Catalog.CreateEvent(c.Request().Context(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, viewOf(ev, h.Catalog.Today()))
}

// UpdateEvent handles PUT /v1/admin/events/:id.  Omitted fields keep
// their current value.
func (h *EventHandler) UpdateEvent(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var body eventBody
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	ctx := c.Request().Context()
	cur, err := h.Catalog.GetEvent(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	in := service.EventInput{
		Name: cur.Name, Type: cur.Type, Date: cur.Date, Venue: cur.Venue,
		TotalSeats: cur.TotalSeats, Price: cur.Price,
	}
	if err := body.apply(&in); err != nil {
		return respondError(c, err)
	}
	ev, err := h.Catalog.UpdateEvent(ctx, id, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, viewOf(ev, h.Catalog.Today()))
}

// PostponeEvent handles POST /v1/admin/events/:id/postpone.
func (h *EventHandler) PostponeEvent(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var body struct {
		Date   string `json:"date"`
		Reason string `json:"reason"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if strings.TrimSpace(body.Date) == "" {
		return badRequest(c, "date is required")
	}
	newDate, err := parseDay(body.Date, time.UTC, time.Time{})
	if err != nil {
		return respondError(c, err)
	}
	ev, err := h.Bookings.PostponeEvent(c.Request().Context(), id, newDate, strings.TrimSpace(body.Reason))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, viewOf(ev, h.Catalog.Today()))
}

// DeleteEvent handles DELETE /v1/admin/events/:id?reason=.  Every active
// booking is cancelled with a full refund before the event is removed.
func (h *EventHandler) DeleteEvent(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	sum, err := h.Bookings.DeleteEvent(c.Request().Context(), id, strings.TrimSpace(c.QueryParam("reason")))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, sum)
}

// EventBookings handles GET /v1/admin/events/:id/bookings?active=true.
func (h *EventHandler) EventBookings(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	ctx := c.Request().Context()
	if _, err := h.Catalog.GetEvent(ctx, id); err != nil {
		return respondError(c, err)
	}
	list, err := h.Bookings.ListBookings(ctx, model.BookingFilter{EventID: id, ActiveOnly: c.QueryParam("active") == "true"})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": bookingViews(list), "count": len(list)})
}
