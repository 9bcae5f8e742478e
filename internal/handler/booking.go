package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-booking-engine/internal/middleware"
	"github.com/iliyamo/event-booking-engine/internal/model"
	"github.com/iliyamo/event-booking-engine/internal/service"
)

// BookingHandler serves the attendee booking endpoints.
type BookingHandler struct {
	Bookings *service.BookingService
}

// NewBookingHandler panics if bookings is nil.
func NewBookingHandler(bookings *service.BookingService) *BookingHandler {
	if bookings == nil {
		panic("nil service passed to NewBookingHandler")
	}
	return &BookingHandler{Bookings: bookings}
}

type bookingView struct {
	model.Booking
	Status string `json:"status"`
}

func bookingViews(list []model.Booking) []bookingView {
	out := make([]bookingView, 0, len(list))
	for _, b := range list {
		out = append(out, bookingView{Booking: b, Status: b.Status()})
	}
	return out
}

// owner is the username bookings are checked against.  Admins may act
// on any booking.
func owner(c echo.Context) string {
	if middleware.IsAdmin(c) {
		return ""
	}
	return middleware.Username(c)
}

// Checkout handles POST /v1/events/:id/bookings.  The caller is charged
// and the seats allocated in one step.
func (h *BookingHandler) Checkout(c echo.Context) error {
	eventID, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var body struct {
		Seats         int      `json:"seats"`
		SeatIDs       []string `json:"seat_ids"`
		PaymentMethod string   `json:"payment_method"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	b, err := h.Bookings.Checkout(c.Request().Context(), service.CreateRequest{
		Username:      middleware.Username(c),
		Email:         middleware.Email(c),
		EventID:       eventID,
		Seats:         body.Seats,
		SeatIDs:       body.SeatIDs,
		PaymentMethod: body.PaymentMethod,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, bookingView{Booking: b, Status: b.Status()})
}

// MyBookings handles GET /v1/my-bookings?active=true.
func (h *BookingHandler) MyBookings(c echo.Context) error {
	list, err := h.Bookings.ListBookings(c.Request().Context(), model.BookingFilter{
		Username:   middleware.Username(c),
		ActiveOnly: c.QueryParam("active") == "true",
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": bookingViews(list), "count": len(list)})
}

// GetBooking handles GET /v1/bookings/:id.
func (h *BookingHandler) GetBooking(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	b, err := h.Bookings.GetBooking(c.Request().Context(), id, owner(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, bookingView{Booking: b, Status: b.Status()})
}

// CancelBooking handles DELETE /v1/bookings/:id.
func (h *BookingHandler) CancelBooking(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	details, err := h.Bookings.Cancel(c.Request().Context(), id, owner(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"booking_id": id, "refund": details})
}

// PartialCancel handles POST /v1/bookings/:id/partial-cancel.
func (h *BookingHandler) PartialCancel(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var body struct {
		Seats   int      `json:"seats"`
		SeatIDs []string `json:"seat_ids"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	ctx := c.Request().Context()
	details, err := h.Bookings.PartialCancel(ctx, id, owner(c), body.Seats, body.SeatIDs)
	if err != nil {
		return respondError(c, err)
	}
	resp := echo.Map{"booking_id": id, "refund": details}
	if b, err := h.Bookings.GetBooking(ctx, id, ""); err == nil {
		resp["booking"] = bookingView{Booking: b, Status: b.Status()}
	}
	return c.JSON(http.StatusOK, resp)
}

// RefundQuote handles POST /v1/bookings/:id/refund-quote.  Seats of 0
// prices a full cancellation.
func (h *BookingHandler) RefundQuote(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var body struct {
		Seats int `json:"seats"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	details, err := h.Bookings.RefundQuote(c.Request().Context(), id, owner(c), body.Seats)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, details)
}
