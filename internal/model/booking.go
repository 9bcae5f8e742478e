package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cancellation types recorded on cancelled bookings.
const (
	CancellationUser       = "UserCancellation"
	CancellationAdminEvent = "AdminEventCancellation"
)

// Payment states recorded on bookings.
const (
	PaymentCompleted   = "Completed"
	PaymentRefunded    = "Refunded"
	PaymentNoRefund    = "No Refund"
	PaymentFullRefund  = "Full Refund Processed"
	defaultPaymentName = "Not specified"
)

// Derived booking states.
const (
	BookingActive    = "Active"
	BookingCancelled = "Cancelled"
)

// Booking records a user's purchase of seats for one event.
//
// Fields:
//  ID               – ledger identifier.
//  Username         – owner of the booking.
//  EventID          – booked event.
//  EventName        – event name at booking time.
//  EventDate        – event date at booking time; refunds are priced off it.
//  SeatsBooked      – seats currently held by the booking.
//  SeatIDs          – explicit seats, empty for count based bookings.
//  TotalPrice       – price of the seats currently held.
//  Timestamp        – when the booking was created.
//  Cancelled        – terminal flag; set once.
//  PaymentMethod    – method used for the original charge.
//  TransactionID    – payment processor reference.
//  PaymentStatus    – Completed, Refunded, No Refund or Full Refund Processed.
//  RefundAmount     – amount refunded on cancellation.
//  RefundPercentage – percent of the price refunded (0..100).
//  RefundReason     – policy text or organizer reason.
//  CancellationType – UserCancellation or AdminEventCancellation.
//  CancelledAt      – when the booking was cancelled.
type Booking struct {
	ID               int64           `json:"id"`
	Username         string          `json:"username"`
	EventID          int64           `json:"event_id"`
	EventName        string          `json:"event_name"`
	EventDate        time.Time       `json:"event_date"`
	SeatsBooked      int             `json:"seats_booked"`
	SeatIDs          []string        `json:"seat_ids,omitempty"`
	TotalPrice       decimal.Decimal `json:"total_price"`
	Timestamp        time.Time       `json:"timestamp"`
	Cancelled        bool            `json:"cancelled"`
	PaymentMethod    string          `json:"payment_method"`
	TransactionID    string          `json:"transaction_id"`
	PaymentStatus    string          `json:"payment_status"`
	RefundAmount     decimal.Decimal `json:"refund_amount"`
	RefundPercentage float64         `json:"refund_percentage"`
	RefundReason     string          `json:"refund_reason,omitempty"`
	CancellationType string          `json:"cancellation_type,omitempty"`
	CancelledAt      *time.Time      `json:"cancelled_at,omitempty"`
}

// Status is derived from the cancelled flag.
func (b Booking) Status() string {
	if b.Cancelled {
		return BookingCancelled
	}
	return BookingActive
}

// PricePerSeat is the per seat price fixed at booking time.  It stays
// constant across partial cancellations.
func (b Booking) PricePerSeat() decimal.Decimal {
	if b.SeatsBooked <= 0 {
		return decimal.Zero
	}
	return b.TotalPrice.Div(decimal.NewFromInt(int64(b.SeatsBooked)))
}

// HasSeatIDs reports whether the booking holds explicit seats.
func (b Booking) HasSeatIDs() bool { return len(b.SeatIDs) > 0 }

// NormalizePaymentMethod substitutes a placeholder for an empty method.
func NormalizePaymentMethod(m string) string {
	if m == "" {
		return defaultPaymentName
	}
	return m
}

// BookingFilter selects ledger rows.  Zero values disable a criterion.
// From and To bound the booking timestamp as [From, To).
type BookingFilter struct {
	Username   string
	EventID    int64
	ActiveOnly bool
	From       time.Time
	To         time.Time
}

// Match reports whether b satisfies the filter.  SQL stores translate
// the same criteria into a WHERE clause.
func (f BookingFilter) Match(b Booking) bool {
	if f.Username != "" && b.Username != f.Username {
		return false
	}
	if f.EventID != 0 && b.EventID != f.EventID {
		return false
	}
	if f.ActiveOnly && b.Cancelled {
		return false
	}
	if !f.From.IsZero() && b.Timestamp.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !b.Timestamp.Before(f.To) {
		return false
	}
	return true
}

// PartialCancellation describes the delta removed from an active booking.
type PartialCancellation struct {
	Seats   int
	Amount  decimal.Decimal
	SeatIDs []string
}

// Cancellation is the refund metadata written when a booking is
// cancelled.
type Cancellation struct {
	Refund        RefundDetails
	Type          string
	Reason        string
	PaymentStatus string
	At            time.Time
}
