package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Derived event states.  They are computed from the event date on every
// read and are never stored.
const (
	StatusUpcoming  = "Upcoming"
	StatusEventDay  = "Event Day"
	StatusCompleted = "Completed"
)

// Event is a scheduled event with finite seat capacity.
//
// Fields:
//  ID                 – catalog identifier.
//  Name               – display name, copied onto bookings at creation.
//  Type               – category used for search (Concert, Sports, ...).
//  Date               – civil date of the event, 00:00 UTC.
//  Venue              – free text location.
//  TotalSeats         – fixed capacity.
//  SeatsAvailable     – remaining capacity; owned by the inventory store.
//  Price              – price per seat.
//  CancellationReason – set when the organizer cancels or postpones.
//  OriginalDate       – previous date when the event was postponed.
//  Cancelled          – set once the organizer cancels; no more seats are sold.
type Event struct {
	ID                 int64           `json:"id"`
	Name               string          `json:"name"`
	Type               string          `json:"type"`
	Date               time.Time       `json:"date"`
	Venue              string          `json:"venue"`
	TotalSeats         int             `json:"total_seats"`
	SeatsAvailable     int             `json:"seats_available"`
	Price              decimal.Decimal `json:"price"`
	CancellationReason string          `json:"cancellation_reason,omitempty"`
	OriginalDate       *time.Time      `json:"original_date,omitempty"`
	Cancelled          bool            `json:"cancelled,omitempty"`
}

// Status derives Upcoming, Event Day or Completed from the event date
// relative to today.
func (e Event) Status(today time.Time) string {
	switch days := DaysBetween(today, e.Date); {
	case days < 0:
		return StatusCompleted
	case days == 0:
		return StatusEventDay
	default:
		return StatusUpcoming
	}
}

// Bookable reports whether seats can still be sold for the event.
func (e Event) Bookable(today time.Time) bool {
	return !e.Cancelled && e.Status(today) != StatusCompleted && e.SeatsAvailable > 0
}

// TicketsSold is the number of seats currently held by active bookings.
func (e Event) TicketsSold() int { return e.TotalSeats - e.SeatsAvailable }

// OccupancyRate is the sold share of capacity in percent.
func (e Event) OccupancyRate() float64 {
	if e.TotalSeats == 0 {
		return 0
	}
	return float64(e.TicketsSold()) / float64(e.TotalSeats) * 100
}

// Revenue values sold seats at the current price.
func (e Event) Revenue() decimal.Decimal {
	return e.Price.Mul(decimal.NewFromInt(int64(e.TicketsSold())))
}

// EventFilter narrows catalog listings.  Zero values disable a criterion.
type EventFilter struct {
	Text     string           // case-insensitive match on name or venue
	Type     string           // exact category; "" or "All" disables
	MinPrice *decimal.Decimal // inclusive
	MaxPrice *decimal.Decimal // inclusive
}
