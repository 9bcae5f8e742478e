package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// LeaderboardEntry is one ranked attendee of a daily or monthly window.
type LeaderboardEntry struct {
	Rank          int             `json:"rank"`
	Username      string          `json:"username"`
	Tickets       int             `json:"tickets"`
	Bookings      int             `json:"bookings"`
	Spent         decimal.Decimal `json:"spent"`
	FirstBookedAt time.Time       `json:"first_booked_at"`
	Points        int             `json:"points"`
}

// EventRevenue aggregates active bookings per event for reporting.
type EventRevenue struct {
	EventID     int64           `json:"event_id"`
	EventName   string          `json:"event_name"`
	Revenue     decimal.Decimal `json:"revenue"`
	TicketsSold int             `json:"tickets_sold"`
}
