package model

import "github.com/shopspring/decimal"

// Account is a user's credit ledger and activity counters.  The monthly
// counters are reset after every monthly reward pass.
type Account struct {
	Username       string          `json:"username"`
	Email          string          `json:"email,omitempty"`
	CreditPoints   int             `json:"credit_points"`
	TicketsBought  int             `json:"tickets_bought"`
	EventsAttended int             `json:"events_attended"`
	MonthlyTickets int             `json:"monthly_tickets"`
	MonthlyEvents  int             `json:"monthly_events"`
	MonthlySpent   decimal.Decimal `json:"monthly_spent"`
}

// ActivityDelta adjusts an account's counters.  Negative ticket deltas
// are clamped so counters never drop below zero.
type ActivityDelta struct {
	Tickets int
	Events  int
	Spent   decimal.Decimal
}
