// Package refund prices cancellations.  The policy is a pure function of
// the amount paid and the number of civil days left before the event.
package refund

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/event-booking-engine/internal/model"
)

// tier is one row of the refund table.
type tier struct {
	percent int64
	policy  string
}

var (
	tierPast     = tier{0, "Event Already Completed - No Refund"}
	tierEventDay = tier{0, "No Refund (Event Day - Same Day Cancellation)"}
	tierOneDay   = tier{25, "25% Refund (1 day before event)"}
	tierTwoDays  = tier{50, "50% Refund (2 days before event)"}
	tierThree    = tier{75, "75% Refund (3 days before event)"}
	tierFull     = tier{100, "Full Refund (More than 3 days before event)"}

	organizerPolicy = "Event Cancelled by Organizer - Full Refund (100%)"
)

var hundred = decimal.NewFromInt(100)

// Policy is the tiered refund schedule for user initiated cancellations.
// It holds no state; the zero value is ready to use.
type Policy struct{}

// New returns a Policy.
func New() Policy { return Policy{} }

// Calculate prices a refund of amount for an event on eventDate when the
// cancellation happens on today.  Only the civil dates matter.
func (Policy) Calculate(amount decimal.Decimal, eventDate, today time.Time) (model.RefundDetails, error) {
	if amount.IsNegative() {
		return model.RefundDetails{}, model.Validation("refund amount must not be negative")
	}
	days := model.DaysBetween(today, eventDate)
	t := tierFor(days)
	return build(amount, t.percent, days, t.policy), nil
}

// EventCancellation prices an organizer cancellation: always a full
// refund, independent of the date.
func (Policy) EventCancellation(amount decimal.Decimal) (model.RefundDetails, error) {
	if amount.IsNegative() {
		return model.RefundDetails{}, model.Validation("refund amount must not be negative")
	}
	return build(amount, 100, 0, organizerPolicy), nil
}

// IsRefundAllowed is false only for events strictly in the past.
func (Policy) IsRefundAllowed(eventDate, today time.Time) bool {
	return model.DaysBetween(today, eventDate) >= 0
}

func tierFor(days int) tier {
	switch {
	case days < 0:
		return tierPast
	case days == 0:
		return tierEventDay
	case days == 1:
		return tierOneDay
	case days == 2:
		return tierTwoDays
	case days == 3:
		return tierThree
	default:
		return tierFull
	}
}

func build(amount decimal.Decimal, percent int64, days int, policy string) model.RefundDetails {
	if percent > 100 {
		percent = 100
	}
	refund := amount.Mul(decimal.NewFromInt(percent)).Div(hundred).Round(2)
	return model.RefundDetails{
		OriginalAmount:   amount,
		RefundAmount:     refund,
		RefundPercentage: float64(percent),
		DaysUntilEvent:   days,
		PolicyApplied:    policy,
	}
}
