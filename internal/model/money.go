package model

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// ParseMoney converts a client supplied amount into a decimal rounded to
// cents.  NaN, infinities and negative values are rejected.
func ParseMoney(f float64) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, Validation("amount must be a finite number")
	}
	if f < 0 {
		return decimal.Zero, Validation("amount must not be negative")
	}
	return decimal.NewFromFloat(f).Round(2), nil
}

// DateOf returns the civil date of t (in t's location) as 00:00 UTC.
// Event dates are stored in this form.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween counts civil days from -> to.  The result is negative when
// to lies before from.
func DaysBetween(from, to time.Time) int {
	return int(math.Round(DateOf(to).Sub(DateOf(from)).Hours() / 24))
}

// StartOfDay returns local midnight of t's day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// StartOfMonth returns the first instant of t's month in loc.
func StartOfMonth(t time.Time, loc *time.Location) time.Time {
	y, m, _ := t.In(loc).Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, loc)
}
