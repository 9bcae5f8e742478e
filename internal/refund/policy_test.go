package refund

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-booking-engine/internal/model"
)

func TestPolicy_Calculate_Table(t *testing.T) {
	today := time.Date(2026, 3, 10, 15, 30, 0, 0, time.Local)
	amount := decimal.NewFromInt(100)

	cases := []struct {
		name     string
		offset   int
		percent  float64
		refund   string
		policy   string
	}{
		{"four days out", 4, 100, "100", "Full Refund (More than 3 days before event)"},
		{"three days out", 3, 75, "75", "75% Refund (3 days before event)"},
		{"two days out", 2, 50, "50", "50% Refund (2 days before event)"},
		{"one day out", 1, 25, "25", "25% Refund (1 day before event)"},
		{"event day", 0, 0, "0", "No Refund (Event Day - Same Day Cancellation)"},
		{"past event", -1, 0, "0", "Event Already Completed - No Refund"},
		{"far future", 90, 100, "100", "Full Refund (More than 3 days before event)"},
	}
	p := New()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			eventDate := model.DateOf(today.AddDate(0, 0, tc.offset))
			got, err := p.Calculate(amount, eventDate, today)
			require.NoError(t, err)
			assert.Equal(t, tc.percent, got.RefundPercentage)
			assert.True(t, decimal.RequireFromString(tc.refund).Equal(got.RefundAmount), "refund %s", got.RefundAmount)
			assert.Equal(t, tc.offset, got.DaysUntilEvent)
			assert.Equal(t, tc.policy, got.PolicyApplied)
			assert.True(t, amount.Equal(got.OriginalAmount))
		})
	}
}

func TestPolicy_Calculate_LateEveningStillCountsCivilDays(t *testing.T) {
	// GIVEN: 23:59 the day before the event
	today := time.Date(2026, 3, 10, 23, 59, 0, 0, time.UTC)
	eventDate := time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)

	got, err := New().Calculate(decimal.NewFromInt(80), eventDate, today)

	// THEN: one day remains, 25%
	require.NoError(t, err)
	assert.Equal(t, 1, got.DaysUntilEvent)
	assert.True(t, decimal.NewFromInt(20).Equal(got.RefundAmount))
}

func TestPolicy_Calculate_RoundsToCents(t *testing.T) {
	today := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	got, err := New().Calculate(decimal.RequireFromString("33.33"), today.AddDate(0, 0, 1), today)
	require.NoError(t, err)
	assert.Equal(t, "8.33", got.RefundAmount.StringFixed(2))
}

func TestPolicy_Calculate_RejectsNegativeAmount(t *testing.T) {
	_, err := New().Calculate(decimal.NewFromInt(-1), time.Now(), time.Now())
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestPolicy_EventCancellation_AlwaysFull(t *testing.T) {
	got, err := New().EventCancellation(decimal.RequireFromString("149.90"))
	require.NoError(t, err)
	assert.Equal(t, float64(100), got.RefundPercentage)
	assert.Equal(t, "149.90", got.RefundAmount.StringFixed(2))
	assert.Equal(t, "Event Cancelled by Organizer - Full Refund (100%)", got.PolicyApplied)

	_, err = New().EventCancellation(decimal.NewFromInt(-5))
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestPolicy_IsRefundAllowed(t *testing.T) {
	today := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	p := New()
	assert.True(t, p.IsRefundAllowed(model.DateOf(today), today), "event day")
	assert.True(t, p.IsRefundAllowed(model.DateOf(today.AddDate(0, 0, 5)), today))
	assert.False(t, p.IsRefundAllowed(model.DateOf(today.AddDate(0, 0, -1)), today))
}
