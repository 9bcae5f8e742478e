package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-booking-engine/internal/model"
	"github.com/iliyamo/event-booking-engine/internal/ranking"
	"github.com/iliyamo/event-booking-engine/internal/service"
)

func newCredits(f *fixture) *service.CreditService {
	engine := ranking.New(f.store, time.UTC, ranking.WithClock(func() time.Time { return f.today }))
	return service.NewCreditService(f.store, engine, f.notifier)
}

func TestDiscountMath(t *testing.T) {
	assert.Equal(t, "10.00", service.Discount(100).StringFixed(2))
	assert.True(t, service.Discount(0).IsZero())
	assert.Equal(t, 100, service.PointsForDiscount(dec("10")))
	assert.Equal(t, 101, service.PointsForDiscount(dec("10.01")))
	assert.Equal(t, 0, service.PointsForDiscount(dec("0")))
}

func TestAwardAndRedeem(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	credits := newCredits(f)

	require.NoError(t, credits.AwardPoints(ctx, "alice", 120, "Loyalty"))
	bal, err := credits.Balance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 120, bal)
	assert.Contains(t, f.notifier.messages("alice"), "You received 120 credit points! Reason: Loyalty")

	assert.ErrorIs(t, credits.AwardPoints(ctx, "alice", 0, "nothing"), model.ErrValidation)

	// GIVEN 120 points WHEN redeeming 150 THEN the balance is untouched.
	_, err = credits.Redeem(ctx, "alice", 150)
	require.ErrorIs(t, err, model.ErrInsufficientPoints)
	bal, _ = credits.Balance(ctx, "alice")
	assert.Equal(t, 120, bal)

	discount, err := credits.Redeem(ctx, "alice", 100)
	require.NoError(t, err)
	assert.Equal(t, "10.00", discount.StringFixed(2))
	bal, _ = credits.Balance(ctx, "alice")
	assert.Equal(t, 20, bal)
	assert.Contains(t, f.notifier.messages("alice"), "You redeemed 100 credit points for a discount!")

	_, err = credits.Redeem(ctx, "nobody", 1)
	assert.ErrorIs(t, err, model.ErrInsufficientPoints)
	bal, err = credits.Balance(ctx, "nobody")
	require.NoError(t, err)
	assert.Equal(t, 0, bal)
}

func TestAwardDaily(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	credits := newCredits(f)
	ev := f.event(t, 50, "10", 5)

	for _, r := range []struct {
		user  string
		seats int
	}{{"alice", 1}, {"bob", 4}, {"carol", 2}} {
		_, err := f.svc.Create(ctx, service.CreateRequest{Username: r.user, EventID: ev.ID, Seats: r.seats})
		require.NoError(t, err)
	}

	sum, err := credits.AwardDaily(ctx, f.today)
	require.NoError(t, err)
	assert.Equal(t, "2025-06-10", sum.Period)
	assert.Equal(t, 3, sum.Awarded)
	assert.Equal(t, 1000+750+500, sum.Points)

	for user, want := range map[string]int{"bob": 1000, "carol": 750, "alice": 500} {
		bal, err := credits.Balance(ctx, user)
		require.NoError(t, err)
		assert.Equal(t, want, bal, user)
	}
	assert.Contains(t, f.notifier.messages("bob"), "Daily Reward! You ranked #1 today and earned 1000 credit points!")

	// Bookings from another day do not count.
	sum, err = credits.AwardDaily(ctx, f.today.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, 0, sum.Awarded)
}

func TestAwardMonthlyResetsCounters(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	credits := newCredits(f)
	ev := f.event(t, 200, "10", 30)

	for i := 0; i < 12; i++ {
		user := fmt.Sprintf("user%02d", i)
		_, err := f.svc.Create(ctx, service.CreateRequest{Username: user, EventID: ev.ID, Seats: 12 - i})
		require.NoError(t, err)
	}

	sum, err := credits.AwardMonthly(ctx, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), 0)
	require.NoError(t, err)
	assert.Equal(t, "2025-06", sum.Period)
	assert.Equal(t, 12, sum.Awarded)
	require.Len(t, sum.Entries, 12)
	assert.Equal(t, "user00", sum.Entries[0].Username)
	assert.Equal(t, 75, sum.Entries[11].Points)
	assert.Equal(t, 12, f.notifier.emailCount("monthly"))
	assert.Contains(t, f.notifier.messages("user00"), "Monthly Rewards! You ranked #1 and earned 1000 credit points!")

	acc, err := f.store.GetAccount(ctx, "user00")
	require.NoError(t, err)
	assert.Equal(t, 1000, acc.CreditPoints)
	assert.Equal(t, 0, acc.MonthlyTickets)
	assert.Equal(t, 0, acc.MonthlyEvents)
	assert.True(t, acc.MonthlySpent.IsZero())
	assert.Equal(t, 12, acc.TicketsBought)

	limited, err := credits.AwardMonthly(ctx, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), 3)
	require.NoError(t, err)
	assert.Equal(t, 3, limited.Awarded)
}

func TestTopAttendeesIgnoresCancelled(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	credits := newCredits(f)
	ev := f.event(t, 50, "10", 5)

	b, err := f.svc.Create(ctx, service.CreateRequest{Username: "alice", EventID: ev.ID, Seats: 9})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, service.CreateRequest{Username: "bob", EventID: ev.ID, Seats: 2})
	require.NoError(t, err)
	_, err = f.svc.Cancel(ctx, b.ID, "alice")
	require.NoError(t, err)

	top, err := credits.TopAttendees(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "bob", top[0].Username)
}
