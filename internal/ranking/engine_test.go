package ranking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-booking-engine/internal/model"
)

type sliceFinder struct {
	bookings []model.Booking
	err      error
	calls    int
}

func (f *sliceFinder) Find(_ context.Context, flt model.BookingFilter) ([]model.Booking, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	var out []model.Booking
	for _, b := range f.bookings {
		if flt.Match(b) {
			out = append(out, b)
		}
	}
	return out, nil
}

func booking(user string, seats int, price string, at time.Time) model.Booking {
	return model.Booking{Username: user, SeatsBooked: seats, TotalPrice: decimal.RequireFromString(price), Timestamp: at}
}

func TestPointsForRank(t *testing.T) {
	cases := map[int]int{
		-1: 0, 0: 0,
		1: 1000, 2: 750, 3: 500, 4: 400, 5: 350,
		6: 300, 7: 250, 8: 200, 9: 150, 10: 100,
		11: 75, 20: 75, 21: 50, 50: 50, 51: 25, 500: 25,
	}
	for rank, want := range cases {
		assert.Equal(t, want, PointsForRank(rank), "rank %d", rank)
	}
}

func TestRankOrdering(t *testing.T) {
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	bookings := []model.Booking{
		booking("carol", 2, "40", base.Add(3*time.Hour)),
		booking("alice", 3, "60", base.Add(2*time.Hour)),
		booking("bob", 1, "20", base.Add(time.Hour)),
		booking("bob", 2, "40", base.Add(4*time.Hour)),
		booking("dave", 2, "40", base.Add(3*time.Hour)),
	}
	cancelled := booking("erin", 9, "180", base)
	cancelled.Cancelled = true
	bookings = append(bookings, cancelled)

	got := Rank(bookings, 0)
	require.Len(t, got, 4)

	// alice and bob tie on tickets; bob booked first.
	assert.Equal(t, "bob", got[0].Username)
	assert.Equal(t, 3, got[0].Tickets)
	assert.Equal(t, 2, got[0].Bookings)
	assert.True(t, decimal.RequireFromString("60").Equal(got[0].Spent))
	assert.Equal(t, "alice", got[1].Username)
	// carol and dave tie on tickets and first booking; username breaks it.
	assert.Equal(t, "carol", got[2].Username)
	assert.Equal(t, "dave", got[3].Username)

	for i, en := range got {
		assert.Equal(t, i+1, en.Rank)
		assert.Equal(t, PointsForRank(i+1), en.Points)
	}
}

func TestRankLimit(t *testing.T) {
	at := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	got := Rank([]model.Booking{booking("a", 1, "1", at), booking("b", 2, "2", at), booking("c", 3, "3", at)}, 2)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].Username)
	assert.Equal(t, "b", got[1].Username)
}

func TestDailyTopAttendeesUsesLocalDay(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	day := time.Date(2025, 3, 10, 12, 0, 0, 0, loc)
	f := &sliceFinder{bookings: []model.Booking{
		// 2025-03-09 19:30 UTC is 00:30 on the 10th in loc.
		booking("early", 1, "10", time.Date(2025, 3, 9, 19, 30, 0, 0, time.UTC)),
		// 2025-03-09 18:30 UTC is 23:30 on the 9th in loc.
		booking("yesterday", 5, "50", time.Date(2025, 3, 9, 18, 30, 0, 0, time.UTC)),
		booking("late", 2, "20", time.Date(2025, 3, 10, 18, 59, 0, 0, time.UTC)),
		// 19:00 UTC is midnight of the 11th in loc.
		booking("tomorrow", 4, "40", time.Date(2025, 3, 10, 19, 0, 0, 0, time.UTC)),
	}}
	e := New(f, loc, WithClock(func() time.Time { return day }))

	got, err := e.DailyTopAttendees(context.Background(), day)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "late", got[0].Username)
	assert.Equal(t, "early", got[1].Username)
}

func TestMonthlyTopAttendeesWindowAndLimit(t *testing.T) {
	f := &sliceFinder{bookings: []model.Booking{
		booking("a", 1, "10", time.Date(2025, 2, 28, 23, 59, 0, 0, time.UTC)),
		booking("b", 3, "30", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)),
		booking("c", 2, "20", time.Date(2025, 3, 31, 23, 59, 0, 0, time.UTC)),
		booking("d", 1, "10", time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)),
		booking("e", 7, "70", time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)),
	}}
	e := New(f, time.UTC)

	got, err := e.MonthlyTopAttendees(context.Background(), time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC), 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].Username)
	assert.Equal(t, "c", got[1].Username)
}

func TestClosedWindowWithoutRedisStillComputes(t *testing.T) {
	f := &sliceFinder{bookings: []model.Booking{booking("a", 1, "10", time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))}}
	e := New(f, time.UTC, WithBoard(NewBoard(nil, time.Hour)), WithClock(func() time.Time {
		return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	}))

	for i := 0; i < 2; i++ {
		got, err := e.DailyTopAttendees(context.Background(), time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		require.Len(t, got, 1)
	}
	assert.Equal(t, 2, f.calls)
}

func TestTopEventsByRevenue(t *testing.T) {
	at := time.Now()
	b1 := booking("a", 2, "100", at)
	b1.EventID, b1.EventName = 1, "Jazz"
	b2 := booking("b", 1, "50", at)
	b2.EventID, b2.EventName = 1, "Jazz"
	b3 := booking("c", 4, "200", at)
	b3.EventID, b3.EventName = 2, "Derby"
	f := &sliceFinder{bookings: []model.Booking{b1, b2, b3}}

	got, err := New(f, nil).TopEventsByRevenue(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(2), got[0].EventID)
	assert.Equal(t, int64(1), got[1].EventID)
	assert.Equal(t, 3, got[1].TicketsSold)
	assert.True(t, decimal.RequireFromString("150").Equal(got[1].Revenue))
}

func TestStorageErrorIsWrapped(t *testing.T) {
	f := &sliceFinder{err: errors.New("disk on fire")}
	_, err := New(f, nil).TopAttendees(context.Background(), 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrStorage)
}
