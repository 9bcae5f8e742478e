package repository_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-booking-engine/internal/database"
	"github.com/iliyamo/event-booking-engine/internal/model"
	"github.com/iliyamo/event-booking-engine/internal/repository"
)

func newStore(t *testing.T) *repository.Store {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))
	return repository.NewStore(db, model.Layout{})
}

func createEvent(t *testing.T, s *repository.Store, seats int, price string) model.Event {
	t.Helper()
	ctx := context.Background()
	id, err := s.NextEventID(ctx)
	require.NoError(t, err)
	ev := model.Event{
		ID: id, Name: "Jazz Night", Type: "Concert", Venue: "Blue Room",
		Date:       time.Date(2030, 6, 20, 0, 0, 0, 0, time.UTC),
		TotalSeats: seats, SeatsAvailable: seats,
		Price: decimal.RequireFromString(price),
	}
	require.NoError(t, s.CreateEvent(ctx, ev))
	return ev
}

func available(t *testing.T, s *repository.Store, id int64) int {
	t.Helper()
	ev, err := s.GetEvent(context.Background(), id)
	require.NoError(t, err)
	return ev.SeatsAvailable
}

func TestSequencesAreMonotonic(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	a, err := s.NextEventID(ctx)
	require.NoError(t, err)
	b, err := s.NextEventID(ctx)
	require.NoError(t, err)
	assert.Equal(t, a+1, b)

	bk, err := s.NextID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), bk)
}

func TestEventRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	ev := createEvent(t, s, 50, "19.99")

	got, err := s.GetEvent(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, ev.Name, got.Name)
	assert.False(t, got.Cancelled)
	assert.True(t, ev.Date.Equal(got.Date))
	assert.True(t, decimal.RequireFromString("19.99").Equal(got.Price))
	assert.Nil(t, got.OriginalDate)

	orig := got.Date
	got.Date = got.Date.AddDate(0, 0, 7)
	got.OriginalDate = &orig
	got.CancellationReason = "weather"
	got.Cancelled = true
	require.NoError(t, s.UpdateEvent(ctx, got))

	again, err := s.GetEvent(ctx, ev.ID)
	require.NoError(t, err)
	assert.True(t, again.Cancelled)
	assert.Equal(t, "weather", again.CancellationReason)
	require.NotNil(t, again.OriginalDate)
	assert.True(t, orig.Equal(*again.OriginalDate))
	assert.Equal(t, 50, again.SeatsAvailable)

	_, err = s.GetEvent(ctx, 999)
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.ErrorIs(t, s.UpdateEvent(ctx, model.Event{ID: 999, Date: orig}), model.ErrNotFound)
}

func TestListEventsFilters(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	createEvent(t, s, 50, "10.00")
	id, err := s.NextEventID(ctx)
	require.NoError(t, err)
	require.NoError(t, s.CreateEvent(ctx, model.Event{
		ID: id, Name: "Derby", Type: "Sports", Venue: "Stadium",
		Date: time.Date(2030, 7, 1, 0, 0, 0, 0, time.UTC), TotalSeats: 10, SeatsAvailable: 10,
		Price: decimal.RequireFromString("80.00"),
	}))

	all, err := s.ListEvents(ctx, model.EventFilter{Type: "All"})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	jazz, err := s.ListEvents(ctx, model.EventFilter{Text: "blue"})
	require.NoError(t, err)
	require.Len(t, jazz, 1)
	assert.Equal(t, "Jazz Night", jazz[0].Name)

	floor := decimal.RequireFromString("50")
	pricey, err := s.ListEvents(ctx, model.EventFilter{MinPrice: &floor})
	require.NoError(t, err)
	require.Len(t, pricey, 1)
	assert.Equal(t, "Derby", pricey[0].Name)

	types, err := s.EventTypes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Concert", "Sports"}, types)
}

func TestAllocateSeatsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	ev := createEvent(t, s, 50, "25.00")

	alloc, err := s.Allocate(ctx, ev.ID, "alice", []string{"A1", "A2"})
	require.NoError(t, err)
	require.True(t, alloc.OK)
	assert.Equal(t, 48, available(t, s, ev.ID))

	alloc, err = s.Allocate(ctx, ev.ID, "bob", []string{"A3", "A2", "Z9"})
	require.NoError(t, err)
	assert.False(t, alloc.OK)
	assert.ElementsMatch(t, []string{"A2", "Z9"}, alloc.Unavailable)
	assert.Equal(t, 48, available(t, s, ev.ID))

	sm, err := s.SeatMap(ctx, ev.ID)
	require.NoError(t, err)
	require.Len(t, sm.Seats, 50)
	a3, _ := sm.Seat("A3")
	assert.Equal(t, model.SeatAvailable, a3.Status)
	a2, _ := sm.Seat("A2")
	assert.Equal(t, model.SeatBooked, a2.Status)
	assert.Equal(t, "alice", a2.Holder)
	assert.Equal(t, "A1", sm.Seats[0].ID)
	assert.Equal(t, "E10", sm.Seats[49].ID)

	// Releasing a free seat does not inflate the counter.
	require.NoError(t, s.Release(ctx, ev.ID, []string{"A1", "A3"}))
	assert.Equal(t, 49, available(t, s, ev.ID))
}

func TestAllocateCountNeverOversells(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	ev := createEvent(t, s, 10, "5.00")

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			alloc, err := s.AllocateCount(ctx, ev.ID, 2)
			assert.NoError(t, err)
			if alloc.OK {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 5, ok)
	assert.Equal(t, 0, available(t, s, ev.ID))

	require.NoError(t, s.ReleaseCount(ctx, ev.ID, 4))
	require.NoError(t, s.ReleaseCount(ctx, ev.ID, 100))
	assert.Equal(t, 10, available(t, s, ev.ID))

	_, err := s.AllocateCount(ctx, 999, 1)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func booking(id, eventID int64, seats int, total string) model.Booking {
	return model.Booking{
		ID: id, Username: "alice", EventID: eventID, EventName: "Jazz Night",
		EventDate:   time.Date(2030, 6, 20, 0, 0, 0, 0, time.UTC),
		SeatsBooked: seats, SeatIDs: []string{"A1", "A2", "A3"}[:seats],
		TotalPrice:    decimal.RequireFromString(total),
		Timestamp:     time.Date(2030, 6, 1, 12, 0, 0, 0, time.UTC),
		PaymentMethod: "Card", PaymentStatus: model.PaymentCompleted,
	}
}

func TestBookingCancellationIsCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	ev := createEvent(t, s, 50, "25.00")
	require.NoError(t, s.Insert(ctx, booking(1, ev.ID, 2, "50.00")))

	got, err := s.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "A2"}, got.SeatIDs)
	assert.False(t, got.Cancelled)

	c := model.Cancellation{
		Refund: model.RefundDetails{RefundAmount: decimal.RequireFromString("25.00"), RefundPercentage: 50},
		Type:   model.CancellationUser, PaymentStatus: model.PaymentRefunded,
		At: time.Date(2030, 6, 18, 9, 0, 0, 0, time.UTC),
	}
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		won int
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.ApplyCancellation(ctx, 1, c)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				won++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, won)

	got, err = s.Get(ctx, 1)
	require.NoError(t, err)
	assert.True(t, got.Cancelled)
	assert.True(t, decimal.RequireFromString("25").Equal(got.RefundAmount))
	assert.Equal(t, 50.0, got.RefundPercentage)
	require.NotNil(t, got.CancelledAt)

	_, err = s.ApplyCancellation(ctx, 42, c)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestPartialCancellation(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	ev := createEvent(t, s, 50, "33.33")
	require.NoError(t, s.Insert(ctx, booking(1, ev.ID, 3, "99.99")))

	ok, err := s.ApplyPartialCancellation(ctx, 1, model.PartialCancellation{
		Seats: 1, Amount: decimal.RequireFromString("33.33"), SeatIDs: []string{"A2"},
	})
	require.NoError(t, err)
	require.True(t, ok)

	got, err := s.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, got.SeatsBooked)
	assert.Equal(t, []string{"A1", "A3"}, got.SeatIDs)
	assert.Equal(t, "66.66", got.TotalPrice.StringFixed(2))

	// Removing every remaining seat is a full cancellation, not a partial one.
	ok, err = s.ApplyPartialCancellation(ctx, 1, model.PartialCancellation{Seats: 2, Amount: decimal.RequireFromString("66.66")})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFindBookings(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	ev := createEvent(t, s, 50, "25.00")
	first := booking(1, ev.ID, 1, "25.00")
	second := booking(2, ev.ID, 1, "25.00")
	second.Timestamp = first.Timestamp.Add(48 * time.Hour)
	second.Username = "bob"
	require.NoError(t, s.Insert(ctx, first))
	require.NoError(t, s.Insert(ctx, second))

	all, err := s.Find(ctx, model.BookingFilter{EventID: ev.ID})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, int64(2), all[0].ID)

	window, err := s.Find(ctx, model.BookingFilter{
		From: first.Timestamp.Add(-time.Hour), To: first.Timestamp.Add(time.Hour),
	})
	require.NoError(t, err)
	require.Len(t, window, 1)
	assert.Equal(t, "alice", window[0].Username)

	bobs, err := s.Find(ctx, model.BookingFilter{Username: "bob", ActiveOnly: true})
	require.NoError(t, err)
	assert.Len(t, bobs, 1)
}

func TestAccountPoints(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	require.NoError(t, s.EnsureAccount(ctx, "alice", ""))
	require.NoError(t, s.EnsureAccount(ctx, "alice", "alice@example.com"))
	require.NoError(t, s.EnsureAccount(ctx, "alice", "other@example.com"))
	acc, err := s.GetAccount(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", acc.Email)

	require.NoError(t, s.AddActivity(ctx, "alice", model.ActivityDelta{Tickets: 3, Spent: decimal.RequireFromString("75.50")}))
	require.NoError(t, s.AddActivity(ctx, "alice", model.ActivityDelta{Tickets: -5}))
	acc, err = s.GetAccount(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, acc.TicketsBought)
	assert.Equal(t, "75.50", acc.MonthlySpent.StringFixed(2))

	require.NoError(t, s.AddPoints(ctx, "alice", 100))
	ok, err := s.DeductPoints(ctx, "alice", 150)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = s.DeductPoints(ctx, "alice", 60)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.ResetMonthly(ctx))
	acc, err = s.GetAccount(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 40, acc.CreditPoints)
	assert.True(t, acc.MonthlySpent.IsZero())

	assert.ErrorIs(t, s.AddPoints(ctx, "ghost", 1), model.ErrNotFound)
	_, err = s.GetAccount(ctx, "ghost")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestInbox(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	require.NoError(t, s.AddNotification(ctx, model.Notification{Username: "alice", Message: "one"}))
	require.NoError(t, s.AddNotification(ctx, model.Notification{Username: "alice", Message: "two", Kind: model.NotificationAdmin}))
	require.NoError(t, s.AddNotification(ctx, model.Notification{Username: "bob", Message: "three"}))

	list, err := s.ListNotifications(ctx, "alice", "")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "two", list[0].Message)

	users, err := s.ListNotifications(ctx, "alice", model.NotificationUser)
	require.NoError(t, err)
	require.Len(t, users, 1)

	n, err := s.UnreadCount(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.ErrorIs(t, s.MarkRead(ctx, "bob", list[0].ID), model.ErrNotFound)
	require.NoError(t, s.MarkRead(ctx, "alice", list[0].ID))
	n, err = s.UnreadCount(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, s.MarkAllRead(ctx, "alice"))
	require.NoError(t, s.DeleteNotification(ctx, "alice", list[1].ID))
	assert.ErrorIs(t, s.DeleteNotification(ctx, "alice", list[1].ID), model.ErrNotFound)
}

func TestDeleteEventDropsSeatMap(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	ev := createEvent(t, s, 50, "10.00")
	_, err := s.SeatMap(ctx, ev.ID)
	require.NoError(t, err)

	require.NoError(t, s.DeleteEvent(ctx, ev.ID))
	_, err = s.SeatMap(ctx, ev.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.ErrorIs(t, s.DeleteEvent(ctx, ev.ID), model.ErrNotFound)
}
