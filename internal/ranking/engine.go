// Package ranking builds attendee leaderboards from the booking ledger
// and maps ranks to credit point awards.
package ranking

import (
	"context"
	"log"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/event-booking-engine/internal/model"
)

// BookingFinder is the read side of the booking ledger.
type BookingFinder interface {
	Find(ctx context.Context, f model.BookingFilter) ([]model.Booking, error)
}

// Engine computes leaderboards.  It only reads bookings.
type Engine struct {
	bookings BookingFinder
	loc      *time.Location
	board    *Board
	now      func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithBoard caches leaderboards of closed windows in Redis.
func WithBoard(b *Board) Option { return func(e *Engine) { e.board = b } }

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// New returns an Engine whose day and month windows are computed in loc.
// A nil loc means UTC.
func New(bookings BookingFinder, loc *time.Location, opts ...Option) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	e := &Engine{bookings: bookings, loc: loc, now: time.Now}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Location returns the zone used for day and month windows.
func (e *Engine) Location() *time.Location { return e.loc }

// pointsTable holds the awards for ranks 1 through 10.
var pointsTable = [...]int{1000, 750, 500, 400, 350, 300, 250, 200, 150, 100}

// PointsForRank returns the credit points awarded for a leaderboard rank.
func PointsForRank(rank int) int {
	switch {
	case rank < 1:
		return 0
	case rank <= len(pointsTable):
		return pointsTable[rank-1]
	case rank <= 20:
		return 75
	case rank <= 50:
		return 50
	default:
		return 25
	}
}

// DailyTopAttendees ranks the attendees who booked during day's local
// calendar day.
func (e *Engine) DailyTopAttendees(ctx context.Context, day time.Time) ([]model.LeaderboardEntry, error) {
	from := model.StartOfDay(day, e.loc)
	to := from.AddDate(0, 0, 1)
	key := DailyKey(from)
	return e.window(ctx, key, from, to)
}

// MonthlyTopAttendees ranks at most limit attendees of the calendar
// month containing monthStart.  A limit <= 0 means no limit.
func (e *Engine) MonthlyTopAttendees(ctx context.Context, monthStart time.Time, limit int) ([]model.LeaderboardEntry, error) {
	from := model.StartOfMonth(monthStart, e.loc)
	to := from.AddDate(0, 1, 0)
	entries, err := e.window(ctx, MonthlyKey(from), from, to)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// window serves closed windows from the board when possible.
func (e *Engine) window(ctx context.Context, key string, from, to time.Time) ([]model.LeaderboardEntry, error) {
	closed := !e.now().Before(to)
	if closed && e.board != nil {
		if cached, ok := e.board.Load(ctx, key); ok {
			return cached, nil
		}
	}
	bookings, err := e.bookings.Find(ctx, model.BookingFilter{ActiveOnly: true, From: from, To: to})
	if err != nil {
		return nil, model.Storage("rank attendees", err)
	}
	entries := Rank(bookings, 0)
	if closed && e.board != nil {
		if err := e.board.Store(ctx, key, entries); err != nil {
			log.Printf("ranking: caching %s failed: %v", key, err)
		}
	}
	return entries, nil
}

// TopAttendees ranks attendees over every active booking in the ledger.
func (e *Engine) TopAttendees(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	bookings, err := e.bookings.Find(ctx, model.BookingFilter{ActiveOnly: true})
	if err != nil {
		return nil, model.Storage("rank attendees", err)
	}
	return Rank(bookings, limit), nil
}

// TopEventsByRevenue sums active bookings per event, highest revenue
// first.
func (e *Engine) TopEventsByRevenue(ctx context.Context, limit int) ([]model.EventRevenue, error) {
	bookings, err := e.bookings.Find(ctx, model.BookingFilter{ActiveOnly: true})
	if err != nil {
		return nil, model.Storage("rank events", err)
	}
	byEvent := make(map[int64]*model.EventRevenue)
	for _, b := range bookings {
		r, ok := byEvent[b.EventID]
		if !ok {
			r = &model.EventRevenue{EventID: b.EventID, EventName: b.EventName, Revenue: decimal.Zero}
			byEvent[b.EventID] = r
		}
		r.Revenue = r.Revenue.Add(b.TotalPrice)
		r.TicketsSold += b.SeatsBooked
	}
	out := make([]model.EventRevenue, 0, len(byEvent))
	for _, r := range byEvent {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Revenue.Cmp(out[j].Revenue); c != 0 {
			return c > 0
		}
		return out[i].EventID < out[j].EventID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Rank groups bookings by username and orders attendees by tickets
// descending, then by earliest first booking, then by username.
// Cancelled bookings and attendees without tickets are ignored.  Ranks
// and points are assigned from 1 upwards.
func Rank(bookings []model.Booking, limit int) []model.LeaderboardEntry {
	byUser := make(map[string]*model.LeaderboardEntry)
	for _, b := range bookings {
		if b.Cancelled {
			continue
		}
		en, ok := byUser[b.Username]
		if !ok {
			en = &model.LeaderboardEntry{Username: b.Username, Spent: decimal.Zero, FirstBookedAt: b.Timestamp}
			byUser[b.Username] = en
		}
		en.Tickets += b.SeatsBooked
		en.Bookings++
		en.Spent = en.Spent.Add(b.TotalPrice)
		if b.Timestamp.Before(en.FirstBookedAt) {
			en.FirstBookedAt = b.Timestamp
		}
	}
	out := make([]model.LeaderboardEntry, 0, len(byUser))
	for _, en := range byUser {
		if en.Tickets > 0 {
			out = append(out, *en)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Tickets != b.Tickets {
			return a.Tickets > b.Tickets
		}
		if !a.FirstBookedAt.Equal(b.FirstBookedAt) {
			return a.FirstBookedAt.Before(b.FirstBookedAt)
		}
		return a.Username < b.Username
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	for i := range out {
		out[i].Rank = i + 1
		out[i].Points = PointsForRank(i + 1)
	}
	return out
}
