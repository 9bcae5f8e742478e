package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-booking-engine/internal/model"
	"github.com/iliyamo/event-booking-engine/internal/repository/memory"
	"github.com/iliyamo/event-booking-engine/internal/service"
)

// recordingNotifier keeps every message it is asked to deliver.
type recordingNotifier struct {
	mu       sync.Mutex
	inbox    map[string][]string
	emails   []string
	monthly  []int
	reminded []string
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{inbox: make(map[string][]string)}
}

func (n *recordingNotifier) Notify(_ context.Context, username, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.inbox[username] = append(n.inbox[username], message)
}

func (n *recordingNotifier) email(kind string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.emails = append(n.emails, kind)
}

func (n *recordingNotifier) BookingConfirmation(context.Context, model.Account, model.Booking) {
	n.email("confirmation")
}

func (n *recordingNotifier) BookingCancellation(context.Context, model.Account, model.Booking, int, model.RefundDetails) {
	n.email("cancellation")
}

func (n *recordingNotifier) EventCancellation(context.Context, model.Account, model.Booking, string, model.RefundDetails) {
	n.email("event-cancellation")
}

func (n *recordingNotifier) EventPostponement(context.Context, model.Account, model.Booking, time.Time, time.Time) {
	n.email("postponement")
}

func (n *recordingNotifier) EventReminder(_ context.Context, acc model.Account, _ model.Event) {
	n.mu.Lock()
	n.reminded = append(n.reminded, acc.Username)
	n.mu.Unlock()
	n.email("reminder")
}

func (n *recordingNotifier) MonthlyCredits(_ context.Context, _ model.Account, rank, points, tickets int) {
	n.mu.Lock()
	n.monthly = append(n.monthly, rank)
	n.mu.Unlock()
	n.email("monthly")
}

func (n *recordingNotifier) messages(username string) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.inbox[username]...)
}

func (n *recordingNotifier) emailCount(kind string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, e := range n.emails {
		if e == kind {
			c++
		}
	}
	return c
}

// recordingGateway charges and refunds, optionally failing either side.
type recordingGateway struct {
	mu         sync.Mutex
	declined   bool
	refundErr  error
	charges    []decimal.Decimal
	refunds    []decimal.Decimal
	chargeSeen int
	onCharge   func()
}

func (g *recordingGateway) Charge(_ context.Context, _ string, amount decimal.Decimal, _ string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.chargeSeen++
	if g.onCharge != nil {
		g.onCharge()
	}
	if g.declined {
		return "", nil
	}
	g.charges = append(g.charges, amount)
	return "TXN-TEST", nil
}

func (g *recordingGateway) Refund(_ context.Context, _ string, _ int64, amount decimal.Decimal, _ string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.refundErr != nil {
		return g.refundErr
	}
	g.refunds = append(g.refunds, amount)
	return nil
}

func (g *recordingGateway) refunded() []decimal.Decimal {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]decimal.Decimal(nil), g.refunds...)
}

// failingLedger makes Insert fail while delegating everything else.
type failingLedger struct {
	service.BookingLedger
}

func (failingLedger) Insert(context.Context, model.Booking) error {
	return errors.New("disk full")
}

// hookedLedger runs onFind once, after the wrapped Find has returned.
type hookedLedger struct {
	service.BookingLedger
	once   sync.Once
	onFind func()
}

func (l *hookedLedger) Find(ctx context.Context, f model.BookingFilter) ([]model.Booking, error) {
	out, err := l.BookingLedger.Find(ctx, f)
	if l.onFind != nil {
		l.once.Do(l.onFind)
	}
	return out, err
}

// fixture wires a BookingService over a fresh memory store.
type fixture struct {
	store    *memory.Store
	notifier *recordingNotifier
	gateway  *recordingGateway
	svc      *service.BookingService
	today    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithLedger(t, nil)
}

func newFixtureWithLedger(t *testing.T, wrap func(service.BookingLedger) service.BookingLedger) *fixture {
	t.Helper()
	f := &fixture{
		store:    memory.New(model.DefaultLayout()),
		notifier: newRecordingNotifier(),
		gateway:  &recordingGateway{},
		today:    time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC),
	}
	var ledger service.BookingLedger = f.store
	if wrap != nil {
		ledger = wrap(f.store)
	}
	f.svc = service.NewBookingService(service.BookingDeps{
		Events:    f.store,
		Inventory: f.store,
		Ledger:    ledger,
		Accounts:  f.store,
		Notifier:  f.notifier,
		Payments:  f.gateway,
		Refunds:   f.gateway,
	}, service.WithClock(func() time.Time { return f.today }))
	return f
}

// event creates an event daysAhead days after the fixture's today.
func (f *fixture) event(t *testing.T, seats int, price string, daysAhead int) model.Event {
	t.Helper()
	ctx := context.Background()
	id, err := f.store.NextEventID(ctx)
	require.NoError(t, err)
	ev := model.Event{
		ID: id, Name: "Event", Type: "Music", Venue: "Arena",
		Date:       model.DateOf(f.today.AddDate(0, 0, daysAhead)),
		TotalSeats: seats, SeatsAvailable: seats,
		Price: decimal.RequireFromString(price),
	}
	require.NoError(t, f.store.CreateEvent(ctx, ev))
	return ev
}

// assertSeatsInvariant checks SeatsAvailable + sum(active seats) == TotalSeats.
func (f *fixture) assertSeatsInvariant(t *testing.T, eventID int64) {
	t.Helper()
	ctx := context.Background()
	ev, err := f.store.GetEvent(ctx, eventID)
	require.NoError(t, err)
	active, err := f.store.Find(ctx, model.BookingFilter{EventID: eventID, ActiveOnly: true})
	require.NoError(t, err)
	held := 0
	for _, b := range active {
		held += b.SeatsBooked
	}
	require.GreaterOrEqual(t, ev.SeatsAvailable, 0)
	require.LessOrEqual(t, ev.SeatsAvailable, ev.TotalSeats)
	require.Equal(t, ev.TotalSeats, ev.SeatsAvailable+held, "seats invariant")
}
