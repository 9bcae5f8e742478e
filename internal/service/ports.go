package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/event-booking-engine/internal/model"
)

// InventoryStore owns seat maps and the per-event available seat
// counter.  Allocation rejections are reported through
// model.Allocation; errors are reserved for storage failures.
type InventoryStore interface {
	Allocate(ctx context.Context, eventID int64, holder string, seatIDs []string) (model.Allocation, error)
	AllocateCount(ctx context.Context, eventID int64, n int) (model.Allocation, error)
	Release(ctx context.Context, eventID int64, seatIDs []string) error
	ReleaseCount(ctx context.Context, eventID int64, n int) error
	SeatMap(ctx context.Context, eventID int64) (model.SeatMap, error)
}

// BookingLedger is the authoritative record of bookings.  The two apply
// methods are compare-and-swap guards: they return false without
// changing anything when the booking is no longer eligible.
type BookingLedger interface {
	NextID(ctx context.Context) (int64, error)
	Insert(ctx context.Context, b model.Booking) error
	Get(ctx context.Context, id int64) (model.Booking, error)
	Find(ctx context.Context, f model.BookingFilter) ([]model.Booking, error)
	ApplyCancellation(ctx context.Context, id int64, c model.Cancellation) (bool, error)
	ApplyPartialCancellation(ctx context.Context, id int64, p model.PartialCancellation) (bool, error)
}

// EventCatalog stores event records.  Update never touches the seat
// counter, which belongs to the InventoryStore.
type EventCatalog interface {
	NextEventID(ctx context.Context) (int64, error)
	CreateEvent(ctx context.Context, e model.Event) error
	GetEvent(ctx context.Context, id int64) (model.Event, error)
	ListEvents(ctx context.Context, f model.EventFilter) ([]model.Event, error)
	EventTypes(ctx context.Context) ([]string, error)
	UpdateEvent(ctx context.Context, e model.Event) error
	DeleteEvent(ctx context.Context, id int64) error
}

// AccountLedger holds credit balances and activity counters.
type AccountLedger interface {
	EnsureAccount(ctx context.Context, username, email string) error
	GetAccount(ctx context.Context, username string) (model.Account, error)
	ListAccounts(ctx context.Context, limit int) ([]model.Account, error)
	AddActivity(ctx context.Context, username string, d model.ActivityDelta) error
	AddPoints(ctx context.Context, username string, points int) error
	// DeductPoints fails closed: it returns false and leaves the balance
	// unchanged when the balance is lower than points.
	DeductPoints(ctx context.Context, username string, points int) (bool, error)
	ResetMonthly(ctx context.Context) error
}

// Inbox stores in-app notifications.
type Inbox interface {
	AddNotification(ctx context.Context, n model.Notification) error
	ListNotifications(ctx context.Context, username, kind string) ([]model.Notification, error)
	UnreadCount(ctx context.Context, username string) (int, error)
	MarkRead(ctx context.Context, username string, id int64) error
	MarkAllRead(ctx context.Context, username string) error
	DeleteNotification(ctx context.Context, username string, id int64) error
}

// PaymentProcessor charges customers.  An empty transaction id or an
// error means nothing was charged.
type PaymentProcessor interface {
	Charge(ctx context.Context, username string, amount decimal.Decimal, method string) (string, error)
}

// RefundProcessor returns money to customers.
type RefundProcessor interface {
	Refund(ctx context.Context, username string, bookingID int64, amount decimal.Decimal, method string) error
}

// Notifier delivers user facing messages.  All methods are fire and
// forget from the caller's point of view.
type Notifier interface {
	Notify(ctx context.Context, username, message string)
	BookingConfirmation(ctx context.Context, acc model.Account, b model.Booking)
	BookingCancellation(ctx context.Context, acc model.Account, b model.Booking, seats int, refund model.RefundDetails)
	EventCancellation(ctx context.Context, acc model.Account, b model.Booking, reason string, refund model.RefundDetails)
	EventPostponement(ctx context.Context, acc model.Account, b model.Booking, oldDate, newDate time.Time)
	EventReminder(ctx context.Context, acc model.Account, e model.Event)
	MonthlyCredits(ctx context.Context, acc model.Account, rank, points, tickets int)
}

// Clock returns the current time.  Tests substitute a fixed clock.
type Clock func() time.Time
