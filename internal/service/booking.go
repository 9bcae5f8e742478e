// Package service implements the booking lifecycle and the credit
// ledger on top of the store interfaces declared in ports.go.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/event-booking-engine/internal/model"
	"github.com/iliyamo/event-booking-engine/internal/refund"
)

// BookingDeps groups the collaborators of BookingService.  Payments and
// Refunds may be nil, in which case the simulated gateway is used.
type BookingDeps struct {
	Events    EventCatalog
	Inventory InventoryStore
	Ledger    BookingLedger
	Accounts  AccountLedger
	Notifier  Notifier
	Payments  PaymentProcessor
	Refunds   RefundProcessor
}

// BookingService is the only writer of inventory and of the booking
// ledger.  Conflicting operations are serialized per event and per
// booking; the stores' conditional updates keep the invariants when
// several processes share one database.
type BookingService struct {
	events    EventCatalog
	inventory InventoryStore
	ledger    BookingLedger
	accounts  AccountLedger
	notifier  Notifier
	payments  PaymentProcessor
	refunder  RefundProcessor
	policy    refund.Policy
	now       Clock

	eventLocks   keyedMutex
	bookingLocks keyedMutex
}

// Option customizes a service at construction time.
type Option func(*options)

type options struct {
	now Clock
}

// WithClock replaces time.Now, e.g. to pin "today" in tests.
func WithClock(c Clock) Option { return func(o *options) { o.now = c } }

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// NewBookingService wires a BookingService.  It panics when a required
// store is missing.
func NewBookingService(d BookingDeps, opts ...Option) *BookingService {
	if d.Events == nil || d.Inventory == nil || d.Ledger == nil || d.Accounts == nil || d.Notifier == nil {
		panic("nil dependency passed to NewBookingService")
	}
	o := buildOptions(opts)
	s := &BookingService{
		events:    d.Events,
		inventory: d.Inventory,
		ledger:    d.Ledger,
		accounts:  d.Accounts,
		notifier:  d.Notifier,
		payments:  d.Payments,
		refunder:  d.Refunds,
		policy:    refund.New(),
		now:       o.now,
	}
	if s.payments == nil || s.refunder == nil {
		gw := NewSimulatedGateway()
		if s.payments == nil {
			s.payments = gw
		}
		if s.refunder == nil {
			s.refunder = gw
		}
	}
	return s
}

// CreateRequest describes a booking.  Exactly one of Seats or SeatIDs
// must be set.
type CreateRequest struct {
	Username      string
	Email         string
	EventID       int64
	Seats         int
	SeatIDs       []string
	PaymentMethod string
	TransactionID string
	// Charged is the amount already taken by Checkout.  When set, Create
	// refuses to record a booking whose total differs from it.
	Charged *decimal.Decimal
}

// seatCount validates the request shape and returns the number of seats.
func (r CreateRequest) seatCount() (int, error) {
	if r.Username == "" {
		return 0, model.Validation("username is required")
	}
	if r.EventID <= 0 {
		return 0, model.Validation("invalid event id")
	}
	switch {
	case len(r.SeatIDs) > 0 && r.Seats != 0 && r.Seats != len(r.SeatIDs):
		return 0, model.Validation("seats and seat_ids disagree")
	case len(r.SeatIDs) > 0:
		seen := make(map[string]struct{}, len(r.SeatIDs))
		for _, id := range r.SeatIDs {
			if id == "" {
				return 0, model.Validation("empty seat id")
			}
			if _, dup := seen[id]; dup {
				return 0, model.Validation("seat %s requested twice", id)
			}
			seen[id] = struct{}{}
		}
		return len(r.SeatIDs), nil
	case r.Seats <= 0:
		return 0, model.Validation("seat count must be positive")
	default:
		return r.Seats, nil
	}
}

// Create allocates inventory and records an active booking.  When the
// ledger write fails after a successful allocation the allocation is
// released again, so no seat stays BOOKED without a ledger row.
//
// The event is read under its lock, so a booking either lands in the
// ledger before CancelEvent marks the event or sees the mark.
func (s *BookingService) Create(ctx context.Context, req CreateRequest) (model.Booking, error) {
	n, err := req.seatCount()
	if err != nil {
		return model.Booking{}, err
	}

	unlock := s.eventLocks.Lock(eventKey(req.EventID))
	defer unlock()

	ev, err := s.events.GetEvent(ctx, req.EventID)
	if err != nil {
		return model.Booking{}, err
	}
	now := s.now()
	if ev.Cancelled {
		return model.Booking{}, model.NotAvailable("event %q has been cancelled", ev.Name)
	}
	if ev.Status(now) == model.StatusCompleted {
		return model.Booking{}, model.NotAvailable("event %q has already taken place", ev.Name)
	}
	if ev.SeatsAvailable < n {
		return model.Booking{}, model.NotAvailable("only %d seats left for %q", ev.SeatsAvailable, ev.Name)
	}
	total := ev.Price.Mul(decimal.NewFromInt(int64(n)))
	if req.Charged != nil && !req.Charged.Equal(total) {
		return model.Booking{}, model.NotAvailable("price of %q changed during checkout", ev.Name)
	}

	if len(req.SeatIDs) > 0 {
		if err := s.checkSeatsExist(ctx, ev.ID, req.SeatIDs); err != nil {
			return model.Booking{}, err
		}
	}
	if err := s.allocate(ctx, ev, req.Username, req.SeatIDs, n); err != nil {
		return model.Booking{}, err
	}

	b := model.Booking{
		Username:      req.Username,
		EventID:       ev.ID,
		EventName:     ev.Name,
		EventDate:     ev.Date,
		SeatsBooked:   n,
		SeatIDs:       append([]string(nil), req.SeatIDs...),
		TotalPrice:    total,
		Timestamp:     now,
		PaymentMethod: model.NormalizePaymentMethod(req.PaymentMethod),
		TransactionID: req.TransactionID,
		PaymentStatus: model.PaymentCompleted,
	}
	b.ID, err = s.ledger.NextID(ctx)
	if err == nil {
		err = s.ledger.Insert(ctx, b)
	}
	if err != nil {
		s.release(ctx, ev.ID, b.SeatIDs, n)
		return model.Booking{}, model.Storage("record booking", err)
	}

	if err := s.accounts.EnsureAccount(ctx, req.Username, req.Email); err != nil {
		log.Printf("booking: ensure account %s failed: %v", req.Username, err)
	}
	if err := s.accounts.AddActivity(ctx, req.Username, model.ActivityDelta{Tickets: n, Events: 1, Spent: b.TotalPrice}); err != nil {
		log.Printf("booking: update counters for %s failed: %v", req.Username, err)
	}
	log.Printf("booking: created id=%d user=%s event=%d seats=%d total=%s", b.ID, b.Username, b.EventID, n, b.TotalPrice.StringFixed(2))

	acc := s.accountFor(ctx, req.Username)
	s.notifier.BookingConfirmation(ctx, acc, b)
	s.notifier.Notify(ctx, b.Username, fmt.Sprintf("Booking confirmed: %d seat(s) for %s. Total $%s.", n, b.EventName, b.TotalPrice.StringFixed(2)))
	return b, nil
}

// Checkout charges the customer and then creates the booking.  A charge
// that cannot be turned into a booking is refunded.
func (s *BookingService) Checkout(ctx context.Context, req CreateRequest) (model.Booking, error) {
	n, err := req.seatCount()
	if err != nil {
		return model.Booking{}, err
	}
	ev, err := s.events.GetEvent(ctx, req.EventID)
	if err != nil {
		return model.Booking{}, err
	}
	if !ev.Bookable(s.now()) || ev.SeatsAvailable < n {
		return model.Booking{}, model.NotAvailable("not enough seats available for %q", ev.Name)
	}
	amount := ev.Price.Mul(decimal.NewFromInt(int64(n)))
	txID, err := s.payments.Charge(ctx, req.Username, amount, req.PaymentMethod)
	if err != nil {
		var me *model.Error
		if errors.As(err, &me) {
			return model.Booking{}, err
		}
		return model.Booking{}, model.Validation("payment failed: %v", err)
	}
	if txID == "" {
		return model.Booking{}, ErrPaymentDeclined
	}
	req.TransactionID = txID
	req.Charged = &amount
	b, err := s.Create(ctx, req)
	if err != nil {
		if rerr := s.refunder.Refund(ctx, req.Username, 0, amount, req.PaymentMethod); rerr != nil {
			log.Printf("booking: refund of unused charge %s failed: %v", txID, rerr)
		}
		return model.Booking{}, err
	}
	return b, nil
}

// Cancel fully cancels a booking on behalf of username and prices the
// refund with the date based policy.  An empty username skips the
// ownership check (operator access).
func (s *BookingService) Cancel(ctx context.Context, bookingID int64, username string) (model.RefundDetails, error) {
	unlock := s.bookingLocks.Lock(bookingKey(bookingID))
	defer unlock()
	return s.cancelLocked(ctx, bookingID, username)
}

func (s *BookingService) cancelLocked(ctx context.Context, bookingID int64, username string) (model.RefundDetails, error) {
	b, err := s.loadOwned(ctx, bookingID, username)
	if err != nil {
		return model.RefundDetails{}, err
	}
	if b.Cancelled {
		return model.RefundDetails{}, model.AlreadyCancelled(b.ID)
	}
	now := s.now()
	details, err := s.policy.Calculate(b.TotalPrice, s.eventDate(ctx, b), now)
	if err != nil {
		return model.RefundDetails{}, err
	}
	status := model.PaymentNoRefund
	if details.RefundAmount.IsPositive() {
		status = model.PaymentRefunded
	}
	ok, err := s.ledger.ApplyCancellation(ctx, b.ID, model.Cancellation{
		Refund:        details,
		Type:          model.CancellationUser,
		Reason:        details.PolicyApplied,
		PaymentStatus: status,
		At:            now,
	})
	if err != nil {
		return model.RefundDetails{}, model.Storage("cancel booking", err)
	}
	if !ok {
		return model.RefundDetails{}, model.AlreadyCancelled(b.ID)
	}

	relErr := s.releaseLocked(ctx, b.EventID, b.SeatIDs, b.SeatsBooked)
	s.settle(ctx, b, b.SeatsBooked, details)

	acc := s.accountFor(ctx, b.Username)
	s.notifier.BookingCancellation(ctx, acc, b, b.SeatsBooked, details)
	s.notifier.Notify(ctx, b.Username, fmt.Sprintf("Success: Booking cancelled. Refund of $%s (%.0f%%) will be processed.",
		details.RefundAmount.StringFixed(2), details.RefundPercentage))
	log.Printf("booking: cancelled id=%d user=%s refund=%s (%s)", b.ID, b.Username, details.RefundAmount.StringFixed(2), details.PolicyApplied)
	if relErr != nil {
		return details, model.Storage("release seats", relErr)
	}
	return details, nil
}

// PartialCancel gives back seats of an active booking.  seats must be
// positive and not above the booking's seat count; cancelling every
// seat is a full cancellation.  For bookings with explicit seats,
// seatIDs selects which ones to release, defaulting to the last seats.
func (s *BookingService) PartialCancel(ctx context.Context, bookingID int64, username string, seats int, seatIDs []string) (model.RefundDetails, error) {
	if len(seatIDs) > 0 {
		if seats != 0 && seats != len(seatIDs) {
			return model.RefundDetails{}, model.Validation("seats and seat_ids disagree")
		}
		seats = len(seatIDs)
	}
	if seats <= 0 {
		return model.RefundDetails{}, model.Validation("seats to cancel must be positive")
	}

	unlock := s.bookingLocks.Lock(bookingKey(bookingID))
	defer unlock()

	b, err := s.loadOwned(ctx, bookingID, username)
	if err != nil {
		return model.RefundDetails{}, err
	}
	if b.Cancelled {
		return model.RefundDetails{}, model.AlreadyCancelled(b.ID)
	}
	if seats > b.SeatsBooked {
		return model.RefundDetails{}, model.Validation("cannot cancel %d seats, booking %d holds %d", seats, b.ID, b.SeatsBooked)
	}
	if seats == b.SeatsBooked {
		return s.cancelLocked(ctx, bookingID, username)
	}
	released, err := pickSeats(b, seats, seatIDs)
	if err != nil {
		return model.RefundDetails{}, err
	}

	amount := b.PricePerSeat().Mul(decimal.NewFromInt(int64(seats))).Round(2)
	details, err := s.policy.Calculate(amount, s.eventDate(ctx, b), s.now())
	if err != nil {
		return model.RefundDetails{}, err
	}
	ok, err := s.ledger.ApplyPartialCancellation(ctx, b.ID, model.PartialCancellation{Seats: seats, Amount: amount, SeatIDs: released})
	if err != nil {
		return model.RefundDetails{}, model.Storage("partially cancel booking", err)
	}
	if !ok {
		return model.RefundDetails{}, model.AlreadyCancelled(b.ID)
	}

	relErr := s.releaseLocked(ctx, b.EventID, released, seats)
	s.settle(ctx, b, seats, details)

	acc := s.accountFor(ctx, b.Username)
	s.notifier.BookingCancellation(ctx, acc, b, seats, details)
	s.notifier.Notify(ctx, b.Username, fmt.Sprintf("Success: Partially cancelled booking. %d seats released. Refund of $%s processed.",
		seats, details.RefundAmount.StringFixed(2)))
	log.Printf("booking: partial cancel id=%d seats=%d amount=%s refund=%s", b.ID, seats, amount.StringFixed(2), details.RefundAmount.StringFixed(2))
	if relErr != nil {
		return details, model.Storage("release seats", relErr)
	}
	return details, nil
}

// RefundQuote prices a cancellation of seats (0 means all) without
// changing anything.
func (s *BookingService) RefundQuote(ctx context.Context, bookingID int64, username string, seats int) (model.RefundDetails, error) {
	b, err := s.loadOwned(ctx, bookingID, username)
	if err != nil {
		return model.RefundDetails{}, err
	}
	if b.Cancelled {
		return model.RefundDetails{}, model.AlreadyCancelled(b.ID)
	}
	if seats < 0 || seats > b.SeatsBooked {
		return model.RefundDetails{}, model.Validation("cannot cancel %d seats, booking %d holds %d", seats, b.ID, b.SeatsBooked)
	}
	amount := b.TotalPrice
	if seats != 0 && seats != b.SeatsBooked {
		amount = b.PricePerSeat().Mul(decimal.NewFromInt(int64(seats))).Round(2)
	}
	return s.policy.Calculate(amount, s.eventDate(ctx, b), s.now())
}

// CascadeSummary reports what an organizer cancellation did.
type CascadeSummary struct {
	EventID           int64           `json:"event_id"`
	BookingsCancelled int             `json:"bookings_cancelled"`
	SeatsReleased     int             `json:"seats_released"`
	TotalRefunded     decimal.Decimal `json:"total_refunded"`
}

// CancelEvent marks an event cancelled and then cancels every active
// booking of it with a full refund.  Bookings that are already
// cancelled are skipped, so calling it again is harmless.
func (s *BookingService) CancelEvent(ctx context.Context, eventID int64, reason string) (CascadeSummary, error) {
	ev, err := s.markCancelled(ctx, eventID, reason)
	if err != nil {
		return CascadeSummary{}, err
	}
	bookings, err := s.ledger.Find(ctx, model.BookingFilter{EventID: eventID, ActiveOnly: true})
	if err != nil {
		return CascadeSummary{}, model.Storage("list event bookings", err)
	}
	sum := CascadeSummary{EventID: eventID, TotalRefunded: decimal.Zero}
	var errs []error
	for _, b := range bookings {
		details, seats, err := s.cascadeOne(ctx, ev, b.ID, reason)
		if err != nil {
			errs = append(errs, fmt.Errorf("booking %d: %w", b.ID, err))
			continue
		}
		if seats == 0 {
			continue
		}
		sum.BookingsCancelled++
		sum.SeatsReleased += seats
		sum.TotalRefunded = sum.TotalRefunded.Add(details.RefundAmount)
	}
	log.Printf("booking: event %d cancelled by organizer: %d bookings, %d seats, refunded %s",
		eventID, sum.BookingsCancelled, sum.SeatsReleased, sum.TotalRefunded.StringFixed(2))
	if len(errs) > 0 {
		return sum, model.Storage("cascade cancel", errors.Join(errs...))
	}
	return sum, nil
}

// markCancelled stops sales for the event.  It holds the event lock only
// for the write: cascadeOne releases seats under the same lock.
func (s *BookingService) markCancelled(ctx context.Context, eventID int64, reason string) (model.Event, error) {
	unlock := s.eventLocks.Lock(eventKey(eventID))
	defer unlock()

	ev, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return model.Event{}, err
	}
	if ev.Cancelled && (reason == "" || reason == ev.CancellationReason) {
		return ev, nil
	}
	ev.Cancelled = true
	if reason != "" {
		ev.CancellationReason = reason
	}
	if err := s.events.UpdateEvent(ctx, ev); err != nil {
		return model.Event{}, model.Storage("mark event cancelled", err)
	}
	return ev, nil
}

// cascadeOne returns the seats it released; zero means the booking was
// already cancelled by someone else.
func (s *BookingService) cascadeOne(ctx context.Context, ev model.Event, bookingID int64, reason string) (model.RefundDetails, int, error) {
	unlock := s.bookingLocks.Lock(bookingKey(bookingID))
	defer unlock()

	b, err := s.ledger.Get(ctx, bookingID)
	if err != nil {
		return model.RefundDetails{}, 0, err
	}
	if b.Cancelled {
		return model.RefundDetails{}, 0, nil
	}
	details, err := s.policy.EventCancellation(b.TotalPrice)
	if err != nil {
		return model.RefundDetails{}, 0, err
	}
	if reason == "" {
		reason = details.PolicyApplied
	}
	ok, err := s.ledger.ApplyCancellation(ctx, b.ID, model.Cancellation{
		Refund:        details,
		Type:          model.CancellationAdminEvent,
		Reason:        reason,
		PaymentStatus: model.PaymentFullRefund,
		At:            s.now(),
	})
	if err != nil {
		return model.RefundDetails{}, 0, err
	}
	if !ok {
		return model.RefundDetails{}, 0, nil
	}
	relErr := s.releaseLocked(ctx, b.EventID, b.SeatIDs, b.SeatsBooked)
	s.settle(ctx, b, b.SeatsBooked, details)

	acc := s.accountFor(ctx, b.Username)
	s.notifier.EventCancellation(ctx, acc, b, reason, details)
	s.notifier.Notify(ctx, b.Username, fmt.Sprintf("Event %s was cancelled by the organizer. Full refund of $%s is on its way.",
		ev.Name, details.RefundAmount.StringFixed(2)))
	return details, b.SeatsBooked, relErr
}

// DeleteEvent cascade-cancels the event's bookings and then removes the
// event.  The event is kept when any booking could not be cancelled.
func (s *BookingService) DeleteEvent(ctx context.Context, eventID int64, reason string) (CascadeSummary, error) {
	sum, err := s.CancelEvent(ctx, eventID, reason)
	if err != nil {
		return sum, err
	}
	if err := s.events.DeleteEvent(ctx, eventID); err != nil {
		return sum, model.Storage("delete event", err)
	}
	log.Printf("booking: event %d deleted", eventID)
	return sum, nil
}

// PostponeEvent moves an event to a later date and tells every active
// booker.  Bookings stay active.
func (s *BookingService) PostponeEvent(ctx context.Context, eventID int64, newDate time.Time, reason string) (model.Event, error) {
	ev, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return model.Event{}, err
	}
	if ev.Cancelled {
		return model.Event{}, model.NotAvailable("event %q has been cancelled", ev.Name)
	}
	newDate = model.DateOf(newDate)
	if model.DaysBetween(s.now(), newDate) < 0 {
		return model.Event{}, model.Validation("new date %s is in the past", newDate.Format("2006-01-02"))
	}
	if newDate.Equal(ev.Date) {
		return model.Event{}, model.Validation("event is already scheduled on %s", newDate.Format("2006-01-02"))
	}
	oldDate := ev.Date
	if ev.OriginalDate == nil {
		ev.OriginalDate = &oldDate
	}
	ev.Date = newDate
	if reason != "" {
		ev.CancellationReason = reason
	}
	if err := s.events.UpdateEvent(ctx, ev); err != nil {
		return model.Event{}, model.Storage("postpone event", err)
	}
	bookings, err := s.ledger.Find(ctx, model.BookingFilter{EventID: eventID, ActiveOnly: true})
	if err != nil {
		return ev, model.Storage("list event bookings", err)
	}
	for _, b := range bookings {
		acc := s.accountFor(ctx, b.Username)
		s.notifier.EventPostponement(ctx, acc, b, oldDate, newDate)
		s.notifier.Notify(ctx, b.Username, fmt.Sprintf("%s has been postponed from %s to %s. Your booking remains valid.",
			ev.Name, oldDate.Format("2006-01-02"), newDate.Format("2006-01-02")))
	}
	return ev, nil
}

// SendEventReminders e-mails every active booker of events taking place
// on today's date and returns the number of reminders sent.
func (s *BookingService) SendEventReminders(ctx context.Context, today time.Time) (int, error) {
	events, err := s.events.ListEvents(ctx, model.EventFilter{})
	if err != nil {
		return 0, model.Storage("list events", err)
	}
	sent := 0
	for _, ev := range events {
		if ev.Status(today) != model.StatusEventDay {
			continue
		}
		bookings, err := s.ledger.Find(ctx, model.BookingFilter{EventID: ev.ID, ActiveOnly: true})
		if err != nil {
			return sent, model.Storage("list event bookings", err)
		}
		seen := make(map[string]bool)
		for _, b := range bookings {
			if seen[b.Username] {
				continue
			}
			seen[b.Username] = true
			s.notifier.EventReminder(ctx, s.accountFor(ctx, b.Username), ev)
			sent++
		}
	}
	return sent, nil
}

// GetBooking returns a booking; a non-empty username must own it.
func (s *BookingService) GetBooking(ctx context.Context, bookingID int64, username string) (model.Booking, error) {
	return s.loadOwned(ctx, bookingID, username)
}

// ListBookings returns bookings matching f.
func (s *BookingService) ListBookings(ctx context.Context, f model.BookingFilter) ([]model.Booking, error) {
	out, err := s.ledger.Find(ctx, f)
	if err != nil {
		return nil, model.Storage("list bookings", err)
	}
	return out, nil
}

// SeatMap returns the seat map of an existing event.
func (s *BookingService) SeatMap(ctx context.Context, eventID int64) (model.SeatMap, error) {
	if _, err := s.events.GetEvent(ctx, eventID); err != nil {
		return model.SeatMap{}, err
	}
	sm, err := s.inventory.SeatMap(ctx, eventID)
	if err != nil {
		return model.SeatMap{}, model.Storage("load seat map", err)
	}
	return sm, nil
}

func (s *BookingService) loadOwned(ctx context.Context, bookingID int64, username string) (model.Booking, error) {
	b, err := s.ledger.Get(ctx, bookingID)
	if err != nil {
		return model.Booking{}, err
	}
	if username != "" && b.Username != username {
		return model.Booking{}, model.Forbidden("booking belongs to another user")
	}
	return b, nil
}

func (s *BookingService) checkSeatsExist(ctx context.Context, eventID int64, seatIDs []string) error {
	sm, err := s.inventory.SeatMap(ctx, eventID)
	if err != nil {
		return model.Storage("load seat map", err)
	}
	for _, id := range seatIDs {
		if _, ok := sm.Seat(id); !ok {
			return model.Validation("unknown seat %s", id)
		}
	}
	return nil
}

func (s *BookingService) allocate(ctx context.Context, ev model.Event, holder string, seatIDs []string, n int) error {
	if len(seatIDs) > 0 {
		alloc, err := s.inventory.Allocate(ctx, ev.ID, holder, seatIDs)
		if err != nil {
			return model.Storage("allocate seats", err)
		}
		if !alloc.OK {
			if len(alloc.Unavailable) == 0 {
				return model.NotAvailable("not enough seats available for %q", ev.Name)
			}
			return model.SeatConflict(alloc.Unavailable)
		}
		return nil
	}
	alloc, err := s.inventory.AllocateCount(ctx, ev.ID, n)
	if err != nil {
		return model.Storage("allocate seats", err)
	}
	if !alloc.OK {
		return model.NotAvailable("not enough seats available for %q", ev.Name)
	}
	return nil
}

// release undoes an allocation made while the event lock is held.
func (s *BookingService) release(ctx context.Context, eventID int64, seatIDs []string, n int) {
	var err error
	if len(seatIDs) > 0 {
		err = s.inventory.Release(ctx, eventID, seatIDs)
	} else {
		err = s.inventory.ReleaseCount(ctx, eventID, n)
	}
	if err != nil {
		log.Printf("booking: compensating release for event %d failed, inventory needs repair: %v", eventID, err)
	}
}

func (s *BookingService) releaseLocked(ctx context.Context, eventID int64, seatIDs []string, n int) error {
	unlock := s.eventLocks.Lock(eventKey(eventID))
	defer unlock()
	var err error
	if len(seatIDs) > 0 {
		err = s.inventory.Release(ctx, eventID, seatIDs)
	} else {
		err = s.inventory.ReleaseCount(ctx, eventID, n)
	}
	if err != nil {
		log.Printf("booking: release of %d seats for event %d failed: %v", n, eventID, err)
	}
	return err
}

// settle adjusts the owner's counters and pays out the refund.  Refund
// failures are logged; the cancellation stands.
func (s *BookingService) settle(ctx context.Context, b model.Booking, seats int, details model.RefundDetails) {
	if err := s.accounts.AddActivity(ctx, b.Username, model.ActivityDelta{Tickets: -seats}); err != nil {
		log.Printf("booking: update counters for %s failed: %v", b.Username, err)
	}
	if !details.RefundAmount.IsPositive() {
		return
	}
	if err := s.refunder.Refund(ctx, b.Username, b.ID, details.RefundAmount, b.PaymentMethod); err != nil {
		log.Printf("booking: refund for booking %d failed, cancellation kept: %v", b.ID, err)
	}
}

// eventDate prefers the catalog's current date so that postponed
// events are priced off their new date.
func (s *BookingService) eventDate(ctx context.Context, b model.Booking) time.Time {
	if ev, err := s.events.GetEvent(ctx, b.EventID); err == nil {
		return ev.Date
	}
	return b.EventDate
}

func (s *BookingService) accountFor(ctx context.Context, username string) model.Account {
	acc, err := s.accounts.GetAccount(ctx, username)
	if err != nil {
		return model.Account{Username: username}
	}
	return acc
}

func pickSeats(b model.Booking, seats int, requested []string) ([]string, error) {
	if !b.HasSeatIDs() {
		if len(requested) > 0 {
			return nil, model.Validation("booking %d has no assigned seats", b.ID)
		}
		return nil, nil
	}
	if len(requested) == 0 {
		return append([]string(nil), b.SeatIDs[len(b.SeatIDs)-seats:]...), nil
	}
	held := make(map[string]bool, len(b.SeatIDs))
	for _, id := range b.SeatIDs {
		held[id] = true
	}
	seen := make(map[string]bool, len(requested))
	for _, id := range requested {
		if !held[id] {
			return nil, model.Validation("seat %s is not part of booking %d", id, b.ID)
		}
		if seen[id] {
			return nil, model.Validation("seat %s listed twice", id)
		}
		seen[id] = true
	}
	return append([]string(nil), requested...), nil
}
