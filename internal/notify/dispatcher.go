// Package notify delivers user facing messages.  In-app messages go to
// the inbox store; e-mails are rendered here and handed to the broker so
// that a slow or unreachable broker never delays a booking.
package notify

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/iliyamo/event-booking-engine/internal/model"
	"github.com/iliyamo/event-booking-engine/internal/queue"
)

// publishTimeout bounds one background publish.
const publishTimeout = 10 * time.Second

// Inbox stores in-app notifications.
type Inbox interface {
	AddNotification(ctx context.Context, n model.Notification) error
}

// Mailer hands a rendered e-mail to the delivery pipeline.
type Mailer interface {
	Publish(ctx context.Context, m queue.EmailMessage) error
}

// Dispatcher implements the booking service's Notifier.
type Dispatcher struct {
	inbox Inbox
	mail  Mailer
	admin string
	now   func() time.Time

	wg sync.WaitGroup
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithAdmin copies booking activity into the admin user's inbox.
func WithAdmin(username string) Option { return func(d *Dispatcher) { d.admin = username } }

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(d *Dispatcher) { d.now = now } }

// New returns a Dispatcher.  A nil mailer disables e-mail.
func New(inbox Inbox, mail Mailer, opts ...Option) *Dispatcher {
	d := &Dispatcher{inbox: inbox, mail: mail, now: time.Now}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Wait blocks until every background publish has finished.
func (d *Dispatcher) Wait() { d.wg.Wait() }

// Notify writes a message to username's inbox.
func (d *Dispatcher) Notify(ctx context.Context, username, message string) {
	d.add(ctx, username, message, model.NotificationUser)
}

func (d *Dispatcher) add(ctx context.Context, username, message, kind string) {
	if username == "" {
		return
	}
	n := model.Notification{Username: username, Message: message, Kind: kind, CreatedAt: d.now()}
	if err := d.inbox.AddNotification(ctx, n); err != nil {
		log.Printf("notify: inbox write for %s failed: %v", username, err)
	}
}

func (d *Dispatcher) notifyAdmin(ctx context.Context, format string, args ...any) {
	if d.admin != "" {
		d.add(ctx, d.admin, fmt.Sprintf(format, args...), model.NotificationAdmin)
	}
}

// send publishes m in the background.  The request context only scopes
// the caller, so the publish gets its own deadline.
func (d *Dispatcher) send(ctx context.Context, m queue.EmailMessage) {
	if d.mail == nil {
		return
	}
	if m.To == "" {
		log.Printf("notify: %s has no e-mail address, skipping %s", m.Username, m.Kind)
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
		defer cancel()
		if err := d.mail.Publish(pctx, m); err != nil {
			log.Printf("notify: e-mail %s to %s not queued: %v", m.Kind, m.To, err)
		}
	}()
}

func (d *Dispatcher) message(kind string, acc model.Account, subject, body string) queue.EmailMessage {
	return queue.NewEmailMessage(kind, acc.Username, acc.Email, subject, body, d.now())
}

func (d *Dispatcher) BookingConfirmation(ctx context.Context, acc model.Account, b model.Booking) {
	d.notifyAdmin(ctx, "New booking #%d by %s: %d seat(s) for %s", b.ID, b.Username, b.SeatsBooked, b.EventName)

	m := d.message(queue.KindBookingConfirmation, acc, "Booking Confirmation - "+b.EventName, confirmationBody(acc, b))
	m.BookingID, m.EventID = b.ID, b.EventID
	d.send(ctx, m)
}

func (d *Dispatcher) BookingCancellation(ctx context.Context, acc model.Account, b model.Booking, seats int, refund model.RefundDetails) {
	d.notifyAdmin(ctx, "Booking #%d by %s cancelled: %d seat(s) released for %s", b.ID, b.Username, seats, b.EventName)

	body := cancellationBody(acc, b, seats, refund, d.now())
	m := d.message(queue.KindBookingCancellation, acc, "Booking Cancelled - "+b.EventName, body)
	m.BookingID, m.EventID = b.ID, b.EventID
	d.send(ctx, m)
}

func (d *Dispatcher) EventCancellation(ctx context.Context, acc model.Account, b model.Booking, reason string, refund model.RefundDetails) {
	subject := "Event Cancelled - " + b.EventName + " - Refund Processed"
	m := d.message(queue.KindEventCancellation, acc, subject, eventCancellationBody(acc, b, reason, refund))
	m.BookingID, m.EventID = b.ID, b.EventID
	d.send(ctx, m)
}

func (d *Dispatcher) EventPostponement(ctx context.Context, acc model.Account, b model.Booking, oldDate, newDate time.Time) {
	subject := "Event Postponed - " + b.EventName + " - New Date Announced"
	m := d.message(queue.KindEventPostponement, acc, subject, postponementBody(acc, b, oldDate, newDate))
	m.BookingID, m.EventID = b.ID, b.EventID
	d.send(ctx, m)
}

func (d *Dispatcher) EventReminder(ctx context.Context, acc model.Account, e model.Event) {
	m := d.message(queue.KindEventReminder, acc, "Event Reminder: '"+e.Name+"' is TODAY!", reminderBody(acc, e))
	m.EventID = e.ID
	d.send(ctx, m)
}

func (d *Dispatcher) MonthlyCredits(ctx context.Context, acc model.Account, rank, points, tickets int) {
	subject := fmt.Sprintf("Monthly Credit Points Awarded - Rank #%d", rank)
	d.send(ctx, d.message(queue.KindMonthlyCredits, acc, subject, monthlyBody(acc, rank, points, tickets, d.now())))
}
