package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/event-booking-engine/internal/database"
	"github.com/iliyamo/event-booking-engine/internal/model"
)

// BookingRepo is the SQL booking ledger.  Cancellation is a conditional
// update on cancelled = 0, so of several racing cancellations exactly
// one succeeds.
type BookingRepo struct {
	db      *sqlx.DB
	dialect dialect
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sqlx.DB) *BookingRepo { return &BookingRepo{db: db, dialect: dialectOf(db)} }

// bookingRecord mirrors the bookings table.  Seat ids are stored comma
// separated.
type bookingRecord struct {
	ID               int64           `db:"id"`
	Username         string          `db:"username"`
	EventID          int64           `db:"event_id"`
	EventName        string          `db:"event_name"`
	EventDate        time.Time       `db:"event_date"`
	SeatsBooked      int             `db:"seats_booked"`
	SeatIDs          string          `db:"seat_ids"`
	TotalPrice       decimal.Decimal `db:"total_price"`
	BookedAt         time.Time       `db:"booked_at"`
	Cancelled        bool            `db:"cancelled"`
	PaymentMethod    string          `db:"payment_method"`
	TransactionID    string          `db:"transaction_id"`
	PaymentStatus    string          `db:"payment_status"`
	RefundAmount     decimal.Decimal `db:"refund_amount"`
	RefundPercentage float64         `db:"refund_percentage"`
	RefundReason     string          `db:"refund_reason"`
	CancellationType string          `db:"cancellation_type"`
	CancelledAt      *time.Time      `db:"cancelled_at"`
}

const bookingColumns = `id, username, event_id, event_name, event_date, seats_booked, seat_ids, total_price, booked_at,
	cancelled, payment_method, transaction_id, payment_status, refund_amount, refund_percentage, refund_reason,
	cancellation_type, cancelled_at`

func joinSeats(ids []string) string { return strings.Join(ids, ",") }

func splitSeats(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func (r bookingRecord) toModel() model.Booking {
	b := model.Booking{
		ID:               r.ID,
		Username:         r.Username,
		EventID:          r.EventID,
		EventName:        r.EventName,
		EventDate:        model.DateOf(r.EventDate),
		SeatsBooked:      r.SeatsBooked,
		SeatIDs:          splitSeats(r.SeatIDs),
		TotalPrice:       r.TotalPrice.Round(2),
		Timestamp:        r.BookedAt.UTC(),
		Cancelled:        r.Cancelled,
		PaymentMethod:    r.PaymentMethod,
		TransactionID:    r.TransactionID,
		PaymentStatus:    r.PaymentStatus,
		RefundAmount:     r.RefundAmount.Round(2),
		RefundPercentage: r.RefundPercentage,
		RefundReason:     r.RefundReason,
		CancellationType: r.CancellationType,
	}
	if r.CancelledAt != nil {
		at := r.CancelledAt.UTC()
		b.CancelledAt = &at
	}
	return b
}

// NextID allocates a booking id from the booking sequence.
func (r *BookingRepo) NextID(ctx context.Context) (int64, error) {
	id, err := nextVal(ctx, r.db, "booking")
	if err != nil {
		return 0, storageErr("next booking id", err)
	}
	return id, nil
}

// Insert stores a new booking.
func (r *BookingRepo) Insert(ctx context.Context, b model.Booking) error {
	const q = `INSERT INTO bookings (` + bookingColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	var cancelledAt any
	if b.CancelledAt != nil {
		cancelledAt = b.CancelledAt.UTC()
	}
	refund := b.RefundAmount
	_, err := r.db.ExecContext(ctx, q,
		b.ID, b.Username, b.EventID, b.EventName, model.DateOf(b.EventDate), b.SeatsBooked, joinSeats(b.SeatIDs),
		b.TotalPrice, b.Timestamp.UTC(), b.Cancelled, b.PaymentMethod, b.TransactionID, b.PaymentStatus,
		refund, b.RefundPercentage, b.RefundReason, b.CancellationType, cancelledAt)
	if err != nil {
		return storageErr("insert booking", err)
	}
	return nil
}

// Get returns the booking with id or a NotFound error.
func (r *BookingRepo) Get(ctx context.Context, id int64) (model.Booking, error) {
	var rec bookingRecord
	if err := r.db.GetContext(ctx, &rec, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id); err != nil {
		return model.Booking{}, notFoundOr("get booking", "booking", id, err)
	}
	return rec.toModel(), nil
}

// Find returns bookings matching f, newest first.
func (r *BookingRepo) Find(ctx context.Context, f model.BookingFilter) ([]model.Booking, error) {
	var (
		where []string
		args  []any
	)
	if f.Username != "" {
		where = append(where, `username = ?`)
		args = append(args, f.Username)
	}
	if f.EventID != 0 {
		where = append(where, `event_id = ?`)
		args = append(args, f.EventID)
	}
	if f.ActiveOnly {
		where = append(where, `cancelled = 0`)
	}
	if !f.From.IsZero() {
		where = append(where, `booked_at >= ?`)
		args = append(args, f.From.UTC())
	}
	if !f.To.IsZero() {
		where = append(where, `booked_at < ?`)
		args = append(args, f.To.UTC())
	}
	q := `SELECT ` + bookingColumns + ` FROM bookings`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, ` AND `)
	}
	q += ` ORDER BY booked_at DESC, id DESC`

	var recs []bookingRecord
	if err := r.db.SelectContext(ctx, &recs, q, args...); err != nil {
		return nil, storageErr("find bookings", err)
	}
	out := make([]model.Booking, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.toModel())
	}
	return out, nil
}

// ApplyCancellation marks an active booking cancelled and records the
// refund.  It returns false when the booking was already cancelled.
func (r *BookingRepo) ApplyCancellation(ctx context.Context, id int64, c model.Cancellation) (bool, error) {
	const q = `UPDATE bookings SET cancelled = 1, cancelled_at = ?, cancellation_type = ?, refund_reason = ?,
		refund_amount = ?, refund_percentage = ?, payment_status = ? WHERE id = ? AND cancelled = 0`
	res, err := r.db.ExecContext(ctx, q,
		c.At.UTC(), c.Type, c.Reason, c.Refund.RefundAmount, c.Refund.RefundPercentage, c.PaymentStatus, id)
	if err != nil {
		return false, storageErr("cancel booking", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storageErr("cancel booking", err)
	}
	if n == 1 {
		return true, nil
	}
	if _, err := r.Get(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

// ApplyPartialCancellation removes p.Seats seats and p.Amount from an
// active booking that holds more than p.Seats seats.
func (r *BookingRepo) ApplyPartialCancellation(ctx context.Context, id int64, p model.PartialCancellation) (bool, error) {
	if p.Seats <= 0 {
		return false, nil
	}
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var rec bookingRecord
		if err := tx.GetContext(ctx, &rec, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`+r.dialect.forUpdate(), id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return model.NotFound("booking", id)
			}
			return err
		}
		if rec.Cancelled || rec.SeatsBooked <= p.Seats {
			return errRejected
		}
		seats := splitSeats(rec.SeatIDs)
		if len(p.SeatIDs) > 0 {
			seats = removeSeatIDs(seats, p.SeatIDs)
		}
		total := rec.TotalPrice.Round(2).Sub(p.Amount)
		res, err := tx.ExecContext(ctx,
			`UPDATE bookings SET seats_booked = ?, total_price = ?, seat_ids = ? WHERE id = ? AND cancelled = 0 AND seats_booked = ?`,
			rec.SeatsBooked-p.Seats, total, joinSeats(seats), id, rec.SeatsBooked)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n != 1 {
			return errRejected
		}
		return nil
	})
	switch {
	case errors.Is(err, errRejected):
		return false, nil
	case err != nil:
		return false, storageErr("partially cancel booking", err)
	}
	return true, nil
}

func removeSeatIDs(have, drop []string) []string {
	gone := make(map[string]bool, len(drop))
	for _, id := range drop {
		gone[id] = true
	}
	out := make([]string, 0, len(have))
	for _, id := range have {
		if !gone[id] {
			out = append(out, id)
		}
	}
	return out
}
