package repository

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/event-booking-engine/internal/model"
)

// EventRepo stores the event catalog in the events table.  It never
// writes seats_available after creation; that column belongs to
// InventoryRepo.
type EventRepo struct {
	db *sqlx.DB
}

// NewEventRepo returns a new EventRepo bound to the given database.
func NewEventRepo(db *sqlx.DB) *EventRepo { return &EventRepo{db: db} }

// eventRecord mirrors the events table.
type eventRecord struct {
	ID                 int64           `db:"id"`
	Name               string          `db:"name"`
	Type               string          `db:"event_type"`
	Date               time.Time       `db:"event_date"`
	Venue              string          `db:"venue"`
	TotalSeats         int             `db:"total_seats"`
	SeatsAvailable     int             `db:"seats_available"`
	Price              decimal.Decimal `db:"price"`
	CancellationReason string          `db:"cancellation_reason"`
	OriginalDate       *time.Time      `db:"original_date"`
	Cancelled          bool            `db:"cancelled"`
}

const eventColumns = `id, name, event_type, event_date, venue, total_seats, seats_available, price, cancellation_reason, original_date, cancelled`

func (r eventRecord) toModel() model.Event {
	e := model.Event{
		ID:                 r.ID,
		Name:               r.Name,
		Type:               r.Type,
		Date:               model.DateOf(r.Date),
		Venue:              r.Venue,
		TotalSeats:         r.TotalSeats,
		SeatsAvailable:     r.SeatsAvailable,
		Price:              r.Price.Round(2),
		CancellationReason: r.CancellationReason,
		Cancelled:          r.Cancelled,
	}
	if r.OriginalDate != nil {
		d := model.DateOf(*r.OriginalDate)
		e.OriginalDate = &d
	}
	return e
}

func dateParam(t *time.Time) any {
	if t == nil {
		return nil
	}
	return model.DateOf(*t)
}

// NextEventID allocates a new event id from the event sequence.
func (r *EventRepo) NextEventID(ctx context.Context) (int64, error) {
	id, err := nextVal(ctx, r.db, "event")
	if err != nil {
		return 0, storageErr("next event id", err)
	}
	return id, nil
}

// CreateEvent inserts e.  The seat counter starts at e.SeatsAvailable.
func (r *EventRepo) CreateEvent(ctx context.Context, e model.Event) error {
	const q = `INSERT INTO events (` + eventColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q,
		e.ID, e.Name, e.Type, model.DateOf(e.Date), e.Venue, e.TotalSeats, e.SeatsAvailable,
		e.Price, e.CancellationReason, dateParam(e.OriginalDate), e.Cancelled)
	if err != nil {
		return storageErr("create event", err)
	}
	return nil
}

// GetEvent returns the event with id or a NotFound error.
func (r *EventRepo) GetEvent(ctx context.Context, id int64) (model.Event, error) {
	var rec eventRecord
	err := r.db.GetContext(ctx, &rec, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	if err != nil {
		return model.Event{}, notFoundOr("get event", "event", id, err)
	}
	return rec.toModel(), nil
}

// ListEvents returns events matching f ordered by date.  Text matches
// name or venue case-insensitively; a Type of "All" matches every type.
func (r *EventRepo) ListEvents(ctx context.Context, f model.EventFilter) ([]model.Event, error) {
	var (
		where []string
		args  []any
	)
	if text := strings.TrimSpace(f.Text); text != "" {
		like := "%" + strings.ToLower(text) + "%"
		where = append(where, `(LOWER(name) LIKE ? OR LOWER(venue) LIKE ?)`)
		args = append(args, like, like)
	}
	if f.Type != "" && f.Type != "All" {
		where = append(where, `event_type = ?`)
		args = append(args, f.Type)
	}
	if f.MinPrice != nil {
		where = append(where, `price >= ?`)
		args = append(args, *f.MinPrice)
	}
	if f.MaxPrice != nil {
		where = append(where, `price <= ?`)
		args = append(args, *f.MaxPrice)
	}
	q := `SELECT ` + eventColumns + ` FROM events`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, ` AND `)
	}
	q += ` ORDER BY event_date, id`

	var recs []eventRecord
	if err := r.db.SelectContext(ctx, &recs, q, args...); err != nil {
		return nil, storageErr("list events", err)
	}
	out := make([]model.Event, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.toModel())
	}
	return out, nil
}

// EventTypes returns the distinct non-empty event types, sorted.
func (r *EventRepo) EventTypes(ctx context.Context) ([]string, error) {
	var types []string
	err := r.db.SelectContext(ctx, &types, `SELECT DISTINCT event_type FROM events WHERE event_type <> '' ORDER BY event_type`)
	if err != nil {
		return nil, storageErr("list event types", err)
	}
	return types, nil
}

// UpdateEvent rewrites the descriptive columns of e.  Capacity and the
// seat counter are left alone.
func (r *EventRepo) UpdateEvent(ctx context.Context, e model.Event) error {
	const q = `UPDATE events SET name = ?, event_type = ?, event_date = ?, venue = ?, price = ?,
		cancellation_reason = ?, original_date = ?, cancelled = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q,
		e.Name, e.Type, model.DateOf(e.Date), e.Venue, e.Price, e.CancellationReason, dateParam(e.OriginalDate),
		e.Cancelled, e.ID)
	if err != nil {
		return storageErr("update event", err)
	}
	// MySQL reports zero affected rows for a no-op update, so only a
	// missing row is an error.
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetEvent(ctx, e.ID); err != nil {
			return err
		}
	}
	return nil
}

// DeleteEvent removes the event and its seat map.
func (r *EventRepo) DeleteEvent(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return storageErr("delete event", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM seats WHERE event_id = ?`, id); err != nil {
		return storageErr("delete event", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return storageErr("delete event", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.NotFound("event", id)
	}
	if err := tx.Commit(); err != nil {
		return storageErr("delete event", err)
	}
	committed = true
	return nil
}
