package repository

import (
	"context"
	"errors"
	"sort"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/event-booking-engine/internal/database"
	"github.com/iliyamo/event-booking-engine/internal/model"
)

// seatInsertBatch bounds the rows of one multi-row INSERT when a seat map
// is generated.
const seatInsertBatch = 100

// InventoryRepo manages the seats table and the seats_available counter
// of the events table.  Seat flips and counter changes for one request
// share a transaction.
type InventoryRepo struct {
	db      *sqlx.DB
	dialect dialect
	layout  model.Layout
}

// NewInventoryRepo returns an InventoryRepo generating seat maps with
// layout.  A zero layout means model.DefaultLayout.
func NewInventoryRepo(db *sqlx.DB, layout model.Layout) *InventoryRepo {
	if len(layout.Rows) == 0 || layout.SeatsPerRow <= 0 {
		layout = model.DefaultLayout()
	}
	return &InventoryRepo{db: db, dialect: dialectOf(db), layout: layout}
}

// seatRecord mirrors the seats table.
type seatRecord struct {
	EventID int64  `db:"event_id"`
	SeatID  string `db:"seat_id"`
	Row     string `db:"row_label"`
	Number  int    `db:"seat_number"`
	Status  string `db:"status"`
	Holder  string `db:"holder"`
}

// ensureSeatsTx generates the seat map of eventID on first use.  Two
// racing generators are harmless: the insert skips existing keys.
func (r *InventoryRepo) ensureSeatsTx(ctx context.Context, tx *sqlx.Tx, eventID int64) error {
	var n int
	if err := tx.GetContext(ctx, &n, `SELECT COUNT(*) FROM seats WHERE event_id = ?`, eventID); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if err := tx.GetContext(ctx, &n, `SELECT COUNT(*) FROM events WHERE id = ?`, eventID); err != nil {
		return err
	}
	if n == 0 {
		return model.NotFound("event", eventID)
	}
	seats := r.layout.Seats()
	for start := 0; start < len(seats); start += seatInsertBatch {
		end := min(start+seatInsertBatch, len(seats))
		query := r.dialect.insertIgnore() + ` seats (event_id, seat_id, row_label, seat_number, status, holder) VALUES `
		args := make([]any, 0, (end-start)*6)
		for i, s := range seats[start:end] {
			if i > 0 {
				query += ","
			}
			query += "(?, ?, ?, ?, ?, ?)"
			args = append(args, eventID, s.ID, s.Row, s.Number, model.SeatAvailable, "")
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}
	}
	return nil
}

// Allocate books every seat in seatIDs for holder or none of them.  A
// seat that is missing or already BOOKED is reported in Unavailable.
func (r *InventoryRepo) Allocate(ctx context.Context, eventID int64, holder string, seatIDs []string) (model.Allocation, error) {
	if len(seatIDs) == 0 {
		return model.Allocation{}, model.Validation("no seats requested")
	}
	seen := make(map[string]bool, len(seatIDs))
	for _, id := range seatIDs {
		if seen[id] {
			return model.Allocation{}, model.Validation("seat %s requested twice", id)
		}
		seen[id] = true
	}

	var unavailable []string
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := r.ensureSeatsTx(ctx, tx, eventID); err != nil {
			return err
		}
		q, args, err := sqlx.In(`SELECT seat_id, status FROM seats WHERE event_id = ? AND seat_id IN (?)`+r.dialect.forUpdate(), eventID, seatIDs)
		if err != nil {
			return err
		}
		var rows []struct {
			SeatID string `db:"seat_id"`
			Status string `db:"status"`
		}
		if err := tx.SelectContext(ctx, &rows, tx.Rebind(q), args...); err != nil {
			return err
		}
		free := make(map[string]bool, len(rows))
		for _, row := range rows {
			if row.Status == model.SeatAvailable {
				free[row.SeatID] = true
			}
		}
		for _, id := range seatIDs {
			if !free[id] {
				unavailable = append(unavailable, id)
			}
		}
		if len(unavailable) > 0 {
			return errRejected
		}

		q, args, err = sqlx.In(`UPDATE seats SET status = ?, holder = ? WHERE event_id = ? AND seat_id IN (?) AND status = ?`,
			model.SeatBooked, holder, eventID, seatIDs, model.SeatAvailable)
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, tx.Rebind(q), args...)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if int(n) != len(seatIDs) {
			unavailable = append([]string(nil), seatIDs...)
			return errRejected
		}
		return decrementTx(ctx, tx, eventID, len(seatIDs))
	})
	switch {
	case errors.Is(err, errRejected):
		return model.Allocation{OK: false, Unavailable: unavailable}, nil
	case err != nil:
		return model.Allocation{}, storageErr("allocate seats", err)
	}
	return model.Allocation{OK: true}, nil
}

// decrementTx takes n seats off the counter iff that many are left.
func decrementTx(ctx context.Context, tx *sqlx.Tx, eventID int64, n int) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE events SET seats_available = seats_available - ? WHERE id = ? AND seats_available >= ?`, n, eventID, n)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return errRejected
	}
	return nil
}

// AllocateCount takes n seats off the counter without assigning seats.
func (r *InventoryRepo) AllocateCount(ctx context.Context, eventID int64, n int) (model.Allocation, error) {
	if n <= 0 {
		return model.Allocation{}, model.Validation("seat count must be positive")
	}
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		return decrementTx(ctx, tx, eventID, n)
	})
	if errors.Is(err, errRejected) {
		var exists int
		if err := r.db.GetContext(ctx, &exists, `SELECT COUNT(*) FROM events WHERE id = ?`, eventID); err != nil {
			return model.Allocation{}, storageErr("allocate seats", err)
		}
		if exists == 0 {
			return model.Allocation{}, model.NotFound("event", eventID)
		}
		return model.Allocation{OK: false}, nil
	}
	if err != nil {
		return model.Allocation{}, storageErr("allocate seats", err)
	}
	return model.Allocation{OK: true}, nil
}

// incrementTx returns n seats to the counter, never above capacity.
func incrementTx(ctx context.Context, tx *sqlx.Tx, eventID int64, n int) error {
	if n <= 0 {
		return nil
	}
	res, err := tx.ExecContext(ctx, `UPDATE events SET seats_available =
		CASE WHEN seats_available + ? > total_seats THEN total_seats ELSE seats_available + ? END
		WHERE id = ?`, n, n, eventID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil || affected > 0 {
		return err
	}
	// A counter already at capacity is a no-op update on MySQL.
	var exists int
	if err := tx.GetContext(ctx, &exists, `SELECT COUNT(*) FROM events WHERE id = ?`, eventID); err != nil {
		return err
	}
	if exists == 0 {
		return model.NotFound("event", eventID)
	}
	return nil
}

// Release frees the listed seats.  Only seats that were BOOKED are
// added back to the counter.
func (r *InventoryRepo) Release(ctx context.Context, eventID int64, seatIDs []string) error {
	if len(seatIDs) == 0 {
		return nil
	}
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		q, args, err := sqlx.In(`UPDATE seats SET status = ?, holder = '' WHERE event_id = ? AND seat_id IN (?) AND status = ?`,
			model.SeatAvailable, eventID, seatIDs, model.SeatBooked)
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, tx.Rebind(q), args...)
		if err != nil {
			return err
		}
		freed, err := res.RowsAffected()
		if err != nil {
			return err
		}
		return incrementTx(ctx, tx, eventID, int(freed))
	})
	if err != nil {
		return storageErr("release seats", err)
	}
	return nil
}

// ReleaseCount returns n seats to the counter.
func (r *InventoryRepo) ReleaseCount(ctx context.Context, eventID int64, n int) error {
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		return incrementTx(ctx, tx, eventID, n)
	})
	if err != nil {
		return storageErr("release seats", err)
	}
	return nil
}

// SeatMap returns the seat map of eventID, generating it on first use.
func (r *InventoryRepo) SeatMap(ctx context.Context, eventID int64) (model.SeatMap, error) {
	var recs []seatRecord
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := r.ensureSeatsTx(ctx, tx, eventID); err != nil {
			return err
		}
		return tx.SelectContext(ctx, &recs,
			`SELECT event_id, seat_id, row_label, seat_number, status, holder FROM seats WHERE event_id = ?`, eventID)
	})
	if err != nil {
		return model.SeatMap{}, storageErr("load seat map", err)
	}

	rowIndex := make(map[string]int, len(r.layout.Rows))
	for i, row := range r.layout.Rows {
		rowIndex[row] = i
	}
	sort.Slice(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if a.Row != b.Row {
			ai, aok := rowIndex[a.Row]
			bi, bok := rowIndex[b.Row]
			if aok && bok {
				return ai < bi
			}
			if aok != bok {
				return aok
			}
			return a.Row < b.Row
		}
		return a.Number < b.Number
	})

	sm := model.SeatMap{EventID: eventID, Seats: make([]model.Seat, 0, len(recs))}
	for _, rec := range recs {
		if len(sm.Rows) == 0 || sm.Rows[len(sm.Rows)-1] != rec.Row {
			sm.Rows = append(sm.Rows, rec.Row)
		}
		sm.SeatsPerRow = max(sm.SeatsPerRow, rec.Number)
		sm.Seats = append(sm.Seats, model.Seat{
			ID: rec.SeatID, Row: rec.Row, Number: rec.Number, Status: rec.Status, Holder: rec.Holder,
		})
	}
	return sm, nil
}
