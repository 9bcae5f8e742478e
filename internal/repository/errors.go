// Package repository implements the booking engine stores on top of
// sqlx.  The same queries run against MySQL in production and SQLite in
// development and tests; the few dialect differences live in dialect.go.
//
// Every mutation that guards an invariant is a single conditional UPDATE
// (or a short transaction of them) whose RowsAffected decides the
// outcome, so correctness holds across processes sharing the database.
package repository

import (
	"database/sql"
	"errors"

	"github.com/iliyamo/event-booking-engine/internal/model"
)

// errRejected aborts a transaction whose guard failed.  It never leaves
// the package: callers turn it into a false result.
var errRejected = errors.New("rejected")

// storageErr wraps a database failure as a model storage error.  Errors
// that already carry a model kind pass through unchanged.
func storageErr(op string, err error) error {
	return model.Storage(op, err)
}

// notFoundOr maps sql.ErrNoRows to a NotFound error for entity/id.
func notFoundOr(op, entity string, id any, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return model.NotFound(entity, id)
	}
	return storageErr(op, err)
}
