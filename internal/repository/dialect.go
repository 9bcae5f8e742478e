package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// dialect covers the statements MySQL and SQLite spell differently.
type dialect struct {
	mysql bool
}

func dialectOf(db *sqlx.DB) dialect { return dialect{mysql: db.DriverName() == "mysql"} }

// insertIgnore starts an INSERT that skips rows hitting a unique key.
func (d dialect) insertIgnore() string {
	if d.mysql {
		return "INSERT IGNORE INTO"
	}
	return "INSERT OR IGNORE INTO"
}

// forUpdate is appended to SELECTs inside transactions.  SQLite locks the
// whole database for writers already.
func (d dialect) forUpdate() string {
	if d.mysql {
		return " FOR UPDATE"
	}
	return ""
}

// nextVal increments the named sequence and returns the new value.  The
// update and the read share a transaction, so concurrent callers never
// see the same value.
func nextVal(ctx context.Context, db *sqlx.DB, name string) (int64, error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE sequences SET current_value = current_value + 1 WHERE name = ?`, name)
	if err != nil {
		return 0, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return 0, err
	} else if n != 1 {
		return 0, fmt.Errorf("sequence %q is missing", name)
	}
	var v int64
	if err := tx.GetContext(ctx, &v, `SELECT current_value FROM sequences WHERE name = ?`, name); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return v, nil
}
