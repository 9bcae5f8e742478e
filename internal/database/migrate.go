package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate applies every pending migration.  The SQL is portable between
// MySQL and SQLite; only the goose dialect differs.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	var dialect goose.Dialect
	switch db.DriverName() {
	case "mysql":
		dialect = goose.DialectMySQL
	case "sqlite3":
		dialect = goose.DialectSQLite3
	default:
		return fmt.Errorf("migrate: unsupported driver %q", db.DriverName())
	}
	sub, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return err
	}
	p, err := goose.NewProvider(dialect, db.DB, sub)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	results, err := p.Up(ctx)
	if err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	for _, r := range results {
		log.Printf("database: applied migration %s", r.Source.Path)
	}
	return nil
}
