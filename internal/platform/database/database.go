// Package database opens the SQL connection pool for the configured driver
// and applies schemas.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	// Register the pgx and modernc database/sql drivers.
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"trainingcenter/pkg/platform/tx"
)

// Driver names registered with database/sql.
const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"
)

// Options tunes the connection pool.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Open connects to dsn with driver and verifies the connection.
func Open(ctx context.Context, driver, dsn string, opts Options) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// SQLite serializes writers; a single connection also keeps
		// ":memory:" databases alive for the life of the pool.
		db.SetMaxOpenConns(1)
	} else if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return db, nil
}

// WithinTx runs fn with a transaction carried in its context and commits when
// fn returns nil.
func WithinTx(ctx context.Context, db *sql.DB, fn func(ctx context.Context) error) error {
	t, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx.WithTx(ctx, t)); err != nil {
		_ = t.Rollback()
		return err
	}
	if err := t.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Migrate applies statements in a single transaction. Statements must be
// idempotent.
func Migrate(ctx context.Context, db *sql.DB, statements ...string) error {
	return WithinTx(ctx, db, func(ctx context.Context) error {
		t, _ := tx.From(ctx)
		for _, stmt := range statements {
			if _, err := t.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("apply schema: %w", err)
			}
		}
		return nil
	})
}

// Dialect selects SQL syntax for the backing database.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// DialectFor maps a configured store driver name to a dialect.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "postgres", DriverPostgres:
		return DialectPostgres, nil
	case DriverSQLite:
		return DialectSQLite, nil
	default:
		return "", fmt.Errorf("unsupported sql dialect %q", driver)
	}
}

// Driver returns the database/sql driver name for d.
func (d Dialect) Driver() string {
	if d == DialectSQLite {
		return DriverSQLite
	}
	return DriverPostgres
}

// Timestamp returns the column type for instants.
func (d Dialect) Timestamp() string {
	if d == DialectSQLite {
		return "TIMESTAMP"
	}
	return "TIMESTAMPTZ"
}

// Rebind rewrites $N placeholders to SQLite's ?N form.
func (d Dialect) Rebind(query string) string {
	if d == DialectSQLite {
		return strings.ReplaceAll(query, "$", "?")
	}
	return query
}
