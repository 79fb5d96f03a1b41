// Package tx carries a SQL transaction through a context so that stores can
// join a unit of work opened by their caller.
package tx

import (
	"context"
	"database/sql"
)

// Conn is the query surface shared by *sql.DB and *sql.Tx.
type Conn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txKey struct{}

// WithTx returns ctx carrying t. A nil t leaves ctx unchanged.
func WithTx(ctx context.Context, t *sql.Tx) context.Context {
	if t == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey{}, t)
}

// From returns the transaction carried by ctx.
func From(ctx context.Context) (*sql.Tx, bool) {
	t, ok := ctx.Value(txKey{}).(*sql.Tx)
	return t, ok
}

// Or returns the transaction carried by ctx, or db when there is none.
func Or(ctx context.Context, db Conn) Conn {
	if t, ok := From(ctx); ok {
		return t
	}
	return db
}
