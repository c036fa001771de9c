package adapter

import (
	"context"
	"database/sql"
)

// Adapter is the capability surface the pool requires from a database
// connection. The pool never inspects what is behind it: a shared embedded
// handle and a dedicated network connection both satisfy it.
type Adapter interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	Transaction(ctx context.Context, fn func(Tx) error) error
	Close() error
}

// Tx is the transaction-scoped view handed to a Transaction callback.
// *sql.Tx satisfies it directly.
type Tx interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Factory produces one adapter per pool slot. Used for networked backends
// where each slot owns an independent physical connection.
type Factory func(ctx context.Context) (Adapter, error)
