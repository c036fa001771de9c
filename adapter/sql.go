package adapter

import (
	"context"
	"database/sql"
	"fmt"
)

// SQL is an Adapter over a database/sql handle. Constructors in this package
// pin the handle to a single underlying connection, so one SQL value is one
// physical connection (or, for embedded stores, the single writer handle).
type SQL struct {
	db *sql.DB
}

// NewSQL wraps an already-opened *sql.DB. The caller keeps ownership of the
// handle's configuration.
func NewSQL(db *sql.DB) *SQL {
	return &SQL{db: db}
}

func open(ctx context.Context, driver, dsn string) (*SQL, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return &SQL{db: db}, nil
}

// DB exposes the underlying handle for callers that need driver-specific
// features.
func (a *SQL) DB() *sql.DB {
	return a.db
}

func (a *SQL) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return a.db.QueryContext(ctx, query, args...)
}

func (a *SQL) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return a.db.ExecContext(ctx, query, args...)
}

// Transaction runs fn inside a transaction. A nil return commits; an error
// or panic rolls back, and panics are re-raised after the rollback.
func (a *SQL) Transaction(ctx context.Context, fn func(Tx) error) error {
	sqlTx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
	}()

	if err := fn(sqlTx); err != nil {
		_ = sqlTx.Rollback()
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("transaction commit failed: %w", err)
	}
	return nil
}

func (a *SQL) Close() error {
	return a.db.Close()
}
