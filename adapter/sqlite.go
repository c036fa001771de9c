package adapter

import (
	"context"

	_ "github.com/mattn/go-sqlite3"
)

// NewSQLite opens a SQLite database as a single shared handle. SQLite allows
// only one writer, so pools should pass the returned adapter as their shared
// adapter: every slot wraps this one handle and the pool provides
// serialization, not extra physical concurrency.
func NewSQLite(ctx context.Context, path string) (*SQL, error) {
	return open(ctx, "sqlite3", path)
}
