package adapter

import (
	"context"

	_ "github.com/lib/pq"
)

// NewPostgresFactory returns a factory that dials one dedicated PostgreSQL
// connection per call. Intended as a pool's per-slot constructor. The
// connection is pinged before it is returned, so a dead server surfaces as a
// factory error rather than a broken slot.
func NewPostgresFactory(dsn string) Factory {
	return func(ctx context.Context) (Adapter, error) {
		return open(ctx, "postgres", dsn)
	}
}
