package adapter

import (
	"context"

	_ "github.com/go-sql-driver/mysql"
)

// NewMySQLFactory returns a factory that dials one dedicated MySQL
// connection per call. Intended as a pool's per-slot constructor.
func NewMySQLFactory(dsn string) Factory {
	return func(ctx context.Context) (Adapter, error) {
		return open(ctx, "mysql", dsn)
	}
}
