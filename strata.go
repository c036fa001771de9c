// Package strata provides pooled database access for backend services: a
// bounded connection pool with FIFO acquisition, idle reaping, live resizing
// and drain shutdown, over pluggable connection adapters.
package strata

import (
	"github.com/strata-db/strata/adapter"
	"github.com/strata-db/strata/pool"
)

// Re-export pool types and functions
type Pool = pool.Pool
type Config = pool.Config
type Conn = pool.Conn
type Stats = pool.Stats
type Result = pool.Result
type Query = pool.Query
type Middleware = pool.Middleware

var New = pool.New

var (
	ErrAcquireTimeout = pool.ErrAcquireTimeout
	ErrQueueFull      = pool.ErrQueueFull
	ErrDraining       = pool.ErrDraining
	ErrInvalidResize  = pool.ErrInvalidResize
	ErrInvalidConfig  = pool.ErrInvalidConfig
)

// Re-export adapter types and constructors
type Adapter = adapter.Adapter
type Tx = adapter.Tx
type Factory = adapter.Factory

var (
	NewSQLite          = adapter.NewSQLite
	NewPostgresFactory = adapter.NewPostgresFactory
	NewMySQLFactory    = adapter.NewMySQLFactory
)
