package pool

import (
	"errors"
)

var (
	// ErrAcquireTimeout is returned when a caller waited longer than the
	// configured acquire timeout for a connection. Recoverable; callers may
	// retry or surface backpressure upward.
	ErrAcquireTimeout = errors.New("acquire timed out")
	// ErrQueueFull is returned when the wait queue is already at capacity.
	// Signals sustained overload rather than a transient spike.
	ErrQueueFull = errors.New("wait queue full")
	// ErrDraining is returned when the pool is shutting down and no new
	// acquisitions are admitted.
	ErrDraining = errors.New("pool is draining")
	// ErrInvalidResize is returned when Resize is called with a ceiling
	// below one.
	ErrInvalidResize = errors.New("pool max must be at least 1")
	// ErrInvalidConfig is returned by New when the configuration is
	// malformed (bad sizes, or not exactly one connection strategy).
	ErrInvalidConfig = errors.New("invalid pool config")
)
