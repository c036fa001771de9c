package pool

import (
	"fmt"
	"time"

	"github.com/strata-db/strata/adapter"
	"github.com/strata-db/strata/logger"
)

// Default sizing applied by New for zero-valued fields.
const (
	DefaultMax            = 10
	DefaultIdleTimeout    = 30 * time.Second
	DefaultAcquireTimeout = 10 * time.Second
	DefaultMaxWaitQueue   = 100
	DefaultDrainTimeout   = 5 * time.Second
)

// Config defines the pool's sizing and exactly one connection strategy.
// Max is the only field that may change after construction, via Resize.
type Config struct {
	// Min is the floor of pre-warmed connections. The idle reaper never
	// shrinks the pool below it.
	Min int
	// Max is the hard ceiling on total connections, idle plus active.
	Max int
	// IdleTimeout retires an idle connection beyond Min after this long.
	IdleTimeout time.Duration
	// AcquireTimeout bounds how long a caller waits in the queue.
	AcquireTimeout time.Duration
	// MaxWaitQueue caps queued acquire requests; beyond it Acquire fails
	// immediately instead of queuing.
	MaxWaitQueue int
	// DrainTimeout bounds how long Drain waits for active connections to
	// be released before force-closing them.
	DrainTimeout time.Duration

	// SharedAdapter makes every slot wrap this one handle. For
	// single-writer embedded stores: the pool serializes logical holders,
	// it does not add physical concurrency, and it never closes the shared
	// handle (that stays with its owner).
	SharedAdapter adapter.Adapter
	// Factory produces an independent adapter per slot, for networked
	// backends. Exactly one of SharedAdapter and Factory must be set.
	Factory adapter.Factory

	// Logger receives lifecycle and statement logs. Defaults to the
	// standard logger.
	Logger logger.Logger
}

func (c *Config) withDefaults() Config {
	cfg := *c
	if cfg.Max == 0 {
		cfg.Max = DefaultMax
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.AcquireTimeout == 0 {
		cfg.AcquireTimeout = DefaultAcquireTimeout
	}
	if cfg.MaxWaitQueue == 0 {
		cfg.MaxWaitQueue = DefaultMaxWaitQueue
	}
	if cfg.DrainTimeout == 0 {
		cfg.DrainTimeout = DefaultDrainTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewStdLogger()
	}
	return cfg
}

func (c *Config) validate() error {
	if c.Max < 1 {
		return fmt.Errorf("%w: max must be at least 1, got %d", ErrInvalidConfig, c.Max)
	}
	if c.Min < 0 {
		return fmt.Errorf("%w: min must not be negative, got %d", ErrInvalidConfig, c.Min)
	}
	if c.Min > c.Max {
		return fmt.Errorf("%w: min %d exceeds max %d", ErrInvalidConfig, c.Min, c.Max)
	}
	if c.MaxWaitQueue < 0 {
		return fmt.Errorf("%w: max wait queue must not be negative, got %d", ErrInvalidConfig, c.MaxWaitQueue)
	}
	if c.SharedAdapter == nil && c.Factory == nil {
		return fmt.Errorf("%w: a shared adapter or a factory is required", ErrInvalidConfig)
	}
	if c.SharedAdapter != nil && c.Factory != nil {
		return fmt.Errorf("%w: shared adapter and factory are mutually exclusive", ErrInvalidConfig)
	}
	return nil
}
