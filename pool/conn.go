package pool

import (
	"time"

	"github.com/strata-db/strata/adapter"
)

// Conn is one pool slot: an adapter plus bookkeeping. Slots are owned by the
// pool; callers hold one between Acquire and Release and must not retain it
// afterwards. All mutable fields are guarded by the pool mutex.
type Conn struct {
	id      uint64
	adapter adapter.Adapter

	createdAt  time.Time
	lastUsedAt time.Time
	queries    uint64

	inUse bool

	// reapTimer retires the slot after IdleTimeout. It lives on the slot so
	// the state transition that invalidates it (reuse or destruction) can
	// cancel it in the same critical section.
	reapTimer *time.Timer
}

// ID is the slot's identity, unique for the pool's lifetime.
func (c *Conn) ID() uint64 {
	return c.id
}

// Adapter exposes the underlying connection for direct use while the slot
// is held.
func (c *Conn) Adapter() adapter.Adapter {
	return c.adapter
}

// CreatedAt reports when the slot was created.
func (c *Conn) CreatedAt() time.Time {
	return c.createdAt
}

// LastUsedAt reports when the slot was last released.
func (c *Conn) LastUsedAt() time.Time {
	return c.lastUsedAt
}

// Queries reports how many statements ran on this slot.
func (c *Conn) Queries() uint64 {
	return c.queries
}

// stopReap cancels a pending idle-reap timer. Pool mutex must be held.
func (c *Conn) stopReap() {
	if c.reapTimer != nil {
		c.reapTimer.Stop()
		c.reapTimer = nil
	}
}
