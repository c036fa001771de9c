// Package pool multiplexes a bounded number of database connections across
// unbounded concurrent callers, with blocking FIFO acquisition, idle
// reaping, live resizing and drain shutdown.
//
// Two strategies are supported. With a shared adapter every slot wraps the
// same handle and the pool is a serialization mechanism over a single-writer
// store. With a factory every slot owns an independent physical connection,
// created lazily up to the ceiling.
package pool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/strata-db/strata/adapter"
	"github.com/strata-db/strata/logger"
)

// Pool is a connection pool. It is safe for concurrent use by multiple
// goroutines. All slot, queue and counter state is guarded by one mutex so
// the capacity and exclusivity invariants are check-then-act atomic.
type Pool struct {
	cfg Config
	log logger.Logger

	middlewares []Middleware
	mwShutdown  sync.Once

	mu       sync.Mutex
	conns    map[uint64]*Conn
	idle     []*Conn // reuse stack, most recently released on top
	waiters  []*waiter
	nextID   uint64
	max      int // current ceiling; cfg.Max is the construction-time value
	pending  int // slot creations in flight, reserved against max
	draining bool
	drained  chan struct{}
	isDone   bool // drained has been closed

	hits         uint64
	misses       uint64
	totalQueries uint64
	totalLatency time.Duration
}

// New builds a pool from cfg and eagerly warms Min connections. Exactly one
// of cfg.SharedAdapter and cfg.Factory must be set. A factory failure during
// warm-up fails construction after closing anything already opened.
func New(cfg Config) (*Pool, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	p := &Pool{
		cfg:     cfg,
		log:     cfg.Logger,
		conns:   make(map[uint64]*Conn),
		max:     cfg.Max,
		drained: make(chan struct{}),
	}

	for i := 0; i < cfg.Min; i++ {
		ad, err := p.connect(context.Background())
		if err != nil {
			p.closeAll()
			return nil, fmt.Errorf("warm connection %d: %w", i+1, err)
		}
		p.mu.Lock()
		c := p.newConnLocked(ad)
		c.inUse = false
		p.idle = append(p.idle, c)
		p.scheduleReapLocked(c)
		p.mu.Unlock()
	}

	return p, nil
}

// connect produces an adapter per the configured strategy.
func (p *Pool) connect(ctx context.Context) (adapter.Adapter, error) {
	if p.cfg.SharedAdapter != nil {
		return p.cfg.SharedAdapter, nil
	}
	return p.cfg.Factory(ctx)
}

// newConnLocked registers a new slot, marked in use. Mutex must be held.
func (p *Pool) newConnLocked(ad adapter.Adapter) *Conn {
	p.nextID++
	now := time.Now()
	c := &Conn{
		id:         p.nextID,
		adapter:    ad,
		createdAt:  now,
		lastUsedAt: now,
		inUse:      true,
	}
	p.conns[c.id] = c
	p.log.Debug("connection %d created (total %d)", c.id, len(p.conns))
	return c
}

// Acquire returns a slot marked active, blocking in FIFO order when the pool
// is saturated. It fails with ErrDraining during shutdown, ErrQueueFull when
// the wait queue is at capacity, ErrAcquireTimeout after AcquireTimeout, or
// ctx.Err() if the context ends first. Factory errors propagate unchanged
// and the attempted slot does not count against the ceiling.
func (p *Pool) Acquire(ctx context.Context) (*Conn, error) {
	p.mu.Lock()

	if p.draining {
		p.mu.Unlock()
		return nil, ErrDraining
	}

	// Reuse an idle slot.
	if n := len(p.idle); n > 0 {
		c := p.idle[n-1]
		p.idle = p.idle[:n-1]
		c.stopReap()
		c.inUse = true
		p.hits++
		p.mu.Unlock()
		return c, nil
	}

	// Room to grow: reserve capacity, then connect outside the lock.
	if len(p.conns)+p.pending < p.max {
		p.pending++
		p.misses++
		p.mu.Unlock()
		return p.grow(ctx)
	}

	if len(p.waiters) >= p.cfg.MaxWaitQueue {
		p.mu.Unlock()
		return nil, ErrQueueFull
	}

	w := newWaiter()
	p.waiters = append(p.waiters, w)
	p.misses++
	p.mu.Unlock()

	return p.wait(ctx, w)
}

func (p *Pool) grow(ctx context.Context) (*Conn, error) {
	ad, err := p.connect(ctx)

	p.mu.Lock()
	p.pending--
	if err != nil {
		p.mu.Unlock()
		return nil, fmt.Errorf("connect: %w", err)
	}
	if p.draining {
		p.mu.Unlock()
		p.closeAdapter(ad)
		return nil, ErrDraining
	}
	c := p.newConnLocked(ad)
	p.mu.Unlock()
	return c, nil
}

func (p *Pool) wait(ctx context.Context, w *waiter) (*Conn, error) {
	timeout := time.NewTimer(p.cfg.AcquireTimeout)
	defer timeout.Stop()

	select {
	case g := <-w.ch:
		return g.conn, g.err
	case <-timeout.C:
		return p.abandon(w, ErrAcquireTimeout)
	case <-ctx.Done():
		return p.abandon(w, ctx.Err())
	}
}

// abandon removes a waiter after its timer fired or its context ended. If a
// grant won the race first, the granted slot is used instead: timeout and
// grant are mutually exclusive terminal states.
func (p *Pool) abandon(w *waiter, cause error) (*Conn, error) {
	p.mu.Lock()
	if w.done {
		p.mu.Unlock()
		g := <-w.ch
		return g.conn, g.err
	}
	w.done = true
	for i, qw := range p.waiters {
		if qw == w {
			p.waiters = append(p.waiters[:i], p.waiters[i+1:]...)
			break
		}
	}
	p.mu.Unlock()
	return nil, cause
}

// Release returns a slot to the pool. The oldest waiter, if any, is served
// directly; otherwise the slot goes idle (or is destroyed if the pool is
// over a shrunk ceiling, or draining). Releasing a slot that is not active
// is a caller bug; it is logged and ignored rather than corrupting state.
func (p *Pool) Release(c *Conn) {
	if c == nil {
		return
	}

	p.mu.Lock()
	if p.conns[c.id] != c || !c.inUse {
		p.mu.Unlock()
		p.log.Warn("release of connection %d ignored: not active", c.id)
		return
	}

	if p.draining {
		delete(p.conns, c.id)
		if len(p.conns) == 0 {
			p.signalDrainedLocked()
		}
		p.mu.Unlock()
		p.closeAdapter(c.adapter)
		return
	}

	c.inUse = false
	c.lastUsedAt = time.Now()

	// Hand off to the longest-waiting caller without going through idle.
	if len(p.waiters) > 0 {
		w := p.waiters[0]
		p.waiters = p.waiters[1:]
		w.done = true
		c.inUse = true
		p.hits++
		w.ch <- grant{conn: c}
		p.mu.Unlock()
		return
	}

	// Over a shrunk ceiling: shrinkage is enforced lazily here.
	if len(p.conns) > p.max {
		delete(p.conns, c.id)
		total := len(p.conns)
		p.mu.Unlock()
		p.closeAdapter(c.adapter)
		p.log.Debug("connection %d destroyed over ceiling (total %d)", c.id, total)
		return
	}

	p.idle = append(p.idle, c)
	p.scheduleReapLocked(c)
	p.mu.Unlock()
}

// scheduleReapLocked arms the slot's idle timer. Mutex must be held.
func (p *Pool) scheduleReapLocked(c *Conn) {
	if p.cfg.IdleTimeout <= 0 {
		return
	}
	c.reapTimer = time.AfterFunc(p.cfg.IdleTimeout, func() { p.reap(c) })
}

// reap retires a slot that sat idle past IdleTimeout, unless the pool is at
// its floor or the slot was reused between the timer firing and the lock
// being taken.
func (p *Pool) reap(c *Conn) {
	p.mu.Lock()
	if p.draining || p.conns[c.id] != c || c.inUse || len(p.conns) <= p.cfg.Min {
		p.mu.Unlock()
		return
	}
	p.removeIdleLocked(c)
	delete(p.conns, c.id)
	total := len(p.conns)
	p.mu.Unlock()

	p.closeAdapter(c.adapter)
	p.log.Debug("connection %d reaped after idle timeout (total %d)", c.id, total)
}

func (p *Pool) removeIdleLocked(c *Conn) {
	c.stopReap()
	for i, ic := range p.idle {
		if ic == c {
			p.idle = append(p.idle[:i], p.idle[i+1:]...)
			return
		}
	}
}

// Query runs a read statement on a pooled connection, through the middleware
// chain, and scans the result set into generic rows. The connection is
// released on every path, including adapter failure.
func (p *Pool) Query(ctx context.Context, sqlStr string, args ...any) (*Result, error) {
	return p.chain(p.execute)(ctx, &Query{SQL: sqlStr, Args: args, Kind: KindQuery})
}

// Exec runs a write statement on a pooled connection through the middleware
// chain.
func (p *Pool) Exec(ctx context.Context, sqlStr string, args ...any) (*Result, error) {
	return p.chain(p.execute)(ctx, &Query{SQL: sqlStr, Args: args, Kind: KindExec})
}

// execute is the terminal step of the middleware chain.
func (p *Pool) execute(ctx context.Context, q *Query) (*Result, error) {
	c, err := p.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer p.Release(c)

	start := time.Now()
	res := &Result{}

	switch q.Kind {
	case KindExec:
		sqlRes, execErr := c.adapter.ExecContext(ctx, q.SQL, q.Args...)
		err = execErr
		if err == nil {
			// Not every driver supports these; their errors are ignored.
			res.RowsAffected, _ = sqlRes.RowsAffected()
			res.LastInsertID, _ = sqlRes.LastInsertId()
		}
	default:
		rows, queryErr := c.adapter.QueryContext(ctx, q.SQL, q.Args...)
		err = queryErr
		if err == nil {
			res.Rows, err = scanRows(rows)
			res.RowsAffected = int64(len(res.Rows))
		}
	}

	duration := time.Since(start)
	res.Duration = duration
	p.log.SQL(q.SQL, duration, q.Args...)
	p.record(c, duration)

	if err != nil {
		return nil, err
	}
	return res, nil
}

// Transaction acquires a connection, runs fn inside a transaction on it and
// releases the connection regardless of the outcome.
func (p *Pool) Transaction(ctx context.Context, fn func(adapter.Tx) error) error {
	c, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer p.Release(c)

	start := time.Now()
	err = c.adapter.Transaction(ctx, fn)
	duration := time.Since(start)
	p.log.SQL("TRANSACTION", duration)
	p.record(c, duration)
	return err
}

func (p *Pool) record(c *Conn, d time.Duration) {
	p.mu.Lock()
	c.queries++
	p.totalQueries++
	p.totalLatency += d
	p.mu.Unlock()
}

// Resize changes the connection ceiling. Shrinking destroys surplus idle
// slots immediately and reclaims over-limit active slots lazily as they are
// released. Growing creates slots opportunistically for queued waiters, in
// FIFO order, without passing them through the idle state.
func (p *Pool) Resize(newMax int) error {
	if newMax < 1 {
		return ErrInvalidResize
	}

	p.mu.Lock()
	old := p.max
	p.max = newMax

	if newMax < old {
		var victims []*Conn
		for len(p.conns) > newMax && len(p.idle) > 0 {
			c := p.idle[len(p.idle)-1]
			p.idle = p.idle[:len(p.idle)-1]
			c.stopReap()
			delete(p.conns, c.id)
			victims = append(victims, c)
		}
		total := len(p.conns)
		p.mu.Unlock()
		for _, c := range victims {
			p.closeAdapter(c.adapter)
		}
		if len(victims) > 0 {
			p.log.Debug("resize %d -> %d destroyed %d idle connections (total %d)", old, newMax, len(victims), total)
		}
		return nil
	}

	room := newMax - len(p.conns) - p.pending
	n := len(p.waiters)
	if n > room {
		n = room
	}
	for i := 0; i < n; i++ {
		p.pending++
		go p.growForWaiter()
	}
	p.mu.Unlock()
	return nil
}

// growForWaiter backs resize growth: it connects a fresh slot and hands it
// to the oldest waiter still queued. If every waiter is gone by the time the
// connection is ready, the slot is parked idle instead (or closed, if room
// ran out again).
func (p *Pool) growForWaiter() {
	ad, err := p.connect(context.Background())

	p.mu.Lock()
	p.pending--
	if err != nil {
		p.mu.Unlock()
		p.log.Warn("connect for waiting caller failed: %v", err)
		return
	}
	if p.draining {
		p.mu.Unlock()
		p.closeAdapter(ad)
		return
	}

	if len(p.waiters) > 0 {
		w := p.waiters[0]
		p.waiters = p.waiters[1:]
		w.done = true
		c := p.newConnLocked(ad)
		w.ch <- grant{conn: c}
		p.mu.Unlock()
		return
	}

	if len(p.conns)+p.pending < p.max {
		c := p.newConnLocked(ad)
		c.inUse = false
		p.idle = append(p.idle, c)
		p.scheduleReapLocked(c)
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()
	p.closeAdapter(ad)
}

// Drain shuts the pool down: new acquisitions fail, queued waiters are
// rejected, idle slots are closed, and active slots are awaited until
// DrainTimeout, after which they are force-closed with a warning rather
// than hanging forever. Afterwards Stats reports zero connections. Calling
// Drain again waits for the same shutdown.
func (p *Pool) Drain(ctx context.Context) error {
	p.mu.Lock()
	if !p.draining {
		p.draining = true

		for _, w := range p.waiters {
			if !w.done {
				w.done = true
				w.ch <- grant{err: ErrDraining}
			}
		}
		p.waiters = nil

		var victims []*Conn
		for _, c := range p.idle {
			c.stopReap()
			delete(p.conns, c.id)
			victims = append(victims, c)
		}
		p.idle = nil

		if len(p.conns) == 0 {
			p.signalDrainedLocked()
		}
		p.mu.Unlock()

		for _, c := range victims {
			p.closeAdapter(c.adapter)
		}
	} else {
		p.mu.Unlock()
	}

	timeout := time.NewTimer(p.cfg.DrainTimeout)
	defer timeout.Stop()

	select {
	case <-p.drained:
	case <-ctx.Done():
		return ctx.Err()
	case <-timeout.C:
		p.forceClose()
	}

	p.mwShutdown.Do(p.shutdownMiddlewares)
	return nil
}

// forceClose reclaims slots whose holders never released them within the
// drain timeout.
func (p *Pool) forceClose() {
	p.mu.Lock()
	var victims []*Conn
	for id, c := range p.conns {
		victims = append(victims, c)
		delete(p.conns, id)
	}
	p.idle = nil
	p.signalDrainedLocked()
	p.mu.Unlock()

	if len(victims) > 0 {
		p.log.Warn("drain timeout: force-closing %d active connections", len(victims))
	}
	for _, c := range victims {
		p.closeAdapter(c.adapter)
	}
}

func (p *Pool) signalDrainedLocked() {
	if !p.isDone {
		p.isDone = true
		close(p.drained)
	}
}

// Close drains the pool with a background context.
func (p *Pool) Close() error {
	return p.Drain(context.Background())
}

// closeAdapter tears a connection down. In shared mode the handle belongs to
// its owner and is never closed here. Close errors are logged, never
// returned: teardown must not cascade.
func (p *Pool) closeAdapter(ad adapter.Adapter) {
	if p.cfg.SharedAdapter != nil {
		return
	}
	if err := ad.Close(); err != nil {
		p.log.Warn("closing connection: %v", err)
	}
}

// closeAll tears down everything opened so far; used when warm-up fails
// partway.
func (p *Pool) closeAll() {
	p.mu.Lock()
	var victims []*Conn
	for id, c := range p.conns {
		c.stopReap()
		victims = append(victims, c)
		delete(p.conns, id)
	}
	p.idle = nil
	p.mu.Unlock()
	for _, c := range victims {
		p.closeAdapter(c.adapter)
	}
}

// Stats returns a read-only snapshot of pool state.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	total := len(p.conns)
	idle := len(p.idle)
	avg := 0.0
	if p.totalQueries > 0 {
		avg = float64(p.totalLatency) / float64(time.Millisecond) / float64(p.totalQueries)
	}
	return Stats{
		Active:       total - idle,
		Idle:         idle,
		Waiting:      len(p.waiters),
		Total:        total,
		MaxSize:      p.max,
		TotalQueries: p.totalQueries,
		AvgLatencyMs: avg,
		PoolHits:     p.hits,
		PoolMisses:   p.misses,
	}
}
