package pool

// Stats is a point-in-time snapshot of pool state and cumulative counters.
type Stats struct {
	// Active is the number of slots currently held by callers.
	Active int
	// Idle is the number of slots waiting for reuse.
	Idle int
	// Waiting is the number of callers blocked in the wait queue.
	Waiting int
	// Total is Active + Idle.
	Total int
	// MaxSize is the current ceiling, as set at construction or by Resize.
	MaxSize int

	// TotalQueries counts statements served through Query, Exec and
	// Transaction since construction.
	TotalQueries uint64
	// AvgLatencyMs is the running mean statement latency, zero before the
	// first statement.
	AvgLatencyMs float64
	// PoolHits counts acquisitions satisfied by an already-idle slot.
	PoolHits uint64
	// PoolMisses counts acquisitions that created a slot or queued.
	PoolMisses uint64
}
