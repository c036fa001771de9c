package pool

// grant is the terminal outcome of a queued acquire: a connection or an
// error, never both.
type grant struct {
	conn *Conn
	err  error
}

// waiter is one blocked Acquire call. Exactly one of {grant, timeout,
// context cancellation, drain} resolves it: resolvers hold the pool mutex,
// flip done, and the losers see done set and back off. The channel is
// buffered so a resolver never blocks on a caller that is already leaving.
type waiter struct {
	ch   chan grant
	done bool // guarded by the pool mutex
}

func newWaiter() *waiter {
	return &waiter{ch: make(chan grant, 1)}
}
