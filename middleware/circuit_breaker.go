package middleware

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/strata-db/strata/pool"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

// CircuitBreakerMiddleware fails statements fast once the database has
// failed Threshold times in a row, and probes with a single statement after
// ResetTimeout.
type CircuitBreakerMiddleware struct {
	Threshold    int           // Number of consecutive failures before opening
	ResetTimeout time.Duration // Time to wait before half-open

	mu             sync.Mutex
	state          State
	failures       int
	lastFailure    time.Time
	halfOpenProbed bool
}

func NewCircuitBreaker(threshold int, resetTimeout time.Duration) *CircuitBreakerMiddleware {
	return &CircuitBreakerMiddleware{
		Threshold:    threshold,
		ResetTimeout: resetTimeout,
		state:        StateClosed,
	}
}

func (m *CircuitBreakerMiddleware) Name() string {
	return "CircuitBreaker"
}

func (m *CircuitBreakerMiddleware) Init(p *pool.Pool) error {
	return nil
}

func (m *CircuitBreakerMiddleware) Shutdown() error {
	return nil
}

// CurrentState returns the breaker's state, for observability.
func (m *CircuitBreakerMiddleware) CurrentState() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *CircuitBreakerMiddleware) Process(ctx context.Context, q *pool.Query, next pool.QueryFunc) (*pool.Result, error) {
	m.mu.Lock()
	switch m.state {
	case StateOpen:
		if time.Since(m.lastFailure) > m.ResetTimeout {
			m.state = StateHalfOpen
			m.halfOpenProbed = false
		} else {
			m.mu.Unlock()
			return nil, ErrCircuitOpen
		}
	case StateHalfOpen:
		// Allow one probe, reject the rest until its outcome is known.
		if m.halfOpenProbed {
			m.mu.Unlock()
			return nil, ErrCircuitOpen
		}
	}
	if m.state == StateHalfOpen {
		m.halfOpenProbed = true
	}
	m.mu.Unlock()

	res, err := next(ctx, q)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.recordFailure()
	} else {
		m.recordSuccess()
	}
	return res, err
}

func (m *CircuitBreakerMiddleware) recordFailure() {
	m.failures++
	m.lastFailure = time.Now()

	switch m.state {
	case StateClosed:
		if m.failures >= m.Threshold {
			m.state = StateOpen
		}
	case StateHalfOpen:
		m.state = StateOpen
		m.halfOpenProbed = false
	}
}

func (m *CircuitBreakerMiddleware) recordSuccess() {
	switch m.state {
	case StateHalfOpen:
		m.state = StateClosed
		m.failures = 0
		m.halfOpenProbed = false
	case StateClosed:
		// Track consecutive failures only.
		m.failures = 0
	}
}
