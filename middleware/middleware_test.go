package middleware

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/strata-db/strata/pool"
)

func TestSlowLogThreshold(t *testing.T) {
	buf := &bytes.Buffer{}
	m := NewSlowLog(10*time.Millisecond, "")
	m.SetOutput(buf)
	if err := m.Init(nil); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer m.Shutdown()

	fast := func(ctx context.Context, q *pool.Query) (*pool.Result, error) {
		return &pool.Result{}, nil
	}
	slow := func(ctx context.Context, q *pool.Query) (*pool.Result, error) {
		time.Sleep(20 * time.Millisecond)
		return &pool.Result{RowsAffected: 3}, nil
	}

	q := &pool.Query{SQL: "SELECT 1", Kind: pool.KindQuery}
	if _, err := m.Process(context.Background(), q, fast); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("fast statement should not be logged: %s", buf.String())
	}

	q = &pool.Query{SQL: "SELECT pg_sleep(1)", Kind: pool.KindQuery}
	if _, err := m.Process(context.Background(), q, slow); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "SELECT pg_sleep(1)") || !strings.Contains(out, "rows=3") {
		t.Errorf("unexpected slow log output: %s", out)
	}
}

func TestCircuitBreakerOpensAndRecovers(t *testing.T) {
	m := NewCircuitBreaker(2, 30*time.Millisecond)

	failing := func(ctx context.Context, q *pool.Query) (*pool.Result, error) {
		return nil, errors.New("db down")
	}
	ok := func(ctx context.Context, q *pool.Query) (*pool.Result, error) {
		return &pool.Result{}, nil
	}
	q := &pool.Query{SQL: "SELECT 1", Kind: pool.KindQuery}

	for i := 0; i < 2; i++ {
		if _, err := m.Process(context.Background(), q, failing); err == nil {
			t.Fatal("expected failure")
		}
	}
	if m.CurrentState() != StateOpen {
		t.Fatalf("expected open state after %d failures", 2)
	}

	if _, err := m.Process(context.Background(), q, ok); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("open breaker should fail fast, got %v", err)
	}

	time.Sleep(40 * time.Millisecond)
	if _, err := m.Process(context.Background(), q, ok); err != nil {
		t.Errorf("half-open probe should pass through, got %v", err)
	}
	if m.CurrentState() != StateClosed {
		t.Error("successful probe should close the breaker")
	}
}

func TestCircuitBreakerReopensOnProbeFailure(t *testing.T) {
	m := NewCircuitBreaker(1, 20*time.Millisecond)

	failing := func(ctx context.Context, q *pool.Query) (*pool.Result, error) {
		return nil, errors.New("db down")
	}
	q := &pool.Query{SQL: "SELECT 1", Kind: pool.KindQuery}

	if _, err := m.Process(context.Background(), q, failing); err == nil {
		t.Fatal("expected failure")
	}
	time.Sleep(30 * time.Millisecond)
	if _, err := m.Process(context.Background(), q, failing); err == nil {
		t.Fatal("expected probe failure")
	}
	if m.CurrentState() != StateOpen {
		t.Error("failed probe should reopen the breaker")
	}
}

func TestMemoryCacheHit(t *testing.T) {
	m, err := NewMemoryCache(16)
	if err != nil {
		t.Fatalf("NewMemoryCache failed: %v", err)
	}
	defer m.Shutdown()

	calls := 0
	next := func(ctx context.Context, q *pool.Query) (*pool.Result, error) {
		calls++
		return &pool.Result{Rows: []map[string]any{{"id": float64(1)}}}, nil
	}

	q := &pool.Query{SQL: "SELECT id FROM t", Kind: pool.KindQuery}
	ctx := WithCacheTTL(context.Background(), time.Minute)

	res, err := m.Process(ctx, q, next)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if len(res.Rows) != 1 {
		t.Fatalf("unexpected rows: %v", res.Rows)
	}

	res, err = m.Process(ctx, q, next)
	if err != nil {
		t.Fatalf("second Process failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected the second call to be served from cache, backend hit %d times", calls)
	}
	if res.Rows[0]["id"] != float64(1) {
		t.Errorf("unexpected cached row: %v", res.Rows[0])
	}
}

func TestMemoryCacheSkipsWithoutTTL(t *testing.T) {
	m, err := NewMemoryCache(16)
	if err != nil {
		t.Fatalf("NewMemoryCache failed: %v", err)
	}
	defer m.Shutdown()

	calls := 0
	next := func(ctx context.Context, q *pool.Query) (*pool.Result, error) {
		calls++
		return &pool.Result{}, nil
	}
	q := &pool.Query{SQL: "SELECT 1", Kind: pool.KindQuery}

	for i := 0; i < 2; i++ {
		if _, err := m.Process(context.Background(), q, next); err != nil {
			t.Fatalf("Process failed: %v", err)
		}
	}
	if calls != 2 {
		t.Errorf("uncached query must always reach the backend, got %d calls", calls)
	}
}

func TestMemoryCacheIgnoresExec(t *testing.T) {
	m, err := NewMemoryCache(16)
	if err != nil {
		t.Fatalf("NewMemoryCache failed: %v", err)
	}
	defer m.Shutdown()

	calls := 0
	next := func(ctx context.Context, q *pool.Query) (*pool.Result, error) {
		calls++
		return &pool.Result{RowsAffected: 1}, nil
	}
	q := &pool.Query{SQL: "UPDATE t SET x = 1", Kind: pool.KindExec}
	ctx := WithCacheTTL(context.Background(), time.Minute)

	for i := 0; i < 2; i++ {
		if _, err := m.Process(ctx, q, next); err != nil {
			t.Fatalf("Process failed: %v", err)
		}
	}
	if calls != 2 {
		t.Errorf("writes must never be cached, got %d calls", calls)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	m, err := NewMemoryCache(16)
	if err != nil {
		t.Fatalf("NewMemoryCache failed: %v", err)
	}
	defer m.Shutdown()

	calls := 0
	next := func(ctx context.Context, q *pool.Query) (*pool.Result, error) {
		calls++
		return &pool.Result{}, nil
	}
	q := &pool.Query{SQL: "SELECT 1", Kind: pool.KindQuery}
	ctx := WithCacheTTL(context.Background(), 20*time.Millisecond)

	if _, err := m.Process(ctx, q, next); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	time.Sleep(30 * time.Millisecond)
	if _, err := m.Process(ctx, q, next); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if calls != 2 {
		t.Errorf("expired entry must be refetched, got %d calls", calls)
	}
}
