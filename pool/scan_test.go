package pool

import (
	"context"
	"errors"
	"testing"

	"github.com/strata-db/strata/adapter"
)

// sqlitePool builds a shared-adapter pool over an in-memory database with a
// seeded table.
func sqlitePool(t *testing.T, max int) *Pool {
	t.Helper()

	ad, err := adapter.NewSQLite(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { ad.Close() })

	p, err := New(Config{Max: max, SharedAdapter: ad, Logger: quietLogger()})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { p.Close() })

	ctx := context.Background()
	if _, err := p.Exec(ctx, "CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT, age INTEGER)"); err != nil {
		t.Fatalf("create table: %v", err)
	}
	if _, err := p.Exec(ctx, "INSERT INTO users (name, age) VALUES (?, ?), (?, ?)", "alice", 30, "bob", 25); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return p
}

func TestQueryScansRows(t *testing.T) {
	p := sqlitePool(t, 2)

	res, err := p.Query(context.Background(), "SELECT id, name, age FROM users ORDER BY id")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(res.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(res.Rows))
	}
	if res.Rows[0]["name"] != "alice" {
		t.Errorf("unexpected first row: %v", res.Rows[0])
	}
	if age, ok := res.Rows[1]["age"].(int64); !ok || age != 25 {
		t.Errorf("unexpected age in second row: %v (%T)", res.Rows[1]["age"], res.Rows[1]["age"])
	}
	if res.RowsAffected != 2 {
		t.Errorf("expected RowsAffected 2, got %d", res.RowsAffected)
	}
}

func TestExecReportsAffectedRows(t *testing.T) {
	p := sqlitePool(t, 2)

	res, err := p.Exec(context.Background(), "UPDATE users SET age = age + 1")
	if err != nil {
		t.Fatalf("Exec failed: %v", err)
	}
	if res.RowsAffected != 2 {
		t.Errorf("expected 2 affected rows, got %d", res.RowsAffected)
	}
	if res.Duration <= 0 {
		t.Errorf("expected positive duration, got %v", res.Duration)
	}
}

func TestTransactionCommit(t *testing.T) {
	p := sqlitePool(t, 2)
	ctx := context.Background()

	err := p.Transaction(ctx, func(tx adapter.Tx) error {
		if _, err := tx.ExecContext(ctx, "INSERT INTO users (name, age) VALUES (?, ?)", "carol", 41); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Transaction failed: %v", err)
	}

	res, err := p.Query(ctx, "SELECT COUNT(*) AS n FROM users")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if n := res.Rows[0]["n"].(int64); n != 3 {
		t.Errorf("expected 3 users after commit, got %d", n)
	}
}

func TestTransactionRollback(t *testing.T) {
	p := sqlitePool(t, 2)
	ctx := context.Background()
	boom := errors.New("boom")

	err := p.Transaction(ctx, func(tx adapter.Tx) error {
		if _, err := tx.ExecContext(ctx, "INSERT INTO users (name, age) VALUES (?, ?)", "mallory", 99); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected the callback error, got %v", err)
	}

	res, err := p.Query(ctx, "SELECT COUNT(*) AS n FROM users")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if n := res.Rows[0]["n"].(int64); n != 2 {
		t.Errorf("expected rollback to keep 2 users, got %d", n)
	}

	// The transaction's slot must be back in the pool.
	if st := p.Stats(); st.Active != 0 {
		t.Errorf("connection leaked by failed transaction: %+v", st)
	}
}

func TestQueryErrorPropagates(t *testing.T) {
	p := sqlitePool(t, 2)

	if _, err := p.Query(context.Background(), "SELECT * FROM missing_table"); err == nil {
		t.Fatal("expected an error from the driver")
	}
	if st := p.Stats(); st.Active != 0 {
		t.Errorf("connection leaked on driver error: %+v", st)
	}
}
