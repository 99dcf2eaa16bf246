package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	c, err := NewClient(WithPath(filepath.Join(t.TempDir(), "test.db")))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	err = c.InitSchema(context.Background(), []string{
		`CREATE TABLE IF NOT EXISTS kv (k TEXT NOT NULL, b INTEGER NOT NULL, v REAL, PRIMARY KEY (k, b))`,
	})
	if err != nil {
		t.Fatalf("InitSchema: %v", err)
	}
	return c
}

func readValue(t *testing.T, c *Client, k string, b int) float64 {
	t.Helper()
	rows, err := SelectWhere(context.Background(), c.DB(), "kv", []string{"v"}, Where("k = ? AND b = ?", k, b))
	if err != nil {
		t.Fatalf("SelectWhere: %v", err)
	}
	defer rows.Close()
	if !rows.Next() {
		t.Fatalf("no row for %s/%d", k, b)
	}
	var v float64
	if err := rows.Scan(&v); err != nil {
		t.Fatalf("scan: %v", err)
	}
	return v
}

func TestUpsertOverwriteAndIgnore(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	cols := []string{"k", "b", "v"}
	key := []string{"k", "b"}

	if _, err := Upsert(ctx, c.DB(), "kv", cols, [][]any{{"A", 1, 10.0}}, key, false); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := Upsert(ctx, c.DB(), "kv", cols, [][]any{{"A", 1, 11.0}}, key, true); err != nil {
		t.Fatalf("upsert ignore: %v", err)
	}
	if got := readValue(t, c, "A", 1); got != 10 {
		t.Fatalf("ignoreDuplicates overwrote value: %v", got)
	}
	if _, err := Upsert(ctx, c.DB(), "kv", cols, [][]any{{"A", 1, 12.0}}, key, false); err != nil {
		t.Fatalf("upsert overwrite: %v", err)
	}
	if got := readValue(t, c, "A", 1); got != 12 {
		t.Fatalf("expected overwrite to 12, got %v", got)
	}
}

func TestUpsertChunksLargeBatches(t *testing.T) {
	c := newTestClient(t)
	rows := make([][]any, 0, 1000)
	for i := 0; i < 1000; i++ {
		rows = append(rows, []any{"S", i, float64(i)})
	}
	n, err := Upsert(context.Background(), c.DB(), "kv", []string{"k", "b", "v"}, rows, []string{"k", "b"}, false)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if n != 1000 {
		t.Fatalf("expected 1000 rows affected, got %d", n)
	}
}

func TestDeleteWherePredicate(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	rows := [][]any{{"A", 1, 1.0}, {"A", 2, 2.0}, {"B", 3, 3.0}}
	if _, err := Upsert(ctx, c.DB(), "kv", []string{"k", "b", "v"}, rows, []string{"k", "b"}, false); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	n, err := DeleteWhere(ctx, c.DB(), "kv", Where("b < ?", 3))
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 deleted, got %d", n)
	}
	if got := readValue(t, c, "B", 3); got != 3 {
		t.Fatalf("unexpected survivor value %v", got)
	}
}

func TestInTxRollsBack(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	if _, err := Upsert(ctx, c.DB(), "kv", []string{"k", "b", "v"}, [][]any{{"A", 1, 1.0}}, []string{"k", "b"}, false); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	boom := errors.New("boom")
	err := c.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := DeleteWhere(ctx, tx, "kv", Predicate{}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if got := readValue(t, c, "A", 1); got != 1 {
		t.Fatalf("rollback lost row: %v", got)
	}
}

func TestIdentifierValidation(t *testing.T) {
	c := newTestClient(t)
	if _, err := DeleteWhere(context.Background(), c.DB(), "kv; DROP TABLE kv", Predicate{}); err == nil {
		t.Fatalf("expected identifier error")
	}
	if _, err := SelectWhere(context.Background(), c.DB(), "kv", []string{"v"}, Predicate{}, "v sideways"); err == nil {
		t.Fatalf("expected order by error")
	}
}

func TestPredicateCombinators(t *testing.T) {
	p := Where("a = ?", 1).And(In("s", []string{"X", "Y"}))
	if p.Clause != "(a = ?) AND (s IN (?, ?))" {
		t.Fatalf("unexpected clause %q", p.Clause)
	}
	if len(p.Args) != 3 {
		t.Fatalf("expected 3 args, got %d", len(p.Args))
	}
	if q := Where("a = ?", 1).And(In("s", nil)); q.Clause != "a = ?" {
		t.Fatalf("empty IN should be dropped, got %q", q.Clause)
	}
}
