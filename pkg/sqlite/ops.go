package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
)

// Execer is satisfied by *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Predicate is a parameterized WHERE clause. The zero value matches every row.
type Predicate struct {
	Clause string
	Args   []any
}

// Where builds a Predicate.
func Where(clause string, args ...any) Predicate {
	return Predicate{Clause: clause, Args: args}
}

// And joins two predicates.
func (p Predicate) And(o Predicate) Predicate {
	switch {
	case p.Clause == "":
		return o
	case o.Clause == "":
		return p
	}
	return Predicate{
		Clause: "(" + p.Clause + ") AND (" + o.Clause + ")",
		Args:   append(append([]any{}, p.Args...), o.Args...),
	}
}

// In builds "column IN (?, ?, ...)". An empty list yields the zero Predicate.
func In(column string, values []string) Predicate {
	if len(values) == 0 {
		return Predicate{}
	}
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return Predicate{
		Clause: fmt.Sprintf("%s IN (%s)", column, placeholders(len(values))),
		Args:   args,
	}
}

func (p Predicate) sql() string {
	if p.Clause == "" {
		return ""
	}
	return " WHERE " + p.Clause
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func checkIdents(names ...string) error {
	for _, n := range names {
		if !identRe.MatchString(n) {
			return fmt.Errorf("invalid identifier %q", n)
		}
	}
	return nil
}

// upsertChunk keeps each statement well under SQLite's bound-parameter limit.
const upsertChunk = 400

// Upsert inserts rows keyed by conflictKey. When ignoreDuplicates is set an existing
// row wins; otherwise every non-key column is overwritten.
func Upsert(ctx context.Context, ex Execer, table string, columns []string, rows [][]any, conflictKey []string, ignoreDuplicates bool) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if err := checkIdents(append(append([]string{table}, columns...), conflictKey...)...); err != nil {
		return 0, err
	}

	keys := make(map[string]bool, len(conflictKey))
	for _, k := range conflictKey {
		keys[k] = true
	}
	var action string
	if ignoreDuplicates {
		action = "DO NOTHING"
	} else {
		sets := make([]string, 0, len(columns))
		for _, c := range columns {
			if !keys[c] {
				sets = append(sets, fmt.Sprintf("%s = excluded.%s", c, c))
			}
		}
		if len(sets) == 0 {
			action = "DO NOTHING"
		} else {
			action = "DO UPDATE SET " + strings.Join(sets, ", ")
		}
	}

	rowPH := "(" + placeholders(len(columns)) + ")"
	var affected int64
	for start := 0; start < len(rows); start += upsertChunk {
		end := start + upsertChunk
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]
		values := make([]string, len(chunk))
		args := make([]any, 0, len(chunk)*len(columns))
		for i, r := range chunk {
			if len(r) != len(columns) {
				return affected, fmt.Errorf("row %d has %d values, want %d", start+i, len(r), len(columns))
			}
			values[i] = rowPH
			args = append(args, r...)
		}
		q := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s ON CONFLICT (%s) %s",
			table, strings.Join(columns, ", "), strings.Join(values, ", "), strings.Join(conflictKey, ", "), action)
		res, err := ex.ExecContext(ctx, q, args...)
		if err != nil {
			return affected, fmt.Errorf("upsert %s: %w", table, err)
		}
		n, _ := res.RowsAffected()
		affected += n
	}
	return affected, nil
}

// DeleteWhere removes every row matching pred and returns the count.
func DeleteWhere(ctx context.Context, ex Execer, table string, pred Predicate) (int64, error) {
	if err := checkIdents(table); err != nil {
		return 0, err
	}
	res, err := ex.ExecContext(ctx, "DELETE FROM "+table+pred.sql(), pred.Args...)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", table, err)
	}
	return res.RowsAffected()
}

// SelectWhere returns rows matching pred ordered by orderBy. The caller closes rows.
func SelectWhere(ctx context.Context, ex Execer, table string, columns []string, pred Predicate, orderBy ...string) (*sql.Rows, error) {
	if err := checkIdents(append([]string{table}, columns...)...); err != nil {
		return nil, err
	}
	q := fmt.Sprintf("SELECT %s FROM %s%s", strings.Join(columns, ", "), table, pred.sql())
	if len(orderBy) > 0 {
		for _, o := range orderBy {
			f := strings.Fields(o)
			if len(f) == 0 || len(f) > 2 || checkIdents(f[0]) != nil ||
				(len(f) == 2 && !strings.EqualFold(f[1], "asc") && !strings.EqualFold(f[1], "desc")) {
				return nil, fmt.Errorf("invalid order by %q", o)
			}
		}
		q += " ORDER BY " + strings.Join(orderBy, ", ")
	}
	rows, err := ex.QueryContext(ctx, q, pred.Args...)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", table, err)
	}
	return rows, nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
