package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"BreakScan/internal/domain/models"
	pkgsqlite "BreakScan/pkg/sqlite"
)

const dayLayout = "2006-01-02"

var baselineColumns = []string{"symbol", "sector", "high", "low", "open", "close", "source", "captured_on"}

// ReplaceBaselines deletes every baseline row and inserts rows in one transaction.
func (s *SQLiteStore) ReplaceBaselines(ctx context.Context, rows []models.DailyBaseline) error {
	values := make([][]any, 0, len(rows))
	for _, b := range rows {
		values = append(values, []any{
			b.Symbol, b.Sector, b.High, b.Low, b.Open, b.Close, b.Source, b.CapturedOn.Format(dayLayout),
		})
	}
	err := s.c.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := pkgsqlite.DeleteWhere(ctx, tx, tableBaselines, pkgsqlite.Predicate{}); err != nil {
			return err
		}
		_, err := pkgsqlite.Upsert(ctx, tx, tableBaselines, baselineColumns, values, []string{"symbol"}, false)
		return err
	})
	if err != nil {
		s.logErr("sqlite replace baselines error", tableBaselines, err)
		return fmt.Errorf("replace baselines: %w", err)
	}
	return nil
}

// Baselines returns the live baseline set ordered by symbol.
func (s *SQLiteStore) Baselines(ctx context.Context) ([]models.DailyBaseline, error) {
	rows, err := pkgsqlite.SelectWhere(ctx, s.c.DB(), tableBaselines, baselineColumns, pkgsqlite.Predicate{}, "symbol ASC")
	if err != nil {
		s.logErr("sqlite read baselines error", tableBaselines, err)
		return nil, err
	}
	defer rows.Close()

	var out []models.DailyBaseline
	for rows.Next() {
		var (
			b   models.DailyBaseline
			day string
		)
		if err := rows.Scan(&b.Symbol, &b.Sector, &b.High, &b.Low, &b.Open, &b.Close, &b.Source, &day); err != nil {
			return nil, fmt.Errorf("scan baseline: %w", err)
		}
		b.CapturedOn, err = time.ParseInLocation(dayLayout, day, s.loc)
		if err != nil {
			return nil, fmt.Errorf("baseline %s captured_on: %w", b.Symbol, err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}
