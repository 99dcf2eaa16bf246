package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"BreakScan/internal/domain/models"
	pkgsqlite "BreakScan/pkg/sqlite"
)

var signalColumns = []string{"symbol", "sector", "ltp", "extreme", "distance_pct", "classified_at"}

// ReplaceSignals swaps both signal tables for the given sets in one transaction.
func (s *SQLiteStore) ReplaceSignals(ctx context.Context, sets models.SignalSets) error {
	err := s.c.InTx(ctx, func(tx *sql.Tx) error {
		if err := replaceSignalTable(ctx, tx, tableBreakouts, sets.Breakouts); err != nil {
			return err
		}
		return replaceSignalTable(ctx, tx, tableBreakdowns, sets.Breakdowns)
	})
	if err != nil {
		s.logErr("sqlite replace signals error", tableBreakouts+","+tableBreakdowns, err)
		return fmt.Errorf("replace signals: %w", err)
	}
	return nil
}

func replaceSignalTable(ctx context.Context, tx *sql.Tx, table string, recs []models.SignalRecord) error {
	if _, err := pkgsqlite.DeleteWhere(ctx, tx, table, pkgsqlite.Predicate{}); err != nil {
		return err
	}
	values := make([][]any, 0, len(recs))
	for _, r := range recs {
		values = append(values, []any{r.Symbol, r.Sector, r.LTP, r.Extreme, r.DistancePct, r.ClassifiedAt.UnixMilli()})
	}
	_, err := pkgsqlite.Upsert(ctx, tx, table, signalColumns, values, []string{"symbol"}, false)
	return err
}

// Signals returns the current sets, each ordered by distance descending.
func (s *SQLiteStore) Signals(ctx context.Context) (models.SignalSets, error) {
	ups, err := s.readSignals(ctx, tableBreakouts, models.VerdictBreakout)
	if err != nil {
		return models.SignalSets{}, err
	}
	downs, err := s.readSignals(ctx, tableBreakdowns, models.VerdictBreakdown)
	if err != nil {
		return models.SignalSets{}, err
	}
	return models.SignalSets{Breakouts: ups, Breakdowns: downs}, nil
}

func (s *SQLiteStore) readSignals(ctx context.Context, table string, v models.Verdict) ([]models.SignalRecord, error) {
	rows, err := pkgsqlite.SelectWhere(ctx, s.c.DB(), table, signalColumns, pkgsqlite.Predicate{}, "distance_pct DESC", "symbol ASC")
	if err != nil {
		s.logErr("sqlite read signals error", table, err)
		return nil, err
	}
	defer rows.Close()

	out := []models.SignalRecord{}
	for rows.Next() {
		var (
			r  models.SignalRecord
			ms int64
		)
		if err := rows.Scan(&r.Symbol, &r.Sector, &r.LTP, &r.Extreme, &r.DistancePct, &ms); err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		r.Verdict = v
		r.ClassifiedAt = time.UnixMilli(ms).In(s.loc)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}
