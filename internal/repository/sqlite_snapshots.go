package repository

import (
	"context"
	"fmt"
	"time"

	"BreakScan/internal/domain/models"
	pkgsqlite "BreakScan/pkg/sqlite"
)

var snapshotColumns = []string{
	"kind", "symbol", "sector", "bucket", "ltp", "open", "high", "low", "close",
	"volume", "pct_change", "source", "captured_at",
}

var snapshotKey = []string{"kind", "symbol", "bucket"}

// UpsertSnapshots writes snaps keyed by (kind, symbol, bucket).
func (s *SQLiteStore) UpsertSnapshots(ctx context.Context, snaps []models.Snapshot, ignoreDuplicates bool) error {
	rows := make([][]any, 0, len(snaps))
	for _, sn := range snaps {
		rows = append(rows, []any{
			string(sn.Kind), sn.Symbol, sn.Sector, sn.Bucket.Unix(),
			sn.LTP, sn.Open, sn.High, sn.Low, sn.Close,
			sn.Volume, sn.PctChange, sn.Source, sn.CapturedAt.UnixMilli(),
		})
	}
	if _, err := pkgsqlite.Upsert(ctx, s.c.DB(), tableSnapshots, snapshotColumns, rows, snapshotKey, ignoreDuplicates); err != nil {
		s.logErr("sqlite upsert snapshots error", tableSnapshots, err)
		return err
	}
	return nil
}

// QuerySnapshots returns snapshots with from <= bucket <= to, ordered by bucket then symbol.
func (s *SQLiteStore) QuerySnapshots(ctx context.Context, from, to time.Time, f models.SnapshotFilter) ([]models.Snapshot, error) {
	pred := pkgsqlite.Where("bucket >= ? AND bucket <= ?", from.Unix(), to.Unix())
	if f.Kind != "" {
		pred = pred.And(pkgsqlite.Where("kind = ?", string(f.Kind)))
	}
	if f.Sector != "" {
		pred = pred.And(pkgsqlite.Where("sector = ?", f.Sector))
	}
	pred = pred.And(pkgsqlite.In("symbol", f.Symbols))

	rows, err := pkgsqlite.SelectWhere(ctx, s.c.DB(), tableSnapshots, snapshotColumns, pred, "bucket ASC", "symbol ASC")
	if err != nil {
		s.logErr("sqlite query snapshots error", tableSnapshots, err)
		return nil, err
	}
	defer rows.Close()

	out := make([]models.Snapshot, 0, 256)
	for rows.Next() {
		var (
			sn         models.Snapshot
			kind       string
			bucket     int64
			capturedMS int64
		)
		if err := rows.Scan(&kind, &sn.Symbol, &sn.Sector, &bucket, &sn.LTP, &sn.Open, &sn.High, &sn.Low,
			&sn.Close, &sn.Volume, &sn.PctChange, &sn.Source, &capturedMS); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		sn.Kind = models.InstrumentKind(kind)
		sn.Bucket = time.Unix(bucket, 0).In(s.loc)
		sn.CapturedAt = time.UnixMilli(capturedMS).In(s.loc)
		out = append(out, sn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

// DeleteSnapshotsBefore drops every snapshot whose bucket is earlier than cutoff.
func (s *SQLiteStore) DeleteSnapshotsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	n, err := pkgsqlite.DeleteWhere(ctx, s.c.DB(), tableSnapshots, pkgsqlite.Where("bucket < ?", cutoff.Unix()))
	if err != nil {
		s.logErr("sqlite prune snapshots error", tableSnapshots, err)
		return 0, err
	}
	return n, nil
}
