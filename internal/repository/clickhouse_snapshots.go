package repository

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	"BreakScan/internal/domain/models"
	pkgch "BreakScan/pkg/clickhouse"
	applogger "BreakScan/pkg/logger"
)

// ReplacingMergeTree keeps the highest ver per (kind, symbol, bucket). First-write-wins inserts
// use an inverted capture time so the earliest row survives the merge.
var clickhouseSchema = []string{
	`CREATE TABLE IF NOT EXISTS snapshots (
		kind        LowCardinality(String),
		symbol      LowCardinality(String),
		sector      LowCardinality(String),
		bucket      DateTime('UTC'),
		ltp         Float64,
		open        Float64,
		high        Float64,
		low         Float64,
		close       Float64,
		volume      Int64,
		pct_change  Float64,
		source      LowCardinality(String),
		captured_at DateTime64(3, 'UTC'),
		ver         UInt64
	) ENGINE = ReplacingMergeTree(ver)
	PARTITION BY toYYYYMM(bucket)
	ORDER BY (kind, symbol, bucket)`,
}

// CHSnapshotStore implements SnapshotStore backed by ClickHouse.
type CHSnapshotStore struct {
	db  *sql.DB
	loc *time.Location
	l   *applogger.Logger
}

// NewCHSnapshotStore creates the snapshots table if needed.
func NewCHSnapshotStore(ctx context.Context, ch *pkgch.Client, loc *time.Location) (*CHSnapshotStore, error) {
	if err := ch.InitSchema(ctx, clickhouseSchema); err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.UTC
	}
	return &CHSnapshotStore{db: ch.DB(), loc: loc}, nil
}

// SetLogger injects a structured logger.
func (s *CHSnapshotStore) SetLogger(l *applogger.Logger) { s.l = l }

func snapshotVersion(capturedAt time.Time, ignoreDuplicates bool) uint64 {
	ms := uint64(capturedAt.UnixMilli())
	if ignoreDuplicates {
		return math.MaxUint64 - ms
	}
	return ms
}

// UpsertSnapshots batch-inserts snaps in chunks.
func (s *CHSnapshotStore) UpsertSnapshots(ctx context.Context, snaps []models.Snapshot, ignoreDuplicates bool) error {
	const chunkSize = 2000
	for start := 0; start < len(snaps); start += chunkSize {
		end := start + chunkSize
		if end > len(snaps) {
			end = len(snaps)
		}
		values := make([]string, 0, end-start)
		args := make([]any, 0, (end-start)*14)
		for _, sn := range snaps[start:end] {
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				string(sn.Kind), sn.Symbol, sn.Sector, sn.Bucket.UTC(),
				sn.LTP, sn.Open, sn.High, sn.Low, sn.Close, sn.Volume, sn.PctChange,
				sn.Source, sn.CapturedAt.UTC(), snapshotVersion(sn.CapturedAt, ignoreDuplicates),
			)
		}
		q := "INSERT INTO snapshots (kind, symbol, sector, bucket, ltp, open, high, low, close, volume, pct_change, source, captured_at, ver) VALUES " +
			strings.Join(values, ",")
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			if s.l != nil {
				s.l.Error("clickhouse upsert snapshots error", applogger.Int("rows", end-start), applogger.Error(err))
			}
			return fmt.Errorf("insert snapshots: %w", err)
		}
	}
	return nil
}

// QuerySnapshots reads merged rows ordered by bucket then symbol.
func (s *CHSnapshotStore) QuerySnapshots(ctx context.Context, from, to time.Time, f models.SnapshotFilter) ([]models.Snapshot, error) {
	where := []string{"bucket >= ?", "bucket <= ?"}
	args := []any{from.UTC(), to.UTC()}
	if f.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, string(f.Kind))
	}
	if f.Sector != "" {
		where = append(where, "sector = ?")
		args = append(args, f.Sector)
	}
	if len(f.Symbols) > 0 {
		where = append(where, "symbol IN ("+strings.TrimSuffix(strings.Repeat("?, ", len(f.Symbols)), ", ")+")")
		for _, sym := range f.Symbols {
			args = append(args, sym)
		}
	}
	q := `SELECT kind, symbol, sector, bucket, ltp, open, high, low, close, volume, pct_change, source, captured_at
		FROM snapshots FINAL
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY bucket ASC, symbol ASC`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse query snapshots error", applogger.Error(err))
		}
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var out []models.Snapshot
	for rows.Next() {
		var (
			sn   models.Snapshot
			kind string
		)
		if err := rows.Scan(&kind, &sn.Symbol, &sn.Sector, &sn.Bucket, &sn.LTP, &sn.Open, &sn.High, &sn.Low,
			&sn.Close, &sn.Volume, &sn.PctChange, &sn.Source, &sn.CapturedAt); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		sn.Kind = models.InstrumentKind(kind)
		sn.Bucket = sn.Bucket.In(s.loc)
		sn.CapturedAt = sn.CapturedAt.In(s.loc)
		out = append(out, sn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

// DeleteSnapshotsBefore counts the rows then issues a lightweight delete.
func (s *CHSnapshotStore) DeleteSnapshotsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var n uint64
	if err := s.db.QueryRowContext(ctx, "SELECT count() FROM snapshots FINAL WHERE bucket < ?", cutoff.UTC()).Scan(&n); err != nil {
		return 0, fmt.Errorf("count stale snapshots: %w", err)
	}
	if n == 0 {
		return 0, nil
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM snapshots WHERE bucket < ?", cutoff.UTC()); err != nil {
		return 0, fmt.Errorf("delete stale snapshots: %w", err)
	}
	return int64(n), nil
}
