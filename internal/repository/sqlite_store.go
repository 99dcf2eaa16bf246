package repository

import (
	"context"
	"time"

	applogger "BreakScan/pkg/logger"
	pkgsqlite "BreakScan/pkg/sqlite"
)

const (
	tableSnapshots  = "snapshots"
	tableBaselines  = "daily_baselines"
	tableBreakouts  = "breakouts"
	tableBreakdowns = "breakdowns"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS snapshots (
		kind        TEXT    NOT NULL,
		symbol      TEXT    NOT NULL,
		sector      TEXT    NOT NULL DEFAULT '',
		bucket      INTEGER NOT NULL,
		ltp         REAL    NOT NULL,
		open        REAL    NOT NULL,
		high        REAL    NOT NULL,
		low         REAL    NOT NULL,
		close       REAL    NOT NULL,
		volume      INTEGER NOT NULL DEFAULT 0,
		pct_change  REAL    NOT NULL DEFAULT 0,
		source      TEXT    NOT NULL DEFAULT '',
		captured_at INTEGER NOT NULL,
		PRIMARY KEY (kind, symbol, bucket)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_snapshots_kind_bucket ON snapshots (kind, bucket)`,
	`CREATE TABLE IF NOT EXISTS daily_baselines (
		symbol      TEXT PRIMARY KEY,
		sector      TEXT NOT NULL DEFAULT '',
		high        REAL NOT NULL,
		low         REAL NOT NULL,
		open        REAL NOT NULL,
		close       REAL NOT NULL,
		source      TEXT NOT NULL DEFAULT '',
		captured_on TEXT NOT NULL
	)`,
	signalTableDDL(tableBreakouts),
	signalTableDDL(tableBreakdowns),
}

func signalTableDDL(table string) string {
	return `CREATE TABLE IF NOT EXISTS ` + table + ` (
		symbol        TEXT PRIMARY KEY,
		sector        TEXT NOT NULL DEFAULT '',
		ltp           REAL NOT NULL,
		extreme       REAL NOT NULL,
		distance_pct  REAL NOT NULL,
		classified_at INTEGER NOT NULL
	)`
}

// SQLiteStore implements SnapshotStore, BaselineStore and SignalStore on one SQLite database.
type SQLiteStore struct {
	c   *pkgsqlite.Client
	loc *time.Location
	l   *applogger.Logger
}

// NewSQLiteStore creates the tables if needed. Times read back are expressed in loc.
func NewSQLiteStore(ctx context.Context, c *pkgsqlite.Client, loc *time.Location) (*SQLiteStore, error) {
	if err := c.InitSchema(ctx, sqliteSchema); err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.UTC
	}
	return &SQLiteStore{c: c, loc: loc}, nil
}

// SetLogger injects a structured logger.
func (s *SQLiteStore) SetLogger(l *applogger.Logger) { s.l = l }

// Health pings the database.
func (s *SQLiteStore) Health(ctx context.Context) error { return s.c.Health(ctx) }

func (s *SQLiteStore) logErr(msg, table string, err error) {
	if s.l != nil {
		s.l.Error(msg, applogger.String("table", table), applogger.Error(err))
	}
}
