package repository

import (
	"context"
	"time"

	"BreakScan/internal/domain/models"
)

// SnapshotStore persists interval-bucketed snapshots keyed by (kind, symbol, bucket).
type SnapshotStore interface {
	UpsertSnapshots(ctx context.Context, snaps []models.Snapshot, ignoreDuplicates bool) error
	QuerySnapshots(ctx context.Context, from, to time.Time, f models.SnapshotFilter) ([]models.Snapshot, error)
	DeleteSnapshotsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// BaselineStore holds the live DailyBaseline set, one row per symbol.
type BaselineStore interface {
	// ReplaceBaselines swaps the whole set in a single transaction.
	ReplaceBaselines(ctx context.Context, rows []models.DailyBaseline) error
	Baselines(ctx context.Context) ([]models.DailyBaseline, error)
}

// SignalStore holds the current breakout and breakdown sets.
type SignalStore interface {
	ReplaceSignals(ctx context.Context, sets models.SignalSets) error
	Signals(ctx context.Context) (models.SignalSets, error)
}

// SignalPublisher fans classification output out to downstream consumers.
type SignalPublisher interface {
	PublishSignals(ctx context.Context, runID string, sets models.SignalSets) error
	Close() error
}

// Archiver keeps a copy of snapshots that are about to be pruned.
type Archiver interface {
	Archive(ctx context.Context, day time.Time, snaps []models.Snapshot) (string, error)
}

// Metrics records pipeline observations.
type Metrics interface {
	RecordFetch(provider, outcome string)
	RecordExhausted(path string)
	RecordVerdict(verdict string, n int)
	RecordBaselines(n int)
	RecordRun(path string, success bool, seconds float64)
	RecordError(kind string)
}

// NoopMetrics discards observations.
type NoopMetrics struct{}

func (NoopMetrics) RecordFetch(string, string) {}
func (NoopMetrics) RecordExhausted(string) {}
func (NoopMetrics) RecordVerdict(string, int) {}
func (NoopMetrics) RecordBaselines(int) {}
func (NoopMetrics) RecordRun(string, bool, float64) {}
func (NoopMetrics) RecordError(string) {}
