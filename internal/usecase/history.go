package usecase

import (
	"context"
	"fmt"
	"time"

	"BreakScan/internal/domain/models"
	domrepo "BreakScan/internal/domain/repository"
)

// HistoryUseCase serves read-only views of stored snapshots and the current signal sets.
type HistoryUseCase struct {
	snapshots domrepo.SnapshotStore
	signals   domrepo.SignalStore
	maxSpan   time.Duration
}

// NewHistoryUseCase creates a new HistoryUseCase instance. maxSpan <= 0 means unbounded.
func NewHistoryUseCase(snapshots domrepo.SnapshotStore, signals domrepo.SignalStore, maxSpan time.Duration) *HistoryUseCase {
	return &HistoryUseCase{snapshots: snapshots, signals: signals, maxSpan: maxSpan}
}

// Query returns snapshots with from <= bucket <= to, ordered by bucket then symbol.
func (u *HistoryUseCase) Query(ctx context.Context, from, to time.Time, f models.SnapshotFilter) ([]models.Snapshot, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("%w: to %s is before from %s", ErrInvalidRange, to.Format(time.RFC3339), from.Format(time.RFC3339))
	}
	if u.maxSpan > 0 && to.Sub(from) > u.maxSpan {
		return nil, fmt.Errorf("%w: span exceeds %s", ErrInvalidRange, u.maxSpan)
	}
	if f.Kind == "" {
		f.Kind = models.KindEquity
	}
	return u.snapshots.QuerySnapshots(ctx, from, to, f)
}

// Signals returns the latest breakout and breakdown sets.
func (u *HistoryUseCase) Signals(ctx context.Context) (models.SignalSets, error) {
	return u.signals.Signals(ctx)
}
