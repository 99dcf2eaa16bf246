package usecase

import (
	"context"
	"fmt"
	"time"

	"BreakScan/internal/domain/models"
	domrepo "BreakScan/internal/domain/repository"
)

// ReplayUseCase answers "what did the market look like at time t".
type ReplayUseCase struct {
	store    domrepo.SnapshotStore
	interval time.Duration
	window   time.Duration
	maxDrift time.Duration
}

// NewReplayUseCase creates a new ReplayUseCase instance. A zero window or drift falls back to
// two intervals and half an interval.
func NewReplayUseCase(store domrepo.SnapshotStore, intervalMinutes int, window, maxDrift time.Duration) *ReplayUseCase {
	interval := time.Duration(intervalMinutes) * time.Minute
	if interval <= 0 {
		interval = time.Minute
	}
	if window <= 0 {
		window = 2 * interval
	}
	if maxDrift <= 0 {
		maxDrift = interval / 2
	}
	return &ReplayUseCase{store: store, interval: interval, window: window, maxDrift: maxDrift}
}

// Resolve picks the bucket closest to q.Target within the window. Ties go to the earlier bucket.
// ErrNoDataFound is returned when nothing lies within MaxDrift.
func (u *ReplayUseCase) Resolve(ctx context.Context, q models.ReplayQuery) (models.ReplayFrame, error) {
	if q.Kind == "" {
		q.Kind = models.KindEquity
	}
	if q.Window <= 0 {
		q.Window = u.window
	}
	if q.MaxDrift <= 0 {
		q.MaxDrift = u.maxDrift
	}

	snaps, err := u.store.QuerySnapshots(ctx, q.Target.Add(-q.Window), q.Target.Add(q.Window), models.SnapshotFilter{
		Kind:    q.Kind,
		Symbols: q.Symbols,
	})
	if err != nil {
		return models.ReplayFrame{}, fmt.Errorf("query snapshots: %w", err)
	}

	var (
		best  time.Time
		drift time.Duration = -1
	)
	for _, s := range snaps {
		d := absDuration(s.Bucket.Sub(q.Target))
		if drift < 0 || d < drift || (d == drift && s.Bucket.Before(best)) {
			best, drift = s.Bucket, d
		}
	}
	if drift < 0 || drift > q.MaxDrift {
		return models.ReplayFrame{}, ErrNoDataFound
	}

	frame := models.ReplayFrame{
		Kind:      q.Kind,
		Requested: q.Target,
		Bucket:    best,
		Drift:     drift.String(),
		Snapshots: make([]models.Snapshot, 0, 64),
	}
	for _, s := range snaps {
		if s.Bucket.Equal(best) {
			frame.Snapshots = append(frame.Snapshots, s)
		}
	}
	return frame, nil
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
