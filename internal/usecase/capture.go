package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"BreakScan/internal/domain/models"
	domrepo "BreakScan/internal/domain/repository"
	"BreakScan/internal/service/market"
	"BreakScan/internal/service/normalize"
	applogger "BreakScan/pkg/logger"
)

// CaptureUseCase snapshots the universe (and optionally exchange indices) into the current bucket.
type CaptureUseCase struct {
	src              Sources
	store            domrepo.SnapshotStore
	metrics          domrepo.Metrics
	intervalMinutes  int
	ignoreDuplicates bool
}

// NewCaptureUseCase creates a new CaptureUseCase instance.
func NewCaptureUseCase(src Sources, store domrepo.SnapshotStore, metrics domrepo.Metrics, intervalMinutes int, ignoreDuplicates bool) *CaptureUseCase {
	return &CaptureUseCase{
		src:              src,
		store:            store,
		metrics:          metrics,
		intervalMinutes:  intervalMinutes,
		ignoreDuplicates: ignoreDuplicates,
	}
}

// Run fetches, normalizes and upserts one bucket. Fetch and write failures are soft.
func (u *CaptureUseCase) Run(ctx context.Context, inv *Invocation) error {
	sum := inv.Summary
	bucket := market.BucketTime(inv.Now, u.intervalMinutes, inv.Now.Location())
	insts := inv.Universe.BySymbol()
	symbols := inv.Universe.Symbols()

	res := u.src.liveQuotes(ctx, symbols)
	recordSymbolErrors(sum, u.metrics, inv.Path, res.Errors)

	snaps := make([]models.Snapshot, 0, len(res.Quotes)+len(inv.Universe.Indices))
	for _, sym := range symbols {
		q, ok := res.Quotes[sym]
		if !ok {
			continue
		}
		snaps = append(snaps, normalize.ToSnapshot(q, models.KindEquity, insts[sym].Sector, bucket))
	}
	sum.Counts["symbols"] = len(symbols)
	sum.Counts["equities"] = len(snaps)
	sum.Counts["failed"] = len(res.Errors)

	if u.src.IndexSource != nil && u.src.Indices != nil {
		idx, err := u.captureIndices(ctx, inv, bucket)
		if err != nil {
			sum.AddError(fmt.Sprintf("indices: %v", err))
			u.metrics.RecordError("index_fetch")
		}
		sum.Counts["indices"] = len(idx)
		snaps = append(snaps, idx...)
	}

	if len(snaps) > 0 {
		if err := u.store.UpsertSnapshots(ctx, snaps, u.ignoreDuplicates); err != nil {
			sum.AddError(storeError("upsert snapshots", err))
			u.metrics.RecordError("store_write")
		} else {
			sum.Counts["stored"] = len(snaps)
		}
	}

	inv.Log.Info("capture finished",
		applogger.Time("bucket", bucket),
		applogger.Int("equities", sum.Counts["equities"]),
		applogger.Int("indices", sum.Counts["indices"]),
		applogger.Int("failed", len(res.Errors)),
	)
	return nil
}

// captureIndices keeps the configured index names, or every row when none are configured.
func (u *CaptureUseCase) captureIndices(ctx context.Context, inv *Invocation, bucket time.Time) ([]models.Snapshot, error) {
	rows, err := u.src.Indices.FetchIndices(ctx, *u.src.IndexSource)
	u.metrics.RecordFetch(u.src.IndexSource.Name, fetchOutcome(err))
	if err != nil {
		return nil, err
	}

	names := inv.Universe.Indices
	if len(names) == 0 {
		for name := range rows {
			names = append(names, name)
		}
		sort.Strings(names)
	}

	out := make([]models.Snapshot, 0, len(names))
	var missing []string
	for _, name := range names {
		q, ok := lookupIndex(rows, name)
		if !ok || !q.Usable() {
			missing = append(missing, name)
			continue
		}
		out = append(out, normalize.ToSnapshot(q, models.KindIndex, "", bucket))
	}
	if len(missing) > 0 {
		return out, fmt.Errorf("no usable value for %s", strings.Join(missing, ", "))
	}
	return out, nil
}

func lookupIndex(rows map[string]models.Quote, name string) (models.Quote, bool) {
	if q, ok := rows[name]; ok {
		return q, true
	}
	for k, q := range rows {
		if strings.EqualFold(k, name) {
			return q, true
		}
	}
	return models.Quote{}, false
}
