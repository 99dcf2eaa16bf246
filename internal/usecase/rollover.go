package usecase

import (
	"context"
	"fmt"
	"time"

	"BreakScan/internal/domain/models"
	domrepo "BreakScan/internal/domain/repository"
	"BreakScan/internal/service/batch"
	"BreakScan/internal/service/market"
	applogger "BreakScan/pkg/logger"
)

const dayLayout = "2006-01-02"

// RolloverUseCase captures the session's extremes as the next baseline set and prunes old history.
type RolloverUseCase struct {
	src           Sources
	cal           *market.Calendar
	baselines     domrepo.BaselineStore
	snapshots     domrepo.SnapshotStore
	archiver      domrepo.Archiver
	metrics       domrepo.Metrics
	retentionDays int
}

// NewRolloverUseCase creates a new RolloverUseCase instance. archiver may be nil.
func NewRolloverUseCase(src Sources, cal *market.Calendar, baselines domrepo.BaselineStore, snapshots domrepo.SnapshotStore, archiver domrepo.Archiver, metrics domrepo.Metrics, retentionDays int) *RolloverUseCase {
	return &RolloverUseCase{
		src:           src,
		cal:           cal,
		baselines:     baselines,
		snapshots:     snapshots,
		archiver:      archiver,
		metrics:       metrics,
		retentionDays: retentionDays,
	}
}

// Run replaces the baseline set wholesale. Running it twice for the same session leaves the same set.
func (u *RolloverUseCase) Run(ctx context.Context, inv *Invocation) error {
	sum := inv.Summary
	day := u.cal.BaselineDay(inv.Now)
	insts := inv.Universe.BySymbol()
	symbols := inv.Universe.Symbols()

	var (
		quotes map[string]models.Quote
		failed []batch.SymbolError
	)
	if day.Equal(market.SessionDay(inv.Now, u.cal.Location())) {
		live := u.src.liveQuotes(ctx, symbols)
		quotes, failed = live.Quotes, live.Errors
		if len(failed) > 0 && len(u.src.Historical) > 0 {
			retry := make([]string, len(failed))
			for i, e := range failed {
				retry[i] = e.Symbol
			}
			hist := u.src.historicalQuotes(ctx, retry, insts, day)
			for sym, q := range hist.Quotes {
				quotes[sym] = q
			}
			sum.Counts["historical"] = len(hist.Quotes)
			failed = mergeFailures(failed, hist)
		}
	} else {
		// Live quotes already describe the current session; a past one comes from candles only.
		if len(u.src.Historical) == 0 {
			return fmt.Errorf("rollover for %s: %w", day.Format(dayLayout), ErrNoHistorical)
		}
		hist := u.src.historicalQuotes(ctx, symbols, insts, day)
		quotes, failed = hist.Quotes, hist.Errors
		sum.Counts["historical"] = len(hist.Quotes)
	}
	recordSymbolErrors(sum, u.metrics, inv.Path, failed)

	rows := make([]models.DailyBaseline, 0, len(quotes))
	for _, sym := range symbols {
		q, ok := quotes[sym]
		if !ok {
			continue
		}
		rows = append(rows, models.DailyBaseline{
			Symbol:     sym,
			Sector:     insts[sym].Sector,
			High:       q.High,
			Low:        q.Low,
			Open:       q.Open,
			Close:      q.LTP,
			Source:     q.Source,
			CapturedOn: day,
		})
	}
	sum.Counts["symbols"] = len(symbols)
	sum.Counts["failed"] = len(failed)
	sum.Counts["baselines"] = len(rows)

	if len(rows) == 0 {
		return fmt.Errorf("rollover for %s: %w", day.Format(dayLayout), ErrNoBaselines)
	}
	if err := u.baselines.ReplaceBaselines(ctx, rows); err != nil {
		u.metrics.RecordError("store_write")
		return fmt.Errorf("replace baselines: %w", err)
	}
	u.metrics.RecordBaselines(len(rows))

	if u.retentionDays > 0 {
		u.prune(ctx, inv)
	}

	inv.Log.Info("rollover finished",
		applogger.String("baseline_day", day.Format(dayLayout)),
		applogger.Int("baselines", len(rows)),
		applogger.Int("failed", len(failed)),
	)
	return nil
}

// mergeFailures keeps live failures the historical pass could not recover, with the historical cause.
func mergeFailures(live []batch.SymbolError, hist batch.Result) []batch.SymbolError {
	histErr := make(map[string]error, len(hist.Errors))
	for _, e := range hist.Errors {
		histErr[e.Symbol] = e.Err
	}
	out := make([]batch.SymbolError, 0, len(hist.Errors))
	for _, e := range live {
		if _, ok := hist.Quotes[e.Symbol]; ok {
			continue
		}
		if herr, ok := histErr[e.Symbol]; ok {
			e.Err = fmt.Errorf("%v; historical: %w", e.Err, herr)
		}
		out = append(out, e)
	}
	return out
}

// prune archives every session older than the retention window, then deletes it.
// Nothing is deleted when any archive write fails.
func (u *RolloverUseCase) prune(ctx context.Context, inv *Invocation) {
	sum := inv.Summary
	cutoff := u.cal.RetentionCutoff(inv.Now, u.retentionDays)

	if u.archiver != nil {
		old, err := u.snapshots.QuerySnapshots(ctx, time.Unix(0, 0), cutoff.Add(-time.Second), models.SnapshotFilter{})
		if err != nil {
			sum.AddError(storeError("read expired snapshots", err))
			u.metrics.RecordError("store_read")
			return
		}
		days, order := groupByDay(old, u.cal.Location())
		for _, key := range order {
			snaps := days[key]
			uri, err := u.archiver.Archive(ctx, market.SessionDay(snaps[0].Bucket, u.cal.Location()), snaps)
			if err != nil {
				sum.AddError(fmt.Sprintf("archive %s: %v", key, err))
				u.metrics.RecordError("archive")
				return
			}
			inv.Log.Debug("archived snapshots", applogger.String("day", key), applogger.String("uri", uri))
		}
		sum.Counts["archived_days"] = len(order)
	}

	n, err := u.snapshots.DeleteSnapshotsBefore(ctx, cutoff)
	if err != nil {
		sum.AddError(storeError("prune snapshots", err))
		u.metrics.RecordError("store_write")
		return
	}
	sum.Counts["pruned"] = int(n)
}

func groupByDay(snaps []models.Snapshot, loc *time.Location) (map[string][]models.Snapshot, []string) {
	days := make(map[string][]models.Snapshot)
	var order []string
	for _, s := range snaps {
		key := s.Bucket.In(loc).Format(dayLayout)
		if _, ok := days[key]; !ok {
			order = append(order, key)
		}
		days[key] = append(days[key], s)
	}
	return days, order
}
