package usecase

import (
	"context"
	"fmt"

	"BreakScan/internal/domain/models"
	domrepo "BreakScan/internal/domain/repository"
	"BreakScan/internal/service/classifier"
	applogger "BreakScan/pkg/logger"
)

// ClassifyUseCase compares live quotes against the stored baselines and replaces both signal sets.
type ClassifyUseCase struct {
	src       Sources
	baselines domrepo.BaselineStore
	signals   domrepo.SignalStore
	publisher domrepo.SignalPublisher
	metrics   domrepo.Metrics
}

// NewClassifyUseCase creates a new ClassifyUseCase instance.
func NewClassifyUseCase(src Sources, baselines domrepo.BaselineStore, signals domrepo.SignalStore, publisher domrepo.SignalPublisher, metrics domrepo.Metrics) *ClassifyUseCase {
	return &ClassifyUseCase{src: src, baselines: baselines, signals: signals, publisher: publisher, metrics: metrics}
}

// Run fails hard only when the baselines cannot be read or are empty.
func (u *ClassifyUseCase) Run(ctx context.Context, inv *Invocation) error {
	sum := inv.Summary
	rows, err := u.baselines.Baselines(ctx)
	if err != nil {
		u.metrics.RecordError("store_read")
		return fmt.Errorf("read baselines: %w", err)
	}
	if len(rows) == 0 {
		return ErrNoBaselines
	}
	baselines := make(map[string]models.DailyBaseline, len(rows))
	for _, b := range rows {
		baselines[b.Symbol] = b
	}

	symbols := inv.Universe.Symbols()
	res := u.src.liveQuotes(ctx, symbols)
	recordSymbolErrors(sum, u.metrics, inv.Path, res.Errors)

	run := classifier.ClassifyAll(res.Quotes, baselines, inv.Now)
	for _, skip := range run.Skipped {
		sum.AddError(skip.Error())
	}

	sum.Counts["symbols"] = len(symbols)
	sum.Counts["quoted"] = len(res.Quotes)
	sum.Counts["failed"] = len(res.Errors)
	sum.Counts["breakouts"] = len(run.Sets.Breakouts)
	sum.Counts["breakdowns"] = len(run.Sets.Breakdowns)
	sum.Counts["neutral"] = run.Neutral
	sum.Counts["skipped"] = len(run.Skipped)
	u.metrics.RecordVerdict(string(models.VerdictBreakout), len(run.Sets.Breakouts))
	u.metrics.RecordVerdict(string(models.VerdictBreakdown), len(run.Sets.Breakdowns))
	u.metrics.RecordVerdict(string(models.VerdictNone), run.Neutral)

	if err := u.signals.ReplaceSignals(ctx, run.Sets); err != nil {
		sum.AddError(storeError("replace signals", err))
		u.metrics.RecordError("store_write")
	}
	if u.publisher != nil {
		if err := u.publisher.PublishSignals(ctx, inv.RunID, run.Sets); err != nil {
			sum.AddError(fmt.Sprintf("publish signals: %v", err))
			u.metrics.RecordError("publish")
		}
	}

	inv.Log.Info("classify finished",
		applogger.Int("breakouts", len(run.Sets.Breakouts)),
		applogger.Int("breakdowns", len(run.Sets.Breakdowns)),
		applogger.Int("neutral", run.Neutral),
		applogger.Int("skipped", len(run.Skipped)),
		applogger.Int("failed", len(res.Errors)),
	)
	return nil
}
