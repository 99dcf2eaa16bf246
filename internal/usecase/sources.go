package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"BreakScan/internal/domain/models"
	domrepo "BreakScan/internal/domain/repository"
	"BreakScan/internal/service/batch"
	"BreakScan/internal/service/quote"
)

// IndexFetcher reads every index value in one request.
type IndexFetcher interface {
	FetchIndices(ctx context.Context, p quote.Provider) (map[string]models.Quote, error)
}

// Sources bundles the quote plumbing shared by capture, classify and rollover.
type Sources struct {
	Orchestrator *batch.Orchestrator
	Resolver     *quote.Resolver
	Indices      IndexFetcher
	Live         []quote.Provider
	IndexSource  *quote.Provider
	Historical   []quote.HistoricalProvider
	Batch        batch.Params
}

// liveQuotes runs the universe through the ranked live chain.
func (s Sources) liveQuotes(ctx context.Context, symbols []string) batch.Result {
	return s.Orchestrator.Run(ctx, symbols, s.Batch, s.Resolver.Chain(s.Live))
}

// historicalQuotes tries each historical provider in order for every symbol.
func (s Sources) historicalQuotes(ctx context.Context, symbols []string, insts map[string]models.Instrument, day time.Time) batch.Result {
	return s.Orchestrator.Run(ctx, symbols, s.Batch, func(ctx context.Context, symbol string) (models.Quote, error) {
		exhausted := &quote.ExhaustedError{Symbol: symbol}
		inst, ok := insts[symbol]
		if !ok {
			inst = models.Instrument{Symbol: symbol}
		}
		for _, h := range s.Historical {
			q, err := h.DailyCandle(ctx, inst, day)
			if err == nil && (q.High <= 0 || q.Low <= 0) {
				err = quote.ErrNoCandle
			}
			if err == nil {
				return q, nil
			}
			exhausted.Attempts = append(exhausted.Attempts, quote.Attempt{Provider: h.Name(), Err: err})
		}
		return models.Quote{}, exhausted
	})
}

// recordSymbolErrors copies per-symbol failures into the summary and counts exhausted ones.
func recordSymbolErrors(sum *models.RunSummary, m domrepo.Metrics, path models.RunPath, errs []batch.SymbolError) {
	for _, e := range errs {
		sum.AddError(e.Error())
		var ex *quote.ExhaustedError
		if errors.As(e.Err, &ex) {
			m.RecordExhausted(string(path))
		}
	}
}

func storeError(op string, err error) string {
	return fmt.Sprintf("store %s: %v", op, err)
}

func fetchOutcome(err error) string {
	if err == nil {
		return "ok"
	}
	var fe *quote.FetchError
	if errors.As(err, &fe) {
		return fe.Kind.String()
	}
	return "error"
}
