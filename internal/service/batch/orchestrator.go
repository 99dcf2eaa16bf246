// Package batch runs symbol lookups in fixed-size, paced batches.
package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"BreakScan/internal/domain/models"
	"BreakScan/pkg/util"
)

// Params controls batching and pacing.
type Params struct {
	BatchSize       int
	InterBatchDelay time.Duration
	MaxParallelism  int
}

const defaultBatchSize = 15

func (p Params) normalized() Params {
	if p.BatchSize <= 0 {
		p.BatchSize = defaultBatchSize
	}
	if p.MaxParallelism <= 0 || p.MaxParallelism > p.BatchSize {
		p.MaxParallelism = p.BatchSize
	}
	if p.InterBatchDelay < 0 {
		p.InterBatchDelay = 0
	}
	return p
}

// ResolveFunc looks up one symbol.
type ResolveFunc func(ctx context.Context, symbol string) (models.Quote, error)

// SymbolError is a per-symbol failure. It never aborts the run.
type SymbolError struct {
	Symbol string
	Err    error
}

func (e SymbolError) Error() string { return fmt.Sprintf("%s: %v", e.Symbol, e.Err) }

// Result holds whatever succeeded plus an explicit list of what did not.
// Callers must not assume Quotes covers every input symbol.
type Result struct {
	Quotes map[string]models.Quote
	Errors []SymbolError
}

// Orchestrator partitions a universe into batches. Batches run one after another
// with a pacing delay between them; symbols inside a batch run concurrently.
type Orchestrator struct {
	sleep util.SleepFunc
}

// Option configures Orchestrator.
type Option func(*Orchestrator)

// WithSleep swaps the pacing wait, mainly for tests.
func WithSleep(fn util.SleepFunc) Option {
	return func(o *Orchestrator) { o.sleep = fn }
}

func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{sleep: util.Sleep}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run resolves every distinct symbol. Errors are reported in input order.
func (o *Orchestrator) Run(ctx context.Context, symbols []string, p Params, resolve ResolveFunc) Result {
	p = p.normalized()
	uniq := dedupe(symbols)
	res := Result{Quotes: make(map[string]models.Quote, len(uniq))}

	for start := 0; start < len(uniq); start += p.BatchSize {
		if start > 0 {
			if err := o.sleep(ctx, p.InterBatchDelay); err != nil {
				for _, s := range uniq[start:] {
					res.Errors = append(res.Errors, SymbolError{Symbol: s, Err: fmt.Errorf("not attempted: %w", err)})
				}
				return res
			}
		}
		end := start + p.BatchSize
		if end > len(uniq) {
			end = len(uniq)
		}
		o.runBatch(ctx, uniq[start:end], p.MaxParallelism, resolve, &res)
	}
	return res
}

type outcome struct {
	quote models.Quote
	err   error
}

func (o *Orchestrator) runBatch(ctx context.Context, batch []string, parallelism int, resolve ResolveFunc, res *Result) {
	outcomes := make([]outcome, len(batch))
	sem := make(chan struct{}, parallelism)
	var wg sync.WaitGroup

	for i, sym := range batch {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, sym string) {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				if r := recover(); r != nil {
					outcomes[i] = outcome{err: fmt.Errorf("panic: %v", r)}
				}
			}()
			q, err := resolve(ctx, sym)
			outcomes[i] = outcome{quote: q, err: err}
		}(i, sym)
	}
	wg.Wait()

	for i, sym := range batch {
		if outcomes[i].err != nil {
			res.Errors = append(res.Errors, SymbolError{Symbol: sym, Err: outcomes[i].err})
			continue
		}
		res.Quotes[sym] = outcomes[i].quote
	}
}

func dedupe(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
