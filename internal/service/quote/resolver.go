package quote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"BreakScan/internal/domain/models"
	domrepo "BreakScan/internal/domain/repository"
	"BreakScan/pkg/util"
)

// QuoteFetcher is the single-call contract the resolver depends on.
type QuoteFetcher interface {
	Fetch(ctx context.Context, symbol string, p Provider) (models.Quote, error)
}

// Resolver walks an ordered provider list until one yields a usable quote.
type Resolver struct {
	fetcher      QuoteFetcher
	retryBackoff time.Duration
	sleep        util.SleepFunc
	metrics      domrepo.Metrics
}

// ResolverOption configures Resolver.
type ResolverOption func(*Resolver)

// WithRetryBackoff sets the fixed wait before the single 429 retry.
func WithRetryBackoff(d time.Duration) ResolverOption {
	return func(r *Resolver) { r.retryBackoff = d }
}

// WithSleep replaces the blocking wait, mainly for tests.
func WithSleep(fn util.SleepFunc) ResolverOption {
	return func(r *Resolver) { r.sleep = fn }
}

// WithMetrics records per-provider outcomes.
func WithMetrics(m domrepo.Metrics) ResolverOption {
	return func(r *Resolver) { r.metrics = m }
}

func NewResolver(f QuoteFetcher, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		fetcher:      f,
		retryBackoff: 750 * time.Millisecond,
		sleep:        util.Sleep,
		metrics:      domrepo.NoopMetrics{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve tries providers strictly in order. A response without a positive last price
// counts as a failure of that provider. When every provider fails the error is an
// *ExhaustedError listing each attempt.
func (r *Resolver) Resolve(ctx context.Context, symbol string, providers []Provider) (models.Quote, error) {
	exhausted := &ExhaustedError{Symbol: symbol}
	for _, p := range providers {
		q, err := r.attempt(ctx, symbol, p)
		if err == nil && !q.Usable() {
			err = fmt.Errorf("%s %s: %w", p.Name, symbol, ErrNoPrice)
		}
		r.metrics.RecordFetch(p.Name, outcome(err))
		if err == nil {
			return q, nil
		}
		exhausted.Attempts = append(exhausted.Attempts, Attempt{Provider: p.Name, Err: err})
	}
	return models.Quote{}, exhausted
}

// Chain binds a provider list so the result fits batch orchestration.
func (r *Resolver) Chain(providers []Provider) func(ctx context.Context, symbol string) (models.Quote, error) {
	return func(ctx context.Context, symbol string) (models.Quote, error) {
		return r.Resolve(ctx, symbol, providers)
	}
}

func (r *Resolver) attempt(ctx context.Context, symbol string, p Provider) (models.Quote, error) {
	q, err := r.fetcher.Fetch(ctx, symbol, p)
	if err == nil || !p.RetryOn429 || !IsRateLimited(err) {
		return q, err
	}
	r.metrics.RecordFetch(p.Name, "rate_limited")
	if serr := r.sleep(ctx, r.retryBackoff); serr != nil {
		return q, err
	}
	return r.fetcher.Fetch(ctx, symbol, p)
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if errors.Is(err, ErrNoPrice) {
		return "no_price"
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind.String()
	}
	return "error"
}
