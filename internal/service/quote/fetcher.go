package quote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"BreakScan/internal/domain/models"
	"BreakScan/internal/service/normalize"
	xhttp "BreakScan/pkg/http"

	"golang.org/x/time/rate"
)

const (
	defaultFetchTimeout = 8 * time.Second
	maxBodyBytes        = 4 << 20
)

// Fetcher issues exactly one request per call and never retries.
type Fetcher struct {
	client *xhttp.Client
	now    func() time.Time

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewFetcher wraps client. A nil client gets a default one.
func NewFetcher(client *xhttp.Client) *Fetcher {
	if client == nil {
		client = xhttp.NewClient()
	}
	return &Fetcher{
		client:   client,
		now:      time.Now,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Fetch asks provider p for symbol and normalizes the response.
func (f *Fetcher) Fetch(ctx context.Context, symbol string, p Provider) (models.Quote, error) {
	body, err := f.get(ctx, symbol, p)
	if err != nil {
		return models.Quote{}, err
	}
	q, err := normalize.Normalize(body, p.Tag, symbol)
	if err != nil {
		return models.Quote{}, &FetchError{Provider: p.Name, Symbol: symbol, Kind: FetchMalformed, Err: err}
	}
	q.Source = p.Name
	q.FetchedAt = f.now()
	return q, nil
}

// FetchIndices reads every index row from a provider that returns them in one payload.
func (f *Fetcher) FetchIndices(ctx context.Context, p Provider) (map[string]models.Quote, error) {
	body, err := f.get(ctx, "", p)
	if err != nil {
		return nil, err
	}
	rows, err := normalize.Indices(body)
	if err != nil {
		return nil, &FetchError{Provider: p.Name, Symbol: "*", Kind: FetchMalformed, Err: err}
	}
	now := f.now()
	for k, q := range rows {
		q.Source = p.Name
		q.FetchedAt = now
		rows[k] = q
	}
	return rows, nil
}

func (f *Fetcher) get(ctx context.Context, symbol string, p Provider) ([]byte, error) {
	if err := f.pace(ctx, p); err != nil {
		return nil, f.fail(p, symbol, err)
	}

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	headers := make(map[string]string, len(p.Headers)+1)
	for k, v := range p.Headers {
		headers[k] = v
	}
	if p.Session != nil {
		cookie, err := p.Session.Cookie(ctx)
		if err != nil {
			return nil, f.fail(p, symbol, fmt.Errorf("session handshake: %w", err))
		}
		headers["Cookie"] = cookie
	}

	resp, err := f.client.SendRequest(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodGet,
		URL:     p.URL(symbol),
		Headers: headers,
	})
	if err != nil {
		return nil, f.fail(p, symbol, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, f.fail(p, symbol, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if p.Session != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			_ = p.Session.Invalidate(context.WithoutCancel(ctx))
		}
		return nil, &FetchError{Provider: p.Name, Symbol: symbol, Kind: FetchHTTPStatus, Status: resp.StatusCode}
	}
	return body, nil
}

func (f *Fetcher) pace(ctx context.Context, p Provider) error {
	if p.RPS <= 0 {
		return nil
	}
	f.mu.Lock()
	l, ok := f.limiters[p.Name]
	if !ok {
		l = rate.NewLimiter(rate.Limit(p.RPS), 1)
		f.limiters[p.Name] = l
	}
	f.mu.Unlock()
	return l.Wait(ctx)
}

func (f *Fetcher) fail(p Provider, symbol string, err error) *FetchError {
	kind := FetchTransport
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		kind = FetchTimeout
	}
	return &FetchError{Provider: p.Name, Symbol: symbol, Kind: kind, Err: err}
}
