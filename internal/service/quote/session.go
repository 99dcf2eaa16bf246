package quote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"BreakScan/pkg/cache"
	xhttp "BreakScan/pkg/http"
)

// SessionSource yields a Cookie header value for providers that gate their data
// endpoints behind a prior page visit.
type SessionSource interface {
	Cookie(ctx context.Context) (string, error)
	Invalidate(ctx context.Context) error
}

// CookieSession performs the handshake by fetching a landing page and keeping the
// cookies it sets. Cookies live in the shared cache so separate invocations reuse them.
type CookieSession struct {
	client   *xhttp.Client
	homeURL  string
	headers  map[string]string
	store    cache.Service
	cacheKey string
	ttl      time.Duration

	mu sync.Mutex
}

func NewCookieSession(client *xhttp.Client, store cache.Service, homeURL string, headers map[string]string, ttl time.Duration) *CookieSession {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CookieSession{
		client:   client,
		homeURL:  homeURL,
		headers:  headers,
		store:    store,
		cacheKey: cache.GenerateKeyWithParams("session", cache.HashKey(homeURL)),
		ttl:      ttl,
	}
}

func (s *CookieSession) Cookie(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var cookie string
	err := s.store.Get(ctx, s.cacheKey, &cookie)
	if err == nil && cookie != "" {
		return cookie, nil
	}
	if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
		return "", fmt.Errorf("read session cache: %w", err)
	}

	cookie, err = s.handshake(ctx)
	if err != nil {
		return "", err
	}
	if err := s.store.Set(ctx, s.cacheKey, cookie, s.ttl); err != nil {
		return "", fmt.Errorf("write session cache: %w", err)
	}
	return cookie, nil
}

func (s *CookieSession) Invalidate(ctx context.Context) error {
	return s.store.Delete(ctx, s.cacheKey)
}

func (s *CookieSession) handshake(ctx context.Context) (string, error) {
	resp, err := s.client.SendRequest(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodGet,
		URL:     s.homeURL,
		Headers: s.headers,
	})
	if err != nil {
		return "", fmt.Errorf("handshake: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return "", fmt.Errorf("handshake: http status %d", resp.StatusCode)
	}
	cookies := resp.Cookies()
	if len(cookies) == 0 {
		return "", errors.New("handshake: no cookies issued")
	}
	parts := make([]string, 0, len(cookies))
	for _, c := range cookies {
		parts = append(parts, c.Name+"="+c.Value)
	}
	return strings.Join(parts, "; "), nil
}
