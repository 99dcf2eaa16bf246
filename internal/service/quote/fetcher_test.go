package quote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"BreakScan/internal/domain/models"
	"BreakScan/pkg/cache"
	xhttp "BreakScan/pkg/http"
)

func TestFetchKiteQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "token key:secret" {
			t.Errorf("missing auth header, got %q", got)
		}
		if got := r.URL.Query().Get("i"); got != "NSE:INFY" {
			t.Errorf("unexpected instrument %q", got)
		}
		_, _ = w.Write([]byte(`{"status":"success","data":{"NSE:INFY":{"last_price":1520.5,"ohlc":{"open":1500,"high":1530,"low":1490,"close":1495}}}}`))
	}))
	defer srv.Close()

	f := NewFetcher(nil)
	p := Provider{
		Name:        "kite",
		Tag:         models.TagKite,
		URLTemplate: srv.URL + "/quote?i=NSE:{symbol}",
		Headers:     map[string]string{"Authorization": "token key:secret"},
	}
	q, err := f.Fetch(context.Background(), "INFY", p)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if q.LTP != 1520.5 || q.Source != "kite" || q.FetchedAt.IsZero() {
		t.Fatalf("unexpected quote %+v", q)
	}
}

func TestFetchErrorKinds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("s") {
		case "LIMIT":
			w.WriteHeader(http.StatusTooManyRequests)
		case "BAD":
			_, _ = w.Write([]byte(`not json`))
		case "SLOW":
			time.Sleep(200 * time.Millisecond)
			_, _ = w.Write([]byte(`{}`))
		}
	}))
	defer srv.Close()

	f := NewFetcher(nil)
	p := Provider{Name: "legacy", Tag: models.TagLegacy, URLTemplate: srv.URL + "/q?s={symbol}", Timeout: 50 * time.Millisecond}

	cases := []struct {
		symbol string
		kind   FetchErrorKind
	}{
		{"LIMIT", FetchHTTPStatus},
		{"BAD", FetchMalformed},
		{"SLOW", FetchTimeout},
	}
	for _, tc := range cases {
		_, err := f.Fetch(context.Background(), tc.symbol, p)
		var fe *FetchError
		if !errors.As(err, &fe) {
			t.Fatalf("%s: expected FetchError, got %v", tc.symbol, err)
		}
		if fe.Kind != tc.kind {
			t.Fatalf("%s: expected kind %s, got %s (%v)", tc.symbol, tc.kind, fe.Kind, err)
		}
	}

	_, err := f.Fetch(context.Background(), "LIMIT", p)
	if !IsRateLimited(err) {
		t.Fatalf("expected 429 to be reported as rate limited")
	}
}

func TestFetchWithCookieHandshake(t *testing.T) {
	var handshakes int32
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&handshakes, 1)
		http.SetCookie(w, &http.Cookie{Name: "nsit", Value: "abc"})
		http.SetCookie(w, &http.Cookie{Name: "nseappid", Value: "xyz"})
	})
	mux.HandleFunc("/api/quote-equity", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Cookie") != "nsit=abc; nseappid=xyz" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"info":{"symbol":"SBIN"},"priceInfo":{"lastPrice":812.3,"open":800,"intraDayHighLow":{"min":798,"max":815}}}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := xhttp.NewClient()
	sess := NewCookieSession(client, cache.NewMemoryCache(), srv.URL+"/", nil, time.Minute)
	f := NewFetcher(client)
	p := Provider{Name: "nse", Tag: models.TagNSE, URLTemplate: srv.URL + "/api/quote-equity?symbol={symbol}", Session: sess}

	for i := 0; i < 2; i++ {
		q, err := f.Fetch(context.Background(), "SBIN", p)
		if err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
		if q.LTP != 812.3 {
			t.Fatalf("unexpected ltp %v", q.LTP)
		}
	}
	if n := atomic.LoadInt32(&handshakes); n != 1 {
		t.Fatalf("expected a single cached handshake, got %d", n)
	}
}

func TestFetchIndices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"index":"NIFTY 50","last":22000,"open":21900,"high":22050,"low":21850}]}`))
	}))
	defer srv.Close()

	f := NewFetcher(nil)
	rows, err := f.FetchIndices(context.Background(), Provider{Name: "nse", Tag: models.TagNSEIndex, URLTemplate: srv.URL + "/api/allIndices"})
	if err != nil {
		t.Fatalf("fetch indices: %v", err)
	}
	if q := rows["NIFTY 50"]; q.LTP != 22000 || q.Source != "nse" {
		t.Fatalf("unexpected index quote %+v", q)
	}
}
