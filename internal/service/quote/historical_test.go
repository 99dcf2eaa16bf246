package quote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"BreakScan/internal/domain/models"
	xhttp "BreakScan/pkg/http"
)

var ist = time.FixedZone("IST", 5*3600+1800)

func TestChartDailyCandle(t *testing.T) {
	day := time.Date(2024, 3, 5, 0, 0, 0, 0, ist)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "INFY.NS") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		ts := day.Add(9*time.Hour + 15*time.Minute).Unix()
		_, _ = w.Write([]byte(`{"chart":{"result":[{"timestamp":[` + strconv.FormatInt(ts, 10) + `],"indicators":{"quote":[{"open":[1500],"high":[1530],"low":[1490],"close":[1520],"volume":[1000]}]}}]}}`))
	}))
	defer srv.Close()

	h := NewChartHistorical(xhttp.NewClient(), srv.URL, ".NS", time.Second, ist)
	q, err := h.DailyCandle(context.Background(), models.Instrument{Symbol: "INFY"}, day)
	if err != nil {
		t.Fatalf("candle: %v", err)
	}
	if q.High != 1530 || q.Low != 1490 || q.LTP != 1520 || q.Source != "chart" {
		t.Fatalf("unexpected candle %+v", q)
	}
}

func TestChartDailyCandleTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	h := NewChartHistorical(xhttp.NewClient(), srv.URL, ".NS", 50*time.Millisecond, ist)
	start := time.Now()
	_, err := h.DailyCandle(context.Background(), models.Instrument{Symbol: "INFY"}, time.Now())
	if err == nil {
		t.Fatalf("expected timeout error")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("per-call timeout not applied, took %s", elapsed)
	}
}
