package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"BreakScan/internal/domain/models"
	domrepo "BreakScan/internal/domain/repository"
	"BreakScan/internal/repository"
	"BreakScan/internal/service/batch"
	"BreakScan/internal/service/market"
	"BreakScan/internal/service/quote"
	"BreakScan/internal/universe"
)

func noSleep(context.Context, time.Duration) error { return nil }

type fakeFetcher struct {
	byProvider map[string]func(symbol string) (models.Quote, error)
}

func (f *fakeFetcher) Fetch(_ context.Context, symbol string, p quote.Provider) (models.Quote, error) {
	fn, ok := f.byProvider[p.Name]
	if !ok {
		return models.Quote{}, fmt.Errorf("%s: not configured", p.Name)
	}
	return fn(symbol)
}

type fakeHistorical struct {
	candles map[string]models.Quote
	mu      sync.Mutex
	days    []time.Time
}

func (h *fakeHistorical) Name() string { return "fake_historical" }

func (h *fakeHistorical) DailyCandle(_ context.Context, inst models.Instrument, day time.Time) (models.Quote, error) {
	h.mu.Lock()
	h.days = append(h.days, day)
	h.mu.Unlock()
	q, ok := h.candles[inst.Symbol]
	if !ok {
		return models.Quote{}, quote.ErrNoCandle
	}
	return q, nil
}

type recordingArchiver struct {
	days []string
	fail error
}

func (a *recordingArchiver) Archive(_ context.Context, day time.Time, snaps []models.Snapshot) (string, error) {
	if a.fail != nil {
		return "", a.fail
	}
	a.days = append(a.days, fmt.Sprintf("%s:%d", day.Format(dayLayout), len(snaps)))
	return "file:///tmp/" + day.Format(dayLayout), nil
}

func testCalendar(t *testing.T) *market.Calendar {
	t.Helper()
	cal, err := market.NewCalendar("Asia/Kolkata", "09:15", "15:30", 10*time.Minute, nil)
	if err != nil {
		t.Fatalf("new calendar: %v", err)
	}
	return cal
}

func at(cal *market.Calendar, day, hh, mm, ss int) time.Time {
	return time.Date(2024, 3, day, hh, mm, ss, 0, cal.Location())
}

func testUniverse(n int) *universe.Universe {
	u := &universe.Universe{}
	for i := 0; i < n; i++ {
		sector := "IT"
		if i%2 == 1 {
			sector = "Bank"
		}
		u.Instruments = append(u.Instruments, models.Instrument{Symbol: fmt.Sprintf("SYM%02d", i), Sector: sector, Exchange: "NSE"})
	}
	return u
}

func testSources(f quote.QuoteFetcher, hist ...quote.HistoricalProvider) Sources {
	return Sources{
		Orchestrator: batch.New(batch.WithSleep(noSleep)),
		Resolver:     quote.NewResolver(f, quote.WithSleep(noSleep)),
		Live:         []quote.Provider{{Name: "primary"}, {Name: "legacy"}},
		Historical:   hist,
		Batch:        batch.Params{BatchSize: 5, MaxParallelism: 5},
	}
}

func testFactory(cal *market.Calendar, u *universe.Universe, now time.Time, loads *int) *InvocationFactory {
	f := NewInvocationFactory(cal, func() (*universe.Universe, error) {
		if loads != nil {
			*loads++
		}
		return u, nil
	}, nil)
	f.SetClock(func() time.Time { return now })
	return f
}

func priced(ltp float64) func(string) (models.Quote, error) {
	return func(symbol string) (models.Quote, error) {
		return models.Quote{Symbol: symbol, LTP: ltp, Open: ltp - 1, High: ltp + 2, Low: ltp - 2, Close: ltp, Source: "primary"}, nil
	}
}

func candles(u *universe.Universe, close float64) map[string]models.Quote {
	out := make(map[string]models.Quote, len(u.Instruments))
	for _, in := range u.Instruments {
		out[in.Symbol] = models.Quote{Symbol: in.Symbol, Open: close - 5, High: close + 10, Low: close - 10, Close: close, LTP: close, Source: "fake_historical"}
	}
	return out
}

func TestCapturePartialFailure(t *testing.T) {
	cal := testCalendar(t)
	u := testUniverse(20)
	bad := map[string]bool{"SYM03": true, "SYM07": true, "SYM15": true}
	f := &fakeFetcher{byProvider: map[string]func(string) (models.Quote, error){
		"primary": func(symbol string) (models.Quote, error) {
			if bad[symbol] {
				return models.Quote{}, errors.New("upstream down")
			}
			return priced(100)(symbol)
		},
		"legacy": func(symbol string) (models.Quote, error) {
			return models.Quote{Symbol: symbol}, nil
		},
	}}
	store := repository.NewMemoryStore()
	uc := NewCaptureUseCase(testSources(f), store, domrepo.NoopMetrics{}, 3, false)

	factory := testFactory(cal, u, at(cal, 5, 12, 41, 37), nil)
	inv, err := factory.Begin(models.PathCapture, false)
	if err != nil || inv.Summary.Skipped {
		t.Fatalf("begin: %v skipped=%v", err, inv.Summary.Skipped)
	}
	if err := uc.Run(context.Background(), inv); err != nil {
		t.Fatalf("run: %v", err)
	}
	sum := inv.Summary
	if sum.Counts["equities"] != 17 || sum.Counts["failed"] != 3 || len(sum.Errors) != 3 {
		t.Fatalf("unexpected summary %+v", sum)
	}

	bucket := at(cal, 5, 12, 39, 0)
	got, err := store.QuerySnapshots(context.Background(), bucket, bucket, models.SnapshotFilter{Kind: models.KindEquity})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 17 {
		t.Fatalf("expected 17 snapshots at 12:39, got %d", len(got))
	}
	if got[0].Sector == "" || got[0].PctChange == 0 {
		t.Fatalf("snapshot missing sector or pct change: %+v", got[0])
	}
}

func TestCaptureIgnoreDuplicatesKeepsFirstWrite(t *testing.T) {
	cal := testCalendar(t)
	u := testUniverse(2)
	ltp := 100.0
	f := &fakeFetcher{byProvider: map[string]func(string) (models.Quote, error){
		"primary": func(symbol string) (models.Quote, error) { return priced(ltp)(symbol) },
	}}
	store := repository.NewMemoryStore()
	uc := NewCaptureUseCase(testSources(f), store, domrepo.NoopMetrics{}, 3, true)
	factory := testFactory(cal, u, at(cal, 5, 12, 40, 0), nil)

	for _, price := range []float64{100, 105} {
		ltp = price
		inv, _ := factory.Begin(models.PathCapture, false)
		if err := uc.Run(context.Background(), inv); err != nil {
			t.Fatalf("run: %v", err)
		}
	}
	bucket := at(cal, 5, 12, 39, 0)
	got, _ := store.QuerySnapshots(context.Background(), bucket, bucket, models.SnapshotFilter{})
	if len(got) != 2 || got[0].LTP != 100 {
		t.Fatalf("first write should win, got %+v", got)
	}
}

func TestRunnerGatesByMarketState(t *testing.T) {
	cal := testCalendar(t)
	u := testUniverse(3)
	loads := 0
	f := &fakeFetcher{byProvider: map[string]func(string) (models.Quote, error){"primary": priced(50)}}
	store := repository.NewMemoryStore()
	factory := testFactory(cal, u, at(cal, 5, 11, 0, 0), &loads)
	hist := &fakeHistorical{candles: candles(u, 60)}
	rollover := NewRolloverUseCase(testSources(f, hist), cal, store, store, nil, domrepo.NoopMetrics{}, 0)
	r := newRunner(factory, map[models.RunPath]PathRunner{models.PathRollover: rollover}, nil)

	sum, err := r.Run(context.Background(), models.PathRollover, false)
	if err != nil {
		t.Fatalf("gated run should not fail: %v", err)
	}
	if !sum.Skipped || sum.State != string(market.StateTrading) || loads != 0 {
		t.Fatalf("expected skip without loading universe, got %+v loads=%d", sum, loads)
	}
	if b, _ := store.Baselines(context.Background()); len(b) != 0 {
		t.Fatalf("gated run wrote baselines")
	}

	sum, err = r.Run(context.Background(), models.PathRollover, true)
	if err != nil {
		t.Fatalf("forced run: %v", err)
	}
	if sum.Skipped || !sum.Forced || sum.Counts["baselines"] != 3 {
		t.Fatalf("forced run did not execute: %+v", sum)
	}
}

func TestClassifyFailsWithoutBaselines(t *testing.T) {
	cal := testCalendar(t)
	f := &fakeFetcher{byProvider: map[string]func(string) (models.Quote, error){"primary": priced(50)}}
	store := repository.NewMemoryStore()
	factory := testFactory(cal, testUniverse(3), at(cal, 5, 11, 0, 0), nil)
	classify := NewClassifyUseCase(testSources(f), store, store, nil, domrepo.NoopMetrics{})
	r := newRunner(factory, map[models.RunPath]PathRunner{models.PathClassify: classify}, nil)

	sum, err := r.Run(context.Background(), models.PathClassify, false)
	if !errors.Is(err, ErrNoBaselines) {
		t.Fatalf("expected ErrNoBaselines, got %v", err)
	}
	if sum.Success || len(sum.Errors) == 0 {
		t.Fatalf("summary should report failure: %+v", sum)
	}
}

func TestClassifyReplacesSignals(t *testing.T) {
	cal := testCalendar(t)
	u := testUniverse(3)
	prices := map[string]float64{"SYM00": 110, "SYM01": 80, "SYM02": 95}
	f := &fakeFetcher{byProvider: map[string]func(string) (models.Quote, error){
		"primary": func(symbol string) (models.Quote, error) { return priced(prices[symbol])(symbol) },
	}}
	store := repository.NewMemoryStore()
	var rows []models.DailyBaseline
	for _, in := range u.Instruments {
		rows = append(rows, models.DailyBaseline{Symbol: in.Symbol, Sector: in.Sector, High: 100, Low: 90})
	}
	if err := store.ReplaceBaselines(context.Background(), rows); err != nil {
		t.Fatalf("seed: %v", err)
	}
	factory := testFactory(cal, u, at(cal, 5, 11, 0, 0), nil)
	uc := NewClassifyUseCase(testSources(f), store, store, repository.NoopSignalPublisher{}, domrepo.NoopMetrics{})

	inv, _ := factory.Begin(models.PathClassify, false)
	if err := uc.Run(context.Background(), inv); err != nil {
		t.Fatalf("run: %v", err)
	}
	sets, _ := store.Signals(context.Background())
	if len(sets.Breakouts) != 1 || sets.Breakouts[0].Symbol != "SYM00" || sets.Breakouts[0].DistancePct != 10 {
		t.Fatalf("unexpected breakouts %+v", sets.Breakouts)
	}
	if len(sets.Breakdowns) != 1 || sets.Breakdowns[0].Symbol != "SYM01" {
		t.Fatalf("unexpected breakdowns %+v", sets.Breakdowns)
	}
	if inv.Summary.Counts["neutral"] != 1 {
		t.Fatalf("expected one neutral, got %+v", inv.Summary.Counts)
	}
}

func TestRolloverIdempotentWithHistoricalFallback(t *testing.T) {
	cal := testCalendar(t)
	u := testUniverse(3)
	f := &fakeFetcher{byProvider: map[string]func(string) (models.Quote, error){
		"primary": func(symbol string) (models.Quote, error) {
			if symbol == "SYM02" {
				return models.Quote{}, errors.New("timeout")
			}
			return priced(200)(symbol)
		},
	}}
	hist := &fakeHistorical{candles: map[string]models.Quote{
		"SYM02": {Symbol: "SYM02", Open: 10, High: 12, Low: 9, Close: 11, LTP: 11, Source: "fake_historical"},
	}}
	store := repository.NewMemoryStore()
	factory := testFactory(cal, u, at(cal, 5, 15, 25, 0), nil)
	uc := NewRolloverUseCase(testSources(f, hist), cal, store, store, nil, domrepo.NoopMetrics{}, 0)

	var first []models.DailyBaseline
	for i := 0; i < 2; i++ {
		inv, err := factory.Begin(models.PathRollover, false)
		if err != nil || inv.Summary.Skipped {
			t.Fatalf("begin: %v %+v", err, inv.Summary)
		}
		if err := uc.Run(context.Background(), inv); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		got, _ := store.Baselines(context.Background())
		if len(got) != 3 {
			t.Fatalf("expected 3 baselines, got %d", len(got))
		}
		if i == 0 {
			first = got
			continue
		}
		for j := range got {
			if got[j] != first[j] {
				t.Fatalf("second rollover changed %s: %+v vs %+v", got[j].Symbol, got[j], first[j])
			}
		}
	}
	if first[2].Symbol != "SYM02" || first[2].High != 12 || first[2].Source != "fake_historical" {
		t.Fatalf("historical fallback not applied: %+v", first[2])
	}
	if want := at(cal, 5, 0, 0, 0); !first[0].CapturedOn.Equal(want) || !hist.days[0].Equal(want) {
		t.Fatalf("baseline day = %s, want %s", first[0].CapturedOn, want)
	}
}

func TestForcedRolloverForPastSessionUsesCandles(t *testing.T) {
	cal := testCalendar(t)
	u := testUniverse(3)
	f := &fakeFetcher{byProvider: map[string]func(string) (models.Quote, error){"primary": priced(200)}}
	hist := &fakeHistorical{candles: candles(u, 100)}
	delete(hist.candles, "SYM02")
	store := repository.NewMemoryStore()
	// Wednesday 09:20: the session to roll over is Tuesday's.
	factory := testFactory(cal, u, at(cal, 6, 9, 20, 0), nil)
	uc := NewRolloverUseCase(testSources(f, hist), cal, store, store, nil, domrepo.NoopMetrics{}, 0)

	inv, _ := factory.Begin(models.PathRollover, true)
	if err := uc.Run(context.Background(), inv); err != nil {
		t.Fatalf("run: %v", err)
	}
	got, _ := store.Baselines(context.Background())
	if len(got) != 2 {
		t.Fatalf("expected 2 baselines, got %+v", got)
	}
	tuesday := at(cal, 5, 0, 0, 0)
	for _, b := range got {
		if b.Source != "fake_historical" || b.High != 110 || b.Low != 90 || !b.CapturedOn.Equal(tuesday) {
			t.Fatalf("baseline mixes in live data: %+v", b)
		}
	}
	if inv.Summary.Counts["failed"] != 1 || inv.Summary.Counts["historical"] != 2 {
		t.Fatalf("unexpected counts %+v", inv.Summary.Counts)
	}
}

func TestForcedRolloverForPastSessionNeedsHistorical(t *testing.T) {
	cal := testCalendar(t)
	f := &fakeFetcher{byProvider: map[string]func(string) (models.Quote, error){"primary": priced(200)}}
	store := repository.NewMemoryStore()
	_ = store.ReplaceBaselines(context.Background(), []models.DailyBaseline{{Symbol: "SYM00", High: 1, Low: 1}})
	factory := testFactory(cal, testUniverse(2), at(cal, 6, 9, 20, 0), nil)
	uc := NewRolloverUseCase(testSources(f), cal, store, store, nil, domrepo.NoopMetrics{}, 0)

	inv, _ := factory.Begin(models.PathRollover, true)
	if err := uc.Run(context.Background(), inv); !errors.Is(err, ErrNoHistorical) {
		t.Fatalf("expected ErrNoHistorical, got %v", err)
	}
	got, _ := store.Baselines(context.Background())
	if len(got) != 1 || got[0].Symbol != "SYM00" {
		t.Fatalf("old set should survive, got %+v", got)
	}
}

func TestRolloverWithNothingAcquiredKeepsOldSet(t *testing.T) {
	cal := testCalendar(t)
	f := &fakeFetcher{byProvider: map[string]func(string) (models.Quote, error){
		"primary": func(string) (models.Quote, error) { return models.Quote{}, errors.New("down") },
	}}
	store := repository.NewMemoryStore()
	old := []models.DailyBaseline{{Symbol: "SYM00", High: 1, Low: 1}}
	_ = store.ReplaceBaselines(context.Background(), old)
	factory := testFactory(cal, testUniverse(2), at(cal, 5, 15, 25, 0), nil)
	uc := NewRolloverUseCase(testSources(f), cal, store, store, nil, domrepo.NoopMetrics{}, 0)

	inv, _ := factory.Begin(models.PathRollover, false)
	if err := uc.Run(context.Background(), inv); !errors.Is(err, ErrNoBaselines) {
		t.Fatalf("expected ErrNoBaselines, got %v", err)
	}
	got, _ := store.Baselines(context.Background())
	if len(got) != 1 || got[0].Symbol != "SYM00" {
		t.Fatalf("old set should survive, got %+v", got)
	}
}

func TestRolloverArchivesBeforePruning(t *testing.T) {
	cal := testCalendar(t)
	f := &fakeFetcher{byProvider: map[string]func(string) (models.Quote, error){"primary": priced(10)}}
	oldBucket := time.Date(2024, 2, 28, 12, 0, 0, 0, cal.Location())
	newBucket := at(cal, 5, 12, 0, 0)

	for _, tc := range []struct {
		name       string
		archiver   *recordingArchiver
		wantLeft   int
		wantPruned int
	}{
		{"archived", &recordingArchiver{}, 1, 1},
		{"archive fails", &recordingArchiver{fail: errors.New("disk full")}, 2, 0},
	} {
		store := repository.NewMemoryStore()
		_ = store.UpsertSnapshots(context.Background(), []models.Snapshot{
			{Kind: models.KindEquity, Symbol: "SYM00", Bucket: oldBucket, LTP: 1},
			{Kind: models.KindEquity, Symbol: "SYM00", Bucket: newBucket, LTP: 2},
		}, false)
		factory := testFactory(cal, testUniverse(1), at(cal, 5, 15, 25, 0), nil)
		uc := NewRolloverUseCase(testSources(f), cal, store, store, tc.archiver, domrepo.NoopMetrics{}, 1)

		inv, _ := factory.Begin(models.PathRollover, false)
		if err := uc.Run(context.Background(), inv); err != nil {
			t.Fatalf("%s: run: %v", tc.name, err)
		}
		left, _ := store.QuerySnapshots(context.Background(), time.Unix(0, 0), newBucket, models.SnapshotFilter{})
		if len(left) != tc.wantLeft || inv.Summary.Counts["pruned"] != tc.wantPruned {
			t.Fatalf("%s: left=%d pruned=%d", tc.name, len(left), inv.Summary.Counts["pruned"])
		}
		if tc.archiver.fail == nil && (len(tc.archiver.days) != 1 || tc.archiver.days[0] != "2024-02-28:1") {
			t.Fatalf("%s: archived %v", tc.name, tc.archiver.days)
		}
	}
}

func TestReplayTolerance(t *testing.T) {
	cal := testCalendar(t)
	store := repository.NewMemoryStore()
	b1, b2 := at(cal, 5, 12, 36, 0), at(cal, 5, 12, 42, 0)
	_ = store.UpsertSnapshots(context.Background(), []models.Snapshot{
		{Kind: models.KindEquity, Symbol: "INFY", Bucket: b1, LTP: 1},
		{Kind: models.KindEquity, Symbol: "TCS", Bucket: b1, LTP: 2},
		{Kind: models.KindEquity, Symbol: "INFY", Bucket: b2, LTP: 3},
		{Kind: models.KindIndex, Symbol: "NIFTY 50", Bucket: b1, LTP: 4},
	}, false)
	uc := NewReplayUseCase(store, 3, 0, 0)

	if _, err := uc.Resolve(context.Background(), models.ReplayQuery{Target: at(cal, 5, 12, 39, 0)}); !errors.Is(err, ErrNoDataFound) {
		t.Fatalf("12:39 should be out of tolerance, got %v", err)
	}
	frame, err := uc.Resolve(context.Background(), models.ReplayQuery{Target: at(cal, 5, 12, 37, 0)})
	if err != nil {
		t.Fatalf("12:37: %v", err)
	}
	if !frame.Bucket.Equal(b1) || len(frame.Snapshots) != 2 || frame.Drift != "1m0s" {
		t.Fatalf("unexpected frame %+v", frame)
	}

	wide := NewReplayUseCase(store, 3, 0, 5*time.Minute)
	frame, err = wide.Resolve(context.Background(), models.ReplayQuery{Target: at(cal, 5, 12, 39, 0)})
	if err != nil || !frame.Bucket.Equal(b1) {
		t.Fatalf("tie should resolve to the earlier bucket, got %+v %v", frame, err)
	}
	frame, err = wide.Resolve(context.Background(), models.ReplayQuery{Kind: models.KindIndex, Target: at(cal, 5, 12, 37, 0)})
	if err != nil || len(frame.Snapshots) != 1 || frame.Snapshots[0].Symbol != "NIFTY 50" {
		t.Fatalf("index replay: %+v %v", frame, err)
	}
}

func TestHistoryRejectsBadRanges(t *testing.T) {
	store := repository.NewMemoryStore()
	uc := NewHistoryUseCase(store, store, 24*time.Hour)
	now := time.Now()
	if _, err := uc.Query(context.Background(), now, now.Add(-time.Minute), models.SnapshotFilter{}); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("inverted range: %v", err)
	}
	if _, err := uc.Query(context.Background(), now.Add(-48*time.Hour), now, models.SnapshotFilter{}); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("oversized range: %v", err)
	}
	got, err := uc.Query(context.Background(), now.Add(-time.Hour), now, models.SnapshotFilter{})
	if err != nil || len(got) != 0 {
		t.Fatalf("empty query: %v %v", got, err)
	}
}
