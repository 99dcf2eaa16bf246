package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"BreakScan/internal/domain/models"
	"BreakScan/internal/repository"
	"BreakScan/internal/service/ratelimit"
	"BreakScan/internal/usecase"
	"BreakScan/pkg/cache"
)

var ist = time.FixedZone("IST", 5*3600+1800)

type fakeTrigger struct {
	gotPath  models.RunPath
	gotForce bool
	ctxErr   error
	err      error
}

func (f *fakeTrigger) Run(ctx context.Context, path models.RunPath, force bool) (*models.RunSummary, error) {
	f.gotPath, f.gotForce = path, force
	f.ctxErr = ctx.Err()
	sum := models.NewRunSummary("run-1", path, time.Now())
	sum.Forced = force
	if f.err != nil {
		sum.Success = false
		sum.AddError(f.err.Error())
	}
	return sum, f.err
}

func serve(e *echo.Echo, target string, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, header)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestCronRequiresBearer(t *testing.T) {
	trig := &fakeTrigger{}
	e := echo.New()
	NewCronHandler(trig, "secret", nil).RegisterRoutes(e)

	rec := serve(e, "/api/cron/capture", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("got %d", rec.Code)
	}
	var body map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body["success"] != false || body["error"] != "unauthorized" {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
	if trig.gotPath != "" {
		t.Fatalf("no work should run without auth")
	}
}

func TestCronRunsPathWithForce(t *testing.T) {
	trig := &fakeTrigger{}
	e := echo.New()
	NewCronHandler(trig, "secret", nil).RegisterRoutes(e)

	rec := serve(e, "/api/cron/rollover?force=true", "Bearer secret")
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rec.Code, rec.Body.String())
	}
	if trig.gotPath != models.PathRollover || !trig.gotForce {
		t.Fatalf("runner got %s force=%v", trig.gotPath, trig.gotForce)
	}
	var sum models.RunSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &sum); err != nil || !sum.Success || sum.RunID != "run-1" {
		t.Fatalf("bad summary %s (%v)", rec.Body.String(), err)
	}
}

func TestCronRunOutlivesCallerDisconnect(t *testing.T) {
	trig := &fakeTrigger{}
	e := echo.New()
	NewCronHandler(trig, "secret", nil).RegisterRoutes(e)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/cron/capture", nil).WithContext(ctx)
	req.Header.Set(echo.HeaderAuthorization, "Bearer secret")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if trig.gotPath != models.PathCapture {
		t.Fatalf("runner not called, got %q", trig.gotPath)
	}
	if trig.ctxErr != nil {
		t.Fatalf("run context was cancelled with the request: %v", trig.ctxErr)
	}
}

func TestCronRunLevelFailureIs500(t *testing.T) {
	trig := &fakeTrigger{err: usecase.ErrNoBaselines}
	e := echo.New()
	NewCronHandler(trig, "secret", nil).RegisterRoutes(e)

	rec := serve(e, "/api/cron/classify", "Bearer secret")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"success":false`) {
		t.Fatalf("body should carry success=false: %s", rec.Body.String())
	}
	if rec := serve(e, "/api/cron/nope", "Bearer secret"); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown path: got %d", rec.Code)
	}
}

func seededMarket(t *testing.T, c cache.Service, rl *ratelimit.Limiter) (*echo.Echo, *repository.MemoryStore) {
	t.Helper()
	store := repository.NewMemoryStore()
	b1 := time.Date(2024, 3, 5, 12, 36, 0, 0, ist)
	b2 := time.Date(2024, 3, 5, 12, 42, 0, 0, ist)
	err := store.UpsertSnapshots(context.Background(), []models.Snapshot{
		{Kind: models.KindEquity, Symbol: "INFY", Sector: "IT", Bucket: b1, LTP: 1500, PctChange: 0.004},
		{Kind: models.KindEquity, Symbol: "HDFCBANK", Sector: "Bank", Bucket: b1, LTP: 1400},
		{Kind: models.KindEquity, Symbol: "INFY", Sector: "IT", Bucket: b2, LTP: 1510},
	}, false)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	_ = store.ReplaceSignals(context.Background(), models.SignalSets{
		Breakouts:  []models.SignalRecord{{Symbol: "INFY", Verdict: models.VerdictBreakout, DistancePct: 1.234567}},
		Breakdowns: []models.SignalRecord{},
	})
	h := NewMarketHandler(
		usecase.NewReplayUseCase(store, 3, 0, 0),
		usecase.NewHistoryUseCase(store, store, 7*24*time.Hour),
		c, time.Minute, rl, ist, nil,
	)
	e := echo.New()
	h.RegisterRoutes(e)
	return e, store
}

func replayURL(at string) string {
	return "/api/replay?" + url.Values{"at": {at}}.Encode()
}

type envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func TestReplayNearestAndNoData(t *testing.T) {
	e, _ := seededMarket(t, nil, nil)

	rec := serve(e, replayURL("2024-03-05T12:37:00+05:30"), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rec.Code, rec.Body.String())
	}
	var env envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	var frame models.ReplayFrame
	if err := json.Unmarshal(env.Data, &frame); err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	if frame.Bucket.Minute() != 36 || len(frame.Snapshots) != 2 {
		t.Fatalf("unexpected frame %+v", frame)
	}

	rec = serve(e, replayURL("2024-03-05T12:39:00+05:30"), "")
	if rec.Code != http.StatusNotFound || !strings.Contains(rec.Body.String(), `"code":"no_data"`) {
		t.Fatalf("expected 404 no_data, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestReplayValidation(t *testing.T) {
	e, _ := seededMarket(t, nil, nil)
	if rec := serve(e, "/api/replay", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing at: got %d", rec.Code)
	}
	if rec := serve(e, replayURL("yesterday"), ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad at: got %d", rec.Code)
	}
	if rec := serve(e, replayURL("2024-03-05T12:37:00+05:30")+"&kind=bond", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad kind: got %d", rec.Code)
	}
}

func TestReplayServedFromCache(t *testing.T) {
	c := cache.NewMemoryCache()
	e, store := seededMarket(t, c, nil)
	target := replayURL("2024-03-05T12:37:00+05:30")
	if rec := serve(e, target, ""); rec.Code != http.StatusOK {
		t.Fatalf("first call: %d", rec.Code)
	}
	if _, err := store.DeleteSnapshotsBefore(context.Background(), time.Date(2030, 1, 1, 0, 0, 0, 0, ist)); err != nil {
		t.Fatalf("wipe: %v", err)
	}
	if rec := serve(e, target, ""); rec.Code != http.StatusOK {
		t.Fatalf("second call should hit cache, got %d", rec.Code)
	}
}

func TestHistoryAndSignals(t *testing.T) {
	e, _ := seededMarket(t, nil, nil)
	q := url.Values{
		"from":   {"2024-03-05T12:00:00+05:30"},
		"to":     {"2024-03-05T13:00:00+05:30"},
		"sector": {"IT"},
	}
	rec := serve(e, "/api/history?"+q.Encode(), "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"total":2`) {
		t.Fatalf("history: %d %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"pct_change":0.004`) {
		t.Fatalf("small moves must survive rendering: %s", rec.Body.String())
	}

	q.Set("from", "2024-03-06T12:00:00+05:30")
	if rec := serve(e, "/api/history?"+q.Encode(), ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("inverted range: got %d", rec.Code)
	}

	rec = serve(e, "/api/signals", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"breakouts":[{"symbol":"INFY"`) {
		t.Fatalf("signals: %d %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"distance_pct":1.2346`) {
		t.Fatalf("distance should render to four places: %s", rec.Body.String())
	}
}

func TestReadEndpointsRateLimited(t *testing.T) {
	e, _ := seededMarket(t, nil, ratelimit.New(1, 0.001))
	if rec := serve(e, "/api/signals", ""); rec.Code != http.StatusOK {
		t.Fatalf("first: %d", rec.Code)
	}
	if rec := serve(e, "/api/signals", ""); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second: %d", rec.Code)
	}
}

type failingStore struct{}

func (failingStore) Health(context.Context) error { return errors.New("database is locked") }

func TestHealthz(t *testing.T) {
	e := echo.New()
	NewHealthHandler(repository.NewMemoryStore()).RegisterRoutes(e)
	if rec := serve(e, "/healthz", ""); rec.Code != http.StatusOK {
		t.Fatalf("healthy: %d", rec.Code)
	}
	e = echo.New()
	NewHealthHandler(failingStore{}).RegisterRoutes(e)
	if rec := serve(e, "/healthz", ""); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("unhealthy: %d", rec.Code)
	}
}
