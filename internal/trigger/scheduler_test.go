package trigger

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"BreakScan/internal/domain/models"
	xhttp "BreakScan/pkg/http"
)

func TestCallerSendsBearerAndForce(t *testing.T) {
	var gotAuth, gotForce, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotForce = r.URL.Query().Get("force")
		gotPath = r.URL.Path
		sum := models.NewRunSummary("run-9", models.PathCapture, time.Now())
		_ = json.NewEncoder(w).Encode(sum)
	}))
	defer srv.Close()

	c := NewCaller(xhttp.NewClient(), srv.URL+"/", "s3cret")
	sum, err := c.Call(context.Background(), models.PathCapture, true)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if gotAuth != "Bearer s3cret" || gotForce != "true" || gotPath != "/api/cron/capture" {
		t.Fatalf("request auth=%q force=%q path=%q", gotAuth, gotForce, gotPath)
	}
	if sum.RunID != "run-9" {
		t.Fatalf("summary not decoded: %+v", sum)
	}
}

func TestCallerKeepsSummaryOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sum := models.NewRunSummary("run-5", models.PathClassify, time.Now())
		sum.Success = false
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(sum)
	}))
	defer srv.Close()

	sum, err := NewCaller(xhttp.NewClient(), srv.URL, "x").Call(context.Background(), models.PathClassify, false)
	var se *xhttp.StatusError
	if !errors.As(err, &se) || se.Code != http.StatusInternalServerError {
		t.Fatalf("expected status error, got %v", err)
	}
	if sum == nil || sum.RunID != "run-5" || sum.Success {
		t.Fatalf("summary should survive a 500: %+v", sum)
	}
}

func TestRegisterValidatesPathsAndSpecs(t *testing.T) {
	s := NewScheduler(NewCaller(xhttp.NewClient(), "http://127.0.0.1:1", ""), time.UTC, time.Second, nil)
	if err := s.Register(map[string]string{"capture": "*/3 9-15 * * 1-5", "rollover": "25 15 * * 1-5"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if s.Entries() != 2 {
		t.Fatalf("expected 2 entries, got %d", s.Entries())
	}
	if err := s.Register(map[string]string{"backfill": "* * * * *"}); err == nil {
		t.Fatalf("unknown path should fail")
	}
	if err := s.Register(map[string]string{"classify": "every minute"}); err == nil {
		t.Fatalf("bad spec should fail")
	}
}
