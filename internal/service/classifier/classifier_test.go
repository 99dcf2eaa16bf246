package classifier

import (
	"errors"
	"testing"
	"time"

	"BreakScan/internal/domain/models"
)

func TestClassifyBoundaries(t *testing.T) {
	b := models.DailyBaseline{Symbol: "INFY", High: 100, Low: 90}
	cases := []struct {
		ltp     float64
		verdict models.Verdict
		dist    float64
	}{
		{100.00, models.VerdictNone, 0},
		{100.01, models.VerdictBreakout, 0.01},
		{100.004, models.VerdictBreakout, 0.004},
		{110, models.VerdictBreakout, 10},
		{90, models.VerdictNone, 0},
		{89.1, models.VerdictBreakdown, 1},
		{95, models.VerdictNone, 0},
	}
	for _, tc := range cases {
		v, d := Classify(models.Quote{Symbol: "INFY", LTP: tc.ltp}, b)
		if v != tc.verdict || d != tc.dist {
			t.Fatalf("ltp %v: got %s %.4f, want %s %.4f", tc.ltp, v, d, tc.verdict, tc.dist)
		}
	}
}

func TestClassifyAllDisjointAndSkipsMissingBaseline(t *testing.T) {
	at := time.Date(2024, 3, 5, 11, 0, 0, 0, time.UTC)
	quotes := map[string]models.Quote{
		"UP":   {Symbol: "UP", LTP: 105},
		"UP2":  {Symbol: "UP2", LTP: 120},
		"DOWN": {Symbol: "DOWN", LTP: 45},
		"FLAT": {Symbol: "FLAT", LTP: 50},
		"NEW":  {Symbol: "NEW", LTP: 10},
	}
	baselines := map[string]models.DailyBaseline{
		"UP":   {Symbol: "UP", Sector: "IT", High: 100, Low: 90},
		"UP2":  {Symbol: "UP2", Sector: "IT", High: 100, Low: 90},
		"DOWN": {Symbol: "DOWN", Sector: "Bank", High: 60, Low: 50},
		"FLAT": {Symbol: "FLAT", High: 50, Low: 50},
	}
	run := ClassifyAll(quotes, baselines, at)

	if len(run.Sets.Breakouts) != 2 || run.Sets.Breakouts[0].Symbol != "UP2" {
		t.Fatalf("breakouts should be sorted by distance: %+v", run.Sets.Breakouts)
	}
	if len(run.Sets.Breakdowns) != 1 || run.Sets.Breakdowns[0].Extreme != 50 || run.Sets.Breakdowns[0].DistancePct != 10 {
		t.Fatalf("unexpected breakdowns %+v", run.Sets.Breakdowns)
	}
	seen := map[string]int{}
	for _, r := range run.Sets.Breakouts {
		seen[r.Symbol]++
	}
	for _, r := range run.Sets.Breakdowns {
		seen[r.Symbol]++
	}
	for s, n := range seen {
		if n > 1 {
			t.Fatalf("%s appears in both sets", s)
		}
	}
	if run.Neutral != 1 {
		t.Fatalf("expected FLAT to be neutral, got %d", run.Neutral)
	}
	if len(run.Skipped) != 1 || !errors.Is(run.Skipped[0], ErrNoBaseline) {
		t.Fatalf("expected NEW to be skipped for missing baseline, got %v", run.Skipped)
	}
	if !run.Sets.Breakouts[0].ClassifiedAt.Equal(at) || run.Sets.Breakouts[0].Sector != "IT" {
		t.Fatalf("record missing metadata %+v", run.Sets.Breakouts[0])
	}
}
