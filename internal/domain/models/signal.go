package models

import "time"

// Verdict is the classifier outcome for a single symbol.
type Verdict string

const (
	VerdictNone      Verdict = "none"
	VerdictBreakout  Verdict = "breakout"
	VerdictBreakdown Verdict = "breakdown"
)

// SignalRecord is a breakout or breakdown entry. Extreme is the baseline level that was crossed.
type SignalRecord struct {
	Symbol       string    `json:"symbol"`
	Sector       string    `json:"sector"`
	Verdict      Verdict   `json:"verdict"`
	LTP          float64   `json:"ltp"`
	Extreme      float64   `json:"extreme"`
	DistancePct  float64   `json:"distance_pct"`
	ClassifiedAt time.Time `json:"classified_at"`
}

// SignalSets is the output of one classification run.
type SignalSets struct {
	Breakouts  []SignalRecord `json:"breakouts"`
	Breakdowns []SignalRecord `json:"breakdowns"`
}
