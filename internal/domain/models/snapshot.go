package models

import "time"

// InstrumentKind separates equities from exchange indices in storage and replay.
type InstrumentKind string

const (
	KindEquity InstrumentKind = "equity"
	KindIndex  InstrumentKind = "index"
)

// Snapshot is a normalized quote pinned to its capture bucket.
type Snapshot struct {
	Kind       InstrumentKind `json:"kind"`
	Symbol     string         `json:"symbol"`
	Sector     string         `json:"sector,omitempty"`
	Bucket     time.Time      `json:"bucket"`
	LTP        float64        `json:"ltp"`
	Open       float64        `json:"open"`
	High       float64        `json:"high"`
	Low        float64        `json:"low"`
	Close      float64        `json:"close"`
	Volume     int64          `json:"volume"`
	PctChange  float64        `json:"pct_change"`
	Source     string         `json:"source"`
	CapturedAt time.Time      `json:"captured_at"`
}

// SnapshotFilter narrows a historical query.
type SnapshotFilter struct {
	Kind    InstrumentKind
	Symbols []string
	Sector  string
}

// ReplayQuery asks for the captured state closest to Target.
type ReplayQuery struct {
	Kind   InstrumentKind
	Target time.Time
	// Window is the half-width of the range read from the store.
	Window time.Duration
	// MaxDrift is the largest accepted distance between Target and the chosen bucket.
	MaxDrift time.Duration
	Symbols  []string
}

// ReplayFrame is every snapshot captured in the bucket nearest to the requested time.
type ReplayFrame struct {
	Kind      InstrumentKind `json:"kind"`
	Requested time.Time      `json:"requested"`
	Bucket    time.Time      `json:"bucket"`
	Drift     string         `json:"drift"`
	Snapshots []Snapshot     `json:"snapshots"`
}
