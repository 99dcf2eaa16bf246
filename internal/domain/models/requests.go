package models

// TriggerRequest is bound from the query string of a trigger endpoint.
type TriggerRequest struct {
	Force bool `query:"force"`
}

// ReplayRequest is bound from /api/replay.
type ReplayRequest struct {
	Kind     string `query:"kind" default:"equity" validate:"oneof=equity index"`
	At       string `query:"at" validate:"required"`
	Symbols  string `query:"symbols"`
	WindowS  int    `query:"window_s" validate:"gte=0,lte=86400"`
	MaxDrift int    `query:"max_drift_s" validate:"gte=0,lte=86400"`
}

// HistoryRequest is bound from /api/history.
type HistoryRequest struct {
	Kind    string `query:"kind" default:"equity" validate:"oneof=equity index"`
	From    string `query:"from" validate:"required"`
	To      string `query:"to" validate:"required"`
	Symbols string `query:"symbols"`
	Sector  string `query:"sector"`
}
