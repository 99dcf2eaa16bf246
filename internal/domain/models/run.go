package models

import "time"

// RunPath names a pipeline entry point.
type RunPath string

const (
	PathCapture  RunPath = "capture"
	PathClassify RunPath = "classify"
	PathRollover RunPath = "rollover"
)

// RunSummary is the JSON body returned by every trigger endpoint.
type RunSummary struct {
	Success    bool           `json:"success"`
	RunID      string         `json:"run_id"`
	Path       RunPath        `json:"path"`
	State      string         `json:"state"`
	Skipped    bool           `json:"skipped,omitempty"`
	Forced     bool           `json:"forced,omitempty"`
	Counts     map[string]int `json:"counts"`
	Errors     []string       `json:"errors"`
	StartedAt  time.Time      `json:"started_at"`
	DurationMS int64          `json:"duration_ms"`
}

// NewRunSummary starts a summary with empty counts and errors so both render as JSON collections.
func NewRunSummary(runID string, path RunPath, started time.Time) *RunSummary {
	return &RunSummary{
		Success:   true,
		RunID:     runID,
		Path:      path,
		Counts:    map[string]int{},
		Errors:    []string{},
		StartedAt: started,
	}
}

// AddError records a soft, non-fatal failure.
func (s *RunSummary) AddError(msg string) {
	s.Errors = append(s.Errors, msg)
}
