package usecase

import "errors"

var (
	// ErrNoDataFound means no captured bucket lies within the accepted drift of the target.
	ErrNoDataFound = errors.New("no data found")
	// ErrNoBaselines means the baseline set is empty, so nothing can be classified or replaced.
	ErrNoBaselines = errors.New("no baselines available")
	// ErrInvalidRange is returned for inverted or oversized history ranges.
	ErrInvalidRange = errors.New("invalid time range")
	// ErrNoHistorical means a past session was requested but no historical provider is configured.
	ErrNoHistorical = errors.New("no historical provider for a past session")
)
