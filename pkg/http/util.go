package http

import (
	"time"

	xutil "BreakScan/pkg/util"
)

// ParseIntDefault parses string to int or returns default if empty/invalid.
func ParseIntDefault(s string, def int) int { return xutil.ParseIntDefault(s, def) }

// ParseTimeIn parses RFC3339, unix seconds, or wall-clock layouts in loc.
func ParseTimeIn(s string, loc *time.Location) (time.Time, bool) { return xutil.ParseTimeIn(s, loc) }

// SplitSymbols turns "tcs, infy" into ["TCS", "INFY"].
func SplitSymbols(s string) []string { return xutil.SplitCSV(s) }
