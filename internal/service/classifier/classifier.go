package classifier

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"BreakScan/internal/domain/models"

	"github.com/shopspring/decimal"
)

// ErrNoBaseline marks a symbol that cannot be classified because no baseline row exists.
var ErrNoBaseline = errors.New("no baseline")

// DataIntegrityError reports a live quote without a matching baseline.
type DataIntegrityError struct {
	Symbol string
}

func (e *DataIntegrityError) Error() string { return fmt.Sprintf("%s: %v", e.Symbol, ErrNoBaseline) }

func (e *DataIntegrityError) Unwrap() error { return ErrNoBaseline }

// Classify compares the live price with the baseline extremes. Both comparisons are
// strict, so a price sitting exactly on an extreme is VerdictNone. The returned
// distance is a non-negative, unrounded percentage.
func Classify(q models.Quote, b models.DailyBaseline) (models.Verdict, float64) {
	ltp := decimal.NewFromFloat(q.LTP)
	high := decimal.NewFromFloat(b.High)
	low := decimal.NewFromFloat(b.Low)

	switch {
	case b.High > 0 && ltp.GreaterThan(high):
		return models.VerdictBreakout, pct(ltp.Sub(high), high)
	case b.Low > 0 && ltp.LessThan(low):
		return models.VerdictBreakdown, pct(low.Sub(ltp), low)
	default:
		return models.VerdictNone, 0
	}
}

func pct(diff, base decimal.Decimal) float64 {
	f, _ := diff.Div(base).Mul(decimal.NewFromInt(100)).Float64()
	return f
}

// Run is the outcome of classifying a whole universe.
type Run struct {
	Sets    models.SignalSets
	Neutral int
	Skipped []error
}

// ClassifyAll classifies every quote against its baseline. Symbols with no baseline
// land in Skipped as *DataIntegrityError. Output is sorted by distance, largest first.
func ClassifyAll(quotes map[string]models.Quote, baselines map[string]models.DailyBaseline, at time.Time) Run {
	run := Run{Sets: models.SignalSets{
		Breakouts:  []models.SignalRecord{},
		Breakdowns: []models.SignalRecord{},
	}}

	symbols := make([]string, 0, len(quotes))
	for s := range quotes {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	for _, sym := range symbols {
		q := quotes[sym]
		b, ok := baselines[sym]
		if !ok {
			run.Skipped = append(run.Skipped, &DataIntegrityError{Symbol: sym})
			continue
		}
		verdict, dist := Classify(q, b)
		rec := models.SignalRecord{
			Symbol:       sym,
			Sector:       b.Sector,
			Verdict:      verdict,
			LTP:          q.LTP,
			DistancePct:  dist,
			ClassifiedAt: at,
		}
		switch verdict {
		case models.VerdictBreakout:
			rec.Extreme = b.High
			run.Sets.Breakouts = append(run.Sets.Breakouts, rec)
		case models.VerdictBreakdown:
			rec.Extreme = b.Low
			run.Sets.Breakdowns = append(run.Sets.Breakdowns, rec)
		default:
			run.Neutral++
		}
	}

	byDistance(run.Sets.Breakouts)
	byDistance(run.Sets.Breakdowns)
	return run
}

func byDistance(recs []models.SignalRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].DistancePct > recs[j].DistancePct
	})
}
