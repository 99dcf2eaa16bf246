// Package normalize turns provider payloads into canonical quotes and snapshots.
//
// Every provider tag has exactly one parser. Gaps in OHLC are filled with fixed
// fallbacks so numeric columns never hold nulls: a missing open takes the high,
// a missing close takes the last price and then the low.
package normalize

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"BreakScan/internal/domain/models"
	"BreakScan/pkg/util"
)

// ErrMalformedPayload marks a body that could not be parsed for the requested symbol.
var ErrMalformedPayload = errors.New("malformed payload")

type parser func(raw []byte, symbol string) (models.Quote, error)

var parsers = map[models.ProviderTag]parser{
	models.TagKite:     parseKite,
	models.TagLegacy:   parseLegacy,
	models.TagNSE:      parseNSE,
	models.TagNSEIndex: parseNSEIndex,
}

// Normalize extracts symbol's quote from raw using the parser registered for tag.
// A quote with a zero last price is returned as is; deciding whether it is usable
// belongs to the caller.
func Normalize(raw []byte, tag models.ProviderTag, symbol string) (models.Quote, error) {
	p, ok := parsers[tag]
	if !ok {
		return models.Quote{}, fmt.Errorf("unknown provider tag %q", tag)
	}
	q, err := p(raw, symbol)
	if err != nil {
		return models.Quote{}, err
	}
	q.Symbol = symbol
	return q, nil
}

// ToSnapshot pins q to its capture bucket and computes the percent change from open.
func ToSnapshot(q models.Quote, kind models.InstrumentKind, sector string, bucket time.Time) models.Snapshot {
	return models.Snapshot{
		Kind:       kind,
		Symbol:     q.Symbol,
		Sector:     sector,
		Bucket:     bucket,
		LTP:        q.LTP,
		Open:       q.Open,
		High:       q.High,
		Low:        q.Low,
		Close:      q.Close,
		Volume:     q.Volume,
		PctChange:  PctChange(q.LTP, q.Open),
		Source:     q.Source,
		CapturedAt: q.FetchedAt,
	}
}

// PctChange is ((last-open)/open)*100, defined as 0 when open is 0.
func PctChange(last, open float64) float64 {
	return util.PercentChange(open, last)
}

// ohlc carries parsed fields before the fallback policy is applied.
type ohlc struct {
	ltp, open, high, low, close flexFloat
	volume                      flexFloat
}

func (o ohlc) quote() models.Quote {
	q := models.Quote{
		LTP:    o.ltp.v,
		Open:   o.open.v,
		High:   o.high.v,
		Low:    o.low.v,
		Close:  o.close.v,
		Volume: int64(o.volume.v),
	}
	if !o.open.present() {
		q.Open = q.High
	}
	if !o.close.present() {
		if o.ltp.present() {
			q.Close = q.LTP
		} else {
			q.Close = q.Low
		}
	}
	return q
}

// flexFloat accepts JSON numbers, numeric strings with thousands separators, and the
// dash or empty string some exchange feeds use for "no value".
type flexFloat struct {
	v   float64
	set bool
}

func (f flexFloat) present() bool { return f.set && f.v != 0 }

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
		if s == "" || s == "-" {
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("parse number %q: %w", s, err)
		}
		f.v, f.set = v, true
		return nil
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("parse number %s: %w", b, err)
	}
	f.v, f.set = v, true
	return nil
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedPayload, fmt.Sprintf(format, args...))
}
