package market

import (
	"fmt"
	"time"
	_ "time/tzdata"
)

// State is the pipeline phase derived from the market clock.
type State string

const (
	StateTrading  State = "TRADING"
	StateRollover State = "ROLLOVER"
	StateIdle     State = "IDLE"
)

const dayLayout = "2006-01-02"

// Calendar knows the exchange session hours, holidays and the rollover window.
type Calendar struct {
	loc      *time.Location
	open     int // minutes since midnight
	close    int
	grace    time.Duration
	holidays map[string]struct{}
}

// NewCalendar builds a calendar. open and close use "15:04" notation in the exchange timezone.
func NewCalendar(timezone, open, close string, grace time.Duration, holidays []string) (*Calendar, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", timezone, err)
	}
	o, err := parseClock(open)
	if err != nil {
		return nil, fmt.Errorf("session open: %w", err)
	}
	c, err := parseClock(close)
	if err != nil {
		return nil, fmt.Errorf("session close: %w", err)
	}
	if c <= o {
		return nil, fmt.Errorf("session close %s must be after open %s", close, open)
	}
	cal := &Calendar{loc: loc, open: o, close: c, grace: grace, holidays: make(map[string]struct{}, len(holidays))}
	for _, h := range holidays {
		if _, err := time.ParseInLocation(dayLayout, h, loc); err != nil {
			return nil, fmt.Errorf("holiday %q: %w", h, err)
		}
		cal.holidays[h] = struct{}{}
	}
	return cal, nil
}

// Location returns the exchange timezone.
func (c *Calendar) Location() *time.Location { return c.loc }

// State maps a wall-clock instant to the pipeline phase.
func (c *Calendar) State(now time.Time) State {
	t := now.In(c.loc)
	if !c.IsTradingDay(t) {
		return StateIdle
	}
	day := SessionDay(t, c.loc)
	closeAt := day.Add(time.Duration(c.close) * time.Minute)
	openAt := day.Add(time.Duration(c.open) * time.Minute)

	switch {
	case !t.Before(closeAt.Add(-c.grace)) && !t.After(closeAt.Add(c.grace)):
		return StateRollover
	case !t.Before(openAt) && t.Before(closeAt):
		return StateTrading
	default:
		return StateIdle
	}
}

// IsTradingDay reports whether the exchange is open on t's calendar day.
func (c *Calendar) IsTradingDay(t time.Time) bool {
	t = t.In(c.loc)
	if wd := t.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	_, holiday := c.holidays[t.Format(dayLayout)]
	return !holiday
}

// PreviousTradingDay walks back from t to the last trading day before it.
func (c *Calendar) PreviousTradingDay(t time.Time) time.Time {
	d := SessionDay(t, c.loc)
	for i := 0; i < 15; i++ {
		d = d.AddDate(0, 0, -1)
		if c.IsTradingDay(d) {
			return d
		}
	}
	return d
}

// SessionClose returns the closing instant of t's session.
func (c *Calendar) SessionClose(t time.Time) time.Time {
	return SessionDay(t, c.loc).Add(time.Duration(c.close) * time.Minute)
}

// BaselineDay is the session whose candle a rollover at now should capture: today once the
// rollover window has opened on a trading day, otherwise the previous trading day.
func (c *Calendar) BaselineDay(now time.Time) time.Time {
	if c.IsTradingDay(now) && !now.Before(c.SessionClose(now).Add(-c.grace)) {
		return SessionDay(now, c.loc)
	}
	return c.PreviousTradingDay(now)
}

// RetentionCutoff walks back n trading days from now's day. Buckets before the returned
// midnight are outside the retention window.
func (c *Calendar) RetentionCutoff(now time.Time, n int) time.Time {
	d := SessionDay(now, c.loc)
	for i := 0; i < n; i++ {
		d = c.PreviousTradingDay(d)
	}
	return d
}

// SessionDay returns midnight of t's calendar day in loc.
func SessionDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// BucketTime rounds t down to the nearest multiple of interval minutes since midnight,
// with seconds and sub-seconds zeroed.
func BucketTime(t time.Time, intervalMinutes int, loc *time.Location) time.Time {
	if intervalMinutes <= 0 {
		intervalMinutes = 1
	}
	t = t.In(loc)
	minutes := t.Hour()*60 + t.Minute()
	b := (minutes / intervalMinutes) * intervalMinutes
	return time.Date(t.Year(), t.Month(), t.Day(), b/60, b%60, 0, 0, loc)
}

func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("parse clock %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}
