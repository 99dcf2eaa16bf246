package usecase

import (
	"time"

	"github.com/google/uuid"

	"BreakScan/internal/domain/models"
	"BreakScan/internal/service/market"
	"BreakScan/internal/universe"
	applogger "BreakScan/pkg/logger"
)

// Invocation carries everything one trigger run needs. Nothing in it outlives the run.
type Invocation struct {
	RunID    string
	Path     models.RunPath
	Now      time.Time
	State    market.State
	Force    bool
	Universe *universe.Universe
	Summary  *models.RunSummary
	Log      *applogger.Logger
}

// Allowed reports whether path may run in state. force bypasses this check entirely.
func Allowed(path models.RunPath, state market.State) bool {
	switch path {
	case models.PathCapture:
		return state == market.StateTrading || state == market.StateRollover
	case models.PathClassify:
		return state == market.StateTrading
	case models.PathRollover:
		return state == market.StateRollover
	}
	return false
}

// UniverseLoader reads the instrument universe. It is called once per allowed run.
type UniverseLoader func() (*universe.Universe, error)

// InvocationFactory stamps out invocations from the calendar and the current clock.
type InvocationFactory struct {
	cal          *market.Calendar
	loadUniverse UniverseLoader
	now          func() time.Time
	newID        func() string
	l            *applogger.Logger
}

// NewInvocationFactory creates an InvocationFactory using the wall clock and random UUIDs.
func NewInvocationFactory(cal *market.Calendar, loadUniverse UniverseLoader, l *applogger.Logger) *InvocationFactory {
	if l == nil {
		l = applogger.Nop()
	}
	return &InvocationFactory{
		cal:          cal,
		loadUniverse: loadUniverse,
		now:          time.Now,
		newID:        uuid.NewString,
		l:            l,
	}
}

// SetClock overrides the time source.
func (f *InvocationFactory) SetClock(now func() time.Time) { f.now = now }

// Begin opens a run. A gated-out run comes back with Summary.Skipped set and no universe.
// The returned error is a run-level failure and the invocation is still usable for reporting.
func (f *InvocationFactory) Begin(path models.RunPath, force bool) (*Invocation, error) {
	now := f.now().In(f.cal.Location())
	id := f.newID()
	state := f.cal.State(now)

	sum := models.NewRunSummary(id, path, now)
	sum.State = string(state)
	sum.Forced = force

	inv := &Invocation{
		RunID:   id,
		Path:    path,
		Now:     now,
		State:   state,
		Force:   force,
		Summary: sum,
		Log: f.l.With(
			applogger.String("run_id", id),
			applogger.String("path", string(path)),
		),
	}
	if !force && !Allowed(path, state) {
		sum.Skipped = true
		return inv, nil
	}
	u, err := f.loadUniverse()
	if err != nil {
		return inv, err
	}
	inv.Universe = u
	return inv, nil
}

// Finish stamps the run duration.
func (f *InvocationFactory) Finish(inv *Invocation) {
	inv.Summary.DurationMS = f.now().Sub(inv.Summary.StartedAt).Milliseconds()
}
