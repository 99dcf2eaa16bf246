// Package trigger calls the cron endpoints of a running service on a schedule.
package trigger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"BreakScan/internal/domain/models"
	"BreakScan/internal/usecase"
	xhttp "BreakScan/pkg/http"
	applogger "BreakScan/pkg/logger"
)

// Caller hits one trigger endpoint and returns the decoded summary.
type Caller struct {
	client  *xhttp.Client
	baseURL string
	secret  string
}

func NewCaller(client *xhttp.Client, baseURL, secret string) *Caller {
	return &Caller{client: client, baseURL: strings.TrimRight(baseURL, "/"), secret: secret}
}

// Call sends GET /api/cron/<path>. A 500 still yields the summary alongside the error.
func (c *Caller) Call(ctx context.Context, path models.RunPath, force bool) (*models.RunSummary, error) {
	opts := &xhttp.RequestOptions{
		Method:  xhttp.MethodGet,
		URL:     fmt.Sprintf("%s/api/cron/%s", c.baseURL, path),
		Headers: map[string]string{"Authorization": "Bearer " + c.secret},
	}
	if force {
		opts.QueryParams = map[string][]string{"force": {"true"}}
	}
	var sum models.RunSummary
	err := c.client.SendAndParse(ctx, opts, &sum)
	var se *xhttp.StatusError
	if errors.As(err, &se) && sum.RunID != "" {
		return &sum, fmt.Errorf("%s run %s failed: %w", path, sum.RunID, err)
	}
	if err != nil {
		return nil, err
	}
	return &sum, nil
}

// Scheduler registers one cron entry per path.
type Scheduler struct {
	cron    *cron.Cron
	caller  *Caller
	timeout time.Duration
	l       *applogger.Logger
}

// NewScheduler creates a scheduler whose specs are read in loc.
func NewScheduler(caller *Caller, loc *time.Location, timeout time.Duration, l *applogger.Logger) *Scheduler {
	if l == nil {
		l = applogger.Nop()
	}
	cl := cronLogger{l: l}
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(loc), cron.WithLogger(cl), cron.WithChain(cron.SkipIfStillRunning(cl))),
		caller:  caller,
		timeout: timeout,
		l:       l,
	}
}

// Register adds every path -> spec pair. Specs use the standard five-field format.
func (s *Scheduler) Register(schedules map[string]string) error {
	paths := make([]string, 0, len(schedules))
	for p := range schedules {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, name := range paths {
		path, err := usecase.ParsePath(name)
		if err != nil {
			return err
		}
		spec := schedules[name]
		if _, err := s.cron.AddFunc(spec, func() { s.fire(path) }); err != nil {
			return fmt.Errorf("register %s %q: %w", path, spec, err)
		}
		s.l.Info("trigger scheduled", applogger.String("path", string(path)), applogger.String("spec", spec))
	}
	return nil
}

// Entries reports how many schedules are registered.
func (s *Scheduler) Entries() int { return len(s.cron.Entries()) }

func (s *Scheduler) Start() { s.cron.Start() }

// Stop waits for running calls to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

func (s *Scheduler) fire(path models.RunPath) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	sum, err := s.caller.Call(ctx, path, false)
	if err != nil {
		s.l.Error("trigger call failed", applogger.String("path", string(path)), applogger.Error(err))
		return
	}
	s.l.Info("trigger call finished",
		applogger.String("path", string(path)),
		applogger.String("run_id", sum.RunID),
		applogger.Bool("skipped", sum.Skipped),
		applogger.Int("errors", len(sum.Errors)),
	)
}

// cronLogger adapts the application logger to cron.Logger.
type cronLogger struct {
	l *applogger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug("cron: "+msg, applogger.Any("kv", keysAndValues))
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error("cron: "+msg, applogger.Error(err), applogger.Any("kv", keysAndValues))
}
