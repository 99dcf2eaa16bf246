package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"BreakScan/internal/domain/models"
	domrepo "BreakScan/internal/domain/repository"
	applogger "BreakScan/pkg/logger"
)

// PathRunner executes one pipeline path inside an invocation.
type PathRunner interface {
	Run(ctx context.Context, inv *Invocation) error
}

// Runner gates, executes and reports every trigger. Runs of the same path never overlap.
type Runner struct {
	factory *InvocationFactory
	paths   map[models.RunPath]PathRunner
	metrics domrepo.Metrics
	locks   map[models.RunPath]*sync.Mutex
}

// NewRunner creates a new Runner instance.
func NewRunner(factory *InvocationFactory, capture *CaptureUseCase, classify *ClassifyUseCase, rollover *RolloverUseCase, metrics domrepo.Metrics) *Runner {
	return newRunner(factory, map[models.RunPath]PathRunner{
		models.PathCapture:  capture,
		models.PathClassify: classify,
		models.PathRollover: rollover,
	}, metrics)
}

func newRunner(factory *InvocationFactory, paths map[models.RunPath]PathRunner, metrics domrepo.Metrics) *Runner {
	if metrics == nil {
		metrics = domrepo.NoopMetrics{}
	}
	locks := make(map[models.RunPath]*sync.Mutex, len(paths))
	for p := range paths {
		locks[p] = &sync.Mutex{}
	}
	return &Runner{factory: factory, paths: paths, metrics: metrics, locks: locks}
}

// ParsePath validates a path name from a URL or the command line.
func ParsePath(s string) (models.RunPath, error) {
	switch p := models.RunPath(s); p {
	case models.PathCapture, models.PathClassify, models.PathRollover:
		return p, nil
	}
	return "", fmt.Errorf("unknown path %q", s)
}

// Run always returns a summary. A non-nil error means the run as a whole failed and
// the summary has Success=false.
func (r *Runner) Run(ctx context.Context, path models.RunPath, force bool) (*models.RunSummary, error) {
	exec, ok := r.paths[path]
	if !ok {
		return nil, fmt.Errorf("unknown path %q", path)
	}
	mu := r.locks[path]
	mu.Lock()
	defer mu.Unlock()

	start := time.Now()
	inv, err := r.factory.Begin(path, force)
	if err == nil && !inv.Summary.Skipped {
		inv.Log.Info("run started", applogger.String("state", string(inv.State)), applogger.Bool("force", force))
		err = exec.Run(ctx, inv)
	}
	r.factory.Finish(inv)

	sum := inv.Summary
	if err != nil {
		sum.Success = false
		sum.AddError(err.Error())
		inv.Log.Error("run failed", applogger.Error(err))
		r.metrics.RecordError("run")
	} else if sum.Skipped {
		inv.Log.Debug("run skipped", applogger.String("state", string(inv.State)))
	}
	r.metrics.RecordRun(string(path), err == nil, time.Since(start).Seconds())
	return sum, err
}
