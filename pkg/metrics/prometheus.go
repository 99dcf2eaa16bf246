package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	fetches     *prometheus.CounterVec
	exhausted   *prometheus.CounterVec
	verdicts    *prometheus.CounterVec
	baselines   prometheus.Gauge
	runDuration *prometheus.HistogramVec
	errorsTotal *prometheus.CounterVec
}

// New registers the pipeline collectors on reg (the default registerer when nil).
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	r := &Recorder{
		fetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "breakscan_provider_fetches_total",
				Help: "Provider fetch attempts by outcome",
			},
			[]string{"provider", "outcome"},
		),
		exhausted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "breakscan_symbols_exhausted_total",
				Help: "Symbols for which every provider failed",
			},
			[]string{"path"},
		),
		verdicts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "breakscan_classifications_total",
				Help: "Classification results by verdict",
			},
			[]string{"verdict"},
		),
		baselines: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "breakscan_baselines",
				Help: "Rows in the live baseline set after the last rollover",
			},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "breakscan_run_duration_seconds",
				Help:    "Trigger run duration",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120, 300},
			},
			[]string{"path", "success"},
		),
		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "breakscan_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
	}
	reg.MustRegister(r.fetches, r.exhausted, r.verdicts, r.baselines, r.runDuration, r.errorsTotal)
	return r
}

// RecordFetch counts one provider attempt.
func (r *Recorder) RecordFetch(provider, outcome string) {
	r.fetches.WithLabelValues(provider, outcome).Inc()
}

// RecordExhausted counts a symbol nobody could price.
func (r *Recorder) RecordExhausted(path string) {
	r.exhausted.WithLabelValues(path).Inc()
}

// RecordVerdict adds n results for verdict.
func (r *Recorder) RecordVerdict(verdict string, n int) {
	r.verdicts.WithLabelValues(verdict).Add(float64(n))
}

// RecordBaselines sets the live baseline count.
func (r *Recorder) RecordBaselines(n int) {
	r.baselines.Set(float64(n))
}

// RecordRun observes a finished trigger run.
func (r *Recorder) RecordRun(path string, success bool, seconds float64) {
	r.runDuration.WithLabelValues(path, strconv.FormatBool(success)).Observe(seconds)
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}
