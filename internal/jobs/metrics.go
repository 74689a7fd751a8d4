package jobmetrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	statusSuccess = "success"
	statusFailure = "failure"
	statusSkipped = "skipped"
)

// Metrics holds the collectors shared by the worker's task handlers.
type Metrics struct {
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	entries  *prometheus.CounterVec
	flagged  *prometheus.CounterVec
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// NewMetrics registers the collectors on registerer, or once on the default
// registerer when it is nil.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer != nil {
		return register(registerer)
	}
	defaultOnce.Do(func() { defaultMetrics = register(prometheus.DefaultRegisterer) })
	return defaultMetrics
}

func register(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "odyssey_stock_job_runs_total",
			Help: "Task executions by task type and outcome.",
		}, []string{"job", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "odyssey_stock_job_duration_seconds",
			Help:    "Task execution time in seconds.",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"job"}),
		entries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "odyssey_stock_job_import_entries_total",
			Help: "Entries reconciled by import tasks by outcome.",
		}, []string{"job", "outcome"}),
		flagged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "odyssey_stock_job_flagged_users_total",
			Help: "Users with pending inventory alerts found by scans.",
		}, []string{"job"}),
	}
	registerer.MustRegister(m.runs, m.duration, m.entries, m.flagged)
	return m
}

// Tracker measures a single task execution.
type Tracker struct {
	metrics *Metrics
	job     string
	start   time.Time
	skipped bool
}

// Track starts timing job. It is safe on a nil Metrics.
func (m *Metrics) Track(job string) *Tracker {
	return &Tracker{metrics: m, job: job, start: time.Now()}
}

// Skip marks the run as skipped, e.g. when another run holds its lock.
// Skipped runs are counted but not timed.
func (t *Tracker) Skip() {
	if t != nil {
		t.skipped = true
	}
}

// End records the outcome and returns err unchanged.
func (t *Tracker) End(err error) error {
	if t == nil || t.metrics == nil || t.job == "" {
		return err
	}
	switch {
	case t.skipped:
		t.metrics.runs.WithLabelValues(t.job, statusSkipped).Inc()
		return err
	case err != nil:
		t.metrics.runs.WithLabelValues(t.job, statusFailure).Inc()
	default:
		t.metrics.runs.WithLabelValues(t.job, statusSuccess).Inc()
	}
	t.metrics.duration.WithLabelValues(t.job).Observe(time.Since(t.start).Seconds())
	return err
}

// AddImportEntries counts reconciled entries split by outcome.
func (m *Metrics) AddImportEntries(job string, succeeded, failed int) {
	if m == nil {
		return
	}
	if succeeded > 0 {
		m.entries.WithLabelValues(job, statusSuccess).Add(float64(succeeded))
	}
	if failed > 0 {
		m.entries.WithLabelValues(job, statusFailure).Add(float64(failed))
	}
}

// AddFlaggedUsers counts users a scan found with pending alerts.
func (m *Metrics) AddFlaggedUsers(job string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.flagged.WithLabelValues(job).Add(float64(count))
}
