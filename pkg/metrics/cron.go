package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "product_service"

const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
)

// CronJobMetrics tracks scheduled job runs and the rows they purge.
type CronJobMetrics struct {
	duration *prometheus.HistogramVec
	runs     *prometheus.CounterVec
	purged   *prometheus.CounterVec
}

func NewCronJobMetrics(reg prometheus.Registerer) *CronJobMetrics {
	if reg == nil {
		return &CronJobMetrics{}
	}
	m := &CronJobMetrics{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "cron",
			Name:      "job_duration_seconds",
			Help:      "Duration of cron jobs in seconds.",
			Buckets:   []float64{.05, .1, .5, 1, 5, 15, 60, 300},
		}, []string{"job"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cron",
			Name:      "job_runs_total",
			Help:      "Cron job executions by outcome.",
		}, []string{"job", "outcome"}),
		purged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cron",
			Name:      "rows_purged_total",
			Help:      "Rows removed by retention jobs.",
		}, []string{"job", "table"}),
	}
	reg.MustRegister(m.duration, m.runs, m.purged)
	return m
}

// ObserveRun records one execution. A non-nil err counts as a failure.
func (c *CronJobMetrics) ObserveRun(job string, took time.Duration, err error) {
	if c == nil || c.runs == nil {
		return
	}
	job = normalizeLabel(job)
	c.duration.WithLabelValues(job).Observe(took.Seconds())
	outcome := outcomeSuccess
	if err != nil {
		outcome = outcomeFailure
	}
	c.runs.WithLabelValues(job, outcome).Inc()
}

func (c *CronJobMetrics) AddPurged(job, table string, rows int64) {
	if c == nil || c.purged == nil || rows <= 0 {
		return
	}
	c.purged.WithLabelValues(normalizeLabel(job), normalizeLabel(table)).Add(float64(rows))
}

func normalizeLabel(label string) string {
	if label == "" {
		return "unknown"
	}
	return label
}
