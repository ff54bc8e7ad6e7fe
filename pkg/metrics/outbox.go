package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OutboxMetrics tracks the relay from outbox_events to the broker.
type OutboxMetrics struct {
	published    *prometheus.CounterVec
	failed       *prometheus.CounterVec
	deadLettered *prometheus.CounterVec
	backlog      prometheus.Gauge
	oldestAge    prometheus.Gauge
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outbox_published_total",
		Help:      "Outbox rows published to the broker.",
	}, []string{"event_type"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outbox_publish_failures_total",
		Help:      "Failed outbox publish attempts.",
	}, []string{"event_type"})
	deadLettered := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outbox_dead_lettered_total",
		Help:      "Outbox rows moved to the DLQ.",
	}, []string{"reason"})
	backlog := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "outbox_backlog",
		Help:      "Unpublished outbox rows with attempts left.",
	})
	oldestAge := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "outbox_oldest_pending_age_seconds",
		Help:      "Age of the oldest unpublished outbox row.",
	})
	reg.MustRegister(published, failed, deadLettered, backlog, oldestAge)
	return &OutboxMetrics{
		published:    published,
		failed:       failed,
		deadLettered: deadLettered,
		backlog:      backlog,
		oldestAge:    oldestAge,
	}
}

func (m *OutboxMetrics) IncPublished(eventType string) {
	if m == nil || m.published == nil {
		return
	}
	m.published.WithLabelValues(normalizeLabel(eventType)).Inc()
}

func (m *OutboxMetrics) IncFailed(eventType string) {
	if m == nil || m.failed == nil {
		return
	}
	m.failed.WithLabelValues(normalizeLabel(eventType)).Inc()
}

func (m *OutboxMetrics) IncDeadLettered(reason string) {
	if m == nil || m.deadLettered == nil {
		return
	}
	m.deadLettered.WithLabelValues(normalizeLabel(reason)).Inc()
}

// SetBacklog records the pending count and the age of the oldest row.
func (m *OutboxMetrics) SetBacklog(count int64, oldest *time.Time, now time.Time) {
	if m == nil || m.backlog == nil {
		return
	}
	m.backlog.Set(float64(count))
	age := 0.0
	if oldest != nil {
		age = now.Sub(*oldest).Seconds()
	}
	m.oldestAge.Set(age)
}
