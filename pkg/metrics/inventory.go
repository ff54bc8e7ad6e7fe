package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/abhishekY2401/product-service/pkg/enums"
)

// InventoryMetrics tracks stock adjustments and the publish step they depend on.
type InventoryMetrics struct {
	adjustments         *prometheus.CounterVec
	persistenceFailures prometheus.Counter
	publishLatency      *prometheus.HistogramVec
}

func NewInventoryMetrics(reg prometheus.Registerer) *InventoryMetrics {
	if reg == nil {
		return &InventoryMetrics{}
	}
	adjustments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "inventory_adjustments_total",
		Help:      "Stock adjustments by outcome.",
	}, []string{"outcome"})
	// Not namespaced: alerting rules key on this exact name.
	persistenceFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "inventory_persistence_failures_total",
		Help: "Adjustments whose event was published but whose commit failed.",
	})
	publishLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "event_publish_duration_seconds",
		Help:      "Latency of direct broker publishes.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"topic", "result"})
	reg.MustRegister(adjustments, persistenceFailures, publishLatency)
	return &InventoryMetrics{
		adjustments:         adjustments,
		persistenceFailures: persistenceFailures,
		publishLatency:      publishLatency,
	}
}

func (m *InventoryMetrics) ObserveAdjustment(outcome enums.AdjustmentOutcome) {
	if m == nil || m.adjustments == nil {
		return
	}
	m.adjustments.WithLabelValues(normalizeLabel(string(outcome))).Inc()
}

func (m *InventoryMetrics) IncPersistenceFailure() {
	if m == nil || m.persistenceFailures == nil {
		return
	}
	m.persistenceFailures.Inc()
}

func (m *InventoryMetrics) ObservePublish(topic string, err error, duration time.Duration) {
	if m == nil || m.publishLatency == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.publishLatency.WithLabelValues(normalizeLabel(topic), result).Observe(duration.Seconds())
}
