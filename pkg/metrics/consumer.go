package metrics

import "github.com/prometheus/client_golang/prometheus"

// ConsumerMetrics counts inbound broker messages by routing key and result.
type ConsumerMetrics struct {
	messages *prometheus.CounterVec
	items    *prometheus.CounterVec
}

func NewConsumerMetrics(reg prometheus.Registerer) *ConsumerMetrics {
	if reg == nil {
		return &ConsumerMetrics{}
	}
	messages := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "consumer_messages_total",
		Help:      "Inbound messages by routing key and result.",
	}, []string{"event_type", "result"})
	items := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "order_items_total",
		Help:      "Order line items by result.",
	}, []string{"result"})
	reg.MustRegister(messages, items)
	return &ConsumerMetrics{messages: messages, items: items}
}

func (m *ConsumerMetrics) ObserveMessage(eventType, result string) {
	if m == nil || m.messages == nil {
		return
	}
	m.messages.WithLabelValues(normalizeLabel(eventType), normalizeLabel(result)).Inc()
}

func (m *ConsumerMetrics) ObserveItem(result string) {
	if m == nil || m.items == nil {
		return
	}
	m.items.WithLabelValues(normalizeLabel(result)).Inc()
}
