package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/abhishekY2401/product-service/pkg/enums"
)

func TestInventoryMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewInventoryMetrics(reg)
	m.ObserveAdjustment(enums.AdjustmentApplied)
	m.ObserveAdjustment(enums.AdjustmentApplied)
	m.ObserveAdjustment(enums.AdjustmentInsufficientStock)
	m.IncPersistenceFailure()
	m.ObservePublish("inventory.updated", errors.New("timeout"), 20*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "product_service_inventory_adjustments_total", "outcome", "applied"); err != nil || got != 2 {
		t.Fatalf("expected applied=2, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "product_service_inventory_adjustments_total", "outcome", "insufficient_stock"); err != nil || got != 1 {
		t.Fatalf("expected insufficient_stock=1, got %f (%v)", got, err)
	}
	mf := findMetricFamily(mfs, "inventory_persistence_failures_total")
	if mf == nil || mf.GetMetric()[0].GetCounter().GetValue() != 1 {
		t.Fatalf("expected persistence failure counter to be 1")
	}
	if got, err := fetchHistogramSum(mfs, "product_service_event_publish_duration_seconds", "result", "error"); err != nil || got <= 0 {
		t.Fatalf("expected publish latency sample, got %f (%v)", got, err)
	}
}

func TestOutboxMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOutboxMetrics(reg)
	m.IncPublished("inventory_updated")
	m.IncFailed("inventory_updated")
	m.IncDeadLettered("max_attempts")
	now := time.Now()
	oldest := now.Add(-90 * time.Second)
	m.SetBacklog(4, &oldest, now)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "product_service_outbox_published_total", "event_type", "inventory_updated"); err != nil || got != 1 {
		t.Fatalf("expected published=1, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "product_service_outbox_dead_lettered_total", "reason", "max_attempts"); err != nil || got != 1 {
		t.Fatalf("expected dead_lettered=1, got %f (%v)", got, err)
	}
	if got, err := fetchGaugeValue(mfs, "product_service_outbox_backlog"); err != nil || got != 4 {
		t.Fatalf("expected backlog=4, got %f (%v)", got, err)
	}
	if got, err := fetchGaugeValue(mfs, "product_service_outbox_oldest_pending_age_seconds"); err != nil || got != 90 {
		t.Fatalf("expected age=90, got %f (%v)", got, err)
	}
}

func TestConsumerMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewConsumerMetrics(reg)
	m.ObserveMessage("order.placed", "processed")
	m.ObserveItem("skipped")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "product_service_consumer_messages_total", "result", "processed"); err != nil || got != 1 {
		t.Fatalf("expected processed=1, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "product_service_order_items_total", "result", "skipped"); err != nil || got != 1 {
		t.Fatalf("expected skipped=1, got %f (%v)", got, err)
	}
}
