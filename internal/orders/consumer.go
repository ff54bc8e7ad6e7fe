package orders

import (
	"context"
	"errors"
	"strings"

	"github.com/abhishekY2401/product-service/pkg/events"
	"github.com/abhishekY2401/product-service/pkg/logger"
	"github.com/abhishekY2401/product-service/pkg/metrics"
)

const consumerName = "inventory-orders"

// Delivery is a broker message reduced to what routing needs.
type Delivery struct {
	// ID is the broker-assigned message id.
	ID        string
	EventType string
	EventID   string
	Data      []byte
}

// dedupeKey prefers the producer's event id, which survives republishing.
func (d Delivery) dedupeKey() string {
	if id := strings.TrimSpace(d.EventID); id != "" {
		return id
	}
	return strings.TrimSpace(d.ID)
}

type batchProcessor interface {
	Process(ctx context.Context, ref string, order events.OrderPlaced) (events.InventoryBatchUpdated, error)
}

type idempotencyChecker interface {
	CheckAndMarkProcessed(ctx context.Context, consumer, messageID string) (bool, error)
	Delete(ctx context.Context, consumer, messageID string) error
}

// Consumer routes inbound messages by routing key.
type Consumer struct {
	processor batchProcessor
	manager   idempotencyChecker
	topics    events.Topics
	logg      *logger.Logger
	metrics   *metrics.ConsumerMetrics
}

// NewConsumer builds the order consumer. A nil manager disables de-duplication.
func NewConsumer(processor batchProcessor, manager idempotencyChecker, topics events.Topics, logg *logger.Logger, m *metrics.ConsumerMetrics) (*Consumer, error) {
	if processor == nil {
		return nil, errors.New("batch processor required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	if strings.TrimSpace(topics.OrderPlaced) == "" {
		return nil, errors.New("order placed topic required")
	}
	return &Consumer{
		processor: processor,
		manager:   manager,
		topics:    topics,
		logg:      logg,
		metrics:   m,
	}, nil
}

// Handle processes one delivery and reports whether it should be acked.
// Only an unavailable idempotency store or a shutdown before processing
// starts asks for redelivery.
func (c *Consumer) Handle(ctx context.Context, d Delivery) bool {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": d.ID,
		"event_type": d.EventType,
	})
	if d.EventID != "" {
		logCtx = c.logg.WithEventID(logCtx, d.EventID)
	}

	if d.EventType != c.topics.OrderPlaced {
		c.logg.Warn(logCtx, "unhandled event type")
		c.metrics.ObserveMessage(d.EventType, "discarded")
		return true
	}

	order, err := events.DecodeOrderPlaced(d.Data)
	if err != nil {
		c.logg.Warn(c.logg.WithField(logCtx, "error", err.Error()), "malformed order payload discarded")
		c.metrics.ObserveMessage(d.EventType, "malformed")
		return true
	}

	key := d.dedupeKey()
	if c.manager != nil && key != "" {
		already, err := c.manager.CheckAndMarkProcessed(logCtx, consumerName, key)
		if err != nil {
			c.logg.Error(logCtx, "idempotency check failed", err)
			c.metrics.ObserveMessage(d.EventType, "retry")
			return false
		}
		if already {
			c.logg.Info(logCtx, "order already processed")
			c.metrics.ObserveMessage(d.EventType, "duplicate")
			return true
		}
	}

	if ctx.Err() != nil {
		if c.manager != nil && key != "" {
			_ = c.manager.Delete(context.WithoutCancel(ctx), consumerName, key)
		}
		c.metrics.ObserveMessage(d.EventType, "retry")
		return false
	}

	// Stock has been applied once Process returns, so even a failed
	// aggregate announcement is acked to avoid decrementing twice.
	if _, err := c.processor.Process(logCtx, key, order); err != nil {
		c.logg.Error(logCtx, "inventory batch not announced", err)
		c.metrics.ObserveMessage(d.EventType, "announce_failed")
		return true
	}
	c.metrics.ObserveMessage(d.EventType, "processed")
	return true
}
