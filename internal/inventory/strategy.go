package inventory

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/abhishekY2401/product-service/pkg/config"
	pkgerrors "github.com/abhishekY2401/product-service/pkg/errors"
	"github.com/abhishekY2401/product-service/pkg/events"
	"github.com/abhishekY2401/product-service/pkg/metrics"
)

// Strategy announces a stock change while the adjustment transaction is
// still open. Returning an error rolls the adjustment back.
type Strategy interface {
	Name() string
	Announce(ctx context.Context, tx *gorm.DB, msg events.Message) error
	// AnnouncesBeforeCommit reports whether subscribers may already have seen
	// the change when the commit runs.
	AnnouncesBeforeCommit() bool
}

type messageEmitter interface {
	Emit(ctx context.Context, msg events.Message) error
}

type outboxEmitter interface {
	EmitMessage(ctx context.Context, tx *gorm.DB, msg events.Message) error
}

// NewStrategy builds the strategy named by the publish strategy setting.
func NewStrategy(name string, emitter messageEmitter, outbox outboxEmitter, m *metrics.InventoryMetrics) (Strategy, error) {
	switch name {
	case "", config.PublishStrategyPublishThenCommit:
		if emitter == nil {
			return nil, fmt.Errorf("%s strategy requires an emitter", config.PublishStrategyPublishThenCommit)
		}
		return NewPublishThenCommit(emitter, m), nil
	case config.PublishStrategyOutbox:
		if outbox == nil {
			return nil, fmt.Errorf("%s strategy requires an outbox", config.PublishStrategyOutbox)
		}
		return NewOutboxStrategy(outbox), nil
	default:
		return nil, fmt.Errorf("unknown publish strategy %q", name)
	}
}

type publishThenCommit struct {
	emitter messageEmitter
	metrics *metrics.InventoryMetrics
}

// NewPublishThenCommit publishes directly to the broker before the commit.
// A failed publish leaves the stock untouched.
func NewPublishThenCommit(emitter messageEmitter, m *metrics.InventoryMetrics) Strategy {
	return &publishThenCommit{emitter: emitter, metrics: m}
}

func (s *publishThenCommit) Name() string { return config.PublishStrategyPublishThenCommit }

func (s *publishThenCommit) AnnouncesBeforeCommit() bool { return true }

func (s *publishThenCommit) Announce(ctx context.Context, _ *gorm.DB, msg events.Message) error {
	start := time.Now()
	err := s.emitter.Emit(ctx, msg)
	s.metrics.ObservePublish(string(msg.EventType()), err, time.Since(start))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeNotificationFailed, err, "Failed to publish inventory update event")
	}
	return nil
}

type outboxStrategy struct {
	outbox outboxEmitter
}

// NewOutboxStrategy records the event in the adjustment transaction; the
// outbox publisher delivers it after commit.
func NewOutboxStrategy(outbox outboxEmitter) Strategy {
	return &outboxStrategy{outbox: outbox}
}

func (s *outboxStrategy) Name() string { return config.PublishStrategyOutbox }

func (s *outboxStrategy) AnnouncesBeforeCommit() bool { return false }

func (s *outboxStrategy) Announce(ctx context.Context, tx *gorm.DB, msg events.Message) error {
	if err := s.outbox.EmitMessage(ctx, tx, msg); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePersistenceFailed, err, "record inventory update in outbox")
	}
	return nil
}
