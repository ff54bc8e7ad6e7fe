package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/abhishekY2401/product-service/pkg/db/models"
	pkgerrors "github.com/abhishekY2401/product-service/pkg/errors"
	"github.com/abhishekY2401/product-service/pkg/events"
	"github.com/abhishekY2401/product-service/pkg/logger"
	"github.com/abhishekY2401/product-service/pkg/metrics"
)

type stockAdjuster interface {
	AdjustStock(ctx context.Context, productID int64, delta int) (*models.Product, error)
}

type messageEmitter interface {
	Emit(ctx context.Context, msg events.Message) error
}

type outboxEmitter interface {
	EmitMessage(ctx context.Context, tx *gorm.DB, msg events.Message) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ProcessorParams struct {
	Inventory stockAdjuster
	// Exactly one of Emitter or Outbox announces the aggregate. Outbox needs DB.
	Emitter messageEmitter
	Outbox  outboxEmitter
	DB      txRunner
	Logger  *logger.Logger
	Metrics *metrics.ConsumerMetrics
	// BatchTimeout bounds one order once it has started. Zero means two minutes.
	BatchTimeout time.Duration
}

const defaultBatchTimeout = 2 * time.Minute

// BatchProcessor applies the line items of one order to stock.
type BatchProcessor struct {
	inventory stockAdjuster
	emitter   messageEmitter
	outbox    outboxEmitter
	db        txRunner
	logg      *logger.Logger
	metrics   *metrics.ConsumerMetrics
	timeout   time.Duration
}

func NewBatchProcessor(params ProcessorParams) (*BatchProcessor, error) {
	if params.Inventory == nil {
		return nil, errors.New("inventory coordinator required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.Outbox != nil && params.DB == nil {
		return nil, errors.New("outbox announcements require a db")
	}
	if params.Emitter == nil && params.Outbox == nil {
		return nil, errors.New("emitter or outbox required")
	}
	timeout := params.BatchTimeout
	if timeout <= 0 {
		timeout = defaultBatchTimeout
	}
	return &BatchProcessor{
		inventory: params.Inventory,
		emitter:   params.Emitter,
		outbox:    params.Outbox,
		db:        params.DB,
		logg:      params.Logger,
		metrics:   params.Metrics,
		timeout:   timeout,
	}, nil
}

// Process adjusts stock for each item in order, skipping items that fail.
// Applied items are not reversed when a later one fails. The aggregate of
// applied items is announced once afterwards, even when it is empty. The
// returned error only reports a failed announcement.
func (p *BatchProcessor) Process(ctx context.Context, ref string, order events.OrderPlaced) (events.InventoryBatchUpdated, error) {
	// The delivery is acked once processing starts, so a shutdown must not
	// leave items unapplied. Only the batch timeout stops the loop.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	batch := events.InventoryBatchUpdated{OrderRef: ref, Items: []events.InventoryUpdated{}}
	ctx = p.logg.WithField(ctx, "order_ref", ref)

	for idx, item := range order.Items {
		itemCtx := p.logg.WithFields(ctx, map[string]any{
			"item_index": idx,
			"product_id": item.ProductID,
			"quantity":   item.Quantity,
		})
		if item.Quantity <= 0 {
			p.logg.Warn(itemCtx, "skipping order item with non-positive quantity")
			p.metrics.ObserveItem("invalid")
			continue
		}

		product, err := p.inventory.AdjustStock(ctx, item.ProductID, -item.Quantity)
		if err != nil {
			p.skip(itemCtx, err)
			continue
		}
		p.metrics.ObserveItem("applied")
		batch.Items = append(batch.Items, events.InventoryUpdated{
			ProductID: product.ID,
			NewStock:  product.Stock,
		})
	}

	if err := p.announce(ctx, batch); err != nil {
		return batch, err
	}
	p.logg.Info(p.logg.WithFields(ctx, map[string]any{
		"items":   len(order.Items),
		"applied": len(batch.Items),
	}), "order inventory processed")
	return batch, nil
}

func (p *BatchProcessor) skip(ctx context.Context, err error) {
	typed := pkgerrors.As(err)
	if typed == nil {
		p.logg.Error(ctx, "order item failed", err)
		p.metrics.ObserveItem("error")
		return
	}
	switch typed.Code() {
	case pkgerrors.CodeNotFound, pkgerrors.CodeInsufficientStock:
		p.logg.Warn(p.logg.WithField(ctx, "reason", string(typed.Code())), "order item skipped")
	default:
		p.logg.Error(ctx, "order item failed", err)
	}
	p.metrics.ObserveItem(string(typed.Code()))
}

func (p *BatchProcessor) announce(ctx context.Context, batch events.InventoryBatchUpdated) error {
	if p.outbox != nil {
		err := p.db.WithTx(ctx, func(tx *gorm.DB) error {
			return p.outbox.EmitMessage(ctx, tx, batch)
		})
		if err != nil {
			return fmt.Errorf("record inventory batch: %w", err)
		}
		return nil
	}
	if err := p.emitter.Emit(ctx, batch); err != nil {
		return fmt.Errorf("publish inventory batch: %w", err)
	}
	return nil
}
