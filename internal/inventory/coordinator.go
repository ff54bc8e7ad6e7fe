package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/abhishekY2401/product-service/internal/products"
	"github.com/abhishekY2401/product-service/pkg/db"
	"github.com/abhishekY2401/product-service/pkg/db/models"
	"github.com/abhishekY2401/product-service/pkg/enums"
	pkgerrors "github.com/abhishekY2401/product-service/pkg/errors"
	"github.com/abhishekY2401/product-service/pkg/events"
	"github.com/abhishekY2401/product-service/pkg/logger"
	"github.com/abhishekY2401/product-service/pkg/metrics"
)

const (
	defaultStoreTimeout   = 5 * time.Second
	defaultPublishTimeout = 5 * time.Second
)

// Tx is a scoped transaction handle. Rollback after Commit is a no-op.
type Tx interface {
	DB() *gorm.DB
	Commit() error
	Rollback() error
}

type beginFunc func(ctx context.Context) (Tx, error)

type CoordinatorParams struct {
	DB             *db.Client
	Repo           *products.Repository
	Strategy       Strategy
	Logger         *logger.Logger
	Metrics        *metrics.InventoryMetrics
	StoreTimeout   time.Duration
	PublishTimeout time.Duration
}

// Coordinator applies stock deltas so that the stored stock and the
// inventory.updated stream never disagree.
type Coordinator struct {
	begin          beginFunc
	repo           *products.Repository
	strategy       Strategy
	logg           *logger.Logger
	metrics        *metrics.InventoryMetrics
	storeTimeout   time.Duration
	publishTimeout time.Duration
}

func NewCoordinator(params CoordinatorParams) (*Coordinator, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db client required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if params.Strategy == nil {
		return nil, fmt.Errorf("publish strategy required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	storeTimeout := params.StoreTimeout
	if storeTimeout <= 0 {
		storeTimeout = defaultStoreTimeout
	}
	publishTimeout := params.PublishTimeout
	if publishTimeout <= 0 {
		publishTimeout = defaultPublishTimeout
	}
	client := params.DB
	return &Coordinator{
		begin: func(ctx context.Context) (Tx, error) {
			tx, err := client.Begin(ctx)
			if err != nil {
				return nil, err
			}
			return tx, nil
		},
		repo:           params.Repo,
		strategy:       params.Strategy,
		logg:           params.Logger,
		metrics:        params.Metrics,
		storeTimeout:   storeTimeout,
		publishTimeout: publishTimeout,
	}, nil
}

// Strategy returns the configured publish strategy name.
func (c *Coordinator) Strategy() string {
	return c.strategy.Name()
}

// AdjustStock adds delta to the product's stock and announces the new value on
// inventory.updated. A zero delta still announces. On success exactly one
// event describes the committed stock.
func (c *Coordinator) AdjustStock(ctx context.Context, productID int64, delta int) (*models.Product, error) {
	ctx = c.logg.WithProductID(ctx, productID)
	product, err := c.adjust(ctx, productID, delta)
	c.metrics.ObserveAdjustment(outcomeOf(err))
	return product, err
}

func (c *Coordinator) adjust(ctx context.Context, productID int64, delta int) (*models.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, canceled(err, "adjustment not started")
	}
	// Detached from the caller: once subscribers may have been told, a
	// caller going away must not roll the transaction back.
	txCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.storeTimeout+c.publishTimeout)
	defer cancel()

	tx, err := c.begin(txCtx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	repo := c.repo.WithTx(tx.DB())

	product, err := c.lockProduct(txCtx, repo, productID)
	if err != nil {
		return nil, err
	}

	newStock := product.Stock + delta
	if newStock < 0 {
		logCtx := c.logg.WithFields(ctx, map[string]any{
			"current_stock": product.Stock,
			"stock_change":  delta,
		})
		c.logg.Warn(logCtx, "insufficient stock for adjustment")
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock, "Insufficient stock to complete the operation").
			WithDetails(map[string]any{
				"product_id":    productID,
				"current_stock": product.Stock,
				"delta":         delta,
			})
	}

	storeCtx, storeCancel := context.WithTimeout(txCtx, c.storeTimeout)
	err = repo.UpdateStock(storeCtx, productID, newStock)
	storeCancel()
	if err != nil {
		return nil, storeFailure(err, "update stock")
	}
	product.Stock = newStock

	// Last point where the caller can still abandon the change cleanly.
	if err := ctx.Err(); err != nil {
		return nil, canceled(err, "adjustment abandoned before announce")
	}

	pubCtx, pubCancel := context.WithTimeout(txCtx, c.publishTimeout)
	err = c.strategy.Announce(pubCtx, tx.DB(), events.InventoryUpdated{ProductID: productID, NewStock: newStock})
	pubCancel()
	if err != nil {
		c.logg.Error(ctx, "inventory update not announced; adjustment rolled back", err)
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, c.commitFailed(ctx, productID, newStock, err)
	}

	c.logg.Info(c.logg.WithField(ctx, "new_stock", newStock), "stock adjusted")
	return product, nil
}

func (c *Coordinator) lockProduct(ctx context.Context, repo *products.Repository, productID int64) (*models.Product, error) {
	storeCtx, cancel := context.WithTimeout(ctx, c.storeTimeout)
	defer cancel()
	product, err := repo.FindByIDForUpdate(storeCtx, productID)
	if err == nil {
		return product, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.logg.Warn(ctx, "product not found for adjustment")
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Product not found").
			WithDetails(map[string]any{"product_id": productID})
	}
	return nil, storeFailure(err, "load product")
}

// storeFailure maps store timeouts to DEPENDENCY_UNAVAILABLE so callers can
// retry them; anything else is INTERNAL.
func storeFailure(err error, msg string) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, msg)
}

func canceled(err error, msg string) error {
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}

// commitFailed reports a commit that failed after the change may already have
// been announced. The stored stock and the stream can now disagree, so it is
// logged at error level and counted for alerting.
func (c *Coordinator) commitFailed(ctx context.Context, productID int64, announcedStock int, err error) error {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"announced_stock": announcedStock,
		"strategy":        c.strategy.Name(),
	})
	if c.strategy.AnnouncesBeforeCommit() {
		c.metrics.IncPersistenceFailure()
		c.logg.Error(logCtx, "commit failed after inventory update was published; stock and events diverge", err)
	} else {
		c.logg.Error(logCtx, "commit failed; inventory update discarded with it", err)
	}
	return pkgerrors.Wrap(pkgerrors.CodePersistenceFailed, err, "failed to persist inventory update").
		WithDetails(map[string]any{"product_id": productID})
}

func outcomeOf(err error) enums.AdjustmentOutcome {
	if err == nil {
		return enums.AdjustmentApplied
	}
	switch typed := pkgerrors.As(err); {
	case typed == nil:
		return enums.AdjustmentError
	case typed.Code() == pkgerrors.CodeNotFound:
		return enums.AdjustmentNotFound
	case typed.Code() == pkgerrors.CodeInsufficientStock:
		return enums.AdjustmentInsufficientStock
	case typed.Code() == pkgerrors.CodeNotificationFailed:
		return enums.AdjustmentNotificationFailed
	case typed.Code() == pkgerrors.CodePersistenceFailed:
		return enums.AdjustmentPersistenceFailed
	default:
		return enums.AdjustmentError
	}
}
