package products

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/abhishekY2401/product-service/pkg/db"
	"github.com/abhishekY2401/product-service/pkg/db/dbtest"
	"github.com/abhishekY2401/product-service/pkg/db/models"
	"github.com/abhishekY2401/product-service/pkg/events"
	"github.com/abhishekY2401/product-service/pkg/logger"
)

type recordingEmitter struct {
	mu   sync.Mutex
	msgs []events.Message
	err  error
}

func (e *recordingEmitter) Emit(_ context.Context, msg events.Message) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	e.msgs = append(e.msgs, msg)
	return nil
}

func (e *recordingEmitter) messages() []events.Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]events.Message(nil), e.msgs...)
}

type recordingOutbox struct {
	msgs []events.Message
	err  error
}

func (o *recordingOutbox) EmitMessage(_ context.Context, tx *gorm.DB, msg events.Message) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if o.err != nil {
		return o.err
	}
	o.msgs = append(o.msgs, msg)
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "products-test", Output: io.Discard})
}

func newTestService(t *testing.T, emitter *recordingEmitter, outbox *recordingOutbox) (Service, *db.Client) {
	t.Helper()
	client := dbtest.Open(t)
	params := ServiceParams{
		Repo:   NewRepository(client.DB()),
		DB:     client,
		Logger: testLogger(),
	}
	if emitter != nil {
		params.Emitter = emitter
	}
	if outbox != nil {
		params.Outbox = outbox
	}
	svc, err := NewService(params)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, client
}

func seedProduct(t *testing.T, client *db.Client, name, sku string, stock int) *models.Product {
	t.Helper()
	p := &models.Product{
		Name:        name,
		Description: name + " description",
		Price:       decimal.RequireFromString("19.99"),
		Stock:       stock,
		Category:    "office",
		SKU:         sku,
	}
	if err := client.DB().Create(p).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return p
}

func validInput() CreateProductInput {
	return CreateProductInput{
		Name:        "Standing Desk",
		Description: "Adjustable height desk",
		Price:       349.5,
		Stock:       12,
		SKU:         "DESK-001",
		Category:    "furniture",
	}
}
