package products

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhishekY2401/product-service/pkg/db/models"
	pkgerrors "github.com/abhishekY2401/product-service/pkg/errors"
	"github.com/abhishekY2401/product-service/pkg/events"
)

func TestCreateProductPublishesAfterCommit(t *testing.T) {
	emitter := &recordingEmitter{}
	svc, client := newTestService(t, emitter, nil)

	dto, err := svc.CreateProduct(context.Background(), validInput())
	require.NoError(t, err)
	assert.NotZero(t, dto.ID)
	assert.Equal(t, 349.5, dto.Price)
	assert.Equal(t, 12, dto.Stock)

	var stored models.Product
	require.NoError(t, client.DB().First(&stored, dto.ID).Error)
	assert.Equal(t, "DESK-001", stored.SKU)

	msgs := emitter.messages()
	require.Len(t, msgs, 1)
	created, ok := msgs[0].(events.ProductCreated)
	require.True(t, ok)
	assert.Equal(t, events.ProductCreated{ID: dto.ID, Name: "Standing Desk", Price: 349.5, Quantity: 12}, created)
}

func TestCreateProductToleratesPublishFailure(t *testing.T) {
	emitter := &recordingEmitter{err: errors.New("broker unavailable")}
	svc, client := newTestService(t, emitter, nil)

	dto, err := svc.CreateProduct(context.Background(), validInput())
	require.NoError(t, err)

	var count int64
	require.NoError(t, client.DB().Model(&models.Product{}).Where("id = ?", dto.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCreateProductRejectsMissingFields(t *testing.T) {
	emitter := &recordingEmitter{}
	svc, client := newTestService(t, emitter, nil)

	cases := map[string]func(*CreateProductInput){
		"name":        func(in *CreateProductInput) { in.Name = "  " },
		"description": func(in *CreateProductInput) { in.Description = "" },
		"price":       func(in *CreateProductInput) { in.Price = 0 },
		"stock":       func(in *CreateProductInput) { in.Stock = 0 },
		"sku":         func(in *CreateProductInput) { in.SKU = "" },
		"category":    func(in *CreateProductInput) { in.Category = "" },
		"negative":    func(in *CreateProductInput) { in.Price = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := validInput()
			mutate(&in)
			_, err := svc.CreateProduct(context.Background(), in)
			require.Error(t, err)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
		})
	}

	var count int64
	require.NoError(t, client.DB().Model(&models.Product{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Empty(t, emitter.messages())
}

func TestCreateProductDuplicateSKU(t *testing.T) {
	emitter := &recordingEmitter{}
	svc, client := newTestService(t, emitter, nil)
	seedProduct(t, client, "Existing", "DESK-001", 1)

	_, err := svc.CreateProduct(context.Background(), validInput())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDuplicateSKU), "got %v", err)
	assert.Empty(t, emitter.messages())

	var count int64
	require.NoError(t, client.DB().Model(&models.Product{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCreateProductDuplicateName(t *testing.T) {
	emitter := &recordingEmitter{}
	svc, client := newTestService(t, emitter, nil)
	seedProduct(t, client, "Standing Desk", "OTHER-1", 1)

	_, err := svc.CreateProduct(context.Background(), validInput())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDuplicateName), "got %v", err)
	assert.Empty(t, emitter.messages())
}

func TestCreateProductWithOutboxSkipsDirectPublish(t *testing.T) {
	emitter := &recordingEmitter{}
	outbox := &recordingOutbox{}
	svc, _ := newTestService(t, emitter, outbox)

	dto, err := svc.CreateProduct(context.Background(), validInput())
	require.NoError(t, err)
	assert.Empty(t, emitter.messages())
	require.Len(t, outbox.msgs, 1)
	assert.Equal(t, dto.ID, outbox.msgs[0].(events.ProductCreated).ID)
}

func TestCreateProductOutboxFailureRollsBack(t *testing.T) {
	outbox := &recordingOutbox{err: errors.New("disk full")}
	svc, client := newTestService(t, nil, outbox)

	_, err := svc.CreateProduct(context.Background(), validInput())
	require.Error(t, err)

	var count int64
	require.NoError(t, client.DB().Model(&models.Product{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestQueries(t *testing.T) {
	svc, client := newTestService(t, &recordingEmitter{}, nil)
	a := seedProduct(t, client, "Lamp", "LAMP-1", 3)
	b := seedProduct(t, client, "Chair", "CHAIR-1", 5)

	all, err := svc.ListProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Lamp", all[0].Name)

	one, err := svc.GetProduct(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, ProductDTO{ID: b.ID, Name: "Chair", Description: "Chair description", Price: 19.99, Stock: 5, Category: "office", SKU: "CHAIR-1"}, *one)

	_, err = svc.GetProduct(context.Background(), 999)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	byIDs, err := svc.GetProductsByIDs(context.Background(), []int64{a.ID, 999})
	require.NoError(t, err)
	require.Len(t, byIDs, 1)
	assert.Equal(t, a.ID, byIDs[0].ID)
}

func TestNewServiceValidation(t *testing.T) {
	_, err := NewService(ServiceParams{})
	assert.Error(t, err)
}
