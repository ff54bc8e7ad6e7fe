package controllers

import (
	"context"
	"net/http"

	"github.com/abhishekY2401/product-service/api/responses"
	"github.com/abhishekY2401/product-service/api/validators"
	productsvc "github.com/abhishekY2401/product-service/internal/products"
	"github.com/abhishekY2401/product-service/pkg/db/models"
	pkgerrors "github.com/abhishekY2401/product-service/pkg/errors"
	"github.com/abhishekY2401/product-service/pkg/logger"
)

// StockAdjuster applies a stock delta to one product.
type StockAdjuster interface {
	AdjustStock(ctx context.Context, productID int64, delta int) (*models.Product, error)
}

type updateInventoryRequest struct {
	StockChange *int `json:"stock_change" validate:"required"`
}

// UpdateProductInventory adjusts a product's stock by stock_change. Zero is
// accepted and re-announces the current stock.
func UpdateProductInventory(svc StockAdjuster, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}
		id, err := validators.ParsePathID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload updateInventoryRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.AdjustStock(r.Context(), id, *payload.StockChange)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteProducts(w, http.StatusOK, "inventory updated", []productsvc.ProductDTO{productsvc.ToDTO(*product)})
	}
}
