package controllers

import (
	"fmt"
	"net/http"

	"github.com/abhishekY2401/product-service/api/responses"
	"github.com/abhishekY2401/product-service/api/validators"
	productsvc "github.com/abhishekY2401/product-service/internal/products"
	pkgerrors "github.com/abhishekY2401/product-service/pkg/errors"
	"github.com/abhishekY2401/product-service/pkg/logger"
)

// ListProducts returns every product.
func ListProducts(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}
		list, err := svc.ListProducts(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteProducts(w, http.StatusOK, fmt.Sprintf("%d products", len(list)), list)
	}
}

// GetProduct returns a single product wrapped in a one-element list.
func GetProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}
		id, err := validators.ParsePathID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.GetProduct(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteProducts(w, http.StatusOK, "product found", []productsvc.ProductDTO{*product})
	}
}

// GetProductsByIDs returns the products among ?ids= that exist.
func GetProductsByIDs(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}
		ids, err := validators.ParseIDList(r, "ids")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.GetProductsByIDs(r.Context(), ids)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteProducts(w, http.StatusOK, fmt.Sprintf("%d products", len(list)), list)
	}
}

// CreateProduct validates and stores a product, then announces it.
func CreateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}
		var input productsvc.CreateProductInput
		if err := validators.DecodeJSON(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.CreateProduct(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteProducts(w, http.StatusCreated, "product created", []productsvc.ProductDTO{*product})
	}
}
