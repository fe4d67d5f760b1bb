package controllers

import (
	"net/http"

	"github.com/mateoreyes/storefront-pos/api/responses"
	"github.com/mateoreyes/storefront-pos/api/validators"
	inventorysvc "github.com/mateoreyes/storefront-pos/internal/inventory"
	"github.com/mateoreyes/storefront-pos/pkg/logger"
)

type adjustStockRequest struct {
	// Pointer so an explicit zero passes required and we can reject a
	// missing delta without treating it as a no-op.
	Delta *int `json:"delta" validate:"required"`
}

// StockAdjust applies a signed delta to a product's on-hand stock.
func StockAdjust(svc inventorysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := pathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload adjustStockRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.AdjustStock(r.Context(), productID, *payload.Delta)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newProductResponse(product))
	}
}
