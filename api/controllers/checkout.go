package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/mateoreyes/storefront-pos/api/responses"
	"github.com/mateoreyes/storefront-pos/api/validators"
	checkoutsvc "github.com/mateoreyes/storefront-pos/internal/checkout"
	"github.com/mateoreyes/storefront-pos/pkg/enums"
	pkgerrors "github.com/mateoreyes/storefront-pos/pkg/errors"
	"github.com/mateoreyes/storefront-pos/pkg/logger"
	"github.com/mateoreyes/storefront-pos/pkg/types"
)

// Checkout converts a cart into a sale with a simulated payment.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		method, err := enums.ParsePaymentMethod(payload.PaymentMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		sale, err := svc.Checkout(r.Context(), checkoutsvc.Input{
			CartID:        payload.CartID,
			PaymentMethod: method,
			CardNumber:    payload.CardNumber,
			CardHolder:    payload.CardHolder,
			CustomerName:  payload.CustomerName,
			Delivery:      payload.Delivery,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newSaleResponse(sale))
	}
}

type checkoutRequest struct {
	CartID        uuid.UUID      `json:"cart_id" validate:"required"`
	PaymentMethod string         `json:"payment_method" validate:"required,oneof=qr card"`
	CardNumber    *string        `json:"card_number,omitempty"`
	CardHolder    *string        `json:"card_holder,omitempty"`
	CustomerName  *string        `json:"customer_name,omitempty"`
	Delivery      *types.Address `json:"delivery,omitempty"`
}
