package controllers

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mateoreyes/storefront-pos/api/responses"
	"github.com/mateoreyes/storefront-pos/api/validators"
	salessvc "github.com/mateoreyes/storefront-pos/internal/sales"
	"github.com/mateoreyes/storefront-pos/pkg/enums"
	pkgerrors "github.com/mateoreyes/storefront-pos/pkg/errors"
	"github.com/mateoreyes/storefront-pos/pkg/logger"
	"github.com/mateoreyes/storefront-pos/pkg/pagination"
)

type saleItemRequest struct {
	ProductID uuid.UUID        `json:"product_id" validate:"required"`
	Quantity  int              `json:"quantity" validate:"required,min=1"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
}

type createSaleRequest struct {
	PaymentMethod string            `json:"payment_method" validate:"required,oneof=qr card"`
	EmployeeID    *uuid.UUID        `json:"employee_id,omitempty"`
	EmployeeName  string            `json:"employee_name" validate:"required"`
	CustomerName  *string           `json:"customer_name,omitempty"`
	Notes         *string           `json:"notes,omitempty"`
	Items         []saleItemRequest `json:"items,omitempty" validate:"omitempty,dive"`
}

type updateSaleItemRequest struct {
	SaleID    *uuid.UUID       `json:"sale_id,omitempty"`
	ProductID *uuid.UUID       `json:"product_id,omitempty"`
	Quantity  *int             `json:"quantity,omitempty" validate:"omitempty,min=1"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
}

type saleListResponse struct {
	Sales      []saleResponse `json:"sales"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

func SaleCreate(svc salessvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createSaleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		method, err := enums.ParsePaymentMethod(payload.PaymentMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		items := make([]salessvc.LineItemInput, 0, len(payload.Items))
		for _, item := range payload.Items {
			items = append(items, salessvc.LineItemInput{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				UnitPrice: item.UnitPrice,
			})
		}

		sale, err := svc.CreateSale(r.Context(), salessvc.CreateSaleInput{
			PaymentMethod: method,
			EmployeeID:    payload.EmployeeID,
			EmployeeName:  payload.EmployeeName,
			CustomerName:  payload.CustomerName,
			Notes:         payload.Notes,
			Items:         items,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newSaleResponse(sale))
	}
}

func SaleFetch(svc salessvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		saleID, err := pathUUID(r, "saleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sale, err := svc.GetSale(r.Context(), saleID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newSaleResponse(sale))
	}
}

func SaleList(svc salessvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params := pagination.Params{Cursor: r.URL.Query().Get("cursor")}
		if raw := r.URL.Query().Get("limit"); raw != "" {
			limit, err := strconv.Atoi(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid limit"))
				return
			}
			params.Limit = limit
		}

		rows, next, err := svc.ListSales(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := saleListResponse{
			Sales:      make([]saleResponse, 0, len(rows)),
			NextCursor: next,
		}
		for i := range rows {
			out.Sales = append(out.Sales, newSaleResponse(&rows[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

func SaleDelete(svc salessvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		saleID, err := pathUUID(r, "saleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteSale(r.Context(), saleID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

func SaleItemCreate(svc salessvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		saleID, err := pathUUID(r, "saleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload saleItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.CreateLineItem(r.Context(), saleID, salessvc.LineItemInput{
			ProductID: payload.ProductID,
			Quantity:  payload.Quantity,
			UnitPrice: payload.UnitPrice,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newSaleItemResponse(item))
	}
}

func SaleItemUpdate(svc salessvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := pathUUID(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateSaleItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.UpdateLineItem(r.Context(), itemID, salessvc.UpdateLineItemInput{
			SaleID:    payload.SaleID,
			ProductID: payload.ProductID,
			Quantity:  payload.Quantity,
			UnitPrice: payload.UnitPrice,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newSaleItemResponse(item))
	}
}

func SaleItemDelete(svc salessvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := pathUUID(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.RemoveLineItem(r.Context(), itemID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "removed"})
	}
}
