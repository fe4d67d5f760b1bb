package controllers

import (
	"time"

	"github.com/google/uuid"

	"github.com/mateoreyes/storefront-pos/pkg/db/models"
)

type saleResponse struct {
	ID            uuid.UUID             `json:"id"`
	Total         string                `json:"total"`
	PaymentMethod string                `json:"payment_method"`
	Status        string                `json:"status"`
	EmployeeID    *uuid.UUID            `json:"employee_id,omitempty"`
	EmployeeName  string                `json:"employee_name"`
	CustomerName  *string               `json:"customer_name,omitempty"`
	Notes         *string               `json:"notes,omitempty"`
	Items         []saleItemResponse    `json:"items"`
	Payments      []paymentResponse     `json:"payments,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
}

type saleItemResponse struct {
	ID        uuid.UUID `json:"id"`
	SaleID    uuid.UUID `json:"sale_id"`
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
	UnitPrice string    `json:"unit_price"`
	Subtotal  string    `json:"subtotal"`
}

type paymentResponse struct {
	ID             uuid.UUID `json:"id"`
	Method         string    `json:"method"`
	Amount         string    `json:"amount"`
	Status         string    `json:"status"`
	CardLastDigits *string   `json:"card_last_digits,omitempty"`
	CardHolder     *string   `json:"card_holder,omitempty"`
	QRReference    *string   `json:"qr_reference,omitempty"`
}

type cartResponse struct {
	ID          uuid.UUID          `json:"id"`
	CustomerID  *uuid.UUID         `json:"customer_id,omitempty"`
	AnonymousID *string            `json:"anonymous_id,omitempty"`
	Status      string             `json:"status"`
	Total       string             `json:"total"`
	Items       []cartItemResponse `json:"items"`
}

type cartItemResponse struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
	Subtotal  string    `json:"subtotal"`
}

type productResponse struct {
	ID          uuid.UUID  `json:"id"`
	CategoryID  *uuid.UUID `json:"category_id,omitempty"`
	Name        string     `json:"name"`
	Description *string    `json:"description,omitempty"`
	Price       string     `json:"price"`
	Stock       int        `json:"stock"`
	IsActive    bool       `json:"is_active"`
}

type categoryResponse struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

func newSaleResponse(sale *models.Sale) saleResponse {
	if sale == nil {
		return saleResponse{}
	}
	items := make([]saleItemResponse, 0, len(sale.Items))
	for _, item := range sale.Items {
		items = append(items, newSaleItemResponse(&item))
	}
	payments := make([]paymentResponse, 0, len(sale.Payments))
	for _, payment := range sale.Payments {
		payments = append(payments, paymentResponse{
			ID:             payment.ID,
			Method:         payment.Method.String(),
			Amount:         payment.Amount.StringFixed(2),
			Status:         payment.Status.String(),
			CardLastDigits: payment.CardLastDigits,
			CardHolder:     payment.CardHolder,
			QRReference:    payment.QRReference,
		})
	}
	return saleResponse{
		ID:            sale.ID,
		Total:         sale.Total.StringFixed(2),
		PaymentMethod: sale.PaymentMethod.String(),
		Status:        sale.Status.String(),
		EmployeeID:    sale.EmployeeID,
		EmployeeName:  sale.EmployeeName,
		CustomerName:  sale.CustomerName,
		Notes:         sale.Notes,
		Items:         items,
		Payments:      payments,
		CreatedAt:     sale.CreatedAt,
	}
}

func newSaleItemResponse(item *models.SaleLineItem) saleItemResponse {
	if item == nil {
		return saleItemResponse{}
	}
	return saleItemResponse{
		ID:        item.ID,
		SaleID:    item.SaleID,
		ProductID: item.ProductID,
		Quantity:  item.Quantity,
		UnitPrice: item.UnitPrice.StringFixed(2),
		Subtotal:  item.Subtotal.StringFixed(2),
	}
}

func newCartResponse(cart *models.Cart) cartResponse {
	if cart == nil {
		return cartResponse{}
	}
	items := make([]cartItemResponse, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, cartItemResponse{
			ID:        item.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Subtotal:  item.Subtotal.StringFixed(2),
		})
	}
	return cartResponse{
		ID:          cart.ID,
		CustomerID:  cart.CustomerID,
		AnonymousID: cart.AnonymousID,
		Status:      cart.Status.String(),
		Total:       cart.Total.StringFixed(2),
		Items:       items,
	}
}

func newProductResponse(product *models.Product) productResponse {
	if product == nil {
		return productResponse{}
	}
	return productResponse{
		ID:          product.ID,
		CategoryID:  product.CategoryID,
		Name:        product.Name,
		Description: product.Description,
		Price:       product.Price.StringFixed(2),
		Stock:       product.Stock,
		IsActive:    product.IsActive,
	}
}
