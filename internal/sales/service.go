package sales

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mateoreyes/storefront-pos/internal/inventory"
	"github.com/mateoreyes/storefront-pos/pkg/db/models"
	"github.com/mateoreyes/storefront-pos/pkg/enums"
	pkgerrors "github.com/mateoreyes/storefront-pos/pkg/errors"
	"github.com/mateoreyes/storefront-pos/pkg/logger"
	"github.com/mateoreyes/storefront-pos/pkg/metrics"
	"github.com/mateoreyes/storefront-pos/pkg/money"
	"github.com/mateoreyes/storefront-pos/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// LineItemInput carries one requested line item. UnitPrice is optional; when
// absent the product's current price is snapshotted instead.
type LineItemInput struct {
	ProductID uuid.UUID
	Quantity  int
	UnitPrice *decimal.Decimal
}

// UpdateLineItemInput is a partial update. Nil fields keep their current
// value. Setting SaleID moves the line item onto another sale.
type UpdateLineItemInput struct {
	SaleID    *uuid.UUID
	ProductID *uuid.UUID
	Quantity  *int
	UnitPrice *decimal.Decimal
}

// CreateSaleInput describes a manual point-of-sale entry.
type CreateSaleInput struct {
	PaymentMethod enums.PaymentMethod
	EmployeeID    *uuid.UUID
	EmployeeName  string
	CustomerName  *string
	Notes         *string
	Items         []LineItemInput
}

// Service is the sale line-item ledger plus the sale CRUD around it. Every
// stock-affecting operation runs in one transaction, locks the product rows
// it touches in ascending id order, and leaves sale.total equal to the sum of
// the sale's live line-item subtotals.
type Service interface {
	CreateSale(ctx context.Context, input CreateSaleInput) (*models.Sale, error)
	GetSale(ctx context.Context, id uuid.UUID) (*models.Sale, error)
	ListSales(ctx context.Context, params pagination.Params) ([]models.Sale, string, error)
	DeleteSale(ctx context.Context, id uuid.UUID) error

	CreateLineItem(ctx context.Context, saleID uuid.UUID, input LineItemInput) (*models.SaleLineItem, error)
	UpdateLineItem(ctx context.Context, itemID uuid.UUID, input UpdateLineItemInput) (*models.SaleLineItem, error)
	RemoveLineItem(ctx context.Context, itemID uuid.UUID) error
}

type service struct {
	tx       txRunner
	repo     *Repository
	products *inventory.Repository
	logg     *logger.Logger
	meter    *metrics.OrderMetrics
}

// NewService builds the sales service.
func NewService(tx txRunner, repo *Repository, products *inventory.Repository, logg *logger.Logger, meter *metrics.OrderMetrics) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("sales repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	return &service{tx: tx, repo: repo, products: products, logg: logg, meter: meter}, nil
}

func (s *service) CreateSale(ctx context.Context, input CreateSaleInput) (*models.Sale, error) {
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	if input.EmployeeName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "employee name required")
	}
	for _, item := range input.Items {
		if item.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
		}
		if item.Quantity < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
		}
	}

	sale := &models.Sale{
		PaymentMethod: input.PaymentMethod,
		Status:        enums.SaleStatusCompleted,
		EmployeeID:    input.EmployeeID,
		EmployeeName:  input.EmployeeName,
		CustomerName:  input.CustomerName,
		Notes:         input.Notes,
		Total:         decimal.Zero,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		products := s.products.WithTx(tx)

		if err := repo.CreateSale(ctx, sale); err != nil {
			return err
		}

		if len(input.Items) > 0 {
			ids := make([]uuid.UUID, 0, len(input.Items))
			for _, item := range input.Items {
				ids = append(ids, item.ProductID)
			}
			locked, err := products.LockProducts(ctx, ids...)
			if err != nil {
				return err
			}

			for _, in := range input.Items {
				product, ok := locked[in.ProductID]
				if !ok {
					return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
				}
				if product.Stock < in.Quantity {
					s.meter.IncStockConflict("sale.create")
					return pkgerrors.InsufficientStock(product.Stock, in.Quantity)
				}
				product.Stock -= in.Quantity
				if err := products.Save(ctx, product); err != nil {
					return err
				}

				unitPrice := product.Price
				if in.UnitPrice != nil {
					unitPrice = money.Round2(*in.UnitPrice)
				}
				item := &models.SaleLineItem{
					SaleID:    sale.ID,
					ProductID: in.ProductID,
					Quantity:  in.Quantity,
					UnitPrice: unitPrice,
					Subtotal:  money.LineSubtotal(unitPrice, in.Quantity),
				}
				if err := repo.CreateLineItem(ctx, item); err != nil {
					return err
				}
				sale.Items = append(sale.Items, *item)
			}
		}

		total, err := repo.RecalculateTotal(ctx, sale.ID)
		if err != nil {
			return err
		}
		sale.Total = total
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		lctx := s.logg.WithSaleID(ctx, sale.ID.String())
		s.logg.Info(lctx, "sale.created")
	}
	return sale, nil
}

func (s *service) GetSale(ctx context.Context, id uuid.UUID) (*models.Sale, error) {
	sale, err := s.repo.FindSaleWithItems(ctx, id)
	if err != nil {
		return nil, asNotFound(err, "sale not found")
	}
	return sale, nil
}

func (s *service) ListSales(ctx context.Context, params pagination.Params) ([]models.Sale, string, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.repo.ListSales(ctx, pagination.LimitWithBuffer(params.Limit), cursor)
	if err != nil {
		return nil, "", err
	}

	next := ""
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return rows, next, nil
}

// DeleteSale voids the sale: every live line item's quantity is returned to
// its product, then the items and the sale are soft-deleted together.
func (s *service) DeleteSale(ctx context.Context, id uuid.UUID) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		products := s.products.WithTx(tx)

		if _, err := repo.FindSaleByID(ctx, id); err != nil {
			return asNotFound(err, "sale not found")
		}

		items, err := repo.ListLineItems(ctx, id)
		if err != nil {
			return err
		}
		ids := make([]uuid.UUID, 0, len(items))
		for _, item := range items {
			ids = append(ids, item.ProductID)
		}
		locked, err := products.LockProducts(ctx, ids...)
		if err != nil {
			return err
		}
		for _, item := range items {
			product, ok := locked[item.ProductID]
			if !ok {
				continue
			}
			product.Stock += item.Quantity
			if err := products.Save(ctx, product); err != nil {
				return err
			}
		}

		if err := repo.SoftDeleteLineItemsBySale(ctx, id); err != nil {
			return err
		}
		return repo.SoftDeleteSale(ctx, id)
	})
	if err != nil {
		return err
	}

	if s.logg != nil {
		lctx := s.logg.WithSaleID(ctx, id.String())
		s.logg.Info(lctx, "sale.deleted")
	}
	return nil
}

func (s *service) CreateLineItem(ctx context.Context, saleID uuid.UUID, input LineItemInput) (*models.SaleLineItem, error) {
	if saleID == uuid.Nil || input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sale id and product id required")
	}
	if input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	var created *models.SaleLineItem
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		products := s.products.WithTx(tx)

		if _, err := repo.FindSaleByID(ctx, saleID); err != nil {
			return asNotFound(err, "sale not found")
		}

		product, err := products.FindForUpdate(ctx, input.ProductID)
		if err != nil {
			return asNotFound(err, "product not found")
		}
		if product.Stock < input.Quantity {
			s.meter.IncStockConflict("line_item.create")
			return pkgerrors.InsufficientStock(product.Stock, input.Quantity)
		}
		product.Stock -= input.Quantity
		if err := products.Save(ctx, product); err != nil {
			return err
		}

		unitPrice := product.Price
		if input.UnitPrice != nil {
			unitPrice = money.Round2(*input.UnitPrice)
		}
		item := &models.SaleLineItem{
			SaleID:    saleID,
			ProductID: input.ProductID,
			Quantity:  input.Quantity,
			UnitPrice: unitPrice,
			Subtotal:  money.LineSubtotal(unitPrice, input.Quantity),
		}
		if err := repo.CreateLineItem(ctx, item); err != nil {
			return err
		}

		if _, err := repo.RecalculateTotal(ctx, saleID); err != nil {
			return err
		}
		created = item
		return nil
	})
	s.meter.IncLedgerOp("create", outcomeOf(err))
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		lctx := s.logg.WithFields(ctx, map[string]any{
			"sale_id":    saleID.String(),
			"product_id": input.ProductID.String(),
			"quantity":   input.Quantity,
		})
		s.logg.Info(lctx, "sale_line_item.created")
	}
	return created, nil
}

// UpdateLineItem applies a partial update under one transaction. When the
// product changes, both product rows are locked in ascending id order, the
// old quantity is returned in full and the new quantity is taken in full,
// with the stock check on the new product only. When only the quantity
// changes, the single product is locked and the signed delta applied, with a
// stock check only for a positive delta. A failure at any point rolls back
// everything, including stock already returned earlier in the transaction.
func (s *service) UpdateLineItem(ctx context.Context, itemID uuid.UUID, input UpdateLineItemInput) (*models.SaleLineItem, error) {
	if itemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "line item id required")
	}
	if input.Quantity != nil && *input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	if input.ProductID != nil && *input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}

	var updated *models.SaleLineItem
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		products := s.products.WithTx(tx)

		item, err := repo.FindLineItemByID(ctx, itemID)
		if err != nil {
			return asNotFound(err, "line item not found")
		}

		oldSaleID := item.SaleID
		oldProductID := item.ProductID
		oldQuantity := item.Quantity

		newSaleID := oldSaleID
		if input.SaleID != nil && *input.SaleID != oldSaleID {
			if _, err := repo.FindSaleByID(ctx, *input.SaleID); err != nil {
				return asNotFound(err, "sale not found")
			}
			newSaleID = *input.SaleID
		}
		newProductID := oldProductID
		if input.ProductID != nil {
			newProductID = *input.ProductID
		}
		newQuantity := oldQuantity
		if input.Quantity != nil {
			newQuantity = *input.Quantity
		}

		switch {
		case newProductID != oldProductID:
			locked, err := products.LockProducts(ctx, oldProductID, newProductID)
			if err != nil {
				return err
			}
			newProduct, ok := locked[newProductID]
			if !ok {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			if newProduct.Stock < newQuantity {
				s.meter.IncStockConflict("line_item.update")
				return pkgerrors.InsufficientStock(newProduct.Stock, newQuantity)
			}
			// A missing old product is a stale reference; there is no row to
			// return the stock to, so the restock is skipped.
			if oldProduct, ok := locked[oldProductID]; ok {
				oldProduct.Stock += oldQuantity
				if err := products.Save(ctx, oldProduct); err != nil {
					return err
				}
			}
			newProduct.Stock -= newQuantity
			if err := products.Save(ctx, newProduct); err != nil {
				return err
			}
			item.UnitPrice = newProduct.Price

		case newQuantity != oldQuantity:
			delta := newQuantity - oldQuantity
			product, err := products.FindForUpdate(ctx, oldProductID)
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				// Stale product reference: nothing to adjust.
			case err != nil:
				return err
			default:
				if delta > 0 && product.Stock < delta {
					s.meter.IncStockConflict("line_item.update")
					return pkgerrors.InsufficientStock(product.Stock, delta)
				}
				product.Stock -= delta
				if err := products.Save(ctx, product); err != nil {
					return err
				}
			}
		}

		if input.UnitPrice != nil {
			item.UnitPrice = money.Round2(*input.UnitPrice)
		}
		item.SaleID = newSaleID
		item.ProductID = newProductID
		item.Quantity = newQuantity
		item.Subtotal = money.LineSubtotal(item.UnitPrice, newQuantity)
		if err := repo.SaveLineItem(ctx, item); err != nil {
			return err
		}

		if _, err := repo.RecalculateTotal(ctx, oldSaleID); err != nil {
			return err
		}
		if newSaleID != oldSaleID {
			if _, err := repo.RecalculateTotal(ctx, newSaleID); err != nil {
				return err
			}
		}
		updated = item
		return nil
	})
	s.meter.IncLedgerOp("update", outcomeOf(err))
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		lctx := s.logg.WithFields(ctx, map[string]any{
			"line_item_id": itemID.String(),
			"sale_id":      updated.SaleID.String(),
		})
		s.logg.Info(lctx, "sale_line_item.updated")
	}
	return updated, nil
}

// RemoveLineItem returns the item's full quantity to its product and
// soft-deletes the row. Line items are never hard-deleted.
func (s *service) RemoveLineItem(ctx context.Context, itemID uuid.UUID) error {
	if itemID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "line item id required")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		products := s.products.WithTx(tx)

		item, err := repo.FindLineItemByID(ctx, itemID)
		if err != nil {
			return asNotFound(err, "line item not found")
		}

		product, err := products.FindForUpdate(ctx, item.ProductID)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			// Stale product reference: nothing to restock.
		case err != nil:
			return err
		default:
			product.Stock += item.Quantity
			if err := products.Save(ctx, product); err != nil {
				return err
			}
		}

		if err := repo.SoftDeleteLineItem(ctx, itemID); err != nil {
			return err
		}
		_, err = repo.RecalculateTotal(ctx, item.SaleID)
		return err
	})
	s.meter.IncLedgerOp("remove", outcomeOf(err))
	if err != nil {
		return err
	}

	if s.logg != nil {
		lctx := s.logg.WithFields(ctx, map[string]any{"line_item_id": itemID.String()})
		s.logg.Info(lctx, "sale_line_item.removed")
	}
	return nil
}

func asNotFound(err error, message string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, message)
	}
	return err
}

func outcomeOf(err error) string {
	if err == nil {
		return "ok"
	}
	if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeConflict {
		return "conflict"
	}
	return "error"
}
