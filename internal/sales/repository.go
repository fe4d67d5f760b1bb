package sales

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mateoreyes/storefront-pos/pkg/db/models"
	"github.com/mateoreyes/storefront-pos/pkg/pagination"
)

// Repository persists sales and their line items. Sales and line items are
// soft-deleted; every query here goes through the ORM soft-delete scope, so
// deleted rows never leak into reads or totals.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// CreateSale inserts the sale row.
func (r *Repository) CreateSale(ctx context.Context, sale *models.Sale) error {
	return r.db.WithContext(ctx).Create(sale).Error
}

// FindSaleByID loads the sale header without associations.
func (r *Repository) FindSaleByID(ctx context.Context, id uuid.UUID) (*models.Sale, error) {
	var sale models.Sale
	if err := r.db.WithContext(ctx).First(&sale, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &sale, nil
}

// FindSaleWithItems loads the sale with its live line items and payments.
func (r *Repository) FindSaleWithItems(ctx context.Context, id uuid.UUID) (*models.Sale, error) {
	var sale models.Sale
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Payments").
		First(&sale, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

// ListSales returns up to limit sales ordered by creation time descending,
// starting after the cursor when one is provided. Callers pass the buffered
// limit and trim the extra row themselves.
func (r *Repository) ListSales(ctx context.Context, limit int, cursor *pagination.Cursor) ([]models.Sale, error) {
	q := r.db.WithContext(ctx).Model(&models.Sale{})
	if cursor != nil {
		q = q.Where(
			"created_at < ? OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var out []models.Sale
	err := q.Order("created_at DESC, id DESC").Limit(limit).Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SaveSale persists changes to the sale row.
func (r *Repository) SaveSale(ctx context.Context, sale *models.Sale) error {
	return r.db.WithContext(ctx).Save(sale).Error
}

// SoftDeleteSale marks the sale deleted.
func (r *Repository) SoftDeleteSale(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Sale{}, "id = ?", id).Error
}

// CreateLineItem inserts one line item.
func (r *Repository) CreateLineItem(ctx context.Context, item *models.SaleLineItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// FindLineItemByID loads a live line item.
func (r *Repository) FindLineItemByID(ctx context.Context, itemID uuid.UUID) (*models.SaleLineItem, error) {
	var item models.SaleLineItem
	if err := r.db.WithContext(ctx).First(&item, "id = ?", itemID).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// ListLineItems returns the live line items on a sale, oldest first.
func (r *Repository) ListLineItems(ctx context.Context, saleID uuid.UUID) ([]models.SaleLineItem, error) {
	var items []models.SaleLineItem
	err := r.db.WithContext(ctx).
		Where("sale_id = ?", saleID).
		Order("created_at ASC, id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// SaveLineItem persists changes to one line item.
func (r *Repository) SaveLineItem(ctx context.Context, item *models.SaleLineItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

// SoftDeleteLineItem marks one line item deleted.
func (r *Repository) SoftDeleteLineItem(ctx context.Context, itemID uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.SaleLineItem{}, "id = ?", itemID).Error
}

// SoftDeleteLineItemsBySale marks every live line item on the sale deleted.
func (r *Repository) SoftDeleteLineItemsBySale(ctx context.Context, saleID uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.SaleLineItem{}, "sale_id = ?", saleID).Error
}

// CreatePayment inserts one simulated payment for a sale.
func (r *Repository) CreatePayment(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

// SumLineItemSubtotals sums the subtotals of the sale's live line items.
func (r *Repository) SumLineItemSubtotals(ctx context.Context, saleID uuid.UUID) (decimal.Decimal, error) {
	row := r.db.WithContext(ctx).
		Model(&models.SaleLineItem{}).
		Where("sale_id = ?", saleID).
		Select("COALESCE(SUM(subtotal), 0)").
		Row()

	var total decimal.Decimal
	if err := row.Scan(&total); err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// RecalculateTotal rewrites the sale's total from its live line items. When
// the sale row itself is gone the update touches zero rows, which is fine:
// a total on a deleted sale is unobservable.
func (r *Repository) RecalculateTotal(ctx context.Context, saleID uuid.UUID) (decimal.Decimal, error) {
	total, err := r.SumLineItemSubtotals(ctx, saleID)
	if err != nil {
		return decimal.Zero, err
	}
	err = r.db.WithContext(ctx).
		Model(&models.Sale{}).
		Where("id = ?", saleID).
		Update("total", total).Error
	if err != nil {
		return decimal.Zero, err
	}
	return total, nil
}
