package cart

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
	"github.com/mateoreyes/storefront-pos/pkg/money"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// CreateCartInput carries the owner reference. Exactly one of CustomerID
// and AnonymousID must be set.
type CreateCartInput struct {
	CustomerID  *uuid.UUID
	AnonymousID *string
}

// Service manages in-progress carts. Subtotals are always recomputed from
// the current product price on the server; client-submitted amounts are
// never persisted. Carts never touch product stock, that happens at
// checkout or on the sale ledger.
type Service interface {
	CreateCart(ctx context.Context, input CreateCartInput) (*models.Cart, error)
	GetCart(ctx context.Context, id uuid.UUID) (*models.Cart, error)
	AddItem(ctx context.Context, cartID, productID uuid.UUID, quantity int) (*models.Cart, error)
	UpdateItemQuantity(ctx context.Context, cartID, itemID uuid.UUID, quantity int) (*models.Cart, error)
	RemoveItem(ctx context.Context, cartID, itemID uuid.UUID) (*models.Cart, error)
}

type service struct {
	tx       txRunner
	repo     *Repository
	products *inventory.Repository
	logg     *logger.Logger
}

// NewService builds the cart service.
func NewService(tx txRunner, repo *Repository, products *inventory.Repository, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	return &service{tx: tx, repo: repo, products: products, logg: logg}, nil
}

func (s *service) CreateCart(ctx context.Context, input CreateCartInput) (*models.Cart, error) {
	hasCustomer := input.CustomerID != nil && *input.CustomerID != uuid.Nil
	hasAnonymous := input.AnonymousID != nil && *input.AnonymousID != ""
	if hasCustomer == hasAnonymous {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "exactly one of customer id and anonymous id required")
	}

	cart := &models.Cart{
		CustomerID:  input.CustomerID,
		AnonymousID: input.AnonymousID,
		Status:      enums.CartStatusActive,
	}
	if !hasCustomer {
		cart.CustomerID = nil
	}
	if !hasAnonymous {
		cart.AnonymousID = nil
	}
	if err := s.repo.Create(ctx, cart); err != nil {
		return nil, err
	}

	if s.logg != nil {
		lctx := s.logg.WithCartID(ctx, cart.ID.String())
		s.logg.Info(lctx, "cart.created")
	}
	return cart, nil
}

func (s *service) GetCart(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
	cart, err := s.repo.FindWithItems(ctx, id)
	if err != nil {
		return nil, asNotFound(err, "cart not found")
	}
	return cart, nil
}

func (s *service) AddItem(ctx context.Context, cartID, productID uuid.UUID, quantity int) (*models.Cart, error) {
	if quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	var out *models.Cart
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		products := s.products.WithTx(tx)

		cart, err := repo.FindByID(ctx, cartID)
		if err != nil {
			return asNotFound(err, "cart not found")
		}
		if cart.Status != enums.CartStatusActive {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cart is not active")
		}

		product, err := products.FindByID(ctx, productID)
		if err != nil {
			return asNotFound(err, "product not found")
		}
		if !product.IsActive {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "product is not active")
		}

		existing, err := repo.FindItemByProduct(ctx, cartID, productID)
		switch {
		case err == nil:
			existing.Quantity += quantity
			existing.Subtotal = money.LineSubtotal(product.Price, existing.Quantity)
			if err := repo.SaveItem(ctx, existing); err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			item := &models.CartItem{
				CartID:    cartID,
				ProductID: productID,
				Quantity:  quantity,
				Subtotal:  money.LineSubtotal(product.Price, quantity),
			}
			if err := repo.CreateItem(ctx, item); err != nil {
				return err
			}
		default:
			return err
		}

		out, err = s.recomputeTotal(ctx, repo, cart)
		return err
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		lctx := s.logg.WithFields(ctx, map[string]any{
			"cart_id":    cartID.String(),
			"product_id": productID.String(),
		})
		s.logg.Info(lctx, "cart_item.added")
	}
	return out, nil
}

func (s *service) UpdateItemQuantity(ctx context.Context, cartID, itemID uuid.UUID, quantity int) (*models.Cart, error) {
	if quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	var out *models.Cart
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		products := s.products.WithTx(tx)

		cart, err := repo.FindByID(ctx, cartID)
		if err != nil {
			return asNotFound(err, "cart not found")
		}
		if cart.Status != enums.CartStatusActive {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cart is not active")
		}

		item, err := repo.FindItem(ctx, cartID, itemID)
		if err != nil {
			return asNotFound(err, "cart item not found")
		}

		unitPrice := money.UnitPriceFromSubtotal(item.Subtotal, item.Quantity)
		if product, err := products.FindByID(ctx, item.ProductID); err == nil {
			unitPrice = product.Price
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		item.Quantity = quantity
		item.Subtotal = money.LineSubtotal(unitPrice, quantity)
		if err := repo.SaveItem(ctx, item); err != nil {
			return err
		}

		out, err = s.recomputeTotal(ctx, repo, cart)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) RemoveItem(ctx context.Context, cartID, itemID uuid.UUID) (*models.Cart, error) {
	var out *models.Cart
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		cart, err := repo.FindByID(ctx, cartID)
		if err != nil {
			return asNotFound(err, "cart not found")
		}
		if _, err := repo.FindItem(ctx, cartID, itemID); err != nil {
			return asNotFound(err, "cart item not found")
		}
		if err := repo.DeleteItem(ctx, itemID); err != nil {
			return err
		}

		out, err = s.recomputeTotal(ctx, repo, cart)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) recomputeTotal(ctx context.Context, repo *Repository, cart *models.Cart) (*models.Cart, error) {
	items, err := repo.ListItems(ctx, cart.ID)
	if err != nil {
		return nil, err
	}
	subtotals := make([]decimal.Decimal, 0, len(items))
	for _, item := range items {
		subtotals = append(subtotals, item.Subtotal)
	}
	cart.Total = money.Sum(subtotals...)
	cart.Items = items
	if err := repo.Save(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func asNotFound(err error, message string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, message)
	}
	return err
}
