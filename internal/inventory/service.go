package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mateoreyes/storefront-pos/pkg/db/models"
	pkgerrors "github.com/mateoreyes/storefront-pos/pkg/errors"
	"github.com/mateoreyes/storefront-pos/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes administrative stock operations.
type Service interface {
	AdjustStock(ctx context.Context, productID uuid.UUID, delta int) (*models.Product, error)
}

type service struct {
	tx   txRunner
	repo *Repository
	logg *logger.Logger
}

// NewService builds the inventory service.
func NewService(tx txRunner, repo *Repository, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	return &service{tx: tx, repo: repo, logg: logg}, nil
}

// AdjustStock applies a signed delta to the product's stock under a row
// lock, clamping the result at zero. This is an administrative correction,
// so unlike a sale it never fails on insufficiency. Delta shape (integer,
// finite) is validated at the request boundary before any lock is taken.
func (s *service) AdjustStock(ctx context.Context, productID uuid.UUID, delta int) (*models.Product, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}

	var adjusted *models.Product
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		product, err := repo.FindForUpdate(ctx, productID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return err
		}

		next := product.Stock + delta
		if next < 0 {
			next = 0
		}
		product.Stock = next

		if err := repo.Save(ctx, product); err != nil {
			return err
		}
		adjusted = product
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		lctx := s.logg.WithFields(ctx, map[string]any{
			"product_id": productID.String(),
			"delta":      delta,
			"stock":      adjusted.Stock,
		})
		s.logg.Info(lctx, "stock.adjusted")
	}
	return adjusted, nil
}
