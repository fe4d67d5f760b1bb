package inventory

import (
	"bytes"
	"context"
	"errors"
	"slices"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mateoreyes/storefront-pos/pkg/db/models"
)

// Repository is the single gate to product stock. Every stock-mutating path
// acquires its row lock here before reading the stock value.
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

// FindByID loads the product without locking.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindForUpdate loads the product under a row lock held for the lifetime of
// the surrounding transaction. Callers must be inside a transaction.
func (r *Repository) FindForUpdate(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.lockingQuery(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// LockProducts locks the given product rows in ascending id order, the fixed
// order every call site uses so two transactions touching the same pair of
// products cannot deadlock. Missing ids are omitted from the result; the
// caller decides whether a stale reference is fatal.
func (r *Repository) LockProducts(ctx context.Context, ids ...uuid.UUID) (map[uuid.UUID]*models.Product, error) {
	ordered := make([]uuid.UUID, 0, len(ids))
	seen := map[uuid.UUID]struct{}{}
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ordered = append(ordered, id)
	}
	slices.SortFunc(ordered, func(a, b uuid.UUID) int {
		return bytes.Compare(a[:], b[:])
	})

	locked := make(map[uuid.UUID]*models.Product, len(ordered))
	for _, id := range ordered {
		product, err := r.FindForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, err
		}
		locked[product.ID] = product
	}
	return locked, nil
}

// Save persists the product row.
func (r *Repository) Save(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Save(product).Error
}

// lockingQuery applies SELECT ... FOR UPDATE on dialects that support it.
// SQLite (used by the test suite) serializes writers on its own and rejects
// the clause outright.
func (r *Repository) lockingQuery(ctx context.Context) *gorm.DB {
	q := r.db.WithContext(ctx)
	if r.db.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return q
}
