package cart

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mateoreyes/storefront-pos/internal/inventory"
	"github.com/mateoreyes/storefront-pos/pkg/db"
	"github.com/mateoreyes/storefront-pos/pkg/db/models"
	"github.com/mateoreyes/storefront-pos/pkg/enums"
	pkgerrors "github.com/mateoreyes/storefront-pos/pkg/errors"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:cart_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&models.Category{},
		&models.Product{},
		&models.Cart{},
		&models.CartItem{},
	))

	svc, err := NewService(db.NewWithConn(conn), NewRepository(conn), inventory.NewRepository(conn), nil)
	require.NoError(t, err)
	return svc, conn
}

func seedProduct(t *testing.T, conn *gorm.DB, price string, active bool) *models.Product {
	t.Helper()

	product := &models.Product{
		Name:     "espresso beans",
		Price:    decimal.RequireFromString(price),
		Stock:    50,
		IsActive: active,
	}
	require.NoError(t, conn.Create(product).Error)
	return product
}

func strPtr(s string) *string { return &s }

func TestCreateCartRequiresExactlyOneOwner(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	customerID := uuid.New()

	_, err := svc.CreateCart(ctx, CreateCartInput{})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())

	_, err = svc.CreateCart(ctx, CreateCartInput{CustomerID: &customerID, AnonymousID: strPtr("anon-1")})
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())

	created, err := svc.CreateCart(ctx, CreateCartInput{CustomerID: &customerID})
	require.NoError(t, err)
	require.Equal(t, enums.CartStatusActive, created.Status)
	require.NotNil(t, created.CustomerID)
	require.Nil(t, created.AnonymousID)

	created, err = svc.CreateCart(ctx, CreateCartInput{AnonymousID: strPtr("anon-1")})
	require.NoError(t, err)
	require.Nil(t, created.CustomerID)
	require.NotNil(t, created.AnonymousID)
}

func TestAddItemComputesSubtotalServerSide(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	product := seedProduct(t, conn, "12.50", true)
	created, err := svc.CreateCart(ctx, CreateCartInput{AnonymousID: strPtr("anon-1")})
	require.NoError(t, err)

	updated, err := svc.AddItem(ctx, created.ID, product.ID, 2)
	require.NoError(t, err)
	require.Len(t, updated.Items, 1)
	require.Equal(t, "25.00", updated.Items[0].Subtotal.StringFixed(2))
	require.Equal(t, "25.00", updated.Total.StringFixed(2))
}

func TestAddItemMergesExistingProduct(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	product := seedProduct(t, conn, "4.00", true)
	created, err := svc.CreateCart(ctx, CreateCartInput{AnonymousID: strPtr("anon-1")})
	require.NoError(t, err)

	_, err = svc.AddItem(ctx, created.ID, product.ID, 2)
	require.NoError(t, err)
	updated, err := svc.AddItem(ctx, created.ID, product.ID, 3)
	require.NoError(t, err)

	require.Len(t, updated.Items, 1)
	require.Equal(t, 5, updated.Items[0].Quantity)
	require.Equal(t, "20.00", updated.Items[0].Subtotal.StringFixed(2))
	require.Equal(t, "20.00", updated.Total.StringFixed(2))
}

func TestAddItemRejectsInactiveProductAndCart(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	inactive := seedProduct(t, conn, "4.00", false)
	created, err := svc.CreateCart(ctx, CreateCartInput{AnonymousID: strPtr("anon-1")})
	require.NoError(t, err)

	_, err = svc.AddItem(ctx, created.ID, inactive.ID, 1)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeStateConflict, typed.Code())

	require.NoError(t, conn.Model(&models.Cart{}).
		Where("id = ?", created.ID).
		Update("status", enums.CartStatusProcessed).Error)

	active := seedProduct(t, conn, "4.00", true)
	_, err = svc.AddItem(ctx, created.ID, active.ID, 1)
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestUpdateItemQuantityUsesCurrentPrice(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	product := seedProduct(t, conn, "10.00", true)
	created, err := svc.CreateCart(ctx, CreateCartInput{AnonymousID: strPtr("anon-1")})
	require.NoError(t, err)
	withItem, err := svc.AddItem(ctx, created.ID, product.ID, 1)
	require.NoError(t, err)

	require.NoError(t, conn.Model(&models.Product{}).
		Where("id = ?", product.ID).
		Update("price", "11.00").Error)

	updated, err := svc.UpdateItemQuantity(ctx, created.ID, withItem.Items[0].ID, 3)
	require.NoError(t, err)
	require.Equal(t, "33.00", updated.Items[0].Subtotal.StringFixed(2))
	require.Equal(t, "33.00", updated.Total.StringFixed(2))
}

func TestRemoveItemRecomputesTotal(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	productA := seedProduct(t, conn, "10.00", true)
	productB := seedProduct(t, conn, "2.50", true)
	created, err := svc.CreateCart(ctx, CreateCartInput{AnonymousID: strPtr("anon-1")})
	require.NoError(t, err)

	withA, err := svc.AddItem(ctx, created.ID, productA.ID, 1)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, created.ID, productB.ID, 2)
	require.NoError(t, err)

	updated, err := svc.RemoveItem(ctx, created.ID, withA.Items[0].ID)
	require.NoError(t, err)
	require.Len(t, updated.Items, 1)
	require.Equal(t, "5.00", updated.Total.StringFixed(2))
}

func TestGetCartUnknownID(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.GetCart(context.Background(), uuid.New())
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}
