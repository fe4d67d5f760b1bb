package catalog

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mateoreyes/storefront-pos/pkg/db/models"
	pkgerrors "github.com/mateoreyes/storefront-pos/pkg/errors"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:catalog_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.Category{}, &models.Product{}))

	svc, err := NewService(NewRepository(conn), nil)
	require.NoError(t, err)
	return svc, conn
}

func TestCreateCategoryUniqueName(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateCategory(ctx, "coffee")
	require.NoError(t, err)
	require.Equal(t, "coffee", created.Name)

	_, err = svc.CreateCategory(ctx, "coffee")
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeConflict, typed.Code())
}

func TestCreateProductValidatesAndRounds(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, CreateProductInput{Name: "  ", Price: decimal.NewFromInt(1)})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())

	_, err = svc.CreateProduct(ctx, CreateProductInput{Name: "beans", Price: decimal.NewFromInt(-1)})
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())

	product, err := svc.CreateProduct(ctx, CreateProductInput{
		Name:  "beans",
		Price: decimal.RequireFromString("10.005"),
		Stock: 3,
	})
	require.NoError(t, err)
	require.Equal(t, "10.01", product.Price.StringFixed(2))
	require.True(t, product.IsActive)
}

func TestCreateProductUnknownCategory(t *testing.T) {
	svc, _ := newTestService(t)

	missing := uuid.New()
	_, err := svc.CreateProduct(context.Background(), CreateProductInput{
		Name:       "beans",
		Price:      decimal.NewFromInt(5),
		CategoryID: &missing,
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestUpdateProductPartialFields(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	product, err := svc.CreateProduct(ctx, CreateProductInput{
		Name:  "beans",
		Price: decimal.NewFromInt(5),
		Stock: 2,
	})
	require.NoError(t, err)

	newPrice := decimal.RequireFromString("6.50")
	inactive := false
	updated, err := svc.UpdateProduct(ctx, product.ID, UpdateProductInput{
		Price:    &newPrice,
		IsActive: &inactive,
	})
	require.NoError(t, err)
	require.Equal(t, "6.50", updated.Price.StringFixed(2))
	require.False(t, updated.IsActive)
	require.Equal(t, "beans", updated.Name)
	require.Equal(t, 2, updated.Stock)
}

func TestListProductsFilters(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	category, err := svc.CreateCategory(ctx, "coffee")
	require.NoError(t, err)

	_, err = svc.CreateProduct(ctx, CreateProductInput{Name: "beans", Price: decimal.NewFromInt(5), CategoryID: &category.ID})
	require.NoError(t, err)
	other, err := svc.CreateProduct(ctx, CreateProductInput{Name: "mug", Price: decimal.NewFromInt(8)})
	require.NoError(t, err)

	inactive := false
	_, err = svc.UpdateProduct(ctx, other.ID, UpdateProductInput{IsActive: &inactive})
	require.NoError(t, err)

	byCategory, err := svc.ListProducts(ctx, ProductFilter{CategoryID: &category.ID})
	require.NoError(t, err)
	require.Len(t, byCategory, 1)

	activeOnly, err := svc.ListProducts(ctx, ProductFilter{ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, activeOnly, 1)
	require.Equal(t, "beans", activeOnly[0].Name)
}
