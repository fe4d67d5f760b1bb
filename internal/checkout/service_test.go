package checkout

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mateoreyes/storefront-pos/internal/cart"
	"github.com/mateoreyes/storefront-pos/internal/inventory"
	"github.com/mateoreyes/storefront-pos/internal/sales"
	"github.com/mateoreyes/storefront-pos/pkg/db"
	"github.com/mateoreyes/storefront-pos/pkg/db/models"
	"github.com/mateoreyes/storefront-pos/pkg/enums"
	pkgerrors "github.com/mateoreyes/storefront-pos/pkg/errors"
	"github.com/mateoreyes/storefront-pos/pkg/metrics"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:checkout_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&models.Category{},
		&models.Product{},
		&models.Employee{},
		&models.Cart{},
		&models.CartItem{},
		&models.Sale{},
		&models.SaleLineItem{},
		&models.Payment{},
	))

	svc, err := NewService(
		db.NewWithConn(conn),
		cart.NewRepository(conn),
		sales.NewRepository(conn),
		inventory.NewRepository(conn),
		nil,
		metrics.NewOrderMetrics(nil),
	)
	require.NoError(t, err)
	return svc, conn
}

func seedProduct(t *testing.T, conn *gorm.DB, price string, stock int) *models.Product {
	t.Helper()

	product := &models.Product{
		Name:     "espresso beans",
		Price:    decimal.RequireFromString(price),
		Stock:    stock,
		IsActive: true,
	}
	require.NoError(t, conn.Create(product).Error)
	return product
}

func seedCart(t *testing.T, conn *gorm.DB, status enums.CartStatus) *models.Cart {
	t.Helper()

	anon := "anon-" + uuid.NewString()
	c := &models.Cart{
		AnonymousID: &anon,
		Status:      status,
	}
	require.NoError(t, conn.Create(c).Error)
	return c
}

func seedCartItem(t *testing.T, conn *gorm.DB, cartID, productID uuid.UUID, quantity int, subtotal string) *models.CartItem {
	t.Helper()

	item := &models.CartItem{
		CartID:    cartID,
		ProductID: productID,
		Quantity:  quantity,
		Subtotal:  decimal.RequireFromString(subtotal),
	}
	require.NoError(t, conn.Create(item).Error)
	return item
}

func strPtr(s string) *string { return &s }

func TestCheckoutCreatesSalePaymentAndProcessesCart(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	product := seedProduct(t, conn, "10.00", 5)
	c := seedCart(t, conn, enums.CartStatusActive)
	seedCartItem(t, conn, c.ID, product.ID, 2, "20.00")

	sale, err := svc.Checkout(ctx, Input{
		CartID:        c.ID,
		PaymentMethod: enums.PaymentMethodCard,
		CardNumber:    strPtr("4111 1111 1111 1234"),
		CardHolder:    strPtr("Ana Torres"),
	})
	require.NoError(t, err)

	require.Equal(t, "20.00", sale.Total.StringFixed(2))
	require.Equal(t, enums.SaleStatusCompleted, sale.Status)
	require.Nil(t, sale.EmployeeID)
	require.Equal(t, "web system", sale.EmployeeName)
	require.Len(t, sale.Items, 1)
	require.Equal(t, "10.00", sale.Items[0].UnitPrice.StringFixed(2))

	require.Len(t, sale.Payments, 1)
	payment := sale.Payments[0]
	require.Equal(t, enums.PaymentStatusApproved, payment.Status)
	require.Equal(t, sale.Total.StringFixed(2), payment.Amount.StringFixed(2))
	require.NotNil(t, payment.CardLastDigits)
	require.Equal(t, "1234", *payment.CardLastDigits)
	require.NotNil(t, payment.CardHolder)
	require.Nil(t, payment.QRReference)

	var storedCart models.Cart
	require.NoError(t, conn.First(&storedCart, "id = ?", c.ID).Error)
	require.Equal(t, enums.CartStatusProcessed, storedCart.Status)
	require.Equal(t, "20.00", storedCart.Total.StringFixed(2))

	var storedProduct models.Product
	require.NoError(t, conn.First(&storedProduct, "id = ?", product.ID).Error)
	require.Equal(t, 3, storedProduct.Stock)
}

func TestCheckoutQRGeneratesReference(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	product := seedProduct(t, conn, "7.50", 2)
	c := seedCart(t, conn, enums.CartStatusActive)
	seedCartItem(t, conn, c.ID, product.ID, 1, "7.50")

	sale, err := svc.Checkout(ctx, Input{
		CartID:        c.ID,
		PaymentMethod: enums.PaymentMethodQR,
	})
	require.NoError(t, err)

	require.Len(t, sale.Payments, 1)
	payment := sale.Payments[0]
	require.NotNil(t, payment.QRReference)
	require.Contains(t, *payment.QRReference, "QR-")
	require.Nil(t, payment.CardLastDigits)
	require.Nil(t, payment.CardHolder)
}

func TestCheckoutRecomputesTamperedSubtotal(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	product := seedProduct(t, conn, "10.00", 10)
	c := seedCart(t, conn, enums.CartStatusActive)
	seedCartItem(t, conn, c.ID, product.ID, 3, "1.00")

	sale, err := svc.Checkout(ctx, Input{
		CartID:        c.ID,
		PaymentMethod: enums.PaymentMethodQR,
	})
	require.NoError(t, err)

	require.Len(t, sale.Items, 1)
	require.Equal(t, "30.00", sale.Items[0].Subtotal.StringFixed(2))
	require.Equal(t, "30.00", sale.Total.StringFixed(2))
}

func TestCheckoutRejectsNonActiveCart(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	product := seedProduct(t, conn, "10.00", 5)
	c := seedCart(t, conn, enums.CartStatusProcessed)
	seedCartItem(t, conn, c.ID, product.ID, 1, "10.00")

	_, err := svc.Checkout(ctx, Input{CartID: c.ID, PaymentMethod: enums.PaymentMethodQR})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeStateConflict, typed.Code())

	var count int64
	require.NoError(t, conn.Model(&models.Sale{}).Count(&count).Error)
	require.EqualValues(t, 0, count)
}

func TestCheckoutRejectsEmptyCart(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	c := seedCart(t, conn, enums.CartStatusActive)

	_, err := svc.Checkout(ctx, Input{CartID: c.ID, PaymentMethod: enums.PaymentMethodQR})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
	require.Equal(t, "cart is empty", typed.Message())
}

func TestCheckoutRejectsMissingCardDetails(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	product := seedProduct(t, conn, "10.00", 5)
	c := seedCart(t, conn, enums.CartStatusActive)
	seedCartItem(t, conn, c.ID, product.ID, 1, "10.00")

	_, err := svc.Checkout(ctx, Input{
		CartID:        c.ID,
		PaymentMethod: enums.PaymentMethodCard,
		CardHolder:    strPtr("Ana Torres"),
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())

	var storedCart models.Cart
	require.NoError(t, conn.First(&storedCart, "id = ?", c.ID).Error)
	require.Equal(t, enums.CartStatusActive, storedCart.Status)
}

func TestCheckoutInsufficientStockRollsBackEverything(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	productA := seedProduct(t, conn, "10.00", 5)
	productB := seedProduct(t, conn, "4.00", 0)
	c := seedCart(t, conn, enums.CartStatusActive)
	seedCartItem(t, conn, c.ID, productA.ID, 1, "10.00")
	seedCartItem(t, conn, c.ID, productB.ID, 2, "8.00")

	_, err := svc.Checkout(ctx, Input{CartID: c.ID, PaymentMethod: enums.PaymentMethodQR})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeConflict, typed.Code())
	require.Equal(t, map[string]int{"available": 0, "requested": 2}, typed.Details())

	var storedA, storedB models.Product
	require.NoError(t, conn.First(&storedA, "id = ?", productA.ID).Error)
	require.NoError(t, conn.First(&storedB, "id = ?", productB.ID).Error)
	require.Equal(t, 5, storedA.Stock)
	require.Equal(t, 0, storedB.Stock)

	var salesCount int64
	require.NoError(t, conn.Model(&models.Sale{}).Count(&salesCount).Error)
	require.EqualValues(t, 0, salesCount)

	var storedCart models.Cart
	require.NoError(t, conn.First(&storedCart, "id = ?", c.ID).Error)
	require.Equal(t, enums.CartStatusActive, storedCart.Status)
}

func TestCheckoutUnknownCart(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Checkout(context.Background(), Input{
		CartID:        uuid.New(),
		PaymentMethod: enums.PaymentMethodQR,
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestCheckoutStaleProductFallsBackToStoredSubtotal(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	c := seedCart(t, conn, enums.CartStatusActive)
	seedCartItem(t, conn, c.ID, uuid.New(), 2, "9.00")

	sale, err := svc.Checkout(ctx, Input{CartID: c.ID, PaymentMethod: enums.PaymentMethodQR})
	require.NoError(t, err)

	require.Len(t, sale.Items, 1)
	require.Equal(t, "4.50", sale.Items[0].UnitPrice.StringFixed(2))
	require.Equal(t, "9.00", sale.Total.StringFixed(2))
}
