package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mateoreyes/storefront-pos/internal/cart"
	"github.com/mateoreyes/storefront-pos/internal/inventory"
	"github.com/mateoreyes/storefront-pos/internal/sales"
	"github.com/mateoreyes/storefront-pos/pkg/db/models"
	"github.com/mateoreyes/storefront-pos/pkg/enums"
	pkgerrors "github.com/mateoreyes/storefront-pos/pkg/errors"
	"github.com/mateoreyes/storefront-pos/pkg/logger"
	"github.com/mateoreyes/storefront-pos/pkg/metrics"
	"github.com/mateoreyes/storefront-pos/pkg/money"
	"github.com/mateoreyes/storefront-pos/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Input is one checkout request.
type Input struct {
	CartID        uuid.UUID
	PaymentMethod enums.PaymentMethod
	CardNumber    *string
	CardHolder    *string
	CustomerName  *string
	Delivery      *types.Address
}

// Service converts an active, non-empty cart into a sale with its line
// items and a simulated payment, as one transaction. Unit prices are always
// recomputed from the current product price so a tampered cart subtotal
// never reaches the sale, and stock is decremented under the same
// ascending-id lock discipline the sale ledger uses.
type Service interface {
	Checkout(ctx context.Context, input Input) (*models.Sale, error)
}

type service struct {
	tx       txRunner
	carts    *cart.Repository
	sales    *sales.Repository
	products *inventory.Repository
	logg     *logger.Logger
	meter    *metrics.OrderMetrics
}

// NewService builds the checkout orchestrator.
func NewService(tx txRunner, carts *cart.Repository, salesRepo *sales.Repository, products *inventory.Repository, logg *logger.Logger, meter *metrics.OrderMetrics) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if salesRepo == nil {
		return nil, fmt.Errorf("sales repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	return &service{
		tx:       tx,
		carts:    carts,
		sales:    salesRepo,
		products: products,
		logg:     logg,
		meter:    meter,
	}, nil
}

const webEmployeeName = "web system"

func (s *service) Checkout(ctx context.Context, input Input) (*models.Sale, error) {
	if input.CartID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart id required")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}

	start := time.Now()
	var sale *models.Sale
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		carts := s.carts.WithTx(tx)
		salesRepo := s.sales.WithTx(tx)
		products := s.products.WithTx(tx)

		loaded, err := carts.FindWithItems(ctx, input.CartID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
			}
			return err
		}
		if loaded.Status != enums.CartStatusActive {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cart is not active")
		}
		if len(loaded.Items) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}

		// Unit prices come from the current product rows, never from the
		// stored cart subtotals. The stored subtotal only serves as the
		// fallback for stale product references.
		type pricedLine struct {
			productID uuid.UUID
			quantity  int
			unitPrice decimal.Decimal
			subtotal  decimal.Decimal
		}
		lines := make([]pricedLine, 0, len(loaded.Items))
		subtotals := make([]decimal.Decimal, 0, len(loaded.Items))
		for _, item := range loaded.Items {
			unitPrice := money.UnitPriceFromSubtotal(item.Subtotal, item.Quantity)
			if item.Product != nil {
				unitPrice = money.Round2(item.Product.Price)
			}
			subtotal := money.LineSubtotal(unitPrice, item.Quantity)
			lines = append(lines, pricedLine{
				productID: item.ProductID,
				quantity:  item.Quantity,
				unitPrice: unitPrice,
				subtotal:  subtotal,
			})
			subtotals = append(subtotals, subtotal)
		}
		total := money.Sum(subtotals...)

		loaded.Total = total
		if err := carts.Save(ctx, loaded); err != nil {
			return err
		}

		if input.PaymentMethod == enums.PaymentMethodCard {
			if !hasValue(input.CardNumber) || !hasValue(input.CardHolder) {
				return pkgerrors.New(pkgerrors.CodeValidation, "card number and cardholder name required")
			}
		}

		ids := make([]uuid.UUID, 0, len(lines))
		for _, line := range lines {
			ids = append(ids, line.productID)
		}
		locked, err := products.LockProducts(ctx, ids...)
		if err != nil {
			return err
		}
		for _, line := range lines {
			product, ok := locked[line.productID]
			if !ok {
				// Stale reference, already priced from the stored subtotal.
				continue
			}
			if product.Stock < line.quantity {
				s.meter.IncStockConflict("checkout")
				return pkgerrors.InsufficientStock(product.Stock, line.quantity)
			}
			product.Stock -= line.quantity
			if err := products.Save(ctx, product); err != nil {
				return err
			}
		}

		sale = &models.Sale{
			Total:         total,
			PaymentMethod: input.PaymentMethod,
			Status:        enums.SaleStatusCompleted,
			EmployeeID:    nil,
			EmployeeName:  webEmployeeName,
			CustomerName:  input.CustomerName,
			Notes:         deliveryNotes(input.Delivery),
		}
		if err := salesRepo.CreateSale(ctx, sale); err != nil {
			return err
		}

		for _, line := range lines {
			item := &models.SaleLineItem{
				SaleID:    sale.ID,
				ProductID: line.productID,
				Quantity:  line.quantity,
				UnitPrice: line.unitPrice,
				Subtotal:  line.subtotal,
			}
			if err := salesRepo.CreateLineItem(ctx, item); err != nil {
				return err
			}
			sale.Items = append(sale.Items, *item)
		}

		payment := buildPayment(sale.ID, input, total)
		if err := salesRepo.CreatePayment(ctx, payment); err != nil {
			return err
		}
		sale.Payments = append(sale.Payments, *payment)

		loaded.Status = enums.CartStatusProcessed
		return carts.Save(ctx, loaded)
	})

	outcome := "ok"
	if err != nil {
		outcome = "error"
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeConflict {
			outcome = "conflict"
		}
	}
	s.meter.ObserveCheckout(outcome, time.Since(start))
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		lctx := s.logg.WithCartID(ctx, input.CartID.String())
		lctx = s.logg.WithSaleID(lctx, sale.ID.String())
		s.logg.Info(lctx, "checkout.completed")
	}
	return sale, nil
}

// buildPayment creates the approved simulated payment. Only the chosen
// method's fields are populated; the other method's fields stay null.
func buildPayment(saleID uuid.UUID, input Input, total decimal.Decimal) *models.Payment {
	payment := &models.Payment{
		SaleID: saleID,
		Method: input.PaymentMethod,
		Amount: total,
		Status: enums.PaymentStatusApproved,
	}
	switch input.PaymentMethod {
	case enums.PaymentMethodCard:
		digits := lastDigits(*input.CardNumber)
		payment.CardLastDigits = &digits
		payment.CardHolder = input.CardHolder
	case enums.PaymentMethodQR:
		ref := "QR-" + strings.ToUpper(uuid.NewString()[:8])
		payment.QRReference = &ref
	}
	return payment
}

func lastDigits(cardNumber string) string {
	trimmed := strings.ReplaceAll(strings.TrimSpace(cardNumber), " ", "")
	if len(trimmed) <= 4 {
		return trimmed
	}
	return trimmed[len(trimmed)-4:]
}

func deliveryNotes(addr *types.Address) *string {
	if addr == nil || addr.IsZero() {
		return nil
	}
	parts := make([]string, 0, 6)
	for _, part := range []string{addr.Line1, addr.Line2, addr.City, addr.State, addr.PostalCode, addr.Country} {
		if strings.TrimSpace(part) != "" {
			parts = append(parts, strings.TrimSpace(part))
		}
	}
	notes := "deliver to: " + strings.Join(parts, ", ")
	if strings.TrimSpace(addr.Phone) != "" {
		notes += " (" + strings.TrimSpace(addr.Phone) + ")"
	}
	return &notes
}

func hasValue(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}
