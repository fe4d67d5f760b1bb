// Package money holds the fixed-point arithmetic used for prices and totals.
// All persisted amounts are numeric(12,2); every derived amount goes through
// Round2 before it is stored or compared.
package money

import "github.com/shopspring/decimal"

// Round2 rounds half away from zero to two decimal places.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// LineSubtotal computes round2(unitPrice * quantity).
func LineSubtotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return Round2(unitPrice.Mul(decimal.NewFromInt(int64(quantity))))
}

// UnitPriceFromSubtotal recovers a unit price from a stored subtotal. Used as
// the fallback when a line item references a product that no longer exists.
func UnitPriceFromSubtotal(subtotal decimal.Decimal, quantity int) decimal.Decimal {
	if quantity <= 0 {
		return decimal.Zero
	}
	return Round2(subtotal.Div(decimal.NewFromInt(int64(quantity))))
}

// Sum adds the provided amounts and rounds the result to two decimals.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, amount := range amounts {
		total = total.Add(amount)
	}
	return Round2(total)
}
