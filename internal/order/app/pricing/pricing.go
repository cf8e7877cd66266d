// Package pricing computes line totals, VAT and grand totals. It holds no state.
//
// VAT is rounded to 2 decimal places half away from zero, which is half-up for the
// non-negative amounts accepted here. Totals are persisted, so this policy must not change.
package pricing

import (
	"fmt"

	"restaurant-orders/internal/order/domain/models"

	"github.com/shopspring/decimal"
)

const vatPlaces = 2

var hundred = decimal.NewFromInt(100)

// LineTotal is (unit price + sum of customization deltas) x quantity.
// It panics on a negative result: callers validate inputs first.
func LineTotal(line models.CartLine) decimal.Decimal {
	return lineAmount(line.Item.UnitPrice, line.Customizations, line.Quantity)
}

// ItemTotal recomputes the line total of a frozen order item.
func ItemTotal(item models.OrderItem) decimal.Decimal {
	return lineAmount(item.UnitPrice, item.Customizations, item.Quantity)
}

// Aggregate prices cart lines at the given VAT percentage.
func Aggregate(lines []models.CartLine, vatRatePercent decimal.Decimal) models.PricedTotals {
	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(LineTotal(line))
	}
	return withVAT(subtotal, vatRatePercent)
}

// AggregateItems prices frozen order items, ignoring their stored line totals.
func AggregateItems(items []models.OrderItem, vatRatePercent decimal.Decimal) models.PricedTotals {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(ItemTotal(item))
	}
	return withVAT(subtotal, vatRatePercent)
}

// VAT rounds subtotal x rate / 100 to cents.
func VAT(subtotal, vatRatePercent decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(vatRatePercent).Div(hundred).Round(vatPlaces)
}

func withVAT(subtotal, vatRatePercent decimal.Decimal) models.PricedTotals {
	vat := VAT(subtotal, vatRatePercent)
	return models.PricedTotals{
		Subtotal:  subtotal,
		VATAmount: vat,
		Total:     subtotal.Add(vat),
	}
}

func lineAmount(unitPrice decimal.Decimal, customizations []models.Customization, quantity int) decimal.Decimal {
	price := unitPrice
	for _, c := range customizations {
		price = price.Add(c.PriceDelta)
	}
	total := price.Mul(decimal.NewFromInt(int64(quantity)))
	if total.IsNegative() {
		panic(fmt.Sprintf("pricing: negative line total %s", total))
	}
	return total
}
