package models

import "github.com/shopspring/decimal"

// MenuItemRef is the snapshot of a menu item taken when it is added to a cart.
type MenuItemRef struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Available bool            `json:"available"`
}

// Customization is an additive modifier attached to a cart line.
type Customization struct {
	Name       string          `json:"name"`
	Value      string          `json:"value"`
	PriceDelta decimal.Decimal `json:"priceDelta"`
}

type CartLine struct {
	ID             string          `json:"id"`
	Item           MenuItemRef     `json:"item"`
	Quantity       int             `json:"quantity"`
	Notes          string          `json:"notes,omitempty"`
	Customizations []Customization `json:"customizations,omitempty"`
}

// PricedTotals is always derived from lines or items and a VAT rate.
type PricedTotals struct {
	Subtotal  decimal.Decimal `json:"subtotal"`
	VATAmount decimal.Decimal `json:"vatAmount"`
	Total     decimal.Decimal `json:"total"`
}

// Equal compares totals by value, ignoring decimal exponent differences.
func (t PricedTotals) Equal(o PricedTotals) bool {
	return t.Subtotal.Equal(o.Subtotal) && t.VATAmount.Equal(o.VATAmount) && t.Total.Equal(o.Total)
}
