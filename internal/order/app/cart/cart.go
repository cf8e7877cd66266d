// Package cart holds one shopper's in-progress order. A Cart is owned by a single
// session and is not safe for concurrent use.
package cart

import (
	"fmt"
	"sort"

	"restaurant-orders/internal/order/app/core"
	"restaurant-orders/internal/order/app/pricing"
	"restaurant-orders/internal/order/domain/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Cart struct {
	lines []models.CartLine
	newID func() string
}

func New() *Cart {
	return &Cart{newID: uuid.NewString}
}

type addOptions struct {
	quantity       int
	customizations []models.Customization
	notes          string
}

type AddOption func(*addOptions)

func WithQuantity(quantity int) AddOption {
	return func(o *addOptions) { o.quantity = quantity }
}

func WithCustomizations(customizations ...models.Customization) AddOption {
	return func(o *addOptions) { o.customizations = customizations }
}

func WithNotes(notes string) AddOption {
	return func(o *addOptions) { o.notes = notes }
}

// AddItem merges into an existing line with the same item and customization set,
// otherwise appends a new line. The merged line keeps the first line's notes and price snapshot.
func (c *Cart) AddItem(item models.MenuItemRef, opts ...AddOption) (models.CartLine, error) {
	o := addOptions{quantity: 1}
	for _, opt := range opts {
		opt(&o)
	}

	if !item.Available {
		return models.CartLine{}, fmt.Errorf("%w: %s", core.ErrItemUnavailable, item.Name)
	}
	if o.quantity < 1 {
		return models.CartLine{}, fmt.Errorf("%w: got %d", core.ErrInvalidQuantity, o.quantity)
	}
	if err := checkPrice(item, o.customizations); err != nil {
		return models.CartLine{}, err
	}

	key := customizationKey(o.customizations)
	for i := range c.lines {
		if c.lines[i].Item.ID == item.ID && customizationKey(c.lines[i].Customizations) == key {
			c.lines[i].Quantity += o.quantity
			return cloneLine(c.lines[i]), nil
		}
	}

	line := models.CartLine{
		ID:             c.newID(),
		Item:           item,
		Quantity:       o.quantity,
		Notes:          o.notes,
		Customizations: append([]models.Customization(nil), o.customizations...),
	}
	c.lines = append(c.lines, line)
	return cloneLine(line), nil
}

// checkPrice keeps negative unit prices out of the cart so pricing never sees them.
func checkPrice(item models.MenuItemRef, customizations []models.Customization) error {
	price := item.UnitPrice
	for _, c := range customizations {
		price = price.Add(c.PriceDelta)
	}
	if item.UnitPrice.IsNegative() || price.IsNegative() {
		return fmt.Errorf("%w: %s costs %s", core.ErrInvalidPrice, item.Name, price.StringFixed(2))
	}
	return nil
}

// UpdateQuantity sets a line's quantity. Zero or less removes the line.
func (c *Cart) UpdateQuantity(lineID string, quantity int) error {
	if quantity <= 0 {
		c.RemoveItem(lineID)
		return nil
	}
	i := c.index(lineID)
	if i < 0 {
		return fmt.Errorf("%w: %s", core.ErrLineNotFound, lineID)
	}
	c.lines[i].Quantity = quantity
	return nil
}

func (c *Cart) RemoveItem(lineID string) {
	if i := c.index(lineID); i >= 0 {
		c.lines = append(c.lines[:i], c.lines[i+1:]...)
	}
}

// Totals is recomputed on every call.
func (c *Cart) Totals(vatRatePercent decimal.Decimal) models.PricedTotals {
	return pricing.Aggregate(c.lines, vatRatePercent)
}

// ToOrderItems freezes the lines with their unit price snapshots. The cart is left untouched,
// callers Clear it once the order is accepted by the store.
func (c *Cart) ToOrderItems() []models.OrderItem {
	items := make([]models.OrderItem, 0, len(c.lines))
	for _, line := range c.lines {
		items = append(items, models.OrderItem{
			MenuItemID:     line.Item.ID,
			Name:           line.Item.Name,
			UnitPrice:      line.Item.UnitPrice,
			Quantity:       line.Quantity,
			Notes:          line.Notes,
			Customizations: append([]models.Customization(nil), line.Customizations...),
			LineTotal:      pricing.LineTotal(line),
		})
	}
	return items
}

func (c *Cart) Lines() []models.CartLine {
	out := make([]models.CartLine, len(c.lines))
	for i, line := range c.lines {
		out[i] = cloneLine(line)
	}
	return out
}

func (c *Cart) Len() int { return len(c.lines) }

func (c *Cart) Clear() { c.lines = nil }

func (c *Cart) index(lineID string) int {
	for i := range c.lines {
		if c.lines[i].ID == lineID {
			return i
		}
	}
	return -1
}

// customizationKey treats customizations as an unordered set of name/value pairs.
func customizationKey(customizations []models.Customization) string {
	seen := make(map[string]struct{}, len(customizations))
	pairs := make([]string, 0, len(customizations))
	for _, c := range customizations {
		p := fmt.Sprintf("%q=%q", c.Name, c.Value)
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		pairs = append(pairs, p)
	}
	sort.Strings(pairs)
	return fmt.Sprint(pairs)
}

func cloneLine(line models.CartLine) models.CartLine {
	line.Customizations = append([]models.Customization(nil), line.Customizations...)
	return line
}
