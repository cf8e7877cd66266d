package checkout

import (
	"encoding/json"
	"fmt"
	"os"

	"restaurant-orders/internal/order/app/cart"
	"restaurant-orders/internal/order/domain/models"
)

// CartFile is the shopper's selection as saved by the storefront.
type CartFile struct {
	RestaurantID string              `json:"restaurantId"`
	Customer     models.Customer     `json:"customer"`
	Delivery     models.DeliveryInfo `json:"delivery"`
	Lines        []CartFileLine      `json:"lines"`
}

type CartFileLine struct {
	Item           models.MenuItemRef     `json:"item"`
	Quantity       int                    `json:"quantity"`
	Notes          string                 `json:"notes,omitempty"`
	Customizations []models.Customization `json:"customizations,omitempty"`
}

func LoadCartFile(path string) (*CartFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f := &CartFile{}
	if err := json.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("parse cart file %s: %w", path, err)
	}
	return f, nil
}

// Build adds every line to a fresh cart. Lines without a quantity count as one.
func (f *CartFile) Build() (*cart.Cart, error) {
	c := cart.New()
	for i, line := range f.Lines {
		qty := line.Quantity
		if qty == 0 {
			qty = 1
		}
		_, err := c.AddItem(line.Item,
			cart.WithQuantity(qty),
			cart.WithCustomizations(line.Customizations...),
			cart.WithNotes(line.Notes),
		)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
	}
	return c, nil
}
