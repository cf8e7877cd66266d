package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PaymentCash   = "cash"
	PaymentCard   = "card"
	PaymentOnline = "online"

	DeliveryDineIn   = "dine_in"
	DeliveryTakeout  = "takeout"
	DeliveryDelivery = "delivery"
)

// OrderItem is the frozen counterpart of a CartLine inside a submitted order.
type OrderItem struct {
	MenuItemID     string          `json:"menuItemId"`
	Name           string          `json:"name"`
	UnitPrice      decimal.Decimal `json:"unitPrice"`
	Quantity       int             `json:"quantity"`
	Notes          string          `json:"notes,omitempty"`
	Customizations []Customization `json:"customizations,omitempty"`
	LineTotal      decimal.Decimal `json:"lineTotal"`
}

type StatusHistoryEntry struct {
	Status    Status    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Note      string    `json:"note,omitempty"`
}

type Customer struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email,omitempty"`
}

type DeliveryInfo struct {
	PaymentMethod       string `json:"paymentMethod"`
	DeliveryMethod      string `json:"deliveryMethod"`
	TableNumber         *int   `json:"tableNumber,omitempty"`
	DeliveryAddress     string `json:"deliveryAddress,omitempty"`
	SpecialInstructions string `json:"specialInstructions,omitempty"`
}

type Order struct {
	ID             string               `json:"id"`
	OrderNumber    string               `json:"orderNumber"`
	RestaurantID   string               `json:"restaurantId"`
	Customer       Customer             `json:"customer"`
	Items          []OrderItem          `json:"items"`
	Totals         PricedTotals         `json:"totals"`
	VATRatePercent decimal.Decimal      `json:"vatRatePercent"`
	Status         Status               `json:"status"`
	StatusHistory  []StatusHistoryEntry `json:"statusHistory"`
	DeliveryInfo
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Clone returns a deep copy so callers never share slices with a store.
func (o Order) Clone() Order {
	c := o
	c.Items = make([]OrderItem, len(o.Items))
	for i, it := range o.Items {
		it.Customizations = append([]Customization(nil), it.Customizations...)
		c.Items[i] = it
	}
	c.StatusHistory = append([]StatusHistoryEntry(nil), o.StatusHistory...)
	if o.TableNumber != nil {
		n := *o.TableNumber
		c.TableNumber = &n
	}
	return c
}

// SyncEvent tells subscribers that something changed for a restaurant. Receivers re-read the store.
type SyncEvent struct {
	Name         string `json:"event"`
	RestaurantID string `json:"restaurant_id"`
}

const (
	EventOrderCreated = "order.created"
	EventOrderUpdated = "order.updated"
)
