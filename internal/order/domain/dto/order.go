package dto

import (
	"time"

	"restaurant-orders/internal/order/domain/models"

	"github.com/shopspring/decimal"
)

// CreateOrderRequest is the body of POST /restaurants/{id}/orders.
type CreateOrderRequest struct {
	// ID is generated by the client so that a retried create is idempotent.
	ID             string             `json:"id,omitempty"`
	Customer       models.Customer    `json:"customer"`
	Items          []models.OrderItem `json:"items"`
	TotalAmount    decimal.Decimal    `json:"totalAmount"`
	VATRatePercent decimal.Decimal    `json:"vatRatePercent"`
	models.DeliveryInfo
}

// UpdateStatusRequest is the body of PATCH /orders/{id}/status.
type UpdateStatusRequest struct {
	Status       string `json:"status"`
	Note         string `json:"note,omitempty"`
	RestaurantID string `json:"restaurantId,omitempty"`
}

type OrderResponse struct {
	Order models.Order `json:"order"`
}

type OrdersResponse struct {
	Orders []models.Order `json:"orders"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Kind    string `json:"kind"`
	Field   string `json:"field,omitempty"`
	Current string `json:"current,omitempty"`
	Target  string `json:"target,omitempty"`
}

// NewCreateOrderRequest builds the wire body for an order priced on the client.
func NewCreateOrderRequest(order models.Order) CreateOrderRequest {
	return CreateOrderRequest{
		ID:             order.ID,
		Customer:       order.Customer,
		Items:          order.Items,
		TotalAmount:    order.Totals.Total,
		VATRatePercent: order.VATRatePercent,
		DeliveryInfo:   order.DeliveryInfo,
	}
}

// EventMessage is a sync event on the order_events fanout exchange.
type EventMessage struct {
	Event        string    `json:"event"`
	RestaurantID string    `json:"restaurant_id"`
	Origin       string    `json:"origin"`
	PublishedAt  time.Time `json:"published_at"`
}
