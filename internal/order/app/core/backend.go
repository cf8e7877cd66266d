package core

import (
	"context"

	"restaurant-orders/internal/order/domain/models"
)

// IOrderBackend is one concrete order source. The remote and local stores implement it,
// as does the postgres repository behind the order service.
type IOrderBackend interface {
	Name() string
	Create(ctx context.Context, order models.Order) (models.Order, error)
	List(ctx context.Context, restaurantID string, filter models.ListFilter) ([]models.Order, error)
	Get(ctx context.Context, restaurantID, orderID string) (models.Order, error)
	UpdateStatus(ctx context.Context, restaurantID, orderID string, target models.Status, note string) (models.Order, error)
}

type IDB interface {
	Close() error
	IsAlive(ctx context.Context) error
}
