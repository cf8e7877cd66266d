package services

import (
	"context"
	"fmt"
	"time"

	"restaurant-orders/internal/order/app/core"
	"restaurant-orders/internal/order/app/pricing"
	"restaurant-orders/internal/order/app/status"
	"restaurant-orders/internal/order/domain/models"
	"restaurant-orders/internal/xpkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStore owns a restaurant's submitted orders on top of one backend.
// Clients give it the remote-then-local decorator, the order service gives it postgres.
type OrderStore struct {
	backend core.IOrderBackend
	sync    core.ISyncChannel
	mylog   logger.Logger

	now   func() time.Time
	newID func() string
}

func NewOrderStore(backend core.IOrderBackend, sync core.ISyncChannel, mylog logger.Logger) *OrderStore {
	return &OrderStore{
		backend: backend,
		sync:    sync,
		mylog:   mylog,
		now:     func() time.Time { return time.Now().UTC() },
		newID:   uuid.NewString,
	}
}

// Submission is a fully described order request.
type Submission struct {
	// OrderID is generated when empty. Reusing an id makes create idempotent.
	OrderID        string
	RestaurantID   string
	Items          []models.OrderItem
	Customer       models.Customer
	Delivery       models.DeliveryInfo
	VATRatePercent decimal.Decimal
	// ExpectedTotal, when set, must equal the recomputed total.
	ExpectedTotal *decimal.Decimal
}

// Submit creates a pending order from frozen cart items.
func (s *OrderStore) Submit(
	ctx context.Context,
	restaurantID string,
	items []models.OrderItem,
	customer models.Customer,
	delivery models.DeliveryInfo,
	vatRatePercent decimal.Decimal,
) (models.Order, error) {
	return s.Place(ctx, Submission{
		RestaurantID:   restaurantID,
		Items:          items,
		Customer:       customer,
		Delivery:       delivery,
		VATRatePercent: vatRatePercent,
	})
}

// Place validates, prices, persists and announces a new order.
func (s *OrderStore) Place(ctx context.Context, sub Submission) (models.Order, error) {
	mylog := s.mylog.Action("order_submitted").With("restaurant_id", sub.RestaurantID)

	if len(sub.Items) == 0 {
		return models.Order{}, core.ErrEmptyOrder
	}
	if err := ValidateSubmission(sub.Items, sub.Customer, sub.Delivery); err != nil {
		return models.Order{}, err
	}

	items := make([]models.OrderItem, len(sub.Items))
	for i, item := range sub.Items {
		item.Customizations = append([]models.Customization(nil), item.Customizations...)
		item.LineTotal = pricing.ItemTotal(item)
		items[i] = item
	}
	totals := pricing.AggregateItems(items, sub.VATRatePercent)

	if sub.ExpectedTotal != nil && !sub.ExpectedTotal.Equal(totals.Total) {
		return models.Order{}, fmt.Errorf("%w: got %s, computed %s", core.ErrTotalMismatch, sub.ExpectedTotal, totals.Total)
	}

	id := sub.OrderID
	if id == "" {
		id = s.newID()
	}
	now := s.now()
	order := models.Order{
		ID:             id,
		RestaurantID:   sub.RestaurantID,
		Customer:       sub.Customer,
		Items:          items,
		Totals:         totals,
		VATRatePercent: sub.VATRatePercent,
		Status:         models.StatusPending,
		StatusHistory:  []models.StatusHistoryEntry{{Status: models.StatusPending, Timestamp: now}},
		DeliveryInfo:   normalizeDelivery(sub.Delivery),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	created, err := s.backend.Create(ctx, order)
	if err != nil {
		mylog.Error("Failed to save order", err, "backend", s.backend.Name())
		return models.Order{}, fmt.Errorf("submit order: %w", err)
	}

	s.sync.Publish(models.EventOrderCreated, created.RestaurantID)
	mylog.Info("Order submitted",
		"order_id", created.ID,
		"order_number", created.OrderNumber,
		"total", created.Totals.Total.StringFixed(2),
		"items", len(created.Items),
	)
	return created, nil
}

// List returns the restaurant's orders, newest first unless the filter says otherwise.
func (s *OrderStore) List(ctx context.Context, restaurantID string, filter models.ListFilter) ([]models.Order, error) {
	orders, err := s.backend.List(ctx, restaurantID, filter.Normalize())
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

func (s *OrderStore) Get(ctx context.Context, restaurantID, orderID string) (models.Order, error) {
	order, err := s.backend.Get(ctx, restaurantID, orderID)
	if err != nil {
		return models.Order{}, fmt.Errorf("get order %s: %w", orderID, err)
	}
	return order, nil
}

// UpdateStatus applies one status transition. Moving to cancelled requires a note, used as the
// reason; the backend checks it after the transition itself so a finished order reports
// InvalidTransition.
func (s *OrderStore) UpdateStatus(ctx context.Context, restaurantID, orderID string, target models.Status, note string) (models.Order, error) {
	mylog := s.mylog.Action("order_status_updated").With("restaurant_id", restaurantID, "order_id", orderID, "target", target)

	if _, ok := models.ParseStatus(string(target)); !ok {
		return models.Order{}, &core.ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", target)}
	}

	updated, err := s.backend.UpdateStatus(ctx, restaurantID, orderID, target, note)
	if err != nil {
		if core.IsBusinessError(err) {
			mylog.Warn("Status update rejected", "reason", err.Error())
		} else {
			mylog.Error("Failed to update status", err, "backend", s.backend.Name())
		}
		return models.Order{}, fmt.Errorf("update status: %w", err)
	}

	s.sync.Publish(models.EventOrderUpdated, updated.RestaurantID)
	mylog.Info("Order status updated", "order_number", updated.OrderNumber, "status", updated.Status)
	return updated, nil
}

// Cancel checks the reason before any I/O.
func (s *OrderStore) Cancel(ctx context.Context, restaurantID, orderID, reason string) (models.Order, error) {
	if err := status.ValidateReason(reason); err != nil {
		return models.Order{}, err
	}
	return s.UpdateStatus(ctx, restaurantID, orderID, models.StatusCancelled, reason)
}
