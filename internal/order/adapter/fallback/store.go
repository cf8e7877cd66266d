// Package fallback decorates a remote order backend with a local one.
// Every call tries remote first. The fallback is never sticky.
package fallback

import (
	"context"
	"errors"
	"fmt"
	"time"

	"restaurant-orders/internal/order/app/core"
	"restaurant-orders/internal/order/domain/models"
	"restaurant-orders/internal/xpkg/logger"
)

type Store struct {
	remote  core.IOrderBackend
	local   core.IOrderBackend
	timeout time.Duration
	mylog   logger.Logger
}

// New bounds each remote call by timeout. A timed out call counts as unavailable.
func New(remote, local core.IOrderBackend, timeout time.Duration, mylog logger.Logger) *Store {
	return &Store{
		remote:  remote,
		local:   local,
		timeout: timeout,
		mylog:   mylog,
	}
}

func (s *Store) Name() string {
	return s.remote.Name() + "+" + s.local.Name()
}

func (s *Store) Create(ctx context.Context, order models.Order) (models.Order, error) {
	return run(ctx, s, "create", order.RestaurantID, func(ctx context.Context, b core.IOrderBackend) (models.Order, error) {
		return b.Create(ctx, order)
	})
}

func (s *Store) List(ctx context.Context, restaurantID string, filter models.ListFilter) ([]models.Order, error) {
	return run(ctx, s, "list", restaurantID, func(ctx context.Context, b core.IOrderBackend) ([]models.Order, error) {
		return b.List(ctx, restaurantID, filter)
	})
}

func (s *Store) Get(ctx context.Context, restaurantID, orderID string) (models.Order, error) {
	return run(ctx, s, "get", restaurantID, func(ctx context.Context, b core.IOrderBackend) (models.Order, error) {
		return b.Get(ctx, restaurantID, orderID)
	})
}

func (s *Store) UpdateStatus(ctx context.Context, restaurantID, orderID string, target models.Status, note string) (models.Order, error) {
	return run(ctx, s, "update_status", restaurantID, func(ctx context.Context, b core.IOrderBackend) (models.Order, error) {
		return b.UpdateStatus(ctx, restaurantID, orderID, target, note)
	})
}

func run[T any](ctx context.Context, s *Store, op, restaurantID string, call func(context.Context, core.IOrderBackend) (T, error)) (T, error) {
	remoteCtx, cancel := context.WithTimeout(ctx, s.timeout)
	result, err := call(remoteCtx, s.remote)
	cancel()
	if err == nil {
		return result, nil
	}
	if !unavailable(ctx, err) {
		return result, err
	}

	mylog := s.mylog.With("operation", op, "restaurant_id", restaurantID)
	mylog.Action("remote_unavailable_fallback").Warn("Remote order service unavailable, using local store", "cause", err.Error())

	result, localErr := call(ctx, s.local)
	if localErr != nil && !core.IsBusinessError(localErr) {
		mylog.Action("fallback_failed").Error("Local order store failed", localErr, "remote_cause", err.Error())
		return result, fmt.Errorf("%s failed on both backends: %w", op, localErr)
	}
	return result, localErr
}

// unavailable is true for remote failures, including our own timeout, but not
// when the caller itself gave up.
func unavailable(parent context.Context, err error) bool {
	if parent.Err() != nil {
		return false
	}
	return errors.Is(err, core.ErrRemoteUnavailable) || errors.Is(err, context.DeadlineExceeded)
}
