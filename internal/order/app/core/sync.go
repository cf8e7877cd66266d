package core

import "restaurant-orders/internal/order/domain/models"

type SyncHandler func(event models.SyncEvent)

// ISyncChannel broadcasts "something changed for this restaurant".
// Publish never blocks on subscribers' failures and never returns an error.
type ISyncChannel interface {
	Publish(eventName, restaurantID string)
	Subscribe(eventName string, handler SyncHandler) (unsubscribe func())
}
