// Package viewsync is the in-process broadcast used by views observing the same restaurant.
package viewsync

import (
	"fmt"
	"sync"

	"restaurant-orders/internal/order/app/core"
	"restaurant-orders/internal/order/domain/models"
	"restaurant-orders/internal/xpkg/logger"
)

type subscription struct {
	id      uint64
	handler core.SyncHandler
}

// Bus delivers each event synchronously to every handler subscribed at publish time.
// A panicking handler is logged and does not stop delivery to the others.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[string][]subscription
	mylog  logger.Logger
}

func NewBus(mylog logger.Logger) *Bus {
	return &Bus{
		subs:  make(map[string][]subscription),
		mylog: mylog,
	}
}

func (b *Bus) Publish(eventName, restaurantID string) {
	b.mu.RLock()
	handlers := append([]subscription(nil), b.subs[eventName]...)
	b.mu.RUnlock()

	event := models.SyncEvent{Name: eventName, RestaurantID: restaurantID}
	for _, s := range handlers {
		b.deliver(s, event)
	}
}

// Subscribe returns a disposer; calling it more than once is harmless.
func (b *Bus) Subscribe(eventName string, handler core.SyncHandler) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[eventName] = append(b.subs[eventName], subscription{id: id, handler: handler})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(eventName, id) })
	}
}

// Subscribers counts live handlers for eventName.
func (b *Bus) Subscribers(eventName string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[eventName])
}

func (b *Bus) remove(eventName string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[eventName]
	for i, s := range subs {
		if s.id == id {
			b.subs[eventName] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(b.subs[eventName]) == 0 {
		delete(b.subs, eventName)
	}
}

func (b *Bus) deliver(s subscription, event models.SyncEvent) {
	defer func() {
		if r := recover(); r != nil {
			b.mylog.Action("sync_handler_panicked").Error("Sync handler panicked", fmt.Errorf("%v", r),
				"event", event.Name, "restaurant_id", event.RestaurantID)
		}
	}()
	s.handler(event)
}
