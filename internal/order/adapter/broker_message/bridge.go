package brokermessage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"restaurant-orders/internal/order/app/core"
	"restaurant-orders/internal/order/domain/dto"
	"restaurant-orders/internal/xpkg/logger"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const publishTimeout = 5 * time.Second

// Bridge extends an in-process sync channel across processes. Local publishes are delivered
// in-process first and then forwarded to the broker; broker events from other processes are
// re-published locally only.
type Bridge struct {
	local  core.ISyncChannel
	mb     core.IRabbitMQ
	origin string
	mylog  logger.Logger

	wg sync.WaitGroup
}

func NewBridge(local core.ISyncChannel, mb core.IRabbitMQ, mylog logger.Logger) *Bridge {
	return &Bridge{
		local:  local,
		mb:     mb,
		origin: uuid.NewString(),
		mylog:  mylog.Action("sync_bridge"),
	}
}

var _ core.ISyncChannel = (*Bridge)(nil)

// Publish never blocks on the broker.
func (b *Bridge) Publish(eventName, restaurantID string) {
	b.local.Publish(eventName, restaurantID)

	msg := dto.EventMessage{
		Event:        eventName,
		RestaurantID: restaurantID,
		Origin:       b.origin,
		PublishedAt:  time.Now().UTC(),
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := b.mb.PublishEvent(ctx, msg); err != nil {
			b.mylog.Warn("Failed to forward sync event", "event", eventName, "restaurant_id", restaurantID, "cause", err.Error())
		}
	}()
}

func (b *Bridge) Subscribe(eventName string, handler core.SyncHandler) func() {
	return b.local.Subscribe(eventName, handler)
}

// Run consumes broker events until ctx is done, reconnecting when the channel drops.
func (b *Bridge) Run(ctx context.Context) error {
	for {
		deliveries, err := b.mb.ConsumeEvents(ctx)
		if err != nil {
			b.mylog.Warn("Cannot consume sync events", "cause", err.Error())
		} else {
			b.work(ctx, deliveries)
		}

		if ctx.Err() != nil {
			return nil
		}
		if err := b.mb.Reconnect(ctx); err != nil && ctx.Err() != nil {
			return nil
		}
	}
}

// Wait blocks until in-flight forwards finish.
func (b *Bridge) Wait() {
	b.wg.Wait()
}

func (b *Bridge) work(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-deliveries:
			if !ok {
				return
			}
			if err := b.processMsg(msg); err != nil {
				b.mylog.Error("Failed to process sync event", err)
				if err := msg.Nack(false, false); err != nil {
					b.mylog.Error("Failed to nack", err)
				}
				continue
			}
			if err := msg.Ack(false); err != nil {
				b.mylog.Error("Failed to ack", err)
			}
		}
	}
}

func (b *Bridge) processMsg(msg amqp.Delivery) error {
	var event dto.EventMessage
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		return fmt.Errorf("unmarshal message: %v", err)
	}
	if event.Origin == b.origin {
		return nil
	}

	b.mylog.Debug("Sync event received from broker", "event", event.Event, "restaurant_id", event.RestaurantID, "origin", event.Origin)
	b.local.Publish(event.Event, event.RestaurantID)
	return nil
}
