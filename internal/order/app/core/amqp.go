package core

import (
	"context"

	"restaurant-orders/internal/order/domain/dto"

	amqp "github.com/rabbitmq/amqp091-go"
)

// IRabbitMQ carries sync events between processes.
type IRabbitMQ interface {
	Close() error
	IsAlive() error
	Reconnect(ctx context.Context) error
	PublishEvent(ctx context.Context, message dto.EventMessage) error
	ConsumeEvents(ctx context.Context) (<-chan amqp.Delivery, error)
}
