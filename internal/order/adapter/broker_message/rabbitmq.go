package brokermessage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"restaurant-orders/internal/order/app/core"
	"restaurant-orders/internal/order/domain/dto"
	"restaurant-orders/internal/xpkg/config"
	xerrors "restaurant-orders/internal/xpkg/errors"
	"restaurant-orders/internal/xpkg/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

const Exchange = "order_events"

type RabbitMQ struct {
	ctx          context.Context
	cfg          config.RabbitMQ
	conn         *amqp.Connection
	ch           *amqp.Channel
	mylog        logger.Logger
	reconnecting bool
	mu           sync.Mutex
}

// New connects and declares the fanout exchange.
func New(ctx context.Context, rabbitmqCfg config.RabbitMQ, mylog logger.Logger) (*RabbitMQ, error) {
	r := &RabbitMQ{
		ctx:   ctx,
		cfg:   rabbitmqCfg,
		mylog: mylog,
	}
	if err := r.connect(); err != nil {
		return nil, fmt.Errorf("%w: %v", xerrors.ErrRMQConn, err)
	}
	return r, nil
}

var _ core.IRabbitMQ = (*RabbitMQ)(nil)

func (r *RabbitMQ) connect() error {
	conn, err := amqp.Dial(r.cfg.URL())
	if err != nil {
		return err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return err
	}

	if err := ch.Confirm(false); err != nil {
		conn.Close()
		return err
	}

	if err := ch.ExchangeDeclare(Exchange, amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
		conn.Close()
		return err
	}

	r.mu.Lock()
	r.conn = conn
	r.ch = ch
	r.mu.Unlock()
	return nil
}

func (r *RabbitMQ) IsAlive() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn == nil || r.conn.IsClosed() {
		return xerrors.ErrMBConn
	}
	if r.ch == nil || r.ch.IsClosed() {
		return xerrors.ErrMBCh
	}
	return nil
}

func (r *RabbitMQ) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ch != nil && !r.ch.IsClosed() {
		if err := r.ch.Close(); err != nil {
			return fmt.Errorf("close rabbitmq channel: %v", err)
		}
	}
	if r.conn != nil && !r.conn.IsClosed() {
		if err := r.conn.Close(); err != nil {
			return fmt.Errorf("close rabbitmq connection: %v", err)
		}
	}
	return nil
}

// PublishEvent publishes and waits for the broker confirm.
func (r *RabbitMQ) PublishEvent(ctx context.Context, message dto.EventMessage) error {
	if err := r.IsAlive(); err != nil {
		go r.reconnect(r.ctx)
		return err
	}

	body, err := json.Marshal(message)
	if err != nil {
		return err
	}

	r.mu.Lock()
	ch := r.ch
	r.mu.Unlock()

	conf, err := ch.PublishWithDeferredConfirmWithContext(ctx, Exchange, "", false, false, amqp.Publishing{
		ContentType: "application/json",
		Timestamp:   message.PublishedAt,
		Body:        body,
	})
	if err != nil {
		return err
	}
	ok, err := conf.WaitContext(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("rabbitmq: publish of %s was nacked", message.Event)
	}
	return nil
}

// ConsumeEvents binds a private, auto-deleted queue to the exchange.
func (r *RabbitMQ) ConsumeEvents(ctx context.Context) (<-chan amqp.Delivery, error) {
	if err := r.IsAlive(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	ch := r.ch
	r.mu.Unlock()

	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, "", Exchange, false, nil); err != nil {
		return nil, fmt.Errorf("bind queue: %w", err)
	}
	return ch.ConsumeWithContext(ctx, q.Name, "", false, true, false, false, nil)
}

func (r *RabbitMQ) reconnect(ctx context.Context) {
	r.mu.Lock()
	if r.reconnecting {
		r.mu.Unlock()
		return
	}
	r.reconnecting = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.reconnecting = false
		r.mu.Unlock()
	}()

	t := time.NewTicker(core.RMQReconnectionInterval)
	defer t.Stop()
	log := r.mylog.Action("rabbitmq_reconnecting")

	for {
		select {
		case <-t.C:
			err := r.connect()
			if err == nil {
				log.Info("rabbitmq reconnected")
				return
			}
			log.Warn("rabbitmq failed to reconnect", "cause", err.Error())
		case <-ctx.Done():
			return
		}
	}
}

// Reconnect blocks until the connection is back or ctx is done.
func (r *RabbitMQ) Reconnect(ctx context.Context) error {
	r.reconnect(ctx)
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.IsAlive()
}
