// Package client assembles the order store used by the shopper and operator modes:
// remote order service first, local fallback files second, and an optional RabbitMQ bridge
// so views in other processes hear about changes.
package client

import (
	"context"
	"fmt"

	"restaurant-orders/internal/order/adapter/fallback"
	"restaurant-orders/internal/order/adapter/local"
	"restaurant-orders/internal/order/adapter/remote"
	"restaurant-orders/internal/order/adapter/viewsync"
	"restaurant-orders/internal/order/app/core"
	"restaurant-orders/internal/order/app/services"
	"restaurant-orders/internal/order/app/status"
	"restaurant-orders/internal/xpkg/config"
	"restaurant-orders/internal/xpkg/logger"

	brokermessage "restaurant-orders/internal/order/adapter/broker_message"
)

type Client struct {
	Store *services.OrderStore
	Sync  core.ISyncChannel

	bridge *brokermessage.Bridge
	mb     *brokermessage.RabbitMQ
	mylog  logger.Logger
}

// Open builds the client stack. A missing or unreachable broker only disables
// cross-process events.
func Open(ctx context.Context, cfg *config.Config, mylog logger.Logger) (*Client, error) {
	localStore, err := local.NewStore(cfg.Fallback.Dir, status.NewMachine())
	if err != nil {
		return nil, fmt.Errorf("open fallback store: %w", err)
	}
	backend := fallback.New(
		remote.NewClient(cfg.OrderAPI.BaseURL, cfg.OrderAPI.Timeout),
		localStore,
		cfg.OrderAPI.Timeout,
		mylog,
	)

	c := &Client{mylog: mylog}
	bus := viewsync.NewBus(mylog)
	c.Sync = bus

	if cfg.RMQ != nil {
		mb, err := brokermessage.New(ctx, *cfg.RMQ, mylog)
		if err != nil {
			mylog.Action("mb_connection_failed").Warn("Message broker unavailable, sync stays in-process", "cause", err.Error())
		} else {
			c.mb = mb
			c.bridge = brokermessage.NewBridge(bus, mb, mylog)
			c.Sync = c.bridge
			mylog.Action("mb_connected").Info("Successful message broker connection")
		}
	}

	c.Store = services.NewOrderStore(backend, c.Sync, mylog)
	return c, nil
}

// RunSync relays broker events until ctx is done. Without a broker it just waits.
func (c *Client) RunSync(ctx context.Context) error {
	if c.bridge == nil {
		<-ctx.Done()
		return nil
	}
	return c.bridge.Run(ctx)
}

// Close waits for pending event forwards and closes the broker connection.
func (c *Client) Close() error {
	if c.bridge != nil {
		c.bridge.Wait()
	}
	if c.mb != nil {
		if err := c.mb.Close(); err != nil {
			c.mylog.Action("mb_close_failed").Error("Failed to close message broker", err)
			return fmt.Errorf("mb close: %w", err)
		}
	}
	return nil
}
