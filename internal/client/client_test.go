package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"restaurant-orders/internal/order/domain/models"
	"restaurant-orders/internal/xpkg/config"
	"restaurant-orders/internal/xpkg/logger"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_FallsBackToLocalFiles(t *testing.T) {
	// A server that always fails stands in for an unreachable order service.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	dir := t.TempDir()
	cfg := &config.Config{
		OrderAPI: &config.OrderAPI{BaseURL: srv.URL, Timeout: time.Second},
		Fallback: &config.Fallback{Dir: dir},
		Pricing:  &config.Pricing{VATRatePercent: "15"},
		Board:    &config.Board{PollInterval: time.Second},
	}

	c, err := Open(context.Background(), cfg, logger.Nop())
	require.NoError(t, err)
	defer c.Close()

	created := 0
	unsubscribe := c.Sync.Subscribe(models.EventOrderCreated, func(models.SyncEvent) { created++ })
	defer unsubscribe()

	order, err := c.Store.Submit(context.Background(), "r-1",
		[]models.OrderItem{{MenuItemID: "tea", Name: "Tea", UnitPrice: decimal.RequireFromString("2.50"), Quantity: 2}},
		models.Customer{Name: "Dana Lee", Phone: "+1 555 0100"},
		models.DeliveryInfo{PaymentMethod: models.PaymentCash, DeliveryMethod: models.DeliveryTakeout},
		cfg.VATRate(),
	)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(order.OrderNumber, "LOC_"), order.OrderNumber)
	assert.Equal(t, "5.75", order.Totals.Total.StringFixed(2))
	assert.Equal(t, 1, created)

	_, err = os.Stat(filepath.Join(dir, "orders_r-1.json"))
	assert.NoError(t, err)

	orders, err := c.Store.List(context.Background(), "r-1", models.ListFilter{})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, order.ID, orders[0].ID)
}

func TestRunSync_WithoutBrokerWaitsForContext(t *testing.T) {
	cfg := &config.Config{
		OrderAPI: &config.OrderAPI{BaseURL: "http://127.0.0.1:0", Timeout: time.Second},
		Fallback: &config.Fallback{Dir: t.TempDir()},
		Pricing:  &config.Pricing{VATRatePercent: "15"},
	}
	c, err := Open(context.Background(), cfg, logger.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.NoError(t, c.RunSync(ctx))
	assert.NoError(t, c.Close())
}
