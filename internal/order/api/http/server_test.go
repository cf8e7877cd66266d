package http

import (
	"context"
	"encoding/json"
	"errors"
	nethttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"restaurant-orders/internal/order/adapter/local"
	"restaurant-orders/internal/order/adapter/remote"
	"restaurant-orders/internal/order/adapter/viewsync"
	"restaurant-orders/internal/order/api/http/handle"
	"restaurant-orders/internal/order/app/core"
	"restaurant-orders/internal/order/app/services"
	"restaurant-orders/internal/order/app/status"
	"restaurant-orders/internal/order/domain/dto"
	"restaurant-orders/internal/order/domain/models"
	"restaurant-orders/internal/xpkg/config"
	"restaurant-orders/internal/xpkg/logger"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDB struct{ err error }

func (f fakeDB) Close() error                  { return nil }
func (f fakeDB) IsAlive(context.Context) error { return f.err }

func newTestAPI(t *testing.T, db core.IDB) (*httptest.Server, *viewsync.Bus) {
	t.Helper()
	backend, err := local.NewStore(t.TempDir(), status.NewMachine())
	require.NoError(t, err)

	bus := viewsync.NewBus(logger.Nop())
	store := services.NewOrderStore(backend, bus, logger.Nop())

	r := chi.NewRouter()
	Routes(r, handle.NewOrderHandler(store, logger.Nop()), db, 10, logger.Nop())

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, bus
}

func clientOrder(total string) models.Order {
	return models.Order{
		ID:           uuid.NewString(),
		RestaurantID: "r-1",
		Customer:     models.Customer{Name: "Dana Lee", Phone: "+1 555 0100"},
		Items: []models.OrderItem{{
			MenuItemID: "pizza", Name: "Margherita", UnitPrice: decimal.RequireFromString("25.00"), Quantity: 2,
			Customizations: []models.Customization{{Name: "cheese", Value: "extra", PriceDelta: decimal.RequireFromString("3.00")}},
		}},
		Totals:         models.PricedTotals{Total: decimal.RequireFromString(total)},
		VATRatePercent: decimal.NewFromInt(15),
		DeliveryInfo:   models.DeliveryInfo{PaymentMethod: "cash", DeliveryMethod: "takeout"},
	}
}

func TestAPI_OrderLifecycleThroughClient(t *testing.T) {
	srv, bus := newTestAPI(t, fakeDB{})
	client := remote.NewClient(srv.URL, time.Second)
	ctx := context.Background()

	var events []models.SyncEvent
	bus.Subscribe(models.EventOrderCreated, func(e models.SyncEvent) { events = append(events, e) })

	in := clientOrder("64.40")
	created, err := client.Create(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, in.ID, created.ID)
	assert.Equal(t, models.StatusPending, created.Status)
	assert.Equal(t, "64.40", created.Totals.Total.StringFixed(2))
	assert.Len(t, events, 1)

	again, err := client.Create(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, created.OrderNumber, again.OrderNumber)

	orders, err := client.List(ctx, "r-1", models.ListFilter{Statuses: []models.Status{models.StatusPending}})
	require.NoError(t, err)
	require.Len(t, orders, 1)

	_, err = client.UpdateStatus(ctx, "r-1", created.ID, models.StatusReady, "")
	var ite *core.InvalidTransitionError
	require.ErrorAs(t, err, &ite)
	assert.Equal(t, models.StatusPending, ite.From)
	assert.Equal(t, models.StatusReady, ite.To)

	accepted, err := client.UpdateStatus(ctx, "r-1", created.ID, models.StatusAccepted, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, accepted.Status)

	_, err = client.UpdateStatus(ctx, "r-1", created.ID, models.StatusCancelled, "")
	assert.ErrorIs(t, err, core.ErrMissingCancellationReason)

	got, err := client.Get(ctx, "r-1", created.ID)
	require.NoError(t, err)
	assert.Len(t, got.StatusHistory, 2)

	_, err = client.Get(ctx, "r-1", uuid.NewString())
	assert.ErrorIs(t, err, core.ErrOrderNotFound)
}

func TestAPI_CreateRejections(t *testing.T) {
	srv, _ := newTestAPI(t, fakeDB{})
	client := remote.NewClient(srv.URL, time.Second)
	ctx := context.Background()

	_, err := client.Create(ctx, clientOrder("10.00"))
	assert.ErrorIs(t, err, core.ErrTotalMismatch)

	empty := clientOrder("0")
	empty.Items = nil
	_, err = client.Create(ctx, empty)
	assert.ErrorIs(t, err, core.ErrEmptyOrder)

	noPhone := clientOrder("64.40")
	noPhone.Customer.Phone = ""
	_, err = client.Create(ctx, noPhone)
	var ve *core.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "customer.phone", ve.Field)
}

func TestAPI_StatusCodes(t *testing.T) {
	srv, _ := newTestAPI(t, fakeDB{})

	tests := []struct {
		name string
		path string
		code int
		kind string
	}{
		{name: "bad status filter", path: "/restaurants/r-1/orders?status=cooking", code: nethttp.StatusBadRequest, kind: core.KindValidation},
		{name: "bad limit", path: "/restaurants/r-1/orders?limit=-1", code: nethttp.StatusBadRequest, kind: core.KindValidation},
		{name: "unknown order", path: "/orders/" + uuid.NewString(), code: nethttp.StatusNotFound, kind: core.KindOrderNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := nethttp.Get(srv.URL + tt.path)
			require.NoError(t, err)
			defer resp.Body.Close()

			var body dto.ErrorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.code, resp.StatusCode)
			assert.Equal(t, tt.code, body.Code)
			assert.Equal(t, tt.kind, body.Kind)
		})
	}
}

func TestAPI_Health(t *testing.T) {
	healthy, _ := newTestAPI(t, fakeDB{})
	resp, err := nethttp.Get(healthy.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)

	sick, _ := newTestAPI(t, fakeDB{err: errors.New("db connection failure")})
	resp, err = nethttp.Get(sick.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, nethttp.StatusServiceUnavailable, resp.StatusCode)
}

func TestLimitConcurrent_RejectsWhenFull(t *testing.T) {
	h := limitConcurrent(0)(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		t.Fatal("handler must not run")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(nethttp.MethodGet, "/orders/x", nil))

	var body dto.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, nethttp.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, core.KindMaxConcurrent, body.Kind)
}

func TestServer_RunStopsRetryingWhenContextEnds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := &config.Config{
		DB:  &config.Postgres{Host: "127.0.0.1", Port: "1", User: "u", Password: "p", Database: "d"},
		RMQ: &config.RabbitMQ{Host: "127.0.0.1", Port: "1", User: "guest", Password: "guest"},
	}
	s := NewServer(ctx, cfg, &core.OrderParams{Port: 3000, MaxConcurrent: 1}, logger.Nop())

	start := time.Now()
	err := s.Run()
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.NoError(t, s.Stop(context.Background()))
}
